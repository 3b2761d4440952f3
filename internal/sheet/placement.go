package sheet

import (
	"tabkeeper/internal/model"
)

// PlacementKind says how a transaction row reaches the sheet.
type PlacementKind int

const (
	// PlaceUpdate overwrites an existing same-date row whose target group
	// is blank.
	PlaceUpdate PlacementKind = iota
	// PlaceInsert inserts a blank row at Row and writes into it.
	PlaceInsert
	// PlaceAppend defers to the backend's append primitive.
	PlaceAppend
)

// Placement is the planner's decision. Row is meaningful for PlaceUpdate
// and PlaceInsert only.
type Placement struct {
	Kind PlacementKind
	Row  int
}

// PlanPlacement decides where a transaction of type t dated d lands in the
// snapshot (row 0 is the header):
//
//  1. The earliest same-date row whose column group for t is entirely blank
//     is reused.
//  2. Otherwise a new row goes immediately after the last same-date row,
//     preserving chronological grouping.
//  3. Otherwise the row is appended at the end of the data region.
func PlanPlacement(snapshot [][]string, d model.Date, t model.TxType) Placement {
	group := GroupColumns(t)
	lastSameDate := -1

	for i := 1; i < len(snapshot); i++ {
		rowDate, ok := model.ParseCellDate(cell(snapshot[i], ColDate))
		if !ok || !rowDate.Equal(d) {
			continue
		}
		if groupBlank(snapshot[i], group) {
			return Placement{Kind: PlaceUpdate, Row: i}
		}
		lastSameDate = i
	}

	if lastSameDate >= 0 {
		return Placement{Kind: PlaceInsert, Row: lastSameDate + 1}
	}
	return Placement{Kind: PlaceAppend}
}
