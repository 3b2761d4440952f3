// Package sheet is the tabular side of the ingestion pipeline: the Sheets
// API client, the row placement planner and the column mapper.
//
// A month tab is a 12-column table. Row 0 is a header and is never written.
// Each transaction type owns a column group; a recording event touches
// exactly one group and leaves every other column as it was.
package sheet

import (
	"strings"

	"tabkeeper/internal/model"
)

// NumColumns is the width of a month-tab row.
const NumColumns = 12

// Column positions within a row.
const (
	ColDate           = 0
	ColExpenseName    = 1
	ColExpenseCAD     = 2
	ColExpenseUSD     = 3
	ColEarningName    = 4
	ColEarningCAD     = 5
	ColEarningUSD     = 6
	ColReserved       = 7
	ColFeeUSD         = 8
	ColFeeCAD         = 9
	ColExpenseReceipt = 10
	ColEarningReceipt = 11
)

// GroupColumns returns the column group a transaction type writes into.
func GroupColumns(t model.TxType) []int {
	switch t {
	case model.TypeExpense:
		return []int{ColExpenseName, ColExpenseCAD, ColExpenseUSD}
	case model.TypeEarning:
		return []int{ColEarningName, ColEarningCAD, ColEarningUSD}
	case model.TypeFee:
		return []int{ColFeeUSD, ColFeeCAD}
	}
	return nil
}

// cell returns row[idx], tolerating short rows.
func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return row[idx]
}

// isBlank reports whether a cell is empty; whitespace-only counts as blank.
func isBlank(row []string, idx int) bool {
	return strings.TrimSpace(cell(row, idx)) == ""
}

// groupBlank reports whether every column of the group is blank in row.
func groupBlank(row []string, group []int) bool {
	for _, idx := range group {
		if !isBlank(row, idx) {
			return false
		}
	}
	return true
}
