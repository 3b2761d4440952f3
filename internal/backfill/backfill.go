// Package backfill scans a month tab for USD amounts whose paired CAD cell
// is still empty and fills the CAD value in using the historical rate for
// the row's date.
package backfill

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"tabkeeper/internal/currency"
	"tabkeeper/internal/logger"
	"tabkeeper/internal/model"
	"tabkeeper/internal/months"
	"tabkeeper/internal/sheet"
)

// SheetService is the slice of the sheet client the engine needs.
type SheetService interface {
	Read(ctx context.Context, tab string) ([][]string, error)
	Update(ctx context.Context, tab string, rowIndex int, values []string) error
}

// RateService provides historical USD to CAD rates.
type RateService interface {
	Rate(ctx context.Context, d model.Date) (float64, error)
}

// columnPairs lists the (USD, CAD) cell pairs of a row: expense, earning,
// fee.
var columnPairs = [][2]int{
	{sheet.ColExpenseUSD, sheet.ColExpenseCAD},
	{sheet.ColEarningUSD, sheet.ColEarningCAD},
	{sheet.ColFeeUSD, sheet.ColFeeCAD},
}

// Engine runs the back-fill.
type Engine struct {
	sheets SheetService
	rates  RateService
}

// New creates an Engine.
func New(sheets SheetService, rates RateService) *Engine {
	return &Engine{sheets: sheets, rates: rates}
}

// Run back-fills one month. month may be in either language. Every
// converted cell is reported through progress; a rate failure for one row
// is reported and the scan continues with the next row.
func (e *Engine) Run(ctx context.Context, month string, progress func(string)) error {
	log := logger.FromContext(ctx)

	en, ok := months.Canonical(month)
	if !ok {
		return model.UserInputf("Invalid month: %q. Please use a valid month.", month)
	}
	tab := months.TabName(en)

	rows, err := e.sheets.Read(ctx, tab)
	if err != nil {
		return fmt.Errorf("backfill: load %q: %w", tab, err)
	}
	if len(rows) <= 1 {
		progress(fmt.Sprintf("No data found in %s.", tab))
		return nil
	}

	converted := 0
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		date, ok := model.ParseCellDate(cellAt(row, sheet.ColDate))
		if !ok {
			continue
		}

		updated, changes := e.convertRow(ctx, row, date, i, progress)
		if changes == 0 {
			continue
		}
		if err := e.sheets.Update(ctx, tab, i, updated); err != nil {
			log.Warn().Err(err).Int("row", i).Msg("row write failed")
			progress(fmt.Sprintf("Row %d: write failed: %v", i+1, err))
			continue
		}
		rows[i] = updated
		converted += changes
	}

	if converted == 0 {
		progress(fmt.Sprintf("No missing USD conversions in %s.", tab))
	} else {
		progress(fmt.Sprintf("Converted %d USD value(s) in %s.", converted, tab))
	}
	return nil
}

// convertRow fills the empty CAD cells of one row and returns the updated
// copy with the number of cells changed.
func (e *Engine) convertRow(ctx context.Context, row []string, date model.Date, rowIndex int, progress func(string)) ([]string, int) {
	log := logger.FromContext(ctx)

	updated := make([]string, sheet.NumColumns)
	copy(updated, row)

	changes := 0
	for _, pair := range columnPairs {
		usdIdx, cadIdx := pair[0], pair[1]

		value, ok := currency.ParseUSDCell(cellAt(updated, usdIdx))
		if !ok {
			continue
		}
		if !cellBlank(updated, cadIdx) {
			continue
		}

		rate, err := e.rates.Rate(ctx, date)
		if err != nil {
			log.Warn().Err(err).Int("row", rowIndex).Msg("rate lookup failed")
			progress(fmt.Sprintf("Row %d: rate lookup failed for %s: %v", rowIndex+1, date.ISO(), err))
			continue
		}

		cad := value.Mul(decimal.NewFromFloat(rate)).Round(2)
		updated[cadIdx] = cad.StringFixed(2)
		changes++

		progress(fmt.Sprintf("Row %d: $%s USD → %s CAD (rate %.4f on %s)",
			rowIndex+1, value, updated[cadIdx], rate, date.ISO()))
	}
	return updated, changes
}

func cellAt(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return row[idx]
}

func cellBlank(row []string, idx int) bool {
	return strings.TrimSpace(cellAt(row, idx)) == ""
}
