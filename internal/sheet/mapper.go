package sheet

import (
	"github.com/shopspring/decimal"

	"tabkeeper/internal/model"
)

// MapColumns produces the row values for a recording event. existing is the
// current row when a row is being reused, or nil for an insert/append. Only
// the date column and the transaction's own column group are set; every
// other cell of existing is carried over verbatim.
func MapColumns(existing []string, tx model.Transaction, link string) []string {
	row := make([]string, NumColumns)
	copy(row, existing)

	row[ColDate] = tx.Date.ISO()

	usd := tx.Currency == "USD"
	amount := formatAmount(tx.Amount)

	switch tx.Type {
	case model.TypeExpense:
		row[ColExpenseName] = nameOrPrior(tx.Name, cell(existing, ColExpenseName))
		if usd {
			row[ColExpenseUSD] = "$" + amount
		} else {
			row[ColExpenseCAD] = amount
		}
		if link != "" {
			row[ColExpenseReceipt] = link
		}
	case model.TypeEarning:
		row[ColEarningName] = nameOrPrior(tx.Name, cell(existing, ColEarningName))
		if usd {
			row[ColEarningUSD] = "$" + amount
		} else {
			row[ColEarningCAD] = amount
		}
		if link != "" {
			row[ColEarningReceipt] = link
		}
	case model.TypeFee:
		// Fees never carry a receipt link; only the amount pair.
		if usd {
			row[ColFeeUSD] = "$" + amount
		} else {
			row[ColFeeCAD] = amount
		}
	}

	return row
}

func nameOrPrior(name, prior string) string {
	if name != "" {
		return name
	}
	if prior != "" {
		return prior
	}
	return "Unknown"
}

// formatAmount renders whole amounts without decimals ("200") and
// fractional ones with two ("6.66", "1.20"), matching how the sheet has
// historically been filled in.
func formatAmount(d decimal.Decimal) string {
	if d.IsInteger() {
		return d.String()
	}
	return d.StringFixed(2)
}
