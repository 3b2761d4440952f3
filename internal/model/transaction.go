// Package model defines the domain types shared across the ingestion
// pipeline: transactions, canonical dates and the per-chat pending image
// slot.
package model

import (
	"github.com/shopspring/decimal"
)

// TxType classifies a transaction into one of the three column groups of a
// month tab.
type TxType string

const (
	TypeExpense TxType = "expense"
	TypeEarning TxType = "earning"
	TypeFee     TxType = "fee"
)

// ParseTxType maps free-form type keywords ("expense", "paypal fee", ...)
// onto a TxType. The second return value is false when the keyword is not
// recognized.
func ParseTxType(s string) (TxType, bool) {
	switch s {
	case "expense", "spend", "spent", "paid", "bought":
		return TypeExpense, true
	case "earning", "earned", "revenue":
		return TypeEarning, true
	case "fee", "paypal fee", "paypal_fee":
		return TypeFee, true
	}
	return "", false
}

// Transaction is the canonical record produced from one user event. It is
// transient: constructed per message, written to the sheet, then discarded.
type Transaction struct {
	Type        TxType
	Amount      decimal.Decimal
	Currency    string // "CAD" or "USD"
	Name        string // party or vendor; empty means "Unknown"
	Date        Date
	ReceiptLink string // absolute URL of the stored receipt, if any
}

// DisplayName returns the party name with the "Unknown" fallback applied.
func (t Transaction) DisplayName() string {
	if t.Name == "" {
		return "Unknown"
	}
	return t.Name
}

// PendingImage holds a parsed-but-untyped receipt for one chat. It is
// created when OCR succeeded but the transaction type could not be inferred,
// and consumed by the next text reply that names a type.
type PendingImage struct {
	FileID string
	Parsed Transaction
	Raw    []byte // receipt bytes, written to a temp file at finalization
}
