package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one statement line normalized by a parser.
type Transaction struct {
	Date        time.Time       // zero = unresolved
	Description string          // narrative parts joined with DescriptionSeparator
	Amount      decimal.Decimal // negative = outflow, positive = inflow
}

// DescriptionSeparator joins the narrative fields of a statement record.
const DescriptionSeparator = " / "

// HasDate reports whether the transaction carries a resolved date.
func (t Transaction) HasDate() bool {
	return !t.Date.IsZero()
}

// Postable reports whether the transaction should produce ledger postings.
func (t Transaction) Postable() bool {
	return t.HasDate() && !t.Amount.IsZero()
}
