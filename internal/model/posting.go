package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Posting is one row of the ledger-entries table (one side of a double-entry).
type Posting struct {
	ID          string          // sequential numeric name, unique in the ledger
	Date        time.Time       //nolint:revive // plain field name is clearest
	Account     string          //nolint:revive
	Debit       decimal.Decimal // zero if credit side
	Credit      decimal.Decimal // zero if debit side
	Description string          // stored in the remark column
	VoucherType string
	VoucherNo   string // shared by both postings of a transaction
	CreatedBy   string
	ModifiedBy  string
	Created     time.Time
	Modified    time.Time
}

// IsDebit reports whether the posting is the debit side of its voucher.
func (p Posting) IsDebit() bool {
	return !p.Debit.IsZero()
}

// Amount returns the nonzero side of the posting.
func (p Posting) Amount() decimal.Decimal {
	if p.IsDebit() {
		return p.Debit
	}
	return p.Credit
}
