package journal

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledgerimport/internal/id"
	"github.com/cleared-dev/ledgerimport/internal/logger"
	"github.com/cleared-dev/ledgerimport/internal/model"
)

// Defaults for posting rows.
const (
	DefaultDescriptionLimit = 280
	DefaultVoucherType      = "Bank Import"
	DefaultUser             = "system"
)

// PostParams holds the accounts and stamps for a posting run.
type PostParams struct {
	BankAccount      string        // bank or loan account being reconciled
	SuspenseAccount  string        // clearing account taking the other side
	IDs              *id.Allocator // seeded from the ledger's largest numeric name
	VoucherType      string
	User             string
	DescriptionLimit int // in characters; 0 = DefaultDescriptionLimit
	Now              time.Time
}

// Result is the output of Post.
type Result struct {
	Postings  []model.Posting // two per converted transaction, debit side first
	Converted int
	Skipped   int
}

// Post converts each transaction into a balanced debit/credit pair.
// Transactions without a date or with a zero amount are skipped.
//
// An inflow debits the bank account and credits suspense; an outflow debits
// suspense and credits the bank. Both postings share a voucher number equal
// to the first of their two consecutive names.
func Post(ctx context.Context, txns []model.Transaction, p PostParams) Result {
	log := logger.FromContext(ctx)
	if p.IDs == nil {
		p.IDs = id.NewAllocator(1)
	}
	if p.VoucherType == "" {
		p.VoucherType = DefaultVoucherType
	}
	if p.User == "" {
		p.User = DefaultUser
	}
	if p.DescriptionLimit <= 0 {
		p.DescriptionLimit = DefaultDescriptionLimit
	}

	var res Result
	for i, txn := range txns {
		amount := txn.Amount.RoundBank(2)
		if !txn.HasDate() || amount.IsZero() {
			log.Debug().Int("record", i+1).Str("description", txn.Description).Msg("skipping transaction without date or amount")
			res.Skipped++
			continue
		}

		debitAcct, creditAcct := p.BankAccount, p.SuspenseAccount
		if amount.IsNegative() {
			debitAcct, creditAcct = p.SuspenseAccount, p.BankAccount
		}
		res.Postings = append(res.Postings, pair(txn, amount.Abs(), debitAcct, creditAcct, p)...)
		res.Converted++
	}
	return res
}

func pair(txn model.Transaction, amount decimal.Decimal, debitAcct, creditAcct string, p PostParams) []model.Posting {
	first, second := p.IDs.Pair()
	base := model.Posting{
		Date:        txn.Date,
		Description: truncate(txn.Description, p.DescriptionLimit),
		VoucherType: p.VoucherType,
		VoucherNo:   id.Format(first),
		CreatedBy:   p.User,
		ModifiedBy:  p.User,
		Created:     p.Now,
		Modified:    p.Now,
	}

	debit := base
	debit.ID = id.Format(first)
	debit.Account = debitAcct
	debit.Debit = amount

	credit := base
	credit.ID = id.Format(second)
	credit.Account = creditAcct
	credit.Credit = amount

	return []model.Posting{debit, credit}
}

// truncate shortens s to at most limit characters.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
