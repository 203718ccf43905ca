package journal

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledgerimport/internal/id"
	"github.com/cleared-dev/ledgerimport/internal/model"
)

// ValidationError describes a single invariant violation.
type ValidationError struct {
	Invariant   int
	EntryID     string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invariant %d [%s]: %s", e.Invariant, e.EntryID, e.Description)
}

// AccountChecker tests whether an account name exists in the accounts table.
type AccountChecker interface {
	Exists(name string) bool
}

// ValidatePostings enforces the posting invariants on a batch produced by Post.
func ValidatePostings(postings []model.Posting, accounts AccountChecker) []ValidationError {
	var errs []ValidationError

	// Group postings by voucher.
	groups := make(map[string][]model.Posting)
	var order []string
	for _, p := range postings {
		if _, seen := groups[p.VoucherNo]; !seen {
			order = append(order, p.VoucherNo)
		}
		groups[p.VoucherNo] = append(groups[p.VoucherNo], p)
	}

	// Invariant 1: Vouchers balance and hold exactly two postings with consecutive names.
	for _, v := range order {
		group := groups[v]
		totalDebit := decimal.Zero
		totalCredit := decimal.Zero
		for _, p := range group {
			totalDebit = totalDebit.Add(p.Debit)
			totalCredit = totalCredit.Add(p.Credit)
		}
		if !totalDebit.Equal(totalCredit) {
			errs = append(errs, ValidationError{
				Invariant:   1,
				EntryID:     v,
				Description: fmt.Sprintf("debits (%s) != credits (%s)", totalDebit.StringFixed(2), totalCredit.StringFixed(2)),
			})
		}
		if len(group) != 2 {
			errs = append(errs, ValidationError{
				Invariant:   1,
				EntryID:     v,
				Description: fmt.Sprintf("voucher has %d postings, want 2", len(group)),
			})
			continue
		}
		first, ok1 := id.Parse(group[0].ID)
		second, ok2 := id.Parse(group[1].ID)
		if !ok1 || !ok2 || second != first+1 || group[0].ID != v {
			errs = append(errs, ValidationError{
				Invariant:   1,
				EntryID:     v,
				Description: fmt.Sprintf("names %q, %q are not consecutive from the voucher number", group[0].ID, group[1].ID),
			})
		}
	}

	seen := make(map[string]bool, len(postings))
	for _, p := range postings {
		// Invariant 2: Exactly one of debit/credit per row.
		if p.Debit.IsZero() == p.Credit.IsZero() {
			errs = append(errs, ValidationError{
				Invariant:   2,
				EntryID:     p.ID,
				Description: "posting must have exactly one of debit or credit",
			})
		}

		// Invariant 3: Valid account references.
		if accounts != nil && !accounts.Exists(p.Account) {
			errs = append(errs, ValidationError{
				Invariant:   3,
				EntryID:     p.ID,
				Description: fmt.Sprintf("unknown account %q", p.Account),
			})
		}

		// Invariant 4: Unique names.
		if seen[p.ID] {
			errs = append(errs, ValidationError{
				Invariant:   4,
				EntryID:     p.ID,
				Description: "duplicate name",
			})
		}
		seen[p.ID] = true

		// Invariant 5: Positive amounts with no more than 2 decimal places.
		amount := p.Amount()
		if amount.IsNegative() || !amount.Equal(amount.Round(2)) {
			errs = append(errs, ValidationError{
				Invariant:   5,
				EntryID:     p.ID,
				Description: fmt.Sprintf("amount %s is not a positive two-decimal value", amount),
			})
		}
	}

	return errs
}
