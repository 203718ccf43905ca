package model

import "sort"

// Ledger-entries columns the importer writes.
var (
	RequiredLedgerColumns = []string{"name", "date", "party", "account", "debit", "credit", "createdBy", "modifiedBy", "created", "modified"}
	OptionalLedgerColumns = []string{"remark", "voucherType", "voucherNo"}
)

// LedgerSchema describes the target database as found at the start of an import run.
type LedgerSchema struct {
	AccountTable   string
	LedgerTable    string
	AccountColumns map[string]bool
	LedgerColumns  map[string]bool

	// Pending lists optional ledger columns to add inside the write transaction.
	Pending []string
}

// HasAccountColumn reports whether the accounts table has column c.
func (s LedgerSchema) HasAccountColumn(c string) bool {
	return s.AccountColumns[c]
}

// HasLedgerColumn reports whether the ledger-entries table has column c.
func (s LedgerSchema) HasLedgerColumn(c string) bool {
	return s.LedgerColumns[c]
}

// MissingRequired returns required ledger columns the table lacks.
func (s LedgerSchema) MissingRequired() []string {
	return missing(s.LedgerColumns, RequiredLedgerColumns)
}

// MissingOptional returns optional ledger columns the table lacks; they
// should be added before posting.
func (s LedgerSchema) MissingOptional() []string {
	return missing(s.LedgerColumns, OptionalLedgerColumns)
}

// PlanOptional returns a copy of s with its missing optional columns
// pending, plus their names. The database is not touched.
func (s LedgerSchema) PlanOptional() (LedgerSchema, []string) {
	add := s.MissingOptional()
	if len(add) == 0 {
		return s, nil
	}
	cols := make(map[string]bool, len(s.LedgerColumns)+len(add))
	for c := range s.LedgerColumns {
		cols[c] = true
	}
	for _, c := range add {
		cols[c] = true
	}
	s.LedgerColumns = cols
	s.Pending = append(append([]string(nil), s.Pending...), add...)
	return s, add
}

// InsertColumns returns the ledger columns an insert should name, in a stable order.
func (s LedgerSchema) InsertColumns() []string {
	cols := append([]string(nil), RequiredLedgerColumns...)
	for _, c := range OptionalLedgerColumns {
		if s.LedgerColumns[c] {
			cols = append(cols, c)
		}
	}
	return cols
}

func missing(have map[string]bool, want []string) []string {
	var out []string
	for _, c := range want {
		if !have[c] {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}
