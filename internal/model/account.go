package model

// Account is a row of the accounts table.
type Account struct {
	Name          string
	IsGroup       bool
	RootType      string // Asset, Liability, Equity, Income, Expense; may be empty
	AccountType   string // Bank, Suspense, ...; may be empty
	ParentAccount string
	Parent        string // legacy parent column, written only on create
}

// Well-known suspense account names, in order of preference.
const (
	SuspenseClearing = "Suspense Clearing"
	SuspenseAccount  = "Suspense Account"
)

// NewSuspenseClearing returns the account created when a ledger has no clearing account.
func NewSuspenseClearing() Account {
	return Account{
		Name:          SuspenseClearing,
		RootType:      "Expense",
		AccountType:   "Suspense",
		ParentAccount: "Current Assets",
		Parent:        "Assets",
	}
}
