package accounts

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cleared-dev/ledgerimport/internal/model"
)

// Lister reads the accounts table.
type Lister interface {
	ListAccounts(ctx context.Context, schema model.LedgerSchema) ([]model.Account, error)
}

// Creator inserts into the accounts table.
type Creator interface {
	CreateAccount(ctx context.Context, schema model.LedgerSchema, a model.Account, user string, now time.Time) error
}

// Service provides in-memory lookup over the ledger's accounts, keyed by name.
type Service struct {
	accounts []model.Account
	byName   map[string]model.Account
}

// NewService creates a Service from a slice of accounts.
func NewService(accounts []model.Account) *Service {
	s := &Service{byName: make(map[string]model.Account, len(accounts))}
	for _, a := range accounts {
		if _, dup := s.byName[a.Name]; dup {
			continue
		}
		s.byName[a.Name] = a
		s.accounts = append(s.accounts, a)
	}
	sort.SliceStable(s.accounts, func(i, j int) bool { return s.accounts[i].Name < s.accounts[j].Name })
	return s
}

// Load reads the accounts table and returns a Service.
func Load(ctx context.Context, l Lister, schema model.LedgerSchema) (*Service, error) {
	accts, err := l.ListAccounts(ctx, schema)
	if err != nil {
		return nil, fmt.Errorf("loading accounts: %w", err)
	}
	return NewService(accts), nil
}

// insert adds a new account at its sorted position.
func (s *Service) insert(a model.Account) {
	s.byName[a.Name] = a
	i := sort.Search(len(s.accounts), func(i int) bool { return s.accounts[i].Name >= a.Name })
	s.accounts = append(s.accounts, model.Account{})
	copy(s.accounts[i+1:], s.accounts[i:])
	s.accounts[i] = a
}

// All returns all accounts sorted by name.
func (s *Service) All() []model.Account {
	return s.accounts
}

// Get returns an account by name.
func (s *Service) Get(name string) (model.Account, bool) {
	a, ok := s.byName[name]
	return a, ok
}

// Exists reports whether an account name exists.
func (s *Service) Exists(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// Postable returns the accounts a posting may reference: every non-group
// account, or every account when the ledger marks none as non-group.
func (s *Service) Postable() []model.Account {
	var result []model.Account
	for _, a := range s.accounts {
		if !a.IsGroup {
			result = append(result, a)
		}
	}
	if len(result) == 0 {
		return s.accounts
	}
	return result
}

// IsPostable reports whether a posting may reference the named account.
func (s *Service) IsPostable(name string) bool {
	for _, a := range s.Postable() {
		if a.Name == name {
			return true
		}
	}
	return false
}

// EnsureSuspense creates the Suspense Clearing account if the ledger lacks it.
// It reports whether an account was created.
func (s *Service) EnsureSuspense(ctx context.Context, c Creator, schema model.LedgerSchema, user string, now time.Time) (bool, error) {
	if s.Exists(model.SuspenseClearing) {
		return false, nil
	}
	acct := model.NewSuspenseClearing()
	if err := c.CreateAccount(ctx, schema, acct, user, now); err != nil {
		return false, err
	}
	s.insert(acct)
	return true, nil
}
