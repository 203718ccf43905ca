package accounts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledgerimport/internal/model"
)

func chart() []model.Account {
	return []model.Account{
		{Name: "Assets", IsGroup: true, RootType: "Asset"},
		{Name: "Business Checking", RootType: "Asset", AccountType: "Bank", ParentAccount: "Current Assets"},
		{Name: "Suspense Account", RootType: "Asset", AccountType: "Suspense"},
		{Name: "Office Supplies", RootType: "Expense"},
	}
}

type fakeStore struct {
	accounts []model.Account
	created  []model.Account
	err      error
}

func (f *fakeStore) ListAccounts(context.Context, model.LedgerSchema) ([]model.Account, error) {
	return f.accounts, f.err
}

func (f *fakeStore) CreateAccount(_ context.Context, _ model.LedgerSchema, a model.Account, _ string, _ time.Time) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, a)
	return nil
}

func TestNewService(t *testing.T) {
	svc := NewService(chart())

	all := svc.All()
	require.Len(t, all, 4)
	assert.Equal(t, "Assets", all[0].Name)
	assert.Equal(t, "Suspense Account", all[3].Name)
}

func TestGetExists(t *testing.T) {
	svc := NewService(chart())

	acct, ok := svc.Get("Business Checking")
	assert.True(t, ok)
	assert.Equal(t, "Bank", acct.AccountType)

	_, ok = svc.Get("Petty Cash")
	assert.False(t, ok)

	assert.True(t, svc.Exists("Office Supplies"))
	assert.False(t, svc.Exists("office supplies"))
}

func TestPostable(t *testing.T) {
	svc := NewService(chart())
	assert.Len(t, svc.Postable(), 3)

	groups := NewService([]model.Account{{Name: "A", IsGroup: true}, {Name: "B", IsGroup: true}})
	assert.Len(t, groups.Postable(), 2, "falls back to all accounts")
}

func TestDefaultSuspense(t *testing.T) {
	tests := []struct {
		name     string
		accounts []model.Account
		want     string
		ok       bool
	}{
		{"clearing preferred", append(chart(), model.NewSuspenseClearing()), model.SuspenseClearing, true},
		{"suspense account", chart(), model.SuspenseAccount, true},
		{"first postable", []model.Account{{Name: "Z"}, {Name: "Group", IsGroup: true}, {Name: "M"}}, "M", true},
		{"empty", nil, "", false},
	}
	for _, tt := range tests {
		got, ok := NewService(tt.accounts).DefaultSuspense()
		assert.Equal(t, tt.want, got, tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
	}
}

func TestDefaultBank(t *testing.T) {
	name, ok := NewService(chart()).DefaultBank()
	assert.True(t, ok)
	assert.Equal(t, "Business Checking", name)

	_, ok = NewService([]model.Account{{Name: "Cash"}}).DefaultBank()
	assert.False(t, ok)
}

func TestIsPostable(t *testing.T) {
	svc := NewService(chart())
	assert.True(t, svc.IsPostable("Business Checking"))
	assert.False(t, svc.IsPostable("Assets"))
	assert.False(t, svc.IsPostable("Petty Cash"))

	// A ledger without non-group accounts treats every account as postable.
	flat := NewService([]model.Account{{Name: "Income", IsGroup: true}})
	assert.True(t, flat.IsPostable("Income"))
}

func TestNewService_DropsDuplicates(t *testing.T) {
	svc := NewService(append(chart(), model.Account{Name: "Assets", RootType: "Liability"}))
	require.Len(t, svc.All(), 4)
	acct, _ := svc.Get("Assets")
	assert.Equal(t, "Asset", acct.RootType)
}

func TestLoad(t *testing.T) {
	svc, err := Load(context.Background(), &fakeStore{accounts: chart()}, model.LedgerSchema{})
	require.NoError(t, err)
	assert.True(t, svc.Exists("Suspense Account"))

	_, err = Load(context.Background(), &fakeStore{err: errors.New("disk gone")}, model.LedgerSchema{})
	assert.ErrorContains(t, err, "loading accounts: disk gone")
}

func TestEnsureSuspense(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(chart())
	now := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)

	created, err := svc.EnsureSuspense(context.Background(), store, model.LedgerSchema{}, "system", now)
	require.NoError(t, err)
	assert.True(t, created)
	require.Len(t, store.created, 1)
	assert.Equal(t, model.SuspenseClearing, store.created[0].Name)
	assert.True(t, svc.Exists(model.SuspenseClearing))

	names := make([]string, 0, len(svc.All()))
	for _, a := range svc.All() {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"Assets", "Business Checking", "Office Supplies", "Suspense Account", "Suspense Clearing"}, names)

	name, _ := svc.DefaultSuspense()
	assert.Equal(t, model.SuspenseClearing, name)

	// Second call is a no-op.
	created, err = svc.EnsureSuspense(context.Background(), store, model.LedgerSchema{}, "system", now)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Len(t, store.created, 1)
}

func TestEnsureSuspense_Error(t *testing.T) {
	svc := NewService(chart())
	_, err := svc.EnsureSuspense(context.Background(), &fakeStore{err: errors.New("read-only")}, model.LedgerSchema{}, "system", time.Now())
	require.Error(t, err)
	assert.False(t, svc.Exists(model.SuspenseClearing))
}
