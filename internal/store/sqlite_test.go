package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledgerimport/internal/id"
	"github.com/cleared-dev/ledgerimport/internal/journal"
	"github.com/cleared-dev/ledgerimport/internal/model"
)

// newLedger creates a ledger file from testdata/ledger.sql and returns its path.
func newLedger(t *testing.T, extra ...string) string {
	t.Helper()
	script, err := os.ReadFile("../../testdata/ledger.sql")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "books.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	for _, stmt := range strings.Split(string(script), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	for _, stmt := range extra {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	return path
}

func openLedger(t *testing.T, path string) (*Store, model.LedgerSchema) {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	schema, err := s.Schema(ctx)
	require.NoError(t, err)
	return s, schema
}

func postings(t *testing.T, n int, seed int64) []model.Posting {
	t.Helper()
	var txns []model.Transaction
	for i := 0; i < n; i++ {
		amount := decimal.NewFromInt(int64(i + 1))
		if i%2 == 1 {
			amount = amount.Neg()
		}
		txns = append(txns, model.Transaction{
			Date:        time.Date(2025, 3, i+1, 0, 0, 0, 0, time.UTC),
			Description: "txn",
			Amount:      amount,
		})
	}
	res := journal.Post(context.Background(), txns, journal.PostParams{
		BankAccount:     "Business Checking",
		SuspenseAccount: "Suspense Account",
		IDs:             id.NewAllocator(seed),
		Now:             time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC),
	})
	require.Len(t, res.Postings, 2*n)
	return res.Postings
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "nope.db"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSchema(t *testing.T) {
	_, schema := openLedger(t, newLedger(t))

	assert.Equal(t, "Account", schema.AccountTable)
	assert.Equal(t, "AccountingLedgerEntry", schema.LedgerTable)
	assert.True(t, schema.HasAccountColumn("isGroup"))
	assert.True(t, schema.HasLedgerColumn("party"))
	assert.Empty(t, schema.MissingRequired())
	assert.Equal(t, []string{"remark", "voucherNo", "voucherType"}, schema.MissingOptional())
	assert.NoError(t, CheckLedger(schema))
}

func TestSchema_LowercaseTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lower.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE account (name TEXT PRIMARY KEY, type TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE accountingledgerentry (name TEXT PRIMARY KEY, date TEXT)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, schema := openLedger(t, path)
	assert.Equal(t, "account", schema.AccountTable)
	assert.Equal(t, "accountingledgerentry", schema.LedgerTable)

	err = CheckLedger(schema)
	require.ErrorIs(t, err, ErrMissingColumns)
	assert.Contains(t, err.Error(), "account, created, createdBy")
}

func TestSchema_MissingTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE Account (name TEXT)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Schema(context.Background())
	require.ErrorIs(t, err, ErrTableNotFound)
	assert.Contains(t, err.Error(), LedgerTable)
}

func TestInsertPostings_AddsPendingColumns(t *testing.T) {
	s, schema := openLedger(t, newLedger(t))
	ctx := context.Background()

	planned, add := schema.PlanOptional()
	require.Equal(t, []string{"remark", "voucherNo", "voucherType"}, add)

	// Planning alone leaves the table as it was.
	reread, err := s.Schema(ctx)
	require.NoError(t, err)
	assert.Equal(t, add, reread.MissingOptional())

	require.NoError(t, s.InsertPostings(ctx, planned, postings(t, 1, 43)))

	reread, err = s.Schema(ctx)
	require.NoError(t, err)
	assert.Empty(t, reread.MissingOptional())

	// A second batch against the fresh schema adds nothing.
	again, add := reread.PlanOptional()
	assert.Empty(t, add)
	require.NoError(t, s.InsertPostings(ctx, again, postings(t, 1, 45)))
}

func TestMaxNumericID(t *testing.T) {
	s, schema := openLedger(t, newLedger(t))

	n, ok, err := s.MaxNumericID(context.Background(), schema)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(42), n)
}

func TestMaxNumericID_NoNumericNames(t *testing.T) {
	s, schema := openLedger(t, newLedger(t, `DELETE FROM AccountingLedgerEntry WHERE name GLOB '[0-9]*'`))

	_, ok, err := s.MaxNumericID(context.Background(), schema)
	require.NoError(t, err)
	assert.False(t, ok)
	seed, err := id.Seed(0, ok, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seed)
}

func TestMaxNumericID_Exhausted(t *testing.T) {
	s, schema := openLedger(t, newLedger(t,
		`INSERT INTO AccountingLedgerEntry (name) VALUES ('99999999999999999999')`))

	_, _, err := s.MaxNumericID(context.Background(), schema)
	assert.ErrorIs(t, err, ErrNamesExhausted)
}

func TestListAccounts(t *testing.T) {
	s, schema := openLedger(t, newLedger(t))

	accts, err := s.ListAccounts(context.Background(), schema)
	require.NoError(t, err)
	require.Len(t, accts, 5)

	names := make([]string, len(accts))
	for i, a := range accts {
		names[i] = a.Name
	}
	assert.Equal(t, []string{"Assets", "Business Checking", "Current Assets", "Office Supplies", "Suspense Account"}, names)
	assert.True(t, accts[0].IsGroup)
	assert.False(t, accts[1].IsGroup)
	assert.Equal(t, "Bank", accts[1].AccountType)
	assert.Equal(t, "Current Assets", accts[1].ParentAccount)
	assert.Equal(t, "", accts[3].AccountType)
}

func TestListAccounts_TypeColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typed.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	for _, stmt := range []string{
		`CREATE TABLE Account (name TEXT PRIMARY KEY, type TEXT)`,
		`CREATE TABLE AccountingLedgerEntry (name TEXT PRIMARY KEY)`,
		`INSERT INTO Account VALUES ('Income', 'Group'), ('Sales', 'Income')`,
	} {
		_, err = db.Exec(stmt)
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	s, schema := openLedger(t, path)
	accts, err := s.ListAccounts(context.Background(), schema)
	require.NoError(t, err)
	require.Len(t, accts, 2)
	assert.True(t, accts[0].IsGroup)
	assert.False(t, accts[1].IsGroup)
}

func TestCreateAccount(t *testing.T) {
	path := newLedger(t)
	s, schema := openLedger(t, path)
	ctx := context.Background()
	now := time.Date(2025, 10, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, s.CreateAccount(ctx, schema, model.NewSuspenseClearing(), "system", now))

	var rootType, accountType, parent, created string
	var isGroup int
	err := s.db.QueryRow(`SELECT rootType, accountType, parentAccount, isGroup, created FROM Account WHERE name = ?`,
		model.SuspenseClearing).Scan(&rootType, &accountType, &parent, &isGroup, &created)
	require.NoError(t, err)
	assert.Equal(t, "Expense", rootType)
	assert.Equal(t, "Suspense", accountType)
	assert.Equal(t, "Current Assets", parent)
	assert.Equal(t, 0, isGroup)
	assert.Equal(t, "2025-10-01 08:00:00", created)

	// Columns the table lacks are not written.
	assert.False(t, schema.HasAccountColumn("parent"))

	// Names are primary keys.
	assert.Error(t, s.CreateAccount(ctx, schema, model.NewSuspenseClearing(), "system", now))
}

func TestCreateAccount_LegacyParentColumn(t *testing.T) {
	s, schema := openLedger(t, newLedger(t, `ALTER TABLE Account ADD COLUMN parent TEXT`))
	ctx := context.Background()

	require.NoError(t, s.CreateAccount(ctx, schema, model.NewSuspenseClearing(), "system", time.Now()))

	var parent, parentAccount string
	err := s.db.QueryRow(`SELECT parent, parentAccount FROM Account WHERE name = ?`,
		model.SuspenseClearing).Scan(&parent, &parentAccount)
	require.NoError(t, err)
	assert.Equal(t, "Assets", parent)
	assert.Equal(t, "Current Assets", parentAccount)
}

func TestInsertPostings(t *testing.T) {
	path := newLedger(t)
	s, schema := openLedger(t, path)
	ctx := context.Background()
	schema, _ = schema.PlanOptional()

	require.NoError(t, s.InsertPostings(ctx, schema, postings(t, 2, 43)))

	n, err := s.CountPostings(ctx, schema)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	var date, account, debit, credit, remark, vtype, vno string
	var party sql.NullString
	err = s.db.QueryRow(`SELECT date, party, account, debit, credit, remark, voucherType, voucherNo
		FROM AccountingLedgerEntry WHERE name = '44'`).Scan(&date, &party, &account, &debit, &credit, &remark, &vtype, &vno)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01", date)
	assert.False(t, party.Valid)
	assert.Equal(t, "Suspense Account", account)
	assert.Equal(t, "0.00", debit)
	assert.Equal(t, "1.00", credit)
	assert.Equal(t, "txn", remark)
	assert.Equal(t, "Bank Import", vtype)
	assert.Equal(t, "43", vno)

	maxID, ok, err := s.MaxNumericID(ctx, schema)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(46), maxID)
}

func TestInsertPostings_WithoutOptionalColumns(t *testing.T) {
	s, schema := openLedger(t, newLedger(t))
	ctx := context.Background()

	require.NoError(t, s.InsertPostings(ctx, schema, postings(t, 1, 43)))
	n, err := s.CountPostings(ctx, schema)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestInsertPostings_RollsBackOnFailure(t *testing.T) {
	// Abort on the last posting of a 10-transaction batch (names 43..62).
	path := newLedger(t, `CREATE TRIGGER fail_last BEFORE INSERT ON AccountingLedgerEntry
		WHEN NEW.name = '62' BEGIN SELECT RAISE(ABORT, 'injected failure'); END`)
	s, schema := openLedger(t, path)
	ctx := context.Background()
	planned, _ := schema.PlanOptional()

	err := s.InsertPostings(ctx, planned, postings(t, 10, 43))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inserting entry 62")
	assert.Contains(t, err.Error(), "injected failure")

	n, err := s.CountPostings(ctx, schema)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// The pending columns went with the batch.
	reread, err := s.Schema(ctx)
	require.NoError(t, err)
	assert.Equal(t, schema.LedgerColumns, reread.LedgerColumns)
}

func TestInsertPostings_MissingRequiredColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thin.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE Account (name TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE AccountingLedgerEntry (name TEXT, account TEXT)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, schema := openLedger(t, path)
	err = s.InsertPostings(context.Background(), schema, postings(t, 1, 1))
	assert.ErrorIs(t, err, ErrMissingColumns)
}
