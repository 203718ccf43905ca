package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cleared-dev/ledgerimport/internal/journal"
	"github.com/cleared-dev/ledgerimport/internal/logger"
	"github.com/cleared-dev/ledgerimport/internal/model"
)

var (
	// ErrTableNotFound is returned when the accounts or ledger-entries table is absent.
	ErrTableNotFound = errors.New("table not found")
	// ErrMissingColumns is returned when the ledger-entries table lacks a required column.
	ErrMissingColumns = errors.New("missing required columns")
	// ErrNamesExhausted is returned when the ledger's largest numeric entry
	// name leaves no room for new names.
	ErrNamesExhausted = errors.New("numeric entry names exhausted")
)

// Table names as Frappe Books creates them. Lookup is case-insensitive.
const (
	AccountTable = "Account"
	LedgerTable  = "AccountingLedgerEntry"
)

const stampFormat = "2006-01-02 15:04:05"

// Store is a Frappe Books SQLite ledger. A Store is owned by one import run.
type Store struct {
	db *sql.DB
}

// Open connects to an existing ledger file.
func Open(ctx context.Context, path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening ledger %s: %w", path, err)
	}
	// A single connection keeps the write batch on one transaction.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to ledger %s: %w", path, err)
	}

	log := logger.FromContext(ctx)
	log.Debug().Str("path", path).Msg("ledger opened")
	return &Store{db: db}, nil
}

// Close releases the connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Schema discovers both tables and their columns.
func (s *Store) Schema(ctx context.Context) (model.LedgerSchema, error) {
	var schema model.LedgerSchema
	var err error

	if schema.AccountTable, err = s.findTable(ctx, AccountTable); err != nil {
		return schema, err
	}
	if schema.LedgerTable, err = s.findTable(ctx, LedgerTable); err != nil {
		return schema, err
	}
	if schema.AccountColumns, err = s.columns(ctx, schema.AccountTable); err != nil {
		return schema, err
	}
	if schema.LedgerColumns, err = s.columns(ctx, schema.LedgerTable); err != nil {
		return schema, err
	}
	return schema, nil
}

// CheckLedger reports ErrMissingColumns if the ledger-entries table cannot take a posting.
func CheckLedger(schema model.LedgerSchema) error {
	if missing := schema.MissingRequired(); len(missing) > 0 {
		return fmt.Errorf("%w in %s: %s", ErrMissingColumns, schema.LedgerTable, strings.Join(missing, ", "))
	}
	return nil
}

func (s *Store) findTable(ctx context.Context, name string) (string, error) {
	var found string
	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ? COLLATE NOCASE`, name).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("looking up table %s: %w", name, err)
	}
	return found, nil
}

func (s *Store) columns(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quote(table)))
	if err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid     int
			name    string
			typ     string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("reading columns of %s: %w", table, err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

// MaxNumericID returns the largest numeric entry name in the ledger.
// ok is false when no entry has a numeric name.
func (s *Store) MaxNumericID(ctx context.Context, schema model.LedgerSchema) (int64, bool, error) {
	var n sql.NullInt64
	q := fmt.Sprintf("SELECT MAX(CAST(name AS INTEGER)) FROM %s WHERE name GLOB '[0-9]*'", quote(schema.LedgerTable))
	if err := s.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, false, fmt.Errorf("reading max entry name: %w", err)
	}
	// CAST clamps names too large for an integer to MaxInt64.
	if n.Valid && n.Int64 == math.MaxInt64 {
		return 0, false, fmt.Errorf("%w in %s", ErrNamesExhausted, schema.LedgerTable)
	}
	return n.Int64, n.Valid, nil
}

// CountPostings returns the number of rows in the ledger-entries table.
func (s *Store) CountPostings(ctx context.Context, schema model.LedgerSchema) (int, error) {
	var n int
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s", quote(schema.LedgerTable))
	if err := s.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting ledger entries: %w", err)
	}
	return n, nil
}

// ListAccounts returns every account sorted by name. Group accounts are
// flagged from the isGroup column, else from type = 'Group'.
func (s *Store) ListAccounts(ctx context.Context, schema model.LedgerSchema) ([]model.Account, error) {
	group := "0"
	switch {
	case schema.HasAccountColumn("isGroup"):
		group = "COALESCE(isGroup, 0)"
	case schema.HasAccountColumn("type"):
		group = "CASE WHEN type = 'Group' THEN 1 ELSE 0 END"
	}
	q := fmt.Sprintf("SELECT name, %s, %s, %s, %s FROM %s ORDER BY name",
		group,
		optionalText(schema, "rootType"),
		optionalText(schema, "accountType"),
		optionalText(schema, "parentAccount"),
		quote(schema.AccountTable))

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var accts []model.Account
	for rows.Next() {
		var a model.Account
		var isGroup int
		if err := rows.Scan(&a.Name, &isGroup, &a.RootType, &a.AccountType, &a.ParentAccount); err != nil {
			return nil, fmt.Errorf("listing accounts: %w", err)
		}
		a.IsGroup = isGroup != 0
		accts = append(accts, a)
	}
	return accts, rows.Err()
}

func optionalText(schema model.LedgerSchema, col string) string {
	if schema.HasAccountColumn(col) {
		return fmt.Sprintf("COALESCE(%s, '')", quote(col))
	}
	return "''"
}

// CreateAccount inserts a into the accounts table, filling whichever
// bookkeeping columns the table has.
func (s *Store) CreateAccount(ctx context.Context, schema model.LedgerSchema, a model.Account, user string, now time.Time) error {
	stamp := now.Format(stampFormat)
	values := []struct {
		col string
		val any
	}{
		{"isGroup", boolInt(a.IsGroup)},
		{"rootType", a.RootType},
		{"type", a.RootType},
		{"accountType", a.AccountType},
		{"parentAccount", a.ParentAccount},
		{"parent", a.Parent},
		{"createdBy", user},
		{"modifiedBy", user},
		{"created", stamp},
		{"modified", stamp},
		{"lft", 0},
		{"rgt", 0},
	}

	cols := []string{"name"}
	args := []any{a.Name}
	for _, v := range values {
		if !schema.HasAccountColumn(v.col) {
			continue
		}
		if str, ok := v.val.(string); ok && str == "" {
			continue
		}
		cols = append(cols, v.col)
		args = append(args, v.val)
	}

	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quote(schema.AccountTable), quoteAll(cols), placeholders(len(cols)))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("creating account %q: %w", a.Name, err)
	}
	log := logger.FromContext(ctx)
	log.Info().Str("account", a.Name).Msg("account created")
	return nil
}

// InsertPostings writes postings in a single transaction, first adding the
// schema's pending columns. On any error the batch and the added columns are
// rolled back and the ledger is left unchanged.
func (s *Store) InsertPostings(ctx context.Context, schema model.LedgerSchema, postings []model.Posting) (err error) {
	if err := CheckLedger(schema); err != nil {
		return err
	}
	if len(postings) == 0 {
		return nil
	}

	cols := schema.InsertColumns()
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quote(schema.LedgerTable), quoteAll(cols), placeholders(len(cols)))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning write: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log := logger.FromContext(ctx)
				log.Error().Err(rbErr).Msg("rollback failed")
			}
		}
	}()

	for _, c := range schema.Pending {
		alter := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s TEXT", quote(schema.LedgerTable), quote(c))
		if _, err = tx.ExecContext(ctx, alter); err != nil {
			return fmt.Errorf("adding column %s: %w", c, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range journal.Rows(postings, cols) {
		if _, err = stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("inserting entry %s: %w", postings[i].ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing write: %w", err)
	}
	log := logger.FromContext(ctx)
	for _, c := range schema.Pending {
		log.Info().Str("table", schema.LedgerTable).Str("column", c).Msg("added ledger column")
	}
	log.Info().Int("rows", len(postings)).Str("table", schema.LedgerTable).Msg("postings written")
	return nil
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func quoteAll(idents []string) string {
	q := make([]string, len(idents))
	for i, id := range idents {
		q[i] = quote(id)
	}
	return strings.Join(q, ", ")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
