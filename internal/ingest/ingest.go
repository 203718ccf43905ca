package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cleared-dev/ledgerimport/internal/accounts"
	"github.com/cleared-dev/ledgerimport/internal/id"
	"github.com/cleared-dev/ledgerimport/internal/importer"
	"github.com/cleared-dev/ledgerimport/internal/journal"
	"github.com/cleared-dev/ledgerimport/internal/logger"
	"github.com/cleared-dev/ledgerimport/internal/model"
	"github.com/cleared-dev/ledgerimport/internal/store"
)

var (
	// ErrInvalidOptions is returned when required import options are missing or inconsistent.
	ErrInvalidOptions = errors.New("invalid import options")
	// ErrUnknownAccount is returned when the bank or suspense account is not in the ledger.
	ErrUnknownAccount = errors.New("unknown account")
	// ErrGroupAccount is returned when the bank or suspense account is a group account.
	ErrGroupAccount = errors.New("group account cannot take postings")
	// ErrUnsupportedFormat is returned when no parser handles the statement.
	ErrUnsupportedFormat = errors.New("unsupported statement format")
)

// Options configures one import run.
type Options struct {
	DBPath           string
	StatementPath    string
	Format           string // qif, ofx or csv; empty = by file extension
	BankAccount      string // empty = the ledger's first Bank account
	SuspenseAccount  string // empty = Suspense Clearing, then Suspense Account
	Mapping          model.ColumnMapping // csv only
	DryRun           bool
	FixSchema        bool
	VoucherType      string
	User             string
	DescriptionLimit int
	Now              time.Time
}

// Result summarizes an import run.
type Result struct {
	RunID           string
	Format          string
	BankAccount     string
	SuspenseAccount string
	Parsed       int
	Converted    int
	Skipped      int
	AddedColumns []string
	Postings     []model.Posting
	Written      bool
	// LedgerEntries is the ledger-entries row count after a write.
	LedgerEntries int
}

// Validate checks the options without touching the filesystem and returns
// the statement format.
func (o Options) Validate() (string, error) {
	var missing []string
	if o.DBPath == "" {
		missing = append(missing, "database")
	}
	if o.StatementPath == "" {
		missing = append(missing, "statement")
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: missing %s", ErrInvalidOptions, strings.Join(missing, ", "))
	}
	if o.BankAccount != "" && o.BankAccount == o.SuspenseAccount {
		return "", fmt.Errorf("%w: bank and suspense account are both %q", ErrInvalidOptions, o.BankAccount)
	}

	format := strings.ToLower(o.Format)
	if format == "" {
		var ok bool
		if format, ok = importer.FormatForFile(o.StatementPath); !ok {
			return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, o.StatementPath)
		}
	}
	switch format {
	case importer.FormatQIF, importer.FormatOFX:
	case importer.FormatCSV:
		if err := o.Mapping.Validate(); err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidOptions, err)
		}
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	return format, nil
}

// Run imports one statement into the ledger. The ledger is opened once and
// closed on every exit path; postings are written in a single transaction.
func Run(ctx context.Context, opts Options) (res Result, err error) {
	res.RunID = uuid.NewString()
	log := logger.FromContext(ctx).With().Str("run_id", res.RunID).Logger()
	ctx = logger.WithContext(ctx, log)

	// Validate before any I/O.
	res.Format, err = opts.Validate()
	if err != nil {
		return res, err
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	st, err := store.Open(ctx, opts.DBPath)
	if err != nil {
		return res, err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			log.Error().Err(cerr).Msg("closing ledger")
		}
	}()

	// Inspect and fix the schema.
	schema, err := st.Schema(ctx)
	if err != nil {
		return res, err
	}
	if err := store.CheckLedger(schema); err != nil {
		return res, err
	}
	// Missing optional columns are added in the write transaction.
	var planned []string
	if missing := schema.MissingOptional(); len(missing) > 0 {
		if opts.FixSchema && !opts.DryRun {
			schema, planned = schema.PlanOptional()
		} else {
			log.Warn().Strs("columns", missing).Msg("ledger lacks optional columns; they will not be written")
		}
	}

	// Resolve and check accounts before reading the statement.
	accts, err := accounts.Load(ctx, st, schema)
	if err != nil {
		return res, err
	}
	if res.BankAccount, res.SuspenseAccount, err = resolveAccounts(ctx, accts, opts); err != nil {
		return res, err
	}

	txns, err := Parse(ctx, opts.StatementPath, res.Format, opts.Mapping)
	if err != nil {
		return res, err
	}
	res.Parsed = len(txns)

	maxID, ok, err := st.MaxNumericID(ctx, schema)
	if err != nil {
		return res, err
	}

	seed, err := id.Seed(maxID, ok, 2*len(txns))
	if err != nil {
		return res, err
	}

	posted := journal.Post(ctx, txns, journal.PostParams{
		BankAccount:      res.BankAccount,
		SuspenseAccount:  res.SuspenseAccount,
		IDs:              id.NewAllocator(seed),
		VoucherType:      opts.VoucherType,
		User:             opts.User,
		DescriptionLimit: opts.DescriptionLimit,
		Now:              opts.Now,
	})
	res.Postings = posted.Postings
	res.Converted = posted.Converted
	res.Skipped = posted.Skipped

	if errs := journal.ValidatePostings(res.Postings, accts); len(errs) > 0 {
		for _, e := range errs {
			log.Error().Int("invariant", e.Invariant).Str("entry", e.EntryID).Msg(e.Description)
		}
		return res, fmt.Errorf("validating postings: %w", errs[0])
	}

	if len(res.Postings) == 0 {
		log.Warn().Str("statement", opts.StatementPath).Msg("no transactions to import")
		return res, nil
	}
	if opts.DryRun {
		log.Info().Int("converted", res.Converted).Int("skipped", res.Skipped).Msg("dry run; ledger not modified")
		return res, nil
	}

	if err := st.InsertPostings(ctx, schema, res.Postings); err != nil {
		return res, err
	}
	res.Written = true
	res.AddedColumns = planned

	if res.LedgerEntries, err = st.CountPostings(ctx, schema); err != nil {
		return res, err
	}

	log.Info().
		Str("format", res.Format).
		Int("parsed", res.Parsed).
		Int("converted", res.Converted).
		Int("skipped", res.Skipped).
		Str("first", res.Postings[0].ID).
		Str("last", res.Postings[len(res.Postings)-1].ID).
		Int("entries", res.LedgerEntries).
		Msg("import complete")
	return res, nil
}

// resolveAccounts fills in default bank and suspense accounts and checks that
// both can take postings.
func resolveAccounts(ctx context.Context, accts *accounts.Service, opts Options) (string, string, error) {
	log := logger.FromContext(ctx)
	bank, suspense := opts.BankAccount, opts.SuspenseAccount
	if bank == "" {
		var ok bool
		if bank, ok = accts.DefaultBank(); !ok {
			return "", "", fmt.Errorf("%w: no bank account given and the ledger has no Bank account", ErrInvalidOptions)
		}
		log.Info().Str("account", bank).Msg("using default bank account")
	}
	if suspense == "" {
		var ok bool
		if suspense, ok = accts.DefaultSuspense(); !ok {
			return "", "", fmt.Errorf("%w: no suspense account given and the ledger has none", ErrInvalidOptions)
		}
		log.Info().Str("account", suspense).Msg("using default suspense account")
	}
	if bank == suspense {
		return "", "", fmt.Errorf("%w: bank and suspense account are both %q", ErrInvalidOptions, bank)
	}

	for _, name := range []string{bank, suspense} {
		if _, ok := accts.Get(name); !ok {
			return "", "", fmt.Errorf("%w: %q", ErrUnknownAccount, name)
		}
		if !accts.IsPostable(name) {
			return "", "", fmt.Errorf("%w: %q", ErrGroupAccount, name)
		}
	}
	return bank, suspense, nil
}

// Parse reads a statement file into canonical transactions without touching a
// ledger. An empty format is taken from the file extension.
func Parse(ctx context.Context, path, format string, mapping model.ColumnMapping) ([]model.Transaction, error) {
	registry := importer.DefaultRegistry(mapping)
	var parser importer.Parser
	if format == "" {
		parser = registry.ForFile(path)
	} else {
		parser = registry.Get(format)
	}
	if parser == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, firstNonEmpty(format, path))
	}
	return parseStatement(ctx, path, parser)
}

func parseStatement(ctx context.Context, path string, parser importer.Parser) ([]model.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening statement: %w", err)
	}
	defer f.Close()

	txns, err := parser.Parse(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s statement %s: %w", parser.Format(), path, err)
	}
	log := logger.FromContext(ctx)
	log.Debug().Str("format", parser.Format()).Int("transactions", len(txns)).Msg("statement parsed")
	return txns, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
