package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledgerimport/internal/importer"
	"github.com/cleared-dev/ledgerimport/internal/importlog"
	"github.com/cleared-dev/ledgerimport/internal/ingest"
	"github.com/cleared-dev/ledgerimport/internal/journal"
	"github.com/cleared-dev/ledgerimport/internal/logger"
	"github.com/cleared-dev/ledgerimport/internal/model"
)

// mappingFlags are the --date/--description/--amount/--debit/--credit flags.
type mappingFlags struct {
	model.ColumnMapping
}

func (f *mappingFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Date, "date", "", "CSV column holding the date")
	cmd.Flags().StringVar(&f.Description, "description", "", "CSV column holding the description")
	cmd.Flags().StringVar(&f.Amount, "amount", "", "CSV column holding a signed amount")
	cmd.Flags().StringVar(&f.Debit, "debit", "", "CSV column holding money out")
	cmd.Flags().StringVar(&f.Credit, "credit", "", "CSV column holding money in")
}

// resolve picks the mapping: flags, then config, then a guess from the file header.
func (f *mappingFlags) resolve(ctx context.Context, g *globals, path, format string) (model.ColumnMapping, error) {
	format = strings.ToLower(format)
	if format == "" {
		format, _ = importer.FormatForFile(path)
	}
	if format != importer.FormatCSV {
		return model.ColumnMapping{}, nil
	}
	if !f.IsZero() {
		return f.ColumnMapping, nil
	}
	if !g.cfg.CSV.IsZero() {
		return g.cfg.CSV, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return model.ColumnMapping{}, fmt.Errorf("opening statement: %w", err)
	}
	defer file.Close()

	_, guessed, err := importer.GuessMapping(file)
	if err != nil {
		return model.ColumnMapping{}, err
	}
	log := logger.FromContext(ctx)
	log.Info().
		Str("date", guessed.Date).
		Str("description", guessed.Description).
		Str("amount", guessed.Amount).
		Str("debit", guessed.Debit).
		Str("credit", guessed.Credit).
		Msg("using guessed column mapping")
	return guessed, nil
}

func newImportCommand(g *globals) *cobra.Command {
	var (
		db, bank, suspense, format string
		dryRun                     bool
		mapping                    mappingFlags
	)

	cmd := &cobra.Command{
		Use:   "import <statement>",
		Short: "Import a QIF, OFX or CSV statement into the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := g.database(db)
			if err != nil {
				return err
			}
			opts := ingest.Options{
				DBPath:           path,
				StatementPath:    args[0],
				Format:           format,
				BankAccount:      firstNonEmpty(bank, g.cfg.BankAccount),
				SuspenseAccount:  firstNonEmpty(suspense, g.cfg.SuspenseAccount),
				DryRun:           dryRun,
				FixSchema:        g.cfg.FixSchema,
				VoucherType:      g.cfg.VoucherType,
				User:             g.cfg.User,
				DescriptionLimit: g.cfg.DescriptionLimit,
			}
			return runImport(cmd, g, opts, &mapping)
		},
	}

	cmd.Flags().StringVar(&db, "db", "", "Frappe Books database file")
	cmd.Flags().StringVar(&bank, "bank", "", "bank or loan account being reconciled (default: the first Bank account)")
	cmd.Flags().StringVar(&suspense, "suspense", "", "clearing account (default: Suspense Clearing, then Suspense Account)")
	cmd.Flags().StringVar(&format, "format", "", "statement format: qif, ofx or csv (default: by extension)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print postings as CSV without writing")
	mapping.register(cmd)

	return cmd
}

func runImport(cmd *cobra.Command, g *globals, opts ingest.Options, mapping *mappingFlags) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	opts.Now = time.Now()

	var err error
	if opts.Mapping, err = mapping.resolve(ctx, g, opts.StatementPath, opts.Format); err != nil {
		return err
	}

	res, err := ingest.Run(ctx, opts)
	if err != nil {
		return err
	}

	if opts.DryRun {
		return journal.WritePostings(out, res.Postings)
	}
	if !res.Written {
		fmt.Fprintf(out, "No transactions imported from %s (%d skipped)\n", opts.StatementPath, res.Skipped)
		return nil
	}
	first, last := res.Postings[0].ID, res.Postings[len(res.Postings)-1].ID
	logPath := firstNonEmpty(g.cfg.ImportLog, importlog.PathFor(opts.DBPath))
	entry := importlog.Entry{
		Timestamp: opts.Now,
		RunID:     res.RunID,
		Statement: opts.StatementPath,
		Format:    res.Format,
		Converted: res.Converted,
		Skipped:   res.Skipped,
		FirstID:   first,
		LastID:    last,
	}
	if err := importlog.Append(logPath, entry); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("path", logPath).Msg("failed to write import log")
	}

	fmt.Fprintf(out, "Imported %d transactions from %s (%d postings, %s-%s); skipped %d\n",
		res.Converted, opts.StatementPath, len(res.Postings), first, last, res.Skipped)
	fmt.Fprintf(out, "Bank %q, suspense %q; ledger now holds %d entries\n",
		res.BankAccount, res.SuspenseAccount, res.LedgerEntries)
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
