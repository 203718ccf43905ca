package commands

import (
	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledgerimport/internal/importlog"
)

func newImportsCommand(g *globals) *cobra.Command {
	var db string
	var last int

	cmd := &cobra.Command{
		Use:   "imports",
		Short: "Show the import history of a ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := g.database(db)
			if err != nil {
				return err
			}
			entries, err := importlog.Read(firstNonEmpty(g.cfg.ImportLog, importlog.PathFor(path)))
			if err != nil {
				return err
			}
			if last > 0 && len(entries) > last {
				entries = entries[len(entries)-last:]
			}
			return importlog.Write(cmd.OutOrStdout(), entries)
		},
	}

	cmd.Flags().StringVar(&db, "db", "", "Frappe Books database file")
	cmd.Flags().IntVar(&last, "last", 0, "show only the most recent N imports")

	return cmd
}
