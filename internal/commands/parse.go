package commands

import (
	"encoding/csv"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledgerimport/internal/ingest"
)

func newParseCommand(g *globals) *cobra.Command {
	var (
		format  string
		mapping mappingFlags
	)

	cmd := &cobra.Command{
		Use:   "parse <statement>",
		Short: "Print the transactions read from a statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, g, args[0], format, &mapping)
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "statement format: qif, ofx or csv (default: by extension)")
	mapping.register(cmd)

	return cmd
}

func runParse(cmd *cobra.Command, g *globals, path, format string, mapping *mappingFlags) error {
	ctx := cmd.Context()
	m, err := mapping.resolve(ctx, g, path, format)
	if err != nil {
		return err
	}
	txns, err := ingest.Parse(ctx, path, format, m)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(cmd.OutOrStdout())
	if err := cw.Write([]string{"date", "description", "amount"}); err != nil {
		return err
	}
	for _, t := range txns {
		if err := cw.Write([]string{t.Date.Format("2006-01-02"), t.Description, t.Amount.StringFixed(2)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
