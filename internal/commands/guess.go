package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/ledgerimport/internal/config"
	"github.com/cleared-dev/ledgerimport/internal/importer"
	"github.com/cleared-dev/ledgerimport/internal/model"
)

func newGuessCommand(g *globals) *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "guess <file.csv>",
		Short: "Guess the column mapping of a CSV statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGuess(cmd, g, args[0], save)
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "store the mapping in the config file")

	return cmd
}

func runGuess(cmd *cobra.Command, g *globals, path string, save bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening statement: %w", err)
	}
	defer f.Close()

	headers, mapping, err := importer.GuessMapping(f)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "# columns: %s\n", strings.Join(headers, ", "))
	if err := mapping.Validate(); err != nil {
		fmt.Fprintf(out, "# %v\n", err)
	}

	data, err := yaml.Marshal(struct {
		CSV model.ColumnMapping `yaml:"csv"`
	}{mapping})
	if err != nil {
		return fmt.Errorf("marshaling mapping: %w", err)
	}
	if _, err := out.Write(data); err != nil {
		return err
	}

	if !save {
		return nil
	}
	if err := mapping.Validate(); err != nil {
		return fmt.Errorf("not saving: %w", err)
	}
	return saveMapping(cmd, g, mapping)
}

// saveMapping writes mapping into the config file, keeping its other settings.
// Environment and flag overrides are not persisted.
func saveMapping(cmd *cobra.Command, g *globals, mapping model.ColumnMapping) error {
	path := firstNonEmpty(g.configPath, config.FileName)
	cfg := config.Default()
	if _, err := os.Stat(path); err == nil {
		if cfg, err = config.Load(path); err != nil {
			return err
		}
	}
	cfg.CSV = mapping
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "# saved to %s\n", path)
	return nil
}
