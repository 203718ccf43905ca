package commands

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledgerimport/internal/buildinfo"
	"github.com/cleared-dev/ledgerimport/internal/config"
	"github.com/cleared-dev/ledgerimport/internal/logger"
)

// globals holds state shared by all subcommands.
type globals struct {
	configPath string
	envFile    string
	logLevel   string
	cfg        *config.Config
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:     "ledgerimport",
		Short:   "Import bank statements into a Frappe Books ledger",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.load(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (default ./"+config.FileName+" if present)")
	rootCmd.PersistentFlags().StringVar(&g.envFile, "env-file", ".env", "dotenv file with LEDGERIMPORT_* overrides")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newImportCommand(g))
	rootCmd.AddCommand(newGuessCommand(g))
	rootCmd.AddCommand(newParseCommand(g))
	rootCmd.AddCommand(newAccountsCommand(g))
	rootCmd.AddCommand(newImportsCommand(g))

	return rootCmd
}

// load resolves config (file, then env, then flags) and installs the logger.
func (g *globals) load(cmd *cobra.Command) error {
	path := g.configPath
	if path == "" {
		if _, err := os.Stat(config.FileName); err == nil {
			path = config.FileName
		}
	}

	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return err
		}
	}
	if err := config.ApplyEnv(cfg, g.envFile); err != nil {
		return err
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	g.cfg = cfg

	log := logger.New(cfg.LogLevel)
	cmd.SetContext(logger.WithContext(cmd.Context(), log))
	return nil
}

// database returns the ledger path from the flag or config.
func (g *globals) database(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if g.cfg.Database != "" {
		return g.cfg.Database, nil
	}
	return "", errors.New("no database: pass --db or set database in " + config.FileName)
}
