package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/ledgerimport/internal/model"
)

// FileName is the conventional config file name.
const FileName = "ledgerimport.yaml"

// Environment variables that override config values.
const (
	EnvDatabase        = "LEDGERIMPORT_DATABASE"
	EnvBankAccount     = "LEDGERIMPORT_BANK_ACCOUNT"
	EnvSuspenseAccount = "LEDGERIMPORT_SUSPENSE_ACCOUNT"
	EnvLogLevel        = "LEDGERIMPORT_LOG_LEVEL"
)

// Config represents the top-level ledgerimport.yaml configuration.
type Config struct {
	Database         string              `yaml:"database"`
	BankAccount      string              `yaml:"bank_account,omitempty"`
	SuspenseAccount  string              `yaml:"suspense_account,omitempty"`
	VoucherType      string              `yaml:"voucher_type"`
	User             string              `yaml:"user"`
	DescriptionLimit int                 `yaml:"description_limit"`
	FixSchema        bool                `yaml:"fix_schema"`
	LogLevel         string              `yaml:"log_level"`
	ImportLog        string              `yaml:"import_log,omitempty"` // default <database>.imports.csv
	CSV              model.ColumnMapping `yaml:"csv,omitempty"`
}

// Load reads a ledgerimport.yaml file from disk. Keys absent from the file
// keep their Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with the stock posting defaults.
func Default() *Config {
	return &Config{
		VoucherType:      "Bank Import",
		User:             "system",
		DescriptionLimit: 280,
		FixSchema:        true,
		LogLevel:         "info",
	}
}

// ApplyEnv overrides cfg from LEDGERIMPORT_* variables. Values already in the
// process environment win over those in envFile; a missing envFile is ignored.
func ApplyEnv(cfg *Config, envFile string) error {
	fileVals := map[string]string{}
	if envFile != "" {
		vals, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			fileVals = vals
		case !errors.Is(err, os.ErrNotExist):
			return fmt.Errorf("reading %s: %w", envFile, err)
		}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v, true
		}
		v, ok := fileVals[key]
		return v, ok && v != ""
	}

	for key, dst := range map[string]*string{
		EnvDatabase:        &cfg.Database,
		EnvBankAccount:     &cfg.BankAccount,
		EnvSuspenseAccount: &cfg.SuspenseAccount,
		EnvLogLevel:        &cfg.LogLevel,
	} {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	return nil
}
