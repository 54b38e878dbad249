// Package config loads grandlivre.yaml, with .env and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/simonvc/grandlivre/internal/depreciation"
	"github.com/simonvc/grandlivre/internal/ledger"
	"github.com/simonvc/grandlivre/internal/lettrage"
)

const DefaultPath = "grandlivre.yaml"

// Environment variables that override the file.
const (
	EnvDB    = "GRANDLIVRE_DB"
	EnvAddr  = "GRANDLIVRE_ADDR"
	EnvSIREN = "GRANDLIVRE_SIREN"
)

// Config represents the top-level grandlivre.yaml configuration.
type Config struct {
	Company      CompanyConfig      `yaml:"company"`
	Database     DatabaseConfig     `yaml:"database"`
	Server       ServerConfig       `yaml:"server"`
	Fiscal       FiscalConfig       `yaml:"fiscal"`
	Posting      PostingConfig      `yaml:"posting"`
	Depreciation DepreciationConfig `yaml:"depreciation"`
	Lettrage     LettrageConfig     `yaml:"lettrage"`
	Scheduler    SchedulerConfig    `yaml:"scheduler"`
}

// CompanyConfig identifies the legal entity the books belong to.
type CompanyConfig struct {
	Name  string `yaml:"name"`
	SIREN string `yaml:"siren"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type FiscalConfig struct {
	YearStart string `yaml:"year_start"` // "MM-DD"
}

// PostingConfig holds the rates applied when events become entries.
type PostingConfig struct {
	TakeRate string `yaml:"take_rate"`
	VATRate  string `yaml:"vat_rate"`
}

type DepreciationConfig struct {
	Monthly   bool   `yaml:"monthly"`
	Proration string `yaml:"proration"` // none | daily
}

type LettrageConfig struct {
	Accounts      []string      `yaml:"accounts"`
	MaxGroupSize  int           `yaml:"max_group_size"`
	WindowDays    int           `yaml:"window_days"`
	Tolerance     int64         `yaml:"tolerance"`
	MaxCandidates int           `yaml:"max_candidates"`
	NodeBudget    int           `yaml:"node_budget"`
	Timeout       time.Duration `yaml:"timeout"`
}

// SchedulerConfig sets how often the batch jobs run. Zero disables a job.
type SchedulerConfig struct {
	DepreciationEvery time.Duration `yaml:"depreciation_every"`
	LettrageEvery     time.Duration `yaml:"lettrage_every"`
}

// Load reads a grandlivre.yaml file from disk. Fields absent from the file
// keep their default.
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

func Default() *Config {
	opts := lettrage.DefaultOptions()
	return &Config{
		Database: DatabaseConfig{Path: "grandlivre.db"},
		Server:   ServerConfig{Addr: ":8888"},
		Fiscal:   FiscalConfig{YearStart: "01-01"},
		Posting:  PostingConfig{TakeRate: "0.10", VATRate: "0.20"},
		Depreciation: DepreciationConfig{
			Proration: string(depreciation.ProrationNone),
		},
		Lettrage: LettrageConfig{
			Accounts:      ledger.LettrableCodes(),
			MaxGroupSize:  opts.MaxGroupSize,
			WindowDays:    opts.WindowDays,
			Tolerance:     opts.Tolerance,
			MaxCandidates: opts.MaxCandidates,
			NodeBudget:    opts.NodeBudget,
			Timeout:       10 * time.Second,
		},
		Scheduler: SchedulerConfig{
			DepreciationEvery: 24 * time.Hour,
			LettrageEvery:     time.Hour,
		},
	}
}

// Resolve loads .env into the environment, then the config file at path if
// it exists, then applies the environment overrides. A missing file yields
// the defaults.
func Resolve(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg, err = Default(), nil
	}
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDB); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(EnvSIREN); v != "" {
		c.Company.SIREN = v
	}
}

// Validate checks the values the rest of the program parses.
func (c *Config) Validate() error {
	if _, err := c.Calendar(); err != nil {
		return err
	}
	if _, err := c.PostingPolicy(); err != nil {
		return err
	}
	if _, err := c.DepreciationPolicy(); err != nil {
		return err
	}
	return nil
}

func (c *Config) Calendar() (ledger.FiscalCalendar, error) {
	return ledger.ParseFiscalStart(c.Fiscal.YearStart)
}

func (c *Config) PostingPolicy() (ledger.PostingPolicy, error) {
	take, err := decimal.NewFromString(c.Posting.TakeRate)
	if err != nil {
		return ledger.PostingPolicy{}, fmt.Errorf("%w: take_rate %q", ledger.ErrValidation, c.Posting.TakeRate)
	}
	vat, err := decimal.NewFromString(c.Posting.VATRate)
	if err != nil {
		return ledger.PostingPolicy{}, fmt.Errorf("%w: vat_rate %q", ledger.ErrValidation, c.Posting.VATRate)
	}
	if take.IsNegative() || take.GreaterThan(decimal.NewFromInt(1)) || vat.IsNegative() {
		return ledger.PostingPolicy{}, fmt.Errorf("%w: posting rates out of range", ledger.ErrValidation)
	}
	return ledger.PostingPolicy{TakeRate: take, VATRate: vat}, nil
}

func (c *Config) DepreciationPolicy() (depreciation.Policy, error) {
	cal, err := c.Calendar()
	if err != nil {
		return depreciation.Policy{}, err
	}
	p := depreciation.Proration(c.Depreciation.Proration)
	switch p {
	case "", depreciation.ProrationNone, depreciation.ProrationDaily:
	default:
		return depreciation.Policy{}, fmt.Errorf("%w: proration %q (want none or daily)", ledger.ErrValidation, p)
	}
	return depreciation.Policy{Monthly: c.Depreciation.Monthly, Proration: p, Calendar: cal}, nil
}

func (c *Config) LettrageOptions() lettrage.Options {
	return lettrage.Options{
		MaxGroupSize:  c.Lettrage.MaxGroupSize,
		WindowDays:    c.Lettrage.WindowDays,
		Tolerance:     c.Lettrage.Tolerance,
		MaxCandidates: c.Lettrage.MaxCandidates,
		NodeBudget:    c.Lettrage.NodeBudget,
	}
}

// LettrageService builds the reconciliation service the config describes.
func (c *Config) LettrageService() *lettrage.Service {
	return lettrage.NewService(c.Lettrage.Accounts, c.LettrageOptions(), c.Lettrage.Timeout)
}
