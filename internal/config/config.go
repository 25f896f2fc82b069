// Package config loads the terminal configuration file.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/coppertill/till/internal/ledger"
)

// Config is the full terminal configuration. Zero values are filled in by
// Default; a missing config file is not an error.
type Config struct {
	// DBPath locates the SQLite ledger database.
	DBPath string `yaml:"db_path"`

	Pricing PricingConfig `yaml:"pricing"`
	Shifts  ShiftsConfig  `yaml:"shifts"`
	Sync    SyncConfig    `yaml:"sync"`
	Reports ReportsConfig `yaml:"reports"`
}

// PricingConfig controls the service charge and VAT applied at sale time.
// Percentages are whole numbers: 10 means 10%.
type PricingConfig struct {
	ServiceChargeEnabled bool    `yaml:"service_charge_enabled"`
	ServiceChargePercent float64 `yaml:"service_charge_percent"`
	TaxEnabled           bool    `yaml:"tax_enabled"`
	TaxPercent           float64 `yaml:"tax_percent"`
}

// Ledger converts the file representation into the pricing rules the
// order pipeline consumes.
func (p PricingConfig) Ledger() ledger.Pricing {
	return ledger.Pricing{
		ServiceChargeEnabled: p.ServiceChargeEnabled,
		ServiceChargePercent: decimal.NewFromFloat(p.ServiceChargePercent),
		TaxEnabled:           p.TaxEnabled,
		TaxPercent:           decimal.NewFromFloat(p.TaxPercent),
	}
}

// ShiftsConfig controls shift lifecycle limits.
type ShiftsConfig struct {
	// MaxPerDay caps how many shifts one calendar day may hold.
	MaxPerDay int `yaml:"max_per_day"`
}

// SyncConfig controls the remote sync outbox.
type SyncConfig struct {
	// Endpoint is the remote batch ingestion URL. Empty disables the
	// remote entirely; orders then stay queued locally.
	Endpoint string `yaml:"endpoint"`

	// Interval is the recurring sync cadence, e.g. "15m".
	Interval Duration `yaml:"interval"`

	// Auto enables timer and event triggered passes. Manual sync always
	// works.
	Auto bool `yaml:"auto"`

	// BatchLimit bounds how many orders one pass delivers.
	BatchLimit int `yaml:"batch_limit"`
}

// ReportsConfig controls derived report presentation.
type ReportsConfig struct {
	// NetCancellations makes day reports deduct reversal totals from net
	// sales. Gross figures are never reduced either way.
	NetCancellations bool `yaml:"net_cancellations"`
}

// Duration is a time.Duration that unmarshals from YAML duration strings
// like "15m" or "1h30m".
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"15m\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		DBPath: "till.db",
		Pricing: PricingConfig{
			ServiceChargeEnabled: true,
			ServiceChargePercent: 10,
			TaxEnabled:           true,
			TaxPercent:           7,
		},
		Shifts: ShiftsConfig{MaxPerDay: 3},
		Sync: SyncConfig{
			Interval:   Duration(15 * time.Minute),
			Auto:       true,
			BatchLimit: 100,
		},
	}
}

// Load reads and parses a YAML config file, layering it over Default.
// A path of "" or a missing file yields the defaults. Unknown fields are
// rejected so typos fail loudly instead of silently using a default.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func validate(c *Config) error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.Pricing.ServiceChargePercent < 0 || c.Pricing.TaxPercent < 0 {
		return fmt.Errorf("pricing percentages must not be negative")
	}
	if c.Shifts.MaxPerDay < 1 {
		return fmt.Errorf("shifts.max_per_day must be at least 1")
	}
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("sync.interval must be positive")
	}
	if c.Sync.BatchLimit < 1 {
		return fmt.Errorf("sync.batch_limit must be at least 1")
	}
	return nil
}
