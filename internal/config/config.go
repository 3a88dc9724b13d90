// Loads and validates the grid configuration file.

// Package config defines the rowgrid configuration, read from a YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/maruel/rowgrid/internal/rows"
	"gopkg.in/yaml.v3"
)

// Config is the whole rowgrid configuration.
type Config struct {
	Version int `yaml:"version" json:"version" jsonschema:"description=Configuration format version (1)"`
	// HTTP is the address the API listens on.
	HTTP string `yaml:"http,omitempty" json:"http,omitempty" jsonschema:"description=Address to listen on (e.g. localhost:8080)"`
	// VerifyInvariants runs the row store consistency check after every
	// mutation and logs violations.
	VerifyInvariants bool `yaml:"verify_invariants,omitempty" json:"verify_invariants,omitempty" jsonschema:"description=Check row store invariants after each mutation"`

	Source SourceConfig `yaml:"source" json:"source" jsonschema:"description=Where rows come from"`
	Fetch  FetchConfig  `yaml:"fetch" json:"fetch" jsonschema:"description=How pages are fetched"`
	View   ViewConfig   `yaml:"view" json:"view" jsonschema:"description=Initial viewport and data shaping"`
}

// SourceConfig describes the JSONL row source.
type SourceConfig struct {
	Path     string `yaml:"path" json:"path" jsonschema:"description=JSONL file holding one row per line"`
	PageSize int    `yaml:"page_size" json:"page_size" jsonschema:"description=Rows per page served by the source,minimum=1"`
	// Search keeps rows having a value whose text contains it, ignoring case.
	Search string `yaml:"search,omitempty" json:"search,omitempty" jsonschema:"description=Case-insensitive substring filter applied by the source"`
	// Sorts are applied by the source before paging.
	Sorts []rows.SortKey `yaml:"sorts,omitempty" json:"sorts,omitempty" jsonschema:"description=Sort order applied by the source before paging"`
	// Delay simulates a slow source.
	Delay time.Duration `yaml:"delay,omitempty" json:"delay,omitempty" jsonschema:"description=Artificial latency added to every page fetch"`
	// Watch reloads the grid when the file changes.
	Watch bool `yaml:"watch,omitempty" json:"watch,omitempty" jsonschema:"description=Reload rows when the file changes"`
}

// FetchConfig tunes the page loader.
type FetchConfig struct {
	Concurrency int `yaml:"concurrency" json:"concurrency" jsonschema:"description=Maximum page fetches in flight,minimum=1"`
	// RatePerSec limits page fetches per second. 0 means unlimited.
	RatePerSec float64 `yaml:"rate_per_sec,omitempty" json:"rate_per_sec,omitempty" jsonschema:"description=Page fetches per second (0 is unlimited),minimum=0"`
	Burst      int     `yaml:"burst,omitempty" json:"burst,omitempty" jsonschema:"description=Fetches allowed in a burst above the rate,minimum=0"`
	Retries    int     `yaml:"retries,omitempty" json:"retries,omitempty" jsonschema:"description=Retries after a failed fetch,minimum=0"`
	// RetryDelay is multiplied by the attempt number between retries.
	RetryDelay time.Duration `yaml:"retry_delay,omitempty" json:"retry_delay,omitempty" jsonschema:"description=Base delay between retries"`
	// PrefetchPages are loaded when the grid starts or resets.
	PrefetchPages int `yaml:"prefetch_pages,omitempty" json:"prefetch_pages,omitempty" jsonschema:"description=Pages loaded on start and after a reset,minimum=0"`
}

// ViewConfig is the initial state of the grid view.
type ViewConfig struct {
	RowHeight    float64        `yaml:"row_height" json:"row_height" jsonschema:"description=Row height in pixels,exclusiveMinimum=0"`
	VisibleCount int            `yaml:"visible_count" json:"visible_count" jsonschema:"description=Rows shown in the viewport,minimum=1"`
	Sorts        []rows.SortKey `yaml:"sorts,omitempty" json:"sorts,omitempty" jsonschema:"description=Sort applied to loaded rows"`
	GroupBy      []string       `yaml:"group_by,omitempty" json:"group_by,omitempty" jsonschema:"description=Properties to group by, outermost first"`
	// Collapsed starts groups collapsed instead of expanded.
	Collapsed bool `yaml:"collapsed,omitempty" json:"collapsed,omitempty" jsonschema:"description=Start groups collapsed"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Version: 1,
		HTTP:    "localhost:8080",
		Source: SourceConfig{
			Path:     "data/rows.jsonl",
			PageSize: 50,
		},
		Fetch: FetchConfig{
			Concurrency:   4,
			RatePerSec:    20,
			Burst:         4,
			Retries:       2,
			RetryDelay:    200 * time.Millisecond,
			PrefetchPages: 2,
		},
		View: ViewConfig{
			RowHeight:    32,
			VisibleCount: 20,
		},
	}
}

// Load reads the configuration at path on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-specified config path
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML configuration on top of the defaults and validates
// it. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	d := yaml.NewDecoder(bytes.NewReader(data))
	d.KnownFields(true)
	if err := d.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Marshal encodes the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Version != 1 {
		return fmt.Errorf("unsupported config version: %d", c.Version)
	}
	if c.Source.Path == "" {
		return errors.New("source.path is required")
	}
	if c.Source.PageSize < 1 {
		return errors.New("source.page_size must be positive")
	}
	if c.Source.Delay < 0 {
		return errors.New("source.delay must be non-negative")
	}
	if err := validateSorts("source.sorts", c.Source.Sorts); err != nil {
		return err
	}
	if c.Fetch.Concurrency < 1 {
		return errors.New("fetch.concurrency must be positive")
	}
	if c.Fetch.RatePerSec < 0 {
		return errors.New("fetch.rate_per_sec must be non-negative")
	}
	if c.Fetch.Burst < 0 {
		return errors.New("fetch.burst must be non-negative")
	}
	if c.Fetch.Retries < 0 {
		return errors.New("fetch.retries must be non-negative")
	}
	if c.Fetch.RetryDelay < 0 {
		return errors.New("fetch.retry_delay must be non-negative")
	}
	if c.Fetch.PrefetchPages < 0 {
		return errors.New("fetch.prefetch_pages must be non-negative")
	}
	if c.View.RowHeight <= 0 {
		return errors.New("view.row_height must be positive")
	}
	if c.View.VisibleCount < 1 {
		return errors.New("view.visible_count must be positive")
	}
	if err := validateSorts("view.sorts", c.View.Sorts); err != nil {
		return err
	}
	for i, f := range c.View.GroupBy {
		if f == "" {
			return fmt.Errorf("view.group_by %d: property is required", i)
		}
	}
	return nil
}

// ValidateSorts checks that every sort key names a property and a known
// direction.
func ValidateSorts(sorts []rows.SortKey) error {
	return validateSorts("sorts", sorts)
}

func validateSorts(name string, sorts []rows.SortKey) error {
	for i, s := range sorts {
		if s.Prop == "" {
			return fmt.Errorf("%s %d: prop is required", name, i)
		}
		if !s.Dir.Valid() {
			return fmt.Errorf("%s %d: invalid direction %q", name, i, s.Dir)
		}
	}
	return nil
}
