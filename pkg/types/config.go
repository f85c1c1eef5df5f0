// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by collaborators that make
// network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// WindowMode selects how the date window is computed.
type WindowMode string

const (
	// WindowDaysBack is a rolling window of N days ending today.
	WindowDaysBack WindowMode = "days_back"

	// WindowDateRange is an explicit inclusive [start, end] range.
	WindowDateRange WindowMode = "date_range"
)

// DateWindowConfig configures the date-window filter.
type DateWindowConfig struct {
	Mode WindowMode `json:"mode" yaml:"mode" mapstructure:"mode"`

	// DaysBack is the rolling window length for days_back mode.
	DaysBack int `json:"days_back" yaml:"days_back" mapstructure:"days_back"`

	// Start and End are YYYY-MM-DD boundaries for date_range mode.
	Start string `json:"start,omitempty" yaml:"start,omitempty" mapstructure:"start"`
	End   string `json:"end,omitempty" yaml:"end,omitempty" mapstructure:"end"`
}

// CompositeWeights are the blend weights of the composite score.
type CompositeWeights struct {
	Relevance  float64 `json:"relevance" yaml:"relevance" mapstructure:"relevance"`
	Importance float64 `json:"importance" yaml:"importance" mapstructure:"importance"`
	Recency    float64 `json:"recency" yaml:"recency" mapstructure:"recency"`
}

// SelectionConfig holds settings for the scoring-and-selection pipeline.
type SelectionConfig struct {
	// Keywords are the target keywords. They drive both relevance matching
	// and the keyword buckets used for balanced selection.
	Keywords []string `json:"keywords" yaml:"keywords" mapstructure:"keywords"`

	// MaxPapers is the final quota K (default 10).
	MaxPapers int `json:"max_papers" yaml:"max_papers" mapstructure:"max_papers"`

	Window DateWindowConfig `json:"window" yaml:"window" mapstructure:"window"`

	// RelevanceFloor drops papers scoring below it (default 30).
	RelevanceFloor float64 `json:"relevance_floor" yaml:"relevance_floor" mapstructure:"relevance_floor"`

	// PopulationFraction is the share of floor survivors kept by relevance
	// rank before composite scoring (default 0.5).
	PopulationFraction float64 `json:"population_fraction" yaml:"population_fraction" mapstructure:"population_fraction"`

	// PopulationCeiling caps the population kept by PopulationFraction (default 100).
	PopulationCeiling int `json:"population_ceiling" yaml:"population_ceiling" mapstructure:"population_ceiling"`

	// CompositeFloor drops papers whose composite score is below it (default 0).
	CompositeFloor float64 `json:"composite_floor" yaml:"composite_floor" mapstructure:"composite_floor"`

	Weights CompositeWeights `json:"weights" yaml:"weights" mapstructure:"weights"`

	// Balance enables keyword-balanced quota selection (default true).
	Balance bool `json:"balance" yaml:"balance" mapstructure:"balance"`

	// Backfill fills slots left by exhausted buckets once the per-bucket
	// caps are reached.
	Backfill bool `json:"backfill" yaml:"backfill" mapstructure:"backfill"`

	// FilterExpr is an optional CEL expression over `paper` that records must
	// satisfy, e.g. `paper.categories.exists(c, c.startsWith("eess."))`.
	FilterExpr string `json:"filter_expr,omitempty" yaml:"filter_expr,omitempty" mapstructure:"filter_expr"`
}

// FetchConfig holds settings for the arXiv fetcher.
type FetchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// PerKeyword is the number of papers wanted per keyword; the query asks
	// for twice as many to leave room for filtering (default 50).
	PerKeyword int `json:"per_keyword" yaml:"per_keyword" mapstructure:"per_keyword"`

	// Concurrency bounds the number of keyword queries in flight (default 2).
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`

	// MaxRetries bounds retries on HTTP 429/503 (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// StoreDriver identifies the record store backend.
type StoreDriver string

const (
	DriverSQLite   StoreDriver = "sqlite"
	DriverPostgres StoreDriver = "postgres"
	DriverRedis    StoreDriver = "redis"
	DriverMemory   StoreDriver = "memory"
)

// BloomConfig configures the bloom-filter guard in front of the store.
type BloomConfig struct {
	Enabled           bool    `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Capacity          uint    `json:"capacity" yaml:"capacity" mapstructure:"capacity"`
	FalsePositiveRate float64 `json:"false_positive_rate" yaml:"false_positive_rate" mapstructure:"false_positive_rate"`
}

// StoreConfig holds settings for the record store.
type StoreConfig struct {
	Driver StoreDriver `json:"driver" yaml:"driver" mapstructure:"driver"`

	// DSN is a file path for sqlite, a connection string for postgres and a
	// redis:// URL for redis.
	DSN string `json:"dsn" yaml:"dsn" mapstructure:"dsn"`

	// FailClosed turns a store lookup failure during dedup into a run error
	// instead of continuing as if nothing had been seen.
	FailClosed bool `json:"fail_closed" yaml:"fail_closed" mapstructure:"fail_closed"`

	Bloom BloomConfig `json:"bloom" yaml:"bloom" mapstructure:"bloom"`
}

// AIConfig holds shared settings for calls to a chat-completion API.
type AIConfig struct {
	// Model is the model identifier (e.g. "gpt-4o-mini").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxRetries is the number of retries after the first failed call
	// (default 2, so three attempts in total).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// SummaryConfig holds settings for the summarizer.
type SummaryConfig struct {
	AIConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the chat-completion API base (default "https://api.openai.com/v1").
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// Language is the language summaries are written in (default "Japanese").
	Language string `json:"language" yaml:"language" mapstructure:"language"`

	// Timeout is the per-request timeout (default 30s).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// RequestDelay is the pause between consecutive papers (default 1s).
	RequestDelay time.Duration `json:"request_delay" yaml:"request_delay" mapstructure:"request_delay"`
}

// ReportConfig holds settings for run reports.
type ReportConfig struct {
	// Dir is where run reports are written (default "reports").
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`
}

// ScoringConfig points at the versioned scoring tables.
type ScoringConfig struct {
	// TablesFile overrides the built-in scoring tables. Empty uses the defaults.
	TablesFile string `json:"tables_file,omitempty" yaml:"tables_file,omitempty" mapstructure:"tables_file"`
}

// ScheduleConfig holds settings for repeated runs.
type ScheduleConfig struct {
	// Cron is a standard five-field cron expression (default "0 7 * * *").
	Cron string `json:"cron" yaml:"cron" mapstructure:"cron"`

	// MetricsAddr is the listen address of the /metrics endpoint. Empty
	// disables it.
	MetricsAddr string `json:"metrics_addr,omitempty" yaml:"metrics_addr,omitempty" mapstructure:"metrics_addr"`
}

// Config groups all settings of a paper-picker run.
type Config struct {
	Selection SelectionConfig `json:"selection" yaml:"selection" mapstructure:"selection"`
	Fetch     FetchConfig     `json:"fetch" yaml:"fetch" mapstructure:"fetch"`
	Store     StoreConfig     `json:"store" yaml:"store" mapstructure:"store"`
	Summary   SummaryConfig   `json:"summary" yaml:"summary" mapstructure:"summary"`
	Report    ReportConfig    `json:"report" yaml:"report" mapstructure:"report"`
	Scoring   ScoringConfig   `json:"scoring" yaml:"scoring" mapstructure:"scoring"`
	Schedule  ScheduleConfig  `json:"schedule" yaml:"schedule" mapstructure:"schedule"`
}

// DefaultConfig returns the settings used when neither the config file nor
// the environment provides a value.
func DefaultConfig() Config {
	return Config{
		Selection: SelectionConfig{
			MaxPapers:          10,
			Window:             DateWindowConfig{Mode: WindowDaysBack, DaysBack: 7},
			RelevanceFloor:     30,
			PopulationFraction: 0.5,
			PopulationCeiling:  100,
			Weights:            CompositeWeights{Relevance: 0.6, Importance: 0.3, Recency: 0.1},
			Balance:            true,
		},
		Fetch: FetchConfig{
			HTTPConfig:  HTTPConfig{Timeout: 30 * time.Second, UserAgent: "paper-picker/0.1"},
			PerKeyword:  50,
			Concurrency: 2,
			MaxRetries:  3,
		},
		Store: StoreConfig{
			Driver: DriverSQLite,
			DSN:    "data/papers.db",
			Bloom:  BloomConfig{Capacity: 100000, FalsePositiveRate: 0.01},
		},
		Summary: SummaryConfig{
			AIConfig:     AIConfig{Model: "gpt-4o-mini", MaxRetries: 2},
			BaseURL:      "https://api.openai.com/v1",
			Language:     "Japanese",
			Timeout:      30 * time.Second,
			RequestDelay: time.Second,
		},
		Report:   ReportConfig{Dir: "reports"},
		Schedule: ScheduleConfig{Cron: "0 7 * * *"},
	}
}
