// Package config loads the vacancy-stats configuration file.
//
// Load(path) reads YAML, applies defaults matching the public API limits of
// the supported job boards, then validates. Default() returns the same tree
// without reading a file. Secrets are never stored in the file: providers name
// the environment variable that holds their token (token_env).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Failure policies for a category whose collection failed.
const (
	OnErrorAbort = "abort"
	OnErrorSkip  = "skip"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultPeriodDays   = 30
	DefaultCurrency     = "RUB"
	DefaultSearchPrefix = "Программист"
	DefaultUserAgent    = "vacancy-stats/0.1.0 (vacancy-stats@example.com)"
	DefaultHTTPTimeout  = 30 * time.Second
	DefaultMaxRetries   = 2
	DefaultBackoff      = 1 * time.Second
	DefaultCacheTTL     = 1 * time.Hour
)

// DefaultCategories are the languages reported when none are configured.
var DefaultCategories = []string{
	"JavaScript",
	"Java",
	"Python",
	"C#",
	"TypeScript",
	"PHP",
	"Kotlin",
	"C++",
}

// Config is the top-level configuration.
type Config struct {
	// Categories are the search/aggregation keys, in presentation order.
	Categories []string `yaml:"categories"`

	// PeriodDays limits postings to those published in the last N days.
	PeriodDays int `yaml:"period_days"`

	// Currency is the canonical currency estimates are restricted to.
	Currency string `yaml:"currency"`

	// SearchPrefix is prepended to every category in the free-text query.
	SearchPrefix string `yaml:"search_prefix"`

	Salary SalaryConfig `yaml:"salary"`

	// OnError is the category failure policy: abort | skip.
	OnError string `yaml:"on_error"`

	Providers ProvidersConfig `yaml:"providers"`
	HTTP      HTTPConfig      `yaml:"http"`
	Redis     RedisConfig     `yaml:"redis"`
	Log       LogConfig       `yaml:"log"`
}

// SalaryConfig holds the imputation factors for one-sided ranges.
type SalaryConfig struct {
	LowerOnlyFactor float64 `yaml:"lower_only_factor"`
	UpperOnlyFactor float64 `yaml:"upper_only_factor"`
}

// ProvidersConfig holds one section per supported job board.
type ProvidersConfig struct {
	HeadHunter ProviderConfig `yaml:"headhunter"`
	SuperJob   ProviderConfig `yaml:"superjob"`
}

// ProviderConfig describes one job board.
type ProviderConfig struct {
	Enabled bool `yaml:"enabled"`

	// Title is the heading used when rendering this provider's report.
	Title string `yaml:"title"`

	BaseURL string `yaml:"base_url"`

	// Area is the provider's region id (HeadHunter area, SuperJob town).
	Area int `yaml:"area"`

	PageSize int `yaml:"page_size"`

	// MaxItems is the provider's published ceiling on reachable postings
	// per query; MaxItems/PageSize pages are requested.
	MaxItems int `yaml:"max_items"`

	InterPageDelay     time.Duration `yaml:"inter_page_delay"`
	InterCategoryDelay time.Duration `yaml:"inter_category_delay"`

	// TokenEnv names the environment variable holding the API token.
	TokenEnv string `yaml:"token_env"`

	UserAgent string `yaml:"user_agent"`
}

// Token returns the API token resolved from the environment.
// Returns empty string if TokenEnv is unset or the variable is not found.
func (p ProviderConfig) Token() string {
	if p.TokenEnv == "" {
		return ""
	}
	return os.Getenv(p.TokenEnv)
}

// HTTPConfig configures the shared HTTP client.
type HTTPConfig struct {
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries counts requests after the first one; 0 disables retries.
	MaxRetries     int           `yaml:"max_retries"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
}

// Attempts is the total number of requests made for one page.
func (h HTTPConfig) Attempts() int {
	return h.MaxRetries + 1
}

// RedisConfig enables the optional response cache and shared cooldown state.
// An empty Addr disables Redis entirely.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// LogConfig configures zerolog output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML config data on top of the defaults and validates it.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config pre-populated with default values.
func Default() *Config {
	return &Config{
		Categories:   append([]string(nil), DefaultCategories...),
		PeriodDays:   DefaultPeriodDays,
		Currency:     DefaultCurrency,
		SearchPrefix: DefaultSearchPrefix,
		Salary: SalaryConfig{
			LowerOnlyFactor: 1.2,
			UpperOnlyFactor: 0.8,
		},
		OnError: OnErrorAbort,
		Providers: ProvidersConfig{
			HeadHunter: ProviderConfig{
				Enabled:            true,
				Title:              "HeadHunter Moscow",
				BaseURL:            "https://api.hh.ru/vacancies",
				Area:               1,
				PageSize:           100,
				MaxItems:           2000,
				InterPageDelay:     1 * time.Second,
				InterCategoryDelay: 10 * time.Second,
				UserAgent:          DefaultUserAgent,
			},
			SuperJob: ProviderConfig{
				Enabled:            true,
				Title:              "SuperJob Moscow",
				BaseURL:            "https://api.superjob.ru/2.0/vacancies/",
				Area:               4,
				PageSize:           100,
				MaxItems:           500,
				InterPageDelay:     1 * time.Second,
				InterCategoryDelay: 5 * time.Second,
				TokenEnv:           "SJ_SECRET_KEY",
				UserAgent:          DefaultUserAgent,
			},
		},
		HTTP: HTTPConfig{
			Timeout:        DefaultHTTPTimeout,
			MaxRetries:     DefaultMaxRetries,
			InitialBackoff: DefaultBackoff,
		},
		Redis: RedisConfig{
			CacheTTL: DefaultCacheTTL,
		},
		Log: LogConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

// Validate checks required fields and structural constraints.
func (c *Config) Validate() error {
	if len(c.Categories) == 0 {
		return Invalid("categories", "at least one category is required")
	}
	seen := make(map[string]bool, len(c.Categories))
	for i, cat := range c.Categories {
		if strings.TrimSpace(cat) == "" {
			return Invalid("categories", "entry %d is empty", i)
		}
		if seen[cat] {
			return Invalid("categories", "duplicate entry %q", cat)
		}
		seen[cat] = true
	}
	if c.PeriodDays <= 0 {
		return Invalid("period_days", "must be positive (got %d)", c.PeriodDays)
	}
	if strings.TrimSpace(c.Currency) == "" {
		return Invalid("currency", "is required")
	}
	if c.Salary.LowerOnlyFactor <= 0 || c.Salary.UpperOnlyFactor <= 0 {
		return Invalid("salary", "factors must be positive")
	}
	switch c.OnError {
	case OnErrorAbort, OnErrorSkip:
	default:
		return Invalid("on_error", "unknown policy %q (want abort or skip)", c.OnError)
	}
	if c.HTTP.Timeout <= 0 {
		return Invalid("http.timeout", "must be positive")
	}
	if c.HTTP.MaxRetries < 0 {
		return Invalid("http.max_retries", "must not be negative (got %d)", c.HTTP.MaxRetries)
	}
	if c.Redis.CacheTTL < 0 {
		return Invalid("redis.cache_ttl", "must not be negative")
	}

	providers := []struct {
		name string
		cfg  ProviderConfig
	}{
		{"providers.headhunter", c.Providers.HeadHunter},
		{"providers.superjob", c.Providers.SuperJob},
	}
	enabled := 0
	for _, p := range providers {
		if !p.cfg.Enabled {
			continue
		}
		enabled++
		if err := p.cfg.validate(p.name); err != nil {
			return err
		}
	}
	if enabled == 0 {
		return Invalid("providers", "no provider is enabled")
	}
	return nil
}

func (p ProviderConfig) validate(name string) error {
	if p.BaseURL == "" {
		return Invalid(name+".base_url", "is required")
	}
	if p.PageSize <= 0 {
		return Invalid(name+".page_size", "must be positive (got %d)", p.PageSize)
	}
	if p.MaxItems < p.PageSize {
		return Invalid(name+".max_items", "must be >= page_size (%d < %d)", p.MaxItems, p.PageSize)
	}
	if p.InterPageDelay < 0 || p.InterCategoryDelay < 0 {
		return Invalid(name, "delays must not be negative")
	}
	return nil
}
