package stats

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/vacancy-stats/pkg/config"
	"github.com/Sternrassler/vacancy-stats/pkg/logging"
	"github.com/Sternrassler/vacancy-stats/pkg/pagination"
	"github.com/Sternrassler/vacancy-stats/pkg/provider"
	"github.com/Sternrassler/vacancy-stats/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for statistics runs.
var (
	postingsFoundTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vacancy_postings_found_total",
		Help: "Total postings seen by provider",
	}, []string{"provider"})

	postingsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vacancy_postings_processed_total",
		Help: "Total postings with an estimable salary by provider",
	}, []string{"provider"})

	categoryFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vacancy_category_failures_total",
		Help: "Total categories whose collection failed by provider",
	}, []string{"provider"})

	categoryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vacancy_category_duration_seconds",
		Help:    "Time to collect one category by provider",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
	}, []string{"provider"})

	averageSalary = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vacancy_average_salary",
		Help: "Mean estimated salary by provider and category",
	}, []string{"provider", "category"})
)

// FailurePolicy decides what a category failure does to the run.
// The zero value is invalid so the choice is always explicit.
type FailurePolicy int

const (
	// FailAbort stops the run at the first failed category.
	FailAbort FailurePolicy = iota + 1

	// FailSkip records a placeholder for the failed category and continues.
	FailSkip
)

// String implements fmt.Stringer.
func (p FailurePolicy) String() string {
	switch p {
	case FailAbort:
		return config.OnErrorAbort
	case FailSkip:
		return config.OnErrorSkip
	default:
		return fmt.Sprintf("FailurePolicy(%d)", int(p))
	}
}

// ParseFailurePolicy maps the on_error setting to a policy.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case config.OnErrorAbort:
		return FailAbort, nil
	case config.OnErrorSkip:
		return FailSkip, nil
	default:
		return 0, config.Invalid("on_error", "unknown policy %q (want abort or skip)", s)
	}
}

// Progress reports a finished category.
type Progress struct {
	Provider string
	Category string

	// Index is 1-based; Total is the number of categories in the run.
	Index int
	Total int

	Stats CategoryStatistics
}

// ProgressFunc receives progress updates. It runs on the engine's goroutine.
type ProgressFunc func(Progress)

// Collector collects the pages of one category. *pagination.Collector implements it.
type Collector interface {
	Collect(ctx context.Context, adapter provider.Adapter, category string, periodDays int) ([]pagination.PageResult, error)
}

// EngineConfig holds engine configuration.
type EngineConfig struct {
	OnError FailurePolicy

	// Progress is optional.
	Progress ProgressFunc
}

// Engine runs every category of one provider in order.
type Engine struct {
	collector Collector
	pacer     *ratelimit.Pacer
	config    EngineConfig
	logger    zerolog.Logger
	now       func() time.Time
}

// NewEngine creates an engine. A nil pacer sleeps on the wall clock.
func NewEngine(collector Collector, pacer *ratelimit.Pacer, cfg EngineConfig) (*Engine, error) {
	if collector == nil {
		return nil, fmt.Errorf("collector is required")
	}
	switch cfg.OnError {
	case FailAbort, FailSkip:
	default:
		return nil, config.Invalid("on_error", "failure policy must be set explicitly (got %s)", cfg.OnError)
	}

	logger := logging.NewLogger("engine")
	if pacer == nil {
		pacer = ratelimit.NewPacer(nil, logger)
	}

	return &Engine{
		collector: collector,
		pacer:     pacer,
		config:    cfg,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Run collects and aggregates each category in order, pausing the adapter's
// inter-category delay between categories. The returned report has one
// entry per category. Under FailAbort the first failure is returned with a
// nil report; under FailSkip the failed category gets a placeholder.
func (e *Engine) Run(ctx context.Context, adapter provider.Adapter, categories []string, periodDays int) (*Report, error) {
	if err := validateRun(adapter, categories, periodDays); err != nil {
		return nil, err
	}

	name := adapter.Name()
	logger := logging.ForProvider(e.logger, name)
	delay := adapter.Delays().InterCategory

	report := &Report{
		Provider:   name,
		Categories: append([]string(nil), categories...),
		Stats:      make(map[string]CategoryStatistics, len(categories)),
		StartedAt:  e.now(),
	}

	logger.Info().
		Int("categories", len(categories)).
		Int("period_days", periodDays).
		Str("on_error", e.config.OnError.String()).
		Msg("Starting provider run")

	for i, category := range categories {
		start := time.Now()
		pages, err := e.collector.Collect(ctx, adapter, category, periodDays)
		categoryDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

		var stats CategoryStatistics
		if err != nil {
			categoryFailuresTotal.WithLabelValues(name).Inc()
			if e.config.OnError == FailAbort {
				logger.Error().
					Err(err).
					Str("category", category).
					Msg("Category failed - aborting run")
				return nil, fmt.Errorf("run %s: %w", name, err)
			}
			logger.Warn().
				Err(err).
				Str("category", category).
				Msg("Category failed - skipping")
			stats = CategoryStatistics{Err: err}
		} else {
			stats = Aggregate(pages)
			postingsFoundTotal.WithLabelValues(name).Add(float64(stats.Found))
			postingsProcessedTotal.WithLabelValues(name).Add(float64(stats.Processed))
			if stats.AverageSalary != nil {
				averageSalary.WithLabelValues(name, category).Set(*stats.AverageSalary)
			}

			event := logger.Info().
				Str("category", category).
				Int("found", stats.Found).
				Int("processed", stats.Processed)
			if stats.AverageSalary != nil {
				event = event.Float64("average_salary", *stats.AverageSalary)
			}
			event.Msg("Category complete")
		}

		report.Stats[category] = stats

		if e.config.Progress != nil {
			e.config.Progress(Progress{
				Provider: name,
				Category: category,
				Index:    i + 1,
				Total:    len(categories),
				Stats:    stats,
			})
		}

		if i < len(categories)-1 {
			if err := e.pacer.Pause(ctx, name, ratelimit.PauseInterCategory, delay); err != nil {
				logger.Error().Err(err).Msg("Run interrupted between categories")
				return nil, fmt.Errorf("run %s: %w", name, err)
			}
		}
	}

	report.FinishedAt = e.now()

	logger.Info().
		Int("categories", len(categories)).
		Int("failed", len(report.Failed())).
		Dur("duration", report.Duration()).
		Msg("Provider run complete")

	return report, nil
}

func validateRun(adapter provider.Adapter, categories []string, periodDays int) error {
	if adapter == nil {
		return config.Invalid("provider", "adapter is required")
	}
	if len(categories) == 0 {
		return config.Invalid("categories", "at least one category is required")
	}
	seen := make(map[string]bool, len(categories))
	for i, c := range categories {
		if strings.TrimSpace(c) == "" {
			return config.Invalid("categories", "entry %d is empty", i)
		}
		if seen[c] {
			return config.Invalid("categories", "duplicate category %q", c)
		}
		seen[c] = true
	}
	if periodDays <= 0 {
		return config.Invalid("period_days", "must be positive (got %d)", periodDays)
	}
	return nil
}
