package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/vacancy-stats/pkg/client"
	"github.com/Sternrassler/vacancy-stats/pkg/logging"
	"github.com/Sternrassler/vacancy-stats/pkg/provider"
	"github.com/Sternrassler/vacancy-stats/pkg/ratelimit"
	"github.com/Sternrassler/vacancy-stats/pkg/salary"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var pagesCollectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "vacancy_pages_collected_total",
	Help: "Total result pages collected by provider",
}, []string{"provider"})

// Getter is the HTTP capability the collector needs. *client.Client implements it.
type Getter interface {
	Get(ctx context.Context, req client.Request) (*client.Response, error)
}

// Estimator turns a salary range into a single value. salary.Estimator implements it.
type Estimator interface {
	Estimate(r salary.Range) (float64, bool)
}

// Config holds collector configuration.
type Config struct {
	// PageTimeout bounds one page including retries and cooldown waits.
	// Zero disables the bound.
	PageTimeout time.Duration
}

// DefaultConfig returns the default collector configuration.
func DefaultConfig() Config {
	return Config{
		PageTimeout: 5 * time.Minute,
	}
}

// PageResult is what one page contributes to a category.
type PageResult struct {
	// Page is the zero-based page number sent to the provider.
	Page int

	// ItemsCount is the number of postings on the page, estimable or not.
	ItemsCount int

	// Estimates holds the present salary estimates, in posting order.
	Estimates []float64
}

// CollectionError reports the page on which a category's collection failed.
type CollectionError struct {
	Provider string
	Category string

	// Page is the zero-based page that failed; Pages is the number planned.
	Page  int
	Pages int

	Err error
}

// Error implements the error interface.
func (e *CollectionError) Error() string {
	return fmt.Sprintf("collect %s %q: page %d of %d: %v", e.Provider, e.Category, e.Page, e.Pages, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *CollectionError) Unwrap() error {
	return e.Err
}

// Collector walks every page of one category, one page at a time.
type Collector struct {
	getter    Getter
	pacer     *ratelimit.Pacer
	estimator Estimator
	config    Config
	logger    zerolog.Logger
}

// NewCollector creates a collector. A nil pacer sleeps on the wall clock.
func NewCollector(getter Getter, pacer *ratelimit.Pacer, estimator Estimator, config Config) *Collector {
	logger := logging.NewLogger("collector")
	if pacer == nil {
		pacer = ratelimit.NewPacer(nil, logger)
	}
	return &Collector{
		getter:    getter,
		pacer:     pacer,
		estimator: estimator,
		config:    config,
		logger:    logger,
	}
}

// Collect fetches pages 0..MaxPages-1 of category in order and returns one
// PageResult per page. Empty pages do not end the walk; the provider's own
// totals are ignored. The first failure aborts the category with a
// *CollectionError and no partial results.
func (c *Collector) Collect(ctx context.Context, adapter provider.Adapter, category string, periodDays int) ([]PageResult, error) {
	name := adapter.Name()
	pages := adapter.Pagination().MaxPages
	delay := adapter.Delays().InterPage
	logger := logging.ForProvider(c.logger, name).With().Str("category", category).Logger()

	fail := func(page int, err error) ([]PageResult, error) {
		logger.Error().
			Err(err).
			Int("page", page).
			Int("pages", pages).
			Msg("Category collection failed")
		return nil, &CollectionError{
			Provider: name,
			Category: category,
			Page:     page,
			Pages:    pages,
			Err:      err,
		}
	}

	start := time.Now()
	results := make([]PageResult, 0, pages)

	for page := 0; page < pages; page++ {
		result, err := c.collectPage(ctx, adapter, category, page, periodDays)
		if err != nil {
			return fail(page, err)
		}
		results = append(results, result)
		pagesCollectedTotal.WithLabelValues(name).Inc()

		logger.Debug().
			Int("page", page).
			Int("items", result.ItemsCount).
			Int("estimates", len(result.Estimates)).
			Msg("Page collected")

		if page < pages-1 {
			if err := c.pacer.Pause(ctx, name, ratelimit.PauseInterPage, delay); err != nil {
				return fail(page+1, err)
			}
		}
	}

	logger.Debug().
		Int("pages", len(results)).
		Dur("duration", time.Since(start)).
		Msg("Category collected")

	return results, nil
}

func (c *Collector) collectPage(ctx context.Context, adapter provider.Adapter, category string, page, periodDays int) (PageResult, error) {
	if c.config.PageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.PageTimeout)
		defer cancel()
	}

	req := adapter.BuildRequest(category, page, periodDays)
	req.Validate = func(body []byte) error {
		_, err := adapter.ExtractItems(body)
		return err
	}

	resp, err := c.getter.Get(ctx, req)
	if err != nil {
		return PageResult{}, err
	}

	items, err := adapter.ExtractItems(resp.Body)
	if err != nil {
		return PageResult{}, err
	}

	estimates := make([]float64, 0, len(items))
	for _, item := range items {
		r, ok := adapter.ExtractRange(item)
		if !ok {
			continue
		}
		if v, ok := c.estimator.Estimate(r); ok {
			estimates = append(estimates, v)
		}
	}

	return PageResult{
		Page:       page,
		ItemsCount: len(items),
		Estimates:  estimates,
	}, nil
}
