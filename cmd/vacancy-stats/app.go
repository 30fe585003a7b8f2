package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/vacancy-stats/pkg/cache"
	"github.com/Sternrassler/vacancy-stats/pkg/client"
	"github.com/Sternrassler/vacancy-stats/pkg/config"
	"github.com/Sternrassler/vacancy-stats/pkg/logging"
	"github.com/Sternrassler/vacancy-stats/pkg/pagination"
	"github.com/Sternrassler/vacancy-stats/pkg/provider"
	"github.com/Sternrassler/vacancy-stats/pkg/ratelimit"
	"github.com/Sternrassler/vacancy-stats/pkg/salary"
	"github.com/Sternrassler/vacancy-stats/pkg/stats"
)

// target is one enabled provider with its report title.
type target struct {
	title   string
	adapter provider.Adapter
}

// namedReport is a finished run with its title.
type namedReport struct {
	title  string
	report *stats.Report
}

// progressFactory returns the progress callback for one provider run, or nil,
// and a finish func called once the run has returned, whatever its outcome.
type progressFactory func(title string, total int) (stats.ProgressFunc, func())

// app wires the collection pipeline from a validated config.
type app struct {
	cfg       *config.Config
	redis     *redis.Client
	cache     *cache.Manager
	pacer     *ratelimit.Pacer
	collector *pagination.Collector
	targets   []target
	policy    stats.FailurePolicy
	logger    zerolog.Logger
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger := logging.NewLogger("vacancy-stats")

	policy, err := stats.ParseFailurePolicy(cfg.OnError)
	if err != nil {
		return nil, err
	}

	targets, err := buildTargets(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		targets: targets,
		policy:  policy,
		logger:  logger,
	}

	var store ratelimit.Store = ratelimit.NewMemoryStore()
	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.redis.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")

		a.cache = cache.NewManager(a.redis)
		store = ratelimit.NewRedisStore(a.redis)
	}

	a.pacer = ratelimit.NewPacer(nil, logging.NewLogger("pacer"))

	retry := client.DefaultRetryConfig()
	retry.MaxAttempts = cfg.HTTP.Attempts()
	retry.InitialBackoff = cfg.HTTP.InitialBackoff

	httpClient, err := client.New(client.Config{
		UserAgent:   config.DefaultUserAgent,
		Timeout:     cfg.HTTP.Timeout,
		Retry:       retry,
		Cache:       a.cache,
		CacheTTL:    cfg.Redis.CacheTTL,
		RateLimiter: ratelimit.NewTracker(store, a.pacer, logging.NewLogger("rate-limit")),
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create http client: %w", err)
	}

	estimator := salary.Estimator{
		TargetCurrency:  cfg.Currency,
		LowerOnlyFactor: cfg.Salary.LowerOnlyFactor,
		UpperOnlyFactor: cfg.Salary.UpperOnlyFactor,
	}
	a.collector = pagination.NewCollector(httpClient, a.pacer, estimator, pagination.DefaultConfig())

	return a, nil
}

// buildTargets creates an adapter for every enabled provider, in a fixed order.
func buildTargets(cfg *config.Config) ([]target, error) {
	var targets []target

	if hhCfg := cfg.Providers.HeadHunter; hhCfg.Enabled {
		hh, err := provider.NewHeadHunter(hhCfg, cfg.SearchPrefix)
		if err != nil {
			return nil, err
		}
		targets = append(targets, target{title: titleOr(hhCfg.Title, "HeadHunter"), adapter: hh})
	}

	if sjCfg := cfg.Providers.SuperJob; sjCfg.Enabled {
		sj, err := provider.NewSuperJob(sjCfg, cfg.SearchPrefix, sjCfg.Token())
		if err != nil {
			return nil, err
		}
		targets = append(targets, target{title: titleOr(sjCfg.Title, "SuperJob"), adapter: sj})
	}

	if len(targets) == 0 {
		return nil, config.Invalid("providers", "no provider is enabled")
	}
	return targets, nil
}

func titleOr(title, fallback string) string {
	if title == "" {
		return fallback
	}
	return title
}

// RunAll runs every target in order. A provider that fails does not stop the
// others; the finished reports are returned with the joined errors.
func (a *app) RunAll(ctx context.Context, progress progressFactory) ([]namedReport, error) {
	var reports []namedReport
	var errs []error

	for _, t := range a.targets {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		report, err := a.runTarget(ctx, t, progress)
		if err != nil {
			a.logger.Error().Err(err).Str("provider", t.adapter.Name()).Msg("Provider run failed")
			errs = append(errs, err)
			continue
		}
		reports = append(reports, namedReport{title: t.title, report: report})
	}

	return reports, errors.Join(errs...)
}

func (a *app) runTarget(ctx context.Context, t target, progress progressFactory) (*stats.Report, error) {
	engineCfg := stats.EngineConfig{OnError: a.policy}
	if progress != nil {
		update, finish := progress(t.title, len(a.cfg.Categories))
		if finish != nil {
			defer finish()
		}
		engineCfg.Progress = update
	}

	engine, err := stats.NewEngine(a.collector, a.pacer, engineCfg)
	if err != nil {
		return nil, err
	}
	return engine.Run(ctx, t.adapter, a.cfg.Categories, a.cfg.PeriodDays)
}

// PurgeCache drops every cached provider response.
func (a *app) PurgeCache(ctx context.Context) (int, error) {
	if a.cache == nil {
		return 0, config.Invalid("redis.addr", "purging the cache requires redis")
	}
	return a.cache.Purge(ctx, "")
}

// Close releases the Redis connection.
func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
}
