// Package client provides the HTTP capability used by provider adapters:
// a GET with query parameters and headers returning status and JSON body,
// with retries, an optional Redis response cache and rate-limit cooldowns.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/vacancy-stats/pkg/cache"
	"github.com/Sternrassler/vacancy-stats/pkg/logging"
	"github.com/Sternrassler/vacancy-stats/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vacancy_http_requests_total",
		Help: "Total job board requests by provider and status",
	}, []string{"provider", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vacancy_http_request_duration_seconds",
		Help:    "Job board request duration in seconds by provider",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"provider"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vacancy_http_errors_total",
		Help: "Total transport errors by provider and class",
	}, []string{"provider", "class"})
)

// DefaultTimeout bounds a single HTTP attempt.
const DefaultTimeout = 30 * time.Second

// Request describes a GET against a provider endpoint.
type Request struct {
	// Provider names the job board; used for cache keys, rate limits and metrics.
	Provider string

	// URL is the endpoint without query string.
	URL string

	Query  url.Values
	Header http.Header

	// Validate, when set, checks a 2xx body before it is returned or cached.
	// A body it rejects is never stored, and a cached body it rejects is
	// dropped and fetched again.
	Validate func(body []byte) error
}

// FullURL returns URL with the encoded query appended.
func (r Request) FullURL() string {
	if len(r.Query) == 0 {
		return r.URL
	}
	return r.URL + "?" + r.Query.Encode()
}

// Response is a fully read 2xx response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	// FromCache is true when the body came from the Redis cache.
	FromCache bool
}

// Config holds the client configuration.
type Config struct {
	// UserAgent is sent unless the request carries its own User-Agent.
	UserAgent string

	// Timeout bounds each attempt. Zero means DefaultTimeout.
	Timeout time.Duration

	Retry RetryConfig

	// Cache is optional. Successful responses are stored for CacheTTL;
	// a zero CacheTTL disables caching.
	Cache    *cache.Manager
	CacheTTL time.Duration

	// RateLimiter is optional. When set every attempt waits out the
	// provider's cooldown and every response updates it.
	RateLimiter *ratelimit.Tracker

	// Sleeper is used for retry backoff. Nil means real sleeping.
	Sleeper ratelimit.Sleeper
}

// DefaultConfig returns a configuration without cache or rate limiter.
func DefaultConfig(userAgent string) Config {
	return Config{
		UserAgent: userAgent,
		Timeout:   DefaultTimeout,
		Retry:     DefaultRetryConfig(),
	}
}

// Client performs job board requests.
type Client struct {
	httpClient  *http.Client
	rateLimiter *ratelimit.Tracker
	cache       *cache.Manager
	sleeper     ratelimit.Sleeper
	config      Config
	logger      zerolog.Logger
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must not be negative (got %s)", cfg.Timeout)
	}
	if cfg.CacheTTL < 0 {
		return nil, fmt.Errorf("cache ttl must not be negative (got %s)", cfg.CacheTTL)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	sleeper := cfg.Sleeper
	if sleeper == nil {
		sleeper = ratelimit.RealSleeper
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: cfg.RateLimiter,
		cache:       cfg.Cache,
		sleeper:     sleeper,
		config:      cfg,
		logger:      logging.NewLogger("http-client"),
	}, nil
}

// Get performs a GET request with cooldown handling, caching and retries.
// Any outcome other than a 2xx response is returned as an error; the last
// *TransportError is always reachable through errors.As.
func (c *Client) Get(ctx context.Context, req Request) (*Response, error) {
	logger := logging.ForProvider(c.logger, req.Provider)

	cacheKey := cache.CacheKey{
		Provider:    req.Provider,
		Endpoint:    req.URL,
		QueryParams: req.Query,
	}

	if c.cachingEnabled() {
		entry, err := c.cache.Get(ctx, cacheKey)
		switch {
		case err == nil && req.Validate != nil && req.Validate(entry.Data) != nil:
			logger.Warn().Str("url", req.FullURL()).Msg("Dropping cached response that no longer validates")
			if err := c.cache.Delete(ctx, cacheKey); err != nil {
				logger.Warn().Err(err).Msg("Cache delete error")
			}
		case err == nil:
			logger.Debug().
				Str("url", req.FullURL()).
				Dur("age", entry.Age()).
				Msg("Serving response from cache")
			return &Response{
				StatusCode: entry.StatusCode,
				Header:     http.Header{},
				Body:       entry.Data,
				FromCache:  true,
			}, nil
		case !errors.Is(err, cache.ErrCacheMiss):
			logger.Warn().Err(err).Msg("Cache get error")
		}
	}

	var resp *Response
	err := retryWithBackoff(ctx, c.config.Retry, c.sleeper, logger, func() error {
		var attemptErr error
		resp, attemptErr = c.do(ctx, req, logger)
		return attemptErr
	})
	if err != nil {
		return nil, err
	}

	if req.Validate != nil {
		if err := req.Validate(resp.Body); err != nil {
			return nil, err
		}
	}

	if c.cachingEnabled() {
		entry := cache.NewEntry(resp.Body, resp.StatusCode, c.config.CacheTTL)
		if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			logger.Warn().Err(err).Msg("Failed to cache response")
		}
	}

	return resp, nil
}

func (c *Client) cachingEnabled() bool {
	return c.cache != nil && c.config.CacheTTL > 0
}

// do executes a single attempt.
func (c *Client) do(ctx context.Context, req Request, logger zerolog.Logger) (*Response, error) {
	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx, req.Provider); err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			logger.Warn().Err(err).Msg("Rate limit state unavailable, proceeding")
		}
	}

	fullURL := req.FullURL()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for name, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(name, v)
		}
	}
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", c.config.UserAgent)
	}
	httpReq.Header.Set("Accept", "application/json")

	logger.Debug().Str("url", fullURL).Msg("Executing request")

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	requestDuration.WithLabelValues(req.Provider).Observe(time.Since(start).Seconds())
	if err != nil {
		errorsTotal.WithLabelValues(req.Provider, string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(req.Provider, "network_error").Inc()
		logger.Warn().Err(err).Str("url", fullURL).Msg("HTTP request failed")
		return nil, &TransportError{
			Provider: req.Provider,
			URL:      fullURL,
			Class:    ErrorClassNetwork,
			Message:  "request failed",
			Err:      err,
		}
	}
	defer httpResp.Body.Close()

	status := strconv.Itoa(httpResp.StatusCode)
	requestsTotal.WithLabelValues(req.Provider, status).Inc()

	if c.rateLimiter != nil {
		if err := c.rateLimiter.UpdateFromResponse(ctx, req.Provider, httpResp.StatusCode, httpResp.Header); err != nil {
			logger.Warn().Err(err).Msg("Failed to update rate limit state")
		}
	}

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		errorsTotal.WithLabelValues(req.Provider, string(ErrorClassNetwork)).Inc()
		return nil, &TransportError{
			Provider:   req.Provider,
			URL:        fullURL,
			StatusCode: httpResp.StatusCode,
			Class:      ErrorClassNetwork,
			Message:    "read body",
			Err:        err,
		}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		class := classifyStatus(httpResp.StatusCode)
		errorsTotal.WithLabelValues(req.Provider, string(class)).Inc()
		logger.Warn().
			Str("url", fullURL).
			Int("status", httpResp.StatusCode).
			Str("error_class", string(class)).
			Msg("Provider returned an error status")
		return nil, &TransportError{
			Provider:   req.Provider,
			URL:        fullURL,
			StatusCode: httpResp.StatusCode,
			Class:      class,
			Message:    httpResp.Status,
		}
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
	}, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// GetCache returns the cache manager, nil when caching is off.
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}
