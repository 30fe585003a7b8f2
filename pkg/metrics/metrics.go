// Package metrics provides the Prometheus registry used by vacancy-stats and
// a textfile dump of it. All metrics are defined in their respective packages
// (client, cache, ratelimit, pagination, stats) to maintain modularity and
// avoid circular dependencies.
//
// vacancy-stats is a batch job, so nothing is scraped. After a run the CLI
// writes the registry in the Prometheus text format (-metrics-file), ready
// for node_exporter's textfile collector or a pushgateway.
package metrics

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Registry is the default Prometheus registry used by vacancy-stats.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer matching Registry.
var Gatherer = prometheus.DefaultGatherer

// Prefix is the name prefix shared by every vacancy-stats metric.
const Prefix = "vacancy_"

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - vacancy_http_requests_total{provider, status} (Counter): Requests by provider and HTTP status
//   - vacancy_http_request_duration_seconds{provider} (Histogram): Request duration by provider
//   - vacancy_http_errors_total{provider, class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - vacancy_http_retries_total{error_class} (Counter): Retry attempts by error class
//   - vacancy_http_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - vacancy_http_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Cache Metrics (pkg/cache):
//   - vacancy_cache_hits_total{provider} (Counter): Responses served from Redis
//   - vacancy_cache_misses_total{provider} (Counter): Cache misses
//   - vacancy_cache_stored_bytes_total (Counter): Bytes written to the cache
//   - vacancy_cache_errors_total{operation} (Counter): Cache operation errors
//
// Pacing Metrics (pkg/ratelimit):
//   - vacancy_pause_seconds_total{provider, reason} (Counter): Deliberate pauses (inter_page, inter_category, cooldown)
//   - vacancy_rate_limit_cooldowns_total{provider} (Counter): Throttling responses that started a cooldown
//   - vacancy_rate_limit_waits_total{provider} (Counter): Requests delayed by an active cooldown
//
// Collection Metrics (pkg/pagination, pkg/stats):
//   - vacancy_pages_collected_total{provider} (Counter): Result pages collected
//   - vacancy_postings_found_total{provider} (Counter): Postings seen
//   - vacancy_postings_processed_total{provider} (Counter): Postings with an estimable salary
//   - vacancy_category_failures_total{provider} (Counter): Failed categories
//   - vacancy_category_duration_seconds{provider} (Histogram): Time per category
//   - vacancy_average_salary{provider, category} (Gauge): Mean estimated salary
//
// Example Prometheus Queries:
//
//   # Share of postings with an estimable salary
//   sum by (provider) (vacancy_postings_processed_total) /
//   sum by (provider) (vacancy_postings_found_total)
//
//   # Time spent waiting on purpose
//   sum by (reason) (vacancy_pause_seconds_total)
//
//   # Cache Hit Rate
//   sum(vacancy_cache_hits_total) /
//   (sum(vacancy_cache_hits_total) + sum(vacancy_cache_misses_total))

// Write encodes the vacancy-stats metric families of g to w in the
// Prometheus text format.
func Write(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), Prefix) {
			continue
		}
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// WriteTextfile writes the metrics to path atomically: a temporary file in
// the same directory is renamed over path, so a collector never reads a
// partial file.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, g); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// Summary returns the summed value of every vacancy-stats counter and gauge
// family, keyed by name. Histograms contribute their sample count.
func Summary(g prometheus.Gatherer) (map[string]float64, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}

	out := make(map[string]float64)
	for _, mf := range families {
		if strings.HasPrefix(mf.GetName(), Prefix) {
			out[mf.GetName()] = sumFamily(mf)
		}
	}
	return out, nil
}

// SortedNames returns the keys of a Summary in lexical order.
func SortedNames(summary map[string]float64) []string {
	names := make([]string, 0, len(summary))
	for name := range summary {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sumFamily(mf *dto.MetricFamily) float64 {
	if mf == nil {
		return 0
	}
	var total float64
	for _, m := range mf.GetMetric() {
		switch {
		case m.Counter != nil:
			total += m.Counter.GetValue()
		case m.Gauge != nil:
			total += m.Gauge.GetValue()
		case m.Histogram != nil:
			total += float64(m.Histogram.GetSampleCount())
		case m.Untyped != nil:
			total += m.Untyped.GetValue()
		}
	}
	return total
}
