// Package pagination walks the result pages of one category on one job board.
//
// Job boards cap how deep a query can be paged (HeadHunter serves 2000
// postings, SuperJob 500), so the collector requests a fixed number of pages
// derived from the adapter's pagination instead of trusting the "found"
// counters in responses. Pages are fetched strictly one after another with
// the adapter's inter-page pause in between.
//
// Example usage:
//
//	collector := pagination.NewCollector(httpClient, pacer, salary.NewEstimator("RUB"), pagination.DefaultConfig())
//	pages, err := collector.Collect(ctx, headhunter, "Python", 30)
//
// The collector:
//   - Builds each page request through the adapter
//   - Extracts the postings envelope and every posting's salary range
//   - Keeps only the estimates the salary estimator could produce
//   - Stops at the first failing page and reports it as a CollectionError
package pagination
