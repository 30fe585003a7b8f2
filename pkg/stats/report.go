package stats

import (
	"encoding/json"
	"time"
)

// Report is the result of one Run for one provider. It holds exactly one
// entry per requested category and is not modified after Run returns.
type Report struct {
	Provider string

	// Categories preserves the requested presentation order.
	Categories []string
	Stats      map[string]CategoryStatistics

	StartedAt  time.Time
	FinishedAt time.Time
}

// Get returns the statistics of category.
func (r *Report) Get(category string) (CategoryStatistics, bool) {
	s, ok := r.Stats[category]
	return s, ok
}

// Failed returns the categories that were skipped after a failure, in order.
func (r *Report) Failed() []string {
	var failed []string
	for _, c := range r.Categories {
		if r.Stats[c].Failed() {
			failed = append(failed, c)
		}
	}
	return failed
}

// Duration is the wall time the run took.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

type categoryJSON struct {
	Category string `json:"category"`
	categoryStatisticsJSON
}

// MarshalJSON implements json.Marshaler; categories keep their order.
func (r *Report) MarshalJSON() ([]byte, error) {
	categories := make([]categoryJSON, 0, len(r.Categories))
	for _, c := range r.Categories {
		categories = append(categories, categoryJSON{
			Category:               c,
			categoryStatisticsJSON: r.Stats[c].toJSON(),
		})
	}

	return json.Marshal(struct {
		Provider   string         `json:"provider"`
		StartedAt  time.Time      `json:"started_at"`
		FinishedAt time.Time      `json:"finished_at"`
		Categories []categoryJSON `json:"categories"`
	}{
		Provider:   r.Provider,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Categories: categories,
	})
}
