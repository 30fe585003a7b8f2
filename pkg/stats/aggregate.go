// Package stats turns collected pages into per-category salary statistics
// and runs the category-by-category collection for one provider.
package stats

import (
	"encoding/json"

	"github.com/Sternrassler/vacancy-stats/pkg/pagination"
)

// CategoryStatistics summarizes one category on one provider.
//
// AverageSalary is nil exactly when Processed is zero. Err is set only on
// placeholder entries for categories skipped after a failure.
type CategoryStatistics struct {
	Found         int
	Processed     int
	AverageSalary *float64
	Err           error
}

// Failed reports whether the entry is a placeholder for a failed category.
func (s CategoryStatistics) Failed() bool {
	return s.Err != nil
}

type categoryStatisticsJSON struct {
	Found         int      `json:"vacancies_found"`
	Processed     int      `json:"vacancies_processed"`
	AverageSalary *float64 `json:"average_salary"`
	Error         string   `json:"error,omitempty"`
}

func (s CategoryStatistics) toJSON() categoryStatisticsJSON {
	out := categoryStatisticsJSON{
		Found:         s.Found,
		Processed:     s.Processed,
		AverageSalary: s.AverageSalary,
	}
	if s.Err != nil {
		out.Error = s.Err.Error()
	}
	return out
}

// MarshalJSON encodes an undefined average as null.
func (s CategoryStatistics) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.toJSON())
}

// Aggregate folds a category's pages into statistics. The average is the
// mean over every individual estimate, not a mean of per-page means.
func Aggregate(pages []pagination.PageResult) CategoryStatistics {
	var stats CategoryStatistics
	var sum float64

	for _, page := range pages {
		stats.Found += page.ItemsCount
		stats.Processed += len(page.Estimates)
		for _, v := range page.Estimates {
			sum += v
		}
	}

	if stats.Processed > 0 {
		avg := sum / float64(stats.Processed)
		stats.AverageSalary = &avg
	}

	return stats
}
