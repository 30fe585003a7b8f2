package stats

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestReport_MarshalJSON(t *testing.T) {
	start := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	report := &Report{
		Provider:   "superjob",
		Categories: []string{"Python", "C#", "Go"},
		Stats: map[string]CategoryStatistics{
			"Python": {Found: 15, Processed: 5, AverageSalary: ptr(200)},
			"C#":     {Found: 2},
			"Go":     {Err: errors.New("superjob client error (status 403)")},
		},
		StartedAt:  start,
		FinishedAt: start.Add(90 * time.Second),
	}

	data, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded struct {
		Provider   string `json:"provider"`
		Categories []struct {
			Category      string   `json:"category"`
			Found         int      `json:"vacancies_found"`
			Processed     int      `json:"vacancies_processed"`
			AverageSalary *float64 `json:"average_salary"`
			Error         string   `json:"error"`
		} `json:"categories"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if decoded.Provider != "superjob" {
		t.Errorf("provider = %q", decoded.Provider)
	}
	if len(decoded.Categories) != 3 {
		t.Fatalf("categories = %d, want 3", len(decoded.Categories))
	}
	for i, want := range []string{"Python", "C#", "Go"} {
		if decoded.Categories[i].Category != want {
			t.Errorf("categories[%d] = %q, want %q (order preserved)", i, decoded.Categories[i].Category, want)
		}
	}
	if c := decoded.Categories[0]; c.Found != 15 || c.Processed != 5 || c.AverageSalary == nil || *c.AverageSalary != 200 {
		t.Errorf("Python = %+v", c)
	}
	if decoded.Categories[1].AverageSalary != nil {
		t.Error("C# average must be null")
	}
	if decoded.Categories[2].Error == "" {
		t.Error("Go must carry its error")
	}
	if !strings.Contains(string(data), `"average_salary":null`) {
		t.Errorf("JSON must spell out null averages: %s", data)
	}
}

func TestReport_Duration(t *testing.T) {
	start := time.Now()
	r := &Report{StartedAt: start, FinishedAt: start.Add(time.Minute)}
	if r.Duration() != time.Minute {
		t.Errorf("Duration() = %v", r.Duration())
	}
}
