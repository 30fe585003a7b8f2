package provider

import (
	"testing"
	"time"

	"github.com/Sternrassler/vacancy-stats/pkg/config"
	"github.com/Sternrassler/vacancy-stats/pkg/salary"
)

func newTestHeadHunter(t *testing.T) *HeadHunter {
	t.Helper()
	hh, err := NewHeadHunter(config.Default().Providers.HeadHunter, "Программист")
	if err != nil {
		t.Fatalf("NewHeadHunter() error = %v", err)
	}
	return hh
}

func TestHeadHunter_Defaults(t *testing.T) {
	hh := newTestHeadHunter(t)

	if hh.Name() != "headhunter" {
		t.Errorf("Name() = %q", hh.Name())
	}
	if got := hh.Pagination(); got.PageSize != 100 || got.MaxPages != 20 {
		t.Errorf("Pagination() = %+v, want {100 20}", got)
	}
	if got := hh.Delays(); got.InterPage != time.Second || got.InterCategory != 10*time.Second {
		t.Errorf("Delays() = %+v, want {1s 10s}", got)
	}
}

func TestHeadHunter_BuildRequest(t *testing.T) {
	hh := newTestHeadHunter(t)

	req := hh.BuildRequest("Python", 3, 30)

	if req.Provider != "headhunter" {
		t.Errorf("Provider = %q", req.Provider)
	}
	if req.URL != "https://api.hh.ru/vacancies" {
		t.Errorf("URL = %q", req.URL)
	}

	want := map[string]string{
		"text":             "Программист Python",
		"area":             "1",
		"period":           "30",
		"page":             "3",
		"per_page":         "100",
		"only_with_salary": "true",
	}
	for k, v := range want {
		if got := req.Query.Get(k); got != v {
			t.Errorf("query %s = %q, want %q", k, got, v)
		}
	}
	if len(req.Query) != len(want) {
		t.Errorf("query has %d params, want %d: %v", len(req.Query), len(want), req.Query)
	}

	if req.Header.Get("HH-User-Agent") == "" {
		t.Error("HH-User-Agent header missing")
	}
	if req.Header.Get("X-Api-App-Id") != "" {
		t.Error("HeadHunter must not send a SuperJob key")
	}
}

func TestHeadHunter_BuildRequest_Deterministic(t *testing.T) {
	hh := newTestHeadHunter(t)

	a := hh.BuildRequest("C#", 0, 7)
	b := hh.BuildRequest("C#", 0, 7)
	if a.FullURL() != b.FullURL() {
		t.Errorf("BuildRequest not deterministic: %q vs %q", a.FullURL(), b.FullURL())
	}
}

func TestHeadHunter_ExtractRange(t *testing.T) {
	hh := newTestHeadHunter(t)

	body := []byte(`{"items": [
		{"id": "1", "salary": {"from": 100000, "to": 200000, "currency": "RUR", "gross": false}},
		{"id": "2", "salary": {"from": 100000, "to": null, "currency": "RUR"}},
		{"id": "3", "salary": {"from": null, "to": 100000.5, "currency": "RUR"}},
		{"id": "4", "salary": {"from": 3000, "to": 5000, "currency": "USD"}},
		{"id": "5", "salary": null},
		{"id": "6"},
		{"id": "7", "salary": {"from": null, "to": null, "currency": "RUR"}},
		{"id": "8", "salary": {"from": 0, "to": 100000, "currency": "RUR"}}
	]}`)

	items, err := hh.ExtractItems(body)
	if err != nil {
		t.Fatalf("ExtractItems() error = %v", err)
	}
	if len(items) != 8 {
		t.Fatalf("len(items) = %d, want 8", len(items))
	}

	tests := []struct {
		idx      int
		wantOK   bool
		wantFrom *float64
		wantTo   *float64
		wantCur  string
	}{
		{0, true, salary.Bound(100000), salary.Bound(200000), "RUR"},
		{1, true, salary.Bound(100000), nil, "RUR"},
		{2, true, nil, salary.Bound(100000.5), "RUR"},
		{3, true, salary.Bound(3000), salary.Bound(5000), "USD"},
		{4, false, nil, nil, ""},
		{5, false, nil, nil, ""},
		{6, true, nil, nil, "RUR"},
		{7, true, nil, salary.Bound(100000), "RUR"},
	}

	for _, tt := range tests {
		r, ok := hh.ExtractRange(items[tt.idx])
		if ok != tt.wantOK {
			t.Errorf("item %d: ok = %v, want %v", tt.idx, ok, tt.wantOK)
			continue
		}
		if !ok {
			continue
		}
		if !equalBound(r.From, tt.wantFrom) || !equalBound(r.To, tt.wantTo) {
			t.Errorf("item %d: range = %v..%v", tt.idx, deref(r.From), deref(r.To))
		}
		if r.Currency != tt.wantCur {
			t.Errorf("item %d: currency = %q, want %q", tt.idx, r.Currency, tt.wantCur)
		}
	}
}

func TestHeadHunter_EstimatesThroughEstimator(t *testing.T) {
	hh := newTestHeadHunter(t)
	est := salary.NewEstimator("RUB")

	items, err := hh.ExtractItems([]byte(`{"items": [
		{"salary": {"from": 100, "to": 200, "currency": "RUR"}},
		{"salary": {"from": 3000, "to": 5000, "currency": "USD"}},
		{"salary": {"from": 0, "to": 100000, "currency": "RUR"}}
	]}`))
	if err != nil {
		t.Fatalf("ExtractItems() error = %v", err)
	}

	r, _ := hh.ExtractRange(items[0])
	if v, ok := est.Estimate(r); !ok || v != 150 {
		t.Errorf("Estimate(RUR 100..200) = %v, %v; want 150, true", v, ok)
	}

	r, _ = hh.ExtractRange(items[1])
	if _, ok := est.Estimate(r); ok {
		t.Error("USD posting must be absent for a RUB target")
	}

	r, _ = hh.ExtractRange(items[2])
	if v, ok := est.Estimate(r); !ok || v != 80000 {
		t.Errorf("Estimate(RUR 0..100000) = %v, %v; want 80000, true", v, ok)
	}
}

func TestHeadHunter_ExtractRange_NotAnObject(t *testing.T) {
	hh := newTestHeadHunter(t)
	if _, ok := hh.ExtractRange("posting"); ok {
		t.Error("non-object record must have no range")
	}
}

func equalBound(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func deref(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
