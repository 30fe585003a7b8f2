// Package testutil provides testing utilities for vacancy-stats: mock job
// boards serving HeadHunter- and SuperJob-shaped responses, and a sleeper
// that records pauses instead of blocking.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
)

// Flavor selects the response envelope a MockBoard speaks.
type Flavor string

const (
	// FlavorHeadHunter serves {"items": [{"salary": {...}}]}.
	FlavorHeadHunter Flavor = "headhunter"

	// FlavorSuperJob serves {"objects": [{"payment_from": ...}]}.
	FlavorSuperJob Flavor = "superjob"
)

// Posting is one mock vacancy. Zero bounds are undeclared.
type Posting struct {
	From     float64
	To       float64
	Currency string

	// NoSalary omits the salary data entirely.
	NoSalary bool
}

// Range returns a posting with the given bounds and currency.
func Range(from, to float64, currency string) Posting {
	return Posting{From: from, To: to, Currency: currency}
}

// NoSalary returns a posting without salary data.
func NoSalary() Posting {
	return Posting{NoSalary: true}
}

// MockResponse overrides the response for a page.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string

	// Times limits how many requests get this response; 0 means always.
	Times int
}

// MockBoard is a configurable mock job board for testing.
// Pages not configured answer with an empty envelope.
type MockBoard struct {
	server *httptest.Server
	flavor Flavor

	mu       sync.RWMutex
	pages    map[string]map[int][]Posting
	failures map[int]*MockResponse

	// Tracking
	requests          []url.Values
	lastRequestHeader http.Header
}

// NewMockBoard creates and starts a mock job board.
func NewMockBoard(flavor Flavor) *MockBoard {
	mock := &MockBoard{
		flavor:   flavor,
		pages:    make(map[string]map[int][]Posting),
		failures: make(map[int]*MockResponse),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

// URL returns the vacancies endpoint of the mock board.
func (m *MockBoard) URL() string {
	return m.server.URL + "/vacancies/"
}

// Close shuts down the mock server.
func (m *MockBoard) Close() {
	m.server.Close()
}

// Reset clears tracking and failures but keeps configured pages.
func (m *MockBoard) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.lastRequestHeader = nil
	m.failures = make(map[int]*MockResponse)
}

// SetPage configures the postings of one page for a search text
// ("Программист Python"). Page numbers are zero-based.
func (m *MockBoard) SetPage(text string, page int, postings ...Posting) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pages[text] == nil {
		m.pages[text] = make(map[int][]Posting)
	}
	m.pages[text][page] = postings
}

// FailPage makes every request for page answer with resp, whatever the query.
func (m *MockBoard) FailPage(page int, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[page] = &resp
}

// GetRequestCount returns the number of requests made to the board.
func (m *MockBoard) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// Requests returns the query of every request, in order.
func (m *MockBoard) Requests() []url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]url.Values(nil), m.requests...)
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockBoard) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRequestHeader
}

func (m *MockBoard) handle(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, _ := strconv.Atoi(query.Get("page"))

	m.mu.Lock()
	m.requests = append(m.requests, query)
	m.lastRequestHeader = r.Header.Clone()

	failure := m.failures[page]
	if failure != nil && failure.Times > 0 {
		failure.Times--
		if failure.Times == 0 {
			delete(m.failures, page)
		}
	}
	postings := m.pages[m.searchText(query)][page]
	m.mu.Unlock()

	if failure != nil {
		for key, value := range failure.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(failure.StatusCode)
		if failure.Body != "" {
			w.Write([]byte(failure.Body))
		}
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(m.envelope(postings))
}

func (m *MockBoard) searchText(query url.Values) string {
	if m.flavor == FlavorSuperJob {
		return query.Get("keyword")
	}
	return query.Get("text")
}

func (m *MockBoard) envelope(postings []Posting) map[string]any {
	items := make([]map[string]any, 0, len(postings))
	for i, p := range postings {
		item := map[string]any{"id": i + 1}
		if m.flavor == FlavorSuperJob {
			if !p.NoSalary {
				item["payment_from"] = p.From
				item["payment_to"] = p.To
				item["currency"] = p.Currency
			}
		} else {
			if p.NoSalary {
				item["salary"] = nil
			} else {
				item["salary"] = map[string]any{
					"from":     bound(p.From),
					"to":       bound(p.To),
					"currency": p.Currency,
				}
			}
		}
		items = append(items, item)
	}

	if m.flavor == FlavorSuperJob {
		return map[string]any{"objects": items, "total": len(items), "more": false}
	}
	return map[string]any{"items": items, "found": len(items), "page": 0}
}

func bound(v float64) any {
	if v == 0 {
		return nil
	}
	return v
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"errors": [{"type": "server_error"}]}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewForbiddenResponse creates a 403 response, as returned for a bad API key.
func NewForbiddenResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusForbidden,
		Body:       `{"error": {"code": 403, "message": "Invalid app_key"}}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse(retryAfter string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"errors": [{"type": "too_many_requests"}]}`,
		Headers: map[string]string{
			"Retry-After":  retryAfter,
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewMalformedResponse creates a 200 response without the items envelope.
func NewMalformedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"unexpected": true}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}
