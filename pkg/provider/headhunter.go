package provider

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/Sternrassler/vacancy-stats/pkg/client"
	"github.com/Sternrassler/vacancy-stats/pkg/config"
	"github.com/Sternrassler/vacancy-stats/pkg/salary"
)

// HeadHunterName identifies the HeadHunter adapter.
const HeadHunterName = "headhunter"

// HeadHunter adapts the api.hh.ru vacancy search.
//
// Postings live under "items"; each carries an optional "salary" object
// with "from", "to" and "currency" ("RUR" for roubles). Only postings with
// a declared salary are requested.
type HeadHunter struct {
	base
}

// NewHeadHunter creates the HeadHunter adapter. HeadHunter needs no API
// token but asks clients to identify themselves through HH-User-Agent.
func NewHeadHunter(cfg config.ProviderConfig, searchPrefix string) (*HeadHunter, error) {
	b, err := newBase(HeadHunterName, cfg, searchPrefix, "items")
	if err != nil {
		return nil, err
	}
	if b.userAgent == "" {
		return nil, config.Invalid("providers.headhunter.user_agent", "is required")
	}
	return &HeadHunter{base: b}, nil
}

// BuildRequest implements Adapter.
func (h *HeadHunter) BuildRequest(category string, page, periodDays int) client.Request {
	query := url.Values{}
	query.Set("text", h.searchText(category))
	if h.area > 0 {
		query.Set("area", strconv.Itoa(h.area))
	}
	query.Set("period", strconv.Itoa(periodDays))
	query.Set("page", strconv.Itoa(page))
	query.Set("per_page", strconv.Itoa(h.pagination.PageSize))
	query.Set("only_with_salary", "true")

	header := http.Header{}
	header.Set("HH-User-Agent", h.userAgent)
	header.Set("User-Agent", h.userAgent)

	return client.Request{
		Provider: h.name,
		URL:      h.endpoint,
		Query:    query,
		Header:   header,
	}
}

// ExtractRange implements Adapter. A missing or null "salary" means the
// posting has no range; an object with both bounds null or 0 is a range
// with no bounds.
func (h *HeadHunter) ExtractRange(rec Record) (salary.Range, bool) {
	obj, ok := rec.(map[string]any)
	if !ok {
		return salary.Range{}, false
	}
	sal, ok := obj["salary"].(map[string]any)
	if !ok {
		return salary.Range{}, false
	}

	return salary.Range{
		From:     declared(number(sal["from"])),
		To:       declared(number(sal["to"])),
		Currency: str(sal["currency"]),
	}, true
}
