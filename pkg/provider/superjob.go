package provider

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/Sternrassler/vacancy-stats/pkg/client"
	"github.com/Sternrassler/vacancy-stats/pkg/config"
	"github.com/Sternrassler/vacancy-stats/pkg/salary"
)

// SuperJobName identifies the SuperJob adapter.
const SuperJobName = "superjob"

// SuperJob adapts the api.superjob.ru vacancy search.
//
// Postings live under "objects"; the range is flattened onto the posting as
// "payment_from", "payment_to" and "currency" ("rub" for roubles). SuperJob
// reports an undeclared bound as 0.
type SuperJob struct {
	base
	token string
}

// NewSuperJob creates the SuperJob adapter. token is the application key
// sent as X-Api-App-Id; it is required.
func NewSuperJob(cfg config.ProviderConfig, searchPrefix, token string) (*SuperJob, error) {
	b, err := newBase(SuperJobName, cfg, searchPrefix, "objects")
	if err != nil {
		return nil, err
	}
	if token == "" {
		name := cfg.TokenEnv
		if name == "" {
			name = "token_env"
		}
		return nil, config.Invalid("providers.superjob.token_env", "API key not set (%s)", name)
	}
	return &SuperJob{base: b, token: token}, nil
}

// BuildRequest implements Adapter.
func (s *SuperJob) BuildRequest(category string, page, periodDays int) client.Request {
	query := url.Values{}
	query.Set("keyword", s.searchText(category))
	if s.area > 0 {
		query.Set("town", strconv.Itoa(s.area))
	}
	query.Set("period", strconv.Itoa(periodDays))
	query.Set("page", strconv.Itoa(page))
	query.Set("count", strconv.Itoa(s.pagination.PageSize))

	header := http.Header{}
	header.Set("X-Api-App-Id", s.token)
	if s.userAgent != "" {
		header.Set("User-Agent", s.userAgent)
	}

	return client.Request{
		Provider: s.name,
		URL:      s.endpoint,
		Query:    query,
		Header:   header,
	}
}

// ExtractRange implements Adapter. Zero bounds are mapped to absent.
// A posting carrying neither payment field has no range.
func (s *SuperJob) ExtractRange(rec Record) (salary.Range, bool) {
	obj, ok := rec.(map[string]any)
	if !ok {
		return salary.Range{}, false
	}
	rawFrom, hasFrom := obj["payment_from"]
	rawTo, hasTo := obj["payment_to"]
	if !hasFrom && !hasTo {
		return salary.Range{}, false
	}

	return salary.Range{
		From:     declared(number(rawFrom)),
		To:       declared(number(rawTo)),
		Currency: str(obj["currency"]),
	}, true
}
