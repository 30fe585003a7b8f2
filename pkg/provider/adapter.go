// Package provider adapts individual job boards to one uniform shape:
// how to build a page request, how many pages exist, where the postings
// live in a response and how to read a posting's salary range.
//
// The collector only talks to the Adapter interface. Adding a job board
// means adding an Adapter; nothing downstream branches on provider identity.
package provider

import (
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/vacancy-stats/pkg/client"
	"github.com/Sternrassler/vacancy-stats/pkg/config"
	"github.com/Sternrassler/vacancy-stats/pkg/salary"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// Record is one posting as decoded from a provider response.
// JSON objects decode to map[string]any.
type Record = any

// Pagination describes the pages reachable for one query.
type Pagination struct {
	PageSize int
	MaxPages int
}

// Delays are the pauses a provider's terms of use require.
type Delays struct {
	InterPage     time.Duration
	InterCategory time.Duration
}

// Adapter is the provider capability set used by the collector.
type Adapter interface {
	// Name is the stable identifier used in logs, metrics and cache keys.
	Name() string

	// BuildRequest returns the request for a zero-based page of category
	// postings published in the last periodDays days. Deterministic.
	BuildRequest(category string, page, periodDays int) client.Request

	Pagination() Pagination

	// ExtractItems returns the postings in a response body, or a
	// *SchemaError when the envelope is missing or mistyped.
	ExtractItems(body []byte) ([]Record, error)

	// ExtractRange reads a posting's salary range. false means the
	// posting carries no salary data at all.
	ExtractRange(rec Record) (salary.Range, bool)

	Delays() Delays
}

// SchemaError reports a response that does not have the expected shape.
type SchemaError struct {
	Provider string
	Field    string
	Reason   string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s schema error: %s: %s", e.Provider, e.Field, e.Reason)
}

// base holds what every adapter shares: identity, endpoint, paging, delays
// and the items envelope.
type base struct {
	name         string
	endpoint     string
	searchPrefix string
	area         int
	userAgent    string
	pagination   Pagination
	delays       Delays
	itemsField   string
	itemsPath    jp.Expr
}

func newBase(name string, cfg config.ProviderConfig, searchPrefix, itemsField string) (base, error) {
	field := "providers." + name
	if cfg.BaseURL == "" {
		return base{}, config.Invalid(field+".base_url", "is required")
	}
	if cfg.PageSize <= 0 {
		return base{}, config.Invalid(field+".page_size", "must be positive (got %d)", cfg.PageSize)
	}
	if cfg.MaxItems < cfg.PageSize {
		return base{}, config.Invalid(field+".max_items", "must be >= page_size (%d < %d)", cfg.MaxItems, cfg.PageSize)
	}

	return base{
		name:         name,
		endpoint:     cfg.BaseURL,
		searchPrefix: searchPrefix,
		area:         cfg.Area,
		userAgent:    cfg.UserAgent,
		pagination: Pagination{
			PageSize: cfg.PageSize,
			MaxPages: cfg.MaxItems / cfg.PageSize,
		},
		delays: Delays{
			InterPage:     cfg.InterPageDelay,
			InterCategory: cfg.InterCategoryDelay,
		},
		itemsField: itemsField,
		itemsPath:  jp.C(itemsField),
	}, nil
}

func (b *base) Name() string {
	return b.name
}

func (b *base) Pagination() Pagination {
	return b.pagination
}

func (b *base) Delays() Delays {
	return b.delays
}

// searchText is the free-text query for a category.
func (b *base) searchText(category string) string {
	if b.searchPrefix == "" {
		return category
	}
	return b.searchPrefix + " " + category
}

func (b *base) ExtractItems(body []byte) ([]Record, error) {
	data, err := oj.Parse(body)
	if err != nil {
		return nil, &SchemaError{Provider: b.name, Field: "body", Reason: "invalid JSON: " + err.Error()}
	}
	if _, ok := data.(map[string]any); !ok {
		return nil, &SchemaError{Provider: b.name, Field: "body", Reason: fmt.Sprintf("expected object, got %s", typeName(data))}
	}

	results := b.itemsPath.Get(data)
	if len(results) == 0 {
		return nil, &SchemaError{Provider: b.name, Field: b.itemsField, Reason: "missing"}
	}

	items, ok := results[0].([]any)
	if !ok {
		return nil, &SchemaError{Provider: b.name, Field: b.itemsField, Reason: fmt.Sprintf("expected array, got %s", typeName(results[0]))}
	}

	records := make([]Record, len(items))
	copy(records, items)
	return records, nil
}

// number converts a decoded JSON value to float64. null and non-numbers
// yield nil.
func number(v any) *float64 {
	switch n := v.(type) {
	case int64:
		return salary.Bound(float64(n))
	case float64:
		return salary.Bound(n)
	case int:
		return salary.Bound(float64(n))
	default:
		return nil
	}
}

// declared drops a zero bound. Both boards use 0 for "not stated".
func declared(v *float64) *float64 {
	if v == nil || *v == 0 {
		return nil
	}
	return v
}

func str(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "bool"
	case int64, float64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
