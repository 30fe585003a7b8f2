package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix prefixes every cache key.
const KeyPrefix = "vacancy"

// CacheKey represents a unique identifier for a cached provider response.
type CacheKey struct {
	// Provider is the job board name (e.g., "headhunter")
	Provider string

	// Endpoint is the request URL without query (e.g., "https://api.hh.ru/vacancies")
	Endpoint string

	// QueryParams are the query parameters (e.g., {"text": "Программист Go", "page": "0"})
	QueryParams url.Values
}

// String generates a deterministic cache key string.
// Format: vacancy:provider:endpoint:query1=val1:query2=val2a,val2b
//
// Example:
//
//	vacancy:headhunter:api.hh.ru/vacancies:page=0:text=Программист Go
func (k CacheKey) String() string {
	parts := []string{KeyPrefix}

	if k.Provider != "" {
		parts = append(parts, k.Provider)
	}

	// Normalize endpoint (drop scheme and surrounding slashes)
	endpoint := k.Endpoint
	if i := strings.Index(endpoint, "://"); i >= 0 {
		endpoint = endpoint[i+3:]
	}
	endpoint = strings.Trim(endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	// Add query params (sorted for determinism)
	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, strings.Join(k.QueryParams[key], ",")))
		}
	}

	return strings.Join(parts, ":")
}
