// Package cache stores job-board responses in Redis so that a rerun within
// the configured TTL does not spend the provider's request quota again.
//
// Only successful (2xx) bodies are cached. Keys are built from the provider
// name, the request URL and the sorted query parameters; authentication
// headers never take part in the key.
//
// # Basic Usage
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.CacheKey{
//		Provider:    "headhunter",
//		Endpoint:    "https://api.hh.ru/vacancies",
//		QueryParams: url.Values{"text": {"Программист Go"}, "page": {"0"}},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the provider, then
//		_ = manager.Set(ctx, key, cache.NewEntry(body, 200, time.Hour))
//	}
//
// # Metrics
//
//   - vacancy_cache_hits_total{provider}
//   - vacancy_cache_misses_total{provider}
//   - vacancy_cache_stored_bytes_total
//   - vacancy_cache_errors_total{operation}
package cache
