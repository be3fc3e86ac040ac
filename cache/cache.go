// Package cache memoizes rendered listing pages for a short window.
package cache

import "time"

// DefaultTTL bounds how stale a memoized page may be.
const DefaultTTL = 20 * time.Second

// PageCache stores rendered response bodies keyed by page identity.
// Within the TTL window a cached body is served byte-identical; Clear
// drops everything immediately, ahead of expiry.
type PageCache interface {
	Get(key string) ([]byte, bool)
	Set(key string, body []byte)
	Clear()
}
