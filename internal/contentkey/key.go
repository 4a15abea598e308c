// Package contentkey builds the stable addressing key shared by all
// timing-data providers. The same logical content must always resolve to
// the same key, regardless of which tier is asked.
package contentkey

import (
	"fmt"
	"strings"
)

// CacheNamespace prefixes every local cache key so timing entries never
// collide with unrelated data in the same store.
const CacheNamespace = "timing:"

// Key identifies one piece of narrated content.
type Key struct {
	Date        string // ISO date, e.g. "2026-08-29"
	ReadingType string // category tag, e.g. "gospel"
}

// New normalizes the identifying fields into a Key. Case and surrounding
// whitespace are stripped so callers cannot produce divergent keys for the
// same content.
func New(date, readingType string) Key {
	return Key{
		Date:        strings.TrimSpace(date),
		ReadingType: normalize(readingType),
	}
}

// String renders the canonical key form: "<date>:<readingType>".
func (k Key) String() string {
	return fmt.Sprintf("%s:%s", k.Date, k.ReadingType)
}

// CacheKey renders the namespaced form used by the local cache tier.
func (k Key) CacheKey() string {
	return CacheNamespace + k.String()
}

// Valid reports whether both identifying fields are present.
func (k Key) Valid() bool {
	return k.Date != "" && k.ReadingType != ""
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "-")
	return strings.ReplaceAll(s, "_", "-")
}
