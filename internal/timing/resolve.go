package timing

import (
	"sort"

	"reading-timing-service/internal/models"
)

// ResolveActiveIndex returns the index of the word being spoken at
// positionMs, or -1 when the position falls before the first word, after the
// last word, or inside a silence gap between words.
//
// A position exactly on a shared boundary (one word's end, the next word's
// start) resolves forward to the upcoming word. Words are sorted by
// construction, so lookup is a binary search.
func ResolveActiveIndex(words []models.WordTiming, positionMs uint64) int {
	if len(words) == 0 {
		return -1
	}
	// First word starting strictly after the position; the candidate is the
	// word just before it.
	i := sort.Search(len(words), func(i int) bool {
		return words[i].StartMs > positionMs
	})
	candidate := i - 1
	if candidate < 0 {
		return -1
	}
	if positionMs >= words[candidate].EndMs {
		return -1
	}
	return candidate
}

// WindowAround returns the contiguous run of words within radius of
// activeIndex, clipped to the sequence bounds. The rendering layer animates
// only this window. Returns nil when activeIndex is out of range.
func WindowAround(words []models.WordTiming, activeIndex, radius int) []models.WordTiming {
	if activeIndex < 0 || activeIndex >= len(words) {
		return nil
	}
	if radius < 0 {
		radius = 0
	}
	lo := activeIndex - radius
	if lo < 0 {
		lo = 0
	}
	hi := activeIndex + radius
	if hi > len(words)-1 {
		hi = len(words) - 1
	}
	return words[lo : hi+1]
}
