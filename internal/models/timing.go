// Package models defines the data structures for word-timing data.
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// SchemaVersion is written into every SentenceTimingData produced by this
// service. Readers must tolerate unknown newer versions.
const SchemaVersion = "1.0"

// RawBoundaryEvent is a word-boundary marker as reported by a synthesis
// backend. The tick unit is backend-specific and is normalized during
// reconstruction.
type RawBoundaryEvent struct {
	OffsetTicks   uint64 `json:"offsetTicks"`
	DurationTicks uint64 `json:"durationTicks"`
	Text          string `json:"text"`
}

// WordTiming places one spoken word in time and in the source text.
type WordTiming struct {
	Word       string `json:"word"`
	Index      uint32 `json:"index"`
	StartMs    uint64 `json:"startMs"`
	EndMs      uint64 `json:"endMs"`
	CharOffset uint32 `json:"charOffset"`
	CharLength uint32 `json:"charLength"`
}

// SentenceTimingData is the unit of work and of caching: one narrated text
// with its full word-timing sequence. Never mutated in place; regeneration
// produces a new value that supersedes the old one under the same content key.
type SentenceTimingData struct {
	ReadingID   string       `json:"readingId"`
	Text        string       `json:"text"`
	ReadingType string       `json:"readingType"`
	Date        string       `json:"date"`
	Reference   string       `json:"reference,omitempty"`
	Words       []WordTiming `json:"words"`
	DurationMs  uint64       `json:"durationMs"`
	AudioURL    string       `json:"audioUrl"`
	TTSProvider string       `json:"ttsProvider"`
	Voice       string       `json:"voice"`
	Speed       float64      `json:"speed"`
	GeneratedAt time.Time    `json:"generatedAt"`
	Version     string       `json:"version"`
	Checksum    string       `json:"checksum,omitempty"`
}

// CacheEntry wraps SentenceTimingData for the local cache tier.
// An entry is logically dead once now - CachedAt > TTL.
type CacheEntry struct {
	Data     SentenceTimingData `json:"data"`
	CachedAt time.Time          `json:"cachedAt"`
	TTLMs    uint64             `json:"ttlMs"`
}

// Expired reports whether the entry is past its TTL at the given instant.
func (e *CacheEntry) Expired(now time.Time) bool {
	return now.Sub(e.CachedAt) > time.Duration(e.TTLMs)*time.Millisecond
}

// MinSpeed and MaxSpeed bound the narration speed multiplier.
const (
	MinSpeed = 0.5
	MaxSpeed = 2.0
)

// ValidationError reports a structural invariant violation in timing data.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "timing data: " + e.Reason
}

func invalid(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// Validate checks the structural invariants of the timing data: dense
// ascending word indices, positive non-overlapping word spans, total
// duration covering the last word, and a speed within bounds.
// Violations are reported as *ValidationError.
func (d *SentenceTimingData) Validate() error {
	if d.Text == "" {
		return invalid("empty text")
	}
	if d.DurationMs == 0 {
		return invalid("duration must be positive")
	}
	if d.Speed != 0 && (d.Speed < MinSpeed || d.Speed > MaxSpeed) {
		return invalid("speed %.2f outside [%.1f, %.1f]", d.Speed, MinSpeed, MaxSpeed)
	}
	if len(d.Words) == 0 {
		return invalid("no words")
	}
	for i, w := range d.Words {
		if w.Index != uint32(i) {
			return invalid("word %d has index %d", i, w.Index)
		}
		if w.EndMs <= w.StartMs {
			return invalid("word %d has empty span [%d, %d]", i, w.StartMs, w.EndMs)
		}
		if i > 0 && w.StartMs < d.Words[i-1].EndMs {
			return invalid("word %d overlaps word %d", i, i-1)
		}
	}
	if last := d.Words[len(d.Words)-1]; d.DurationMs < last.EndMs {
		return invalid("duration %dms shorter than last word end %dms", d.DurationMs, last.EndMs)
	}
	return nil
}

// ComputeChecksum returns a stable content checksum over the identifying
// fields, used to detect upstream content drift between regenerations.
func (d *SentenceTimingData) ComputeChecksum() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s", d.Date, d.ReadingType, d.Text)
	return hex.EncodeToString(h.Sum(nil))
}
