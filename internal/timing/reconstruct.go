// Package timing converts raw synthesis word-boundary events into the
// canonical word-timing sequence and resolves playback positions against it.
package timing

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"reading-timing-service/internal/models"
)

// ReconstructionError signals malformed or non-monotonic timing input.
// A failed reconstruction must never be cached or persisted.
type ReconstructionError struct {
	Reason string
}

func (e *ReconstructionError) Error() string {
	return "reconstruction: " + e.Reason
}

func errf(format string, args ...any) error {
	return &ReconstructionError{Reason: fmt.Sprintf(format, args...)}
}

// Config holds the normalization constants for boundary reconstruction.
type Config struct {
	// TicksPerMs converts backend-reported offset ticks to milliseconds.
	// Azure-style backends report 100ns ticks (10000 per millisecond).
	TicksPerMs float64
	// DefaultTailMs bounds the duration assigned to the last word, clamped
	// to the total audio duration.
	DefaultTailMs uint64
	// WordsPerMinute is the speaking rate assumed by the estimated-timing
	// fallback, before the speed multiplier is applied.
	WordsPerMinute float64
}

// DefaultConfig returns the reconstruction constants used in production.
func DefaultConfig() Config {
	return Config{
		TicksPerMs:     10000,
		DefaultTailMs:  2000,
		WordsPerMinute: 160,
	}
}

// Reconstructor builds WordTiming sequences from synthesis output.
type Reconstructor struct {
	cfg Config
}

// New creates a Reconstructor, filling unset config fields with defaults.
func New(cfg Config) *Reconstructor {
	def := DefaultConfig()
	if cfg.TicksPerMs <= 0 {
		cfg.TicksPerMs = def.TicksPerMs
	}
	if cfg.DefaultTailMs == 0 {
		cfg.DefaultTailMs = def.DefaultTailMs
	}
	if cfg.WordsPerMinute <= 0 {
		cfg.WordsPerMinute = def.WordsPerMinute
	}
	return &Reconstructor{cfg: cfg}
}

// Config returns the effective configuration after default filling.
func (r *Reconstructor) Config() Config {
	return r.cfg
}

// Reconstruct converts raw boundary events into a gap-free WordTiming
// sequence for text. The text's own whitespace split is authoritative for
// word identity and character offsets; events supply timing only.
//
// When events are missing or cover fewer words than the text (partial
// synthesis failure), timing falls back to the estimated model so that the
// result carries identical invariants either way. The returned duration is
// durationMs on the event path and the estimated total on the fallback path.
func (r *Reconstructor) Reconstruct(text string, events []models.RawBoundaryEvent, durationMs uint64, speed float64) ([]models.WordTiming, uint64, error) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, 0, errf("text contains no words")
	}

	if len(events) < len(words) {
		return r.estimate(text, words, speed, durationMs)
	}

	if durationMs == 0 {
		return nil, 0, errf("duration must be positive")
	}

	starts := make([]uint64, len(words))
	for i := 0; i < len(words); i++ {
		starts[i] = uint64(math.Round(float64(events[i].OffsetTicks) / r.cfg.TicksPerMs))
		if i > 0 && starts[i] <= starts[i-1] {
			return nil, 0, errf("non-monotonic boundary at word %d: %dms after %dms", i, starts[i], starts[i-1])
		}
	}

	last := len(words) - 1
	if starts[last] >= durationMs {
		return nil, 0, errf("last boundary %dms at or beyond duration %dms", starts[last], durationMs)
	}

	result := make([]models.WordTiming, len(words))
	offset := uint32(0)
	for i, w := range words {
		end := durationMs
		if i < last {
			end = starts[i+1]
		} else if tail := starts[i] + r.cfg.DefaultTailMs; tail < durationMs {
			end = tail
		}
		length := uint32(utf8.RuneCountInString(w))
		result[i] = models.WordTiming{
			Word:       w,
			Index:      uint32(i),
			StartMs:    starts[i],
			EndMs:      end,
			CharOffset: offset,
			CharLength: length,
		}
		offset += length + 1
	}
	return result, durationMs, nil
}

// estimate produces word timings without boundary events: per-word duration
// proportional to word length, at WordsPerMinute scaled by speed. Boundaries
// are placed on the cumulative character-length ratio so the full span is
// exact and adjacent words abut without overlap.
func (r *Reconstructor) estimate(text string, words []string, speed float64, fallbackDurationMs uint64) ([]models.WordTiming, uint64, error) {
	if speed <= 0 {
		speed = 1.0
	}

	sumLen := uint64(0)
	lengths := make([]uint32, len(words))
	for i, w := range words {
		lengths[i] = uint32(utf8.RuneCountInString(w))
		sumLen += uint64(lengths[i])
	}

	total := fallbackDurationMs
	if total == 0 {
		total = uint64(math.Round(float64(len(words)) * 60000 / (r.cfg.WordsPerMinute * speed)))
	}
	if total < uint64(len(words)) {
		return nil, 0, errf("fallback duration %dms too short for %d words", total, len(words))
	}

	result := make([]models.WordTiming, len(words))
	offset := uint32(0)
	cum := uint64(0)
	prevBoundary := uint64(0)
	for i, w := range words {
		cum += uint64(lengths[i])
		boundary := uint64(math.Round(float64(total) * float64(cum) / float64(sumLen)))
		if boundary <= prevBoundary {
			boundary = prevBoundary + 1
		}
		// Leave at least 1ms per remaining word so no span collapses.
		if remaining := uint64(len(words) - 1 - i); boundary > total-remaining {
			boundary = total - remaining
		}
		if i == len(words)-1 {
			boundary = total
		}
		result[i] = models.WordTiming{
			Word:       w,
			Index:      uint32(i),
			StartMs:    prevBoundary,
			EndMs:      boundary,
			CharOffset: offset,
			CharLength: lengths[i],
		}
		offset += lengths[i] + 1
		prevBoundary = boundary
	}
	return result, total, nil
}
