// Package tts defines the interface for the narration synthesis backend.
package tts

import (
	"context"

	"reading-timing-service/internal/models"
)

// Result is the fully materialized output of one synthesis call: where the
// audio landed, the raw word-boundary events, and the total duration.
// Events are delivered as a complete list after the call, never streamed;
// reconstruction only ever needs the full set.
type Result struct {
	AudioRef   string
	Events     []models.RawBoundaryEvent
	DurationMs uint64
	Provider   string
	TicksPerMs float64
	VoiceID    string
}

// Synthesizer turns text plus voice parameters into narrated audio with
// word-boundary events. Implementations must be safe for concurrent use.
type Synthesizer interface {
	// Synthesize narrates text with the given voice and speed multiplier.
	Synthesize(ctx context.Context, text, voiceID string, speed float64) (*Result, error)
}
