// Package mock provides a deterministic Synthesizer for testing and
// credential-less runs. It derives boundary events from the text itself:
// each word's duration is proportional to its length at a fixed speaking
// rate, so the same text always yields the same events.
package mock

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"reading-timing-service/internal/models"
	"reading-timing-service/internal/tts"
)

// Synthesizer implements tts.Synthesizer with simulated timing.
type Synthesizer struct {
	// MsPerChar is the simulated narration pace before the speed
	// multiplier. Defaults to 75ms per character.
	MsPerChar float64
}

var _ tts.Synthesizer = (*Synthesizer)(nil)

// New creates a mock synthesizer at the default pace.
func New() *Synthesizer {
	return &Synthesizer{MsPerChar: 75}
}

// Synthesize produces one boundary event per whitespace-separated word,
// using a 1-tick-per-ms tick unit.
func (s *Synthesizer) Synthesize(ctx context.Context, text, voiceID string, speed float64) (*tts.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, fmt.Errorf("mock synthesizer: empty text")
	}
	if speed <= 0 {
		speed = 1.0
	}

	pace := s.MsPerChar / speed
	events := make([]models.RawBoundaryEvent, len(words))
	offsetMs := 0.0
	for i, w := range words {
		wordMs := pace * float64(utf8.RuneCountInString(w))
		events[i] = models.RawBoundaryEvent{
			OffsetTicks:   uint64(offsetMs),
			DurationTicks: uint64(wordMs),
			Text:          w,
		}
		// One pace unit of inter-word silence.
		offsetMs += wordMs + pace
	}

	return &tts.Result{
		AudioRef:   fmt.Sprintf("mock://%s/%d-words.wav", voiceID, len(words)),
		Events:     events,
		DurationMs: uint64(offsetMs),
		Provider:   "mock",
		TicksPerMs: 1,
		VoiceID:    voiceID,
	}, nil
}
