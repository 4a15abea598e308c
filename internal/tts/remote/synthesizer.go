// Package remote provides a Synthesizer backed by a remote speech service
// over HTTP. The service narrates the text and reports word boundaries in
// its own tick unit, which it declares in the response.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"reading-timing-service/internal/models"
	"reading-timing-service/internal/observability/logging"
	"reading-timing-service/internal/tts"
)

// Config holds remote synthesizer settings.
type Config struct {
	Endpoint string
	APIKey   string
	Provider string // label recorded on generated data, e.g. "azure"
	// TicksPerMs assumed when the service response omits it. Azure-style
	// services report 100ns ticks, 10000 per millisecond.
	TicksPerMs float64
}

// Synthesizer implements tts.Synthesizer against the remote speech service.
type Synthesizer struct {
	cfg    Config
	client *http.Client
}

var _ tts.Synthesizer = (*Synthesizer)(nil)

// New creates a remote synthesizer.
func New(cfg Config) *Synthesizer {
	if cfg.TicksPerMs <= 0 {
		cfg.TicksPerMs = 10000
	}
	return &Synthesizer{
		cfg:    cfg,
		client: &http.Client{Timeout: 90 * time.Second},
	}
}

type synthesisRequest struct {
	Text    string  `json:"text"`
	VoiceID string  `json:"voiceId"`
	Speed   float64 `json:"speed"`
}

type synthesisResponse struct {
	AudioURL        string                    `json:"audioUrl"`
	WordBoundaries  []models.RawBoundaryEvent `json:"wordBoundaries"`
	TotalDurationMs uint64                    `json:"totalDurationMs"`
	TicksPerMs      float64                   `json:"ticksPerMs,omitempty"`
}

// Synthesize posts the text to the speech service and returns the
// materialized boundary events.
func (s *Synthesizer) Synthesize(ctx context.Context, text, voiceID string, speed float64) (*tts.Result, error) {
	payload, err := json.Marshal(synthesisRequest{Text: text, VoiceID: voiceID, Speed: speed})
	if err != nil {
		return nil, fmt.Errorf("encode synthesis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build synthesis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("speech service returned %d: %s", resp.StatusCode, string(body))
	}

	var out synthesisResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode synthesis response: %w", err)
	}

	ticksPerMs := out.TicksPerMs
	if ticksPerMs <= 0 {
		ticksPerMs = s.cfg.TicksPerMs
	}

	logger := logging.WithComponent("tts-remote")
	logger.Debug().
		Str("voiceId", voiceID).
		Int("boundaries", len(out.WordBoundaries)).
		Uint64("durationMs", out.TotalDurationMs).
		Dur("elapsed", time.Since(start)).
		Msg("Synthesis completed")

	return &tts.Result{
		AudioRef:   out.AudioURL,
		Events:     out.WordBoundaries,
		DurationMs: out.TotalDurationMs,
		Provider:   s.cfg.Provider,
		TicksPerMs: ticksPerMs,
		VoiceID:    voiceID,
	}, nil
}
