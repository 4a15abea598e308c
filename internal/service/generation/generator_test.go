package generation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"reading-timing-service/internal/contentkey"
	"reading-timing-service/internal/models"
	"reading-timing-service/internal/timing"
	"reading-timing-service/internal/tts"
)

type stubSynth struct {
	result *tts.Result
	err    error
	calls  int
}

func (s *stubSynth) Synthesize(_ context.Context, text, voiceID string, speed float64) (*tts.Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubRepo struct {
	existing *models.SentenceTimingData
	getErr   error
	saveErr  error
	saved    []*models.SentenceTimingData
}

func (r *stubRepo) GetTimingData(_ context.Context, _ contentkey.Key) (*models.SentenceTimingData, error) {
	return r.existing, r.getErr
}

func (r *stubRepo) SaveTimingData(_ context.Context, data *models.SentenceTimingData) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saved = append(r.saved, data)
	return nil
}

func eventsFor(text string, wordMs uint64) []models.RawBoundaryEvent {
	words := strings.Fields(text)
	events := make([]models.RawBoundaryEvent, len(words))
	for i, w := range words {
		events[i] = models.RawBoundaryEvent{
			OffsetTicks: uint64(i) * wordMs,
			Text:        w,
		}
	}
	return events
}

func testGenerator(synth tts.Synthesizer, repo Repository) *Generator {
	r := timing.New(timing.Config{TicksPerMs: 1})
	return New(synth, r, repo, nil, "test-voice", 1.0)
}

func TestGenerate_HappyPath(t *testing.T) {
	text := "The Lord is my shepherd"
	synth := &stubSynth{result: &tts.Result{
		AudioRef:   "mock://test-voice/5-words.wav",
		Events:     eventsFor(text, 400),
		DurationMs: 2400,
		Provider:   "mock",
		TicksPerMs: 1,
		VoiceID:    "test-voice",
	}}
	repo := &stubRepo{}

	g := testGenerator(synth, repo)
	data, err := g.Generate(context.Background(), Request{
		Date:        "2026-03-01",
		ReadingType: "psalm",
		Text:        text,
		Reference:   "Psalm 23:1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data == nil {
		t.Fatal("expected timing data")
	}
	if len(repo.saved) != 1 {
		t.Fatalf("expected 1 save, got %d", len(repo.saved))
	}
	if len(data.Words) != 5 {
		t.Errorf("expected 5 words, got %d", len(data.Words))
	}
	if data.ReadingID == "" {
		t.Error("expected generated reading ID")
	}
	if data.Date != "2026-03-01" || data.ReadingType != "psalm" {
		t.Errorf("expected normalized key fields, got %s/%s", data.Date, data.ReadingType)
	}
	if data.Reference != "Psalm 23:1" {
		t.Errorf("expected reference preserved, got %s", data.Reference)
	}
	if data.Checksum != data.ComputeChecksum() {
		t.Error("expected checksum to match content")
	}
	if err := data.Validate(); err != nil {
		t.Errorf("generated data failed validation: %v", err)
	}
}

func TestGenerate_ExistingDataSkipsSynthesis(t *testing.T) {
	existing := &models.SentenceTimingData{ReadingID: "existing"}
	synth := &stubSynth{}
	repo := &stubRepo{existing: existing}

	g := testGenerator(synth, repo)
	data, err := g.Generate(context.Background(), Request{
		Date:        "2026-03-01",
		ReadingType: "psalm",
		Text:        "some text",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data != existing {
		t.Error("expected existing data returned")
	}
	if synth.calls != 0 {
		t.Errorf("expected no synthesis calls, got %d", synth.calls)
	}
	if len(repo.saved) != 0 {
		t.Errorf("expected no saves, got %d", len(repo.saved))
	}
}

func TestGenerate_ForceRegenerates(t *testing.T) {
	text := "hello world"
	existing := &models.SentenceTimingData{ReadingID: "existing"}
	synth := &stubSynth{result: &tts.Result{
		AudioRef:   "mock://v/2-words.wav",
		Events:     eventsFor(text, 500),
		DurationMs: 1000,
		Provider:   "mock",
		TicksPerMs: 1,
		VoiceID:    "v",
	}}
	repo := &stubRepo{existing: existing}

	g := testGenerator(synth, repo)
	data, err := g.Generate(context.Background(), Request{
		Date:        "2026-03-01",
		ReadingType: "psalm",
		Text:        text,
		Force:       true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data == existing {
		t.Error("expected fresh data, got existing")
	}
	if synth.calls != 1 {
		t.Errorf("expected 1 synthesis call, got %d", synth.calls)
	}
	if len(repo.saved) != 1 {
		t.Errorf("expected 1 save, got %d", len(repo.saved))
	}
}

func TestGenerate_SynthesisFailure(t *testing.T) {
	synth := &stubSynth{err: errors.New("backend down")}
	repo := &stubRepo{}

	g := testGenerator(synth, repo)
	_, err := g.Generate(context.Background(), Request{
		Date:        "2026-03-01",
		ReadingType: "psalm",
		Text:        "some text",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(repo.saved) != 0 {
		t.Errorf("expected no saves on synthesis failure, got %d", len(repo.saved))
	}
}

func TestGenerate_SaveFailure(t *testing.T) {
	text := "hello world"
	synth := &stubSynth{result: &tts.Result{
		AudioRef:   "mock://v/2-words.wav",
		Events:     eventsFor(text, 500),
		DurationMs: 1000,
		Provider:   "mock",
		TicksPerMs: 1,
		VoiceID:    "v",
	}}
	repo := &stubRepo{saveErr: errors.New("disk full")}

	g := testGenerator(synth, repo)
	_, err := g.Generate(context.Background(), Request{
		Date:        "2026-03-01",
		ReadingType: "psalm",
		Text:        text,
	})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestGenerate_InvalidRequest(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"missing date", Request{ReadingType: "psalm", Text: "text"}},
		{"missing reading type", Request{Date: "2026-03-01", Text: "text"}},
		{"empty text", Request{Date: "2026-03-01", ReadingType: "psalm"}},
	}

	synth := &stubSynth{}
	repo := &stubRepo{}
	g := testGenerator(synth, repo)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.Generate(context.Background(), tt.req)
			if err == nil {
				t.Error("expected error")
			}
			if synth.calls != 0 {
				t.Errorf("expected no synthesis calls, got %d", synth.calls)
			}
		})
	}
}

func TestGenerate_PartialEventsEstimated(t *testing.T) {
	text := "one two three four five"
	synth := &stubSynth{result: &tts.Result{
		AudioRef:   "mock://v/partial.wav",
		Events:     eventsFor(text, 400)[:2],
		DurationMs: 2000,
		Provider:   "mock",
		TicksPerMs: 1,
		VoiceID:    "v",
	}}
	repo := &stubRepo{}

	g := testGenerator(synth, repo)
	data, err := g.Generate(context.Background(), Request{
		Date:        "2026-03-01",
		ReadingType: "psalm",
		Text:        text,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(data.Words) != 5 {
		t.Errorf("expected all 5 words on estimated path, got %d", len(data.Words))
	}
	if err := data.Validate(); err != nil {
		t.Errorf("estimated data failed validation: %v", err)
	}
}
