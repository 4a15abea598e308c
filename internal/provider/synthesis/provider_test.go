package synthesis

import (
	"context"
	"errors"
	"testing"
	"time"

	"reading-timing-service/internal/contentkey"
	"reading-timing-service/internal/models"
	"reading-timing-service/internal/provider"
)

// stubTrigger scripts the backend acknowledgement.
type stubTrigger struct {
	resp  *TriggerResponse
	err   error
	block bool // block until the context is cancelled
	calls int
}

func (s *stubTrigger) Trigger(ctx context.Context, req TriggerRequest) (*TriggerResponse, error) {
	s.calls++
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.resp, s.err
}

// stubStore scripts the authoritative-store re-read.
type stubStore struct {
	data     *models.SentenceTimingData
	err      error
	getCalls int
}

func (s *stubStore) Name() string { return "stub-store" }

func (s *stubStore) Get(ctx context.Context, key contentkey.Key) (*models.SentenceTimingData, error) {
	s.getCalls++
	return s.data, s.err
}

func (s *stubStore) Put(ctx context.Context, data *models.SentenceTimingData) error {
	return provider.ErrUnsupported
}

func (s *stubStore) Clear(ctx context.Context) error {
	return provider.ErrUnsupported
}

func timingFixture() *models.SentenceTimingData {
	return &models.SentenceTimingData{
		Text:        "Rejoice always",
		ReadingType: "second-reading",
		Date:        "2026-08-29",
		Words: []models.WordTiming{
			{Word: "Rejoice", Index: 0, StartMs: 0, EndMs: 700, CharOffset: 0, CharLength: 7},
			{Word: "always", Index: 1, StartMs: 700, EndMs: 1400, CharOffset: 8, CharLength: 6},
		},
		DurationMs: 1400,
		Version:    models.SchemaVersion,
	}
}

func fastConfig() Config {
	return Config{Timeout: 100 * time.Millisecond, SettleDelay: 0, VoiceID: "test-voice", Speed: 1.0}
}

func TestProvider_SuccessReReadsStoreOnce(t *testing.T) {
	key := contentkey.New("2026-08-29", "second-reading")
	trigger := &stubTrigger{resp: &TriggerResponse{
		Status:        StatusSuccess,
		ProcessedKeys: []string{key.String()},
	}}
	store := &stubStore{data: timingFixture()}
	p := New(trigger, store, fastConfig())

	data, err := p.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if data == nil {
		t.Fatal("expected timing data from the store re-read")
	}
	if store.getCalls != 1 {
		t.Errorf("store re-read %d times, want exactly 1", store.getCalls)
	}
	if trigger.calls != 1 {
		t.Errorf("trigger called %d times, want exactly 1", trigger.calls)
	}
}

func TestProvider_TimeoutIsAMiss(t *testing.T) {
	key := contentkey.New("2026-08-29", "gospel")
	trigger := &stubTrigger{block: true}
	store := &stubStore{}
	p := New(trigger, store, Config{Timeout: 20 * time.Millisecond, SettleDelay: 0})

	data, err := p.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("timeout must not surface as an error, got %v", err)
	}
	if data != nil {
		t.Error("expected nil on timeout")
	}
	if store.getCalls != 0 {
		t.Error("store must not be re-read after a timeout")
	}
}

func TestProvider_TransportFailureIsAMiss(t *testing.T) {
	key := contentkey.New("2026-08-29", "gospel")
	trigger := &stubTrigger{err: errors.New("connection refused")}
	store := &stubStore{}
	p := New(trigger, store, fastConfig())

	data, err := p.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("transport failure must not surface as an error, got %v", err)
	}
	if data != nil {
		t.Error("expected nil on transport failure")
	}
}

func TestProvider_NonSuccessStatusIsAMiss(t *testing.T) {
	key := contentkey.New("2026-08-29", "gospel")
	tests := []struct {
		name string
		resp *TriggerResponse
	}{
		{"error status", &TriggerResponse{Status: StatusError}},
		{"partial without key", &TriggerResponse{Status: StatusPartial, ProcessedKeys: []string{"other"}}},
		{"success without requested key", &TriggerResponse{Status: StatusSuccess, ProcessedKeys: []string{"2026-08-30:gospel"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &stubStore{data: timingFixture()}
			p := New(&stubTrigger{resp: tt.resp}, store, fastConfig())

			data, err := p.Get(context.Background(), key)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if data != nil {
				t.Error("expected miss for non-success acknowledgement")
			}
			if store.getCalls != 0 {
				t.Error("store must not be re-read without a success acknowledgement")
			}
		})
	}
}

func TestProvider_EmptyReReadIsAMiss(t *testing.T) {
	key := contentkey.New("2026-08-29", "gospel")
	trigger := &stubTrigger{resp: &TriggerResponse{
		Status:        StatusSuccess,
		ProcessedKeys: []string{key.String()},
	}}
	store := &stubStore{data: nil}
	p := New(trigger, store, fastConfig())

	data, err := p.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if data != nil {
		t.Error("expected miss when the store re-read finds nothing")
	}
	if store.getCalls != 1 {
		t.Errorf("store re-read %d times, want exactly 1 (no retries)", store.getCalls)
	}
}

func TestProvider_CallerCancellationPropagates(t *testing.T) {
	key := contentkey.New("2026-08-29", "gospel")
	trigger := &stubTrigger{block: true}
	p := New(trigger, &stubStore{}, fastConfig())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := p.Get(ctx, key)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestProvider_PutAndClearUnsupported(t *testing.T) {
	p := New(&stubTrigger{}, &stubStore{}, fastConfig())
	if err := p.Put(context.Background(), timingFixture()); !errors.Is(err, provider.ErrUnsupported) {
		t.Errorf("Put = %v, want ErrUnsupported", err)
	}
	if err := p.Clear(context.Background()); !errors.Is(err, provider.ErrUnsupported) {
		t.Errorf("Clear = %v, want ErrUnsupported", err)
	}
}
