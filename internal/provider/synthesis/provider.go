// Package synthesis implements the on-demand synthesis fallback tier: the
// last resort of the provider chain when neither cache holds timing data.
//
// The synthesis backend and the authoritative store are decoupled services;
// the backend writes its result to the store asynchronously, and that write
// may race the HTTP response. The provider therefore never trusts the
// trigger response payload as canonical: it waits a short settling delay and
// performs exactly one re-read of the authoritative store.
package synthesis

import (
	"context"
	"errors"
	"time"

	"reading-timing-service/internal/contentkey"
	"reading-timing-service/internal/models"
	"reading-timing-service/internal/observability/logging"
	"reading-timing-service/internal/observability/metrics"
	"reading-timing-service/internal/provider"
)

const tierName = "synthesis-fallback"

// Trigger request statuses understood from the backend.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusError   = "error"
)

// TriggerRequest asks the synthesis backend to generate timing data for one
// content key.
type TriggerRequest struct {
	ContentKey      string  `json:"contentKey"`
	VoiceID         string  `json:"voiceId"`
	Speed           float64 `json:"speed"`
	ForceRegenerate bool    `json:"forceRegenerate"`
}

// TriggerResponse is the backend's synchronous acknowledgement. The actual
// timing data lands in the authoritative store out-of-band.
type TriggerResponse struct {
	Status        string   `json:"status"`
	ProcessedKeys []string `json:"processedKeys"`
}

// TriggerClient sends synthesis requests to the backend.
type TriggerClient interface {
	Trigger(ctx context.Context, req TriggerRequest) (*TriggerResponse, error)
}

// Config holds synthesis fallback settings.
type Config struct {
	// Timeout bounds the trigger call; the in-flight request is cancelled
	// when it elapses (default 30s).
	Timeout time.Duration
	// SettleDelay is how long to wait before the single store re-read,
	// giving the backend's asynchronous write time to land.
	SettleDelay time.Duration
	// VoiceID and Speed are the synthesis parameters sent with every trigger.
	VoiceID string
	Speed   float64
}

// DefaultConfig returns the production synthesis fallback defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:     30 * time.Second,
		SettleDelay: 2 * time.Second,
		VoiceID:     "en-US-Neutral",
		Speed:       1.0,
	}
}

// Provider is the synthesis fallback tier. Get triggers synthesis and
// re-reads the authoritative store; it never retries beyond that single
// bounded re-read.
type Provider struct {
	trigger TriggerClient
	store   provider.Provider
	cfg     Config
	metrics *metrics.Metrics
}

var _ provider.Provider = (*Provider)(nil)

// New creates the synthesis fallback tier. store is the authoritative-store
// provider to re-read after a successful trigger.
func New(trigger TriggerClient, store provider.Provider, cfg Config) *Provider {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.SettleDelay < 0 {
		cfg.SettleDelay = def.SettleDelay
	}
	if cfg.VoiceID == "" {
		cfg.VoiceID = def.VoiceID
	}
	if cfg.Speed == 0 {
		cfg.Speed = def.Speed
	}
	return &Provider{
		trigger: trigger,
		store:   store,
		cfg:     cfg,
		metrics: metrics.DefaultMetrics,
	}
}

// Name identifies the tier.
func (p *Provider) Name() string {
	return tierName
}

// Get runs one synthesis attempt for the key. Timeouts and transport
// failures come back as (nil, nil) after being logged, so the Composite
// provider degrades to a no-data outcome instead of failing the caller.
// Cancellation of the caller's context is the one condition that propagates.
func (p *Provider) Get(ctx context.Context, key contentkey.Key) (*models.SentenceTimingData, error) {
	lc := NewLifecycle(key.String())
	if err := lc.Begin(); err != nil {
		return nil, err
	}
	start := time.Now()
	log := logging.WithTier(tierName, key.String())

	tctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	resp, err := p.trigger.Trigger(tctx, TriggerRequest{
		ContentKey: key.String(),
		VoiceID:    p.cfg.VoiceID,
		Speed:      p.cfg.Speed,
	})
	if err != nil {
		if ctx.Err() != nil {
			// The caller walked away; this is cooperative cancellation,
			// not a synthesis outcome.
			lc.Fail()
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			lc.Timeout()
			p.metrics.RecordSynthesis(lc.State().String(), time.Since(start))
			log.Warn().Dur("timeout", p.cfg.Timeout).Msg("Synthesis request timed out")
			return nil, nil
		}
		lc.Fail()
		p.metrics.RecordSynthesis(lc.State().String(), time.Since(start))
		log.Warn().Err(err).Msg("Synthesis trigger failed")
		return nil, nil
	}

	if resp.Status != StatusSuccess || !containsKey(resp.ProcessedKeys, key.String()) {
		lc.Fail()
		p.metrics.RecordSynthesis(lc.State().String(), time.Since(start))
		log.Warn().
			Str("status", resp.Status).
			Strs("processedKeys", resp.ProcessedKeys).
			Msg("Synthesis backend did not process the requested key")
		return nil, nil
	}

	// Let the backend's asynchronous store write land before the re-read.
	if p.cfg.SettleDelay > 0 {
		select {
		case <-time.After(p.cfg.SettleDelay):
		case <-ctx.Done():
			lc.Fail()
			return nil, ctx.Err()
		}
	}

	data, err := p.store.Get(ctx, key)
	if err != nil {
		lc.Fail()
		p.metrics.RecordSynthesis(lc.State().String(), time.Since(start))
		log.Warn().Err(err).Msg("Store re-read after synthesis failed")
		return nil, nil
	}
	if data == nil {
		lc.Fail()
		p.metrics.RecordSynthesis(lc.State().String(), time.Since(start))
		log.Warn().Msg("Synthesis reported success but the store has no data")
		return nil, nil
	}

	lc.Complete()
	p.metrics.RecordSynthesis(lc.State().String(), time.Since(start))
	log.Info().
		Uint64("durationMs", data.DurationMs).
		Int("words", len(data.Words)).
		Msg("Synthesis fallback produced timing data")
	return data, nil
}

// Put is not supported: synthesis results become durable through the
// backend's own store write, never through this tier.
func (p *Provider) Put(ctx context.Context, data *models.SentenceTimingData) error {
	return provider.ErrUnsupported
}

// Clear is not supported.
func (p *Provider) Clear(ctx context.Context) error {
	return provider.ErrUnsupported
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
