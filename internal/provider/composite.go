package provider

import (
	"context"
	"fmt"

	"reading-timing-service/internal/contentkey"
	"reading-timing-service/internal/models"
	"reading-timing-service/internal/observability/logging"
	"reading-timing-service/internal/observability/metrics"
)

// Composite chains the three provider tiers in fixed order: local cache,
// authoritative store, synthesis fallback. It is the only provider the rest
// of the application talks to.
type Composite struct {
	cache Provider
	store Provider
	synth Provider

	metrics *metrics.Metrics
}

// NewComposite wires the fallback chain. Any tier may be nil, in which case
// that step is skipped; the cache tier is also the write-back target.
func NewComposite(cache, store, synth Provider) *Composite {
	return &Composite{
		cache:   cache,
		store:   store,
		synth:   synth,
		metrics: metrics.DefaultMetrics,
	}
}

// GetTimingData resolves timing data for the key through the fallback
// chain, short-circuiting on the first hit. Steps run strictly
// sequentially: a cheap hit must never pay for the expensive paths.
//
// A (nil, nil) result is the expected "no data available" outcome, not a
// failure; the rendering layer degrades to plain text. Errors are returned
// only for caller cancellation.
func (c *Composite) GetTimingData(ctx context.Context, key contentkey.Key) (*models.SentenceTimingData, error) {
	// Step 1: local cache. A hit never touches the network.
	if data, ok := c.consult(ctx, c.cache, key); ok {
		c.metrics.RecordFallback(1, true)
		return data, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Step 2: authoritative store, with write-back on hit.
	if data, ok := c.consult(ctx, c.store, key); ok {
		c.writeBack(ctx, key, data)
		c.metrics.RecordFallback(2, true)
		return data, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Step 3: synthesis fallback. The result is already durable (the
	// backend wrote it to the store); caching it locally is best-effort.
	if c.synth != nil {
		data, err := c.synth.Get(ctx, key)
		if err != nil {
			// The synthesis tier swallows its own failures; anything it
			// returns is caller cancellation.
			return nil, err
		}
		if data != nil {
			c.metrics.RecordTierHit(c.synth.Name())
			c.writeBack(ctx, key, data)
			c.metrics.RecordFallback(3, true)
			return data, nil
		}
		c.metrics.RecordTierMiss(c.synth.Name())
	}

	// All tiers missed: valid outcome, e.g. future content not yet generated.
	c.metrics.RecordFallback(3, false)
	logger := logging.WithContentKey(key.String())
	logger.Debug().Msg("No timing data available in any tier")
	return nil, nil
}

// SaveTimingData persists timing data to both cache tiers. The local write
// is fatal on failure, because it is the only durable copy available for
// offline use; the remote write is best-effort.
func (c *Composite) SaveTimingData(ctx context.Context, data *models.SentenceTimingData) error {
	if err := data.Validate(); err != nil {
		return fmt.Errorf("refusing to persist invalid timing data: %w", err)
	}

	key := contentkey.New(data.Date, data.ReadingType)
	if c.cache != nil {
		if err := c.cache.Put(ctx, data); err != nil {
			return fmt.Errorf("local cache write failed: %w", err)
		}
	}
	if c.store != nil {
		if err := c.store.Put(ctx, data); err != nil {
			logger := logging.WithTier(c.store.Name(), key.String())
			logger.Warn().Err(err).
				Msg("Remote store write failed; local cache copy is sufficient for this session")
		}
	}
	return nil
}

// consult asks one tier for the key. Tier failures are logged, counted and
// reported as a miss so the chain falls through.
func (c *Composite) consult(ctx context.Context, tier Provider, key contentkey.Key) (*models.SentenceTimingData, bool) {
	if tier == nil {
		return nil, false
	}
	data, err := tier.Get(ctx, key)
	if err != nil {
		c.metrics.RecordTierError(tier.Name())
		logger := logging.WithTier(tier.Name(), key.String())
		logger.Warn().Err(err).Msg("Tier lookup failed; treating as miss")
		return nil, false
	}
	if data == nil {
		c.metrics.RecordTierMiss(tier.Name())
		return nil, false
	}
	c.metrics.RecordTierHit(tier.Name())
	return data, true
}

// writeBack copies data fetched from a slower tier into the local cache.
// Failure is logged and swallowed, never surfaced.
func (c *Composite) writeBack(ctx context.Context, key contentkey.Key, data *models.SentenceTimingData) {
	if c.cache == nil {
		return
	}
	err := c.cache.Put(ctx, data)
	c.metrics.RecordWriteBack(err)
	if err != nil {
		logger := logging.WithTier(c.cache.Name(), key.String())
		logger.Warn().Err(err).Msg("Write-back failed")
	}
}
