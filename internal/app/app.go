// Package app wires the service's components together.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"reading-timing-service/internal/config"
	"reading-timing-service/internal/events"
	"reading-timing-service/internal/observability/logging"
	"reading-timing-service/internal/provider"
	"reading-timing-service/internal/provider/localcache"
	"reading-timing-service/internal/provider/store"
	storefirestore "reading-timing-service/internal/provider/store/firestore"
	"reading-timing-service/internal/provider/synthesis"
	"reading-timing-service/internal/service/generation"
	"reading-timing-service/internal/timing"
	"reading-timing-service/internal/tts"
	ttsmock "reading-timing-service/internal/tts/mock"
	ttsremote "reading-timing-service/internal/tts/remote"
)

// Application holds process-wide state. Every provider tier is constructed
// exactly once here and shared; request handlers never build their own.
type Application struct {
	StartupTime time.Time
	Cfg         *config.Config

	Cache     *localcache.Cache
	Provider  *provider.Composite
	Generator *generation.Generator
	Publisher *events.Publisher

	firestoreClient *storefirestore.Client
	sweepCancel     context.CancelFunc
	sweepDone       chan struct{}
}

// New constructs the application from configuration. It opens the local
// cache, connects the authoritative store when enabled, and assembles the
// fallback chain and generation pipeline.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	logging.Init(logging.Config{
		Level:      cfg.Observability.LogLevel,
		Format:     cfg.Observability.LogFormat,
		TimeFormat: time.RFC3339,
	})

	a := &Application{Cfg: cfg}

	cache, err := localcache.Open(localcache.Config{
		Path:            cfg.Cache.Path,
		TTL:             cfg.Cache.TTL,
		ItemBudgetBytes: cfg.Cache.ItemBudgetBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("open local cache: %w", err)
	}
	a.Cache = cache

	var storeTier *store.Provider
	if cfg.Store.Enabled {
		fs, err := storefirestore.New(ctx, storefirestore.Config{
			ProjectID:       cfg.Store.ProjectID,
			Collection:      cfg.Store.Collection,
			CredentialsFile: cfg.Store.CredentialsFile,
		})
		if err != nil {
			cache.Close()
			return nil, fmt.Errorf("connect authoritative store: %w", err)
		}
		a.firestoreClient = fs
		storeTier = store.New(fs)
	} else {
		log.Info().Msg("Authoritative store disabled, serving from local cache only")
	}

	// The synthesis fallback needs the store to re-read after triggering.
	var synthTier *synthesis.Provider
	if cfg.Synthesis.Endpoint != "" && storeTier != nil {
		trigger := synthesis.NewHTTPTrigger(cfg.Synthesis.Endpoint, cfg.Synthesis.APIKey)
		synthTier = synthesis.New(trigger, storeTier, synthesis.Config{
			Timeout:     cfg.Synthesis.Timeout,
			SettleDelay: cfg.Synthesis.SettleDelay,
			VoiceID:     cfg.Synthesis.VoiceID,
			Speed:       cfg.Synthesis.Speed,
		})
	}

	// nil tiers are skipped by the chain.
	var storeP, synthP provider.Provider
	if storeTier != nil {
		storeP = storeTier
	}
	if synthTier != nil {
		synthP = synthTier
	}
	a.Provider = provider.NewComposite(cache, storeP, synthP)

	a.Publisher = events.New(&events.Config{
		Brokers:        cfg.Kafka.Brokers,
		TopicGenerated: cfg.Kafka.TopicGenerated,
		TopicMissed:    cfg.Kafka.TopicMissed,
		Principal:      cfg.Kafka.Principal,
		Enabled:        cfg.Kafka.Enabled,
	})

	var synthesizer tts.Synthesizer
	switch cfg.TTS.Provider {
	case "remote":
		synthesizer = ttsremote.New(ttsremote.Config{
			Endpoint:   cfg.TTS.Endpoint,
			APIKey:     cfg.TTS.APIKey,
			Provider:   "remote",
			TicksPerMs: float64(cfg.TTS.TicksPerMs),
		})
	default:
		if cfg.TTS.Provider != "mock" {
			log.Warn().Str("provider", cfg.TTS.Provider).Msg("Unknown TTS provider, falling back to mock")
		}
		synthesizer = ttsmock.New()
	}

	reconstructor := timing.New(timing.Config{
		TicksPerMs:     float64(cfg.Timing.TicksPerMs),
		DefaultTailMs:  cfg.Timing.DefaultTailMs,
		WordsPerMinute: float64(cfg.Timing.WordsPerMinute),
	})

	// The generator's existence check must not fall through to the
	// synthesis tier, so it gets a chain without it. The tiers themselves
	// are shared.
	lookupChain := provider.NewComposite(cache, storeP, nil)
	a.Generator = generation.New(synthesizer, reconstructor, lookupChain, a.Publisher,
		cfg.Synthesis.VoiceID, cfg.Synthesis.Speed)

	log.Info().
		Bool("storeEnabled", cfg.Store.Enabled).
		Bool("synthesisEnabled", synthTier != nil).
		Str("ttsProvider", cfg.TTS.Provider).
		Msg("Application wired")
	return a, nil
}

// Start records startup time and launches the periodic cache sweep.
func (a *Application) Start() {
	a.StartupTime = time.Now().UTC()

	ctx, cancel := context.WithCancel(context.Background())
	a.sweepCancel = cancel
	a.sweepDone = make(chan struct{})
	go a.sweepLoop(ctx)

	log.Info().
		Time("startupTime", a.StartupTime).
		Dur("sweepInterval", a.Cfg.Cache.SweepInterval).
		Msg("Reading timing service started")
}

// sweepLoop evicts expired cache entries on a fixed interval.
func (a *Application) sweepLoop(ctx context.Context) {
	defer close(a.sweepDone)

	interval := a.Cfg.Cache.SweepInterval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := a.Cache.SweepExpired(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("Cache sweep failed")
				continue
			}
			if removed > 0 {
				log.Info().Int("removed", removed).Msg("Cache sweep completed")
			}
		}
	}
}

// Ready reports whether the service can serve lookups.
func (a *Application) Ready() bool {
	return a.Cache != nil
}

// Shutdown stops background work and releases all resources.
func (a *Application) Shutdown(ctx context.Context) {
	log.Info().Msg("Reading timing service shutting down")

	if a.sweepCancel != nil {
		a.sweepCancel()
		select {
		case <-a.sweepDone:
		case <-ctx.Done():
		}
	}

	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing event publisher")
		}
	}
	if a.firestoreClient != nil {
		if err := a.firestoreClient.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing store client")
		}
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing local cache")
		}
	}
}
