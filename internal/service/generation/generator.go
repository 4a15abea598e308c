// Package generation coordinates synthesis, boundary reconstruction and
// persistence for newly generated timing data.
package generation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"reading-timing-service/internal/contentkey"
	"reading-timing-service/internal/events"
	"reading-timing-service/internal/models"
	"reading-timing-service/internal/observability/logging"
	"reading-timing-service/internal/observability/metrics"
	"reading-timing-service/internal/timing"
	"reading-timing-service/internal/tts"
)

// Repository is the persistence surface the generator needs. Lookups must
// not trigger on-demand synthesis; the generator is the one doing the work.
type Repository interface {
	GetTimingData(ctx context.Context, key contentkey.Key) (*models.SentenceTimingData, error)
	SaveTimingData(ctx context.Context, data *models.SentenceTimingData) error
}

// Request describes one generation job.
type Request struct {
	Date        string
	ReadingType string
	Text        string
	Reference   string
	VoiceID     string
	Speed       float64
	Force       bool
}

// Generator runs the synthesize-reconstruct-persist pipeline.
type Generator struct {
	synth         tts.Synthesizer
	reconstructor *timing.Reconstructor
	repo          Repository
	publisher     *events.Publisher

	defaultVoice string
	defaultSpeed float64

	metrics *metrics.Metrics
}

// New creates a generator. The publisher may be nil, in which case no
// lifecycle events are emitted.
func New(synth tts.Synthesizer, reconstructor *timing.Reconstructor, repo Repository, publisher *events.Publisher, defaultVoice string, defaultSpeed float64) *Generator {
	if defaultSpeed == 0 {
		defaultSpeed = 1.0
	}
	return &Generator{
		synth:         synth,
		reconstructor: reconstructor,
		repo:          repo,
		publisher:     publisher,
		defaultVoice:  defaultVoice,
		defaultSpeed:  defaultSpeed,
		metrics:       metrics.DefaultMetrics,
	}
}

// Generate synthesizes audio for the request text, reconstructs word
// boundaries from the synthesizer's events and persists the result. If
// timing data already exists for the key and Force is not set, the existing
// data is returned untouched.
func (g *Generator) Generate(ctx context.Context, req Request) (*models.SentenceTimingData, error) {
	key := contentkey.New(req.Date, req.ReadingType)
	if !key.Valid() {
		return nil, fmt.Errorf("invalid content key: date=%q readingType=%q", req.Date, req.ReadingType)
	}
	if req.Text == "" {
		return nil, fmt.Errorf("empty text for %s", key)
	}

	logger := logging.WithReading(key.Date, key.ReadingType)

	if !req.Force {
		existing, err := g.repo.GetTimingData(ctx, key)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			logger.Debug().Msg("Timing data already present, skipping generation")
			return existing, nil
		}
	}

	voice := req.VoiceID
	if voice == "" {
		voice = g.defaultVoice
	}
	speed := req.Speed
	if speed == 0 {
		speed = g.defaultSpeed
	}

	result, err := g.synth.Synthesize(ctx, req.Text, voice, speed)
	if err != nil {
		g.publishMissed(key, "synthesis")
		return nil, fmt.Errorf("synthesis failed for %s: %w", key, err)
	}

	words, durationMs, err := g.reconstructorFor(result).Reconstruct(req.Text, result.Events, result.DurationMs, speed)
	if err != nil {
		g.metrics.RecordReconstruction("boundary", true)
		g.publishMissed(key, "reconstruction")
		return nil, fmt.Errorf("boundary reconstruction failed for %s: %w", key, err)
	}
	source := "boundary"
	if len(result.Events) < len(words) {
		source = "estimated"
	}
	g.metrics.RecordReconstruction(source, false)

	data := &models.SentenceTimingData{
		ReadingID:   uuid.New().String(),
		Text:        req.Text,
		ReadingType: key.ReadingType,
		Date:        key.Date,
		Reference:   req.Reference,
		Words:       words,
		DurationMs:  durationMs,
		AudioURL:    result.AudioRef,
		TTSProvider: result.Provider,
		Voice:       result.VoiceID,
		Speed:       speed,
		GeneratedAt: time.Now().UTC(),
		Version:     models.SchemaVersion,
	}
	data.Checksum = data.ComputeChecksum()

	if err := g.repo.SaveTimingData(ctx, data); err != nil {
		g.publishMissed(key, "persistence")
		return nil, fmt.Errorf("persisting timing data for %s: %w", key, err)
	}

	logger.Info().
		Int("wordCount", len(words)).
		Uint64("durationMs", durationMs).
		Str("source", source).
		Msg("Timing data generated")

	g.publishGenerated(key, data)
	return data, nil
}

// reconstructorFor returns a reconstructor matching the synthesizer's tick
// resolution when it differs from the configured default.
func (g *Generator) reconstructorFor(result *tts.Result) *timing.Reconstructor {
	cfg := g.reconstructor.Config()
	if result.TicksPerMs == 0 || result.TicksPerMs == cfg.TicksPerMs {
		return g.reconstructor
	}
	cfg.TicksPerMs = result.TicksPerMs
	return timing.New(cfg)
}

func (g *Generator) publishGenerated(key contentkey.Key, data *models.SentenceTimingData) {
	if g.publisher == nil {
		return
	}
	ev := models.TimingGenerated{
		EventType:   "timing.generated",
		ContentKey:  key.String(),
		Date:        key.Date,
		ReadingType: key.ReadingType,
		DurationMs:  data.DurationMs,
		WordCount:   len(data.Words),
		TTSProvider: data.TTSProvider,
		Voice:       data.Voice,
		Timestamp:   time.Now().UnixMilli(),
	}
	if err := g.publisher.PublishGenerated(context.Background(), key.String(), ev); err != nil {
		logger := logging.WithContentKey(key.String())
		logger.Warn().Err(err).Msg("Failed to publish generated event")
	}
}

func (g *Generator) publishMissed(key contentkey.Key, stage string) {
	if g.publisher == nil {
		return
	}
	ev := models.TimingMissed{
		EventType:  "timing.missed",
		ContentKey: key.String(),
		Stage:      stage,
		Timestamp:  time.Now().UnixMilli(),
	}
	if err := g.publisher.PublishMissed(context.Background(), key.String(), ev); err != nil {
		logger := logging.WithContentKey(key.String())
		logger.Warn().Err(err).Msg("Failed to publish missed event")
	}
}
