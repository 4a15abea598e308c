// Command pregen walks the upcoming reading window and generates timing
// data for any reading that does not have it yet. It is meant to run on a
// schedule so that on-demand synthesis stays the exception.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"reading-timing-service/internal/app"
	"reading-timing-service/internal/config"
	"reading-timing-service/internal/service/generation"
)

// readingInput is one entry of the pregen manifest.
type readingInput struct {
	Date        string  `json:"date"`
	ReadingType string  `json:"readingType"`
	Text        string  `json:"text"`
	Reference   string  `json:"reference,omitempty"`
	VoiceID     string  `json:"voiceId,omitempty"`
	Speed       float64 `json:"speed,omitempty"`
}

func main() {
	var (
		inputPath  = flag.String("input", "readings.json", "path to the readings manifest")
		pastDays   = flag.Int("window-past", 7, "days before today to include")
		futureDays = flag.Int("window-future", 21, "days after today to include")
		force      = flag.Bool("force", false, "regenerate even when timing data exists")
		timeout    = flag.Duration("timeout", 10*time.Minute, "overall run deadline")
	)
	flag.Parse()

	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build application")
	}
	defer application.Shutdown(context.Background())

	raw, err := os.ReadFile(*inputPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *inputPath).Msg("Failed to read manifest")
	}
	var readings []readingInput
	if err := json.Unmarshal(raw, &readings); err != nil {
		log.Fatal().Err(err).Str("path", *inputPath).Msg("Failed to parse manifest")
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	windowStart := today.AddDate(0, 0, -*pastDays)
	windowEnd := today.AddDate(0, 0, *futureDays)

	var generated, skipped, failed int
	for _, r := range readings {
		date, err := time.Parse("2006-01-02", r.Date)
		if err != nil {
			log.Warn().Str("date", r.Date).Str("readingType", r.ReadingType).
				Msg("Skipping entry with unparseable date")
			failed++
			continue
		}
		if date.Before(windowStart) || date.After(windowEnd) {
			skipped++
			continue
		}

		data, err := application.Generator.Generate(ctx, generation.Request{
			Date:        r.Date,
			ReadingType: r.ReadingType,
			Text:        r.Text,
			Reference:   r.Reference,
			VoiceID:     r.VoiceID,
			Speed:       r.Speed,
			Force:       *force,
		})
		if err != nil {
			log.Error().Err(err).Str("date", r.Date).Str("readingType", r.ReadingType).
				Msg("Generation failed")
			failed++
			continue
		}
		log.Info().Str("date", r.Date).Str("readingType", r.ReadingType).
			Int("wordCount", len(data.Words)).Msg("Timing data ready")
		generated++
	}

	// Old entries age out on their own; one sweep here keeps the cache
	// from carrying them between scheduled runs.
	if removed, err := application.Cache.SweepExpired(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache sweep failed")
	} else if removed > 0 {
		log.Info().Int("removed", removed).Msg("Swept expired cache entries")
	}

	log.Info().
		Int("generated", generated).
		Int("skippedOutsideWindow", skipped).
		Int("failed", failed).
		Str("windowStart", windowStart.Format("2006-01-02")).
		Str("windowEnd", windowEnd.Format("2006-01-02")).
		Msg("Pregeneration run complete")

	if failed > 0 {
		os.Exit(1)
	}
}
