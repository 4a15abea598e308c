// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the full service configuration.
type Config struct {
	Service       ServiceConfig
	Cache         CacheConfig
	Store         StoreConfig
	Synthesis     SynthesisConfig
	TTS           TTSConfig
	Timing        TimingConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
}

// ServiceConfig holds service identity and listen configuration.
type ServiceConfig struct {
	Principal   string
	HTTPPort    string
	MetricsPort string
}

// CacheConfig holds local cache configuration.
type CacheConfig struct {
	Path            string
	TTL             time.Duration
	ItemBudgetBytes int
	SweepInterval   time.Duration
}

// StoreConfig holds authoritative store configuration.
type StoreConfig struct {
	Enabled         bool
	ProjectID       string
	Collection      string
	CredentialsFile string
}

// SynthesisConfig holds on-demand synthesis fallback configuration.
type SynthesisConfig struct {
	Endpoint    string
	APIKey      string
	Timeout     time.Duration
	SettleDelay time.Duration
	VoiceID     string
	Speed       float64
}

// TTSConfig holds text-to-speech synthesizer configuration.
type TTSConfig struct {
	Provider   string // mock, remote
	Endpoint   string
	APIKey     string
	TicksPerMs uint64
}

// TimingConfig holds boundary reconstruction configuration.
type TimingConfig struct {
	TicksPerMs     uint64
	DefaultTailMs  uint64
	WordsPerMinute uint64
}

// KafkaConfig holds event publishing configuration.
type KafkaConfig struct {
	Enabled        bool
	Brokers        []string
	TopicGenerated string
	TopicMissed    string
	Principal      string
}

// ObservabilityConfig holds logging configuration.
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables, falling back to
// defaults for unset or invalid values.
func Load() *Config {
	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-reading-timing")

	return &Config{
		Service: ServiceConfig{
			Principal:   principal,
			HTTPPort:    envOrDefault("HTTP_PORT", "8080"),
			MetricsPort: envOrDefault("METRICS_PORT", "9090"),
		},
		Cache: CacheConfig{
			Path:            envOrDefault("CACHE_PATH", "data/timings.db"),
			TTL:             envOrDefaultDuration("CACHE_TTL", 7*24*time.Hour),
			ItemBudgetBytes: envOrDefaultInt("CACHE_ITEM_BUDGET_BYTES", 256*1024),
			SweepInterval:   envOrDefaultDuration("CACHE_SWEEP_INTERVAL", time.Hour),
		},
		Store: StoreConfig{
			Enabled:         envOrDefaultBool("STORE_ENABLED", false),
			ProjectID:       envOrDefault("STORE_PROJECT_ID", ""),
			Collection:      envOrDefault("STORE_COLLECTION", "timings"),
			CredentialsFile: envOrDefault("STORE_CREDENTIALS_FILE", ""),
		},
		Synthesis: SynthesisConfig{
			Endpoint:    envOrDefault("SYNTHESIS_ENDPOINT", ""),
			APIKey:      envOrDefault("SYNTHESIS_API_KEY", ""),
			Timeout:     envOrDefaultDuration("SYNTHESIS_TIMEOUT", 30*time.Second),
			SettleDelay: envOrDefaultDuration("SYNTHESIS_SETTLE_DELAY", 2*time.Second),
			VoiceID:     envOrDefault("SYNTHESIS_VOICE_ID", "en-US-JennyNeural"),
			Speed:       envOrDefaultFloat("SYNTHESIS_SPEED", 1.0),
		},
		TTS: TTSConfig{
			Provider:   envOrDefault("TTS_PROVIDER", "mock"),
			Endpoint:   envOrDefault("TTS_ENDPOINT", ""),
			APIKey:     envOrDefault("TTS_API_KEY", ""),
			TicksPerMs: envOrDefaultUint("TTS_TICKS_PER_MS", 10000),
		},
		Timing: TimingConfig{
			TicksPerMs:     envOrDefaultUint("TIMING_TICKS_PER_MS", 10000),
			DefaultTailMs:  envOrDefaultUint("TIMING_DEFAULT_TAIL_MS", 2000),
			WordsPerMinute: envOrDefaultUint("TIMING_WORDS_PER_MINUTE", 160),
		},
		Kafka: KafkaConfig{
			Enabled:        envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:        envOrDefaultSlice("KAFKA_BROKERS", nil),
			TopicGenerated: envOrDefault("KAFKA_TOPIC_GENERATED", "timing.generated"),
			TopicMissed:    envOrDefault("KAFKA_TOPIC_MISSED", "timing.missed"),
			Principal:      envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		Observability: ObservabilityConfig{
			LogLevel:  envOrDefault("LOG_LEVEL", "info"),
			LogFormat: envOrDefault("LOG_FORMAT", "json"),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultUint(key string, def uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.ToLower(v)); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envOrDefaultSlice(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return def
}
