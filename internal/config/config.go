// Package config loads runtime configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the session core.
type Config struct {
	Observability ObservabilityConfig
	Playback      PlaybackConfig
	Transcription TranscriptionConfig
	Kafka         KafkaConfig
	Redis         RedisConfig
}

// ObservabilityConfig holds logging configuration.
type ObservabilityConfig struct {
	LogLevel  string // debug, info, warn, error
	LogFormat string // json, console
}

// PlaybackConfig holds playback engine tuning.
type PlaybackConfig struct {
	SkipForward          time.Duration // relative forward seek step
	SkipBackward         time.Duration // relative backward seek step
	PositionInterval     time.Duration // position observation cadence
	DurationPollInterval time.Duration // duration resolution poll interval
	DurationPollTimeout  time.Duration // give up on duration after this
}

// TranscriptionConfig holds transcription pipeline settings.
type TranscriptionConfig struct {
	EnvironmentLocale string // preferred locale, derived from LANG when unset
	FallbackLocale    string // tried when the environment locale is unsupported
}

// KafkaConfig holds transcript event publishing settings.
type KafkaConfig struct {
	Enabled      bool
	Brokers      []string
	TopicPartial string
	TopicFinal   string
	Producer     string
}

// RedisConfig holds transcript store backend settings.
type RedisConfig struct {
	Addr      string
	KeyPrefix string
}

// Load reads configuration from the environment, consulting a .env file
// when one is present. Invalid values fall back to defaults.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Observability: ObservabilityConfig{
			LogLevel:  envOrDefault("LOG_LEVEL", "info"),
			LogFormat: envOrDefault("LOG_FORMAT", "json"),
		},
		Playback: PlaybackConfig{
			SkipForward:          envOrDefaultDuration("SKIP_FORWARD", 30*time.Second),
			SkipBackward:         envOrDefaultDuration("SKIP_BACKWARD", 15*time.Second),
			PositionInterval:     envOrDefaultDuration("POSITION_INTERVAL", 500*time.Millisecond),
			DurationPollInterval: envOrDefaultDuration("DURATION_POLL_INTERVAL", 250*time.Millisecond),
			DurationPollTimeout:  envOrDefaultDuration("DURATION_POLL_TIMEOUT", 15*time.Second),
		},
		Transcription: TranscriptionConfig{
			EnvironmentLocale: envOrDefault("LOCALE", localeFromLang()),
			FallbackLocale:    envOrDefault("FALLBACK_LOCALE", "en-US"),
		},
		Kafka: KafkaConfig{
			Enabled:      envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:      envOrDefaultList("KAFKA_BROKERS", nil),
			TopicPartial: envOrDefault("KAFKA_TOPIC_PARTIAL", "episode.transcript.segment"),
			TopicFinal:   envOrDefault("KAFKA_TOPIC_FINAL", "episode.transcript.done"),
			Producer:     envOrDefault("KAFKA_PRODUCER", "podcast-session-core"),
		},
		Redis: RedisConfig{
			Addr:      envOrDefault("REDIS_ADDR", ""),
			KeyPrefix: envOrDefault("REDIS_KEY_PREFIX", "transcripts"),
		},
	}
}

// localeFromLang converts a POSIX LANG value such as "en_US.UTF-8" into a
// BCP-47 tag such as "en-US". Returns empty when LANG is unset or "C".
func localeFromLang() string {
	lang := os.Getenv("LANG")
	if i := strings.IndexByte(lang, '.'); i >= 0 {
		lang = lang[:i]
	}
	if lang == "" || lang == "C" || lang == "POSIX" {
		return ""
	}
	return strings.ReplaceAll(lang, "_", "-")
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		return def
	}
	return parsed
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := time.ParseDuration(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
