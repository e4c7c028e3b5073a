// Package config provides configuration for the chat service.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Mode selects how assistant replies are produced.
type Mode string

const (
	// ModeDirect streams chat-completion deltas straight to the caller.
	ModeDirect Mode = "direct"
	// ModeRun queues an assistant run on a provider thread and polls it.
	ModeRun Mode = "run"
)

// DefaultSystemPrompt is the assistant instruction used when SYSTEM_PROMPT is
// not set.
const DefaultSystemPrompt = "Las respuestas que das son cortas y claras, eres una IA de la universidad UNIMINUTO de la sede de Zipaquirá, por lo cual, sólo puedes dar información relacionada con la UNIMINUTO de la sede de Zipaquirá sin nombrar ninguna otra universidad. Te llamas Minuni, siempre que des respuestas, lo vas a hacer de una forma amigable también usando emojis."

// Config holds the service configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// Azure OpenAI
	Endpoint   string
	APIKey     string
	APIVersion string
	Deployment string
	// AssistantID is required in run mode.
	AssistantID string

	// Assistant invocation
	Mode         Mode
	SystemPrompt string
	Temperature  float64

	// Timeouts
	RunPollInterval time.Duration
	RunTimeout      time.Duration
	LLMTimeout      time.Duration

	// Turn admission
	MaxInputRunes int

	// Logging
	LogLevel slog.Level
	LogFile  string
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		HTTPPort:        getEnvInt("HTTP_PORT", 8000),
		DatabaseURL:     getEnv("DATABASE_URL", "file:minuni.db?cache=shared&mode=rwc"),
		Endpoint:        getEnv("AZURE_OPEN_AI_ENDPOINT", ""),
		APIKey:          getEnv("AZURE_OPEN_AI_API_KEY", ""),
		APIVersion:      getEnv("AZURE_OPEN_AI_API_VERSION", "2024-05-01-preview"),
		Deployment:      getEnv("AZURE_OPEN_AI_DEPLOYMENT_MODEL", ""),
		AssistantID:     getEnv("AZURE_OPEN_AI_ASSISTANT_ID", ""),
		Mode:            parseMode(getEnv("ASSISTANT_MODE", "direct")),
		SystemPrompt:    getEnv("SYSTEM_PROMPT", DefaultSystemPrompt),
		Temperature:     getEnvFloat("LLM_TEMPERATURE", 0.7),
		RunPollInterval: time.Duration(getEnvInt("RUN_POLL_INTERVAL_MS", 1000)) * time.Millisecond,
		RunTimeout:      time.Duration(getEnvInt("RUN_TIMEOUT_MS", 120000)) * time.Millisecond,
		LLMTimeout:      time.Duration(getEnvInt("LLM_TIMEOUT_MS", 300000)) * time.Millisecond,
		MaxInputRunes:   getEnvInt("MAX_INPUT_RUNES", 4000),
		LogLevel:        parseLogLevel(getEnv("LOG_LEVEL", "INFO")),
		LogFile:         getEnv("LOG_FILE", "minuni-api.log"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func parseMode(s string) Mode {
	if strings.EqualFold(s, string(ModeRun)) {
		return ModeRun
	}
	return ModeDirect
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
