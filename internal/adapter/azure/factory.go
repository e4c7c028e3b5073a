package azure

import (
	"log/slog"
	"os"
)

const (
	// EnvMinuniMode is the environment variable name for mode selection.
	EnvMinuniMode = "MINUNI_MODE"
	// ModeMock indicates the in-memory provider should be used.
	ModeMock = "MOCK"
)

// NewProvider creates a provider based on the MINUNI_MODE environment
// variable. MINUNI_MODE=MOCK returns the in-memory provider; otherwise the
// real Azure client.
func NewProvider(opts ClientOptions, logger *slog.Logger) Provider {
	if os.Getenv(EnvMinuniMode) == ModeMock {
		logger.Info("MINUNI_MODE=MOCK detected, using mock provider")
		return NewMockProvider()
	}
	return NewClient(opts)
}
