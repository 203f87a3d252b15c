package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LedgerModeMemory keeps voter custody in process memory. Balances reset on
// restart, so it is only suitable for local runs and tests.
const LedgerModeMemory = "memory"

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string
	HTTPPort     string
	PostgresDSN  string
	ElectionSize int
	LedgerMode   string

	RelayBatchSize    int
	RelayPollInterval time.Duration
}

func Load() (Config, error) {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "rostrum"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	ledgerMode := strings.TrimSpace(os.Getenv("LEDGER_MODE"))
	if ledgerMode == "" {
		ledgerMode = LedgerModeMemory
	}
	if ledgerMode != LedgerModeMemory {
		return Config{}, fmt.Errorf("unsupported LEDGER_MODE %q", ledgerMode)
	}

	return Config{
		ServiceName:  service,
		HTTPPort:     port,
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		ElectionSize: envInt("ELECTION_SIZE", 21),
		LedgerMode:   ledgerMode,

		RelayBatchSize:    envInt("RELAY_BATCH_SIZE", 100),
		RelayPollInterval: envDuration("RELAY_POLL_INTERVAL", 2*time.Second),
	}, nil
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
