package config

import "testing"

func TestLoadDefaultsLedgerModeToMemory(t *testing.T) {
	t.Setenv("LEDGER_MODE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.LedgerMode != LedgerModeMemory {
		t.Fatalf("ledger mode: got %q, want %q", cfg.LedgerMode, LedgerModeMemory)
	}
}

func TestLoadRejectsUnknownLedgerMode(t *testing.T) {
	t.Setenv("LEDGER_MODE", "chain")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unsupported ledger mode")
	}
}

func TestLoadFallsBackOnInvalidNumbers(t *testing.T) {
	t.Setenv("ELECTION_SIZE", "not-a-number")
	t.Setenv("RELAY_BATCH_SIZE", "-5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.ElectionSize != 21 {
		t.Fatalf("election size: got %d, want 21", cfg.ElectionSize)
	}
	if cfg.RelayBatchSize != 100 {
		t.Fatalf("relay batch size: got %d, want 100", cfg.RelayBatchSize)
	}
}
