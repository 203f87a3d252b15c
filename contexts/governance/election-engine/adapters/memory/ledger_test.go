package memory

import (
	"context"
	"errors"
	"testing"
)

func TestLedgerTransferRoundTrip(t *testing.T) {
	ledger := NewLedger()
	ctx := context.Background()

	ledger.SetBalance("voter-1", 100)
	if err := ledger.TransferIn(ctx, "voter-1", 60); err != nil {
		t.Fatalf("transfer in failed: %v", err)
	}
	if got := ledger.Balance("voter-1"); got != 40 {
		t.Fatalf("balance after transfer in: got %d, want 40", got)
	}
	if got := ledger.CustodyBalance(); got != 60 {
		t.Fatalf("custody after transfer in: got %d, want 60", got)
	}

	if err := ledger.TransferOut(ctx, "voter-1", 60); err != nil {
		t.Fatalf("transfer out failed: %v", err)
	}
	if got := ledger.Balance("voter-1"); got != 100 {
		t.Fatalf("balance after round trip: got %d, want 100", got)
	}
	if got := ledger.CustodyBalance(); got != 0 {
		t.Fatalf("custody after round trip: got %d, want 0", got)
	}
}

func TestLedgerRejectsOverdraft(t *testing.T) {
	ledger := NewLedger()
	ctx := context.Background()

	ledger.SetBalance("voter-1", 10)
	if err := ledger.TransferIn(ctx, "voter-1", 11); err == nil {
		t.Fatalf("expected overdraft rejection")
	}
	if err := ledger.TransferOut(ctx, "voter-1", 1); err == nil {
		t.Fatalf("expected custody shortfall rejection")
	}
}

func TestLedgerInjectedFailure(t *testing.T) {
	ledger := NewLedger()
	ctx := context.Background()

	ledger.SetBalance("voter-1", 100)
	boom := errors.New("custody unreachable")
	ledger.Fail(boom)

	if err := ledger.TransferIn(ctx, "voter-1", 10); !errors.Is(err, boom) {
		t.Fatalf("expected injected failure, got %v", err)
	}
	if got := ledger.Balance("voter-1"); got != 100 {
		t.Fatalf("balance must be untouched by failed transfer, got %d", got)
	}
}
