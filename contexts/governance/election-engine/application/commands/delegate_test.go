package commands_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"rostrum/contexts/governance/election-engine/adapters/memory"
	"rostrum/contexts/governance/election-engine/application/commands"
	"rostrum/contexts/governance/election-engine/domain/entities"
	domainerrors "rostrum/contexts/governance/election-engine/domain/errors"
)

func TestLockMovesValueIntoCustodyAndTallies(t *testing.T) {
	e := newEngine(3)
	ctx := context.Background()

	key := e.etch(t, "alpha", "bravo")
	e.ledger.SetBalance("voter-1", 100)

	if err := e.delegations.Delegate(ctx, "voter-1", key); err != nil {
		t.Fatalf("delegate failed: %v", err)
	}
	if err := e.delegations.Lock(ctx, "voter-1", 30); err != nil {
		t.Fatalf("lock failed: %v", err)
	}

	if got := e.tally(t, "alpha"); got != 30 {
		t.Fatalf("alpha tally: got %d, want 30", got)
	}
	if got := e.tally(t, "bravo"); got != 30 {
		t.Fatalf("bravo tally: got %d, want 30", got)
	}
	if got := e.ledger.Balance("voter-1"); got != 70 {
		t.Fatalf("voter balance: got %d, want 70", got)
	}
	if got := e.ledger.CustodyBalance(); got != 30 {
		t.Fatalf("custody: got %d, want 30", got)
	}
}

func TestDelegateRelocatesFullWeightBetweenSlates(t *testing.T) {
	e := newEngine(3)
	ctx := context.Background()

	keyAB := e.etch(t, "alpha", "bravo")
	keyB := e.etch(t, "bravo")
	e.ledger.SetBalance("voter-1", 100)

	if err := e.delegations.Delegate(ctx, "voter-1", keyAB); err != nil {
		t.Fatalf("first delegate failed: %v", err)
	}
	if err := e.delegations.Lock(ctx, "voter-1", 40); err != nil {
		t.Fatalf("lock failed: %v", err)
	}
	if err := e.delegations.Delegate(ctx, "voter-1", keyB); err != nil {
		t.Fatalf("relocation failed: %v", err)
	}

	if got := e.tally(t, "alpha"); got != 0 {
		t.Fatalf("alpha tally after relocation: got %d, want 0", got)
	}
	if got := e.tally(t, "bravo"); got != 40 {
		t.Fatalf("bravo tally after relocation: got %d, want 40", got)
	}
}

func TestFreeReturnsValueAndSubtractsTallies(t *testing.T) {
	e := newEngine(3)
	ctx := context.Background()

	key := e.etch(t, "alpha")
	e.ledger.SetBalance("voter-1", 50)
	if err := e.delegations.Delegate(ctx, "voter-1", key); err != nil {
		t.Fatalf("delegate failed: %v", err)
	}
	if err := e.delegations.Lock(ctx, "voter-1", 50); err != nil {
		t.Fatalf("lock failed: %v", err)
	}
	if err := e.delegations.Free(ctx, "voter-1", 20); err != nil {
		t.Fatalf("free failed: %v", err)
	}

	if got := e.tally(t, "alpha"); got != 30 {
		t.Fatalf("alpha tally after free: got %d, want 30", got)
	}
	if got := e.ledger.Balance("voter-1"); got != 20 {
		t.Fatalf("voter balance after free: got %d, want 20", got)
	}
	voter, found, err := e.store.GetVoter(ctx, "voter-1")
	if err != nil || !found {
		t.Fatalf("voter lookup failed: found=%v err=%v", found, err)
	}
	if voter.Weight != 30 {
		t.Fatalf("voter weight after free: got %d, want 30", voter.Weight)
	}
}

func TestFreeRejectsAmountAboveLockedWeight(t *testing.T) {
	e := newEngine(3)
	ctx := context.Background()

	e.ledger.SetBalance("voter-1", 10)
	if err := e.delegations.Lock(ctx, "voter-1", 10); err != nil {
		t.Fatalf("lock failed: %v", err)
	}
	if err := e.delegations.Free(ctx, "voter-1", 11); !errors.Is(err, domainerrors.ErrInsufficientWeight) {
		t.Fatalf("expected insufficient weight error, got %v", err)
	}
	if got := e.ledger.CustodyBalance(); got != 10 {
		t.Fatalf("custody must be untouched by rejected free, got %d", got)
	}
}

func TestLockCommitsNothingWhenTransferFails(t *testing.T) {
	e := newEngine(3)
	ctx := context.Background()

	key := e.etch(t, "alpha")
	e.ledger.SetBalance("voter-1", 100)
	if err := e.delegations.Delegate(ctx, "voter-1", key); err != nil {
		t.Fatalf("delegate failed: %v", err)
	}

	e.ledger.Fail(errors.New("custody unreachable"))
	err := e.delegations.Lock(ctx, "voter-1", 25)
	if !errors.Is(err, domainerrors.ErrTransferFailed) {
		t.Fatalf("expected transfer failure, got %v", err)
	}

	if got := e.tally(t, "alpha"); got != 0 {
		t.Fatalf("tally must be untouched after failed transfer, got %d", got)
	}
	voter, found, err := e.store.GetVoter(ctx, "voter-1")
	if err != nil {
		t.Fatalf("voter lookup failed: %v", err)
	}
	if found && voter.Weight != 0 {
		t.Fatalf("voter weight must be untouched after failed transfer, got %d", voter.Weight)
	}
}

func TestLockRejectsInsufficientLedgerBalance(t *testing.T) {
	e := newEngine(3)
	ctx := context.Background()

	e.ledger.SetBalance("voter-1", 5)
	if err := e.delegations.Lock(ctx, "voter-1", 10); !errors.Is(err, domainerrors.ErrTransferFailed) {
		t.Fatalf("expected transfer failure for short balance, got %v", err)
	}
}

func TestDelegateRejectsUnknownSlate(t *testing.T) {
	e := newEngine(3)

	err := e.delegations.Delegate(context.Background(), "voter-1", "no-such-key")
	if !errors.Is(err, domainerrors.ErrUnknownSlate) {
		t.Fatalf("expected unknown slate error, got %v", err)
	}
}

func TestLockAndFreeRejectZeroAmount(t *testing.T) {
	e := newEngine(3)
	ctx := context.Background()

	if err := e.delegations.Lock(ctx, "voter-1", 0); !errors.Is(err, domainerrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input for zero lock, got %v", err)
	}
	if err := e.delegations.Free(ctx, "voter-1", 0); !errors.Is(err, domainerrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input for zero free, got %v", err)
	}
}

func TestWeightIsConservedAcrossSlateCandidates(t *testing.T) {
	e := newEngine(3)
	ctx := context.Background()

	keyABC := e.etch(t, "alpha", "bravo", "charlie")
	keyC := e.etch(t, "charlie")
	e.ledger.SetBalance("voter-1", 60)

	if err := e.delegations.Delegate(ctx, "voter-1", keyABC); err != nil {
		t.Fatalf("delegate failed: %v", err)
	}
	if err := e.delegations.Lock(ctx, "voter-1", 60); err != nil {
		t.Fatalf("lock failed: %v", err)
	}
	if err := e.delegations.Delegate(ctx, "voter-1", keyC); err != nil {
		t.Fatalf("relocation failed: %v", err)
	}
	if err := e.delegations.Free(ctx, "voter-1", 60); err != nil {
		t.Fatalf("free failed: %v", err)
	}

	for _, candidate := range []string{"alpha", "bravo", "charlie"} {
		if got := e.tally(t, entities.CandidateID(candidate)); got != 0 {
			t.Fatalf("%s tally must return to zero, got %d", candidate, got)
		}
	}
	if got := e.ledger.Balance("voter-1"); got != 60 {
		t.Fatalf("full round trip must restore the balance, got %d", got)
	}
}

// failingTallies wraps the in-memory tally store and rejects writes for one
// candidate, standing in for a storage error in the middle of a command.
type failingTallies struct {
	*memory.Store
	reject entities.CandidateID
}

func (f failingTallies) AddTally(ctx context.Context, candidate entities.CandidateID, amount uint64) error {
	if candidate == f.reject {
		return errors.New("tally write rejected")
	}
	return f.Store.AddTally(ctx, candidate, amount)
}

func TestDelegateUnwindsWritesWhenTallyStoreFails(t *testing.T) {
	store := memory.NewStore(3)
	ledger := memory.NewLedger()
	slates := commands.SlateUseCase{Slates: store, Clock: store}
	delegations := commands.DelegationUseCase{
		Commit:  &sync.Mutex{},
		Tx:      store,
		Slates:  store,
		Voters:  store,
		Tallies: failingTallies{Store: store, reject: "bravo"},
		Ledger:  ledger,
		Outbox:  store,
		Clock:   store,
		IDGen:   store,
	}
	ctx := context.Background()

	alphaKey, err := slates.Etch(ctx, []entities.CandidateID{"alpha"})
	if err != nil {
		t.Fatalf("etch alpha slate failed: %v", err)
	}
	bravoKey, err := slates.Etch(ctx, []entities.CandidateID{"bravo"})
	if err != nil {
		t.Fatalf("etch bravo slate failed: %v", err)
	}
	ledger.SetBalance("voter-1", 40)
	if err := delegations.Delegate(ctx, "voter-1", alphaKey); err != nil {
		t.Fatalf("delegate failed: %v", err)
	}
	if err := delegations.Lock(ctx, "voter-1", 40); err != nil {
		t.Fatalf("lock failed: %v", err)
	}

	// The redelegation subtracts from alpha before the bravo write fails, so
	// surviving state proves the whole sequence rolled back together.
	if err := delegations.Delegate(ctx, "voter-1", bravoKey); err == nil {
		t.Fatalf("expected delegate to fail on tally write")
	}

	votes, err := store.GetTally(ctx, "alpha")
	if err != nil || votes != 40 {
		t.Fatalf("alpha tally after failed delegate: got %d err=%v, want 40", votes, err)
	}
	votes, err = store.GetTally(ctx, "bravo")
	if err != nil || votes != 0 {
		t.Fatalf("bravo tally after failed delegate: got %d err=%v, want 0", votes, err)
	}
	voter, found, err := store.GetVoter(ctx, "voter-1")
	if err != nil || !found {
		t.Fatalf("voter lookup failed: found=%v err=%v", found, err)
	}
	if voter.SlateKey != alphaKey {
		t.Fatalf("voter slate after failed delegate: got %q, want %q", voter.SlateKey, alphaKey)
	}
	if voter.Weight != 40 {
		t.Fatalf("voter weight after failed delegate: got %d, want 40", voter.Weight)
	}
}
