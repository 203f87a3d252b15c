package commands_test

import (
	"context"
	"sync"
	"testing"

	"rostrum/contexts/governance/election-engine/adapters/memory"
	"rostrum/contexts/governance/election-engine/application/commands"
	"rostrum/contexts/governance/election-engine/domain/entities"
)

type engine struct {
	store       *memory.Store
	ledger      *memory.Ledger
	slates      commands.SlateUseCase
	delegations commands.DelegationUseCase
	roster      commands.RosterUseCase
}

func newEngine(electionSize int) engine {
	store := memory.NewStore(electionSize)
	ledger := memory.NewLedger()
	commit := &sync.Mutex{}
	return engine{
		store:  store,
		ledger: ledger,
		slates: commands.SlateUseCase{
			Slates: store,
			Clock:  store,
		},
		delegations: commands.DelegationUseCase{
			Commit:  commit,
			Tx:      store,
			Slates:  store,
			Voters:  store,
			Tallies: store,
			Ledger:  ledger,
			Outbox:  store,
			Clock:   store,
			IDGen:   store,
		},
		roster: commands.RosterUseCase{
			Commit:  commit,
			Tx:      store,
			Roster:  store,
			Tallies: store,
			Outbox:  store,
			Clock:   store,
			IDGen:   store,
		},
	}
}

func (e engine) etch(t *testing.T, candidates ...entities.CandidateID) string {
	t.Helper()
	key, err := e.slates.Etch(context.Background(), candidates)
	if err != nil {
		t.Fatalf("etch slate %v failed: %v", candidates, err)
	}
	return key
}

// backCandidate funds a fresh voter, delegates it to a single-candidate
// slate, and locks the given weight behind that candidate.
func (e engine) backCandidate(t *testing.T, voterID string, candidate entities.CandidateID, weight uint64) {
	t.Helper()
	ctx := context.Background()
	key := e.etch(t, candidate)
	e.ledger.SetBalance(voterID, weight)
	if err := e.delegations.Delegate(ctx, voterID, key); err != nil {
		t.Fatalf("delegate %s to %s failed: %v", voterID, candidate, err)
	}
	if err := e.delegations.Lock(ctx, voterID, weight); err != nil {
		t.Fatalf("lock %d for %s failed: %v", weight, voterID, err)
	}
}

func (e engine) tally(t *testing.T, candidate entities.CandidateID) uint64 {
	t.Helper()
	votes, err := e.store.GetTally(context.Background(), candidate)
	if err != nil {
		t.Fatalf("get tally for %s failed: %v", candidate, err)
	}
	return votes
}

func (e engine) snapshot(t *testing.T) entities.RosterState {
	t.Helper()
	roster, err := e.store.GetRoster(context.Background())
	if err != nil {
		t.Fatalf("get roster failed: %v", err)
	}
	return roster
}

func (e engine) seat(t *testing.T, index int, candidate entities.CandidateID) {
	t.Helper()
	if err := e.roster.Drop(context.Background(), index, candidate); err != nil {
		t.Fatalf("seat %s at %d failed: %v", candidate, index, err)
	}
}
