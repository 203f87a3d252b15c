package memory

import (
	"context"
	"errors"
	"strings"
	"sync"

	"rostrum/contexts/governance/election-engine/ports"
)

var errLedgerBalance = errors.New("ledger balance too low")

// Ledger is an in-memory stand-in for the external value-transfer
// collaborator. Production deployments replace it behind the ValueLedger
// port; tests use SetBalance and Fail to drive transfer outcomes.
type Ledger struct {
	mu       sync.Mutex
	balances map[string]uint64
	custody  uint64
	failure  error
}

func NewLedger() *Ledger {
	return &Ledger{balances: make(map[string]uint64)}
}

// SetBalance seeds an account's external balance.
func (l *Ledger) SetBalance(account string, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[strings.TrimSpace(account)] = amount
}

func (l *Ledger) Balance(account string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[strings.TrimSpace(account)]
}

// CustodyBalance is the total value currently held by the engine.
func (l *Ledger) CustodyBalance() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.custody
}

// Fail makes every subsequent transfer return err until cleared with nil.
func (l *Ledger) Fail(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failure = err
}

func (l *Ledger) TransferIn(_ context.Context, from string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failure != nil {
		return l.failure
	}
	account := strings.TrimSpace(from)
	if l.balances[account] < amount {
		return errLedgerBalance
	}
	l.balances[account] -= amount
	l.custody += amount
	return nil
}

func (l *Ledger) TransferOut(_ context.Context, to string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failure != nil {
		return l.failure
	}
	if l.custody < amount {
		return errLedgerBalance
	}
	l.custody -= amount
	l.balances[strings.TrimSpace(to)] += amount
	return nil
}

var _ ports.ValueLedger = (*Ledger)(nil)
