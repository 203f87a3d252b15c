package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	application "rostrum/contexts/governance/election-engine/application"
	"rostrum/contexts/governance/election-engine/domain/entities"
	domainerrors "rostrum/contexts/governance/election-engine/domain/errors"
	"rostrum/contexts/governance/election-engine/ports"
)

// DelegationUseCase owns voter weight: locking value into custody, freeing it
// back out, and relocating the voter's full weight between slates. Every
// command validates and reads before the first state write, so a failure
// commits nothing.
type DelegationUseCase struct {
	Commit  *sync.Mutex
	Tx      ports.Transactor
	Slates  ports.SlateStore
	Voters  ports.VoterRepository
	Tallies ports.TallyStore
	Ledger  ports.ValueLedger
	Outbox  ports.OutboxWriter
	Clock   ports.Clock
	IDGen   ports.IDGenerator
	Logger  *slog.Logger
}

// Delegate points the voter at slateKey and relocates the voter's weight from
// every candidate of the previous slate to every candidate of the new one.
// Total weight across candidates is conserved for the voter.
func (uc DelegationUseCase) Delegate(ctx context.Context, voterID string, slateKey string) error {
	logger := application.ResolveLogger(uc.Logger)
	voterID = strings.TrimSpace(voterID)
	slateKey = strings.TrimSpace(slateKey)
	if voterID == "" || slateKey == "" {
		return domainerrors.ErrInvalidInput
	}
	uc.lock()
	defer uc.unlock()

	slate, err := uc.Slates.GetSlate(ctx, slateKey)
	if err != nil {
		logger.Warn("delegation to unknown slate",
			"event", "election_delegate_unknown_slate",
			"module", moduleName,
			"layer", "application",
			"voter_id", voterID,
			"slate_key", slateKey,
		)
		return err
	}

	now := uc.now()
	voter, found, err := uc.Voters.GetVoter(ctx, voterID)
	if err != nil {
		return err
	}
	if !found {
		voter = entities.Voter{VoterID: voterID, CreatedAt: now}
	}

	previous, err := uc.currentCandidates(ctx, voter)
	if err != nil {
		return err
	}

	priorKey := voter.SlateKey
	voter.SlateKey = slateKey
	voter.UpdatedAt = now
	err = uc.transact(ctx, func(ctx context.Context) error {
		if voter.Weight > 0 {
			for _, candidate := range previous {
				if err := uc.Tallies.SubTally(ctx, candidate, voter.Weight); err != nil {
					return err
				}
			}
			for _, candidate := range slate.Candidates {
				if err := uc.Tallies.AddTally(ctx, candidate, voter.Weight); err != nil {
					return err
				}
			}
		}
		if err := uc.Voters.SaveVoter(ctx, voter); err != nil {
			return err
		}
		return uc.appendDelegationEvent(ctx, "election.delegated", voter, now, map[string]any{
			"previous_slate_key": priorKey,
		})
	})
	if err != nil {
		return err
	}
	logger.Info("weight delegated",
		"event", "election_delegated",
		"module", moduleName,
		"layer", "application",
		"voter_id", voterID,
		"slate_key", slateKey,
		"weight", voter.Weight,
	)
	return nil
}

// Lock pulls amount from the voter into custody and propagates the new
// weight to the current slate's tallies immediately. The ledger transfer runs
// before any state write; a rejected transfer commits nothing.
func (uc DelegationUseCase) Lock(ctx context.Context, voterID string, amount uint64) error {
	logger := application.ResolveLogger(uc.Logger)
	voterID = strings.TrimSpace(voterID)
	if voterID == "" || amount == 0 {
		return domainerrors.ErrInvalidInput
	}
	uc.lock()
	defer uc.unlock()

	now := uc.now()
	voter, found, err := uc.Voters.GetVoter(ctx, voterID)
	if err != nil {
		return err
	}
	if !found {
		voter = entities.Voter{VoterID: voterID, CreatedAt: now}
	}
	if voter.Weight+amount < voter.Weight {
		return domainerrors.ErrInvalidInput
	}
	candidates, err := uc.currentCandidates(ctx, voter)
	if err != nil {
		return err
	}

	if err := uc.Ledger.TransferIn(ctx, voterID, amount); err != nil {
		logger.Warn("lock transfer rejected",
			"event", "election_lock_transfer_rejected",
			"module", moduleName,
			"layer", "application",
			"voter_id", voterID,
			"amount", amount,
			"error", err.Error(),
		)
		return fmt.Errorf("%w: %v", domainerrors.ErrTransferFailed, err)
	}

	voter.Weight += amount
	voter.UpdatedAt = now
	err = uc.transact(ctx, func(ctx context.Context) error {
		if err := uc.Voters.SaveVoter(ctx, voter); err != nil {
			return err
		}
		for _, candidate := range candidates {
			if err := uc.Tallies.AddTally(ctx, candidate, amount); err != nil {
				return err
			}
		}
		return uc.appendDelegationEvent(ctx, "election.weight.locked", voter, now, map[string]any{
			"amount": amount,
		})
	})
	if err != nil {
		return err
	}
	logger.Info("weight locked",
		"event", "election_weight_locked",
		"module", moduleName,
		"layer", "application",
		"voter_id", voterID,
		"amount", amount,
		"weight", voter.Weight,
	)
	return nil
}

// Free is the symmetric release: it checks the voter's weight covers amount,
// pushes the value back through the ledger, then commits the weight and tally
// subtractions.
func (uc DelegationUseCase) Free(ctx context.Context, voterID string, amount uint64) error {
	logger := application.ResolveLogger(uc.Logger)
	voterID = strings.TrimSpace(voterID)
	if voterID == "" || amount == 0 {
		return domainerrors.ErrInvalidInput
	}
	uc.lock()
	defer uc.unlock()

	now := uc.now()
	voter, found, err := uc.Voters.GetVoter(ctx, voterID)
	if err != nil {
		return err
	}
	if !found || voter.Weight < amount {
		logger.Warn("free exceeds locked weight",
			"event", "election_free_insufficient",
			"module", moduleName,
			"layer", "application",
			"voter_id", voterID,
			"amount", amount,
			"weight", voter.Weight,
		)
		return domainerrors.ErrInsufficientWeight
	}
	candidates, err := uc.currentCandidates(ctx, voter)
	if err != nil {
		return err
	}

	if err := uc.Ledger.TransferOut(ctx, voterID, amount); err != nil {
		logger.Warn("free transfer rejected",
			"event", "election_free_transfer_rejected",
			"module", moduleName,
			"layer", "application",
			"voter_id", voterID,
			"amount", amount,
			"error", err.Error(),
		)
		return fmt.Errorf("%w: %v", domainerrors.ErrTransferFailed, err)
	}

	voter.Weight -= amount
	voter.UpdatedAt = now
	err = uc.transact(ctx, func(ctx context.Context) error {
		for _, candidate := range candidates {
			if err := uc.Tallies.SubTally(ctx, candidate, amount); err != nil {
				return err
			}
		}
		if err := uc.Voters.SaveVoter(ctx, voter); err != nil {
			return err
		}
		return uc.appendDelegationEvent(ctx, "election.weight.freed", voter, now, map[string]any{
			"amount": amount,
		})
	})
	if err != nil {
		return err
	}
	logger.Info("weight freed",
		"event", "election_weight_freed",
		"module", moduleName,
		"layer", "application",
		"voter_id", voterID,
		"amount", amount,
		"weight", voter.Weight,
	)
	return nil
}

func (uc DelegationUseCase) currentCandidates(ctx context.Context, voter entities.Voter) ([]entities.CandidateID, error) {
	if !voter.HasSlate() {
		return nil, nil
	}
	slate, err := uc.Slates.GetSlate(ctx, voter.SlateKey)
	if err != nil {
		return nil, err
	}
	return slate.Candidates, nil
}

func (uc DelegationUseCase) appendDelegationEvent(
	ctx context.Context,
	eventType string,
	voter entities.Voter,
	occurredAt time.Time,
	metadata map[string]any,
) error {
	// Outbox is optional for pure read/test wiring, so nil is treated as no-op.
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	data := map[string]any{
		"voter_id":    voter.VoterID,
		"slate_key":   voter.SlateKey,
		"weight":      voter.Weight,
		"occurred_at": occurredAt.Format(time.RFC3339),
	}
	for key, value := range metadata {
		data[key] = value
	}
	envelope, err := newElectionEnvelope(eventID, eventType, "voter_id", voter.VoterID, occurredAt, data)
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}

// transact runs fn as one unit of work when a Transactor is wired, so a
// mid-sequence store error unwinds every write fn already issued.
func (uc DelegationUseCase) transact(ctx context.Context, fn func(context.Context) error) error {
	if uc.Tx == nil {
		return fn(ctx)
	}
	return uc.Tx.Transact(ctx, fn)
}

func (uc DelegationUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (uc DelegationUseCase) lock() {
	if uc.Commit != nil {
		uc.Commit.Lock()
	}
}

func (uc DelegationUseCase) unlock() {
	if uc.Commit != nil {
		uc.Commit.Unlock()
	}
}
