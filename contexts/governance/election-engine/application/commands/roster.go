package commands

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	application "rostrum/contexts/governance/election-engine/application"
	"rostrum/contexts/governance/election-engine/domain/entities"
	domainerrors "rostrum/contexts/governance/election-engine/domain/errors"
	"rostrum/contexts/governance/election-engine/ports"
)

// RosterUseCase exposes the convergence moves. Any caller may invoke them in
// any order; every precondition is re-derived from current tallies on every
// call, so a move that raced a delegation fails cleanly instead of
// misordering the roster. A rejected move leaves the roster unchanged.
type RosterUseCase struct {
	Commit  *sync.Mutex
	Tx      ports.Transactor
	Roster  ports.RosterRepository
	Tallies ports.TallyStore
	Outbox  ports.OutboxWriter
	Clock   ports.Clock
	IDGen   ports.IDGenerator
	Logger  *slog.Logger
}

// Swap exchanges the occupants of seats i and j (i < j), promoting the lower
// seat's occupant one comparison at a time. Checked against the tentative
// post-exchange layout: the promoted occupant must meet half-of-max and
// strictly out-tally the demoted one (or the demoted seat was empty), and the
// seat physically below i must be empty or strictly under the promoted tally.
func (uc RosterUseCase) Swap(ctx context.Context, i int, j int) error {
	logger := application.ResolveLogger(uc.Logger)
	uc.lock()
	defer uc.unlock()

	roster, err := uc.Roster.GetRoster(ctx)
	if err != nil {
		return err
	}
	if i < 0 || j >= roster.Size() {
		return domainerrors.ErrSeatOutOfRange
	}
	if i >= j {
		return domainerrors.ErrInvalidInput
	}

	promoted := roster.Seats[j]
	demoted := roster.Seats[i]
	if promoted.IsNone() {
		// An empty seat never outranks anything.
		return uc.rejectSwap(logger, i, j, "promoted seat is empty")
	}

	promotedVotes, err := uc.Tallies.GetTally(ctx, promoted)
	if err != nil {
		return err
	}
	if promotedVotes < roster.Threshold() {
		return uc.rejectSwap(logger, i, j, "promoted candidate below half-of-max")
	}
	if !demoted.IsNone() {
		demotedVotes, err := uc.Tallies.GetTally(ctx, demoted)
		if err != nil {
			return err
		}
		if promotedVotes <= demotedVotes {
			return uc.rejectSwap(logger, i, j, "promoted candidate does not out-tally demoted")
		}
	}

	// After the exchange, seat i+1 holds the demoted candidate when j == i+1
	// and is untouched otherwise.
	neighbor := roster.Seats[i+1]
	if j == i+1 {
		neighbor = demoted
	}
	if !neighbor.IsNone() {
		neighborVotes, err := uc.Tallies.GetTally(ctx, neighbor)
		if err != nil {
			return err
		}
		if neighborVotes >= promotedVotes {
			return uc.rejectSwap(logger, i, j, "seat below i would outrank promoted candidate")
		}
	}

	now := uc.now()
	err = uc.transact(ctx, func(ctx context.Context) error {
		if err := uc.Roster.ExchangeSeats(ctx, i, j); err != nil {
			return err
		}
		if promotedVotes > roster.MaxVotes {
			if err := uc.Roster.SetMaxVotes(ctx, promotedVotes); err != nil {
				return err
			}
		}
		return uc.appendRosterEvent(ctx, "election.roster.swapped", i, now, map[string]any{
			"upper_seat": i,
			"lower_seat": j,
			"promoted":   string(promoted),
			"demoted":    string(demoted),
			"tally":      promotedVotes,
		})
	})
	if err != nil {
		return err
	}
	logger.Info("roster seats swapped",
		"event", "election_roster_swapped",
		"module", moduleName,
		"layer", "application",
		"upper_seat", i,
		"lower_seat", j,
		"promoted", string(promoted),
		"tally", promotedVotes,
	)
	return nil
}

// Drop replaces the occupant of seat index with candidate. A real incoming
// candidate must not already hold another seat, must out-tally the outgoing
// occupant, and must meet half-of-max. The sentinel evicts an occupant that
// has fallen below half-of-max.
func (uc RosterUseCase) Drop(ctx context.Context, index int, candidate entities.CandidateID) error {
	logger := application.ResolveLogger(uc.Logger)
	uc.lock()
	defer uc.unlock()

	roster, err := uc.Roster.GetRoster(ctx)
	if err != nil {
		return err
	}
	if index < 0 || index >= roster.Size() {
		return domainerrors.ErrSeatOutOfRange
	}
	outgoing := roster.Seats[index]

	var incomingVotes uint64
	if candidate.IsNone() {
		if outgoing.IsNone() {
			return domainerrors.ErrInvariantViolation
		}
		outgoingVotes, err := uc.Tallies.GetTally(ctx, outgoing)
		if err != nil {
			return err
		}
		if outgoingVotes >= roster.Threshold() {
			logger.Warn("eviction rejected",
				"event", "election_roster_evict_rejected",
				"module", moduleName,
				"layer", "application",
				"seat", index,
				"occupant", string(outgoing),
				"tally", outgoingVotes,
			)
			return domainerrors.ErrInvariantViolation
		}
	} else {
		if seat, occupied, err := uc.Roster.OccupantSeat(ctx, candidate); err != nil {
			return err
		} else if occupied && seat != index {
			logger.Warn("drop rejected for duplicate occupant",
				"event", "election_roster_drop_duplicate",
				"module", moduleName,
				"layer", "application",
				"seat", index,
				"candidate", string(candidate),
				"occupied_seat", seat,
			)
			return domainerrors.ErrDuplicateCandidate
		}

		incomingVotes, err = uc.Tallies.GetTally(ctx, candidate)
		if err != nil {
			return err
		}
		if incomingVotes < roster.Threshold() {
			return domainerrors.ErrInvariantViolation
		}
		if !outgoing.IsNone() {
			outgoingVotes, err := uc.Tallies.GetTally(ctx, outgoing)
			if err != nil {
				return err
			}
			if incomingVotes <= outgoingVotes {
				return domainerrors.ErrInvariantViolation
			}
		}
	}

	now := uc.now()
	err = uc.transact(ctx, func(ctx context.Context) error {
		if err := uc.Roster.ReplaceSeat(ctx, index, outgoing, candidate); err != nil {
			return err
		}
		if incomingVotes > roster.MaxVotes {
			if err := uc.Roster.SetMaxVotes(ctx, incomingVotes); err != nil {
				return err
			}
		}
		return uc.appendRosterEvent(ctx, "election.roster.dropped", index, now, map[string]any{
			"seat":     index,
			"outgoing": string(outgoing),
			"incoming": string(candidate),
			"tally":    incomingVotes,
		})
	})
	if err != nil {
		return err
	}
	logger.Info("roster seat replaced",
		"event", "election_roster_dropped",
		"module", moduleName,
		"layer", "application",
		"seat", index,
		"outgoing", string(outgoing),
		"incoming", string(candidate),
	)
	return nil
}

// Evict is Drop with the empty sentinel: it clears a stale occupant that has
// fallen below half-of-max.
func (uc RosterUseCase) Evict(ctx context.Context, index int) error {
	return uc.Drop(ctx, index, entities.CandidateNone)
}

// RefreshMax recomputes maxVotes as the maximum tally over current seat
// occupants. This full recompute is the only move that can lower maxVotes,
// and only a caller ever triggers it.
func (uc RosterUseCase) RefreshMax(ctx context.Context) (uint64, error) {
	logger := application.ResolveLogger(uc.Logger)
	uc.lock()
	defer uc.unlock()

	roster, err := uc.Roster.GetRoster(ctx)
	if err != nil {
		return 0, err
	}
	var max uint64
	for _, occupant := range roster.Seats {
		if occupant.IsNone() {
			continue
		}
		votes, err := uc.Tallies.GetTally(ctx, occupant)
		if err != nil {
			return 0, err
		}
		if votes > max {
			max = votes
		}
	}
	if max != roster.MaxVotes {
		if err := uc.Roster.SetMaxVotes(ctx, max); err != nil {
			return 0, err
		}
	}
	logger.Info("roster max recomputed",
		"event", "election_roster_max_refreshed",
		"module", moduleName,
		"layer", "application",
		"max_votes", max,
		"previous_max", roster.MaxVotes,
	)
	return max, nil
}

// RaiseMax lifts maxVotes to the candidate's current tally when it exceeds
// the cached value. It never lowers maxVotes.
func (uc RosterUseCase) RaiseMax(ctx context.Context, candidate entities.CandidateID) (uint64, error) {
	if candidate.IsNone() {
		return 0, domainerrors.ErrInvalidInput
	}
	logger := application.ResolveLogger(uc.Logger)
	uc.lock()
	defer uc.unlock()

	roster, err := uc.Roster.GetRoster(ctx)
	if err != nil {
		return 0, err
	}
	votes, err := uc.Tallies.GetTally(ctx, candidate)
	if err != nil {
		return 0, err
	}
	if votes <= roster.MaxVotes {
		return roster.MaxVotes, nil
	}
	if err := uc.Roster.SetMaxVotes(ctx, votes); err != nil {
		return 0, err
	}
	logger.Info("roster max raised",
		"event", "election_roster_max_raised",
		"module", moduleName,
		"layer", "application",
		"candidate", string(candidate),
		"max_votes", votes,
	)
	return votes, nil
}

func (uc RosterUseCase) rejectSwap(logger *slog.Logger, i int, j int, reason string) error {
	logger.Warn("swap rejected",
		"event", "election_roster_swap_rejected",
		"module", moduleName,
		"layer", "application",
		"upper_seat", i,
		"lower_seat", j,
		"reason", reason,
	)
	return domainerrors.ErrInvariantViolation
}

func (uc RosterUseCase) appendRosterEvent(
	ctx context.Context,
	eventType string,
	seat int,
	occurredAt time.Time,
	data map[string]any,
) error {
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	data["occurred_at"] = occurredAt.Format(time.RFC3339)
	envelope, err := newElectionEnvelope(eventID, eventType, "seat", strconv.Itoa(seat), occurredAt, data)
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}

// transact runs fn as one unit of work when a Transactor is wired, so a
// mid-sequence store error unwinds every write fn already issued.
func (uc RosterUseCase) transact(ctx context.Context, fn func(context.Context) error) error {
	if uc.Tx == nil {
		return fn(ctx)
	}
	return uc.Tx.Transact(ctx, fn)
}

func (uc RosterUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (uc RosterUseCase) lock() {
	if uc.Commit != nil {
		uc.Commit.Lock()
	}
}

func (uc RosterUseCase) unlock() {
	if uc.Commit != nil {
		uc.Commit.Unlock()
	}
}
