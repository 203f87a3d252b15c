package queries

import (
	"context"
	"sort"
	"strings"

	"rostrum/contexts/governance/election-engine/domain/entities"
	domainerrors "rostrum/contexts/governance/election-engine/domain/errors"
	"rostrum/contexts/governance/election-engine/ports"
)

// StandingsUseCase is the side-effect-free read surface: tallies, roster
// membership, and the descending-tally standings view.
type StandingsUseCase struct {
	Roster  ports.RosterRepository
	Tallies ports.TallyStore
	Voters  ports.VoterRepository
}

func (uc StandingsUseCase) Votes(ctx context.Context, candidate entities.CandidateID) (uint64, error) {
	if candidate.IsNone() {
		return 0, nil
	}
	return uc.Tallies.GetTally(ctx, candidate)
}

// IsElected reports whether the candidate holds a seat and meets half-of-max.
// Every seat counts, including the last one.
func (uc StandingsUseCase) IsElected(ctx context.Context, candidate entities.CandidateID) (bool, error) {
	if candidate.IsNone() {
		return false, nil
	}
	_, occupied, err := uc.Roster.OccupantSeat(ctx, candidate)
	if err != nil {
		return false, err
	}
	if !occupied {
		return false, nil
	}
	roster, err := uc.Roster.GetRoster(ctx)
	if err != nil {
		return false, err
	}
	votes, err := uc.Tallies.GetTally(ctx, candidate)
	if err != nil {
		return false, err
	}
	return votes >= roster.Threshold(), nil
}

// Snapshot returns the current roster contents and cached maxVotes.
func (uc StandingsUseCase) Snapshot(ctx context.Context) (entities.RosterState, error) {
	return uc.Roster.GetRoster(ctx)
}

// Standings lists current occupants ordered by tally descending, candidate
// ascending on ties, with 1-based ranks.
func (uc StandingsUseCase) Standings(ctx context.Context) ([]entities.Standing, error) {
	roster, err := uc.Roster.GetRoster(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]entities.Standing, 0, roster.Size())
	for seat, occupant := range roster.Seats {
		if occupant.IsNone() {
			continue
		}
		votes, err := uc.Tallies.GetTally(ctx, occupant)
		if err != nil {
			return nil, err
		}
		items = append(items, entities.Standing{
			Seat:      seat,
			Candidate: occupant,
			Tally:     votes,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Tally == items[j].Tally {
			return items[i].Candidate < items[j].Candidate
		}
		return items[i].Tally > items[j].Tally
	})
	for i := range items {
		items[i].Rank = i + 1
	}
	return items, nil
}

func (uc StandingsUseCase) Voter(ctx context.Context, voterID string) (entities.Voter, error) {
	voter, found, err := uc.Voters.GetVoter(ctx, strings.TrimSpace(voterID))
	if err != nil {
		return entities.Voter{}, err
	}
	if !found {
		return entities.Voter{}, domainerrors.ErrVoterNotFound
	}
	return voter, nil
}
