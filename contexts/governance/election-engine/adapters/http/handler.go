package httpadapter

import (
	"context"
	"log/slog"

	"rostrum/contexts/governance/election-engine/application/commands"
	"rostrum/contexts/governance/election-engine/application/queries"
	"rostrum/contexts/governance/election-engine/domain/entities"
	httptransport "rostrum/contexts/governance/election-engine/transport/http"
)

type Handler struct {
	Slates      commands.SlateUseCase
	Delegations commands.DelegationUseCase
	Roster      commands.RosterUseCase
	Standings   queries.StandingsUseCase
	Logger      *slog.Logger
}

func (h Handler) EtchSlateHandler(ctx context.Context, req httptransport.EtchSlateRequest) (httptransport.EtchSlateResponse, error) {
	candidates := make([]entities.CandidateID, 0, len(req.Candidates))
	for _, candidate := range req.Candidates {
		candidates = append(candidates, entities.CandidateID(candidate))
	}
	key, err := h.Slates.Etch(ctx, candidates)
	if err != nil {
		return httptransport.EtchSlateResponse{}, err
	}
	return httptransport.EtchSlateResponse{SlateKey: key}, nil
}

func (h Handler) DelegateHandler(ctx context.Context, voterID string, req httptransport.DelegateRequest) error {
	return h.Delegations.Delegate(ctx, voterID, req.SlateKey)
}

func (h Handler) LockHandler(ctx context.Context, voterID string, req httptransport.AmountRequest) (httptransport.VoterResponse, error) {
	if err := h.Delegations.Lock(ctx, voterID, req.Amount); err != nil {
		return httptransport.VoterResponse{}, err
	}
	return h.VoterHandler(ctx, voterID)
}

func (h Handler) FreeHandler(ctx context.Context, voterID string, req httptransport.AmountRequest) (httptransport.VoterResponse, error) {
	if err := h.Delegations.Free(ctx, voterID, req.Amount); err != nil {
		return httptransport.VoterResponse{}, err
	}
	return h.VoterHandler(ctx, voterID)
}

func (h Handler) VoterHandler(ctx context.Context, voterID string) (httptransport.VoterResponse, error) {
	voter, err := h.Standings.Voter(ctx, voterID)
	if err != nil {
		return httptransport.VoterResponse{}, err
	}
	return httptransport.VoterResponse{
		VoterID:  voter.VoterID,
		Weight:   voter.Weight,
		SlateKey: voter.SlateKey,
	}, nil
}

func (h Handler) SwapHandler(ctx context.Context, req httptransport.SwapRequest) error {
	return h.Roster.Swap(ctx, req.UpperSeat, req.LowerSeat)
}

func (h Handler) DropHandler(ctx context.Context, req httptransport.DropRequest) error {
	return h.Roster.Drop(ctx, req.Seat, entities.CandidateID(req.Candidate))
}

func (h Handler) RefreshMaxHandler(ctx context.Context, req httptransport.RefreshMaxRequest) (httptransport.MaxVotesResponse, error) {
	var (
		max uint64
		err error
	)
	if req.Candidate == "" {
		max, err = h.Roster.RefreshMax(ctx)
	} else {
		max, err = h.Roster.RaiseMax(ctx, entities.CandidateID(req.Candidate))
	}
	if err != nil {
		return httptransport.MaxVotesResponse{}, err
	}
	return httptransport.MaxVotesResponse{MaxVotes: max}, nil
}

func (h Handler) VotesHandler(ctx context.Context, candidate string) (httptransport.VotesResponse, error) {
	votes, err := h.Standings.Votes(ctx, entities.CandidateID(candidate))
	if err != nil {
		return httptransport.VotesResponse{}, err
	}
	return httptransport.VotesResponse{Candidate: candidate, Votes: votes}, nil
}

func (h Handler) IsElectedHandler(ctx context.Context, candidate string) (httptransport.ElectedResponse, error) {
	elected, err := h.Standings.IsElected(ctx, entities.CandidateID(candidate))
	if err != nil {
		return httptransport.ElectedResponse{}, err
	}
	return httptransport.ElectedResponse{Candidate: candidate, Elected: elected}, nil
}

func (h Handler) RosterHandler(ctx context.Context) (httptransport.RosterResponse, error) {
	roster, err := h.Standings.Snapshot(ctx)
	if err != nil {
		return httptransport.RosterResponse{}, err
	}
	seats := make([]string, 0, roster.Size())
	for _, seat := range roster.Seats {
		seats = append(seats, string(seat))
	}
	return httptransport.RosterResponse{
		Seats:    seats,
		MaxVotes: roster.MaxVotes,
	}, nil
}

func (h Handler) StandingsHandler(ctx context.Context) (httptransport.StandingsResponse, error) {
	standings, err := h.Standings.Standings(ctx)
	if err != nil {
		return httptransport.StandingsResponse{}, err
	}
	items := make([]httptransport.StandingItem, 0, len(standings))
	for _, standing := range standings {
		items = append(items, httptransport.StandingItem{
			Rank:      standing.Rank,
			Seat:      standing.Seat,
			Candidate: string(standing.Candidate),
			Votes:     standing.Tally,
		})
	}
	return httptransport.StandingsResponse{Items: items}, nil
}
