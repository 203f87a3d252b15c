package commands

import (
	"context"
	"log/slog"
	"time"

	application "rostrum/contexts/governance/election-engine/application"
	"rostrum/contexts/governance/election-engine/domain/entities"
	domainerrors "rostrum/contexts/governance/election-engine/domain/errors"
	"rostrum/contexts/governance/election-engine/ports"
)

// SlateUseCase interns candidate slates. Etch is the only write: slates are
// immutable and append-only, so re-etching identical contents is a no-op
// that returns the same key.
type SlateUseCase struct {
	Slates ports.SlateStore
	Clock  ports.Clock
	Logger *slog.Logger
}

// Etch validates the candidate sequence, derives its content address, and
// stores it under that key if absent.
func (uc SlateUseCase) Etch(ctx context.Context, candidates []entities.CandidateID) (string, error) {
	logger := application.ResolveLogger(uc.Logger)
	if !entities.WellFormedSlate(candidates) {
		logger.Warn("slate rejected",
			"event", "election_slate_rejected",
			"module", moduleName,
			"layer", "application",
			"candidate_count", len(candidates),
		)
		return "", domainerrors.ErrMalformedSlate
	}

	key := entities.SlateKey(candidates)
	slate := entities.Slate{
		Key:        key,
		Candidates: append([]entities.CandidateID(nil), candidates...),
		CreatedAt:  uc.now(),
	}
	if err := uc.Slates.PutSlate(ctx, slate); err != nil {
		logger.Error("slate store write failed",
			"event", "election_slate_store_failed",
			"module", moduleName,
			"layer", "application",
			"slate_key", key,
			"error", err.Error(),
		)
		return "", err
	}

	logger.Info("slate etched",
		"event", "election_slate_etched",
		"module", moduleName,
		"layer", "application",
		"slate_key", key,
		"candidate_count", len(candidates),
	)
	return key, nil
}

func (uc SlateUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
