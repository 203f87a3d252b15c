package ports

import (
	"context"
	"time"

	"rostrum/contexts/governance/election-engine/domain/entities"
	eventsv1 "rostrum/internal/shared/events"
)

// SlateStore is append-only, content-addressed slate storage. PutSlate is
// idempotent for identical contents.
type SlateStore interface {
	PutSlate(ctx context.Context, slate entities.Slate) error
	GetSlate(ctx context.Context, key string) (entities.Slate, error)
}

type VoterRepository interface {
	GetVoter(ctx context.Context, voterID string) (entities.Voter, bool, error)
	SaveVoter(ctx context.Context, voter entities.Voter) error
}

// TallyStore holds per-candidate aggregate weight. Absent candidates tally
// zero; SubTally must refuse to underflow.
type TallyStore interface {
	GetTally(ctx context.Context, candidate entities.CandidateID) (uint64, error)
	AddTally(ctx context.Context, candidate entities.CandidateID, delta uint64) error
	SubTally(ctx context.Context, candidate entities.CandidateID, delta uint64) error
}

// RosterRepository stores the fixed-length seat sequence, the cached max
// tally, and the occupant membership index. Mutators apply mechanical state
// changes only; invariant checks live in the application layer.
type RosterRepository interface {
	GetRoster(ctx context.Context) (entities.RosterState, error)
	ExchangeSeats(ctx context.Context, i int, j int) error
	ReplaceSeat(ctx context.Context, index int, outgoing entities.CandidateID, incoming entities.CandidateID) error
	OccupantSeat(ctx context.Context, candidate entities.CandidateID) (int, bool, error)
	SetMaxVotes(ctx context.Context, value uint64) error
}

// Transactor runs fn as one unit of work: every repository write fn issues
// through the derived context commits together or not at all. Nested calls
// join the enclosing unit.
type Transactor interface {
	Transact(ctx context.Context, fn func(ctx context.Context) error) error
}

// ValueLedger is the external value-transfer collaborator. TransferIn pulls
// value into engine custody on lock; TransferOut pushes it back on free.
// Failures are synchronous and leave no partial state.
type ValueLedger interface {
	TransferIn(ctx context.Context, from string, amount uint64) error
	TransferOut(ctx context.Context, to string, amount uint64) error
}

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

// OutboxRepository models worker-side outbox polling/acknowledgement.
type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

// EventEnvelope reuses the canonical cross-process envelope contract.
type EventEnvelope = eventsv1.Envelope

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
