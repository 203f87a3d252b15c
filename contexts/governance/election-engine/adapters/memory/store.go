package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"rostrum/contexts/governance/election-engine/domain/entities"
	domainerrors "rostrum/contexts/governance/election-engine/domain/errors"
	"rostrum/contexts/governance/election-engine/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

// Store is the in-memory implementation of every storage port plus Clock and
// IDGenerator. The roster seats are allocated once at the configured election
// size and never resized.
type Store struct {
	mu sync.RWMutex

	slates  map[string]entities.Slate
	voters  map[string]entities.Voter
	tallies map[entities.CandidateID]uint64

	seats     []entities.CandidateID
	occupants map[entities.CandidateID]int
	maxVotes  uint64

	outbox map[string]outboxRecord
}

func NewStore(electionSize int) *Store {
	if electionSize < 1 {
		electionSize = 1
	}
	return &Store{
		slates:    make(map[string]entities.Slate),
		voters:    make(map[string]entities.Voter),
		tallies:   make(map[entities.CandidateID]uint64),
		seats:     make([]entities.CandidateID, electionSize),
		occupants: make(map[entities.CandidateID]int),
		outbox:    make(map[string]outboxRecord),
	}
}

// Transact snapshots the whole store, runs fn, and restores the snapshot when
// fn fails, so a mid-sequence error leaves no partial writes. Callers already
// serialize commands through the engine commit mutex; the snapshot is not a
// substitute for that serialization.
func (s *Store) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	snapshot := s.snapshot()
	if err := fn(ctx); err != nil {
		s.restore(snapshot)
		return err
	}
	return nil
}

type storeSnapshot struct {
	slates    map[string]entities.Slate
	voters    map[string]entities.Voter
	tallies   map[entities.CandidateID]uint64
	seats     []entities.CandidateID
	occupants map[entities.CandidateID]int
	maxVotes  uint64
	outbox    map[string]outboxRecord
}

func (s *Store) snapshot() storeSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := storeSnapshot{
		slates:    make(map[string]entities.Slate, len(s.slates)),
		voters:    make(map[string]entities.Voter, len(s.voters)),
		tallies:   make(map[entities.CandidateID]uint64, len(s.tallies)),
		seats:     append([]entities.CandidateID(nil), s.seats...),
		occupants: make(map[entities.CandidateID]int, len(s.occupants)),
		maxVotes:  s.maxVotes,
		outbox:    make(map[string]outboxRecord, len(s.outbox)),
	}
	for key, value := range s.slates {
		snap.slates[key] = value
	}
	for key, value := range s.voters {
		snap.voters[key] = value
	}
	for key, value := range s.tallies {
		snap.tallies[key] = value
	}
	for key, value := range s.occupants {
		snap.occupants[key] = value
	}
	for key, value := range s.outbox {
		snap.outbox[key] = value
	}
	return snap
}

func (s *Store) restore(snap storeSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slates = snap.slates
	s.voters = snap.voters
	s.tallies = snap.tallies
	s.seats = snap.seats
	s.occupants = snap.occupants
	s.maxVotes = snap.maxVotes
	s.outbox = snap.outbox
}

func (s *Store) PutSlate(_ context.Context, slate entities.Slate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.TrimSpace(slate.Key)
	if _, exists := s.slates[key]; exists {
		return nil
	}
	s.slates[key] = entities.Slate{
		Key:        key,
		Candidates: append([]entities.CandidateID(nil), slate.Candidates...),
		CreatedAt:  slate.CreatedAt.UTC(),
	}
	return nil
}

func (s *Store) GetSlate(_ context.Context, key string) (entities.Slate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slate, ok := s.slates[strings.TrimSpace(key)]
	if !ok {
		return entities.Slate{}, domainerrors.ErrUnknownSlate
	}
	return entities.Slate{
		Key:        slate.Key,
		Candidates: append([]entities.CandidateID(nil), slate.Candidates...),
		CreatedAt:  slate.CreatedAt,
	}, nil
}

func (s *Store) GetVoter(_ context.Context, voterID string) (entities.Voter, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	voter, ok := s.voters[strings.TrimSpace(voterID)]
	return voter, ok, nil
}

func (s *Store) SaveVoter(_ context.Context, voter entities.Voter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voters[strings.TrimSpace(voter.VoterID)] = voter
	return nil
}

func (s *Store) GetTally(_ context.Context, candidate entities.CandidateID) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tallies[candidate], nil
}

func (s *Store) AddTally(_ context.Context, candidate entities.CandidateID, delta uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tallies[candidate] += delta
	return nil
}

func (s *Store) SubTally(_ context.Context, candidate entities.CandidateID, delta uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.tallies[candidate]
	if current < delta {
		return domainerrors.ErrConflict
	}
	s.tallies[candidate] = current - delta
	return nil
}

func (s *Store) GetRoster(_ context.Context) (entities.RosterState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return entities.RosterState{
		Seats:    append([]entities.CandidateID(nil), s.seats...),
		MaxVotes: s.maxVotes,
	}, nil
}

func (s *Store) ExchangeSeats(_ context.Context, i int, j int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || j < 0 || i >= len(s.seats) || j >= len(s.seats) {
		return domainerrors.ErrSeatOutOfRange
	}
	s.seats[i], s.seats[j] = s.seats[j], s.seats[i]
	if !s.seats[i].IsNone() {
		s.occupants[s.seats[i]] = i
	}
	if !s.seats[j].IsNone() {
		s.occupants[s.seats[j]] = j
	}
	return nil
}

func (s *Store) ReplaceSeat(
	_ context.Context,
	index int,
	outgoing entities.CandidateID,
	incoming entities.CandidateID,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.seats) {
		return domainerrors.ErrSeatOutOfRange
	}
	if s.seats[index] != outgoing {
		return domainerrors.ErrConflict
	}
	if !outgoing.IsNone() {
		delete(s.occupants, outgoing)
	}
	if !incoming.IsNone() {
		if seat, occupied := s.occupants[incoming]; occupied && seat != index {
			return domainerrors.ErrDuplicateCandidate
		}
		s.occupants[incoming] = index
	}
	s.seats[index] = incoming
	return nil
}

func (s *Store) OccupantSeat(_ context.Context, candidate entities.CandidateID) (int, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seat, ok := s.occupants[candidate]
	return seat, ok, nil
}

func (s *Store) SetMaxVotes(_ context.Context, value uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxVotes = value
	return nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if existing, ok := s.outbox[outboxID]; ok {
		if !bytes.Equal(existing.message.Payload, payload) {
			return domainerrors.ErrConflict
		}
		return nil
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
		},
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		items = append(items, row.message)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].OutboxID < items[j].OutboxID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrConflict
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

var _ ports.Transactor = (*Store)(nil)
var _ ports.SlateStore = (*Store)(nil)
var _ ports.VoterRepository = (*Store)(nil)
var _ ports.TallyStore = (*Store)(nil)
var _ ports.RosterRepository = (*Store)(nil)
var _ ports.OutboxWriter = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
