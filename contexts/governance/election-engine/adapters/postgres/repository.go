package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"rostrum/contexts/governance/election-engine/domain/entities"
	domainerrors "rostrum/contexts/governance/election-engine/domain/errors"
	"rostrum/contexts/governance/election-engine/ports"
	"rostrum/internal/shared/outbox"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const rosterMetaID = 1

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

type txContextKey struct{}

// Transact runs fn inside one database transaction; every repository call
// made with the derived context joins it. A transacting context re-enters
// the open transaction instead of nesting a new one.
func (r *Repository) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txContextKey{}, tx))
	})
}

// conn resolves the open transaction carried by ctx, falling back to the
// root handle for calls outside any unit of work.
func (r *Repository) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok {
		return tx
	}
	return r.db.WithContext(ctx)
}

// EnsureRoster creates the roster meta row and the fixed seat rows when they
// do not exist yet. The seat count is fixed at creation and never changes;
// an existing roster of a different size is a deployment error.
func (r *Repository) EnsureRoster(ctx context.Context, electionSize int) error {
	if electionSize < 1 {
		return domainerrors.ErrInvalidInput
	}
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var meta rosterMetaModel
		err := tx.Where("id = ?", rosterMetaID).First(&meta).Error
		if err == nil {
			if meta.Size != electionSize {
				return domainerrors.ErrConflict
			}
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := tx.Create(&rosterMetaModel{ID: rosterMetaID, Size: electionSize}).Error; err != nil {
			return err
		}
		for index := 0; index < electionSize; index++ {
			if err := tx.Create(&seatModel{SeatIndex: index}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) PutSlate(ctx context.Context, slate entities.Slate) error {
	candidates, err := json.Marshal(slate.Candidates)
	if err != nil {
		return err
	}
	row := slateModel{
		Key:        strings.TrimSpace(slate.Key),
		Candidates: string(candidates),
		CreatedAt:  slate.CreatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	create := r.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("election_repo_put_slate_failed", create.Error, "slate_key", row.Key)
	}
	return nil
}

func (r *Repository) GetSlate(ctx context.Context, key string) (entities.Slate, error) {
	var row slateModel
	err := r.conn(ctx).
		Where("key = ?", strings.TrimSpace(key)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Slate{}, domainerrors.ErrUnknownSlate
		}
		return entities.Slate{}, r.logError("election_repo_get_slate_failed", err, "slate_key", strings.TrimSpace(key))
	}
	return row.toEntity()
}

func (r *Repository) GetVoter(ctx context.Context, voterID string) (entities.Voter, bool, error) {
	var row voterModel
	err := r.conn(ctx).
		Where("voter_id = ?", strings.TrimSpace(voterID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Voter{}, false, nil
		}
		return entities.Voter{}, false, r.logError("election_repo_get_voter_failed", err, "voter_id", strings.TrimSpace(voterID))
	}
	return row.toEntity(), true, nil
}

func (r *Repository) SaveVoter(ctx context.Context, voter entities.Voter) error {
	row := voterModelFromEntity(voter)
	create := r.conn(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "voter_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"weight":     row.Weight,
			"slate_key":  row.SlateKey,
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("election_repo_save_voter_failed", create.Error, "voter_id", row.VoterID)
	}
	return nil
}

func (r *Repository) GetTally(ctx context.Context, candidate entities.CandidateID) (uint64, error) {
	var row tallyModel
	err := r.conn(ctx).
		Where("candidate = ?", string(candidate)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, r.logError("election_repo_get_tally_failed", err, "candidate", string(candidate))
	}
	return uint64(row.Votes), nil
}

func (r *Repository) AddTally(ctx context.Context, candidate entities.CandidateID, delta uint64) error {
	row := tallyModel{Candidate: string(candidate), Votes: int64(delta)}
	create := r.conn(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "candidate"}},
		DoUpdates: clause.Assignments(map[string]any{
			"votes": gorm.Expr("election_tallies.votes + ?", int64(delta)),
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("election_repo_add_tally_failed", create.Error, "candidate", string(candidate))
	}
	return nil
}

func (r *Repository) SubTally(ctx context.Context, candidate entities.CandidateID, delta uint64) error {
	// The guard in the WHERE clause refuses underflow at the row level.
	update := r.conn(ctx).Model(&tallyModel{}).
		Where("candidate = ? AND votes >= ?", string(candidate), int64(delta)).
		UpdateColumn("votes", gorm.Expr("votes - ?", int64(delta)))
	if update.Error != nil {
		return r.logError("election_repo_sub_tally_failed", update.Error, "candidate", string(candidate))
	}
	if update.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) GetRoster(ctx context.Context) (entities.RosterState, error) {
	var meta rosterMetaModel
	if err := r.conn(ctx).Where("id = ?", rosterMetaID).First(&meta).Error; err != nil {
		return entities.RosterState{}, r.logError("election_repo_get_roster_meta_failed", err)
	}
	var rows []seatModel
	if err := r.conn(ctx).Order("seat_index ASC").Find(&rows).Error; err != nil {
		return entities.RosterState{}, r.logError("election_repo_get_roster_seats_failed", err)
	}
	seats := make([]entities.CandidateID, meta.Size)
	for _, row := range rows {
		if row.SeatIndex >= 0 && row.SeatIndex < len(seats) {
			seats[row.SeatIndex] = entities.CandidateID(row.Candidate)
		}
	}
	return entities.RosterState{
		Seats:    seats,
		MaxVotes: uint64(meta.MaxVotes),
	}, nil
}

func (r *Repository) ExchangeSeats(ctx context.Context, i int, j int) error {
	err := r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var upper, lower seatModel
		if err := tx.Where("seat_index = ?", i).First(&upper).Error; err != nil {
			return seatLookupError(err)
		}
		if err := tx.Where("seat_index = ?", j).First(&lower).Error; err != nil {
			return seatLookupError(err)
		}
		if err := tx.Model(&seatModel{}).
			Where("seat_index = ?", i).
			UpdateColumn("candidate", lower.Candidate).Error; err != nil {
			return err
		}
		return tx.Model(&seatModel{}).
			Where("seat_index = ?", j).
			UpdateColumn("candidate", upper.Candidate).Error
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrSeatOutOfRange) {
			return err
		}
		return r.logError("election_repo_exchange_seats_failed", err, "upper_seat", i, "lower_seat", j)
	}
	return nil
}

func (r *Repository) ReplaceSeat(
	ctx context.Context,
	index int,
	outgoing entities.CandidateID,
	incoming entities.CandidateID,
) error {
	err := r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		update := tx.Model(&seatModel{}).
			Where("seat_index = ? AND candidate = ?", index, string(outgoing)).
			UpdateColumn("candidate", string(incoming))
		if update.Error != nil {
			return update.Error
		}
		if update.RowsAffected == 0 {
			return domainerrors.ErrConflict
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrDuplicateCandidate
		}
		if errors.Is(err, domainerrors.ErrConflict) {
			return err
		}
		return r.logError("election_repo_replace_seat_failed", err,
			"seat", index,
			"outgoing", string(outgoing),
			"incoming", string(incoming),
		)
	}
	return nil
}

func (r *Repository) OccupantSeat(ctx context.Context, candidate entities.CandidateID) (int, bool, error) {
	if candidate.IsNone() {
		return 0, false, nil
	}
	var row seatModel
	err := r.conn(ctx).
		Where("candidate = ?", string(candidate)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, r.logError("election_repo_occupant_seat_failed", err, "candidate", string(candidate))
	}
	return row.SeatIndex, true, nil
}

func (r *Repository) SetMaxVotes(ctx context.Context, value uint64) error {
	update := r.conn(ctx).Model(&rosterMetaModel{}).
		Where("id = ?", rosterMetaID).
		UpdateColumn("max_votes", int64(value))
	if update.Error != nil {
		return r.logError("election_repo_set_max_votes_failed", update.Error, "max_votes", value)
	}
	if update.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	row := outboxModel{
		OutboxID:     outboxID,
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outbox.StatusPending,
		CreatedAt:    createdAt,
	}
	create := r.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("election_repo_append_outbox_failed", create.Error, "outbox_id", outboxID)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.conn(ctx).
		Where("status = ?", outbox.StatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("election_repo_list_outbox_failed", err)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      row.Payload,
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	timestamp := publishedAt.UTC()
	update := r.conn(ctx).Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		UpdateColumns(map[string]any{
			"status":       outbox.StatusPublished,
			"published_at": &timestamp,
		})
	if update.Error != nil {
		return r.logError("election_repo_mark_outbox_failed", update.Error, "outbox_id", outboxID)
	}
	if update.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) logError(event string, err error, args ...any) error {
	fields := append([]any{
		"event", event,
		"module", "governance/election-engine",
		"layer", "adapter",
		"error", err.Error(),
	}, args...)
	r.logger.Error("election repository operation failed", fields...)
	return err
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func seatLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domainerrors.ErrSeatOutOfRange
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.Transactor = (*Repository)(nil)
var _ ports.SlateStore = (*Repository)(nil)
var _ ports.VoterRepository = (*Repository)(nil)
var _ ports.TallyStore = (*Repository)(nil)
var _ ports.RosterRepository = (*Repository)(nil)
var _ ports.OutboxWriter = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
