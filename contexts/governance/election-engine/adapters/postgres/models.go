package postgresadapter

import (
	"encoding/json"
	"time"

	"rostrum/contexts/governance/election-engine/domain/entities"
)

type slateModel struct {
	Key        string    `gorm:"column:key;primaryKey"`
	Candidates string    `gorm:"column:candidates"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (slateModel) TableName() string {
	return "election_slates"
}

func (m slateModel) toEntity() (entities.Slate, error) {
	var candidates []entities.CandidateID
	if err := json.Unmarshal([]byte(m.Candidates), &candidates); err != nil {
		return entities.Slate{}, err
	}
	return entities.Slate{
		Key:        m.Key,
		Candidates: candidates,
		CreatedAt:  m.CreatedAt.UTC(),
	}, nil
}

type voterModel struct {
	VoterID   string    `gorm:"column:voter_id;primaryKey"`
	Weight    int64     `gorm:"column:weight"`
	SlateKey  string    `gorm:"column:slate_key"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (voterModel) TableName() string {
	return "election_voters"
}

func voterModelFromEntity(voter entities.Voter) voterModel {
	row := voterModel{
		VoterID:   voter.VoterID,
		Weight:    int64(voter.Weight),
		SlateKey:  voter.SlateKey,
		CreatedAt: voter.CreatedAt.UTC(),
		UpdatedAt: voter.UpdatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return row
}

func (m voterModel) toEntity() entities.Voter {
	return entities.Voter{
		VoterID:   m.VoterID,
		Weight:    uint64(m.Weight),
		SlateKey:  m.SlateKey,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

type tallyModel struct {
	Candidate string `gorm:"column:candidate;primaryKey"`
	Votes     int64  `gorm:"column:votes"`
}

func (tallyModel) TableName() string {
	return "election_tallies"
}

// Vacant seats store the empty string; the candidate uniqueness index is
// partial (WHERE candidate <> '') so multiple vacant seats coexist.
type seatModel struct {
	SeatIndex int    `gorm:"column:seat_index;primaryKey"`
	Candidate string `gorm:"column:candidate"`
}

func (seatModel) TableName() string {
	return "election_seats"
}

type rosterMetaModel struct {
	ID       int   `gorm:"column:id;primaryKey"`
	Size     int   `gorm:"column:size"`
	MaxVotes int64 `gorm:"column:max_votes"`
}

func (rosterMetaModel) TableName() string {
	return "election_roster"
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "election_outbox"
}
