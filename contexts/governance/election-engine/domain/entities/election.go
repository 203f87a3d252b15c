package entities

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// CandidateID identifies a candidate account. Identifiers compare
// lexicographically; CandidateNone is the empty-seat sentinel and orders
// below every real candidate for threshold purposes.
type CandidateID string

const CandidateNone CandidateID = ""

func (c CandidateID) IsNone() bool {
	return c == CandidateNone
}

// Slate is an immutable, strictly increasing candidate set that a voter
// delegates as a single unit. Slates are shared read-only and never deleted.
type Slate struct {
	Key        string
	Candidates []CandidateID
	CreatedAt  time.Time
}

// WellFormedSlate reports whether candidates are strictly increasing with no
// sentinel members. Empty and singleton sequences are valid; the strict order
// rejects duplicates and unordered input in one pass.
func WellFormedSlate(candidates []CandidateID) bool {
	for i, candidate := range candidates {
		if candidate.IsNone() {
			return false
		}
		if i > 0 && candidates[i-1] >= candidate {
			return false
		}
	}
	return true
}

// SlateKey derives the content address of a candidate sequence. Identical
// sequences always produce identical keys.
func SlateKey(candidates []CandidateID) string {
	if candidates == nil {
		candidates = []CandidateID{}
	}
	raw, _ := json.Marshal(candidates)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Voter is the only mutable per-actor record: locked weight plus the key of
// the currently delegated slate (empty when none).
type Voter struct {
	VoterID   string
	Weight    uint64
	SlateKey  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (v Voter) HasSlate() bool {
	return v.SlateKey != ""
}

// RosterState is a point-in-time snapshot of the elected roster: the fixed
// seat sequence and the cached running maximum occupant tally.
type RosterState struct {
	Seats    []CandidateID
	MaxVotes uint64
}

// Threshold is the half-of-max admission bound (integer floor).
func (r RosterState) Threshold() uint64 {
	return r.MaxVotes / 2
}

func (r RosterState) Size() int {
	return len(r.Seats)
}

// Standing is one row of the descending-tally view over roster occupants.
type Standing struct {
	Rank      int
	Seat      int
	Candidate CandidateID
	Tally     uint64
}
