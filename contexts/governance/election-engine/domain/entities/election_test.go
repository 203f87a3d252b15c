package entities

import "testing"

func TestWellFormedSlateAcceptsStrictlyIncreasingSequences(t *testing.T) {
	cases := [][]CandidateID{
		nil,
		{},
		{"alpha"},
		{"alpha", "bravo", "charlie"},
	}
	for _, candidates := range cases {
		if !WellFormedSlate(candidates) {
			t.Fatalf("expected %v to be well formed", candidates)
		}
	}
}

func TestWellFormedSlateRejectsDisorderAndSentinel(t *testing.T) {
	cases := map[string][]CandidateID{
		"duplicate":         {"alpha", "alpha"},
		"descending":        {"bravo", "alpha"},
		"sentinel member":   {CandidateNone},
		"sentinel interior": {"alpha", CandidateNone, "bravo"},
	}
	for name, candidates := range cases {
		if WellFormedSlate(candidates) {
			t.Fatalf("expected %s slate %v to be rejected", name, candidates)
		}
	}
}

func TestSlateKeyIsDeterministic(t *testing.T) {
	first := SlateKey([]CandidateID{"alpha", "bravo"})
	second := SlateKey([]CandidateID{"alpha", "bravo"})
	if first == "" || first != second {
		t.Fatalf("expected stable non-empty key, got %q and %q", first, second)
	}
	if other := SlateKey([]CandidateID{"alpha", "charlie"}); other == first {
		t.Fatalf("different contents must produce different keys")
	}
}

func TestSlateKeyTreatsNilAndEmptyAsSameContents(t *testing.T) {
	if SlateKey(nil) != SlateKey([]CandidateID{}) {
		t.Fatalf("nil and empty slates must address the same stored slate")
	}
}

func TestRosterThresholdIsHalfOfMax(t *testing.T) {
	cases := map[uint64]uint64{0: 0, 1: 0, 2: 1, 40: 20, 41: 20}
	for max, want := range cases {
		roster := RosterState{MaxVotes: max}
		if got := roster.Threshold(); got != want {
			t.Fatalf("threshold for max %d: got %d, want %d", max, got, want)
		}
	}
}
