package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type EtchSlateRequest struct {
	Candidates []string `json:"candidates"`
}

type EtchSlateResponse struct {
	SlateKey string `json:"slate_key"`
}

type DelegateRequest struct {
	SlateKey string `json:"slate_key"`
}

type AmountRequest struct {
	Amount uint64 `json:"amount"`
}

type VoterResponse struct {
	VoterID  string `json:"voter_id"`
	Weight   uint64 `json:"weight"`
	SlateKey string `json:"slate_key,omitempty"`
}

type SwapRequest struct {
	UpperSeat int `json:"upper_seat"`
	LowerSeat int `json:"lower_seat"`
}

type DropRequest struct {
	Seat      int    `json:"seat"`
	Candidate string `json:"candidate,omitempty"`
}

type RefreshMaxRequest struct {
	Candidate string `json:"candidate,omitempty"`
}

type MaxVotesResponse struct {
	MaxVotes uint64 `json:"max_votes"`
}

type VotesResponse struct {
	Candidate string `json:"candidate"`
	Votes     uint64 `json:"votes"`
}

type ElectedResponse struct {
	Candidate string `json:"candidate"`
	Elected   bool   `json:"elected"`
}

type RosterResponse struct {
	Seats    []string `json:"seats"`
	MaxVotes uint64   `json:"max_votes"`
}

type StandingItem struct {
	Rank      int    `json:"rank"`
	Seat      int    `json:"seat"`
	Candidate string `json:"candidate"`
	Votes     uint64 `json:"votes"`
}

type StandingsResponse struct {
	Items []StandingItem `json:"items"`
}
