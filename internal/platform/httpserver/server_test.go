package httpserver_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	electionengine "rostrum/contexts/governance/election-engine"
	"rostrum/internal/platform/httpserver"
)

type client struct {
	t      *testing.T
	server *httptest.Server
	module electionengine.Module
}

func newClient(t *testing.T) client {
	t.Helper()
	module := electionengine.NewInMemoryModule(3, nil)
	srv := httpserver.New(module, nil, ":0")
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return client{t: t, server: ts, module: module}
}

func (c client) do(method string, path string, voterID string, body any) *http.Response {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatalf("encode body failed: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.server.URL+path, &buf)
	if err != nil {
		c.t.Fatalf("build request failed: %v", err)
	}
	if voterID != "" {
		req.Header.Set("X-Voter-Id", voterID)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s failed: %v", method, path, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	return out
}

func (c client) backCandidate(voterID string, candidate string, weight uint64) {
	c.t.Helper()
	c.module.Ledger.SetBalance(voterID, weight)

	resp := c.do(http.MethodPost, "/v1/slates", "", map[string]any{"candidates": []string{candidate}})
	if resp.StatusCode != http.StatusOK {
		c.t.Fatalf("etch slate status: got %d", resp.StatusCode)
	}
	etched := decode[struct {
		SlateKey string `json:"slate_key"`
	}](c.t, resp)

	resp = c.do(http.MethodPost, "/v1/delegations", voterID, map[string]any{"slate_key": etched.SlateKey})
	if resp.StatusCode != http.StatusNoContent {
		c.t.Fatalf("delegate status: got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = c.do(http.MethodPost, "/v1/weight/lock", voterID, map[string]any{"amount": weight})
	if resp.StatusCode != http.StatusOK {
		c.t.Fatalf("lock status: got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestElectionEndToEndOverHTTP(t *testing.T) {
	c := newClient(t)

	c.backCandidate("voter-a", "alpha", 10)
	c.backCandidate("voter-b", "bravo", 40)
	c.backCandidate("voter-c", "charlie", 5)

	seats := []struct {
		seat      int
		candidate string
	}{{0, "alpha"}, {2, "charlie"}, {1, "bravo"}}
	for _, s := range seats {
		resp := c.do(http.MethodPost, "/v1/roster/drop", "", map[string]any{"seat": s.seat, "candidate": s.candidate})
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("seed drop %v status: got %d", s, resp.StatusCode)
		}
		resp.Body.Close()
	}

	resp := c.do(http.MethodPost, "/v1/roster/swap", "", map[string]any{"upper_seat": 0, "lower_seat": 1})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("swap status: got %d", resp.StatusCode)
	}
	resp.Body.Close()

	roster := decode[struct {
		Seats    []string `json:"seats"`
		MaxVotes uint64   `json:"max_votes"`
	}](t, c.do(http.MethodGet, "/v1/roster", "", nil))
	want := []string{"bravo", "alpha", "charlie"}
	for i, candidate := range want {
		if roster.Seats[i] != candidate {
			t.Fatalf("seat %d: got %q, want %q", i, roster.Seats[i], candidate)
		}
	}
	if roster.MaxVotes != 40 {
		t.Fatalf("max votes: got %d, want 40", roster.MaxVotes)
	}

	elected := decode[struct {
		Elected bool `json:"elected"`
	}](t, c.do(http.MethodGet, "/v1/candidates/bravo/elected", "", nil))
	if !elected.Elected {
		t.Fatalf("bravo must be elected")
	}
	elected = decode[struct {
		Elected bool `json:"elected"`
	}](t, c.do(http.MethodGet, "/v1/candidates/charlie/elected", "", nil))
	if elected.Elected {
		t.Fatalf("charlie must not be elected below half-of-max")
	}
}

func TestRejectedMoveMapsToConflict(t *testing.T) {
	c := newClient(t)

	c.backCandidate("voter-a", "alpha", 10)
	resp := c.do(http.MethodPost, "/v1/roster/drop", "", map[string]any{"seat": 0, "candidate": "alpha"})
	resp.Body.Close()

	// Swapping an empty lower seat upward violates the ordering rules.
	resp = c.do(http.MethodPost, "/v1/roster/swap", "", map[string]any{"upper_seat": 0, "lower_seat": 1})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("rejected swap status: got %d, want 409", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestMissingVoterHeaderIsUnauthorized(t *testing.T) {
	c := newClient(t)

	resp := c.do(http.MethodPost, "/v1/weight/lock", "", map[string]any{"amount": 5})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("lock without voter header: got %d, want 401", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestUnknownSlateMapsToNotFound(t *testing.T) {
	c := newClient(t)

	resp := c.do(http.MethodPost, "/v1/delegations", "voter-a", map[string]any{"slate_key": "no-such-key"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown slate status: got %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestVoterReadBackAfterLockAndFree(t *testing.T) {
	c := newClient(t)

	c.backCandidate("voter-a", "alpha", 30)
	resp := c.do(http.MethodPost, "/v1/weight/free", "voter-a", map[string]any{"amount": 10})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("free status: got %d", resp.StatusCode)
	}
	freed := decode[struct {
		VoterID string `json:"voter_id"`
		Weight  uint64 `json:"weight"`
	}](t, resp)
	if freed.Weight != 20 {
		t.Fatalf("weight after free: got %d, want 20", freed.Weight)
	}

	read := decode[struct {
		Weight uint64 `json:"weight"`
	}](t, c.do(http.MethodGet, fmt.Sprintf("/v1/voters/%s", "voter-a"), "", nil))
	if read.Weight != 20 {
		t.Fatalf("voter read back: got %d, want 20", read.Weight)
	}
}

func TestRefreshMaxEndpoint(t *testing.T) {
	c := newClient(t)

	c.backCandidate("voter-a", "alpha", 10)
	c.backCandidate("voter-b", "bravo", 40)
	for _, s := range []struct {
		seat      int
		candidate string
	}{{0, "alpha"}, {1, "bravo"}} {
		resp := c.do(http.MethodPost, "/v1/roster/drop", "", map[string]any{"seat": s.seat, "candidate": s.candidate})
		resp.Body.Close()
	}

	resp := c.do(http.MethodPost, "/v1/weight/free", "voter-b", map[string]any{"amount": 35})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("free status: got %d", resp.StatusCode)
	}
	resp.Body.Close()

	refreshed := decode[struct {
		MaxVotes uint64 `json:"max_votes"`
	}](t, c.do(http.MethodPost, "/v1/roster/refresh-max", "", map[string]any{}))
	if refreshed.MaxVotes != 10 {
		t.Fatalf("refreshed max: got %d, want 10", refreshed.MaxVotes)
	}
}
