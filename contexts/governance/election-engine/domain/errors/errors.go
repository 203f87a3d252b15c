package errors

import "errors"

var (
	ErrMalformedSlate     = errors.New("slate candidates are not strictly increasing")
	ErrUnknownSlate       = errors.New("slate has never been etched")
	ErrTransferFailed     = errors.New("value ledger rejected the transfer")
	ErrInsufficientWeight = errors.New("free amount exceeds locked weight")
	ErrInvariantViolation = errors.New("roster move fails invariant check")
	ErrDuplicateCandidate = errors.New("candidate already occupies a seat")
	ErrSeatOutOfRange     = errors.New("seat index out of range")
	ErrInvalidInput       = errors.New("invalid election input")
	ErrVoterNotFound      = errors.New("voter not found")
	ErrConflict           = errors.New("election state conflict")
)
