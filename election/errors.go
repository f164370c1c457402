package election

import (
	"errors"

	"go.vocdoni.io/tokenvote/ledger"
)

var (
	// ErrUnauthorized is returned when the caller is not the election operator.
	ErrUnauthorized = errors.New("caller is not the election operator")
	// ErrNotFound is returned for unknown candidate ids.
	ErrNotFound = errors.New("candidate not found")
	// ErrElectionClosed is returned when mutating an ended election.
	ErrElectionClosed = errors.New("election has ended")
	// ErrElectionNotEnded is returned when asking for the winner of an open
	// election.
	ErrElectionNotEnded = errors.New("election has not ended")
	// ErrAlreadyEnded is returned when ending an election twice.
	ErrAlreadyEnded = errors.New("election already ended")
	// ErrNoCredential is returned when the voter holds no voting credential.
	ErrNoCredential = errors.New("no voting credential")
	// ErrAlreadyVoted is returned on a second vote from the same voter.
	ErrAlreadyVoted = errors.New("already voted")
	// ErrNoCandidates is returned when computing the winner of an empty
	// roster.
	ErrNoCandidates = errors.New("no candidates")
	// ErrInvalidName is returned for empty or too long candidate names.
	ErrInvalidName = errors.New("invalid candidate name")
	// ErrNotInitialized is returned by operations on an engine with no
	// operator.
	ErrNotInitialized = errors.New("election not initialized")
	// ErrAlreadyInitialized is returned by a second Init.
	ErrAlreadyInitialized = errors.New("election already initialized")

	// ErrInsufficientAllowance is returned when the voter did not authorize
	// the engine to consume a credential.
	ErrInsufficientAllowance = ledger.ErrInsufficientAllowance
	// ErrInsufficientCredential is the ledger balance error.
	ErrInsufficientCredential = ledger.ErrInsufficientCredential
)
