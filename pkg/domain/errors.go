package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrDuplicateSession is returned when creating a session whose ID already exists.
var ErrDuplicateSession = errors.New("session already exists")

// ErrRekeyConflict is returned when the target key of a rekey is already taken.
var ErrRekeyConflict = errors.New("rekey target already exists")

// Carrier error taxonomy. The orchestrator decides retry-vs-escalate on these.
var (
	// ErrUnreachableDestination means the number cannot be dialed at all.
	ErrUnreachableDestination = errors.New("destination unreachable")
	// ErrRateLimited means the carrier is throttling us; worth retrying.
	ErrRateLimited = errors.New("carrier rate limited")
	// ErrProvider covers any other carrier-side failure.
	ErrProvider = errors.New("carrier provider error")
)
