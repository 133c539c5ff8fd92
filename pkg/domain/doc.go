// Package domain holds the core types of the wellness-check workflow:
// trigger events, policy decisions, call sessions and their state machine
// vocabulary, response classification, and the shared error taxonomy.
//
// The package has no dependencies on adapters or infrastructure; everything
// here is plain data and pure functions.
package domain
