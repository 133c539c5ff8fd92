// Package session provides the Manager, which layers per-session mutual
// exclusion on top of any ports.SessionStore so that concurrent webhook
// handlers never interleave read-modify-write cycles for the same call.
package session
