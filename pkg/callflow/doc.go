// Package callflow implements the call-session state machine: it turns
// policy decisions into outbound calls, interprets carrier callbacks, and
// drives every session to a terminal disposition through retry and
// escalation. All transitions run under the session manager's per-key lock,
// so racing callbacks resolve to first-transition-wins and the loser no-ops.
package callflow
