// Package ports defines the interfaces between the call-flow core and its
// collaborators: session persistence, distributed locking, the telephony
// carrier, the decision oracle, and escalation. Adapters implement these;
// the core depends only on this package and pkg/domain.
package ports
