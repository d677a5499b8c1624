// Package lease provides advisory file leases for the index writer.
//
// A lease is a JSON sidecar record next to the guarded resource, holding a
// random owner token, acquisition and heartbeat timestamps, and the owner's
// declared staleness timeout. Decisions about ownership happen inside a
// short critical section guarded by an OS file lock, so concurrent
// processes always observe a consistent record.
//
// Liveness is heartbeat-based. A held lease refreshes its heartbeat on a
// background goroutine; a lease whose heartbeat is older than its timeout
// is considered abandoned and is silently reclaimed by the next acquirer
// (logged as informational, not an error). Tokens, not process IDs, decide
// ownership, which keeps the scheme honest across containers and hosts.
//
// Release is idempotent and safe to defer alongside panicking work.
package lease
