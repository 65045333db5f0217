// Package submissionservice implements the character request lifecycle inside
// the request-queue context.
//
// The module owns submission state transitions (create/update/cancel/start/
// complete), the queue ordering engine that keeps dense 1..N positions and
// completion estimates per lane, and the credit charges those transitions
// imply. The credit ledger itself lives in finance-core and is reached through
// a port; every mutation and its lane recompute run inside one lane-scoped
// unit of work.
package submissionservice
