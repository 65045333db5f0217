// Package creditledger implements the append-only credit ledger inside the
// finance-core context.
//
// The module owns credit movements (grants, submission charges, refunds,
// adjustments), the cached per-user balance projection derived from them, and
// ledger event production through the outbox. Business rules stay in the
// application layer; infrastructure hides behind ports and adapters.
package creditledger
