package memory

import (
	"context"
	"strings"
	"sync"

	"atelier/contexts/request-queue/submission-service/ports"
)

// Ledger is a minimal in-process credit account used for tests and local
// composition. The wired deployment replaces it with the finance-core
// ledger behind the same port.
type Ledger struct {
	mu       sync.Mutex
	balances map[string]int
	entries  []ports.LedgerEntry
}

func NewLedger(balances map[string]int) *Ledger {
	l := &Ledger{balances: make(map[string]int)}
	for userID, balance := range balances {
		l.balances[strings.TrimSpace(userID)] = balance
	}
	return l
}

func (l *Ledger) Balance(_ context.Context, userID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[strings.TrimSpace(userID)], nil
}

func (l *Ledger) Append(_ context.Context, entry ports.LedgerEntry) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	userID := strings.TrimSpace(entry.UserID)
	l.balances[userID] += entry.Amount
	l.entries = append(l.entries, entry)
	return l.balances[userID], nil
}

// Entries exposes the append log for assertions.
func (l *Ledger) Entries() []ports.LedgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ports.LedgerEntry(nil), l.entries...)
}
