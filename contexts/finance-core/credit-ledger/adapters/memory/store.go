package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"atelier/contexts/finance-core/credit-ledger/domain/entities"
	"atelier/contexts/finance-core/credit-ledger/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

type Store struct {
	mu sync.RWMutex

	transactions map[string][]entities.Transaction
	balances     map[string]int
	grants       map[string]time.Time
	outbox       map[string]outboxRecord
}

func NewStore(seed []entities.Transaction) *Store {
	s := &Store{
		transactions: make(map[string][]entities.Transaction),
		balances:     make(map[string]int),
		grants:       make(map[string]time.Time),
		outbox:       make(map[string]outboxRecord),
	}
	for _, txn := range seed {
		userID := strings.TrimSpace(txn.UserID)
		s.transactions[userID] = append(s.transactions[userID], txn)
		s.balances[userID] += txn.Amount
	}
	return s
}

func (s *Store) Append(_ context.Context, txn entities.Transaction) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID := strings.TrimSpace(txn.UserID)
	s.transactions[userID] = append(s.transactions[userID], txn)
	s.balances[userID] += txn.Amount
	return s.balances[userID], nil
}

func (s *Store) Balance(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[strings.TrimSpace(userID)], nil
}

func (s *Store) History(_ context.Context, userID string, limit int) ([]entities.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.transactions[strings.TrimSpace(userID)]
	items := append([]entities.Transaction(nil), rows...)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) HasGrant(_ context.Context, userID string, month string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.grants[grantKey(userID, month)]
	return ok, nil
}

func (s *Store) RecordGrant(_ context.Context, userID string, month string, grantedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[grantKey(userID, month)] = grantedAt.UTC()
	return nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if existing, ok := s.outbox[outboxID]; ok && bytes.Equal(existing.message.Payload, payload) {
		return nil
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
		},
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		items = append(items, row.message)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return nil
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func grantKey(userID string, month string) string {
	return strings.TrimSpace(userID) + "|" + strings.TrimSpace(month)
}
