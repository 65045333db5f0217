package ports

import (
	"context"
	"time"

	"atelier/contexts/finance-core/credit-ledger/domain/entities"
	"atelier/internal/shared/events"
)

type Repository interface {
	// Append persists the transaction and moves the cached balance by
	// txn.Amount inside one atomic scope. It returns the balance after the
	// movement.
	Append(ctx context.Context, txn entities.Transaction) (int, error)
	Balance(ctx context.Context, userID string) (int, error)
	// History returns a finite newest-first snapshot, at most limit rows.
	History(ctx context.Context, userID string, limit int) ([]entities.Transaction, error)
	HasGrant(ctx context.Context, userID string, month string) (bool, error)
	RecordGrant(ctx context.Context, userID string, month string, grantedAt time.Time) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type EventEnvelope = events.Envelope

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}
