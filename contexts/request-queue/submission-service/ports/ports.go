package ports

import (
	"context"
	"time"

	"atelier/contexts/request-queue/submission-service/domain/entities"
	"atelier/internal/shared/events"
	"atelier/internal/shared/policy"
)

// QueuePlacement is one row of a lane recompute: the dense position and the
// completion estimate it implies.
type QueuePlacement struct {
	SubmissionID string
	Position     int
	EstimatedAt  time.Time
	UpdatedAt    time.Time
}

type SubmissionRepository interface {
	Create(ctx context.Context, submission entities.Submission) error
	Update(ctx context.Context, submission entities.Submission) error
	Get(ctx context.Context, submissionID string) (entities.Submission, error)
	ListPending(ctx context.Context, lane policy.Lane) ([]entities.Submission, error)
	CountPendingByOwner(ctx context.Context, ownerID string) (int, error)
	ListByOwner(ctx context.Context, ownerID string, status entities.Status) ([]entities.Submission, error)
	// SavePositions applies a full lane recompute in one shot.
	SavePositions(ctx context.Context, placements []QueuePlacement) error
	SearchCompleted(ctx context.Context, query string, viewerID string) ([]entities.Submission, error)
}

type LedgerEntryType string

const (
	LedgerEntrySubmissionCost LedgerEntryType = "submission_cost"
	LedgerEntryRefund         LedgerEntryType = "refund"
	LedgerEntryAdjustment     LedgerEntryType = "adjustment"
)

type LedgerEntry struct {
	UserID       string
	Amount       int
	Type         LedgerEntryType
	Description  string
	SubmissionID string
}

// CreditLedger is the finance-core port. Append must move the cached balance
// in the same transaction scope as the calling unit of work.
type CreditLedger interface {
	Balance(ctx context.Context, userID string) (int, error)
	Append(ctx context.Context, entry LedgerEntry) (int, error)
}

// UnitOfWork serializes a mutation and its lane recompute. Implementations
// must scope the lock/transaction to the single lane so paid and free
// operations proceed in parallel, and must roll back every write of fn on
// error — a ledger entry is never observable without the queue state it
// implies.
type UnitOfWork interface {
	InLane(ctx context.Context, lane policy.Lane, fn func(ctx context.Context) error) error
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
