package ports

import (
	"context"
	"time"

	"atelier/contexts/request-queue/vote-engine/domain/entities"
	"atelier/internal/shared/events"
	"atelier/internal/shared/policy"
)

type VoteRepository interface {
	// Create fails ErrAlreadyVoted when the (user, submission) pair exists.
	Create(ctx context.Context, vote entities.Vote) error
	Delete(ctx context.Context, voteID string) error
	Find(ctx context.Context, userID, submissionID string) (entities.Vote, error)
	ListByUser(ctx context.Context, userID string) ([]entities.Vote, error)
	CountByUserInMonth(ctx context.Context, userID, month string) (int, error)
}

// QueueSubmission is the projection of a submission the vote engine needs:
// enough to gate votability and nothing more.
type QueueSubmission struct {
	SubmissionID string
	OwnerID      string
	Status       string
	QueueType    policy.Lane
	VoteCount    int
}

// QueueGateway reaches into the submission queue. ApplyVoteDelta must run on
// the caller's unit of work: it moves the vote count and re-ranks the free
// lane without taking a lock of its own.
type QueueGateway interface {
	GetSubmission(ctx context.Context, submissionID string) (QueueSubmission, error)
	ApplyVoteDelta(ctx context.Context, submissionID string, delta int) (QueueSubmission, error)
}

// UnitOfWork serializes a vote mutation with the lane re-rank it causes and
// rolls back both on error.
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
