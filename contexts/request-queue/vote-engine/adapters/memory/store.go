package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"atelier/contexts/request-queue/vote-engine/domain/entities"
	domainerrors "atelier/contexts/request-queue/vote-engine/domain/errors"
	"atelier/contexts/request-queue/vote-engine/ports"
	"atelier/internal/shared/policy"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

// Store is the in-memory vote adapter: repository, per-lane unit of work,
// outbox and clock/id providers in one place for tests and local composition.
type Store struct {
	mu sync.RWMutex

	lanes  map[policy.Lane]*sync.Mutex
	votes  map[string]entities.Vote
	outbox map[string]outboxRecord
}

func NewStore(seed []entities.Vote) *Store {
	s := &Store{
		lanes: map[policy.Lane]*sync.Mutex{
			policy.LanePaid: {},
			policy.LaneFree: {},
		},
		votes:  make(map[string]entities.Vote),
		outbox: make(map[string]outboxRecord),
	}
	for _, vote := range seed {
		s.votes[vote.VoteID] = vote
	}
	return s
}

// InLane serializes the lane's vote mutations and restores the pre-call vote
// state when fn fails.
func (s *Store) InLane(ctx context.Context, lane policy.Lane, fn func(ctx context.Context) error) error {
	laneMu, ok := s.lanes[lane]
	if !ok {
		return domainerrors.ErrInvalidInput
	}
	laneMu.Lock()
	defer laneMu.Unlock()

	snapshot := s.snapshot()
	if err := fn(ctx); err != nil {
		s.restore(snapshot)
		return err
	}
	return nil
}

func (s *Store) snapshot() map[string]entities.Vote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copied := make(map[string]entities.Vote, len(s.votes))
	for id, vote := range s.votes {
		copied[id] = vote
	}
	return copied
}

func (s *Store) restore(snapshot map[string]entities.Vote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.votes = snapshot
}

func (s *Store) Create(_ context.Context, vote entities.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.votes {
		if existing.UserID == vote.UserID && existing.SubmissionID == vote.SubmissionID {
			return domainerrors.ErrAlreadyVoted
		}
	}
	s.votes[vote.VoteID] = vote
	return nil
}

func (s *Store) Delete(_ context.Context, voteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.votes[strings.TrimSpace(voteID)]; !ok {
		return domainerrors.ErrVoteNotFound
	}
	delete(s.votes, strings.TrimSpace(voteID))
	return nil
}

func (s *Store) Find(_ context.Context, userID, submissionID string) (entities.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID = strings.TrimSpace(userID)
	submissionID = strings.TrimSpace(submissionID)
	for _, vote := range s.votes {
		if vote.UserID == userID && vote.SubmissionID == submissionID {
			return vote, nil
		}
	}
	return entities.Vote{}, domainerrors.ErrVoteNotFound
}

func (s *Store) ListByUser(_ context.Context, userID string) ([]entities.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID = strings.TrimSpace(userID)
	items := make([]entities.Vote, 0)
	for _, vote := range s.votes {
		if vote.UserID == userID {
			items = append(items, vote)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) CountByUserInMonth(_ context.Context, userID, month string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID = strings.TrimSpace(userID)
	month = strings.TrimSpace(month)
	count := 0
	for _, vote := range s.votes {
		if vote.UserID == userID && vote.Month == month {
			count++
		}
	}
	return count, nil
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
