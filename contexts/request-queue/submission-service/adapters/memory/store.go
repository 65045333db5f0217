package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"atelier/contexts/request-queue/submission-service/domain/entities"
	domainerrors "atelier/contexts/request-queue/submission-service/domain/errors"
	"atelier/contexts/request-queue/submission-service/ports"
	"atelier/internal/shared/policy"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

// Store is the in-memory submission adapter. It backs every port the module
// needs for tests and local composition: the repository, the per-lane unit of
// work, the outbox and the clock/id providers.
type Store struct {
	mu sync.RWMutex

	lanes       map[policy.Lane]*sync.Mutex
	submissions map[string]entities.Submission
	outbox      map[string]outboxRecord
}

func NewStore(seed []entities.Submission) *Store {
	s := &Store{
		lanes: map[policy.Lane]*sync.Mutex{
			policy.LanePaid: {},
			policy.LaneFree: {},
		},
		submissions: make(map[string]entities.Submission),
		outbox:      make(map[string]outboxRecord),
	}
	for _, submission := range seed {
		s.submissions[submission.SubmissionID] = clone(submission)
	}
	return s
}

// InLane serializes the lane's mutations and restores the pre-call submission
// state when fn fails, so a rejected create or edit leaves no trace.
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

func (s *Store) snapshot() map[string]entities.Submission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copied := make(map[string]entities.Submission, len(s.submissions))
	for id, submission := range s.submissions {
		copied[id] = clone(submission)
	}
	return copied
}

func (s *Store) restore(snapshot map[string]entities.Submission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions = snapshot
}

func (s *Store) Create(_ context.Context, submission entities.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.submissions[submission.SubmissionID]; ok {
		return domainerrors.ErrInvalidInput
	}
	s.submissions[submission.SubmissionID] = clone(submission)
	return nil
}

func (s *Store) Update(_ context.Context, submission entities.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.submissions[submission.SubmissionID]; !ok {
		return domainerrors.ErrSubmissionNotFound
	}
	s.submissions[submission.SubmissionID] = clone(submission)
	return nil
}

func (s *Store) Get(_ context.Context, submissionID string) (entities.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	submission, ok := s.submissions[strings.TrimSpace(submissionID)]
	if !ok {
		return entities.Submission{}, domainerrors.ErrSubmissionNotFound
	}
	return clone(submission), nil
}

func (s *Store) ListPending(_ context.Context, lane policy.Lane) ([]entities.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Submission, 0)
	for _, submission := range s.submissions {
		if submission.Status == entities.StatusPending && submission.QueueType == lane {
			items = append(items, clone(submission))
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].SubmittedAt.Before(items[j].SubmittedAt)
	})
	return items, nil
}

func (s *Store) CountPendingByOwner(_ context.Context, ownerID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ownerID = strings.TrimSpace(ownerID)
	count := 0
	for _, submission := range s.submissions {
		if submission.OwnerID == ownerID && submission.Status == entities.StatusPending {
			count++
		}
	}
	return count, nil
}

func (s *Store) ListByOwner(_ context.Context, ownerID string, status entities.Status) ([]entities.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ownerID = strings.TrimSpace(ownerID)
	items := make([]entities.Submission, 0)
	for _, submission := range s.submissions {
		if submission.OwnerID != ownerID {
			continue
		}
		if status != "" && submission.Status != status {
			continue
		}
		items = append(items, clone(submission))
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].SubmittedAt.After(items[j].SubmittedAt)
	})
	return items, nil
}

func (s *Store) SavePositions(_ context.Context, placements []ports.QueuePlacement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, placement := range placements {
		submission, ok := s.submissions[placement.SubmissionID]
		if !ok {
			return domainerrors.ErrSubmissionNotFound
		}
		position := placement.Position
		estimated := placement.EstimatedAt
		submission.QueuePosition = &position
		submission.EstimatedAt = &estimated
		submission.UpdatedAt = placement.UpdatedAt
		s.submissions[placement.SubmissionID] = submission
	}
	return nil
}

func (s *Store) SearchCompleted(_ context.Context, query string, viewerID string) ([]entities.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	needle := strings.ToLower(strings.TrimSpace(query))
	viewerID = strings.TrimSpace(viewerID)
	items := make([]entities.Submission, 0)
	for _, submission := range s.submissions {
		if submission.Status != entities.StatusCompleted {
			continue
		}
		if !submission.IsPublic && viewerID != "" && submission.OwnerID != viewerID {
			continue
		}
		if !strings.Contains(strings.ToLower(submission.CharacterName), needle) &&
			!strings.Contains(strings.ToLower(submission.Series), needle) {
			continue
		}
		items = append(items, clone(submission))
	}
	sort.SliceStable(items, func(i, j int) bool {
		return completedAfter(items[i], items[j])
	})
	return items, nil
}

func completedAfter(a, b entities.Submission) bool {
	if a.CompletedAt == nil || b.CompletedAt == nil {
		return a.CompletedAt != nil
	}
	return a.CompletedAt.After(*b.CompletedAt)
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

// clone deep-copies the pointer fields so callers never alias stored state.
func clone(submission entities.Submission) entities.Submission {
	copied := submission
	if submission.QueuePosition != nil {
		position := *submission.QueuePosition
		copied.QueuePosition = &position
	}
	if submission.StartedAt != nil {
		startedAt := *submission.StartedAt
		copied.StartedAt = &startedAt
	}
	if submission.CompletedAt != nil {
		completedAt := *submission.CompletedAt
		copied.CompletedAt = &completedAt
	}
	if submission.EstimatedAt != nil {
		estimatedAt := *submission.EstimatedAt
		copied.EstimatedAt = &estimatedAt
	}
	return copied
}
