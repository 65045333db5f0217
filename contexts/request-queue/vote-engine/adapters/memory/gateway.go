package memory

import (
	"context"
	"strings"
	"sync"

	domainerrors "atelier/contexts/request-queue/vote-engine/domain/errors"
	"atelier/contexts/request-queue/vote-engine/ports"
)

// Gateway is an in-memory queue projection for tests and local composition.
// The wired deployment replaces it with an adapter over the submission
// module behind the same port.
type Gateway struct {
	mu          sync.RWMutex
	submissions map[string]ports.QueueSubmission
}

func NewGateway() *Gateway {
	return &Gateway{submissions: make(map[string]ports.QueueSubmission)}
}

// SetSubmission seeds or overwrites one projection row.
func (g *Gateway) SetSubmission(submission ports.QueueSubmission) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.submissions[submission.SubmissionID] = submission
}

func (g *Gateway) GetSubmission(_ context.Context, submissionID string) (ports.QueueSubmission, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	submission, ok := g.submissions[strings.TrimSpace(submissionID)]
	if !ok {
		return ports.QueueSubmission{}, domainerrors.ErrSubmissionNotFound
	}
	return submission, nil
}

func (g *Gateway) ApplyVoteDelta(_ context.Context, submissionID string, delta int) (ports.QueueSubmission, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	submission, ok := g.submissions[strings.TrimSpace(submissionID)]
	if !ok {
		return ports.QueueSubmission{}, domainerrors.ErrSubmissionNotFound
	}
	submission.VoteCount += delta
	if submission.VoteCount < 0 {
		submission.VoteCount = 0
	}
	g.submissions[submission.SubmissionID] = submission
	return submission, nil
}
