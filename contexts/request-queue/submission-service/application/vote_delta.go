package application

import (
	"context"
	"strings"

	"atelier/contexts/request-queue/submission-service/domain/entities"
	domainerrors "atelier/contexts/request-queue/submission-service/domain/errors"
	"atelier/internal/shared/policy"
)

// ApplyVoteDelta moves a pending free-lane submission's vote count and
// re-ranks the lane. The caller already holds the free lane's unit of work,
// so this runs on the ambient transaction and takes no lock of its own.
func (s Service) ApplyVoteDelta(ctx context.Context, submissionID string, delta int) (entities.Submission, error) {
	submissionID = strings.TrimSpace(submissionID)
	if submissionID == "" || delta == 0 {
		return entities.Submission{}, domainerrors.ErrInvalidInput
	}

	submission, err := s.Repo.Get(ctx, submissionID)
	if err != nil {
		return entities.Submission{}, err
	}
	if submission.QueueType != policy.LaneFree || submission.Status != entities.StatusPending {
		return entities.Submission{}, domainerrors.ErrInvalidTransition
	}

	submission.VoteCount += delta
	if submission.VoteCount < 0 {
		submission.VoteCount = 0
	}
	now := s.now()
	submission.UpdatedAt = now
	if err := s.Repo.Update(ctx, submission); err != nil {
		return entities.Submission{}, err
	}
	if err := s.recomputeLane(ctx, policy.LaneFree, now); err != nil {
		return entities.Submission{}, err
	}
	return s.Repo.Get(ctx, submissionID)
}
