package application

import (
	"context"
	"sort"
	"strings"

	"atelier/contexts/request-queue/submission-service/domain/entities"
	domainerrors "atelier/contexts/request-queue/submission-service/domain/errors"
	"atelier/internal/shared/identity"
	"atelier/internal/shared/policy"
)

// Get returns one submission. Private submissions are visible only to their
// owner and to admins.
func (s Service) Get(ctx context.Context, actor identity.Actor, submissionID string) (entities.Submission, error) {
	submissionID = strings.TrimSpace(submissionID)
	if submissionID == "" {
		return entities.Submission{}, domainerrors.ErrInvalidInput
	}
	submission, err := s.Repo.Get(ctx, submissionID)
	if err != nil {
		return entities.Submission{}, err
	}
	if !submission.IsPublic && !actor.CanManage(submission.OwnerID) {
		return entities.Submission{}, domainerrors.ErrForbidden
	}
	return submission, nil
}

// ListByOwner returns a user's own submissions, optionally filtered by
// status. Admins may list on behalf of any user.
func (s Service) ListByOwner(ctx context.Context, actor identity.Actor, ownerID string, status entities.Status) ([]entities.Submission, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, domainerrors.ErrInvalidInput
	}
	if !actor.CanManage(ownerID) {
		return nil, domainerrors.ErrForbidden
	}
	return s.Repo.ListByOwner(ctx, ownerID, status)
}

// QueueSnapshot is the public lane view: every pending submission in position
// order. Redaction of private entries is a presentation concern and stays in
// the transport layer.
func (s Service) QueueSnapshot(ctx context.Context, lane policy.Lane) ([]entities.Submission, error) {
	if lane != policy.LanePaid && lane != policy.LaneFree {
		return nil, domainerrors.ErrInvalidInput
	}
	pending, err := s.Repo.ListPending(ctx, lane)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(pending, func(i, j int) bool {
		left, right := pending[i].QueuePosition, pending[j].QueuePosition
		if left == nil || right == nil {
			return right == nil && left != nil
		}
		return *left < *right
	})
	return pending, nil
}

// SearchCompleted finds delivered requests by character name or series.
// Private results are limited to the viewer's own submissions.
func (s Service) SearchCompleted(ctx context.Context, actor identity.Actor, query string) ([]entities.Submission, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domainerrors.ErrInvalidInput
	}
	viewerID := actor.UserID
	if actor.IsAdmin {
		viewerID = ""
	}
	return s.Repo.SearchCompleted(ctx, query, viewerID)
}
