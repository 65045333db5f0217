package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"atelier/contexts/request-queue/submission-service/application"
	"atelier/contexts/request-queue/submission-service/domain/entities"
	httptransport "atelier/contexts/request-queue/submission-service/transport/http"
	"atelier/internal/shared/identity"
	"atelier/internal/shared/policy"
)

type Handler struct {
	Submissions application.Service
	Logger      *slog.Logger
}

func (h Handler) CreateHandler(ctx context.Context, actor identity.Actor, req httptransport.CreateRequest) (httptransport.SubmissionResponse, error) {
	created, err := h.Submissions.Create(ctx, actor, application.CreateInput{
		CharacterName:     req.CharacterName,
		Series:            req.Series,
		Description:       req.Description,
		IsPublic:          req.IsPublic,
		IsLargeImageSet:   req.IsLargeImageSet,
		IsDoubleCharacter: req.IsDoubleCharacter,
	})
	if err != nil {
		return httptransport.SubmissionResponse{}, err
	}
	return toResponse(created), nil
}

func (h Handler) UpdateHandler(ctx context.Context, actor identity.Actor, submissionID string, req httptransport.UpdateRequest) (httptransport.SubmissionResponse, error) {
	updated, err := h.Submissions.Update(ctx, actor, submissionID, application.UpdateInput{
		CharacterName:     req.CharacterName,
		Series:            req.Series,
		Description:       req.Description,
		IsPublic:          req.IsPublic,
		IsLargeImageSet:   req.IsLargeImageSet,
		IsDoubleCharacter: req.IsDoubleCharacter,
	})
	if err != nil {
		return httptransport.SubmissionResponse{}, err
	}
	return toResponse(updated), nil
}

func (h Handler) CancelHandler(ctx context.Context, actor identity.Actor, submissionID string, req httptransport.CancelRequest) (httptransport.SubmissionResponse, error) {
	cancelled, err := h.Submissions.Cancel(ctx, actor, submissionID, req.Reason)
	if err != nil {
		return httptransport.SubmissionResponse{}, err
	}
	return toResponse(cancelled), nil
}

func (h Handler) StartHandler(ctx context.Context, actor identity.Actor, submissionID string) (httptransport.SubmissionResponse, error) {
	started, err := h.Submissions.Start(ctx, actor, submissionID)
	if err != nil {
		return httptransport.SubmissionResponse{}, err
	}
	return toResponse(started), nil
}

func (h Handler) CompleteHandler(ctx context.Context, actor identity.Actor, submissionID string, req httptransport.CompleteRequest) (httptransport.SubmissionResponse, error) {
	completed, err := h.Submissions.Complete(ctx, actor, submissionID, application.CompleteInput{
		CompletionLink: req.CompletionLink,
		CreatorNotes:   req.CreatorNotes,
	})
	if err != nil {
		return httptransport.SubmissionResponse{}, err
	}
	return toResponse(completed), nil
}

func (h Handler) GetHandler(ctx context.Context, actor identity.Actor, submissionID string) (httptransport.SubmissionResponse, error) {
	submission, err := h.Submissions.Get(ctx, actor, submissionID)
	if err != nil {
		return httptransport.SubmissionResponse{}, err
	}
	return toResponse(submission), nil
}

func (h Handler) ListByOwnerHandler(ctx context.Context, actor identity.Actor, ownerID string, status string) (httptransport.ListResponse, error) {
	rows, err := h.Submissions.ListByOwner(ctx, actor, ownerID, entities.Status(status))
	if err != nil {
		return httptransport.ListResponse{}, err
	}
	items := make([]httptransport.SubmissionResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, toResponse(row))
	}
	return httptransport.ListResponse{
		UserID: ownerID,
		Items:  items,
	}, nil
}

func (h Handler) QueueHandler(ctx context.Context, actor identity.Actor, lane string) (httptransport.QueueResponse, error) {
	rows, err := h.Submissions.QueueSnapshot(ctx, policy.Lane(lane))
	if err != nil {
		return httptransport.QueueResponse{}, err
	}
	items := make([]httptransport.QueueEntry, 0, len(rows))
	for _, row := range rows {
		entry := httptransport.QueueEntry{
			SubmissionID: row.SubmissionID,
			IsPublic:     row.IsPublic,
			VoteCount:    row.VoteCount,
		}
		if row.QueuePosition != nil {
			entry.Position = *row.QueuePosition
		}
		if row.EstimatedAt != nil {
			entry.EstimatedAt = row.EstimatedAt.UTC().Format(time.RFC3339)
		}
		if row.IsPublic || actor.CanManage(row.OwnerID) {
			entry.CharacterName = row.CharacterName
			entry.Series = row.Series
		}
		items = append(items, entry)
	}
	return httptransport.QueueResponse{
		QueueType: lane,
		Items:     items,
	}, nil
}

func (h Handler) SearchHandler(ctx context.Context, actor identity.Actor, query string) (httptransport.SearchResponse, error) {
	rows, err := h.Submissions.SearchCompleted(ctx, actor, query)
	if err != nil {
		return httptransport.SearchResponse{}, err
	}
	items := make([]httptransport.SubmissionResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, toResponse(row))
	}
	return httptransport.SearchResponse{
		Query: query,
		Items: items,
	}, nil
}

func toResponse(submission entities.Submission) httptransport.SubmissionResponse {
	resp := httptransport.SubmissionResponse{
		SubmissionID:      submission.SubmissionID,
		UserID:            submission.OwnerID,
		CharacterName:     submission.CharacterName,
		Series:            submission.Series,
		Description:       submission.Description,
		IsPublic:          submission.IsPublic,
		IsLargeImageSet:   submission.IsLargeImageSet,
		IsDoubleCharacter: submission.IsDoubleCharacter,
		CreditCost:        submission.CreditCost,
		Status:            string(submission.Status),
		QueueType:         string(submission.QueueType),
		QueuePosition:     submission.QueuePosition,
		VoteCount:         submission.VoteCount,
		SubmittedAt:       submission.SubmittedAt.UTC().Format(time.RFC3339),
		CompletionLink:    submission.CompletionLink,
		CreatorNotes:      submission.CreatorNotes,
		CancelReason:      submission.CancelReason,
	}
	if submission.StartedAt != nil {
		resp.StartedAt = submission.StartedAt.UTC().Format(time.RFC3339)
	}
	if submission.CompletedAt != nil {
		resp.CompletedAt = submission.CompletedAt.UTC().Format(time.RFC3339)
	}
	if submission.EstimatedAt != nil {
		resp.EstimatedAt = submission.EstimatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}
