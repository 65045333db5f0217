package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"atelier/contexts/request-queue/vote-engine/application"
	"atelier/contexts/request-queue/vote-engine/domain/entities"
	httptransport "atelier/contexts/request-queue/vote-engine/transport/http"
	"atelier/internal/shared/identity"
)

type Handler struct {
	Votes  application.Service
	Logger *slog.Logger
}

func (h Handler) CastHandler(ctx context.Context, actor identity.Actor, submissionID string) (httptransport.VoteResponse, error) {
	vote, err := h.Votes.Cast(ctx, actor, submissionID)
	if err != nil {
		return httptransport.VoteResponse{}, err
	}
	return toResponse(vote), nil
}

func (h Handler) RemoveHandler(ctx context.Context, actor identity.Actor, submissionID string) (httptransport.VoteResponse, error) {
	vote, err := h.Votes.Remove(ctx, actor, submissionID)
	if err != nil {
		return httptransport.VoteResponse{}, err
	}
	return toResponse(vote), nil
}

func (h Handler) AllowanceHandler(ctx context.Context, actor identity.Actor) (httptransport.AllowanceResponse, error) {
	allowance, err := h.Votes.Allowance(ctx, actor)
	if err != nil {
		return httptransport.AllowanceResponse{}, err
	}
	return httptransport.AllowanceResponse{
		UserID:    allowance.UserID,
		Month:     allowance.Month,
		Quota:     allowance.Quota,
		Used:      allowance.Used,
		Remaining: allowance.Remaining(),
	}, nil
}

func (h Handler) ListHandler(ctx context.Context, actor identity.Actor) (httptransport.VoteListResponse, error) {
	votes, err := h.Votes.ListUserVotes(ctx, actor)
	if err != nil {
		return httptransport.VoteListResponse{}, err
	}
	items := make([]httptransport.VoteResponse, 0, len(votes))
	for _, vote := range votes {
		items = append(items, toResponse(vote))
	}
	return httptransport.VoteListResponse{
		UserID: actor.UserID,
		Items:  items,
	}, nil
}

func (h Handler) HasVotedHandler(ctx context.Context, actor identity.Actor, submissionID string) (httptransport.HasVotedResponse, error) {
	voted, err := h.Votes.HasVoted(ctx, actor, submissionID)
	if err != nil {
		return httptransport.HasVotedResponse{}, err
	}
	return httptransport.HasVotedResponse{
		SubmissionID: submissionID,
		Voted:        voted,
	}, nil
}

func toResponse(vote entities.Vote) httptransport.VoteResponse {
	return httptransport.VoteResponse{
		VoteID:       vote.VoteID,
		UserID:       vote.UserID,
		SubmissionID: vote.SubmissionID,
		Month:        vote.Month,
		CreatedAt:    vote.CreatedAt.UTC().Format(time.RFC3339),
	}
}
