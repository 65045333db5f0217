package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"atelier/contexts/request-queue/vote-engine/domain/entities"
	domainerrors "atelier/contexts/request-queue/vote-engine/domain/errors"
	"atelier/contexts/request-queue/vote-engine/ports"
	"atelier/internal/shared/events"
	"atelier/internal/shared/identity"
	"atelier/internal/shared/policy"
)

const submissionStatusPending = "pending"

// Service is the vote use case. A vote is spent from the caller's monthly
// allowance, lands on a pending free-lane submission that isn't their own,
// and re-ranks the lane in the same unit of work.
type Service struct {
	Votes    ports.VoteRepository
	Queue    ports.QueueGateway
	UoW      ports.UnitOfWork
	Outbox   ports.OutboxWriter
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Policies policy.Provider
	Logger   *slog.Logger
}

// Cast spends one allowance unit on the submission. All gates run inside the
// free lane's unit of work, so two concurrent casts cannot both pass the
// duplicate or allowance check.
func (s Service) Cast(ctx context.Context, actor identity.Actor, submissionID string) (entities.Vote, error) {
	logger := ResolveLogger(s.Logger)
	submissionID = strings.TrimSpace(submissionID)
	if !actor.Valid() || submissionID == "" {
		return entities.Vote{}, domainerrors.ErrInvalidInput
	}

	now := s.now()
	month := now.Format("2006-01")
	voteID, err := s.IDGen.NewID(ctx)
	if err != nil {
		return entities.Vote{}, err
	}
	vote := entities.Vote{
		VoteID:       voteID,
		UserID:       actor.UserID,
		SubmissionID: submissionID,
		Month:        month,
		CreatedAt:    now,
	}

	err = s.UoW.InLane(ctx, policy.LaneFree, func(ctx context.Context) error {
		submission, err := s.Queue.GetSubmission(ctx, submissionID)
		if err != nil {
			return err
		}
		if submission.OwnerID == actor.UserID {
			return domainerrors.ErrSelfVote
		}
		if submission.QueueType != policy.LaneFree || submission.Status != submissionStatusPending {
			return domainerrors.ErrNotVotable
		}
		if _, err := s.Votes.Find(ctx, actor.UserID, submissionID); err == nil {
			return domainerrors.ErrAlreadyVoted
		} else if !errors.Is(err, domainerrors.ErrVoteNotFound) {
			return err
		}
		used, err := s.Votes.CountByUserInMonth(ctx, actor.UserID, month)
		if err != nil {
			return err
		}
		if used >= s.Policies.VotesPerMonth() {
			return domainerrors.ErrAllowanceExhausted
		}
		if err := s.Votes.Create(ctx, vote); err != nil {
			return err
		}
		_, err = s.Queue.ApplyVoteDelta(ctx, submissionID, 1)
		return err
	})
	if err != nil {
		logger.Warn("vote cast rejected",
			"event", "vote_cast_rejected",
			"module", "request-queue/vote-engine",
			"layer", "application",
			"user_id", actor.UserID,
			"submission_id", submissionID,
			"error", err.Error(),
		)
		return entities.Vote{}, err
	}

	if err := s.appendVoteEvent(ctx, "vote.cast", vote, now); err != nil {
		return entities.Vote{}, err
	}
	logger.Info("vote cast",
		"event", "vote_cast",
		"module", "request-queue/vote-engine",
		"layer", "application",
		"vote_id", vote.VoteID,
		"user_id", vote.UserID,
		"submission_id", vote.SubmissionID,
		"month", vote.Month,
	)
	return vote, nil
}

// Remove withdraws the caller's vote and refunds the allowance of the month
// it was spent in. The lane re-ranks unless the submission has already left
// the votable state, in which case only the vote row goes.
func (s Service) Remove(ctx context.Context, actor identity.Actor, submissionID string) (entities.Vote, error) {
	logger := ResolveLogger(s.Logger)
	submissionID = strings.TrimSpace(submissionID)
	if !actor.Valid() || submissionID == "" {
		return entities.Vote{}, domainerrors.ErrInvalidInput
	}

	now := s.now()
	var removed entities.Vote
	err := s.UoW.InLane(ctx, policy.LaneFree, func(ctx context.Context) error {
		vote, err := s.Votes.Find(ctx, actor.UserID, submissionID)
		if err != nil {
			return err
		}
		if err := s.Votes.Delete(ctx, vote.VoteID); err != nil {
			return err
		}
		removed = vote

		submission, err := s.Queue.GetSubmission(ctx, submissionID)
		if err != nil {
			if errors.Is(err, domainerrors.ErrSubmissionNotFound) {
				return nil
			}
			return err
		}
		if submission.QueueType != policy.LaneFree || submission.Status != submissionStatusPending {
			return nil
		}
		_, err = s.Queue.ApplyVoteDelta(ctx, submissionID, -1)
		return err
	})
	if err != nil {
		return entities.Vote{}, err
	}

	if err := s.appendVoteEvent(ctx, "vote.removed", removed, now); err != nil {
		return entities.Vote{}, err
	}
	logger.Info("vote removed",
		"event", "vote_removed",
		"module", "request-queue/vote-engine",
		"layer", "application",
		"vote_id", removed.VoteID,
		"user_id", removed.UserID,
		"submission_id", removed.SubmissionID,
	)
	return removed, nil
}

// Allowance is the caller's quota view for the current month.
func (s Service) Allowance(ctx context.Context, actor identity.Actor) (entities.Allowance, error) {
	if !actor.Valid() {
		return entities.Allowance{}, domainerrors.ErrInvalidInput
	}
	month := s.now().Format("2006-01")
	used, err := s.Votes.CountByUserInMonth(ctx, actor.UserID, month)
	if err != nil {
		return entities.Allowance{}, err
	}
	return entities.Allowance{
		UserID: actor.UserID,
		Month:  month,
		Quota:  s.Policies.VotesPerMonth(),
		Used:   used,
	}, nil
}

// ListUserVotes returns the caller's active votes, newest first.
func (s Service) ListUserVotes(ctx context.Context, actor identity.Actor) ([]entities.Vote, error) {
	if !actor.Valid() {
		return nil, domainerrors.ErrInvalidInput
	}
	return s.Votes.ListByUser(ctx, actor.UserID)
}

// HasVoted reports whether the caller holds an active vote on the submission.
func (s Service) HasVoted(ctx context.Context, actor identity.Actor, submissionID string) (bool, error) {
	submissionID = strings.TrimSpace(submissionID)
	if !actor.Valid() || submissionID == "" {
		return false, domainerrors.ErrInvalidInput
	}
	_, err := s.Votes.Find(ctx, actor.UserID, submissionID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrVoteNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s Service) now() time.Time {
	now := time.Now().UTC()
	if s.Clock != nil {
		now = s.Clock.Now().UTC()
	}
	return now
}

func (s Service) appendVoteEvent(ctx context.Context, eventType string, vote entities.Vote, occurredAt time.Time) error {
	// Outbox is optional for pure read/test wiring, so nil is treated as no-op.
	if s.Outbox == nil {
		return nil
	}
	eventID, err := s.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	envelope, err := events.New(eventID, eventType, "vote-engine", "vote", vote.VoteID, occurredAt, map[string]any{
		"vote_id":       vote.VoteID,
		"user_id":       vote.UserID,
		"submission_id": vote.SubmissionID,
		"month":         vote.Month,
	})
	if err != nil {
		return err
	}
	return s.Outbox.AppendOutbox(ctx, envelope)
}
