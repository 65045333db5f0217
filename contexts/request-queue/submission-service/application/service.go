package application

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"atelier/contexts/request-queue/submission-service/domain/entities"
	domainerrors "atelier/contexts/request-queue/submission-service/domain/errors"
	"atelier/contexts/request-queue/submission-service/ports"
	"atelier/internal/shared/events"
	"atelier/internal/shared/identity"
	"atelier/internal/shared/policy"
)

// CreateInput is the write-model input for a new character request. The lane
// and the credit cost are derived from the owner's tier, never supplied.
type CreateInput struct {
	CharacterName     string
	Series            string
	Description       string
	IsPublic          bool
	IsLargeImageSet   bool
	IsDoubleCharacter bool
}

// UpdateInput patches a pending submission. Nil fields are left untouched.
type UpdateInput struct {
	CharacterName     *string
	Series            *string
	Description       *string
	IsPublic          *bool
	IsLargeImageSet   *bool
	IsDoubleCharacter *bool
}

// CompleteInput carries the artifacts the creator attaches on delivery.
type CompleteInput struct {
	CompletionLink string
	CreatorNotes   string
}

// Service is the submission lifecycle use case. Every mutation that touches
// queue order runs through UoW.InLane so the charge/refund, the state change
// and the lane recompute land atomically or not at all.
type Service struct {
	Repo     ports.SubmissionRepository
	Ledger   ports.CreditLedger
	UoW      ports.UnitOfWork
	Outbox   ports.OutboxWriter
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Policies policy.Provider
	Logger   *slog.Logger
}

// Create submits a new request on the lane the actor's tier rides. Free-lane
// users hold at most one pending submission; paid-lane users pay the modifier
// cost up front and are refused before any write when they cannot afford it.
func (s Service) Create(ctx context.Context, actor identity.Actor, input CreateInput) (entities.Submission, error) {
	logger := ResolveLogger(s.Logger)
	if !actor.Valid() {
		return entities.Submission{}, domainerrors.ErrForbidden
	}

	tierPolicy := s.Policies.ForTier(actor.Tier)
	now := s.now()
	submissionID, err := s.IDGen.NewID(ctx)
	if err != nil {
		return entities.Submission{}, err
	}

	submission := entities.Submission{
		SubmissionID:      submissionID,
		OwnerID:           actor.UserID,
		OwnerTier:         actor.Tier,
		CharacterName:     strings.TrimSpace(input.CharacterName),
		Series:            strings.TrimSpace(input.Series),
		Description:       strings.TrimSpace(input.Description),
		IsPublic:          input.IsPublic,
		IsLargeImageSet:   input.IsLargeImageSet,
		IsDoubleCharacter: input.IsDoubleCharacter,
		Status:            entities.StatusPending,
		QueueType:         tierPolicy.Lane,
		SubmittedAt:       now,
		UpdatedAt:         now,
	}
	if !submission.ValidateCreate() {
		return entities.Submission{}, domainerrors.ErrInvalidInput
	}
	if tierPolicy.Lane == policy.LanePaid {
		submission.CreditCost = submission.ModifierCost()
	}

	err = s.UoW.InLane(ctx, tierPolicy.Lane, func(ctx context.Context) error {
		if tierPolicy.Lane == policy.LaneFree {
			pending, err := s.Repo.CountPendingByOwner(ctx, actor.UserID)
			if err != nil {
				return err
			}
			if pending >= 1 {
				return domainerrors.ErrTierLimitExceeded
			}
		} else {
			balance, err := s.Ledger.Balance(ctx, actor.UserID)
			if err != nil {
				return err
			}
			if balance < submission.CreditCost {
				return domainerrors.ErrInsufficientCredits
			}
			if _, err := s.Ledger.Append(ctx, ports.LedgerEntry{
				UserID:       actor.UserID,
				Amount:       -submission.CreditCost,
				Type:         ports.LedgerEntrySubmissionCost,
				Description:  "Submission cost for " + submission.CharacterName,
				SubmissionID: submission.SubmissionID,
			}); err != nil {
				return err
			}
		}
		if err := s.Repo.Create(ctx, submission); err != nil {
			return err
		}
		return s.recomputeLane(ctx, tierPolicy.Lane, now)
	})
	if err != nil {
		logger.Warn("submission create rejected",
			"event", "submission_create_rejected",
			"module", "request-queue/submission-service",
			"layer", "application",
			"user_id", actor.UserID,
			"lane", string(tierPolicy.Lane),
			"error", err.Error(),
		)
		return entities.Submission{}, err
	}

	created, err := s.Repo.Get(ctx, submission.SubmissionID)
	if err != nil {
		return entities.Submission{}, err
	}
	if err := s.appendSubmissionEvent(ctx, "submission.created", created, now); err != nil {
		return entities.Submission{}, err
	}
	logger.Info("submission created",
		"event", "submission_created",
		"module", "request-queue/submission-service",
		"layer", "application",
		"submission_id", created.SubmissionID,
		"user_id", created.OwnerID,
		"lane", string(created.QueueType),
		"credit_cost", created.CreditCost,
	)
	return created, nil
}

// Update edits a pending submission in place. Modifier toggles on the paid
// lane settle the price difference through the ledger as a signed adjustment;
// a charge the owner cannot afford rejects the whole edit.
func (s Service) Update(ctx context.Context, actor identity.Actor, submissionID string, input UpdateInput) (entities.Submission, error) {
	logger := ResolveLogger(s.Logger)
	submissionID = strings.TrimSpace(submissionID)
	if submissionID == "" {
		return entities.Submission{}, domainerrors.ErrInvalidInput
	}

	var updated entities.Submission
	current, err := s.Repo.Get(ctx, submissionID)
	if err != nil {
		return entities.Submission{}, err
	}
	lane := current.QueueType
	now := s.now()

	err = s.UoW.InLane(ctx, lane, func(ctx context.Context) error {
		submission, err := s.Repo.Get(ctx, submissionID)
		if err != nil {
			return err
		}
		if !actor.CanManage(submission.OwnerID) {
			return domainerrors.ErrForbidden
		}
		if !submission.CanEdit() {
			return domainerrors.ErrInvalidTransition
		}

		previousCost := submission.CreditCost
		applyUpdate(&submission, input)
		if !submission.ValidateCreate() {
			return domainerrors.ErrInvalidInput
		}
		if submission.QueueType == policy.LanePaid {
			submission.CreditCost = submission.ModifierCost()
		}

		if delta := submission.CreditCost - previousCost; delta != 0 {
			if err := s.settleCostDelta(ctx, submission, delta); err != nil {
				return err
			}
		}
		submission.UpdatedAt = now
		if err := s.Repo.Update(ctx, submission); err != nil {
			return err
		}
		updated = submission
		return nil
	})
	if err != nil {
		return entities.Submission{}, err
	}

	if err := s.appendSubmissionEvent(ctx, "submission.updated", updated, now); err != nil {
		return entities.Submission{}, err
	}
	logger.Info("submission updated",
		"event", "submission_updated",
		"module", "request-queue/submission-service",
		"layer", "application",
		"submission_id", updated.SubmissionID,
		"user_id", actor.UserID,
		"credit_cost", updated.CreditCost,
	)
	return updated, nil
}

// Cancel withdraws a submission and compacts its lane. Paid submissions are
// refunded their full cost, clamped so the owner's balance never exceeds the
// tier cap that was in force at submission time.
func (s Service) Cancel(ctx context.Context, actor identity.Actor, submissionID, reason string) (entities.Submission, error) {
	logger := ResolveLogger(s.Logger)
	submissionID = strings.TrimSpace(submissionID)
	if submissionID == "" {
		return entities.Submission{}, domainerrors.ErrInvalidInput
	}

	current, err := s.Repo.Get(ctx, submissionID)
	if err != nil {
		return entities.Submission{}, err
	}
	lane := current.QueueType
	now := s.now()

	var cancelled entities.Submission
	err = s.UoW.InLane(ctx, lane, func(ctx context.Context) error {
		submission, err := s.Repo.Get(ctx, submissionID)
		if err != nil {
			return err
		}
		if !actor.CanManage(submission.OwnerID) {
			return domainerrors.ErrForbidden
		}
		if !submission.CanCancel() {
			return domainerrors.ErrInvalidTransition
		}

		if submission.QueueType == policy.LanePaid && submission.CreditCost > 0 {
			if err := s.refundClamped(ctx, submission); err != nil {
				return err
			}
		}

		submission.Status = entities.StatusCancelled
		submission.CancelReason = strings.TrimSpace(reason)
		submission.QueuePosition = nil
		submission.EstimatedAt = nil
		submission.UpdatedAt = now
		if err := s.Repo.Update(ctx, submission); err != nil {
			return err
		}
		cancelled = submission
		return s.recomputeLane(ctx, submission.QueueType, now)
	})
	if err != nil {
		return entities.Submission{}, err
	}

	if err := s.appendSubmissionEvent(ctx, "submission.cancelled", cancelled, now); err != nil {
		return entities.Submission{}, err
	}
	logger.Info("submission cancelled",
		"event", "submission_cancelled",
		"module", "request-queue/submission-service",
		"layer", "application",
		"submission_id", cancelled.SubmissionID,
		"user_id", actor.UserID,
		"lane", string(cancelled.QueueType),
	)
	return cancelled, nil
}

// Start moves a pending submission into work. Only the creator's staff does
// this; the submission leaves the positioned queue and the lane compacts.
func (s Service) Start(ctx context.Context, actor identity.Actor, submissionID string) (entities.Submission, error) {
	return s.transition(ctx, actor, submissionID, "submission.started", func(submission *entities.Submission, now time.Time) error {
		if submission.Status != entities.StatusPending {
			return domainerrors.ErrInvalidTransition
		}
		submission.Status = entities.StatusInProgress
		submission.StartedAt = &now
		submission.QueuePosition = nil
		submission.EstimatedAt = nil
		return nil
	})
}

// Complete delivers a submission with its artifacts. A pending submission may
// complete directly; either way its lane compacts behind it.
func (s Service) Complete(ctx context.Context, actor identity.Actor, submissionID string, input CompleteInput) (entities.Submission, error) {
	return s.transition(ctx, actor, submissionID, "submission.completed", func(submission *entities.Submission, now time.Time) error {
		if !submission.CanComplete() {
			return domainerrors.ErrInvalidTransition
		}
		submission.Status = entities.StatusCompleted
		submission.CompletedAt = &now
		submission.CompletionLink = strings.TrimSpace(input.CompletionLink)
		submission.CreatorNotes = strings.TrimSpace(input.CreatorNotes)
		submission.QueuePosition = nil
		submission.EstimatedAt = nil
		return nil
	})
}

// transition is the shared admin-only state change: mutate inside the lane's
// unit of work, recompute, then publish.
func (s Service) transition(
	ctx context.Context,
	actor identity.Actor,
	submissionID string,
	eventType string,
	mutate func(submission *entities.Submission, now time.Time) error,
) (entities.Submission, error) {
	logger := ResolveLogger(s.Logger)
	submissionID = strings.TrimSpace(submissionID)
	if submissionID == "" {
		return entities.Submission{}, domainerrors.ErrInvalidInput
	}
	if !actor.IsAdmin {
		return entities.Submission{}, domainerrors.ErrForbidden
	}

	current, err := s.Repo.Get(ctx, submissionID)
	if err != nil {
		return entities.Submission{}, err
	}
	lane := current.QueueType
	now := s.now()

	var result entities.Submission
	err = s.UoW.InLane(ctx, lane, func(ctx context.Context) error {
		submission, err := s.Repo.Get(ctx, submissionID)
		if err != nil {
			return err
		}
		if err := mutate(&submission, now); err != nil {
			return err
		}
		submission.UpdatedAt = now
		if err := s.Repo.Update(ctx, submission); err != nil {
			return err
		}
		result = submission
		return s.recomputeLane(ctx, submission.QueueType, now)
	})
	if err != nil {
		return entities.Submission{}, err
	}

	if err := s.appendSubmissionEvent(ctx, eventType, result, now); err != nil {
		return entities.Submission{}, err
	}
	logger.Info("submission transitioned",
		"event", "submission_transitioned",
		"module", "request-queue/submission-service",
		"layer", "application",
		"submission_id", result.SubmissionID,
		"status", string(result.Status),
		"user_id", actor.UserID,
	)
	return result, nil
}

// settleCostDelta moves the price difference of an edit through the ledger.
// Charges require affordability; refunds clamp to the owner's tier cap.
func (s Service) settleCostDelta(ctx context.Context, submission entities.Submission, delta int) error {
	balance, err := s.Ledger.Balance(ctx, submission.OwnerID)
	if err != nil {
		return err
	}
	amount := -delta
	if delta > 0 {
		if balance < delta {
			return domainerrors.ErrInsufficientCredits
		}
	} else {
		ceiling := s.Policies.ForTier(submission.OwnerTier).CreditCap
		if balance+amount > ceiling {
			amount = ceiling - balance
		}
		if amount <= 0 {
			return nil
		}
	}
	_, err = s.Ledger.Append(ctx, ports.LedgerEntry{
		UserID:       submission.OwnerID,
		Amount:       amount,
		Type:         ports.LedgerEntryAdjustment,
		Description:  "Modifier adjustment for " + submission.CharacterName,
		SubmissionID: submission.SubmissionID,
	})
	return err
}

// refundClamped returns the submission's cost, capped so the balance cannot
// overshoot the tier ceiling the owner held when they paid.
func (s Service) refundClamped(ctx context.Context, submission entities.Submission) error {
	balance, err := s.Ledger.Balance(ctx, submission.OwnerID)
	if err != nil {
		return err
	}
	amount := submission.CreditCost
	ceiling := s.Policies.ForTier(submission.OwnerTier).CreditCap
	if balance+amount > ceiling {
		amount = ceiling - balance
	}
	if amount <= 0 {
		return nil
	}
	_, err = s.Ledger.Append(ctx, ports.LedgerEntry{
		UserID:       submission.OwnerID,
		Amount:       amount,
		Type:         ports.LedgerEntryRefund,
		Description:  "Refund for cancelled submission " + submission.CharacterName,
		SubmissionID: submission.SubmissionID,
	})
	return err
}

func applyUpdate(submission *entities.Submission, input UpdateInput) {
	if input.CharacterName != nil {
		submission.CharacterName = strings.TrimSpace(*input.CharacterName)
	}
	if input.Series != nil {
		submission.Series = strings.TrimSpace(*input.Series)
	}
	if input.Description != nil {
		submission.Description = strings.TrimSpace(*input.Description)
	}
	if input.IsPublic != nil {
		submission.IsPublic = *input.IsPublic
	}
	if input.IsLargeImageSet != nil {
		submission.IsLargeImageSet = *input.IsLargeImageSet
	}
	if input.IsDoubleCharacter != nil {
		submission.IsDoubleCharacter = *input.IsDoubleCharacter
	}
}

func (s Service) now() time.Time {
	now := time.Now().UTC()
	if s.Clock != nil {
		now = s.Clock.Now().UTC()
	}
	return now
}

func (s Service) appendSubmissionEvent(ctx context.Context, eventType string, submission entities.Submission, occurredAt time.Time) error {
	// Outbox is optional for pure read/test wiring, so nil is treated as no-op.
	if s.Outbox == nil {
		return nil
	}
	eventID, err := s.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	position := 0
	if submission.QueuePosition != nil {
		position = *submission.QueuePosition
	}
	envelope, err := events.New(eventID, eventType, "submission-service", "submission", submission.SubmissionID, occurredAt, map[string]any{
		"submission_id":  submission.SubmissionID,
		"user_id":        submission.OwnerID,
		"character_name": submission.CharacterName,
		"status":         string(submission.Status),
		"queue_type":     string(submission.QueueType),
		"queue_position": position,
		"vote_count":     submission.VoteCount,
		"credit_cost":    submission.CreditCost,
	})
	if err != nil {
		return err
	}
	return s.Outbox.AppendOutbox(ctx, envelope)
}
