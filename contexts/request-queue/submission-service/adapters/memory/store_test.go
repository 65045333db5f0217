package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"atelier/contexts/request-queue/submission-service/domain/entities"
	domainerrors "atelier/contexts/request-queue/submission-service/domain/errors"
	"atelier/internal/shared/policy"
)

func pendingSubmission(id, owner string, lane policy.Lane) entities.Submission {
	return entities.Submission{
		SubmissionID:  id,
		OwnerID:       owner,
		OwnerTier:     2,
		CharacterName: "Char " + id,
		Series:        "Series",
		Status:        entities.StatusPending,
		QueueType:     lane,
		SubmittedAt:   time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestInLaneRollsBackOnError(t *testing.T) {
	store := NewStore([]entities.Submission{
		pendingSubmission("sub-1", "alice", policy.LanePaid),
	})

	sentinel := errors.New("boom")
	err := store.InLane(context.Background(), policy.LanePaid, func(ctx context.Context) error {
		if err := store.Create(ctx, pendingSubmission("sub-2", "bob", policy.LanePaid)); err != nil {
			return err
		}
		existing, err := store.Get(ctx, "sub-1")
		if err != nil {
			return err
		}
		existing.CharacterName = "Mutated"
		if err := store.Update(ctx, existing); err != nil {
			return err
		}
		return sentinel
	})
	if err != sentinel {
		t.Fatalf("expected sentinel error, got %v", err)
	}

	if _, err := store.Get(context.Background(), "sub-2"); err != domainerrors.ErrSubmissionNotFound {
		t.Fatalf("expected rolled-back create, got %v", err)
	}
	original, err := store.Get(context.Background(), "sub-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if original.CharacterName != "Char sub-1" {
		t.Fatalf("expected rolled-back update, got %q", original.CharacterName)
	}
}

func TestInLaneCommitsOnSuccess(t *testing.T) {
	store := NewStore(nil)

	err := store.InLane(context.Background(), policy.LaneFree, func(ctx context.Context) error {
		return store.Create(ctx, pendingSubmission("sub-1", "fred", policy.LaneFree))
	})
	if err != nil {
		t.Fatalf("in-lane failed: %v", err)
	}
	if _, err := store.Get(context.Background(), "sub-1"); err != nil {
		t.Fatalf("expected committed create, got %v", err)
	}
}

func TestInLaneRejectsUnknownLane(t *testing.T) {
	store := NewStore(nil)

	err := store.InLane(context.Background(), policy.Lane("express"), func(ctx context.Context) error {
		return nil
	})
	if err != domainerrors.ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
