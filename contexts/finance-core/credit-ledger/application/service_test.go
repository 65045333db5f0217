package application

import (
	"context"
	"testing"

	"atelier/contexts/finance-core/credit-ledger/adapters/memory"
	"atelier/contexts/finance-core/credit-ledger/domain/entities"
	domainerrors "atelier/contexts/finance-core/credit-ledger/domain/errors"
	"atelier/internal/shared/policy"
)

func newTestService(store *memory.Store) Service {
	return Service{
		Repo:     store,
		Outbox:   store,
		Clock:    store,
		IDGen:    store,
		Policies: policy.DefaultStatic(),
	}
}

func TestAppendMovesBalance(t *testing.T) {
	store := memory.NewStore(nil)
	service := newTestService(store)

	first, err := service.Append(context.Background(), AppendInput{
		UserID: "user-1",
		Amount: 3,
		Type:   entities.TransactionTypeMonthlyGrant,
	})
	if err != nil {
		t.Fatalf("first append failed: %v", err)
	}
	if first.Balance != 3 {
		t.Fatalf("expected balance 3, got %d", first.Balance)
	}

	second, err := service.Append(context.Background(), AppendInput{
		UserID:       "user-1",
		Amount:       -1,
		Type:         entities.TransactionTypeSubmissionCost,
		SubmissionID: "sub-1",
	})
	if err != nil {
		t.Fatalf("second append failed: %v", err)
	}
	if second.Balance != 2 {
		t.Fatalf("expected balance 2, got %d", second.Balance)
	}

	history, err := service.History(context.Background(), "user-1", 10)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(history))
	}
	if history[0].Amount != -1 {
		t.Fatalf("expected newest-first history, got amount %d first", history[0].Amount)
	}
}

func TestAppendRejectsZeroAmount(t *testing.T) {
	service := newTestService(memory.NewStore(nil))

	_, err := service.Append(context.Background(), AppendInput{
		UserID: "user-1",
		Amount: 0,
		Type:   entities.TransactionTypeAdjustment,
	})
	if err != domainerrors.ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAppendRejectsUnknownType(t *testing.T) {
	service := newTestService(memory.NewStore(nil))

	_, err := service.Append(context.Background(), AppendInput{
		UserID: "user-1",
		Amount: 1,
		Type:   entities.TransactionType("bonus"),
	})
	if err != domainerrors.ErrUnknownType {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestGrantMonthlyClampsAtCap(t *testing.T) {
	store := memory.NewStore([]entities.Transaction{
		{TransactionID: "seed-1", UserID: "user-1", Amount: 3, Type: entities.TransactionTypeMonthlyGrant},
	})
	service := newTestService(store)

	// Tier 3 caps at 4 with a grant of 2; a balance of 3 leaves room for 1.
	result, err := service.GrantMonthly(context.Background(), "user-1", 3, "2026-08")
	if err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if result.Transaction.Amount != 1 {
		t.Fatalf("expected clamped grant of 1, got %d", result.Transaction.Amount)
	}
	if result.Balance != 4 {
		t.Fatalf("expected balance 4, got %d", result.Balance)
	}
}

func TestGrantMonthlySkipsAtCap(t *testing.T) {
	store := memory.NewStore([]entities.Transaction{
		{TransactionID: "seed-1", UserID: "user-1", Amount: 2, Type: entities.TransactionTypeMonthlyGrant},
	})
	service := newTestService(store)

	result, err := service.GrantMonthly(context.Background(), "user-1", 2, "2026-08")
	if err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if result.Transaction.TransactionID != "" {
		t.Fatalf("expected no transaction at cap, got %s", result.Transaction.TransactionID)
	}
	if result.Balance != 2 {
		t.Fatalf("expected balance 2, got %d", result.Balance)
	}
}

func TestGrantMonthlyRejectsReplay(t *testing.T) {
	service := newTestService(memory.NewStore(nil))

	if _, err := service.GrantMonthly(context.Background(), "user-1", 2, "2026-08"); err != nil {
		t.Fatalf("first grant failed: %v", err)
	}
	_, err := service.GrantMonthly(context.Background(), "user-1", 2, "2026-08")
	if err != domainerrors.ErrDuplicateGrant {
		t.Fatalf("expected ErrDuplicateGrant, got %v", err)
	}
}
