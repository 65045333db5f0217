package application

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"atelier/contexts/finance-core/credit-ledger/domain/entities"
	domainerrors "atelier/contexts/finance-core/credit-ledger/domain/errors"
	"atelier/contexts/finance-core/credit-ledger/ports"
	"atelier/internal/shared/events"
	"atelier/internal/shared/policy"
)

const defaultHistoryLimit = 50

// AppendInput is the write-model input for one signed credit movement.
type AppendInput struct {
	UserID       string
	Amount       int
	Type         entities.TransactionType
	Description  string
	SubmissionID string
}

// AppendResult carries the stored transaction and the balance projection it
// produced, so callers can reason about both without a second read.
type AppendResult struct {
	Transaction entities.Transaction
	Balance     int
}

// Service is the credit ledger use case. The ledger is a dumb, auditable log:
// it records movements and keeps the cached balance equal to the running sum,
// but it never second-guesses the caller's business rule (caps and
// affordability are gated upstream).
type Service struct {
	Repo     ports.Repository
	Outbox   ports.OutboxWriter
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Policies policy.Provider
	Logger   *slog.Logger
}

func (s Service) Append(ctx context.Context, input AppendInput) (AppendResult, error) {
	logger := ResolveLogger(s.Logger)
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return AppendResult{}, domainerrors.ErrUserRequired
	}
	if input.Amount == 0 {
		return AppendResult{}, domainerrors.ErrInvalidInput
	}
	if !input.Type.Valid() {
		return AppendResult{}, domainerrors.ErrUnknownType
	}

	now := s.now()
	transactionID, err := s.IDGen.NewID(ctx)
	if err != nil {
		return AppendResult{}, err
	}
	txn := entities.Transaction{
		TransactionID: transactionID,
		UserID:        userID,
		Amount:        input.Amount,
		Type:          input.Type,
		Description:   strings.TrimSpace(input.Description),
		SubmissionID:  strings.TrimSpace(input.SubmissionID),
		CreatedAt:     now,
	}
	balance, err := s.Repo.Append(ctx, txn)
	if err != nil {
		logger.Error("credit append failed",
			"event", "ledger_append_failed",
			"module", "finance-core/credit-ledger",
			"layer", "application",
			"user_id", userID,
			"amount", input.Amount,
			"type", string(input.Type),
			"error", err.Error(),
		)
		return AppendResult{}, err
	}
	if err := s.appendLedgerEvent(ctx, "credit.appended", txn, balance, now); err != nil {
		return AppendResult{}, err
	}

	logger.Info("credit transaction appended",
		"event", "ledger_appended",
		"module", "finance-core/credit-ledger",
		"layer", "application",
		"transaction_id", txn.TransactionID,
		"user_id", txn.UserID,
		"amount", txn.Amount,
		"type", string(txn.Type),
		"balance", balance,
	)
	return AppendResult{Transaction: txn, Balance: balance}, nil
}

func (s Service) Balance(ctx context.Context, userID string) (int, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, domainerrors.ErrUserRequired
	}
	return s.Repo.Balance(ctx, userID)
}

// History is a finite snapshot read, newest first. It is not restartable:
// callers page by asking again with a larger limit.
func (s Service) History(ctx context.Context, userID string, limit int) ([]entities.Transaction, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domainerrors.ErrUserRequired
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.Repo.History(ctx, userID, limit)
}

// GrantMonthly issues the tier's monthly credit grant for the given month
// token (YYYY-MM), clamped so the balance never exceeds the tier cap. The
// grant is idempotent per (user, month); replays fail ErrDuplicateGrant so
// the external scheduler can tell a no-op from a first issue.
func (s Service) GrantMonthly(ctx context.Context, userID string, tier int, month string) (AppendResult, error) {
	logger := ResolveLogger(s.Logger)
	userID = strings.TrimSpace(userID)
	month = strings.TrimSpace(month)
	if userID == "" {
		return AppendResult{}, domainerrors.ErrUserRequired
	}
	if month == "" {
		month = s.now().Format("2006-01")
	}

	granted, err := s.Repo.HasGrant(ctx, userID, month)
	if err != nil {
		return AppendResult{}, err
	}
	if granted {
		return AppendResult{}, domainerrors.ErrDuplicateGrant
	}

	tierPolicy := s.Policies.ForTier(tier)
	balance, err := s.Repo.Balance(ctx, userID)
	if err != nil {
		return AppendResult{}, err
	}
	amount := tierPolicy.MonthlyGrant
	if balance+amount > tierPolicy.CreditCap {
		amount = tierPolicy.CreditCap - balance
	}

	if err := s.Repo.RecordGrant(ctx, userID, month, s.now()); err != nil {
		return AppendResult{}, err
	}
	if amount <= 0 {
		logger.Info("monthly grant skipped at cap",
			"event", "ledger_grant_skipped",
			"module", "finance-core/credit-ledger",
			"layer", "application",
			"user_id", userID,
			"month", month,
			"tier", tier,
			"balance", balance,
		)
		return AppendResult{Balance: balance}, nil
	}

	result, err := s.Append(ctx, AppendInput{
		UserID:      userID,
		Amount:      amount,
		Type:        entities.TransactionTypeMonthlyGrant,
		Description: "Monthly credit grant for " + month,
	})
	if err != nil {
		return AppendResult{}, err
	}
	logger.Info("monthly grant issued",
		"event", "ledger_grant_issued",
		"module", "finance-core/credit-ledger",
		"layer", "application",
		"user_id", userID,
		"month", month,
		"tier", tier,
		"amount", amount,
		"balance", result.Balance,
	)
	return result, nil
}

func (s Service) now() time.Time {
	now := time.Now().UTC()
	if s.Clock != nil {
		now = s.Clock.Now().UTC()
	}
	return now
}

func (s Service) appendLedgerEvent(
	ctx context.Context,
	eventType string,
	txn entities.Transaction,
	balance int,
	occurredAt time.Time,
) error {
	// Outbox is optional for pure read/test wiring, so nil is treated as no-op.
	if s.Outbox == nil {
		return nil
	}
	eventID, err := s.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	envelope, err := events.New(eventID, eventType, "credit-ledger", "credit_transaction", txn.TransactionID, occurredAt, map[string]any{
		"transaction_id": txn.TransactionID,
		"user_id":        txn.UserID,
		"amount":         txn.Amount,
		"type":           string(txn.Type),
		"submission_id":  txn.SubmissionID,
		"balance":        balance,
	})
	if err != nil {
		return err
	}
	return s.Outbox.AppendOutbox(ctx, envelope)
}
