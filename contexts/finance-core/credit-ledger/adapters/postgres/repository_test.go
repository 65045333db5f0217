package postgresadapter

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock setup failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 db,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("gorm open failed: %v", err)
	}
	return NewRepository(gormDB, nil), mock
}

func TestBalanceReadsCachedRow(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`SELECT (.+) FROM "credit_balances" WHERE user_id = (.+)`).
		WithArgs("user-1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "balance", "updated_at"}).
			AddRow("user-1", 7, time.Now().UTC()))

	balance, err := repo.Balance(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if balance != 7 {
		t.Fatalf("expected balance 7, got %d", balance)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBalanceDefaultsToZeroWithoutRow(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`SELECT (.+) FROM "credit_balances" WHERE user_id = (.+)`).
		WithArgs("user-1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "balance", "updated_at"}))

	balance, err := repo.Balance(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if balance != 0 {
		t.Fatalf("expected zero balance for unknown user, got %d", balance)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestHistoryOrdersNewestFirst(t *testing.T) {
	repo, mock := newMockRepository(t)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT (.+) FROM "credit_transactions" WHERE user_id = (.+) ORDER BY created_at DESC`).
		WithArgs("user-1", 2).
		WillReturnRows(sqlmock.NewRows([]string{
			"transaction_id", "user_id", "amount", "transaction_type", "description", "submission_id", "created_at",
		}).
			AddRow("txn-2", "user-1", -1, "submission_cost", "", "sub-1", now).
			AddRow("txn-1", "user-1", 2, "monthly_grant", "", "", now.Add(-time.Hour)))

	history, err := repo.History(context.Background(), "user-1", 2)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(history))
	}
	if history[0].TransactionID != "txn-2" {
		t.Fatalf("expected newest first, got %s", history[0].TransactionID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMarkOutboxPublished(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(`UPDATE "ledger_outbox" SET (.+) WHERE outbox_id = (.+)`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkOutboxPublished(context.Background(), "out-1", time.Now().UTC()); err != nil {
		t.Fatalf("mark published failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
