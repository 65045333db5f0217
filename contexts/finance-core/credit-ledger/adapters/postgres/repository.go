package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"atelier/contexts/finance-core/credit-ledger/domain/entities"
	domainerrors "atelier/contexts/finance-core/credit-ledger/domain/errors"
	"atelier/contexts/finance-core/credit-ledger/ports"
	platformdb "atelier/internal/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) handle(ctx context.Context) *gorm.DB {
	return platformdb.FromContext(ctx, r.db).WithContext(ctx)
}

func (r *Repository) Append(ctx context.Context, txn entities.Transaction) (int, error) {
	row := transactionModelFromEntity(txn)
	var balance int
	err := r.handle(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"balance":    gorm.Expr("credit_balances.balance + ?", row.Amount),
				"updated_at": row.CreatedAt,
			}),
		}).Create(&balanceModel{
			UserID:    row.UserID,
			Balance:   row.Amount,
			UpdatedAt: row.CreatedAt,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&balanceModel{}).
			Where("user_id = ?", row.UserID).
			Select("balance").
			Scan(&balance).
			Error
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (r *Repository) Balance(ctx context.Context, userID string) (int, error) {
	var row balanceModel
	err := r.handle(ctx).
		Where("user_id = ?", strings.TrimSpace(userID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return row.Balance, nil
}

func (r *Repository) History(ctx context.Context, userID string, limit int) ([]entities.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []transactionModel
	err := r.handle(ctx).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}
	items := make([]entities.Transaction, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) HasGrant(ctx context.Context, userID string, month string) (bool, error) {
	var count int64
	err := r.handle(ctx).
		Model(&grantModel{}).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Where("month = ?", strings.TrimSpace(month)).
		Count(&count).
		Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) RecordGrant(ctx context.Context, userID string, month string, grantedAt time.Time) error {
	row := grantModel{
		UserID:    strings.TrimSpace(userID),
		Month:     strings.TrimSpace(month),
		GrantedAt: grantedAt.UTC(),
	}
	if err := r.handle(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrDuplicateGrant
		}
		return err
	}
	return nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := marshalEnvelope(envelope)
	if err != nil {
		return err
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return r.handle(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "outbox_id"}},
			DoNothing: true,
		}).
		Create(&row).
		Error
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	err := r.handle(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	return r.handle(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		}).
		Error
}

type transactionModel struct {
	TransactionID string    `gorm:"column:transaction_id;primaryKey"`
	UserID        string    `gorm:"column:user_id"`
	Amount        int       `gorm:"column:amount"`
	Type          string    `gorm:"column:transaction_type"`
	Description   string    `gorm:"column:description"`
	SubmissionID  string    `gorm:"column:submission_id"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (transactionModel) TableName() string {
	return "credit_transactions"
}

func (m transactionModel) toEntity() entities.Transaction {
	return entities.Transaction{
		TransactionID: m.TransactionID,
		UserID:        m.UserID,
		Amount:        m.Amount,
		Type:          entities.TransactionType(m.Type),
		Description:   m.Description,
		SubmissionID:  m.SubmissionID,
		CreatedAt:     m.CreatedAt.UTC(),
	}
}

func transactionModelFromEntity(item entities.Transaction) transactionModel {
	createdAt := item.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return transactionModel{
		TransactionID: strings.TrimSpace(item.TransactionID),
		UserID:        strings.TrimSpace(item.UserID),
		Amount:        item.Amount,
		Type:          string(item.Type),
		Description:   strings.TrimSpace(item.Description),
		SubmissionID:  strings.TrimSpace(item.SubmissionID),
		CreatedAt:     createdAt,
	}
}

type balanceModel struct {
	UserID    string    `gorm:"column:user_id;primaryKey"`
	Balance   int       `gorm:"column:balance"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (balanceModel) TableName() string {
	return "credit_balances"
}

type grantModel struct {
	UserID    string    `gorm:"column:user_id;primaryKey"`
	Month     string    `gorm:"column:month;primaryKey"`
	GrantedAt time.Time `gorm:"column:granted_at"`
}

func (grantModel) TableName() string {
	return "credit_grants"
}

type outboxModel struct {
	OutboxID     string         `gorm:"column:outbox_id;primaryKey"`
	EventType    string         `gorm:"column:event_type"`
	PartitionKey string         `gorm:"column:partition_key"`
	Payload      datatypes.JSON `gorm:"column:payload"`
	Status       string         `gorm:"column:status"`
	CreatedAt    time.Time      `gorm:"column:created_at"`
	PublishedAt  *time.Time     `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "ledger_outbox"
}

func marshalEnvelope(envelope ports.EventEnvelope) (datatypes.JSON, error) {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(payload), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
