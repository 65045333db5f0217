package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"atelier/contexts/request-queue/vote-engine/domain/entities"
	domainerrors "atelier/contexts/request-queue/vote-engine/domain/errors"
	"atelier/contexts/request-queue/vote-engine/ports"
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

func (r *Repository) Create(ctx context.Context, vote entities.Vote) error {
	row := voteModelFromEntity(vote)
	if err := r.handle(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrAlreadyVoted
		}
		return err
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, voteID string) error {
	result := r.handle(ctx).
		Where("vote_id = ?", strings.TrimSpace(voteID)).
		Delete(&voteModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrVoteNotFound
	}
	return nil
}

func (r *Repository) Find(ctx context.Context, userID, submissionID string) (entities.Vote, error) {
	var row voteModel
	err := r.handle(ctx).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Where("submission_id = ?", strings.TrimSpace(submissionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Vote{}, domainerrors.ErrVoteNotFound
		}
		return entities.Vote{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) ListByUser(ctx context.Context, userID string) ([]entities.Vote, error) {
	var rows []voteModel
	err := r.handle(ctx).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Order("created_at DESC").
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}
	items := make([]entities.Vote, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) CountByUserInMonth(ctx context.Context, userID, month string) (int, error) {
	var count int64
	err := r.handle(ctx).
		Model(&voteModel{}).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Where("month = ?", strings.TrimSpace(month)).
		Count(&count).
		Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
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

type voteModel struct {
	VoteID       string    `gorm:"column:vote_id;primaryKey"`
	UserID       string    `gorm:"column:user_id"`
	SubmissionID string    `gorm:"column:submission_id"`
	Month        string    `gorm:"column:month"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (voteModel) TableName() string {
	return "submission_votes"
}

func (m voteModel) toEntity() entities.Vote {
	return entities.Vote{
		VoteID:       m.VoteID,
		UserID:       m.UserID,
		SubmissionID: m.SubmissionID,
		Month:        m.Month,
		CreatedAt:    m.CreatedAt.UTC(),
	}
}

func voteModelFromEntity(item entities.Vote) voteModel {
	createdAt := item.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return voteModel{
		VoteID:       strings.TrimSpace(item.VoteID),
		UserID:       strings.TrimSpace(item.UserID),
		SubmissionID: strings.TrimSpace(item.SubmissionID),
		Month:        strings.TrimSpace(item.Month),
		CreatedAt:    createdAt,
	}
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
	return "vote_outbox"
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
