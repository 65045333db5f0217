package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"atelier/contexts/request-queue/submission-service/domain/entities"
	domainerrors "atelier/contexts/request-queue/submission-service/domain/errors"
	"atelier/contexts/request-queue/submission-service/ports"
	platformdb "atelier/internal/platform/db"
	"atelier/internal/shared/policy"

	"github.com/google/uuid"
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

// handle joins the ambient unit-of-work transaction when one is carried in
// ctx, so lane mutations and their recompute share a single commit.
func (r *Repository) handle(ctx context.Context) *gorm.DB {
	return platformdb.FromContext(ctx, r.db).WithContext(ctx)
}

func (r *Repository) Create(ctx context.Context, submission entities.Submission) error {
	row := submissionModelFromEntity(submission)
	return r.handle(ctx).Create(&row).Error
}

func (r *Repository) Update(ctx context.Context, submission entities.Submission) error {
	row := submissionModelFromEntity(submission)
	result := r.handle(ctx).
		Model(&submissionModel{}).
		Where("submission_id = ?", row.SubmissionID).
		Select("*").
		Omit("submission_id").
		Updates(&row)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrSubmissionNotFound
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, submissionID string) (entities.Submission, error) {
	var row submissionModel
	err := r.handle(ctx).
		Where("submission_id = ?", strings.TrimSpace(submissionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Submission{}, domainerrors.ErrSubmissionNotFound
		}
		return entities.Submission{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) ListPending(ctx context.Context, lane policy.Lane) ([]entities.Submission, error) {
	var rows []submissionModel
	err := r.handle(ctx).
		Where("status = ?", string(entities.StatusPending)).
		Where("queue_type = ?", string(lane)).
		Order("submitted_at ASC").
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}
	return toEntities(rows), nil
}

func (r *Repository) CountPendingByOwner(ctx context.Context, ownerID string) (int, error) {
	var count int64
	err := r.handle(ctx).
		Model(&submissionModel{}).
		Where("user_id = ?", strings.TrimSpace(ownerID)).
		Where("status = ?", string(entities.StatusPending)).
		Count(&count).
		Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *Repository) ListByOwner(ctx context.Context, ownerID string, status entities.Status) ([]entities.Submission, error) {
	query := r.handle(ctx).
		Where("user_id = ?", strings.TrimSpace(ownerID)).
		Order("submitted_at DESC")
	if status != "" {
		query = query.Where("status = ?", string(status))
	}
	var rows []submissionModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return toEntities(rows), nil
}

func (r *Repository) SavePositions(ctx context.Context, placements []ports.QueuePlacement) error {
	handle := r.handle(ctx)
	for _, placement := range placements {
		err := handle.
			Model(&submissionModel{}).
			Where("submission_id = ?", placement.SubmissionID).
			Updates(map[string]any{
				"queue_position": placement.Position,
				"estimated_at":   placement.EstimatedAt.UTC(),
				"updated_at":     placement.UpdatedAt.UTC(),
			}).
			Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) SearchCompleted(ctx context.Context, query string, viewerID string) ([]entities.Submission, error) {
	pattern := "%" + strings.TrimSpace(query) + "%"
	handle := r.handle(ctx).
		Where("status = ?", string(entities.StatusCompleted)).
		Where("(character_name ILIKE ? OR series ILIKE ?)", pattern, pattern)
	if viewerID = strings.TrimSpace(viewerID); viewerID != "" {
		handle = handle.Where("(is_public OR user_id = ?)", viewerID)
	}
	var rows []submissionModel
	err := handle.
		Order("completed_at DESC").
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}
	return toEntities(rows), nil
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

type submissionModel struct {
	SubmissionID      string     `gorm:"column:submission_id;primaryKey"`
	UserID            string     `gorm:"column:user_id"`
	UserTier          int        `gorm:"column:user_tier"`
	CharacterName     string     `gorm:"column:character_name"`
	Series            string     `gorm:"column:series"`
	Description       string     `gorm:"column:description"`
	IsPublic          bool       `gorm:"column:is_public"`
	IsLargeImageSet   bool       `gorm:"column:is_large_image_set"`
	IsDoubleCharacter bool       `gorm:"column:is_double_character"`
	CreditCost        int        `gorm:"column:credit_cost"`
	Status            string     `gorm:"column:status"`
	QueueType         string     `gorm:"column:queue_type"`
	QueuePosition     *int       `gorm:"column:queue_position"`
	VoteCount         int        `gorm:"column:vote_count"`
	SubmittedAt       time.Time  `gorm:"column:submitted_at"`
	StartedAt         *time.Time `gorm:"column:started_at"`
	CompletedAt       *time.Time `gorm:"column:completed_at"`
	EstimatedAt       *time.Time `gorm:"column:estimated_at"`
	CompletionLink    string     `gorm:"column:completion_link"`
	CreatorNotes      string     `gorm:"column:creator_notes"`
	CancelReason      string     `gorm:"column:cancel_reason"`
	UpdatedAt         time.Time  `gorm:"column:updated_at"`
}

func (submissionModel) TableName() string {
	return "submissions"
}

func (m submissionModel) toEntity() entities.Submission {
	return entities.Submission{
		SubmissionID:      m.SubmissionID,
		OwnerID:           m.UserID,
		OwnerTier:         m.UserTier,
		CharacterName:     m.CharacterName,
		Series:            m.Series,
		Description:       m.Description,
		IsPublic:          m.IsPublic,
		IsLargeImageSet:   m.IsLargeImageSet,
		IsDoubleCharacter: m.IsDoubleCharacter,
		CreditCost:        m.CreditCost,
		Status:            entities.Status(m.Status),
		QueueType:         policy.Lane(m.QueueType),
		QueuePosition:     m.QueuePosition,
		VoteCount:         m.VoteCount,
		SubmittedAt:       m.SubmittedAt.UTC(),
		StartedAt:         utcOrNil(m.StartedAt),
		CompletedAt:       utcOrNil(m.CompletedAt),
		EstimatedAt:       utcOrNil(m.EstimatedAt),
		CompletionLink:    m.CompletionLink,
		CreatorNotes:      m.CreatorNotes,
		CancelReason:      m.CancelReason,
		UpdatedAt:         m.UpdatedAt.UTC(),
	}
}

func submissionModelFromEntity(item entities.Submission) submissionModel {
	return submissionModel{
		SubmissionID:      strings.TrimSpace(item.SubmissionID),
		UserID:            strings.TrimSpace(item.OwnerID),
		UserTier:          item.OwnerTier,
		CharacterName:     strings.TrimSpace(item.CharacterName),
		Series:            strings.TrimSpace(item.Series),
		Description:       strings.TrimSpace(item.Description),
		IsPublic:          item.IsPublic,
		IsLargeImageSet:   item.IsLargeImageSet,
		IsDoubleCharacter: item.IsDoubleCharacter,
		CreditCost:        item.CreditCost,
		Status:            string(item.Status),
		QueueType:         string(item.QueueType),
		QueuePosition:     item.QueuePosition,
		VoteCount:         item.VoteCount,
		SubmittedAt:       item.SubmittedAt.UTC(),
		StartedAt:         utcOrNil(item.StartedAt),
		CompletedAt:       utcOrNil(item.CompletedAt),
		EstimatedAt:       utcOrNil(item.EstimatedAt),
		CompletionLink:    strings.TrimSpace(item.CompletionLink),
		CreatorNotes:      strings.TrimSpace(item.CreatorNotes),
		CancelReason:      strings.TrimSpace(item.CancelReason),
		UpdatedAt:         item.UpdatedAt.UTC(),
	}
}

func toEntities(rows []submissionModel) []entities.Submission {
	items := make([]entities.Submission, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items
}

func utcOrNil(ts *time.Time) *time.Time {
	if ts == nil {
		return nil
	}
	utc := ts.UTC()
	return &utc
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
	return "submission_outbox"
}

func marshalEnvelope(envelope ports.EventEnvelope) (datatypes.JSON, error) {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(payload), nil
}
