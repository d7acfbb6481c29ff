package outbox

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/assetflow-backend/pkg/db/models"
	"github.com/angelmondragon/assetflow-backend/pkg/enums"
)

// dlqMessageLimit caps error_message in bytes.
const dlqMessageLimit = 1024

// DLQRepository stores events the publisher stopped retrying.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

// InsertTx runs inside the publisher transaction that marks the source row
// terminal.
func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if entry.ErrorMessage != nil {
		clipped := clipMessage(*entry.ErrorMessage, dlqMessageLimit)
		entry.ErrorMessage = &clipped
	}
	return tx.Create(&entry).Error
}

// Latest returns the most recent dead letter for eventID, or nil.
func (r *DLQRepository) Latest(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error) {
	var rows []models.OutboxDLQ
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("failed_at DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

// CountSince groups dead letters written at or after since by reason.
func (r *DLQRepository) CountSince(ctx context.Context, since time.Time) (map[enums.OutboxDLQErrorReason]int64, error) {
	var buckets []struct {
		ErrorReason enums.OutboxDLQErrorReason
		Total       int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.OutboxDLQ{}).
		Select("error_reason, COUNT(*) AS total").
		Where("failed_at >= ?", since).
		Group("error_reason").
		Scan(&buckets).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[enums.OutboxDLQErrorReason]int64, len(buckets))
	for _, b := range buckets {
		counts[b.ErrorReason] = b.Total
	}
	return counts, nil
}

// clipMessage truncates to at most limit bytes without splitting a rune.
func clipMessage(message string, limit int) string {
	if len(message) <= limit {
		return message
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(message[cut]) {
		cut--
	}
	return message[:cut]
}
