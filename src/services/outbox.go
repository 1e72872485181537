package services

import (
	"errors"
	"log"
	"time"

	"boxoffice/src/db"
	"boxoffice/src/models"
	"boxoffice/src/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// OutboxMaxAttempts is the delivery attempt ceiling; rows that reach it
	// are marked failed and left for operators.
	OutboxMaxAttempts uint = 5
	// OutboxRetryDebounce keeps the retry sweep away from rows the post-commit
	// drain is probably still working on.
	OutboxRetryDebounce = 5 * time.Minute
	// OutboxRetention is how long sent rows are kept before cleanup.
	OutboxRetention = 30 * 24 * time.Hour
)

// EnqueueNotification records the intent to notify inside the caller's
// transaction. Re-enqueueing the same (order, type) pair while a pending row
// exists is a no-op, so a replayed transition cannot fan out duplicates.
func EnqueueNotification(tx *gorm.DB, orderId uuid.UUID, notificationType types.NotificationType) error {
	var existing models.NotificationOutbox
	err := tx.
		Where("order_id = ? AND notification_type = ? AND status = ?", orderId, notificationType, types.OUTBOX_PENDING).
		First(&existing).
		Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	row := models.NotificationOutbox{
		OrderID:          orderId,
		NotificationType: notificationType,
		Status:           types.OUTBOX_PENDING,
	}
	return tx.Create(&row).Error
}

// DrainOrder attempts delivery of all pending rows for one order. Called
// after the transaction that enqueued them commits; failures stay pending
// for the retry sweep.
func DrainOrder(orderId uuid.UUID) {
	conn := db.GetDb()
	var rows []models.NotificationOutbox
	err := conn.
		Where("order_id = ? AND status = ?", orderId, types.OUTBOX_PENDING).
		Order("id ASC").
		Find(&rows).
		Error
	if err != nil {
		log.Printf("error loading outbox rows for order %s: %s\n", orderId, err.Error())
		return
	}
	for i := range rows {
		deliverOutboxRow(conn, &rows[i])
	}
}

// RetryPending sweeps pending rows older than the debounce window and retries
// delivery, claiming each row with a skip-locked read so concurrent sweeps
// never double-deliver. Returns the number of rows attempted.
func RetryPending() (int, error) {
	conn := db.GetDb()
	cutoff := time.Now().Add(-OutboxRetryDebounce)

	var ids []uint
	err := conn.Model(&models.NotificationOutbox{}).
		Where("status = ? AND created_at < ? AND attempt_count < ?", types.OUTBOX_PENDING, cutoff, OutboxMaxAttempts).
		Order("id ASC").
		Pluck("id", &ids).
		Error
	if err != nil {
		return 0, err
	}

	attempted := 0
	for _, id := range ids {
		err := conn.Transaction(func(tx *gorm.DB) error {
			var row models.NotificationOutbox
			err := db.ForUpdateSkipLocked(tx).
				Where("id = ? AND status = ?", id, types.OUTBOX_PENDING).
				First(&row).
				Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Claimed by a concurrent sweep or delivered in the meantime.
				return nil
			}
			if err != nil {
				return err
			}
			deliverOutboxRow(tx, &row)
			attempted++
			return nil
		})
		if err != nil {
			return attempted, err
		}
	}
	return attempted, nil
}

func deliverOutboxRow(conn *gorm.DB, row *models.NotificationOutbox) {
	var order models.Order
	if err := conn.Preload("Items").Where("id = ?", row.OrderID).First(&order).Error; err != nil {
		log.Printf("error loading order %s for notification %d: %s\n", row.OrderID, row.ID, err.Error())
		recordOutboxFailure(conn, row, err)
		return
	}
	if err := GetNotifier().Notify(&order, row.NotificationType); err != nil {
		log.Printf("notification %d for order %s failed: %s\n", row.ID, order.OrderNumber, err.Error())
		recordOutboxFailure(conn, row, err)
		return
	}
	now := time.Now()
	updates := map[string]any{
		"status":        types.OUTBOX_SENT,
		"attempt_count": row.AttemptCount + 1,
		"sent_at":       now,
		"last_error":    "",
	}
	if err := conn.Model(row).Updates(updates).Error; err != nil {
		log.Printf("error marking notification %d sent: %s\n", row.ID, err.Error())
		return
	}
	row.Status = types.OUTBOX_SENT
	row.AttemptCount++
	row.SentAt = &now
}

func recordOutboxFailure(conn *gorm.DB, row *models.NotificationOutbox, cause error) {
	row.AttemptCount++
	updates := map[string]any{
		"attempt_count": row.AttemptCount,
		"last_error":    cause.Error(),
	}
	if row.AttemptCount >= OutboxMaxAttempts {
		updates["status"] = types.OUTBOX_FAILED
		row.Status = types.OUTBOX_FAILED
	}
	if err := conn.Model(row).Updates(updates).Error; err != nil {
		log.Printf("error recording notification %d failure: %s\n", row.ID, err.Error())
	}
}

// CleanupSent deletes sent rows past the retention window. Failed rows are
// kept indefinitely; they represent work an operator still has to look at.
func CleanupSent() (int64, error) {
	cutoff := time.Now().Add(-OutboxRetention)
	res := db.GetDb().
		Where("status = ? AND sent_at < ?", types.OUTBOX_SENT, cutoff).
		Delete(&models.NotificationOutbox{})
	return res.RowsAffected, res.Error
}

// PendingCount reports backlog size for the admin surface.
func PendingCount() (int64, error) {
	var count int64
	err := db.GetDb().Model(&models.NotificationOutbox{}).
		Where("status = ?", types.OUTBOX_PENDING).
		Count(&count).
		Error
	return count, err
}
