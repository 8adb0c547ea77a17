package repositories

import (
	"context"
	"fmt"

	"github.com/anonto42/inkpress/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NotificationRepository defines the interface for notification operations
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByRecipient(ctx context.Context, recipientID uint, offset, limit int) ([]models.NotificationView, error)
	CountByRecipient(ctx context.Context, recipientID uint) (int64, error)
	CountUnread(ctx context.Context, recipientID uint) (int64, error)
	MarkRead(ctx context.Context, notificationID, recipientID uint) error
	MarkAllRead(ctx context.Context, recipientID uint) (int64, error)
}

type PostgresNotificationRepository struct {
	db *gorm.DB
}

func NewPostgresNotificationRepository(db *gorm.DB) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{db: db}
}

// Create inserts the row; ID and CreatedAt are filled in on success.
func (r *PostgresNotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(notification).Error; err != nil {
		return fmt.Errorf("insert notification: %w", translate(err))
	}
	return nil
}

func (r *PostgresNotificationRepository) ListByRecipient(ctx context.Context, recipientID uint, offset, limit int) ([]models.NotificationView, error) {
	var rows []models.Notification
	err := r.db.WithContext(ctx).
		Joins("Sender").
		Where("notifications.recipient_id = ?", recipientID).
		Order("notifications.created_at DESC").
		Order("notifications.id DESC").
		Offset(offset).Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	views := make([]models.NotificationView, len(rows))
	for i, n := range rows {
		views[i] = models.NotificationView{Notification: n}
		if n.Sender != nil {
			views[i].SenderUsername = n.Sender.Username
			views[i].SenderProfilePicture = n.Sender.ProfilePicture
		}
		views[i].Sender = nil
	}
	return views, nil
}

func (r *PostgresNotificationRepository) CountByRecipient(ctx context.Context, recipientID uint) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ?", recipientID).
		Count(&total).Error
	return total, err
}

func (r *PostgresNotificationRepository) CountUnread(ctx context.Context, recipientID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error
	return count, err
}

// MarkRead flips is_read for a notification owned by recipientID. A row that
// is already read still counts as matched, so repeat calls succeed.
func (r *PostgresNotificationRepository) MarkRead(ctx context.Context, notificationID, recipientID uint) error {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ?", notificationID, recipientID).
		Update("is_read", true)
	if res.Error != nil {
		return fmt.Errorf("mark notification read: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresNotificationRepository) MarkAllRead(ctx context.Context, recipientID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", res.Error)
	}
	return res.RowsAffected, nil
}
