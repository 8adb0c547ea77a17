package repositories

import (
	"context"
	"fmt"

	"github.com/anonto42/inkpress/backend/internal/models"
	"gorm.io/gorm"
)

// PostRefsRepository owns the relational rows that point at a Mongo post.
// Posts live in another store, so the cascade a foreign key would give us is
// done here explicitly.
type PostRefsRepository interface {
	PurgePost(ctx context.Context, postID string) error
}

type PostgresPostRefsRepository struct {
	db *gorm.DB
}

func NewPostgresPostRefsRepository(db *gorm.DB) *PostgresPostRefsRepository {
	return &PostgresPostRefsRepository{db: db}
}

// PurgePost deletes notifications, likes and comments of a post in one
// transaction.
func (r *PostgresPostRefsRepository) PurgePost(ctx context.Context, postID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", postID).Delete(&models.Notification{}).Error; err != nil {
			return fmt.Errorf("purge notifications: %w", err)
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.Like{}).Error; err != nil {
			return fmt.Errorf("purge likes: %w", err)
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("purge comments: %w", err)
		}
		return nil
	})
}
