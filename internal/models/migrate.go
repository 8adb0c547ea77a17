package models

import "gorm.io/gorm"

// AutoMigrate creates or updates the relational tables. Order matters for
// foreign keys: users before the tables that reference them.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Comment{},
		&Like{},
		&Follow{},
		&Notification{},
	)
}
