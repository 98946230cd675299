package models

import "gorm.io/gorm"

// AllModels returns all models for migration
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Signal{},
		&Trend{},
		&Connection{},
		&Favourite{},
		&UserGroup{},
		&SignalCollaborator{},
		&SignalCollaboratorGroup{},
		&Unit{},
		&Location{},
	}
}

// AutoMigrate runs GORM auto-migration for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}
