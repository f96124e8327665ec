package bootstrap

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/models"
)

// Migrate ensures the overlay table exists.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(allModels()...); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	return nil
}

func allModels() []any {
	return []any{
		&models.TaskOverlay{},
	}
}
