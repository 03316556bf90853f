package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/ttms-project/backend/internal/logger"
	"github.com/ttms-project/backend/internal/models"
)

// Models lists every table owned by the pipeline.
var Models = []interface{}{
	&models.Token{},
	&models.Vote{},
	&models.VolumeSample{},
	&models.HolderSample{},
	&models.HolderScore{},
	&models.Score{},
	&models.ScoreByHour{},
	&models.DailyScore{},
	&models.Snapshot{},
	&models.Position{},
	&models.PortfolioResult{},
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("auto-migrate failed: %w", err)
	}
	logger.Info("✅ Schema migrated (%d tables)", len(Models))
	return nil
}
