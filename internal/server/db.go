// Package server manages the FabricMon database layer and REST API.
package server

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/infrapulse/fabricmon/internal/config"
	"github.com/infrapulse/fabricmon/internal/models"
)

var DB *gorm.DB

// InitDB opens the SQLite database and runs AutoMigrate for all fabric
// tables.
func InitDB(cfg *config.Config) error {
	db, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.FabricJob{},
		&models.FabricNode{},
		&models.FabricNodeDetail{},
		&models.FabricNodeInterface{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	DB = db
	return nil
}

// DeleteJobCascade removes a job together with its nodes, details and
// interfaces. SQLite foreign keys are not relied upon; child rows are
// cleared explicitly inside one transaction.
func DeleteJobCascade(db *gorm.DB, job *models.FabricJob) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var nodeIDs []uint
		if err := tx.Model(&models.FabricNode{}).
			Where("job_id = ?", job.ID).
			Pluck("id", &nodeIDs).Error; err != nil {
			return err
		}
		if len(nodeIDs) > 0 {
			if err := tx.Unscoped().Where("node_id IN ?", nodeIDs).Delete(&models.FabricNodeInterface{}).Error; err != nil {
				return err
			}
			if err := tx.Unscoped().Where("node_id IN ?", nodeIDs).Delete(&models.FabricNodeDetail{}).Error; err != nil {
				return err
			}
			if err := tx.Unscoped().Where("job_id = ?", job.ID).Delete(&models.FabricNode{}).Error; err != nil {
				return err
			}
		}
		return tx.Unscoped().Delete(job).Error
	})
}
