package database

import (
	"accessctl/internal/models"
	"accessctl/pkg/logger"

	"gorm.io/gorm"
)

// Migrate 执行数据库迁移
func Migrate(db *gorm.DB) error {
	appLogger := logger.GetLogger()
	appLogger.Info("Starting database migration...")

	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		appLogger.Errorf("Database migration failed: %v", err)
		return err
	}

	appLogger.Info("Database migration completed successfully")
	return nil
}

// Reset 删除全部表后重新迁移
func Reset(db *gorm.DB) error {
	all := models.AllModels()
	// 先删关联表
	for i := len(all) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(all[i]); err != nil {
			return err
		}
	}
	logger.GetLogger().Warn("All tables dropped")
	return Migrate(db)
}
