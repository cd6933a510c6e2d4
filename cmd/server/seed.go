package main

import (
	"context"

	"accessctl/internal/router"
	"accessctl/internal/seed"
	"accessctl/pkg/logger"
)

// seedData 写入演示角色、用户和菜单；已有角色时跳过
func seedData(ctx context.Context, deps *router.Dependencies) error {
	appLogger := logger.GetLogger()
	appLogger.Info("Initializing seed data...")

	seeder := seed.NewSeeder(deps.DB, deps.Users, deps.Roles, deps.Menus)
	if err := seeder.Run(ctx); err != nil {
		return err
	}

	appLogger.Info("Seed data ready")
	return nil
}
