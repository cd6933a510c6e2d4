package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"accessctl/internal/database"
	"accessctl/internal/router"
	"accessctl/pkg/config"
	"accessctl/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	seedFlag := flag.Bool("seed", false, "写入演示数据后继续启动")
	resetFlag := flag.Bool("reset", false, "删除并重建全部表（会清空数据）")
	migrateOnly := flag.Bool("migrate-only", false, "只执行迁移（和种子数据）后退出")
	flag.Parse()

	// 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	if err := logger.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	appLogger := logger.GetLogger()
	appLogger.Info("Starting accessctl...")
	if cfg.JWT.UsingDevSecret {
		appLogger.Warn("JWT_SECRET_KEY 未配置，正在使用开发密钥，切勿用于生产环境")
	}

	// 初始化数据库
	if err := database.Initialize(cfg); err != nil {
		appLogger.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			appLogger.Error("Failed to close database:", err)
		}
	}()

	db := database.GetDB()
	if *resetFlag {
		appLogger.Warn("重建数据库表")
		if err := database.Reset(db); err != nil {
			appLogger.Fatalf("Failed to reset database: %v", err)
		}
	} else if err := database.Migrate(db); err != nil {
		appLogger.Fatalf("Failed to migrate database: %v", err)
	}

	deps, err := router.NewDependencies(cfg, db)
	if err != nil {
		appLogger.Fatalf("Failed to build services: %v", err)
	}

	// 执行种子数据初始化
	if *seedFlag || *resetFlag || cfg.Seed.OnStart {
		if err := seedData(context.Background(), deps); err != nil {
			appLogger.Fatalf("Failed to initialize seed data: %v", err)
		}
	}
	if *migrateOnly {
		appLogger.Info("Migration finished")
		return
	}

	// 设置Gin模式
	gin.SetMode(cfg.Server.Mode)

	r, err := router.SetupRouter(deps)
	if err != nil {
		appLogger.Fatalf("Failed to setup router: %v", err)
	}

	// 启动服务器
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()

	appLogger.Infof("Server started on port %s (policy=%s, db=%s)", cfg.Server.Port, cfg.Auth.Policy, cfg.Database.Driver)

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown:", err)
	}
	appLogger.Info("Server exited")
}
