package database

import (
	"fmt"

	"github.com/wfunc/hodl-up/internal/logger"
	"github.com/wfunc/hodl-up/internal/models"
	"go.uber.org/zap"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate() error {
	if DB == nil {
		return fmt.Errorf("数据库未初始化")
	}

	// 清理过期锁文件
	CleanupStaleLocks()

	// 获取迁移锁，避免多个进程同时迁移
	dbPath := getDBPath()
	if dbPath != "" {
		lockFile, err := acquireMigrationLock(dbPath)
		if err != nil {
			logger.Error("无法获取迁移锁", zap.Error(err))
			return fmt.Errorf("获取迁移锁失败: %w", err)
		}
		defer releaseMigrationLock(lockFile)
	}

	migrationModels := []interface{}{
		// 用户相关
		&models.User{},
		&models.UserAuth{},

		// 对局相关
		&models.GameSession{},
		&models.GameResult{},
		&models.GameStateSnapshot{},
	}

	logger.Info("开始数据库迁移...")

	// SQLite迁移重建表时先关闭外键约束，避免锁定
	if DB.Dialector.Name() == "sqlite" {
		DB.Exec("PRAGMA foreign_keys = OFF")
		defer DB.Exec("PRAGMA foreign_keys = ON")
	}

	for _, model := range migrationModels {
		if err := DB.AutoMigrate(model); err != nil {
			logger.Error("迁移失败",
				zap.String("model", fmt.Sprintf("%T", model)),
				zap.Error(err),
			)
			return err
		}
		logger.Debug("迁移成功", zap.String("model", fmt.Sprintf("%T", model)))
	}

	if err := createIndexes(); err != nil {
		return err
	}

	logger.Info("数据库迁移完成")
	return nil
}

// createIndexes 创建数据库索引
func createIndexes() error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_game_sessions_status ON game_sessions(status)",
		"CREATE INDEX IF NOT EXISTS idx_game_results_score ON game_results(score)",
		"CREATE INDEX IF NOT EXISTS idx_game_results_session_rank ON game_results(session_id, rank)",
	}

	for _, idx := range indexes {
		if err := DB.Exec(idx).Error; err != nil {
			logger.Warn("创建索引失败", zap.String("index", idx), zap.Error(err))
		}
	}
	return nil
}

// DropAllTables 删除所有表（仅用于测试环境）
func DropAllTables() error {
	tables := []interface{}{
		&models.GameStateSnapshot{},
		&models.GameResult{},
		&models.GameSession{},
		&models.UserAuth{},
		&models.User{},
	}

	for _, table := range tables {
		if err := DB.Migrator().DropTable(table); err != nil {
			return err
		}
	}
	return nil
}
