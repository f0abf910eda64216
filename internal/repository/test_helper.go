package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/wfunc/hodl-up/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB 为测试套件设置测试数据库
func SetupTestDB() *gorm.DB {
	// 使用内存数据库进行测试（更快，不需要文件系统，在所有环境中都能工作）
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(err)
	}

	// 自动迁移所有模型
	err = db.AutoMigrate(
		&models.User{},
		&models.UserAuth{},
		&models.GameSession{},
		&models.GameResult{},
		&models.GameStateSnapshot{},
	)
	if err != nil {
		panic(err)
	}

	return db
}

// TestDB 每个测试用例独立的内存数据库
func TestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return SetupTestDB()
}

// CreateTestUser 创建测试用户
func CreateTestUser(username string) *models.User {
	return &models.User{
		Username: username,
		Nickname: username,
		Email:    fmt.Sprintf("%s@test.local", username),
		Status:   "active",
	}
}

// CreateTestGameSession 创建测试对局会话
func CreateTestGameSession(hostUserID uint, playerCount int) *models.GameSession {
	return &models.GameSession{
		SessionID:    fmt.Sprintf("session_%d_%d", hostUserID, time.Now().UnixNano()),
		HostUserID:   hostUserID,
		Status:       "playing",
		PlayerCount:  playerCount,
		Seed:         42,
		CurrentRound: 1,
		CurrentBlock: 11,
		StartedAt:    time.Now(),
	}
}

// CreateTestGameResult 创建测试对局结果
func CreateTestGameResult(sessionID string, playerID string, score int) *models.GameResult {
	return &models.GameResult{
		SessionID:   sessionID,
		PlayerID:    playerID,
		PlayerName:  playerID,
		WalletColor: "yellow",
		Score:       score,
		FinishedAt:  time.Now(),
	}
}
