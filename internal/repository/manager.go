package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Manager 仓储管理器，提供所有仓储的统一访问接口
type Manager struct {
	db *gorm.DB

	// 仓储实例（使用懒加载）
	gameSessionOnce sync.Once
	gameSession     GameSessionRepository

	gameResultOnce sync.Once
	gameResult     GameResultRepository

	gameStateOnce sync.Once
	gameState     GameStateRepository

	userOnce sync.Once
	user     UserRepository

	userAuthOnce sync.Once
	userAuth     UserAuthRepository
}

// NewManager 创建仓储管理器
func NewManager(db *gorm.DB) *Manager {
	return &Manager{db: db}
}

// GetDB 获取数据库实例
func (m *Manager) GetDB() *gorm.DB {
	return m.db
}

// GameSession 获取对局会话仓储
func (m *Manager) GameSession() GameSessionRepository {
	m.gameSessionOnce.Do(func() {
		m.gameSession = NewGameSessionRepository(m.db)
	})
	return m.gameSession
}

// GameResult 获取对局结果仓储
func (m *Manager) GameResult() GameResultRepository {
	m.gameResultOnce.Do(func() {
		m.gameResult = NewGameResultRepository(m.db)
	})
	return m.gameResult
}

// GameState 获取游戏状态快照仓储
func (m *Manager) GameState() GameStateRepository {
	m.gameStateOnce.Do(func() {
		m.gameState = NewGameStateRepository(m.db)
	})
	return m.gameState
}

// User 获取用户仓储
func (m *Manager) User() UserRepository {
	m.userOnce.Do(func() {
		m.user = NewUserRepository(m.db)
	})
	return m.user
}

// UserAuth 获取用户认证仓储
func (m *Manager) UserAuth() UserAuthRepository {
	m.userAuthOnce.Do(func() {
		m.userAuth = NewUserAuthRepository(m.db)
	})
	return m.userAuth
}
