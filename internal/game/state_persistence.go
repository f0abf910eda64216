package game

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/wfunc/hodl-up/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionData 会话快照数据
type SessionData struct {
	SessionID   string     `json:"session_id"`
	HostUserID  uint       `json:"host_user_id"`
	Seed        int64      `json:"seed"`
	ActionCount int        `json:"action_count"`
	State       *GameState `json:"state"`
	LastUpdate  time.Time  `json:"last_update"`
}

// StatePersister 会话状态持久化接口
type StatePersister interface {
	Save(ctx context.Context, sessionID string, data *SessionData) error
	Load(ctx context.Context, sessionID string) (*SessionData, error)
	Delete(ctx context.Context, sessionID string) error
}

// MemoryStatePersister 内存状态持久化（缓存层和测试用）
type MemoryStatePersister struct {
	mu     sync.RWMutex
	states map[string]*SessionData
}

// NewMemoryStatePersister 创建内存持久化器
func NewMemoryStatePersister() *MemoryStatePersister {
	return &MemoryStatePersister{
		states: make(map[string]*SessionData),
	}
}

// Save 保存状态
func (p *MemoryStatePersister) Save(ctx context.Context, sessionID string, data *SessionData) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	// 序列化再反序列化做深拷贝，避免调用方后续修改污染快照
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("序列化会话状态失败: %w", err)
	}

	var copied SessionData
	if err := json.Unmarshal(raw, &copied); err != nil {
		return fmt.Errorf("拷贝会话状态失败: %w", err)
	}

	p.states[sessionID] = &copied
	return nil
}

// Load 加载状态
func (p *MemoryStatePersister) Load(ctx context.Context, sessionID string) (*SessionData, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	data, exists := p.states[sessionID]
	if !exists {
		return nil, fmt.Errorf("会话状态不存在: %s", sessionID)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("序列化会话状态失败: %w", err)
	}

	var copied SessionData
	if err := json.Unmarshal(raw, &copied); err != nil {
		return nil, fmt.Errorf("拷贝会话状态失败: %w", err)
	}

	return &copied, nil
}

// Delete 删除状态
func (p *MemoryStatePersister) Delete(ctx context.Context, sessionID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.states, sessionID)
	return nil
}

// DatabaseStatePersister 数据库状态持久化
type DatabaseStatePersister struct {
	db *gorm.DB
}

// NewDatabaseStatePersister 创建数据库持久化器
func NewDatabaseStatePersister(db *gorm.DB) *DatabaseStatePersister {
	return &DatabaseStatePersister{
		db: db,
	}
}

// Save 保存状态到数据库
func (p *DatabaseStatePersister) Save(ctx context.Context, sessionID string, data *SessionData) error {
	stateJSON, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("序列化会话状态失败: %w", err)
	}

	status := string(StatusSetup)
	if data.State != nil {
		status = string(data.State.GameStatus)
	}

	snapshot := &models.GameStateSnapshot{
		SessionID: sessionID,
		Status:    status,
		StateData: string(stateJSON),
		UpdatedAt: time.Now(),
	}

	// Upsert：同一会话只保留最新快照
	result := p.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "state_data", "updated_at"}),
		}).
		Create(snapshot)

	if result.Error != nil {
		return fmt.Errorf("保存会话状态失败: %w", result.Error)
	}

	return nil
}

// Load 从数据库加载状态
func (p *DatabaseStatePersister) Load(ctx context.Context, sessionID string) (*SessionData, error) {
	var snapshot models.GameStateSnapshot

	result := p.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&snapshot)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("会话状态不存在: %s", sessionID)
		}
		return nil, fmt.Errorf("查询会话状态失败: %w", result.Error)
	}

	var data SessionData
	if err := json.Unmarshal([]byte(snapshot.StateData), &data); err != nil {
		return nil, fmt.Errorf("反序列化会话状态失败: %w", err)
	}

	return &data, nil
}

// Delete 从数据库删除状态
func (p *DatabaseStatePersister) Delete(ctx context.Context, sessionID string) error {
	result := p.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&models.GameStateSnapshot{})

	if result.Error != nil {
		return fmt.Errorf("删除会话状态失败: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("会话状态不存在: %s", sessionID)
	}

	return nil
}

// CacheStatePersister 带缓存的持久化器（装饰器模式）
type CacheStatePersister struct {
	cache   StatePersister // 缓存层
	storage StatePersister // 存储层
}

// NewCacheStatePersister 创建带缓存的持久化器
func NewCacheStatePersister(cache, storage StatePersister) *CacheStatePersister {
	return &CacheStatePersister{
		cache:   cache,
		storage: storage,
	}
}

// Save 保存状态（同时写入缓存和存储，缓存失败不影响主流程）
func (p *CacheStatePersister) Save(ctx context.Context, sessionID string, data *SessionData) error {
	if err := p.storage.Save(ctx, sessionID, data); err != nil {
		return err
	}

	_ = p.cache.Save(ctx, sessionID, data)

	return nil
}

// Load 加载状态（优先命中缓存）
func (p *CacheStatePersister) Load(ctx context.Context, sessionID string) (*SessionData, error) {
	if data, err := p.cache.Load(ctx, sessionID); err == nil {
		return data, nil
	}

	data, err := p.storage.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	_ = p.cache.Save(ctx, sessionID, data)

	return data, nil
}

// Delete 删除状态（同时清理缓存和存储）
func (p *CacheStatePersister) Delete(ctx context.Context, sessionID string) error {
	_ = p.cache.Delete(ctx, sessionID)

	return p.storage.Delete(ctx, sessionID)
}
