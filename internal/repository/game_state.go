package repository

import (
	"context"

	"github.com/wfunc/hodl-up/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GameStateRepository 游戏状态快照仓储接口
// 保存完整GameState的JSON快照，用于断线恢复
type GameStateRepository interface {
	BaseRepository
	Save(ctx context.Context, snapshot *models.GameStateSnapshot) error
	FindBySessionID(ctx context.Context, sessionID string) (*models.GameStateSnapshot, error)
	DeleteBySessionID(ctx context.Context, sessionID string) error
}

// gameStateRepo 游戏状态快照仓储实现
type gameStateRepo struct {
	*BaseRepo
}

// NewGameStateRepository 创建游戏状态快照仓储
func NewGameStateRepository(db *gorm.DB) GameStateRepository {
	return &gameStateRepo{BaseRepo: NewBaseRepo(db)}
}

// Save 保存快照（同一会话覆盖更新）
func (r *gameStateRepo) Save(ctx context.Context, snapshot *models.GameStateSnapshot) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "state_data", "updated_at"}),
		}).
		Create(snapshot).Error
}

// FindBySessionID 根据会话ID查找快照
func (r *gameStateRepo) FindBySessionID(ctx context.Context, sessionID string) (*models.GameStateSnapshot, error) {
	var snapshot models.GameStateSnapshot
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&snapshot).Error
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// DeleteBySessionID 删除会话快照
func (r *gameStateRepo) DeleteBySessionID(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&models.GameStateSnapshot{}).Error
}
