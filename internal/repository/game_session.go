package repository

import (
	"context"
	"time"

	"github.com/wfunc/hodl-up/internal/models"
	"gorm.io/gorm"
)

// GameSessionRepository 对局会话仓储接口
type GameSessionRepository interface {
	BaseRepository
	Create(ctx context.Context, session *models.GameSession) error
	Update(ctx context.Context, session *models.GameSession) error
	UpdateBySessionID(ctx context.Context, sessionID string, updates map[string]interface{}) error
	FindByID(ctx context.Context, id uint) (*models.GameSession, error)
	FindBySessionID(ctx context.Context, sessionID string) (*models.GameSession, error)
	FindByHostUserID(ctx context.Context, userID uint, p *Pagination) ([]*models.GameSession, error)
	FindActiveByHostUserID(ctx context.Context, userID uint) (*models.GameSession, error)
	EndSession(ctx context.Context, sessionID string, status string) error
	CleanupExpiredSessions(ctx context.Context, expiredBefore time.Time) (int64, error)
}

// gameSessionRepo 对局会话仓储实现
type gameSessionRepo struct {
	*BaseRepo
}

// NewGameSessionRepository 创建对局会话仓储
func NewGameSessionRepository(db *gorm.DB) GameSessionRepository {
	return &gameSessionRepo{
		BaseRepo: NewBaseRepo(db),
	}
}

// Create 创建对局会话
func (r *gameSessionRepo) Create(ctx context.Context, session *models.GameSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// Update 更新对局会话
func (r *gameSessionRepo) Update(ctx context.Context, session *models.GameSession) error {
	return r.db.WithContext(ctx).Save(session).Error
}

// UpdateBySessionID 根据会话ID更新
func (r *gameSessionRepo) UpdateBySessionID(ctx context.Context, sessionID string, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&models.GameSession{}).
		Where("session_id = ?", sessionID).
		Updates(updates).Error
}

// FindByID 根据ID查找
func (r *gameSessionRepo) FindByID(ctx context.Context, id uint) (*models.GameSession, error) {
	var session models.GameSession
	err := r.db.WithContext(ctx).First(&session, id).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// FindBySessionID 根据会话ID查找
func (r *gameSessionRepo) FindBySessionID(ctx context.Context, sessionID string) (*models.GameSession, error) {
	var session models.GameSession
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// FindByHostUserID 查找某位主机玩家的历史对局（分页）
func (r *gameSessionRepo) FindByHostUserID(ctx context.Context, userID uint, p *Pagination) ([]*models.GameSession, error) {
	var sessions []*models.GameSession

	r.db.WithContext(ctx).
		Model(&models.GameSession{}).
		Where("host_user_id = ?", userID).
		Count(&p.Total)

	err := r.db.WithContext(ctx).
		Where("host_user_id = ?", userID).
		Order("created_at DESC").
		Scopes(Paginate(p)).
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// FindActiveByHostUserID 查找主机玩家正在进行的对局
func (r *gameSessionRepo) FindActiveByHostUserID(ctx context.Context, userID uint) (*models.GameSession, error) {
	var session models.GameSession
	err := r.db.WithContext(ctx).
		Where("host_user_id = ? AND status IN ?", userID, []string{"playing", "paused"}).
		Order("created_at DESC").
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// EndSession 结束对局会话
func (r *gameSessionRepo) EndSession(ctx context.Context, sessionID string, status string) error {
	session, err := r.FindBySessionID(ctx, sessionID)
	if err != nil {
		return err
	}

	now := time.Now()
	session.Status = status
	session.EndedAt = &now
	session.Duration = int(now.Sub(session.StartedAt).Seconds())
	return r.db.WithContext(ctx).Save(session).Error
}

// CleanupExpiredSessions 清理过期未结束的会话
func (r *gameSessionRepo) CleanupExpiredSessions(ctx context.Context, expiredBefore time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.GameSession{}).
		Where("status IN ? AND updated_at < ?", []string{"playing", "paused"}, expiredBefore).
		Update("status", "abandoned")
	return result.RowsAffected, result.Error
}
