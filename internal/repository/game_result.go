package repository

import (
	"context"

	"github.com/wfunc/hodl-up/internal/models"
	"gorm.io/gorm"
)

// GameResultRepository 对局结果仓储接口
type GameResultRepository interface {
	BaseRepository
	Create(ctx context.Context, result *models.GameResult) error
	BatchCreate(ctx context.Context, results []*models.GameResult) error
	FindBySessionID(ctx context.Context, sessionID string) ([]*models.GameResult, error)
	FindByUserID(ctx context.Context, userID uint, p *Pagination) ([]*models.GameResult, error)
	TopScores(ctx context.Context, limit int) ([]*models.GameResult, error)
	WinCount(ctx context.Context, userID uint) (int64, error)
}

// gameResultRepo 对局结果仓储实现
type gameResultRepo struct {
	*BaseRepo
}

// NewGameResultRepository 创建对局结果仓储
func NewGameResultRepository(db *gorm.DB) GameResultRepository {
	return &gameResultRepo{
		BaseRepo: NewBaseRepo(db),
	}
}

// Create 创建对局结果
func (r *gameResultRepo) Create(ctx context.Context, result *models.GameResult) error {
	return r.db.WithContext(ctx).Create(result).Error
}

// BatchCreate 批量写入一局的全部玩家结果
func (r *gameResultRepo) BatchCreate(ctx context.Context, results []*models.GameResult) error {
	if len(results) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(results).Error
}

// FindBySessionID 查找一局的全部结果（按名次排序）
func (r *gameResultRepo) FindBySessionID(ctx context.Context, sessionID string) ([]*models.GameResult, error) {
	var results []*models.GameResult
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("rank ASC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// FindByUserID 查找用户的历史战绩（分页）
func (r *gameResultRepo) FindByUserID(ctx context.Context, userID uint, p *Pagination) ([]*models.GameResult, error) {
	var results []*models.GameResult

	r.db.WithContext(ctx).
		Model(&models.GameResult{}).
		Where("user_id = ?", userID).
		Count(&p.Total)

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scopes(Paginate(p)).
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// TopScores 历史最高分排行榜
func (r *gameResultRepo) TopScores(ctx context.Context, limit int) ([]*models.GameResult, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	var results []*models.GameResult
	err := r.db.WithContext(ctx).
		Order("score DESC").
		Limit(limit).
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// WinCount 统计用户的获胜局数
func (r *gameResultRepo) WinCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.GameResult{}).
		Where("user_id = ? AND is_winner = ?", userID, true).
		Count(&count).Error
	return count, err
}
