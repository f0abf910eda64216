package service

import (
	"context"
	"fmt"

	"github.com/wfunc/hodl-up/internal/models"
	"github.com/wfunc/hodl-up/internal/repository"
	"github.com/wfunc/hodl-up/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// userService 用户服务实现
type userService struct {
	db         *gorm.DB
	userRepo   repository.UserRepository
	authRepo   repository.UserAuthRepository
	resultRepo repository.GameResultRepository
	log        *zap.Logger
}

// NewUserService 创建用户服务
func NewUserService(
	db *gorm.DB,
	userRepo repository.UserRepository,
	authRepo repository.UserAuthRepository,
	resultRepo repository.GameResultRepository,
	log *zap.Logger,
) UserService {
	return &userService{
		db:         db,
		userRepo:   userRepo,
		authRepo:   authRepo,
		resultRepo: resultRepo,
		log:        log,
	}
}

// GetUserByID 按ID查询用户
func (s *userService) GetUserByID(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// GetUserByUsername 按用户名查询用户
func (s *userService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// UpdateProfile 更新用户资料
func (s *userService) UpdateProfile(ctx context.Context, userID uint, profile *UserProfile) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return ErrUserNotFound
	}

	if profile.Nickname != "" {
		user.Nickname = profile.Nickname
	}
	if profile.Avatar != "" {
		user.Avatar = profile.Avatar
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		s.log.Error("更新用户资料失败", zap.Uint("user_id", userID), zap.Error(err))
		return fmt.Errorf("更新资料失败: %w", err)
	}
	return nil
}

// UpdatePassword 修改密码（需验证旧密码）
func (s *userService) UpdatePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error {
	auth, err := s.authRepo.FindByUserID(ctx, userID)
	if err != nil {
		return ErrUserNotFound
	}

	valid, err := utils.VerifyPassword(oldPassword, auth.Password)
	if err != nil || !valid {
		return ErrInvalidCredentials
	}

	if len(newPassword) < 6 {
		return fmt.Errorf("密码长度至少6个字符")
	}

	hashed, err := utils.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("密码加密失败: %w", err)
	}

	if err := s.authRepo.UpdatePassword(ctx, userID, hashed); err != nil {
		s.log.Error("更新密码失败", zap.Uint("user_id", userID), zap.Error(err))
		return fmt.Errorf("更新密码失败: %w", err)
	}

	s.log.Info("用户修改密码", zap.Uint("user_id", userID))
	return nil
}

// GetUserStats 获取用户对局统计
func (s *userService) GetUserStats(ctx context.Context, userID uint) (*UserStats, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	stats := &UserStats{
		GamesPlayed: user.GamesPlayed,
		GamesWon:    user.GamesWon,
		BestScore:   user.BestScore,
		LastLoginAt: user.LastLoginAt,
	}
	if user.GamesPlayed > 0 {
		stats.WinRate = float64(user.GamesWon) / float64(user.GamesPlayed)
	}

	return stats, nil
}

// GetGameHistory 获取用户历史对局结果
func (s *userService) GetGameHistory(ctx context.Context, userID uint, page, pageSize int) ([]*models.GameResult, int64, error) {
	p := repository.NewPagination(page, pageSize)
	results, err := s.resultRepo.FindByUserID(ctx, userID, p)
	if err != nil {
		return nil, 0, err
	}
	return results, p.Total, nil
}

// GetLeaderboard 按最高得分获取排行榜
func (s *userService) GetLeaderboard(ctx context.Context, limit int) ([]*models.GameResult, error) {
	return s.resultRepo.TopScores(ctx, limit)
}
