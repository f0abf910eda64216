package repository

import (
	"context"
	"time"

	"github.com/wfunc/hodl-up/internal/models"
	"gorm.io/gorm"
)

// UserRepository 用户仓储接口
type UserRepository interface {
	BaseRepository
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, userID uint, ip string) error
	RecordGameResult(ctx context.Context, userID uint, score int, won bool) error
}

// userRepo 用户仓储实现
type userRepo struct {
	*BaseRepo
}

// NewUserRepository 创建用户仓储
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepo{BaseRepo: NewBaseRepo(db)}
}

// Create 创建用户
func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// Update 更新用户
func (r *userRepo) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// FindByID 根据ID查找用户
func (r *userRepo) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByUsername 根据用户名查找用户
func (r *userRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("username = ?", username).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail 根据邮箱查找用户
func (r *userRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateLastLogin 更新最后登录信息
func (r *userRepo) UpdateLastLogin(ctx context.Context, userID uint, ip string) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"last_login_at": time.Now(),
			"last_login_ip": ip,
		}).Error
}

// RecordGameResult 累计用户战绩
func (r *userRepo) RecordGameResult(ctx context.Context, userID uint, score int, won bool) error {
	user, err := r.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	user.RecordGameResult(score, won)
	return r.db.WithContext(ctx).Save(user).Error
}

// UserAuthRepository 用户认证仓储接口
type UserAuthRepository interface {
	BaseRepository
	Create(ctx context.Context, auth *models.UserAuth) error
	FindByUserID(ctx context.Context, userID uint) (*models.UserAuth, error)
	UpdatePassword(ctx context.Context, userID uint, hashedPassword string) error
	UpdateLoginAttempts(ctx context.Context, userID uint, attempts int) error
	ResetLoginAttempts(ctx context.Context, userID uint) error
	LockAccount(ctx context.Context, userID uint, until time.Time) error
}

// userAuthRepo 用户认证仓储实现
type userAuthRepo struct {
	*BaseRepo
}

// NewUserAuthRepository 创建用户认证仓储
func NewUserAuthRepository(db *gorm.DB) UserAuthRepository {
	return &userAuthRepo{BaseRepo: NewBaseRepo(db)}
}

// Create 创建认证信息
func (r *userAuthRepo) Create(ctx context.Context, auth *models.UserAuth) error {
	return r.db.WithContext(ctx).Create(auth).Error
}

// FindByUserID 根据用户ID查找认证信息
func (r *userAuthRepo) FindByUserID(ctx context.Context, userID uint) (*models.UserAuth, error) {
	var auth models.UserAuth
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&auth).Error
	if err != nil {
		return nil, err
	}
	return &auth, nil
}

// UpdatePassword 更新密码
func (r *userAuthRepo) UpdatePassword(ctx context.Context, userID uint, hashedPassword string) error {
	return r.db.WithContext(ctx).
		Model(&models.UserAuth{}).
		Where("user_id = ?", userID).
		Update("password", hashedPassword).Error
}

// UpdateLoginAttempts 更新登录失败次数
func (r *userAuthRepo) UpdateLoginAttempts(ctx context.Context, userID uint, attempts int) error {
	return r.db.WithContext(ctx).
		Model(&models.UserAuth{}).
		Where("user_id = ?", userID).
		Update("login_attempts", attempts).Error
}

// ResetLoginAttempts 重置登录失败次数
func (r *userAuthRepo) ResetLoginAttempts(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.UserAuth{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"login_attempts": 0,
			"locked_until":   nil,
		}).Error
}

// LockAccount 锁定账户到指定时间
func (r *userAuthRepo) LockAccount(ctx context.Context, userID uint, until time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.UserAuth{}).
		Where("user_id = ?", userID).
		Update("locked_until", until).Error
}
