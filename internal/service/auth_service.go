package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/wfunc/hodl-up/internal/models"
	"github.com/wfunc/hodl-up/internal/repository"
	"github.com/wfunc/hodl-up/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrUserExists         = errors.New("用户已存在")
	ErrUserNotFound       = errors.New("用户不存在")
	ErrUserBanned         = errors.New("用户已被封禁")
	ErrAccountLocked      = errors.New("账号已锁定，请稍后再试")
	ErrInvalidToken       = errors.New("无效的令牌")
)

const (
	maxLoginAttempts = 5
	lockDuration     = 15 * time.Minute
)

// authService 认证服务实现
type authService struct {
	db         *gorm.DB
	userRepo   repository.UserRepository
	authRepo   repository.UserAuthRepository
	jwtManager *utils.JWTManager
	log        *zap.Logger
}

// NewAuthService 创建认证服务
func NewAuthService(
	db *gorm.DB,
	userRepo repository.UserRepository,
	authRepo repository.UserAuthRepository,
	jwtManager *utils.JWTManager,
	log *zap.Logger,
) AuthService {
	return &authService{
		db:         db,
		userRepo:   userRepo,
		authRepo:   authRepo,
		jwtManager: jwtManager,
		log:        log,
	}
}

// Register 用户注册
func (s *authService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	if err := s.validateRegisterRequest(req); err != nil {
		return nil, err
	}

	if user, _ := s.userRepo.FindByUsername(ctx, req.Username); user != nil {
		return nil, fmt.Errorf("用户名已存在")
	}
	if user, _ := s.userRepo.FindByEmail(ctx, req.Email); user != nil {
		return nil, fmt.Errorf("邮箱已被使用")
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("密码加密失败: %w", err)
	}

	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		Nickname: req.Nickname,
		Avatar:   req.Avatar,
		Status:   "active",
	}

	// 用户和认证信息在同一事务中创建
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("创建用户失败: %w", err)
		}

		auth := &models.UserAuth{
			UserID:   user.ID,
			Password: hashedPassword,
		}
		if err := tx.Create(auth).Error; err != nil {
			return fmt.Errorf("创建认证信息失败: %w", err)
		}
		return nil
	})
	if err != nil {
		s.log.Error("注册失败", zap.String("username", req.Username), zap.Error(err))
		return nil, err
	}

	resp, err := s.buildAuthResponse(user)
	if err != nil {
		return nil, err
	}

	s.log.Info("用户注册成功",
		zap.Uint("user_id", user.ID),
		zap.String("username", user.Username))

	return resp, nil
}

// Login 用户登录（支持用户名或邮箱）
func (s *authService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	var user *models.User
	var err error

	if strings.Contains(req.Account, "@") {
		user, err = s.userRepo.FindByEmail(ctx, req.Account)
	} else {
		user, err = s.userRepo.FindByUsername(ctx, req.Account)
	}

	if err != nil || user == nil {
		s.log.Warn("登录失败：用户不存在", zap.String("account", req.Account))
		return nil, ErrInvalidCredentials
	}

	if user.Status == "banned" {
		return nil, ErrUserBanned
	}
	if !user.CanLogin() {
		return nil, ErrAccountLocked
	}

	auth, err := s.authRepo.FindByUserID(ctx, user.ID)
	if err != nil {
		s.log.Error("获取认证信息失败", zap.Uint("user_id", user.ID), zap.Error(err))
		return nil, ErrInvalidCredentials
	}

	if auth.LockedUntil != nil && auth.LockedUntil.After(time.Now()) {
		return nil, ErrAccountLocked
	}

	valid, err := utils.VerifyPassword(req.Password, auth.Password)
	if err != nil || !valid {
		s.handleFailedLogin(ctx, user.ID, auth.LoginAttempts)
		return nil, ErrInvalidCredentials
	}

	_ = s.authRepo.ResetLoginAttempts(ctx, user.ID)
	_ = s.userRepo.UpdateLastLogin(ctx, user.ID, req.IP)
	user.UpdateLoginInfo(req.IP)

	resp, err := s.buildAuthResponse(user)
	if err != nil {
		return nil, err
	}

	s.log.Info("用户登录成功",
		zap.Uint("user_id", user.ID),
		zap.String("username", user.Username))

	return resp, nil
}

// handleFailedLogin 记录失败次数，达到阈值锁定账号
func (s *authService) handleFailedLogin(ctx context.Context, userID uint, attempts int) {
	attempts++
	_ = s.authRepo.UpdateLoginAttempts(ctx, userID, attempts)

	if attempts >= maxLoginAttempts {
		until := time.Now().Add(lockDuration)
		_ = s.authRepo.LockAccount(ctx, userID, until)
		s.log.Warn("账号已锁定",
			zap.Uint("user_id", userID),
			zap.Int("attempts", attempts),
			zap.Time("until", until))
	}
}

// Logout 用户登出
// 令牌无状态，登出只做审计记录，客户端丢弃令牌即可
func (s *authService) Logout(ctx context.Context, userID uint) error {
	s.log.Info("用户登出", zap.Uint("user_id", userID))
	return nil
}

// RefreshToken 刷新令牌
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	claims, err := s.jwtManager.ValidateToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if claims.TokenType != "refresh" {
		return nil, errors.New("不是刷新令牌")
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	if !user.IsActive() {
		return nil, ErrUserBanned
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("生成访问令牌失败: %w", err)
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtManager.GetTokenExpiry("access").Seconds()),
		TokenType:    "Bearer",
	}, nil
}

// ValidateToken 验证访问令牌
func (s *authService) ValidateToken(ctx context.Context, token string) (*TokenClaims, error) {
	claims, err := s.jwtManager.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	if claims.TokenType != "access" {
		return nil, ErrInvalidToken
	}

	return &TokenClaims{
		UserID:    claims.UserID,
		Username:  claims.Username,
		IssuedAt:  claims.IssuedAt.Unix(),
		ExpiresAt: claims.ExpiresAt.Unix(),
	}, nil
}

// buildAuthResponse 为用户签发一对令牌
func (s *authService) buildAuthResponse(user *models.User) (*AuthResponse, error) {
	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("生成访问令牌失败: %w", err)
	}

	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("生成刷新令牌失败: %w", err)
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtManager.GetTokenExpiry("access").Seconds()),
		TokenType:    "Bearer",
	}, nil
}

// validateRegisterRequest 验证注册请求
func (s *authService) validateRegisterRequest(req *RegisterRequest) error {
	if len(req.Username) < 3 || len(req.Username) > 20 {
		return errors.New("用户名长度必须在3-20个字符之间")
	}
	if !regexp.MustCompile(`^[a-zA-Z0-9_]+$`).MatchString(req.Username) {
		return errors.New("用户名只能包含字母、数字和下划线")
	}

	if !regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`).MatchString(req.Email) {
		return errors.New("邮箱格式不正确")
	}

	if len(req.Password) < 6 {
		return errors.New("密码长度至少6个字符")
	}
	if req.Password != req.ConfirmPassword {
		return errors.New("两次输入的密码不一致")
	}

	return nil
}
