package service

import (
	"context"
	"time"

	"github.com/wfunc/hodl-up/internal/models"
)

// AuthService 认证服务接口
type AuthService interface {
	Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error)
	Logout(ctx context.Context, userID uint) error
	RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error)
	ValidateToken(ctx context.Context, token string) (*TokenClaims, error)
}

// UserService 用户服务接口
type UserService interface {
	GetUserByID(ctx context.Context, userID uint) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID uint, profile *UserProfile) error
	UpdatePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error
	GetUserStats(ctx context.Context, userID uint) (*UserStats, error)
	GetGameHistory(ctx context.Context, userID uint, page, pageSize int) ([]*models.GameResult, int64, error)
	GetLeaderboard(ctx context.Context, limit int) ([]*models.GameResult, error)
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username        string `json:"username" binding:"required,min=3,max=20"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=Password"`
	Nickname        string `json:"nickname"`
	Avatar          string `json:"avatar"`
	IP              string `json:"-"` // 客户端IP，由handler设置
}

// LoginRequest 登录请求
type LoginRequest struct {
	Account  string `json:"account" binding:"required"` // 用户名或邮箱
	Password string `json:"password" binding:"required"`
	IP       string `json:"-"`
}

// AuthResponse 认证响应
type AuthResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
	TokenType    string       `json:"token_type"`
}

// TokenClaims 令牌载荷
type TokenClaims struct {
	UserID    uint   `json:"user_id"`
	Username  string `json:"username"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// UserProfile 用户资料
type UserProfile struct {
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
}

// UserStats 用户对局统计
type UserStats struct {
	GamesPlayed int        `json:"games_played"`
	GamesWon    int        `json:"games_won"`
	BestScore   int        `json:"best_score"`
	WinRate     float64    `json:"win_rate"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}
