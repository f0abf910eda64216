package service

import (
	"time"

	"github.com/wfunc/hodl-up/internal/repository"
	"github.com/wfunc/hodl-up/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Config 服务配置
type Config struct {
	JWTSecret          string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		JWTSecret:          "your-secret-key-change-in-production",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
	}
}

// Services 服务集合
type Services struct {
	Auth AuthService
	User UserService
}

// NewServices 创建服务集合
func NewServices(db *gorm.DB, config *Config, log *zap.Logger) *Services {
	userRepo := repository.NewUserRepository(db)
	authRepo := repository.NewUserAuthRepository(db)
	resultRepo := repository.NewGameResultRepository(db)

	jwtManager := utils.NewJWTManager(
		config.JWTSecret,
		config.AccessTokenExpiry,
		config.RefreshTokenExpiry,
	)

	return &Services{
		Auth: NewAuthService(db, userRepo, authRepo, jwtManager, log),
		User: NewUserService(db, userRepo, authRepo, resultRepo, log),
	}
}
