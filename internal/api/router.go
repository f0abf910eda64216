package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/hodl-up/internal/game"
	"github.com/wfunc/hodl-up/internal/middleware"
	"github.com/wfunc/hodl-up/internal/service"
	ws "github.com/wfunc/hodl-up/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Router API路由器
type Router struct {
	engine         *gin.Engine
	db             *gorm.DB
	services       *service.Services
	sessionManager *game.SessionManager
	hub            *ws.Hub
	authHandler    *AuthHandler
	gameHandler    *GameHandler
	wsHandler      *WebSocketHandler
	authMiddleware *middleware.AuthMiddleware
	log            *zap.Logger
}

// RouterConfig 路由器配置
type RouterConfig struct {
	Service        *service.Config
	Rules          *game.Rules
	SessionTimeout time.Duration
	MaxSessions    int
}

// NewRouter 创建路由器
func NewRouter(db *gorm.DB, config *RouterConfig, log *zap.Logger) *Router {
	if config == nil {
		config = &RouterConfig{}
	}
	if config.Service == nil {
		config.Service = service.DefaultConfig()
	}
	if config.SessionTimeout <= 0 {
		config.SessionTimeout = 30 * time.Minute
	}
	if config.MaxSessions <= 0 {
		config.MaxSessions = 200
	}

	// 创建Gin引擎
	engine := gin.New()

	// 全局中间件
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())

	// 创建服务
	services := service.NewServices(db, config.Service, log)

	// 会话管理器和WebSocket中继
	sessionManager := game.NewSessionManager(&game.SessionConfig{
		Logger:         log,
		DB:             db,
		Rules:          config.Rules,
		SessionTimeout: config.SessionTimeout,
		MaxSessions:    config.MaxSessions,
	})
	hub := ws.NewHub(log)
	hub.SetMessageHandler(ws.NewGameMessageHandler(hub, sessionManager, log))
	go hub.Run()

	// 创建处理器
	authHandler := NewAuthHandler(services.Auth, services.User)
	gameHandler := NewGameHandler(sessionManager, services.User, config.Rules, log)
	wsHandler := NewWebSocketHandler(hub, log)

	// 创建中间件
	authMiddleware := middleware.NewAuthMiddleware(services.Auth)

	router := &Router{
		engine:         engine,
		db:             db,
		services:       services,
		sessionManager: sessionManager,
		hub:            hub,
		authHandler:    authHandler,
		gameHandler:    gameHandler,
		wsHandler:      wsHandler,
		authMiddleware: authMiddleware,
		log:            log,
	}

	// 设置路由
	router.setupRoutes()

	return router
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	// 健康检查
	r.engine.GET("/health", r.healthCheck)

	// API v1路由组
	v1 := r.engine.Group("/api/v1")
	{
		// 认证相关路由（不需要认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/register", r.authHandler.Register)
			auth.POST("/login", r.authHandler.Login)
			auth.POST("/refresh", r.authHandler.RefreshToken)

			// 需要认证的路由
			authRequired := auth.Group("")
			authRequired.Use(r.authMiddleware.RequireAuth())
			{
				authRequired.POST("/logout", r.authHandler.Logout)
				authRequired.GET("/profile", r.authHandler.GetProfile)
				authRequired.PUT("/profile", r.authHandler.UpdateProfile)
				authRequired.PUT("/password", r.authHandler.UpdatePassword)
			}
		}

		// 对局相关路由（需要认证）
		games := v1.Group("/games")
		games.Use(r.authMiddleware.RequireAuth())
		{
			games.POST("", r.gameHandler.CreateGame)
			games.GET("/:id", r.gameHandler.GetGameState)
			games.POST("/:id/actions", r.gameHandler.ExecuteAction)
			games.GET("/:id/actions", r.gameHandler.GetAvailableActions)
			games.GET("/:id/scores", r.gameHandler.GetScores)
			games.GET("/:id/stats", r.gameHandler.GetSessionStats)
			games.DELETE("/:id", r.gameHandler.DeleteGame)
		}

		// 战绩与排行榜
		v1.GET("/leaderboard", r.gameHandler.GetLeaderboard)
		history := v1.Group("/users/me")
		history.Use(r.authMiddleware.RequireAuth())
		{
			history.GET("/games", r.gameHandler.GetGameHistory)
		}

		// 牌库参考（不需要认证，客户端用于渲染）
		v1.GET("/deck/reference", r.gameHandler.GetDeckReference)

		// 在线统计
		v1.GET("/online", r.wsHandler.GetOnlineCount)
	}

	// WebSocket路由（允许匿名，加入对局时再校验）
	wsGroup := r.engine.Group("/ws")
	wsGroup.Use(r.authMiddleware.OptionalAuth())
	{
		wsGroup.GET("/game", r.wsHandler.GameWebSocket)
	}

	// Swagger文档（-tags swagger 时启用）
	registerSwaggerRoutes(r.engine)

	// 404处理
	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{
			"code":    "NOT_FOUND",
			"message": "接口不存在",
		})
	})
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	// 检查数据库连接
	sqlDB, err := r.db.DB()
	if err != nil {
		c.JSON(500, gin.H{
			"status":  "unhealthy",
			"message": "数据库连接失败",
		})
		return
	}

	if err := sqlDB.Ping(); err != nil {
		c.JSON(500, gin.H{
			"status":  "unhealthy",
			"message": "数据库ping失败",
		})
		return
	}

	c.JSON(200, gin.H{
		"status":   "healthy",
		"message":  "服务运行正常",
		"sessions": r.sessionManager.ActiveSessionCount(),
	})
}

// Run 运行服务器
func (r *Router) Run(addr string) error {
	r.log.Info("Starting API server", zap.String("address", addr))
	return r.engine.Run(addr)
}

// GetEngine 获取Gin引擎（用于测试）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

// SessionManager 获取会话管理器（用于后台任务）
func (r *Router) SessionManager() *game.SessionManager {
	return r.sessionManager
}
