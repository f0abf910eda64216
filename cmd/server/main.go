package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/hodl-up/internal/api"
	"github.com/wfunc/hodl-up/internal/config"
	"github.com/wfunc/hodl-up/internal/database"
	"github.com/wfunc/hodl-up/internal/errors"
	"github.com/wfunc/hodl-up/internal/game"
	"github.com/wfunc/hodl-up/internal/logger"
	"github.com/wfunc/hodl-up/internal/service"
	"go.uber.org/zap"
)

// 版本信息
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Server 服务器实例
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	router     *api.Router
	httpServer *http.Server

	// 关闭控制
	shutdownCh chan struct{}
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

func main() {
	// 命令行参数
	var (
		configPath  = flag.String("config", "", "配置文件路径")
		showVersion = flag.Bool("version", false, "显示版本信息")
		showHelp    = flag.Bool("help", false, "显示帮助信息")
	)

	flag.Parse()

	// 显示版本信息
	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	// 显示帮助信息
	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	// 加载配置
	if err := config.Init(*configPath); err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Get()

	// 初始化日志系统
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}

	// 打印启动信息
	printStartInfo(cfg)

	// 创建服务器实例
	server := NewServer(cfg)

	// 启动服务器
	if err := server.Start(); err != nil {
		logger.Fatal("服务器启动失败", zap.Error(err))
	}

	// 等待退出信号
	server.WaitForShutdown()

	// 优雅关闭
	if err := server.Shutdown(); err != nil {
		logger.Error("服务器关闭失败", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("服务器已安全关闭")
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		cfg:        cfg,
		logger:     logger.GetLogger(),
		shutdownCh: make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start 启动服务器
func (s *Server) Start() error {
	s.logger.Info("正在启动HODL UP游戏服务器...",
		zap.String("version", Version),
		zap.String("mode", s.cfg.Server.Mode),
	)

	// 初始化各个组件
	if err := s.initComponents(); err != nil {
		return errors.Wrap(err, errors.ErrUnknown, "初始化组件失败")
	}

	// 启动各个服务
	if err := s.startServices(); err != nil {
		return errors.Wrap(err, errors.ErrUnknown, "启动服务失败")
	}

	// 监听配置变化
	config.Watch(func(newCfg *config.Config) {
		s.logger.Info("配置已更新，正在重新加载...")
		s.reloadConfig(newCfg)
	})

	s.logger.Info("服务器启动成功",
		zap.String("http", fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)),
	)

	return nil
}

// initComponents 初始化组件
func (s *Server) initComponents() error {
	s.logger.Info("初始化组件...")

	// 初始化数据库
	if err := s.initDatabase(); err != nil {
		return err
	}

	// 初始化路由器（内部完成服务、会话管理器和WebSocket中继的装配）
	if err := s.initRouter(); err != nil {
		return err
	}

	s.logger.Info("所有组件初始化完成")
	return nil
}

// initDatabase 初始化数据库
func (s *Server) initDatabase() error {
	s.logger.Info("初始化数据库...")

	// 初始化数据库连接
	if err := database.Init(&s.cfg.Database); err != nil {
		return errors.Wrap(err, errors.ErrDatabaseConnect, "初始化数据库连接失败")
	}

	// 自动迁移数据库
	if s.cfg.Database.AutoMigrate {
		s.logger.Info("执行数据库自动迁移...")
		if err := database.AutoMigrate(); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseConnect, "数据库迁移失败")
		}
	}

	// 检查数据库连接
	if !database.IsConnected() {
		return errors.New(errors.ErrDatabaseConnect, "数据库连接检查失败")
	}

	s.logger.Info("数据库初始化完成")
	return nil
}

// initRouter 初始化API路由器
func (s *Server) initRouter() error {
	if s.cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	rules := rulesFromConfig(&s.cfg.Game.Rules)

	s.router = api.NewRouter(database.GetDB(), &api.RouterConfig{
		Service: &service.Config{
			JWTSecret:          s.cfg.Security.JWT.Secret,
			AccessTokenExpiry:  time.Duration(s.cfg.Security.JWT.ExpireHours) * time.Hour,
			RefreshTokenExpiry: time.Duration(s.cfg.Security.JWT.RefreshHours) * time.Hour,
		},
		Rules:          &rules,
		SessionTimeout: s.cfg.Game.Session.SessionTimeout,
		MaxSessions:    s.cfg.Game.Session.MaxSessions,
	}, s.logger)

	// 定期清理不活跃会话
	s.router.SessionManager().StartCleanupTask(s.ctx, s.cfg.Game.Session.CleanupInterval)

	return nil
}

// rulesFromConfig 把配置转换为引擎规则
func rulesFromConfig(rc *config.RulesConfig) game.Rules {
	rules := game.DefaultRules()
	if rc.FirstBlock > 0 {
		rules.FirstBlock = rc.FirstBlock
	}
	if rc.LastBlock > 0 {
		rules.LastBlock = rc.LastBlock
	}
	if rc.MaxRounds > 0 {
		rules.MaxRounds = rc.MaxRounds
	}
	if rc.TotalMiningRigs > 0 {
		rules.TotalMiningRigs = rc.TotalMiningRigs
	}
	if rc.StartingRigs > 0 {
		rules.StartingRigs = rc.StartingRigs
	}
	if rc.MiningRigCost > 0 {
		rules.MiningRigCost = rc.MiningRigCost
	}
	if rc.BlockTokens > 0 {
		rules.BlockTokens = rc.BlockTokens
	}
	if rc.MaxColdStorageMove > 0 {
		rules.MaxColdStorageMove = rc.MaxColdStorageMove
	}
	if rc.AdjustInterval > 0 {
		rules.AdjustInterval = rc.AdjustInterval
	}
	if rc.SuccessRateHigh > 0 {
		rules.SuccessRateHigh = rc.SuccessRateHigh
	}
	if rc.SuccessRateLow > 0 {
		rules.SuccessRateLow = rc.SuccessRateLow
	}
	return rules
}

// startServices 启动服务
func (s *Server) startServices() error {
	s.logger.Info("启动服务...")

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:      s.router.GetEngine(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.logger.Info("HTTP服务器监听中", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP服务器异常退出", zap.Error(err))
		}
	}()

	s.logger.Info("所有服务启动完成")
	return nil
}

// WaitForShutdown 等待关闭信号
func (s *Server) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)

	signal.Notify(sigCh,
		syscall.SIGINT,  // Ctrl+C
		syscall.SIGTERM, // kill命令
		syscall.SIGQUIT, // Ctrl+\
	)

	sig := <-sigCh
	s.logger.Info("收到退出信号", zap.String("signal", sig.String()))

	close(s.shutdownCh)
}

// Shutdown 优雅关闭服务器
func (s *Server) Shutdown() error {
	s.logger.Info("正在优雅关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	// 停止接收新请求
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("HTTP服务器关闭异常", zap.Error(err))
		}
	}

	// 取消主上下文，触发后台任务退出
	s.cancel()

	// 等待所有服务关闭
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("所有服务已正常关闭")
	case <-shutdownCtx.Done():
		s.logger.Warn("关闭超时，强制退出")
		return errors.New(errors.ErrTimeout, "关闭超时")
	}

	// 关闭各个组件
	if err := s.closeComponents(); err != nil {
		s.logger.Error("关闭组件失败", zap.Error(err))
		return err
	}

	// 同步日志
	if err := logger.Sync(); err != nil {
		fmt.Printf("同步日志失败: %v\n", err)
	}

	return nil
}

// closeComponents 关闭组件
func (s *Server) closeComponents() error {
	s.logger.Info("关闭组件...")

	// 关闭数据库连接
	if err := database.Close(); err != nil {
		s.logger.Error("关闭数据库失败", zap.Error(err))
	}

	s.logger.Info("所有组件已关闭")
	return nil
}

// reloadConfig 重新加载配置
func (s *Server) reloadConfig(newCfg *config.Config) {
	s.cfg = newCfg

	// 规则和端口等核心配置需要重启才能生效，这里只替换引用
	s.logger.Info("配置重新加载完成")
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("HODL UP 游戏服务器\n")
	fmt.Printf("版本: %s\n", Version)
	fmt.Printf("构建时间: %s\n", BuildTime)
	fmt.Printf("Git提交: %s\n", GitCommit)
	fmt.Printf("Go版本: %s\n", runtime.Version())
	fmt.Printf("操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// printHelp 打印帮助信息
func printHelp() {
	fmt.Println("HODL UP 游戏服务器")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  hodl-up-server [选项]")
	fmt.Println()
	fmt.Println("选项:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("环境变量:")
	fmt.Println("  HODL_UP_SERVER_MODE    运行模式 (development/production)")
	fmt.Println("  HODL_UP_SERVER_PORT    监听端口")
	fmt.Println()
	fmt.Println("示例:")
	fmt.Println("  hodl-up-server -config=/path/to/config.yaml")
	fmt.Println("  hodl-up-server -version")
}

// printStartInfo 打印启动信息
func printStartInfo(cfg *config.Config) {
	banner := `
╔═══════════════════════════════════════════════════╗
║                                                   ║
║     _   _  ___  ____  _       _   _ ____  _       ║
║    | | | |/ _ \|  _ \| |     | | | |  _ \| |      ║
║    | |_| | | | | | | | |     | | | | |_) | |      ║
║    |  _  | |_| | |_| | |___  | |_| |  __/|_|      ║
║    |_| |_|\___/|____/|_____|  \___/|_|   (_)      ║
║                                                   ║
║            比特币挖矿桌游后端服务器               ║
║                                                   ║
╚═══════════════════════════════════════════════════╝
`
	fmt.Println(banner)
	fmt.Printf("版本: %s | 模式: %s | PID: %d\n", Version, cfg.Server.Mode, os.Getpid())
	fmt.Println("═══════════════════════════════════════════════════════")
}
