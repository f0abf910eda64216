package game

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wfunc/hodl-up/internal/errors"
	"github.com/wfunc/hodl-up/internal/models"
	"github.com/wfunc/hodl-up/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SessionManager 对局会话管理器
type SessionManager struct {
	mu              sync.RWMutex
	sessions        map[string]*Session
	logger          *zap.Logger
	persister       StatePersister
	sessionRepo     repository.GameSessionRepository
	resultRepo      repository.GameResultRepository
	recoveryManager *RecoveryManager
	rules           Rules
	sessionTimeout  time.Duration
	maxSessions     int
}

// Session 一局进行中的对局
type Session struct {
	SessionID    string
	HostUserID   uint
	Engine       *Engine
	State        *GameState
	Seed         int64
	StartTime    time.Time
	LastActivity time.Time
	ActionCount  int
	mu           sync.RWMutex
}

// SessionConfig 会话管理器配置
type SessionConfig struct {
	Logger         *zap.Logger
	DB             *gorm.DB
	Rules          *Rules
	SessionTimeout time.Duration
	MaxSessions    int
}

// NewSessionManager 创建会话管理器
func NewSessionManager(config *SessionConfig) *SessionManager {
	rules := DefaultRules()
	if config.Rules != nil {
		rules = *config.Rules
	}

	// 内存做缓存层，数据库做存储层
	persister := NewCacheStatePersister(
		NewMemoryStatePersister(),
		NewDatabaseStatePersister(config.DB),
	)
	recoveryManager := NewRecoveryManager(config.Logger, persister, rules, config.SessionTimeout)

	return &SessionManager{
		sessions:        make(map[string]*Session),
		logger:          config.Logger,
		persister:       persister,
		sessionRepo:     repository.NewGameSessionRepository(config.DB),
		resultRepo:      repository.NewGameResultRepository(config.DB),
		recoveryManager: recoveryManager,
		rules:           rules,
		sessionTimeout:  config.SessionTimeout,
		maxSessions:     config.MaxSessions,
	}
}

// CreateSession 创建新会话并初始化一局游戏
func (sm *SessionManager) CreateSession(ctx context.Context, sessionID string, hostUserID uint, playerNames []string, seed int64) (*Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.maxSessions > 0 && len(sm.sessions) >= sm.maxSessions {
		return nil, errors.New(errors.ErrSessionLimit)
	}

	if _, exists := sm.sessions[sessionID]; exists {
		return nil, errors.Newf(errors.ErrSessionExists, "session_id=%s", sessionID)
	}

	engine := NewEngine(sm.rules, seed, sm.logger)
	state, err := engine.InitializeGame(playerNames)
	if err != nil {
		return nil, err
	}
	state.GameID = sessionID

	now := time.Now()
	session := &Session{
		SessionID:    sessionID,
		HostUserID:   hostUserID,
		Engine:       engine,
		State:        state,
		Seed:         seed,
		StartTime:    now,
		LastActivity: now,
	}

	record := &models.GameSession{
		SessionID:    sessionID,
		HostUserID:   hostUserID,
		Status:       "playing",
		PlayerCount:  len(playerNames),
		Seed:         seed,
		CurrentRound: state.Round,
		CurrentBlock: state.CurrentBlock,
		StartedAt:    now,
	}
	if err := sm.sessionRepo.Create(ctx, record); err != nil {
		sm.logger.Error("创建会话记录失败",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return nil, err
	}

	if err := sm.persister.Save(ctx, sessionID, session.toData()); err != nil {
		sm.logger.Error("保存初始会话状态失败",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}

	sm.sessions[sessionID] = session

	sm.logger.Info("创建对局会话",
		zap.String("session_id", sessionID),
		zap.Uint("host_user_id", hostUserID),
		zap.Int("players", len(playerNames)),
		zap.Int64("seed", seed))

	return session, nil
}

// GetSession 获取会话
func (sm *SessionManager) GetSession(sessionID string) (*Session, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, exists := sm.sessions[sessionID]
	if !exists {
		return nil, errors.Newf(errors.ErrSessionNotFound, "session_id=%s", sessionID)
	}

	session.UpdateActivity()

	return session, nil
}

// RecoverOrGetSession 从内存获取会话，未命中时尝试从快照恢复
func (sm *SessionManager) RecoverOrGetSession(ctx context.Context, sessionID string) (*Session, error) {
	if session, err := sm.GetSession(sessionID); err == nil {
		return session, nil
	}

	session, err := sm.recoveryManager.RecoverSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sm.mu.Lock()
	sm.sessions[sessionID] = session
	sm.mu.Unlock()

	sm.logger.Info("恢复对局会话",
		zap.String("session_id", sessionID),
		zap.Int("round", session.State.Round),
		zap.Int("current_block", session.State.CurrentBlock))

	return session, nil
}

// ExecuteAction 在会话上执行玩家动作并持久化快照
// 返回的是状态的深拷贝，调用方（HTTP响应、广播）在锁外
// 序列化它不会和后续动作竞争
func (sm *SessionManager) ExecuteAction(ctx context.Context, sessionID string, action PlayAction) (*GameState, error) {
	session, err := sm.GetSession(sessionID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if err := session.Engine.ExecutePlayAction(session.State, &action); err != nil {
		return nil, err
	}

	session.ActionCount++
	session.LastActivity = time.Now()

	if err := sm.persister.Save(ctx, sessionID, session.toDataLocked()); err != nil {
		sm.logger.Error("保存会话快照失败",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}

	updates := map[string]interface{}{
		"current_round": session.State.Round,
		"current_block": session.State.CurrentBlock,
	}
	if err := sm.sessionRepo.UpdateBySessionID(ctx, sessionID, updates); err != nil {
		sm.logger.Error("更新会话进度失败",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}

	if session.State.GameStatus == StatusFinished {
		if err := sm.finishSessionLocked(ctx, session); err != nil {
			sm.logger.Error("结算会话失败",
				zap.String("session_id", sessionID),
				zap.Error(err))
		}
	}

	return session.State.Clone(), nil
}

// finishSessionLocked 对局结束后写入结果并关闭会话记录
// 调用方必须持有 session.mu
func (sm *SessionManager) finishSessionLocked(ctx context.Context, session *Session) error {
	scores := session.Engine.CalculateFinalScores(session.State)
	sort.Slice(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})

	now := time.Now()
	results := make([]*models.GameResult, 0, len(scores))
	for i, entry := range scores {
		player := session.State.GetPlayer(entry.PlayerID)
		if player == nil {
			continue
		}
		wallet := session.State.GetWallet(player.WalletColor)

		result := &models.GameResult{
			SessionID:   session.SessionID,
			UserID:      session.HostUserID,
			PlayerID:    player.ID,
			PlayerName:  player.Name,
			WalletColor: string(player.WalletColor),
			Score:       entry.Score,
			Rank:        i + 1,
			IsWinner:    i == 0,
			FinishedAt:  now,
		}
		if wallet != nil {
			result.HotStorage = wallet.HotStorage
			result.ColdStorage = wallet.ColdStorage
			result.MiningRigs = wallet.MiningRigs
		}
		results = append(results, result)
	}

	if err := sm.resultRepo.BatchCreate(ctx, results); err != nil {
		return err
	}

	if err := sm.sessionRepo.EndSession(ctx, session.SessionID, "finished"); err != nil {
		return err
	}

	sm.logger.Info("对局结束",
		zap.String("session_id", session.SessionID),
		zap.Int("rounds", session.State.Round),
		zap.Int("actions", session.ActionCount),
		zap.Int("players", len(results)))

	return nil
}

// RemoveSession 移除会话并保存最终快照
func (sm *SessionManager) RemoveSession(ctx context.Context, sessionID string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, exists := sm.sessions[sessionID]
	if !exists {
		return errors.Newf(errors.ErrSessionNotFound, "session_id=%s", sessionID)
	}

	if err := sm.persister.Save(ctx, sessionID, session.toData()); err != nil {
		sm.logger.Error("保存会话状态失败",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}

	delete(sm.sessions, sessionID)

	sm.logger.Info("移除对局会话",
		zap.String("session_id", sessionID),
		zap.Int("actions", session.ActionCount))

	return nil
}

// CleanupInactiveSessions 清理不活跃的会话
func (sm *SessionManager) CleanupInactiveSessions(ctx context.Context) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := time.Now()
	var toRemove []string

	for sessionID, session := range sm.sessions {
		if now.Sub(session.LastActivity) > sm.sessionTimeout {
			toRemove = append(toRemove, sessionID)
		}
	}

	for _, sessionID := range toRemove {
		session := sm.sessions[sessionID]

		if err := sm.persister.Save(ctx, sessionID, session.toData()); err != nil {
			sm.logger.Error("保存超时会话状态失败",
				zap.String("session_id", sessionID),
				zap.Error(err))
		}

		if err := sm.sessionRepo.UpdateBySessionID(ctx, sessionID, map[string]interface{}{
			"status": "paused",
		}); err != nil {
			sm.logger.Error("标记超时会话失败",
				zap.String("session_id", sessionID),
				zap.Error(err))
		}

		delete(sm.sessions, sessionID)

		sm.logger.Info("清理超时会话",
			zap.String("session_id", sessionID),
			zap.Duration("inactive", now.Sub(session.LastActivity)))
	}
}

// StartCleanupTask 启动定期清理任务
func (sm *SessionManager) StartCleanupTask(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				sm.logger.Info("停止会话清理任务")
				return
			case <-ticker.C:
				sm.CleanupInactiveSessions(ctx)
			}
		}
	}()
}

// ActiveSessionCount 活跃会话数
func (sm *SessionManager) ActiveSessionCount() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// GetSessionStats 会话统计
func (sm *SessionManager) GetSessionStats(sessionID string) (map[string]interface{}, error) {
	session, err := sm.GetSession(sessionID)
	if err != nil {
		return nil, err
	}

	session.mu.RLock()
	defer session.mu.RUnlock()

	stats := map[string]interface{}{
		"session_id":    session.SessionID,
		"host_user_id":  session.HostUserID,
		"status":        session.State.GameStatus,
		"round":         session.State.Round,
		"current_block": session.State.CurrentBlock,
		"difficulty":    session.State.Difficulty,
		"players":       len(session.State.Players),
		"start_time":    session.StartTime,
		"duration":      time.Since(session.StartTime).Seconds(),
		"action_count":  session.ActionCount,
	}

	return stats, nil
}

// UpdateActivity 更新活动时间
func (s *Session) UpdateActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastActivity = time.Now()
}

// AvailableActions 在会话锁保护下查询玩家当前可执行的动作
func (s *Session) AvailableActions(playerID string) []PlayOption {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Engine.GetAvailableActions(s.State, playerID)
}

// FinalScores 在会话锁保护下结算当前得分
func (s *Session) FinalScores() []ScoreEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Engine.CalculateFinalScores(s.State)
}

// Snapshot 返回当前游戏状态的只读快照数据
func (s *Session) Snapshot() *SessionData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.toDataLocked()
}

func (s *Session) toData() *SessionData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.toDataLocked()
}

// toDataLocked 组装快照数据，调用方必须持有 s.mu
// 状态做深拷贝，快照交出去之后和会话内的后续修改互不影响
func (s *Session) toDataLocked() *SessionData {
	return &SessionData{
		SessionID:   s.SessionID,
		HostUserID:  s.HostUserID,
		Seed:        s.Seed,
		ActionCount: s.ActionCount,
		State:       s.State.Clone(),
		LastUpdate:  s.LastActivity,
	}
}
