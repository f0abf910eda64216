package game

import (
	"context"
	"time"

	"github.com/wfunc/hodl-up/internal/errors"
	"go.uber.org/zap"
)

// RecoveryManager 对局恢复管理器
type RecoveryManager struct {
	logger    *zap.Logger
	persister StatePersister
	rules     Rules
	timeout   time.Duration
}

// NewRecoveryManager 创建恢复管理器
func NewRecoveryManager(logger *zap.Logger, persister StatePersister, rules Rules, timeout time.Duration) *RecoveryManager {
	return &RecoveryManager{
		logger:    logger,
		persister: persister,
		rules:     rules,
		timeout:   timeout,
	}
}

// RecoverSession 从快照恢复对局会话
func (rm *RecoveryManager) RecoverSession(ctx context.Context, sessionID string) (*Session, error) {
	data, err := rm.persister.Load(ctx, sessionID)
	if err != nil {
		return nil, errors.Newf(errors.ErrSessionNotFound, "session_id=%s", sessionID)
	}

	// 快照过旧视为会话过期
	if rm.timeout > 0 && time.Since(data.LastUpdate) > rm.timeout {
		rm.logger.Warn("会话已超时",
			zap.String("session_id", sessionID),
			zap.Time("last_update", data.LastUpdate),
			zap.Duration("timeout", rm.timeout))

		if err := rm.persister.Delete(ctx, sessionID); err != nil {
			rm.logger.Error("删除超时会话失败", zap.Error(err))
		}

		return nil, errors.New(errors.ErrSessionExpired)
	}

	if data.State == nil {
		return nil, errors.Newf(errors.ErrSessionNotFound, "快照缺少游戏状态: %s", sessionID)
	}

	// 用原种子重建引擎，牌堆顺序本身已在快照中
	engine := NewEngine(rm.rules, data.Seed, rm.logger)

	session := &Session{
		SessionID:    sessionID,
		HostUserID:   data.HostUserID,
		Engine:       engine,
		State:        data.State,
		Seed:         data.Seed,
		StartTime:    data.LastUpdate,
		LastActivity: time.Now(),
		ActionCount:  data.ActionCount,
	}

	if err := rm.applyRecoveryStrategy(ctx, session); err != nil {
		return nil, err
	}

	rm.logger.Info("会话恢复成功",
		zap.String("session_id", sessionID),
		zap.String("status", string(data.State.GameStatus)),
		zap.Int("round", data.State.Round),
		zap.Int("current_block", data.State.CurrentBlock))

	return session, nil
}

// applyRecoveryStrategy 按游戏状态选择恢复策略
func (rm *RecoveryManager) applyRecoveryStrategy(ctx context.Context, session *Session) error {
	switch session.State.GameStatus {
	case StatusPlaying:
		return rm.recoverPlaying(ctx, session)
	case StatusFinished:
		return rm.recoverFinished(ctx, session)
	default:
		// 未开局的快照无法继续
		rm.logger.Warn("快照状态无法恢复",
			zap.String("session_id", session.SessionID),
			zap.String("status", string(session.State.GameStatus)))
		if err := rm.persister.Delete(ctx, session.SessionID); err != nil {
			rm.logger.Error("删除无效快照失败", zap.Error(err))
		}
		return errors.New(errors.ErrGameNotStarted)
	}
}

// recoverPlaying 恢复进行中的对局，修正轮到谁的指针
func (rm *RecoveryManager) recoverPlaying(ctx context.Context, session *Session) error {
	state := session.State

	current := state.GetPlayer(state.CurrentTurnPlayerID)
	if current != nil && current.IsActive {
		current.IsCurrentTurn = true
		return nil
	}

	// 当前回合玩家缺失或已离开，移交给第一个在线玩家。
	// 先清掉所有回合标记，快照里的旧标记不能留下第二个当前玩家
	for i := range state.Players {
		state.Players[i].IsCurrentTurn = false
	}
	for i := range state.Players {
		if state.Players[i].IsActive {
			rm.logger.Warn("回合玩家不可用，移交回合",
				zap.String("session_id", session.SessionID),
				zap.String("from", state.CurrentTurnPlayerID),
				zap.String("to", state.Players[i].ID))
			state.CurrentTurnPlayerID = state.Players[i].ID
			state.Players[i].IsCurrentTurn = true
			return nil
		}
	}

	return errors.New(errors.ErrNoActivePlayers)
}

// recoverFinished 已结束的对局不再恢复为活跃会话
func (rm *RecoveryManager) recoverFinished(ctx context.Context, session *Session) error {
	rm.logger.Info("对局已结束，不恢复会话",
		zap.String("session_id", session.SessionID))
	return errors.New(errors.ErrGameFinished)
}

// CleanupExpiredSnapshots 清理过期快照（定期任务）
func (rm *RecoveryManager) CleanupExpiredSnapshots(ctx context.Context, sessionIDs []string) {
	for _, sessionID := range sessionIDs {
		data, err := rm.persister.Load(ctx, sessionID)
		if err != nil {
			continue
		}
		if rm.timeout > 0 && time.Since(data.LastUpdate) > rm.timeout {
			if err := rm.persister.Delete(ctx, sessionID); err != nil {
				rm.logger.Error("删除过期快照失败",
					zap.String("session_id", sessionID),
					zap.Error(err))
			}
		}
	}
}
