package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/hodl-up/internal/errors"
	"github.com/wfunc/hodl-up/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupSessionTestDB 设置会话层测试数据库
func setupSessionTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.UserAuth{},
		&models.GameSession{},
		&models.GameResult{},
		&models.GameStateSnapshot{},
	)
	require.NoError(t, err)

	return db
}

func newTestSessionManager(t *testing.T, db *gorm.DB) *SessionManager {
	return NewSessionManager(&SessionConfig{
		Logger:         zap.NewNop(),
		DB:             db,
		SessionTimeout: 30 * time.Minute,
		MaxSessions:    10,
	})
}

func TestSessionManager_CreateSession(t *testing.T) {
	db := setupSessionTestDB(t)
	sm := newTestSessionManager(t, db)
	ctx := context.Background()

	session, err := sm.CreateSession(ctx, "sess-001", 1, []string{"张三", "李四"}, 42)
	require.NoError(t, err)
	require.NotNil(t, session)

	assert.Equal(t, "sess-001", session.SessionID)
	assert.Equal(t, "sess-001", session.State.GameID)
	assert.Equal(t, StatusPlaying, session.State.GameStatus)
	assert.Len(t, session.State.Players, 2)
	assert.Equal(t, 1, sm.ActiveSessionCount())

	// 数据库会话记录
	var record models.GameSession
	err = db.Where("session_id = ?", "sess-001").First(&record).Error
	require.NoError(t, err)
	assert.Equal(t, uint(1), record.HostUserID)
	assert.Equal(t, "playing", record.Status)
	assert.Equal(t, 2, record.PlayerCount)
	assert.Equal(t, int64(42), record.Seed)

	// 初始快照已写入
	var snapshot models.GameStateSnapshot
	err = db.Where("session_id = ?", "sess-001").First(&snapshot).Error
	require.NoError(t, err)
	assert.NotEmpty(t, snapshot.StateData)
}

func TestSessionManager_CreateSession_Duplicate(t *testing.T) {
	db := setupSessionTestDB(t)
	sm := newTestSessionManager(t, db)
	ctx := context.Background()

	_, err := sm.CreateSession(ctx, "sess-dup", 1, []string{"A", "B"}, 1)
	require.NoError(t, err)

	_, err = sm.CreateSession(ctx, "sess-dup", 1, []string{"A", "B"}, 1)
	requireGameError(t, err, errors.ErrSessionExists)
}

func TestSessionManager_SessionLimit(t *testing.T) {
	db := setupSessionTestDB(t)
	sm := NewSessionManager(&SessionConfig{
		Logger:         zap.NewNop(),
		DB:             db,
		SessionTimeout: time.Minute,
		MaxSessions:    1,
	})
	ctx := context.Background()

	_, err := sm.CreateSession(ctx, "s1", 1, []string{"A", "B"}, 1)
	require.NoError(t, err)

	_, err = sm.CreateSession(ctx, "s2", 1, []string{"A", "B"}, 2)
	requireGameError(t, err, errors.ErrSessionLimit)
}

func TestSessionManager_GetSession_NotFound(t *testing.T) {
	db := setupSessionTestDB(t)
	sm := newTestSessionManager(t, db)

	_, err := sm.GetSession("ghost")
	requireGameError(t, err, errors.ErrSessionNotFound)
}

func TestSessionManager_ExecuteAction(t *testing.T) {
	db := setupSessionTestDB(t)
	sm := newTestSessionManager(t, db)
	ctx := context.Background()

	session, err := sm.CreateSession(ctx, "sess-act", 1, []string{"A", "B"}, 42)
	require.NoError(t, err)

	current := session.State.CurrentTurnPlayerID
	state, err := sm.ExecuteAction(ctx, "sess-act", PlayAction{
		Type:     ActionMine,
		PlayerID: current,
	})
	require.NoError(t, err)
	assert.NotEqual(t, current, state.CurrentTurnPlayerID)
	assert.Equal(t, 1, session.ActionCount)

	// 快照跟随动作更新
	var snapshot models.GameStateSnapshot
	err = db.Where("session_id = ?", "sess-act").First(&snapshot).Error
	require.NoError(t, err)
	assert.Contains(t, snapshot.StateData, `"action_count":1`)
}

func TestSessionManager_ExecuteAction_ReturnsDetachedState(t *testing.T) {
	db := setupSessionTestDB(t)
	sm := newTestSessionManager(t, db)
	ctx := context.Background()

	session, err := sm.CreateSession(ctx, "sess-iso", 1, []string{"A", "B"}, 42)
	require.NoError(t, err)

	first, err := sm.ExecuteAction(ctx, "sess-iso", PlayAction{
		Type:     ActionMine,
		PlayerID: session.State.CurrentTurnPlayerID,
	})
	require.NoError(t, err)
	firstTurn := first.CurrentTurnPlayerID

	// 返回的状态是深拷贝，后续动作不会改到它
	second, err := sm.ExecuteAction(ctx, "sess-iso", PlayAction{
		Type:     ActionMine,
		PlayerID: session.State.CurrentTurnPlayerID,
	})
	require.NoError(t, err)
	assert.Equal(t, firstTurn, first.CurrentTurnPlayerID)
	assert.NotEqual(t, first.CurrentTurnPlayerID, second.CurrentTurnPlayerID)

	// 反向同理：改拷贝不影响会话内的真实状态
	second.GetWallet(ColorYellow).HotStorage = 99
	assert.NotEqual(t, 99, session.State.GetWallet(ColorYellow).HotStorage)
}

func TestSession_SnapshotDetachedFromLiveState(t *testing.T) {
	db := setupSessionTestDB(t)
	sm := newTestSessionManager(t, db)
	ctx := context.Background()

	session, err := sm.CreateSession(ctx, "sess-snap", 1, []string{"A", "B"}, 42)
	require.NoError(t, err)

	snapshot := session.Snapshot()
	before := snapshot.State.CurrentTurnPlayerID

	_, err = sm.ExecuteAction(ctx, "sess-snap", PlayAction{
		Type:     ActionMine,
		PlayerID: session.State.CurrentTurnPlayerID,
	})
	require.NoError(t, err)

	// 动作改的是会话内的状态，先前取到的快照保持原样
	assert.Equal(t, before, snapshot.State.CurrentTurnPlayerID)
	assert.NotEqual(t, before, session.State.CurrentTurnPlayerID)
	assert.Equal(t, 0, snapshot.ActionCount)
}

func TestSessionManager_ExecuteAction_WrongTurn(t *testing.T) {
	db := setupSessionTestDB(t)
	sm := newTestSessionManager(t, db)
	ctx := context.Background()

	session, err := sm.CreateSession(ctx, "sess-turn", 1, []string{"A", "B"}, 42)
	require.NoError(t, err)

	var other string
	for _, p := range session.State.Players {
		if p.ID != session.State.CurrentTurnPlayerID {
			other = p.ID
		}
	}

	_, err = sm.ExecuteAction(ctx, "sess-turn", PlayAction{
		Type:     ActionMine,
		PlayerID: other,
	})
	requireGameError(t, err, errors.ErrNotYourTurn)
	assert.Equal(t, 0, session.ActionCount)
}

func TestSessionManager_FinishSession(t *testing.T) {
	db := setupSessionTestDB(t)
	sm := newTestSessionManager(t, db)
	ctx := context.Background()

	session, err := sm.CreateSession(ctx, "sess-end", 7, []string{"A", "B"}, 42)
	require.NoError(t, err)

	// 直接推进到最后一个区块，空区块可直接跳过
	session.State.CurrentBlock = session.Engine.Rules().LastBlock

	state, err := sm.ExecuteAction(ctx, "sess-end", PlayAction{
		Type:     ActionMoveToNextBlock,
		PlayerID: session.State.CurrentTurnPlayerID,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, state.GameStatus)

	// 结算写入每个玩家的结果，按名次排序
	var results []models.GameResult
	err = db.Where("session_id = ?", "sess-end").Order("rank ASC").Find(&results).Error
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].Rank)
	assert.True(t, results[0].IsWinner)
	assert.False(t, results[1].IsWinner)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
	assert.Equal(t, uint(7), results[0].UserID)

	// 会话记录标记为已结束
	var record models.GameSession
	err = db.Where("session_id = ?", "sess-end").First(&record).Error
	require.NoError(t, err)
	assert.Equal(t, "finished", record.Status)
	assert.NotNil(t, record.EndedAt)
}

func TestSessionManager_RemoveAndRecover(t *testing.T) {
	db := setupSessionTestDB(t)
	sm := newTestSessionManager(t, db)
	ctx := context.Background()

	session, err := sm.CreateSession(ctx, "sess-rec", 1, []string{"A", "B"}, 42)
	require.NoError(t, err)

	_, err = sm.ExecuteAction(ctx, "sess-rec", PlayAction{
		Type:     ActionMine,
		PlayerID: session.State.CurrentTurnPlayerID,
	})
	require.NoError(t, err)

	require.NoError(t, sm.RemoveSession(ctx, "sess-rec"))
	assert.Equal(t, 0, sm.ActiveSessionCount())

	recovered, err := sm.RecoverOrGetSession(ctx, "sess-rec")
	require.NoError(t, err)
	assert.Equal(t, "sess-rec", recovered.SessionID)
	assert.Equal(t, 1, recovered.ActionCount)
	assert.Equal(t, StatusPlaying, recovered.State.GameStatus)
	assert.Equal(t, int64(42), recovered.Seed)
	assert.Equal(t, 1, sm.ActiveSessionCount())
}

func TestSessionManager_CleanupInactiveSessions(t *testing.T) {
	db := setupSessionTestDB(t)
	sm := NewSessionManager(&SessionConfig{
		Logger:         zap.NewNop(),
		DB:             db,
		SessionTimeout: 10 * time.Millisecond,
		MaxSessions:    10,
	})
	ctx := context.Background()

	session, err := sm.CreateSession(ctx, "sess-idle", 1, []string{"A", "B"}, 42)
	require.NoError(t, err)

	session.mu.Lock()
	session.LastActivity = time.Now().Add(-time.Minute)
	session.mu.Unlock()

	sm.CleanupInactiveSessions(ctx)
	assert.Equal(t, 0, sm.ActiveSessionCount())

	var record models.GameSession
	err = db.Where("session_id = ?", "sess-idle").First(&record).Error
	require.NoError(t, err)
	assert.Equal(t, "paused", record.Status)
}

func TestSessionManager_GetSessionStats(t *testing.T) {
	db := setupSessionTestDB(t)
	sm := newTestSessionManager(t, db)
	ctx := context.Background()

	_, err := sm.CreateSession(ctx, "sess-stats", 1, []string{"A", "B", "C"}, 42)
	require.NoError(t, err)

	stats, err := sm.GetSessionStats("sess-stats")
	require.NoError(t, err)
	assert.Equal(t, "sess-stats", stats["session_id"])
	assert.Equal(t, 3, stats["players"])
	assert.Equal(t, StatusPlaying, stats["status"])
	assert.Equal(t, 11, stats["current_block"])
}
