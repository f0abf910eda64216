package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameSessionRepository_Create(t *testing.T) {
	db := TestDB(t)
	repo := NewGameSessionRepository(db)
	ctx := context.Background()

	// 测试创建对局会话
	session := CreateTestGameSession(1, 2)
	err := repo.Create(ctx, session)
	require.NoError(t, err)
	assert.NotZero(t, session.ID)

	// 验证会话已创建
	found, err := repo.FindBySessionID(ctx, session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, session.SessionID, found.SessionID)
	assert.Equal(t, uint(1), found.HostUserID)
	assert.Equal(t, 2, found.PlayerCount)
	assert.Equal(t, int64(42), found.Seed)
}

func TestGameSessionRepository_UpdateBySessionID(t *testing.T) {
	db := TestDB(t)
	repo := NewGameSessionRepository(db)
	ctx := context.Background()

	session := CreateTestGameSession(1, 3)
	require.NoError(t, repo.Create(ctx, session))

	// 按会话ID更新对局进度
	err := repo.UpdateBySessionID(ctx, session.SessionID, map[string]interface{}{
		"current_round": 5,
		"current_block": 16,
	})
	require.NoError(t, err)

	found, err := repo.FindBySessionID(ctx, session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 5, found.CurrentRound)
	assert.Equal(t, 16, found.CurrentBlock)
}

func TestGameSessionRepository_FindActiveByHostUserID(t *testing.T) {
	db := TestDB(t)
	repo := NewGameSessionRepository(db)
	ctx := context.Background()

	ended := CreateTestGameSession(7, 2)
	ended.Status = "finished"
	require.NoError(t, repo.Create(ctx, ended))

	active := CreateTestGameSession(7, 2)
	require.NoError(t, repo.Create(ctx, active))

	found, err := repo.FindActiveByHostUserID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, active.SessionID, found.SessionID)
}

func TestGameSessionRepository_EndSession(t *testing.T) {
	db := TestDB(t)
	repo := NewGameSessionRepository(db)
	ctx := context.Background()

	session := CreateTestGameSession(1, 2)
	session.StartedAt = time.Now().Add(-90 * time.Second)
	require.NoError(t, repo.Create(ctx, session))

	require.NoError(t, repo.EndSession(ctx, session.SessionID, "finished"))

	found, err := repo.FindBySessionID(ctx, session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "finished", found.Status)
	require.NotNil(t, found.EndedAt)
	assert.GreaterOrEqual(t, found.Duration, 90)
}

func TestGameSessionRepository_CleanupExpiredSessions(t *testing.T) {
	db := TestDB(t)
	repo := NewGameSessionRepository(db)
	ctx := context.Background()

	stale := CreateTestGameSession(1, 2)
	require.NoError(t, repo.Create(ctx, stale))

	// 未过期的会话不受影响
	affected, err := repo.CleanupExpiredSessions(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, affected)

	// 把所有进行中的会话清理为abandoned
	affected, err = repo.CleanupExpiredSessions(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	found, err := repo.FindBySessionID(ctx, stale.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "abandoned", found.Status)
}

func TestGameSessionRepository_FindByHostUserID_Pagination(t *testing.T) {
	db := TestDB(t)
	repo := NewGameSessionRepository(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, CreateTestGameSession(3, 2)))
	}

	p := NewPagination(1, 2)
	sessions, err := repo.FindByHostUserID(ctx, 3, p)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
	assert.Equal(t, int64(5), p.Total)
}
