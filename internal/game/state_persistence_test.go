package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/hodl-up/internal/models"
)

func newTestSessionData(t *testing.T, sessionID string) *SessionData {
	engine := newTestEngine(42)
	state, err := engine.InitializeGame([]string{"A", "B"})
	require.NoError(t, err)
	state.GameID = sessionID

	return &SessionData{
		SessionID:  sessionID,
		HostUserID: 1,
		Seed:       42,
		State:      state,
		LastUpdate: time.Now(),
	}
}

func TestMemoryStatePersister(t *testing.T) {
	p := NewMemoryStatePersister()
	ctx := context.Background()
	data := newTestSessionData(t, "mem-1")

	require.NoError(t, p.Save(ctx, "mem-1", data))

	loaded, err := p.Load(ctx, "mem-1")
	require.NoError(t, err)
	assert.Equal(t, "mem-1", loaded.SessionID)
	assert.Equal(t, int64(42), loaded.Seed)
	assert.Len(t, loaded.State.Players, 2)

	// 深拷贝：修改原状态不影响已保存的快照
	data.State.Round = 99
	loaded, err = p.Load(ctx, "mem-1")
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.State.Round)

	require.NoError(t, p.Delete(ctx, "mem-1"))
	_, err = p.Load(ctx, "mem-1")
	assert.Error(t, err)
}

func TestDatabaseStatePersister(t *testing.T) {
	db := setupSessionTestDB(t)
	p := NewDatabaseStatePersister(db)
	ctx := context.Background()
	data := newTestSessionData(t, "db-1")

	require.NoError(t, p.Save(ctx, "db-1", data))

	loaded, err := p.Load(ctx, "db-1")
	require.NoError(t, err)
	assert.Equal(t, "db-1", loaded.SessionID)
	assert.Equal(t, StatusPlaying, loaded.State.GameStatus)
	assert.Len(t, loaded.State.Deck, len(data.State.Deck))

	// 重复保存走 upsert，只保留一行
	data.ActionCount = 5
	require.NoError(t, p.Save(ctx, "db-1", data))

	var count int64
	db.Model(&models.GameStateSnapshot{}).Where("session_id = ?", "db-1").Count(&count)
	assert.Equal(t, int64(1), count)

	loaded, err = p.Load(ctx, "db-1")
	require.NoError(t, err)
	assert.Equal(t, 5, loaded.ActionCount)

	require.NoError(t, p.Delete(ctx, "db-1"))
	_, err = p.Load(ctx, "db-1")
	assert.Error(t, err)
}

func TestDatabaseStatePersister_LoadNotFound(t *testing.T) {
	db := setupSessionTestDB(t)
	p := NewDatabaseStatePersister(db)

	_, err := p.Load(context.Background(), "missing")
	assert.Error(t, err)
}

func TestCacheStatePersister(t *testing.T) {
	db := setupSessionTestDB(t)
	cache := NewMemoryStatePersister()
	storage := NewDatabaseStatePersister(db)
	p := NewCacheStatePersister(cache, storage)
	ctx := context.Background()
	data := newTestSessionData(t, "cache-1")

	require.NoError(t, p.Save(ctx, "cache-1", data))

	// 缓存和存储都有数据
	_, err := cache.Load(ctx, "cache-1")
	require.NoError(t, err)
	_, err = storage.Load(ctx, "cache-1")
	require.NoError(t, err)

	// 缓存失效后从存储层回填
	require.NoError(t, cache.Delete(ctx, "cache-1"))
	loaded, err := p.Load(ctx, "cache-1")
	require.NoError(t, err)
	assert.Equal(t, "cache-1", loaded.SessionID)

	_, err = cache.Load(ctx, "cache-1")
	assert.NoError(t, err, "读取后应回填缓存")

	require.NoError(t, p.Delete(ctx, "cache-1"))
	_, err = storage.Load(ctx, "cache-1")
	assert.Error(t, err)
}
