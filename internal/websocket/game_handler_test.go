package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/hodl-up/internal/game"
	"github.com/wfunc/hodl-up/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestSessionManager 构建带内存数据库的会话管理器
func newTestSessionManager(t *testing.T) *game.SessionManager {
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

	return game.NewSessionManager(&game.SessionConfig{
		Logger:         zap.NewNop(),
		DB:             db,
		SessionTimeout: time.Hour,
		MaxSessions:    10,
	})
}

// newTestClient 注册一个不带真实连接的客户端
func newTestClient(t *testing.T, hub *Hub) *Client {
	client := &Client{
		ID:   uuid.New().String(),
		Hub:  hub,
		Send: make(chan []byte, 256),
	}
	hub.Register(client)

	// 注册完成后会收到connected消息
	msg := readMessage(t, client)
	require.Equal(t, MessageTypeConnected, msg.Type)

	return client
}

// readMessage 从客户端发送通道读取一条消息
func readMessage(t *testing.T, client *Client) *Message {
	t.Helper()
	select {
	case data := <-client.Send:
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return &msg
	case <-time.After(2 * time.Second):
		t.Fatal("等待消息超时")
		return nil
	}
}

func setupHandlerTest(t *testing.T) (*Hub, *GameMessageHandler, *game.SessionManager) {
	hub := NewHub(zap.NewNop())
	sm := newTestSessionManager(t)
	handler := NewGameMessageHandler(hub, sm, zap.NewNop())
	hub.SetMessageHandler(handler)
	go hub.Run()
	return hub, handler, sm
}

func TestHub_SendToSession(t *testing.T) {
	hub, _, _ := setupHandlerTest(t)

	c1 := newTestClient(t, hub)
	c2 := newTestClient(t, hub)
	c3 := newTestClient(t, hub)
	c1.SessionID = "s1"
	c2.SessionID = "s1"
	c3.SessionID = "s2"

	err := hub.SendToSession("s1", &Message{
		Type:      MessageTypeGameStateUpdate,
		SessionID: "s1",
		Timestamp: time.Now().Unix(),
	})
	require.NoError(t, err)

	assert.Equal(t, MessageTypeGameStateUpdate, readMessage(t, c1).Type)
	assert.Equal(t, MessageTypeGameStateUpdate, readMessage(t, c2).Type)
	assert.Empty(t, c3.Send)

	// 无人在会话里时报错
	err = hub.SendToSession("ghost", &Message{Type: MessageTypePing})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestHub_BroadcastToSessionExcept(t *testing.T) {
	hub, _, _ := setupHandlerTest(t)

	c1 := newTestClient(t, hub)
	c2 := newTestClient(t, hub)
	c1.SessionID = "s1"
	c2.SessionID = "s1"

	hub.BroadcastToSessionExcept("s1", c1.ID, &Message{
		Type:      MessageTypePlayerJoined,
		SessionID: "s1",
	})

	assert.Equal(t, MessageTypePlayerJoined, readMessage(t, c2).Type)
	assert.Empty(t, c1.Send)
}

func TestGameMessageHandler_JoinAccepted(t *testing.T) {
	hub, handler, sm := setupHandlerTest(t)
	ctx := context.Background()

	session, err := sm.CreateSession(ctx, "ws-join", 1, []string{"A", "B"}, 42)
	require.NoError(t, err)

	host := newTestClient(t, hub)
	host.SessionID = "ws-join"
	host.PlayerID = session.State.Players[0].ID

	guest := newTestClient(t, hub)
	join, _ := json.Marshal(map[string]string{
		"session_id": "ws-join",
		"player_id":  session.State.Players[1].ID,
	})
	handler.HandleClientMessage(guest, mustMarshal(t, &Message{
		Type: MessageTypeJoinRequest,
		Data: join,
	}))

	// 加入方收到完整快照
	accepted := readMessage(t, guest)
	require.Equal(t, MessageTypeJoinAccepted, accepted.Type)

	var payload struct {
		SessionID string          `json:"session_id"`
		Seed      int64           `json:"seed"`
		State     *game.GameState `json:"state"`
	}
	require.NoError(t, json.Unmarshal(accepted.Data, &payload))
	assert.Equal(t, "ws-join", payload.SessionID)
	assert.Equal(t, int64(42), payload.Seed)
	require.NotNil(t, payload.State)
	assert.Len(t, payload.State.Players, 2)
	assert.NotEmpty(t, payload.State.Deck, "快照应携带已洗好的牌堆")

	// 同会话其他端收到PLAYER_JOINED
	joined := readMessage(t, host)
	assert.Equal(t, MessageTypePlayerJoined, joined.Type)
	assert.Equal(t, session.State.Players[1].ID, joined.Sender)
}

func TestGameMessageHandler_JoinRejected(t *testing.T) {
	hub, handler, _ := setupHandlerTest(t)

	client := newTestClient(t, hub)
	join, _ := json.Marshal(map[string]string{
		"session_id": "no-such-session",
		"player_id":  "player_1",
	})
	handler.HandleClientMessage(client, mustMarshal(t, &Message{
		Type: MessageTypeJoinRequest,
		Data: join,
	}))

	rejected := readMessage(t, client)
	assert.Equal(t, MessageTypeJoinRejected, rejected.Type)
	assert.Empty(t, client.SessionID)
}

func TestGameMessageHandler_GameAction(t *testing.T) {
	hub, handler, sm := setupHandlerTest(t)
	ctx := context.Background()

	session, err := sm.CreateSession(ctx, "ws-act", 1, []string{"A", "B"}, 42)
	require.NoError(t, err)
	current := session.State.CurrentTurnPlayerID

	client := newTestClient(t, hub)
	client.SessionID = "ws-act"
	client.PlayerID = current

	action, _ := json.Marshal(game.PlayAction{
		Type:     game.ActionMine,
		PlayerID: current,
	})
	handler.HandleClientMessage(client, mustMarshal(t, &Message{
		Type: MessageTypeGameAction,
		Data: action,
	}))

	// 挖矿动作先广播MINING_RESULT，再同步完整状态
	mining := readMessage(t, client)
	require.Equal(t, MessageTypeMiningResult, mining.Type)
	assert.Equal(t, current, mining.Sender)

	update := readMessage(t, client)
	require.Equal(t, MessageTypeGameStateUpdate, update.Type)

	var payload struct {
		State *game.GameState `json:"state"`
	}
	require.NoError(t, json.Unmarshal(update.Data, &payload))
	assert.NotEqual(t, current, payload.State.CurrentTurnPlayerID)
}

func TestGameMessageHandler_ActionErrors(t *testing.T) {
	hub, handler, sm := setupHandlerTest(t)
	ctx := context.Background()

	session, err := sm.CreateSession(ctx, "ws-err", 1, []string{"A", "B"}, 42)
	require.NoError(t, err)

	// 未加入会话
	stray := newTestClient(t, hub)
	action, _ := json.Marshal(game.PlayAction{Type: game.ActionMine, PlayerID: "player_1"})
	handler.HandleClientMessage(stray, mustMarshal(t, &Message{
		Type: MessageTypeGameAction,
		Data: action,
	}))
	assert.Equal(t, MessageTypeError, readMessage(t, stray).Type)

	// 不是自己的回合
	var other string
	for _, p := range session.State.Players {
		if p.ID != session.State.CurrentTurnPlayerID {
			other = p.ID
		}
	}
	client := newTestClient(t, hub)
	client.SessionID = "ws-err"
	client.PlayerID = other

	wrongTurn, _ := json.Marshal(game.PlayAction{Type: game.ActionMine, PlayerID: other})
	handler.HandleClientMessage(client, mustMarshal(t, &Message{
		Type: MessageTypeGameAction,
		Data: wrongTurn,
	}))
	assert.Equal(t, MessageTypeError, readMessage(t, client).Type)
}

func TestGameMessageHandler_RigBroadcastAndGameOver(t *testing.T) {
	hub, handler, sm := setupHandlerTest(t)
	ctx := context.Background()

	session, err := sm.CreateSession(ctx, "ws-over", 1, []string{"A", "B"}, 42)
	require.NoError(t, err)
	current := session.State.CurrentTurnPlayerID

	client := newTestClient(t, hub)
	client.SessionID = "ws-over"
	client.PlayerID = current

	// 给当前玩家足够的钱买矿机
	player := session.State.GetPlayer(current)
	wallet := session.State.GetWallet(player.WalletColor)
	wallet.HotStorage = 5

	buy, _ := json.Marshal(game.PlayAction{Type: game.ActionBuyMiningRig, PlayerID: current})
	handler.HandleClientMessage(client, mustMarshal(t, &Message{
		Type: MessageTypeGameAction,
		Data: buy,
	}))

	rig := readMessage(t, client)
	require.Equal(t, MessageTypeMiningRigAdded, rig.Type)

	var rigPayload struct {
		MiningRigs          int `json:"mining_rigs"`
		AvailableMiningRigs int `json:"available_mining_rigs"`
	}
	require.NoError(t, json.Unmarshal(rig.Data, &rigPayload))
	assert.Equal(t, 2, rigPayload.MiningRigs)
	assert.Equal(t, 9, rigPayload.AvailableMiningRigs)

	readMessage(t, client) // GAME_STATE_UPDATE

	// 推到最后一个区块并跳过，触发终局广播
	session.State.CurrentBlock = session.Engine.Rules().LastBlock
	next, _ := json.Marshal(game.PlayAction{
		Type:     game.ActionMoveToNextBlock,
		PlayerID: session.State.CurrentTurnPlayerID,
	})
	handler.HandleClientMessage(client, mustMarshal(t, &Message{
		Type: MessageTypeGameAction,
		Data: next,
	}))

	update := readMessage(t, client)
	require.Equal(t, MessageTypeGameStateUpdate, update.Type)

	over := readMessage(t, client)
	require.Equal(t, MessageTypeGameOver, over.Type)

	var overPayload struct {
		Scores []game.ScoreEntry `json:"scores"`
	}
	require.NoError(t, json.Unmarshal(over.Data, &overPayload))
	assert.Len(t, overPayload.Scores, 2)
}

func TestGameMessageHandler_Heartbeat(t *testing.T) {
	hub, handler, _ := setupHandlerTest(t)

	client := newTestClient(t, hub)
	handler.HandleClientMessage(client, mustMarshal(t, &Message{Type: MessageTypePing}))
	assert.Equal(t, MessageTypePong, readMessage(t, client).Type)

	handler.HandleClientMessage(client, mustMarshal(t, &Message{Type: MessageTypeHeartbeat}))
	assert.Equal(t, MessageTypeHeartbeat, readMessage(t, client).Type)
}

func mustMarshal(t *testing.T, msg *Message) []byte {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	return data
}
