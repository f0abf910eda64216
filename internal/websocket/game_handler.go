package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wfunc/hodl-up/internal/game"
	"go.uber.org/zap"
)

// GameMessageHandler 对局WebSocket消息处理器
// 主机执行动作，其余端收到同样的动作与状态做回放，不在本地重掷随机数
type GameMessageHandler struct {
	hub            *Hub
	sessionManager *game.SessionManager
	logger         *zap.Logger
}

// NewGameMessageHandler 创建对局消息处理器
func NewGameMessageHandler(hub *Hub, sessionManager *game.SessionManager, logger *zap.Logger) *GameMessageHandler {
	return &GameMessageHandler{
		hub:            hub,
		sessionManager: sessionManager,
		logger:         logger,
	}
}

// HandleClientMessage 处理客户端消息
func (h *GameMessageHandler) HandleClientMessage(client *Client, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		h.logger.Error("解析消息失败",
			zap.String("client_id", client.ID),
			zap.Error(err))
		h.sendError(client, "消息格式错误")
		client.Close()
		return
	}

	if msg.Type == "" {
		h.logger.Warn("收到空消息类型",
			zap.String("client_id", client.ID))
		h.sendError(client, "消息类型不能为空")
		client.Close()
		return
	}

	h.logger.Debug("收到WebSocket消息",
		zap.String("client_id", client.ID),
		zap.String("type", msg.Type),
		zap.String("session_id", msg.SessionID))

	switch msg.Type {
	case MessageTypePing:
		h.handlePing(client)

	case MessageTypePong:
		h.logger.Debug("收到pong", zap.String("client_id", client.ID))

	case MessageTypeHeartbeat:
		h.handleHeartbeat(client)

	case MessageTypeJoinRequest:
		h.handleJoinRequest(client, &msg)

	case MessageTypeGameAction:
		h.handleGameAction(client, &msg)

	case MessageTypeGameStateUpdate:
		h.handleGetGameState(client, &msg)

	default:
		h.logger.Warn("未知消息类型",
			zap.String("client_id", client.ID),
			zap.String("type", msg.Type))
		h.sendError(client, "不支持的消息类型: "+msg.Type)
		client.Close()
	}
}

// HandleClientDisconnect 客户端断开时通知同会话的其他端
func (h *GameMessageHandler) HandleClientDisconnect(client *Client) {
	if client.SessionID == "" {
		return
	}

	left := map[string]interface{}{
		"player_id": client.PlayerID,
	}
	data, _ := json.Marshal(left)

	h.hub.BroadcastToSessionExcept(client.SessionID, client.ID, &Message{
		Type:      MessageTypePlayerLeft,
		SessionID: client.SessionID,
		Sender:    client.PlayerID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

// handleJoinRequest 处理加入对局请求
func (h *GameMessageHandler) handleJoinRequest(client *Client, msg *Message) {
	var req struct {
		SessionID string `json:"session_id"`
		PlayerID  string `json:"player_id"`
	}
	if msg.Data != nil {
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			h.sendError(client, "加入参数错误")
			return
		}
	}
	if req.SessionID == "" {
		req.SessionID = msg.SessionID
	}
	if req.SessionID == "" {
		h.rejectJoin(client, req.SessionID, "缺少会话ID")
		return
	}

	ctx := context.Background()
	session, err := h.sessionManager.RecoverOrGetSession(ctx, req.SessionID)
	if err != nil {
		h.logger.Warn("加入对局失败",
			zap.String("client_id", client.ID),
			zap.String("session_id", req.SessionID),
			zap.Error(err))
		h.rejectJoin(client, req.SessionID, fmt.Sprintf("加入失败: %v", err))
		return
	}

	client.SessionID = req.SessionID
	client.PlayerID = req.PlayerID

	// 接受方拿到完整快照，包括已洗好的牌堆，不在本地重洗
	snapshot := session.Snapshot()
	data, err := json.Marshal(map[string]interface{}{
		"session_id": req.SessionID,
		"player_id":  req.PlayerID,
		"state":      snapshot.State,
		"seed":       snapshot.Seed,
	})
	if err != nil {
		h.sendError(client, "序列化状态失败")
		return
	}

	h.hub.SendToClient(client.ID, &Message{
		Type:      MessageTypeJoinAccepted,
		SessionID: req.SessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})

	// 通知同会话其他端
	joined, _ := json.Marshal(map[string]interface{}{
		"player_id": req.PlayerID,
	})
	h.hub.BroadcastToSessionExcept(req.SessionID, client.ID, &Message{
		Type:      MessageTypePlayerJoined,
		SessionID: req.SessionID,
		Sender:    req.PlayerID,
		Data:      joined,
		Timestamp: time.Now().Unix(),
	})

	h.logger.Info("玩家加入对局",
		zap.String("client_id", client.ID),
		zap.String("session_id", req.SessionID),
		zap.String("player_id", req.PlayerID))
}

// rejectJoin 拒绝加入请求
func (h *GameMessageHandler) rejectJoin(client *Client, sessionID, reason string) {
	data, _ := json.Marshal(map[string]string{
		"session_id": sessionID,
		"reason":     reason,
	})
	h.hub.SendToClient(client.ID, &Message{
		Type:      MessageTypeJoinRejected,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

// handleGameAction 执行玩家动作并向会话广播结果
func (h *GameMessageHandler) handleGameAction(client *Client, msg *Message) {
	if client.SessionID == "" {
		h.sendError(client, "请先加入对局")
		return
	}

	var action game.PlayAction
	if err := json.Unmarshal(msg.Data, &action); err != nil {
		h.sendError(client, "动作格式错误")
		return
	}
	if action.PlayerID == "" {
		action.PlayerID = client.PlayerID
	}

	ctx := context.Background()
	state, err := h.sessionManager.ExecuteAction(ctx, client.SessionID, action)
	if err != nil {
		h.logger.Warn("执行动作失败",
			zap.String("session_id", client.SessionID),
			zap.String("player_id", action.PlayerID),
			zap.String("action", string(action.Type)),
			zap.Error(err))
		h.sendError(client, fmt.Sprintf("执行动作失败: %v", err))
		return
	}

	// 按动作类型附加专用广播
	switch action.Type {
	case game.ActionMine:
		h.broadcastMiningResult(client.SessionID, action.PlayerID, state)
	case game.ActionBuyMiningRig:
		h.broadcastRigAdded(client.SessionID, action.PlayerID, state)
	}

	// 所有动作之后都同步一次完整状态
	h.broadcastGameState(client.SessionID, action.PlayerID, state)

	if state.GameStatus == game.StatusFinished {
		h.broadcastGameOver(client.SessionID, state)
	}
}

// handleGetGameState 按需下发当前状态
func (h *GameMessageHandler) handleGetGameState(client *Client, msg *Message) {
	sessionID := client.SessionID
	if sessionID == "" {
		sessionID = msg.SessionID
	}
	if sessionID == "" {
		h.sendError(client, "没有活跃的对局会话")
		return
	}

	session, err := h.sessionManager.GetSession(sessionID)
	if err != nil {
		h.sendError(client, fmt.Sprintf("会话不可用: %v", err))
		return
	}

	snapshot := session.Snapshot()
	data, _ := json.Marshal(map[string]interface{}{
		"state": snapshot.State,
	})
	h.hub.SendToClient(client.ID, &Message{
		Type:      MessageTypeGameStateUpdate,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

// broadcastMiningResult 广播挖矿结果
func (h *GameMessageHandler) broadcastMiningResult(sessionID, playerID string, state *game.GameState) {
	block := state.GetCurrentBlock()

	payload := map[string]interface{}{
		"player_id":     playerID,
		"current_block": state.CurrentBlock,
		"difficulty":    state.Difficulty,
	}
	if block != nil {
		payload["is_mined"] = block.IsMined
		payload["transactions"] = len(block.Transactions)
	}

	data, _ := json.Marshal(payload)
	h.hub.SendToSession(sessionID, &Message{
		Type:      MessageTypeMiningResult,
		SessionID: sessionID,
		Sender:    playerID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

// broadcastRigAdded 广播矿机购买
func (h *GameMessageHandler) broadcastRigAdded(sessionID, playerID string, state *game.GameState) {
	payload := map[string]interface{}{
		"player_id":             playerID,
		"available_mining_rigs": state.AvailableMiningRigs,
	}
	if player := state.GetPlayer(playerID); player != nil {
		if wallet := state.GetWallet(player.WalletColor); wallet != nil {
			payload["mining_rigs"] = wallet.MiningRigs
		}
	}

	data, _ := json.Marshal(payload)
	h.hub.SendToSession(sessionID, &Message{
		Type:      MessageTypeMiningRigAdded,
		SessionID: sessionID,
		Sender:    playerID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

// broadcastGameState 广播完整状态
func (h *GameMessageHandler) broadcastGameState(sessionID, sender string, state *game.GameState) {
	data, err := json.Marshal(map[string]interface{}{
		"state": state,
	})
	if err != nil {
		h.logger.Error("序列化游戏状态失败",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return
	}

	h.hub.SendToSession(sessionID, &Message{
		Type:      MessageTypeGameStateUpdate,
		SessionID: sessionID,
		Sender:    sender,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

// broadcastGameOver 广播终局结算
func (h *GameMessageHandler) broadcastGameOver(sessionID string, state *game.GameState) {
	session, err := h.sessionManager.GetSession(sessionID)
	if err != nil {
		return
	}

	scores := session.Engine.CalculateFinalScores(state)
	data, _ := json.Marshal(map[string]interface{}{
		"scores": scores,
	})

	h.hub.SendToSession(sessionID, &Message{
		Type:      MessageTypeGameOver,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

// handlePing 应答ping
func (h *GameMessageHandler) handlePing(client *Client) {
	h.hub.SendToClient(client.ID, &Message{
		Type:      MessageTypePong,
		Timestamp: time.Now().Unix(),
		Data:      json.RawMessage(`{"message":"pong"}`),
	})
}

// handleHeartbeat 应答心跳
func (h *GameMessageHandler) handleHeartbeat(client *Client) {
	h.hub.SendToClient(client.ID, &Message{
		Type:      MessageTypeHeartbeat,
		Timestamp: time.Now().Unix(),
		Data:      json.RawMessage(fmt.Sprintf(`{"status":"alive","server_time":%d}`, time.Now().Unix())),
	})
}

// sendError 发送错误消息
func (h *GameMessageHandler) sendError(client *Client, message string) {
	data, _ := json.Marshal(map[string]string{"error": message})
	h.hub.SendToClient(client.ID, &Message{
		Type:      MessageTypeError,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}
