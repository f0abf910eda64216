package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/wfunc/hodl-up/internal/middleware"
	ws "github.com/wfunc/hodl-up/internal/websocket"
	"go.uber.org/zap"
)

// WebSocketHandler WebSocket处理器
type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(hub *ws.Hub, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// 在生产环境中应该检查Origin
				return true
			},
		},
		logger: logger,
	}
}

// GameWebSocket 游戏WebSocket连接
// 连接本身允许匿名，加入对局走 JOIN_REQUEST 消息校验
func (h *WebSocketHandler) GameWebSocket(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists || userID == 0 {
		// 访客连接
		userID = 0
		h.logger.Info("WebSocket访客连接", zap.String("ip", c.ClientIP()))
	}

	// 升级为WebSocket连接
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket升级失败",
			zap.Uint("user_id", userID),
			zap.Error(err))
		return
	}

	// 创建客户端
	client := ws.NewClient(h.hub, conn, userID)

	// 连接参数里带会话ID时直接挂到会话
	if sessionID := c.Query("session_id"); sessionID != "" {
		client.SessionID = sessionID
	}

	// 注册客户端
	h.hub.Register(client)

	// 启动读写协程
	go client.WritePump()
	go client.ReadPump()

	h.logger.Info("WebSocket连接建立",
		zap.String("client_id", client.ID),
		zap.Uint("user_id", userID),
		zap.String("session_id", client.SessionID))
}

// GetOnlineCount 获取在线人数
func (h *WebSocketHandler) GetOnlineCount(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"online_count": h.hub.GetOnlineCount(),
		"online_users": h.hub.GetOnlineUsers(),
	})
}
