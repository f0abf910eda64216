package api

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/wfunc/hodl-up/internal/errors"
	"github.com/wfunc/hodl-up/internal/game"
	"github.com/wfunc/hodl-up/internal/middleware"
	"github.com/wfunc/hodl-up/internal/service"
	"go.uber.org/zap"
)

// GameHandler 对局处理器
type GameHandler struct {
	sessionManager *game.SessionManager
	userService    service.UserService
	refEngine      *game.Engine
	log            *zap.Logger
}

// NewGameHandler 创建对局处理器
func NewGameHandler(sessionManager *game.SessionManager, userService service.UserService, rules *game.Rules, log *zap.Logger) *GameHandler {
	r := game.DefaultRules()
	if rules != nil {
		r = *rules
	}
	return &GameHandler{
		sessionManager: sessionManager,
		userService:    userService,
		// 参考引擎只用于输出牌库全貌，种子无关
		refEngine: game.NewEngine(r, 0, log),
		log:       log,
	}
}

// CreateGameRequest 创建对局请求
type CreateGameRequest struct {
	SessionID   string   `json:"session_id"`
	PlayerNames []string `json:"player_names" binding:"required,min=1,max=6,dive,required"`
	Seed        int64    `json:"seed"`
}

// GameStateResponse 对局状态响应
type GameStateResponse struct {
	SessionID   string          `json:"session_id"`
	Seed        int64           `json:"seed"`
	ActionCount int             `json:"action_count"`
	State       *game.GameState `json:"state"`
}

// CreateGame 创建对局
// @Summary 创建对局
// @Description 创建并初始化一局新游戏，返回完整初始状态（含已洗好的牌堆）
// @Tags Game
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body CreateGameRequest true "对局设置"
// @Success 200 {object} GameStateResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/games [post]
func (h *GameHandler) CreateGame(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req CreateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "请求参数错误",
			Details: err.Error(),
		})
		return
	}

	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}
	if req.Seed == 0 {
		req.Seed = time.Now().UnixNano()
	}

	session, err := h.sessionManager.CreateSession(c.Request.Context(), req.SessionID, userID, req.PlayerNames, req.Seed)
	if err != nil {
		h.writeGameError(c, err)
		return
	}

	c.JSON(http.StatusOK, GameStateResponse{
		SessionID: session.SessionID,
		Seed:      session.Seed,
		State:     session.Snapshot().State,
	})
}

// GetGameState 查询对局状态
// @Summary 查询对局状态
// @Description 返回对局的完整状态快照，内存未命中时尝试从持久层恢复
// @Tags Game
// @Security Bearer
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} GameStateResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/games/{id} [get]
func (h *GameHandler) GetGameState(c *gin.Context) {
	sessionID := c.Param("id")

	session, err := h.sessionManager.RecoverOrGetSession(c.Request.Context(), sessionID)
	if err != nil {
		h.writeGameError(c, err)
		return
	}

	data := session.Snapshot()
	c.JSON(http.StatusOK, GameStateResponse{
		SessionID:   sessionID,
		Seed:        data.Seed,
		ActionCount: data.ActionCount,
		State:       data.State,
	})
}

// ExecuteAction 执行玩家动作
// @Summary 执行玩家动作
// @Description 在对局上执行挖矿、买矿机、转冷存储或推进区块
// @Tags Game
// @Security Bearer
// @Accept json
// @Produce json
// @Param id path string true "会话ID"
// @Param request body game.PlayAction true "玩家动作"
// @Success 200 {object} GameStateResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/games/{id}/actions [post]
func (h *GameHandler) ExecuteAction(c *gin.Context) {
	sessionID := c.Param("id")

	var action game.PlayAction
	if err := c.ShouldBindJSON(&action); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "请求参数错误",
			Details: err.Error(),
		})
		return
	}

	state, err := h.sessionManager.ExecuteAction(c.Request.Context(), sessionID, action)
	if err != nil {
		h.writeGameError(c, err)
		return
	}

	c.JSON(http.StatusOK, GameStateResponse{
		SessionID: sessionID,
		State:     state,
	})
}

// GetAvailableActions 查询玩家可用动作
// @Summary 查询玩家可用动作
// @Description 返回指定玩家当前可以执行的动作列表
// @Tags Game
// @Security Bearer
// @Produce json
// @Param id path string true "会话ID"
// @Param player_id query string true "玩家ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/games/{id}/actions [get]
func (h *GameHandler) GetAvailableActions(c *gin.Context) {
	sessionID := c.Param("id")
	playerID := c.Query("player_id")
	if playerID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_REQUEST",
			Message: "缺少player_id参数",
		})
		return
	}

	session, err := h.sessionManager.RecoverOrGetSession(c.Request.Context(), sessionID)
	if err != nil {
		h.writeGameError(c, err)
		return
	}

	actions := session.AvailableActions(playerID)
	c.JSON(http.StatusOK, gin.H{
		"session_id": sessionID,
		"player_id":  playerID,
		"actions":    actions,
	})
}

// ScoreItem 单个玩家得分条目
type ScoreItem struct {
	PlayerID    string `json:"player_id"`
	PlayerName  string `json:"player_name"`
	WalletColor string `json:"wallet_color"`
	Score       int    `json:"score"`
	Rank        int    `json:"rank"`
}

// GetScores 查询对局得分
// @Summary 查询对局得分
// @Description 按当前状态计算各玩家得分，对局中途也可查询
// @Tags Game
// @Security Bearer
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/games/{id}/scores [get]
func (h *GameHandler) GetScores(c *gin.Context) {
	sessionID := c.Param("id")

	session, err := h.sessionManager.RecoverOrGetSession(c.Request.Context(), sessionID)
	if err != nil {
		h.writeGameError(c, err)
		return
	}

	snapshot := session.Snapshot()
	entries := session.FinalScores()
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})

	scores := make([]ScoreItem, 0, len(entries))
	for i, entry := range entries {
		item := ScoreItem{
			PlayerID: entry.PlayerID,
			Score:    entry.Score,
			Rank:     i + 1,
		}
		if player := snapshot.State.GetPlayer(entry.PlayerID); player != nil {
			item.PlayerName = player.Name
			item.WalletColor = string(player.WalletColor)
		}
		scores = append(scores, item)
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": sessionID,
		"status":     snapshot.State.GameStatus,
		"scores":     scores,
	})
}

// GetSessionStats 查询会话统计
// @Summary 查询会话统计
// @Tags Game
// @Security Bearer
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/games/{id}/stats [get]
func (h *GameHandler) GetSessionStats(c *gin.Context) {
	stats, err := h.sessionManager.GetSessionStats(c.Param("id"))
	if err != nil {
		h.writeGameError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// DeleteGame 删除对局
// @Summary 删除对局
// @Description 移除会话并删除持久化快照
// @Tags Game
// @Security Bearer
// @Param id path string true "会话ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/games/{id} [delete]
func (h *GameHandler) DeleteGame(c *gin.Context) {
	sessionID := c.Param("id")

	if err := h.sessionManager.RemoveSession(c.Request.Context(), sessionID); err != nil {
		h.writeGameError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "对局已删除",
	})
}

// GetDeckReference 查询牌库构成
// @Summary 查询牌库构成
// @Description 返回完整的131张牌库定义，供客户端渲染牌面
// @Tags Game
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/deck/reference [get]
func (h *GameHandler) GetDeckReference(c *gin.Context) {
	deck := h.refEngine.ReferenceDeck()
	c.JSON(http.StatusOK, gin.H{
		"total": len(deck),
		"cards": deck,
	})
}

// GetLeaderboard 查询排行榜
// @Summary 查询排行榜
// @Description 按历史单局得分降序返回排行榜
// @Tags Game
// @Produce json
// @Param limit query int false "条数，默认10"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/leaderboard [get]
func (h *GameHandler) GetLeaderboard(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 10
	}

	results, err := h.userService.GetLeaderboard(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "QUERY_FAILED",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"leaderboard": results,
	})
}

// GetGameHistory 查询个人对局历史
// @Summary 查询个人对局历史
// @Tags Game
// @Security Bearer
// @Produce json
// @Param page query int false "页码，默认1"
// @Param page_size query int false "每页条数，默认20"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/users/me/games [get]
func (h *GameHandler) GetGameHistory(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Code:    "UNAUTHORIZED",
			Message: "未登录",
		})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	results, total, err := h.userService.GetGameHistory(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "QUERY_FAILED",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":     total,
		"page":      page,
		"page_size": pageSize,
		"results":   results,
	})
}

// writeGameError 把引擎错误码映射为HTTP状态码
func (h *GameHandler) writeGameError(c *gin.Context, err error) {
	status := http.StatusBadRequest
	switch errors.GetCode(err) {
	case errors.ErrSessionNotFound:
		status = http.StatusNotFound
	case errors.ErrSessionExists:
		status = http.StatusConflict
	case errors.ErrSessionLimit:
		status = http.StatusTooManyRequests
	case errors.ErrSessionExpired:
		status = http.StatusGone
	case errors.ErrNotYourTurn, errors.ErrGameFinished:
		status = http.StatusConflict
	}

	c.JSON(status, ErrorResponse{
		Code:    "GAME_ERROR",
		Message: err.Error(),
	})
}
