package models

import (
	"time"
)

// GameSession 对局会话表
// 一条记录对应一局HODL UP，HostUserID是持有权威状态的主机玩家
type GameSession struct {
	BaseModel
	SessionID    string     `gorm:"uniqueIndex;size:64;not null" json:"session_id"`
	HostUserID   uint       `gorm:"not null;index" json:"host_user_id"`
	Status       string     `gorm:"size:20;default:'playing'" json:"status"` // playing, paused, finished, abandoned
	PlayerCount  int        `gorm:"default:0" json:"player_count"`
	Seed         int64      `gorm:"not null" json:"seed"` // 洗牌随机种子
	CurrentRound int        `gorm:"default:1" json:"current_round"`
	CurrentBlock int        `gorm:"default:11" json:"current_block"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	Duration     int        `json:"duration"` // 秒
	GameData     JSONMap    `gorm:"type:json" json:"game_data"`
}

// TableName 指定表名
func (GameSession) TableName() string {
	return "game_sessions"
}

// GameResult 对局结果表（终局后每位玩家一条）
type GameResult struct {
	BaseModel
	SessionID   string    `gorm:"index;size:64;not null" json:"session_id"`
	UserID      uint      `gorm:"index" json:"user_id"`
	PlayerID    string    `gorm:"size:32;not null" json:"player_id"`
	PlayerName  string    `gorm:"size:100" json:"player_name"`
	WalletColor string    `gorm:"size:20" json:"wallet_color"`
	Score       int       `gorm:"default:0" json:"score"`
	HotStorage  int       `gorm:"default:0" json:"hot_storage"`
	ColdStorage int       `gorm:"default:0" json:"cold_storage"`
	MiningRigs  int       `gorm:"default:0" json:"mining_rigs"`
	Rank        int       `gorm:"default:0" json:"rank"`
	IsWinner    bool      `gorm:"default:false" json:"is_winner"`
	FinishedAt  time.Time `json:"finished_at"`
}

// TableName 指定表名
func (GameResult) TableName() string {
	return "game_results"
}

// GameStateSnapshot 游戏状态快照表（用于断线恢复和会话持久化）
type GameStateSnapshot struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"uniqueIndex;size:64;not null" json:"session_id"`
	Status    string    `gorm:"size:20;not null" json:"status"`
	StateData string    `gorm:"type:text" json:"state_data"` // JSON格式的完整GameState
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (GameStateSnapshot) TableName() string {
	return "game_state_snapshots"
}
