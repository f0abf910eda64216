package game

import (
	"math/rand"

	"go.uber.org/zap"
)

// Rules 游戏规则参数
type Rules struct {
	FirstBlock         int     // 起始区块编号（创世块）
	LastBlock          int     // 最终区块编号
	MaxRounds          int     // 最大回合数
	TotalMiningRigs    int     // 矿机总数
	StartingRigs       int     // 每位玩家的初始矿机数
	MiningRigCost      int     // 购买矿机价格
	BlockTokens        int     // 每个区块的初始比特币奖励
	MaxColdStorageMove int     // 冷存储动作单次转移上限
	AdjustInterval     int     // 难度调整间隔（每N个区块）
	SuccessRateHigh    float64 // 成功率高于此值时提高难度
	SuccessRateLow     float64 // 成功率低于此值时降低难度
}

// DefaultRules 默认规则
func DefaultRules() Rules {
	return Rules{
		FirstBlock:         11,
		LastBlock:          31,
		MaxRounds:          17,
		TotalMiningRigs:    12,
		StartingRigs:       1,
		MiningRigCost:      1,
		BlockTokens:        1,
		MaxColdStorageMove: 2,
		AdjustInterval:     3,
		SuccessRateHigh:    0.8,
		SuccessRateLow:     0.3,
	}
}

// Engine 游戏引擎
// 引擎本身不持有游戏状态，所有操作作用于传入的GameState。
// 随机数源由引擎持有：同一个种子下洗牌和发牌结果完全可复现，
// 多人场景下主机广播洗好的牌堆，其他端不自己重掷
type Engine struct {
	rules  Rules
	rng    *rand.Rand
	logger *zap.Logger
}

// NewEngine 创建游戏引擎
func NewEngine(rules Rules, seed int64, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		rules:  rules,
		rng:    rand.New(rand.NewSource(seed)),
		logger: logger,
	}
}

// Rules 当前规则
func (e *Engine) Rules() Rules {
	return e.rules
}
