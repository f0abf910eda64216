package game

import (
	"fmt"
	"math"
)

// DifficultyByBlock 区块编号对应的基础难度
// 难度阈值随对局推进递减，区块总额上限越来越紧
func DifficultyByBlock(blockNumber int) int {
	switch {
	case blockNumber <= 15:
		return 12
	case blockNumber <= 20:
		return 10
	case blockNumber <= 25:
		return 8
	default:
		return 6
	}
}

// NeedsDifficultyAdjustment 是否到达难度调整点（每3个区块一次）
func (e *Engine) NeedsDifficultyAdjustment(state *GameState) bool {
	return state.CurrentBlock%e.rules.AdjustInterval == 0
}

// AdjustDifficulty 按近期挖块成功率调整难度
// 从当前区块的基础难度出发：最近3个区块的成功率超过0.8时难度乘0.9（收紧），
// 低于0.3时乘1.1（放宽），向下取整。窗口内没有区块时保持基础难度
func (e *Engine) AdjustDifficulty(state *GameState) {
	difficulty := DifficultyByBlock(state.CurrentBlock)

	recent := e.recentBlocks(state, e.rules.AdjustInterval)
	if len(recent) > 0 {
		mined := 0
		for _, b := range recent {
			if b.IsMined {
				mined++
			}
		}
		rate := float64(mined) / float64(len(recent))

		if rate > e.rules.SuccessRateHigh {
			difficulty = int(math.Floor(float64(difficulty) * 0.9))
		} else if rate < e.rules.SuccessRateLow {
			difficulty = int(math.Floor(float64(difficulty) * 1.1))
		}
	}

	state.Difficulty = difficulty
}

// recentBlocks 取当前区块之前最多count个区块
func (e *Engine) recentBlocks(state *GameState, count int) []*Block {
	current := -1
	for i := range state.Blocks {
		if state.Blocks[i].Number == state.CurrentBlock {
			current = i
			break
		}
	}
	if current < 0 {
		return nil
	}

	start := current - count
	if start < 0 {
		start = 0
	}
	blocks := make([]*Block, 0, current-start)
	for i := start; i < current; i++ {
		blocks = append(blocks, &state.Blocks[i])
	}
	return blocks
}

// IsHalvingBlock 是否为减半区块（第20和第28块）
func IsHalvingBlock(blockNumber int) bool {
	return blockNumber == 20 || blockNumber == 28
}

// BlockReward 减半后的区块奖励
func BlockReward(blockNumber int) int {
	switch {
	case blockNumber < 20:
		return 6
	case blockNumber < 28:
		return 3
	default:
		return 1
	}
}

// DifficultyMessage 难度的界面提示文案
func DifficultyMessage(difficulty int) string {
	switch {
	case difficulty >= 12:
		return fmt.Sprintf("简单 - 区块总额不超过%d", difficulty)
	case difficulty >= 9:
		return fmt.Sprintf("中等 - 区块总额不超过%d", difficulty)
	case difficulty >= 7:
		return fmt.Sprintf("困难 - 区块总额不超过%d", difficulty)
	default:
		return fmt.Sprintf("极难 - 区块总额不超过%d", difficulty)
	}
}
