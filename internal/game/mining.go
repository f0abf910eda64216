package game

import (
	"github.com/wfunc/hodl-up/internal/errors"

	"go.uber.org/zap"
)

// PerformMining 执行挖矿抽牌
// 必须持有至少一台矿机；每台矿机抽一张牌，没有上限
func (e *Engine) PerformMining(state *GameState, playerID string) error {
	player := state.GetPlayer(playerID)
	if player == nil {
		return errors.New(errors.ErrPlayerNotFound, playerID)
	}

	wallet := state.GetWallet(player.WalletColor)
	if wallet == nil {
		return errors.New(errors.ErrWalletNotFound, string(player.WalletColor))
	}
	if !HasMiningRigs(wallet) {
		return errors.New(errors.ErrMustOwnRig)
	}

	if err := e.DrawCards(state, playerID, wallet.MiningRigs); err != nil {
		return err
	}

	e.logger.Debug("挖矿抽牌",
		zap.String("game_id", state.GameID),
		zap.String("player_id", playerID),
		zap.Int("cards", wallet.MiningRigs))
	return nil
}

// CanMineBlock 判断区块是否可被挖出（有交易且总额不超过难度）
func CanMineBlock(block *Block, difficulty int) bool {
	if len(block.Transactions) == 0 {
		return false
	}
	return BlockTotal(block) <= difficulty
}

// MineBlock 挖出区块并发放奖励
// 区块上的比特币奖励进入矿工钱包的热存储
func (e *Engine) MineBlock(state *GameState, blockNumber int, minedBy WalletColor) error {
	block := state.GetBlock(blockNumber)
	if block == nil {
		return errors.Newf(errors.ErrBlockNotFound, "区块%d不存在", blockNumber)
	}
	if block.IsMined {
		return errors.Newf(errors.ErrBlockAlreadyMined, "区块%d已被挖出", blockNumber)
	}
	if !CanMineBlock(block, state.Difficulty) {
		return errors.Newf(errors.ErrBlockNotMinable,
			"区块%d不满足难度条件: 总额%d, 难度%d", blockNumber, BlockTotal(block), state.Difficulty)
	}

	wallet := state.GetWallet(minedBy)
	if wallet == nil {
		return errors.New(errors.ErrWalletNotFound, string(minedBy))
	}

	block.IsMined = true
	block.MinedBy = minedBy
	wallet.HotStorage += block.BitcoinTokens

	e.logger.Info("区块挖出",
		zap.String("game_id", state.GameID),
		zap.Int("block", blockNumber),
		zap.String("mined_by", string(minedBy)),
		zap.Int("reward", block.BitcoinTokens))
	return nil
}

// MiningReward 挖矿奖励的阶梯表（随区块编号递减）
func MiningReward(blockNumber int) int {
	switch {
	case blockNumber <= 15:
		return 6
	case blockNumber <= 20:
		return 4
	case blockNumber <= 25:
		return 2
	default:
		return 1
	}
}
