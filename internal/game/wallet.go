package game

import (
	"math"

	"github.com/wfunc/hodl-up/internal/errors"
)

// MoveToColdStorage 把比特币从热存储移入冷存储
// 余额不足直接失败，成功时扣减与入账一次完成，热+冷总量不变
func (e *Engine) MoveToColdStorage(state *GameState, color WalletColor, amount int) error {
	wallet := state.GetWallet(color)
	if wallet == nil {
		return errors.New(errors.ErrWalletNotFound, string(color))
	}
	if amount <= 0 {
		return errors.Newf(errors.ErrInvalidAmount, "转移数量必须为正: %d", amount)
	}
	if wallet.HotStorage < amount {
		return errors.Newf(errors.ErrInsufficientFunds,
			"热存储余额%d, 需要%d", wallet.HotStorage, amount)
	}

	wallet.HotStorage -= amount
	wallet.ColdStorage += amount
	return nil
}

// MoveToHotStorage 把比特币从冷存储移回热存储
func (e *Engine) MoveToHotStorage(state *GameState, color WalletColor, amount int) error {
	wallet := state.GetWallet(color)
	if wallet == nil {
		return errors.New(errors.ErrWalletNotFound, string(color))
	}
	if amount <= 0 {
		return errors.Newf(errors.ErrInvalidAmount, "转移数量必须为正: %d", amount)
	}
	if wallet.ColdStorage < amount {
		return errors.Newf(errors.ErrInsufficientFunds,
			"冷存储余额%d, 需要%d", wallet.ColdStorage, amount)
	}

	wallet.ColdStorage -= amount
	wallet.HotStorage += amount
	return nil
}

// BuyMiningRig 购买矿机
// 花费固定为1枚比特币：从买家热存储扣除，矿机池减一。
// 付出的1枚比特币流入第一个未分配钱包的冷存储（回收进系统，不归任何玩家）
func (e *Engine) BuyMiningRig(state *GameState, color WalletColor) error {
	wallet := state.GetWallet(color)
	if wallet == nil {
		return errors.New(errors.ErrWalletNotFound, string(color))
	}
	if state.AvailableMiningRigs <= 0 {
		return errors.New(errors.ErrNoRigsAvailable)
	}
	if wallet.HotStorage < e.rules.MiningRigCost {
		return errors.Newf(errors.ErrInsufficientFunds,
			"矿机价格%d, 热存储余额%d", e.rules.MiningRigCost, wallet.HotStorage)
	}

	wallet.HotStorage -= e.rules.MiningRigCost
	wallet.MiningRigs++
	state.AvailableMiningRigs--

	// 货款沉入未分配钱包（按颜色顺序取第一个）
	for i := range state.Wallets {
		if !state.Wallets[i].IsAssigned {
			state.Wallets[i].ColdStorage += e.rules.MiningRigCost
			break
		}
	}
	return nil
}

// AddBitcoinToWallet 向钱包热存储注入比特币（挖矿奖励等）
func (e *Engine) AddBitcoinToWallet(state *GameState, color WalletColor, amount int) error {
	wallet := state.GetWallet(color)
	if wallet == nil {
		return errors.New(errors.ErrWalletNotFound, string(color))
	}
	wallet.HotStorage += amount
	return nil
}

// CanAffordMiningRig 判断玩家钱包能否购买矿机
func (e *Engine) CanAffordMiningRig(state *GameState, color WalletColor) bool {
	wallet := state.GetWallet(color)
	if wallet == nil {
		return false
	}
	return wallet.HotStorage >= e.rules.MiningRigCost && state.AvailableMiningRigs > 0
}

// TotalBitcoin 钱包持币总量（热+冷）
func TotalBitcoin(wallet *Wallet) int {
	return wallet.HotStorage + wallet.ColdStorage
}

// HasMiningRigs 钱包是否持有矿机
func HasMiningRigs(wallet *Wallet) bool {
	return wallet.MiningRigs > 0
}

// WalletScore 钱包评分：持币总量乘以矿机加成（每台矿机+10%），向下取整
// 注意这是对局中的钱包指标，终局结算用CalculateFinalScores的平加公式
func WalletScore(wallet *Wallet) int {
	multiplier := 1 + float64(wallet.MiningRigs)*0.1
	return int(math.Floor(float64(TotalBitcoin(wallet)) * multiplier))
}
