package game

import (
	"fmt"

	"github.com/wfunc/hodl-up/internal/errors"
)

// CreateTransaction 用4张牌构建一笔交易
// 模式必须是身份+比特币+身份+哈希；两张身份牌颜色必须不同（禁止自转账）。
// 交易ID由区块编号和块内序号决定，多端重放同一动作得到相同ID
func (e *Engine) CreateTransaction(state *GameState, blockNumber int, cards []Card) (*Transaction, error) {
	if !ValidateTransactionPattern(cards) {
		return nil, errors.New(errors.ErrInvalidPattern,
			"交易必须由身份+比特币+身份+哈希4张牌组成")
	}

	sender, bitcoin, receiver, hash := cards[0], cards[1], cards[2], cards[3]
	if sender.Color == receiver.Color {
		return nil, errors.New(errors.ErrSameWalletTransfer, string(sender.Color))
	}

	index := 0
	if block := state.GetBlock(blockNumber); block != nil {
		index = len(block.Transactions)
	}

	tx := &Transaction{
		ID:          fmt.Sprintf("tx_%d_%d", blockNumber, index),
		Cards:       []Card{sender, bitcoin, receiver, hash},
		From:        sender.Color,
		To:          hash.RecipientColor,
		Amount:      bitcoin.Value,
		BlockNumber: blockNumber,
	}
	tx.IsValid = e.ValidateTransaction(state, tx)
	return tx, nil
}

// ValidateTransaction 校验交易是否可入块（不修改任何状态）
// 条件：模式正确、发送方热存储足额、收款钱包存在、
// 且金额加上目标区块已有交易总额不超过当前难度
func (e *Engine) ValidateTransaction(state *GameState, tx *Transaction) bool {
	if !ValidateTransactionPattern(tx.Cards) {
		return false
	}

	sender := state.GetWallet(tx.From)
	if sender == nil || sender.HotStorage < tx.Amount {
		return false
	}
	if state.GetWallet(tx.To) == nil {
		return false
	}

	// 难度余量：入块后区块总额不能超过难度阈值
	if block := state.GetBlock(tx.BlockNumber); block != nil {
		if BlockTotal(block)+tx.Amount > state.Difficulty {
			return false
		}
	}
	return true
}

// CheckTransactionPreconditions 检查交易入块的全部前置条件但不改状态
// 供入块前的预校验复用，保证动作失败时没有任何中间修改落地
func (e *Engine) CheckTransactionPreconditions(state *GameState, blockNumber int, tx *Transaction) error {
	block := state.GetBlock(blockNumber)
	if block == nil {
		return errors.Newf(errors.ErrBlockNotFound, "区块%d不存在", blockNumber)
	}
	if block.IsMined {
		return errors.Newf(errors.ErrBlockAlreadyMined, "区块%d已被挖出", blockNumber)
	}
	if !tx.IsValid {
		return errors.New(errors.ErrInvalidTransaction, tx.ID)
	}

	sender := state.GetWallet(tx.From)
	receiver := state.GetWallet(tx.To)
	if sender == nil || receiver == nil {
		return errors.New(errors.ErrWalletNotFound)
	}
	if sender.HotStorage < tx.Amount {
		return errors.Newf(errors.ErrInsufficientFunds,
			"发送方热存储余额%d, 交易金额%d", sender.HotStorage, tx.Amount)
	}
	return nil
}

// AddTransactionToBlock 把交易追加到区块并执行转账
// 这是比特币真正易手的唯一位置。任何前置条件不满足都整体失败，
// 区块和钱包都保持原样
func (e *Engine) AddTransactionToBlock(state *GameState, blockNumber int, tx *Transaction) error {
	if err := e.CheckTransactionPreconditions(state, blockNumber, tx); err != nil {
		return err
	}

	block := state.GetBlock(blockNumber)
	sender := state.GetWallet(tx.From)
	receiver := state.GetWallet(tx.To)

	block.Transactions = append(block.Transactions, *tx)
	sender.HotStorage -= tx.Amount
	receiver.HotStorage += tx.Amount
	return nil
}

// BlockTotal 区块内交易金额总和
func BlockTotal(block *Block) int {
	total := 0
	for _, tx := range block.Transactions {
		total += tx.Amount
	}
	return total
}

// ValidateBlock 校验区块是否满足挖出条件
// 至少一笔交易、所有交易有效、总额不超过难度
func ValidateBlock(block *Block, difficulty int) bool {
	if len(block.Transactions) == 0 {
		return false
	}
	for _, tx := range block.Transactions {
		if !tx.IsValid {
			return false
		}
	}
	return BlockTotal(block) <= difficulty
}

// MoveToNextBlock 推进区块指针
// 当前区块有未挖出的交易时禁止推进（必须先显式挖块）。
// 越过最终区块时对局结束
func (e *Engine) MoveToNextBlock(state *GameState) error {
	block := state.GetCurrentBlock()
	if block == nil {
		return errors.Newf(errors.ErrBlockNotFound, "当前区块%d不存在", state.CurrentBlock)
	}

	if len(block.Transactions) > 0 && !block.IsMined {
		return errors.Newf(errors.ErrUnminedTransactions,
			"区块%d还有%d笔未挖出的交易", block.Number, len(block.Transactions))
	}

	if state.CurrentBlock < e.rules.LastBlock {
		state.CurrentBlock++
	} else {
		state.GameStatus = StatusFinished
	}
	return nil
}

// ValidateBlockChain 校验时间链完整性
// 相邻两个非空区块之间，前块最后一笔交易的哈希牌收款色
// 必须等于后块第一笔交易的哈希牌收款色（模拟哈希链接，非加密校验）
func ValidateBlockChain(blocks []Block) bool {
	for i := 1; i < len(blocks); i++ {
		prev := &blocks[i-1]
		curr := &blocks[i]
		if len(prev.Transactions) == 0 || len(curr.Transactions) == 0 {
			continue
		}

		prevHash := prev.Transactions[len(prev.Transactions)-1].Cards[3]
		firstHash := curr.Transactions[0].Cards[3]
		if prevHash.RecipientColor != firstHash.RecipientColor {
			return false
		}
	}
	return true
}
