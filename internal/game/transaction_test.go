package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/hodl-up/internal/errors"
)

// makeTxCards 构造一组标准交易牌
func makeTxCards(from, to WalletColor, amount int, recipient WalletColor) []Card {
	return []Card{
		{ID: "tx_i1", Type: CardIdentity, Color: from, Value: 5},
		{ID: "tx_b1", Type: CardBitcoin, Value: amount, SymbolCount: 1},
		{ID: "tx_i2", Type: CardIdentity, Color: to, Value: 6},
		{ID: "tx_h1", Type: CardHash, RecipientColor: recipient, Value: 3},
	}
}

func TestCreateTransaction(t *testing.T) {
	e, state := newTestGame(t, "Alice", "Bob")
	state.GetWallet(ColorYellow).HotStorage = 5

	tx, err := e.CreateTransaction(state, 11, makeTxCards(ColorYellow, ColorOrange, 3, ColorGreen))
	require.NoError(t, err)
	assert.Equal(t, "tx_11_0", tx.ID)
	assert.Equal(t, ColorYellow, tx.From)
	assert.Equal(t, ColorGreen, tx.To)
	assert.Equal(t, 3, tx.Amount)
	assert.True(t, tx.IsValid)
}

func TestCreateTransaction_InvalidPattern(t *testing.T) {
	e, state := newTestGame(t, "Alice", "Bob")

	cards := makeTxCards(ColorYellow, ColorOrange, 3, ColorGreen)
	cards[0], cards[1] = cards[1], cards[0]

	_, err := e.CreateTransaction(state, 11, cards)
	requireGameError(t, err, errors.ErrInvalidPattern)
}

func TestCreateTransaction_SameWallet(t *testing.T) {
	e, state := newTestGame(t, "Alice", "Bob")

	_, err := e.CreateTransaction(state, 11, makeTxCards(ColorRed, ColorRed, 3, ColorGreen))
	requireGameError(t, err, errors.ErrSameWalletTransfer)
}

func TestCreateTransaction_DeterministicID(t *testing.T) {
	e, state := newTestGame(t, "Alice", "Bob")
	state.GetWallet(ColorYellow).HotStorage = 9

	// 交易ID由区块和块内序号决定，重放同一动作得到相同ID
	tx1, err := e.CreateTransaction(state, 11, makeTxCards(ColorYellow, ColorOrange, 3, ColorGreen))
	require.NoError(t, err)
	require.NoError(t, e.AddTransactionToBlock(state, 11, tx1))

	tx2, err := e.CreateTransaction(state, 11, makeTxCards(ColorYellow, ColorBlue, 2, ColorRed))
	require.NoError(t, err)
	assert.Equal(t, "tx_11_0", tx1.ID)
	assert.Equal(t, "tx_11_1", tx2.ID)
}

func TestValidateTransaction(t *testing.T) {
	e, state := newTestGame(t, "Alice", "Bob")
	state.GetWallet(ColorYellow).HotStorage = 5

	tests := []struct {
		name   string
		mutate func(tx *Transaction)
		want   bool
	}{
		{"有效交易", func(tx *Transaction) {}, true},
		{"余额不足", func(tx *Transaction) { tx.Amount = 9 }, false},
		{"模式被破坏", func(tx *Transaction) { tx.Cards = tx.Cards[:3] }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, err := e.CreateTransaction(state, 11, makeTxCards(ColorYellow, ColorOrange, 3, ColorGreen))
			require.NoError(t, err)
			tt.mutate(tx)
			assert.Equal(t, tt.want, e.ValidateTransaction(state, tx))
		})
	}
}

func TestValidateTransaction_DifficultyHeadroom(t *testing.T) {
	// 金额5、难度4的交易无法通过校验，入块失败且区块保持为空
	e, state := newTestGame(t, "Alice", "Bob")
	state.GetWallet(ColorYellow).HotStorage = 10
	state.Difficulty = 4

	tx, err := e.CreateTransaction(state, 11, makeTxCards(ColorYellow, ColorOrange, 5, ColorGreen))
	require.NoError(t, err)
	assert.False(t, tx.IsValid)

	err = e.AddTransactionToBlock(state, 11, tx)
	requireGameError(t, err, errors.ErrInvalidTransaction)
	assert.Empty(t, state.GetBlock(11).Transactions)
}

func TestAddTransactionToBlock_Transfers(t *testing.T) {
	e, state := newTestGame(t, "Alice", "Bob")
	sender := state.GetWallet(ColorYellow)
	receiver := state.GetWallet(ColorGreen)
	sender.HotStorage = 5

	tx, err := e.CreateTransaction(state, 11, makeTxCards(ColorYellow, ColorOrange, 3, ColorGreen))
	require.NoError(t, err)
	require.NoError(t, e.AddTransactionToBlock(state, 11, tx))

	// 交易入块时比特币同步转移
	assert.Len(t, state.GetBlock(11).Transactions, 1)
	assert.Equal(t, 2, sender.HotStorage)
	assert.Equal(t, 3, receiver.HotStorage)
}

func TestAddTransactionToBlock_Atomicity(t *testing.T) {
	e, state := newTestGame(t, "Alice", "Bob")
	sender := state.GetWallet(ColorYellow)
	sender.HotStorage = 5

	tx, err := e.CreateTransaction(state, 11, makeTxCards(ColorYellow, ColorOrange, 3, ColorGreen))
	require.NoError(t, err)

	// 入块前余额被掏空：整体失败，区块和钱包都不变
	sender.HotStorage = 1
	receiver := state.GetWallet(ColorGreen)

	err = e.AddTransactionToBlock(state, 11, tx)
	requireGameError(t, err, errors.ErrInsufficientFunds)
	assert.Empty(t, state.GetBlock(11).Transactions)
	assert.Equal(t, 1, sender.HotStorage)
	assert.Equal(t, 0, receiver.HotStorage)
}

func TestAddTransactionToBlock_MinedBlock(t *testing.T) {
	e, state := newTestGame(t, "Alice", "Bob")
	state.GetWallet(ColorYellow).HotStorage = 5

	tx, err := e.CreateTransaction(state, 11, makeTxCards(ColorYellow, ColorOrange, 3, ColorGreen))
	require.NoError(t, err)

	state.GetBlock(11).IsMined = true
	err = e.AddTransactionToBlock(state, 11, tx)
	requireGameError(t, err, errors.ErrBlockAlreadyMined)
}

func TestValidateBlock(t *testing.T) {
	block := &Block{Number: 12}
	assert.False(t, ValidateBlock(block, 10), "空区块不可挖")

	block.Transactions = []Transaction{
		{Amount: 4, IsValid: true},
		{Amount: 5, IsValid: true},
	}
	assert.Equal(t, 9, BlockTotal(block))
	assert.True(t, ValidateBlock(block, 10))
	assert.False(t, ValidateBlock(block, 8), "总额超过难度")

	block.Transactions[1].IsValid = false
	assert.False(t, ValidateBlock(block, 10), "包含无效交易")
}

func TestMoveToNextBlock(t *testing.T) {
	e, state := newTestGame(t, "Alice", "Bob")

	require.NoError(t, e.MoveToNextBlock(state))
	assert.Equal(t, 12, state.CurrentBlock)
}

func TestMoveToNextBlock_UnminedTransactions(t *testing.T) {
	e, state := newTestGame(t, "Alice", "Bob")
	state.GetWallet(ColorYellow).HotStorage = 5

	tx, err := e.CreateTransaction(state, 11, makeTxCards(ColorYellow, ColorOrange, 3, ColorGreen))
	require.NoError(t, err)
	require.NoError(t, e.AddTransactionToBlock(state, 11, tx))

	// 有未挖出的交易时禁止推进
	err = e.MoveToNextBlock(state)
	requireGameError(t, err, errors.ErrUnminedTransactions)
	assert.Equal(t, 11, state.CurrentBlock)

	// 挖出后可以推进
	require.NoError(t, e.MineBlock(state, 11, ColorYellow))
	require.NoError(t, e.MoveToNextBlock(state))
	assert.Equal(t, 12, state.CurrentBlock)
}

func TestMoveToNextBlock_FinishesGame(t *testing.T) {
	e, state := newTestGame(t, "Alice", "Bob")
	state.CurrentBlock = 31

	require.NoError(t, e.MoveToNextBlock(state))
	assert.Equal(t, StatusFinished, state.GameStatus)
	assert.Equal(t, 31, state.CurrentBlock)
}

func TestValidateBlockChain(t *testing.T) {
	hashTx := func(color WalletColor) Transaction {
		return Transaction{Cards: []Card{
			{Type: CardIdentity}, {Type: CardBitcoin},
			{Type: CardIdentity}, {Type: CardHash, RecipientColor: color},
		}}
	}

	// 相邻非空区块的哈希收款色衔接
	blocks := []Block{
		{Number: 11, Transactions: []Transaction{hashTx(ColorRed)}},
		{Number: 12, Transactions: []Transaction{hashTx(ColorRed), hashTx(ColorBlue)}},
		{Number: 13},
		{Number: 14, Transactions: []Transaction{hashTx(ColorGreen)}},
	}
	assert.True(t, ValidateBlockChain(blocks))

	blocks[1].Transactions[0].Cards[3].RecipientColor = ColorGreen
	assert.False(t, ValidateBlockChain(blocks))
}
