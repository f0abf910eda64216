package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/hodl-up/internal/errors"
)

func TestInitializeGame(t *testing.T) {
	e := newTestEngine(42)
	state, err := e.InitializeGame([]string{"Alice", "Bob"})
	require.NoError(t, err)

	// 两名玩家各1台矿机和4张起手牌
	require.Len(t, state.Players, 2)
	for _, p := range state.Players {
		wallet := state.GetWallet(p.WalletColor)
		require.NotNil(t, wallet)
		assert.Equal(t, 1, wallet.MiningRigs)
		assert.Len(t, p.Hand, 4)
		assert.Equal(t, CardIdentity, p.Hand[0].Type)
		assert.Equal(t, CardBitcoin, p.Hand[1].Type)
		assert.Equal(t, CardIdentity, p.Hand[2].Type)
		assert.Equal(t, CardHash, p.Hand[3].Type)
	}

	assert.Equal(t, 11, state.CurrentBlock)
	assert.Equal(t, 1, state.Round)
	assert.Equal(t, 17, state.MaxRounds)
	assert.Equal(t, StatusPlaying, state.GameStatus)
	assert.Equal(t, 10, state.AvailableMiningRigs)
	assert.Equal(t, 12, state.Difficulty)
	assert.Len(t, state.Blocks, 21)
	assert.True(t, state.Blocks[0].IsGenesis)
	assert.True(t, state.Players[0].IsCurrentTurn)

	// 钱包6个全建，未分配的留作系统钱包
	assert.Len(t, state.Wallets, 6)
	assigned := 0
	for _, w := range state.Wallets {
		if w.IsAssigned {
			assigned++
		}
	}
	assert.Equal(t, 2, assigned)
}

func TestInitializeGame_PlayerCount(t *testing.T) {
	e := newTestEngine(1)

	_, err := e.InitializeGame(nil)
	requireGameError(t, err, errors.ErrInvalidParam)

	_, err = e.InitializeGame([]string{"a", "b", "c", "d", "e", "f", "g"})
	requireGameError(t, err, errors.ErrInvalidParam)

	state, err := e.InitializeGame([]string{"a", "b", "c", "d", "e", "f"})
	require.NoError(t, err)
	assert.Equal(t, 6, state.AvailableMiningRigs)
}

func TestExecutePlayAction_Guards(t *testing.T) {
	e, state := newTestGame(t, "Alice", "Bob")

	err := e.ExecutePlayAction(state, &PlayAction{Type: ActionMine, PlayerID: "ghost"})
	requireGameError(t, err, errors.ErrPlayerNotFound)

	// player_1还没轮到
	err = e.ExecutePlayAction(state, &PlayAction{Type: ActionMine, PlayerID: "player_1"})
	requireGameError(t, err, errors.ErrNotYourTurn)

	err = e.ExecutePlayAction(state, &PlayAction{Type: "dance", PlayerID: "player_0"})
	requireGameError(t, err, errors.ErrUnknownAction)

	state.GameStatus = StatusFinished
	err = e.ExecutePlayAction(state, &PlayAction{Type: ActionMine, PlayerID: "player_0"})
	requireGameError(t, err, errors.ErrGameFinished)
}

func TestMineAction_DrawsAndEndsTurn(t *testing.T) {
	e, state := newTestGame(t, "Alice", "Bob")
	player := state.GetPlayer("player_0")
	state.GetWallet(player.WalletColor).MiningRigs = 2

	err := e.ExecutePlayAction(state, &PlayAction{Type: ActionMine, PlayerID: "player_0"})
	require.NoError(t, err)

	// 2台矿机抽2张牌，回合转给下一位
	assert.Len(t, player.Hand, 6)
	assert.Equal(t, "player_1", state.CurrentTurnPlayerID)
	assert.False(t, player.IsCurrentTurn)
	assert.True(t, state.GetPlayer("player_1").IsCurrentTurn)
}

func TestMineAction_WithTransaction(t *testing.T) {
	e, state := newTestGame(t, "Alice", "Bob")
	player := state.GetPlayer("player_0")
	state.GetWallet(ColorYellow).HotStorage = 5

	cards := makeTxCards(ColorYellow, ColorOrange, 3, ColorGreen)
	player.Hand = append(player.Hand, cards...)
	handSize := len(player.Hand)

	err := e.ExecutePlayAction(state, &PlayAction{
		Type:     ActionMine,
		PlayerID: "player_0",
		Data:     &ActionData{TransactionCards: cards},
	})
	require.NoError(t, err)

	// 交易入块、用掉的牌进弃牌堆、转账完成
	assert.Len(t, state.GetBlock(11).Transactions, 1)
	assert.Len(t, player.Hand, handSize-4+1) // 用掉4张，矿机抽回1张
	assert.Len(t, state.DiscardPile, 4)
	assert.Equal(t, 2, state.GetWallet(ColorYellow).HotStorage)
	assert.Equal(t, 3, state.GetWallet(ColorGreen).HotStorage)
}

func TestMineAction_InvalidTransactionKeepsCards(t *testing.T) {
	e, state := newTestGame(t, "Alice", "Bob")
	player := state.GetPlayer("player_0")

	// 余额为0，交易无法生效：只抽牌，牌留在手上
	cards := makeTxCards(ColorYellow, ColorOrange, 3, ColorGreen)
	player.Hand = append(player.Hand, cards...)
	handSize := len(player.Hand)

	err := e.ExecutePlayAction(state, &PlayAction{
		Type:     ActionMine,
		PlayerID: "player_0",
		Data:     &ActionData{TransactionCards: cards},
	})
	require.NoError(t, err)
	assert.Empty(t, state.GetBlock(11).Transactions)
	assert.Len(t, player.Hand, handSize+1)
	assert.Empty(t, state.DiscardPile)
}

func TestMineAction_CardsNotInHand(t *testing.T) {
	e, state := newTestGame(t, "Alice", "Bob")
	state.GetWallet(ColorYellow).HotStorage = 5
	player := state.GetPlayer("player_0")
	handSize := len(player.Hand)

	err := e.ExecutePlayAction(state, &PlayAction{
		Type:     ActionMine,
		PlayerID: "player_0",
		Data:     &ActionData{TransactionCards: makeTxCards(ColorYellow, ColorOrange, 3, ColorGreen)},
	})
	requireGameError(t, err, errors.ErrInsufficientCards)

	// 失败不改状态：没抽牌也没轮转
	assert.Len(t, player.Hand, handSize)
	assert.Equal(t, "player_0", state.CurrentTurnPlayerID)
}

func TestMineAction_MinedBlockRejectedBeforeDraw(t *testing.T) {
	e, state := newTestGame(t, "Alice", "Bob")
	player := state.GetPlayer("player_0")
	state.GetWallet(ColorYellow).HotStorage = 5
	state.GetBlock(11).IsMined = true

	cards := makeTxCards(ColorYellow, ColorOrange, 3, ColorGreen)
	player.Hand = append(player.Hand, cards...)
	handSize := len(player.Hand)
	deckSize := len(state.Deck)

	err := e.ExecutePlayAction(state, &PlayAction{
		Type:     ActionMine,
		PlayerID: "player_0",
		Data:     &ActionData{TransactionCards: cards},
	})
	requireGameError(t, err, errors.ErrBlockAlreadyMined)

	// 失败不改状态：没抽牌、没入块、没轮转
	assert.Len(t, player.Hand, handSize)
	assert.Len(t, state.Deck, deckSize)
	assert.Empty(t, state.GetBlock(11).Transactions)
	assert.Equal(t, 5, state.GetWallet(ColorYellow).HotStorage)
	assert.Equal(t, "player_0", state.CurrentTurnPlayerID)
}

func TestMineAction_WithoutRig(t *testing.T) {
	e, state := newTestGame(t, "Alice", "Bob")
	state.GetWallet(ColorYellow).MiningRigs = 0

	err := e.ExecutePlayAction(state, &PlayAction{Type: ActionMine, PlayerID: "player_0"})
	requireGameError(t, err, errors.ErrMustOwnRig)
}

func TestBuyMiningRigAction_NoFunds(t *testing.T) {
	e, state := newTestGame(t, "Alice", "Bob")
	before := *state.GetWallet(ColorYellow)
	pool := state.AvailableMiningRigs

	err := e.ExecutePlayAction(state, &PlayAction{Type: ActionBuyMiningRig, PlayerID: "player_0"})
	requireGameError(t, err, errors.ErrCannotAffordRig)

	// 状态原封不动
	assert.Equal(t, before, *state.GetWallet(ColorYellow))
	assert.Equal(t, pool, state.AvailableMiningRigs)
	assert.Equal(t, "player_0", state.CurrentTurnPlayerID)
}

func TestMoveToColdStorageAction(t *testing.T) {
	e, state := newTestGame(t, "Alice", "Bob")
	wallet := state.GetWallet(ColorYellow)
	wallet.HotStorage = 3

	err := e.ExecutePlayAction(state, &PlayAction{
		Type:     ActionMoveToColdStorage,
		PlayerID: "player_0",
		Data:     &ActionData{Amount: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, wallet.HotStorage)
	assert.Equal(t, 2, wallet.ColdStorage)
	assert.Equal(t, "player_1", state.CurrentTurnPlayerID)
}

func TestMoveToColdStorageAction_AmountCap(t *testing.T) {
	e, state := newTestGame(t, "Alice", "Bob")
	state.GetWallet(ColorYellow).HotStorage = 5

	// 回合动作单次最多转2枚
	err := e.ExecutePlayAction(state, &PlayAction{
		Type:     ActionMoveToColdStorage,
		PlayerID: "player_0",
		Data:     &ActionData{Amount: 3},
	})
	requireGameError(t, err, errors.ErrInvalidAmount)
}

func TestMoveToNextBlockAction_Unmined(t *testing.T) {
	e, state := newTestGame(t, "Alice", "Bob")
	state.GetWallet(ColorYellow).HotStorage = 5

	tx, err := e.CreateTransaction(state, 11, makeTxCards(ColorYellow, ColorOrange, 3, ColorGreen))
	require.NoError(t, err)
	require.NoError(t, e.AddTransactionToBlock(state, 11, tx))

	err = e.ExecutePlayAction(state, &PlayAction{Type: ActionMoveToNextBlock, PlayerID: "player_0"})
	requireGameError(t, err, errors.ErrUnminedTransactions)
	assert.Equal(t, 11, state.CurrentBlock)
	assert.Equal(t, "player_0", state.CurrentTurnPlayerID)
}

func TestMoveToNextBlockAction_AdjustsDifficulty(t *testing.T) {
	e, state := newTestGame(t, "Alice", "Bob")
	state.CurrentBlock = 14

	// 推进到15触发难度调整（15%3==0），窗口内无挖出记录则放宽
	err := e.ExecutePlayAction(state, &PlayAction{Type: ActionMoveToNextBlock, PlayerID: "player_0"})
	require.NoError(t, err)
	assert.Equal(t, 15, state.CurrentBlock)
	assert.Equal(t, 13, state.Difficulty) // floor(12*1.1)
}

func TestEndTurn_RotationClosure(t *testing.T) {
	e, state := newTestGame(t, "Ann", "Ben", "Cal")
	first := state.CurrentTurnPlayerID
	round := state.Round

	// 轮转N次回到原点，回合数加一
	for i := 0; i < len(state.Players); i++ {
		require.NoError(t, e.endTurn(state))
	}
	assert.Equal(t, first, state.CurrentTurnPlayerID)
	assert.Equal(t, round+1, state.Round)
}

func TestEndTurn_SkipsInactive(t *testing.T) {
	e, state := newTestGame(t, "Ann", "Ben", "Cal")
	state.GetPlayer("player_1").IsActive = false

	require.NoError(t, e.endTurn(state))
	assert.Equal(t, "player_2", state.CurrentTurnPlayerID)
}

func TestEndTurn_NoActivePlayers(t *testing.T) {
	e, state := newTestGame(t, "Ann", "Ben", "Cal")
	state.GetPlayer("player_1").IsActive = false
	state.GetPlayer("player_2").IsActive = false
	state.GetPlayer("player_0").IsActive = false

	err := e.endTurn(state)
	requireGameError(t, err, errors.ErrNoActivePlayers)
}

func TestGetAvailableActions(t *testing.T) {
	e, state := newTestGame(t, "Alice", "Bob")

	// 不在自己回合时没有可选动作
	assert.Empty(t, e.GetAvailableActions(state, "player_1"))

	// 没钱时只有挖矿和推进区块
	actions := e.GetAvailableActions(state, "player_0")
	assert.Equal(t, []PlayOption{ActionMine, ActionMoveToNextBlock}, actions)

	// 有钱后可以买矿机和转冷存储
	state.GetWallet(ColorYellow).HotStorage = 2
	actions = e.GetAvailableActions(state, "player_0")
	assert.Equal(t, []PlayOption{
		ActionMine, ActionBuyMiningRig, ActionMoveToColdStorage, ActionMoveToNextBlock,
	}, actions)
}

func TestIsGameOver(t *testing.T) {
	e, state := newTestGame(t, "Alice", "Bob")
	assert.False(t, e.IsGameOver(state))

	state.GameStatus = StatusFinished
	assert.True(t, e.IsGameOver(state))

	state.GameStatus = StatusPlaying
	state.CurrentBlock = 32
	assert.True(t, e.IsGameOver(state))
}

func TestCalculateFinalScores(t *testing.T) {
	e, state := newTestGame(t, "Alice", "Bob")

	w0 := state.GetWallet(ColorYellow)
	w0.HotStorage = 4
	w0.ColdStorage = 3
	w0.MiningRigs = 2

	w1 := state.GetWallet(ColorOrange)
	w1.HotStorage = 1
	w1.MiningRigs = 1

	scores := e.CalculateFinalScores(state)
	require.Len(t, scores, 2)
	assert.Equal(t, ScoreEntry{PlayerID: "player_0", Score: 11}, scores[0])
	assert.Equal(t, ScoreEntry{PlayerID: "player_1", Score: 3}, scores[1])
}

func TestDistributeBitcoinTokens(t *testing.T) {
	e := newTestEngine(5)
	state, err := e.InitializeGame([]string{"Alice"})
	require.NoError(t, err)

	DistributeBitcoinTokens(state.Blocks)

	// 总量38枚，追加的奖励全部落在编号不超过20的早期区块
	total := 0
	for _, b := range state.Blocks {
		total += b.BitcoinTokens
		if b.Number > 20 {
			assert.Equal(t, 1, b.BitcoinTokens)
		}
	}
	assert.Equal(t, 38, total)
}
