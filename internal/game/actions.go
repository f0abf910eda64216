package game

import (
	"github.com/wfunc/hodl-up/internal/errors"

	"go.uber.org/zap"
)

// ExecutePlayAction 动作分发入口
// 所有对GameState的修改都必须经过这里。每个处理函数都先校验
// 全部前置条件再动手改状态，失败时状态保持原样
func (e *Engine) ExecutePlayAction(state *GameState, action *PlayAction) error {
	if state.GameStatus == StatusSetup {
		return errors.New(errors.ErrGameNotStarted)
	}
	if state.GameStatus == StatusFinished {
		return errors.New(errors.ErrGameFinished)
	}

	player := state.GetPlayer(action.PlayerID)
	if player == nil {
		return errors.New(errors.ErrPlayerNotFound, action.PlayerID)
	}
	if !player.IsCurrentTurn {
		return errors.New(errors.ErrNotYourTurn)
	}

	var err error
	switch action.Type {
	case ActionMine:
		err = e.handleMine(state, action)
	case ActionBuyMiningRig:
		err = e.handleBuyMiningRig(state, action)
	case ActionMoveToColdStorage:
		err = e.handleMoveToColdStorage(state, action)
	case ActionMoveToNextBlock:
		err = e.handleMoveToNextBlock(state, action)
	default:
		err = errors.New(errors.ErrUnknownAction, string(action.Type))
	}
	if err != nil {
		return err
	}

	e.logger.Debug("动作执行完成",
		zap.String("game_id", state.GameID),
		zap.String("player_id", action.PlayerID),
		zap.String("action", string(action.Type)),
		zap.Int("round", state.Round))
	return nil
}

// handleMine 挖矿动作
// 按矿机数抽牌；如果动作附带4张交易牌，先在抽牌前做完整校验，
// 再入块并把用掉的牌移入弃牌堆。交易无效（余额或难度不满足）时
// 只抽牌不入块，牌留在手上
func (e *Engine) handleMine(state *GameState, action *PlayAction) error {
	player := state.GetPlayer(action.PlayerID)

	var tx *Transaction
	if action.Data != nil && len(action.Data.TransactionCards) > 0 {
		// 构建交易不触碰状态，可以安全地在抽牌前做
		var err error
		tx, err = e.CreateTransaction(state, state.CurrentBlock, action.Data.TransactionCards)
		if err != nil {
			return err
		}
		// 交易牌必须全部在手牌里
		for _, card := range tx.Cards {
			if !playerHoldsCard(player, card.ID) {
				return errors.Newf(errors.ErrInsufficientCards, "手牌中没有卡牌 %s", card.ID)
			}
		}
		// 入块的前置条件也要在抽牌前确认，否则失败时手牌和牌库已经变了
		if tx.IsValid {
			if err := e.CheckTransactionPreconditions(state, state.CurrentBlock, tx); err != nil {
				return err
			}
		}
	}

	if err := e.PerformMining(state, action.PlayerID); err != nil {
		return err
	}

	if tx != nil && tx.IsValid {
		if err := e.AddTransactionToBlock(state, state.CurrentBlock, tx); err != nil {
			return err
		}

		cardIDs := make([]string, len(tx.Cards))
		for i, card := range tx.Cards {
			cardIDs[i] = card.ID
		}
		played, err := e.PlayCards(state, action.PlayerID, cardIDs)
		if err != nil {
			return err
		}
		state.DiscardPile = append(state.DiscardPile, played...)
	}

	return e.endTurn(state)
}

// handleBuyMiningRig 购买矿机动作
func (e *Engine) handleBuyMiningRig(state *GameState, action *PlayAction) error {
	player := state.GetPlayer(action.PlayerID)

	if !e.CanAffordMiningRig(state, player.WalletColor) {
		if state.AvailableMiningRigs <= 0 {
			return errors.New(errors.ErrNoRigsAvailable)
		}
		return errors.New(errors.ErrCannotAffordRig)
	}

	if err := e.BuyMiningRig(state, player.WalletColor); err != nil {
		return err
	}
	return e.endTurn(state)
}

// handleMoveToColdStorage 冷存储转移动作
// 回合内转移规则：单次只能转1或2枚（钱包层的通用转移没有这个上限）
func (e *Engine) handleMoveToColdStorage(state *GameState, action *PlayAction) error {
	player := state.GetPlayer(action.PlayerID)

	amount := 1
	if action.Data != nil && action.Data.Amount != 0 {
		amount = action.Data.Amount
	}
	if amount < 1 || amount > e.rules.MaxColdStorageMove {
		return errors.Newf(errors.ErrInvalidAmount,
			"单次只能转移1到%d枚比特币", e.rules.MaxColdStorageMove)
	}

	if err := e.MoveToColdStorage(state, player.WalletColor, amount); err != nil {
		return err
	}
	return e.endTurn(state)
}

// handleMoveToNextBlock 推进区块动作
func (e *Engine) handleMoveToNextBlock(state *GameState, action *PlayAction) error {
	if err := e.MoveToNextBlock(state); err != nil {
		return err
	}

	if state.GameStatus == StatusPlaying && e.NeedsDifficultyAdjustment(state) {
		e.AdjustDifficulty(state)
		e.logger.Info("难度调整",
			zap.String("game_id", state.GameID),
			zap.Int("block", state.CurrentBlock),
			zap.Int("difficulty", state.Difficulty))
	}
	return e.endTurn(state)
}

// endTurn 结束当前回合并轮转到下一位在场玩家
// 跳过已离场的玩家，转满一圈都找不到则报NoActivePlayers；
// 轮转回0号玩家时回合数加一
func (e *Engine) endTurn(state *GameState) error {
	current := -1
	for i := range state.Players {
		if state.Players[i].ID == state.CurrentTurnPlayerID {
			current = i
			break
		}
	}
	if current == -1 {
		return errors.New(errors.ErrPlayerNotFound, state.CurrentTurnPlayerID)
	}

	state.Players[current].IsCurrentTurn = false

	next := (current + 1) % len(state.Players)
	for !state.Players[next].IsActive {
		next = (next + 1) % len(state.Players)
		if next == current {
			return errors.New(errors.ErrNoActivePlayers)
		}
	}

	state.Players[next].IsCurrentTurn = true
	state.CurrentTurnPlayerID = state.Players[next].ID

	if next == 0 {
		state.Round++
	}
	return nil
}

// GetAvailableActions 获取玩家当前可执行的动作列表
// 不在自己回合时返回空；挖矿和推进区块始终可选，
// 买矿机和冷存储转移按经济条件判断
func (e *Engine) GetAvailableActions(state *GameState, playerID string) []PlayOption {
	player := state.GetPlayer(playerID)
	if player == nil || !player.IsCurrentTurn {
		return []PlayOption{}
	}

	actions := []PlayOption{ActionMine}

	if e.CanAffordMiningRig(state, player.WalletColor) {
		actions = append(actions, ActionBuyMiningRig)
	}
	if wallet := state.GetWallet(player.WalletColor); wallet != nil && wallet.HotStorage > 0 {
		actions = append(actions, ActionMoveToColdStorage)
	}

	return append(actions, ActionMoveToNextBlock)
}

// IsGameOver 判断对局是否结束
func (e *Engine) IsGameOver(state *GameState) bool {
	return state.GameStatus == StatusFinished || state.CurrentBlock > e.rules.LastBlock
}

// CalculateFinalScores 终局结算
// 每位玩家的得分 = 热存储 + 冷存储 + 矿机数x2
func (e *Engine) CalculateFinalScores(state *GameState) []ScoreEntry {
	scores := make([]ScoreEntry, 0, len(state.Players))
	for i := range state.Players {
		player := &state.Players[i]
		score := 0
		if wallet := state.GetWallet(player.WalletColor); wallet != nil {
			score = TotalBitcoin(wallet) + wallet.MiningRigs*2
		}
		scores = append(scores, ScoreEntry{PlayerID: player.ID, Score: score})
	}
	return scores
}

// playerHoldsCard 玩家手牌中是否有指定卡牌
func playerHoldsCard(player *Player, cardID string) bool {
	for _, card := range player.Hand {
		if card.ID == cardID {
			return true
		}
	}
	return false
}
