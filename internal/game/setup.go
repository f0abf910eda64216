package game

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/wfunc/hodl-up/internal/errors"

	"go.uber.org/zap"
)

// totalChainTokens 时间链上分布的比特币总量
const totalChainTokens = 38

// InitializeGame 初始化一局游戏
// 玩家按顺序分配钱包颜色，每人1台初始矿机和4张起手牌；
// 区块11-31各带1枚比特币奖励，难度取创世块的基础难度
func (e *Engine) InitializeGame(playerNames []string) (*GameState, error) {
	if len(playerNames) == 0 {
		return nil, errors.New(errors.ErrInvalidParam, "至少需要1名玩家")
	}
	if len(playerNames) > len(AllColors) {
		return nil, errors.Newf(errors.ErrInvalidParam,
			"最多支持%d名玩家, 收到%d名", len(AllColors), len(playerNames))
	}

	players := make([]Player, len(playerNames))
	for i, name := range playerNames {
		players[i] = Player{
			ID:            fmt.Sprintf("player_%d", i),
			Name:          name,
			WalletColor:   AllColors[i%len(AllColors)],
			Hand:          []Card{},
			IsActive:      true,
			IsCurrentTurn: i == 0,
		}
	}

	// 6个钱包全部创建，未分配的钱包保留为系统钱包
	wallets := make([]Wallet, len(AllColors))
	for i, color := range AllColors {
		wallets[i] = Wallet{Color: color}
		for j := range players {
			if players[j].WalletColor == color {
				wallets[i].MiningRigs = e.rules.StartingRigs
				wallets[i].PlayerID = players[j].ID
				wallets[i].IsAssigned = true
				break
			}
		}
	}

	blocks := make([]Block, 0, e.rules.LastBlock-e.rules.FirstBlock+1)
	for n := e.rules.FirstBlock; n <= e.rules.LastBlock; n++ {
		blocks = append(blocks, Block{
			Number:        n,
			BitcoinTokens: e.rules.BlockTokens,
			Transactions:  []Transaction{},
			IsGenesis:     n == e.rules.FirstBlock,
			Difficulty:    DifficultyByBlock(n),
		})
	}

	deck := e.NewDeck()
	e.ShuffleCards(deck)

	state := &GameState{
		GameID:              uuid.NewString(),
		Players:             players,
		Wallets:             wallets,
		Blocks:              blocks,
		CurrentBlock:        e.rules.FirstBlock,
		Difficulty:          DifficultyByBlock(e.rules.FirstBlock),
		AvailableMiningRigs: e.rules.TotalMiningRigs - len(players)*e.rules.StartingRigs,
		Deck:                deck,
		DiscardPile:         []Card{},
		CurrentTurnPlayerID: players[0].ID,
		Round:               1,
		MaxRounds:           e.rules.MaxRounds,
		GameStatus:          StatusPlaying,
	}

	// 起手牌：身份+比特币+身份+哈希各一张
	for i := range state.Players {
		state.Players[i].Hand = e.DealInitialHand(&state.Deck)
	}

	e.logger.Info("游戏初始化完成",
		zap.String("game_id", state.GameID),
		zap.Int("players", len(players)),
		zap.Int("deck_size", len(state.Deck)))
	return state, nil
}

// DistributeBitcoinTokens 在时间链上分布额外的比特币奖励
// 每个区块已有1枚打底，剩余的奖励优先补给编号不超过20的早期区块，
// 每块最多追加2枚，直到38枚分完
func DistributeBitcoinTokens(blocks []Block) {
	remaining := totalChainTokens - len(blocks)
	for i := range blocks {
		if remaining <= 0 {
			break
		}
		if blocks[i].Number <= 20 {
			extra := 2
			if remaining < extra {
				extra = remaining
			}
			blocks[i].BitcoinTokens += extra
			remaining -= extra
		}
	}
}
