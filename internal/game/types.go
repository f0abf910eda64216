package game

import "encoding/json"

// WalletColor 钱包颜色（同时是玩家身份颜色）
type WalletColor string

const (
	ColorYellow WalletColor = "yellow"
	ColorOrange WalletColor = "orange"
	ColorWhite  WalletColor = "white"
	ColorRed    WalletColor = "red"
	ColorGreen  WalletColor = "green"
	ColorBlue   WalletColor = "blue"
)

// AllColors 固定的6种钱包颜色（顺序即发牌顺序）
var AllColors = []WalletColor{
	ColorYellow,
	ColorOrange,
	ColorWhite,
	ColorRed,
	ColorGreen,
	ColorBlue,
}

// CardType 卡牌类型
type CardType string

const (
	CardIdentity CardType = "identity" // 身份牌（颜色+数值）
	CardBitcoin  CardType = "bitcoin"  // 比特币牌（转账金额）
	CardHash     CardType = "hash"     // 哈希牌（指定收款方）
)

// Card 卡牌
// 三种类型共用一个结构体，按Type区分有效字段：
//   - identity: Color + Value(1-9)
//   - bitcoin:  Value(1-9) + SymbolCount(1-4，仅展示用)
//   - hash:     RecipientColor + Value(-5..10)
//
// 卡牌创建后不可变，只在牌堆、手牌、弃牌堆之间转移归属
type Card struct {
	ID             string      `json:"id"`
	Type           CardType    `json:"type"`
	Color          WalletColor `json:"color,omitempty"`
	RecipientColor WalletColor `json:"recipient_color,omitempty"`
	Value          int         `json:"value"`
	SymbolCount    int         `json:"symbol_count,omitempty"`
}

// Wallet 钱包（每种颜色一个，共6个）
type Wallet struct {
	Color       WalletColor `json:"color"`
	HotStorage  int         `json:"hot_storage"`  // 热存储（可消费）
	ColdStorage int         `json:"cold_storage"` // 冷存储（受保护）
	MiningRigs  int         `json:"mining_rigs"`  // 持有的矿机数
	PlayerID    string      `json:"player_id,omitempty"`
	IsAssigned  bool        `json:"is_assigned"` // 是否已分配给玩家
}

// Transaction 交易（固定4张牌：身份+比特币+身份+哈希）
type Transaction struct {
	ID          string      `json:"id"`
	Cards       []Card      `json:"cards"`
	From        WalletColor `json:"from"`   // 第一张身份牌的颜色
	To          WalletColor `json:"to"`     // 哈希牌的收款颜色
	Amount      int         `json:"amount"` // 比特币牌的数值
	BlockNumber int         `json:"block_number"`
	IsValid     bool        `json:"is_valid"`
}

// Block 时间链上的一个区块（编号11-31）
type Block struct {
	Number        int           `json:"number"`
	BitcoinTokens int           `json:"bitcoin_tokens"` // 区块上的比特币奖励
	Transactions  []Transaction `json:"transactions"`
	IsGenesis     bool          `json:"is_genesis"`
	IsMined       bool          `json:"is_mined"`
	MinedBy       WalletColor   `json:"mined_by,omitempty"`
	Difficulty    int           `json:"difficulty"` // 创建时的难度阈值
}

// Player 玩家
type Player struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	WalletColor   WalletColor `json:"wallet_color"`
	Hand          []Card      `json:"hand"`
	IsActive      bool        `json:"is_active"`
	IsCurrentTurn bool        `json:"is_current_turn"`
}

// GameStatus 游戏状态枚举
type GameStatus string

const (
	StatusSetup    GameStatus = "setup"
	StatusPlaying  GameStatus = "playing"
	StatusFinished GameStatus = "finished"
)

// GameState 游戏状态聚合根
// 单一数据源：所有组件读写同一个实例，修改只允许通过动作分发入口
type GameState struct {
	GameID              string     `json:"game_id"`
	Players             []Player   `json:"players"`
	Wallets             []Wallet   `json:"wallets"`
	Blocks              []Block    `json:"blocks"`
	CurrentBlock        int        `json:"current_block"`
	Difficulty          int        `json:"difficulty"`
	AvailableMiningRigs int        `json:"available_mining_rigs"`
	Deck                []Card     `json:"deck"`
	DiscardPile         []Card     `json:"discard_pile"`
	CurrentTurnPlayerID string     `json:"current_turn_player_id"`
	Round               int        `json:"round"`
	MaxRounds           int        `json:"max_rounds"`
	GameStatus          GameStatus `json:"game_status"`
}

// Clone 深拷贝游戏状态
// 序列化再反序列化，副本与原状态完全脱钩，交给会话锁外的
// 读取方（序列化响应、广播）不会和后续动作产生数据竞争
func (s *GameState) Clone() *GameState {
	raw, err := json.Marshal(s)
	if err != nil {
		// 状态只含可序列化的普通字段，走不到这里
		return s
	}
	copied := &GameState{}
	if err := json.Unmarshal(raw, copied); err != nil {
		return s
	}
	return copied
}

// PlayOption 玩家可执行的动作类型
type PlayOption string

const (
	ActionMine              PlayOption = "mine"
	ActionBuyMiningRig      PlayOption = "buy_mining_rig"
	ActionMoveToColdStorage PlayOption = "move_to_cold_storage"
	ActionMoveToNextBlock   PlayOption = "move_to_next_block"
)

// ActionData 动作附带数据
type ActionData struct {
	TransactionCards []Card `json:"transaction_cards,omitempty"` // 挖矿时可选的4张交易牌
	Amount           int    `json:"amount,omitempty"`            // 移入冷存储的数量（1或2）
}

// PlayAction 玩家动作
type PlayAction struct {
	Type     PlayOption  `json:"type"`
	PlayerID string      `json:"player_id"`
	Data     *ActionData `json:"data,omitempty"`
}

// ScoreEntry 单个玩家的最终得分
type ScoreEntry struct {
	PlayerID string `json:"player_id"`
	Score    int    `json:"score"`
}

// GetWallet 按颜色查找钱包
func (s *GameState) GetWallet(color WalletColor) *Wallet {
	for i := range s.Wallets {
		if s.Wallets[i].Color == color {
			return &s.Wallets[i]
		}
	}
	return nil
}

// GetPlayer 按ID查找玩家
func (s *GameState) GetPlayer(playerID string) *Player {
	for i := range s.Players {
		if s.Players[i].ID == playerID {
			return &s.Players[i]
		}
	}
	return nil
}

// GetBlock 按编号查找区块
func (s *GameState) GetBlock(number int) *Block {
	for i := range s.Blocks {
		if s.Blocks[i].Number == number {
			return &s.Blocks[i]
		}
	}
	return nil
}

// GetCurrentBlock 获取当前区块
func (s *GameState) GetCurrentBlock() *Block {
	return s.GetBlock(s.CurrentBlock)
}

// PlayerWallets 获取所有已分配给玩家的钱包
func (s *GameState) PlayerWallets() []*Wallet {
	var wallets []*Wallet
	for i := range s.Wallets {
		if s.Wallets[i].PlayerID != "" {
			wallets = append(wallets, &s.Wallets[i])
		}
	}
	return wallets
}
