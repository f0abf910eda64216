package game

import (
	"fmt"

	"github.com/wfunc/hodl-up/internal/errors"
)

// identityDistribution 身份牌数值分布（6色总量）
// 数值越大牌越多，9的数量是1的三倍
var identityDistribution = map[int]int{
	1: 6,
	2: 6,
	3: 6,
	4: 12,
	5: 12,
	6: 12,
	7: 12,
	8: 12,
	9: 18,
}

// bitcoinVariants 比特币牌的数值与符号数组合表（共19张）
// 数值1-2只有1个符号，数值越大可带的符号越多
var bitcoinVariants = []struct {
	value       int
	symbolCount int
}{
	{1, 1},
	{2, 1},
	{3, 1}, {3, 2},
	{4, 1}, {4, 2},
	{5, 1}, {5, 2}, {5, 3},
	{6, 2}, {6, 3}, {6, 4},
	{7, 2}, {7, 3}, {7, 4},
	{8, 3}, {8, 4},
	{9, 3}, {9, 4},
}

// hashValueMin 哈希牌数值范围 -5..10（共16张）
const (
	hashValueMin = -5
	hashValueMax = 10
)

// NewDeck 生成完整牌组
// 身份牌96张 + 比特币牌19张 + 哈希牌16张 = 131张。
// 哈希牌的收款颜色由引擎随机源决定，同一种子下结果一致
func (e *Engine) NewDeck() []Card {
	cards := make([]Card, 0, 131)

	// 身份牌：每个数值的总量平分到6种颜色
	for value := 1; value <= 9; value++ {
		perColor := identityDistribution[value] / len(AllColors)
		for _, color := range AllColors {
			for i := 0; i < perColor; i++ {
				cards = append(cards, Card{
					ID:    fmt.Sprintf("identity_%s_%d_%d", color, value, i),
					Type:  CardIdentity,
					Color: color,
					Value: value,
				})
			}
		}
	}

	// 比特币牌：按组合表逐张生成
	for _, v := range bitcoinVariants {
		cards = append(cards, Card{
			ID:          fmt.Sprintf("bitcoin_%d_%d", v.value, v.symbolCount),
			Type:        CardBitcoin,
			Value:       v.value,
			SymbolCount: v.symbolCount,
		})
	}

	// 哈希牌：每个数值一张，收款颜色随机
	for value := hashValueMin; value <= hashValueMax; value++ {
		cards = append(cards, Card{
			ID:             fmt.Sprintf("hash_%d", value),
			Type:           CardHash,
			RecipientColor: AllColors[e.rng.Intn(len(AllColors))],
			Value:          value,
		})
	}

	return cards
}

// ReferenceDeck 生成参考牌组（交易构建界面展示全部卡牌变体用，与对局牌堆无关）
func (e *Engine) ReferenceDeck() []Card {
	return e.NewDeck()
}

// ShuffleCards Fisher-Yates洗牌，原地打乱
func (e *Engine) ShuffleCards(cards []Card) {
	for i := len(cards) - 1; i > 0; i-- {
		j := e.rng.Intn(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
}

// DealInitialHand 发初始手牌
// 按身份、比特币、身份、哈希的顺序从牌堆中各取第一张（直接从牌堆移除）。
// 某类牌耗尽时跳过该张，返回不足4张的手牌，不报错
func (e *Engine) DealInitialHand(deck *[]Card) []Card {
	hand := make([]Card, 0, 4)
	for _, want := range []CardType{CardIdentity, CardBitcoin, CardIdentity, CardHash} {
		for i := range *deck {
			if (*deck)[i].Type == want {
				hand = append(hand, (*deck)[i])
				*deck = append((*deck)[:i], (*deck)[i+1:]...)
				break
			}
		}
	}
	return hand
}

// DrawCards 玩家从牌堆抽牌
// 牌堆不足时先把弃牌堆洗回牌堆；仍不足则报错且不改动任何状态
func (e *Engine) DrawCards(state *GameState, playerID string, count int) error {
	player := state.GetPlayer(playerID)
	if player == nil {
		return errors.New(errors.ErrPlayerNotFound, playerID)
	}

	// 先确认总量够，避免白白触发洗牌
	if len(state.Deck)+len(state.DiscardPile) < count {
		return errors.Newf(errors.ErrInsufficientCards,
			"牌堆剩余%d张, 需要%d张", len(state.Deck)+len(state.DiscardPile), count)
	}

	if len(state.Deck) < count {
		e.ShuffleCards(state.DiscardPile)
		state.Deck = append(state.Deck, state.DiscardPile...)
		state.DiscardPile = nil
	}

	drawn := state.Deck[:count]
	player.Hand = append(player.Hand, drawn...)
	state.Deck = state.Deck[count:]
	return nil
}

// DiscardCard 从玩家手牌弃一张牌到弃牌堆
func (e *Engine) DiscardCard(state *GameState, playerID, cardID string) error {
	player := state.GetPlayer(playerID)
	if player == nil {
		return errors.New(errors.ErrPlayerNotFound, playerID)
	}

	for i := range player.Hand {
		if player.Hand[i].ID == cardID {
			state.DiscardPile = append(state.DiscardPile, player.Hand[i])
			player.Hand = append(player.Hand[:i], player.Hand[i+1:]...)
			return nil
		}
	}
	return errors.Newf(errors.ErrInsufficientCards, "手牌中没有卡牌 %s", cardID)
}

// PlayCards 从手牌中取出指定卡牌（不进弃牌堆，由调用方决定去向）
// 任何一张找不到就整体失败，手牌不变
func (e *Engine) PlayCards(state *GameState, playerID string, cardIDs []string) ([]Card, error) {
	player := state.GetPlayer(playerID)
	if player == nil {
		return nil, errors.New(errors.ErrPlayerNotFound, playerID)
	}

	// 先确认每张都在手牌里，再按请求顺序逐张取出
	hand := make([]Card, len(player.Hand))
	copy(hand, player.Hand)

	played := make([]Card, 0, len(cardIDs))
	for _, cardID := range cardIDs {
		found := -1
		for i := range hand {
			if hand[i].ID == cardID {
				found = i
				break
			}
		}
		if found == -1 {
			return nil, errors.Newf(errors.ErrInsufficientCards, "手牌中没有卡牌 %s", cardID)
		}
		played = append(played, hand[found])
		hand = append(hand[:found], hand[found+1:]...)
	}
	player.Hand = hand
	return played, nil
}

// HasCardType 判断玩家手牌中是否有指定类型的牌
func HasCardType(player *Player, cardType CardType) bool {
	for _, card := range player.Hand {
		if card.Type == cardType {
			return true
		}
	}
	return false
}

// CardsByType 取玩家手牌中指定类型的全部牌
func CardsByType(player *Player, cardType CardType) []Card {
	var cards []Card
	for _, card := range player.Hand {
		if card.Type == cardType {
			cards = append(cards, card)
		}
	}
	return cards
}

// CanCreateTransaction 判断玩家手牌是否凑得出一笔交易（2身份+1比特币+1哈希）
func CanCreateTransaction(player *Player) bool {
	return len(CardsByType(player, CardIdentity)) >= 2 &&
		len(CardsByType(player, CardBitcoin)) >= 1 &&
		len(CardsByType(player, CardHash)) >= 1
}

// ValidateTransactionPattern 校验卡牌是否为固定交易模式：身份+比特币+身份+哈希
func ValidateTransactionPattern(cards []Card) bool {
	if len(cards) != 4 {
		return false
	}
	return cards[0].Type == CardIdentity &&
		cards[1].Type == CardBitcoin &&
		cards[2].Type == CardIdentity &&
		cards[3].Type == CardHash
}
