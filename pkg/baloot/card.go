package baloot

import (
	"math/rand/v2"
	"strings"
)

// Card 代表一张扑克牌
type Card struct {
	Rank Rank
	Suit Suit
}

// NewCard
func NewCard(rank Rank, suit Suit) Card {
	return Card{
		Rank: rank,
		Suit: suit,
	}
}

// ParseCard 从 ID 解析出牌，格式与 Card.ID 相同，例如 "H-10"
func ParseCard(id string) (Card, error) {
	suitCode, rankCode, ok := strings.Cut(id, "-")
	if !ok {
		return Card{}, ErrInvalidCard
	}
	suit, err := ParseSuit(suitCode)
	if err != nil {
		return Card{}, err
	}
	rank, err := ParseRank(rankCode)
	if err != nil {
		return Card{}, err
	}
	return NewCard(rank, suit), nil
}

// IsValid 是否为 32 张牌中的一张
func (c Card) IsValid() bool {
	return c.Suit.IsValid() && c.Rank.IsValid()
}

// ID 牌的唯一标识，例如 "S-J"
func (c Card) ID() string {
	return c.Suit.Code() + "-" + c.Rank.String()
}

func (c Card) String() string {
	return c.ID()
}

// MarshalText 序列化为 ID，JSON 中的牌都是字符串
func (c Card) MarshalText() ([]byte, error) {
	if !c.IsValid() {
		return nil, ErrInvalidCard
	}
	return []byte(c.ID()), nil
}

// UnmarshalText 从 ID 反序列化
func (c *Card) UnmarshalText(data []byte) error {
	card, err := ParseCard(string(data))
	if err != nil {
		return err
	}
	*c = card
	return nil
}

// code 单字节编码，高 4 位为花色，低 4 位为点数
func (c Card) code() byte {
	return byte(c.Suit)<<4 | byte(c.Rank)
}

func cardFromCode(b byte) Card {
	return NewCard(Rank(b&0x0F), Suit(b>>4))
}

type Cards []Card

// NewDeck 生成一副 32 张的牌，按花色、点数排序
func NewDeck() Cards {
	cards := make(Cards, 0, DeckSize)
	for _, suit := range suits {
		for _, rank := range ranks {
			cards = append(cards, NewCard(rank, suit))
		}
	}
	return cards
}

// NewShuffledDeck 生成一副洗好的牌
func NewShuffledDeck() Cards {
	cards := NewDeck()
	cards.Shuffle()
	return cards
}

// Shuffle 洗牌，随机打乱牌的顺序
func (cs Cards) Shuffle() {
	rand.Shuffle(len(cs), func(i, j int) {
		cs[i], cs[j] = cs[j], cs[i]
	})
}

// Deal 发牌，按顺序把牌平均分成 4 份，每份内保持发牌顺序
// 不洗牌，洗牌由调用方决定
func (cs Cards) Deal() (hands [SeatCount]Cards) {
	perSeat := len(cs) / SeatCount
	for i := range SeatCount {
		start := i * perSeat
		hands[i] = make(Cards, perSeat)
		copy(hands[i], cs[start:start+perSeat])
	}
	return hands
}

// Index 返回牌的位置，找不到返回 -1
func (cs Cards) Index(card Card) int {
	for i, c := range cs {
		if c == card {
			return i
		}
	}
	return -1
}

// Contains 是否包含指定的牌
func (cs Cards) Contains(card Card) bool {
	return cs.Index(card) >= 0
}

// HasSuit 是否有指定花色的牌
func (cs Cards) HasSuit(suit Suit) bool {
	for _, c := range cs {
		if c.Suit == suit {
			return true
		}
	}
	return false
}

// Clone 复制一份
func (cs Cards) Clone() Cards {
	if cs == nil {
		return nil
	}
	out := make(Cards, len(cs))
	copy(out, cs)
	return out
}

// IDs 返回所有牌的 ID
func (cs Cards) IDs() []string {
	ids := make([]string, len(cs))
	for i, c := range cs {
		ids[i] = c.ID()
	}
	return ids
}
