package baloot

import "errors"

// Suit 牌的花色
type Suit uint8

const (
	SuitNone    Suit = iota
	SuitHeart        // 红桃
	SuitDiamond      // 方块
	SuitClub         // 梅花
	SuitSpade        // 黑桃
)

// Rank 牌的点数，只有 7 到 A
type Rank uint8

const (
	RankNone Rank = iota
	Rank7
	Rank8
	Rank9
	Rank10
	RankJ
	RankQ
	RankK
	RankA
)

// Mode 本局的玩法
type Mode uint8

const (
	ModeNone  Mode = iota
	ModeSun        // 无主（Sun）
	ModeHokum      // 有主（Hokum），需要指定主花色
)

// Phase 回合状态
type Phase int8

const (
	PhaseWaiting  Phase = iota // 未开始
	PhasePlaying               // 出牌中
	PhaseFinished              // 已结束
)

const (
	SeatCount = 4                    // 座位数
	HandSize  = 8                    // 每人手牌数
	DeckSize  = SeatCount * HandSize // 一副牌 32 张
	TrickSize = SeatCount            // 每墩牌张数
	NoSeat    = int8(-1)             // 没有座位（例如还没有人赢过一墩）
)

var (
	suits = []Suit{SuitHeart, SuitDiamond, SuitClub, SuitSpade}
	ranks = []Rank{Rank7, Rank8, Rank9, Rank10, RankJ, RankQ, RankK, RankA}

	suitCodes = [...]string{SuitNone: "", SuitHeart: "H", SuitDiamond: "D", SuitClub: "C", SuitSpade: "S"}
	suitNames = [...]string{SuitNone: "none", SuitHeart: "hearts", SuitDiamond: "diamonds", SuitClub: "clubs", SuitSpade: "spades"}
	rankCodes = [...]string{RankNone: "", Rank7: "7", Rank8: "8", Rank9: "9", Rank10: "10", RankJ: "J", RankQ: "Q", RankK: "K", RankA: "A"}
)

// 错误定义
var (
	ErrRoundNotPlaying  = errors.New("round not playing")
	ErrRoundInProgress  = errors.New("round in progress")
	ErrRoundNotFinished = errors.New("round not finished")
	ErrRoundFolded      = errors.New("round already folded")
	ErrRoundNotFolded   = errors.New("round not folded")
	ErrInvalidSeat      = errors.New("invalid seat")
	ErrNotYourTurn      = errors.New("not your turn")
	ErrCardNotInHand    = errors.New("card not in hand")
	ErrMustFollowSuit   = errors.New("must follow lead suit")
	ErrInvalidMode      = errors.New("invalid mode or trump")
	ErrInvalidCard      = errors.New("invalid card")
	ErrTrickIncomplete  = errors.New("trick incomplete")
	ErrNoLegalMove      = errors.New("no legal move")
	ErrInvalidTricks    = errors.New("invalid tricks data")
)

// Suits 返回四种花色，顺序固定
func Suits() []Suit {
	return append([]Suit(nil), suits...)
}

// Ranks 返回八种点数，从小到大
func Ranks() []Rank {
	return append([]Rank(nil), ranks...)
}

// IsValid 是否为四种花色之一
func (s Suit) IsValid() bool {
	return s >= SuitHeart && s <= SuitSpade
}

// Code 单字母代码，例如 H
func (s Suit) Code() string {
	if int(s) >= len(suitCodes) {
		return ""
	}
	return suitCodes[s]
}

func (s Suit) String() string {
	if int(s) >= len(suitNames) {
		return "unknown"
	}
	return suitNames[s]
}

// IsValid 是否为 7 到 A 之间的点数
func (r Rank) IsValid() bool {
	return r >= Rank7 && r <= RankA
}

func (r Rank) String() string {
	if int(r) >= len(rankCodes) {
		return ""
	}
	return rankCodes[r]
}

func (m Mode) String() string {
	switch m {
	case ModeSun:
		return "sun"
	case ModeHokum:
		return "hokum"
	default:
		return "none"
	}
}

func (p Phase) String() string {
	switch p {
	case PhasePlaying:
		return "playing"
	case PhaseFinished:
		return "finished"
	default:
		return "waiting"
	}
}

// ParseSuit 解析花色，支持单字母代码和英文全称
func ParseSuit(s string) (Suit, error) {
	for _, suit := range suits {
		if s == suit.Code() || s == suit.String() {
			return suit, nil
		}
	}
	return SuitNone, ErrInvalidCard
}

// ParseRank 解析点数
func ParseRank(s string) (Rank, error) {
	for _, rank := range ranks {
		if s == rank.String() {
			return rank, nil
		}
	}
	return RankNone, ErrInvalidCard
}
