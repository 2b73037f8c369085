package baloot

import (
	"math/rand/v2"
	"strings"
)

// ModeSelector 决定本局的玩法和主花色
// 叫牌环节没有实现，由选择器代替；无主时主花色为 SuitNone
type ModeSelector func() (Mode, Suit)

// RandomSelector 等概率选择玩法，有主时再等概率选择主花色
func RandomSelector() (Mode, Suit) {
	if rand.IntN(2) == 0 {
		return ModeSun, SuitNone
	}
	return ModeHokum, suits[rand.IntN(len(suits))]
}

// FixedSelector 每局都使用相同的玩法
func FixedSelector(mode Mode, trump Suit) ModeSelector {
	return func() (Mode, Suit) {
		return mode, trump
	}
}

// ParseSelector 从配置解析选择器
// 支持 "random"、"sun"、"hokum:<花色>"，例如 "hokum:S" 或 "hokum:spades"
func ParseSelector(s string) (ModeSelector, error) {
	name, arg, _ := strings.Cut(strings.ToLower(strings.TrimSpace(s)), ":")
	switch name {
	case "", "random":
		return RandomSelector, nil
	case "sun":
		return FixedSelector(ModeSun, SuitNone), nil
	case "hokum":
		trump, err := ParseSuit(strings.ToUpper(arg))
		if err != nil {
			trump, err = ParseSuit(arg)
		}
		if err != nil {
			return nil, ErrInvalidMode
		}
		return FixedSelector(ModeHokum, trump), nil
	default:
		return nil, ErrInvalidMode
	}
}
