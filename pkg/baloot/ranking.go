package baloot

// 分值表
var (
	// 有主玩法下主花色的分值
	trumpPoints = [RankA + 1]int{Rank7: 0, Rank8: 0, Rank9: 14, Rank10: 10, RankJ: 20, RankQ: 3, RankK: 4, RankA: 11}
	// 副花色以及无主玩法下所有花色的分值
	plainPoints = [RankA + 1]int{Rank7: 0, Rank8: 0, Rank9: 0, Rank10: 10, RankJ: 2, RankQ: 3, RankK: 4, RankA: 11}
)

// 大小顺序，数值越大越大
var (
	// 主花色：J 9 A 10 K Q 8 7
	trumpOrder = [RankA + 1]uint8{Rank7: 1, Rank8: 2, RankQ: 3, RankK: 4, Rank10: 5, RankA: 6, Rank9: 7, RankJ: 8}
	// 其他花色：A 10 K Q J 9 8 7
	plainOrder = [RankA + 1]uint8{Rank7: 1, Rank8: 2, Rank9: 3, RankJ: 4, RankQ: 5, RankK: 6, Rank10: 7, RankA: 8}
)

// Policy 一局的比牌规则，由玩法和主花色决定
type Policy struct {
	Mode  Mode
	Trump Suit // 只有 ModeHokum 时有值
}

// NewPolicy 校验玩法和主花色是否匹配
func NewPolicy(mode Mode, trump Suit) (Policy, error) {
	switch mode {
	case ModeSun:
		if trump != SuitNone {
			return Policy{}, ErrInvalidMode
		}
	case ModeHokum:
		if !trump.IsValid() {
			return Policy{}, ErrInvalidMode
		}
	default:
		return Policy{}, ErrInvalidMode
	}
	return Policy{Mode: mode, Trump: trump}, nil
}

// IsTrump 是否为主牌
func (p Policy) IsTrump(c Card) bool {
	return p.Mode == ModeHokum && c.Suit == p.Trump
}

// Points 牌的分值
func (p Policy) Points(c Card) int {
	if !c.Rank.IsValid() {
		return 0
	}
	if p.IsTrump(c) {
		return trumpPoints[c.Rank]
	}
	return plainPoints[c.Rank]
}

// strength 同花色内的大小
func (p Policy) strength(c Card) uint8 {
	if p.IsTrump(c) {
		return trumpOrder[c.Rank]
	}
	return plainOrder[c.Rank]
}

// Higher 判断 a 是否比 b 大，lead 为首出花色
// 主牌大于非主牌；都是主牌按主牌顺序比较；
// 非主牌中，不是首出花色的牌永远不会更大
func (p Policy) Higher(a, b Card, lead Suit) bool {
	aTrump, bTrump := p.IsTrump(a), p.IsTrump(b)
	switch {
	case aTrump && !bTrump:
		return true
	case !aTrump && bTrump:
		return false
	case aTrump && bTrump:
		return trumpOrder[a.Rank] > trumpOrder[b.Rank]
	}

	if a.Suit != lead {
		return false
	}
	if b.Suit != lead {
		return true
	}
	return plainOrder[a.Rank] > plainOrder[b.Rank]
}

// Total 整副牌在当前规则下的总分
// 无主 120，有主 152
func (p Policy) Total() (total int) {
	for _, c := range NewDeck() {
		total += p.Points(c)
	}
	return total
}

// Sum 一组牌的分值之和
func (p Policy) Sum(cards Cards) (total int) {
	for _, c := range cards {
		total += p.Points(c)
	}
	return total
}
