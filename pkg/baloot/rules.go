package baloot

// IsLegal 判断在当前这一墩能否打出这张牌
// 首家可以出任意手牌；之后如果手里有首出花色，必须跟同花色，否则任意出
//
// 没有实现"跟不上花色且对手领先时必须出主牌"的规则
func IsLegal(card Card, hand Cards, trick Trick) bool {
	if !hand.Contains(card) {
		return false
	}
	lead, ok := trick.Lead()
	if !ok {
		return true
	}
	if card.Suit == lead {
		return true
	}
	return !hand.HasSuit(lead)
}

// LegalMoves 返回手牌中所有可以出的牌，保持手牌顺序
func LegalMoves(hand Cards, trick Trick) Cards {
	moves := make(Cards, 0, len(hand))
	for _, c := range hand {
		if IsLegal(c, hand, trick) {
			moves = append(moves, c)
		}
	}
	return moves
}
