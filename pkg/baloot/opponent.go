package baloot

// Strategy 机器人的出牌策略
// 由调用方在两次出牌之间调用，引擎本身不会调用
type Strategy interface {
	ChooseCard(seat int8, snapshot Snapshot) (Card, error)
}

// StrategyFunc 把函数适配成 Strategy
type StrategyFunc func(seat int8, snapshot Snapshot) (Card, error)

func (f StrategyFunc) ChooseCard(seat int8, snapshot Snapshot) (Card, error) {
	return f(seat, snapshot)
}

// FirstLegal 按手牌顺序出第一张合法的牌
type FirstLegal struct{}

func (FirstLegal) ChooseCard(seat int8, snapshot Snapshot) (Card, error) {
	moves := snapshot.LegalMoves(seat)
	if len(moves) == 0 {
		return Card{}, ErrNoLegalMove
	}
	return moves[0], nil
}
