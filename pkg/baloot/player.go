package baloot

// 默认的玩家名字，0 号位是真人
var defaultNames = [SeatCount]string{"You", "Khalid", "Ahmed", "Omar"}

// Player 玩家信息
type Player struct {
	Seat  int8   // 座位 0-3
	Name  string // 名字
	Team  int8   // 0: 座位0,2  1: 座位1,3
	IsBot bool   // 是否为机器人
	Hand  Cards  // 当前手里的牌
}

// NewPlayer 创建一个新玩家
func NewPlayer(seat int8, name string, isBot bool) Player {
	return Player{
		Seat:  seat,
		Name:  name,
		Team:  TeamOf(seat),
		IsBot: isBot,
	}
}

// SetHand 设置玩家手牌
func (p *Player) SetHand(cards Cards) {
	p.Hand = cards
}

// Remove 从手牌中移除一张牌
// 返回是否成功（手牌中是否有这张牌）
func (p *Player) Remove(card Card) bool {
	i := p.Hand.Index(card)
	if i < 0 {
		return false
	}
	hand := make(Cards, 0, len(p.Hand)-1)
	hand = append(hand, p.Hand[:i]...)
	p.Hand = append(hand, p.Hand[i+1:]...)
	return true
}

// HandCount 返回手牌数量
func (p *Player) HandCount() int {
	return len(p.Hand)
}

// TeamOf 座位所在的队伍 (0,2一队 1,3一队)
func TeamOf(seat int8) int8 {
	return seat % 2
}

// NextSeat 下一个座位
func NextSeat(seat int8) int8 {
	return (seat + 1) % SeatCount
}

// IsValidSeat 是否为合法座位
func IsValidSeat(seat int8) bool {
	return seat >= 0 && seat < SeatCount
}
