package baloot

// TrickPlay 一墩中的一次出牌
type TrickPlay struct {
	Seat int8 `json:"seat"`
	Card Card `json:"card"`
}

// Trick 当前这一墩，按出牌顺序记录，最多 4 次
type Trick []TrickPlay

// Lead 首出花色，空墩返回 false
func (t Trick) Lead() (Suit, bool) {
	if len(t) == 0 {
		return SuitNone, false
	}
	return t[0].Card.Suit, true
}

// IsComplete 四家是否都已出牌
func (t Trick) IsComplete() bool {
	return len(t) == TrickSize
}

// Cards 本墩所有的牌
func (t Trick) Cards() Cards {
	cards := make(Cards, len(t))
	for i, p := range t {
		cards[i] = p.Card
	}
	return cards
}

// Clone 复制一份
func (t Trick) Clone() Trick {
	if t == nil {
		return nil
	}
	out := make(Trick, len(t))
	copy(out, t)
	return out
}

// ResolveTrick 计算一墩的赢家和分数
// 从首家开始，依次与当前最大的牌比较
func ResolveTrick(trick Trick, policy Policy) (winner int8, points int, err error) {
	if !trick.IsComplete() {
		return NoSeat, 0, ErrTrickIncomplete
	}
	winner, points = resolve(trick, policy)
	return winner, points, nil
}

func resolve(trick Trick, policy Policy) (winner int8, points int) {
	lead := trick[0].Card.Suit
	best := trick[0]
	for _, play := range trick[1:] {
		if policy.Higher(play.Card, best.Card, lead) {
			best = play
		}
	}
	for _, play := range trick {
		points += policy.Points(play.Card)
	}
	return best.Seat, points
}

// CompletedTrick 已经结算的一墩
type CompletedTrick struct {
	Leader int8            // 首家座位
	Winner int8            // 赢家座位
	Cards  [TrickSize]Card // 按出牌顺序，第 i 张由 (Leader+i)%4 打出
}

// Plays 还原成出牌记录
func (ct CompletedTrick) Plays() Trick {
	trick := make(Trick, TrickSize)
	for i, c := range ct.Cards {
		trick[i] = TrickPlay{Seat: (ct.Leader + int8(i)) % SeatCount, Card: c}
	}
	return trick
}

// Points 在指定规则下的分数
func (ct CompletedTrick) Points(policy Policy) int {
	return policy.Sum(ct.Cards[:])
}

type Tricks []CompletedTrick

// MarshalBinary 序列化为二进制，见 Encode
func (ts Tricks) MarshalBinary() (data []byte, err error) {
	return ts.Encode(), nil
}

// Encode 序列化为二进制
// 每墩 5 个字节：首字节低 4 位为首家，高 4 位为赢家，后面 4 个字节为牌
func (ts Tricks) Encode() []byte {
	data := make([]byte, len(ts)*5)
	for i, t := range ts {
		data[i*5] = byte(t.Leader&0xF) | byte((t.Winner&0xF)<<4)
		for j, c := range t.Cards {
			data[i*5+1+j] = c.code()
		}
	}
	return data
}

// UnmarshalBinary 从二进制反序列化
func (ts *Tricks) UnmarshalBinary(data []byte) error {
	if len(data)%5 != 0 {
		return ErrInvalidTricks
	}
	length := len(data) / 5
	*ts = make(Tricks, length)
	for i := 0; i < length; i++ {
		t := CompletedTrick{
			Leader: int8(data[i*5] & 0x0F),
			Winner: int8((data[i*5] >> 4) & 0x0F),
		}
		for j := range t.Cards {
			t.Cards[j] = cardFromCode(data[i*5+1+j])
			if !t.Cards[j].IsValid() {
				return ErrInvalidTricks
			}
		}
		if t.Leader >= SeatCount || t.Winner >= SeatCount {
			return ErrInvalidTricks
		}
		(*ts)[i] = t
	}
	return nil
}
