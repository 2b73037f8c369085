package baloot

import (
	"time"

	"github.com/rs/zerolog/log"
)

// Round 一局牌的状态
// 只能通过 Start 和 Play 修改，不是并发安全的
type Round struct {
	phase           Phase
	players         [SeatCount]Player
	trick           Trick  // 当前这一墩
	turn            int8   // 当前出牌的座位
	dealer          int8   // 庄家座位
	policy          Policy // 本局比牌规则
	points          [2]int // 两队本局得分
	lastTrickWinner int8   // 上一墩的赢家
	tricks          Tricks // 已经结算的墩
	shuffle         func(Cards)
	startedAt       int64 // 开始时间（Unix时间戳，毫秒）
	finishedAt      int64 // 结束时间（Unix时间戳，毫秒）
	folded          bool  // 分数是否已经计入比赛
}

type RoundOption func(*Round)

// WithShuffler 替换洗牌函数，测试时可以传入固定顺序
func WithShuffler(fn func(Cards)) RoundOption {
	return func(r *Round) {
		if fn != nil {
			r.shuffle = fn
		}
	}
}

// WithNames 设置四个座位的名字
func WithNames(names [SeatCount]string) RoundOption {
	return func(r *Round) {
		for i := range r.players {
			r.players[i].Name = names[i]
		}
	}
}

// WithBots 设置哪些座位是机器人，其余为真人
func WithBots(seats ...int8) RoundOption {
	return func(r *Round) {
		for i := range r.players {
			r.players[i].IsBot = false
		}
		for _, seat := range seats {
			if IsValidSeat(seat) {
				r.players[seat].IsBot = true
			}
		}
	}
}

// NewRound 创建一局，默认 0 号位为真人，其余为机器人
func NewRound(opts ...RoundOption) *Round {
	r := &Round{
		phase:           PhaseWaiting,
		lastTrickWinner: NoSeat,
		shuffle:         Cards.Shuffle,
	}
	for i := range r.players {
		seat := int8(i)
		r.players[i] = NewPlayer(seat, defaultNames[i], seat != 0)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start 开始一局：洗牌、发牌、决定玩法，由庄家的下家先出
func (r *Round) Start(dealer int8, selector ModeSelector) error {
	if selector == nil {
		selector = RandomSelector
	}
	policy, err := NewPolicy(selector())
	if err != nil {
		return err
	}

	dealer = ((dealer % SeatCount) + SeatCount) % SeatCount

	deck := NewDeck()
	r.shuffle(deck)
	hands := deck.Deal()
	for i := range r.players {
		r.players[i].SetHand(hands[i])
	}

	r.policy = policy
	r.dealer = dealer
	r.turn = NextSeat(dealer)
	r.trick = make(Trick, 0, TrickSize)
	r.tricks = make(Tricks, 0, HandSize)
	r.points = [2]int{}
	r.lastTrickWinner = NoSeat
	r.phase = PhasePlaying
	r.folded = false
	r.startedAt = time.Now().UnixMilli()
	r.finishedAt = 0

	log.Trace().Int8("dealer", dealer).Str("mode", policy.Mode.String()).Str("trump", policy.Trump.String()).Msg("round started")
	return nil
}

// Play 玩家出牌
// 失败时返回错误，状态不做任何修改
func (r *Round) Play(seat int8, card Card) error {
	if r.phase != PhasePlaying {
		return ErrRoundNotPlaying
	}
	if !IsValidSeat(seat) {
		return ErrInvalidSeat
	}
	if seat != r.turn {
		return ErrNotYourTurn
	}

	player := &r.players[seat]
	if !player.Hand.Contains(card) {
		return ErrCardNotInHand
	}
	if !IsLegal(card, player.Hand, r.trick) {
		return ErrMustFollowSuit
	}

	player.Remove(card)
	r.trick = append(r.trick, TrickPlay{Seat: seat, Card: card})
	r.turn = NextSeat(seat)

	if r.trick.IsComplete() {
		r.finishTrick()
	}
	return nil
}

// PlayID 按牌的 ID 出牌
func (r *Round) PlayID(seat int8, id string) error {
	card, err := ParseCard(id)
	if err != nil {
		return err
	}
	return r.Play(seat, card)
}

// finishTrick 结算当前这一墩，赢家下一墩先出
func (r *Round) finishTrick() {
	winner, points := resolve(r.trick, r.policy)
	r.points[TeamOf(winner)] += points
	r.turn = winner
	r.lastTrickWinner = winner

	completed := CompletedTrick{Leader: r.trick[0].Seat, Winner: winner}
	for i, play := range r.trick {
		completed.Cards[i] = play.Card
	}
	r.tricks = append(r.tricks, completed)
	r.trick = make(Trick, 0, TrickSize)

	log.Trace().Int("trick", len(r.tricks)).Int8("winner", winner).Int("points", points).Msg("trick resolved")

	if r.handsEmpty() {
		r.phase = PhaseFinished
		r.finishedAt = time.Now().UnixMilli()
		log.Trace().Int("team0", r.points[0]).Int("team1", r.points[1]).Msg("round finished")
	}
}

func (r *Round) handsEmpty() bool {
	for i := range r.players {
		if r.players[i].HandCount() > 0 {
			return false
		}
	}
	return true
}

// IsLegal 判断座位当前能否出这张牌（不检查是否轮到）
func (r *Round) IsLegal(seat int8, card Card) bool {
	if !IsValidSeat(seat) {
		return false
	}
	return IsLegal(card, r.players[seat].Hand, r.trick)
}

// LegalMoves 座位当前可以出的牌，没轮到或者本局不在进行中返回空
func (r *Round) LegalMoves(seat int8) Cards {
	if r.phase != PhasePlaying || seat != r.turn {
		return nil
	}
	return LegalMoves(r.players[seat].Hand, r.trick)
}

// Phase 当前状态
func (r *Round) Phase() Phase {
	return r.phase
}

// IsFinished 本局是否结束
func (r *Round) IsFinished() bool {
	return r.phase == PhaseFinished
}

// Turn 当前出牌的座位
func (r *Round) Turn() int8 {
	return r.turn
}

// Dealer 庄家座位
func (r *Round) Dealer() int8 {
	return r.dealer
}

// Policy 本局的比牌规则
func (r *Round) Policy() Policy {
	return r.policy
}

// Points 两队本局得分
func (r *Round) Points() [2]int {
	return r.points
}

// Tricks 已经结算的墩，返回副本
func (r *Round) Tricks() Tricks {
	return append(Tricks(nil), r.tricks...)
}

// IsBot 座位是否为机器人
func (r *Round) IsBot(seat int8) bool {
	return IsValidSeat(seat) && r.players[seat].IsBot
}

// Result 本局结果，只有结束后才有效
func (r *Round) Result() (RoundResult, error) {
	if r.phase != PhaseFinished {
		return RoundResult{}, ErrRoundNotFinished
	}
	return RoundResult{
		Mode:       r.policy.Mode,
		Trump:      r.policy.Trump,
		Dealer:     r.dealer,
		Points:     r.points,
		Tricks:     r.Tricks(),
		StartedAt:  r.startedAt,
		FinishedAt: r.finishedAt,
	}, nil
}

// Snapshot 只读快照，修改快照不会影响本局
type Snapshot struct {
	Phase           Phase
	Players         [SeatCount]Player
	Trick           Trick
	Turn            int8
	Dealer          int8
	Mode            Mode
	Trump           Suit
	Points          [2]int
	LastTrickWinner int8
	TricksPlayed    int
}

// Snapshot 生成当前状态的快照
func (r *Round) Snapshot() Snapshot {
	s := Snapshot{
		Phase:           r.phase,
		Players:         r.players,
		Trick:           r.trick.Clone(),
		Turn:            r.turn,
		Dealer:          r.dealer,
		Mode:            r.policy.Mode,
		Trump:           r.policy.Trump,
		Points:          r.points,
		LastTrickWinner: r.lastTrickWinner,
		TricksPlayed:    len(r.tricks),
	}
	for i := range s.Players {
		s.Players[i].Hand = r.players[i].Hand.Clone()
	}
	return s
}

// Policy 快照中的比牌规则
func (s Snapshot) Policy() Policy {
	return Policy{Mode: s.Mode, Trump: s.Trump}
}

// Hand 座位的手牌
func (s Snapshot) Hand(seat int8) Cards {
	if !IsValidSeat(seat) {
		return nil
	}
	return s.Players[seat].Hand
}

// LegalMoves 座位在快照中可以出的牌
func (s Snapshot) LegalMoves(seat int8) Cards {
	if s.Phase != PhasePlaying || seat != s.Turn {
		return nil
	}
	return LegalMoves(s.Hand(seat), s.Trick)
}
