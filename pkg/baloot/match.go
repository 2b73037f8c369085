package baloot

import "github.com/rs/zerolog/log"

// RoundResult 一局结束后的结果
type RoundResult struct {
	Mode       Mode
	Trump      Suit
	Dealer     int8
	Points     [2]int // 两队本局得分
	Tricks     Tricks // 本局 8 墩的记录
	StartedAt  int64
	FinishedAt int64
}

// Total 两队得分之和
func (rr RoundResult) Total() int {
	return rr.Points[0] + rr.Points[1]
}

// MatchState 比赛的累计状态，跨局保存
type MatchState struct {
	Scores [2]int // 两队总分
	Dealer int8   // 下一局的庄家
	Rounds int    // 已经结算的局数
}

// Match 多局比赛，累计两队的总分
type Match struct {
	state    MatchState
	selector ModeSelector
	opts     []RoundOption
	round    *Round
	results  []RoundResult // 历史记录，最近一局在0索引
}

// NewMatch 创建比赛，selector 为空时使用 RandomSelector
// opts 会用于每一局
func NewMatch(selector ModeSelector, opts ...RoundOption) *Match {
	if selector == nil {
		selector = RandomSelector
	}
	return &Match{
		selector: selector,
		opts:     opts,
	}
}

// RestoreMatch 从保存的状态继续比赛
func RestoreMatch(state MatchState, selector ModeSelector, opts ...RoundOption) *Match {
	m := NewMatch(selector, opts...)
	state.Dealer = ((state.Dealer % SeatCount) + SeatCount) % SeatCount
	m.state = state
	return m
}

// StartRound 开始新的一局，上一局必须已经结算
func (m *Match) StartRound() (*Round, error) {
	if m.round != nil && !m.round.folded {
		if m.round.phase == PhasePlaying {
			return nil, ErrRoundInProgress
		}
		return nil, ErrRoundNotFolded
	}
	r := NewRound(m.opts...)
	if err := r.Start(m.state.Dealer, m.selector); err != nil {
		return nil, err
	}
	m.round = r
	return r, nil
}

// Round 当前这一局，还没开始过返回 nil
func (m *Match) Round() *Round {
	return m.round
}

// Fold 把已经结束的一局计入总分，庄家顺延到下家
func (m *Match) Fold(r *Round) (RoundResult, error) {
	if r == nil {
		return RoundResult{}, ErrRoundNotFinished
	}
	if r.folded {
		return RoundResult{}, ErrRoundFolded
	}
	result, err := r.Result()
	if err != nil {
		return RoundResult{}, err
	}

	m.state.Scores[0] += result.Points[0]
	m.state.Scores[1] += result.Points[1]
	m.state.Dealer = NextSeat(r.dealer)
	m.state.Rounds++
	r.folded = true

	m.results = append([]RoundResult{result}, m.results...)

	log.Debug().
		Int("round", m.state.Rounds).
		Int("team0", m.state.Scores[0]).
		Int("team1", m.state.Scores[1]).
		Int8("next_dealer", m.state.Dealer).
		Msg("round folded into match")
	return result, nil
}

// State 当前的累计状态
func (m *Match) State() MatchState {
	return m.state
}

// Scores 两队总分
func (m *Match) Scores() [2]int {
	return m.state.Scores
}

// Results 历史记录，最近一局在0索引
func (m *Match) Results() []RoundResult {
	return append([]RoundResult(nil), m.results...)
}

// Leader 领先的队伍，平分时返回 false
func (m *Match) Leader() (team int8, ok bool) {
	switch {
	case m.state.Scores[0] > m.state.Scores[1]:
		return 0, true
	case m.state.Scores[1] > m.state.Scores[0]:
		return 1, true
	default:
		return -1, false
	}
}

// Winner 是否有队伍达到目标分数；两队都达到时分数高的赢，平分则继续
func (m *Match) Winner(target int) (team int8, ok bool) {
	if m.state.Scores[0] < target && m.state.Scores[1] < target {
		return -1, false
	}
	return m.Leader()
}
