package table

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/play/baloot/pkg/baloot"
	"github.com/play/baloot/pkg/events"
	"github.com/play/baloot/pkg/ledger"
)

var (
	ErrNoRound     = errors.New("no round dealt")
	ErrBotSeat     = errors.New("seat is played by a bot")
	ErrMatchOver   = errors.New("match is over")
	ErrTableClosed = errors.New("table is closed")
)

// Publisher 发布牌桌事件，events.Bus 实现了这个接口
type Publisher interface {
	Publish(ctx context.Context, topic string, evs ...events.Event) error
}

// Recorder 保存比赛记录，ledger.Store 实现了这个接口
type Recorder interface {
	Save(ctx context.Context, rec *ledger.Record) error
	Fold(ctx context.Context, matchId string, result baloot.RoundResult) (*ledger.Record, error)
}

// Table 一张牌桌，驱动一场比赛
// 真人通过 Play 出牌，机器人在真人出牌之后由 Strategy 依次出牌
// 并发安全
type Table struct {
	mu     sync.Mutex
	opts   *options
	match  *baloot.Match
	round  *baloot.Round
	record *ledger.Record
	winner int8
	closed bool
}

// New 创建牌桌
func New(opts ...Option) *Table {
	o := new(options)
	o.apply(opts...).setDefault()
	if o.id == "" {
		o.id = uuid.NewString()
	}

	return &Table{
		opts:   o,
		match:  baloot.NewMatch(o.selector, o.roundOpts...),
		winner: baloot.NoSeat,
	}
}

// NewFromConfig 按配置创建牌桌，opts 覆盖配置
func NewFromConfig(opts ...Option) (*Table, error) {
	cfg, err := ConfigOptions()
	if err != nil {
		return nil, err
	}
	return New(append(cfg, opts...)...), nil
}

// Id 牌桌 id
func (t *Table) Id() string {
	return t.opts.id
}

// Deal 开始下一局，机器人先出的话一直出到轮到真人或者本局结束
func (t *Table) Deal(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTableClosed
	}
	if t.winner != baloot.NoSeat {
		return ErrMatchOver
	}

	if t.opts.recorder != nil && t.record == nil {
		rec := ledger.NewRecord(t.opts.id, t.opts.target)
		if err := t.describe(rec); err != nil {
			return err
		}
		if err := t.opts.recorder.Save(ctx, rec); err != nil {
			return err
		}
		t.record = rec
	}

	round, err := t.match.StartRound()
	if err != nil {
		return err
	}
	t.round = round

	number := t.match.State().Rounds + 1
	log.Ctx(ctx).Debug().
		Str("table_id", t.opts.id).
		Int("round", number).
		Int8("dealer", round.Dealer()).
		Str("mode", round.Policy().Mode.String()).
		Str("trump", round.Policy().Trump.String()).
		Msg("round dealt")

	evs := []events.Event{events.RoundStarted(t.opts.id, number, round.Snapshot())}
	evs, err = t.advanceBots(ctx, evs)
	t.publish(ctx, evs)
	return err
}

// describe 把座位和选择器写入比赛记录
func (t *Table) describe(rec *ledger.Record) error {
	players := baloot.NewRound(t.opts.roundOpts...).Snapshot().Players
	seats := make([]map[string]any, len(players))
	for i, p := range players {
		seats[i] = map[string]any{"name": p.Name, "bot": p.IsBot}
	}
	if err := rec.Set("players", seats); err != nil {
		return err
	}
	if t.opts.selName == "" {
		return nil
	}
	return rec.Set("selector", t.opts.selName)
}

// Play 真人出牌，然后机器人依次出牌
func (t *Table) Play(ctx context.Context, seat int8, card baloot.Card) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTableClosed
	}
	if t.round == nil {
		return ErrNoRound
	}
	if t.round.IsBot(seat) {
		return ErrBotSeat
	}

	evs, err := t.play(ctx, nil, seat, card)
	if err != nil {
		return err
	}
	evs, err = t.advanceBots(ctx, evs)
	t.publish(ctx, evs)
	return err
}

// AdvanceBots 轮到机器人时一直出牌，直到轮到真人或者本局结束
func (t *Table) AdvanceBots(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTableClosed
	}
	if t.round == nil {
		return ErrNoRound
	}
	evs, err := t.advanceBots(ctx, nil)
	t.publish(ctx, evs)
	return err
}

func (t *Table) advanceBots(ctx context.Context, evs []events.Event) ([]events.Event, error) {
	r := t.round
	for r.Phase() == baloot.PhasePlaying && r.IsBot(r.Turn()) {
		seat := r.Turn()
		card, err := t.opts.strategy.ChooseCard(seat, r.Snapshot())
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Str("table_id", t.opts.id).Int8("seat", seat).Msg("bot failed to choose a card")
			return evs, err
		}
		if evs, err = t.play(ctx, evs, seat, card); err != nil {
			log.Ctx(ctx).Error().Err(err).Str("table_id", t.opts.id).Int8("seat", seat).Str("card", card.ID()).Msg("bot played an illegal card")
			return evs, err
		}
	}
	return evs, nil
}

// play 出一张牌，收集产生的事件，本局结束时计入比赛
func (t *Table) play(ctx context.Context, evs []events.Event, seat int8, card baloot.Card) ([]events.Event, error) {
	r := t.round
	played := len(r.Tricks())
	if err := r.Play(seat, card); err != nil {
		return evs, err
	}

	number := t.match.State().Rounds + 1
	evs = append(evs, events.CardPlayed(t.opts.id, number, seat, card))
	if tricks := r.Tricks(); len(tricks) > played {
		evs = append(evs, events.TrickResolved(t.opts.id, number, r.Snapshot(), tricks[len(tricks)-1]))
	}
	if !r.IsFinished() {
		return evs, nil
	}

	result, err := t.match.Fold(r)
	if err != nil {
		return evs, err
	}
	evs = append(evs, events.RoundFinished(t.opts.id, number, result, t.match.Scores()))

	if t.record != nil {
		rec, err := t.opts.recorder.Fold(ctx, t.record.MatchId, result)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("table_id", t.opts.id).Str("match_id", t.record.MatchId).Msg("failed to fold round into ledger")
		} else {
			t.record = rec
		}
	}

	if t.opts.target > 0 {
		if team, ok := t.match.Winner(t.opts.target); ok {
			t.winner = team
			evs = append(evs, events.MatchFinished(t.opts.id, number, team, t.match.Scores()))
			log.Ctx(ctx).Info().
				Str("table_id", t.opts.id).
				Int8("winner", team).
				Int("rounds", number).
				Int("team0", t.match.Scores()[0]).
				Int("team1", t.match.Scores()[1]).
				Msg("match finished")
		}
	}
	return evs, nil
}

// publish 事件发布失败不影响出牌，只记录日志
func (t *Table) publish(ctx context.Context, evs []events.Event) {
	if t.opts.publisher == nil || len(evs) == 0 {
		return
	}
	if err := t.opts.publisher.Publish(ctx, t.opts.topic, evs...); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("table_id", t.opts.id).Int("events", len(evs)).Msg("failed to publish table events")
	}
}

// Snapshot 当前这一局的快照，还没发牌时返回 false
func (t *Table) Snapshot() (baloot.Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.round == nil {
		return baloot.Snapshot{}, false
	}
	return t.round.Snapshot(), true
}

// LegalMoves 座位当前可以出的牌
func (t *Table) LegalMoves(seat int8) baloot.Cards {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.round == nil {
		return nil
	}
	return t.round.LegalMoves(seat)
}

// Scores 两队总分
func (t *Table) Scores() [2]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.match.Scores()
}

// State 比赛的累计状态
func (t *Table) State() baloot.MatchState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.match.State()
}

// Results 已经结束的每一局，最近一局在前
func (t *Table) Results() []baloot.RoundResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.match.Results()
}

// Winner 赢的队伍，比赛没有结束返回 false
func (t *Table) Winner() (int8, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.winner, t.winner != baloot.NoSeat
}

// MatchId 比赛记录的 id，没有 Recorder 时为空
func (t *Table) MatchId() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.record == nil {
		return ""
	}
	return t.record.MatchId
}

// Close 关闭牌桌，之后不能再出牌
func (t *Table) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
}
