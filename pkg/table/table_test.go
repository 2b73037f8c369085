package table

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/play/baloot/pkg/baloot"
	"github.com/play/baloot/pkg/events"
	"github.com/play/baloot/pkg/ledger"
)

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	evs    []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, evs ...events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.evs = append(p.evs, evs...)
	return nil
}

func (p *recordingPublisher) count(kind events.Kind) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, ev := range p.evs {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

// 不洗牌：0 号位红桃，1 号位方块，2 号位梅花，3 号位黑桃
var noShuffle = WithRoundOptions(baloot.WithShuffler(func(baloot.Cards) {}))

func TestTable_AllBots(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	tb := New(
		WithBots(0, 1, 2, 3),
		WithSelector(baloot.FixedSelector(baloot.ModeHokum, baloot.SuitClub)),
		WithPublisher(pub, "test"),
	)
	assert.NotEmpty(t, tb.Id())

	require.NoError(t, tb.Deal(ctx))

	snap, ok := tb.Snapshot()
	require.True(t, ok)
	assert.Equal(t, baloot.PhaseFinished, snap.Phase)
	assert.Equal(t, 152, tb.Scores()[0]+tb.Scores()[1])
	assert.Equal(t, 1, tb.State().Rounds)
	assert.Equal(t, int8(1), tb.State().Dealer)

	assert.Equal(t, 1, pub.count(events.KindRoundStarted))
	assert.Equal(t, baloot.DeckSize, pub.count(events.KindCardPlayed))
	assert.Equal(t, baloot.HandSize, pub.count(events.KindTrickResolved))
	assert.Equal(t, 1, pub.count(events.KindRoundFinished))
	assert.Equal(t, 0, pub.count(events.KindMatchFinished))
	assert.Equal(t, []string{"test"}, pub.topics)

	last := pub.evs[len(pub.evs)-1]
	assert.Equal(t, events.KindRoundFinished, last.Kind)
	assert.Equal(t, tb.Scores(), last.Scores)
	assert.Equal(t, 1, last.Round)

	// 下一局庄家顺延
	require.NoError(t, tb.Deal(ctx))
	results := tb.Results()
	require.Len(t, results, 2)
	assert.Equal(t, int8(1), results[0].Dealer)
	assert.Equal(t, int8(0), results[1].Dealer)
}

func TestTable_HumanSeat(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	tb := New(
		WithBots(1, 2, 3),
		WithSelector(baloot.FixedSelector(baloot.ModeSun, baloot.SuitNone)),
		WithPublisher(pub, ""),
		noShuffle,
	)

	assert.ErrorIs(t, tb.Play(ctx, 0, baloot.NewCard(baloot.Rank7, baloot.SuitHeart)), ErrNoRound)
	assert.ErrorIs(t, tb.AdvanceBots(ctx), ErrNoRound)
	_, ok := tb.Snapshot()
	assert.False(t, ok)
	assert.Nil(t, tb.LegalMoves(0))

	// 庄家 0，1 号位先出，机器人出完后轮到 0 号位
	require.NoError(t, tb.Deal(ctx))
	snap, ok := tb.Snapshot()
	require.True(t, ok)
	assert.Equal(t, int8(0), snap.Turn)
	require.Len(t, snap.Trick, 3)
	assert.Equal(t, "D-7", snap.Trick[0].Card.ID())
	assert.Equal(t, "C-7", snap.Trick[1].Card.ID())
	assert.Equal(t, "S-7", snap.Trick[2].Card.ID())

	assert.ErrorIs(t, tb.Play(ctx, 1, baloot.NewCard(baloot.Rank8, baloot.SuitDiamond)), ErrBotSeat)
	assert.ErrorIs(t, tb.Play(ctx, 0, baloot.NewCard(baloot.Rank8, baloot.SuitDiamond)), baloot.ErrCardNotInHand)

	for {
		snap, _ = tb.Snapshot()
		if snap.Phase != baloot.PhasePlaying {
			break
		}
		require.Equal(t, int8(0), snap.Turn, "bots should play until the human seat")
		moves := tb.LegalMoves(0)
		require.NotEmpty(t, moves)
		require.NoError(t, tb.Play(ctx, 0, moves[0]))
	}

	assert.Equal(t, 120, tb.Scores()[0]+tb.Scores()[1])

	// 第一墩由 1 号位领出方块，真人跟红桃 7
	var first events.Event
	for _, ev := range pub.evs {
		if ev.Kind == events.KindTrickResolved {
			first = ev
			break
		}
	}
	assert.Equal(t, int8(1), first.Seat)
	assert.Equal(t, int8(1), first.Winner)
	assert.Equal(t, []string{"D-7", "C-7", "S-7", "H-7"}, first.Cards)

	assert.Equal(t, baloot.DeckSize, pub.count(events.KindCardPlayed))
	assert.Equal(t, baloot.HandSize, pub.count(events.KindTrickResolved))
	assert.Equal(t, "table", pub.topics[0])
}

func TestTable_Target(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	tb := New(
		WithBots(0, 1, 2, 3),
		WithSelector(baloot.FixedSelector(baloot.ModeHokum, baloot.SuitSpade)),
		WithTarget(500),
		WithPublisher(pub, "test"),
	)

	var err error
	for i := 0; i < 50; i++ {
		if err = tb.Deal(ctx); err != nil {
			break
		}
	}
	require.ErrorIs(t, err, ErrMatchOver)

	team, ok := tb.Winner()
	require.True(t, ok)
	scores := tb.Scores()
	assert.GreaterOrEqual(t, scores[team], 500)
	assert.Greater(t, scores[team], scores[1-team])

	assert.Equal(t, 1, pub.count(events.KindMatchFinished))
	last := pub.evs[len(pub.evs)-1]
	assert.Equal(t, events.KindMatchFinished, last.Kind)
	assert.Equal(t, team, last.Winner)
	assert.Equal(t, tb.State().Rounds, last.Round)
}

func TestTable_PublishFailure(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{err: errors.New("redis down")}
	tb := New(WithBots(0, 1, 2, 3), WithPublisher(pub, "test"))

	// 事件发布失败不影响出牌
	require.NoError(t, tb.Deal(ctx))
	assert.Equal(t, 1, tb.State().Rounds)
}

type badStrategy struct{}

func (badStrategy) ChooseCard(int8, baloot.Snapshot) (baloot.Card, error) {
	return baloot.NewCard(baloot.Rank7, baloot.SuitHeart), nil
}

func TestTable_StrategyErrors(t *testing.T) {
	ctx := context.Background()

	tb := New(WithBots(1, 2, 3), WithStrategy(badStrategy{}), noShuffle)
	// 1 号位没有红桃 7
	assert.ErrorIs(t, tb.Deal(ctx), baloot.ErrCardNotInHand)

	failing := baloot.StrategyFunc(func(int8, baloot.Snapshot) (baloot.Card, error) {
		return baloot.Card{}, baloot.ErrNoLegalMove
	})
	tb = New(WithBots(1, 2, 3), WithStrategy(failing))
	assert.ErrorIs(t, tb.Deal(ctx), baloot.ErrNoLegalMove)
}

func TestTable_Close(t *testing.T) {
	ctx := context.Background()
	tb := New(WithBots(1, 2, 3))
	require.NoError(t, tb.Deal(ctx))
	tb.Close()

	assert.ErrorIs(t, tb.Deal(ctx), ErrTableClosed)
	assert.ErrorIs(t, tb.Play(ctx, 0, baloot.NewCard(baloot.Rank7, baloot.SuitHeart)), ErrTableClosed)
	assert.ErrorIs(t, tb.AdvanceBots(ctx), ErrTableClosed)
}

func TestTable_Recorder(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	store := ledger.New(client, nil)
	tb := New(WithBots(0, 1, 2, 3), WithRecorder(store), WithId("table-r"))
	assert.Empty(t, tb.MatchId())

	for i := 0; i < 3; i++ {
		require.NoError(t, tb.Deal(ctx))
	}

	matchId := tb.MatchId()
	require.NotEmpty(t, matchId)

	rec, err := store.GetByTable(ctx, "table-r")
	require.NoError(t, err)
	assert.Equal(t, matchId, rec.MatchId)
	assert.Equal(t, tb.State(), rec.State())

	tricks, err := rec.Tricks()
	require.NoError(t, err)
	assert.Equal(t, tb.Results()[0].Tricks, tricks)

	assert.Equal(t, "random", rec.Get("selector").String())
	players := rec.Get("players").Array()
	require.Len(t, players, baloot.SeatCount)
	assert.Equal(t, "You", players[0].Get("name").String())
	assert.Equal(t, "Omar", players[3].Get("name").String())
	assert.True(t, players[0].Get("bot").Bool())
	assert.Equal(t, 0, rec.Target)
	assert.False(t, rec.IsFinished())
}

func TestTable_RecorderTarget(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	store := ledger.New(client, nil)
	tb := New(
		WithBots(1, 2, 3),
		WithStrategy(baloot.FirstLegal{}),
		WithSelector(baloot.FixedSelector(baloot.ModeHokum, baloot.SuitSpade)),
		WithSelectorName("hokum:S"),
		WithTarget(300),
		WithRecorder(store),
		WithRoundOptions(baloot.WithNames([baloot.SeatCount]string{"Sara", "Khalid", "Ahmed", "Omar"})),
	)

	var err error
	for i := 0; i < 50 && err == nil; i++ {
		if err = tb.Deal(ctx); err != nil {
			break
		}
		for {
			snap, _ := tb.Snapshot()
			if snap.Phase != baloot.PhasePlaying {
				break
			}
			require.NoError(t, tb.Play(ctx, 0, tb.LegalMoves(0)[0]))
		}
	}
	require.ErrorIs(t, err, ErrMatchOver)

	// 比赛记录和牌桌使用同一个结束分数
	rec, err := store.Get(ctx, tb.MatchId())
	require.NoError(t, err)
	team, ok := tb.Winner()
	require.True(t, ok)
	assert.Equal(t, 300, rec.Target)
	assert.Equal(t, team, rec.Winner)
	assert.Equal(t, tb.State(), rec.State())

	assert.Equal(t, "hokum:S", rec.Get("selector").String())
	assert.Equal(t, "Sara", rec.Get("players.0.name").String())
	assert.False(t, rec.Get("players.0.bot").Bool())
	assert.True(t, rec.Get("players.1.bot").Bool())
}

func TestConfigOptions(t *testing.T) {
	defer viper.Reset()

	viper.Set("table.bot_seats", "0,1, 2 3")
	viper.Set("table.selector", "hokum:H")
	viper.Set("table.target", 300)
	viper.Set("events.topic", "cfg")

	pub := &recordingPublisher{}
	tb, err := NewFromConfig(WithPublisher(pub, "cfg"))
	require.NoError(t, err)
	require.NoError(t, tb.Deal(context.Background()))

	res := tb.Results()
	require.Len(t, res, 1)
	assert.Equal(t, baloot.ModeHokum, res[0].Mode)
	assert.Equal(t, baloot.SuitHeart, res[0].Trump)
	assert.Equal(t, 300, tb.opts.target)
	assert.Equal(t, "cfg", pub.topics[0])

	viper.Set("table.selector", "bogus")
	_, err = NewFromConfig()
	assert.ErrorIs(t, err, baloot.ErrInvalidMode)

	viper.Set("table.selector", "sun")
	for _, seats := range [][]int{{1, 5}, {256}, {-1}, {257, 258}} {
		viper.Set("table.bot_seats", seats)
		_, err = NewFromConfig()
		assert.ErrorIs(t, err, baloot.ErrInvalidSeat, "seats %v", seats)
	}
}

func TestManager(t *testing.T) {
	m := NewManager(2, time.Hour, WithBots(0, 1, 2, 3))

	a := m.Create()
	b := m.Create(WithId("b"))
	assert.Equal(t, 2, m.Len())

	got, ok := m.Get("b")
	require.True(t, ok)
	assert.Same(t, b, got)

	// 超过容量淘汰最久没用的 a
	m.Create()
	_, ok = m.Get(a.Id())
	assert.False(t, ok)
	assert.ErrorIs(t, a.Deal(context.Background()), ErrTableClosed)

	assert.True(t, m.Remove("b"))
	assert.False(t, m.Remove("b"))
	assert.ErrorIs(t, b.Deal(context.Background()), ErrTableClosed)

	m.Purge()
	assert.Equal(t, 0, m.Len())
}

func TestManager_IdleTTL(t *testing.T) {
	m := NewManager(0, 50*time.Millisecond)
	tb := m.Create()
	require.Equal(t, 1, m.Len())

	// Len 不会刷新过期时间，Get 会
	assert.Eventually(t, func() bool {
		return m.Len() == 0
	}, 2*time.Second, 10*time.Millisecond)

	_, ok := m.Get(tb.Id())
	assert.False(t, ok)
	assert.ErrorIs(t, tb.Deal(context.Background()), ErrTableClosed)
}

func TestNewManagerFromConfig(t *testing.T) {
	defer viper.Reset()

	viper.Set("table.max_tables", 1)
	viper.Set("table.idle_ttl", "1h")
	m := NewManagerFromConfig(WithBots(0, 1, 2, 3))

	a := m.Create()
	b := m.Create()
	assert.Equal(t, 1, m.Len())
	_, ok := m.Get(a.Id())
	assert.False(t, ok)
	_, ok = m.Get(b.Id())
	assert.True(t, ok)
}
