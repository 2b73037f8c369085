package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/play/baloot/pkg/baloot"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	return client, mr
}

type collector struct {
	mu  sync.Mutex
	evs []Event
}

func (c *collector) handle(_ context.Context, ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evs = append(c.evs, ev)
}

func (c *collector) events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.evs...)
}

func TestBus_PublishSubscribe(t *testing.T) {
	client, _ := setupTestRedis(t)
	defer client.Close()

	ctx := context.Background()
	bus := New(client)
	defer bus.Close()

	var c collector
	sub, err := bus.Subscribe(ctx, "table", c.handle)
	require.NoError(t, err)
	sub.Loop()

	card := baloot.NewCard(baloot.Rank10, baloot.SuitHeart)
	err = bus.Publish(ctx, "table",
		CardPlayed("t1", 1, 2, card),
		MatchFinished("t1", 4, 1, [2]int{100, 200}),
	)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return len(c.events()) == 2
	}, 3*time.Second, 10*time.Millisecond)

	evs := c.events()
	assert.Equal(t, KindCardPlayed, evs[0].Kind)
	assert.Equal(t, "t1", evs[0].TableId)
	assert.Equal(t, int8(2), evs[0].Seat)
	require.NotNil(t, evs[0].Card)
	assert.Equal(t, card, *evs[0].Card)

	assert.Equal(t, KindMatchFinished, evs[1].Kind)
	assert.Equal(t, int8(1), evs[1].Winner)
	assert.Equal(t, [2]int{100, 200}, evs[1].Scores)
	assert.Nil(t, evs[1].Card)

	require.NoError(t, sub.Stop())
	assert.ErrorIs(t, sub.Stop(), ErrSubscriptionClosed)
}

func TestBus_CardIsEncodedById(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer client.Close()

	ctx := context.Background()
	bus := New(client)
	defer bus.Close()

	require.NoError(t, bus.Publish(ctx, "raw", CardPlayed("t2", 1, 0, baloot.NewCard(baloot.RankJ, baloot.SuitSpade))))

	items, err := mr.List(formatTopicKey("raw"))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Contains(t, items[0], `"card":"S-J"`)
	assert.Contains(t, items[0], `"kind":"card_played"`)
}

func TestBus_QueueFull(t *testing.T) {
	client, _ := setupTestRedis(t)
	defer client.Close()

	ctx := context.Background()
	bus := New(client, WithQueueSize(2))
	defer bus.Close()

	ev := MatchFinished("t3", 1, 0, [2]int{})
	require.NoError(t, bus.Publish(ctx, "full", ev, ev))
	assert.ErrorIs(t, bus.Publish(ctx, "full", ev), ErrQueueFull)

	// 不限制长度
	unlimited := New(client, WithQueueSize(0))
	defer unlimited.Close()
	assert.NoError(t, unlimited.Publish(ctx, "full", ev))
}

func TestBus_Recovery(t *testing.T) {
	client, _ := setupTestRedis(t)
	defer client.Close()

	ctx := context.Background()
	bus := New(client, WithRecovery())
	defer bus.Close()

	var c collector
	sub, err := bus.Subscribe(ctx, "panic", func(ctx context.Context, ev Event) {
		if ev.Round == 1 {
			panic("boom")
		}
		c.handle(ctx, ev)
	}, WithConcurrency(1))
	require.NoError(t, err)
	sub.Loop()

	require.NoError(t, bus.Publish(ctx, "panic",
		MatchFinished("t4", 1, 0, [2]int{}),
		MatchFinished("t4", 2, 0, [2]int{}),
	))

	assert.Eventually(t, func() bool {
		return len(c.events()) == 1
	}, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, c.events()[0].Round)
}

func TestBus_Closed(t *testing.T) {
	client, _ := setupTestRedis(t)
	defer client.Close()

	ctx := context.Background()
	bus := New(client)

	var c collector
	sub, err := bus.Subscribe(ctx, "closed", c.handle, WithConcurrency(3))
	require.NoError(t, err)
	sub.Loop()

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	assert.ErrorIs(t, bus.Publish(ctx, "closed", MatchFinished("t5", 1, 0, [2]int{})), ErrBusClosed)
	_, err = bus.Subscribe(ctx, "closed", c.handle)
	assert.ErrorIs(t, err, ErrBusClosed)
	assert.ErrorIs(t, sub.Stop(), ErrSubscriptionClosed)

	_, err = New(client).Subscribe(ctx, "closed", nil)
	assert.ErrorIs(t, err, ErrNilHandler)
}

func TestRoundFinished(t *testing.T) {
	result := baloot.RoundResult{
		Mode:   baloot.ModeHokum,
		Trump:  baloot.SuitClub,
		Points: [2]int{100, 52},
		Tricks: baloot.Tricks{{Leader: 1, Winner: 2, Cards: [baloot.TrickSize]baloot.Card{
			baloot.NewCard(baloot.Rank7, baloot.SuitHeart),
			baloot.NewCard(baloot.Rank8, baloot.SuitHeart),
			baloot.NewCard(baloot.Rank9, baloot.SuitHeart),
			baloot.NewCard(baloot.Rank10, baloot.SuitHeart),
		}}},
	}
	ev := RoundFinished("t6", 3, result, [2]int{300, 152})
	assert.Equal(t, KindRoundFinished, ev.Kind)
	assert.Equal(t, "hokum", ev.Mode)
	assert.Equal(t, "clubs", ev.Trump)
	assert.Equal(t, [2]int{100, 52}, ev.Points)
	assert.Equal(t, baloot.NoSeat, ev.Seat)

	var tricks baloot.Tricks
	require.NoError(t, tricks.UnmarshalBinary(ev.Tricks))
	assert.Equal(t, result.Tricks, tricks)
}

func TestTrickResolved(t *testing.T) {
	snap := baloot.Snapshot{LastTrickWinner: 3, Points: [2]int{0, 25}}
	trick := baloot.CompletedTrick{Leader: 2, Winner: 3, Cards: [baloot.TrickSize]baloot.Card{
		baloot.NewCard(baloot.RankK, baloot.SuitHeart),
		baloot.NewCard(baloot.RankA, baloot.SuitHeart),
		baloot.NewCard(baloot.Rank7, baloot.SuitHeart),
		baloot.NewCard(baloot.Rank10, baloot.SuitHeart),
	}}

	ev := TrickResolved("t1", 2, snap, trick)
	assert.Equal(t, KindTrickResolved, ev.Kind)
	assert.Equal(t, int8(2), ev.Seat)
	assert.Equal(t, int8(3), ev.Winner)
	assert.Equal(t, [2]int{0, 25}, ev.Points)
	assert.Equal(t, []string{"H-K", "H-A", "H-7", "H-10"}, ev.Cards)
}
