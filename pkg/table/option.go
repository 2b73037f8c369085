package table

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/play/baloot/pkg/baloot"
)

type options struct {
	id        string
	selector  baloot.ModeSelector
	selName   string
	strategy  baloot.Strategy
	publisher Publisher
	topic     string
	recorder  Recorder
	target    int
	roundOpts []baloot.RoundOption
}

type Option func(*options)

// WithId 指定牌桌 id，默认随机生成
func WithId(id string) Option {
	return func(o *options) {
		o.id = id
	}
}

// WithSelector 每局决定玩法的方式
func WithSelector(selector baloot.ModeSelector) Option {
	return func(o *options) {
		o.selector = selector
		o.selName = ""
	}
}

// WithSelectorName 写入比赛记录的选择器名字，例如 "hokum:S"
// 需要放在 WithSelector 之后
func WithSelectorName(name string) Option {
	return func(o *options) {
		o.selName = name
	}
}

// WithStrategy 机器人的出牌策略
func WithStrategy(strategy baloot.Strategy) Option {
	return func(o *options) {
		o.strategy = strategy
	}
}

// WithPublisher 把牌桌上的事件发布到 topic
func WithPublisher(publisher Publisher, topic string) Option {
	return func(o *options) {
		o.publisher = publisher
		o.topic = topic
	}
}

// WithRecorder 每局结束后把结果写入比赛记录
func WithRecorder(recorder Recorder) Option {
	return func(o *options) {
		o.recorder = recorder
	}
}

// WithTarget 比赛结束的分数，0 表示一直打下去
// 同时作为比赛记录的结束分数
func WithTarget(target int) Option {
	return func(o *options) {
		o.target = target
	}
}

// WithBots 哪些座位由机器人出牌
func WithBots(seats ...int8) Option {
	return func(o *options) {
		o.roundOpts = append(o.roundOpts, baloot.WithBots(seats...))
	}
}

// WithRoundOptions 其它每局的选项，例如名字和洗牌函数
func WithRoundOptions(opts ...baloot.RoundOption) Option {
	return func(o *options) {
		o.roundOpts = append(o.roundOpts, opts...)
	}
}

func (o *options) apply(opts ...Option) *options {
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *options) setDefault() {
	if o.selector == nil {
		o.selector = baloot.RandomSelector
		o.selName = "random"
	}
	if o.strategy == nil {
		o.strategy = baloot.FirstLegal{}
	}
	if o.topic == "" {
		o.topic = "table"
	}
}

// ConfigOptions 从配置读取牌桌选项
//
//	table.bot_seats: 机器人座位，默认 [1 2 3]
//	table.selector:  random | sun | hokum:<花色>
//	table.target:    比赛结束的分数
//	events.topic:    事件发布的 topic
func ConfigOptions() ([]Option, error) {
	viper.SetDefault("table.bot_seats", []int{1, 2, 3})
	viper.SetDefault("table.selector", "random")
	viper.SetDefault("events.topic", "table")

	selName := viper.GetString("table.selector")
	selector, err := baloot.ParseSelector(selName)
	if err != nil {
		return nil, fmt.Errorf("table.selector %q: %w", selName, err)
	}

	// 环境变量中是 "1,2,3" 这样的字符串
	raw := viper.Get("table.bot_seats")
	if s, ok := raw.(string); ok {
		raw = strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	}
	seats, err := cast.ToIntSliceE(raw)
	if err != nil {
		return nil, fmt.Errorf("table.bot_seats: %w", err)
	}
	bots := make([]int8, 0, len(seats))
	for _, seat := range seats {
		if seat < 0 || seat >= baloot.SeatCount {
			return nil, fmt.Errorf("table.bot_seats: %w: %d", baloot.ErrInvalidSeat, seat)
		}
		bots = append(bots, int8(seat))
	}

	return []Option{
		WithSelector(selector),
		WithSelectorName(selName),
		WithBots(bots...),
		WithTarget(viper.GetInt("table.target")),
		func(o *options) { o.topic = viper.GetString("events.topic") },
	}, nil
}
