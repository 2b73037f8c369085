package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// 全局错误码
var (
	ErrQueueFull          = errors.New("queue is full")
	ErrNilHandler         = errors.New("handler is nil")
	ErrSubscriptionClosed = errors.New("subscription is closed")
	ErrBusClosed          = errors.New("bus is closed")
)

const (
	redisKeyPrefix      = "baloot:events:"
	blpopTimeout        = 1 * time.Second // BLPOP 的阻塞超时时间
	defaultQueueSize    = 1000            // 默认队列大小限制
	defaultDataChanSize = 100             // 默认内部数据通道大小
	stopTimeout         = 10 * time.Second
)

// Handler 处理一条事件
type Handler func(ctx context.Context, ev Event)

// Option 是用于 Bus 或 Subscription 的配置选项函数
type Option func(any)

// Bus 基于 redis list 的事件总线，每个 topic 一个 list
type Bus struct {
	rdb           redis.Cmdable
	queueSize     int
	subscriptions map[string][]*Subscription // key: topic
	mu            sync.RWMutex
	closed        chan struct{}
	wg            sync.WaitGroup // 等待所有 Subscription 关闭
	useRecovery   bool
}

// Subscription 一个 topic 的消费者
// 一个 goroutine 负责 BLPOP，N 个 worker 负责调用 handler
type Subscription struct {
	bus         *Bus
	topic       string
	redisKey    string
	handler     Handler
	concurrency int
	useRecovery bool
	dataChan    chan []byte
	stopChan    chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
}

// WithQueueSize 设置 Publish 时检查的 list 最大长度，0 表示不限制
func WithQueueSize(qs int) Option {
	return func(o any) {
		if b, ok := o.(*Bus); ok && qs >= 0 {
			b.queueSize = qs
		}
	}
}

// WithRecovery handler panic 时 recover，不影响 worker
func WithRecovery() Option {
	return func(o any) {
		switch v := o.(type) {
		case *Subscription:
			v.useRecovery = true
		case *Bus:
			v.useRecovery = true
		}
	}
}

// WithConcurrency 设置 worker 数量，c <= 0 时为 1
// 大于 1 时同一 topic 的事件不保证按顺序处理
func WithConcurrency(c int) Option {
	return func(o any) {
		if s, ok := o.(*Subscription); ok {
			s.concurrency = max(c, 1)
		}
	}
}

// New 创建事件总线
func New(rdb redis.Cmdable, opts ...Option) *Bus {
	b := &Bus{
		rdb:           rdb,
		queueSize:     defaultQueueSize,
		subscriptions: make(map[string][]*Subscription),
		closed:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	log.Trace().Int("queue_size", b.queueSize).Bool("recovery", b.useRecovery).Msg("new event bus initialized")
	return b
}

func formatTopicKey(topic string) string {
	return redisKeyPrefix + topic
}

// Publish 按顺序发布一批事件到 topic
func (b *Bus) Publish(ctx context.Context, topic string, evs ...Event) error {
	select {
	case <-b.closed:
		return ErrBusClosed
	default:
	}

	if len(evs) == 0 {
		return nil
	}
	redisKey := formatTopicKey(topic)

	if b.queueSize > 0 {
		length, err := b.rdb.LLen(ctx, redisKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			log.Ctx(ctx).Error().Err(err).Str("topic", topic).Msg("failed to get list length for queue size check")
			return fmt.Errorf("redis LLen failed: %w", err)
		}
		if length+int64(len(evs)) > int64(b.queueSize) {
			log.Ctx(ctx).Warn().Str("topic", topic).Int64("current_length", length).Int("batch_size", len(evs)).Int("queue_size_limit", b.queueSize).Msg("publish would exceed queue size limit")
			return ErrQueueFull
		}
	}

	payloads := make([]any, 0, len(evs))
	for i := range evs {
		payload, err := json.Marshal(&evs[i])
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Str("topic", topic).Str("kind", string(evs[i].Kind)).Msg("failed to marshal event")
			return fmt.Errorf("json marshal failed for event %d: %w", i, err)
		}
		payloads = append(payloads, payload)
	}

	if err := b.rdb.RPush(ctx, redisKey, payloads...).Err(); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("topic", topic).Int("batch_size", len(evs)).Msg("failed to publish events to redis")
		return fmt.Errorf("redis RPush failed: %w", err)
	}

	log.Ctx(ctx).Trace().Str("topic", topic).Int("batch_size", len(evs)).Msg("events published")
	return nil
}

// Subscribe 订阅 topic，调用 Loop 之后才开始消费
func (b *Bus) Subscribe(ctx context.Context, topic string, handler Handler, opts ...Option) (*Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	select {
	case <-b.closed:
		return nil, ErrBusClosed
	default:
	}

	subCtx, subCancel := context.WithCancel(ctx)
	s := &Subscription{
		bus:         b,
		topic:       topic,
		redisKey:    formatTopicKey(topic),
		handler:     handler,
		concurrency: 1,
		useRecovery: b.useRecovery,
		dataChan:    make(chan []byte, defaultDataChanSize),
		stopChan:    make(chan struct{}),
		ctx:         subCtx,
		cancel:      subCancel,
	}
	for _, opt := range opts {
		opt(s)
	}

	b.subscriptions[topic] = append(b.subscriptions[topic], s)
	b.wg.Add(1)

	log.Trace().Str("topic", topic).Int("concurrency", s.concurrency).Bool("recovery", s.useRecovery).Msg("new subscription created")
	return s, nil
}

// Close 停止所有订阅并等待它们退出，之后不能再发布
func (b *Bus) Close() error {
	b.mu.Lock()
	select {
	case <-b.closed:
		b.mu.Unlock()
		return nil
	default:
		close(b.closed)
	}

	var all []*Subscription
	for _, subs := range b.subscriptions {
		all = append(all, subs...)
	}
	b.mu.Unlock()

	for _, sub := range all {
		if err := sub.Stop(); err != nil && !errors.Is(err, ErrSubscriptionClosed) {
			log.Error().Err(err).Str("topic", sub.topic).Msg("error stopping subscription during bus close")
		}
	}

	b.wg.Wait()
	log.Info().Msg("event bus closed")
	return nil
}

// Loop 启动 BLPOP goroutine 和 worker goroutine，不阻塞
func (s *Subscription) Loop() {
	s.wg.Add(1)
	go s.blpopLoop()

	for i := 0; i < s.concurrency; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
	log.Debug().Str("topic", s.topic).Int("workers", s.concurrency).Msg("subscription loop started")
}

func (s *Subscription) blpopLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopChan:
			return
		case <-s.ctx.Done():
			return
		default:
		}

		results, err := s.bus.rdb.BLPop(s.ctx, blpopTimeout, s.redisKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || s.ctx.Err() != nil {
				continue
			}
			log.Error().Err(err).Str("topic", s.topic).Msg("blpop failed")
			select {
			case <-s.stopChan:
				return
			case <-time.After(time.Second):
			}
			continue
		}

		// results 为 [key, value]
		if len(results) != 2 {
			log.Warn().Str("topic", s.topic).Int("results_len", len(results)).Msg("blpop returned unexpected result length")
			continue
		}
		select {
		case s.dataChan <- []byte(results[1]):
		case <-s.stopChan:
			log.Warn().Str("topic", s.topic).Msg("subscription stopping, discarding event")
			return
		}
	}
}

func (s *Subscription) worker(workerId int) {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopChan:
			return
		case payload := <-s.dataChan:
			s.process(workerId, payload)
		}
	}
}

func (s *Subscription) process(workerId int, payload []byte) {
	if s.useRecovery {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Str("topic", s.topic).Int("worker_id", workerId).Interface("panic", r).Msg("recovered panic in event handler")
			}
		}()
	}

	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		log.Error().Err(err).Str("topic", s.topic).Int("worker_id", workerId).Bytes("payload", payload).Msg("failed to unmarshal event")
		return
	}
	if viper.GetBool("log.traced") {
		log.Debug().Str("topic", s.topic).Int("worker_id", workerId).Bytes("payload", payload).Msg("event received")
	}
	s.handler(s.ctx, ev)
}

// Stop 停止订阅，等待 goroutine 退出
func (s *Subscription) Stop() error {
	err := ErrSubscriptionClosed
	s.stopOnce.Do(func() {
		err = nil
		s.bus.mu.Lock()
		subs := s.bus.subscriptions[s.topic]
		for i, sub := range subs {
			if sub == s {
				subs = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
		if len(subs) == 0 {
			delete(s.bus.subscriptions, s.topic)
		} else {
			s.bus.subscriptions[s.topic] = subs
		}
		s.bus.mu.Unlock()

		close(s.stopChan)
		s.cancel()

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			log.Debug().Str("topic", s.topic).Msg("subscription stopped")
		case <-time.After(stopTimeout):
			log.Error().Str("topic", s.topic).Msg("subscription stop timed out waiting for goroutines")
		}
		s.bus.wg.Done()
	})
	return err
}
