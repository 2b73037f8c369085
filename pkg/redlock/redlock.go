package redlock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var (
	// ErrNotAcquired 重试之后仍然没有拿到锁
	ErrNotAcquired = errors.New("lock not acquired")
	// ErrNotHeld 锁不属于当前实例，或者已经过期
	ErrNotHeld = errors.New("lock not held")
	// ErrEmptyKey 锁的键为空
	ErrEmptyKey = errors.New("lock key is empty")
)

// 只有值匹配时才删除，防止释放别人的锁
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
else
    return 0
end
`)

// 只有值匹配时才延长过期时间
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("PEXPIRE", KEYS[1], ARGV[2])
else
    return 0
end
`)

// Client 创建锁，对同一个 key 的读-改-写加锁，例如比赛记录的结算
type Client struct {
	rdb  redis.Cmdable
	opts options
}

// New 创建锁客户端，opts 作为每把锁的默认参数
func New(rdb redis.Cmdable, opts ...Option) *Client {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Client{rdb: rdb, opts: o}
}

// Lock 一把具体的锁，值随机生成，用来区分持有者
type Lock struct {
	rdb   redis.Cmdable
	key   string
	value string
	opts  options
}

// NewLock 创建一把锁，还没有获取
func (c *Client) NewLock(key string, opts ...Option) (*Lock, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	o := c.opts
	for _, opt := range opts {
		opt(&o)
	}
	return &Lock{
		rdb:   c.rdb,
		key:   o.prefix + key,
		value: uuid.NewString(),
		opts:  o,
	}, nil
}

// Do 获取锁之后执行 fn，执行完释放
func (c *Client) Do(ctx context.Context, key string, fn func(ctx context.Context) error, opts ...Option) error {
	l, err := c.NewLock(key, opts...)
	if err != nil {
		return err
	}
	if err := l.Lock(ctx); err != nil {
		return err
	}
	defer func() {
		if _, err := l.Unlock(context.WithoutCancel(ctx)); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("key", l.key).Msg("failed to release lock")
		}
	}()
	return fn(ctx)
}

// TryLock 尝试获取一次，不重试
func (l *Lock) TryLock(ctx context.Context) (bool, error) {
	acquired, err := l.rdb.SetNX(ctx, l.key, l.value, l.opts.ttl).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		log.Ctx(ctx).Error().Err(err).Str("key", l.key).Msg("failed to setnx for lock")
		return false, err
	}
	if acquired {
		log.Ctx(ctx).Trace().Str("key", l.key).Dur("ttl", l.opts.ttl).Msg("lock acquired")
	}
	return acquired, nil
}

// Lock 获取锁，失败时按 retryDelay 重试，直到成功、超过次数或者 ctx 取消
func (l *Lock) Lock(ctx context.Context) error {
	for i := 0; ; i++ {
		acquired, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if acquired {
			return nil
		}
		if i >= l.opts.maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			log.Ctx(ctx).Warn().Err(ctx.Err()).Str("key", l.key).Msg("context done while waiting for lock")
			return ctx.Err()
		case <-time.After(l.opts.retryDelay):
		}
	}

	log.Ctx(ctx).Warn().Str("key", l.key).Int("retries", l.opts.maxRetries).Msg("failed to acquire lock")
	return ErrNotAcquired
}

// Unlock 释放锁，锁不属于自己时返回 ErrNotHeld
func (l *Lock) Unlock(ctx context.Context) (bool, error) {
	n, err := unlockScript.Run(ctx, l.rdb, []string{l.key}, l.value).Int64()
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("key", l.key).Msg("failed to run unlock script")
		return false, err
	}
	if n != 1 {
		return false, ErrNotHeld
	}
	log.Ctx(ctx).Trace().Str("key", l.key).Msg("lock released")
	return true, nil
}

// Extend 延长锁的过期时间
func (l *Lock) Extend(ctx context.Context, ttl time.Duration) error {
	n, err := extendScript.Run(ctx, l.rdb, []string{l.key}, l.value, ttl.Milliseconds()).Int64()
	if err != nil {
		return err
	}
	if n != 1 {
		return ErrNotHeld
	}
	return nil
}

// Key 锁在 redis 中的键
func (l *Lock) Key() string {
	return l.key
}

// Value 锁的随机值
func (l *Lock) Value() string {
	return l.value
}
