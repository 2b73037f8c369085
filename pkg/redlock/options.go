package redlock

import "time"

// options 获取锁时的参数
type options struct {
	ttl        time.Duration // 锁的过期时间
	maxRetries int           // 最大重试次数
	retryDelay time.Duration // 每次重试之间的延迟
	prefix     string        // 键前缀
}

type Option func(*options)

// WithTTL 设置锁的过期时间
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithMaxRetries 设置获取锁的最大重试次数，0 表示只尝试一次
func WithMaxRetries(retries int) Option {
	return func(o *options) {
		if retries >= 0 {
			o.maxRetries = retries
		}
	}
}

// WithRetryDelay 设置每次重试之间的延迟
func WithRetryDelay(delay time.Duration) Option {
	return func(o *options) {
		o.retryDelay = delay
	}
}

// WithPrefix 设置锁的键前缀
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

func defaultOptions() options {
	return options{
		ttl:        3 * time.Second,
		maxRetries: 3,
		retryDelay: 100 * time.Millisecond,
		prefix:     "baloot:lock:",
	}
}
