package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

var (
	ErrPoolClosed = errors.New("pool is closed")
)

// Pool 限制同时运行的任务数量
// 每个任务占用一张票，任务结束后归还
type Pool struct {
	limit   int
	tickets chan int
	num     atomic.Int32
	wg      sync.WaitGroup
	once    sync.Once
	closed  chan struct{}
}

// NewPool 创建任务池，limit <= 0 时为 10
func NewPool(limit int) *Pool {
	if limit <= 0 {
		limit = 10
	}

	p := &Pool{
		limit:   limit,
		tickets: make(chan int, limit),
		closed:  make(chan struct{}),
	}
	for i := 0; i < limit; i++ {
		p.tickets <- i
	}
	return p
}

// Do 等到有空闲的票后在新 goroutine 中执行 job
// 返回使用的票号，ctx 取消或者池已关闭时返回错误
func (p *Pool) Do(ctx context.Context, job func(ctx context.Context)) (ticket int, err error) {
	select {
	case <-p.closed:
		return -1, ErrPoolClosed
	default:
	}

	select {
	case <-ctx.Done():
		return -1, ctx.Err()
	case <-p.closed:
		return -1, ErrPoolClosed
	case ticket = <-p.tickets:
	}

	p.num.Add(1)
	p.wg.Add(1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Int("ticket", ticket).Msg("recovered panic in worker job")
			}
			p.num.Add(-1)
			p.tickets <- ticket
			p.wg.Done()
		}()
		if job != nil {
			job(ctx)
		}
	}()
	return ticket, nil
}

// Wait 关闭任务池并等待所有任务结束，之后 Do 返回 ErrPoolClosed
func (p *Pool) Wait() {
	p.once.Do(func() {
		close(p.closed)
	})
	p.wg.Wait()
}

// Num 正在执行的任务数量
func (p *Pool) Num() int {
	return int(p.num.Load())
}

// Limit 最大并发数
func (p *Pool) Limit() int {
	return p.limit
}
