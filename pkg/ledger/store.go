package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/play/baloot/pkg/baloot"
	"github.com/play/baloot/pkg/redlock"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrMatchFinished  = errors.New("match already finished")
)

// Store 比赛记录保存在 redis 的 hash 中
// records: match id -> Record，tables: table id -> 最近的 match id
type Store struct {
	rdb        redis.Cmdable
	locks      *redlock.Client
	opts       *options
	recordsKey string
	tablesKey  string
}

func New(rdb redis.Cmdable, locks *redlock.Client, opts ...Option) *Store {
	o := new(options)
	o.apply(opts...).setDefault()

	if locks == nil {
		locks = redlock.New(rdb)
	}
	return &Store{
		rdb:        rdb,
		locks:      locks,
		opts:       o,
		recordsKey: o.prefix + ":ledger:records",
		tablesKey:  o.prefix + ":ledger:tables",
	}
}

// Save saves the record
func (s *Store) Save(ctx context.Context, rec *Record) (err error) {
	_, err = s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.recordsKey, rec.MatchId, rec)
		if rec.TableId != "" {
			pipe.HSet(ctx, s.tablesKey, rec.TableId, rec.MatchId)
		}
		return nil
	})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("match_id", rec.MatchId).Msg("failed to save record")
		return fmt.Errorf("save record: %w", err)
	}
	return nil
}

// Get gets the record
func (s *Store) Get(ctx context.Context, matchId string) (*Record, error) {
	rec := new(Record)
	err := s.rdb.HGet(ctx, s.recordsKey, matchId).Scan(rec)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return rec, nil
}

// GetByTable gets the latest record of the table
func (s *Store) GetByTable(ctx context.Context, tableId string) (*Record, error) {
	matchId, err := s.rdb.HGet(ctx, s.tablesKey, tableId).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return s.Get(ctx, matchId)
}

// Fold 把一局的结果计入比赛记录
// 读-改-写在锁里完成，多个进程同时结算同一场比赛不会丢分
func (s *Store) Fold(ctx context.Context, matchId string, result baloot.RoundResult) (rec *Record, err error) {
	err = s.locks.Do(ctx, "ledger:"+matchId, func(ctx context.Context) error {
		rec, err = s.Get(ctx, matchId)
		if err != nil {
			return err
		}
		if rec.IsFinished() {
			return ErrMatchFinished
		}
		if err = rec.apply(result); err != nil {
			return err
		}
		return s.rdb.HSet(ctx, s.recordsKey, rec.MatchId, rec).Err()
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Debug().
		Str("match_id", matchId).
		Int("rounds", rec.Rounds).
		Int("team0", rec.Scores[0]).
		Int("team1", rec.Scores[1]).
		Int8("winner", rec.Winner).
		Msg("round folded into ledger")
	return rec, nil
}

// Remove removes the record
func (s *Store) Remove(ctx context.Context, matchId string) (err error) {
	rec, err := s.Get(ctx, matchId)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			err = nil
		}
		return
	}

	_, err = s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, s.recordsKey, matchId)
		if rec.TableId != "" {
			pipe.HDel(ctx, s.tablesKey, rec.TableId)
		}
		return nil
	})
	return
}
