package simulate

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/play/baloot/pkg/baloot"
	"github.com/play/baloot/pkg/table"
	"github.com/play/baloot/pkg/worker"
)

var (
	ErrPointsMismatch = errors.New("round points do not add up to the mode total")
	ErrTooManyRounds  = errors.New("match did not finish")
	ErrInvalidConfig  = errors.New("invalid simulation config")
)

// Config 自对弈参数
type Config struct {
	Matches   int                 // 比赛场数
	Workers   int                 // 同时进行的比赛数
	Target    int                 // 比赛结束的分数
	MaxRounds int                 // 每场最多局数，防止一直平分
	Selector  baloot.ModeSelector // 每局的玩法
	SelName   string              // 选择器的名字，写入比赛记录
}

// ConfigFromViper 读取 simulate.* 和 table.selector
func ConfigFromViper() (Config, error) {
	viper.SetDefault("simulate.matches", 100)
	viper.SetDefault("simulate.workers", 8)
	viper.SetDefault("simulate.target", 152)
	viper.SetDefault("simulate.max_rounds", 200)
	viper.SetDefault("table.selector", "random")

	selector, err := baloot.ParseSelector(viper.GetString("table.selector"))
	if err != nil {
		return Config{}, fmt.Errorf("table.selector %q: %w", viper.GetString("table.selector"), err)
	}
	cfg := Config{
		Matches:   viper.GetInt("simulate.matches"),
		Workers:   viper.GetInt("simulate.workers"),
		Target:    viper.GetInt("simulate.target"),
		MaxRounds: viper.GetInt("simulate.max_rounds"),
		Selector:  selector,
		SelName:   viper.GetString("table.selector"),
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.Matches <= 0 || c.Target <= 0 {
		return fmt.Errorf("%w: matches=%d target=%d", ErrInvalidConfig, c.Matches, c.Target)
	}
	if c.MaxRounds <= 0 {
		c.MaxRounds = 200
	}
	if c.Selector == nil {
		c.Selector = baloot.RandomSelector
		c.SelName = "random"
	}
	return nil
}

// Summary 所有比赛的汇总
type Summary struct {
	Matches  int            // 完成的比赛场数
	Rounds   int            // 总局数
	Wins     [2]int         // 两队赢的场数
	Points   [2]int         // 两队的总得分
	Modes    map[string]int // 每种玩法的局数
	Duration time.Duration
}

// MatchResult 一场比赛的结果
type MatchResult struct {
	TableId string
	MatchId string
	Winner  int8
	Scores  [2]int
	Rounds  int
}

// Run 用 worker 池并发进行 cfg.Matches 场全机器人比赛
// opts 用于每张牌桌，例如事件发布和比赛记录
func Run(ctx context.Context, cfg Config, opts ...table.Option) (Summary, error) {
	if err := cfg.validate(); err != nil {
		return Summary{}, err
	}

	start := time.Now()
	sum := Summary{Modes: make(map[string]int)}
	var (
		mu       sync.Mutex
		firstErr error
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tables := table.NewManager(0, 0, matchOptions(cfg)...)
	defer tables.Purge()
	tableOpts := append(slices.Clone(opts), table.WithBots(0, 1, 2, 3))

	pool := worker.NewPool(cfg.Workers)
	for i := 0; i < cfg.Matches; i++ {
		_, err := pool.Do(ctx, func(ctx context.Context) {
			tb := tables.Create(tableOpts...)
			res, modes, err := playMatch(ctx, cfg, tb)
			tables.Remove(tb.Id())

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
					cancel()
				}
				return
			}
			sum.Matches++
			sum.Rounds += res.Rounds
			sum.Wins[res.Winner]++
			sum.Points[0] += res.Scores[0]
			sum.Points[1] += res.Scores[1]
			for mode, n := range modes {
				sum.Modes[mode] += n
			}
		})
		if err != nil {
			break
		}
	}
	pool.Wait()
	sum.Duration = time.Since(start)

	if firstErr == nil {
		firstErr = ctx.Err()
	}
	if firstErr != nil {
		return sum, firstErr
	}

	log.Ctx(ctx).Info().
		Int("matches", sum.Matches).
		Int("rounds", sum.Rounds).
		Int("team0_wins", sum.Wins[0]).
		Int("team1_wins", sum.Wins[1]).
		Dur("duration", sum.Duration).
		Msg("simulation finished")
	return sum, nil
}

// PlayMatch 进行一场全机器人比赛，每局结束后检查得分是否守恒
func PlayMatch(ctx context.Context, cfg Config, opts ...table.Option) (MatchResult, map[string]int, error) {
	if err := cfg.validate(); err != nil {
		return MatchResult{}, nil, err
	}

	all := append(matchOptions(cfg), opts...)
	all = append(all, table.WithBots(0, 1, 2, 3))
	return playMatch(ctx, cfg, table.New(all...))
}

func matchOptions(cfg Config) []table.Option {
	return []table.Option{
		table.WithSelector(cfg.Selector),
		table.WithSelectorName(cfg.SelName),
		table.WithTarget(cfg.Target),
	}
}

func playMatch(ctx context.Context, cfg Config, tb *table.Table) (MatchResult, map[string]int, error) {
	modes := make(map[string]int)
	for round := 0; round < cfg.MaxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return MatchResult{}, nil, err
		}
		if err := tb.Deal(ctx); err != nil {
			return MatchResult{}, nil, err
		}

		result := tb.Results()[0]
		policy := baloot.Policy{Mode: result.Mode, Trump: result.Trump}
		if result.Total() != policy.Total() {
			return MatchResult{}, nil, fmt.Errorf("%w: table %s round %d %s got %d want %d",
				ErrPointsMismatch, tb.Id(), round+1, result.Mode, result.Total(), policy.Total())
		}
		modes[result.Mode.String()]++

		if team, ok := tb.Winner(); ok {
			state := tb.State()
			return MatchResult{
				TableId: tb.Id(),
				MatchId: tb.MatchId(),
				Winner:  team,
				Scores:  state.Scores,
				Rounds:  state.Rounds,
			}, modes, nil
		}
	}
	return MatchResult{}, nil, fmt.Errorf("%w: table %s after %d rounds", ErrTooManyRounds, tb.Id(), cfg.MaxRounds)
}
