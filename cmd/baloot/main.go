package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/play/baloot/pkg/compile"
	"github.com/play/baloot/pkg/events"
	"github.com/play/baloot/pkg/extension"
	"github.com/play/baloot/pkg/ledger"
	"github.com/play/baloot/pkg/redlock"
	"github.com/play/baloot/pkg/simulate"
	"github.com/play/baloot/pkg/table"
)

func main() {
	if err := loadConfig(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if viper.GetBool("version") {
		fmt.Println(compile.String())
		return
	}

	setupLogger()
	compile.Log()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = log.Logger.WithContext(ctx)

	if err := run(ctx); err != nil {
		log.Error().Err(err).Msg("simulation failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := simulate.ConfigFromViper()
	if err != nil {
		return err
	}

	exts := extension.NewManager()
	defer exts.ExitAll()

	var opts []table.Option
	if addr := viper.GetString("redis.addr"); addr != "" {
		opts = setupRedis(ctx, exts, addr)
	}
	if err := exts.LoadAll(); err != nil {
		return err
	}

	log.Info().
		Int("matches", cfg.Matches).
		Int("workers", cfg.Workers).
		Int("target", cfg.Target).
		Str("selector", viper.GetString("table.selector")).
		Strs("extensions", exts.Loaded()).
		Msg("simulation starting")

	sum, err := simulate.Run(ctx, cfg, opts...)
	if err != nil {
		return err
	}

	log.Info().
		Int("matches", sum.Matches).
		Int("rounds", sum.Rounds).
		Int("team0_wins", sum.Wins[0]).
		Int("team1_wins", sum.Wins[1]).
		Int("team0_points", sum.Points[0]).
		Int("team1_points", sum.Points[1]).
		Int("sun_rounds", sum.Modes["sun"]).
		Int("hokum_rounds", sum.Modes["hokum"]).
		Dur("duration", sum.Duration).
		Msg("simulation summary")
	return nil
}

// setupRedis 注册 redis 连接和事件总线，牌桌的事件和比赛记录写入 redis
func setupRedis(ctx context.Context, exts *extension.Manager, addr string) []table.Option {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: viper.GetString("redis.password"),
		DB:       viper.GetInt("redis.db"),
	})
	bus := events.New(rdb, events.WithRecovery())
	store := ledger.New(rdb, redlock.New(rdb))
	topic := viper.GetString("events.topic")

	exts.Register(
		extension.New("redis",
			func() error { return rdb.Ping(ctx).Err() },
			func() {
				if err := rdb.Close(); err != nil {
					log.Warn().Err(err).Msg("failed to close redis client")
				}
			},
		),
		extension.New("events", nil, func() { _ = bus.Close() }),
	)

	if viper.GetBool("events.watch") {
		exts.Register(extension.New("events.watch", func() error {
			sub, err := bus.Subscribe(ctx, topic, watchEvent(store))
			if err != nil {
				return err
			}
			sub.Loop()
			return nil
		}, nil))
	}

	return []table.Option{
		table.WithPublisher(bus, topic),
		table.WithRecorder(store),
	}
}

// watchEvent 记录结束的比赛和对应的比赛记录
func watchEvent(store *ledger.Store) events.Handler {
	return func(ctx context.Context, ev events.Event) {
		if ev.Kind != events.KindMatchFinished {
			return
		}
		logger := log.With().Str("table_id", ev.TableId).Int8("winner", ev.Winner).Ints("scores", ev.Scores[:]).Logger()

		rec, err := store.GetByTable(ctx, ev.TableId)
		if err != nil {
			logger.Warn().Err(err).Msg("match finished without ledger record")
			return
		}
		logger.Info().Str("match_id", rec.MatchId).Int("rounds", rec.Rounds).Msg("match finished")
	}
}
