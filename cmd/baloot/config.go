package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func defineFlags(fs *pflag.FlagSet) {
	fs.StringP("config", "c", "", "config file (yaml, json or toml)")
	fs.Bool("version", false, "print version and exit")

	fs.String("log.level", "info", "log level: trace, debug, info, warn, error")
	fs.Bool("log.console", true, "human readable console output")
	fs.Bool("log.traced", false, "log every consumed event payload")

	fs.Int("simulate.matches", 100, "number of self-play matches")
	fs.Int("simulate.workers", 8, "matches played at the same time")
	fs.Int("simulate.target", 152, "score that ends a match")
	fs.Int("simulate.max_rounds", 200, "give up a match after this many rounds")
	fs.String("table.selector", "random", "mode per round: random, sun or hokum:<suit>")

	fs.String("redis.addr", "", "redis address, empty disables events and ledger")
	fs.String("redis.password", "", "redis password")
	fs.Int("redis.db", 0, "redis database")
	fs.String("events.topic", "table", "topic for table events")
	fs.Bool("events.watch", false, "consume the event topic and log finished matches")
}

// loadConfig 命令行参数 > 环境变量 BALOOT_* > 配置文件 > 默认值
func loadConfig(args []string) error {
	fs := pflag.NewFlagSet("baloot", pflag.ContinueOnError)
	defineFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := viper.BindPFlags(fs); err != nil {
		return err
	}

	viper.SetEnvPrefix("BALOOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if file := viper.GetString("config"); file != "" {
		viper.SetConfigFile(file)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", file, err)
		}
	}
	return nil
}

func setupLogger() {
	level, err := zerolog.ParseLevel(viper.GetString("log.level"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if viper.GetBool("log.console") {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}
	log.Logger = log.Logger.With().Caller().Logger()
}
