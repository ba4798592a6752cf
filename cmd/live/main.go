package main

import (
	"context"
	"flag"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Wame555/hesoyam/internal/config"
	"github.com/Wame555/hesoyam/internal/exchange"
	"github.com/Wame555/hesoyam/internal/live"
	"github.com/Wame555/hesoyam/internal/market"
	"github.com/Wame555/hesoyam/internal/metrics"
	"github.com/Wame555/hesoyam/internal/module"
	"github.com/Wame555/hesoyam/internal/position"
	"github.com/Wame555/hesoyam/internal/util"
)

const defaultConfigPath = "internal/config/config.yaml"

func main() {
	_ = godotenv.Load() // best-effort

	configPath := flag.String("config", defaultConfigPath, "YAML config path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		cfg = config.Default()
	}
	applyEnv(cfg)

	log := util.NewLogger(cfg.App.LogLevel)
	if cfg.App.LogFile != "" {
		log = util.NewFileLogger(cfg.App.LogLevel, cfg.App.LogFile, 50, 3)
	}

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	bars := make(chan market.Bar, 256)
	ticks := make(chan market.Tick, 1024)

	feed := exchange.NewFeed(cfg.Exchange.Provider, cfg.Exchange.Symbol,
		market.Timeframe(cfg.Exchange.Timeframe), log)
	go func() {
		if err := feed.Run(ctx, bars, ticks); err != nil {
			log.Error().Err(err).Msg("feed stopped")
			cancel()
		}
	}()

	var fills chan exchange.ExecUpdate
	var balances chan exchange.BalanceDelta
	if cfg.Exchange.Provider == exchange.ProviderBinance && cfg.Exchange.APIKey != "" {
		fills = make(chan exchange.ExecUpdate, 256)
		balances = make(chan exchange.BalanceDelta, 64)
		stream := exchange.NewUserStream(cfg.Exchange.APIKey, cfg.Exchange.Testnet, log)
		go func() {
			if err := stream.Run(ctx, fills, balances); err != nil {
				log.Error().Err(err).Msg("user stream stopped")
			}
		}()
	}

	trader := exchange.NewStubTrader(log)
	tracker := position.NewTracker()
	session := live.NewSession(cfg, buildModules(cfg.Strategy.Modules), trader, tracker, log)

	log.Info().Str("provider", cfg.Exchange.Provider).Str("symbol", cfg.Exchange.Symbol).Msg("live session starting")
	session.Run(ctx, bars, ticks, fills, balances)
}

// applyEnv lets credentials come from the environment so they never need to
// live in the YAML file.
func applyEnv(cfg *config.Config) {
	if v := os.Getenv("EXCHANGE_API_KEY"); v != "" {
		cfg.Exchange.APIKey = v
	}
	if v := os.Getenv("EXCHANGE_API_SECRET"); v != "" {
		cfg.Exchange.APISecret = v
	}
	if v := os.Getenv("WEBHOOK_URL"); v != "" {
		cfg.Live.WebhookURL = v
	}
}

func buildModules(m config.Modules) []module.Module {
	return []module.Module{
		module.NewSmaEma(m.SmaShort, m.SmaLong),
		module.NewRSI(m.RsiPeriod),
		module.NewBollinger(m.BollPeriod, m.BollK),
		module.NewMultiTF(m.MtfFactor, m.MtfFast, m.MtfSlow),
	}
}
