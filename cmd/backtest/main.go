package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/Wame555/hesoyam/internal/backtest"
	"github.com/Wame555/hesoyam/internal/config"
	"github.com/Wame555/hesoyam/internal/decision"
	"github.com/Wame555/hesoyam/internal/market"
	"github.com/Wame555/hesoyam/internal/module"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config path")
	symbolName := flag.String("symbol", "", "override the configured symbol")
	grid := flag.Bool("grid", false, "run the weight grid search and print the leaderboard")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: backtest [-config path] [-symbol SYM] [-grid] <history.csv> [mtf_factor]")
		os.Exit(1)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *symbolName != "" {
		cfg.Exchange.Symbol = *symbolName
	}

	mods := cfg.Strategy.Modules
	if flag.NArg() >= 2 {
		mods.MtfFactor = parseMtfFactor(flag.Arg(1))
	}
	if mods.MtfFactor < 1 {
		mods.MtfFactor = 1
	}

	bars, err := market.LoadBars(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load history: %v\n", err)
		os.Exit(2)
	}

	btCfg := backtest.Config{
		StartingCash:  cfg.Backtest.StartingCash,
		FeeRate:       cfg.Backtest.FeeRate,
		PositionFrac:  cfg.Backtest.PositionFrac,
		ThresholdUp:   cfg.Strategy.ThresholdUp,
		ThresholdDown: cfg.Strategy.ThresholdDown,
		Timeframe:     market.Timeframe(cfg.Exchange.Timeframe),
	}
	sym := market.ParseSymbol(cfg.Exchange.Symbol)
	weights := decision.Weights(cfg.Strategy.Weights)

	res := backtest.NewEngine(btCfg, buildModules(mods), weights, sym).Run(bars)

	fmt.Printf("bars:          %d\n", len(bars))
	fmt.Printf("final equity:  %.2f\n", res.FinalEquity)
	fmt.Printf("trades:        %d\n", res.Trades)
	fmt.Printf("max drawdown:  %.2f%%\n", res.MaxDrawdown*100)

	if *grid {
		runGrid(btCfg, mods, sym, bars)
	}
}

func runGrid(btCfg backtest.Config, mods config.Modules, sym market.Symbol, bars []market.Bar) {
	factory := func() []module.Module { return buildModules(mods) }
	ids := [3]string{"SMA_EMA", "RSI", "BOLL"}
	entries := backtest.GridSearch(btCfg, factory, ids, sym, bars)

	fmt.Println("\nweight grid leaderboard")
	fmt.Println("  w1    w2    w3    equity      trades  maxdd%")
	for _, e := range entries {
		fmt.Printf("  %.1f   %.1f   %.1f   %-10.2f  %-6d  %.2f\n",
			e.W1, e.W2, e.W3, e.FinalEquity, e.Trades, e.MaxDrawdown*100)
	}
}

// parseMtfFactor reads the optional aggregation factor argument; anything
// non-numeric or below the minimum clamps to 1.
func parseMtfFactor(arg string) int {
	factor, _ := strconv.Atoi(arg)
	if factor < 1 {
		factor = 1
	}
	return factor
}

func buildModules(m config.Modules) []module.Module {
	return []module.Module{
		module.NewSmaEma(m.SmaShort, m.SmaLong),
		module.NewRSI(m.RsiPeriod),
		module.NewBollinger(m.BollPeriod, m.BollK),
		module.NewMultiTF(m.MtfFactor, m.MtfFast, m.MtfSlow),
	}
}
