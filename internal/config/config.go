// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging.
type App struct {
	Name        string
	Env         string
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
	LogFile     string `yaml:"log_file"`
}

// Exchange describes the venue connectivity parameters for the live session.
type Exchange struct {
	Name           string
	Provider       string // "stub" or "binance"
	Symbol         string
	Timeframe      string
	APIKey         string `yaml:"api_key"`
	APISecret      string `yaml:"api_secret"`
	Testnet        bool
	PollIntervalMs int `yaml:"poll_interval_ms"`
}

// Modules groups the indicator periods for the four scoring modules.
type Modules struct {
	SmaShort   int     `yaml:"sma_short"`
	SmaLong    int     `yaml:"sma_long"`
	RsiPeriod  int     `yaml:"rsi_period"`
	BollPeriod int     `yaml:"boll_period"`
	BollK      float64 `yaml:"boll_k"`
	MtfFactor  int     `yaml:"mtf_factor"`
	MtfFast    int     `yaml:"mtf_fast"`
	MtfSlow    int     `yaml:"mtf_slow"`
}

// Strategy carries the aggregation weights and decision thresholds.
type Strategy struct {
	Weights       map[string]float64
	ThresholdUp   float64 `yaml:"threshold_up"`
	ThresholdDown float64 `yaml:"threshold_down"`
	Modules       Modules
}

// Risk encodes the guard-rails consulted before live order submission.
type Risk struct {
	MaxNotionalPerTrade float64 `yaml:"max_notional_per_trade"`
	MaxDailyLossPct     float64 `yaml:"max_daily_loss_pct"`
}

// Live tunes the live session: order sizing, OCO bracket, and order polling.
type Live struct {
	OrderQuoteAmount float64 `yaml:"order_quote_amount"`
	AttachBracket    bool    `yaml:"attach_bracket"`
	TakeProfitPct    float64 `yaml:"take_profit_pct"`
	StopLossPct      float64 `yaml:"stop_loss_pct"`
	PollIntervalSec  float64 `yaml:"poll_interval_sec"`
	FillsPath        string  `yaml:"fills_path"`
	WebhookURL       string  `yaml:"webhook_url"`
}

// Backtest carries simulator defaults for cmd/backtest.
type Backtest struct {
	StartingCash float64 `yaml:"starting_cash"`
	FeeRate      float64 `yaml:"fee_rate"`
	PositionFrac float64 `yaml:"position_frac"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App      App      `yaml:"app"`
	Exchange Exchange `yaml:"exchange"`
	Strategy Strategy `yaml:"strategy"`
	Risk     Risk     `yaml:"risk"`
	Live     Live     `yaml:"live"`
	Backtest Backtest `yaml:"backtest"`
}

// Default returns the stock configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		App: App{Name: "hesoyam", Env: "dev", MetricsAddr: ":9100", LogLevel: "info"},
		Exchange: Exchange{
			Name: "binance", Provider: "stub", Symbol: "BTCUSDT",
			Timeframe: "5m", Testnet: true, PollIntervalMs: 2000,
		},
		Strategy: Strategy{
			Weights:       map[string]float64{"SMA_EMA": 0.4, "RSI": 0.3, "BOLL": 0.2, "MTF_SMA": 0.1},
			ThresholdUp:   70,
			ThresholdDown: 30,
			Modules: Modules{
				SmaShort: 20, SmaLong: 50,
				RsiPeriod:  14,
				BollPeriod: 20, BollK: 2.0,
				MtfFactor: 12, MtfFast: 10, MtfSlow: 30,
			},
		},
		Risk: Risk{MaxNotionalPerTrade: 250, MaxDailyLossPct: 2.0},
		Live: Live{
			OrderQuoteAmount: 100, AttachBracket: true,
			TakeProfitPct: 2.0, StopLossPct: 1.5, PollIntervalSec: 2.0,
		},
		Backtest: Backtest{StartingCash: 10_000, FeeRate: 0.0004, PositionFrac: 0.2},
	}
}

// Load reads a YAML file from disk and hydrates a Config struct.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
