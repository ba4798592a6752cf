package config

import (
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	path := filepath.Join("testdata", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Name != "hesoyam-test" {
		t.Fatalf("unexpected App.Name: %s", cfg.App.Name)
	}
	if cfg.Exchange.Symbol != "BTCUSDT" {
		t.Fatalf("unexpected symbol: %s", cfg.Exchange.Symbol)
	}
	if cfg.Exchange.PollIntervalMs != 2000 {
		t.Fatalf("unexpected poll interval: %d", cfg.Exchange.PollIntervalMs)
	}
	if len(cfg.Strategy.Weights) != 4 {
		t.Fatalf("expected 4 weights, got %+v", cfg.Strategy.Weights)
	}
	if cfg.Strategy.Weights["SMA_EMA"] != 0.4 {
		t.Fatalf("unexpected SMA_EMA weight: %.2f", cfg.Strategy.Weights["SMA_EMA"])
	}
	if cfg.Strategy.ThresholdUp != 70 || cfg.Strategy.ThresholdDown != 30 {
		t.Fatalf("unexpected thresholds: %.1f/%.1f", cfg.Strategy.ThresholdUp, cfg.Strategy.ThresholdDown)
	}
	if cfg.Strategy.Modules.SmaShort != 20 || cfg.Strategy.Modules.SmaLong != 50 {
		t.Fatalf("unexpected sma periods: %+v", cfg.Strategy.Modules)
	}
	if cfg.Strategy.Modules.MtfFactor != 12 {
		t.Fatalf("unexpected mtf factor: %d", cfg.Strategy.Modules.MtfFactor)
	}
	if cfg.Risk.MaxDailyLossPct != 2.0 {
		t.Fatalf("unexpected daily loss budget: %.2f", cfg.Risk.MaxDailyLossPct)
	}
	if cfg.Risk.MaxNotionalPerTrade != 250 {
		t.Fatalf("unexpected per-trade cap: %.2f", cfg.Risk.MaxNotionalPerTrade)
	}
	if !cfg.Live.AttachBracket {
		t.Fatalf("expected bracket attachment enabled")
	}
	if cfg.Live.FillsPath != "data/fills.jsonl" {
		t.Fatalf("unexpected fills path: %s", cfg.Live.FillsPath)
	}
	if cfg.Backtest.FeeRate != 0.0004 {
		t.Fatalf("unexpected fee rate: %f", cfg.Backtest.FeeRate)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Default()
	cfg.Risk.MaxDailyLossPct = 3.5

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded.Risk.MaxDailyLossPct != 3.5 {
		t.Fatalf("round trip lost risk budget: %.2f", loaded.Risk.MaxDailyLossPct)
	}
	if loaded.Strategy.Weights["BOLL"] != cfg.Strategy.Weights["BOLL"] {
		t.Fatalf("round trip lost weights")
	}
}
