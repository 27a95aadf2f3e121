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

	if cfg.App.Name != "updownbot-test" {
		t.Fatalf("unexpected App.Name: %s", cfg.App.Name)
	}
	if cfg.Market.SlugPrefix() != "btc-updown-15m" {
		t.Fatalf("unexpected slug prefix: %s", cfg.Market.SlugPrefix())
	}
	if cfg.Market.IntervalSeconds != 900 {
		t.Fatalf("unexpected interval: %d", cfg.Market.IntervalSeconds)
	}
	if cfg.Gate.StabilityTicks != 3 {
		t.Fatalf("unexpected stability ticks: %d", cfg.Gate.StabilityTicks)
	}
	if cfg.Gate.WindowStartSecs != 780 || cfg.Gate.WindowEndSecs != 840 {
		t.Fatalf("unexpected trade window: %d-%d", cfg.Gate.WindowStartSecs, cfg.Gate.WindowEndSecs)
	}
	if cfg.Gate.PriceHistorySize != 500 {
		t.Fatalf("unexpected price history size: %d", cfg.Gate.PriceHistorySize)
	}
	if cfg.Processors.SpikeThreshold != 0.05 {
		t.Fatalf("unexpected spike threshold: %v", cfg.Processors.SpikeThreshold)
	}
	if cfg.Processors.ImbalanceThreshold != 0.30 {
		t.Fatalf("unexpected imbalance threshold: %v", cfg.Processors.ImbalanceThreshold)
	}
	if cfg.Processors.BullishPCR != 1.20 {
		t.Fatalf("unexpected bullish PCR: %v", cfg.Processors.BullishPCR)
	}
	if cfg.Fusion.MinScore != 40 {
		t.Fatalf("unexpected fusion min score: %v", cfg.Fusion.MinScore)
	}
	if w := cfg.Fusion.Weights["OrderBookImbalance"]; w != 0.30 {
		t.Fatalf("unexpected orderbook weight: %v", w)
	}
	if cfg.Trading.TrendUpThreshold != 0.60 || cfg.Trading.TrendDownThreshold != 0.40 {
		t.Fatalf("unexpected trend thresholds: %v/%v", cfg.Trading.TrendUpThreshold, cfg.Trading.TrendDownThreshold)
	}
	if cfg.Trading.AllowDisagreement {
		t.Fatalf("expected agreement required by default")
	}
	if cfg.Risk.MaxPositionSizeUSD != 1 {
		t.Fatalf("unexpected max position size: %v", cfg.Risk.MaxPositionSizeUSD)
	}
	if cfg.Risk.MaxPositions != 5 {
		t.Fatalf("unexpected max positions: %d", cfg.Risk.MaxPositions)
	}
	if cfg.Sources.Currency != "BTC" {
		t.Fatalf("unexpected currency: %s", cfg.Sources.Currency)
	}
	if cfg.Redis.KeyPrefix != "btc_trading" {
		t.Fatalf("unexpected redis key prefix: %s", cfg.Redis.KeyPrefix)
	}
	if cfg.Learning.Rate != 0.1 {
		t.Fatalf("unexpected learning rate: %v", cfg.Learning.Rate)
	}
	if cfg.Paper.TradesPath != "data/paper_trades.jsonl" {
		t.Fatalf("unexpected trades path: %s", cfg.Paper.TradesPath)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join("testdata", "minimal.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Market.IntervalSeconds != 900 {
		t.Fatalf("expected default interval 900, got %d", cfg.Market.IntervalSeconds)
	}
	if cfg.Gate.MaxQuote != 0.999 {
		t.Fatalf("expected default max quote, got %v", cfg.Gate.MaxQuote)
	}
	if cfg.Gate.WindowStartSecs != 780 || cfg.Gate.WindowEndSecs != 840 {
		t.Fatalf("expected default trade window, got %d-%d", cfg.Gate.WindowStartSecs, cfg.Gate.WindowEndSecs)
	}
	if cfg.Trading.PositionSizeUSD != 1 {
		t.Fatalf("expected default position size, got %v", cfg.Trading.PositionSizeUSD)
	}
}
