// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Market describes the rotating binary-market catalog the tracker scans for.
type Market struct {
	Asset           string `yaml:"asset"`
	Type            string `yaml:"type"`
	Timeframe       string `yaml:"timeframe"`
	IntervalSeconds int    `yaml:"interval_seconds"`
	PollSeconds     int    `yaml:"poll_seconds"`
	CatalogPath     string `yaml:"catalog_path"`
}

// Feed selects the quote-stream provider.
type Feed struct {
	Provider string `yaml:"provider"`
	WSURL    string `yaml:"ws_url"`
}

// SlugPrefix returns the slug prefix markets must carry, e.g. "btc-updown-15m".
func (m Market) SlugPrefix() string {
	return fmt.Sprintf("%s-%s-%s", m.Asset, m.Type, m.Timeframe)
}

// Gate tunes quote validation, the stability warm-up, and the trade window.
type Gate struct {
	StabilityTicks   int     `yaml:"stability_ticks"`
	MinSpread        float64 `yaml:"min_spread"`
	MaxQuote         float64 `yaml:"max_quote"`
	WindowStartSecs  int     `yaml:"window_start_secs"`
	WindowEndSecs    int     `yaml:"window_end_secs"`
	PriceHistorySize int     `yaml:"price_history_size"`
	TickBufferSize   int     `yaml:"tick_buffer_size"`
}

// Processors groups the per-processor tuning knobs.
type Processors struct {
	SpikeThreshold      float64 `yaml:"spike_threshold"`
	SpikeLookback       int     `yaml:"spike_lookback"`
	SentimentFear       float64 `yaml:"sentiment_fear"`
	SentimentGreed      float64 `yaml:"sentiment_greed"`
	MomentumThreshold   float64 `yaml:"momentum_threshold"`
	ExtremeProb         float64 `yaml:"extreme_prob"`
	LowProb             float64 `yaml:"low_prob"`
	ImbalanceThreshold  float64 `yaml:"imbalance_threshold"`
	MinBookVolumeUSD    float64 `yaml:"min_book_volume_usd"`
	VelocityThreshold60 float64 `yaml:"velocity_threshold_60s"`
	VelocityThreshold30 float64 `yaml:"velocity_threshold_30s"`
	BullishPCR          float64 `yaml:"bullish_pcr"`
	BearishPCR          float64 `yaml:"bearish_pcr"`
	MaxDaysToExpiry     int     `yaml:"max_days_to_expiry"`
	PCRCacheSecs        int     `yaml:"pcr_cache_secs"`
}

// Fusion configures consensus thresholds and per-source weights.
type Fusion struct {
	MinSignals int                `yaml:"min_signals"`
	MinScore   float64            `yaml:"min_score"`
	Weights    map[string]float64 `yaml:"weights"`
}

// Trading holds decision thresholds and sizing for the pipeline. Consensus
// agreement with the trend is required unless AllowDisagreement is set, so an
// omitted key keeps the safe behavior.
type Trading struct {
	TrendUpThreshold   float64 `yaml:"trend_up_threshold"`
	TrendDownThreshold float64 `yaml:"trend_down_threshold"`
	AllowDisagreement  bool    `yaml:"allow_disagreement"`
	PositionSizeUSD    float64 `yaml:"position_size_usd"`
	MinLiquidity       float64 `yaml:"min_liquidity"`
}

// Risk encodes guard-rails for how much size the pipeline may take on.
type Risk struct {
	MaxPositionSizeUSD float64 `yaml:"max_position_size_usd"`
	MaxExposureUSD     float64 `yaml:"max_exposure_usd"`
	MaxPositions       int     `yaml:"max_positions"`
	MaxDailyLossUSD    float64 `yaml:"max_daily_loss_usd"`
	MaxDrawdownPct     float64 `yaml:"max_drawdown_pct"`
	StartingBalanceUSD float64 `yaml:"starting_balance_usd"`
}

// Sources configures the external read-only context endpoints.
type Sources struct {
	FearGreedURL string `yaml:"fear_greed_url"`
	SpotURL      string `yaml:"spot_url"`
	BookURL      string `yaml:"book_url"`
	OptionsURL   string `yaml:"options_url"`
	Currency     string `yaml:"currency"`
	TimeoutSecs  int    `yaml:"timeout_secs"`
}

// Redis locates the run-mode flag store.
type Redis struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// Learning tunes the weight-adaptation job.
type Learning struct {
	Rate            float64 `yaml:"rate"`
	MinTrades       int     `yaml:"min_trades"`
	TriggerInterval int     `yaml:"trigger_interval"`
	MinWeight       float64 `yaml:"min_weight"`
	MaxWeight       float64 `yaml:"max_weight"`
}

// Paper captures simulation-mode trade recording settings.
type Paper struct {
	TradesPath string `yaml:"trades_path"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App        App        `yaml:"app"`
	Market     Market     `yaml:"market"`
	Feed       Feed       `yaml:"feed"`
	Gate       Gate       `yaml:"gate"`
	Processors Processors `yaml:"processors"`
	Fusion     Fusion     `yaml:"fusion"`
	Trading    Trading    `yaml:"trading"`
	Risk       Risk       `yaml:"risk"`
	Sources    Sources    `yaml:"sources"`
	Redis      Redis      `yaml:"redis"`
	Learning   Learning   `yaml:"learning"`
	Paper      Paper      `yaml:"paper"`
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
	config.applyDefaults()
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

func (c *Config) applyDefaults() {
	if c.Market.IntervalSeconds <= 0 {
		c.Market.IntervalSeconds = 900
	}
	if c.Market.PollSeconds <= 0 {
		c.Market.PollSeconds = 10
	}
	if c.Feed.Provider == "" {
		c.Feed.Provider = "stub"
	}
	if c.Gate.StabilityTicks <= 0 {
		c.Gate.StabilityTicks = 3
	}
	if c.Gate.MinSpread <= 0 {
		c.Gate.MinSpread = 0.001
	}
	if c.Gate.MaxQuote <= 0 {
		c.Gate.MaxQuote = 0.999
	}
	if c.Gate.WindowEndSecs <= 0 {
		c.Gate.WindowStartSecs = 780
		c.Gate.WindowEndSecs = 840
	}
	if c.Gate.PriceHistorySize <= 0 {
		c.Gate.PriceHistorySize = 500
	}
	if c.Gate.TickBufferSize <= 0 {
		c.Gate.TickBufferSize = 500
	}
	if c.Fusion.MinSignals <= 0 {
		c.Fusion.MinSignals = 1
	}
	if c.Fusion.MinScore <= 0 {
		c.Fusion.MinScore = 40
	}
	if c.Trading.TrendUpThreshold <= 0 {
		c.Trading.TrendUpThreshold = 0.60
	}
	if c.Trading.TrendDownThreshold <= 0 {
		c.Trading.TrendDownThreshold = 0.40
	}
	if c.Trading.PositionSizeUSD <= 0 {
		c.Trading.PositionSizeUSD = 1
	}
	if c.Trading.MinLiquidity <= 0 {
		c.Trading.MinLiquidity = 0.02
	}
	if c.Sources.TimeoutSecs <= 0 {
		c.Sources.TimeoutSecs = 5
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "updown_trading"
	}
}
