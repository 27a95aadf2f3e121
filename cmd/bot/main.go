// Binary bot runs the decision core against the configured market catalog and
// quote feed.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"updownbot/internal/config"
	"updownbot/internal/datasource"
	"updownbot/internal/engine"
	"updownbot/internal/exchange"
	"updownbot/internal/execution"
	"updownbot/internal/fusion"
	"updownbot/internal/market"
	"updownbot/internal/metrics"
	"updownbot/internal/mode"
	"updownbot/internal/paper"
	"updownbot/internal/processor"
	"updownbot/internal/risk"
	"updownbot/internal/util"
)

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to YAML config")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fallback := util.NewLogger("info")
		fallback.Fatal().Err(err).Msg("load config")
	}
	log := util.NewLogger(cfg.App.LogLevel)

	if cfg.App.MetricsAddr != "" {
		_ = metrics.Serve(cfg.App.MetricsAddr)
		log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")
	}

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	interval := time.Duration(cfg.Market.IntervalSeconds) * time.Second
	tracker := market.NewTracker(cfg.Market.SlugPrefix(), interval, log)
	catalog, err := loadCatalog(cfg, interval)
	if err != nil {
		log.Fatal().Err(err).Msg("load catalog")
	}
	if err := tracker.Load(catalog, time.Now()); err != nil {
		log.Fatal().Err(err).Msg("scan catalog")
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	modeFlag := mode.New(redisClient, cfg.Redis.KeyPrefix, true, log)

	client := datasource.New(datasource.Config{
		FearGreedURL: cfg.Sources.FearGreedURL,
		SpotURL:      cfg.Sources.SpotURL,
		BookURL:      cfg.Sources.BookURL,
		OptionsURL:   cfg.Sources.OptionsURL,
		Currency:     cfg.Sources.Currency,
		Timeout:      time.Duration(cfg.Sources.TimeoutSecs) * time.Second,
	}, log)

	pcr := processor.NewPutCallRatio(client,
		cfg.Processors.BullishPCR, cfg.Processors.BearishPCR,
		cfg.Processors.MaxDaysToExpiry, cfg.Processors.PCRCacheSecs)
	procs := []processor.Processor{
		processor.NewSpike(cfg.Processors.SpikeThreshold, cfg.Processors.SpikeLookback),
		processor.NewSentiment(cfg.Processors.SentimentFear, cfg.Processors.SentimentGreed),
		processor.NewDivergence(cfg.Processors.MomentumThreshold, cfg.Processors.ExtremeProb, cfg.Processors.LowProb),
		processor.NewOrderBook(cfg.Processors.ImbalanceThreshold, cfg.Processors.MinBookVolumeUSD),
		processor.NewVelocity(cfg.Processors.VelocityThreshold60, cfg.Processors.VelocityThreshold30),
		pcr,
	}

	fuser := fusion.New(cfg.Fusion.MinSignals, cfg.Fusion.MinScore, cfg.Fusion.Weights)
	learner := fusion.NewLearner(fuser, cfg.Learning.Rate, cfg.Learning.MinTrades,
		cfg.Learning.MinWeight, cfg.Learning.MaxWeight, log)

	riskGate := risk.NewGate(risk.Limits{
		MaxPositionSizeUSD: cfg.Risk.MaxPositionSizeUSD,
		MaxExposureUSD:     cfg.Risk.MaxExposureUSD,
		MaxPositions:       cfg.Risk.MaxPositions,
		MaxDailyLossUSD:    cfg.Risk.MaxDailyLossUSD,
		MaxDrawdownPct:     cfg.Risk.MaxDrawdownPct,
		StartingBalanceUSD: cfg.Risk.StartingBalanceUSD,
	}, log)

	recorder, err := paper.NewJSONLRecorder(cfg.Paper.TradesPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open trade recorder")
	}
	defer recorder.Close()
	account := paper.NewAccount(cfg.Risk.StartingBalanceUSD, recorder, log)

	core := engine.New(cfg, engine.Deps{
		Tracker:    tracker,
		Feed:       exchange.NewFeed(cfg.Feed.Provider, cfg.Feed.WSURL, nil, log),
		Fuser:      fuser,
		Learner:    learner,
		Risk:       riskGate,
		Mode:       modeFlag,
		Executor:   execution.NewLogExecutor(log, "live"),
		Account:    account,
		Builder:    engine.NewContextBuilder(client, pcr, time.Duration(cfg.Sources.TimeoutSecs)*time.Second, log),
		Processors: procs,
	}, log)

	log.Info().Str("prefix", cfg.Market.SlugPrefix()).Str("feed", cfg.Feed.Provider).
		Msg("decision core started")
	if err := core.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("engine stopped")
	}
	log.Info().Msg("shutting down")
}

// loadCatalog reads the exported instrument catalog, or fabricates a rotating
// one for stub runs when no export is configured.
func loadCatalog(cfg *config.Config, interval time.Duration) ([]market.Instrument, error) {
	if cfg.Market.CatalogPath != "" {
		return market.LoadCatalog(cfg.Market.CatalogPath)
	}
	return market.GenerateCatalog(cfg.Market.SlugPrefix(), time.Now(), 8, interval), nil
}
