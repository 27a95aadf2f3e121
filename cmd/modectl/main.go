// Binary modectl inspects and flips the simulation/live flag the running bot
// reads before every decision cycle.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"updownbot/internal/config"
	"updownbot/internal/mode"
	"updownbot/internal/util"
)

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to YAML config")
	flag.Parse()

	_ = godotenv.Load()
	log := util.NewLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if cfg.Redis.Addr == "" {
		log.Fatal().Msg("redis.addr not configured")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer client.Close()

	flagStore := mode.New(client, cfg.Redis.KeyPrefix, true, log)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cmd := "get"
	if flag.NArg() > 0 {
		cmd = flag.Arg(0)
	}

	switch cmd {
	case "get":
		printMode(flagStore.Simulation(ctx))
	case "sim", "simulation":
		setMode(ctx, flagStore, true, log)
	case "live":
		setMode(ctx, flagStore, false, log)
	case "toggle":
		setMode(ctx, flagStore, !flagStore.Simulation(ctx), log)
	default:
		fmt.Fprintf(os.Stderr, "usage: modectl [-config path] get|sim|live|toggle\n")
		os.Exit(2)
	}
}

func setMode(ctx context.Context, flagStore *mode.Flag, simulation bool, log zerolog.Logger) {
	if err := flagStore.SetSimulation(ctx, simulation); err != nil {
		log.Fatal().Err(err).Msg("set mode")
	}
	printMode(simulation)
}

func printMode(simulation bool) {
	if simulation {
		fmt.Println("SIMULATION")
		return
	}
	fmt.Println("LIVE")
}
