// Package mode exposes the redis-backed simulation/live flag. Operators flip
// the flag without restarting the bot; every decision cycle re-reads it. Redis
// being down degrades to the last known mode, never to an error or an
// accidental live trade.
package mode

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Flag reads and writes the simulation-mode key. Safe for concurrent use.
type Flag struct {
	client *redis.Client
	key    string
	log    zerolog.Logger

	mu         sync.Mutex
	simulation bool // last known mode, served when redis is unreachable
}

// New builds a flag store. A nil client pins the flag to the default mode.
func New(client *redis.Client, keyPrefix string, defaultSimulation bool, log zerolog.Logger) *Flag {
	if keyPrefix == "" {
		keyPrefix = "updown_trading"
	}
	return &Flag{
		client:     client,
		key:        keyPrefix + ":simulation_mode",
		log:        log,
		simulation: defaultSimulation,
	}
}

// Key returns the full redis key the flag lives under.
func (f *Flag) Key() string { return f.key }

// Simulation reports whether the bot should paper-trade. Reads the flag from
// redis; an unset key or a read failure keeps the last known mode.
func (f *Flag) Simulation(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.client == nil {
		return f.simulation
	}

	val, err := f.client.Get(ctx, f.key).Result()
	if err == redis.Nil {
		return f.simulation
	}
	if err != nil {
		f.log.Warn().Err(err).Msg("simulation-mode read failed, keeping last known mode")
		return f.simulation
	}

	simulation := val == "1"
	if simulation != f.simulation {
		f.simulation = simulation
		if simulation {
			f.log.Warn().Msg("trading mode changed to SIMULATION")
		} else {
			f.log.Warn().Msg("trading mode changed to LIVE - real money at risk")
		}
	}
	return simulation
}

// SetSimulation writes the flag.
func (f *Flag) SetSimulation(ctx context.Context, simulation bool) error {
	if f.client == nil {
		return fmt.Errorf("no redis client configured")
	}
	val := "0"
	if simulation {
		val = "1"
	}
	if err := f.client.Set(ctx, f.key, val, 0).Err(); err != nil {
		return fmt.Errorf("set simulation mode: %w", err)
	}
	f.mu.Lock()
	f.simulation = simulation
	f.mu.Unlock()
	return nil
}
