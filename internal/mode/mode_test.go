package mode

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func TestNilClientPinsDefault(t *testing.T) {
	f := New(nil, "updown_trading", true, zerolog.Nop())
	if !f.Simulation(context.Background()) {
		t.Fatalf("expected default simulation mode")
	}
	if err := f.SetSimulation(context.Background(), false); err == nil {
		t.Fatalf("expected write rejection without a client")
	}
	if !f.Simulation(context.Background()) {
		t.Fatalf("failed write must not flip the mode")
	}
}

func TestKeyUsesPrefix(t *testing.T) {
	f := New(nil, "btc_trading", true, zerolog.Nop())
	if f.Key() != "btc_trading:simulation_mode" {
		t.Fatalf("unexpected key %q", f.Key())
	}
	f = New(nil, "", true, zerolog.Nop())
	if f.Key() != "updown_trading:simulation_mode" {
		t.Fatalf("unexpected default key %q", f.Key())
	}
}
