package main

import (
	"testing"

	"github.com/pixelforge/arena/server/world"
)

func TestBroadcastInterval(t *testing.T) {
	cases := []struct {
		tickRate, rateHz, want int
	}{
		{60, 20, 3},
		{60, 60, 1},
		{60, 0, 1},
		{60, 7, 9},
	}
	for _, c := range cases {
		if got := broadcastInterval(c.tickRate, c.rateHz); got != c.want {
			t.Errorf("broadcastInterval(%d, %d) = %d, want %d", c.tickRate, c.rateHz, got, c.want)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{World: world.DefaultConfig(), Port: 8192, MaxConnections: 1024, MaxConnsPerIP: 10}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	bad := cfg
	bad.World.TickRate = 0
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected an error for a zero tick rate")
	}

	bad = cfg
	bad.World.StateRate = bad.World.TickRate + 1
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected an error for a state rate above tick rate")
	}
}
