package main

import (
	"log"
	"runtime"
)

// logDebug prints a periodic one-line health summary, the same cadence the
// teacher's debug.go used for its memstats/population printout, but without
// the AWS/team/bot/PNG-terrain-snapshot machinery that belonged to the
// naval battle's moderation tooling and has no equivalent here — prometheus
// (telemetry.go) is the durable metrics surface, this is just a console
// heartbeat for an operator tailing stdout.
func (h *Hub) logDebug() {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	log.Printf(
		"tick=%d players=%d projectiles=%d sand=%d heap=%dM goroutines=%d",
		h.world.Tick,
		len(h.world.Players),
		len(h.world.Projectiles),
		h.world.Sand.Count(),
		stats.HeapInuse/1e6,
		runtime.NumGoroutine(),
	)
}
