package world

import (
	"log"
	"runtime"
)

// spawnRequest defers a projectile spawn triggered by a parallel player
// step so the sequential ServerID counter is only ever touched by the tick
// goroutine (spec 5: "the owning thread's tick is the only place where
// shared mutable world state is committed; worker outputs are applied at
// tick boundaries"). Collecting in shard order and committing shard-by-shard
// after every worker has returned keeps ServerID assignment bit-identical
// to running stepPlayer sequentially over the same sorted id list.
type spawnRequest struct {
	pos, vel Vec2f
	kind     SpellKind
	ownerID  string
}

// stepPlayersParallel steps every player in ids (already sorted for
// determinism), sharded across a worker pool sized runtime.NumCPU(), modeled
// on the fan-out/fan-in shape spec 5 calls for. A shard is safe to run
// concurrently with the others because stepPlayer only ever mutates the
// *Player it was given plus read-only Terrain state; the one genuine shared
// write a step can trigger, a projectile spawn, is collected instead of
// applied immediately and committed back on the calling goroutine once every
// shard has reported in.
//
// A shard that panics is a subsystem error (spec 7): it is recovered inside
// the worker goroutine (which has already stopped running by the time the
// recover fires, so re-running its ids synchronously here cannot race it),
// logged once, and its unfinished ids retried in-thread rather than letting
// one bad player wedge the whole tick; an id whose retry panics again is
// skipped for this tick.
func (w *World) stepPlayersParallel(ids []string) {
	if len(ids) == 0 {
		return
	}

	workers := runtime.NumCPU()
	if workers > len(ids) {
		workers = len(ids)
	}
	if workers < 1 {
		workers = 1
	}

	if workers == 1 {
		var spawns []spawnRequest
		for _, id := range ids {
			w.stepPlayerCollect(w.Players[id], &spawns)
		}
		w.commitSpawns(spawns)
		return
	}

	shardSize := (len(ids) + workers - 1) / workers
	type shardResult struct {
		spawns    []spawnRequest
		ok        bool
		completed int // ids[:completed] already stepped successfully before a panic
	}
	type shard struct {
		ids []string
		out chan shardResult
	}
	var shards []shard
	for lo := 0; lo < len(ids); lo += shardSize {
		hi := lo + shardSize
		if hi > len(ids) {
			hi = len(ids)
		}
		shards = append(shards, shard{ids: ids[lo:hi], out: make(chan shardResult, 1)})
	}

	for _, s := range shards {
		go func(s shard) {
			var spawns []spawnRequest
			completed := 0
			defer func() {
				if r := recover(); r != nil {
					s.out <- shardResult{spawns: spawns, ok: false, completed: completed}
				}
			}()
			for _, id := range s.ids {
				w.stepPlayerCollect(w.Players[id], &spawns)
				completed++
			}
			s.out <- shardResult{spawns: spawns, ok: true, completed: completed}
		}(s)
	}

	for _, s := range shards {
		res := <-s.out
		w.commitSpawns(res.spawns)
		if !res.ok {
			// The shard panicked; the goroutine that ran it has already
			// returned by the time this is observed, so re-running its
			// remaining ids synchronously here cannot race the original
			// attempt (spec 7: subsystem errors fall back to in-thread
			// computation). ids[:completed] already stepped successfully
			// before the panic and must not be stepped again, or they'd be
			// double-stepped this tick (double gravity, double cooldown
			// decrement, breaking the determinism contract).
			w.WorkerTimeouts++
			log.Printf("world: player-step shard panicked after %d of %d ids; retrying the rest in-thread", res.completed, len(s.ids))
			var spawns []spawnRequest
			for _, id := range s.ids[res.completed:] {
				// A retry that panics again is dropped for this tick rather
				// than taking down the tick goroutine.
				func() {
					defer func() { _ = recover() }()
					w.stepPlayerCollect(w.Players[id], &spawns)
				}()
			}
			w.commitSpawns(spawns)
		}
	}
}

func (w *World) commitSpawns(spawns []spawnRequest) {
	for _, s := range spawns {
		proj := newProjectile(s.pos, s.vel, s.kind, s.ownerID, "")
		w.addProjectile(proj)
	}
}
