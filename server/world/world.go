package world

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/pixelforge/arena/server/world/noise"
)

// TickMillisDefault is the fixed simulation step Δ = 1000/60 ms (spec 3).
const TickMillisDefault = 1000.0 / 60.0

// MaxSubsteps bounds how many ticks World.Advance will run to catch up on a
// single call; beyond this the accumulator is dropped instead of spiraling
// (spec 4.5).
const MaxSubsteps = 5

// TerrainModification is one destroy() event, kept in a capped ring buffer
// plus a smaller pending-broadcast list (spec 3).
type TerrainModification struct {
	Tick      uint64
	X, Y      float32
	Radius    float32
	Explosive bool
}

const (
	terrainModHistoryCap = 1024
	terrainModPendingCap = 64
)

// Config is the full startup-configurable surface (spec 6).
type Config struct {
	Seed                   uint32
	Width, Height          int
	ChunkSize              int
	TickRate               int
	StateRate              int
	SandRate               int
	MaxSandParticles       int
	MaxSandSpawnPerDestroy int
	SyncRadius             int
	ComputeRadius          int
	BufferRadius           int
	MaxChunkSyncPerTick    int
}

// DefaultConfig matches the defaults named throughout spec 4.6/6.
func DefaultConfig() Config {
	return Config{
		Seed:                   1,
		Width:                  1600,
		Height:                 900,
		ChunkSize:              ChunkSize,
		TickRate:               60,
		StateRate:              20,
		SandRate:               20,
		MaxSandParticles:       5000,
		MaxSandSpawnPerDestroy: 500,
		SyncRadius:             1,
		ComputeRadius:          1,
		BufferRadius:           1,
		MaxChunkSyncPerTick:    8,
	}
}

// World is the singleton simulation aggregate: terrain, sand, players,
// projectiles, the PRNG, and the chunk/interest bookkeeping that drives
// incremental resync, tied together the way the teacher's Hub ties together
// its world/terrain/sector subsystems.
type World struct {
	Config
	Terrain *Terrain
	Sand    *Sand
	PRNG    *PRNG

	TickMillis  float32
	Tick        uint64
	accumulator float32

	Players     map[string]*Player
	Projectiles map[uint64]*Projectile

	Subscribers map[string]*Subscriber

	pendingMods []TerrainModification
	modHistory  []TerrainModification

	chunkVersion map[ChunkKey]uint64

	nextPlayerNum    uint64
	nextProjectileID uint64

	// WorkerTimeouts counts player-step shards that had to fall back to
	// in-thread computation after a panic (spec 5/7); the server package's
	// telemetry mirrors it into a prometheus counter each tick.
	WorkerTimeouts uint64
}

func NewWorld(cfg Config) *World {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		panic(fmt.Sprintf("invalid terrain dimensions %dx%d", cfg.Width, cfg.Height))
	}
	terrain := NewTerrain(cfg.Width, cfg.Height)
	root := NewPRNG(cfg.Seed)
	terrain.Generate(noise.New(int64(cfg.Seed)))

	return &World{
		Config:       cfg,
		Terrain:      terrain,
		Sand:         NewSand(terrain, cfg.MaxSandParticles),
		PRNG:         root,
		TickMillis:   TickMillisDefault,
		Players:      make(map[string]*Player),
		Projectiles:  make(map[uint64]*Projectile),
		Subscribers:  make(map[string]*Subscriber),
		chunkVersion: make(map[ChunkKey]uint64),
	}
}

// Advance accumulates realDeltaMs and runs as many fixed ticks as are owed,
// up to MaxSubsteps; if it falls further behind than that, it drops the
// accumulator instead of spiraling (spec 4.5).
func (w *World) Advance(realDeltaMs float32) (ticked int) {
	w.accumulator += realDeltaMs
	for w.accumulator >= w.TickMillis && ticked < MaxSubsteps {
		w.accumulator -= w.TickMillis
		w.step()
		ticked++
	}
	if ticked == MaxSubsteps {
		w.accumulator = 0
	}
	return ticked
}

// step runs the fixed subsystem order for one tick: players, projectiles,
// sand, interest refresh, terrain modification flush (spec 4.5).
func (w *World) step() {
	w.Tick++

	ids := make([]string, 0, len(w.Players))
	for id := range w.Players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	w.stepPlayersParallel(ids)

	for id, proj := range w.Projectiles {
		w.stepProjectile(proj)
		if proj.dead {
			delete(w.Projectiles, id)
		}
	}

	compute := w.computeRing()
	buffer := w.bufferRing(compute)
	ticked := compute
	if len(buffer) > 0 {
		ticked = make(map[ChunkKey]bool, len(compute)+len(buffer))
		for k := range compute {
			ticked[k] = true
		}
		for k := range buffer {
			ticked[k] = true
		}
	}
	sandChanged := w.Sand.Update(w.Tick, int32(w.TickMillis), ticked, buffer, w.PRNG.Fork("sand:tick"))
	w.markChunksChanged(sandChanged)

	w.refreshInterest()
	w.flushModifications()
}

func (w *World) markChunksChanged(keys []ChunkKey) {
	for _, k := range keys {
		w.chunkVersion[k]++
		w.enqueueResync(k)
	}
}

// chunkRing returns the set of chunk keys within radius of any player (dead
// players included), wrap-aware on the x axis (spec 4.6).
func (w *World) chunkRing(radius int) map[ChunkKey]bool {
	ring := make(map[ChunkKey]bool)
	cw := (w.Width + ChunkSize - 1) / ChunkSize
	ch := (w.Height + ChunkSize - 1) / ChunkSize
	for _, p := range w.Players {
		center := w.Terrain.ChunkKeyAt(int(p.Pos.X), int(p.Pos.Y))
		for dy := -radius; dy <= radius; dy++ {
			cy := center.CY + dy
			if cy < 0 || cy >= ch {
				continue
			}
			for dx := -radius; dx <= radius; dx++ {
				cx := wrapInt(center.CX+dx, cw)
				ring[ChunkKey{CX: cx, CY: cy}] = true
			}
		}
	}
	return ring
}

// computeRing returns the chunks ticked at full priority: those within
// ComputeRadius of any player (spec 4.6).
func (w *World) computeRing() map[ChunkKey]bool {
	return w.chunkRing(w.ComputeRadius)
}

// bufferRing returns the chunks kept warm but scheduled at lower priority:
// those within ComputeRadius+BufferRadius but outside the compute ring
// itself (spec 4.6 "additional chunks kept warm but scheduled at lower
// priority").
func (w *World) bufferRing(compute map[ChunkKey]bool) map[ChunkKey]bool {
	if w.BufferRadius <= 0 {
		return nil
	}
	outer := w.chunkRing(w.ComputeRadius + w.BufferRadius)
	buffer := make(map[ChunkKey]bool, len(outer))
	for k := range outer {
		if !compute[k] {
			buffer[k] = true
		}
	}
	return buffer
}

func (w *World) flushModifications() {
	// Pending mods are drained by the broadcaster (server package); here we
	// just cap the persistent history ring buffer.
	if len(w.modHistory) > terrainModHistoryCap {
		w.modHistory = w.modHistory[len(w.modHistory)-terrainModHistoryCap:]
	}
}

// RecordDestroy appends a TerrainModification to history and the pending
// broadcast list; called by the server layer's inbound terrain_destroy
// handler and by explosion-driven destroys.
func (w *World) RecordDestroy(x, y, radius float32, explosive bool) {
	mod := TerrainModification{Tick: w.Tick, X: x, Y: y, Radius: radius, Explosive: explosive}
	w.modHistory = append(w.modHistory, mod)
	w.pendingMods = append(w.pendingMods, mod)
	if len(w.pendingMods) > terrainModPendingCap {
		w.pendingMods = w.pendingMods[len(w.pendingMods)-terrainModPendingCap:]
	}
}

// DrainPendingModifications returns and clears the pending-broadcast list.
func (w *World) DrainPendingModifications() []TerrainModification {
	if len(w.pendingMods) == 0 {
		return nil
	}
	out := w.pendingMods
	w.pendingMods = nil
	return out
}

// RecentModifications returns up to n of the most recent modifications,
// newest last, for a welcome packet's terrainMods tail.
func (w *World) RecentModifications(n int) []TerrainModification {
	if n > len(w.modHistory) {
		n = len(w.modHistory)
	}
	return append([]TerrainModification(nil), w.modHistory[len(w.modHistory)-n:]...)
}

// Destroy runs terrain destruction + sand spawn + bookkeeping for an
// authoritative terrain_destroy request (spec 6 inbound message, spec 4.2).
func (w *World) Destroy(x, y, radius float32, explosive bool) {
	changed, detached := w.Terrain.Destroy(x, y, radius, explosive)
	w.markChunksChanged(changed)
	w.Sand.SpawnFromPixels(detached, Vec2f{X: x, Y: y}, explosive, w.PRNG.Fork("sand:spawn"))
	w.RecordDestroy(x, y, radius, explosive)
}

// AddPlayer creates a new authoritative player with a deterministic spawn
// position derived from a per-player PRNG fork (spec 8 scenario 1).
func (w *World) AddPlayer() *Player {
	w.nextPlayerNum++
	id := "player-" + strconv.FormatUint(w.nextPlayerNum, 36)
	spawnPRNG := w.PRNG.Fork("player:" + id)
	x := spawnPRNG.NextRange(400, 1200)
	p := NewPlayer(id, Vec2f{X: x, Y: 100})
	w.Players[id] = p
	w.Subscribers[id] = NewSubscriber(id)
	return p
}

// RemovePlayer removes a player and its subscriber bookkeeping, revoking all
// of its chunk subscriptions (spec 5 "on subscriber disconnect... their
// player record removed before the next player step").
func (w *World) RemovePlayer(id string) {
	delete(w.Players, id)
	if sub, ok := w.Subscribers[id]; ok {
		for key := range sub.ActiveChunks {
			w.unsubscribeChunk(sub, key)
		}
		delete(w.Subscribers, id)
	}
}

func (w *World) addProjectile(proj *Projectile) {
	w.nextProjectileID++
	proj.ServerID = w.nextProjectileID
	w.Projectiles[proj.ServerID] = proj
}
