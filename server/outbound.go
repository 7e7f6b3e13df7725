package main

import (
	"github.com/pixelforge/arena/server/world"
)

// Outbound message shapes (spec 6). Field names are the wire contract, so
// they are spelled out explicitly rather than derived by reflection the way
// the teacher's Update/Leaderboard types were.
type (
	// WelcomeOutbound is sent once, on connect (spec 6 "Welcome packet").
	WelcomeOutbound struct {
		PlayerID      string             `json:"playerId"`
		Tick          uint64             `json:"tick"`
		SpawnX        float32            `json:"spawnX"`
		SpawnY        float32            `json:"spawnY"`
		SelectedSpell int                `json:"selectedSpell"`
		Seed          uint32             `json:"seed"`
		ChunkSize     int                `json:"chunkSize"`
		TerrainSnapshot []byte           `json:"terrainSnapshot"`
		TerrainMods   []TerrainModWire   `json:"terrainMods"`
	}

	// PlayerJoinedOutbound announces a new player to every other subscriber.
	PlayerJoinedOutbound struct {
		PlayerID      string   `json:"playerId"`
		X             *float32 `json:"x,omitempty"`
		Y             *float32 `json:"y,omitempty"`
		SelectedSpell *int     `json:"selectedSpell,omitempty"`
	}

	// PlayerLeftOutbound announces a disconnect.
	PlayerLeftOutbound struct {
		PlayerID string `json:"playerId"`
	}

	// InputAckOutbound acknowledges the highest input sequence processed.
	InputAckOutbound struct {
		Sequence uint32 `json:"sequence"`
	}

	// PongOutbound echoes a ping's timestamp.
	PongOutbound struct {
		Timestamp int64 `json:"timestamp"`
	}

	// TerrainModWire is the wire form of world.TerrainModification.
	TerrainModWire struct {
		Tick      uint64  `json:"tick"`
		X         float32 `json:"x"`
		Y         float32 `json:"y"`
		Radius    float32 `json:"radius"`
		Explosive bool    `json:"explosive"`
	}

	// PlayerDelta is one player's entry in a state broadcast (spec 4.7). The
	// diff is taken against one snapshot shared by all subscribers, not per
	// subscriber. A newly joined subscriber is not sent a full snapshot: a
	// player appears in its state messages only once that player's fields
	// change again.
	PlayerDelta struct {
		ID                string  `json:"id"`
		X                 float32 `json:"x"`
		Y                 float32 `json:"y"`
		VX                float32 `json:"vx"`
		VY                float32 `json:"vy"`
		Health            float32 `json:"health"`
		Alive             bool    `json:"alive"`
		AimAngle          world.Angle `json:"aimAngle"`
		SelectedSpell     int     `json:"selectedSpell"`
		LastProcessedInput uint32 `json:"lastProcessedInput"`
		ChunkKey          string  `json:"chunkKey"`
	}

	// ProjectileDelta is keyed by serverId once assigned, or clientProjectileId
	// before (spec 4.7).
	ProjectileDelta struct {
		ServerID           uint64  `json:"serverId,omitempty"`
		ClientProjectileID string  `json:"clientProjectileId,omitempty"`
		X                  float32 `json:"x"`
		Y                  float32 `json:"y"`
		VX                 float32 `json:"vx"`
		VY                 float32 `json:"vy"`
		Type               int     `json:"type"`
	}

	// ServerStats is the ambient observability payload riding inside `state`
	// (spec 4.7). Mirrors what telemetry exports to prometheus so clients'
	// debug overlays and the /metrics scrape agree.
	ServerStats struct {
		Players       int     `json:"players"`
		Projectiles   int     `json:"projectiles"`
		SandParticles int     `json:"sandParticles"`
		TickRate      float32 `json:"tickRate"`
	}

	// StateOutbound is the coarse-cadence authoritative snapshot (spec 4.7).
	StateOutbound struct {
		Tick               uint64            `json:"tick"`
		Seed               uint32            `json:"seed"`
		Players            []PlayerDelta     `json:"players"`
		Projectiles        []ProjectileDelta `json:"projectiles"`
		TerrainMods        []TerrainModWire  `json:"terrainMods"`
		RemovedPlayers     []string          `json:"removedPlayers,omitempty"`
		RemovedProjectiles []uint64          `json:"removedProjectiles,omitempty"`
		PlayersFull        bool              `json:"playersFull,omitempty"`
		ProjectilesFull    bool              `json:"projectilesFull,omitempty"`
		ServerStats        ServerStats       `json:"serverStats"`
	}

	// SandParticleWire is one particle as rendered to a client.
	SandParticleWire struct {
		X        int     `json:"x"`
		Y        int     `json:"y"`
		Material uint8   `json:"material"`
		Color    uint32  `json:"color"`
		VX       float32 `json:"vx,omitempty"`
		VY       float32 `json:"vy,omitempty"`
	}

	// SandChunkWire groups particles by chunk key for the throttled sand stream.
	SandChunkWire struct {
		Key       string             `json:"key"`
		Particles []SandParticleWire `json:"particles"`
	}

	// SandUpdateOutbound is the separate, throttled sand stream (spec 4.7),
	// emitted only for chunks near a player; elided entirely when empty.
	SandUpdateOutbound struct {
		ChunkSize int             `json:"chunkSize"`
		Chunks    []SandChunkWire `json:"chunks"`
		Full      bool            `json:"full"`
	}

	// TerrainUpdateOutbound is the authoritative record of one destroy()
	// call (spec 6), distinct from the pixel-level terrain_chunk_update.
	TerrainUpdateOutbound struct {
		X         float32 `json:"x"`
		Y         float32 `json:"y"`
		Radius    float32 `json:"radius"`
		Explosive bool    `json:"explosive"`
		Tick      uint64  `json:"tick"`
	}

	// PixelWire is one pixel write within a chunk diff.
	PixelWire struct {
		LocalIndex int32 `json:"localIndex"`
		Material   uint8 `json:"material"`
	}

	// ChunkPixelsWire pairs a chunk key with its drained pixel writes.
	ChunkPixelsWire struct {
		Key    string      `json:"key"`
		Pixels []PixelWire `json:"pixels"`
	}

	// ChunkDiffWire is the inner payload the teacher's evolutionary copies
	// called `chunkDiff`; kept as a nested object since terrain_chunk_update
	// carries an id/tick/chunkSize alongside the per-chunk pixel lists.
	ChunkDiffWire struct {
		ID        uint64            `json:"id"`
		Tick      uint64            `json:"tick"`
		ChunkSize int               `json:"chunkSize"`
		Chunks    []ChunkPixelsWire `json:"chunks"`
	}

	// TerrainChunkUpdateOutbound carries incremental pixel diffs for chunks
	// a subscriber is already watching (spec 6).
	TerrainChunkUpdateOutbound struct {
		ChunkDiff ChunkDiffWire `json:"chunkDiff"`
	}

	// ChunkFullWire is a chunk's full raw byte payload, used for a
	// subscriber's first sync of a newly entered chunk.
	ChunkFullWire struct {
		Key   string `json:"key"`
		Bytes []byte `json:"bytes"`
	}

	// ChunkSyncWire is the terrain/sand payload nested in chunk_sync.
	ChunkSyncWire struct {
		Full   []ChunkFullWire   `json:"full,omitempty"`
		Diff   []ChunkPixelsWire `json:"diff,omitempty"`
		Sand   []SandChunkWire   `json:"sand,omitempty"`
	}

	// ChunkSyncOutbound answers the interest manager's per-subscriber flush
	// (spec 4.6 step 4) for newly subscribed chunks, which arrive in Full.
	// Pixel diffs for already-known chunks go out as terrain_chunk_update;
	// Diff and Sand are not filled.
	ChunkSyncOutbound struct {
		Terrain *ChunkSyncWire `json:"terrain,omitempty"`
	}
)

func (WelcomeOutbound) Pool()            {}
func (PlayerJoinedOutbound) Pool()       {}
func (PlayerLeftOutbound) Pool()         {}
func (InputAckOutbound) Pool()           {}
func (PongOutbound) Pool()               {}
func (TerrainUpdateOutbound) Pool()      {}
func (TerrainChunkUpdateOutbound) Pool() {}
func (ChunkSyncOutbound) Pool()          {}

// StateOutbound and SandUpdateOutbound are broadcast by reference to every
// subscriber in one tick (spec 4.7), unlike the teacher's per-client Update
// (which the teacher pools via sync.Pool, server/outbound.go NewUpdate,
// because exactly one Client ever holds a given instance). A shared
// broadcast payload can't safely return itself to a free-list the moment
// the first recipient's writePump finishes with it, so Pool is a no-op here
// and the Hub simply allocates one fresh instance per broadcast tick.
func (s *StateOutbound) Pool() {}

func (s *SandUpdateOutbound) Pool() {}

func terrainModsToWire(mods []world.TerrainModification) []TerrainModWire {
	if len(mods) == 0 {
		return nil
	}
	out := make([]TerrainModWire, len(mods))
	for i, m := range mods {
		out[i] = TerrainModWire{Tick: m.Tick, X: m.X, Y: m.Y, Radius: m.Radius, Explosive: m.Explosive}
	}
	return out
}
