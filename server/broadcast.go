package main

import "github.com/pixelforge/arena/server/world"

// broadcastChunkSync drains the interest manager's per-subscriber flush
// (spec 4.6 step 4) every tick and fans it out as two wire shapes: newly
// entered chunks arrive as a `chunk_sync` full payload, already-known
// chunks that changed arrive as a `terrain_chunk_update` pixel diff (spec
// 6, 8 scenario 2) — both driven by the same throttled queue, so a
// subscriber is never sent a chunk version twice.
func (h *Hub) broadcastChunkSync() {
	results := h.world.FlushResync()
	for id, payloads := range results {
		client := h.clientByID[id]
		if client == nil {
			continue
		}

		var full []ChunkFullWire
		var diffs []ChunkPixelsWire
		for _, p := range payloads {
			key := world.ChunkKeyString(p.Key)
			if p.Full {
				full = append(full, ChunkFullWire{Key: key, Bytes: p.FullBytes})
				continue
			}
			if len(p.Pixels) == 0 {
				continue
			}
			pixels := make([]PixelWire, len(p.Pixels))
			for i, px := range p.Pixels {
				pixels[i] = PixelWire{LocalIndex: px.LocalIndex, Material: uint8(px.Material)}
			}
			diffs = append(diffs, ChunkPixelsWire{Key: key, Pixels: pixels})
		}

		if len(full) > 0 {
			client.Send(&ChunkSyncOutbound{Terrain: &ChunkSyncWire{Full: full}})
		}
		if len(diffs) > 0 {
			h.chunkDiffID++
			client.Send(&TerrainChunkUpdateOutbound{ChunkDiff: ChunkDiffWire{
				ID:        h.chunkDiffID,
				Tick:      h.world.Tick,
				ChunkSize: world.ChunkSize,
				Chunks:    diffs,
			}})
		}
	}
}

// broadcastState emits the coarse-cadence `state` message (spec 4.7):
// players/projectiles whose tracked fields changed since the last state
// broadcast, plus anything removed and the drained terrain-mod list.
func (h *Hub) broadcastState() {
	msg := &StateOutbound{
		Tick: h.world.Tick,
		Seed: h.world.Config.Seed,
		ServerStats: ServerStats{
			Players:       len(h.world.Players),
			Projectiles:   len(h.world.Projectiles),
			SandParticles: h.world.Sand.Count(),
			TickRate:      float32(h.world.Config.TickRate),
		},
	}

	for id, p := range h.world.Players {
		chunkKey := world.ChunkKeyString(h.world.Terrain.ChunkKeyAt(int(p.Pos.X), int(p.Pos.Y)))
		next := PlayerDelta{
			ID:                 id,
			X:                  p.Pos.X,
			Y:                  p.Pos.Y,
			VX:                 p.Vel.X,
			VY:                 p.Vel.Y,
			Health:             p.Health,
			Alive:              p.Alive,
			AimAngle:           p.AimAngle,
			SelectedSpell:      p.SelectedSpell,
			LastProcessedInput: p.LastInputSequence,
			ChunkKey:           chunkKey,
		}
		if prev, ok := h.playerSnap[id]; !ok || prev != next {
			msg.Players = append(msg.Players, next)
			h.playerSnap[id] = next
		}
	}

	for id, proj := range h.world.Projectiles {
		next := ProjectileDelta{
			ServerID:           proj.ServerID,
			ClientProjectileID: proj.ClientProjectileID,
			X:                  proj.Pos.X,
			Y:                  proj.Pos.Y,
			VX:                 proj.Vel.X,
			VY:                 proj.Vel.Y,
			Type:               int(proj.Type),
		}
		if prev, ok := h.projSnap[id]; !ok || prev != next {
			msg.Projectiles = append(msg.Projectiles, next)
			h.projSnap[id] = next
		}
	}
	for id := range h.projSnap {
		if _, alive := h.world.Projectiles[id]; !alive {
			msg.RemovedProjectiles = append(msg.RemovedProjectiles, id)
			delete(h.projSnap, id)
		}
	}

	if len(h.pendingRemovedPlayers) > 0 {
		msg.RemovedPlayers = h.pendingRemovedPlayers
		h.pendingRemovedPlayers = nil
	}

	for _, mod := range h.world.DrainPendingModifications() {
		wire := TerrainModWire{Tick: mod.Tick, X: mod.X, Y: mod.Y, Radius: mod.Radius, Explosive: mod.Explosive}
		h.broadcastExcept(&TerrainUpdateOutbound{X: mod.X, Y: mod.Y, Radius: mod.Radius, Explosive: mod.Explosive, Tick: mod.Tick}, nil)
		h.pendingStateMods = append(h.pendingStateMods, wire)
	}
	msg.TerrainMods = h.pendingStateMods
	h.pendingStateMods = nil

	if len(msg.Players) == 0 && len(msg.Projectiles) == 0 && len(msg.TerrainMods) == 0 &&
		len(msg.RemovedPlayers) == 0 && len(msg.RemovedProjectiles) == 0 {
		return
	}
	h.broadcastExcept(msg, nil)
}

// broadcastSand emits the separate, throttled sand stream (spec 4.7) for
// every chunk currently in some subscriber's interest set; elided entirely
// when there is nothing to say.
func (h *Hub) broadcastSand() {
	seen := make(map[world.ChunkKey]bool)
	var chunks []SandChunkWire

	for _, sub := range h.world.Subscribers {
		for key := range sub.ActiveChunks {
			if seen[key] {
				continue
			}
			seen[key] = true
			particles := h.world.Sand.Particles(key)
			if len(particles) == 0 {
				continue
			}
			wire := make([]SandParticleWire, len(particles))
			for i, p := range particles {
				wire[i] = SandParticleWire{
					X:        p.X,
					Y:        p.Y,
					Material: uint8(p.Material),
					Color:    p.Material.Palette(),
					VX:       p.VX,
					VY:       p.VY,
				}
			}
			chunks = append(chunks, SandChunkWire{Key: world.ChunkKeyString(key), Particles: wire})
		}
	}

	if len(chunks) == 0 {
		return
	}
	// Each included chunk always carries its complete current particle list
	// rather than a diff against the last broadcast, so full is always true.
	h.broadcastExcept(&SandUpdateOutbound{ChunkSize: world.ChunkSize, Chunks: chunks, Full: true}, nil)
}

// refreshStatus refreshes the JSON blob http.go's ServeIndex serves; it is
// the core's only static-surface concern, a lightweight status probe
// distinct from the out-of-scope static-asset file server (spec 1).
func (h *Hub) refreshStatus() {
	buf, err := jsonAPI.Marshal(struct {
		Players     int    `json:"players"`
		Tick        uint64 `json:"tick"`
		Projectiles int    `json:"projectiles"`
	}{
		Players:     len(h.world.Players),
		Tick:        h.world.Tick,
		Projectiles: len(h.world.Projectiles),
	})
	if err != nil {
		return
	}
	h.statusJSON.Store(buf)
}
