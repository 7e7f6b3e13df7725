package world

import "sort"

// Subscriber tracks one connected client's chunk interest set and the
// per-chunk version it has last been sent (spec 3 "Subscriber", spec 4.6).
type Subscriber struct {
	ID                 string
	LastProcessedInput uint32
	ActiveChunks       map[ChunkKey]bool
	Versions           map[ChunkKey]uint64
	resyncQueue        []ChunkKey
	queued             map[ChunkKey]bool
	NewlyAdded         []ChunkKey // chunks added to the interest set this tick, for initial full sends
}

func NewSubscriber(id string) *Subscriber {
	return &Subscriber{
		ID:           id,
		ActiveChunks: make(map[ChunkKey]bool),
		Versions:     make(map[ChunkKey]uint64),
		queued:       make(map[ChunkKey]bool),
	}
}

// ChunkSyncPayload is one chunk's worth of drained pixel writes handed to
// the broadcaster for a `terrain_chunk_update`/`chunk_sync` message.
type ChunkSyncPayload struct {
	Key       ChunkKey
	Version   uint64
	Pixels    []pixelWrite
	FullBytes []byte
	Full      bool
}

// enqueueResync marks key dirty for every subscriber currently watching it.
func (w *World) enqueueResync(key ChunkKey) {
	for _, sub := range w.Subscribers {
		if sub.ActiveChunks[key] && !sub.queued[key] {
			sub.queued[key] = true
			sub.resyncQueue = append(sub.resyncQueue, key)
		}
	}
}

func (w *World) subscribeChunk(sub *Subscriber, key ChunkKey) {
	sub.ActiveChunks[key] = true
	sub.NewlyAdded = append(sub.NewlyAdded, key)
	if !sub.queued[key] {
		sub.queued[key] = true
		sub.resyncQueue = append(sub.resyncQueue, key)
	}
}

func (w *World) unsubscribeChunk(sub *Subscriber, key ChunkKey) {
	delete(sub.ActiveChunks, key)
	delete(sub.Versions, key)
	if sub.queued[key] {
		delete(sub.queued, key)
		filtered := sub.resyncQueue[:0]
		for _, k := range sub.resyncQueue {
			if k != key {
				filtered = append(filtered, k)
			}
		}
		sub.resyncQueue = filtered
	}
}

// refreshInterest recomputes each subscriber's chunk set from its player's
// current position and diffs it against the prior set (spec 4.6 steps 1-2).
func (w *World) refreshInterest() {
	cw := (w.Width + ChunkSize - 1) / ChunkSize
	ch := (w.Height + ChunkSize - 1) / ChunkSize

	for id, sub := range w.Subscribers {
		player, ok := w.Players[id]
		if !ok {
			continue
		}
		sub.NewlyAdded = sub.NewlyAdded[:0]
		center := w.Terrain.ChunkKeyAt(int(player.Pos.X), int(player.Pos.Y))

		next := make(map[ChunkKey]bool, (2*w.SyncRadius+1)*(2*w.SyncRadius+1))
		for dy := -w.SyncRadius; dy <= w.SyncRadius; dy++ {
			cy := center.CY + dy
			if cy < 0 || cy >= ch {
				continue
			}
			for dx := -w.SyncRadius; dx <= w.SyncRadius; dx++ {
				cx := wrapInt(center.CX+dx, cw)
				next[ChunkKey{CX: cx, CY: cy}] = true
			}
		}

		for key := range sub.ActiveChunks {
			if !next[key] {
				w.unsubscribeChunk(sub, key)
			}
		}
		for key := range next {
			if !sub.ActiveChunks[key] {
				w.subscribeChunk(sub, key)
			}
		}
	}
}

// FlushResync drains up to MaxChunkSyncPerTick chunks per subscriber whose
// committed version is newer than what that subscriber was last sent,
// lexicographically ordered by chunk key for determinism (spec 4.6 step 4,
// spec 8 scenario 5), and advances each subscriber's recorded version.
func (w *World) FlushResync() map[string][]ChunkSyncPayload {
	out := make(map[string][]ChunkSyncPayload)
	for id, sub := range w.Subscribers {
		if len(sub.resyncQueue) == 0 {
			continue
		}
		sort.Slice(sub.resyncQueue, func(i, j int) bool {
			a, b := sub.resyncQueue[i], sub.resyncQueue[j]
			if a.CX != b.CX {
				return a.CX < b.CX
			}
			return a.CY < b.CY
		})

		var sent []ChunkSyncPayload
		remaining := sub.resyncQueue[:0]
		budget := w.MaxChunkSyncPerTick
		for _, key := range sub.resyncQueue {
			v := w.chunkVersion[key]
			if v <= sub.Versions[key] && sub.Versions[key] != 0 {
				delete(sub.queued, key)
				continue
			}
			if budget <= 0 {
				remaining = append(remaining, key)
				continue
			}
			full := sub.Versions[key] == 0
			payload := ChunkSyncPayload{Key: key, Version: v, Full: full}
			if full {
				payload.FullBytes = w.Terrain.FullChunkBytes(key)
			} else {
				payload.Pixels = w.Terrain.DrainChunkPending(key)
			}
			sent = append(sent, payload)
			sub.Versions[key] = v
			delete(sub.queued, key)
			budget--
		}
		sub.resyncQueue = remaining
		if len(sent) > 0 {
			out[id] = sent
		}
	}
	return out
}
