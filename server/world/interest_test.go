package world

import "testing"

func TestInterest_ThrottledFlushOrder(t *testing.T) {
	w := NewWorld(testConfig())
	w.MaxChunkSyncPerTick = 4
	p := w.AddPlayer()
	w.SyncRadius = 3
	w.refreshInterest()

	// Bump more chunks than the per-tick budget.
	var bumped []ChunkKey
	center := w.Terrain.ChunkKeyAt(int(p.Pos.X), int(p.Pos.Y))
	for dx := -3; dx <= 3; dx++ {
		k := ChunkKey{CX: wrapInt(center.CX+dx, (w.Width+ChunkSize-1)/ChunkSize), CY: center.CY}
		bumped = append(bumped, k)
	}
	w.markChunksChanged(bumped)

	sent := w.FlushResync()
	payloads := sent[p.ID]
	if len(payloads) > w.MaxChunkSyncPerTick {
		t.Fatalf("expected at most %d chunks, got %d", w.MaxChunkSyncPerTick, len(payloads))
	}
	for i := 1; i < len(payloads); i++ {
		a, b := payloads[i-1].Key, payloads[i].Key
		if a.CX > b.CX || (a.CX == b.CX && a.CY > b.CY) {
			t.Fatalf("chunks not sent in lexicographic order: %v before %v", a, b)
		}
	}
	for _, payload := range payloads {
		if sub := w.Subscribers[p.ID]; sub.Versions[payload.Key] != payload.Version {
			t.Fatalf("subscriber version not recorded for %v", payload.Key)
		}
	}
}

func TestInterest_UnsubscribeOnMove(t *testing.T) {
	w := NewWorld(testConfig())
	w.SyncRadius = 1
	p := w.AddPlayer()
	w.refreshInterest()
	sub := w.Subscribers[p.ID]
	if len(sub.ActiveChunks) == 0 {
		t.Fatal("expected active chunks after refresh")
	}
	before := make(map[ChunkKey]bool, len(sub.ActiveChunks))
	for key := range sub.ActiveChunks {
		before[key] = true
	}

	p.Pos.X += float32(w.Width) // teleport far away (wraps back, but via many chunks)
	p.Pos.X = wrapFloat(p.Pos.X+float32(ChunkSize*10), float32(w.Width))
	w.refreshInterest()

	dropped := 0
	for key := range before {
		if sub.ActiveChunks[key] {
			continue
		}
		dropped++
		if _, ok := sub.Versions[key]; ok {
			t.Fatalf("unsubscribed chunk %v still has a recorded version", key)
		}
		if sub.queued[key] {
			t.Fatalf("unsubscribed chunk %v still queued for resync", key)
		}
	}
	if dropped == 0 {
		t.Fatal("expected the move to drop chunks from the interest set")
	}
}
