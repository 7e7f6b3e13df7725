package world

import "testing"

func TestTerrain_WrapX(t *testing.T) {
	terrain := NewTerrain(100, 50)
	terrain.rawSet(0, 10, Dirt, false)
	if terrain.At(100, 10) != Dirt {
		t.Fatalf("expected wrap at x=100 to read x=0")
	}
	if terrain.At(-100, 10) != Dirt {
		t.Fatalf("expected wrap at x=-100 to read x=0")
	}
}

func TestTerrain_OutOfBoundsIsBedrock(t *testing.T) {
	terrain := NewTerrain(100, 50)
	if terrain.At(10, -1) != Bedrock {
		t.Fatalf("expected negative y to read bedrock")
	}
	if terrain.At(10, 50) != Bedrock {
		t.Fatalf("expected y>=H to read bedrock")
	}
}

func TestTerrain_DestroyNeverRemovesBedrock(t *testing.T) {
	terrain := NewTerrain(100, 50)
	for x := 0; x < 100; x++ {
		terrain.rawSet(x, 49, Bedrock, false)
		terrain.rawSet(x, 48, Bedrock, false)
		terrain.rawSet(x, 47, Stone, false)
	}
	terrain.Destroy(50, 48, 10, true)
	for x := 40; x < 60; x++ {
		if terrain.At(x, 49) != Bedrock {
			t.Fatalf("bedrock destroyed at x=%d", x)
		}
	}
}

func TestTerrain_DestroyClearsDisc(t *testing.T) {
	terrain := NewTerrain(200, 200)
	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			terrain.rawSet(x, y, Stone, false)
		}
	}
	terrain.Destroy(100, 100, 15, true)
	for y := 85; y <= 115; y++ {
		for x := 85; x <= 115; x++ {
			dx, dy := float32(x-100), float32(y-100)
			if dx*dx+dy*dy <= 225 {
				if terrain.At(x, y) != Empty {
					t.Fatalf("expected (%d,%d) cleared", x, y)
				}
			}
		}
	}
}

func TestTerrain_SnapshotRoundTrip(t *testing.T) {
	terrain := NewTerrain(64, 64)
	for x := 0; x < 64; x++ {
		for y := 0; y < 64; y++ {
			terrain.rawSet(x, y, Material((x+y)%int(Bedrock+1)), false)
		}
	}
	snap := terrain.Snapshot()

	other := NewTerrain(64, 64)
	if err := other.ApplySnapshot(snap); err != nil {
		t.Fatal(err)
	}
	for x := 0; x < 64; x++ {
		for y := 0; y < 64; y++ {
			if terrain.At(x, y) != other.At(x, y) {
				t.Fatalf("mismatch at (%d,%d)", x, y)
			}
		}
	}
}

func TestTerrain_DetachmentSizeLimit(t *testing.T) {
	terrain := NewTerrain(200, 200)
	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			terrain.rawSet(x, y, Stone, false)
		}
	}
	// Ground the whole slab via the floor rows so nothing large detaches.
	for x := 0; x < 200; x++ {
		terrain.rawSet(x, 199, Stone, false)
	}
	_, detached := terrain.Destroy(100, 50, 15, true)
	if len(detached) > detachLimit {
		t.Fatalf("detached %d pixels, exceeds limit %d", len(detached), detachLimit)
	}
}
