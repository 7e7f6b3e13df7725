package world

import (
	"fmt"
	"github.com/chewxy/math32"
	"github.com/pixelforge/arena/server/world/noise"
)

// detachLimit bounds the size of a flood-filled component that destroy() is
// willing to detach into sand. It is a hard invariant (spec 4.2): components
// larger than this are conservatively left in place rather than spawning an
// unbounded sand storm.
const detachLimit = 400

// detachScanMargin widens the box destroy() flood-fills beyond the carve
// radius, so components just outside the carved disc that lost their only
// connection to the ground are still found.
const detachScanMargin = 10

// DetachedPixel is one pixel returned by Terrain.Destroy after it has been
// cleared from the grid; the sand automaton converts these into particles.
type DetachedPixel struct {
	X, Y     int
	Material Material
}

// Terrain is the toroidally-wrapping (horizontal wrap, vertical clamp) pixel
// grid: a flat material buffer addressed through a chunk index, modeled on
// the teacher's lazily generated chunk grid (server/terrain/compressed).
type Terrain struct {
	width, height         int
	chunksWide, chunksHigh int
	chunks                []*terrainChunk
	surface               []int32 // per-column highest non-empty y; -1 if column is empty
}

func NewTerrain(width, height int) *Terrain {
	cw := (width + ChunkSize - 1) / ChunkSize
	ch := (height + ChunkSize - 1) / ChunkSize
	t := &Terrain{
		width:      width,
		height:     height,
		chunksWide: cw,
		chunksHigh: ch,
		chunks:     make([]*terrainChunk, cw*ch),
		surface:    make([]int32, width),
	}
	for i := range t.surface {
		t.surface[i] = -1
	}
	for i := range t.chunks {
		t.chunks[i] = &terrainChunk{}
	}
	return t
}

func (t *Terrain) Width() int  { return t.width }
func (t *Terrain) Height() int { return t.height }

func (t *Terrain) wrapX(x int) int { return wrapInt(x, t.width) }

func (t *Terrain) chunkAt(x, y int) (*terrainChunk, int, int) {
	x = t.wrapX(x)
	cx, cy := x/ChunkSize, y/ChunkSize
	return t.chunks[cy*t.chunksWide+cx], x % ChunkSize, y % ChunkSize
}

// ChunkKeyAt returns the chunk key containing (x,y), with cx already wrapped
// into [0, chunksWide).
func (t *Terrain) ChunkKeyAt(x, y int) ChunkKey {
	x = t.wrapX(x)
	return ChunkKey{CX: x / ChunkSize, CY: clampInt(y/ChunkSize, 0, t.chunksHigh-1)}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Generate fills the grid deterministically from a noise.Generator: sky,
// a grass band, a dirt/stone mix banded by density, stone carved by a
// two-octave cave mask, and an indestructible bedrock floor (spec 4.2).
func (t *Terrain) Generate(gen *noise.Generator) {
	const (
		grassBand   = 2
		dirtStoneBand = 25
		bedrockBand = 3
	)
	baseline := float64(t.height) * 0.4
	for x := 0; x < t.width; x++ {
		surfaceY := gen.SurfaceHeight(x, baseline, float64(t.height)*0.08)
		if surfaceY < 0 {
			surfaceY = 0
		}
		if surfaceY > t.height-bedrockBand-1 {
			surfaceY = t.height - bedrockBand - 1
		}
		for y := 0; y < t.height; y++ {
			var m Material
			switch {
			case y >= t.height-bedrockBand:
				m = Bedrock
			case y < surfaceY:
				m = Empty
			case y < surfaceY+grassBand:
				m = Grass
			case y < surfaceY+grassBand+dirtStoneBand:
				if gen.DirtDensity(x, y) < 0.55 {
					m = Dirt
				} else {
					m = Stone
				}
			default:
				if gen.Cave(x, y) {
					m = Empty
				} else {
					m = Stone
				}
			}
			t.rawSet(x, y, m, false)
		}
	}
}

// rawSet writes a pixel without going through the chunk version/dirty
// bookkeeping when bump is false; Generate uses this since initial world
// creation should not enqueue a flood of resync diffs to nobody.
func (t *Terrain) rawSet(x, y int, m Material, bump bool) {
	if y < 0 || y >= t.height {
		return
	}
	c, lx, ly := t.chunkAt(x, y)
	if bump {
		c.set(lx, ly, m)
	} else {
		c.data[ly][lx] = m
	}
	t.updateSurface(t.wrapX(x), y, m)
}

func (t *Terrain) updateSurface(x, y int, m Material) {
	if m == Empty {
		if int32(y) == t.surface[x] {
			// Recompute by scanning upward is unnecessary here: the cache
			// only needs to be monotonic downward for rendering purposes,
			// so leave it; a subsequent write below will correct it.
		}
		return
	}
	if t.surface[x] == -1 || int32(y) < t.surface[x] {
		t.surface[x] = int32(y)
	}
}

// At returns the material at (x,y); x wraps, y outside [0,H) reads as
// Bedrock (spec invariant: out-of-bounds rows are conceptually bedrock).
func (t *Terrain) At(x, y int) Material {
	if y < 0 || y >= t.height {
		return Bedrock
	}
	c, lx, ly := t.chunkAt(x, y)
	return c.at(lx, ly)
}

func (t *Terrain) IsSolid(x, y int) bool {
	return t.At(x, y).Solid()
}

// IsBlocking reports whether (x,y) blocks player movement: solid but not
// liquid. Liquids are Solid() for sand/terrain bookkeeping (they hold a
// falling-sand particle up the same way stone does) but a player's body
// should pass through them and experience buoyancy/drag instead of hitting
// a wall at the waterline (spec 4.4 point 3).
func (t *Terrain) IsBlocking(x, y int) bool {
	m := t.At(x, y)
	return m.Solid() && !m.Liquid()
}

// SetPixel wraps x, clamps (rejects) y outside bounds, and rejects writes
// onto/over bedrock rows; returns whether the write was applied.
func (t *Terrain) SetPixel(x, y int, m Material) bool {
	if y < 0 || y >= t.height {
		return false
	}
	c, lx, ly := t.chunkAt(x, y)
	if c.at(lx, ly) == Bedrock {
		return false
	}
	c.set(lx, ly, m)
	t.updateSurface(t.wrapX(x), y, m)
	return true
}

func (t *Terrain) ChunkVersion(key ChunkKey) uint64 {
	return t.chunks[key.CY*t.chunksWide+key.CX].version
}

func (t *Terrain) DrainChunkPending(key ChunkKey) []pixelWrite {
	return t.chunks[key.CY*t.chunksWide+key.CX].drainPending()
}

// FullChunkBytes returns every pixel in the chunk as ChunkSize*ChunkSize raw
// material bytes, row-major, for the first sync a subscriber receives for a
// newly subscribed chunk.
func (t *Terrain) FullChunkBytes(key ChunkKey) []byte {
	c := t.chunks[key.CY*t.chunksWide+key.CX]
	buf := make([]byte, ChunkSize*ChunkSize)
	for y := 0; y < ChunkSize; y++ {
		for x := 0; x < ChunkSize; x++ {
			buf[y*ChunkSize+x] = byte(c.data[y][x])
		}
	}
	c.drainPending()
	return buf
}

// ChunksOverlappingDisc returns every chunk key whose tile intersects the
// disc of the given radius centered at (cx,cy); Destroy uses it to find the
// chunks whose versions to bump.
func (t *Terrain) ChunksOverlappingDisc(cx, cy float32, radius float32) []ChunkKey {
	minX := int(math32.Floor(cx - radius))
	maxX := int(math32.Ceil(cx + radius))
	minY := clampInt(int(math32.Floor(cy-radius)), 0, t.height-1)
	maxY := clampInt(int(math32.Ceil(cy+radius)), 0, t.height-1)

	seen := make(map[ChunkKey]bool)
	var keys []ChunkKey
	for y := minY; y <= maxY; y += ChunkSize {
		for x := minX; x <= maxX; x += ChunkSize {
			k := t.ChunkKeyAt(x, y)
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	// Always also check the exact corners, in case the stride above skips
	// a chunk boundary that falls strictly between two sampled columns.
	for _, corner := range [][2]int{{minX, minY}, {maxX, minY}, {minX, maxY}, {maxX, maxY}} {
		k := t.ChunkKeyAt(corner[0], corner[1])
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}

// Destroy carves every non-bedrock pixel within radius of (cx,cy), then runs
// a bounded flood-fill detachment scan and returns the pixels that detached
// (were disconnected from the ground) so the caller can spawn sand from
// them. It never removes BEDROCK (spec 4.2, 4.3 invariants) and it never
// detaches a component larger than detachLimit.
func (t *Terrain) Destroy(cx, cy float32, radius float32, explosive bool) (changed []ChunkKey, detached []DetachedPixel) {
	icx, icy := int(math32.Round(cx)), int(math32.Round(cy))
	r2 := radius * radius

	minX := icx - int(radius) - 1
	maxX := icx + int(radius) + 1
	minY := clampInt(icy-int(radius)-1, 0, t.height-1)
	maxY := clampInt(icy+int(radius)+1, 0, t.height-1)

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			dx := float32(x) - cx
			dy := float32(y) - cy
			if dx*dx+dy*dy > r2 {
				continue
			}
			if !t.At(x, y).Destructible() {
				continue
			}
			t.SetPixel(x, y, Empty)
		}
	}

	changed = t.ChunksOverlappingDisc(cx, cy, radius+1)
	detached = t.scanDetachment(icx, icy, radius)
	if len(detached) > 0 {
		for _, extra := range t.ChunksOverlappingDisc(cx, cy, radius+detachScanMargin+1) {
			changed = appendUnique(changed, extra)
		}
	}
	return changed, detached
}

func appendUnique(list []ChunkKey, k ChunkKey) []ChunkKey {
	for _, existing := range list {
		if existing == k {
			return list
		}
	}
	return append(list, k)
}

// scanDetachment runs a 4-connected flood fill over non-empty pixels in the
// box [center-radius-margin, center+radius+margin] and detaches any
// connected component that neither touches bedrock nor reaches within 4 rows
// of the floor (the "grounded" test), provided the component has at most
// detachLimit pixels.
func (t *Terrain) scanDetachment(icx, icy int, radius float32) []DetachedPixel {
	margin := int(radius) + detachScanMargin
	minX := icx - margin
	maxX := icx + margin
	minY := clampInt(icy-margin, 0, t.height-1)
	maxY := clampInt(icy+margin, 0, t.height-1)

	boxW := maxX - minX + 1
	boxH := maxY - minY + 1
	if boxW <= 0 || boxH <= 0 {
		return nil
	}
	visited := make([]bool, boxW*boxH)
	idx := func(x, y int) int { return (y-minY)*boxW + (x - minX) }

	var detached []DetachedPixel
	type point struct{ x, y int }
	var stack []point

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if visited[idx(x, y)] {
				continue
			}
			m := t.At(x, y)
			if m == Empty || m == Bedrock {
				visited[idx(x, y)] = true
				continue
			}
			// Flood-fill this component within the box.
			stack = stack[:0]
			stack = append(stack, point{x, y})
			visited[idx(x, y)] = true
			var component []point
			grounded := false

			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				component = append(component, p)
				if p.y >= t.height-4 {
					grounded = true
				}
				neighbors := [4]point{{p.x - 1, p.y}, {p.x + 1, p.y}, {p.x, p.y - 1}, {p.x, p.y + 1}}
				for _, n := range neighbors {
					if n.x < minX || n.x > maxX || n.y < minY || n.y > maxY {
						// Touches the scan boundary: conservatively treat as
						// grounded (still connected to something outside the
						// box we can't see), matching the spec's bias toward
						// keeping ambiguous components in place.
						grounded = true
						continue
					}
					if visited[idx(n.x, n.y)] {
						continue
					}
					nm := t.At(n.x, n.y)
					if nm == Bedrock {
						grounded = true
						visited[idx(n.x, n.y)] = true
						continue
					}
					if nm == Empty {
						visited[idx(n.x, n.y)] = true
						continue
					}
					visited[idx(n.x, n.y)] = true
					stack = append(stack, n)
				}
			}

			if !grounded && len(component) <= detachLimit {
				for _, p := range component {
					mat := t.At(p.x, p.y)
					detached = append(detached, DetachedPixel{X: t.wrapX(p.x), Y: p.y, Material: mat})
					t.SetPixel(p.x, p.y, Empty)
				}
			}
		}
	}
	return detached
}

// Snapshot encodes the whole grid as W*H raw material bytes, row-major,
// x-major within a row — the format the welcome packet's terrainSnapshot
// and ApplySnapshot round-trip through (spec 8: serialize_snapshot ∘
// apply_snapshot == identity).
func (t *Terrain) Snapshot() []byte {
	buf := make([]byte, t.width*t.height)
	for y := 0; y < t.height; y++ {
		for x := 0; x < t.width; x++ {
			buf[y*t.width+x] = byte(t.At(x, y))
		}
	}
	return buf
}

func (t *Terrain) ApplySnapshot(buf []byte) error {
	if len(buf) != t.width*t.height {
		return fmt.Errorf("terrain snapshot length %d does not match %dx%d", len(buf), t.width, t.height)
	}
	for y := 0; y < t.height; y++ {
		for x := 0; x < t.width; x++ {
			t.rawSet(x, y, Material(buf[y*t.width+x]), false)
		}
	}
	return nil
}
