package world

// activity classifies a particle's neighborhood for scheduling purposes
// (spec 4.3 step 2).
type activity uint8

const (
	activityEdge activity = iota
	activityShell
	activityBulk
)

// SandParticle is one pooled grain of falling sand, indexed by chunk bucket.
// Position is authoritative (not interpolated); Drift biases lateral
// movement away from an explosion's origin.
type SandParticle struct {
	X, Y           int
	VX, VY         float32
	Material       Material
	Drift          int8
	RestTime       int32 // ms accumulated motionless
	SettleDelay    int32
	IsLiquid       bool
	Mass           float32
	blobID         int32
	nextUpdateTick uint64

	chunkKey ChunkKey
	index    int // bucket[index] == this particle; swap-remove invariant
}

type sandBucket struct {
	particles []*SandParticle
}

func (b *sandBucket) add(p *SandParticle) {
	p.index = len(b.particles)
	b.particles = append(b.particles, p)
}

// remove does a swap-with-last removal so every live particle keeps
// bucket[p.index] == p (spec 8 testable property).
func (b *sandBucket) remove(p *SandParticle) {
	last := len(b.particles) - 1
	b.particles[p.index] = b.particles[last]
	b.particles[p.index].index = p.index
	b.particles[last] = nil
	b.particles = b.particles[:last]
	p.index = -1
}

const (
	defaultSettleDelayMs = 180
	maxPoolSize          = 5000
	blobMinLiquid        = 24
	blobMinBulkRatio     = 0.4
	blobInterval         = 16
)

// Sand owns every live particle, bucketed by the chunk it currently occupies,
// plus the position->particle occupancy index and a bounded explicit free
// list (spec 9: "explicit object pools (bounded free-list)", replacing the
// teacher's sync.Pool-based approach for a component where pool size is
// itself a tunable simulation limit, not just an allocator hint).
type Sand struct {
	terrain      *Terrain
	buckets      map[ChunkKey]*sandBucket
	occupancy    map[int64]*SandParticle
	free         []*SandParticle
	maxParticles int
	count        int
	cursor       int // rotating start offset across buckets, for scheduling fairness
}

func NewSand(t *Terrain, maxParticles int) *Sand {
	return &Sand{
		terrain:      t,
		buckets:      make(map[ChunkKey]*sandBucket),
		occupancy:    make(map[int64]*SandParticle),
		maxParticles: maxParticles,
	}
}

func packPos(x, y int) int64 {
	return int64(x)<<32 | int64(uint32(y))
}

func (s *Sand) Count() int { return s.count }

func (s *Sand) bucket(key ChunkKey) *sandBucket {
	b := s.buckets[key]
	if b == nil {
		b = &sandBucket{}
		s.buckets[key] = b
	}
	return b
}

func (s *Sand) obtain() *SandParticle {
	if n := len(s.free); n > 0 {
		p := s.free[n-1]
		s.free = s.free[:n-1]
		return p
	}
	return &SandParticle{}
}

func (s *Sand) release(p *SandParticle) {
	*p = SandParticle{}
	if len(s.free) < maxPoolSize {
		s.free = append(s.free, p)
	}
}

// SpawnFromPixels converts up to min(availableSlots, 500) detached pixels to
// particles. When there are more candidate pixels than the cap, sampling is
// deterministic via prng (spec 4.3). explosive biases Drift to the sign of
// the wrap-shortest x-delta from origin.
func (s *Sand) SpawnFromPixels(detached []DetachedPixel, origin Vec2f, explosive bool, prng *PRNG) int {
	const hardCap = 500
	availableSlots := s.maxParticles - s.count
	cap := minInt(hardCap, availableSlots)
	if cap <= 0 || len(detached) == 0 {
		return 0
	}

	chosen := detached
	if len(detached) > cap {
		// Deterministic reservoir-style sample via the world PRNG.
		idx := make([]int, len(detached))
		for i := range idx {
			idx[i] = i
		}
		for i := len(idx) - 1; i > 0; i-- {
			j := prng.NextInt(i + 1)
			idx[i], idx[j] = idx[j], idx[i]
		}
		idx = idx[:cap]
		chosen = make([]DetachedPixel, cap)
		for i, pick := range idx {
			chosen[i] = detached[pick]
		}
	}

	spawned := 0
	width := float32(s.terrain.Width())
	for _, px := range chosen {
		p := s.obtain()
		p.X, p.Y = px.X, px.Y
		p.Material = px.Material
		p.IsLiquid = px.Material.Liquid()
		p.SettleDelay = defaultSettleDelayMs
		p.Mass = px.Material.Density()
		p.Drift = 0
		if explosive {
			d := wrapDelta(float32(px.X), origin.X, width)
			if d > 0 {
				p.Drift = 1
			} else if d < 0 {
				p.Drift = -1
			}
		}
		key := s.terrain.ChunkKeyAt(px.X, px.Y)
		p.chunkKey = key
		s.bucket(key).add(p)
		s.occupancy[packPos(s.terrain.wrapX(px.X), px.Y)] = p
		s.count++
		spawned++
	}
	return spawned
}

// bufferPriorityMultiplier throttles scheduling for chunks in the buffer
// ring (beyond computeRadius, within computeRadius+bufferRadius): kept
// warm, so particles still age and eventually move, but at a lower cadence
// than the compute ring immediately around a player (spec 4.6 "additional
// chunks kept warm but scheduled at lower priority").
const bufferPriorityMultiplier = 4

func scheduleInterval(liquid bool, a activity, blob bool, lowPriority bool) int {
	var interval int
	switch {
	case liquid && blob && a == activityBulk:
		interval = blobInterval
		if interval < 5 {
			interval = 5
		}
	case liquid:
		switch a {
		case activityEdge:
			interval = 1
		case activityShell:
			interval = 2
		default:
			interval = 5
		}
	default:
		switch a {
		case activityEdge:
			interval = 1
		case activityShell:
			interval = 3
		default:
			interval = 8
		}
	}
	if lowPriority {
		interval *= bufferPriorityMultiplier
	}
	return interval
}

func (s *Sand) classify(p *SandParticle) activity {
	below := s.occupiedOrSolid(p.X, p.Y+1)
	if !below {
		return activityEdge
	}
	solidCount := 1 // below already solid
	for _, d := range [4][2]int{{-1, 0}, {1, 0}, {0, -1}} {
		if s.occupiedOrSolid(p.X+d[0], p.Y+d[1]) {
			solidCount++
		}
	}
	if solidCount >= 4 {
		return activityBulk
	}
	return activityShell
}

func (s *Sand) occupiedOrSolid(x, y int) bool {
	if y >= s.terrain.Height() {
		return true
	}
	if s.terrain.IsSolid(x, y) {
		return true
	}
	_, ok := s.occupancy[packPos(s.terrain.wrapX(x), y)]
	return ok
}

// Update runs one cellular-automaton tick. computeChunks is every chunk that
// should tick at all this tick (the compute ring plus the buffer ring, spec
// 4.6); particles in chunks outside it still age (RestTime) but do not move,
// matching spec 4.3 step 3. lowPriority is the subset of computeChunks that
// is only in the buffer ring (beyond computeRadius, within
// computeRadius+bufferRadius): those chunks are kept warm but scheduled at
// a lower cadence than the core compute ring (spec 4.6's "additional chunks
// kept warm but scheduled at lower priority"). The returned keys are every
// chunk whose terrain or bucket membership changed this tick —
// bucket-crossing migrations and in-place welds alike (spec 4.6 step 3 names
// "sand weld" as its own version-bump trigger) — so the caller can bump
// chunkVersion and enqueue a resync for all of them.
func (s *Sand) Update(tick uint64, dtMs int32, computeChunks, lowPriority map[ChunkKey]bool, prng *PRNG) (changed []ChunkKey) {
	// First pass: classify and detect liquid blobs per chunk.
	type chunkStats struct {
		liquid, bulkLiquid int
	}
	stats := make(map[ChunkKey]*chunkStats)

	order := make([]ChunkKey, 0, len(s.buckets))
	for k := range s.buckets {
		order = append(order, k)
	}
	// Rotate the iteration start each tick for scheduling fairness.
	if len(order) > 0 {
		s.cursor = (s.cursor + 1) % len(order)
		order = append(order[s.cursor:], order[:s.cursor]...)
	}

	for _, key := range order {
		if !computeChunks[key] {
			for _, p := range s.buckets[key].particles {
				p.RestTime += dtMs
			}
			continue
		}
		st := &chunkStats{}
		stats[key] = st
		for _, p := range s.buckets[key].particles {
			a := s.classify(p)
			if p.IsLiquid {
				st.liquid++
				if a == activityBulk {
					st.bulkLiquid++
				}
			}
		}
	}

	for key, st := range stats {
		isBlob := st.liquid >= blobMinLiquid && float32(st.bulkLiquid)/float32(st.liquid) >= blobMinBulkRatio
		for _, p := range s.buckets[key].particles {
			if p.IsLiquid && isBlob {
				p.blobID = int32(key.CX)<<16 ^ int32(key.CY) | 1
			} else {
				p.blobID = 0
			}
		}
	}

	changedSet := make(map[ChunkKey]bool)

	// Second pass: move resolution, EDGE -> SHELL -> BULK priority order. A
	// particle that is due this tick is rescheduled just before it steps.
	for _, bucketActivity := range []activity{activityEdge, activityShell, activityBulk} {
		for _, key := range order {
			if !computeChunks[key] {
				continue
			}
			bucket := s.buckets[key]
			for i := 0; i < len(bucket.particles); i++ {
				p := bucket.particles[i]
				if p.nextUpdateTick > tick {
					continue
				}
				a := s.classify(p)
				if a != bucketActivity {
					continue
				}
				p.nextUpdateTick = tick + uint64(scheduleInterval(p.IsLiquid, a, p.blobID != 0, lowPriority[key]))
				moved, welded := s.step(p, prng)
				if welded {
					// die() already removed p from this bucket via
					// swap-with-last; the particle now at slot i hasn't
					// been visited yet this pass.
					changedSet[key] = true
					i--
					continue
				}
				if moved {
					p.RestTime = 0
				} else {
					p.RestTime += dtMs
				}
				newKey := s.terrain.ChunkKeyAt(p.X, p.Y)
				if newKey != p.chunkKey {
					s.migrate(p, newKey)
					changedSet[key] = true
					changedSet[newKey] = true
					i-- // the bucket shrank under us (swap-remove)
				}
			}
		}
	}

	for k := range changedSet {
		changed = append(changed, k)
	}
	s.reap()
	return changed
}

// step attempts to move p one cell per spec 4.3 step 4 and reports whether
// it moved, or welded into terrain in place instead (in which case p has
// already been released back to the pool by die() and must not be touched
// again). Welding never overwrites BEDROCK (guaranteed since Terrain.At
// never returns Empty for a bedrock row, so weld targets are never chosen
// there).
func (s *Sand) step(p *SandParticle, prng *PRNG) (moved, welded bool) {
	if s.tryMove(p, 0, 1) {
		return true, false
	}
	first, second := -1, 1
	if p.Drift > 0 {
		first, second = 1, -1
	} else if p.Drift == 0 {
		if prng.NextBool() {
			first, second = 1, -1
		}
	}
	if s.tryMove(p, first, 1) {
		return true, false
	}
	if s.tryMove(p, second, 1) {
		return true, false
	}
	if p.Drift != 0 && s.tryMove(p, int(p.Drift), 0) {
		return true, false
	}
	if p.IsLiquid {
		if s.tryMove(p, 1, 0) || s.tryMove(p, -1, 0) {
			return true, false
		}
	}
	if p.RestTime >= p.SettleDelay && s.isSupported(p) {
		s.weld(p)
		return false, true
	}
	return false, false
}

func (s *Sand) tryMove(p *SandParticle, dx, dy int) bool {
	nx, ny := p.X+dx, p.Y+dy
	if ny >= s.terrain.Height() {
		return false
	}
	if s.terrain.IsSolid(nx, ny) {
		return false
	}
	wnx := s.terrain.wrapX(nx)
	if _, occupied := s.occupancy[packPos(wnx, ny)]; occupied {
		return false
	}
	delete(s.occupancy, packPos(s.terrain.wrapX(p.X), p.Y))
	p.X, p.Y = wnx, ny
	s.occupancy[packPos(wnx, ny)] = p
	return true
}

func (s *Sand) isSupported(p *SandParticle) bool {
	return s.occupiedOrSolid(p.X, p.Y+1)
}

func (s *Sand) weld(p *SandParticle) {
	x, y := p.X, p.Y
	for y >= 0 && s.terrain.At(x, y) != Empty {
		y--
	}
	if y < 0 {
		s.die(p)
		return
	}
	s.terrain.SetPixel(x, y, p.Material)
	s.die(p)
}

func (s *Sand) migrate(p *SandParticle, newKey ChunkKey) {
	s.bucket(p.chunkKey).remove(p)
	p.chunkKey = newKey
	s.bucket(newKey).add(p)
}

func (s *Sand) die(p *SandParticle) {
	delete(s.occupancy, packPos(s.terrain.wrapX(p.X), p.Y))
	s.bucket(p.chunkKey).remove(p)
	s.count--
	s.release(p)
}

// reap removes particles that fell out of the bottom of the world (spec
// 4.3: "dies when... it exits vertical bounds").
func (s *Sand) reap() {
	for key, bucket := range s.buckets {
		for i := 0; i < len(bucket.particles); i++ {
			p := bucket.particles[i]
			if p.Y >= s.terrain.Height() {
				s.die(p)
				i--
			}
		}
		if len(bucket.particles) == 0 {
			delete(s.buckets, key)
		}
	}
}

// Particles returns the live particles currently bucketed under key, for
// the sand_update broadcaster.
func (s *Sand) Particles(key ChunkKey) []*SandParticle {
	b := s.buckets[key]
	if b == nil {
		return nil
	}
	return b.particles
}
