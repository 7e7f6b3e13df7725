package world

import "github.com/chewxy/math32"

const (
	PlayerWidth  = 6
	PlayerHeight = 12

	gravity         = 0.3
	idleDamping     = 0.8
	maxFallSpeed    = 12
	maxStepHeight   = 3
	maxLiftHeight   = PlayerHeight + 2
	jumpSpeed       = -6.5
	moveAccel       = 0.6
	maxHorizSpeed   = 3.5
)

// Input is one tick's worth of decoded client intent (spec 6 `input`
// message). Position is never accepted from the client — only intent.
type Input struct {
	Left, Right, Jump, Shoot bool
	MouseX, MouseY           float32
	Sequence                 uint32
	SelectedSpell            *int
}

// Player is the authoritative state of one connected subscriber's avatar.
type Player struct {
	ID                string
	Pos               Vec2f
	Vel               Vec2f
	Health            float32
	Alive             bool
	AimAngle          Angle
	SelectedSpell     int
	LastInputSequence uint32
	Grounded          bool
	CooldownMs        int32

	pendingInput Input
	hasInput     bool
}

func NewPlayer(id string, spawn Vec2f) *Player {
	return &Player{
		ID:     id,
		Pos:    spawn,
		Health: 100,
		Alive:  true,
	}
}

// SetInput stores the most recently drained input for the next stepPlayer call
// (spec 5: "incoming inputs are drained once per tick into per-player input
// slots before the player step").
func (p *Player) SetInput(in Input) {
	p.pendingInput = in
	p.hasInput = true
	p.LastInputSequence = in.Sequence
	if in.SelectedSpell != nil {
		spell := *in.SelectedSpell % SpellCount
		if spell < 0 {
			spell += SpellCount
		}
		p.SelectedSpell = spell
	}
}

// stepPlayer advances one player one tick: the full per-tick player physics
// sequence (spec 4.4), with w supplying terrain collision, liquid coverage,
// wrap width, and the projectile spawn sink. It is the form for
// callers that don't need parallel spawn collection (tests, single-player
// worlds). It commits any fired projectile immediately.
func (w *World) stepPlayer(p *Player) {
	w.stepPlayerCollect(p, nil)
}

// stepPlayerCollect is the same sequence stepPlayer runs, except a fired
// projectile is appended to *spawns instead of being committed right away
// when spawns is non-nil — the form stepPlayersParallel uses so a shard
// never touches the shared Projectiles map directly (spec 5).
func (w *World) stepPlayerCollect(p *Player, spawns *[]spawnRequest) {
	if !p.Alive {
		return
	}
	in := p.pendingInput
	p.hasInput = false

	// 1. Horizontal intent + damping.
	if in.Left && !in.Right {
		p.Vel.X -= moveAccel
	} else if in.Right && !in.Left {
		p.Vel.X += moveAccel
	} else {
		p.Vel.X *= idleDamping
	}
	p.Vel.X = clampMagnitude(p.Vel.X, maxHorizSpeed)

	// 2. Gravity.
	p.Vel.Y += gravity
	if p.Vel.Y > maxFallSpeed {
		p.Vel.Y = maxFallSpeed
	}

	// 3. Fluid coverage: buoyancy + drag proportional to overlap fraction.
	coverage := w.fluidCoverage(p)
	if coverage > 0 {
		p.Vel.Y -= gravity * coverage * 1.4
		p.Vel.X *= 1 - 0.5*coverage
		p.Vel.Y *= 1 - 0.3*coverage
	}

	// 4. Horizontal sweep.
	w.sweepHorizontal(p)

	// 5. Vertical sweep.
	w.sweepVertical(p)

	// 6. Aim angle from mouse, wrap-shortest.
	p.AimAngle = AngleTo(p.Pos, Vec2f{X: in.MouseX, Y: in.MouseY}, float32(w.Terrain.Width()))

	// 7. Jump / shoot.
	if in.Jump && p.Grounded {
		p.Vel.Y = jumpSpeed
		p.Grounded = false
	}
	if p.CooldownMs > 0 {
		p.CooldownMs -= int32(w.TickMillis)
	}
	if in.Shoot && p.CooldownMs <= 0 {
		req := w.projectileSpawnRequest(p)
		if spawns != nil {
			*spawns = append(*spawns, req)
		} else {
			w.commitSpawns([]spawnRequest{req})
		}
		p.CooldownMs = 250
	}

	// 8. Wrap/clamp + lift out of granular material.
	p.Pos.X = wrapFloat(p.Pos.X, float32(w.Terrain.Width()))
	if p.Pos.Y < 0 {
		p.Pos.Y = 0
		p.Vel.Y = 0
	}
	lift := 0
	for w.bodySolid(p) && lift < maxLiftHeight {
		p.Pos.Y--
		lift++
	}
}

func (w *World) fluidCoverage(p *Player) float32 {
	body := AABBFrom(p.Pos.X-PlayerWidth/2, p.Pos.Y-PlayerHeight, PlayerWidth, PlayerHeight)
	total := float32(0)
	liquid := float32(0)
	minX, maxX := int(body.X), int(body.X+body.Width)
	minY, maxY := int(body.Y), int(body.Y+body.Height)
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			total++
			if w.Terrain.At(x, y).Liquid() {
				liquid++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return liquid / total
}

func (w *World) bodySolid(p *Player) bool {
	minX, maxX := int(p.Pos.X-PlayerWidth/2), int(p.Pos.X+PlayerWidth/2)
	minY, maxY := int(p.Pos.Y-PlayerHeight), int(p.Pos.Y)
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if w.Terrain.At(x, y).Granular() {
				return true
			}
		}
	}
	return false
}

func (w *World) bodyCollides(x, y float32) bool {
	minX, maxX := int(x-PlayerWidth/2), int(x+PlayerWidth/2)
	minY, maxY := int(y-PlayerHeight), int(y)
	for py := minY; py <= maxY; py++ {
		for px := minX; px <= maxX; px++ {
			if w.Terrain.IsBlocking(px, py) {
				return true
			}
		}
	}
	return false
}

func (w *World) sweepHorizontal(p *Player) {
	if p.Vel.X == 0 {
		return
	}
	sign := float32(1)
	if p.Vel.X < 0 {
		sign = -1
	}
	steps := int(math32.Ceil(math32.Abs(p.Vel.X)))
	remaining := p.Vel.X
	for i := 0; i < steps; i++ {
		step := sign
		if math32.Abs(remaining) < 1 {
			step = remaining
		}
		if step == 0 {
			break
		}
		next := p.Pos.X + step
		if !w.bodyCollides(next, p.Pos.Y) {
			p.Pos.X = next
			remaining -= step
			continue
		}
		if p.Vel.Y >= 0 && !w.bodyCollides(next, p.Pos.Y-maxStepHeight) {
			p.Pos.X = next
			p.Pos.Y -= maxStepHeight
			remaining -= step
			continue
		}
		p.Vel.X = 0
		break
	}
}

func (w *World) sweepVertical(p *Player) {
	if p.Vel.Y == 0 {
		return
	}
	sign := float32(1)
	if p.Vel.Y < 0 {
		sign = -1
	}
	steps := int(math32.Ceil(math32.Abs(p.Vel.Y)))
	p.Grounded = false
	for i := 0; i < steps; i++ {
		step := sign
		if i == steps-1 {
			remainder := math32.Abs(p.Vel.Y) - float32(steps-1)
			step = sign * remainder
		}
		if step == 0 {
			break
		}
		next := p.Pos.Y + step
		if !w.bodyCollides(p.Pos.X, next) {
			p.Pos.Y = next
			continue
		}
		if sign > 0 {
			p.Grounded = true
		}
		p.Vel.Y = 0
		break
	}
}

// ApplyDamage reduces health and marks the player dead at 0.
func (p *Player) ApplyDamage(amount float32) {
	if !p.Alive {
		return
	}
	p.Health -= amount
	if p.Health <= 0 {
		p.Health = 0
		p.Alive = false
	}
}
