package world

import "github.com/chewxy/math32"

// SpellKind identifies a projectile's spell table entry (spec 4.4 "Spell
// parameters").
type SpellKind int

const (
	SpellFireball SpellKind = iota
	SpellIce
	SpellLightning
	SpellEarth
	spellCount
)

// SpellCount is the number of valid SpellKind values, exported so callers
// validating a client-supplied spell index don't need to replicate the table.
const SpellCount = int(spellCount)

type spellParams struct {
	radius    float32
	damage    float32
	gravity   float32
	piercing  bool
	speedMult float32
}

var spellTable = [spellCount]spellParams{
	SpellFireball:  {radius: 15, damage: 25, gravity: 0.05, speedMult: 1},
	SpellIce:       {radius: 10, damage: 15, gravity: 0, piercing: true, speedMult: 1},
	SpellLightning: {radius: 8, damage: 30, gravity: 0, speedMult: 1.5},
	SpellEarth:     {radius: 20, damage: 20, gravity: 0.2, speedMult: 1},
}

const maxProjectileLifetimeMs = 3000

// Projectile is an in-flight spell cast. ServerID is assigned at spawn and
// is the key the state broadcaster diffs against; ClientProjectileID is
// echoed back so the firing client can reconcile its prediction.
type Projectile struct {
	Pos, Vel           Vec2f
	Type               SpellKind
	OwnerID            string
	LifetimeMs         int32
	Damage             float32
	ExplosionRadius    float32
	Gravity            float32
	Piercing           bool
	ServerID           uint64
	ClientProjectileID string

	dead bool
}

func newProjectile(pos, vel Vec2f, kind SpellKind, owner string, clientID string) *Projectile {
	params := spellTable[kind]
	return &Projectile{
		Pos:                pos,
		Vel:                vel.Mul(params.speedMult),
		Type:               kind,
		OwnerID:            owner,
		Damage:             params.damage,
		ExplosionRadius:    params.radius,
		Gravity:            params.gravity,
		Piercing:           params.piercing,
		ClientProjectileID: clientID,
	}
}

// stepProjectile integrates and raycasts one projectile one tick (spec 4.4
// "Projectile step"). It subdivides the frame's displacement into unit
// steps so it cannot tunnel through a one-pixel-thick wall.
func (w *World) stepProjectile(proj *Projectile) {
	proj.LifetimeMs += int32(w.TickMillis)
	if proj.LifetimeMs > maxProjectileLifetimeMs {
		proj.dead = true
		return
	}

	proj.Vel.Y += proj.Gravity
	dx, dy := proj.Vel.X, proj.Vel.Y
	steps := int(math32.Ceil(max(math32.Abs(dx), math32.Abs(dy))))
	if steps < 1 {
		steps = 1
	}
	stepX, stepY := dx/float32(steps), dy/float32(steps)

	for i := 0; i < steps; i++ {
		nx := proj.Pos.X + stepX
		ny := proj.Pos.Y + stepY

		if ny < 0 || ny >= float32(w.Terrain.Height()) {
			proj.dead = true
			return
		}
		if w.Terrain.IsSolid(int(nx), int(ny)) {
			proj.Pos.X, proj.Pos.Y = nx, ny
			w.explodeProjectile(proj)
			return
		}
		proj.Pos.X, proj.Pos.Y = wrapFloat(nx, float32(w.Terrain.Width())), ny

		if hit := w.playerAt(proj.Pos, proj.OwnerID); hit != nil {
			hit.ApplyDamage(proj.Damage)
			if !proj.Piercing {
				w.explodeProjectile(proj)
				return
			}
		}
	}
}

// playerAt returns a living player (other than excludeID) whose body
// contains pos, or nil.
func (w *World) playerAt(pos Vec2f, excludeID string) *Player {
	for _, p := range w.Players {
		if p.ID == excludeID || !p.Alive {
			continue
		}
		if pos.X >= p.Pos.X-PlayerWidth/2 && pos.X <= p.Pos.X+PlayerWidth/2 &&
			pos.Y >= p.Pos.Y-PlayerHeight && pos.Y <= p.Pos.Y {
			return p
		}
	}
	return nil
}

// explodeProjectile destroys terrain at the hit point and applies falloff
// damage to every player within 2x the explosion radius, using the
// wrap-shortest delta (spec 4.4).
func (w *World) explodeProjectile(proj *Projectile) {
	proj.dead = true
	changed, detached := w.Terrain.Destroy(proj.Pos.X, proj.Pos.Y, proj.ExplosionRadius, true)
	w.RecordDestroy(proj.Pos.X, proj.Pos.Y, proj.ExplosionRadius, true)
	w.markChunksChanged(changed)
	w.Sand.SpawnFromPixels(detached, proj.Pos, true, w.PRNG.Fork("sand:spawn"))

	falloffRadius := proj.ExplosionRadius * 2
	width := float32(w.Terrain.Width())
	for _, p := range w.Players {
		if !p.Alive {
			continue
		}
		delta := p.Pos.WrapSub(proj.Pos, width)
		dist := delta.Length()
		if dist > falloffRadius {
			continue
		}
		falloff := 1 - dist/falloffRadius
		p.ApplyDamage(proj.Damage * falloff)
	}
}

// projectileSpawnRequest computes the muzzle spawn (position/velocity/kind)
// for a shoot input along the player's aim angle (used by the Shoot branch
// of stepPlayerCollect). It does not touch the shared Projectiles map, so it
// is safe to call from inside a parallel player-step shard (spec 5).
func (w *World) projectileSpawnRequest(p *Player) spawnRequest {
	dir := p.AimAngle.Vec2f()
	const muzzleSpeed = 8
	return spawnRequest{
		pos:     p.Pos,
		vel:     dir.Mul(muzzleSpeed),
		kind:    SpellKind(p.SelectedSpell),
		ownerID: p.ID,
	}
}

// SpawnClientProjectile resolves a client-reported `projectile` message
// (spec 6) into an authoritative spawn; the server recomputes everything
// except the initial position/velocity/type, which it trusts as the firing
// intent (position here is the muzzle point, not an ongoing physics claim).
func (w *World) SpawnClientProjectile(ownerID string, pos, vel Vec2f, kind SpellKind, clientID string) *Projectile {
	proj := newProjectile(pos, vel, kind, ownerID, clientID)
	w.addProjectile(proj)
	return proj
}
