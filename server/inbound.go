package main

import (
	"github.com/pixelforge/arena/server/world"
)

// Inbound message shapes (spec 6). Process runs on the hub goroutine inside
// the select loop's inbound case, never during the player/projectile/sand
// step itself, the same staging the teacher's Inbound interface provides
// (server/message.go Inbound, server/inbound.go per-type Process methods) —
// generalized here from the naval-combat message set to this spec's input/
// projectile/terrain_destroy/ping set.
type (
	// InputInbound carries one tick's decoded player intent (spec 6). Note
	// this never carries position: the spec's Open Question on client-
	// authoritative position is resolved as strictly authoritative (DESIGN.md).
	InputInbound struct {
		Left          bool  `json:"left"`
		Right         bool  `json:"right"`
		Jump          bool  `json:"jump"`
		Shoot         bool  `json:"shoot"`
		MouseX        float32 `json:"mouseX"`
		MouseY        float32 `json:"mouseY"`
		Sequence      uint32  `json:"sequence"`
		SelectedSpell *int    `json:"selectedSpell"`
	}

	// ProjectileInbound is a client-reported cast; the server resolves and
	// re-broadcasts the authoritative spawn rather than trusting the report
	// as ongoing physics (spec 6).
	ProjectileInbound struct {
		X                  float32 `json:"x"`
		Y                  float32 `json:"y"`
		VX                 float32 `json:"vx"`
		VY                 float32 `json:"vy"`
		Type               int     `json:"type"`
		ClientProjectileID string  `json:"clientProjectileId"`
	}

	// TerrainDestroyInbound requests an authoritative carve (spec 6).
	TerrainDestroyInbound struct {
		X         float32 `json:"x"`
		Y         float32 `json:"y"`
		Radius    float32 `json:"radius"`
		Explosive bool    `json:"explosive"`
	}

	// PingInbound round-trips a client timestamp; the server replies pong
	// with the same value unmodified (spec 6).
	PingInbound struct {
		Timestamp int64 `json:"timestamp"`
	}
)

const (
	maxDestroyRadius    = 64
	maxProjectileRadius = 2000
)

// Process decodes the input into a world.Input and stashes it on the
// player's pending-input slot; the actual player step runs once per tick,
// after all inputs this tick have been drained (spec 5).
func (in *InputInbound) Process(hub *Hub, client Client, player *world.Player) {
	player.SetInput(world.Input{
		Left:          in.Left,
		Right:         in.Right,
		Jump:          in.Jump,
		Shoot:         in.Shoot,
		MouseX:        in.MouseX,
		MouseY:        in.MouseY,
		Sequence:      in.Sequence,
		SelectedSpell: in.SelectedSpell,
	})
	client.Send(&InputAckOutbound{Sequence: in.Sequence})
}

// Process resolves a client-reported cast into an authoritative projectile.
// Position is trusted only as the muzzle point of a cast that is happening
// right now; every subsequent tick of the projectile's flight is the
// server's own physics (spec 4.4, 6).
func (p *ProjectileInbound) Process(hub *Hub, client Client, player *world.Player) {
	if !player.Alive {
		return
	}
	if p.Type < 0 || p.Type >= world.SpellCount {
		return
	}
	kind := world.SpellKind(p.Type)
	vel := world.Vec2f{X: p.VX, Y: p.VY}
	if vel.LengthSquared() > maxProjectileRadius*maxProjectileRadius {
		return
	}
	hub.world.SpawnClientProjectile(player.ID, world.Vec2f{X: p.X, Y: p.Y}, vel, kind, p.ClientProjectileID)
}

// Process runs an authoritative destroy() request (spec 6, 4.2). Radius is
// clamped server-side so a client can't trigger an unbounded flood-fill
// scan (spec 4.2's detachLimit protects the scan itself, but the carve pass
// is still O(radius^2) so it gets its own ceiling here).
func (t *TerrainDestroyInbound) Process(hub *Hub, client Client, player *world.Player) {
	if !player.Alive {
		return
	}
	radius := t.Radius
	if radius > maxDestroyRadius {
		radius = maxDestroyRadius
	}
	if radius <= 0 {
		return
	}
	hub.world.Destroy(t.X, t.Y, radius, t.Explosive)
}

// Process replies pong with the same timestamp (spec 6).
func (p *PingInbound) Process(hub *Hub, client Client, player *world.Player) {
	client.Send(&PongOutbound{Timestamp: p.Timestamp})
}
