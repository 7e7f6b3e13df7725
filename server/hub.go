package main

import (
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pixelforge/arena/server/world"
)

// Hub owns the single authoritative World and is the only goroutine that
// ever mutates it (spec 5: "the owning thread's tick is the only place
// where shared mutable world state is committed"). Structurally this is the
// teacher's Hub (server/hub.go): a ClientList, register/unregister/inbound
// channels drained by one select loop, and a fixed-interval ticker driving
// the simulation — generalized from the teacher's sector/team/cloud-backed
// naval battle to this spec's World (terrain/sand/players/projectiles).
type Hub struct {
	world *world.World
	cfg   Config

	clients ClientList

	inbound    chan SignedInbound
	register   chan Client
	unregister chan Client

	ipMu    sync.RWMutex
	ipConns map[string]int

	// connCount mirrors clients.Len for the HTTP goroutine's connection cap
	// check (clients.Len itself is only ever touched on the hub goroutine).
	connCount int32

	statusJSON atomic.Value

	tickTicker *time.Ticker
	lastTick   time.Time

	stateInterval int
	sandInterval  int

	clientByID map[string]Client
	playerSnap map[string]PlayerDelta
	projSnap   map[uint64]ProjectileDelta

	pendingRemovedPlayers []string
	pendingStateMods      []TerrainModWire
	chunkDiffID           uint64

	debugTicker *time.Ticker

	protocolErrors      *protocolErrorLimiter
	metrics             *telemetry
	lastWorkerTimeouts  uint64
	lastProtocolErrors  uint64
}

func NewHub(cfg Config) *Hub {
	w := world.NewWorld(cfg.World)
	return &Hub{
		world:          w,
		cfg:            cfg,
		ipConns:        make(map[string]int),
		inbound:        make(chan SignedInbound, 256),
		register:       make(chan Client, 16),
		unregister:     make(chan Client, 16),
		tickTicker:     time.NewTicker(time.Duration(world.TickMillisDefault * float32(time.Millisecond))),
		lastTick:       time.Now(),
		stateInterval:  broadcastInterval(cfg.World.TickRate, cfg.World.StateRate),
		sandInterval:   broadcastInterval(cfg.World.TickRate, cfg.World.SandRate),
		clientByID:     make(map[string]Client),
		playerSnap:     make(map[string]PlayerDelta),
		projSnap:       make(map[uint64]ProjectileDelta),
		debugTicker:    time.NewTicker(5 * time.Second),
		protocolErrors: globalProtocolErrorLimiter,
		metrics:        newTelemetry(),
	}
}

// Run drives the tick loop forever (spec 4.5). It never blocks on I/O: all
// outbound traffic is enqueued onto each Client's bounded send channel and
// drained by that client's own transport goroutines (spec 5).
func (h *Hub) Run() {
	defer func() {
		if r := recover(); r != nil {
			log.Println("hub panic:", r)
		}
		log.Println("hub exiting")
		os.Exit(1)
	}()

	for {
		select {
		case client := <-h.register:
			h.onRegister(client)
		case client := <-h.unregister:
			h.onUnregister(client)
		case in := <-h.inbound:
			h.drainInbound(in)
		case <-h.tickTicker.C:
			h.onTick()
		case <-h.debugTicker.C:
			h.logDebug()
		}
	}
}

// onRegister assigns a fresh authoritative player, wires its subscriber
// bookkeeping, and sends the welcome packet (spec 6) before starting the
// client's transport pumps, so nothing can race the player/subscriber
// pointers being populated.
func (h *Hub) onRegister(client Client) {
	h.clients.Add(client)
	atomic.StoreInt32(&h.connCount, int32(h.clients.Len))
	data := client.Data()
	data.Hub = h

	player := h.world.AddPlayer()
	data.Player = player
	data.Sub = h.world.Subscribers[player.ID]
	h.clientByID[player.ID] = client

	client.Init()

	snapshot := h.world.Terrain.Snapshot()
	client.Send(&WelcomeOutbound{
		PlayerID:        player.ID,
		Tick:            h.world.Tick,
		SpawnX:          player.Pos.X,
		SpawnY:          player.Pos.Y,
		SelectedSpell:   player.SelectedSpell,
		Seed:            h.world.Config.Seed,
		ChunkSize:       world.ChunkSize,
		TerrainSnapshot: snapshot,
		TerrainMods:     terrainModsToWire(h.world.RecentModifications(64)),
	})

	x, y := player.Pos.X, player.Pos.Y
	spell := player.SelectedSpell
	h.broadcastExcept(&PlayerJoinedOutbound{PlayerID: player.ID, X: &x, Y: &y, SelectedSpell: &spell}, client)
}

// onUnregister tears down a disconnected subscriber: pending outbound
// messages are discarded (closing the channel), the subscription is
// revoked, and the player record is removed before the next player step
// (spec 5).
func (h *Hub) onUnregister(client Client) {
	client.Close()
	data := client.Data()
	data.Hub = nil
	h.clients.Remove(client)
	atomic.StoreInt32(&h.connCount, int32(h.clients.Len))

	if data.Player != nil {
		id := data.Player.ID
		h.world.RemovePlayer(id)
		delete(h.playerSnap, id)
		delete(h.clientByID, id)
		h.pendingRemovedPlayers = append(h.pendingRemovedPlayers, id)
		h.protocolErrors.forget(id)
		h.metrics.droppedConns.Inc()
		h.broadcastExcept(&PlayerLeftOutbound{PlayerID: id}, client)
	}
}

// drainInbound processes every inbound message currently queued, the same
// "read everything buffered right now" batching the teacher's hub.go uses,
// so one inbound-heavy tick doesn't starve the ticker case forever.
func (h *Hub) drainInbound(in SignedInbound) {
	n := len(h.inbound)
	for {
		data := in.Client.Data()
		if data.Hub == h && data.Player != nil {
			in.Inbound.Process(h, in.Client, data.Player)
		}
		if n <= 0 {
			break
		}
		n--
		in = <-h.inbound
	}
}

// onTick advances the simulation by the real elapsed time (bounded by
// World.MaxSubsteps, spec 4.5), flushes chunk resyncs every tick (spec
// 4.6), and broadcasts state/sand at their own coarser cadences (spec 4.7).
func (h *Hub) onTick() {
	now := time.Now()
	elapsed := float32(now.Sub(h.lastTick).Milliseconds())
	h.lastTick = now

	start := time.Now()
	ticked := h.world.Advance(elapsed)
	h.metrics.tickDuration.Observe(time.Since(start).Seconds())

	if ticked == 0 {
		return
	}

	h.broadcastChunkSync()

	if h.world.Tick%uint64(h.stateInterval) == 0 {
		h.broadcastState()
	}
	if h.world.Tick%uint64(h.sandInterval) == 0 {
		h.broadcastSand()
	}

	if h.world.WorkerTimeouts > h.lastWorkerTimeouts {
		h.metrics.workerTimeouts.Add(float64(h.world.WorkerTimeouts - h.lastWorkerTimeouts))
		h.lastWorkerTimeouts = h.world.WorkerTimeouts
	}
	if n := atomic.LoadUint64(&protocolErrorCount); n > h.lastProtocolErrors {
		h.metrics.protocolErrors.Add(float64(n - h.lastProtocolErrors))
		h.lastProtocolErrors = n
	}

	h.metrics.players.Set(float64(len(h.world.Players)))
	h.metrics.projectiles.Set(float64(len(h.world.Projectiles)))
	h.metrics.sandParticles.Set(float64(h.world.Sand.Count()))

	h.refreshStatus()
}

// broadcastExcept sends msg to every connected client except exclude
// (exclude may be nil to mean "everyone").
func (h *Hub) broadcastExcept(msg Outbound, exclude Client) {
	for c := h.clients.First; c != nil; c = c.Data().Next {
		if c == exclude {
			continue
		}
		c.Send(msg)
	}
}
