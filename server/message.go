package main

import (
	"reflect"

	"github.com/pixelforge/arena/server/world"
)

// Wire envelope. Every message that crosses the socket is a tagged union of
// {type, data} so unknown tags can be dropped without tearing down the
// connection (spec 6/7).
type (
	Inbound interface {
		Process(hub *Hub, client Client, player *world.Player)
	}

	Outbound interface {
		// Pool marks an Outbound as done with; every implementation is a
		// no-op and there is no free-list.
		Pool()
	}

	Message struct {
		Data interface{}
	}

	messageJSON struct {
		Data interface{} `json:"data"`
		Type messageType `json:"type"`
	}

	messageType string

	SignedInbound struct {
		Client Client
		Inbound
	}
)

var (
	inboundMessageTypes  = make(map[messageType]reflect.Type)
	outboundMessageTypes = make(map[reflect.Type]messageType)
)

// registerInbound and registerOutbound bind an explicit wire tag to a Go
// type. Tags are part of the wire contract (spec 6) so they are spelled out
// here rather than derived from the Go type name the way the teacher's
// reflection-based registry did it.
func registerInbound(tag string, zero Inbound) {
	val := reflect.ValueOf(zero)
	inboundMessageTypes[messageType(tag)] = reflect.Indirect(val).Type()
}

func registerOutbound(tag string, zero Outbound) {
	val := reflect.ValueOf(zero)
	outboundMessageTypes[val.Type()] = messageType(tag)
}

func init() {
	registerInbound("input", &InputInbound{})
	registerInbound("projectile", &ProjectileInbound{})
	registerInbound("terrain_destroy", &TerrainDestroyInbound{})
	registerInbound("ping", &PingInbound{})

	registerOutbound("welcome", &WelcomeOutbound{})
	registerOutbound("player_joined", &PlayerJoinedOutbound{})
	registerOutbound("player_left", &PlayerLeftOutbound{})
	registerOutbound("input_ack", &InputAckOutbound{})
	registerOutbound("state", &StateOutbound{})
	registerOutbound("sand_update", &SandUpdateOutbound{})
	registerOutbound("terrain_update", &TerrainUpdateOutbound{})
	registerOutbound("terrain_chunk_update", &TerrainChunkUpdateOutbound{})
	registerOutbound("chunk_sync", &ChunkSyncOutbound{})
	registerOutbound("pong", &PongOutbound{})
}

func (message Message) messageJSON() messageJSON {
	typ := reflect.TypeOf(message.Data)

	mType, ok := outboundMessageTypes[typ]
	if !ok {
		// Panic because outbounds only come from trusted sources.
		panic("invalid Outbound message type " + typ.Name())
	}

	return messageJSON{Data: message.Data, Type: mType}
}

// Overridden by jsoniter.
func (message Message) MarshalJSON() ([]byte, error) {
	panic("unimplemented")
}

// Overridden by jsoniter.
func (message *Message) UnmarshalJSON([]byte) error {
	panic("unimplemented")
}
