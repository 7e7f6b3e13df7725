package main

import (
	"strings"
	"testing"

	"github.com/pixelforge/arena/server/world"
)

func TestJsonIter_OutboundEnvelope(t *testing.T) {
	msg := Message{Data: &PongOutbound{Timestamp: 42}}

	buf, err := jsonAPI.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}

	const want = `{"data":{"timestamp":42},"type":"pong"}`
	if string(buf) != want {
		t.Fatalf("unexpected output:\n got:  %s\n want: %s", buf, want)
	}
}

func TestJsonIter_InboundRoundTrip(t *testing.T) {
	const payload = `{"type":"input","data":{"left":true,"right":false,"jump":true,"shoot":false,"mouseX":1.5,"mouseY":-2,"sequence":7}}`

	var msg Message
	if err := jsonAPI.UnmarshalFromString(payload, &msg); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}

	in, ok := msg.Data.(*InputInbound)
	if !ok {
		t.Fatalf("expected *InputInbound, got %T", msg.Data)
	}
	if !in.Left || in.Right || !in.Jump || in.Shoot || in.Sequence != 7 {
		t.Fatalf("decoded fields incorrect: %+v", in)
	}
}

func TestJsonIter_ChunkKeyAsString(t *testing.T) {
	wire := ChunkFullWire{Key: world.ChunkKeyString(world.ChunkKey{CX: 3, CY: -1}), Bytes: []byte{1, 2, 3}}
	msg := Message{Data: &ChunkSyncOutbound{Terrain: &ChunkSyncWire{Full: []ChunkFullWire{wire}}}}

	buf, err := jsonAPI.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	if !strings.Contains(string(buf), `"key":"3|-1"`) {
		t.Fatalf("expected chunk key rendered as string, got: %s", buf)
	}
}

func TestJsonIter_UnknownInboundTypeDropped(t *testing.T) {
	var msg Message
	err := jsonAPI.UnmarshalFromString(`{"type":"not_a_real_type","data":{}}`, &msg)
	if err == nil {
		t.Fatalf("expected an error for an unrecognized message type")
	}
}
