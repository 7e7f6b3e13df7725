package main

import (
	"errors"
	"reflect"
	"sync"
	"unsafe"

	"github.com/pixelforge/arena/server/world"

	jsoniter "github.com/json-iterator/go"
)

// jsonAPI is the jsoniter codec used for every message crossing the socket.
// It is configured once at package init so the custom Angle/ChunkKey/Message
// encoders below are registered before any goroutine marshals a frame.
var jsonAPI = func() jsoniter.API {
	neverEmpty := func(unsafe.Pointer) bool { return false }

	jsoniter.RegisterTypeEncoderFunc(reflect.TypeOf(Message{}).String(), encodeMessage, neverEmpty)
	jsoniter.RegisterTypeDecoderFunc(reflect.TypeOf(Message{}).String(), decodeMessage)

	jsoniter.RegisterTypeEncoderFunc(reflect.TypeOf(world.Angle(0)).String(), encodeAngle, emptyAngle)
	jsoniter.RegisterTypeDecoderFunc(reflect.TypeOf(world.Angle(0)).String(), decodeAngle)

	jsoniter.RegisterTypeEncoderFunc(reflect.TypeOf(world.ChunkKey{}).String(), encodeChunkKey, neverEmpty)
	jsoniter.RegisterTypeDecoderFunc(reflect.TypeOf(world.ChunkKey{}).String(), decodeChunkKey)

	return jsoniter.Config{
		IndentionStep:                 0,
		MarshalFloatWith6Digits:       true,
		EscapeHTML:                    false,
		SortMapKeys:                   true,
		UseNumber:                     false,
		DisallowUnknownFields:         false,
		TagKey:                        "json",
		OnlyTaggedField:               false,
		ValidateJsonRawMessage:        false,
		ObjectFieldMustBeSimpleString: true,
		CaseSensitive:                 true,
	}.Froze()
}()

func encodeMessage(ptr unsafe.Pointer, stream *jsoniter.Stream) {
	message := (*Message)(ptr)
	stream.WriteVal(message.messageJSON())
}

func encodeAngle(ptr unsafe.Pointer, stream *jsoniter.Stream) {
	angle := *(*world.Angle)(ptr)
	stream.WriteFloat32Lossy(angle.Float())
}

func emptyAngle(ptr unsafe.Pointer) bool {
	return *(*world.Angle)(ptr) == 0
}

func decodeAngle(ptr unsafe.Pointer, iter *jsoniter.Iterator) {
	f := iter.ReadFloat32()
	*(*world.Angle)(ptr) = world.ToAngle(f)
}

// encodeChunkKey/decodeChunkKey represent a ChunkKey as the compact "cx|cy"
// string produced by world.ChunkKeyString instead of a two-field object
// (spec 6).
func encodeChunkKey(ptr unsafe.Pointer, stream *jsoniter.Stream) {
	key := *(*world.ChunkKey)(ptr)
	stream.WriteString(world.ChunkKeyString(key))
}

func decodeChunkKey(ptr unsafe.Pointer, iter *jsoniter.Iterator) {
	s := iter.ReadString()
	key, err := world.ParseChunkKeyString(s)
	if err != nil {
		iter.ReportError("decodeChunkKey", err.Error())
		return
	}
	*(*world.ChunkKey)(ptr) = key
}

// Buffers large enough to hold most inbounds.
var decodeMessagePool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, 0, 256)
		return &buf
	},
}

// decodeMessage reads {"type": "...", "data": {...}} in a single pass where
// possible, falling back to a second pass if "data" precedes "type" in the
// payload (spec 6's wire envelope makes no ordering guarantee).
func decodeMessage(ptr unsafe.Pointer, topLevelIter *jsoniter.Iterator) {
	bufPtr := decodeMessagePool.Get().(*[]byte)

	messageBytes := topLevelIter.SkipAndAppendBytes(*bufPtr)

	pool := topLevelIter.Pool()
	iter := pool.BorrowIterator(messageBytes)
	defer pool.ReturnIterator(iter)

	var in interface{}

	for c := 0; c < 3; c++ {
		iter.ResetBytes(messageBytes)
		iter.ReadObjectCB(func(i *jsoniter.Iterator, field string) bool {
			if field == "type" {
				if in == nil {
					messageTypeBytes := i.ReadStringAsSlice()
					inboundType, ok := inboundMessageTypes[messageType(messageTypeBytes)]
					if !ok {
						// Unknown tag: dropped at the envelope level (spec 7)
						// rather than treated as a parse failure.
						topLevelIter.Error = errUnknownMessageType
						return false
					}
					in = reflect.New(inboundType).Interface()
					c++
				} else {
					i.Skip()
				}
				return true
			} else if field == "data" {
				if c > 0 {
					i.ReadVal(in)
					c++
					return false
				}
				i.Skip()
			} else {
				i.Skip()
			}
			return true
		})

		if err := iter.Error; err != nil {
			topLevelIter.Error = err
			return
		}
		if topLevelIter.Error != nil {
			return
		}
		if c == 0 {
			topLevelIter.Error = errors.New("no inbound message type")
			return
		}
	}

	*bufPtr = messageBytes[:0]
	decodeMessagePool.Put(bufPtr)

	message := (*Message)(ptr)
	message.Data = in
}

var errUnknownMessageType = errors.New("unknown inbound message type")
