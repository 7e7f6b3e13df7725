package world

import "testing"

func TestChunkKeyStringRoundTrip(t *testing.T) {
	key := ChunkKey{CX: 12, CY: -3}
	s := ChunkKeyString(key)
	got, err := ParseChunkKeyString(s)
	if err != nil {
		t.Fatal(err)
	}
	if got != key {
		t.Fatalf("roundtrip mismatch: %v != %v", got, key)
	}
}

func TestParseChunkKeyStringMalformed(t *testing.T) {
	if _, err := ParseChunkKeyString("nonsense"); err == nil {
		t.Fatal("expected error for malformed key")
	}
}
