package pathoram

import (
	"bytes"
	"testing"
)

func TestSerializeDeserializeBlock_RoundTrip(t *testing.T) {
	b := Block{ID: 42, Data: []byte("abcd")}
	raw, err := serializeBlock(b, 4, 100)
	if err != nil {
		t.Fatalf("serializeBlock: %v", err)
	}
	if len(raw) != 12 {
		t.Fatalf("serialized width = %d, want 12", len(raw))
	}
	if string(raw[:8]) != "00000042" {
		t.Errorf("id prefix = %q, want %q", raw[:8], "00000042")
	}

	got, err := deserializeBlock(raw, 4, 100)
	if err != nil {
		t.Fatalf("deserializeBlock: %v", err)
	}
	if got.ID != b.ID || !bytes.Equal(got.Data, b.Data) {
		t.Errorf("round trip = %+v, want %+v", got, b)
	}
}

func TestSerializeBlock_DummySentinelMapping(t *testing.T) {
	dummy := Block{ID: EmptyBlockID, Data: dummyData(4)}
	raw, err := serializeBlock(dummy, 4, 100)
	if err != nil {
		t.Fatalf("serializeBlock(dummy): %v", err)
	}
	if string(raw[:8]) != "00000100" {
		t.Errorf("dummy wire id = %q, want the out-of-range sentinel %08d", raw[:8], 100)
	}

	got, err := deserializeBlock(raw, 4, 100)
	if err != nil {
		t.Fatalf("deserializeBlock(dummy wire form): %v", err)
	}
	if !got.isDummy() {
		t.Errorf("deserialized block should report isDummy(), got ID=%d", got.ID)
	}
}

func TestSerializeBlock_WrongDataSize(t *testing.T) {
	b := Block{ID: 1, Data: []byte("ab")}
	if _, err := serializeBlock(b, 4, 100); err != ErrInvalidDataSize {
		t.Errorf("error = %v, want ErrInvalidDataSize", err)
	}
}

func TestDeserializeBlock_WrongWidth(t *testing.T) {
	if _, err := deserializeBlock([]byte("short"), 4, 100); err == nil {
		t.Error("expected error for wrong width, got nil")
	}
}

func TestDeserializeBlock_MalformedID(t *testing.T) {
	raw := append([]byte("abcdefgh"), []byte("abcd")...)
	if _, err := deserializeBlock(raw, 4, 100); err == nil {
		t.Error("expected error for non-decimal id prefix, got nil")
	}
}

func TestDummyData(t *testing.T) {
	d := dummyData(4)
	if string(d) != "0000" {
		t.Errorf("dummyData(4) = %q, want %q", d, "0000")
	}
}
