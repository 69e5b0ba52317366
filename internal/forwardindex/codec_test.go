package forwardindex

import (
	"testing"

	"seismic/internal/sparsevec"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	v, err := sparsevec.New([]sparsevec.Pair{{Token: 1, Weight: 0.5}, {Token: 9, Weight: 2.25}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	data := Encode(v)
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !got.Equal(v) {
		t.Fatalf("got %+v, want %+v", got, v)
	}
}

func TestDecodeRejectsTruncated(t *testing.T) {
	v, _ := sparsevec.New([]sparsevec.Pair{{Token: 1, Weight: 0.5}})
	data := Encode(v)
	_, err := Decode(data[:len(data)-1])
	if err == nil {
		t.Fatal("expected error on truncated input")
	}
}

func TestDecodeEmptyVector(t *testing.T) {
	v, _ := sparsevec.New(nil)
	data := Encode(v)
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Len() != 0 {
		t.Fatalf("got.Len() = %d, want 0", got.Len())
	}
}
