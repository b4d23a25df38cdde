package utils

import (
	"bytes"
	"testing"
)

func TestCompress(t *testing.T) {
	data := bytes.Repeat([]byte(`{"Name":"Crate.tmod"}`), 64)
	packed, err := Compress(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(packed) >= len(data) {
		t.Errorf("compressed %d bytes into %d", len(data), len(packed))
	}
	unpacked, err := Decompress(packed)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(unpacked, data) {
		t.Error("round trip mismatch")
	}
}
