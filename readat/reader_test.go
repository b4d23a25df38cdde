package readat

import (
	"encoding/binary"
	"testing"

	"github.com/pkg/errors"
)

func TestReader_Endianness(t *testing.T) {
	data := []byte{0x12, 0x34, 0x56, 0x78, 0x3f, 0xc0, 0x00, 0x00}

	be := NewReader(data, binary.BigEndian)
	if v, err := be.U32(0); err != nil || v != 0x12345678 {
		t.Errorf("big endian U32 = 0x%x, %v", v, err)
	}
	if v, err := be.F32(4); err != nil || v != 1.5 {
		t.Errorf("big endian F32 = %v, %v", v, err)
	}

	le := NewReader(data, binary.LittleEndian)
	if v, err := le.U16(0); err != nil || v != 0x3412 {
		t.Errorf("little endian U16 = 0x%x, %v", v, err)
	}
	if v, err := le.U32BE(0); err != nil || v != 0x12345678 {
		t.Errorf("U32BE must ignore reader order, got 0x%x, %v", v, err)
	}
}

func TestReader_OutOfBounds(t *testing.T) {
	r := NewReader(make([]byte, 6), binary.BigEndian)

	tests := []struct {
		name string
		read func() error
	}{
		{"u32 tail", func() error { _, err := r.U32(4); return err }},
		{"u16 past end", func() error { _, err := r.U16(6); return err }},
		{"u8 past end", func() error { _, err := r.U8(6); return err }},
		{"slice overflow", func() error { _, err := r.Slice(0xfffffffe, 4); return err }},
		{"view", func() error { _, err := r.View(2, 5); return err }},
	}
	for _, tt := range tests {
		err := tt.read()
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		if !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("%s: expected ErrOutOfBounds, got %v", tt.name, err)
		}
	}
}

func TestReader_CString(t *testing.T) {
	r := NewReader([]byte("abc\x00def"), binary.BigEndian)

	s, err := r.CString(0)
	if err != nil || string(s) != "abc" {
		t.Errorf("CString(0) = %q, %v", s, err)
	}
	if _, err := r.CString(4); err == nil {
		t.Error("unterminated string must fail")
	}
	if s, err := r.FixedString(4, 3); err != nil || string(s) != "def" {
		t.Errorf("FixedString = %q, %v", s, err)
	}
}

func TestView_Reads(t *testing.T) {
	data := []byte{0, 0, 0xff, 0xfe, 0, 0, 0, 7}
	r := NewReader(data, binary.BigEndian)

	v, err := r.View(2, 6)
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if v.Base() != 2 || v.Off(4) != 6 {
		t.Errorf("unexpected base %d off %d", v.Base(), v.Off(4))
	}
	if got := v.I16(0); got != -2 {
		t.Errorf("I16 = %d, want -2", got)
	}
	if got := v.U32(2); got != 7 {
		t.Errorf("U32 = %d, want 7", got)
	}
}
