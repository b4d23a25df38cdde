package trb

import (
	"encoding/binary"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/toshi_browser/config"
	"github.com/mogaika/toshi_browser/pack/trb/trbtest"
)

type testBuild struct {
	name  string
	order binary.ByteOrder
	v2    bool
}

var testBuilds = []testBuild{
	{"v1 big", binary.BigEndian, false},
	{"v1 little", binary.LittleEndian, false},
	{"v2 big", binary.BigEndian, true},
	{"v2 little", binary.LittleEndian, true},
}

func (tb testBuild) build(b *trbtest.Builder) []byte {
	if tb.v2 {
		return b.BuildV2()
	}
	return b.BuildV1()
}

// sectionIndex converts a builder section index into the archive one.
func (tb testBuild) sectionIndex(i int) int {
	if tb.v2 {
		return i + 1
	}
	return i
}

func TestParse_Relocations(t *testing.T) {
	for _, tb := range testBuilds {
		t.Run(tb.name, func(t *testing.T) {
			b := trbtest.New(tb.order)
			s0 := b.Section("main")
			s1 := b.Section("extra")

			head := s0.Alloc(8)
			s0.Alloc(4)
			str := s1.String("hello")
			s0.Ptr(head+4, s1, str)
			b.Symbol("test", "Thing", s0, head)

			a, err := Parse(tb.build(b))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if a.LittleEndian != (tb.order == binary.LittleEndian) {
				t.Errorf("little endian = %v", a.LittleEndian)
			}
			if len(a.Symbols) != 1 || a.Symbols[0].Name != "Thing" {
				t.Fatalf("symbols = %+v", a.Symbols)
			}
			if tb.v2 && a.Symbols[0].Type != "test" {
				t.Errorf("symbol type = %q", a.Symbols[0].Type)
			}
			if !tb.v2 && a.Symbols[0].Type != "" {
				t.Errorf("v1 symbol type must be empty, got %q", a.Symbols[0].Type)
			}

			sec0 := a.Sections[tb.sectionIndex(0)]
			sec1 := a.Sections[tb.sectionIndex(1)]
			if a.Symbols[0].Offset != sec0.DataOffset+head {
				t.Errorf("symbol offset = 0x%x", a.Symbols[0].Offset)
			}

			target, ok := a.Resolve(a.Symbols[0].Offset + 4)
			if !ok {
				t.Fatal("relocated field must resolve")
			}
			if target != sec1.DataOffset+str {
				t.Errorf("target = 0x%x, want 0x%x", target, sec1.DataOffset+str)
			}
			if again, _ := a.Resolve(a.Symbols[0].Offset + 4); again != target {
				t.Errorf("resolve is not stable: 0x%x then 0x%x", target, again)
			}
			if _, ok := a.Resolve(a.Symbols[0].Offset); ok {
				t.Error("field without relocation must not resolve")
			}

			ctx := NewLoadContext(a)
			if s, ok := ctx.PtrString(a.Symbols[0].Offset + 4); !ok || s != "hello" {
				t.Errorf("PtrString = %q, %v", s, ok)
			}
		})
	}
}

func TestParse_V1SectionNames(t *testing.T) {
	b := trbtest.New(binary.BigEndian)
	b.Section("one").Alloc(4)
	b.Section("two").Alloc(12)

	a, err := ParseWithProfile(b.BuildV1(), ProfileV1)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(a.Sections) != 2 || a.Sections[1].DataOffset != 4 || a.Sections[1].Size != 12 {
		t.Errorf("sections = %+v", a.Sections)
	}
	if a.FormType != "TRBF" {
		t.Errorf("form type = %q", a.FormType)
	}
	if len(a.Data()) != 16 {
		t.Errorf("v1 address space must be the section payload, got %d bytes", len(a.Data()))
	}
}

func TestParse_V2SectionNames(t *testing.T) {
	b := trbtest.New(binary.LittleEndian)
	b.Section("mesh").Alloc(4)

	a, err := ParseWithProfile(b.BuildV2(), ProfileV2)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(a.Sections) != 2 || a.Sections[0].Name != ".strings" || a.Sections[1].Name != "mesh" {
		t.Errorf("sections = %+v", a.Sections)
	}
}

func TestParse_LastRelocationWins(t *testing.T) {
	b := trbtest.New(binary.BigEndian)
	s0 := b.Section("a")
	s1 := b.Section("b")
	s1.Alloc(0x20)
	field := s0.Alloc(4)
	s0.Ptr(field, s0, 0)
	s0.Ptr(field, s1, 0)

	a, err := Parse(b.BuildV1())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(a.Relocations) != 2 {
		t.Fatalf("relocations = %d", len(a.Relocations))
	}
	target, ok := a.Resolve(a.Sections[0].DataOffset + field)
	if !ok || target != a.Sections[1].DataOffset {
		t.Errorf("target = 0x%x %v, want 0x%x", target, ok, a.Sections[1].DataOffset)
	}
}

func TestParse_Errors(t *testing.T) {
	b := trbtest.New(binary.BigEndian)
	s := b.Section("main")
	f := s.Alloc(8)
	s.Ptr(f, s, 4)
	b.Symbol("", "tmod", s, 0)
	v1 := b.BuildV1()

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrUnsupportedFormat},
		{"bad v1 marker", append([]byte("TSFX"), make([]byte, 0x100)...), ErrUnsupportedFormat},
		{"v1 truncated", v1[:len(v1)-6], ErrMalformedArchive},
		{"v2 bad endian", append([]byte{0, 0, 0, 0, 7}, make([]byte, 0x100)...), ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		_, err := Parse(tt.data)
		if !errors.Is(err, tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, err)
		}
	}

	if _, err := ParseWithProfile(append([]byte(nil), v1[:0x40]...), ProfileV1); !errors.Is(err, ErrMalformedArchive) {
		t.Errorf("expected ErrMalformedArchive for a cut file, got %v", err)
	}
}

func TestParse_V2Truncated(t *testing.T) {
	b := trbtest.New(binary.BigEndian)
	s := b.Section("main")
	s.Alloc(16)
	b.Symbol("tcmd", "a", s, 0)
	data := b.BuildV2()

	binary.BigEndian.PutUint32(data[0x14:], 0x10000)
	if _, err := Parse(data); !errors.Is(err, ErrMalformedArchive) {
		t.Errorf("expected ErrMalformedArchive, got %v", err)
	}
}

func TestParse_V1NameStaysInSYMB(t *testing.T) {
	b := trbtest.New(binary.BigEndian)
	s := b.Section("main")
	s.Alloc(4)
	b.Symbol("", "abc", s, 0)
	data := b.BuildV1()
	if _, err := Parse(data); err != nil {
		t.Fatal(err)
	}

	// unterminated inside the chunk, terminated by bytes after it
	data[len(data)-1] = 'x'
	data = append(data, "junk\x00"...)
	if _, err := Parse(data); !errors.Is(err, ErrMalformedArchive) {
		t.Errorf("expected ErrMalformedArchive, got %v", err)
	}
}

func TestParse_V2RelocationArea(t *testing.T) {
	b := trbtest.New(binary.BigEndian)
	s := b.Section("main")
	f := s.Alloc(8)
	s.Ptr(f, s, 4)
	data := b.BuildV2()
	if _, err := Parse(data); err != nil {
		t.Fatal(err)
	}

	// entries are still inside the file but no longer inside the area
	binary.BigEndian.PutUint32(data[0x20:], 0)
	if _, err := Parse(data); !errors.Is(err, ErrMalformedArchive) {
		t.Errorf("expected ErrMalformedArchive, got %v", err)
	}
}

func TestParse_ForcedVersion(t *testing.T) {
	b := trbtest.New(binary.BigEndian)
	b.Section("main").Alloc(4)
	data := b.BuildV2()

	config.SetFormatVersion(config.FormatV1)
	defer config.SetFormatVersion(config.FormatAuto)
	if _, err := Parse(data); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("forcing v1 on a v2 file must fail, got %v", err)
	}
}

func TestLoadContext_Matrices(t *testing.T) {
	b := trbtest.New(binary.LittleEndian)
	s := b.Section("main")
	m4 := s.Floats(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16)
	m34 := s.Floats(
		1, 0, 0, 10,
		0, 1, 0, 20,
		0, 0, 1, 30,
	)
	a, err := Parse(b.BuildV1())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ctx := NewLoadContext(a)

	m, err := ctx.Mat4(m4)
	if err != nil || m[1] != 2 || m[15] != 16 {
		t.Errorf("Mat4 = %v, %v", m, err)
	}
	m, err = ctx.Mat3x4(m34)
	if err != nil {
		t.Fatalf("Mat3x4: %v", err)
	}
	if tr := m.Col(3); tr != (mgl32.Vec4{10, 20, 30, 1}) {
		t.Errorf("translation = %v", tr)
	}
	if m.Mat3() != mgl32.Ident3() {
		t.Errorf("rotation = %v", m.Mat3())
	}
	if _, err := ctx.Vec4(s.Len() - 8); err == nil {
		t.Error("reading past the address space must fail")
	}
}

type testRecord struct {
	Value uint32
}

func loadTestRecord(ctx *LoadContext, off uint32) *testRecord {
	v, err := ctx.U32(off)
	if err != nil || v == 0 {
		return nil
	}
	return &testRecord{Value: v}
}

func TestLoadContext_Arrays(t *testing.T) {
	b := trbtest.New(binary.BigEndian)
	s := b.Section("main")

	records := s.Write([]uint32{1, 2, 0, 4})

	structHead := s.Alloc(8)
	s.PutU32(structHead, 4)
	s.Ptr(structHead+4, s, records)

	ptrs := s.Alloc(12)
	s.Ptr(ptrs+0, s, records+4)
	// ptrs+4 stays null
	s.Ptr(ptrs+8, s, records+12)
	ptrHead := s.Alloc(8)
	s.PutU32(ptrHead, 3)
	s.Ptr(ptrHead+4, s, ptrs)

	nullHead := s.Alloc(8)
	s.PutU32(nullHead, 5)

	a, err := Parse(b.BuildV1())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ctx := NewLoadContext(a)

	got := LoadOffsetToStructArray(ctx, structHead, 4, loadTestRecord)
	if len(got) != 3 || got[0].Value != 1 || got[2].Value != 4 {
		t.Errorf("struct array = %+v", got)
	}

	got = LoadOffsetToPointerArray(ctx, ptrHead, loadTestRecord)
	if len(got) != 2 || got[0].Value != 2 || got[1].Value != 4 {
		t.Errorf("pointer array = %+v", got)
	}

	if got := LoadOffsetToStructArray(ctx, nullHead, 4, loadTestRecord); len(got) != 0 {
		t.Errorf("null base must give an empty array, got %+v", got)
	}
	if got := LoadStructArray(ctx, records, 0x10000, 4, loadTestRecord); len(got) != 0 {
		t.Errorf("oversized array must give an empty result, got %d", len(got))
	}
}

func TestLoadContext_Collections(t *testing.T) {
	b := trbtest.New(binary.BigEndian)
	b.Section("main").Alloc(4)
	a, err := Parse(b.BuildV1())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ctx := NewLoadContext(a)

	first := &testResource{name: "Rock.tmod"}
	second := &testResource{name: "rock"}
	ctx.RegisterKeyed(KindMesh, first.name, first)
	ctx.RegisterKeyed(KindMesh, second.name, second)

	if res, ok := ctx.Find(KindMesh, "ROCK.whatever"); !ok || res != second {
		t.Errorf("Find = %v %v, want the last registered", res, ok)
	}
	if keys := ctx.Keys(KindMesh); len(keys) != 1 || keys[0] != "rock" {
		t.Errorf("keys = %v", keys)
	}

	ctx.Append(KindEntity, first)
	ctx.Append(KindEntity, second)
	if l := ctx.List(KindEntity); len(l) != 2 || l[0] != first {
		t.Errorf("list = %v", l)
	}
}
