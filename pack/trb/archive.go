// Package trb parses Toshi TRB resource containers and dispatches their symbols to resource decoders.
package trb

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/mogaika/toshi_browser/readat"
)

var (
	ErrMalformedArchive  = errors.New("malformed archive")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrUnresolvedPointer = errors.New("unresolved pointer")
	ErrUnknownSymbolKind = errors.New("unknown symbol kind")
	ErrUnknownAction     = errors.New("unknown action")
)

type Section struct {
	Index      int
	Name       string
	Size       uint32
	ZSize      uint32 `json:",omitempty"`
	DataOffset uint32

	RelocationCount  uint32 `json:",omitempty"`
	RelocationOffset uint32 `json:",omitempty"`
}

type Symbol struct {
	Index   int
	Type    string
	Name    string
	Section uint16
	// Local is the offset inside the section, Offset the absolute one
	Local  uint32
	Offset uint32
}

// Key is the name resource handlers are looked up by.
func (s *Symbol) Key() string {
	if s.Type != "" {
		return s.Type
	}
	return s.Name
}

type Relocation struct {
	SourceSection uint16
	TargetSection uint16
	SourceOffset  uint32
	TargetOffset  uint32
}

// Archive is the parse result of one container. It is not modified after Parse returns.
type Archive struct {
	Magic        uint32
	FormType     string `json:",omitempty"`
	Profile      *Profile
	LittleEndian bool

	Sections    []Section
	Symbols     []Symbol
	Relocations []Relocation

	// StringTable is the absolute offset of section names, v2 only
	StringTable uint32 `json:",omitempty"`

	data  []byte
	index map[uint32]int
}

func (a *Archive) Order() binary.ByteOrder {
	if a.LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// Data returns the address space offsets of symbols and relocations point into.
func (a *Archive) Data() []byte { return a.data }

func (a *Archive) Reader() *readat.Reader {
	return readat.NewReader(a.data, a.Order())
}

// Resolve returns the target of the pointer stored at src.
// ok is false when no relocation covers src, which encodes a null reference.
func (a *Archive) Resolve(src uint32) (uint32, bool) {
	i, ok := a.index[src]
	if !ok {
		return 0, false
	}
	return a.Relocations[i].TargetOffset, true
}

func (a *Archive) addRelocation(r Relocation) {
	a.index[r.SourceOffset] = len(a.Relocations)
	a.Relocations = append(a.Relocations, r)
}

func malformed(format string, args ...interface{}) error {
	return errors.Wrapf(ErrMalformedArchive, format, args...)
}
