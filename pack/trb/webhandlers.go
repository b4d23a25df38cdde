package trb

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"

	"github.com/pkg/errors"

	"github.com/mogaika/toshi_browser/webutils"
)

// HttpActioner is implemented by resources with extra web endpoints (exports, previews).
type HttpActioner interface {
	HttpAction(ctx *LoadContext, w http.ResponseWriter, r *http.Request, action string)
}

type SymbolInfo struct {
	Symbol
	Key       string
	Decoded   bool
	Resource  string `json:",omitempty"`
	HasAction bool
}

type ArchiveInfo struct {
	Name        string
	Version     string
	FormType    string `json:",omitempty"`
	Sections    []Section
	Symbols     []SymbolInfo
	Relocations int
}

func (ctx *LoadContext) Info() *ArchiveInfo {
	a := ctx.archive
	info := &ArchiveInfo{
		Name:        ctx.Name,
		Version:     ctx.Profile().Version.String(),
		FormType:    a.FormType,
		Sections:    a.Sections,
		Symbols:     make([]SymbolInfo, len(a.Symbols)),
		Relocations: len(a.Relocations),
	}
	for i, sym := range a.Symbols {
		si := SymbolInfo{Symbol: sym, Key: sym.Key()}
		if res, ok := ctx.SymbolResource(i); ok {
			si.Decoded = true
			si.Resource = res.ResourceName()
			_, si.HasAction = res.(HttpActioner)
		}
		info.Symbols[i] = si
	}
	return info
}

func (ctx *LoadContext) symbol(index int) (*Symbol, error) {
	if index < 0 || index >= len(ctx.archive.Symbols) {
		return nil, errors.Errorf("symbol %d out of range [0, %d)", index, len(ctx.archive.Symbols))
	}
	return &ctx.archive.Symbols[index], nil
}

// SymbolRange is the byte range from the symbol to the next symbol of the
// same section, or to the section end.
func (ctx *LoadContext) SymbolRange(index int) (uint32, uint32, error) {
	sym, err := ctx.symbol(index)
	if err != nil {
		return 0, 0, err
	}
	if int(sym.Section) >= len(ctx.archive.Sections) {
		return 0, 0, malformed("symbol %d references section %d", index, sym.Section)
	}
	sec := ctx.archive.Sections[sym.Section]
	end := sec.DataOffset + sec.Size

	var next []uint32
	for _, other := range ctx.archive.Symbols {
		if other.Section == sym.Section && other.Offset > sym.Offset {
			next = append(next, other.Offset)
		}
	}
	if len(next) != 0 {
		sort.Slice(next, func(i, j int) bool { return next[i] < next[j] })
		end = next[0]
	}
	if end < sym.Offset {
		return 0, 0, malformed("symbol %d starts past its section", index)
	}
	return sym.Offset, end - sym.Offset, nil
}

func (ctx *LoadContext) WebHandlerInfo(w http.ResponseWriter) {
	webutils.WriteJson(w, ctx.Info())
}

func (ctx *LoadContext) WebHandlerForSymbol(w http.ResponseWriter, index int) error {
	sym, err := ctx.symbol(index)
	if err != nil {
		return err
	}
	res, ok := ctx.SymbolResource(index)
	if !ok {
		return errors.Wrapf(ErrUnknownSymbolKind, "symbol %d %q was not decoded", index, sym.Key())
	}
	type Result struct {
		Symbol *Symbol
		Kind   string
		Data   interface{}
	}
	webutils.WriteJson(w, &Result{Symbol: sym, Kind: res.ResourceType(), Data: res})
	return nil
}

func (ctx *LoadContext) WebHandlerDumpSymbol(w http.ResponseWriter, index int) error {
	off, size, err := ctx.SymbolRange(index)
	if err != nil {
		return err
	}
	data, err := ctx.r.Slice(off, size)
	if err != nil {
		return err
	}
	webutils.WriteFile(w, bytes.NewReader(data), fmt.Sprintf("%s_%d.bin", ctx.archive.Symbols[index].Key(), index))
	return nil
}

func (ctx *LoadContext) WebHandlerCallResourceHttpAction(w http.ResponseWriter, r *http.Request, index int, action string) error {
	if _, err := ctx.symbol(index); err != nil {
		return err
	}
	res, ok := ctx.SymbolResource(index)
	if !ok {
		return errors.Errorf("symbol %d was not decoded", index)
	}
	actioner, ok := res.(HttpActioner)
	if !ok {
		return errors.Wrapf(ErrUnknownAction, "%s %q has no actions", res.ResourceType(), res.ResourceName())
	}
	actioner.HttpAction(ctx, w, r, action)
	return nil
}
