package trb

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/toshi_browser/config"
	"github.com/mogaika/toshi_browser/logger"
)

// Handler decodes the resource a symbol points at. A nil resource means the symbol
// carried nothing usable and is left out of the results.
type Handler func(ctx *LoadContext, sym *Symbol) (Resource, error)

type handlerKey struct {
	version config.FormatVersion
	tag     string
}

type prefixHandler struct {
	version config.FormatVersion
	prefix  string
	h       Handler
}

var (
	gHandlersLock   sync.RWMutex
	gHandlers       = make(map[handlerKey]Handler)
	gPrefixHandlers []prefixHandler
)

// SetHandler registers a decoder for a symbol key. FormatAuto registers it for every revision.
func SetHandler(version config.FormatVersion, tag string, h Handler) {
	gHandlersLock.Lock()
	defer gHandlersLock.Unlock()
	gHandlers[handlerKey{version, tag}] = h
}

// SetPrefixHandler registers a decoder for a family of symbol keys sharing a prefix.
func SetPrefixHandler(version config.FormatVersion, prefix string, h Handler) {
	gHandlersLock.Lock()
	defer gHandlersLock.Unlock()
	gPrefixHandlers = append(gPrefixHandlers, prefixHandler{version, prefix, h})
}

func findHandler(version config.FormatVersion, key string) Handler {
	gHandlersLock.RLock()
	defer gHandlersLock.RUnlock()
	for _, v := range []config.FormatVersion{version, config.FormatAuto} {
		for _, ph := range gPrefixHandlers {
			if ph.version == v && strings.HasPrefix(key, ph.prefix) {
				return ph.h
			}
		}
		if h, ok := gHandlers[handlerKey{v, key}]; ok {
			return h
		}
	}
	return nil
}

// CallHandler decodes a single symbol.
func (ctx *LoadContext) CallHandler(sym *Symbol) (Resource, error) {
	h := findHandler(ctx.Profile().Version, sym.Key())
	if h == nil {
		return nil, errors.Wrapf(ErrUnknownSymbolKind, "symbol %q type %q", sym.Name, sym.Type)
	}
	return h(ctx, sym)
}

// ProcessSymbols decodes every symbol in table order and returns the decoded resources in the same order.
// Unknown kinds and symbols that fail to decode are skipped.
func (ctx *LoadContext) ProcessSymbols() []Resource {
	log := logger.Log.With(zap.String("archive", ctx.Name))

	var out []Resource
	for i := range ctx.archive.Symbols {
		sym := &ctx.archive.Symbols[i]
		res, err := ctx.CallHandler(sym)
		if err != nil {
			log.Debug("symbol skipped",
				zap.Int("index", sym.Index), zap.String("name", sym.Name),
				zap.String("type", sym.Type), zap.Error(err))
			continue
		}
		if res == nil {
			continue
		}
		ctx.lock.Lock()
		ctx.bySymbol[i] = res
		ctx.lock.Unlock()
		out = append(out, res)
	}
	return out
}

// Load parses a container, decodes all its symbols and returns the populated context.
func Load(name string, data []byte) (*LoadContext, []Resource, error) {
	a, err := Parse(data)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "parse %q", name)
	}
	ctx := NewLoadContext(a)
	ctx.Name = name
	return ctx, ctx.ProcessSymbols(), nil
}
