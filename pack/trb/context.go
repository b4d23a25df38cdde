package trb

import (
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/toshi_browser/readat"
	"github.com/mogaika/toshi_browser/utils"
)

// Kind names a resource collection of a LoadContext.
type Kind string

const (
	KindMesh     Kind = "mesh"
	KindTexture  Kind = "texture"
	KindMaterial Kind = "material"
	KindUV       Kind = "uv"
	KindTerrain  Kind = "terrain"
	KindEntity   Kind = "entity"
)

// Resource is a decoded symbol.
type Resource interface {
	ResourceName() string
	ResourceType() string
}

// LoadContext binds decoders to one archive and collects what they decode.
type LoadContext struct {
	Name string

	archive *Archive
	r       *readat.Reader

	lock  sync.RWMutex
	keyed map[Kind]map[string]Resource
	lists map[Kind][]Resource

	// decoded resource per symbol index
	bySymbol map[int]Resource
}

func NewLoadContext(a *Archive) *LoadContext {
	return &LoadContext{
		archive:  a,
		r:        a.Reader(),
		keyed:    make(map[Kind]map[string]Resource),
		lists:    make(map[Kind][]Resource),
		bySymbol: make(map[int]Resource),
	}
}

func (ctx *LoadContext) Archive() *Archive { return ctx.archive }
func (ctx *LoadContext) Profile() *Profile { return ctx.archive.Profile }
func (ctx *LoadContext) Reader() *readat.Reader { return ctx.r }
func (ctx *LoadContext) Data() []byte { return ctx.archive.data }

func (ctx *LoadContext) Resolve(off uint32) (uint32, bool) {
	return ctx.archive.Resolve(off)
}

// MustResolve is Resolve reporting absence as ErrUnresolvedPointer.
func (ctx *LoadContext) MustResolve(off uint32) (uint32, error) {
	if target, ok := ctx.archive.Resolve(off); ok {
		return target, nil
	}
	return 0, errors.Wrapf(ErrUnresolvedPointer, "at 0x%x", off)
}

func (ctx *LoadContext) View(off, size uint32) (readat.View, error) {
	return ctx.r.View(off, size)
}

func (ctx *LoadContext) U32(off uint32) (uint32, error) { return ctx.r.U32(off) }

// String reads a NUL terminated string at an absolute offset.
func (ctx *LoadContext) String(off uint32) (string, error) {
	b, err := ctx.r.CString(off)
	if err != nil {
		return "", err
	}
	return utils.BytesToString(b), nil
}

// PtrString follows the pointer stored at off to a string. ok is false for a null pointer or a bad string.
func (ctx *LoadContext) PtrString(off uint32) (string, bool) {
	target, ok := ctx.Resolve(off)
	if !ok {
		return "", false
	}
	s, err := ctx.String(target)
	return s, err == nil
}

func (ctx *LoadContext) Vec3(off uint32) (mgl32.Vec3, error) {
	var out mgl32.Vec3
	v, err := ctx.r.View(off, 12)
	if err != nil {
		return out, err
	}
	v.F32s(0, out[:])
	return out, nil
}

func (ctx *LoadContext) Vec4(off uint32) (mgl32.Vec4, error) {
	var out mgl32.Vec4
	v, err := ctx.r.View(off, 16)
	if err != nil {
		return out, err
	}
	v.F32s(0, out[:])
	return out, nil
}

// Mat4 reads sixteen floats in storage order, which is mgl32 column order.
func (ctx *LoadContext) Mat4(off uint32) (mgl32.Mat4, error) {
	var out mgl32.Mat4
	v, err := ctx.r.View(off, 64)
	if err != nil {
		return out, err
	}
	v.F32s(0, out[:])
	return out, nil
}

// Mat3x4 reads a row major 3x4 matrix and expands it to a homogeneous matrix
// with the last stored column as translation.
func (ctx *LoadContext) Mat3x4(off uint32) (mgl32.Mat4, error) {
	var rows [12]float32
	v, err := ctx.r.View(off, 48)
	if err != nil {
		return mgl32.Ident4(), err
	}
	v.F32s(0, rows[:])
	return mgl32.Mat4{
		rows[0], rows[4], rows[8], 0,
		rows[1], rows[5], rows[9], 0,
		rows[2], rows[6], rows[10], 0,
		rows[3], rows[7], rows[11], 1,
	}, nil
}

// PtrVec3 follows the pointer at off. nil when the pointer is null or the target unreadable.
func (ctx *LoadContext) PtrVec3(off uint32) *mgl32.Vec3 {
	target, ok := ctx.Resolve(off)
	if !ok {
		return nil
	}
	v, err := ctx.Vec3(target)
	if err != nil {
		return nil
	}
	return &v
}

func (ctx *LoadContext) PtrMat4(off uint32) *mgl32.Mat4 {
	target, ok := ctx.Resolve(off)
	if !ok {
		return nil
	}
	m, err := ctx.Mat4(target)
	if err != nil {
		return nil
	}
	return &m
}

// LoadPointerArray resolves count pointers stored at base. Null pointers
// and elements the loader rejects are skipped.
func LoadPointerArray[T any](ctx *LoadContext, base, count uint32, load func(ctx *LoadContext, off uint32) *T) []*T {
	var out []*T
	for i := uint32(0); i < count; i++ {
		off, ok := ctx.Resolve(base + i*4)
		if !ok {
			continue
		}
		if v := load(ctx, off); v != nil {
			out = append(out, v)
		}
	}
	return out
}

// LoadStructArray runs the loader on count records of stride bytes starting at base.
func LoadStructArray[T any](ctx *LoadContext, base, count, stride uint32, load func(ctx *LoadContext, off uint32) *T) []*T {
	if count == 0 {
		return nil
	}
	if !ctx.r.Has(base, count*stride) || uint64(count)*uint64(stride) > uint64(ctx.r.Len()) {
		return nil
	}
	out := make([]*T, 0, count)
	for i := uint32(0); i < count; i++ {
		if v := load(ctx, base+i*stride); v != nil {
			out = append(out, v)
		}
	}
	return out
}

// LoadOffsetToPointerArray reads a u32 count at off followed by a pointer to the pointer array.
func LoadOffsetToPointerArray[T any](ctx *LoadContext, off uint32, load func(ctx *LoadContext, off uint32) *T) []*T {
	count, err := ctx.r.U32(off)
	if err != nil {
		return nil
	}
	base, ok := ctx.Resolve(off + 4)
	if !ok {
		return nil
	}
	if uint64(count)*4 > uint64(ctx.r.Len()) {
		return nil
	}
	return LoadPointerArray(ctx, base, count, load)
}

// LoadOffsetToStructArray reads a u32 count at off followed by a pointer to the records.
func LoadOffsetToStructArray[T any](ctx *LoadContext, off, stride uint32, load func(ctx *LoadContext, off uint32) *T) []*T {
	count, err := ctx.r.U32(off)
	if err != nil {
		return nil
	}
	base, ok := ctx.Resolve(off + 4)
	if !ok {
		return nil
	}
	return LoadStructArray(ctx, base, count, stride, load)
}

// RegisterKeyed stores a resource under its resource key. A later resource with the same key replaces the earlier one.
func (ctx *LoadContext) RegisterKeyed(kind Kind, name string, res Resource) {
	ctx.lock.Lock()
	defer ctx.lock.Unlock()
	m, ok := ctx.keyed[kind]
	if !ok {
		m = make(map[string]Resource)
		ctx.keyed[kind] = m
	}
	m[utils.ResourceKey(name)] = res
}

// Append adds a resource to an ordered collection.
func (ctx *LoadContext) Append(kind Kind, res Resource) {
	ctx.lock.Lock()
	defer ctx.lock.Unlock()
	ctx.lists[kind] = append(ctx.lists[kind], res)
}

func (ctx *LoadContext) Find(kind Kind, name string) (Resource, bool) {
	ctx.lock.RLock()
	defer ctx.lock.RUnlock()
	res, ok := ctx.keyed[kind][utils.ResourceKey(name)]
	return res, ok
}

func (ctx *LoadContext) List(kind Kind) []Resource {
	ctx.lock.RLock()
	defer ctx.lock.RUnlock()
	return append([]Resource(nil), ctx.lists[kind]...)
}

// Keys returns the sorted keys of a keyed collection.
func (ctx *LoadContext) Keys(kind Kind) []string {
	ctx.lock.RLock()
	defer ctx.lock.RUnlock()
	keys := make([]string, 0, len(ctx.keyed[kind]))
	for k := range ctx.keyed[kind] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SymbolResource returns what ProcessSymbols decoded from the symbol at index.
func (ctx *LoadContext) SymbolResource(index int) (Resource, bool) {
	ctx.lock.RLock()
	defer ctx.lock.RUnlock()
	res, ok := ctx.bySymbol[index]
	return res, ok
}
