package pack

import (
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/mogaika/toshi_browser/utils"
	"github.com/mogaika/toshi_browser/vfs"
)

type FileLoader func(src utils.ResourceSource, r *io.SectionReader) (interface{}, error)

var (
	gHandlersLock sync.RWMutex
	gHandlers     = make(map[string]FileLoader)
)

// SetHandler registers a loader for a file extension, dot included.
func SetHandler(format string, ldr FileLoader) {
	gHandlersLock.Lock()
	defer gHandlersLock.Unlock()
	gHandlers[strings.ToUpper(format)] = ldr
}

func CallHandler(s utils.ResourceSource, r *io.SectionReader) (interface{}, error) {
	ext := strings.ToUpper(filepath.Ext(s.Name()))

	gHandlersLock.RLock()
	h, found := gHandlers[ext]
	gHandlersLock.RUnlock()

	if !found {
		return nil, errors.Errorf("[pack] Cannot find handler for '%s' extension", ext)
	}
	return h(s, r)
}

type PackResSrc struct {
	pf   vfs.File
	path string
}

func (s *PackResSrc) Name() string { return s.path }
func (s *PackResSrc) Size() int64  { return s.pf.Size() }

// GetInstanceHandler loads the file at a slash or backslash separated path under d.
func GetInstanceHandler(d vfs.Directory, fileName string) (interface{}, error) {
	e, err := vfs.OpenPath(d, fileName)
	if err != nil {
		return nil, errors.Wrapf(err, "[pack] Cannot get file '%s'", fileName)
	}
	if e.IsDirectory() {
		return nil, errors.Errorf("[pack] '%s' is a directory", fileName)
	}
	f := e.(vfs.File)

	r, err := vfs.OpenFileAndGetReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "[pack] Cannot get instance of '%s'", fileName)
	}
	defer f.Close()

	inst, err := CallHandler(&PackResSrc{pf: f, path: fileName}, r)
	if err != nil {
		return nil, errors.Wrap(err, "[pack] Handler error")
	}
	return inst, nil
}

type cacheEntry struct {
	size int64
	inst interface{}
}

// InstanceCache keeps loaded instances of one directory by path.
// An entry is reloaded when the file size changes.
type InstanceCache struct {
	d vfs.Directory

	lock    sync.Mutex
	entries map[string]cacheEntry
}

func NewInstanceCache(d vfs.Directory) *InstanceCache {
	return &InstanceCache{d: d, entries: make(map[string]cacheEntry)}
}

func (ic *InstanceCache) Directory() vfs.Directory { return ic.d }

func cacheKey(fileName string) string {
	return strings.ToLower(strings.Join(vfs.SplitPath(fileName), "/"))
}

func (ic *InstanceCache) Get(fileName string) (interface{}, error) {
	key := cacheKey(fileName)

	var size int64 = -1
	if e, err := vfs.OpenPath(ic.d, fileName); err == nil && !e.IsDirectory() {
		size = e.(vfs.File).Size()
	}

	ic.lock.Lock()
	entry, ok := ic.entries[key]
	ic.lock.Unlock()
	if ok && entry.size == size {
		return entry.inst, nil
	}

	inst, err := GetInstanceHandler(ic.d, fileName)
	if err != nil {
		return nil, err
	}

	ic.lock.Lock()
	ic.entries[key] = cacheEntry{size: size, inst: inst}
	ic.lock.Unlock()
	return inst, nil
}

func (ic *InstanceCache) Reset() {
	ic.lock.Lock()
	defer ic.lock.Unlock()
	ic.entries = make(map[string]cacheEntry)
}
