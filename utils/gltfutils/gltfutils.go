package gltfutils

import (
	"io"
	"sync"

	"github.com/qmuntal/gltf"
)

func NewDocument() *gltf.Document {
	return gltf.NewDocument()
}

// GLTFCacher keeps already exported resources of one document so shared
// textures and materials are written once.
type GLTFCacher struct {
	Doc *gltf.Document

	lock  sync.Mutex
	cache map[string]interface{}
}

func NewCacher() *GLTFCacher {
	return &GLTFCacher{
		Doc:   NewDocument(),
		cache: make(map[string]interface{}),
	}
}

func (gc *GLTFCacher) AddCache(key string, v interface{}) {
	gc.lock.Lock()
	defer gc.lock.Unlock()
	gc.cache[key] = v
}

func (gc *GLTFCacher) GetCached(key string) (interface{}, bool) {
	gc.lock.Lock()
	defer gc.lock.Unlock()
	v, ok := gc.cache[key]
	return v, ok
}

// GetCachedOr returns the cached value or stores the result of create.
// create must not call back into the cacher with the same key.
func (gc *GLTFCacher) GetCachedOr(key string, create func() interface{}) interface{} {
	if v, ok := gc.GetCached(key); ok {
		return v
	}
	v := create()
	gc.AddCache(key, v)
	return v
}

// AddRootNode appends a node and lists it in the default scene.
func AddRootNode(doc *gltf.Document, node *gltf.Node) uint32 {
	index := uint32(len(doc.Nodes))
	doc.Nodes = append(doc.Nodes, node)
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, index)
	return index
}

// AddChildNode appends a node as a child of parent.
func AddChildNode(doc *gltf.Document, parent uint32, node *gltf.Node) uint32 {
	index := uint32(len(doc.Nodes))
	doc.Nodes = append(doc.Nodes, node)
	doc.Nodes[parent].Children = append(doc.Nodes[parent].Children, index)
	return index
}

func ExportBinary(w io.Writer, doc *gltf.Document) error {
	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = true
	return encoder.Encode(doc)
}
