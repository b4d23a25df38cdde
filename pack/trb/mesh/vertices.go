package mesh

import (
	"github.com/pkg/errors"

	"github.com/mogaika/toshi_browser/gx"
	"github.com/mogaika/toshi_browser/pack/trb"
)

var (
	ErrNotDecodable  = errors.New("mesh attributes are not decodable")
	ErrNoDisplayList = errors.New("display list not found")
)

// DecodeVertices decodes one display list into a vertex buffer. The result is cached,
// repeated calls return the same data.
func (mi *MeshInfo) DecodeVertices(ctx *trb.LoadContext, index int) (*gx.VertexData, error) {
	mi.lock.Lock()
	defer mi.lock.Unlock()

	if vd, ok := mi.decoded[index]; ok {
		return vd, nil
	}
	if !mi.AttributesValid || mi.Format == nil {
		return nil, ErrNotDecodable
	}
	if index < 0 || index >= len(mi.DisplayLists) {
		return nil, errors.Wrapf(ErrNoDisplayList, "index %d of %d", index, len(mi.DisplayLists))
	}
	dl := mi.DisplayLists[index]
	if !dl.HasData {
		return nil, errors.Wrapf(trb.ErrUnresolvedPointer, "display list %d data", index)
	}
	data, err := ctx.Reader().Slice(dl.DataOffset, dl.DataSize)
	if err != nil {
		return nil, errors.Wrapf(err, "display list %d", index)
	}

	if mi.loader == nil {
		mi.loader = gx.Compile(mi.Format)
	}
	vd, err := mi.loader.Run(ctx.Data(), data, ctx.Reader().Order())
	if err != nil {
		return nil, errors.Wrapf(err, "display list %d", index)
	}
	if mi.decoded == nil {
		mi.decoded = make(map[int]*gx.VertexData)
	}
	mi.decoded[index] = vd
	return vd, nil
}

// JointIndex maps the matrix index of a decoded vertex to a skeleton joint.
// ok is false for the 0xff filler slots.
func (dl *DisplayList) JointIndex(matrixIndex uint8) (uint8, bool) {
	if int(matrixIndex) >= len(dl.MatrixIndices) {
		return 0, false
	}
	j := dl.MatrixIndices[matrixIndex]
	return j, j != 0xff
}
