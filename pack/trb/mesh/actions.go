package mesh

import (
	"net/http"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/toshi_browser/gx"
	"github.com/mogaika/toshi_browser/logger"
	"github.com/mogaika/toshi_browser/pack/trb"
	"github.com/mogaika/toshi_browser/utils/gltfutils"
	"github.com/mogaika/toshi_browser/webutils"
)

type vertexDump struct {
	Positions [][3]float32
	Normals   [][3]float32 `json:",omitempty"`
	TexCoords [][2]float32 `json:",omitempty"`
	Indices   []uint32
	Missing   []string `json:",omitempty"`
}

func (m *Model) dumpVertices(ctx *trb.LoadContext, group, dl int) (*vertexDump, error) {
	if group < 0 || group >= len(m.Groups) {
		return nil, errors.Errorf("group %d out of range [0, %d)", group, len(m.Groups))
	}
	vd, err := m.Groups[group].DecodeVertices(ctx, dl)
	if err != nil {
		return nil, err
	}

	dump := &vertexDump{Indices: vd.Indices}
	for i := uint32(0); i < vd.VertexCount; i++ {
		dump.Positions = append(dump.Positions, vd.Position(i))
	}
	if vd.Has(gx.AttrNRM) {
		for i := uint32(0); i < vd.VertexCount; i++ {
			dump.Normals = append(dump.Normals, vd.Normal(i))
		}
	}
	if vd.Has(gx.AttrTEX0) {
		for i := uint32(0); i < vd.VertexCount; i++ {
			dump.TexCoords = append(dump.TexCoords, vd.TexCoord(0, i))
		}
	}
	for _, a := range vd.MissingArrays {
		dump.Missing = append(dump.Missing, a.String())
	}
	return dump, nil
}

func (m *Model) HttpAction(ctx *trb.LoadContext, w http.ResponseWriter, r *http.Request, action string) {
	log := logger.Log.With(zap.String("model", m.Name), zap.String("action", action))

	switch action {
	case "gltf":
		doc, err := m.ExportGLTFDefault(ctx)
		if err != nil {
			log.Warn("Error when exporting model", zap.Error(err))
			webutils.WriteError(w, err)
			return
		}
		webutils.WriteFileHeaders(w, m.Name+".glb")
		if err := gltfutils.ExportBinary(w, doc); err != nil {
			log.Warn("Failed to encode gltf", zap.Error(err))
		}
	case "vertices":
		group, _ := strconv.Atoi(r.URL.Query().Get("group"))
		dl, _ := strconv.Atoi(r.URL.Query().Get("dl"))
		dump, err := m.dumpVertices(ctx, group, dl)
		if err != nil {
			webutils.WriteError(w, err)
			return
		}
		webutils.WriteJson(w, dump)
	default:
		webutils.WriteError(w, trb.ErrUnknownAction)
	}
}
