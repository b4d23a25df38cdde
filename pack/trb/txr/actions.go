package txr

import (
	"image/png"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/mogaika/toshi_browser/logger"
	"github.com/mogaika/toshi_browser/pack/trb"
	"github.com/mogaika/toshi_browser/utils/gltfutils"
	"github.com/mogaika/toshi_browser/webutils"
)

const defaultThumbnailSize = 128

func (t *Texture) HttpAction(ctx *trb.LoadContext, w http.ResponseWriter, r *http.Request, action string) {
	log := logger.Log.With(zap.String("texture", t.Name), zap.String("action", action))
	level, _ := strconv.Atoi(r.URL.Query().Get("level"))

	switch action {
	case "png":
		w.Header().Set("Content-Type", "image/png")
		if err := t.EncodePNG(w, level); err != nil {
			log.Warn("Error when exporting texture", zap.Error(err))
		}
	case "webp":
		webutils.WriteFileHeaders(w, t.Name+".webp")
		if err := t.EncodeWebP(w, level); err != nil {
			log.Warn("Error when exporting texture", zap.Error(err))
		}
	case "thumb":
		size := defaultThumbnailSize
		if s, err := strconv.Atoi(r.URL.Query().Get("size")); err == nil && s > 0 {
			size = s
		}
		img, err := t.Thumbnail(size)
		if err != nil {
			webutils.WriteError(w, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		if err := png.Encode(w, img); err != nil {
			log.Warn("Error when encoding thumbnail", zap.Error(err))
		}
	case "gltf":
		webutils.WriteFileHeaders(w, t.Name+".glb")
		cacher := gltfutils.NewCacher()
		if _, err := t.ExportGLTF(cacher); err != nil {
			log.Warn("Error when exporting texture as gltf", zap.Error(err))
			return
		}
		if err := gltfutils.ExportBinary(w, cacher.Doc); err != nil {
			log.Warn("Failed to encode gltf", zap.Error(err))
		}
	default:
		webutils.WriteError(w, trb.ErrUnknownAction)
	}
}
