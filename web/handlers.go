package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/toshi_browser/logger"
	"github.com/mogaika/toshi_browser/pack/trb"
	"github.com/mogaika/toshi_browser/utils"
	"github.com/mogaika/toshi_browser/utils/gltfutils"
	"github.com/mogaika/toshi_browser/vfs"
	"github.com/mogaika/toshi_browser/webutils"
)

func muxVar(r *http.Request, name string) string {
	v := mux.Vars(r)[name]
	if unescaped, err := url.PathUnescape(v); err == nil {
		return unescaped
	}
	return v
}

func getArchive(file string) (*trb.LoadContext, error) {
	inst, err := ServerCache.Get(file)
	if err != nil {
		return nil, err
	}
	ctx, ok := inst.(*trb.LoadContext)
	if !ok {
		return nil, errors.Errorf("File %s not contain subdata", file)
	}
	return ctx, nil
}

// archiveAndIndex resolves the {file} and integer {param} route variables.
func archiveAndIndex(w http.ResponseWriter, r *http.Request) (*trb.LoadContext, int, bool) {
	file := muxVar(r, "file")
	param := muxVar(r, "param")
	ctx, err := getArchive(file)
	if err != nil {
		logger.Log.Warn("Error getting file from pack", zap.String("file", file), zap.Error(err))
		webutils.WriteError(w, err)
		return nil, 0, false
	}
	id, err := strconv.Atoi(param)
	if err != nil {
		webutils.WriteError(w, errors.Errorf("param '%s' is not integer", param))
		return nil, 0, false
	}
	return ctx, id, true
}

type dirEntry struct {
	Name        string
	IsDirectory bool
	Size        int64 `json:",omitempty"`
}

// HandlerAjaxPack lists a directory, the root unless ?dir= is set.
func HandlerAjaxPack(w http.ResponseWriter, r *http.Request) {
	d, err := vfs.OpenDirectory(ServerCache.Directory(), r.URL.Query().Get("dir"))
	if err != nil {
		webutils.WriteNotFound(w, err)
		return
	}
	names, err := d.List()
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	sort.Strings(names)

	entries := make([]dirEntry, 0, len(names))
	for _, name := range names {
		e, err := d.GetElement(name)
		if err != nil {
			continue
		}
		entry := dirEntry{Name: name, IsDirectory: e.IsDirectory()}
		if f, ok := e.(vfs.File); ok {
			entry.Size = f.Size()
		}
		entries = append(entries, entry)
	}
	webutils.WriteJson(w, entries)
}

func HandlerAjaxPackFile(w http.ResponseWriter, r *http.Request) {
	file := muxVar(r, "file")
	ctx, err := getArchive(file)
	if err != nil {
		logger.Log.Warn("Error getting file from pack", zap.String("file", file), zap.Error(err))
		webutils.WriteError(w, err)
		return
	}
	ctx.WebHandlerInfo(w)
}

func HandlerAjaxPackFileParam(w http.ResponseWriter, r *http.Request) {
	ctx, id, ok := archiveAndIndex(w, r)
	if !ok {
		return
	}
	if err := ctx.WebHandlerForSymbol(w, id); err != nil {
		webutils.WriteError(w, errors.Wrap(err, "trb web handler return error"))
	}
}

func HandlerActionPackFileParam(w http.ResponseWriter, r *http.Request) {
	ctx, id, ok := archiveAndIndex(w, r)
	if !ok {
		return
	}
	action := muxVar(r, "action")
	if err := ctx.WebHandlerCallResourceHttpAction(w, r, id, action); err != nil {
		webutils.WriteError(w, errors.Wrapf(err, "Trb handler error on %s-%d instance", ctx.Name, id))
	}
}

func HandlerDumpPackFile(w http.ResponseWriter, r *http.Request) {
	file := muxVar(r, "file")
	data, err := vfs.ReadPath(ServerCache.Directory(), file)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteFile(w, bytes.NewReader(data), path.Base(file))
}

func HandlerDumpPackParamFile(w http.ResponseWriter, r *http.Request) {
	ctx, id, ok := archiveAndIndex(w, r)
	if !ok {
		return
	}
	if err := ctx.WebHandlerDumpSymbol(w, id); err != nil {
		webutils.WriteError(w, err)
	}
}

// HandlerDumpJsonFile downloads the decoded archive as JSON, zstd compressed with ?zstd=1.
func HandlerDumpJsonFile(w http.ResponseWriter, r *http.Request) {
	file := muxVar(r, "file")
	ctx, err := getArchive(file)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	if r.URL.Query().Get("zstd") != "1" {
		webutils.WriteJsonFile(w, ctx.Snapshot(), path.Base(file))
		return
	}
	data, err := json.Marshal(ctx.Snapshot())
	if err == nil {
		data, err = utils.Compress(data)
	}
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteFile(w, bytes.NewReader(data), path.Base(file)+".json.zst")
}

// HandlerResetCache drops every loaded archive.
func HandlerResetCache(w http.ResponseWriter, r *http.Request) {
	ServerCache.Reset()
	webutils.WriteJson(w, struct{}{})
}

func HandlerAjaxLevel(w http.ResponseWriter, r *http.Request) {
	levelPath := muxVar(r, "path")
	s, err := SceneLoader.LoadLevel(levelPath)
	if err != nil {
		webutils.WriteNotFound(w, err)
		return
	}
	webutils.WriteJson(w, s)
}

func HandlerActionLevel(w http.ResponseWriter, r *http.Request) {
	levelPath := muxVar(r, "path")
	action := muxVar(r, "action")
	if action != "gltf" {
		webutils.WriteError(w, trb.ErrUnknownAction)
		return
	}

	s, err := SceneLoader.LoadLevel(levelPath)
	if err != nil {
		webutils.WriteNotFound(w, err)
		return
	}
	doc, err := s.ExportGLTF()
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteFileHeaders(w, path.Base(s.Path)+".glb")
	if err := gltfutils.ExportBinary(w, doc); err != nil {
		logger.Log.Warn("Failed to encode gltf", zap.String("level", s.Path), zap.Error(err))
	}
}
