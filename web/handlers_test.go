package web

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/mogaika/toshi_browser/config"
	"github.com/mogaika/toshi_browser/pack/trb"
	"github.com/mogaika/toshi_browser/pack/trb/trbtest"
	"github.com/mogaika/toshi_browser/utils"
	"github.com/mogaika/toshi_browser/vfs"
)

func materialArchive() []byte {
	b := trbtest.New(binary.BigEndian)
	s := b.Section("main")
	m := s.Alloc(0x18)
	s.PtrString(m+0x08, "wood")
	b.Symbol("tmat", "wood", s, m)
	b.Symbol("zzzz", "unknown", s, s.Alloc(4))
	return b.BuildV2()
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "Data")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "mats.trb"), materialArchive(), 0644); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(NewRouter(vfs.NewDirectoryDriver(root), config.Default()))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, srv *httptest.Server, url string, v interface{}) int {
	t.Helper()
	resp, err := http.Get(srv.URL + url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("%s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestHandlerAjaxPack(t *testing.T) {
	srv := newTestServer(t)

	var root []dirEntry
	if code := get(t, srv, "/json/pack", &root); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if len(root) != 1 || root[0].Name != "Data" || !root[0].IsDirectory {
		t.Errorf("root = %+v", root)
	}

	var data []dirEntry
	get(t, srv, "/json/pack?dir=Data", &data)
	if len(data) != 1 || data[0].Name != "mats.trb" || data[0].Size == 0 {
		t.Errorf("Data = %+v", data)
	}

	if code := get(t, srv, "/json/pack?dir=Nope", nil); code != http.StatusNotFound {
		t.Errorf("missing dir status %d", code)
	}
}

func TestHandlerAjaxPackFile(t *testing.T) {
	srv := newTestServer(t)

	var info trb.ArchiveInfo
	if code := get(t, srv, "/json/pack/Data%2Fmats.trb", &info); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if len(info.Symbols) != 2 || !info.Symbols[0].Decoded || info.Symbols[1].Decoded {
		t.Errorf("symbols = %+v", info.Symbols)
	}

	var res struct {
		Kind string
		Data struct{ Name string }
	}
	if code := get(t, srv, "/json/pack/Data%2Fmats.trb/0", &res); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if res.Kind != "tmat" || res.Data.Name != "wood" {
		t.Errorf("resource = %+v", res)
	}

	if code := get(t, srv, "/json/pack/Data%2Fmats.trb/1", nil); code != http.StatusInternalServerError {
		t.Errorf("undecoded symbol status %d", code)
	}
	if code := get(t, srv, "/json/pack/Data%2Fmats.trb/x", nil); code != http.StatusInternalServerError {
		t.Errorf("bad index status %d", code)
	}
	if code := get(t, srv, "/action/Data%2Fmats.trb/0/gltf", nil); code != http.StatusInternalServerError {
		t.Errorf("material action status %d", code)
	}
}

func TestHandlerDumpJsonFile(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/dump/json/Data%2Fmats.trb?zstd=1")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}

	packed, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	data, err := utils.Decompress(packed)
	if err != nil {
		t.Fatal(err)
	}
	var snap struct {
		Resources []struct{ Index int }
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatal(err)
	}
	if len(snap.Resources) != 1 || snap.Resources[0].Index != 0 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestHandlerResetCache(t *testing.T) {
	srv := newTestServer(t)

	if code := get(t, srv, "/json/pack/Data%2Fmats.trb", nil); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if code := get(t, srv, "/action/reset", nil); code != http.StatusOK {
		t.Errorf("reset status %d", code)
	}
	if code := get(t, srv, "/json/pack/Data%2Fmats.trb", nil); code != http.StatusOK {
		t.Errorf("reload status %d", code)
	}
}
