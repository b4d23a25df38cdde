package scene

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/mogaika/toshi_browser/config"
	"github.com/mogaika/toshi_browser/pack"
	"github.com/mogaika/toshi_browser/pack/trb/trbtest"
	"github.com/mogaika/toshi_browser/vfs"
)

var meshInstanceSlots = [5]uint32{0x68, 0x6C, 0x74, 0x78, 0x80}

func translation(x, y, z float32) []float32 {
	return []float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, x, y, z, 1}
}

func writeFile(t *testing.T, root, rel string, data []byte) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, data, 0644); err != nil {
		t.Fatal(err)
	}
}

func modelsV2(names ...string) []byte {
	b := trbtest.New(binary.LittleEndian)
	s := b.Section("main")
	for _, name := range names {
		h := s.Alloc(0x30)
		s.PtrString(h+0x1C, name+".tcmd")
		b.Symbol("tcmd", name, s, h)
	}
	return b.BuildV2()
}

func modelsV1(names ...string) []byte {
	b := trbtest.New(binary.BigEndian)
	s := b.Section("main")
	for _, name := range names {
		h := s.Alloc(0x1C)
		s.PtrString(h, name+".tmod")
		b.Symbol("", "tmod", s, h)
	}
	return b.BuildV1()
}

func terrainV2(cellPath string, slots [5]string) []byte {
	b := trbtest.New(binary.LittleEndian)
	s := b.Section("main")

	mi := s.Alloc(0xA0)
	s.PutFloats(mi, translation(5, 6, 7)...)
	for i, name := range slots {
		if name != "" {
			s.PtrString(mi+meshInstanceSlots[i], name)
		}
	}

	cell := s.Alloc(0xA0)
	if cellPath != "" {
		s.PtrString(cell+0x60, cellPath)
	}
	s.PtrString(cell+0x64, "A")
	s.PutU32(cell+0x78, 1)
	s.Ptr(cell+0x7C, s, mi)

	h := s.Alloc(0x74)
	s.PtrString(h+0x60, "Hill")
	s.Ptr(h+0x68, s, cell)
	s.PutU32(h+0x70, 1)
	b.Symbol("tdat", "Hill", s, h)
	return b.BuildV2()
}

func entitiesV2(meshRef string) []byte {
	b := trbtest.New(binary.LittleEndian)
	s := b.Section("main")

	prop := s.Alloc(0x0C)
	s.PtrString(prop, "Mesh")
	s.PutU32(prop+0x04, 3)
	s.PtrString(prop+0x08, meshRef)

	e := s.Alloc(0x28)
	s.PtrString(e, "Prop")
	s.PutU32(e+0x04, 1)
	s.Ptr(e+0x08, s, prop)
	s.Ptr(e+0x0C, s, s.Floats(translation(1, 2, 3)...))

	h := s.Alloc(8)
	s.Ptr(h, s, e)
	s.PutU32(h+0x04, 1)
	b.Symbol("", "EntitiesMain", s, h)
	return b.BuildV2()
}

func testConfig() config.SceneConfig {
	return config.SceneConfig{
		CommonPaths:  []string{"Data/Blob_FX"},
		CommonAssets: []string{"CommonAssets.trb", "LevelAssets.trb"},
	}
}

func newLoader(root string, cfg config.SceneConfig) *Loader {
	return NewLoader(pack.NewInstanceCache(vfs.NewDirectoryDriver(root)), cfg)
}

func bySource(s *Scene, src Source) []*Placement {
	var out []*Placement
	for _, p := range s.Placements {
		if p.Source == src {
			out = append(out, p)
		}
	}
	return out
}

func TestLoadLevel_MeshInstanceSingleSlot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Data/Blob_FX/CommonAssets.trb", modelsV2("Rock", "Tree"))
	writeFile(t, root, "Data/Levels/Hill/terrain.trb", terrainV2("", [5]string{"Boulder", "Rock"}))

	s, err := newLoader(root, testConfig()).LoadLevel("Data/Levels/Hill")
	if err != nil {
		t.Fatal(err)
	}

	placed := bySource(s, SourceMeshInstance)
	if len(placed) != 1 {
		t.Fatalf("mesh instance placements = %d", len(placed))
	}
	p := placed[0]
	if p.Name != "Rock.tcmd" || p.Archive != "Data/Blob_FX/CommonAssets.trb" {
		t.Errorf("placement = %+v", p)
	}
	if p.Transform.Col(3) != [4]float32{5, 6, 7, 1} {
		t.Errorf("transform = %v", p.Transform)
	}
	if len(s.Missing) != 1 || s.Missing[0] != "boulder" {
		t.Errorf("missing = %v", s.Missing)
	}
	if len(s.Archives) != 2 {
		t.Errorf("archives = %v", s.Archives)
	}
}

func TestLoadLevel_MeshSlots(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Data/Blob_FX/CommonAssets.trb", modelsV2("Rock", "Tree"))
	writeFile(t, root, "Data/Levels/Hill/terrain.trb", terrainV2("", [5]string{"", "Rock", "Tree"}))

	s, err := newLoader(root, testConfig()).LoadLevel("Data/Levels/Hill")
	if err != nil {
		t.Fatal(err)
	}
	if n := len(bySource(s, SourceMeshInstance)); n != 1 {
		t.Errorf("default slots placed %d", n)
	}

	cfg := testConfig()
	cfg.LoadAllMeshSlots = true
	s, err = newLoader(root, cfg).LoadLevel("Data/Levels/Hill")
	if err != nil {
		t.Fatal(err)
	}
	if n := len(bySource(s, SourceMeshInstance)); n != 2 {
		t.Errorf("all slots placed %d", n)
	}
}

func TestLoadLevel_CellArchiveFirst(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Data/Blob_FX/CommonAssets.trb", modelsV2("Rock"))
	writeFile(t, root, "Data/Cells/Hill_A.trb", modelsV2("Rock"))
	writeFile(t, root, "Data/Levels/Hill/terrain.trb", terrainV2(`Data\Cells\Hill_A.trb`, [5]string{"Rock"}))

	s, err := newLoader(root, testConfig()).LoadLevel("Data/Levels/Hill")
	if err != nil {
		t.Fatal(err)
	}
	placed := bySource(s, SourceMeshInstance)
	if len(placed) != 1 || placed[0].Archive != `Data\Cells\Hill_A.trb` {
		t.Fatalf("placements = %+v", placed)
	}
}

func TestLoadLevel_LevelAssetsOverride(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Data/Blob_FX/CommonAssets.trb", modelsV2("Rock"))
	writeFile(t, root, "Data/Levels/Hill/CommonAssets.trb", modelsV2("Rock"))
	writeFile(t, root, "Data/Levels/Hill/terrain.trb", terrainV2("", [5]string{"Rock"}))

	s, err := newLoader(root, testConfig()).LoadLevel("Data/Levels/Hill")
	if err != nil {
		t.Fatal(err)
	}
	placed := bySource(s, SourceMeshInstance)
	if len(placed) != 1 || placed[0].Archive != "Data/Levels/Hill/CommonAssets.trb" {
		t.Fatalf("placements = %+v", placed)
	}
}

func TestLoadLevel_Entities(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Data/Blob_FX/CommonAssets.trb", modelsV2("Tree"))
	writeFile(t, root, "Data/Levels/Hill/entities.trb", entitiesV2(`Data\Props\Tree.tcmd`))

	s, err := newLoader(root, testConfig()).LoadLevel("Data/Levels/Hill")
	if err != nil {
		t.Fatal(err)
	}
	placed := bySource(s, SourceEntity)
	if len(placed) != 1 || placed[0].Transform.Col(3) != [4]float32{1, 2, 3, 1} {
		t.Fatalf("placements = %+v", placed)
	}
	if len(bySource(s, SourceMeshInstance)) != 0 {
		t.Error("unexpected terrain placements")
	}
}

func terrainV1(positions bool) []byte {
	b := trbtest.New(binary.BigEndian)
	s := b.Section("main")

	inst := s.Alloc(0x40)
	s.Ptr(inst, s, s.Floats(translation(1, 1, 1)...))
	s.PtrString(inst+0x08, "bench")
	if positions {
		posPtr := s.Alloc(4)
		s.Ptr(posPtr, s, s.Floats(8, 8, 8))
		s.Ptr(inst+0x10, s, posPtr)
	}

	cell := s.Alloc(0x3C)
	s.PtrString(cell, "Cell1x1")
	s.Ptr(cell+0x1C, s, s.Floats(translation(2, 2, 2)...))
	s.PutU32(cell+0x24, 1)
	s.Ptr(cell+0x28, s, inst)

	info := s.Alloc(0x4C)
	s.Ptr(info, s, cell)
	s.PutU32(info+0x08, 1)

	h := s.Alloc(8)
	s.Ptr(h, s, info)
	s.PutU32(h+0x04, 1)
	b.Symbol("", "Terrain_Main", s, h)
	return b.BuildV1()
}

func TestLoadLevel_V1(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Data/Blob_FX/CommonAssets.trb", modelsV1("Cell1x1", "Bench"))
	writeFile(t, root, "Data/Levels/Park/terrain.trb", terrainV1(true))

	s, err := newLoader(root, testConfig()).LoadLevel(`Data\Levels\Park`)
	if err != nil {
		t.Fatal(err)
	}
	if s.Path != "Data/Levels/Park" {
		t.Errorf("path = %q", s.Path)
	}
	cells := bySource(s, SourceCell)
	instances := bySource(s, SourceInstance)
	if len(cells) != 1 || len(instances) != 1 {
		t.Fatalf("cells %d instances %d", len(cells), len(instances))
	}
	if cells[0].Transform.Col(3) != [4]float32{2, 2, 2, 1} {
		t.Errorf("cell transform = %v", cells[0].Transform)
	}
	// positions are ignored unless enabled
	if instances[0].Transform.Col(3) != [4]float32{1, 1, 1, 1} {
		t.Errorf("instance transform = %v", instances[0].Transform)
	}

	cfg := testConfig()
	cfg.ApplyV1Positions = true
	s, err = newLoader(root, cfg).LoadLevel("Data/Levels/Park")
	if err != nil {
		t.Fatal(err)
	}
	instances = bySource(s, SourceInstance)
	if len(instances) != 1 || instances[0].Transform.Col(3) != [4]float32{8, 8, 8, 1} {
		t.Errorf("instances = %+v", instances)
	}
}

func TestLoadLevel_MissingDirectory(t *testing.T) {
	if _, err := newLoader(t.TempDir(), testConfig()).LoadLevel("Data/Levels/Nowhere"); err == nil {
		t.Fatal("expected error")
	}
}

func TestExportGLTF(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Data/Blob_FX/CommonAssets.trb", modelsV2("Rock"))
	writeFile(t, root, "Data/Levels/Hill/terrain.trb", terrainV2("", [5]string{"Rock", "Rock"}))

	s, err := newLoader(root, testConfig()).LoadLevel("Data/Levels/Hill")
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Placements) != 2 {
		t.Fatalf("placements = %d", len(s.Placements))
	}

	doc, err := s.ExportGLTF()
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Scenes[0].Nodes) != 1 || len(doc.Nodes) != 3 {
		t.Fatalf("scene roots %d nodes %d", len(doc.Scenes[0].Nodes), len(doc.Nodes))
	}
	if doc.Nodes[1].Matrix[12] != 5 || len(doc.Nodes[0].Children) != 2 {
		t.Errorf("nodes = %+v", doc.Nodes)
	}
}
