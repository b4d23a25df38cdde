package vfs

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "Data", "Levels")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "terrain.trb"), []byte("TRB!"), 0644); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestSplitPath(t *testing.T) {
	got := SplitPath(`Data\Levels/./Abyss\\cell.trb`)
	want := []string{"Data", "Levels", "Abyss", "cell.trb"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("part %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestReadPath(t *testing.T) {
	root := NewDirectoryDriver(writeTree(t))

	for _, p := range []string{"Data/Levels/terrain.trb", `data\LEVELS\Terrain.TRB`} {
		data, err := ReadPath(root, p)
		if err != nil {
			t.Fatalf("ReadPath(%q): %v", p, err)
		}
		if string(data) != "TRB!" {
			t.Errorf("ReadPath(%q) = %q", p, data)
		}
	}

	if _, err := ReadPath(root, "Data/Levels"); err == nil {
		t.Error("reading a directory must fail")
	}
	if _, err := ReadPath(root, "Data/missing.trb"); err == nil {
		t.Error("missing file must fail")
	}
}

func TestOpenDirectory(t *testing.T) {
	root := NewDirectoryDriver(writeTree(t))

	d, err := OpenDirectory(root, "data/levels")
	if err != nil {
		t.Fatal(err)
	}
	names, err := d.List()
	if err != nil || len(names) != 1 || names[0] != "terrain.trb" {
		t.Errorf("List = %v, %v", names, err)
	}
	if _, err := OpenDirectory(root, "Data/Levels/terrain.trb"); err == nil {
		t.Error("file opened as directory")
	}
}

func TestOpenPath_StaysInside(t *testing.T) {
	base := writeTree(t)
	root := NewDirectoryDriver(filepath.Join(base, "Data"))

	if _, err := OpenPath(root, "../Data/Levels/terrain.trb"); err == nil {
		t.Error("parent reference escaped the root")
	}
	if _, err := root.GetElement("Levels/terrain.trb"); err == nil {
		t.Error("element name with a separator accepted")
	}
}
