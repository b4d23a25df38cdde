package utils

import "testing"

func TestResourceKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Crate.tmod", "crate"},
		{"CRATE", "crate"},
		{"lamp.post.tmod", "lamp"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ResourceKey(tt.in); got != tt.want {
			t.Errorf("ResourceKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAssetBaseName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`Data\Models\Tree01.trb`, "Tree01"},
		{"Data/Models/Tree01.trb", "Tree01"},
		{"Tree01", "Tree01"},
		{`a/b\c.d.e`, "c"},
	}
	for _, tt := range tests {
		if got := AssetBaseName(tt.in); got != tt.want {
			t.Errorf("AssetBaseName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBytesToString(t *testing.T) {
	if got := BytesToString([]byte("caf\xe9\x00junk")); got != "café" {
		t.Errorf("BytesToString = %q", got)
	}
	if got := BytesToString([]byte("plain")); got != "plain" {
		t.Errorf("BytesToString = %q", got)
	}
}

func TestDumpToOneLineString(t *testing.T) {
	if got := DumpToOneLineString([]byte("TSF\x4c\x00")); got != `TSFL\x00` {
		t.Errorf("DumpToOneLineString = %q", got)
	}
}
