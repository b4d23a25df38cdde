package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseFormatVersion(t *testing.T) {
	tests := []struct {
		in      string
		want    FormatVersion
		wantErr bool
	}{
		{"", FormatAuto, false},
		{"auto", FormatAuto, false},
		{"V1", FormatV1, false},
		{"2", FormatV2, false},
		{"v3", FormatAuto, true},
	}
	for _, tt := range tests {
		got, err := ParseFormatVersion(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormatVersion(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormatVersion(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	data := []byte("server:\n  addr: \":9000\"\nscene:\n  apply_v1_positions: true\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, path); err != nil {
		t.Fatalf("loadFromFile: %v", err)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	if !cfg.Scene.ApplyV1Positions {
		t.Error("ApplyV1Positions not read")
	}
	if len(cfg.Scene.CommonAssets) != 7 {
		t.Errorf("defaults lost: %d common assets", len(cfg.Scene.CommonAssets))
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "cfg.yaml")
	cfg := Default()
	cfg.Format.Version = "v2"
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("loadFromFile: %v", err)
	}
	if loaded.Format.Version != "v2" {
		t.Errorf("Version = %q", loaded.Format.Version)
	}
}

func TestApply(t *testing.T) {
	defer SetFormatVersion(FormatAuto)

	cfg := Default()
	cfg.Format.Version = "v1"
	cfg.Format.Encoding = "Windows 1252"
	if err := cfg.Apply(); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if GetFormatVersion() != FormatV1 {
		t.Errorf("format version = %v", GetFormatVersion())
	}

	cfg.Format.Encoding = "no such charmap"
	if err := cfg.Apply(); err == nil {
		t.Error("unknown encoding must fail")
	}
}
