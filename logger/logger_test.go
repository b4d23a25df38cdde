package logger

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"info", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInitWithFileConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trb.log")
	if err := InitWithFileConfig("debug", DefaultFileConfig(path), false); err != nil {
		t.Fatalf("InitWithFileConfig: %v", err)
	}
	defer InitWithFileConfig("info", FileConfig{}, false)

	if !Log.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug level must be enabled")
	}
	Named("test").Debug("hello")
	Sync()
}
