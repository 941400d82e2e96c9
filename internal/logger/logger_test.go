package logger

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNopBeforeInit(t *testing.T) {
	// Must not panic before Init.
	Debug("debug")
	Info("info", zap.Int("n", 1))
	Sync()
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFileLevels(t *testing.T) {
	tests := []struct {
		level string
		want  []string
	}{
		{"error", []string{"ERROR"}},
		{"warn", []string{"WARN", "ERROR"}},
		{"info", []string{"INFO", "WARN", "ERROR"}},
		{"debug", []string{"DEBUG", "INFO", "WARN", "ERROR"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.level+".log")
			cfg := FileConfig{Path: path, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1}

			l, err := New(tt.level, cfg, false)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			prev := Log
			Set(l)
			defer Set(prev)

			Debug("debug message")
			Info("info message")
			Warn("warn message")
			Error("error message", zap.Int("tile", 3))
			Sync()

			f, err := os.Open(path)
			if err != nil {
				t.Fatalf("open log: %v", err)
			}
			defer f.Close()

			var levels []string
			sc := bufio.NewScanner(f)
			for sc.Scan() {
				var entry map[string]any
				if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
					t.Fatalf("line is not JSON: %q", sc.Text())
				}
				levels = append(levels, entry["level"].(string))
			}

			if len(levels) != len(tt.want) {
				t.Fatalf("got levels %v, want %v", levels, tt.want)
			}
			for i := range levels {
				if levels[i] != tt.want[i] {
					t.Errorf("entry %d: got %s, want %s", i, levels[i], tt.want[i])
				}
			}
		})
	}
}

func TestNewWithoutOutputs(t *testing.T) {
	l, err := New("info", FileConfig{}, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if l.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("logger without outputs should be a no-op")
	}
}

func TestDefaultFileConfig(t *testing.T) {
	cfg := DefaultFileConfig("/tmp/shadows.log")
	if cfg.Path != "/tmp/shadows.log" {
		t.Errorf("expected path /tmp/shadows.log, got %s", cfg.Path)
	}
	if cfg.MaxSizeMB != 20 || cfg.MaxBackups != 3 || cfg.MaxAgeDays != 7 {
		t.Errorf("unexpected rotation defaults: %+v", cfg)
	}
	if !cfg.Compress {
		t.Error("expected Compress to be true")
	}
}
