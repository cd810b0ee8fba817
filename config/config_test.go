package config

import (
	"bytes"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/objectcore/errors"
)

func TestDefault_Valid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestParse_OverridesKeepDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[gc]
purge_time_limit = "5ms"
full_purge = true

[memory]
backend = "wazero"
max_pages = 16

[log]
level = "debug"
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.GC.PurgeTimeLimit.Std() != 5*time.Millisecond || !cfg.GC.FullPurge {
		t.Fatalf("gc = %+v", cfg.GC)
	}
	if cfg.GC.ObjectsPerClockCheck != 100 || cfg.GC.AutoInterval.Std() != time.Minute {
		t.Fatalf("gc defaults lost: %+v", cfg.GC)
	}
	if cfg.Memory.Backend != BackendWazero || cfg.Memory.MaxPages != 16 || cfg.Memory.InitialPages != 1 {
		t.Fatalf("memory = %+v", cfg.Memory)
	}
	if cfg.Registry.InitialCapacity != 1024 {
		t.Fatalf("registry = %+v", cfg.Registry)
	}
	if cfg.LogLevel() != zapcore.DebugLevel {
		t.Fatalf("level = %v", cfg.LogLevel())
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		kind errors.Kind
		n    int
	}{
		{"syntax", "[gc\n", errors.KindInvalidData, 1},
		{"bad duration", "[gc]\npurge_time_limit = \"soon\"\n", errors.KindInvalidData, 1},
		{"unknown key", "[gc]\nturbo = true\n", errors.KindInvalidData, 1},
		{"unknown backend", "[memory]\nbackend = \"mmap\"\n", errors.KindInvalidInput, 1},
		{"several", "[gc]\nobjects_per_clock_check = 0\n[memory]\ninitial_pages = 8\nmax_pages = 4\n[log]\nlevel = \"loud\"\n", errors.KindInvalidInput, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if err == nil {
				t.Fatal("expected error")
			}
			errs := multierr.Errors(err)
			if len(errs) != tt.n {
				t.Fatalf("got %d errors, want %d: %v", len(errs), tt.n, err)
			}
			var e *errors.Error
			if !stderrors.As(errs[0], &e) || e.Phase != errors.PhaseConfig || e.Kind != tt.kind {
				t.Fatalf("err = %v", errs[0])
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "objcore.toml")
	if err := os.WriteFile(path, []byte("[registry]\nmax_objects = 500\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Registry.MaxObjects != 500 {
		t.Fatalf("max_objects = %d", cfg.Registry.MaxObjects)
	}

	if _, err := Load(filepath.Join(dir, "missing.toml")); err == nil {
		t.Fatal("missing file must fail")
	}
}

func TestEncode_ParsesBack(t *testing.T) {
	cfg := Default()
	cfg.GC.PurgeTimeLimit = Duration(750 * time.Microsecond)
	cfg.Memory.Backend = BackendWazero

	var buf bytes.Buffer
	if err := cfg.Encode(&buf); err != nil {
		t.Fatal(err)
	}
	got, err := Parse(buf.Bytes())
	if err != nil {
		t.Fatalf("parse encoded config: %v\n%s", err, buf.String())
	}
	if *got != *cfg {
		t.Fatalf("got %+v, want %+v", got, cfg)
	}
}
