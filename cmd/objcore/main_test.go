package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/wippyai/objectcore/config"
	"github.com/wippyai/objectcore/object"
	"github.com/wippyai/objectcore/runtime"
)

func TestRun_Report(t *testing.T) {
	for _, backend := range []string{config.BackendHeap, config.BackendWazero} {
		t.Run(backend, func(t *testing.T) {
			cfg := config.Default()
			cfg.Memory.Backend = backend
			cfg.Log.Level = "error"

			var out bytes.Buffer
			if err := run(&out, cfg, options{objects: 200, fanout: 3, roots: 5, seed: 3}); err != nil {
				t.Fatalf("run: %v", err)
			}
			for _, want := range []string{"Backend:       " + backend, "Objects:", "Reachable:", "Destroyed:"} {
				if !strings.Contains(out.String(), want) {
					t.Fatalf("report missing %q:\n%s", want, out.String())
				}
			}
		})
	}
}

func TestPopulate_RootsSurvive(t *testing.T) {
	rt, err := runtime.New(context.Background(), nil, runtime.WithLogger(zap.NewNop()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer rt.Close(context.Background())

	w, err := newWorld(rt, 9)
	if err != nil {
		t.Fatalf("newWorld: %v", err)
	}
	hs, err := w.populate(100, 4, 3)
	if err != nil {
		t.Fatalf("populate: %v", err)
	}
	if len(hs) != 100 {
		t.Fatalf("populate created %d objects, want 100", len(hs))
	}
	if err := rt.CollectGarbage(object.NoFlags, true); err != nil {
		t.Fatalf("CollectGarbage: %v", err)
	}
	for _, h := range hs[:3] {
		if !rt.Registry().IsValid(h) {
			t.Fatalf("root %d was collected", h)
		}
	}
	if rt.Collector().IsIncrementalPurgePending() {
		t.Fatal("full purge left work pending")
	}
}

func TestLoadConfig_BudgetOverride(t *testing.T) {
	cfg, err := loadConfig("", 5_000_000)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if got := cfg.GC.PurgeTimeLimit.Std().Milliseconds(); got != 5 {
		t.Fatalf("budget = %dms, want 5ms", got)
	}
}
