package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"github.com/wippyai/objectcore/config"
	"github.com/wippyai/objectcore/object"
	"github.com/wippyai/objectcore/runtime"
)

type options struct {
	objects int
	fanout  int
	roots   int
	seed    uint64
}

func main() {
	var (
		configPath  = flag.String("config", "", "Path to a TOML config file")
		objects     = flag.Int("objects", 1000, "Objects to create per batch")
		fanout      = flag.Int("fanout", 3, "Maximum references per object")
		roots       = flag.Int("roots", 10, "Objects of each batch added to the root set")
		budget      = flag.Duration("budget", 0, "Incremental purge budget, overrides gc.purge_time_limit")
		seed        = flag.Uint64("seed", 1, "Random seed")
		printConfig = flag.Bool("print-config", false, "Print the effective config and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath, *budget)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *printConfig {
		if err := cfg.Encode(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	opts := options{objects: *objects, fanout: *fanout, roots: *roots, seed: *seed}
	if opts.objects < 0 || opts.fanout < 0 || opts.roots < 0 {
		fmt.Fprintln(os.Stderr, "Usage: objcore [-objects n] [-fanout n] [-roots n] [-budget d] [-config file] [-i]")
		os.Exit(1)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(cfg, opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(os.Stdout, cfg, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string, budget time.Duration) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if budget > 0 {
		cfg.GC.PurgeTimeLimit = config.Duration(budget)
	}
	return cfg, nil
}

func run(out io.Writer, cfg *config.Config, opts options) error {
	ctx := context.Background()
	rt, err := runtime.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	w, err := newWorld(rt, opts.seed)
	if err != nil {
		return err
	}
	if _, err := w.populate(opts.objects, opts.fanout, opts.roots); err != nil {
		return err
	}
	before := rt.Stats()

	if err := rt.CollectGarbage(object.NoFlags, false); err != nil {
		return err
	}
	steps := 0
	for rt.Collector().IsIncrementalPurgePending() {
		steps++
		if _, err := rt.IncrementalPurge(); err != nil {
			return err
		}
	}
	after := rt.Stats()

	fmt.Fprintf(out, "Backend:       %s (%s)\n", cfg.Memory.Backend, humanize.IBytes(uint64(after.MemoryBytes)))
	fmt.Fprintf(out, "Classes:       %d\n", after.Classes)
	fmt.Fprintf(out, "Objects:       %s -> %s\n", humanize.Comma(int64(before.Objects)), humanize.Comma(int64(after.Objects)))
	fmt.Fprintf(out, "Instance data: %s -> %s\n", humanize.IBytes(before.Alloc.LiveBytes), humanize.IBytes(after.Alloc.LiveBytes))
	fmt.Fprintf(out, "Reachable:     %s\n", humanize.Comma(int64(after.GC.Reachable)))
	fmt.Fprintf(out, "Destroyed:     %s\n", humanize.Comma(int64(after.GC.FinishDestroyed)))
	fmt.Fprintf(out, "Mark:          %s\n", after.GC.MarkDuration)
	fmt.Fprintf(out, "Purge:         %s in %d steps of %s\n", after.GC.PurgeDuration, steps, cfg.GC.PurgeTimeLimit.Std())
	return nil
}
