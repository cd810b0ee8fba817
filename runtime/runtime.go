package runtime

import (
	"context"
	"io"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	objectcore "github.com/wippyai/objectcore"
	"github.com/wippyai/objectcore/archive"
	"github.com/wippyai/objectcore/class"
	"github.com/wippyai/objectcore/config"
	"github.com/wippyai/objectcore/errors"
	"github.com/wippyai/objectcore/gc"
	"github.com/wippyai/objectcore/memory"
	"github.com/wippyai/objectcore/name"
	"github.com/wippyai/objectcore/object"
)

// TransientPackageName names the bootstrap package for objects that have no
// other owner.
const TransientPackageName = "Transient"

// Runtime owns one object universe: names, classes, instance memory, the
// registry and the collector.
type Runtime struct {
	cfg   *config.Config
	log   *zap.Logger
	clock objectcore.Clock

	names   *name.Table
	classes *class.Table
	mem     memory.Backing
	wasm    *memory.WazeroMemory
	alloc   *memory.FreeListAllocator
	reg     *object.Registry
	gc      *gc.Collector

	objectClass  *class.Class
	packageClass *class.Class
	transient    object.Handle

	onPhase     func(gc.State)
	lastCollect time.Time
	ownsLogger  bool
	closed      bool

	objectLog *zap.Logger
	gcLog     *zap.Logger
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger uses l instead of building a logger from the configuration.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runtime) {
		r.log = l
	}
}

// WithClock sets the clock used for purge budgets and the auto interval.
func WithClock(c objectcore.Clock) Option {
	return func(r *Runtime) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithPhaseObserver is called on every collector phase change.
func WithPhaseObserver(fn func(gc.State)) Option {
	return func(r *Runtime) {
		r.onPhase = fn
	}
}

// New creates a runtime from cfg. A nil cfg uses config.Default.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Runtime{cfg: cfg, clock: objectcore.SystemClock{}}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		l, err := newLogger(cfg.Log)
		if err != nil {
			return nil, err
		}
		r.log = l
		r.ownsLogger = true
	}

	switch cfg.Memory.Backend {
	case config.BackendWazero:
		wm, err := memory.NewWazero(ctx, cfg.Memory.InitialPages, cfg.Memory.MaxPages)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseMemory, errors.KindAllocation, err, "create wazero memory")
		}
		r.wasm = wm
		r.mem = wm
	default:
		r.mem = memory.NewLinear(cfg.Memory.InitialPages, cfg.Memory.MaxPages)
	}

	r.names = name.NewTable()
	r.classes = class.NewTable(r.names)
	r.alloc = memory.NewFreeListAllocator(r.mem)
	r.reg = object.NewRegistry(r.names, r.mem, r.alloc,
		object.WithCapacity(cfg.Registry.InitialCapacity),
		object.WithMaxObjects(cfg.Registry.MaxObjects),
	)
	r.gc = gc.New(r.reg,
		gc.WithClock(r.clock),
		gc.WithObjectsPerClockCheck(cfg.GC.ObjectsPerClockCheck),
		gc.WithPhaseObserver(r.onPhase),
	)

	r.objectLog = r.log.Named("object")
	r.gcLog = r.log.Named("gc")
	object.SetLogger(r.objectLog)
	gc.SetLogger(r.gcLog)

	if err := r.bootstrap(); err != nil {
		return nil, multierr.Append(err, r.Close(ctx))
	}
	r.lastCollect = r.clock.Now()

	r.log.Info("runtime started",
		zap.String("backend", cfg.Memory.Backend),
		zap.Uint32("memory_bytes", r.mem.Size()),
		zap.Int("first_gc_index", r.reg.FirstGCIndex()),
	)
	return r, nil
}

func newLogger(cfg config.Log) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "log level")
	}
	zc.Level = level
	l, err := zc.Build()
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "build logger")
	}
	return l, nil
}

// bootstrap registers the intrinsic classes and creates the objects that
// are exempt from collection.
func (r *Runtime) bootstrap() error {
	var err error
	r.objectClass, err = r.classes.Register(class.Definition{
		Name:      "Object",
		Flags:     class.Intrinsic,
		CastFlags: class.CastObject,
	})
	if err != nil {
		return err
	}
	r.packageClass, err = r.classes.Register(class.Definition{
		Name:      "Package",
		Super:     r.objectClass,
		Flags:     class.Intrinsic,
		CastFlags: class.CastPackage,
	})
	if err != nil {
		return err
	}
	r.classes.AssembleAll()

	r.transient, err = r.reg.NewObject(r.packageClass, object.NoHandle, TransientPackageName, object.RootSet)
	if err != nil {
		return err
	}
	r.reg.CloseDisregardForGC()
	return nil
}

// Close completes any pending purge and releases instance memory. It is safe
// to call more than once.
func (r *Runtime) Close(ctx context.Context) error {
	if r.closed {
		return nil
	}
	r.closed = true

	var err error
	if r.gc != nil && r.gc.IsIncrementalPurgePending() {
		done, perr := r.gc.IncrementalPurgeGarbage(false, 0)
		err = multierr.Append(err, perr)
		if !done {
			r.log.Warn("objects still waiting for finish-destroy at close", zap.Int("pending", r.gc.PendingPurge()))
		}
	}
	if r.wasm != nil {
		err = multierr.Append(err, r.wasm.Close(ctx))
	}

	r.log.Debug("runtime closed")
	if object.Logger() == r.objectLog {
		object.SetLogger(nil)
	}
	if gc.Logger() == r.gcLog {
		gc.SetLogger(nil)
	}
	if r.ownsLogger {
		_ = r.log.Sync()
	}
	return err
}

// Config returns the configuration the runtime was created with.
func (r *Runtime) Config() *config.Config { return r.cfg }

// Logger returns the runtime logger.
func (r *Runtime) Logger() *zap.Logger { return r.log }

func (r *Runtime) Names() *name.Table { return r.names }

func (r *Runtime) Classes() *class.Table { return r.classes }

func (r *Runtime) Registry() *object.Registry { return r.reg }

func (r *Runtime) Collector() *gc.Collector { return r.gc }

func (r *Runtime) Memory() objectcore.Memory { return r.mem }

// ObjectClass returns the root of the class hierarchy.
func (r *Runtime) ObjectClass() *class.Class { return r.objectClass }

// PackageClass returns the class of outermost containers.
func (r *Runtime) PackageClass() *class.Class { return r.packageClass }

// TransientPackage returns the bootstrap package.
func (r *Runtime) TransientPackage() object.Handle { return r.transient }

// RegisterClass registers def and assembles its reference token stream. The
// super class must already be registered with this runtime.
func (r *Runtime) RegisterClass(def class.Definition) (*class.Class, error) {
	c, err := r.classes.Register(def)
	if err != nil {
		return nil, err
	}
	r.classes.AssembleReferenceTokenStream(c)
	r.log.Debug("class registered",
		zap.String("class", c.Name()),
		zap.Uint32("size", c.Size()),
		zap.Int("reference_tokens", c.ReferenceTokens().TokenCount()),
	)
	return c, nil
}

// NewObject creates, constructs and hashes an object.
func (r *Runtime) NewObject(cls *class.Class, outer object.Handle, text string, flags object.Flags) (object.Handle, error) {
	return r.reg.NewObject(cls, outer, text, flags)
}

// NewPackage creates a top-level package.
func (r *Runtime) NewPackage(text string) (object.Handle, error) {
	return r.reg.NewObject(r.packageClass, object.NoHandle, text, object.NoFlags)
}

// FindObject looks an object up by path, e.g. "Pkg.Obj:Sub".
func (r *Runtime) FindObject(path string) object.Handle {
	return r.reg.Lookup(object.Query{Name: path, Outer: object.NoHandle})
}

// CollectGarbage runs a collection. See gc.Collector.CollectGarbage.
func (r *Runtime) CollectGarbage(keepFlags object.Flags, fullPurge bool) error {
	err := r.gc.CollectGarbage(keepFlags, fullPurge)
	r.lastCollect = r.clock.Now()
	return err
}

// IncrementalPurge runs one purge step bounded by the configured time limit.
func (r *Runtime) IncrementalPurge() (bool, error) {
	return r.gc.IncrementalPurgeGarbage(true, r.cfg.GC.PurgeTimeLimit.Std())
}

// Tick is the per-frame entry point. It collects when the auto interval has
// elapsed and otherwise advances a pending purge.
func (r *Runtime) Tick() error {
	if iv := r.cfg.GC.AutoInterval.Std(); iv > 0 && r.clock.Now().Sub(r.lastCollect) >= iv {
		return r.CollectGarbage(object.NoFlags, r.cfg.GC.FullPurge)
	}
	if r.gc.IsIncrementalPurgePending() {
		_, err := r.IncrementalPurge()
		return err
	}
	return nil
}

// Save writes the serialized fields of h to w.
func (r *Runtime) Save(w io.Writer, h object.Handle) error {
	return r.reg.SerializeObject(archive.NewWriter(w, r.names), h)
}

// Load reads fields saved by Save into h. h must be of the same class.
func (r *Runtime) Load(rd io.Reader, h object.Handle) error {
	return r.reg.SerializeObject(archive.NewReader(rd, r.names), h)
}

// Stats is a snapshot of runtime occupancy.
type Stats struct {
	Objects     int
	Capacity    int
	Classes     int
	Names       int
	MemoryBytes uint32
	Alloc       memory.AllocatorStats
	GC          gc.Stats
	Collections uint64
}

// Stats returns current occupancy and the latest collection statistics.
func (r *Runtime) Stats() Stats {
	return Stats{
		Objects:     r.reg.Len(),
		Capacity:    r.reg.Capacity(),
		Classes:     r.classes.Len(),
		Names:       r.names.Len(),
		MemoryBytes: r.mem.Size(),
		Alloc:       r.alloc.Stats(),
		GC:          r.gc.LastStats(),
		Collections: r.gc.CollectCount(),
	}
}
