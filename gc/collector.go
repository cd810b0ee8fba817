package gc

import (
	"time"

	"go.uber.org/zap"

	objectcore "github.com/wippyai/objectcore"
	"github.com/wippyai/objectcore/errors"
	"github.com/wippyai/objectcore/object"
)

// State is the collector's current phase.
type State uint8

const (
	Idle State = iota
	MarkingUnreachable
	TraversingReferences
	RoutingBeginDestroy
	IncrementalPurging
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case MarkingUnreachable:
		return "marking_unreachable"
	case TraversingReferences:
		return "traversing_references"
	case RoutingBeginDestroy:
		return "routing_begin_destroy"
	case IncrementalPurging:
		return "incremental_purging"
	}
	return "unknown"
}

// Stats describes the most recent collection and the purge work done for it.
type Stats struct {
	Marked          int // objects flagged unreachable at the start of the pass
	Reachable       int // objects visited during traversal
	BeginDestroyed  int
	FinishDestroyed int
	PurgeCalls      int
	MarkDuration    time.Duration // mark, traverse and route
	PurgeDuration   time.Duration
}

// DefaultObjectsPerClockCheck is how many objects the purge destroys between
// clock reads.
const DefaultObjectsPerClockCheck = 100

// Option configures a Collector.
type Option func(*Collector)

// WithClock sets the clock the purge budget is measured against.
func WithClock(clock objectcore.Clock) Option {
	return func(c *Collector) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithObjectsPerClockCheck sets how many objects are purged between clock reads.
func WithObjectsPerClockCheck(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.perCheck = n
		}
	}
}

// WithPhaseObserver registers fn to be called on every phase change.
func WithPhaseObserver(fn func(State)) Option {
	return func(c *Collector) {
		c.onPhase = fn
	}
}

// Collector finds unreachable objects in a Registry and destroys them in two
// phases. It is not safe for concurrent use.
type Collector struct {
	reg      *object.Registry
	clock    objectcore.Clock
	perCheck int
	onPhase  func(State)

	state State
	busy  bool

	work  []object.Handle
	visit func(slot uint32)

	pending  []object.Handle
	cursor   int
	deferred []object.Handle

	stats Stats
	count uint64
}

// New creates a collector over reg.
func New(reg *object.Registry, opts ...Option) *Collector {
	c := &Collector{
		reg:      reg,
		clock:    objectcore.SystemClock{},
		perCheck: DefaultObjectsPerClockCheck,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.visit = c.visitSlot
	return c
}

// State returns the current phase.
func (c *Collector) State() State { return c.state }

// LastStats returns the statistics of the latest collection.
func (c *Collector) LastStats() Stats { return c.stats }

// CollectCount returns how many collections have run.
func (c *Collector) CollectCount() uint64 { return c.count }

// IsIncrementalPurgePending reports whether destroyed objects are still
// waiting to be released.
func (c *Collector) IsIncrementalPurgePending() bool {
	return c.state == IncrementalPurging
}

// PendingPurge returns the number of objects waiting to be released.
func (c *Collector) PendingPurge() int {
	return len(c.pending) - c.cursor + len(c.deferred)
}

func (c *Collector) setState(s State) {
	c.state = s
	if c.onPhase != nil {
		c.onPhase(s)
	}
}

func (c *Collector) enter(what string) error {
	if c.busy {
		err := errors.Reentrant(errors.PhaseCollect, what)
		errors.Fatal(err)
		return err
	}
	c.busy = true
	return nil
}

// CollectGarbage runs a full reachability pass. Objects that are not
// reachable from the root set, from objects carrying any of keepFlags, from
// Native objects or from disregarded objects begin destruction. A purge left
// over from an earlier pass is completed first. With fullPurge the new
// garbage is released before returning; otherwise it is left for
// IncrementalPurgeGarbage.
func (c *Collector) CollectGarbage(keepFlags object.Flags, fullPurge bool) error {
	if err := c.enter("garbage collection"); err != nil {
		return err
	}
	defer func() { c.busy = false }()

	if c.IsIncrementalPurgePending() {
		c.purge(false, 0)
	}

	c.count++
	c.stats = Stats{}
	start := c.clock.Now()

	c.mark(keepFlags | object.RootSet | object.Native)
	c.traverse()
	c.route()

	c.stats.MarkDuration = c.clock.Now().Sub(start)
	if c.PendingPurge() > 0 {
		c.setState(IncrementalPurging)
	} else {
		c.setState(Idle)
	}

	if ce := Logger().Check(zap.DebugLevel, "garbage collected"); ce != nil {
		ce.Write(
			zap.Uint64("pass", c.count),
			zap.Int("marked", c.stats.Marked),
			zap.Int("reachable", c.stats.Reachable),
			zap.Int("begin_destroyed", c.stats.BeginDestroyed),
			zap.Duration("duration", c.stats.MarkDuration),
		)
	}

	if fullPurge && c.IsIncrementalPurgePending() {
		c.purge(false, 0)
	}
	return nil
}

// IncrementalPurgeGarbage releases objects that finished begin-destroy. With
// useTimeLimit it yields once budget has elapsed; the clock is read every
// ObjectsPerClockCheck objects. It reports whether nothing is left to purge.
func (c *Collector) IncrementalPurgeGarbage(useTimeLimit bool, budget time.Duration) (bool, error) {
	if err := c.enter("incremental purge"); err != nil {
		return false, err
	}
	defer func() { c.busy = false }()

	if !c.IsIncrementalPurgePending() {
		return true, nil
	}
	return c.purge(useTimeLimit, budget), nil
}

func (c *Collector) mark(keep object.Flags) {
	c.setState(MarkingUnreachable)
	c.work = c.work[:0]
	c.reg.ForEach(func(o *object.Object) bool {
		switch {
		case c.reg.IsDisregarded(o.Handle()):
			c.work = append(c.work, o.Handle())
		case !o.IsPendingKill() && o.HasAnyFlags(keep):
			o.ClearUnreachable()
			c.work = append(c.work, o.Handle())
		default:
			o.MarkUnreachable()
			c.stats.Marked++
		}
		return true
	})
}

func (c *Collector) traverse() {
	c.setState(TraversingReferences)
	w := getWalker()
	defer w.release()
	mem := c.reg.Memory()

	for len(c.work) > 0 {
		h := c.work[len(c.work)-1]
		c.work = c.work[:len(c.work)-1]
		o := c.reg.Get(h)
		if o == nil {
			continue
		}
		c.stats.Reachable++

		cls := o.Class()
		errors.Assert(cls.IsAssembled(), func() *errors.Error {
			return errors.New(errors.PhaseCollect, errors.KindNotInitialized).
				Class(cls.Name()).
				Detail("reference token stream not assembled").
				Build()
		})
		if cls.IsAssembled() && cls.HasReferences() {
			w.walk(cls, o.Addr(), mem, c.visit)
		}
		if adder, ok := o.Payload().(object.ReferenceAdder); ok {
			adder.AddReferencedObjects(c.reach)
		}
		c.reachOuter(o.Outer())
	}
}

// reachOuter keeps the outer of a reachable object alive. Unlike a stored
// reference it cannot be cleared, so a pending-kill outer survives too.
func (c *Collector) reachOuter(h object.Handle) {
	if h == object.NoHandle {
		return
	}
	o := c.reg.Get(h)
	errors.Assert(o != nil, func() *errors.Error {
		return errors.New(errors.PhaseCollect, errors.KindInvariant).
			Value(h).
			Detail("outer %d already released", h).
			Build()
	})
	if o != nil && o.ClearUnreachable() {
		c.work = append(c.work, h)
	}
}

// visitSlot handles one stored reference. References to pending-kill objects
// are cleared.
func (c *Collector) visitSlot(slot uint32) {
	h := c.reg.ReadRef(slot)
	if h == object.NoHandle {
		return
	}
	if o := c.reg.Get(h); o != nil && o.IsPendingKill() {
		c.reg.WriteRef(slot, object.NoHandle)
		return
	}
	c.reach(h)
}

func (c *Collector) reach(h object.Handle) {
	if h == object.NoHandle {
		return
	}
	o := c.reg.Get(h)
	errors.Assert(o != nil, func() *errors.Error {
		return errors.New(errors.PhaseCollect, errors.KindInvariant).
			Value(h).
			Detail("reference to released object %d", h).
			Build()
	})
	if o == nil || o.IsPendingKill() {
		return
	}
	if o.ClearUnreachable() {
		c.work = append(c.work, h)
	}
}

func (c *Collector) route() {
	c.setState(RoutingBeginDestroy)
	c.reg.ForEach(func(o *object.Object) bool {
		h := o.Handle()
		if c.reg.IsDisregarded(h) || !o.IsUnreachable() || o.State() >= object.BeginDestroyed {
			return true
		}
		c.reg.SetState(h, object.BeginDestroyed)
		if d, ok := o.Payload().(object.BeginDestroyer); ok {
			d.BeginDestroy()
		}
		if o.IsHashed() {
			c.reg.UnhashObject(h)
		}
		c.pending = append(c.pending, h)
		c.stats.BeginDestroyed++
		return true
	})
}

// purge walks the pending list from the saved cursor. Objects whose gate is
// not ready are retried on the next sweep. Without a time limit sweeps repeat
// until everything is released or a sweep makes no progress.
func (c *Collector) purge(useTimeLimit bool, budget time.Duration) bool {
	start := c.clock.Now()
	c.stats.PurgeCalls++
	defer func() { c.stats.PurgeDuration += c.clock.Now().Sub(start) }()

	processed := 0
	for {
		released := 0
		for c.cursor < len(c.pending) {
			h := c.pending[c.cursor]
			c.cursor++
			if c.finish(h) {
				released++
			} else {
				c.deferred = append(c.deferred, h)
			}
			processed++
			if useTimeLimit && processed%c.perCheck == 0 && c.cursor < len(c.pending) &&
				c.clock.Now().Sub(start) >= budget {
				Logger().Debug("purge yielded",
					zap.Int("processed", processed),
					zap.Int("remaining", c.PendingPurge()))
				return false
			}
		}

		c.pending, c.deferred = c.deferred, c.pending[:0]
		c.cursor = 0
		if len(c.pending) == 0 {
			c.setState(Idle)
			Logger().Debug("purge complete",
				zap.Int("finish_destroyed", c.stats.FinishDestroyed),
				zap.Int("calls", c.stats.PurgeCalls))
			return true
		}
		if useTimeLimit || released == 0 {
			return false
		}
	}
}

// finish completes destruction of h unless its gate holds it back.
func (c *Collector) finish(h object.Handle) bool {
	o := c.reg.Get(h)
	errors.Assert(o != nil, func() *errors.Error {
		return errors.Invariant(errors.PhasePurge, "pending object %d already released", h)
	})
	if o == nil {
		return true
	}
	if g, ok := o.Payload().(object.FinishDestroyGate); ok && !g.IsReadyForFinishDestroy() {
		return false
	}
	if o.State() < object.FinishDestroyed {
		c.reg.SetState(h, object.FinishDestroyed)
		if d, ok := o.Payload().(object.FinishDestroyer); ok {
			d.FinishDestroy()
		}
	}
	c.reg.Release(h)
	c.stats.FinishDestroyed++
	return true
}
