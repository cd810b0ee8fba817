package object

import (
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/objectcore"
	"github.com/wippyai/objectcore/class"
	"github.com/wippyai/objectcore/errors"
	"github.com/wippyai/objectcore/name"
)

// Registry maps stable handles to tracked objects and indexes them by name.
//
// A Registry is single-threaded: allocation, hashing, lookup and collection
// must all happen on the owning goroutine.
type Registry struct {
	names *name.Table
	mem   objectcore.Memory
	alloc objectcore.Allocator

	slots   []*Object
	serials []uint32
	free    []Handle

	firstGCIndex int
	gcClosed     bool
	maxObjects   int
	live         int

	byName  map[uint64][]Handle
	byOuter map[outerKey][]Handle
	unique  map[*class.Class]int

	observers []Observer
}

type outerKey struct {
	hash  uint64
	outer Handle
}

// Option configures a Registry.
type Option func(*Registry)

// WithCapacity preallocates room for n slots.
func WithCapacity(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.slots = make([]*Object, 0, n)
			r.serials = make([]uint32, 0, n)
		}
	}
}

// WithMaxObjects caps the number of slots. 0 means no limit.
func WithMaxObjects(n int) Option {
	return func(r *Registry) {
		r.maxObjects = n
	}
}

// NewRegistry creates a registry whose instances live in mem and are carved
// out by alloc. Names are interned into names.
func NewRegistry(names *name.Table, mem objectcore.Memory, alloc objectcore.Allocator, opts ...Option) *Registry {
	r := &Registry{
		names:   names,
		mem:     mem,
		alloc:   alloc,
		byName:  make(map[uint64][]Handle),
		byOuter: make(map[outerKey][]Handle),
		unique:  make(map[*class.Class]int),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Names returns the name table object names are interned in.
func (r *Registry) Names() *name.Table { return r.names }

// Memory returns the memory instance blocks live in.
func (r *Registry) Memory() objectcore.Memory { return r.mem }

// Subscribe adds an observer for lifecycle events.
func (r *Registry) Subscribe(o Observer) {
	r.observers = append(r.observers, o)
}

func (r *Registry) notify(ev Event) {
	for _, o := range r.observers {
		o.OnObjectEvent(ev)
	}
}

// IsValid reports whether h indexes an occupied slot.
func (r *Registry) IsValid(h Handle) bool {
	return h >= 0 && int(h) < len(r.slots) && r.slots[h] != nil
}

// Get returns the object at h, or nil.
func (r *Registry) Get(h Handle) *Object {
	if !r.IsValid(h) {
		return nil
	}
	return r.slots[h]
}

func (r *Registry) mustGet(h Handle, phase errors.Phase) *Object {
	o := r.Get(h)
	errors.Assert(o != nil, func() *errors.Error {
		return errors.New(phase, errors.KindNotFound).
			Value(h).
			Detail("invalid object handle %d", h).
			Build()
	})
	return o
}

// Len returns the number of live objects.
func (r *Registry) Len() int { return r.live }

// Capacity returns the number of slots, occupied or free.
func (r *Registry) Capacity() int { return len(r.slots) }

// ForEach calls fn for every live object in handle order until fn returns false.
func (r *Registry) ForEach(fn func(*Object) bool) {
	for _, o := range r.slots {
		if o != nil && !fn(o) {
			return
		}
	}
}

// CloseDisregardForGC makes every slot allocated so far permanently exempt
// from collection. Objects created afterwards are collectable.
func (r *Registry) CloseDisregardForGC() {
	if r.gcClosed {
		Logger().Warn("disregard set already closed", zap.Int("first_gc_index", r.firstGCIndex))
		return
	}
	r.firstGCIndex = len(r.slots)
	r.gcClosed = true
	Logger().Debug("disregard set closed", zap.Int("first_gc_index", r.firstGCIndex))
}

// FirstGCIndex returns the first collectable slot index.
func (r *Registry) FirstGCIndex() int { return r.firstGCIndex }

// IsDisregarded reports whether h is below the collection watermark.
func (r *Registry) IsDisregarded(h Handle) bool {
	return h >= 0 && int(h) < r.firstGCIndex
}

// Allocate reserves a slot and a zeroed instance block for a new object of
// cls owned by outer. A None name is replaced by a unique Class_N name.
// Names may not contain the path delimiters '.' and ':'.
// The object is neither constructed nor hashed.
func (r *Registry) Allocate(cls *class.Class, outer Handle, n name.Name, flags Flags) (Handle, error) {
	if cls == nil {
		return NoHandle, errors.InvalidInput(errors.PhaseRegister, "class is nil")
	}
	if text := r.names.Plain(n); strings.ContainsAny(text, ".:") {
		return NoHandle, errors.New(errors.PhaseRegister, errors.KindInvalidInput).
			Class(cls.Name()).
			Detail("object name %q contains a path delimiter", text).
			Build()
	}
	if cls.HasAnyFlags(class.Abstract) {
		return NoHandle, errors.Abstract(cls.Name())
	}
	if outer != NoHandle && !r.IsValid(outer) {
		return NoHandle, errors.New(errors.PhaseRegister, errors.KindNotFound).
			Class(cls.Name()).
			Value(outer).
			Detail("outer handle %d is not valid", outer).
			Build()
	}
	if within := cls.Within(); within != nil {
		if outer == NoHandle || !r.slots[outer].class.IsChildOf(within) {
			return NoHandle, errors.Within(cls.Name(), within.Name(), r.PathName(outer))
		}
	}
	if len(r.free) == 0 && r.maxObjects > 0 && len(r.slots) >= r.maxObjects {
		return NoHandle, errors.New(errors.PhaseRegister, errors.KindAllocation).
			Class(cls.Name()).
			Detail("object limit of %d reached", r.maxObjects).
			Build()
	}

	addr, err := r.alloc.Alloc(cls.Size(), cls.Align())
	if err != nil {
		return NoHandle, errors.New(errors.PhaseRegister, errors.KindAllocation).
			Class(cls.Name()).
			Detail("allocate %d byte instance", cls.Size()).
			Cause(err).
			Build()
	}

	if n.IsNone() {
		n = r.uniqueName(cls, outer)
	}

	var h Handle
	if len(r.free) > 0 {
		h = r.free[len(r.free)-1]
		r.free = r.free[:len(r.free)-1]
	} else {
		h = Handle(len(r.slots))
		r.slots = append(r.slots, nil)
		r.serials = append(r.serials, 1)
	}

	o := &Object{
		handle: h,
		name:   n,
		outer:  outer,
		class:  cls,
		flags:  flags,
		state:  Alive,
		addr:   addr,
	}
	r.slots[h] = o
	r.live++

	if ce := Logger().Check(zap.DebugLevel, "object allocated"); ce != nil {
		ce.Write(
			zap.Int32("handle", int32(h)),
			zap.String("class", cls.Name()),
			zap.String("name", r.names.Resolve(n)),
			zap.Uint32("addr", addr),
		)
	}
	r.notify(Event{Type: EventAllocated, Handle: h, Object: o})
	return h, nil
}

// uniqueName returns ClassName_N for the lowest unused N under outer.
func (r *Registry) uniqueName(cls *class.Class, outer Handle) name.Name {
	base := cls.FName().Base()
	for {
		n := base.WithNumber(r.unique[cls])
		r.unique[cls]++
		if r.findExact(n, outer) == NoHandle {
			return n
		}
	}
}

func (r *Registry) findExact(n name.Name, outer Handle) Handle {
	for _, h := range r.byOuter[outerKey{hash: r.names.Hash(n), outer: outer}] {
		if o := r.slots[h]; o.name == n && o.outer == outer {
			return h
		}
	}
	return NoHandle
}

// Construct runs the nearest native constructor of the object's class and
// attaches the payload it returns.
func (r *Registry) Construct(h Handle) error {
	o := r.Get(h)
	if o == nil {
		return errors.New(errors.PhaseRegister, errors.KindNotFound).
			Value(h).
			Detail("construct invalid handle %d", h).
			Build()
	}
	ctor := o.class.Constructor()
	if ctor == nil {
		return nil
	}
	payload, err := ctor(&Initializer{obj: o, mem: r.mem})
	if err != nil {
		return errors.New(errors.PhaseRegister, errors.KindInvalidData).
			Class(o.class.Name()).
			Object(r.PathName(h)).
			Detail("constructor failed").
			Cause(err).
			Build()
	}
	o.payload = payload
	return nil
}

// NewObject allocates, constructs and hashes an object. An empty name yields
// a unique Class_N name.
func (r *Registry) NewObject(cls *class.Class, outer Handle, text string, flags Flags) (Handle, error) {
	n := r.names.Intern(text)
	h, err := r.Allocate(cls, outer, n, flags)
	if err != nil {
		return NoHandle, err
	}
	if err := r.Construct(h); err != nil {
		r.Release(h)
		return NoHandle, err
	}
	r.HashObject(h)
	return h, nil
}

// AddToRoot keeps h alive across collections until RemoveFromRoot.
func (r *Registry) AddToRoot(h Handle) {
	if o := r.mustGet(h, errors.PhaseRegister); o != nil {
		o.flags |= RootSet
	}
}

// RemoveFromRoot clears the root flag.
func (r *Registry) RemoveFromRoot(h Handle) {
	if o := r.mustGet(h, errors.PhaseRegister); o != nil {
		o.flags &^= RootSet
	}
}

// SetFlags sets flags on h.
func (r *Registry) SetFlags(h Handle, flags Flags) {
	if o := r.mustGet(h, errors.PhaseRegister); o != nil {
		o.flags |= flags
	}
}

// ClearFlags clears flags on h.
func (r *Registry) ClearFlags(h Handle, flags Flags) {
	if o := r.mustGet(h, errors.PhaseRegister); o != nil {
		o.flags &^= flags
	}
}

// MarkPendingKill marks h as logically destroyed. The next collection will
// neither seed it as a root nor follow references to it.
func (r *Registry) MarkPendingKill(h Handle) {
	o := r.mustGet(h, errors.PhaseRegister)
	if o != nil && o.state == Alive {
		o.state = PendingKill
	}
}

// SetState advances the lifecycle of h. States never move backward.
func (r *Registry) SetState(h Handle, s State) {
	o := r.mustGet(h, errors.PhasePurge)
	if o == nil {
		return
	}
	errors.Assert(s > o.state, func() *errors.Error {
		return errors.New(errors.PhasePurge, errors.KindInvariant).
			Object(r.PathName(h)).
			Detail("lifecycle cannot move from %s to %s", o.state, s).
			Build()
	})
	if s > o.state {
		o.state = s
	}
}

// Weak returns a weak handle for h, or the zero WeakObjectHandle if h is
// not valid.
func (r *Registry) Weak(h Handle) WeakObjectHandle {
	if !r.IsValid(h) {
		return WeakObjectHandle{}
	}
	return WeakObjectHandle{Index: h, Serial: r.serials[h]}
}

// Resolve returns the handle w was taken from if that object is still
// registered and not pending kill, otherwise NoHandle.
func (r *Registry) Resolve(w WeakObjectHandle) Handle {
	if !r.IsValid(w.Index) || r.serials[w.Index] != w.Serial {
		return NoHandle
	}
	if r.slots[w.Index].IsPendingKill() {
		return NoHandle
	}
	return w.Index
}

// Release frees the object's dynamic arrays and instance block, clears its
// slot and returns the slot to the reuse list. The object must not be hashed.
func (r *Registry) Release(h Handle) {
	o := r.mustGet(h, errors.PhasePurge)
	if o == nil {
		return
	}
	errors.Assert(!o.hashed, func() *errors.Error {
		return errors.Invariant(errors.PhasePurge, "release of hashed object %s", r.PathName(h))
	})
	if o.hashed {
		r.UnhashObject(h)
	}

	r.freeArrays(o.class.AllProperties(), o.addr)
	r.alloc.Free(o.addr, o.class.Size(), o.class.Align())

	r.slots[h] = nil
	r.serials[h]++
	r.free = append(r.free, h)
	r.live--

	Logger().Debug("object released", zap.Int32("handle", int32(h)), zap.String("class", o.class.Name()))
	r.notify(Event{Type: EventReleased, Handle: h, Object: o})
	o.payload = nil
}

// freeArrays releases the element storage of every dynamic array reachable
// inline from base.
func (r *Registry) freeArrays(props []*class.Property, base uint32) {
	for _, p := range props {
		for i := uint32(0); i < p.ArrayDim; i++ {
			at := base + p.Offset + i*p.ElemSize
			switch p.Kind {
			case class.KindStruct:
				r.freeArrays(p.Struct.Properties(), at)
			case class.KindArray:
				r.freeArray(p, at)
			}
		}
	}
}

func (r *Registry) freeArray(p *class.Property, header uint32) {
	ptr, n := r.readHeader(header)
	if ptr == 0 {
		return
	}
	size, align := p.ElemLayout()
	if p.Elem == class.KindStruct {
		for j := uint32(0); j < n; j++ {
			r.freeArrays(p.Struct.Properties(), ptr+j*size)
		}
	}
	r.alloc.Free(ptr, size*n, align)
	r.writeHeader(header, 0, 0)
}
