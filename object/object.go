package object

import (
	"github.com/wippyai/objectcore"
	"github.com/wippyai/objectcore/class"
	"github.com/wippyai/objectcore/name"
)

// Object is the registry's record of one tracked instance. Its fields live in
// an allocator-owned block at Addr.
type Object struct {
	handle      Handle
	name        name.Name
	outer       Handle
	class       *class.Class
	flags       Flags
	state       State
	unreachable bool
	hashed      bool
	addr        uint32
	payload     any
}

func (o *Object) Handle() Handle { return o.handle }

func (o *Object) Name() name.Name { return o.name }

// Outer returns the owning object, or NoHandle for a top-level object.
func (o *Object) Outer() Handle { return o.outer }

func (o *Object) Class() *class.Class { return o.class }

func (o *Object) Flags() Flags { return o.flags }

// HasAnyFlags reports whether any of flags is set.
func (o *Object) HasAnyFlags(flags Flags) bool { return o.flags&flags != 0 }

func (o *Object) State() State { return o.state }

// IsPendingKill reports whether the object is logically destroyed or further
// along in teardown.
func (o *Object) IsPendingKill() bool { return o.state >= PendingKill }

// IsHashed reports whether the object can be found by Lookup.
func (o *Object) IsHashed() bool { return o.hashed }

// Addr is the address of the instance block.
func (o *Object) Addr() uint32 { return o.addr }

// Payload returns the value the class constructor attached, if any.
func (o *Object) Payload() any { return o.payload }

// IsUnreachable reports the collector's mark.
func (o *Object) IsUnreachable() bool { return o.unreachable }

// MarkUnreachable sets the collector's mark.
func (o *Object) MarkUnreachable() { o.unreachable = true }

// ClearUnreachable clears the mark and reports whether it was set, so the
// first caller to reach an object is the only one to see true.
func (o *Object) ClearUnreachable() bool {
	was := o.unreachable
	o.unreachable = false
	return was
}

// Initializer is passed to class constructors.
type Initializer struct {
	obj *Object
	mem objectcore.Memory
}

var _ class.Initializer = (*Initializer)(nil)

func (i *Initializer) Class() *class.Class { return i.obj.class }

func (i *Initializer) Handle() int32 { return int32(i.obj.handle) }

func (i *Initializer) Memory() objectcore.Memory { return i.mem }

func (i *Initializer) Addr() uint32 { return i.obj.addr }

// Name returns the name the object was allocated with.
func (i *Initializer) Name() name.Name { return i.obj.name }
