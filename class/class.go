package class

import (
	"strings"

	"github.com/wippyai/objectcore"
	"github.com/wippyai/objectcore/name"
)

// Flags describe a class as a whole.
type Flags uint32

const (
	Abstract   Flags = 1 << iota // cannot be instantiated
	Native                       // backed by a native constructor
	Deprecated                   // kept for loading old data
	Intrinsic                    // registered during bootstrap
)

func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	for _, fl := range []struct {
		bit  Flags
		text string
	}{{Abstract, "abstract"}, {Native, "native"}, {Deprecated, "deprecated"}, {Intrinsic, "intrinsic"}} {
		if f&fl.bit != 0 {
			parts = append(parts, fl.text)
		}
	}
	return strings.Join(parts, "|")
}

// CastFlags advertise cheap is-a checks for well-known base classes. Bits
// from CastUser up are free for embedders.
type CastFlags uint64

const (
	CastObject CastFlags = 1 << iota
	CastPackage
	CastField
	CastUser CastFlags = 1 << 16
)

// Initializer is handed to a native constructor for a freshly allocated,
// zeroed instance.
type Initializer interface {
	Class() *Class
	Handle() int32
	Memory() objectcore.Memory
	Addr() uint32
}

// Constructor initializes an instance in place. The returned payload, if
// non-nil, is attached to the object and may implement lifecycle hooks.
type Constructor func(init Initializer) (any, error)

// Definition is the registration record of one class.
type Definition struct {
	Name        string
	Super       *Class
	Within      *Class
	Flags       Flags
	CastFlags   CastFlags
	Size        uint32 // 0 uses the computed layout size
	Align       uint32 // 0 uses the computed alignment
	Constructor Constructor
	Properties  []PropertySpec

	// Bind declares references not described by Properties. It runs once,
	// after property tokens have been emitted.
	Bind func(e *Emitter)
}

// Class is reflected metadata for one registered type.
type Class struct {
	table     *Table
	index     int
	name      name.Name
	display   string
	super     *Class
	within    *Class
	flags     Flags
	castFlags CastFlags
	size      uint32
	align     uint32
	ctor      Constructor
	props     []*Property
	bindFn    func(e *Emitter)

	bound     bool
	own       Stream
	assembled bool
	tokens    Stream
}

// Name returns the display name the class was registered with.
func (c *Class) Name() string { return c.display }

// FName returns the interned class name.
func (c *Class) FName() name.Name { return c.name }

func (c *Class) Super() *Class { return c.super }

// Within returns the class every outer of an instance must derive from, or nil.
func (c *Class) Within() *Class { return c.within }

func (c *Class) Flags() Flags { return c.flags }

func (c *Class) CastFlags() CastFlags { return c.castFlags }

// Size is the instance block size in bytes.
func (c *Class) Size() uint32 { return c.size }

func (c *Class) Align() uint32 { return c.align }

// Index is the registration order position.
func (c *Class) Index() int { return c.index }

// Constructor returns the nearest native constructor in the super chain.
func (c *Class) Constructor() Constructor {
	for k := c; k != nil; k = k.super {
		if k.ctor != nil {
			return k.ctor
		}
	}
	return nil
}

// HasAnyFlags reports whether any of flags is set.
func (c *Class) HasAnyFlags(flags Flags) bool {
	return c.flags&flags != 0
}

// HasAnyCastFlags reports whether any of flags is set.
func (c *Class) HasAnyCastFlags(flags CastFlags) bool {
	return c.castFlags&flags != 0
}

// IsChildOf reports whether c is other or derives from it.
func (c *Class) IsChildOf(other *Class) bool {
	if other == nil {
		return false
	}
	for k := c; k != nil; k = k.super {
		if k == other {
			return true
		}
	}
	return false
}

// Depth returns the number of ancestors.
func (c *Class) Depth() int {
	n := 0
	for k := c.super; k != nil; k = k.super {
		n++
	}
	return n
}

// Properties returns the class's own properties.
func (c *Class) Properties() []*Property { return c.props }

// AllProperties returns inherited properties followed by the class's own,
// root-most ancestor first.
func (c *Class) AllProperties() []*Property {
	var chain []*Class
	for k := c; k != nil; k = k.super {
		chain = append(chain, k)
	}
	var out []*Property
	for i := len(chain) - 1; i >= 0; i-- {
		out = append(out, chain[i].props...)
	}
	return out
}

// Property finds a property by name on c or its ancestors.
func (c *Class) Property(name string) *Property {
	for k := c; k != nil; k = k.super {
		for _, p := range k.props {
			if p.Name == name {
				return p
			}
		}
	}
	return nil
}

// OwnTokens returns the tokens this class contributes, without its parent's.
// Empty until the class is bound.
func (c *Class) OwnTokens() Stream { return c.own }

// ReferenceTokens returns the assembled token stream. Empty until assembled.
func (c *Class) ReferenceTokens() Stream { return c.tokens }

// IsAssembled reports whether ReferenceTokens is final.
func (c *Class) IsAssembled() bool { return c.assembled }

// HasReferences reports whether the assembled stream describes any reference.
func (c *Class) HasReferences() bool { return c.tokens.Len() > 1 }

func (c *Class) String() string { return c.display }
