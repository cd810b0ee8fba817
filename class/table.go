package class

import (
	"github.com/wippyai/objectcore/errors"
	"github.com/wippyai/objectcore/memory"
	"github.com/wippyai/objectcore/name"
)

// Table owns every registered class. Supers must be registered before their
// subclasses, so registration order is a valid initialization order.
//
// A Table is not safe for concurrent use.
type Table struct {
	names   *name.Table
	classes []*Class
	byName  map[name.Name]*Class
}

// NewTable creates an empty class table interning class names into names.
func NewTable(names *name.Table) *Table {
	return &Table{
		names:  names,
		byName: make(map[name.Name]*Class),
	}
}

// Names returns the name table class names are interned in.
func (t *Table) Names() *name.Table {
	return t.names
}

// Register validates def, lays out its properties after the super's fields
// and adds the class.
func (t *Table) Register(def Definition) (*Class, error) {
	if def.Name == "" {
		return nil, errors.InvalidInput(errors.PhaseReflect, "class name is empty")
	}
	n := t.names.Intern(def.Name)
	if _, dup := t.byName[n]; dup {
		return nil, errors.Duplicate(errors.PhaseReflect, "class", def.Name)
	}
	if def.Super != nil && def.Super.table != t {
		return nil, errors.New(errors.PhaseReflect, errors.KindNotFound).
			Class(def.Name).
			Detail("super class %s is not registered in this table", def.Super.display).
			Build()
	}
	if def.Within != nil && def.Within.table != t {
		return nil, errors.New(errors.PhaseReflect, errors.KindNotFound).
			Class(def.Name).
			Detail("within class %s is not registered in this table", def.Within.display).
			Build()
	}

	lb := layoutBuilder{owner: def.Name, align: 1}
	if def.Super != nil {
		lb.offset = def.Super.size
		lb.align = def.Super.align
	}
	props, err := lb.place(def.Properties)
	if err != nil {
		return nil, err
	}
	for _, p := range props {
		if def.Super != nil && def.Super.Property(p.Name) != nil {
			return nil, errors.New(errors.PhaseReflect, errors.KindDuplicate).
				Class(def.Name).
				Path(p.Name).
				Detail("property shadows an inherited property").
				Build()
		}
	}

	align := lb.align
	if def.Align != 0 {
		if !memory.IsPowerOfTwo(def.Align) || def.Align < lb.align {
			return nil, errors.New(errors.PhaseReflect, errors.KindInvalidInput).
				Class(def.Name).
				Value(def.Align).
				Detail("alignment must be a power of two of at least %d", lb.align).
				Build()
		}
		align = def.Align
	}
	size := memory.AlignTo(lb.offset, align)
	if def.Size != 0 {
		if def.Size < size {
			return nil, errors.New(errors.PhaseReflect, errors.KindInvalidInput).
				Class(def.Name).
				Value(def.Size).
				Detail("size is smaller than the %d byte layout", size).
				Build()
		}
		size = memory.AlignTo(def.Size, align)
	}

	flags := def.Flags
	if def.Constructor != nil {
		flags |= Native
	}
	castFlags := def.CastFlags
	if def.Super != nil {
		castFlags |= def.Super.castFlags
	}

	c := &Class{
		table:     t,
		index:     len(t.classes),
		name:      n,
		display:   def.Name,
		super:     def.Super,
		within:    def.Within,
		flags:     flags,
		castFlags: castFlags,
		size:      size,
		align:     align,
		ctor:      def.Constructor,
		props:     props,
		bindFn:    def.Bind,
	}
	t.classes = append(t.classes, c)
	t.byName[n] = c
	return c, nil
}

// Find returns the class registered under text, matched case-insensitively,
// or nil.
func (t *Table) Find(text string) *Class {
	n := t.names.Find(text)
	if n.IsNone() {
		return nil
	}
	return t.byName[n]
}

// Lookup returns the class registered under n, or nil.
func (t *Table) Lookup(n name.Name) *Class {
	return t.byName[n]
}

// All returns classes in registration order. Callers must not modify the slice.
func (t *Table) All() []*Class {
	return t.classes
}

// Len returns the number of registered classes.
func (t *Table) Len() int {
	return len(t.classes)
}

// Bind emits c's own reference tokens. Only the first call has an effect.
func (t *Table) Bind(c *Class) {
	t.checkOwned(c)
	if c.bound {
		return
	}
	c.bound = true
	e := newEmitter(c.display)
	e.emitProperties(c.props, 0)
	if c.bindFn != nil {
		c.bindFn(e)
	}
	c.own = e.finish()
}

// AssembleReferenceTokenStream builds c's final stream: the parent's
// assembled tokens, then c's own, then EndOfStream. Calling it again is a
// no-op.
func (t *Table) AssembleReferenceTokenStream(c *Class) {
	t.checkOwned(c)
	if c.assembled {
		return
	}
	var parent []uint32
	if c.super != nil {
		t.AssembleReferenceTokenStream(c.super)
		parent = c.super.tokens.words
		parent = parent[:len(parent)-1]
	}
	t.Bind(c)

	words := make([]uint32, 0, len(parent)+len(c.own.words)+1)
	words = append(words, parent...)
	words = append(words, c.own.words...)
	words = append(words, uint32(MakeToken(TokenEndOfStream, 0, 0)))
	c.tokens = Stream{words: words}
	c.assembled = true
}

// AssembleAll assembles every class in registration order.
func (t *Table) AssembleAll() {
	for _, c := range t.classes {
		t.AssembleReferenceTokenStream(c)
	}
}

func (t *Table) checkOwned(c *Class) {
	errors.Assert(c != nil && c.table == t, func() *errors.Error {
		return errors.Invariant(errors.PhaseReflect, "class %v does not belong to this table", c)
	})
}
