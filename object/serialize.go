package object

import (
	"math"

	"github.com/wippyai/objectcore/archive"
	"github.com/wippyai/objectcore/class"
	"github.com/wippyai/objectcore/errors"
	"github.com/wippyai/objectcore/name"
)

// SerializeObject saves or loads the non-transient properties of h through
// ar, parent properties first. References are persisted as path names and
// resolved with Lookup when loading; unresolved references load as null.
func (r *Registry) SerializeObject(ar archive.Archive, h Handle) error {
	o := r.Get(h)
	if o == nil {
		return errors.New(errors.PhaseArchive, errors.KindNotFound).
			Value(h).
			Detail("serialize invalid handle %d", h).
			Build()
	}
	s := serializer{r: r, ar: ar, obj: o}

	cls := o.class.Name()
	ar.String(&cls)
	if ar.IsLoading() && ar.Err() == nil && cls != o.class.Name() {
		s.fail(errors.New(errors.PhaseArchive, errors.KindInvalidData).
			Class(o.class.Name()).
			Object(r.PathName(h)).
			Detail("archive holds a %s", cls).
			Build())
	}
	for _, p := range o.class.AllProperties() {
		if p.IsTransient() {
			continue
		}
		if p.Flags&class.PropDeprecated != 0 && !ar.IsLoading() {
			continue
		}
		s.property(p, o.addr)
	}
	return ar.Err()
}

type serializer struct {
	r   *Registry
	ar  archive.Archive
	obj *Object
}

func (s *serializer) fail(err error) {
	if f, ok := s.ar.(archive.Failer); ok {
		f.Fail(err)
	}
}

func (s *serializer) ok() bool {
	return s.ar.Err() == nil
}

// tag writes a marker string, or checks it when loading.
func (s *serializer) tag(v *string, what string) {
	want := *v
	s.ar.String(v)
	if s.ar.IsLoading() && s.ok() && *v != want {
		s.fail(errors.New(errors.PhaseArchive, errors.KindInvalidData).
			Class(s.obj.class.Name()).
			Path(want).
			Detail("expected %s %q, archive holds %q", what, want, *v).
			Build())
	}
}

func (s *serializer) property(p *class.Property, base uint32) {
	tag := p.Name
	s.tag(&tag, "property")
	for i := uint32(0); i < p.ArrayDim && s.ok(); i++ {
		s.value(p, p.Kind, base+p.Offset+i*p.ElemSize)
	}
}

func (s *serializer) value(p *class.Property, kind class.Kind, addr uint32) {
	if !s.ok() {
		return
	}
	mem := s.r.mem
	ar := s.ar
	var err error
	switch kind {
	case class.KindBool:
		var raw uint8
		if raw, err = mem.ReadU8(addr); err == nil {
			v := raw != 0
			ar.Bool(&v)
			raw = 0
			if v {
				raw = 1
			}
			err = s.store8(addr, raw)
		}
	case class.KindInt8:
		var raw uint8
		if raw, err = mem.ReadU8(addr); err == nil {
			v := int8(raw)
			ar.Int8(&v)
			err = s.store8(addr, uint8(v))
		}
	case class.KindUint8:
		var v uint8
		if v, err = mem.ReadU8(addr); err == nil {
			ar.Uint8(&v)
			err = s.store8(addr, v)
		}
	case class.KindInt16:
		var raw uint16
		if raw, err = mem.ReadU16(addr); err == nil {
			v := int16(raw)
			ar.Int16(&v)
			err = s.store16(addr, uint16(v))
		}
	case class.KindUint16:
		var v uint16
		if v, err = mem.ReadU16(addr); err == nil {
			ar.Uint16(&v)
			err = s.store16(addr, v)
		}
	case class.KindInt32:
		var raw uint32
		if raw, err = mem.ReadU32(addr); err == nil {
			v := int32(raw)
			ar.Int32(&v)
			err = s.store32(addr, uint32(v))
		}
	case class.KindUint32:
		var v uint32
		if v, err = mem.ReadU32(addr); err == nil {
			ar.Uint32(&v)
			err = s.store32(addr, v)
		}
	case class.KindFloat32:
		var raw uint32
		if raw, err = mem.ReadU32(addr); err == nil {
			v := math.Float32frombits(raw)
			ar.Float32(&v)
			err = s.store32(addr, math.Float32bits(v))
		}
	case class.KindInt64:
		var raw uint64
		if raw, err = mem.ReadU64(addr); err == nil {
			v := int64(raw)
			ar.Int64(&v)
			err = s.store64(addr, uint64(v))
		}
	case class.KindUint64:
		var v uint64
		if v, err = mem.ReadU64(addr); err == nil {
			ar.Uint64(&v)
			err = s.store64(addr, v)
		}
	case class.KindFloat64:
		var raw uint64
		if raw, err = mem.ReadU64(addr); err == nil {
			v := math.Float64frombits(raw)
			ar.Float64(&v)
			err = s.store64(addr, math.Float64bits(v))
		}
	case class.KindName:
		s.nameValue(addr)
	case class.KindObject:
		s.reference(addr)
	case class.KindStruct:
		for _, sp := range p.Struct.Properties() {
			if !sp.IsTransient() {
				s.property(sp, addr)
			}
		}
	case class.KindArray:
		s.array(p, addr)
	default:
		s.fail(errors.Unsupported(errors.PhaseArchive, "property kind "+kind.String()))
	}
	if err != nil {
		s.fail(errors.Wrap(errors.PhaseArchive, errors.KindOutOfBounds, err, "instance memory access"))
	}
}

func (s *serializer) store8(addr uint32, v uint8) error {
	if !s.ar.IsLoading() || !s.ok() {
		return nil
	}
	return s.r.mem.WriteU8(addr, v)
}

func (s *serializer) store16(addr uint32, v uint16) error {
	if !s.ar.IsLoading() || !s.ok() {
		return nil
	}
	return s.r.mem.WriteU16(addr, v)
}

func (s *serializer) store32(addr uint32, v uint32) error {
	if !s.ar.IsLoading() || !s.ok() {
		return nil
	}
	return s.r.mem.WriteU32(addr, v)
}

func (s *serializer) store64(addr uint32, v uint64) error {
	if !s.ar.IsLoading() || !s.ok() {
		return nil
	}
	return s.r.mem.WriteU64(addr, v)
}

// Names are stored inline as [entry u32, number+1 u32].
func (s *serializer) nameValue(addr uint32) {
	n := s.r.ReadName(addr)
	s.ar.Name(&n)
	if s.ar.IsLoading() && s.ok() {
		s.r.WriteName(addr, n)
	}
}

func (s *serializer) reference(addr uint32) {
	var path string
	if !s.ar.IsLoading() {
		if target := s.r.ReadRef(addr); target != NoHandle {
			path = s.r.PathName(target)
		}
	}
	s.ar.String(&path)
	if !s.ar.IsLoading() || !s.ok() {
		return
	}
	target := NoHandle
	if path != "" {
		target = s.r.Lookup(Query{Name: path, Outer: NoHandle})
	}
	s.r.WriteRef(addr, target)
}

func (s *serializer) array(p *class.Property, header uint32) {
	ptr, n := s.r.readHeader(header)
	s.ar.Uint32(&n)
	if !s.ok() {
		return
	}
	size, align := p.ElemLayout()
	if s.ar.IsLoading() {
		if p.Elem == class.KindStruct {
			_, cur := s.r.readHeader(header)
			for j := uint32(0); j < cur; j++ {
				s.r.freeArrays(p.Struct.Properties(), ptr+j*size)
			}
		}
		var err error
		if ptr, err = s.r.NewArrayAt(header, size, align, n); err != nil {
			s.fail(err)
			return
		}
	}
	for j := uint32(0); j < n && s.ok(); j++ {
		s.value(p, p.Elem, ptr+j*size)
	}
}

// ReadName reads an inline name at an absolute address.
func (r *Registry) ReadName(addr uint32) name.Name {
	id, err := r.mem.ReadU32(addr)
	var num uint32
	if err == nil {
		num, err = r.mem.ReadU32(addr + 4)
	}
	if err != nil {
		r.memFault(err)
		return name.None
	}
	return name.FromParts(name.EntryID(id), int(num)-1)
}

// WriteName stores n inline at an absolute address.
func (r *Registry) WriteName(addr uint32, n name.Name) {
	var num uint32
	if v, ok := n.Number(); ok {
		num = uint32(v) + 1
	}
	err := r.mem.WriteU32(addr, uint32(n.ID()))
	if err == nil {
		err = r.mem.WriteU32(addr+4, num)
	}
	if err != nil {
		r.memFault(err)
	}
}
