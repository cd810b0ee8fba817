package object

import (
	"github.com/wippyai/objectcore/class"
	"github.com/wippyai/objectcore/errors"
	"github.com/wippyai/objectcore/memory"
)

// References are stored in instance memory as u32 handle+1; 0 is null.

// EncodeRef converts a handle to its stored form.
func EncodeRef(h Handle) uint32 {
	if h < 0 {
		return 0
	}
	return uint32(h) + 1
}

// DecodeRef converts a stored reference back to a handle.
func DecodeRef(v uint32) Handle {
	if v == 0 {
		return NoHandle
	}
	return Handle(v - 1)
}

// Addr returns the instance block address of h, or 0.
func (r *Registry) Addr(h Handle) uint32 {
	if o := r.Get(h); o != nil {
		return o.addr
	}
	return 0
}

// field checks that [offset, offset+size) lies inside h's instance block and
// returns its absolute address.
func (r *Registry) field(h Handle, offset, size uint32) (uint32, bool) {
	o := r.mustGet(h, errors.PhaseMemory)
	if o == nil {
		return 0, false
	}
	end, ok := memory.SafeAddU32(offset, size)
	ok = ok && end <= o.class.Size()
	errors.Assert(ok, func() *errors.Error {
		return errors.New(errors.PhaseMemory, errors.KindOutOfBounds).
			Class(o.class.Name()).
			Object(r.PathName(h)).
			Value(offset).
			Detail("field [%d, +%d) outside %d byte instance", offset, size, o.class.Size()).
			Build()
	})
	return o.addr + offset, ok
}

func (r *Registry) memFault(err error) {
	errors.Fatal(errors.Wrap(errors.PhaseMemory, errors.KindOutOfBounds, err, "instance memory access"))
}

// ReadRef reads a stored reference at an absolute address.
func (r *Registry) ReadRef(addr uint32) Handle {
	v, err := r.mem.ReadU32(addr)
	if err != nil {
		r.memFault(err)
		return NoHandle
	}
	return DecodeRef(v)
}

// WriteRef stores a reference at an absolute address. target must be
// NoHandle or valid.
func (r *Registry) WriteRef(addr uint32, target Handle) {
	errors.Assert(target == NoHandle || r.IsValid(target), func() *errors.Error {
		return errors.New(errors.PhaseMemory, errors.KindInvalidInput).
			Value(target).
			Detail("reference to invalid handle %d", target).
			Build()
	})
	if err := r.mem.WriteU32(addr, EncodeRef(target)); err != nil {
		r.memFault(err)
	}
}

// Ref reads the reference field at offset in h.
func (r *Registry) Ref(h Handle, offset uint32) Handle {
	addr, ok := r.field(h, offset, 4)
	if !ok {
		return NoHandle
	}
	return r.ReadRef(addr)
}

// SetRef writes the reference field at offset in h.
func (r *Registry) SetRef(h Handle, offset uint32, target Handle) {
	if addr, ok := r.field(h, offset, 4); ok {
		r.WriteRef(addr, target)
	}
}

func (r *Registry) readHeader(addr uint32) (ptr, n uint32) {
	var err error
	if ptr, err = r.mem.ReadU32(addr); err == nil {
		n, err = r.mem.ReadU32(addr + 4)
	}
	if err != nil {
		r.memFault(err)
		return 0, 0
	}
	return ptr, n
}

func (r *Registry) writeHeader(addr, ptr, n uint32) {
	err := r.mem.WriteU32(addr, ptr)
	if err == nil {
		err = r.mem.WriteU32(addr+4, n)
	}
	if err != nil {
		r.memFault(err)
	}
}

// ArrayHeader returns the element pointer and length of the dynamic array
// whose header is at offset in h.
func (r *Registry) ArrayHeader(h Handle, offset uint32) (ptr, n uint32) {
	addr, ok := r.field(h, offset, class.ArrayHeaderSize)
	if !ok {
		return 0, 0
	}
	return r.readHeader(addr)
}

// NewArray replaces the dynamic array at offset in h with n zeroed elements
// and returns the element pointer. The previous storage is freed using the
// same element layout.
func (r *Registry) NewArray(h Handle, offset, elemSize, elemAlign, n uint32) (uint32, error) {
	addr, ok := r.field(h, offset, class.ArrayHeaderSize)
	if !ok {
		return 0, errors.InvalidInput(errors.PhaseMemory, "array header outside instance")
	}
	return r.NewArrayAt(addr, elemSize, elemAlign, n)
}

// NewArrayAt is NewArray for a header at an absolute address, such as one
// inside an element of another dynamic array.
func (r *Registry) NewArrayAt(addr, elemSize, elemAlign, n uint32) (uint32, error) {
	total, ok := memory.SafeMulU32(elemSize, n)
	if !ok {
		return 0, errors.Overflow(errors.PhaseMemory, nil, n, "uint32 array size")
	}
	oldPtr, oldN := r.readHeader(addr)
	var ptr uint32
	if n > 0 {
		var err error
		if ptr, err = r.alloc.Alloc(total, elemAlign); err != nil {
			return 0, err
		}
	}
	if oldPtr != 0 {
		r.alloc.Free(oldPtr, elemSize*oldN, elemAlign)
	}
	r.writeHeader(addr, ptr, n)
	return ptr, nil
}

// NewArrayFor replaces a dynamic array property with n zeroed elements.
// Nested arrays inside replaced struct elements are freed first.
func (r *Registry) NewArrayFor(h Handle, p *class.Property, n uint32) (uint32, error) {
	if p.Kind != class.KindArray {
		return 0, errors.InvalidInput(errors.PhaseMemory, "property "+p.Name+" is not a dynamic array")
	}
	addr, ok := r.field(h, p.Offset, class.ArrayHeaderSize)
	if !ok {
		return 0, errors.InvalidInput(errors.PhaseMemory, "array header outside instance")
	}
	size, align := p.ElemLayout()
	if p.Elem == class.KindStruct {
		ptr, cur := r.readHeader(addr)
		for j := uint32(0); j < cur; j++ {
			r.freeArrays(p.Struct.Properties(), ptr+j*size)
		}
	}
	return r.NewArrayAt(addr, size, align, n)
}

// NewRefArray replaces the reference array at offset in h with n nulls.
func (r *Registry) NewRefArray(h Handle, offset, n uint32) error {
	_, err := r.NewArray(h, offset, 4, 4, n)
	return err
}

// RefArray returns the elements of the reference array at offset in h.
func (r *Registry) RefArray(h Handle, offset uint32) []Handle {
	ptr, n := r.ArrayHeader(h, offset)
	out := make([]Handle, n)
	for i := range out {
		out[i] = r.ReadRef(ptr + uint32(i)*4)
	}
	return out
}

// SetRefArrayElem writes element i of the reference array at offset in h.
func (r *Registry) SetRefArrayElem(h Handle, offset, i uint32, target Handle) {
	ptr, n := r.ArrayHeader(h, offset)
	errors.Assert(i < n, func() *errors.Error {
		return errors.OutOfBounds(errors.PhaseMemory, nil, int(i), int(n))
	})
	if i < n {
		r.WriteRef(ptr+i*4, target)
	}
}
