package class

import (
	"fmt"

	"github.com/wippyai/objectcore/errors"
	"github.com/wippyai/objectcore/memory"
)

// Kind is the storage kind of a property.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindName   // [entry u32, number u32]
	KindObject // u32 handle+1, 0 is null
	KindArray  // [ptr u32, len u32], elements allocator-owned
	KindStruct // inline Struct
)

var kindNames = [...]string{
	KindInvalid: "invalid",
	KindBool:    "bool",
	KindInt8:    "int8",
	KindInt16:   "int16",
	KindInt32:   "int32",
	KindInt64:   "int64",
	KindUint8:   "uint8",
	KindUint16:  "uint16",
	KindUint32:  "uint32",
	KindUint64:  "uint64",
	KindFloat32: "float32",
	KindFloat64: "float64",
	KindName:    "name",
	KindObject:  "object",
	KindArray:   "array",
	KindStruct:  "struct",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ArrayHeaderSize is the in-memory size of a dynamic array header.
const ArrayHeaderSize = 8

// scalarLayout returns size and alignment for kinds with a fixed layout.
func scalarLayout(k Kind) (size, align uint32, ok bool) {
	switch k {
	case KindBool, KindInt8, KindUint8:
		return 1, 1, true
	case KindInt16, KindUint16:
		return 2, 2, true
	case KindInt32, KindUint32, KindFloat32, KindObject:
		return 4, 4, true
	case KindInt64, KindUint64, KindFloat64:
		return 8, 8, true
	case KindName:
		return 8, 4, true
	case KindArray:
		return ArrayHeaderSize, 4, true
	}
	return 0, 0, false
}

// PropertyFlags modify how a property is treated outside of layout.
type PropertyFlags uint32

const (
	// PropTransient properties are skipped by serialization.
	PropTransient PropertyFlags = 1 << iota
	// PropDeprecated properties are loaded but never saved.
	PropDeprecated
)

// PropertySpec declares one field. Elem is the element kind of a KindArray;
// Struct is required for KindStruct and for arrays of structs. ArrayDim > 1
// repeats the field inline.
type PropertySpec struct {
	Name     string
	Kind     Kind
	Elem     Kind
	Struct   *Struct
	ArrayDim uint32
	Flags    PropertyFlags
}

// Property is a laid-out field of a class or struct.
type Property struct {
	Name     string
	Kind     Kind
	Elem     Kind
	Struct   *Struct
	ArrayDim uint32
	Flags    PropertyFlags

	Offset   uint32 // from the start of the instance or struct
	ElemSize uint32 // size of one inline element
	Size     uint32 // ElemSize * ArrayDim
	Align    uint32
}

// HasReferences reports whether the property holds object references.
func (p *Property) HasReferences() bool {
	switch p.Kind {
	case KindObject:
		return true
	case KindStruct:
		return p.Struct.HasReferences()
	case KindArray:
		return p.Elem == KindObject || (p.Elem == KindStruct && p.Struct.HasReferences())
	}
	return false
}

// ElemLayout returns the size and alignment of one element of a KindArray.
func (p *Property) ElemLayout() (size, align uint32) {
	if p.Elem == KindStruct {
		return p.Struct.size, p.Struct.align
	}
	size, align, _ = scalarLayout(p.Elem)
	return size, align
}

// IsTransient reports whether serialization skips the property.
func (p *Property) IsTransient() bool {
	return p.Flags&PropTransient != 0
}

// Struct describes a non-object aggregate laid out inline or as array elements.
type Struct struct {
	name  string
	size  uint32
	align uint32
	props []*Property
	refs  bool
}

// NewStruct lays out specs in order with natural alignment.
func NewStruct(name string, specs []PropertySpec) (*Struct, error) {
	lb := layoutBuilder{owner: name, offset: 0, align: 1}
	props, err := lb.place(specs)
	if err != nil {
		return nil, err
	}
	s := &Struct{
		name:  name,
		size:  memory.AlignTo(lb.offset, lb.align),
		align: lb.align,
		props: props,
	}
	for _, p := range props {
		if p.HasReferences() {
			s.refs = true
		}
	}
	return s, nil
}

func (s *Struct) Name() string { return s.name }

func (s *Struct) Size() uint32 { return s.size }

func (s *Struct) Align() uint32 { return s.align }

// Properties returns the laid-out fields. Callers must not modify the slice.
func (s *Struct) Properties() []*Property { return s.props }

// Property returns the field called name, or nil.
func (s *Struct) Property(name string) *Property {
	for _, p := range s.props {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// HasReferences reports whether any field holds object references.
func (s *Struct) HasReferences() bool { return s.refs }

// layoutBuilder places fields sequentially, aligning each to its natural
// alignment and tracking the widest alignment seen.
type layoutBuilder struct {
	owner  string
	offset uint32
	align  uint32
}

func (lb *layoutBuilder) place(specs []PropertySpec) ([]*Property, error) {
	props := make([]*Property, 0, len(specs))
	seen := make(map[string]struct{}, len(specs))
	for i := range specs {
		spec := &specs[i]
		if spec.Name == "" {
			return nil, lb.invalid(spec, "property %d has no name", i)
		}
		if _, dup := seen[spec.Name]; dup {
			return nil, errors.New(errors.PhaseReflect, errors.KindDuplicate).
				Class(lb.owner).
				Path(spec.Name).
				Detail("property declared twice").
				Build()
		}
		seen[spec.Name] = struct{}{}

		size, align, err := lb.elemLayout(spec)
		if err != nil {
			return nil, err
		}
		dim := spec.ArrayDim
		if dim == 0 {
			dim = 1
		}
		total, ok := memory.SafeMulU32(size, dim)
		if !ok {
			return nil, errors.Overflow(errors.PhaseReflect, []string{lb.owner, spec.Name}, dim, "uint32 property size")
		}

		offset := memory.AlignTo(lb.offset, align)
		end, ok := memory.SafeAddU32(offset, total)
		if !ok {
			return nil, errors.Overflow(errors.PhaseReflect, []string{lb.owner, spec.Name}, offset, "uint32 instance size")
		}
		lb.offset = end
		if align > lb.align {
			lb.align = align
		}

		props = append(props, &Property{
			Name:     spec.Name,
			Kind:     spec.Kind,
			Elem:     spec.Elem,
			Struct:   spec.Struct,
			ArrayDim: dim,
			Flags:    spec.Flags,
			Offset:   offset,
			ElemSize: size,
			Size:     total,
			Align:    align,
		})
	}
	return props, nil
}

func (lb *layoutBuilder) elemLayout(spec *PropertySpec) (size, align uint32, err error) {
	switch spec.Kind {
	case KindStruct:
		if spec.Struct == nil {
			return 0, 0, lb.invalid(spec, "struct property without a struct descriptor")
		}
		return spec.Struct.size, spec.Struct.align, nil
	case KindArray:
		switch spec.Elem {
		case KindArray, KindInvalid:
			return 0, 0, errors.New(errors.PhaseReflect, errors.KindUnsupported).
				Class(lb.owner).
				Path(spec.Name).
				Detail("array element kind %s", spec.Elem).
				Build()
		case KindStruct:
			if spec.Struct == nil {
				return 0, 0, lb.invalid(spec, "array of structs without a struct descriptor")
			}
		}
		if spec.Elem > KindStruct {
			return 0, 0, lb.invalid(spec, "unknown element kind %s", spec.Elem)
		}
	}
	size, align, ok := scalarLayout(spec.Kind)
	if !ok {
		return 0, 0, lb.invalid(spec, "unknown kind %s", spec.Kind)
	}
	return size, align, nil
}

func (lb *layoutBuilder) invalid(spec *PropertySpec, format string, args ...any) *errors.Error {
	return errors.New(errors.PhaseReflect, errors.KindInvalidInput).
		Class(lb.owner).
		Path(spec.Name).
		Detail(format, args...).
		Build()
}
