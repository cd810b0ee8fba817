package archive

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/wippyai/objectcore/errors"
	"github.com/wippyai/objectcore/name"
)

// Archive is a bidirectional streaming operator. When saving, each call
// writes the pointed-to value; when loading, each call overwrites it. After
// the first failure every call is a no-op and Err reports the failure.
type Archive interface {
	IsLoading() bool
	Bool(v *bool)
	Int8(v *int8)
	Int16(v *int16)
	Int32(v *int32)
	Int64(v *int64)
	Uint8(v *uint8)
	Uint16(v *uint16)
	Uint32(v *uint32)
	Uint64(v *uint64)
	Float32(v *float32)
	Float64(v *float64)
	String(v *string)
	Name(v *name.Name)
	Err() error
}

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("archive: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Writer saves values as a sequence of CBOR data items.
type Writer struct {
	enc   *cbor.Encoder
	names *name.Table
	err   error
}

// NewWriter creates a saving archive. Names are written as their display text
// resolved through names.
func NewWriter(w io.Writer, names *name.Table) *Writer {
	return &Writer{enc: encMode.NewEncoder(w), names: names}
}

func (w *Writer) IsLoading() bool { return false }

func (w *Writer) Err() error { return w.err }

func (w *Writer) put(v any) {
	if w.err != nil {
		return
	}
	if err := w.enc.Encode(v); err != nil {
		w.err = errors.Wrap(errors.PhaseArchive, errors.KindInvalidData, err, "encode value")
	}
}

func (w *Writer) Bool(v *bool)       { w.put(*v) }
func (w *Writer) Int8(v *int8)       { w.put(*v) }
func (w *Writer) Int16(v *int16)     { w.put(*v) }
func (w *Writer) Int32(v *int32)     { w.put(*v) }
func (w *Writer) Int64(v *int64)     { w.put(*v) }
func (w *Writer) Uint8(v *uint8)     { w.put(*v) }
func (w *Writer) Uint16(v *uint16)   { w.put(*v) }
func (w *Writer) Uint32(v *uint32)   { w.put(*v) }
func (w *Writer) Uint64(v *uint64)   { w.put(*v) }
func (w *Writer) Float32(v *float32) { w.put(*v) }
func (w *Writer) Float64(v *float64) { w.put(*v) }
func (w *Writer) String(v *string)   { w.put(*v) }

// Name writes the resolved text of *v. None is written as an empty string.
func (w *Writer) Name(v *name.Name) {
	if v.IsNone() {
		w.put("")
		return
	}
	w.put(w.names.Resolve(*v))
}

// Reader loads values written by Writer.
type Reader struct {
	dec   *cbor.Decoder
	names *name.Table
	err   error
}

// NewReader creates a loading archive. Names are interned into names.
func NewReader(r io.Reader, names *name.Table) *Reader {
	return &Reader{dec: cbor.NewDecoder(r), names: names}
}

func (r *Reader) IsLoading() bool { return true }

func (r *Reader) Err() error { return r.err }

func (r *Reader) get(v any) {
	if r.err != nil {
		return
	}
	if err := r.dec.Decode(v); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		r.err = errors.Wrap(errors.PhaseArchive, errors.KindInvalidData, err, "decode value")
	}
}

func (r *Reader) Bool(v *bool)       { r.get(v) }
func (r *Reader) Int8(v *int8)       { r.get(v) }
func (r *Reader) Int16(v *int16)     { r.get(v) }
func (r *Reader) Int32(v *int32)     { r.get(v) }
func (r *Reader) Int64(v *int64)     { r.get(v) }
func (r *Reader) Uint8(v *uint8)     { r.get(v) }
func (r *Reader) Uint16(v *uint16)   { r.get(v) }
func (r *Reader) Uint32(v *uint32)   { r.get(v) }
func (r *Reader) Uint64(v *uint64)   { r.get(v) }
func (r *Reader) Float32(v *float32) { r.get(v) }
func (r *Reader) Float64(v *float64) { r.get(v) }
func (r *Reader) String(v *string)   { r.get(v) }

// Name reads text and interns it. An empty string yields None.
func (r *Reader) Name(v *name.Name) {
	var s string
	r.get(&s)
	if r.err != nil {
		return
	}
	*v = r.names.Intern(s)
}

// Fail records err as the archive error if none is set yet. Serializers use
// it to report semantic problems found while loading.
func (r *Reader) Fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// Fail records err on the Writer if none is set yet.
func (w *Writer) Fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

// Failer is implemented by archives that accept externally detected errors.
type Failer interface {
	Fail(err error)
}
