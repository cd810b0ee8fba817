package memory

import (
	"encoding/binary"

	"github.com/wippyai/objectcore/errors"
)

// Linear is a page-growable Memory backed by a Go byte slice.
type Linear struct {
	data     []byte
	maxPages uint32
}

// NewLinear creates a Linear memory with initialPages pages. maxPages of 0
// means the memory may grow up to the 4 GiB address space.
func NewLinear(initialPages, maxPages uint32) *Linear {
	if maxPages == 0 || maxPages > 65536 {
		maxPages = 65536
	}
	if initialPages > maxPages {
		initialPages = maxPages
	}
	return &Linear{
		data:     make([]byte, int(initialPages)*PageSize),
		maxPages: maxPages,
	}
}

// Size returns the current size in bytes.
func (m *Linear) Size() uint32 {
	return uint32(len(m.data))
}

// Pages returns the current size in pages.
func (m *Linear) Pages() uint32 {
	return uint32(len(m.data) / PageSize)
}

// Grow extends the memory by deltaPages zeroed pages.
func (m *Linear) Grow(deltaPages uint32) (uint32, bool) {
	prev := m.Pages()
	if deltaPages == 0 {
		return prev, true
	}
	if uint64(prev)+uint64(deltaPages) > uint64(m.maxPages) {
		return prev, false
	}
	grown := make([]byte, (int(prev)+int(deltaPages))*PageSize)
	copy(grown, m.data)
	m.data = grown
	return prev, true
}

// outOfBounds reports an access of length bytes at offset past size.
func outOfBounds(op string, offset, length, size uint32) *errors.Error {
	return errors.New(errors.PhaseMemory, errors.KindOutOfBounds).
		Value(offset).
		Detail("%s of %d bytes at offset %d exceeds memory size %d", op, length, offset, size).
		Build()
}

func (m *Linear) check(offset, length uint32) bool {
	end := uint64(offset) + uint64(length)
	return end <= uint64(len(m.data))
}

// Read returns a view of length bytes at offset. The view aliases the memory
// and is invalidated by Grow.
func (m *Linear) Read(offset uint32, length uint32) ([]byte, error) {
	if !m.check(offset, length) {
		return nil, outOfBounds("read", offset, length, m.Size())
	}
	return m.data[offset : offset+length], nil
}

// Write copies data to offset.
func (m *Linear) Write(offset uint32, data []byte) error {
	if !m.check(offset, uint32(len(data))) {
		return outOfBounds("write", offset, uint32(len(data)), m.Size())
	}
	copy(m.data[offset:], data)
	return nil
}

// ReadU8 reads an unsigned 8-bit value.
func (m *Linear) ReadU8(offset uint32) (uint8, error) {
	if !m.check(offset, 1) {
		return 0, outOfBounds("read", offset, 1, m.Size())
	}
	return m.data[offset], nil
}

// ReadU16 reads an unsigned 16-bit little-endian value.
func (m *Linear) ReadU16(offset uint32) (uint16, error) {
	if !m.check(offset, 2) {
		return 0, outOfBounds("read", offset, 2, m.Size())
	}
	return binary.LittleEndian.Uint16(m.data[offset:]), nil
}

// ReadU32 reads an unsigned 32-bit little-endian value.
func (m *Linear) ReadU32(offset uint32) (uint32, error) {
	if !m.check(offset, 4) {
		return 0, outOfBounds("read", offset, 4, m.Size())
	}
	return binary.LittleEndian.Uint32(m.data[offset:]), nil
}

// ReadU64 reads an unsigned 64-bit little-endian value.
func (m *Linear) ReadU64(offset uint32) (uint64, error) {
	if !m.check(offset, 8) {
		return 0, outOfBounds("read", offset, 8, m.Size())
	}
	return binary.LittleEndian.Uint64(m.data[offset:]), nil
}

// WriteU8 writes an unsigned 8-bit value.
func (m *Linear) WriteU8(offset uint32, value uint8) error {
	if !m.check(offset, 1) {
		return outOfBounds("write", offset, 1, m.Size())
	}
	m.data[offset] = value
	return nil
}

// WriteU16 writes an unsigned 16-bit little-endian value.
func (m *Linear) WriteU16(offset uint32, value uint16) error {
	if !m.check(offset, 2) {
		return outOfBounds("write", offset, 2, m.Size())
	}
	binary.LittleEndian.PutUint16(m.data[offset:], value)
	return nil
}

// WriteU32 writes an unsigned 32-bit little-endian value.
func (m *Linear) WriteU32(offset uint32, value uint32) error {
	if !m.check(offset, 4) {
		return outOfBounds("write", offset, 4, m.Size())
	}
	binary.LittleEndian.PutUint32(m.data[offset:], value)
	return nil
}

// WriteU64 writes an unsigned 64-bit little-endian value.
func (m *Linear) WriteU64(offset uint32, value uint64) error {
	if !m.check(offset, 8) {
		return outOfBounds("write", offset, 8, m.Size())
	}
	binary.LittleEndian.PutUint64(m.data[offset:], value)
	return nil
}
