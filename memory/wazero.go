package memory

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/objectcore/errors"
)

// WazeroMemory hosts object instances in the exported linear memory of a
// minimal wasm module running in wazero. It owns the runtime and module.
type WazeroMemory struct {
	mem     api.Memory
	runtime wazero.Runtime
	module  api.Module
}

// NewWazero instantiates a memory-only module with initialPages pages and an
// optional maxPages cap (0 = no cap) and wraps its exported memory.
func NewWazero(ctx context.Context, initialPages, maxPages uint32) (*WazeroMemory, error) {
	if maxPages != 0 && initialPages > maxPages {
		return nil, errors.New(errors.PhaseMemory, errors.KindInvalidInput).
			Detail("initial pages %d exceed max pages %d", initialPages, maxPages).
			Build()
	}

	cfg := wazero.NewRuntimeConfig()
	if maxPages != 0 {
		cfg = cfg.WithMemoryLimitPages(maxPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, cfg)

	mod, err := rt.Instantiate(ctx, memoryModule(initialPages, maxPages))
	if err != nil {
		_ = rt.Close(ctx)
		return nil, errors.Wrap(errors.PhaseMemory, errors.KindNotInitialized, err, "instantiate memory module")
	}

	mem := mod.ExportedMemory("memory")
	if mem == nil {
		_ = rt.Close(ctx)
		return nil, errors.NotInitialized(errors.PhaseMemory, "exported memory")
	}

	return &WazeroMemory{
		mem:     mem,
		runtime: rt,
		module:  mod,
	}, nil
}

// Close releases the module and the runtime.
func (m *WazeroMemory) Close(ctx context.Context) error {
	if m.runtime == nil {
		return nil
	}
	err := m.runtime.Close(ctx)
	m.runtime = nil
	m.module = nil
	return err
}

// memoryModule encodes a module whose only content is one memory exported as
// "memory".
func memoryModule(initialPages, maxPages uint32) []byte {
	limits := []byte{0x01} // one memory
	if maxPages != 0 {
		limits = append(limits, 0x01)
		limits = appendULEB(limits, initialPages)
		limits = appendULEB(limits, maxPages)
	} else {
		limits = append(limits, 0x00)
		limits = appendULEB(limits, initialPages)
	}

	out := []byte{
		0x00, 0x61, 0x73, 0x6d, // magic
		0x01, 0x00, 0x00, 0x00, // version
	}
	out = append(out, 0x05) // memory section
	out = appendULEB(out, uint32(len(limits)))
	out = append(out, limits...)
	out = append(out,
		0x07, 0x0a, 0x01, // export section: 10 bytes, 1 export
		0x06, 'm', 'e', 'm', 'o', 'r', 'y',
		0x02, 0x00, // kind: memory, index 0
	)
	return out
}

func appendULEB(b []byte, v uint32) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		b = append(b, c)
		if v == 0 {
			return b
		}
	}
}

// access reports a failed bounds check on the wasm memory.
func (m *WazeroMemory) access(op string, offset, length uint32) error {
	return outOfBounds(op, offset, length, m.mem.Size())
}

// Size returns the memory size in bytes.
func (m *WazeroMemory) Size() uint32 { return m.mem.Size() }

// Grow extends the memory by deltaPages pages, up to the module's maximum.
func (m *WazeroMemory) Grow(deltaPages uint32) (uint32, bool) {
	return m.mem.Grow(deltaPages)
}

// Read returns a view of length bytes at offset. The view aliases the wasm
// memory and is invalidated by Grow.
func (m *WazeroMemory) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, m.access("read", offset, length)
	}
	return data, nil
}

func (m *WazeroMemory) Write(offset uint32, data []byte) error {
	if !m.mem.Write(offset, data) {
		return m.access("write", offset, uint32(len(data)))
	}
	return nil
}

func (m *WazeroMemory) ReadU8(offset uint32) (uint8, error) {
	v, ok := m.mem.ReadByte(offset)
	if !ok {
		return 0, m.access("read", offset, 1)
	}
	return v, nil
}

func (m *WazeroMemory) ReadU16(offset uint32) (uint16, error) {
	v, ok := m.mem.ReadUint16Le(offset)
	if !ok {
		return 0, m.access("read", offset, 2)
	}
	return v, nil
}

// ReadU32 is the hot path for reference slots during traversal.
func (m *WazeroMemory) ReadU32(offset uint32) (uint32, error) {
	v, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, m.access("read", offset, 4)
	}
	return v, nil
}

func (m *WazeroMemory) ReadU64(offset uint32) (uint64, error) {
	v, ok := m.mem.ReadUint64Le(offset)
	if !ok {
		return 0, m.access("read", offset, 8)
	}
	return v, nil
}

func (m *WazeroMemory) WriteU8(offset uint32, value uint8) error {
	if !m.mem.WriteByte(offset, value) {
		return m.access("write", offset, 1)
	}
	return nil
}

func (m *WazeroMemory) WriteU16(offset uint32, value uint16) error {
	if !m.mem.WriteUint16Le(offset, value) {
		return m.access("write", offset, 2)
	}
	return nil
}

func (m *WazeroMemory) WriteU32(offset uint32, value uint32) error {
	if !m.mem.WriteUint32Le(offset, value) {
		return m.access("write", offset, 4)
	}
	return nil
}

func (m *WazeroMemory) WriteU64(offset uint32, value uint64) error {
	if !m.mem.WriteUint64Le(offset, value) {
		return m.access("write", offset, 8)
	}
	return nil
}
