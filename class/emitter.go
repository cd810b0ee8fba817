package class

import (
	"github.com/wippyai/objectcore/errors"
)

type openBlock struct {
	kind       TokenKind
	header     int
	firstInner int
}

// Emitter appends a class's own reference tokens. Offsets are relative to the
// enclosing block's element, or to the instance at the top level.
//
// Every block must be closed with EndBlock. A block that received no inner
// tokens is removed from the stream when it is closed.
type Emitter struct {
	class  string
	words  []uint32
	blocks []openBlock
	skips  []int // skip word indices of closed ArrayStruct blocks
	last   int   // index of the most recent simple token, -1 if none
}

func newEmitter(class string) *Emitter {
	return &Emitter{class: class, last: -1}
}

func (e *Emitter) checkOffset(offset uint32) {
	errors.Assert(offset <= MaxOffset, func() *errors.Error {
		return errors.New(errors.PhaseReflect, errors.KindOverflow).
			Class(e.class).
			Value(offset).
			Detail("reference offset %d does not fit in %d bits", offset, offsetBits).
			Build()
	})
}

// EmitReference records a single object reference at offset.
func (e *Emitter) EmitReference(offset uint32) {
	e.checkOffset(offset)
	e.last = len(e.words)
	e.words = append(e.words, uint32(MakeToken(TokenObject, offset, 0)))
}

// EmitArrayReference records a dynamic array of references whose header
// ([ptr u32, len u32]) sits at offset.
func (e *Emitter) EmitArrayReference(offset uint32) {
	e.checkOffset(offset)
	e.last = len(e.words)
	e.words = append(e.words, uint32(MakeToken(TokenArrayObject, offset, 0)))
}

// BeginArrayStruct opens a block describing each element of the dynamic array
// whose header sits at offset. Elements are stride bytes apart.
func (e *Emitter) BeginArrayStruct(offset, stride uint32) {
	e.checkOffset(offset)
	header := len(e.words)
	e.words = append(e.words, uint32(MakeToken(TokenArrayStruct, offset, 0)), stride, 0)
	e.blocks = append(e.blocks, openBlock{kind: TokenArrayStruct, header: header, firstInner: len(e.words)})
}

// BeginFixedArray opens a block repeated count times, stride bytes apart,
// starting at offset.
func (e *Emitter) BeginFixedArray(offset, stride, count uint32) {
	e.checkOffset(offset)
	errors.Assert(count > 0, func() *errors.Error {
		return errors.New(errors.PhaseReflect, errors.KindInvalidInput).
			Class(e.class).
			Detail("fixed array at offset %d has no elements", offset).
			Build()
	})
	header := len(e.words)
	e.words = append(e.words, uint32(MakeToken(TokenFixedArray, offset, 0)), stride, count)
	e.blocks = append(e.blocks, openBlock{kind: TokenFixedArray, header: header, firstInner: len(e.words)})
}

// EndBlock closes the innermost open block.
func (e *Emitter) EndBlock() {
	errors.Assert(len(e.blocks) > 0, func() *errors.Error {
		return errors.Invariant(errors.PhaseReflect, "EndBlock without an open block in %s", e.class)
	})
	if len(e.blocks) == 0 {
		return
	}
	b := e.blocks[len(e.blocks)-1]
	e.blocks = e.blocks[:len(e.blocks)-1]

	if len(e.words) == b.firstInner {
		e.words = e.words[:b.header]
		return
	}

	end := len(e.words)
	e.bump(&e.words[e.last], 24)
	for _, s := range e.skips {
		dist, _ := SplitSkipWord(e.words[s])
		if s+int(dist) == end {
			e.bump(&e.words[s], 24)
		}
	}

	if b.kind == TokenArrayStruct {
		skip := b.header + 2
		e.words[skip] = SkipWord(uint32(end-skip), 0)
		e.skips = append(e.skips, skip)
	}
}

// bump increments the 8-bit return count held in the top byte of *w.
func (e *Emitter) bump(w *uint32, shift uint) {
	rc := *w >> shift
	errors.Assert(rc < MaxReturnCount, func() *errors.Error {
		return errors.New(errors.PhaseReflect, errors.KindOverflow).
			Class(e.class).
			Detail("block nesting exceeds %d levels", MaxReturnCount).
			Build()
	})
	*w += 1 << shift
}

func (e *Emitter) finish() Stream {
	errors.Assert(len(e.blocks) == 0, func() *errors.Error {
		return errors.Invariant(errors.PhaseReflect, "%d unclosed token blocks in %s", len(e.blocks), e.class)
	})
	for len(e.blocks) > 0 {
		e.EndBlock()
	}
	return Stream{words: e.words}
}

// emitProperties appends tokens for every reference-bearing property, with
// offsets shifted by base.
func (e *Emitter) emitProperties(props []*Property, base uint32) {
	for _, p := range props {
		e.emitProperty(p, base+p.Offset)
	}
}

func (e *Emitter) emitProperty(p *Property, at uint32) {
	if !p.HasReferences() {
		return
	}
	if p.ArrayDim > 1 {
		e.BeginFixedArray(at, p.ElemSize, p.ArrayDim)
		e.emitElement(p, 0)
		e.EndBlock()
		return
	}
	e.emitElement(p, at)
}

func (e *Emitter) emitElement(p *Property, at uint32) {
	switch p.Kind {
	case KindObject:
		e.EmitReference(at)
	case KindStruct:
		e.emitProperties(p.Struct.props, at)
	case KindArray:
		switch p.Elem {
		case KindObject:
			e.EmitArrayReference(at)
		case KindStruct:
			e.BeginArrayStruct(at, p.Struct.size)
			e.emitProperties(p.Struct.props, 0)
			e.EndBlock()
		}
	}
}
