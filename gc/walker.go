package gc

import (
	"sync"

	objectcore "github.com/wippyai/objectcore"
	"github.com/wippyai/objectcore/class"
	"github.com/wippyai/objectcore/errors"
)

// frame is one level of block nesting while interpreting a token stream.
type frame struct {
	data      uint32 // base address of the current element
	stride    uint32
	remaining uint32 // elements left, the current one included
	loopStart int    // first token of the block body
}

// walker interprets assembled reference token streams without recursion.
type walker struct {
	stack []frame
}

var walkerPool = sync.Pool{
	New: func() any {
		return &walker{stack: make([]frame, 0, 16)}
	},
}

const maxPooledFrames = 256

func getWalker() *walker {
	return walkerPool.Get().(*walker)
}

func (w *walker) release() {
	if cap(w.stack) > maxPooledFrames {
		return
	}
	w.stack = w.stack[:0]
	walkerPool.Put(w)
}

// walk calls visit with the address of every reference slot the stream of
// cls describes for the instance at base. Dynamic array headers are read
// from mem as [ptr u32, len u32].
func (w *walker) walk(cls *class.Class, base uint32, mem objectcore.Memory, visit func(slot uint32)) {
	words := cls.ReferenceTokens().Words()
	w.stack = append(w.stack[:0], frame{data: base, remaining: 1})

	for i := 0; i < len(words); {
		tok := class.Token(words[i])
		top := w.stack[len(w.stack)-1]
		at := top.data + tok.Offset()

		switch tok.Kind() {
		case class.TokenEndOfStream:
			if len(w.stack) != 1 {
				w.malformed(cls, i, words[i])
			}
			return

		case class.TokenObject:
			visit(at)
			i = w.ret(cls, i+1, tok.ReturnCount(), words[i])

		case class.TokenArrayObject:
			ptr, n, ok := header(mem, at)
			if !ok {
				w.malformed(cls, i, words[i])
				return
			}
			for j := uint32(0); j < n; j++ {
				visit(ptr + j*4)
			}
			i = w.ret(cls, i+1, tok.ReturnCount(), words[i])

		case class.TokenArrayStruct:
			if i+2 >= len(words) {
				w.malformed(cls, i, words[i])
				return
			}
			ptr, n, ok := header(mem, at)
			if !ok {
				w.malformed(cls, i, words[i])
				return
			}
			if n == 0 || ptr == 0 {
				dist, rc := class.SplitSkipWord(words[i+2])
				i = w.ret(cls, i+2+int(dist), rc, words[i])
				break
			}
			w.stack = append(w.stack, frame{data: ptr, stride: words[i+1], remaining: n, loopStart: i + 3})
			i += 3

		case class.TokenFixedArray:
			if i+2 >= len(words) || words[i+2] == 0 {
				w.malformed(cls, i, words[i])
				return
			}
			w.stack = append(w.stack, frame{data: at, stride: words[i+1], remaining: words[i+2], loopStart: i + 3})
			i += 3

		default:
			w.malformed(cls, i, words[i])
			return
		}
		if i < 0 {
			return
		}
	}
	// ran off the end without EndOfStream
	w.malformed(cls, len(words), 0)
}

// ret closes rc nesting levels after a token. A level with elements left
// loops back to its body instead. A negative result aborts the walk.
func (w *walker) ret(cls *class.Class, next int, rc uint8, word uint32) int {
	for ; rc > 0; rc-- {
		if len(w.stack) <= 1 {
			w.malformed(cls, next-1, word)
			return -1
		}
		top := &w.stack[len(w.stack)-1]
		top.remaining--
		if top.remaining > 0 {
			top.data += top.stride
			return top.loopStart
		}
		w.stack = w.stack[:len(w.stack)-1]
	}
	return next
}

func (w *walker) malformed(cls *class.Class, index int, word uint32) {
	errors.Fatal(errors.MalformedToken(cls.Name(), index, word))
}

func header(mem objectcore.Memory, addr uint32) (ptr, n uint32, ok bool) {
	var err error
	if ptr, err = mem.ReadU32(addr); err != nil {
		return 0, 0, false
	}
	if n, err = mem.ReadU32(addr + 4); err != nil {
		return 0, 0, false
	}
	return ptr, n, true
}
