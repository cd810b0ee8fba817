package class

import (
	"fmt"
	"strings"
)

// TokenKind identifies what a reference token describes.
type TokenKind uint8

const (
	TokenNone        TokenKind = iota
	TokenObject                // single reference slot
	TokenArrayObject           // dynamic array of references
	TokenArrayStruct           // dynamic array of structs holding references
	TokenFixedArray            // inline repetition of a block
	TokenEndOfStream
)

func (k TokenKind) String() string {
	switch k {
	case TokenObject:
		return "Object"
	case TokenArrayObject:
		return "ArrayObject"
	case TokenArrayStruct:
		return "ArrayStruct"
	case TokenFixedArray:
		return "FixedArray"
	case TokenEndOfStream:
		return "EndOfStream"
	}
	return fmt.Sprintf("TokenKind(%d)", uint8(k))
}

// Token word layout: returnCount(8) | kind(5) | offset(19).
const (
	offsetBits = 19
	kindBits   = 5

	// MaxOffset is the largest byte offset a token can carry.
	MaxOffset = 1<<offsetBits - 1
	// MaxReturnCount is the largest number of levels a token can pop.
	MaxReturnCount = 0xff

	kindShift = offsetBits
	rcShift   = offsetBits + kindBits
	kindMask  = 1<<kindBits - 1

	// skip words: skipReturnCount(8) | distance(24)
	distanceMask = 1<<24 - 1
)

// Token is one header word of a reference token stream.
type Token uint32

// MakeToken packs a token header word.
func MakeToken(kind TokenKind, offset uint32, returnCount uint8) Token {
	return Token(uint32(returnCount)<<rcShift | uint32(kind&kindMask)<<kindShift | offset&MaxOffset)
}

func (t Token) Kind() TokenKind {
	return TokenKind(uint32(t) >> kindShift & kindMask)
}

func (t Token) Offset() uint32 {
	return uint32(t) & MaxOffset
}

// ReturnCount is the number of nesting levels to pop after this token.
func (t Token) ReturnCount() uint8 {
	return uint8(uint32(t) >> rcShift)
}

// Words reports how many stream words the token occupies, including its
// parameter words.
func (t Token) Words() int {
	switch t.Kind() {
	case TokenArrayStruct, TokenFixedArray:
		return 3
	}
	return 1
}

// SkipWord packs the third word of an ArrayStruct token. distance is measured
// from the skip word itself.
func SkipWord(distance uint32, returnCount uint8) uint32 {
	return uint32(returnCount)<<24 | distance&distanceMask
}

// SplitSkipWord unpacks a skip word.
func SplitSkipWord(w uint32) (distance uint32, returnCount uint8) {
	return w & distanceMask, uint8(w >> 24)
}

// Stream is an assembled or per-class reference token stream. The zero value
// is an empty stream.
type Stream struct {
	words []uint32
}

// Len returns the number of words, parameter words included.
func (s Stream) Len() int {
	return len(s.words)
}

// Word returns the word at index i.
func (s Stream) Word(i int) uint32 {
	return s.words[i]
}

// Words returns the backing words. Callers must not modify them.
func (s Stream) Words() []uint32 {
	return s.words
}

// Terminated reports whether the stream ends in EndOfStream.
func (s Stream) Terminated() bool {
	return len(s.words) > 0 && Token(s.words[len(s.words)-1]).Kind() == TokenEndOfStream
}

// TokenCount returns the number of header tokens, excluding parameter words
// and the terminator.
func (s Stream) TokenCount() int {
	n := 0
	for i := 0; i < len(s.words); {
		t := Token(s.words[i])
		if t.Kind() == TokenEndOfStream {
			break
		}
		n++
		i += t.Words()
	}
	return n
}

// String renders the stream one token per line, indenting block bodies.
func (s Stream) String() string {
	var b strings.Builder
	depth := 0
	for i := 0; i < len(s.words); {
		t := Token(s.words[i])
		fmt.Fprintf(&b, "%4d %s%s", i, strings.Repeat("  ", depth), t.Kind())
		switch t.Kind() {
		case TokenEndOfStream:
			b.WriteByte('\n')
			return b.String()
		case TokenArrayStruct:
			if i+2 >= len(s.words) {
				b.WriteString(" <truncated>\n")
				return b.String()
			}
			dist, rc := SplitSkipWord(s.words[i+2])
			fmt.Fprintf(&b, " +%d stride=%d skip=%d/%d\n", t.Offset(), s.words[i+1], i+2+int(dist), rc)
			depth++
		case TokenFixedArray:
			if i+2 >= len(s.words) {
				b.WriteString(" <truncated>\n")
				return b.String()
			}
			fmt.Fprintf(&b, " +%d stride=%d count=%d\n", t.Offset(), s.words[i+1], s.words[i+2])
			depth++
		default:
			fmt.Fprintf(&b, " +%d", t.Offset())
			if rc := t.ReturnCount(); rc > 0 {
				fmt.Fprintf(&b, " ret=%d", rc)
				depth -= int(rc)
				if depth < 0 {
					depth = 0
				}
			}
			b.WriteByte('\n')
		}
		i += t.Words()
	}
	return b.String()
}
