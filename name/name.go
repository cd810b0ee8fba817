package name

import (
	"math"
	"strconv"
	"strings"
)

// EntryID identifies an interned base string in a Table.
type EntryID uint32

// Name is an interned base string plus an optional numeric suffix. Names are
// small values and compare with ==; two names are equal iff their base strings
// are equal ignoring case and their numbers match.
type Name struct {
	id     EntryID
	number int32 // suffix+1, 0 = no suffix
}

// None is the reserved empty name.
var None = Name{}

// NoNumber marks a name without a numeric suffix.
const NoNumber = -1

// FromParts rebuilds a name from its stored entry and number. The name is
// only meaningful for the table that issued id.
func FromParts(id EntryID, number int) Name {
	return Name{id: id}.WithNumber(number)
}

// ID returns the interned base entry.
func (n Name) ID() EntryID {
	return n.id
}

// Number returns the numeric suffix and whether one is present.
func (n Name) Number() (int, bool) {
	if n.number == 0 {
		return 0, false
	}
	return int(n.number - 1), true
}

// Base returns the name with its numeric suffix removed.
func (n Name) Base() Name {
	return Name{id: n.id}
}

// WithNumber returns n's base with the given suffix; NoNumber strips it.
func (n Name) WithNumber(number int) Name {
	if number < 0 || number >= math.MaxInt32 {
		return Name{id: n.id}
	}
	return Name{id: n.id, number: int32(number) + 1}
}

// IsNone reports whether n is the reserved None name.
func (n Name) IsNone() bool {
	return n == None
}

// SplitNumber splits a trailing "_<digits>" group from s. Digit groups with a
// leading zero (other than "0"), more than ten digits, or a value that does
// not fit an int32 stay part of the base text. number is NoNumber when no
// suffix was split off.
func SplitNumber(s string) (base string, number int) {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	digits := s[i:]
	if len(digits) == 0 || len(digits) > 10 || i < 2 || s[i-1] != '_' {
		return s, NoNumber
	}
	if len(digits) > 1 && digits[0] == '0' {
		return s, NoNumber
	}
	v, err := strconv.ParseInt(digits, 10, 32)
	if err != nil || v >= math.MaxInt32 {
		return s, NoNumber
	}
	return s[:i-1], int(v)
}

// appendNumber formats the display suffix of a name.
func appendNumber(b *strings.Builder, n Name) {
	if num, ok := n.Number(); ok {
		b.WriteByte('_')
		b.WriteString(strconv.Itoa(num))
	}
}
