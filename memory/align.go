package memory

import "math"

// PageSize is the growth granularity of every Memory in this package.
const PageSize = 65536

// AlignTo rounds offset up to the next multiple of align. align must be a
// power of two; 0 leaves offset unchanged.
func AlignTo(offset, align uint32) uint32 {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

// IsPowerOfTwo reports whether v is a non-zero power of two.
func IsPowerOfTwo(v uint32) bool {
	return v != 0 && v&(v-1) == 0
}

func SafeMulU32(a, b uint32) (uint32, bool) {
	if b != 0 && a > math.MaxUint32/b {
		return 0, false
	}
	return a * b, true
}

func SafeAddU32(a, b uint32) (uint32, bool) {
	if a > math.MaxUint32-b {
		return 0, false
	}
	return a + b, true
}

// Grower is implemented by memories that can be extended by whole pages.
// The signature matches wazero's api.Memory.Grow.
type Grower interface {
	Grow(deltaPages uint32) (previousPages uint32, ok bool)
}
