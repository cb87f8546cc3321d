// Package safeconv provides checked numeric conversions for arena handles,
// encoded counts and layout arithmetic.
package safeconv

import "math"

// MaxInt is the maximum value for int type (platform-dependent).
const MaxInt = int(^uint(0) >> 1)

// MaxUint32 is the maximum value for uint32 type.
const MaxUint32 = uint32(math.MaxUint32)

// MustIntToUint32 converts int to uint32, panics on bounds violation.
// Use only when bounds violations are logically impossible.
func MustIntToUint32(v int) uint32 {
	if v < 0 || v > int(MaxUint32) {
		panic("safeconv: int to uint32 out of bounds")
	}

	return uint32(v)
}

// Uint64ToInt converts an untrusted uint64 (for example a decoded length) to int.
// Returns false when the value does not fit.
func Uint64ToInt(v uint64) (int, bool) {
	if v > uint64(MaxInt) {
		return 0, false
	}

	return int(v), true
}

// FloorToInt floors a float64 and clamps it into the int range.
// NaN maps to zero.
func FloorToInt(v float64) int {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= float64(MaxInt):
		return MaxInt
	case v <= float64(-MaxInt-1):
		return -MaxInt - 1
	default:
		return int(math.Floor(v))
	}
}
