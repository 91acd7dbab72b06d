// Package rangeset implements the sparse range algebra used to describe
// regions of a 64-bit address space: a single closed [Range] and an
// ordered, disjoint, non-adjacent collection of them ([SparseRange]).
//
// Both types are value types. A Range is 16 bytes and copied freely; a
// SparseRange holds a slice internally and is mutated in place by
// Combine/Remove.
package rangeset

import (
	"fmt"
	"math"
)

// Address is a position in the 64-bit address space modeled by this
// package. The full [0, 2^64-1] space is representable.
type Address = uint64

// Range is a closed interval [Base, Last] over the address space.
//
// A Range is empty iff Last < Base. The canonical empty value has
// Base == math.MaxUint64 and Last == 0; shrinking to alignment may
// also produce an empty range anchored at a different base (see
// ShrinkToAlignment), so emptiness must always be tested with IsEmpty,
// never by comparing against the canonical value.
type Range struct {
	base Address
	last Address
}

// FromBaseLast constructs the range [base, last].
func FromBaseLast(base, last Address) Range {
	return Range{base: base, last: last}
}

// FromBaseLimit constructs the range [base, limit-1]. limit == 0 is
// interpreted as 2^64, i.e. the range extends to the top of the address
// space — this falls out of the uint64 wraparound of limit-1 with no
// special casing needed.
func FromBaseLimit(base, limit Address) Range {
	return FromBaseLast(base, limit-1)
}

// FromBaseLength constructs the range [base, base+n-1].
func FromBaseLength(base, n Address) Range {
	return FromBaseLast(base, base+n-1)
}

// Full64 returns the range spanning the entire address space.
func Full64() Range {
	return FromBaseLast(0, math.MaxUint64)
}

// Empty returns the canonical empty range.
func Empty() Range {
	return Range{base: math.MaxUint64, last: 0}
}

// emptyAt returns an empty range anchored at base, per the contract of
// ShrinkToAlignment ("the range becomes empty at the rounded base").
// base == 0 has no representable predecessor, so it falls back to the
// canonical empty value.
func emptyAt(base Address) Range {
	if base == 0 {
		return Empty()
	}

	return Range{base: base, last: base - 1}
}

// Base returns the inclusive lower bound.
func (r Range) Base() Address { return r.base }

// Last returns the inclusive upper bound.
func (r Range) Last() Address { return r.last }

// IsEmpty reports whether the range contains no addresses.
func (r Range) IsEmpty() bool { return r.last < r.base }

// Limit returns last+1 and whether that sum overflows 2^64 (i.e. Last
// is the top of the address space).
func (r Range) Limit() (overflow bool, value Address) {
	if r.last == math.MaxUint64 {
		return true, 0
	}

	return false, r.last + 1
}

// Length returns the number of addresses in the range and whether the
// range spans the entire 64-bit space (in which case the true length,
// 2^64, does not fit in value and value is reported as 0).
func (r Range) Length() (isFull64 bool, value Address) {
	if r.IsEmpty() {
		return false, 0
	}

	if r.base == 0 && r.last == math.MaxUint64 {
		return true, 0
	}

	return false, r.last - r.base + 1
}

// Overlaps reports whether r and other, both non-empty, share at least
// one address.
func (r Range) Overlaps(other Range) bool {
	return r.base <= other.last && r.last >= other.base
}

// Includes reports whether other, non-empty, is fully contained in r.
func (r Range) Includes(other Range) bool {
	return r.base <= other.base && r.last >= other.last
}

// Follows reports whether r begins immediately after other with no gap.
func (r Range) Follows(other Range) bool {
	return r.base > 0 && r.base == other.last+1
}

// Precedes reports whether r ends immediately before other with no gap.
func (r Range) Precedes(other Range) bool {
	return other.Follows(r)
}

// Less orders ranges by upper bound, which SparseRange relies on to
// keep disjoint, non-adjacent ranges sorted equivalently by base or by
// last.
func (r Range) Less(other Range) bool {
	return r.last < other.last
}

// TryCombine attempts to merge other into r in place, returning true if
// they were combined. Two ranges combine when they overlap, abut
// (Follows/Precedes), or either is empty (the empty range is an
// identity element: combining with it yields the other operand
// unchanged).
func (r *Range) TryCombine(other Range) bool {
	if other.IsEmpty() {
		return true
	}

	if r.IsEmpty() {
		*r = other
		return true
	}

	if r.Overlaps(other) || r.Precedes(other) || r.Follows(other) {
		*r = FromBaseLast(min(r.base, other.base), max(r.last, other.last))
		return true
	}

	return false
}

// ShrinkToAlignment rounds Base up and Limit down to multiples of m, a
// power of two. If the rounded base exceeds the rounded last, the
// result is empty, anchored at the rounded base. An empty receiver is
// returned unchanged. Panics (InvalidAlignment) if m is not a power of
// two.
func (r Range) ShrinkToAlignment(m Address) Range {
	if m == 0 || m&(m-1) != 0 {
		panic(fmt.Sprintf("rangeset: InvalidAlignment: %d is not a power of two", m))
	}

	if r.IsEmpty() {
		return r
	}

	mask := m - 1
	newBase := (r.base + mask) &^ mask

	overflow, limit := r.Limit()

	var newLimit Address
	if overflow {
		// last+1 is conceptually 2^64, a multiple of every power-of-two m,
		// so rounding down leaves it unchanged.
		newLimit = 0 // represents 2^64, matching FromBaseLimit's convention
	} else {
		newLimit = limit &^ mask
	}

	newLast := newLimit - 1 // wraps to MaxUint64 when newLimit == 0, i.e. 2^64-1

	if newBase < r.base {
		// Rounding the base up overflowed past the top of the address space.
		return emptyAt(r.base)
	}

	if newBase > newLast {
		return emptyAt(newBase)
	}

	return FromBaseLast(newBase, newLast)
}

// FromObject returns the byte range occupied by *obj in memory. Used by
// self-exclusion (Mapper) and by tests constructing fixtures from real
// Go values.
func FromObject[T any](obj *T) Range {
	addr := addressOf(obj)

	var zero T

	size := sizeOf(zero)
	if size == 0 {
		return FromBaseLength(addr, 1)
	}

	return FromBaseLength(addr, size)
}

// String renders the range as "[0x.., 0x..]", or "<empty>".
func (r Range) String() string {
	if r.IsEmpty() {
		return "<empty>"
	}

	return fmt.Sprintf("[0x%x, 0x%x]", r.base, r.last)
}
