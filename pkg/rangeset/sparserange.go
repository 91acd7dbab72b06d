package rangeset

import "sort"

// SparseRange is an ordered collection of disjoint, non-adjacent Ranges,
// sorted by upper bound (equivalently, by base, since the ranges never
// overlap or touch).
//
// The zero value is an empty SparseRange, ready to use.
type SparseRange struct {
	parts []Range
}

// New builds a SparseRange from zero or more initial ranges.
func New(ranges ...Range) SparseRange {
	var s SparseRange
	for _, r := range ranges {
		s.Combine(r)
	}

	return s
}

// Parts returns the underlying disjoint ranges in ascending order. The
// returned slice must not be mutated by the caller.
func (s SparseRange) Parts() []Range {
	return s.parts
}

// IsEmpty reports whether the set contains no ranges.
func (s SparseRange) IsEmpty() bool {
	return len(s.parts) == 0
}

// lowerBound returns the index of the first part with Last >= r.Last(),
// i.e. the unique candidate that might overlap or abut r from the
// right. It is len(s.parts) if no such part exists.
func (s SparseRange) lowerBound(r Range) int {
	return sort.Search(len(s.parts), func(i int) bool {
		return s.parts[i].Last() >= r.last
	})
}

// touchesRange reports whether p overlaps or directly abuts r (no gap
// between them), the combinability test Combine uses to decide which
// existing parts a new range absorbs.
func touchesRange(p, r Range) bool {
	return p.Overlaps(r) || p.Follows(r) || p.Precedes(r)
}

// Combine merges r into the set, absorbing and re-merging any ranges it
// overlaps or abuts. A no-op if r is empty.
//
// Because existing parts are pairwise disjoint and non-adjacent (the
// SparseRange invariants), the only way two of them end up in the same
// merged group is by both touching the newly inserted r — they can
// never bridge through each other. So every part that ends up absorbed
// is tested directly against r, not against the intermediate merged
// accumulator, and that set of indices is contiguous in sorted order.
func (s *SparseRange) Combine(r Range) {
	if r.IsEmpty() {
		return
	}

	if len(s.parts) == 0 {
		s.parts = append(s.parts, r)
		return
	}

	idx := s.lowerBound(r)

	start := idx
	for start > 0 && touchesRange(s.parts[start-1], r) {
		start--
	}

	end := idx
	for end < len(s.parts) && touchesRange(s.parts[end], r) {
		end++
	}

	merged := r
	for i := start; i < end; i++ {
		merged.TryCombine(s.parts[i])
	}

	s.parts = spliceOne(s.parts, start, end, merged)
}

// spliceOne replaces parts[start:end] with a single range, newRange,
// returning the resulting slice.
func spliceOne(parts []Range, start, end int, newRange Range) []Range {
	tail := append([]Range{newRange}, parts[end:]...)
	return append(parts[:start], tail...)
}

// CombineSet merges every part of other into s.
func (s *SparseRange) CombineSet(other SparseRange) {
	for _, r := range other.parts {
		s.Combine(r)
	}
}

// Remove subtracts r from the set, splitting or shrinking any ranges it
// overlaps. A no-op if r or the set is empty, or if nothing overlaps.
func (s *SparseRange) Remove(r Range) {
	if r.IsEmpty() || len(s.parts) == 0 {
		return
	}

	start, end, found := s.overlapRun(r)
	if !found {
		return
	}

	replStart := s.parts[start]
	replLast := s.parts[end-1]

	var residual []Range

	if replStart.Base() < r.Base() {
		residual = append(residual, FromBaseLast(replStart.Base(), r.Base()-1))
	}

	if r.Last() < replLast.Last() {
		residual = append(residual, FromBaseLast(r.Last()+1, replLast.Last()))
	}

	kept := append([]Range(nil), s.parts[:start]...)
	kept = append(kept, residual...)
	kept = append(kept, s.parts[end:]...)
	s.parts = kept
}

// RemoveSet subtracts every part of other from s.
func (s *SparseRange) RemoveSet(other SparseRange) {
	for _, r := range other.parts {
		s.Remove(r)
	}
}

// overlapRun finds the maximal contiguous run of parts overlapping r,
// returning [start, end) indices and whether any part overlapped.
func (s SparseRange) overlapRun(r Range) (start, end int, found bool) {
	idx := s.lowerBound(r)

	start = idx
	for start > 0 && s.parts[start-1].Overlaps(r) {
		start--
	}

	end = idx
	for end < len(s.parts) && s.parts[end].Overlaps(r) {
		end++
	}

	return start, end, end > start
}

// Overlaps reports whether any part of the set overlaps r.
func (s SparseRange) Overlaps(r Range) bool {
	if r.IsEmpty() || len(s.parts) == 0 {
		return false
	}

	idx := s.lowerBound(r)
	if idx < len(s.parts) && s.parts[idx].Overlaps(r) {
		return true
	}

	if idx > 0 && s.parts[idx-1].Overlaps(r) {
		return true
	}

	return false
}

// OverlapsSet reports whether the set overlaps any part of other.
func (s SparseRange) OverlapsSet(other SparseRange) bool {
	for _, r := range other.parts {
		if s.Overlaps(r) {
			return true
		}
	}

	return false
}

// Includes reports whether r is fully contained within a single part of
// the set.
func (s SparseRange) Includes(r Range) bool {
	if r.IsEmpty() {
		return true
	}

	idx := s.lowerBound(r)
	if idx == len(s.parts) {
		return false
	}

	return s.parts[idx].Includes(r)
}

// IncludesSet reports whether every part of other is included in s.
func (s SparseRange) IncludesSet(other SparseRange) bool {
	for _, r := range other.parts {
		if !s.Includes(r) {
			return false
		}
	}

	return true
}

// Complement returns the SparseRange covering everything in [0, 2^64-1]
// that s does not cover.
func (s SparseRange) Complement() SparseRange {
	var out SparseRange

	cursor := Address(0)
	wrapped := false

	for _, r := range s.parts {
		if !wrapped && r.Base() > cursor {
			out.Combine(FromBaseLast(cursor, r.Base()-1))
		}

		overflow, limit := r.Limit()
		if overflow {
			wrapped = true
			break
		}

		cursor = limit
	}

	if !wrapped {
		out.Combine(FromBaseLast(cursor, ^Address(0)))
	}

	return out
}

// Clone returns an independent copy of s.
func (s SparseRange) Clone() SparseRange {
	return SparseRange{parts: append([]Range(nil), s.parts...)}
}

// Equal reports whether s and other contain the same parts.
func (s SparseRange) Equal(other SparseRange) bool {
	if len(s.parts) != len(other.parts) {
		return false
	}

	for i, r := range s.parts {
		if r != other.parts[i] {
			return false
		}
	}

	return true
}
