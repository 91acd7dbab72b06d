package capmap

import (
	"github.com/arm64lab/capmap/pkg/capability"
	"github.com/arm64lab/capmap/pkg/rangeset"
)

// BranchMap accepts branch-target capabilities: unsealed executable
// capabilities (recorded at full bounds) and sentries (recorded as a
// unit range at the entry point only). Unlike the other built-ins it
// preserves every accepted Range verbatim in an ordered slice rather
// than merging through a SparseRange — overlapping-but-distinct branch
// bounds are semantically different targets. Ranges are ordered only
// by arrival, so overlapping targets are not coalesced or indexed.
type BranchMap struct {
	name         string
	addressSpace string
	ordered      []rangeset.Range
}

// NewBranchMap constructs an empty BranchMap.
func NewBranchMap(name, addressSpace string) *BranchMap {
	return &BranchMap{name: name, addressSpace: addressSpace}
}

// Name implements Map.
func (m *BranchMap) Name() string { return m.name }

// AddressSpace implements Map.
func (m *BranchMap) AddressSpace() string { return m.addressSpace }

// Ranges implements Map. The returned slice is in recording order, not
// a canonicalized/sorted set: it may contain duplicates and overlaps.
func (m *BranchMap) Ranges() []rangeset.Range {
	return append([]rangeset.Range(nil), m.ordered...)
}

// TryCombine implements Map.
func (m *BranchMap) TryCombine(o capability.Oracle, cap capability.Capability) bool {
	if !o.Tag(cap) {
		return false
	}

	sealed := o.Sealed(cap)
	perms := o.Permissions(cap)

	switch {
	case !sealed && perms.Has(capability.PermExecute|capability.PermLoad):
		m.ordered = append(m.ordered, capability.RangeFromCap(o, cap))
		return true
	case sealed && o.ObjectType(cap) == capability.ObjectTypeSentry:
		entry := o.Base(cap)
		m.ordered = append(m.ordered, rangeset.FromBaseLast(entry, entry))

		return true
	default:
		return false
	}
}

var _ Map = (*BranchMap)(nil)
