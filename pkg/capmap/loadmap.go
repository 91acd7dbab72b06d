package capmap

import (
	"github.com/arm64lab/capmap/pkg/capability"
	"github.com/arm64lab/capmap/pkg/rangeset"
)

// LoadMap accepts any loadable (not necessarily load-cap-capable)
// tagged capability. Because it never shrinks bounds and LoadCapMap
// always does, LoadMap.Ranges() is guaranteed a superset of
// LoadCapMap.Ranges() for any capability set that passed through both.
type LoadMap struct {
	ranges rangeset.SparseRange
}

// NewLoadMap constructs an empty LoadMap.
func NewLoadMap() *LoadMap {
	return &LoadMap{}
}

// Name implements Map.
func (m *LoadMap) Name() string { return "load" }

// AddressSpace implements Map.
func (m *LoadMap) AddressSpace() string { return "virtual memory" }

// Ranges implements Map.
func (m *LoadMap) Ranges() []rangeset.Range { return m.ranges.Parts() }

// TryCombine implements Map. It accepts cap iff tagged, unsealed, and
// carrying Load.
func (m *LoadMap) TryCombine(o capability.Oracle, cap capability.Capability) bool {
	if !o.Tag(cap) || o.Sealed(cap) {
		return false
	}

	if !o.Permissions(cap).Has(capability.PermLoad) {
		return false
	}

	m.ranges.Combine(capability.RangeFromCap(o, cap))

	return true
}

var _ Map = (*LoadMap)(nil)
