package capmap

import (
	"github.com/arm64lab/capmap/pkg/capability"
	"github.com/arm64lab/capmap/pkg/rangeset"
)

// LoadCapMap is the mandatory map: it accepts capabilities that can
// themselves be used to load further tagged capabilities, and its
// accumulated Ranges() is what drives and terminates the traversal
// (§4.5 subtracts already-covered LoadCapMap ranges from every
// subsequent scan region).
type LoadCapMap struct {
	capWidth Address
	vmmap    rangeset.SparseRange
	ranges   rangeset.SparseRange
}

// NewLoadCapMap constructs the mandatory map. capWidth is the
// architecture's capability size (8 or 16 bytes), used to shrink
// accepted bounds to alignment. vmmap is the SparseRange seed built
// from the OS mapping query (see internal/osmap); it is stored for
// introspection via VMMap and does not itself feed Ranges(), which
// accumulates purely through accepted TryCombine calls.
func NewLoadCapMap(capWidth Address, vmmap rangeset.SparseRange) *LoadCapMap {
	return &LoadCapMap{capWidth: capWidth, vmmap: vmmap}
}

// Name implements Map.
func (m *LoadCapMap) Name() string { return "load-cap" }

// AddressSpace implements Map.
func (m *LoadCapMap) AddressSpace() string { return "virtual memory" }

// Ranges implements Map.
func (m *LoadCapMap) Ranges() []rangeset.Range { return m.ranges.Parts() }

// SparseRange returns an independent copy of the accumulated ranges,
// for use as the "already-explored" term the Mapper subtracts from
// each scan region.
func (m *LoadCapMap) SparseRange() rangeset.SparseRange { return m.ranges.Clone() }

// VMMap returns the OS-mapping-query seed this map was constructed with.
func (m *LoadCapMap) VMMap() rangeset.SparseRange { return m.vmmap.Clone() }

// CapWidth returns the capability-word alignment this map shrinks to.
func (m *LoadCapMap) CapWidth() Address { return m.capWidth }

// TryCombine implements Map. It accepts cap iff tagged, unsealed, and
// carrying both Load and LoadCap, shrinking its bounds to capability
// alignment before recording them.
func (m *LoadCapMap) TryCombine(o capability.Oracle, cap capability.Capability) bool {
	if !o.Tag(cap) || o.Sealed(cap) {
		return false
	}

	if !o.Permissions(cap).Has(capability.PermLoad | capability.PermLoadCap) {
		return false
	}

	r := capability.RangeFromCap(o, cap).ShrinkToAlignment(m.capWidth)
	m.ranges.Combine(r)

	return true
}

// IncludesCap reports whether the capability-word [addr, addr+W-1] is
// entirely contained within a single already-recorded part. If so, it
// sets *cont to addr+W, the next word a caller may want to examine.
func (m *LoadCapMap) IncludesCap(addr Address, cont *Address) bool {
	word := rangeset.FromBaseLength(addr, m.capWidth)
	if !m.ranges.Includes(word) {
		return false
	}

	*cont = addr + m.capWidth

	return true
}

var _ Map = (*LoadCapMap)(nil)
