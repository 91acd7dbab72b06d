package capmap

import (
	"github.com/arm64lab/capmap/pkg/capability"
	"github.com/arm64lab/capmap/pkg/rangeset"
)

// PoisonMap behaves like a PermissionMap on a required permission set,
// additionally invoking a callback exactly once for every accepted
// capability whose bounds overlap a caller-supplied poison SparseRange.
// The callback returns nothing and has no effect on classification.
type PoisonMap struct {
	name         string
	addressSpace string
	required     capability.Permission
	poison       rangeset.SparseRange
	callback     func(capability.Capability)
	ranges       rangeset.SparseRange
}

// NewPoisonMap constructs a PoisonMap. callback may be nil, in which
// case overlaps are recorded but nothing is invoked.
func NewPoisonMap(
	name, addressSpace string,
	required capability.Permission,
	poison rangeset.SparseRange,
	callback func(capability.Capability),
) *PoisonMap {
	return &PoisonMap{
		name:         name,
		addressSpace: addressSpace,
		required:     required,
		poison:       poison,
		callback:     callback,
	}
}

// Name implements Map.
func (m *PoisonMap) Name() string { return m.name }

// AddressSpace implements Map.
func (m *PoisonMap) AddressSpace() string { return m.addressSpace }

// Ranges implements Map.
func (m *PoisonMap) Ranges() []rangeset.Range { return m.ranges.Parts() }

// TryCombine implements Map.
func (m *PoisonMap) TryCombine(o capability.Oracle, cap capability.Capability) bool {
	if !o.Tag(cap) {
		return false
	}

	if !o.Permissions(cap).Has(m.required) {
		return false
	}

	r := capability.RangeFromCap(o, cap)
	m.ranges.Combine(r)

	if m.callback != nil && m.poison.Overlaps(r) {
		m.callback(cap)
	}

	return true
}

var _ Map = (*PoisonMap)(nil)
