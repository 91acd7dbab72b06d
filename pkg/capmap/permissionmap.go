package capmap

import (
	"github.com/arm64lab/capmap/pkg/capability"
	"github.com/arm64lab/capmap/pkg/rangeset"
)

// PermissionMap accepts any tagged capability carrying a user-chosen
// set of required permissions. It does not filter on sealed state —
// that policy is deliberately left to compound checks built by the
// caller; LoadCapMap and LoadMap, by contrast, reject sealed
// capabilities.
type PermissionMap struct {
	name         string
	addressSpace string
	required     capability.Permission
	ranges       rangeset.SparseRange
}

// NewPermissionMap constructs a PermissionMap requiring every
// permission in required.
func NewPermissionMap(name, addressSpace string, required capability.Permission) *PermissionMap {
	return &PermissionMap{name: name, addressSpace: addressSpace, required: required}
}

// Name implements Map.
func (m *PermissionMap) Name() string { return m.name }

// AddressSpace implements Map.
func (m *PermissionMap) AddressSpace() string { return m.addressSpace }

// Ranges implements Map.
func (m *PermissionMap) Ranges() []rangeset.Range { return m.ranges.Parts() }

// TryCombine implements Map.
func (m *PermissionMap) TryCombine(o capability.Oracle, cap capability.Capability) bool {
	if !o.Tag(cap) {
		return false
	}

	if !o.Permissions(cap).Has(m.required) {
		return false
	}

	m.ranges.Combine(capability.RangeFromCap(o, cap))

	return true
}

var _ Map = (*PermissionMap)(nil)
