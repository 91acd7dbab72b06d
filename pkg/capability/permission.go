package capability

import "strings"

// Permission is a bitset of the architectural rights a capability may
// carry. Names follow the CHERI/Morello permission bits relevant to
// map classification; the full hardware encoding carries more bits
// than the core ever inspects.
type Permission uint32

const (
	// PermLoad permits ordinary (non-capability) loads through the capability.
	PermLoad Permission = 1 << iota
	// PermStore permits ordinary stores.
	PermStore
	// PermLoadCap permits loading a tagged capability out of memory, the
	// additional right beyond PermLoad required to pull a capability
	// out of memory (see LoadCap permission in the glossary).
	PermLoadCap
	// PermStoreCap permits storing a tagged capability into memory.
	PermStoreCap
	// PermExecute permits using the capability as a program-counter bound.
	PermExecute
	// PermGlobal marks the capability storable through a non-local capability.
	PermGlobal
	// PermSeal permits sealing other capabilities with this one as authority.
	PermSeal
	// PermUnseal permits unsealing capabilities sealed with this authority.
	PermUnseal
	// PermBranchSealedPair permits branching directly into a sealed pair
	// (a sentry) without a separate unseal step.
	PermBranchSealedPair
	// PermCompartmentID permits reading the compartment-id register.
	PermCompartmentID
	// PermMutableLoad permits loading capabilities with their Store
	// permission intact (as opposed to loading them read-only).
	PermMutableLoad
)

var permissionNames = []struct {
	bit  Permission
	name string
}{
	{PermLoad, "Load"},
	{PermStore, "Store"},
	{PermLoadCap, "LoadCap"},
	{PermStoreCap, "StoreCap"},
	{PermExecute, "Execute"},
	{PermGlobal, "Global"},
	{PermSeal, "Seal"},
	{PermUnseal, "Unseal"},
	{PermBranchSealedPair, "BranchSealedPair"},
	{PermCompartmentID, "CompartmentID"},
	{PermMutableLoad, "MutableLoad"},
}

// Has reports whether p carries every permission set in required.
func (p Permission) Has(required Permission) bool {
	return p&required == required
}

// String renders the set bits as a "|"-joined list of names, or "none".
func (p Permission) String() string {
	if p == 0 {
		return "none"
	}

	var names []string

	for _, n := range permissionNames {
		if p.Has(n.bit) {
			names = append(names, n.name)
		}
	}

	return strings.Join(names, "|")
}
