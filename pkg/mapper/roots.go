package mapper

import (
	"strconv"

	"github.com/arm64lab/capmap/pkg/capability"
)

// Roots is a flat record of the named capability slots harvested from
// a thread's live registers: 31 general-purpose registers, the stack
// capability, the default-data capability, the program-counter
// capability, and the compartment-id capability. Harvesting itself is
// architecture-specific and lives in internal/arch; the Mapper only
// ever consumes a populated Roots by name.
type Roots struct {
	C      [31]capability.Capability // c0...c30
	CSP    capability.Capability
	DDC    capability.Capability
	PCC    capability.Capability
	CIDEL0 capability.Capability
}

// NamedRoot pairs a root's fixed name with its capability value.
type NamedRoot struct {
	Name string
	Cap  capability.Capability
}

// Named returns every root as a (name, capability) pair, in the fixed
// order ScanRoots iterates: c0..c30, csp, ddc, pcc, cid_el0.
func (r Roots) Named() []NamedRoot {
	out := make([]NamedRoot, 0, len(r.C)+4)

	for i, c := range r.C {
		out = append(out, NamedRoot{Name: registerName(i), Cap: c})
	}

	out = append(out,
		NamedRoot{Name: "csp", Cap: r.CSP},
		NamedRoot{Name: "ddc", Cap: r.DDC},
		NamedRoot{Name: "pcc", Cap: r.PCC},
		NamedRoot{Name: "cid_el0", Cap: r.CIDEL0},
	)

	return out
}

func registerName(i int) string {
	return "c" + strconv.Itoa(i)
}
