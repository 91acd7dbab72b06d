//go:build capmap_morello

package arch

import "github.com/arm64lab/capmap/pkg/mapper"

// Hardware is the real-register Harvester for a capmap_morello build.
// This hook point is intentionally left unimplemented: reading a live
// thread's capability register file requires a ptrace(2)-style
// PEEKUSER/GETREGSET call this repository cannot exercise without a
// real Morello target, and golang.org/x/sys/unix does not (as of this
// writing) expose a capability-aware register set constant to request
// one. A real port would call unix.PtraceGetRegSet with a
// Morello-specific NT_ constant here and decode the 31 general-purpose
// capability registers plus CSP/DDC/PCC/CID_EL0 into a mapper.Roots.
type Hardware struct{}

// NewHardware constructs the hardware Harvester.
func NewHardware() *Hardware {
	return &Hardware{}
}

// Harvest implements Harvester. Unimplemented pending a real target.
func (h *Hardware) Harvest(tid int) (mapper.Roots, error) {
	return mapper.Roots{}, ErrUnsupportedArch
}

var _ Harvester = (*Hardware)(nil)
