// Package arch isolates the architecture-specific work of harvesting a
// thread's live capability registers into a mapper.Roots. Harvesting a
// real Morello core's register file requires a debug/ptrace-style
// facility no published Go toolchain exposes; this package ships a
// Simulated backend, built on every target and used by tests and by
// internal/simfixture, while the real-register Hardware harvester only
// exists under the capmap_morello tag (see arm64_morello.go).
package arch

import (
	"github.com/arm64lab/capmap/pkg/capability"
	"github.com/arm64lab/capmap/pkg/mapper"
)

// Harvester reads the live capability registers of a thread into a
// mapper.Roots.
type Harvester interface {
	Harvest(tid int) (mapper.Roots, error)
}

// Simulated is a Harvester backed by a fixed table of thread-id ->
// Roots fixtures, installed with Seed. It never touches real
// registers; it exists so tests and internal/simfixture can supply a
// register file without a real capability-aware core.
type Simulated struct {
	fixtures map[int]mapper.Roots
}

// NewSimulated constructs an empty Simulated harvester.
func NewSimulated() *Simulated {
	return &Simulated{fixtures: make(map[int]mapper.Roots)}
}

// Seed installs the Roots returned for a given thread id.
func (s *Simulated) Seed(tid int, roots mapper.Roots) {
	s.fixtures[tid] = roots
}

// Harvest implements Harvester.
func (s *Simulated) Harvest(tid int) (mapper.Roots, error) {
	roots, ok := s.fixtures[tid]
	if !ok {
		return mapper.Roots{}, ErrUnknownThread
	}

	return roots, nil
}

// RootsFromCapabilities builds a Roots from the given special registers
// and, in order, up to 31 general-purpose registers c0, c1, ...; any
// general-purpose register not supplied stays the untagged zero
// Capability. Extra values beyond c30 are ignored.
func RootsFromCapabilities(csp, ddc, pcc, cidEL0 capability.Capability, c ...capability.Capability) mapper.Roots {
	var roots mapper.Roots

	for i := 0; i < len(roots.C) && i < len(c); i++ {
		roots.C[i] = c[i]
	}

	roots.CSP = csp
	roots.DDC = ddc
	roots.PCC = pcc
	roots.CIDEL0 = cidEL0

	return roots
}

var _ Harvester = (*Simulated)(nil)
