// Package simfixture loads a HuJSON fixture describing a complete
// capability.Simulated oracle: mounted memory, the capability values
// stored in it, and a set of named roots to scan from. It exists
// because no published Go toolchain can read real Morello capability
// registers or tagged memory (see internal/arch's capmap_morello
// stub), so exercising cmd/capmap end-to-end on a stock build means
// supplying the "hardware state" as data instead.
package simfixture

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tailscale/hujson"
	"golang.org/x/sys/unix"

	"github.com/arm64lab/capmap/internal/arch"
	"github.com/arm64lab/capmap/pkg/capability"
	"github.com/arm64lab/capmap/pkg/capmap"
	"github.com/arm64lab/capmap/pkg/mapper"
	"github.com/arm64lab/capmap/pkg/rangeset"
)

// ErrInvalidFixture classifies every fixture-loading failure.
var ErrInvalidFixture = errors.New("simfixture: invalid fixture")

// CapabilitySpec describes a single capability value in JSON.
type CapabilitySpec struct {
	Base        string   `json:"base"`
	Length      string   `json:"length,omitempty"`
	LengthFull  bool     `json:"length_full,omitempty"` //nolint:tagliatelle // snake_case for config file
	Permissions []string `json:"permissions,omitempty"`
	Sealed      bool     `json:"sealed,omitempty"`
	ObjectType  string   `json:"object_type,omitempty"` //nolint:tagliatelle // snake_case for config file
}

// MountSpec describes one backed (readable) memory region.
type MountSpec struct {
	Base   string `json:"base"`
	Length string `json:"length"`
}

// MemorySpec places a capability value at an address.
type MemorySpec struct {
	Address string         `json:"address"`
	Value   CapabilitySpec `json:"value"`
}

// RootSpec names a root capability.
type RootSpec struct {
	Name  string         `json:"name"`
	Value CapabilitySpec `json:"value"`
}

// RegisterSpec mirrors mapper.Roots: the full register file a real
// internal/arch.Harvester would read off a live thread. It is optional
// and additive to Roots — present so a fixture can exercise the
// arch.Harvester wiring (simfixture stands in for the register harvest
// the same way it already stands in for tagged memory) instead of
// naming roots directly.
type RegisterSpec struct {
	C      [31]CapabilitySpec `json:"c,omitempty"`
	CSP    CapabilitySpec     `json:"csp,omitempty"`
	DDC    CapabilitySpec     `json:"ddc,omitempty"`
	PCC    CapabilitySpec     `json:"pcc,omitempty"`
	CIDEL0 CapabilitySpec     `json:"cid_el0,omitempty"` //nolint:tagliatelle // snake_case for config file
}

// Fixture is the top-level document shape.
type Fixture struct {
	CapWidth  uint64        `json:"cap_width,omitempty"` //nolint:tagliatelle // snake_case for config file
	Mounted   []MountSpec   `json:"mounted,omitempty"`
	Memory    []MemorySpec  `json:"memory,omitempty"`
	Roots     []RootSpec    `json:"roots"`
	Registers *RegisterSpec `json:"registers,omitempty"`
}

// Loaded is the product of building a Fixture: a ready Oracle and its
// named roots, in file order.
type Loaded struct {
	Oracle *capability.Simulated
	Roots  []mapper.NamedRoot
}

// Load parses a HuJSON fixture document and builds its Simulated
// oracle and named roots. Defaults to a 16-byte capability width when
// cap_width is unset or zero.
func Load(data []byte) (Loaded, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Loaded{}, fmt.Errorf("%w: invalid JSONC: %w", ErrInvalidFixture, err)
	}

	var f Fixture
	if err := json.Unmarshal(standardized, &f); err != nil {
		return Loaded{}, fmt.Errorf("%w: %w", ErrInvalidFixture, err)
	}

	capWidth := f.CapWidth
	if capWidth == 0 {
		capWidth = 16
	}

	o := capability.NewSimulated(capWidth)

	for _, m := range f.Mounted {
		r, err := toRange(m.Base, m.Length)
		if err != nil {
			return Loaded{}, err
		}

		o.Mount(r)
	}

	for _, m := range f.Memory {
		addr, err := capmap.ParseHexAddress(m.Address)
		if err != nil {
			return Loaded{}, err
		}

		cap, err := toCapability(m.Value)
		if err != nil {
			return Loaded{}, err
		}

		o.StoreCapability(addr, cap)
	}

	roots := make([]mapper.NamedRoot, 0, len(f.Roots))

	for _, r := range f.Roots {
		cap, err := toCapability(r.Value)
		if err != nil {
			return Loaded{}, err
		}

		roots = append(roots, mapper.NamedRoot{Name: r.Name, Cap: cap})
	}

	if f.Registers != nil {
		harvested, err := harvestRegisters(*f.Registers)
		if err != nil {
			return Loaded{}, err
		}

		roots = append(roots, harvested...)
	}

	return Loaded{Oracle: o, Roots: roots}, nil
}

// harvestRegisters converts a RegisterSpec into a mapper.Roots and runs
// it through an arch.Harvester exactly as cmd/capmap would on real
// hardware: seed a Simulated harvester keyed by the calling thread's
// id (read through golang.org/x/sys/unix, the same collaborator
// internal/osmap already uses unconditionally) and harvest it back,
// rather than handing the built Roots to the caller directly.
func harvestRegisters(spec RegisterSpec) ([]mapper.NamedRoot, error) {
	var roots mapper.Roots

	for i, c := range spec.C {
		cap, err := toCapabilityOrZero(c)
		if err != nil {
			return nil, err
		}

		roots.C[i] = cap
	}

	var err error

	if roots.CSP, err = toCapabilityOrZero(spec.CSP); err != nil {
		return nil, err
	}

	if roots.DDC, err = toCapabilityOrZero(spec.DDC); err != nil {
		return nil, err
	}

	if roots.PCC, err = toCapabilityOrZero(spec.PCC); err != nil {
		return nil, err
	}

	if roots.CIDEL0, err = toCapabilityOrZero(spec.CIDEL0); err != nil {
		return nil, err
	}

	tid := unix.Gettid()

	h := arch.NewSimulated()
	h.Seed(tid, roots)

	harvested, err := h.Harvest(tid)
	if err != nil {
		return nil, fmt.Errorf("%w: harvesting registers: %w", ErrInvalidFixture, err)
	}

	return harvested.Named(), nil
}

// toCapabilityOrZero treats an empty Base as "register not set by this
// fixture" and returns the untagged zero Capability instead of
// attempting to parse "" as a hex address.
func toCapabilityOrZero(spec CapabilitySpec) (capability.Capability, error) {
	if spec.Base == "" {
		return capability.Capability{}, nil
	}

	return toCapability(spec)
}

func toRange(base, length string) (rangeset.Range, error) {
	b, err := capmap.ParseHexAddress(base)
	if err != nil {
		return rangeset.Range{}, err
	}

	n, err := capmap.ParseHexAddress(length)
	if err != nil {
		return rangeset.Range{}, err
	}

	return rangeset.FromBaseLength(b, n), nil
}

func toCapability(spec CapabilitySpec) (capability.Capability, error) {
	base, err := capmap.ParseHexAddress(spec.Base)
	if err != nil {
		return capability.Capability{}, err
	}

	var length capability.Address
	if spec.Length != "" {
		length, err = capmap.ParseHexAddress(spec.Length)
		if err != nil {
			return capability.Capability{}, err
		}
	}

	var otype uint64
	if spec.ObjectType != "" {
		v, err := capmap.ParseHexAddress(spec.ObjectType)
		if err != nil {
			return capability.Capability{}, err
		}

		otype = v
	}

	perms, err := capmap.ParsePermissions(spec.Permissions)
	if err != nil {
		return capability.Capability{}, err
	}

	return capability.NewCapability(base, length, spec.LengthFull, perms, spec.Sealed, otype), nil
}
