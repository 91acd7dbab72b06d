// Package mapper implements the traversal engine that walks the
// closure of capabilities reachable from a set of roots, feeding every
// visited capability to a sequence of user-installed Maps.
package mapper

import (
	"errors"
	"fmt"
	"math"

	"github.com/arm64lab/capmap/internal/osmap"
	"github.com/arm64lab/capmap/pkg/capability"
	"github.com/arm64lab/capmap/pkg/capmap"
	"github.com/arm64lab/capmap/pkg/rangeset"
)

// Address is a position in the address space a Mapper scans.
type Address = rangeset.Address

// MaxScanDepthUnbounded is the default max scan depth: no limit.
const MaxScanDepthUnbounded = math.MaxUint64

// Mapper is the traversal engine. It is not reentrant: calling Scan (or
// ScanRoots) on a Mapper from inside a PoisonMap callback installed on
// it is undefined, and a Mapper must not be scanned from two
// goroutines concurrently.
type Mapper struct {
	oracle capability.Oracle

	include     rangeset.SparseRange
	excludeSelf rangeset.SparseRange
	loadCapMap  *capmap.LoadCapMap
	maps        []capmap.Map
	roots       []NamedRoot

	maxScanDepth     Address
	maxSeenScanDepth Address
}

// New constructs a Mapper that only scans memory within include, using
// o to interpret capabilities. The mandatory LoadCapMap starts empty;
// max scan depth starts unbounded.
func New(o capability.Oracle, include rangeset.SparseRange) *Mapper {
	return &Mapper{
		oracle:       o,
		include:      include.Clone(),
		loadCapMap:   capmap.NewLoadCapMap(o.CapWidth(), include.Clone()),
		maxScanDepth: MaxScanDepthUnbounded,
	}
}

// NewWithOSDefault constructs a Mapper whose include is seeded from the
// OS mapping query (internal/osmap.Default), the OS-provided default
// inclusion described in spec §6.
func NewWithOSDefault(o capability.Oracle) (*Mapper, error) {
	include, err := osmap.Default()
	if err != nil {
		return nil, fmt.Errorf("mapper: building default include: %w", err)
	}

	return New(o, include), nil
}

// AddMap installs m, in sequence, as an additional classifier every
// visited capability is fed to. A nil Map is a caller bug, not a
// recoverable condition, and panics immediately rather than failing
// later at TryCombine time.
func (m *Mapper) AddMap(mp capmap.Map) {
	if mp == nil {
		panic("mapper: AddMap: nil Map")
	}

	m.maps = append(m.maps, mp)
}

// SetMaxScanDepth bounds the recursion depth. Classification (Map
// updates) still happens at the bounding depth; only recursion stops.
func (m *Mapper) SetMaxScanDepth(n Address) {
	m.maxScanDepth = n
}

// MaxSeenScanDepth returns the deepest depth observed across every
// scan performed so far.
func (m *Mapper) MaxSeenScanDepth() Address {
	return m.maxSeenScanDepth
}

// LoadCapMap returns the mandatory map.
func (m *Mapper) LoadCapMap() *capmap.LoadCapMap {
	return m.loadCapMap
}

// Maps returns the user-installed classifiers, in installation order.
func (m *Mapper) Maps() []capmap.Map {
	return append([]capmap.Map(nil), m.maps...)
}

// Roots returns every root capability scanned so far, for reporting.
func (m *Mapper) Roots() []NamedRoot {
	return append([]NamedRoot(nil), m.roots...)
}

// Include returns the regions eligible for scanning.
func (m *Mapper) Include() rangeset.SparseRange {
	return m.include.Clone()
}

// Scan is the entry point for a single root capability. It refreshes
// self-exclusion, silently ignores untagged roots (zero-initialized
// registers are common and not an error), records the root for
// reporting, and descends. A returned error always wraps
// capability.ErrFault: the in-process CHERI scanner has no way to
// recover from a real fault (spec §5), but the pure-Go Simulated
// oracle represents "load past backing store" as a returned error
// instead of a process crash, so the failure path is testable.
func (m *Mapper) Scan(cap capability.Capability, name string) error {
	m.refreshExcludeSelf()

	if !m.oracle.Tag(cap) {
		return nil
	}

	m.roots = append(m.roots, NamedRoot{Name: name, Cap: cap})

	return m.scanRecursive(cap, 0)
}

// ScanRoots scans every root in roots, in its fixed order, stopping at
// the first one that returns an error.
func (m *Mapper) ScanRoots(roots Roots) error {
	for _, nr := range roots.Named() {
		if err := m.Scan(nr.Cap, nr.Name); err != nil {
			return fmt.Errorf("mapper: scanning root %q: %w", nr.Name, err)
		}
	}

	return nil
}

// refreshExcludeSelf recomputes the Mapper's own byte range so the
// scanner never descends into its own state. This is best-effort: heap
// allocations the Mapper performs between calls are not excluded.
func (m *Mapper) refreshExcludeSelf() {
	m.excludeSelf = rangeset.New(rangeset.FromObject(m))
}

// scanRecursive implements spec §4.5's recursive descent.
func (m *Mapper) scanRecursive(cap capability.Capability, depth Address) error {
	if depth > m.maxSeenScanDepth {
		m.maxSeenScanDepth = depth
	}

	// Classification happens regardless of include filters or depth: an
	// out-of-range destination is still worth reporting.
	for _, mp := range m.maps {
		mp.TryCombine(m.oracle, cap)
	}

	scanRegion := rangeset.New(capability.RangeFromCap(m.oracle, cap))
	scanRegion.RemoveSet(m.loadCapMap.SparseRange())
	scanRegion.RemoveSet(m.excludeSelf)
	scanRegion.RemoveSet(m.include.Complement())

	if !m.loadCapMap.TryCombine(m.oracle, cap) {
		return nil // not load-cap-capable: descent impossible
	}

	if depth >= m.maxScanDepth {
		return nil // classifier ran, map updated, but no recursion
	}

	capWidth := m.oracle.CapWidth()

	for _, region := range scanRegion.Parts() {
		if err := m.scanRegion(cap, region.ShrinkToAlignment(capWidth), depth); err != nil {
			return err
		}
	}

	return nil
}

// scanRegion walks every capability-word address in region, loading
// each through cap's authority and recursing into tagged results.
func (m *Mapper) scanRegion(cap capability.Capability, region rangeset.Range, depth Address) error {
	if region.IsEmpty() {
		return nil
	}

	capWidth := m.oracle.CapWidth()

	for a := region.Base(); ; {
		candidate, err := m.oracle.LoadCapAt(cap, a)

		switch {
		case errors.Is(err, capability.ErrFault):
			// A fault loading through the include filter's own window is
			// fatal by design (spec §5/§7): the caller misconfigured
			// include to cover memory the process cannot actually read.
			return fmt.Errorf("mapper: fault loading capability at 0x%x: %w", a, err)
		case err != nil:
			// Defensive only: ErrNotAuthorized/ErrMisaligned should not
			// occur here since cap already passed LoadCapMap and a is
			// alignment-shrunk. Treat as a miss, matching "untagged or
			// malformed capabilities are silently ignored" (spec §7).
		case m.oracle.Tag(candidate):
			if err := m.scanRecursive(candidate, depth+1); err != nil {
				return err
			}
		}

		if a == region.Last() {
			break
		}

		a += capWidth
	}

	return nil
}
