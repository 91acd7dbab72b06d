// Package harness registers capmap's eight core traversal scenarios
// (spec §8) as named, standalone checks runnable outside `go test`, so
// cmd/capmap-selftest can filter and report them without a Go
// toolchain in the loop.
package harness

import (
	"fmt"
	"strings"

	"github.com/arm64lab/capmap/pkg/capability"
	"github.com/arm64lab/capmap/pkg/capmap"
	"github.com/arm64lab/capmap/pkg/mapper"
	"github.com/arm64lab/capmap/pkg/rangeset"
)

// Result is the outcome of running one Scenario.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Scenario is a single named, self-contained check.
type Scenario struct {
	Name string
	Desc string
	run  func() Result
}

// Run executes the scenario.
func (s Scenario) Run() Result {
	return s.run()
}

// All returns every registered scenario, in a fixed order matching
// spec §8's enumeration.
func All() []Scenario {
	return []Scenario{
		excludeAllScenario(),
		nestedNotDetectedScenario(),
		nestedDetectedScenario(),
		depthLimitScenario(),
		selfReferenceScenario(),
		cycleScenario(),
		loadMapSupersetScenario(),
		poisonMapScenario(),
	}
}

// Filter returns the scenarios whose Name contains any of filters as a
// case-sensitive substring. An empty filters list returns every
// scenario.
func Filter(all []Scenario, filters []string) []Scenario {
	if len(filters) == 0 {
		return all
	}

	var out []Scenario

	for _, s := range all {
		for _, f := range filters {
			if strings.Contains(s.Name, f) {
				out = append(out, s)
				break
			}
		}
	}

	return out
}

func pass(name, detail string) Result {
	return Result{Name: name, Passed: true, Detail: detail}
}

func fail(name, format string, args ...any) Result {
	return Result{Name: name, Passed: false, Detail: fmt.Sprintf(format, args...)}
}

// mustScan runs m.Scan and returns a non-nil failing *Result if it
// returns an unexpected error, so scenarios that expect a clean scan
// surface an Oracle fault instead of silently dropping it.
func mustScan(name string, m *mapper.Mapper, cap capability.Capability, rootName string) *Result {
	if err := m.Scan(cap, rootName); err != nil {
		r := fail(name, "Scan(%q) err = %v, want nil", rootName, err)
		return &r
	}

	return nil
}

const capWidth = capability.Address(16)

func rw(o *capability.Simulated, base, length capability.Address) capability.Capability {
	o.Mount(rangeset.FromBaseLength(base, length))

	return capability.NewCapability(base, length, false, capability.PermLoad|capability.PermLoadCap, false, 0)
}

func boundsOf(base, length capability.Address) rangeset.Range {
	return rangeset.FromBaseLength(base, length)
}

func excludeAllScenario() Scenario {
	return Scenario{
		Name: "exclude-all",
		Desc: "empty include set: only the root's own bounds are ever recorded",
		run: func() Result {
			const name = "exclude-all"

			o := capability.NewSimulated(capWidth)

			bufBase, bufLen := capability.Address(0x2000), 4*capWidth
			buf := rw(o, bufBase, bufLen)

			other := rw(o, capability.Address(0x9000), capWidth)
			o.StoreCapability(bufBase, other)

			m := mapper.New(o, rangeset.SparseRange{})
			if r := mustScan(name, m, buf, "&buffer"); r != nil {
				return *r
			}

			got := m.LoadCapMap().Ranges()
			want := boundsOf(bufBase, bufLen)

			if len(got) != 1 || got[0] != want {
				return fail(name, "LoadCapMap().Ranges() = %v, want [%v]", got, want)
			}

			if m.MaxSeenScanDepth() != 0 {
				return fail(name, "MaxSeenScanDepth() = %d, want 0", m.MaxSeenScanDepth())
			}

			return pass(name, "root range recorded, depth stayed at 0")
		},
	}
}

func nestedNotDetectedScenario() Scenario {
	return Scenario{
		Name: "nested-not-detected",
		Desc: "excluded nested object is classified but not descended into",
		run: func() Result {
			const name = "nested-not-detected"

			o := capability.NewSimulated(capWidth)

			bufBase := capability.Address(0x1000)
			nestedBase := capability.Address(0x3000)
			notDetectedBase := capability.Address(0x5000)

			buf := rw(o, bufBase, capWidth)
			nested := rw(o, nestedBase, capWidth)
			notDetected := rw(o, notDetectedBase, capWidth)

			o.StoreCapability(bufBase, nested)
			o.StoreCapability(nestedBase, notDetected)

			include := rangeset.New(boundsOf(bufBase, capWidth), boundsOf(notDetectedBase, capWidth))

			m := mapper.New(o, include)
			if r := mustScan(name, m, buf, "&buffer"); r != nil {
				return *r
			}

			got := rangeset.New(m.LoadCapMap().Ranges()...)

			if !got.Includes(boundsOf(bufBase, capWidth)) || !got.Includes(boundsOf(nestedBase, capWidth)) {
				return fail(name, "LoadCapMap does not cover buffer and nested: %v", got)
			}

			if got.Overlaps(boundsOf(notDetectedBase, capWidth)) {
				return fail(name, "LoadCapMap unexpectedly covers not_detected: %v", got)
			}

			if m.MaxSeenScanDepth() != 1 {
				return fail(name, "MaxSeenScanDepth() = %d, want 1", m.MaxSeenScanDepth())
			}

			return pass(name, "buffer and nested covered, not_detected absent, depth 1")
		},
	}
}

func nestedDetectedScenario() Scenario {
	return Scenario{
		Name: "nested-detected",
		Desc: "fully included chain of three objects is discovered entirely",
		run: func() Result {
			const name = "nested-detected"

			o := capability.NewSimulated(capWidth)

			bufBase := capability.Address(0x1000)
			nestedBase := capability.Address(0x3000)
			notDetectedBase := capability.Address(0x5000)

			buf := rw(o, bufBase, capWidth)
			nested := rw(o, nestedBase, capWidth)
			notDetected := rw(o, notDetectedBase, capWidth)

			o.StoreCapability(bufBase, nested)
			o.StoreCapability(nestedBase, notDetected)

			include := rangeset.New(
				boundsOf(bufBase, capWidth),
				boundsOf(nestedBase, capWidth),
				boundsOf(notDetectedBase, capWidth),
			)

			m := mapper.New(o, include)
			if r := mustScan(name, m, buf, "&buffer"); r != nil {
				return *r
			}

			got := rangeset.New(m.LoadCapMap().Ranges()...)

			for _, want := range []rangeset.Range{
				boundsOf(bufBase, capWidth),
				boundsOf(nestedBase, capWidth),
				boundsOf(notDetectedBase, capWidth),
			} {
				if !got.Includes(want) {
					return fail(name, "LoadCapMap does not cover %v: %v", want, got)
				}
			}

			if m.MaxSeenScanDepth() != 2 {
				return fail(name, "MaxSeenScanDepth() = %d, want 2", m.MaxSeenScanDepth())
			}

			return pass(name, "all three objects covered, depth 2")
		},
	}
}

func depthLimitScenario() Scenario {
	return Scenario{
		Name: "depth-limit",
		Desc: "max scan depth stops recursion before the deepest object",
		run: func() Result {
			const name = "depth-limit"

			o := capability.NewSimulated(capWidth)

			bufBase := capability.Address(0x1000)
			nestedBase := capability.Address(0x3000)
			tooDeepBase := capability.Address(0x5000)

			buf := rw(o, bufBase, capWidth)
			nested := rw(o, nestedBase, capWidth)
			tooDeep := rw(o, tooDeepBase, capWidth)

			o.StoreCapability(bufBase, nested)
			o.StoreCapability(nestedBase, tooDeep)

			include := rangeset.New(
				boundsOf(bufBase, capWidth),
				boundsOf(nestedBase, capWidth),
				boundsOf(tooDeepBase, capWidth),
			)

			m := mapper.New(o, include)
			m.SetMaxScanDepth(1)
			if r := mustScan(name, m, buf, "&buffer"); r != nil {
				return *r
			}

			got := rangeset.New(m.LoadCapMap().Ranges()...)

			if !got.Includes(boundsOf(bufBase, capWidth)) || !got.Includes(boundsOf(nestedBase, capWidth)) {
				return fail(name, "LoadCapMap does not cover buffer and nested: %v", got)
			}

			if got.Overlaps(boundsOf(tooDeepBase, capWidth)) {
				return fail(name, "LoadCapMap unexpectedly covers too_deep: %v", got)
			}

			if m.MaxSeenScanDepth() != 1 {
				return fail(name, "MaxSeenScanDepth() = %d, want 1", m.MaxSeenScanDepth())
			}

			return pass(name, "recursion stopped at the depth bound, too_deep untouched")
		},
	}
}

func selfReferenceScenario() Scenario {
	return Scenario{
		Name: "self-reference",
		Desc: "a capability pointing at its own storage records exactly one range",
		run: func() Result {
			const name = "self-reference"

			o := capability.NewSimulated(capWidth)

			aBase := capability.Address(0x4000)
			a := rw(o, aBase, capWidth)
			o.StoreCapability(aBase, a)

			m := mapper.New(o, rangeset.New(boundsOf(aBase, capWidth)))
			if r := mustScan(name, m, a, "a"); r != nil {
				return *r
			}

			got := m.LoadCapMap().Ranges()
			want := boundsOf(aBase, capWidth)

			if len(got) != 1 || got[0] != want {
				return fail(name, "LoadCapMap().Ranges() = %v, want [%v]", got, want)
			}

			if m.MaxSeenScanDepth() != 1 {
				return fail(name, "MaxSeenScanDepth() = %d, want 1", m.MaxSeenScanDepth())
			}

			return pass(name, "exactly one range recorded, depth 1")
		},
	}
}

func cycleScenario() Scenario {
	return Scenario{
		Name: "cycle",
		Desc: "a two-node capability cycle terminates on the second hop",
		run: func() Result {
			const name = "cycle"

			o := capability.NewSimulated(capWidth)

			aBase, bBase := capability.Address(0x1000), capability.Address(0x2000)
			a := rw(o, aBase, capWidth)
			b := rw(o, bBase, capWidth)

			o.StoreCapability(aBase, b)
			o.StoreCapability(bBase, a)

			include := rangeset.New(boundsOf(aBase, capWidth), boundsOf(bBase, capWidth))

			m := mapper.New(o, include)
			if r := mustScan(name, m, a, "a"); r != nil {
				return *r
			}

			got := rangeset.New(m.LoadCapMap().Ranges()...)

			if !got.Includes(boundsOf(aBase, capWidth)) || !got.Includes(boundsOf(bBase, capWidth)) {
				return fail(name, "LoadCapMap does not cover both a and b: %v", got)
			}

			if m.MaxSeenScanDepth() != 2 {
				return fail(name, "MaxSeenScanDepth() = %d, want 2", m.MaxSeenScanDepth())
			}

			return pass(name, "cycle closed cleanly, depth 2")
		},
	}
}

func loadMapSupersetScenario() Scenario {
	return Scenario{
		Name: "loadmap-superset",
		Desc: "LoadMap always covers at least everything LoadCapMap does",
		run: func() Result {
			const name = "loadmap-superset"

			o := capability.NewSimulated(capWidth)

			bufBase, nestedBase := capability.Address(0x1000), capability.Address(0x3000)
			buf := rw(o, bufBase, capWidth)
			nested := rw(o, nestedBase, capWidth)
			o.StoreCapability(bufBase, nested)

			include := rangeset.New(boundsOf(bufBase, capWidth), boundsOf(nestedBase, capWidth))

			m := mapper.New(o, include)
			loadMap := capmap.NewLoadMap()
			m.AddMap(loadMap)
			if r := mustScan(name, m, buf, "&buffer"); r != nil {
				return *r
			}

			loadSet := rangeset.New(loadMap.Ranges()...)
			loadCapSet := rangeset.New(m.LoadCapMap().Ranges()...)

			if !loadSet.IncludesSet(loadCapSet) {
				return fail(name, "LoadMap %v does not include LoadCapMap %v", loadSet, loadCapSet)
			}

			return pass(name, "LoadMap includes every LoadCapMap range")
		},
	}
}

func poisonMapScenario() Scenario {
	return Scenario{
		Name: "poisonmap",
		Desc: "PoisonMap fires only when the poisoned node is actually reachable",
		run: func() Result {
			const name = "poisonmap"

			const nodeCount = 16

			nodeBase := func(i int) capability.Address { return capability.Address(0x10000 + i*0x100) }

			o := capability.NewSimulated(capWidth)

			nodes := make([]capability.Capability, nodeCount)
			for i := 0; i < nodeCount; i++ {
				nodes[i] = rw(o, nodeBase(i), capWidth)
			}

			for i := 0; i < nodeCount-1; i++ {
				o.StoreCapability(nodeBase(i), nodes[i+1])
			}

			include := rangeset.SparseRange{}
			for i := 0; i < nodeCount; i++ {
				include.Combine(boundsOf(nodeBase(i), capWidth))
			}

			const poisonedIndex = 7

			poison := rangeset.New(boundsOf(nodeBase(poisonedIndex), capWidth))

			newHarness := func() (*mapper.Mapper, *int) {
				fired := 0
				poisonMap := capmap.NewPoisonMap(
					"poisoned", "virtual memory",
					capability.PermLoad|capability.PermLoadCap,
					poison,
					func(capability.Capability) { fired++ },
				)

				m := mapper.New(o, include)
				m.AddMap(poisonMap)

				return m, &fired
			}

			downstreamStart := poisonedIndex + 2

			m, fired := newHarness()
			if r := mustScan(name, m, nodes[downstreamStart], "downstream"); r != nil {
				return *r
			}

			if *fired != 0 {
				return fail(name, "callback fired %d times scanning downstream, want 0", *fired)
			}

			m, fired = newHarness()
			if r := mustScan(name, m, nodes[0], "head"); r != nil {
				return *r
			}

			if *fired == 0 {
				return fail(name, "callback never fired scanning from the head, want at least 1")
			}

			return pass(name, "callback silent downstream, fired scanning from the head")
		},
	}
}
