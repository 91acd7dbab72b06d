package capmap

import (
	"testing"

	"github.com/arm64lab/capmap/pkg/capability"
	"github.com/arm64lab/capmap/pkg/rangeset"
)

func Test_LoadCapMap_Accepts_Tagged_Unsealed_LoadCap_Capability(t *testing.T) {
	t.Parallel()

	o := capability.NewSimulated(16)
	m := NewLoadCapMap(16, rangeset.SparseRange{})

	cap := capability.NewCapability(0x1001, 0x20, false, capability.PermLoad|capability.PermLoadCap, false, 0)

	if !m.TryCombine(o, cap) {
		t.Fatalf("TryCombine() = false, want true")
	}

	// Bounds [0x1001, 0x1020] shrunk to 16-byte alignment: base rounds up
	// to 0x1010, limit (0x1021) rounds down to 0x1020, so [0x1010, 0x101f].
	got := m.Ranges()
	if len(got) != 1 || got[0] != rangeset.FromBaseLast(0x1010, 0x101f) {
		t.Errorf("Ranges() = %v, want [0x1010, 0x101f]", got)
	}
}

func Test_LoadCapMap_Rejects_Sealed_Or_Untagged_Or_Missing_Permission(t *testing.T) {
	t.Parallel()

	o := capability.NewSimulated(16)
	m := NewLoadCapMap(16, rangeset.SparseRange{})

	tests := []struct {
		name string
		cap  capability.Capability
	}{
		{"untagged", capability.Untagged()},
		{"sealed", capability.NewCapability(0, 0x10, false, capability.PermLoad|capability.PermLoadCap, true, 0)},
		{"missing LoadCap", capability.NewCapability(0, 0x10, false, capability.PermLoad, false, 0)},
	}

	for _, tt := range tests {
		if m.TryCombine(o, tt.cap) {
			t.Errorf("%s: TryCombine() = true, want false", tt.name)
		}
	}

	if len(m.Ranges()) != 0 {
		t.Errorf("Ranges() = %v, want empty", m.Ranges())
	}
}

func Test_LoadCapMap_IncludesCap_Reports_Containment_And_Advances_Cont(t *testing.T) {
	t.Parallel()

	o := capability.NewSimulated(16)
	m := NewLoadCapMap(16, rangeset.SparseRange{})

	cap := capability.NewCapability(0x1000, 0x100, false, capability.PermLoad|capability.PermLoadCap, false, 0)
	m.TryCombine(o, cap)

	var cont Address
	if !m.IncludesCap(0x1010, &cont) {
		t.Fatalf("IncludesCap() = false, want true")
	}

	if cont != 0x1020 {
		t.Errorf("cont = 0x%x, want 0x1020", cont)
	}

	if m.IncludesCap(0x2000, &cont) {
		t.Errorf("IncludesCap(0x2000) = true, want false")
	}
}

func Test_LoadMap_Is_A_Superset_Of_LoadCapMap_For_Any_Capability(t *testing.T) {
	t.Parallel()

	o := capability.NewSimulated(16)
	loadCapMap := NewLoadCapMap(16, rangeset.SparseRange{})
	loadMap := NewLoadMap()

	caps := []capability.Capability{
		capability.NewCapability(0x1001, 0x37, false, capability.PermLoad|capability.PermLoadCap, false, 0),
		capability.NewCapability(0x5000, 0x8, false, capability.PermLoad, false, 0), // load-only
	}

	for _, cap := range caps {
		loadCapMap.TryCombine(o, cap)
		loadMap.TryCombine(o, cap)
	}

	loadCapRanges := loadCapMap.SparseRange()
	loadRanges := rangeset.New(loadMap.Ranges()...)

	if !loadRanges.IncludesSet(loadCapRanges) {
		t.Errorf("LoadMap.Ranges() = %v, does not include LoadCapMap.Ranges() = %v",
			loadMap.Ranges(), loadCapMap.Ranges())
	}
}

func Test_PermissionMap_Accepts_Sealed_Capabilities_Carrying_Required_Permissions(t *testing.T) {
	t.Parallel()

	o := capability.NewSimulated(16)
	m := NewPermissionMap("stores", "virtual memory", capability.PermStore)

	sealedCap := capability.NewCapability(0x2000, 0x10, false, capability.PermStore, true, 7)
	if !m.TryCombine(o, sealedCap) {
		t.Errorf("TryCombine(sealed) = false, want true (PermissionMap does not filter on sealed)")
	}

	missingPerm := capability.NewCapability(0x3000, 0x10, false, capability.PermLoad, false, 0)
	if m.TryCombine(o, missingPerm) {
		t.Errorf("TryCombine(missing required perm) = true, want false")
	}
}

func Test_BranchMap_Records_Full_Bounds_For_Unsealed_Executable_Targets(t *testing.T) {
	t.Parallel()

	o := capability.NewSimulated(16)
	m := NewBranchMap("branches", "virtual memory")

	cap := capability.NewCapability(0x4000, 0x100, false, capability.PermExecute|capability.PermLoad, false, 0)
	if !m.TryCombine(o, cap) {
		t.Fatalf("TryCombine() = false, want true")
	}

	want := []rangeset.Range{rangeset.FromBaseLength(0x4000, 0x100)}
	if got := m.Ranges(); len(got) != 1 || got[0] != want[0] {
		t.Errorf("Ranges() = %v, want %v", got, want)
	}
}

func Test_BranchMap_Records_Only_Entry_Point_For_Sentries(t *testing.T) {
	t.Parallel()

	o := capability.NewSimulated(16)
	m := NewBranchMap("branches", "virtual memory")

	sentry := capability.NewCapability(0x4040, 0x100, false, 0, true, capability.ObjectTypeSentry)
	if !m.TryCombine(o, sentry) {
		t.Fatalf("TryCombine(sentry) = false, want true")
	}

	want := rangeset.FromBaseLast(0x4040, 0x4040)
	if got := m.Ranges(); len(got) != 1 || got[0] != want {
		t.Errorf("Ranges() = %v, want [%v]", got, want)
	}
}

func Test_BranchMap_Rejects_Sealed_Non_Sentry_And_Non_Executable(t *testing.T) {
	t.Parallel()

	o := capability.NewSimulated(16)
	m := NewBranchMap("branches", "virtual memory")

	sealedDataObject := capability.NewCapability(0x4000, 0x10, false, 0, true, 99)
	if m.TryCombine(o, sealedDataObject) {
		t.Errorf("TryCombine(sealed data object) = true, want false")
	}

	notExecutable := capability.NewCapability(0x4000, 0x10, false, capability.PermLoad, false, 0)
	if m.TryCombine(o, notExecutable) {
		t.Errorf("TryCombine(non-executable) = true, want false")
	}

	if len(m.Ranges()) != 0 {
		t.Errorf("Ranges() = %v, want empty", m.Ranges())
	}
}

func Test_PoisonMap_Invokes_Callback_Exactly_Once_When_Bounds_Overlap_Poison(t *testing.T) {
	t.Parallel()

	o := capability.NewSimulated(16)
	poison := rangeset.New(rangeset.FromBaseLast(0x5000, 0x5fff))

	var calls int

	m := NewPoisonMap("heap", "virtual memory", capability.PermLoad, poison, func(capability.Capability) {
		calls++
	})

	overlapping := capability.NewCapability(0x5800, 0x100, false, capability.PermLoad, false, 0)
	if !m.TryCombine(o, overlapping) {
		t.Fatalf("TryCombine() = false, want true")
	}

	if calls != 1 {
		t.Errorf("callback invoked %d times, want 1", calls)
	}

	nonOverlapping := capability.NewCapability(0x9000, 0x100, false, capability.PermLoad, false, 0)
	m.TryCombine(o, nonOverlapping)

	if calls != 1 {
		t.Errorf("callback invoked %d times after non-overlapping accept, want 1", calls)
	}
}

func Test_PoisonMap_Classifies_Like_PermissionMap_Without_A_Callback(t *testing.T) {
	t.Parallel()

	o := capability.NewSimulated(16)
	m := NewPoisonMap("heap", "virtual memory", capability.PermLoad, rangeset.SparseRange{}, nil)

	cap := capability.NewCapability(0x5000, 0x10, false, capability.PermLoad, false, 0)
	if !m.TryCombine(o, cap) {
		t.Fatalf("TryCombine() = false, want true")
	}

	if len(m.Ranges()) != 1 {
		t.Errorf("Ranges() = %v, want one entry", m.Ranges())
	}
}
