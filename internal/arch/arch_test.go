package arch

import (
	"errors"
	"testing"

	"github.com/arm64lab/capmap/pkg/capability"
)

func Test_Simulated_Harvest_Returns_Seeded_Roots(t *testing.T) {
	t.Parallel()

	sim := NewSimulated()
	o := capability.NewSimulated(16)
	pcc := capability.NewCapability(0x1000, 0x100, false, capability.PermExecute|capability.PermLoad, false, 0)

	roots := RootsFromCapabilities(capability.Capability{}, capability.Capability{}, pcc, capability.Capability{})
	sim.Seed(42, roots)

	got, err := sim.Harvest(42)
	if err != nil {
		t.Fatalf("Harvest() err = %v, want nil", err)
	}

	if !o.Tag(got.PCC) {
		t.Errorf("Harvest().PCC untagged, want the seeded PCC")
	}
}

func Test_Simulated_Harvest_Rejects_Unknown_Thread(t *testing.T) {
	t.Parallel()

	sim := NewSimulated()

	_, err := sim.Harvest(7)
	if !errors.Is(err, ErrUnknownThread) {
		t.Errorf("err = %v, want ErrUnknownThread", err)
	}
}
