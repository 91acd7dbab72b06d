package capability

import (
	"errors"
	"testing"

	"github.com/arm64lab/capmap/pkg/rangeset"
)

func Test_Simulated_LoadCapAt_Returns_Fault_When_Address_Not_Mounted(t *testing.T) {
	t.Parallel()

	o := NewSimulated(16)
	authority := NewCapability(0, 0, true, PermLoad|PermLoadCap, false, 0)

	_, err := o.LoadCapAt(authority, 0x1000)
	if !errors.Is(err, ErrFault) {
		t.Fatalf("LoadCapAt() err = %v, want ErrFault", err)
	}
}

func Test_Simulated_LoadCapAt_Returns_NotAuthorized_When_Authority_Lacks_LoadCap(t *testing.T) {
	t.Parallel()

	o := NewSimulated(16)
	o.Mount(rangeset.FromBaseLength(0x1000, 0x100))

	authority := NewCapability(0x1000, 0x100, false, PermLoad, false, 0) // no LoadCap

	_, err := o.LoadCapAt(authority, 0x1000)
	if !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("LoadCapAt() err = %v, want ErrNotAuthorized", err)
	}
}

func Test_Simulated_LoadCapAt_Returns_Misaligned_For_Unaligned_Address(t *testing.T) {
	t.Parallel()

	o := NewSimulated(16)
	o.Mount(rangeset.FromBaseLength(0x1000, 0x100))

	authority := NewCapability(0x1000, 0x100, false, PermLoad|PermLoadCap, false, 0)

	_, err := o.LoadCapAt(authority, 0x1001)
	if !errors.Is(err, ErrMisaligned) {
		t.Fatalf("LoadCapAt() err = %v, want ErrMisaligned", err)
	}
}

func Test_Simulated_LoadCapAt_Returns_Untagged_For_Mapped_Address_With_No_Stored_Capability(t *testing.T) {
	t.Parallel()

	o := NewSimulated(16)
	o.Mount(rangeset.FromBaseLength(0x1000, 0x100))

	authority := NewCapability(0x1000, 0x100, false, PermLoad|PermLoadCap, false, 0)

	got, err := o.LoadCapAt(authority, 0x1000)
	if err != nil {
		t.Fatalf("LoadCapAt() err = %v, want nil", err)
	}

	if o.Tag(got) {
		t.Errorf("Tag(got) = true, want false (no capability stored)")
	}
}

func Test_Simulated_LoadCapAt_Returns_Stored_Capability(t *testing.T) {
	t.Parallel()

	o := NewSimulated(16)
	o.Mount(rangeset.FromBaseLength(0x1000, 0x100))

	authority := NewCapability(0x1000, 0x100, false, PermLoad|PermLoadCap, false, 0)
	target := NewCapability(0x2000, 0x40, false, PermLoad, false, 0)

	o.StoreCapability(0x1010, target)

	got, err := o.LoadCapAt(authority, 0x1010)
	if err != nil {
		t.Fatalf("LoadCapAt() err = %v, want nil", err)
	}

	if !o.Tag(got) || o.Base(got) != 0x2000 {
		t.Errorf("LoadCapAt() = %+v, want capability at 0x2000", got)
	}
}

func Test_Simulated_StoreCapability_Panics_On_Misaligned_Address(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Errorf("expected panic for misaligned StoreCapability")
		}
	}()

	o := NewSimulated(16)
	o.StoreCapability(0x1001, NewCapability(0, 0, false, 0, false, 0))
}
