package capability

import "github.com/arm64lab/capmap/pkg/rangeset"

// Simulated is a pure-Go, in-process Oracle: it stores capability
// metadata directly rather than decoding it from real capability
// registers or hardware-tagged memory. Used by tests, the self-test
// harness, and as the default Mapper backend on hosts without a
// capability-aware toolchain.
//
// The zero value is not ready to use; construct with NewSimulated.
type Simulated struct {
	capWidth Address
	mapped   rangeset.SparseRange
	memory   map[Address]Capability
}

// NewSimulated returns a Simulated Oracle with the given capability
// width (8 or 16 bytes). No memory is mapped or populated yet.
func NewSimulated(capWidth Address) *Simulated {
	return &Simulated{
		capWidth: capWidth,
		memory:   make(map[Address]Capability),
	}
}

// Mount marks r as backed (readable) memory. Loads outside any mounted
// region fault.
func (s *Simulated) Mount(r rangeset.Range) {
	s.mapped.Combine(r)
}

// Mapped returns the set of regions currently mounted.
func (s *Simulated) Mapped() rangeset.SparseRange {
	return s.mapped.Clone()
}

// StoreCapability places c at addr, which must be capability-aligned.
// Panics on misalignment: this is a fixture-construction error, not a
// runtime condition the scanner can encounter.
func (s *Simulated) StoreCapability(addr Address, c Capability) {
	if addr%s.capWidth != 0 {
		panic("capability: StoreCapability: misaligned address")
	}

	s.memory[addr] = c
}

// NewCapability builds a tagged capability with the given bounds,
// permissions, and sealed state. lengthFull true represents the
// saturated 2^64 length sentinel (length is ignored in that case).
func NewCapability(base, length Address, lengthFull bool, perms Permission, sealed bool, otype uint64) Capability {
	c := Capability{
		tagged:     true,
		sealed:     sealed,
		otype:      otype,
		perms:      perms,
		base:       base,
		length:     length,
		lengthFull: lengthFull,
	}
	c.raw = encodeRaw(c)

	return c
}

// Untagged returns the zero Capability: untagged, unusable for any
// descent or classification.
func Untagged() Capability {
	return Capability{}
}

// encodeRaw packs c's fields into a plausible 128-bit pattern for
// report hex dumps. The encoding is Simulated's own invention; it does
// not match any real Morello bit layout.
func encodeRaw(c Capability) [2]uint64 {
	lo := c.base

	hi := c.length
	if c.tagged {
		hi |= 1 << 63
	}

	if c.sealed {
		hi |= 1 << 62
	}

	return [2]uint64{hi, lo}
}

var _ Oracle = (*Simulated)(nil)

// CapWidth implements Oracle.
func (s *Simulated) CapWidth() Address { return s.capWidth }

// Tag implements Oracle.
func (s *Simulated) Tag(c Capability) bool { return c.tagged }

// Base implements Oracle.
func (s *Simulated) Base(c Capability) Address { return c.base }

// Length implements Oracle.
func (s *Simulated) Length(c Capability) (isFull64 bool, value Address) {
	if c.lengthFull {
		return true, 0
	}

	return false, c.length
}

// Permissions implements Oracle.
func (s *Simulated) Permissions(c Capability) Permission { return c.perms }

// Sealed implements Oracle.
func (s *Simulated) Sealed(c Capability) bool { return c.sealed }

// ObjectType implements Oracle.
func (s *Simulated) ObjectType(c Capability) uint64 { return c.otype }

// LoadCapAt implements Oracle. It requires c to be tagged and to carry
// Load+LoadCap, requires addr to be capability-aligned, and requires
// addr to fall within a mounted region; otherwise it returns
// ErrNotAuthorized, ErrMisaligned, or ErrFault respectively. A
// successful load of an address with no stored capability returns an
// untagged Capability and a nil error.
func (s *Simulated) LoadCapAt(c Capability, addr Address) (Capability, error) {
	if !c.tagged || !c.perms.Has(PermLoad|PermLoadCap) {
		return Capability{}, ErrNotAuthorized
	}

	if addr%s.capWidth != 0 {
		return Capability{}, ErrMisaligned
	}

	word := rangeset.FromBaseLength(addr, s.capWidth)
	if !s.mapped.Includes(word) {
		return Capability{}, ErrFault
	}

	if v, ok := s.memory[addr]; ok {
		return v, nil
	}

	return Capability{}, nil
}
