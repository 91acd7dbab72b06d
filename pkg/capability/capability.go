// Package capability abstracts the hardware-capability primitives a
// CHERI/Morello-family architecture exposes: reading the tag, bounds,
// permissions and sealed state of a 128-bit fat pointer, and loading a
// capability-sized word through one capability's authority.
//
// Nothing in this package fabricates a capability out of thin air; a
// Capability is only ever produced by an Oracle, either by decoding a
// harvested register or by a successful LoadCapAt.
package capability

import (
	"math"

	"github.com/arm64lab/capmap/pkg/rangeset"
)

// Address is a position in the 64-bit address space a capability's
// bounds are drawn from.
type Address = rangeset.Address

// ObjectTypeSentry is the reserved object-type a sealed capability
// carries when it is a branch sentry (unseals on branch into it)
// rather than a sealed data object.
const ObjectTypeSentry = ^uint64(0)

// Capability is an opaque 128-bit hardware-enforced fat pointer. Its
// fields are unexported: core code never inspects a Capability
// directly, only through the Oracle that produced it.
type Capability struct {
	tagged bool
	sealed bool
	otype  uint64
	perms  Permission

	base       Address
	length     Address
	lengthFull bool // true iff length is conceptually 2^64 (saturated)

	raw [2]uint64 // architectural bit pattern, for report hex dumps only
}

// Oracle is the architecture-specific primitive set the traversal
// needs for any capability: its validity, bounds, permissions, sealed
// state, object type, and the ability to dereference it.
//
// A real implementation decodes these from actual capability registers
// or memory (see internal/arch for the hook point); Simulated provides
// a pure-Go implementation for tests, the self-test harness, and hosts
// without a capability-aware toolchain.
type Oracle interface {
	// CapWidth returns the architecture's capability size in bytes (8
	// or 16), the alignment LoadCapMap shrinks accepted bounds to.
	CapWidth() Address
	// Tag reports whether c is valid (dereferenceable, non-fabricated).
	Tag(c Capability) bool
	// Base returns c's inclusive lower bound.
	Base(c Capability) Address
	// Length returns c's length, with isFull64 true when the true
	// length is 2^64 (unrepresentable in 64 bits; value is 0 in that case).
	Length(c Capability) (isFull64 bool, value Address)
	// Permissions returns c's permission bitset.
	Permissions(c Capability) Permission
	// Sealed reports whether c is sealed.
	Sealed(c Capability) bool
	// ObjectType returns c's object type. Only meaningful when Sealed(c).
	ObjectType(c Capability) uint64
	// LoadCapAt loads the capability-sized, capability-aligned word at
	// addr, using c's authority. Returns ErrNotAuthorized if c itself
	// lacks Load+LoadCap, ErrFault if addr is not backed memory, and
	// ErrMisaligned if addr is not capability-aligned. A successful
	// load of ordinary (non-capability) data returns an untagged
	// Capability and a nil error — that is not a fault, just a miss.
	LoadCapAt(c Capability, addr Address) (Capability, error)
}

// Raw returns the architectural 128-bit pattern backing c, as two
// 64-bit words (high, low), for report hex dumps. It carries no
// guarantee of matching any particular hardware encoding when c was
// produced by a non-hardware Oracle.
func (c Capability) Raw() (hi, lo uint64) {
	return c.raw[0], c.raw[1]
}

// RangeFromCap derives the bounds of c as a Range, using o to read its
// base and length. A capability based at zero with a saturated
// (2^64) length is reinterpreted as the full address space.
func RangeFromCap(o Oracle, c Capability) rangeset.Range {
	base := o.Base(c)

	isFull64, length := o.Length(c)
	if isFull64 {
		if base == 0 {
			return rangeset.Full64()
		}
		// Malformed outside base==0, but not our call to reject: cover
		// through the top of the space rather than collapsing to empty.
		return rangeset.FromBaseLast(base, math.MaxUint64)
	}

	return rangeset.FromBaseLength(base, length)
}
