// Package capmap implements the classifiers ("Maps") that accept or
// reject capabilities encountered during a scan and record their
// bounds under a user-chosen name and address-space label.
package capmap

import (
	"github.com/arm64lab/capmap/pkg/capability"
	"github.com/arm64lab/capmap/pkg/rangeset"
)

// Address is a position in the address space a Map's bounds are drawn from.
type Address = rangeset.Address

// Map is a classifier the Mapper feeds every visited capability to. A
// Map must return false without side effects when it rejects cap, and
// otherwise ingest cap's bounds and return true.
//
// Implementations are free to merge adjacent/overlapping ranges
// (backed by a SparseRange) or preserve every accepted Range verbatim
// (a plain ordered slice) — see BranchMap for the latter.
type Map interface {
	// Name is the map's stable, user-facing identifier.
	Name() string
	// AddressSpace is a free-form label the library does not interpret
	// (e.g. "virtual memory", "otype").
	AddressSpace() string
	// Ranges returns the classification result so far. SparseRange-backed
	// maps return it in ascending order; BranchMap returns it in
	// recording order.
	Ranges() []rangeset.Range
	// TryCombine classifies cap, recording it if accepted.
	TryCombine(o capability.Oracle, cap capability.Capability) bool
}
