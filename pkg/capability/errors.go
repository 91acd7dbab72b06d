package capability

import "errors"

// Error classification codes.
//
// Callers MUST classify errors using errors.Is. Implementations MAY
// wrap these with additional context.
var (
	// ErrNotAuthorized indicates LoadCapAt was attempted through a
	// capability lacking the Load+LoadCap permissions its own authority
	// requires.
	ErrNotAuthorized = errors.New("capability: not authorized")

	// ErrFault indicates a load through a capability touched memory the
	// Oracle does not consider backed ("unmapped page"). On real
	// hardware this is not recoverable; the Simulated Oracle returns it
	// as an ordinary error for fault-injection tests.
	ErrFault = errors.New("capability: fault: unmapped memory")

	// ErrMisaligned indicates a capability-word access was not aligned
	// to the Oracle's capability width.
	ErrMisaligned = errors.New("capability: misaligned access")
)
