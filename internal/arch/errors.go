package arch

import "errors"

// ErrUnknownThread is returned by a Harvester when asked for a thread
// id it has no register state for.
var ErrUnknownThread = errors.New("arch: unknown thread id")

// ErrUnsupportedArch is returned by the capmap_morello-tagged Hardware
// Harvester: no published Go toolchain exposes a Morello
// capability-register dump facility, so the real hook point is always
// a documented stub.
var ErrUnsupportedArch = errors.New("arch: no capability register port on this build")
