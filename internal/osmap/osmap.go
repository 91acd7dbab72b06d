// Package osmap implements the OS virtual-memory mapping query spec §6
// describes: given the current process, a sequence of (start, end,
// protection) tuples, unioned into the Mapper's default inclusion.
package osmap

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/arm64lab/capmap/pkg/rangeset"
)

// Address is a position in the mapped address space.
type Address = rangeset.Address

// ErrUnsupportedOS indicates the current OS exposes no mapping query
// this package knows how to read.
var ErrUnsupportedOS = errors.New("osmap: unsupported OS")

// Mapping is one (start, end, protection) entry from the process's
// memory map. End is exclusive.
type Mapping struct {
	Start       Address
	End         Address
	Readable    bool
	ReadCapable bool
}

// Query returns the current process's memory mappings, read from
// /proc/self/maps. Returns ErrUnsupportedOS when that file does not
// exist (non-Linux hosts).
func Query() ([]Mapping, error) {
	mappings, err := parseProcMaps("/proc/self/maps")
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrUnsupportedOS
		}

		return nil, err
	}

	return mappings, nil
}

// Default builds the Mapper's default include SparseRange: the union
// of every mapping with both read and read-capability protection (spec
// §6). A stock Linux kernel does not report a separate
// "read-capability" protection bit, so every readable mapping is
// treated as read-capable; a real Morello-aware kernel would narrow
// this further.
func Default() (rangeset.SparseRange, error) {
	mappings, err := Query()
	if err != nil {
		return rangeset.SparseRange{}, err
	}

	var include rangeset.SparseRange

	for _, mp := range mappings {
		if !mp.Readable || !mp.ReadCapable {
			continue
		}

		include.Combine(rangeset.FromBaseLimit(mp.Start, mp.End))
	}

	return include, nil
}

func parseProcMaps(path string) ([]Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pageSize := Address(unix.Getpagesize())

	var out []Mapping

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		mp, ok := parseProcMapsLine(scanner.Text(), pageSize)
		if ok {
			out = append(out, mp)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("osmap: reading %s: %w", path, err)
	}

	return out, nil
}

// parseProcMapsLine parses one /proc/self/maps line, e.g.
// "7f1234500000-7f1234600000 r--p 00000000 00:00 0". start/end are
// defensively rounded to pageSize, guarding against any kernel that
// reports non-page-granular bounds.
func parseProcMapsLine(line string, pageSize Address) (Mapping, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Mapping{}, false
	}

	bounds := strings.SplitN(fields[0], "-", 2)
	if len(bounds) != 2 {
		return Mapping{}, false
	}

	start, err := strconv.ParseUint(bounds[0], 16, 64)
	if err != nil {
		return Mapping{}, false
	}

	end, err := strconv.ParseUint(bounds[1], 16, 64)
	if err != nil {
		return Mapping{}, false
	}

	perms := fields[1]
	readable := strings.HasPrefix(perms, "r")

	mask := pageSize - 1

	return Mapping{
		Start:       start &^ mask,
		End:         (end + mask) &^ mask,
		Readable:    readable,
		ReadCapable: readable,
	}, true
}
