// Package reportio durably persists a Mapper's JSON report to disk.
package reportio

import (
	"bytes"
	"fmt"
	"os"

	"github.com/natefinch/atomic"

	"github.com/arm64lab/capmap/pkg/mapper"
)

const filePerms = 0o644

// WriteReport renders m's report and writes it atomically to path: the
// report is fully written to a temp file in the same directory before
// being renamed over path, so a crash mid-write never leaves a
// truncated report behind.
func WriteReport(m *mapper.Mapper, path string) error {
	var buf bytes.Buffer

	if err := m.WriteReport(&buf); err != nil {
		return fmt.Errorf("reportio: rendering report: %w", err)
	}

	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("reportio: writing %q: %w", path, err)
	}

	// atomic.WriteFile doesn't set permissions for new files.
	if err := os.Chmod(path, filePerms); err != nil {
		return fmt.Errorf("reportio: chmod %q: %w", path, err)
	}

	return nil
}
