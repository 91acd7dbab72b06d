package reportio

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/arm64lab/capmap/pkg/capability"
	"github.com/arm64lab/capmap/pkg/mapper"
	"github.com/arm64lab/capmap/pkg/rangeset"
)

func Test_WriteReport_Writes_Valid_JSON_To_Path(t *testing.T) {
	t.Parallel()

	o := capability.NewSimulated(16)
	m := mapper.New(o, rangeset.SparseRange{})

	path := filepath.Join(t.TempDir(), "report.json")

	if err := WriteReport(m, path); err != nil {
		t.Fatalf("WriteReport() err = %v, want nil", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() err = %v", err)
	}

	if !strings.Contains(string(data), `"capmap"`) {
		t.Errorf("report does not contain top-level capmap key: %s", data)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() err = %v", err)
	}

	if info.Mode().Perm() != filePerms {
		t.Errorf("file mode = %v, want %v", info.Mode().Perm(), os.FileMode(filePerms))
	}
}

func Test_WriteReport_Fails_On_Unwritable_Directory(t *testing.T) {
	t.Parallel()

	o := capability.NewSimulated(16)
	m := mapper.New(o, rangeset.SparseRange{})

	err := WriteReport(m, filepath.Join(t.TempDir(), "nonexistent-dir", "report.json"))
	if err == nil {
		t.Fatalf("WriteReport() err = nil, want an error for a missing parent directory")
	}
}
