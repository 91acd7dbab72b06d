package osmap

import "testing"

func Test_ParseProcMapsLine_Parses_Bounds_And_Read_Permission(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		line     string
		pageSize Address
		wantOK   bool
		wantMap  Mapping
	}{
		{
			name:     "readable mapping",
			line:     "7f1234500000-7f1234600000 r--p 00000000 00:00 0",
			pageSize: 0x1000,
			wantOK:   true,
			wantMap: Mapping{
				Start:       0x7f1234500000,
				End:         0x7f1234600000,
				Readable:    true,
				ReadCapable: true,
			},
		},
		{
			name:     "unreadable mapping",
			line:     "7f1234600000-7f1234601000 ---p 00000000 00:00 0",
			pageSize: 0x1000,
			wantOK:   true,
			wantMap: Mapping{
				Start:       0x7f1234600000,
				End:         0x7f1234601000,
				Readable:    false,
				ReadCapable: false,
			},
		},
		{
			name:     "non-page-aligned bounds are rounded outward",
			line:     "1001-1fff0 rw-p 00000000 00:00 0",
			pageSize: 0x1000,
			wantOK:   true,
			wantMap: Mapping{
				Start:       0x1000,
				End:         0x20000,
				Readable:    true,
				ReadCapable: true,
			},
		},
		{
			name:     "malformed line is skipped",
			line:     "not a maps line",
			pageSize: 0x1000,
			wantOK:   false,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := parseProcMapsLine(tt.line, tt.pageSize)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}

			if !ok {
				return
			}

			if got != tt.wantMap {
				t.Errorf("mapping = %+v, want %+v", got, tt.wantMap)
			}
		})
	}
}

func Test_ParseProcMaps_Returns_Error_When_Maps_File_Is_Absent(t *testing.T) {
	t.Parallel()

	_, err := parseProcMaps("/nonexistent/path/maps")
	if err == nil {
		t.Fatalf("parseProcMaps() err = nil, want an error")
	}
}

func Test_Query_Reads_Real_Proc_Self_Maps(t *testing.T) {
	t.Parallel()

	mappings, err := Query()
	if err != nil {
		t.Fatalf("Query() err = %v, want nil on Linux", err)
	}

	if len(mappings) == 0 {
		t.Errorf("Query() returned no mappings, want at least one for a running process")
	}
}

func Test_Default_Unions_Readable_Mappings(t *testing.T) {
	t.Parallel()

	include, err := Default()
	if err != nil {
		t.Fatalf("Default() err = %v, want nil on Linux", err)
	}

	if len(include.Parts()) == 0 {
		t.Errorf("Default() returned an empty include set, want at least the process's own readable mappings")
	}
}
