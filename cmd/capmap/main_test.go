package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testFixture = `{
  "cap_width": 16,
  "mounted": [{"base": "0x1000", "length": "0x30"}],
  "memory": [
    {"address": "0x1000", "value": {"base": "0x2000", "length": "0x10", "permissions": ["Load", "LoadCap"]}},
  ],
  "roots": [
    {"name": "c0", "value": {"base": "0x1000", "length": "0x10", "permissions": ["Load", "LoadCap"]}},
  ],
}
`

const testConfig = `{
  "maps": [
    {"kind": "permission", "name": "stores", "address_space": "virtual memory", "permissions": ["Store"]},
  ],
}
`

func Test_Run_Scan_Writes_A_Report(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fixturePath := filepath.Join(dir, "fixture.json")
	outPath := filepath.Join(dir, "report.json")

	if err := os.WriteFile(fixturePath, []byte(testFixture), 0o600); err != nil {
		t.Fatalf("WriteFile() err = %v", err)
	}

	var stdout, stderr bytes.Buffer

	code := run([]string{"scan", "--fixture", fixturePath, "--out", outPath}, &stdout, &stderr, nil)
	if code != 0 {
		t.Fatalf("run() = %d, stderr = %s", code, stderr.String())
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile(report) err = %v", err)
	}

	var report map[string]any
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}

	if _, ok := report["capmap"]; !ok {
		t.Errorf("report missing top-level capmap key: %s", data)
	}
}

func Test_Run_Scan_With_Config_Installs_Declared_Maps(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fixturePath := filepath.Join(dir, "fixture.json")
	configPath := filepath.Join(dir, "config.json")
	outPath := filepath.Join(dir, "report.json")

	if err := os.WriteFile(fixturePath, []byte(testFixture), 0o600); err != nil {
		t.Fatalf("WriteFile(fixture) err = %v", err)
	}

	if err := os.WriteFile(configPath, []byte(testConfig), 0o600); err != nil {
		t.Fatalf("WriteFile(config) err = %v", err)
	}

	var stdout, stderr bytes.Buffer

	code := run([]string{"scan", "--fixture", fixturePath, "--config", configPath, "--out", outPath}, &stdout, &stderr, nil)
	if code != 0 {
		t.Fatalf("run() = %d, stderr = %s", code, stderr.String())
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile(report) err = %v", err)
	}

	if !strings.Contains(string(data), "stores") {
		t.Errorf("report missing configured map name: %s", data)
	}
}

func Test_Run_Scan_Requires_Fixture_Flag(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	outPath := filepath.Join(dir, "report.json")

	var stdout, stderr bytes.Buffer

	code := run([]string{"scan", "--out", outPath}, &stdout, &stderr, nil)
	if code != 1 {
		t.Errorf("run() = %d, want 1", code)
	}

	if !strings.Contains(stderr.String(), "--fixture") {
		t.Errorf("stderr = %q, want mention of --fixture", stderr.String())
	}
}

func Test_Run_Config_Prints_Declared_Maps(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.json")

	if err := os.WriteFile(configPath, []byte(testConfig), 0o600); err != nil {
		t.Fatalf("WriteFile(config) err = %v", err)
	}

	var stdout, stderr bytes.Buffer

	code := run([]string{"config", "--config", configPath}, &stdout, &stderr, nil)
	if code != 0 {
		t.Fatalf("run() = %d, stderr = %s", code, stderr.String())
	}

	if !strings.Contains(stdout.String(), "stores") {
		t.Errorf("stdout = %q, want mention of the declared map", stdout.String())
	}
}

func Test_Run_Scan_Falls_Back_To_Project_Config_File(t *testing.T) {
	dir := t.TempDir()
	fixturePath := filepath.Join(dir, "fixture.json")
	outPath := filepath.Join(dir, "report.json")

	if err := os.WriteFile(fixturePath, []byte(testFixture), 0o600); err != nil {
		t.Fatalf("WriteFile(fixture) err = %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, ".capmap.json"), []byte(testConfig), 0o600); err != nil {
		t.Fatalf("WriteFile(.capmap.json) err = %v", err)
	}

	t.Chdir(dir)

	var stdout, stderr bytes.Buffer

	code := run([]string{"scan", "--fixture", fixturePath, "--out", outPath}, &stdout, &stderr, nil)
	if code != 0 {
		t.Fatalf("run() = %d, stderr = %s", code, stderr.String())
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile(report) err = %v", err)
	}

	if !strings.Contains(string(data), "stores") {
		t.Errorf("report missing map declared by .capmap.json: %s", data)
	}

	if !strings.Contains(stdout.String(), ".capmap.json") {
		t.Errorf("stdout = %q, want mention of the discovered config path", stdout.String())
	}
}

func Test_Run_Config_With_No_File_Uses_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	var stdout, stderr bytes.Buffer

	code := run([]string{"config"}, &stdout, &stderr, nil)
	if code != 0 {
		t.Fatalf("run() = %d, stderr = %s", code, stderr.String())
	}

	if !strings.Contains(stdout.String(), "unbounded") {
		t.Errorf("stdout = %q, want unbounded max_scan_depth with no config", stdout.String())
	}
}

func Test_Run_Scan_With_Use_OS_Mappings_Flag(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fixturePath := filepath.Join(dir, "fixture.json")
	outPath := filepath.Join(dir, "report.json")

	if err := os.WriteFile(fixturePath, []byte(testFixture), 0o600); err != nil {
		t.Fatalf("WriteFile(fixture) err = %v", err)
	}

	var stdout, stderr bytes.Buffer

	code := run([]string{"scan", "--fixture", fixturePath, "--out", outPath, "--use-os-mappings"}, &stdout, &stderr, nil)
	if code != 0 {
		t.Fatalf("run() = %d, stderr = %s", code, stderr.String())
	}

	if _, err := os.ReadFile(outPath); err != nil {
		t.Fatalf("ReadFile(report) err = %v", err)
	}
}

func Test_Run_Rejects_Unknown_Command(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer

	code := run([]string{"bogus"}, &stdout, &stderr, nil)
	if code != 1 {
		t.Errorf("run() = %d, want 1", code)
	}
}

func Test_Run_With_No_Args_Prints_Usage_And_Exits_Zero(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer

	code := run(nil, &stdout, &stderr, nil)
	if code != 0 {
		t.Errorf("run() = %d, want 0", code)
	}

	if !strings.Contains(stdout.String(), program) {
		t.Errorf("stdout = %q, want usage mentioning %q", stdout.String(), program)
	}
}
