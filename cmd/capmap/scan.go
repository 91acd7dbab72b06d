package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/arm64lab/capmap/internal/cliio"
	"github.com/arm64lab/capmap/internal/reportio"
	"github.com/arm64lab/capmap/internal/simfixture"
	"github.com/arm64lab/capmap/pkg/capability"
	"github.com/arm64lab/capmap/pkg/capmap"
	"github.com/arm64lab/capmap/pkg/mapper"
)

var errMissingFlag = errors.New("capmap: required flag missing")

func scanCmd() *cliio.Command {
	flags := flag.NewFlagSet("scan", flag.ContinueOnError)
	fixturePath := flags.String("fixture", "", "simfixture HuJSON document describing the simulated oracle and roots (required)")
	configPath := flags.String("config", "", "capmap.Config HuJSON document declaring installed Maps (optional, overrides the project file)")
	outPath := flags.String("out", "", "path to write the JSON report to (required)")
	maxDepth := flags.Uint64("max-scan-depth", 0, "override the config's max_scan_depth (0 keeps the config/default value)")
	useOSMappings := flags.Bool("use-os-mappings", false,
		"seed the scan's include set from this process's own /proc/self/maps (internal/osmap) instead of the fixture's mounted regions")

	return &cliio.Command{
		Flags: flags,
		Usage: "scan --fixture <file> --out <file> [flags]",
		Short: "scan a simulated capability oracle and write a JSON report",
		Long: "scan loads a simfixture document in place of real hardware capability\n" +
			"registers and tagged memory (no published Go toolchain can read either),\n" +
			"runs the traversal engine from every named root, and writes the resulting\n" +
			"capability map as JSON. Map definitions are resolved from --config if\n" +
			"given, else from a .capmap.json project file in the working directory\n" +
			"if one exists, else left empty; a non-zero --max-scan-depth overrides\n" +
			"whatever either of those resolve to.",
		Exec: func(_ context.Context, o *cliio.IO, _ []string) error {
			return runScan(o, *fixturePath, *configPath, *outPath, *maxDepth, *useOSMappings)
		},
	}
}

func runScan(o *cliio.IO, fixturePath, configPath, outPath string, maxDepth uint64, useOSMappings bool) error {
	if fixturePath == "" {
		return fmt.Errorf("%w: --fixture", errMissingFlag)
	}

	if outPath == "" {
		return fmt.Errorf("%w: --out", errMissingFlag)
	}

	fixtureData, err := os.ReadFile(fixturePath)
	if err != nil {
		return fmt.Errorf("capmap: reading fixture %q: %w", fixturePath, err)
	}

	loaded, err := simfixture.Load(fixtureData)
	if err != nil {
		return err
	}

	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("capmap: resolving working directory: %w", err)
	}

	cfg, cfgPath, err := capmap.LoadConfigLayered(workDir, configPath)
	if err != nil {
		return err
	}

	if cfgPath != "" {
		o.Println("loaded config from", cfgPath)
	}

	maps, err := cfg.BuildMaps(func(name string, cap capability.Capability) {
		hi, lo := cap.Raw()
		o.Warn(fmt.Sprintf("%s: poisoned capability reached, raw=0x%016x%016x", name, hi, lo))
	})
	if err != nil {
		return err
	}

	var m *mapper.Mapper

	if useOSMappings {
		m, err = mapper.NewWithOSDefault(loaded.Oracle)
		if err != nil {
			return fmt.Errorf("capmap: building OS-mapping-backed include set: %w", err)
		}
	} else {
		m = mapper.New(loaded.Oracle, loaded.Oracle.Mapped())
	}

	for _, mp := range maps {
		m.AddMap(mp)
	}

	switch {
	case maxDepth != 0:
		m.SetMaxScanDepth(maxDepth)
	case cfg.MaxScanDepth != nil:
		m.SetMaxScanDepth(*cfg.MaxScanDepth)
	}

	for _, root := range loaded.Roots {
		if err := m.Scan(root.Cap, root.Name); err != nil {
			return fmt.Errorf("capmap: scanning root %q: %w", root.Name, err)
		}
	}

	if err := reportio.WriteReport(m, outPath); err != nil {
		return err
	}

	o.Println("wrote report to", outPath)

	return nil
}
