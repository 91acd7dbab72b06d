package main

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/arm64lab/capmap/internal/cliio"
	"github.com/arm64lab/capmap/pkg/capmap"
)

func configCmd() *cliio.Command {
	flags := flag.NewFlagSet("config", flag.ContinueOnError)
	configPath := flags.String("config", "", "capmap.Config HuJSON document to load and print (optional, overrides the project file)")

	return &cliio.Command{
		Flags: flags,
		Usage: "config [--config <file>]",
		Short: "load a config document and print the Maps it resolves to",
		Long: "config loads a capmap.Config HuJSON document and prints its\n" +
			"max_scan_depth and each declared Map's name and configured address\n" +
			"space, without scanning anything; poison ranges are not printed.\n" +
			"With no --config, it looks\n" +
			"for a .capmap.json project file in the working directory and falls\n" +
			"back to an empty config if that is also absent.",
		Exec: func(_ context.Context, o *cliio.IO, _ []string) error {
			return runConfig(o, *configPath)
		},
	}
}

func runConfig(o *cliio.IO, configPath string) error {
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
	} else {
		o.Println("no config file found, using defaults")
	}

	if cfg.MaxScanDepth != nil {
		o.Printf("max_scan_depth: %d\n", *cfg.MaxScanDepth)
	} else {
		o.Println("max_scan_depth: unbounded")
	}

	maps, err := cfg.BuildMaps(nil)
	if err != nil {
		return err
	}

	for _, mp := range maps {
		o.Printf("- %s (%s)\n", mp.Name(), mp.AddressSpace())
	}

	return nil
}
