// Package main provides capmap-selftest, the library's own test
// harness: it runs the named scenarios from internal/harness and
// reports pass/fail in a textual summary. Exit code is always 0 — this
// tool is meant to be read, not gated on.
package main

import (
	"context"
	"io"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/arm64lab/capmap/internal/cliio"
	"github.com/arm64lab/capmap/internal/harness"
)

const program = "capmap-selftest"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet(program, flag.ContinueOnError)
	verbose := flags.CountP("verbose", "v", "increase verbosity (repeatable)")

	cmd := &cliio.Command{
		Flags: flags,
		Usage: "[flags] [filter ...]",
		Short: "run the built-in traversal scenarios",
		Long: "Runs every registered scenario whose name contains one of the given\n" +
			"substrings (case-sensitive); with no filters, runs all of them.\n" +
			"Exit code is always 0 — pass/fail is reported in the summary only.",
		Exec: func(_ context.Context, o *cliio.IO, positional []string) error {
			runSelftest(o, positional, *verbose)
			return nil
		},
	}

	io := cliio.NewIO(stdout, stderr)
	cmd.Run(context.Background(), io, program, args)
	io.Finish()

	return 0
}

func runSelftest(o *cliio.IO, filters []string, verbosity int) {
	scenarios := harness.Filter(harness.All(), filters)

	if len(scenarios) == 0 {
		o.Println("no scenarios match the given filters")
		return
	}

	passed, failed := 0, 0

	for _, s := range scenarios {
		result := s.Run()

		status := "PASS"
		if !result.Passed {
			status = "FAIL"
		}

		o.Printf("%-4s %s\n", status, s.Name)

		if verbosity >= 1 {
			o.Printf("     %s\n", s.Desc)
		}

		if verbosity >= 1 || !result.Passed {
			o.Printf("     %s\n", result.Detail)
		}

		if result.Passed {
			passed++
		} else {
			failed++
		}
	}

	o.Printf("\n%d passed, %d failed, %d total\n", passed, failed, passed+failed)
}
