// Package main provides capmap, the capability-map scanner's production
// command-line entry point.
package main

import (
	"os"
	"os/signal"
	"syscall"
)

func main() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	exitCode := run(os.Args[1:], os.Stdout, os.Stderr, sigCh)

	os.Exit(exitCode)
}
