package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/arm64lab/capmap/internal/cliio"
)

const program = "capmap"

// run is the dispatch entry point, factored out of main so it is
// testable without a real process: sigCh may be nil, disabling signal
// handling (always the case in tests).
func run(args []string, out, errOut io.Writer, sigCh <-chan os.Signal) int {
	commands := allCommands()

	commandMap := make(map[string]*cliio.Command, len(commands))
	for _, cmd := range commands {
		commandMap[cmd.Name()] = cmd
	}

	if len(args) == 0 {
		printUsage(out, commands)
		return 0
	}

	if args[0] == "-h" || args[0] == "--help" {
		printUsage(out, commands)
		return 0
	}

	cmdName := args[0]

	cmd, ok := commandMap[cmdName]
	if !ok {
		fprintln(errOut, "error: unknown command:", cmdName)
		printUsage(errOut, commands)

		return 1
	}

	cmdIO := cliio.NewIO(out, errOut)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan int, 1)

	go func() {
		done <- cmd.Run(ctx, cmdIO, program, args[1:])
	}()

	select {
	case exitCode := <-done:
		if exitCode != 0 {
			return exitCode
		}

		return cmdIO.Finish()
	case <-sigCh:
		fprintln(errOut, "shutting down with 5s timeout...")
		cancel()
	}

	select {
	case <-done:
		fprintln(errOut, "graceful shutdown ok (130)")
		return 130
	case <-time.After(5 * time.Second):
		fprintln(errOut, "graceful shutdown timed out, forced exit (130)")
		return 130
	case <-sigCh:
		fprintln(errOut, "graceful shutdown interrupted, forced exit (130)")
		return 130
	}
}

func allCommands() []*cliio.Command {
	return []*cliio.Command{
		scanCmd(),
		configCmd(),
	}
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func printUsage(w io.Writer, commands []*cliio.Command) {
	fprintln(w, program+" - CHERI/Morello capability-map scanner")
	fprintln(w)
	fprintln(w, "Usage:", program, "<command> [args]")
	fprintln(w)
	fprintln(w, "Commands:")

	for _, cmd := range commands {
		fprintln(w, cmd.HelpLine(program))
	}
}
