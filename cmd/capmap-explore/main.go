// capmap-explore is an interactive REPL for inspecting a capmap JSON
// report: the consolidated set of roots, Map classifications, and scan
// bounds that cmd/capmap's scan subcommand writes.
//
// Usage:
//
//	capmap-explore <report-file>   Open a report written by "capmap scan"
//
// Commands (in REPL):
//
//	roots                 List every scanned root and its raw value
//	maps                  List every installed Map, its address space and range count
//	map <name>            Show every range recorded in a single Map
//	find <hex-addr>       List every Map whose ranges cover an address
//	scan                  Show the include/exclude regions and max depth seen
//	info                  Show a one-line summary
//	help                  Show this help
//	exit / quit / q       Exit
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/peterh/liner"
)

type jsonRange struct {
	Base string `json:"base"`
	Last string `json:"last"`
}

type jsonMapEntry struct {
	AddressSpace string      `json:"address-space"`
	Ranges       []jsonRange `json:"ranges"`
}

type jsonScan struct {
	Include []jsonRange `json:"include"`
	Exclude []jsonRange `json:"exclude"`
	Depth   string      `json:"depth"`
}

type jsonReport struct {
	Roots map[string]string       `json:"roots"`
	Scan  jsonScan                `json:"scan"`
	Maps  map[string]jsonMapEntry `json:"maps"`
}

type jsonEnvelope struct {
	Capmap jsonReport `json:"capmap"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		printUsage()
		return errors.New("missing report file path")
	}

	path := os.Args[1]

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading report: %w", err)
	}

	var envelope jsonEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("parsing report: %w", err)
	}

	repl := &REPL{path: path, report: envelope.Capmap}

	return repl.Run()
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage:\n")
	fmt.Fprintf(os.Stderr, "  capmap-explore <report-file>   Open a report written by 'capmap scan'\n")
}

// REPL is the interactive command loop over a single loaded report.
type REPL struct {
	path   string
	report jsonReport
	liner  *liner.State
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".capmap_explore_history")
}

// Run starts the REPL loop.
func (r *REPL) Run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	if f, err := os.Open(historyFile()); err == nil {
		r.liner.ReadHistory(f)
		f.Close()
	}

	fmt.Printf("capmap-explore - %s (%d roots, %d maps)\n", r.path, len(r.report.Roots), len(r.report.Maps))
	fmt.Println("Type 'help' for available commands.")
	fmt.Println()

	for {
		line, err := r.liner.Prompt("capmap> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Println("\nBye!")

				break
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "exit", "quit", "q":
			fmt.Println("Bye!")
			r.saveHistory()

			return nil

		case "help", "?":
			r.printHelp()

		case "roots":
			r.cmdRoots()

		case "maps":
			r.cmdMaps()

		case "map":
			r.cmdMap(args)

		case "find":
			r.cmdFind(args)

		case "scan":
			r.cmdScan()

		case "info":
			r.cmdInfo()

		case "clear", "cls":
			fmt.Print("\033[H\033[2J")

		default:
			fmt.Printf("Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}

	r.saveHistory()

	return nil
}

func (r *REPL) saveHistory() {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			r.liner.WriteHistory(f)
			f.Close()
		}
	}
}

func (r *REPL) completer(line string) []string {
	commands := []string{
		"roots", "maps", "map", "find", "scan", "info",
		"clear", "cls", "help", "exit", "quit", "q",
	}

	var completions []string

	lower := strings.ToLower(line)
	for _, cmd := range commands {
		if strings.HasPrefix(cmd, lower) {
			completions = append(completions, cmd)
		}
	}

	return completions
}

func (r *REPL) printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  roots                 List every scanned root and its raw value")
	fmt.Println("  maps                  List every installed Map, its address space and range count")
	fmt.Println("  map <name>            Show every range recorded in a single Map")
	fmt.Println("  find <hex-addr>       List every Map whose ranges cover an address")
	fmt.Println("  scan                  Show the include/exclude regions and max depth seen")
	fmt.Println("  info                  Show a one-line summary")
	fmt.Println("  help                  Show this help")
	fmt.Println("  exit / quit / q       Exit")
}

func (r *REPL) cmdRoots() {
	names := make([]string, 0, len(r.report.Roots))
	for name := range r.report.Roots {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		fmt.Printf("%-10s %s\n", name, r.report.Roots[name])
	}
}

func (r *REPL) cmdMaps() {
	names := mapNames(r.report.Maps)

	for _, name := range names {
		entry := r.report.Maps[name]
		fmt.Printf("%-20s %-16s %d range(s)\n", name, entry.AddressSpace, len(entry.Ranges))
	}
}

func (r *REPL) cmdMap(args []string) {
	if len(args) < 1 {
		fmt.Println("usage: map <name>")
		return
	}

	entry, ok := r.report.Maps[args[0]]
	if !ok {
		fmt.Printf("no such map: %s\n", args[0])
		return
	}

	fmt.Printf("%s (%s)\n", args[0], entry.AddressSpace)

	for _, rg := range entry.Ranges {
		fmt.Printf("  [%s, %s]\n", rg.Base, rg.Last)
	}
}

func (r *REPL) cmdFind(args []string) {
	if len(args) < 1 {
		fmt.Println("usage: find <hex-addr>")
		return
	}

	addr, err := strconv.ParseUint(strings.TrimPrefix(args[0], "0x"), 16, 64)
	if err != nil {
		fmt.Printf("invalid address: %s\n", args[0])
		return
	}

	found := false

	for _, name := range mapNames(r.report.Maps) {
		entry := r.report.Maps[name]
		for _, rg := range entry.Ranges {
			if rangeCovers(rg, addr) {
				fmt.Printf("%s: [%s, %s]\n", name, rg.Base, rg.Last)
				found = true

				break
			}
		}
	}

	if !found {
		fmt.Println("not covered by any map")
	}
}

func (r *REPL) cmdScan() {
	fmt.Println("include:")

	for _, rg := range r.report.Scan.Include {
		fmt.Printf("  [%s, %s]\n", rg.Base, rg.Last)
	}

	fmt.Println("exclude:")

	for _, rg := range r.report.Scan.Exclude {
		fmt.Printf("  [%s, %s]\n", rg.Base, rg.Last)
	}

	fmt.Println("max depth seen:", r.report.Scan.Depth)
}

func (r *REPL) cmdInfo() {
	fmt.Printf("report:    %s\n", r.path)
	fmt.Printf("roots:     %d\n", len(r.report.Roots))
	fmt.Printf("maps:      %d\n", len(r.report.Maps))
	fmt.Printf("max depth: %s\n", r.report.Scan.Depth)
}

func mapNames(maps map[string]jsonMapEntry) []string {
	names := make([]string, 0, len(maps))
	for name := range maps {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func rangeCovers(rg jsonRange, addr uint64) bool {
	base, err := strconv.ParseUint(strings.TrimPrefix(rg.Base, "0x"), 16, 64)
	if err != nil {
		return false
	}

	last, err := strconv.ParseUint(strings.TrimPrefix(rg.Last, "0x"), 16, 64)
	if err != nil {
		return false
	}

	return addr >= base && addr <= last
}
