package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/velemoonkon/portscout/pkg/scanner"
)

// ScanType names one of the preset scans
type ScanType string

const (
	ScanQuick   ScanType = "quick"
	ScanWeb     ScanType = "web"
	ScanFull    ScanType = "full"
	ScanStealth ScanType = "stealth"
)

// ScanTypes lists the accepted scan types in help order
var ScanTypes = []ScanType{ScanQuick, ScanWeb, ScanFull, ScanStealth}

const (
	// fullScanWorkers is the worker count for the full range unless -w is given
	fullScanWorkers = 50

	// stealthPortLimit caps the stealth port list
	stealthPortLimit = 50

	confirmPrompt = "[!] Full scan takes time and is noisy. Continue? (y/n): "
)

// ScanPlan represents the resolved settings for one scan type
type ScanPlan struct {
	Type     ScanType
	Ports    []int
	Strategy scanner.Strategy

	// Batched runs the ports through ScanBatches
	Batched bool

	// Workers overrides the configured worker count when > 0
	Workers int

	// Confirm asks before scanning
	Confirm bool

	// Enrich fetches HTTP status lines for open web ports
	Enrich bool
}

// ResolveScanPlan resolves a scan type name to its plan.
// profile holds per-type port lists from the config file. custom, when
// non-empty, replaces the port list of any scan type.
func ResolveScanPlan(name string, profile map[string][]int, custom []int) (ScanPlan, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = string(ScanQuick)
	}

	var plan ScanPlan
	switch ScanType(name) {
	case ScanQuick:
		plan = ScanPlan{Ports: scanner.CommonPorts}
	case ScanWeb:
		plan = ScanPlan{Ports: scanner.WebPorts, Enrich: true}
	case ScanFull:
		plan = ScanPlan{
			Ports:   scanner.FullRange(),
			Batched: true,
			Workers: fullScanWorkers,
			Confirm: true,
		}
	case ScanStealth:
		plan = ScanPlan{
			Ports:    scanner.CommonPorts[:min(stealthPortLimit, len(scanner.CommonPorts))],
			Strategy: scanner.StrategyStealth,
		}
	default:
		return ScanPlan{}, fmt.Errorf("unknown scan type %q (valid: %s)", name, joinScanTypes())
	}
	plan.Type = ScanType(name)

	if ports, ok := profile[name]; ok && len(ports) > 0 {
		plan.Ports = ports
	}
	if len(custom) > 0 {
		plan.Ports = custom
	}
	plan.Ports = slices.Clone(plan.Ports)

	return plan, nil
}

// WithStrategy overrides the plan's probing strategy when name is non-empty
func (p ScanPlan) WithStrategy(name string) (ScanPlan, error) {
	if strings.TrimSpace(name) == "" {
		return p, nil
	}
	s, err := scanner.ParseStrategy(name)
	if err != nil {
		return p, err
	}
	p.Strategy = s
	return p, nil
}

// stealthNotice returns the warning shown before a stealth scan that lacks
// raw socket privilege, or "" when none is needed
func stealthNotice(plan ScanPlan, privileged bool) string {
	if plan.Strategy != scanner.StrategyStealth || privileged {
		return ""
	}
	return "need elevated privilege for stealth scan (run as root or with CAP_NET_RAW); " +
		"falling back to connect if raw sockets are refused"
}

func joinScanTypes() string {
	names := make([]string, len(ScanTypes))
	for i, t := range ScanTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// confirm prompts on out and reports whether the answer read from in is "y".
// A read error or empty input declines.
func confirm(in io.Reader, out io.Writer) bool {
	fmt.Fprint(out, confirmPrompt)

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(out)
		return false
	}
	return strings.ToLower(strings.TrimSpace(line)) == "y"
}

// isInteractive reports whether f is attached to a terminal
func isInteractive(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
