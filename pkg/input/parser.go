// Package input parses port specifications from flags and files.
package input

import (
	"bufio"
	"fmt"
	"iter"
	"os"
	"slices"
	"strconv"
	"strings"
)

// Port bounds
const (
	minPort = 1
	maxPort = 65535
)

// ParsePorts parses port specs such as "22,80,8000-8100".
// Several specs may be given; the result is sorted and deduplicated.
func ParsePorts(specs ...string) ([]int, error) {
	var ports []int

	for _, spec := range specs {
		// Handle comma-separated values
		for part := range strings.SplitSeq(spec, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}

			seq, err := PortRange(part)
			if err != nil {
				return nil, err
			}
			ports = slices.AppendSeq(ports, seq)
		}
	}

	if len(ports) == 0 {
		return nil, fmt.Errorf("no ports in %q", strings.Join(specs, ","))
	}

	slices.Sort(ports)
	return slices.Compact(ports), nil
}

// ParsePortFile reads port specs from a file (one or more per line, # comments)
func ParsePortFile(filename string) ([]int, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var specs []string
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		// Strip trailing comments
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Validate per line so errors carry the line number
		for part := range strings.SplitSeq(line, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if _, err := PortRange(part); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
		}
		specs = append(specs, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	if len(specs) == 0 {
		return nil, fmt.Errorf("%s: no ports found", filename)
	}
	return ParsePorts(specs...)
}

// PortRange returns an iterator over a single port ("443") or an inclusive range ("8000-8100")
func PortRange(spec string) (iter.Seq[int], error) {
	lo, hi, isRange := strings.Cut(spec, "-")

	first, err := parsePort(lo)
	if err != nil {
		return nil, err
	}
	last := first
	if isRange {
		if last, err = parsePort(hi); err != nil {
			return nil, err
		}
		if last < first {
			return nil, fmt.Errorf("invalid port range %s: start after end", spec)
		}
	}

	return func(yield func(int) bool) {
		for p := first; p <= last; p++ {
			if !yield(p) {
				return
			}
		}
	}, nil
}

func parsePort(s string) (int, error) {
	s = strings.TrimSpace(s)
	p, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	if p < minPort || p > maxPort {
		return 0, fmt.Errorf("port %d out of range %d-%d", p, minPort, maxPort)
	}
	return p, nil
}
