package web

import (
	"fmt"
	"io"
	"slices"
)

// RenderAnalysis writes one line per open critical port, followed by the
// fetched status line when there is one
func RenderAnalysis(w io.Writer, openPorts []int, responses map[int]string) error {
	ports := slices.Sorted(slices.Values(openPorts))

	if _, err := fmt.Fprintln(w, "\nWEB PORT ANALYSIS:"); err != nil {
		return err
	}
	for _, port := range ports {
		if !slices.Contains(CriticalPorts, port) {
			continue
		}
		if _, err := fmt.Fprintf(w, "Critical Web Port: %d\n", port); err != nil {
			return err
		}
		if line, ok := responses[port]; ok {
			if _, err := fmt.Fprintf(w, "   Response: %s\n", line); err != nil {
				return err
			}
		}
	}
	return nil
}
