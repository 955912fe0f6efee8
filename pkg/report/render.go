package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/velemoonkon/portscout/pkg/probe"
)

const (
	scanTimeLayout = "2006-01-02 15:04:05"
	ctimeLayout    = "Mon Jan _2 15:04:05 2006"
)

var (
	heavyRule = strings.Repeat("=", 60)
	lightRule = strings.Repeat("-", 60)
	portRule  = strings.Repeat("-", 40)
)

// RenderSummary writes the console summary: ports ascending, one table row each
func RenderSummary(w io.Writer, r *Report) error {
	var b strings.Builder

	fmt.Fprintf(&b, "\n%s\n", heavyRule)
	fmt.Fprintln(&b, "PORT SCAN REPORT")
	fmt.Fprintln(&b, heavyRule)
	fmt.Fprintf(&b, "Target: %s (%s)\n", r.Target, r.Address)
	fmt.Fprintf(&b, "Open Ports: %d\n", r.OpenCount())
	fmt.Fprintf(&b, "Scan Time: %s\n", r.ScanTime.Format(scanTimeLayout))
	fmt.Fprintf(&b, "Duration: %s\n", r.Elapsed.Round(time.Millisecond))
	if r.FellBack {
		fmt.Fprintln(&b, "Note: stealth probing unavailable, connect probing was used")
	}
	fmt.Fprintf(&b, "%s\n", lightRule)

	if r.OpenCount() == 0 {
		fmt.Fprintln(&b, "No open ports found (0 open ports).")
		_, err := io.WriteString(w, b.String())
		return err
	}

	tw := tabwriter.NewWriter(&b, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "PORT\tSTATE\tSERVICE\tBANNER")
	for _, p := range r.Ports {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", p.Number, strings.ToUpper(p.State), p.Service, summaryBanner(p.Banner))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(&b, heavyRule)

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderPersisted writes the persisted text record
func RenderPersisted(w io.Writer, r *Report) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Port Scan Report - %s\n", r.Target)
	fmt.Fprintf(&b, "IP: %s\n", r.Address)
	fmt.Fprintf(&b, "Scan Time: %s\n", r.ScanTime.Format(ctimeLayout))
	fmt.Fprintf(&b, "Open Ports: %d\n\n", r.OpenCount())

	for _, p := range r.Ports {
		fmt.Fprintf(&b, "Port %d (%s):\n", p.Number, p.Service)
		fmt.Fprintf(&b, "  Banner: %s\n", probe.Truncate(p.Banner, PersistedBannerBytes))
		fmt.Fprintln(&b, portRule)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// summaryBanner cuts the banner to one table-safe line of at most
// SummaryBannerBytes, plus "..." when it was cut
func summaryBanner(banner string) string {
	if banner == "" {
		return "N/A"
	}
	cut := probe.Truncate(banner, SummaryBannerBytes)
	truncated := len(cut) < len(banner)

	// Replacements are one byte each so the cell never grows
	var b strings.Builder
	b.Grow(len(cut) + 3)
	for i := 0; i < len(cut); {
		r, size := utf8.DecodeRuneInString(cut[i:])
		switch {
		case r == utf8.RuneError && size == 1:
			b.WriteByte('?')
		case r < 0x20 || r == 0x7f:
			b.WriteByte(' ')
		default:
			b.WriteString(cut[i : i+size])
		}
		i += size
	}
	if truncated {
		b.WriteString("...")
	}
	return b.String()
}
