package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/velemoonkon/portscout/pkg/probe"
	"github.com/velemoonkon/portscout/pkg/report"
)

// markdownBannerChars is the banner width in the ports table
const markdownBannerChars = 60

// MarkdownWriter renders a report as a Markdown document
type MarkdownWriter struct {
	output io.Writer
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to w
func NewMarkdownWriter(w io.Writer) *MarkdownWriter {
	return &MarkdownWriter{output: w}
}

// Write outputs the report
func (w *MarkdownWriter) Write(r *report.Report) error {
	md := markdown.NewMarkdown(w.output)

	md.H1("Port Scan Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Target", "`" + r.Target + "`"},
			{"Address", "`" + r.Address + "`"},
			{"Scan Time", r.ScanTime.Format("2006-01-02 15:04:05 MST")},
			{"Duration", r.Elapsed.Round(time.Millisecond).String()},
			{"Strategy", r.Strategy},
			{"Ports Probed", strconv.Itoa(r.Probed)},
			{"Open Ports", strconv.Itoa(r.OpenCount())},
		},
	})
	md.PlainText("")

	if r.FellBack {
		md.Warningf("Stealth probing was unavailable; %d ports were probed with full connects.", r.Probed)
		md.PlainText("")
	}
	if r.Errors > 0 {
		md.Note(fmt.Sprintf("%d probes failed with errors and were counted as not open.", r.Errors))
		md.PlainText("")
	}

	md.H2("Open Ports")
	md.PlainText("")

	if r.OpenCount() == 0 {
		md.PlainText("No open ports found (0 open ports).")
		md.PlainText("")
		return md.Build()
	}

	rows := make([][]string, len(r.Ports))
	for i, p := range r.Ports {
		rows[i] = []string{
			strconv.Itoa(p.Number),
			p.State,
			p.Service,
			markdownBanner(p.Banner),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Port", "State", "Service", "Banner"},
		Rows:   rows,
	})
	md.PlainText("")

	return md.Build()
}

// markdownBanner makes a banner safe for a single table cell
func markdownBanner(banner string) string {
	if banner == "" {
		return "-"
	}
	b := strings.Join(strings.Fields(banner), " ")
	b = strings.ReplaceAll(b, "|", `\|`)
	if len(b) > markdownBannerChars {
		b = probe.Truncate(b, markdownBannerChars-3) + "..."
	}
	return "`" + b + "`"
}
