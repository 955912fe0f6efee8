package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/velemoonkon/portscout/pkg/report"
)

// Supported report formats
const (
	FormatText     = "text"
	FormatJSONL    = "jsonl"
	FormatParquet  = "parquet"
	FormatMarkdown = "markdown"
)

// Formats lists every supported format
var Formats = []string{FormatText, FormatJSONL, FormatParquet, FormatMarkdown}

var extensions = map[string]string{
	FormatText:     ".txt",
	FormatJSONL:    ".jsonl",
	FormatParquet:  ".parquet",
	FormatMarkdown: ".md",
}

// ParseFormat normalizes a format name
func ParseFormat(name string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(name))
	switch f {
	case "", "txt":
		return FormatText, nil
	case "json", "ndjson":
		return FormatJSONL, nil
	case "md":
		return FormatMarkdown, nil
	}
	if _, ok := extensions[f]; ok {
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (want one of %s)", name, strings.Join(Formats, ", "))
}

// Path returns the file a report is written to for format
func Path(dir, format string, r *report.Report) string {
	name := strings.TrimSuffix(report.Filename(r.Target, r.ScanTime), ".txt")
	return filepath.Join(dir, name+extensions[format])
}

// WriteFile writes r into dir in the given format and returns the file path.
// The text format is the persisted record written by report.Save.
func WriteFile(dir, format string, r *report.Report) (string, error) {
	switch format {
	case FormatText:
		return report.Save(dir, r)
	case FormatJSONL:
		return writeWith(dir, format, r, func(path string) (reportWriter, error) {
			return NewJSONLWriter(path)
		})
	case FormatParquet:
		return writeWith(dir, format, r, func(path string) (reportWriter, error) {
			return NewParquetWriter(path)
		})
	case FormatMarkdown:
		return writeWith(dir, format, r, func(path string) (reportWriter, error) {
			f, err := os.Create(path)
			if err != nil {
				return nil, fmt.Errorf("failed to create markdown file: %w", err)
			}
			return &markdownFile{MarkdownWriter: NewMarkdownWriter(f), file: f}, nil
		})
	default:
		return "", fmt.Errorf("unknown format %q", format)
	}
}

type reportWriter interface {
	Write(*report.Report) error
	Close() error
}

// markdownFile owns the file behind a MarkdownWriter
type markdownFile struct {
	*MarkdownWriter
	file *os.File
}

func (m *markdownFile) Close() error {
	return m.file.Close()
}

func writeWith(dir, format string, r *report.Report, open func(string) (reportWriter, error)) (string, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	path := Path(dir, format, r)
	w, err := open(path)
	if err != nil {
		return "", err
	}
	if err := w.Write(r); err != nil {
		w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return path, nil
}
