package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/velemoonkon/portscout/pkg/report"
)

// JSONLWriter appends reports as JSON Lines, one report object per line.
// Opening an existing file appends to it, so a fixed path becomes a scan log.
type JSONLWriter struct {
	closer io.Closer
	enc    *json.Encoder
	count  int
}

// NewJSONLWriter opens filename for appending. "-" or "" writes to stdout.
func NewJSONLWriter(filename string) (*JSONLWriter, error) {
	if filename == "-" || filename == "" {
		return NewJSONLWriterFromWriter(os.Stdout), nil
	}

	f, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644) //nolint:gosec // report path chosen by the user
	if err != nil {
		return nil, fmt.Errorf("failed to open output file: %w", err)
	}

	w := NewJSONLWriterFromWriter(f)
	w.closer = f
	return w, nil
}

// NewJSONLWriterFromWriter wraps w. Close does not close w.
func NewJSONLWriterFromWriter(w io.Writer) *JSONLWriter {
	enc := json.NewEncoder(w)
	// Banners routinely carry HTML
	enc.SetEscapeHTML(false)
	return &JSONLWriter{enc: enc}
}

// Write encodes r followed by a newline
func (w *JSONLWriter) Write(r *report.Report) error {
	if err := w.enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report for %s: %w", r.Target, err)
	}
	w.count++
	return nil
}

// Close closes the underlying file if the writer opened it
func (w *JSONLWriter) Close() error {
	if w.closer == nil {
		return nil
	}
	return w.closer.Close()
}

// Count returns the number of reports written
func (w *JSONLWriter) Count() int {
	return w.count
}
