package output

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
	"github.com/velemoonkon/portscout/pkg/report"
)

// ParquetRow is one open port of one report.
// Report-level fields are repeated on every row so the file stays flat.
type ParquetRow struct {
	Target     string `parquet:"target,zstd,dict"`
	Address    string `parquet:"address,zstd,dict"`
	ScanTimeMs int64  `parquet:"scan_time_ms"`
	ElapsedMs  int64  `parquet:"elapsed_ms"`
	Strategy   string `parquet:"strategy,zstd,dict"`
	FellBack   bool   `parquet:"fell_back"`

	Port    int32  `parquet:"port"`
	State   string `parquet:"state,zstd,dict"`
	Service string `parquet:"service,zstd,dict"`
	Banner  string `parquet:"banner,zstd"`
}

// ParquetWriter writes reports to a Parquet file
type ParquetWriter struct {
	file   *os.File
	writer *parquet.GenericWriter[ParquetRow]
	count  int
}

// NewParquetWriter creates a Parquet writer with zstd compression
func NewParquetWriter(filename string) (*ParquetWriter, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet file: %w", err)
	}

	writer := parquet.NewGenericWriter[ParquetRow](file,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedDefault}),
		parquet.CreatedBy("portscout", "1.0.0", "go"),
	)

	return &ParquetWriter{
		file:   file,
		writer: writer,
	}, nil
}

// Write flattens a report into one row per open port
func (w *ParquetWriter) Write(r *report.Report) error {
	rows := reportToParquetRows(r)
	if len(rows) == 0 {
		return nil
	}

	if _, err := w.writer.Write(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}

	w.count += len(rows)
	return nil
}

// Close finalizes and closes the Parquet file
func (w *ParquetWriter) Close() error {
	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return w.file.Close()
}

// Count returns the number of rows written
func (w *ParquetWriter) Count() int {
	return w.count
}

func reportToParquetRows(r *report.Report) []ParquetRow {
	rows := make([]ParquetRow, 0, len(r.Ports))
	for _, p := range r.Ports {
		rows = append(rows, ParquetRow{
			Target:     r.Target,
			Address:    r.Address,
			ScanTimeMs: r.ScanTime.UnixMilli(),
			ElapsedMs:  r.Elapsed.Milliseconds(),
			Strategy:   r.Strategy,
			FellBack:   r.FellBack,
			Port:       int32(p.Number),
			State:      p.State,
			Service:    p.Service,
			Banner:     p.Banner,
		})
	}
	return rows
}
