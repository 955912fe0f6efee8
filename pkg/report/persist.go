package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Filename returns port_scan_<target>_<unixtime>.txt with path-unsafe characters replaced
func Filename(target string, t time.Time) string {
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':':
			return '_'
		}
		return r
	}, target)
	return fmt.Sprintf("port_scan_%s_%d.txt", safe, t.Unix())
}

// Save writes the persisted record into dir and returns its path.
// Reports without open ports are saved too.
func Save(dir string, r *Report) (string, error) {
	var buf bytes.Buffer
	if err := RenderPersisted(&buf, r); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}

	path := filepath.Join(dir, Filename(r.Target, r.ScanTime))
	if err := WriteAtomic(path, buf.Bytes()); err != nil {
		return "", err
	}
	return path, nil
}

// WriteAtomic writes data to a temp file in the target directory, syncs it
// and renames it into place
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	tmp, err := os.CreateTemp(dir, ".portscout-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
