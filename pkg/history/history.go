// Package history keeps a SQLite log of finished scans so earlier results for
// a target can be listed later.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/velemoonkon/portscout/pkg/report"
)

// DBName is the database file created inside the history directory
const DBName = "portscout.db"

// Store is a scan history database
type Store struct {
	db     *sql.DB
	dbPath string
}

// Entry is one recorded scan
type Entry struct {
	ID        int64
	Target    string
	Address   string
	ScanType  string
	Strategy  string
	ScannedAt time.Time
	Elapsed   time.Duration
	OpenPorts []int
}

// Open opens or creates the history database in dir
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	dbPath := filepath.Join(dir, DBName)

	db, err := sql.Open("sqlite", dbPath+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// SQLite allows one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, dbPath: dbPath}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	if _, err := s.db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS scans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		target TEXT NOT NULL,
		address TEXT NOT NULL,
		scan_type TEXT NOT NULL,
		strategy TEXT NOT NULL,
		scanned_at TEXT NOT NULL,
		elapsed_ms INTEGER NOT NULL,
		open_ports TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_scans_target ON scans(target, scanned_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create history tables: %w", err)
	}
	return nil
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores r under scanType and returns the new row id
func (s *Store) Record(ctx context.Context, r *report.Report, scanType string) (int64, error) {
	ports, err := json.Marshal(r.OpenPorts())
	if err != nil {
		return 0, fmt.Errorf("failed to encode open ports: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
	INSERT INTO scans (target, address, scan_type, strategy, scanned_at, elapsed_ms, open_ports)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		r.Target,
		r.Address,
		scanType,
		r.Strategy,
		r.ScanTime.UTC().Format(time.RFC3339Nano),
		r.Elapsed.Milliseconds(),
		string(ports),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record scan: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit entries, newest first. An empty target lists all targets.
func (s *Store) Recent(ctx context.Context, target string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
	SELECT id, target, address, scan_type, strategy, scanned_at, elapsed_ms, open_ports
	FROM scans
	WHERE (? = '' OR target = ?)
	ORDER BY scanned_at DESC, id DESC
	LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, target, target, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			scannedAt string
			elapsedMs int64
			ports     string
		)
		if err := rows.Scan(&e.ID, &e.Target, &e.Address, &e.ScanType, &e.Strategy, &scannedAt, &elapsedMs, &ports); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		if e.ScannedAt, err = time.Parse(time.RFC3339Nano, scannedAt); err != nil {
			return nil, fmt.Errorf("history row %d: bad timestamp %q: %w", e.ID, scannedAt, err)
		}
		if err := json.Unmarshal([]byte(ports), &e.OpenPorts); err != nil {
			return nil, fmt.Errorf("history row %d: bad port list: %w", e.ID, err)
		}
		e.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
