package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultScannerConfig(t *testing.T) {
	cfg := DefaultScannerConfig()

	assert.Equal(t, 100, cfg.Workers)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Equal(t, 1000, cfg.BatchSize)
	assert.Equal(t, time.Second, cfg.BatchPause)
	assert.Equal(t, 0, cfg.RateLimit)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORTSCOUT_SCANNER_WORKERS", "250")
	t.Setenv("PORTSCOUT_SCANNER_TIMEOUT", "750ms")
	t.Setenv("PORTSCOUT_BATCH_SIZE", "not-a-number")
	t.Setenv("PORTSCOUT_DNS_SERVER", "1.1.1.1")
	t.Setenv("PORTSCOUT_HISTORY", "yes")

	Init()
	t.Cleanup(func() {
		os.Unsetenv("PORTSCOUT_SCANNER_WORKERS")
		os.Unsetenv("PORTSCOUT_SCANNER_TIMEOUT")
		os.Unsetenv("PORTSCOUT_BATCH_SIZE")
		os.Unsetenv("PORTSCOUT_DNS_SERVER")
		os.Unsetenv("PORTSCOUT_HISTORY")
		Init()
	})

	assert.Equal(t, 250, Scanner.Workers)
	assert.Equal(t, 750*time.Millisecond, Scanner.Timeout)
	assert.Equal(t, 1000, Scanner.BatchSize, "invalid values fall back to the default")
	assert.Equal(t, "1.1.1.1", DNS.Server)
	assert.True(t, History)
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"1", true},
		{"ON", true},
		{"no", false},
		{"0", false},
		{"garbage", true}, // default
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("PORTSCOUT_TEST_BOOL", tt.value)
			assert.Equal(t, tt.want, getEnvBool("TEST_BOOL", true))
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `workers: 50
timeout: 1500ms
report_dir: /tmp/reports
ports:
  quick: [22, 80, 443]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	f, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 50, f.Workers)
	assert.Equal(t, 1500*time.Millisecond, f.Timeout)
	assert.Equal(t, "/tmp/reports", f.ReportDir)
	assert.Equal(t, []int{22, 80, 443}, f.Ports["quick"])
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(dir, "nope.yaml"))
		assert.ErrorIs(t, err, ErrConfigNotFound)
	})

	t.Run("bad port", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("ports:\n  web: [80, 70000]\n"), 0o600))
		_, err := LoadFile(path)
		assert.ErrorIs(t, err, ErrInvalidPort)
	})

	t.Run("negative workers", func(t *testing.T) {
		path := filepath.Join(dir, "workers.yaml")
		require.NoError(t, os.WriteFile(path, []byte("workers: -1\n"), 0o600))
		_, err := LoadFile(path)
		assert.ErrorIs(t, err, ErrInvalidWorkers)
	})
}

func TestFileApply(t *testing.T) {
	Init()
	t.Cleanup(Init)

	f := &File{Workers: 7, Timeout: 3 * time.Second, ReportDir: "out", DNSServer: "9.9.9.9"}
	f.Apply()

	assert.Equal(t, 7, Scanner.Workers)
	assert.Equal(t, 3*time.Second, Scanner.Timeout)
	assert.Equal(t, "out", Report.Dir)
	assert.Equal(t, "9.9.9.9", DNS.Server)
}

func TestFindConfigFileExplicit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 1\n"), 0o600))

	assert.Equal(t, path, FindConfigFile(path))
	assert.Equal(t, "", FindConfigFile(filepath.Join(dir, "missing.yaml")))
}
