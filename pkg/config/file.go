package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// AppName is used for XDG directory names
const AppName = "portscout"

// DefaultConfigFile is the config file name looked up in the current directory
const DefaultConfigFile = ".portscout.yaml"

// ErrConfigNotFound is returned when the configuration file does not exist
var ErrConfigNotFound = errors.New("configuration file not found")

// Validation errors for profile files
var (
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")
	ErrInvalidPort    = errors.New("invalid port: must be within 1-65535")
)

// File is the on-disk YAML profile
//
//	workers: 200
//	timeout: 1s
//	report_dir: ./reports
//	ports:
//	  quick: [22, 80, 443]
//	  web: [80, 443, 8080]
type File struct {
	Workers   int              `yaml:"workers"`
	Timeout   time.Duration    `yaml:"timeout"`
	ReportDir string           `yaml:"report_dir"`
	DNSServer string           `yaml:"dns_server"`
	Ports     map[string][]int `yaml:"ports"`
}

// LoadFile reads a YAML profile. A missing file yields ErrConfigNotFound.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if f.Ports == nil {
		f.Ports = make(map[string][]int)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &f, nil
}

// Validate checks the values present in the file. Zero values mean "not set".
func (f *File) Validate() error {
	if f.Workers < 0 {
		return ErrInvalidWorkers
	}
	if f.Timeout < 0 {
		return ErrInvalidTimeout
	}
	for name, ports := range f.Ports {
		for _, p := range ports {
			if p < 1 || p > 65535 {
				return fmt.Errorf("ports.%s: %d: %w", name, p, ErrInvalidPort)
			}
		}
	}
	return nil
}

// Apply overlays the file onto the global configuration
func (f *File) Apply() {
	if f.Workers > 0 {
		Scanner.Workers = f.Workers
	}
	if f.Timeout > 0 {
		Scanner.Timeout = f.Timeout
	}
	if f.ReportDir != "" {
		Report.Dir = f.ReportDir
	}
	if f.DNSServer != "" {
		DNS.Server = f.DNSServer
	}
}

// FindConfigFile searches for the configuration file in order:
// 1. explicit path
// 2. .portscout.yaml in the current directory
// 3. $XDG_CONFIG_HOME/portscout/config.yaml
//
// Returns "" when nothing is found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		p := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	p := filepath.Join(XDGConfigDir(), "config.yaml")
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return ""
}

// XDGConfigDir returns the XDG config directory (~/.config/portscout on Linux)
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGDataDir returns the XDG data directory (~/.local/share/portscout on Linux)
// The scan history database lives here.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}
