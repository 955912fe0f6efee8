package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variable prefix for all portscout settings
const envPrefix = "PORTSCOUT_"

// ScannerConfig contains configurable scanner settings
type ScannerConfig struct {
	// Worker pool and per-probe timeouts
	Workers       int
	Timeout       time.Duration
	BannerTimeout time.Duration

	// Full-range batching
	BatchSize  int
	BatchPause time.Duration

	// Channel buffer sizes
	PortChannelBuffer   int
	ResultChannelBuffer int

	// Max ports/second, 0 = unlimited
	RateLimit int
}

// HTTPClientConfig contains settings for the web header fetch
type HTTPClientConfig struct {
	MaxIdleConns    int
	IdleConnTimeout time.Duration
	DialTimeout     time.Duration
	RequestTimeout  time.Duration
	Concurrency     int
}

// DNSConfig contains resolver settings
type DNSConfig struct {
	// Server is an explicit DNS server (host or host:port). Empty uses the system resolver.
	Server  string
	Timeout time.Duration
}

// ReportConfig contains report sink settings
type ReportConfig struct {
	Dir string
}

// DefaultScannerConfig returns default scanner configuration
func DefaultScannerConfig() ScannerConfig {
	return ScannerConfig{
		Workers:             getEnvInt("SCANNER_WORKERS", 100),                // 100 concurrent probes
		Timeout:             getEnvDuration("SCANNER_TIMEOUT", 2*time.Second), // 2s per connect
		BannerTimeout:       getEnvDuration("BANNER_TIMEOUT", 1*time.Second),  // 1s banner read
		BatchSize:           getEnvInt("BATCH_SIZE", 1000),                    // 1000 ports per batch
		BatchPause:          getEnvDuration("BATCH_PAUSE", 1*time.Second),     // 1s between batches
		PortChannelBuffer:   getEnvInt("SCANNER_PORT_BUFFER", 1000),           // 1000 ports
		ResultChannelBuffer: getEnvInt("SCANNER_RESULT_BUFFER", 1000),         // 1000 outcomes
		RateLimit:           getEnvInt("SCANNER_RATE_LIMIT", 0),               // unlimited
	}
}

// DefaultHTTPClientConfig returns default HTTP client configuration
func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		MaxIdleConns:    getEnvInt("HTTP_MAX_IDLE_CONNS", 10),
		IdleConnTimeout: getEnvDuration("HTTP_IDLE_CONN_TIMEOUT", 30*time.Second),
		DialTimeout:     getEnvDuration("HTTP_DIAL_TIMEOUT", 5*time.Second),
		RequestTimeout:  getEnvDuration("HTTP_REQUEST_TIMEOUT", 5*time.Second),
		Concurrency:     getEnvInt("HTTP_CONCURRENCY", 4),
	}
}

// DefaultDNSConfig returns default resolver configuration
func DefaultDNSConfig() DNSConfig {
	return DNSConfig{
		Server:  getEnvString("DNS_SERVER", ""),
		Timeout: getEnvDuration("DNS_TIMEOUT", 3*time.Second),
	}
}

// DefaultReportConfig returns default report configuration
func DefaultReportConfig() ReportConfig {
	return ReportConfig{
		Dir: getEnvString("REPORT_DIR", "."),
	}
}

// getEnvInt retrieves an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(envPrefix + key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable with a default value
// Accepts values like "500ms", "2s", "1m"
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if val := os.Getenv(envPrefix + key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable with a default value
// Accepts: "true", "false", "1", "0", "yes", "no" (case-insensitive)
func getEnvBool(key string, defaultValue bool) bool {
	if val := os.Getenv(envPrefix + key); val != "" {
		val = strings.ToLower(strings.TrimSpace(val))
		switch val {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return defaultValue
}

// getEnvString retrieves a string environment variable with a default value
func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(envPrefix + key); val != "" {
		return val
	}
	return defaultValue
}

// Global configuration instances (initialized once at startup)
var (
	Scanner = DefaultScannerConfig()
	HTTP    = DefaultHTTPClientConfig()
	DNS     = DefaultDNSConfig()
	Report  = DefaultReportConfig()

	// History enables the SQLite scan history without the --history flag
	History = getEnvBool("HISTORY", false)
)

// Init initializes all configuration from environment variables
// Call this at application startup
func Init() {
	Scanner = DefaultScannerConfig()
	HTTP = DefaultHTTPClientConfig()
	DNS = DefaultDNSConfig()
	Report = DefaultReportConfig()
	History = getEnvBool("HISTORY", false)
}
