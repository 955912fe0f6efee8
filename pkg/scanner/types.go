package scanner

import (
	"fmt"
	"strings"
	"time"

	"github.com/velemoonkon/portscout/pkg/config"
	"github.com/velemoonkon/portscout/pkg/probe"
	"github.com/velemoonkon/portscout/pkg/resolver"
)

// Strategy selects how ports are probed
type Strategy int

const (
	StrategyConnect Strategy = iota
	StrategyStealth
)

func (s Strategy) String() string {
	switch s {
	case StrategyConnect:
		return "connect"
	case StrategyStealth:
		return "stealth"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy parses "connect" or "stealth"
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "connect", "":
		return StrategyConnect, nil
	case "stealth", "syn":
		return StrategyStealth, nil
	default:
		return 0, fmt.Errorf("unknown strategy %q", name)
	}
}

// Session accumulates the results of one scan.
// It is written only by the collector goroutine; Banners keys are always a subset of OpenPorts.
type Session struct {
	Target    resolver.Target `json:"target"`
	OpenPorts []int           `json:"open_ports"` // discovery order
	Banners   map[int]string  `json:"banners,omitzero"`
	Strategy  Strategy        `json:"strategy"`
	Started   time.Time       `json:"started"`
	Elapsed   time.Duration   `json:"elapsed_ns"`
	Probed    int             `json:"probed"`
	Errors    int             `json:"errors"`
	FellBack  bool            `json:"fell_back,omitzero"` // stealth requested, connect used
}

func newSession(target resolver.Target, strategy Strategy) *Session {
	return &Session{
		Target:    target,
		OpenPorts: make([]int, 0),
		Banners:   make(map[int]string),
		Strategy:  strategy,
		Started:   time.Now(),
	}
}

// record applies one outcome
func (s *Session) record(o probe.Outcome) {
	s.Probed++
	switch o.State {
	case probe.StateOpen:
		s.OpenPorts = append(s.OpenPorts, o.Port)
		if o.Banner != "" {
			s.Banners[o.Port] = o.Banner
		}
	case probe.StateError:
		s.Errors++
	}
}

// ConfigurationError reports invalid scan parameters. Nothing is probed when it is returned.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Config contains scanner configuration
type Config struct {
	Workers       int           // Concurrent port probes, must be > 0
	Timeout       time.Duration // Per-probe dial/SYN timeout
	BannerTimeout time.Duration // Banner read budget after connect, 0 disables banners
	RateLimit     int           // Max ports per second (0 or negative = no limit, uses rate.Inf)
	BatchSize     int           // Ports per batch for ScanBatches
	BatchPause    time.Duration // Pause between batches
	Strategy      Strategy
	Quiet         bool // Suppress per-port log lines
}

// DefaultConfig returns default scanner configuration taken from config.Scanner
func DefaultConfig() Config {
	cfg := config.Scanner
	return Config{
		Workers:       cfg.Workers,
		Timeout:       cfg.Timeout,
		BannerTimeout: cfg.BannerTimeout,
		RateLimit:     cfg.RateLimit,
		BatchSize:     cfg.BatchSize,
		BatchPause:    cfg.BatchPause,
		Strategy:      StrategyConnect,
	}
}
