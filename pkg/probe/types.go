// Package probe determines whether a single TCP port on a target accepts connections.
//
// Two strategies are provided: ConnectProber completes a full handshake and tries to
// read a banner, StealthProber sends a lone SYN over a raw socket. Both report through
// Outcome and never return per-port failures as errors.
package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"unicode/utf8"
)

// Banner limits
const (
	// MaxBannerBytes is the most banner data kept per port
	MaxBannerBytes = 200

	// DisplayBannerBytes is the banner prefix shown in live log lines
	DisplayBannerBytes = 100

	// bannerReadBytes is the size of the single read after the request is sent
	bannerReadBytes = 1024
)

// State is the result of one probe
type State int

const (
	StateClosed State = iota
	StateOpen
	StateError
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Outcome is produced exactly once per port per pass.
// Banner is only ever set on open ports. Err keeps the underlying cause
// for closed and error outcomes and is informational only.
type Outcome struct {
	Port   int
	State  State
	Banner string
	Err    error
}

// Prober probes a single port of an address
type Prober interface {
	// Name returns the strategy identifier ("connect", "stealth")
	Name() string

	// Probe checks one port. It never blocks longer than its configured timeout
	// and always returns an Outcome.
	Probe(ctx context.Context, ip net.IP, port int) Outcome
}

// PrivilegeError reports that a raw socket could not be opened
type PrivilegeError struct {
	Op  string
	Err error
}

func (e *PrivilegeError) Error() string {
	return fmt.Sprintf("%s requires raw socket privileges (run as root or with CAP_NET_RAW): %v", e.Op, e.Err)
}

func (e *PrivilegeError) Unwrap() error {
	return e.Err
}

// IsPrivilegeError reports whether err is or wraps a *PrivilegeError
func IsPrivilegeError(err error) bool {
	var pe *PrivilegeError
	return errors.As(err, &pe)
}

// DisplayBanner returns the banner prefix used for console output
func DisplayBanner(banner string) string {
	return Truncate(banner, DisplayBannerBytes)
}

// Truncate cuts s to at most n bytes. It backs off only when the cut would
// split a valid multi-byte UTF-8 sequence; binary data is cut at exactly n.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 0 {
		return ""
	}
	for i := 1; i < utf8.UTFMax && i <= n; i++ {
		if !utf8.RuneStart(s[n-i]) {
			continue
		}
		// s[n-i] starts the last sequence before the cut
		if r, size := utf8.DecodeRuneInString(s[n-i:]); (r != utf8.RuneError || size > 1) && size > i {
			return s[:n-i]
		}
		break
	}
	return s[:n]
}
