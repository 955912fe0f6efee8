package probe

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"os"
	"time"

	"golang.org/x/net/ipv4"
)

// Ephemeral source port range used for SYN probes
const (
	ephemeralLow  = 32768
	ephemeralSpan = 28232
)

// StealthProber sends a single SYN over a raw IPv4 socket and reads the reply.
// It never completes the handshake and never captures banners.
type StealthProber struct {
	Timeout time.Duration

	// listen opens the raw socket, replaced in tests
	listen func() (net.PacketConn, error)
}

// NewStealthProber creates a SYN prober
func NewStealthProber(timeout time.Duration) *StealthProber {
	return &StealthProber{
		Timeout: timeout,
		listen: func() (net.PacketConn, error) {
			return net.ListenPacket("ip4:tcp", "0.0.0.0")
		},
	}
}

// Name returns the strategy identifier
func (p *StealthProber) Name() string {
	return "stealth"
}

// Probe sends one SYN to ip:port. RST replies and silence are closed, any
// other reply from the port is open. Missing privileges are reported through
// a *PrivilegeError in Outcome.Err.
func (p *StealthProber) Probe(ctx context.Context, ip net.IP, port int) Outcome {
	dst := ip.To4()
	if dst == nil {
		return Outcome{Port: port, State: StateError, Err: fmt.Errorf("stealth probe of %s: IPv4 address required", ip)}
	}
	if !rawSocketsSupported {
		return Outcome{Port: port, State: StateError, Err: &PrivilegeError{Op: "stealth probe", Err: errors.ErrUnsupported}}
	}

	c, err := p.listen()
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return Outcome{Port: port, State: StateError, Err: &PrivilegeError{Op: "stealth probe", Err: err}}
		}
		return Outcome{Port: port, State: StateError, Err: fmt.Errorf("open raw socket: %w", err)}
	}
	defer c.Close()

	src, err := sourceAddr(dst)
	if err != nil {
		return Outcome{Port: port, State: StateError, Err: err}
	}

	pc := ipv4.NewPacketConn(c)
	srcPort := ephemeralLow + rand.IntN(ephemeralSpan)
	syn := buildSYN(src, dst, srcPort, port, rand.Uint32())

	deadline := time.Now().Add(p.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := pc.SetDeadline(deadline); err != nil {
		return Outcome{Port: port, State: StateError, Err: err}
	}

	// Unblock the read when the scan is cancelled
	stop := context.AfterFunc(ctx, func() {
		_ = pc.SetReadDeadline(time.Now())
	})
	defer stop()

	if _, err := pc.WriteTo(syn, nil, &net.IPAddr{IP: dst}); err != nil {
		if errors.Is(err, os.ErrPermission) {
			return Outcome{Port: port, State: StateError, Err: &PrivilegeError{Op: "stealth probe", Err: err}}
		}
		return Outcome{Port: port, State: StateError, Err: fmt.Errorf("send syn: %w", err)}
	}

	buf := make([]byte, 1500)
	for {
		n, _, from, err := pc.ReadFrom(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return Outcome{Port: port, State: StateClosed, Err: err}
			}
			return Outcome{Port: port, State: StateError, Err: err}
		}

		addr, ok := from.(*net.IPAddr)
		if !ok || !addr.IP.Equal(dst) {
			continue
		}
		seg, ok := parseSegment(buf[:n])
		if !ok || int(seg.srcPort) != port || int(seg.dstPort) != srcPort {
			continue
		}
		if state, ok := classifySegment(seg); ok {
			return Outcome{Port: port, State: state}
		}
	}
}

// sourceAddr finds the local address the kernel routes dst through
func sourceAddr(dst net.IP) (net.IP, error) {
	conn, err := net.Dial("udp4", net.JoinHostPort(dst.String(), "9"))
	if err != nil {
		return nil, fmt.Errorf("route lookup for %s: %w", dst, err)
	}
	defer conn.Close()

	local, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || local.IP.To4() == nil {
		return nil, fmt.Errorf("route lookup for %s: no IPv4 source address", dst)
	}
	return local.IP.To4(), nil
}
