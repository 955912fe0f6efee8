package probe

import (
	"context"
	"errors"
	"net"
	"strconv"
	"syscall"
	"time"
)

// bannerRequest is sent on every open connection to coax a response
var bannerRequest = []byte("HEAD / HTTP/1.0\r\n\r\n")

// ConnectProber performs a full TCP handshake and a best-effort banner grab
type ConnectProber struct {
	Dialer        Dialer
	Timeout       time.Duration
	BannerTimeout time.Duration
}

// NewConnectProber creates a connect prober. A nil dialer dials directly.
func NewConnectProber(d Dialer, timeout, bannerTimeout time.Duration) *ConnectProber {
	if d == nil {
		d = NewNetDialer(timeout)
	}
	return &ConnectProber{
		Dialer:        d,
		Timeout:       timeout,
		BannerTimeout: bannerTimeout,
	}
}

// Name returns the strategy identifier
func (p *ConnectProber) Name() string {
	return "connect"
}

// Probe dials ip:port. Refused and timed-out dials are closed, other dial
// failures are errors. Banner failures never change an open result.
func (p *ConnectProber) Probe(ctx context.Context, ip net.IP, port int) Outcome {
	address := net.JoinHostPort(ip.String(), strconv.Itoa(port))

	dialCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	conn, err := p.Dialer.DialContext(dialCtx, "tcp", address)
	if err != nil {
		return Outcome{Port: port, State: classifyDialError(err), Err: err}
	}
	defer conn.Close()

	return Outcome{
		Port:   port,
		State:  StateOpen,
		Banner: grabBanner(conn, p.BannerTimeout),
	}
}

// grabBanner writes the request and keeps the first MaxBannerBytes of one read
func grabBanner(conn net.Conn, timeout time.Duration) string {
	if timeout <= 0 {
		return ""
	}
	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return ""
	}
	if _, err := conn.Write(bannerRequest); err != nil {
		return ""
	}

	buf := make([]byte, bannerReadBytes)
	n, _ := conn.Read(buf)
	if n == 0 {
		return ""
	}
	return Truncate(string(buf[:n]), MaxBannerBytes)
}

// classifyDialError maps a dial failure to a port state
func classifyDialError(err error) State {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return StateClosed
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return StateClosed
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return StateClosed
	}
	return StateError
}
