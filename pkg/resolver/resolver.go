// Package resolver turns a target hostname into the address a scan session probes.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
)

// Target is the resolved scan target. It is created once per session and never mutated.
type Target struct {
	Hostname string `json:"hostname"`
	Address  net.IP `json:"address"`
}

// String returns "host (ip)"
func (t Target) String() string {
	return fmt.Sprintf("%s (%s)", t.Hostname, t.Address)
}

// ResolutionError is returned when the target cannot be mapped to an address.
// A session must not start scanning after this error.
type ResolutionError struct {
	Host string
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("could not resolve %s: %v", e.Host, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// ErrNoAddress is wrapped when a lookup succeeds but returns no usable records
var ErrNoAddress = errors.New("no A or AAAA records found")

// Resolver resolves hostnames through the system resolver or an explicit DNS server
type Resolver struct {
	server  string
	timeout time.Duration

	// lookup is the system resolver call, replaced in tests
	lookup func(ctx context.Context, host string) ([]net.IPAddr, error)
}

// New creates a Resolver. An empty server uses the system resolver.
func New(server string, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Resolver{
		server:  server,
		timeout: timeout,
		lookup:  net.DefaultResolver.LookupIPAddr,
	}
}

// Resolve maps hostname to a Target. IP literals are returned without a lookup.
// IPv4 addresses are preferred over IPv6. There are no retries.
func (r *Resolver) Resolve(ctx context.Context, hostname string) (Target, error) {
	if hostname == "" {
		return Target{}, &ResolutionError{Host: hostname, Err: errors.New("empty hostname")}
	}

	if ip := net.ParseIP(hostname); ip != nil {
		return Target{Hostname: hostname, Address: normalize(ip)}, nil
	}

	var (
		ips []net.IP
		err error
	)
	if r.server != "" {
		ips, err = r.queryServer(ctx, hostname)
	} else {
		ips, err = r.querySystem(ctx, hostname)
	}
	if err != nil {
		return Target{}, &ResolutionError{Host: hostname, Err: err}
	}

	ip := pick(ips)
	if ip == nil {
		return Target{}, &ResolutionError{Host: hostname, Err: ErrNoAddress}
	}
	return Target{Hostname: hostname, Address: ip}, nil
}

func (r *Resolver) querySystem(ctx context.Context, hostname string) ([]net.IP, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	addrs, err := r.lookup(ctx, hostname)
	if err != nil {
		return nil, err
	}
	ips := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		ips = append(ips, a.IP)
	}
	return ips, nil
}

// queryServer asks the configured server for A records, then AAAA if there were none
func (r *Resolver) queryServer(ctx context.Context, hostname string) ([]net.IP, error) {
	server := r.server
	// Ensure server has port
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
	}

	client := &dns.Client{
		Net:     "udp",
		Timeout: r.timeout,
	}

	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		msg := new(dns.Msg)
		msg.SetQuestion(dns.Fqdn(hostname), qtype)
		msg.RecursionDesired = true

		resp, _, err := client.ExchangeContext(ctx, msg, server)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", server, err)
		}
		if resp.Rcode != dns.RcodeSuccess {
			return nil, fmt.Errorf("query %s: %s", server, dns.RcodeToString[resp.Rcode])
		}

		var ips []net.IP
		for _, rr := range resp.Answer {
			switch rec := rr.(type) {
			case *dns.A:
				ips = append(ips, rec.A)
			case *dns.AAAA:
				ips = append(ips, rec.AAAA)
			}
		}
		if len(ips) > 0 {
			return ips, nil
		}
	}
	return nil, nil
}

// pick returns the first IPv4 address, falling back to the first IPv6 address
func pick(ips []net.IP) net.IP {
	var firstV6 net.IP
	for _, ip := range ips {
		if v4 := ip.To4(); v4 != nil {
			return v4
		}
		if firstV6 == nil {
			firstV6 = ip
		}
	}
	return firstV6
}

func normalize(ip net.IP) net.IP {
	if v4 := ip.To4(); v4 != nil {
		return v4
	}
	return ip
}
