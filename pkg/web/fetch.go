// Package web fetches HTTP status lines from open web ports for display.
// Results never feed back into a scan session.
package web

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strconv"
	"sync"

	"github.com/velemoonkon/portscout/pkg/config"
	"github.com/velemoonkon/portscout/pkg/probe"
	"golang.org/x/sync/errgroup"
)

// CriticalPorts are the web ports worth a HEAD request
var CriticalPorts = []int{80, 443, 8080, 8443, 8000, 3000}

// tlsPorts are fetched over https
var tlsPorts = []int{443, 8443}

// Fetcher issues HEAD requests against open critical ports
type Fetcher struct {
	// Ports limits which open ports are fetched
	Ports []int

	client      *http.Client
	concurrency int
}

// NewFetcher creates a fetcher. A nil dialer dials directly.
func NewFetcher(cfg config.HTTPClientConfig, dialer probe.Dialer) *Fetcher {
	if dialer == nil {
		dialer = &net.Dialer{Timeout: cfg.DialTimeout}
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		MaxIdleConns:      cfg.MaxIdleConns,
		IdleConnTimeout:   cfg.IdleConnTimeout,
		DisableKeepAlives: true,
		DialContext:       dialer.DialContext,
	}

	return &Fetcher{
		Ports: CriticalPorts,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.RequestTimeout,
			// Report the first response, not where it redirects
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		concurrency: max(cfg.Concurrency, 1),
	}
}

// Fetch returns the status line ("HTTP/1.1 200 OK") for every open port in
// f.Ports that answered. Failures are logged at Debug and left out.
func (f *Fetcher) Fetch(ctx context.Context, host string, openPorts []int) map[int]string {
	var (
		mu      sync.Mutex
		results = make(map[int]string)
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for _, port := range openPorts {
		if !slices.Contains(f.Ports, port) {
			continue
		}
		g.Go(func() error {
			line, err := f.head(ctx, URL(host, port))
			if err != nil {
				slog.Debug("web fetch failed", "port", port, "error", err)
				return nil
			}
			mu.Lock()
			results[port] = line
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return results
}

func (f *Fetcher) head(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	return resp.Proto + " " + resp.Status, nil
}

// URL returns the base URL for host:port, https for TLS ports
func URL(host string, port int) string {
	scheme := "http"
	if slices.Contains(tlsPorts, port) {
		scheme = "https"
	}
	return scheme + "://" + net.JoinHostPort(host, strconv.Itoa(port))
}
