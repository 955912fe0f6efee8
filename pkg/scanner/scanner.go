package scanner

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net"
	"slices"
	"sync"
	"time"

	"github.com/velemoonkon/portscout/pkg/config"
	"github.com/velemoonkon/portscout/pkg/probe"
	"github.com/velemoonkon/portscout/pkg/resolver"
	"github.com/velemoonkon/portscout/pkg/service"
	"golang.org/x/time/rate"
)

// Scanner probes the ports of one target with a bounded worker pool.
// It keeps no state between scans; every call builds a fresh Session.
type Scanner struct {
	config  Config
	limiter *rate.Limiter
	connect probe.Prober
	stealth probe.Prober
}

// NewScanner creates a scanner. Nil probers are replaced with the defaults
// built from cfg.Timeout and cfg.BannerTimeout.
func NewScanner(cfg Config, connect, stealth probe.Prober) *Scanner {
	// Create rate limiter - treat RateLimit <= 0 as no limit
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimit)
	} else {
		limiter = rate.NewLimiter(rate.Inf, 0) // No rate limit
	}

	if connect == nil {
		connect = probe.NewConnectProber(nil, cfg.Timeout, cfg.BannerTimeout)
	}
	if stealth == nil {
		stealth = probe.NewStealthProber(cfg.Timeout)
	}

	return &Scanner{
		config:  cfg,
		limiter: limiter,
		connect: connect,
		stealth: stealth,
	}
}

// Scan probes every port once and returns the session.
// On cancellation the partial session is returned together with ctx.Err().
func (s *Scanner) Scan(ctx context.Context, target resolver.Target, ports []int) (*Session, error) {
	if err := s.validate(target, ports); err != nil {
		return nil, err
	}
	ports = dedupe(ports)

	session := newSession(target, s.config.Strategy)
	d := newDispatcher(s.config.Strategy, s.connect, s.stealth)

	slog.Info("scanning ports",
		"target", target.String(),
		"ports", len(ports),
		"workers", s.config.Workers,
		"strategy", s.config.Strategy.String(),
	)

	err := s.scanPass(ctx, target.Address, slices.Values(ports), d, session)
	session.FellBack = d.fellBack.Load()
	session.Elapsed = time.Since(session.Started)

	slog.Info("scan completed",
		"elapsed", session.Elapsed.Round(time.Millisecond),
		"open", len(session.OpenPorts),
	)
	return session, err
}

// ScanBatches probes ports in consecutive batches of BatchSize, pausing
// BatchPause between batches. Batches never overlap. All batches feed one Session.
func (s *Scanner) ScanBatches(ctx context.Context, target resolver.Target, ports []int) (*Session, error) {
	if err := s.validate(target, ports); err != nil {
		return nil, err
	}
	ports = dedupe(ports)

	session := newSession(target, s.config.Strategy)
	d := newDispatcher(s.config.Strategy, s.connect, s.stealth)
	batches := Batches(ports, s.config.BatchSize)

	var err error
	for i, batch := range batches {
		if i > 0 && s.config.BatchPause > 0 {
			if err = pause(ctx, s.config.BatchPause); err != nil {
				break
			}
		}

		slog.Info("scanning batch",
			"batch", fmt.Sprintf("%d/%d", i+1, len(batches)),
			"first", batch[0],
			"last", batch[len(batch)-1],
		)

		if err = s.scanPass(ctx, target.Address, slices.Values(batch), d, session); err != nil {
			break
		}
	}

	session.FellBack = d.fellBack.Load()
	session.Elapsed = time.Since(session.Started)

	slog.Info("scan completed",
		"elapsed", session.Elapsed.Round(time.Millisecond),
		"open", len(session.OpenPorts),
		"batches", len(batches),
	)
	return session, err
}

// scanPass runs one pass over portSeq, recording outcomes into session.
// The session is written only by the collector goroutine started here.
// Channel buffer sizes come from PORTSCOUT_SCANNER_PORT_BUFFER and
// PORTSCOUT_SCANNER_RESULT_BUFFER (default: 1000 each)
func (s *Scanner) scanPass(ctx context.Context, ip net.IP, portSeq iter.Seq[int], d *dispatcher, session *Session) error {
	cfg := config.Scanner
	portChan := make(chan int, max(cfg.PortChannelBuffer, 0))
	resultChan := make(chan probe.Outcome, max(cfg.ResultChannelBuffer, 0))
	var wg sync.WaitGroup

	// Start workers
	for range s.config.Workers {
		wg.Go(func() {
			s.worker(ctx, d, ip, portChan, resultChan)
		})
	}

	// Single writer of session
	var collectorWg sync.WaitGroup
	collectorWg.Go(func() {
		for out := range resultChan {
			session.record(out)
			if !s.config.Quiet {
				logOutcome(out)
			}
		}
	})

	// Feed ports to workers with cooperative cancellation
	go func() {
		defer close(portChan)
		for port := range portSeq {
			// Check for cancellation before rate limiting
			select {
			case <-ctx.Done():
				return
			default:
			}

			// Apply rate limiting
			if err := s.limiter.Wait(ctx); err != nil {
				return
			}

			// Send port with cancellation check
			select {
			case <-ctx.Done():
				return
			case portChan <- port:
			}
		}
	}()

	// Wait for workers to complete
	wg.Wait()
	close(resultChan)

	// Wait for collector to finish
	collectorWg.Wait()

	return ctx.Err()
}

// worker probes ports until portChan closes.
// Uses select to stop immediately on cancellation, discarding any buffered ports
func (s *Scanner) worker(ctx context.Context, d *dispatcher, ip net.IP, portChan <-chan int, resultChan chan<- probe.Outcome) {
	for {
		select {
		case <-ctx.Done():
			return
		case port, ok := <-portChan:
			if !ok {
				return
			}

			out := d.probe(ctx, ip, port)

			// A probe cut short by cancellation says nothing about the port
			if ctx.Err() != nil {
				return
			}

			select {
			case <-ctx.Done():
				return
			case resultChan <- out:
			}
		}
	}
}

func (s *Scanner) validate(target resolver.Target, ports []int) error {
	if s.config.Workers <= 0 {
		return &ConfigurationError{Field: "workers", Reason: fmt.Sprintf("must be positive, got %d", s.config.Workers)}
	}
	if target.Address == nil {
		return &ConfigurationError{Field: "target", Reason: "no resolved address"}
	}
	return ValidatePorts(ports)
}

// pause waits for d or until ctx is done
func pause(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// logOutcome logs open ports at Info and everything else at Debug
func logOutcome(out probe.Outcome) {
	switch out.State {
	case probe.StateOpen:
		attrs := []any{
			slog.Int("port", out.Port),
			slog.String("service", service.Classify(out.Port)),
		}
		if out.Banner != "" {
			attrs = append(attrs, slog.String("banner", probe.DisplayBanner(out.Banner)))
		}
		slog.Info("open port", attrs...)
	case probe.StateError:
		slog.Debug("probe failed", slog.Int("port", out.Port), slog.Any("error", out.Err))
	default:
		slog.Debug("closed port", slog.Int("port", out.Port))
	}
}
