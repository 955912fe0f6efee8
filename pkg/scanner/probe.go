package scanner

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/velemoonkon/portscout/pkg/probe"
)

// dispatcher routes each port to the prober for the session's strategy.
// A stealth session switches to connect probing for good on the first
// privilege error; the port that hit it is re-probed with connect.
type dispatcher struct {
	strategy Strategy
	connect  probe.Prober
	stealth  probe.Prober

	fellBack atomic.Bool
	notice   sync.Once
}

func newDispatcher(strategy Strategy, connect, stealth probe.Prober) *dispatcher {
	return &dispatcher{
		strategy: strategy,
		connect:  connect,
		stealth:  stealth,
	}
}

// probe runs one probe for port
func (d *dispatcher) probe(ctx context.Context, ip net.IP, port int) probe.Outcome {
	if d.strategy != StrategyStealth || d.fellBack.Load() {
		return d.connect.Probe(ctx, ip, port)
	}

	out := d.stealth.Probe(ctx, ip, port)
	if !probe.IsPrivilegeError(out.Err) {
		return out
	}

	d.fellBack.Store(true)
	d.notice.Do(func() {
		slog.Info("stealth probing unavailable, falling back to connect probing",
			"reason", out.Err,
		)
	})
	return d.connect.Probe(ctx, ip, port)
}
