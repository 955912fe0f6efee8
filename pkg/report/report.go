// Package report turns a finished scan session into the console summary and
// the persisted text record.
package report

import (
	"slices"
	"time"

	"github.com/velemoonkon/portscout/pkg/probe"
	"github.com/velemoonkon/portscout/pkg/scanner"
	"github.com/velemoonkon/portscout/pkg/service"
)

// Truncation limits for rendered banners
const (
	SummaryBannerBytes   = 30
	PersistedBannerBytes = 500
)

// Port is one open port in a report
type Port struct {
	Number  int    `json:"port"`
	State   string `json:"state"`
	Service string `json:"service"`
	Banner  string `json:"banner,omitzero"`
}

// Report is a read-only projection of a Session. It is never mutated after Generate.
type Report struct {
	Target   string        `json:"target"`
	Address  string        `json:"address"`
	ScanTime time.Time     `json:"scan_time"`
	Elapsed  time.Duration `json:"elapsed_ns"`
	Strategy string        `json:"strategy"`
	FellBack bool          `json:"fell_back,omitzero"`
	Probed   int           `json:"probed"`
	Errors   int           `json:"errors"`
	Ports    []Port        `json:"ports"`
}

// OpenCount returns the number of open ports
func (r *Report) OpenCount() int {
	return len(r.Ports)
}

// OpenPorts returns the open port numbers in ascending order
func (r *Report) OpenPorts() []int {
	ports := make([]int, len(r.Ports))
	for i, p := range r.Ports {
		ports[i] = p.Number
	}
	return ports
}

// Generate builds a report from session, stamped with now
func Generate(session *scanner.Session, now time.Time) *Report {
	open := slices.Clone(session.OpenPorts)
	slices.Sort(open)
	open = slices.Compact(open)

	ports := make([]Port, 0, len(open))
	for _, n := range open {
		ports = append(ports, Port{
			Number:  n,
			State:   probe.StateOpen.String(),
			Service: service.Classify(n),
			Banner:  probe.Truncate(session.Banners[n], PersistedBannerBytes),
		})
	}

	return &Report{
		Target:   session.Target.Hostname,
		Address:  session.Target.Address.String(),
		ScanTime: now,
		Elapsed:  session.Elapsed,
		Strategy: session.Strategy.String(),
		FellBack: session.FellBack,
		Probed:   session.Probed,
		Errors:   session.Errors,
		Ports:    ports,
	}
}
