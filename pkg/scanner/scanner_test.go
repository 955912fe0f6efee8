package scanner

import (
	"context"
	"errors"
	"net"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/velemoonkon/portscout/pkg/probe"
	"github.com/velemoonkon/portscout/pkg/resolver"
)

// fakeProber answers from a fixed table and counts calls per port
type fakeProber struct {
	name    string
	open    map[int]string // port -> banner
	failing map[int]error  // port -> error outcome
	err     error          // returned for every port when set

	mu    sync.Mutex
	calls map[int]int
}

func newFakeProber(name string, open map[int]string) *fakeProber {
	return &fakeProber{name: name, open: open, calls: make(map[int]int)}
}

func (f *fakeProber) Name() string { return f.name }

func (f *fakeProber) Probe(ctx context.Context, ip net.IP, port int) probe.Outcome {
	f.mu.Lock()
	f.calls[port]++
	f.mu.Unlock()

	if f.err != nil {
		return probe.Outcome{Port: port, State: probe.StateError, Err: f.err}
	}
	if err, ok := f.failing[port]; ok {
		return probe.Outcome{Port: port, State: probe.StateError, Err: err}
	}
	if banner, ok := f.open[port]; ok {
		return probe.Outcome{Port: port, State: probe.StateOpen, Banner: banner}
	}
	return probe.Outcome{Port: port, State: probe.StateClosed}
}

func (f *fakeProber) callCount(port int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[port]
}

func (f *fakeProber) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

var testTarget = resolver.Target{Hostname: "example.com", Address: net.IPv4(93, 184, 216, 34).To4()}

func testConfig() Config {
	return Config{
		Workers:   10,
		BatchSize: 1000,
		Quiet:     true,
	}
}

func sorted(ports []int) []int {
	out := slices.Clone(ports)
	slices.Sort(out)
	return out
}

func TestScanOpenPortsAndBanners(t *testing.T) {
	connect := newFakeProber("connect", map[int]string{
		80:  "HTTP/1.1 200 OK",
		443: "",
	})
	s := NewScanner(testConfig(), connect, nil)

	session, err := s.Scan(context.Background(), testTarget, []int{80, 443, 81})
	require.NoError(t, err)

	assert.Equal(t, []int{80, 443}, sorted(session.OpenPorts))
	assert.Equal(t, map[int]string{80: "HTTP/1.1 200 OK"}, session.Banners)
	assert.Equal(t, 3, session.Probed)
	assert.Equal(t, 0, session.Errors)
	assert.Equal(t, testTarget, session.Target)
	assert.Equal(t, StrategyConnect, session.Strategy)
	assert.False(t, session.FellBack)
	assert.False(t, session.Started.IsZero())
}

func TestScanNoPhantomPorts(t *testing.T) {
	connect := newFakeProber("connect", map[int]string{22: "SSH-2.0", 9999: "x"})
	s := NewScanner(testConfig(), connect, nil)

	session, err := s.Scan(context.Background(), testTarget, []int{21, 22, 23})
	require.NoError(t, err)

	assert.Equal(t, []int{22}, session.OpenPorts)
	assert.Zero(t, connect.callCount(9999))
	for port := range session.Banners {
		assert.Contains(t, session.OpenPorts, port)
	}
}

func TestScanProbesEachPortOnce(t *testing.T) {
	connect := newFakeProber("connect", map[int]string{8080: ""})
	s := NewScanner(testConfig(), connect, nil)

	session, err := s.Scan(context.Background(), testTarget, WebPorts)
	require.NoError(t, err)

	assert.Equal(t, 1, connect.callCount(8080))
	assert.Equal(t, []int{8080}, session.OpenPorts)
	assert.Equal(t, len(dedupe(WebPorts)), session.Probed)
	assert.Equal(t, len(WebPorts)-1, len(dedupe(WebPorts)))
}

func TestScanIdempotent(t *testing.T) {
	connect := newFakeProber("connect", map[int]string{22: "SSH-2.0-OpenSSH", 80: "", 3306: "mysql"})
	s := NewScanner(testConfig(), connect, nil)

	first, err := s.Scan(context.Background(), testTarget, CommonPorts)
	require.NoError(t, err)
	second, err := s.Scan(context.Background(), testTarget, CommonPorts)
	require.NoError(t, err)

	assert.Equal(t, sorted(first.OpenPorts), sorted(second.OpenPorts))
	assert.Equal(t, first.Banners, second.Banners)
	assert.NotSame(t, first, second)
}

func TestScanCountsErrors(t *testing.T) {
	connect := newFakeProber("connect", map[int]string{80: ""})
	connect.failing = map[int]error{81: errors.New("network unreachable")}
	s := NewScanner(testConfig(), connect, nil)

	session, err := s.Scan(context.Background(), testTarget, []int{80, 81, 82})
	require.NoError(t, err)

	assert.Equal(t, []int{80}, session.OpenPorts)
	assert.Equal(t, 1, session.Errors)
	assert.Equal(t, 3, session.Probed)
}

func TestScanValidation(t *testing.T) {
	tests := []struct {
		name    string
		workers int
		target  resolver.Target
		ports   []int
		field   string
	}{
		{"empty ports", 10, testTarget, nil, "ports"},
		{"port zero", 10, testTarget, []int{0, 80}, "ports"},
		{"port too large", 10, testTarget, []int{65536}, "ports"},
		{"no workers", 0, testTarget, []int{80}, "workers"},
		{"negative workers", -1, testTarget, []int{80}, "workers"},
		{"unresolved target", 10, resolver.Target{Hostname: "x"}, []int{80}, "target"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			connect := newFakeProber("connect", nil)
			cfg := testConfig()
			cfg.Workers = tt.workers
			s := NewScanner(cfg, connect, nil)

			session, err := s.Scan(context.Background(), tt.target, tt.ports)

			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
			assert.Nil(t, session)
			assert.Zero(t, connect.totalCalls())
		})
	}
}

func TestStealthFallsBackToConnect(t *testing.T) {
	stealth := newFakeProber("stealth", nil)
	stealth.err = &probe.PrivilegeError{Op: "stealth probe", Err: errors.New("operation not permitted")}
	connect := newFakeProber("connect", map[int]string{22: "SSH-2.0"})

	cfg := testConfig()
	cfg.Workers = 1
	cfg.Strategy = StrategyStealth
	s := NewScanner(cfg, connect, stealth)

	session, err := s.Scan(context.Background(), testTarget, []int{21, 22, 23, 25})
	require.NoError(t, err)

	assert.True(t, session.FellBack)
	assert.Equal(t, StrategyStealth, session.Strategy)
	assert.Equal(t, []int{22}, session.OpenPorts)
	assert.Equal(t, 0, session.Errors, "privilege errors are recovered, not counted")
	// One worker: only the first port hits the raw socket
	assert.Equal(t, 1, stealth.totalCalls())
	assert.Equal(t, 4, connect.totalCalls())
}

func TestStealthWithoutFallback(t *testing.T) {
	stealth := newFakeProber("stealth", map[int]string{443: ""})
	connect := newFakeProber("connect", nil)

	cfg := testConfig()
	cfg.Strategy = StrategyStealth
	s := NewScanner(cfg, connect, stealth)

	session, err := s.Scan(context.Background(), testTarget, []int{80, 443})
	require.NoError(t, err)

	assert.False(t, session.FellBack)
	assert.Equal(t, []int{443}, session.OpenPorts)
	assert.Zero(t, connect.totalCalls())
}

func TestScanCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	connect := newFakeProber("connect", map[int]string{80: ""})
	s := NewScanner(testConfig(), connect, nil)

	session, err := s.Scan(ctx, testTarget, FullRange())

	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, session)
	assert.Less(t, session.Probed, MaxPort)
}

func TestScanBatchesAggregates(t *testing.T) {
	connect := newFakeProber("connect", map[int]string{5: "", 1500: "banner", 2999: ""})
	cfg := testConfig()
	cfg.BatchPause = 0
	s := NewScanner(cfg, connect, nil)

	ports := make([]int, 0, 3000)
	for p := 1; p <= 3000; p++ {
		ports = append(ports, p)
	}

	session, err := s.ScanBatches(context.Background(), testTarget, ports)
	require.NoError(t, err)

	assert.Equal(t, []int{5, 1500, 2999}, sorted(session.OpenPorts))
	assert.Equal(t, map[int]string{1500: "banner"}, session.Banners)
	assert.Equal(t, 3000, session.Probed)
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"connect", StrategyConnect, false},
		{"", StrategyConnect, false},
		{"STEALTH", StrategyStealth, false},
		{"syn", StrategyStealth, false},
		{"udp", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseStrategy(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, got.String(), tt.want.String())
	}
}
