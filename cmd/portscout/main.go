package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/velemoonkon/portscout/pkg/config"
	"github.com/velemoonkon/portscout/pkg/history"
	"github.com/velemoonkon/portscout/pkg/input"
	"github.com/velemoonkon/portscout/pkg/output"
	"github.com/velemoonkon/portscout/pkg/probe"
	"github.com/velemoonkon/portscout/pkg/report"
	"github.com/velemoonkon/portscout/pkg/resolver"
	"github.com/velemoonkon/portscout/pkg/scanner"
	"github.com/velemoonkon/portscout/pkg/web"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// CLI flags
var (
	// Ports
	portSpec  string
	portsFile string

	// Output
	outputDir    string
	outputFormat string
	recordScan   bool

	// Network
	dnsServer string
	proxyURL  string

	// Performance
	workers       int
	timeout       time.Duration
	bannerTimeout time.Duration
	rate          int

	// Behavior
	strategyName string
	assumeYes    bool
	configPath   string

	// Logging
	quiet   bool
	verbose bool
	logFile string
)

var rootCmd = &cobra.Command{
	Use:   "portscout [flags] <target> [quick|web|full|stealth]",
	Short: "Concurrent TCP port scanner",
	Long: `Portscout - concurrent TCP port scanner with banner grabbing

Scan types:
  quick    40 common service ports (default)
  web      55 web ports, then HEAD requests against critical web ports
  full     every port 1-65535 in batches of 1000 (asks for confirmation)
  stealth  half-open SYN probes of the common ports (root or CAP_NET_RAW,
           falls back to connect probes otherwise)

Every scan prints a summary and writes port_scan_<target>_<unix>.txt.
For authorized testing only.`,

	Example: `  # Quick scan of common ports
  portscout example.com

  # Web ports with HTTP status lines
  portscout example.com web

  # Full range without the prompt, 2000 probes/second
  portscout 10.0.0.5 full --yes -r 2000

  # Stealth scan (requires root)
  sudo portscout 10.0.0.5 stealth

  # Custom ports, extra Markdown report in ./reports
  portscout example.com --ports 22,80,8000-8100 --format md -o reports

  # Through a SOCKS5 proxy
  portscout example.com --proxy socks5://127.0.0.1:9050

  # Record in history and list past scans
  portscout example.com --history
  portscout history example.com`,

	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return errors.New("requires a target")
		}
		if len(args) > 2 {
			return fmt.Errorf("accepts <target> [scan type], received %d arguments", len(args))
		}
		return nil
	},
	RunE:          runScan,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("portscout %s (commit: %s, built: %s)\n", version, commit, date))

	f := rootCmd.Flags()

	// Ports
	f.StringVar(&portSpec, "ports", "", "Ports to scan instead of the scan type's list (e.g. 22,80,8000-8100)")
	f.StringVar(&portsFile, "ports-file", "", "Read port specs from file (one per line)")

	// Output
	f.StringVarP(&outputDir, "output-dir", "o", config.Report.Dir, "Directory for report files")
	f.StringVar(&outputFormat, "format", output.FormatText, "Extra report format: text, jsonl, parquet, markdown")
	f.BoolVar(&recordScan, "history", config.History, "Record the scan in the history database")

	// Network
	f.StringVar(&dnsServer, "dns-server", config.DNS.Server, "DNS server for target resolution (default: system resolver)")
	f.StringVar(&proxyURL, "proxy", "", "SOCKS5 proxy for connect probes (socks5://[user:pass@]host:port)")

	// Performance
	f.IntVarP(&workers, "workers", "w", config.Scanner.Workers, "Concurrent probes")
	f.DurationVarP(&timeout, "timeout", "t", config.Scanner.Timeout, "Timeout per probe")
	f.DurationVar(&bannerTimeout, "banner-timeout", config.Scanner.BannerTimeout, "Banner read timeout, 0 disables banners")
	f.IntVarP(&rate, "rate", "r", config.Scanner.RateLimit, "Max probes/second (0 = unlimited)")

	// Behavior
	f.StringVar(&strategyName, "strategy", "", "Probe strategy overriding the scan type's: connect, stealth")
	f.BoolVarP(&assumeYes, "yes", "y", false, "Skip the full scan confirmation")
	f.StringVar(&configPath, "config", "", "Config file (default: ./.portscout.yaml or $XDG_CONFIG_HOME/portscout/config.yaml)")

	// Logging
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log errors")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every probe")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write logs to this file (rotated)")

	rootCmd.AddCommand(historyCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	closeLog, err := initLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	profile, err := loadProfile()
	if err != nil {
		return err
	}
	applyFlags(cmd)

	host := args[0]
	scanType := ""
	if len(args) > 1 {
		scanType = args[1]
	}

	custom, err := customPorts()
	if err != nil {
		return err
	}

	var profilePorts map[string][]int
	if profile != nil {
		profilePorts = profile.Ports
	}
	plan, err := ResolveScanPlan(scanType, profilePorts, custom)
	if err != nil {
		return err
	}
	if plan, err = plan.WithStrategy(strategyName); err != nil {
		return err
	}

	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return err
	}

	if plan.Confirm && !assumeYes {
		if !isInteractive(os.Stdin) {
			slog.Warn("full scan needs confirmation, use --yes when stdin is not a terminal")
			return nil
		}
		if !confirm(os.Stdin, os.Stderr) {
			fmt.Println("Scan cancelled.")
			return nil
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			slog.Info("stopping scan...")
			cancel()
		case <-ctx.Done():
		}
	}()

	target, err := resolver.New(config.DNS.Server, config.DNS.Timeout).Resolve(ctx, host)
	if err != nil {
		return err
	}
	slog.Info("target resolved", "target", target.String())

	if notice := stealthNotice(plan, probe.CanOpenRawSocket()); notice != "" {
		slog.Warn(notice)
	}

	cfg := scanner.DefaultConfig()
	cfg.Strategy = plan.Strategy
	cfg.Quiet = quiet
	if plan.Workers > 0 && !cmd.Flags().Changed("workers") {
		cfg.Workers = plan.Workers
	}

	dialer, err := newDialer(cfg.Timeout)
	if err != nil {
		return err
	}
	if proxyURL != "" && cfg.Strategy == scanner.StrategyStealth {
		slog.Warn("stealth probes do not go through the proxy, only the connect fallback does")
	}

	s := scanner.NewScanner(cfg, probe.NewConnectProber(dialer, cfg.Timeout, cfg.BannerTimeout), nil)

	var session *scanner.Session
	if plan.Batched {
		session, err = s.ScanBatches(ctx, target, plan.Ports)
	} else {
		session, err = s.Scan(ctx, target, plan.Ports)
	}
	if err != nil {
		if session == nil || ctx.Err() == nil {
			return fmt.Errorf("scan failed: %w", err)
		}
		slog.Warn("scan interrupted, reporting partial results", "probed", session.Probed)
	}

	rep := report.Generate(session, time.Now())
	if err := report.RenderSummary(os.Stdout, rep); err != nil {
		return err
	}

	if plan.Enrich && rep.OpenCount() > 0 && ctx.Err() == nil {
		fetcher := web.NewFetcher(config.HTTP, dialer)
		responses := fetcher.Fetch(ctx, target.Hostname, rep.OpenPorts())
		if err := web.RenderAnalysis(os.Stdout, rep.OpenPorts(), responses); err != nil {
			return err
		}
	}

	if err := writeReports(rep, format); err != nil {
		return err
	}

	if recordScan {
		if err := record(rep, plan.Type); err != nil {
			slog.Error("failed to record scan history", "error", err)
		}
	}

	return nil
}

// loadProfile loads the YAML profile, if any, and applies it over the environment
func loadProfile() (*config.File, error) {
	path := config.FindConfigFile(configPath)
	if path == "" {
		if configPath != "" {
			return nil, fmt.Errorf("%s: %w", configPath, config.ErrConfigNotFound)
		}
		return nil, nil
	}

	f, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	f.Apply()
	slog.Debug("loaded config", "path", path)
	return f, nil
}

// applyFlags overlays explicitly set flags onto the global configuration
func applyFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("workers") {
		config.Scanner.Workers = workers
	}
	if flags.Changed("timeout") {
		config.Scanner.Timeout = timeout
	}
	if flags.Changed("banner-timeout") {
		config.Scanner.BannerTimeout = bannerTimeout
	}
	if flags.Changed("rate") {
		config.Scanner.RateLimit = rate
	}
	if flags.Changed("dns-server") {
		config.DNS.Server = dnsServer
	}
	if flags.Changed("output-dir") {
		config.Report.Dir = outputDir
	}
}

func customPorts() ([]int, error) {
	switch {
	case portSpec != "" && portsFile != "":
		return nil, errors.New("--ports and --ports-file are mutually exclusive")
	case portSpec != "":
		return input.ParsePorts(portSpec)
	case portsFile != "":
		slog.Debug("reading ports", "file", portsFile)
		return input.ParsePortFile(portsFile)
	}
	return nil, nil
}

func newDialer(timeout time.Duration) (probe.Dialer, error) {
	if proxyURL == "" {
		return probe.NewNetDialer(timeout), nil
	}
	d, err := probe.NewProxyDialer(proxyURL, timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy: %w", err)
	}
	slog.Info("probing through proxy", "proxy", d.ProxyURL.Redacted())
	return d, nil
}

// writeReports always writes the text report, plus format when it differs
func writeReports(rep *report.Report, format string) error {
	formats := []string{output.FormatText}
	if format != output.FormatText {
		formats = append(formats, format)
	}

	for _, f := range formats {
		path, err := output.WriteFile(config.Report.Dir, f, rep)
		if err != nil {
			return fmt.Errorf("failed to write %s report: %w", f, err)
		}
		fmt.Printf("\nReport saved to: %s\n", path)
	}
	return nil
}

func record(rep *report.Report, scanType ScanType) error {
	store, err := history.Open(config.XDGDataDir())
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id, err := store.Record(ctx, rep, string(scanType))
	if err != nil {
		return err
	}
	slog.Debug("scan recorded", "id", id, "db", store.Path())
	return nil
}

// initLogger configures slog on stderr, tee'd to a rotating file when --log-file is set.
// The returned func closes the file.
func initLogger() (func(), error) {
	var level slog.Level
	switch {
	case verbose:
		level = slog.LevelDebug
	case quiet:
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var w io.Writer = os.Stderr
	closeFn := func() {}

	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0750); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		rotator := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // MB
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		w = io.MultiWriter(os.Stderr, rotator)
		closeFn = func() { _ = rotator.Close() }
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
	return closeFn, nil
}

func main() {
	config.Init()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
