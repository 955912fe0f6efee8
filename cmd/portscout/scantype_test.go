package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/velemoonkon/portscout/pkg/scanner"
)

func TestResolveScanPlan_Defaults(t *testing.T) {
	tests := []struct {
		name     string
		ports    int
		strategy scanner.Strategy
		batched  bool
		workers  int
		confirm  bool
		enrich   bool
	}{
		{"", len(scanner.CommonPorts), scanner.StrategyConnect, false, 0, false, false},
		{"quick", 40, scanner.StrategyConnect, false, 0, false, false},
		{"web", 55, scanner.StrategyConnect, false, 0, false, true},
		{"full", 65535, scanner.StrategyConnect, true, 50, true, false},
		{"stealth", 40, scanner.StrategyStealth, false, 0, false, false},
		{"STEALTH", 40, scanner.StrategyStealth, false, 0, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := ResolveScanPlan(tt.name, nil, nil)
			if err != nil {
				t.Fatalf("ResolveScanPlan(%q) failed: %v", tt.name, err)
			}
			if len(plan.Ports) != tt.ports {
				t.Errorf("ports = %d, want %d", len(plan.Ports), tt.ports)
			}
			if plan.Strategy != tt.strategy {
				t.Errorf("strategy = %v, want %v", plan.Strategy, tt.strategy)
			}
			if plan.Batched != tt.batched {
				t.Errorf("batched = %v, want %v", plan.Batched, tt.batched)
			}
			if plan.Workers != tt.workers {
				t.Errorf("workers = %d, want %d", plan.Workers, tt.workers)
			}
			if plan.Confirm != tt.confirm {
				t.Errorf("confirm = %v, want %v", plan.Confirm, tt.confirm)
			}
			if plan.Enrich != tt.enrich {
				t.Errorf("enrich = %v, want %v", plan.Enrich, tt.enrich)
			}
		})
	}
}

func TestResolveScanPlan_Unknown(t *testing.T) {
	_, err := ResolveScanPlan("udp", nil, nil)
	if err == nil {
		t.Fatal("Expected error for unknown scan type")
	}
	if !strings.Contains(err.Error(), `unknown scan type "udp"`) {
		t.Errorf("Unexpected error: %v", err)
	}
	if !strings.Contains(err.Error(), "quick, web, full, stealth") {
		t.Errorf("Error should list valid types: %v", err)
	}
}

func TestResolveScanPlan_ProfileOverride(t *testing.T) {
	profile := map[string][]int{"web": {80, 443}}

	plan, err := ResolveScanPlan("web", profile, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Ports) != 2 || plan.Ports[0] != 80 {
		t.Errorf("Expected profile ports, got %v", plan.Ports)
	}
	if !plan.Enrich {
		t.Error("Profile override should keep web enrichment")
	}

	// Other scan types are untouched
	plan, err = ResolveScanPlan("quick", profile, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Ports) != len(scanner.CommonPorts) {
		t.Errorf("Expected common ports, got %d", len(plan.Ports))
	}
}

func TestResolveScanPlan_CustomPortsWin(t *testing.T) {
	profile := map[string][]int{"full": {1, 2, 3}}

	plan, err := ResolveScanPlan("full", profile, []int{22})
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Ports) != 1 || plan.Ports[0] != 22 {
		t.Errorf("Expected custom ports, got %v", plan.Ports)
	}
	if !plan.Confirm || !plan.Batched {
		t.Error("Custom ports should not change full scan behavior")
	}
}

func TestResolveScanPlan_DoesNotAliasPresets(t *testing.T) {
	plan, err := ResolveScanPlan("quick", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	before := scanner.CommonPorts[0]
	plan.Ports[0] = -1
	if scanner.CommonPorts[0] != before {
		t.Error("Plan ports must not alias the preset list")
	}
}

func TestScanPlanWithStrategy(t *testing.T) {
	plan, err := ResolveScanPlan("web", nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	stealthy, err := plan.WithStrategy("stealth")
	if err != nil {
		t.Fatal(err)
	}
	if stealthy.Strategy != scanner.StrategyStealth {
		t.Errorf("strategy = %v, want stealth", stealthy.Strategy)
	}
	if !stealthy.Enrich || len(stealthy.Ports) != len(plan.Ports) {
		t.Error("Strategy override must keep the rest of the plan")
	}

	unchanged, err := plan.WithStrategy("")
	if err != nil || unchanged.Strategy != scanner.StrategyConnect {
		t.Errorf("Empty strategy should keep connect, got %v (%v)", unchanged.Strategy, err)
	}

	if _, err := plan.WithStrategy("udp"); err == nil {
		t.Error("Expected error for unknown strategy")
	}
}

func TestStealthNotice(t *testing.T) {
	stealth, err := ResolveScanPlan("stealth", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	quick, err := ResolveScanPlan("quick", nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	msg := stealthNotice(stealth, false)
	if !strings.Contains(msg, "need elevated privilege for stealth scan") ||
		!strings.Contains(msg, "CAP_NET_RAW") ||
		!strings.Contains(msg, "falling back to connect") {
		t.Errorf("Notice is not actionable: %q", msg)
	}
	if got := stealthNotice(stealth, true); got != "" {
		t.Errorf("Privileged stealth scan should not warn, got %q", got)
	}
	if got := stealthNotice(quick, false); got != "" {
		t.Errorf("Connect scan should not warn, got %q", got)
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"Y\n", true},
		{"y", true},
		{" y \r\n", true},
		{"yes\n", false},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		if got := confirm(strings.NewReader(tt.input), &out); got != tt.want {
			t.Errorf("confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if !strings.Contains(out.String(), "Continue? (y/n)") {
			t.Errorf("Prompt not written for %q", tt.input)
		}
	}
}
