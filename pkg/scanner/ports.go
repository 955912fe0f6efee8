package scanner

import (
	"fmt"
	"slices"
)

// Port bounds
const (
	MinPort = 1
	MaxPort = 65535
)

// CommonPorts is the quick scan set
var CommonPorts = []int{
	// Web
	80, 443, 8080, 8443, 8000, 8008, 3000, 5000,
	// Remote access and mail
	22, 21, 23, 25, 53, 110, 143, 445, 3389,
	// Databases
	3306, 5432, 27017, 6379, 1521,
	// Services
	8888, 9000, 9001, 9200, 5601, 11211,
	// Development
	3001, 4200, 5001, 6000, 7000, 8001,
	// Containers
	2375, 2376, 2377, 7946, 4789, 10250,
}

// WebPorts is the web scan set. 8080 appears twice; Scan deduplicates.
var WebPorts = []int{
	// HTTP/HTTPS
	80, 443, 8080, 8443, 8000, 8008, 8081, 8888,
	8088, 8880, 8082, 8083, 8084, 8085, 8086,
	// Development
	3000, 3001, 4200, 5000, 5001, 6000, 7000, 9000,
	// Admin panels
	2082, 2083, 2086, 2087, 2095, 2096,
	8089, 8447, 8889, 9001, 9002,
	// Proxies and alternates
	10000, 1080, 3128, 8001, 8010, 8080,
	8181, 8282, 8383, 8484, 8585,
	// High ports
	1024, 1025, 1026, 1027, 1028, 1029,
	30000, 30001, 30002, 30003,
}

// FullRange returns every port from 1 to 65535 in order
func FullRange() []int {
	ports := make([]int, 0, MaxPort)
	for p := MinPort; p <= MaxPort; p++ {
		ports = append(ports, p)
	}
	return ports
}

// Batches splits ports into consecutive slices of at most size ports
func Batches(ports []int, size int) [][]int {
	if len(ports) == 0 {
		return nil
	}
	if size <= 0 || size >= len(ports) {
		return [][]int{ports}
	}
	return slices.Collect(slices.Chunk(ports, size))
}

// ValidatePorts checks that ports is non-empty and every port is in range
func ValidatePorts(ports []int) error {
	if len(ports) == 0 {
		return &ConfigurationError{Field: "ports", Reason: "no ports to scan"}
	}
	for _, p := range ports {
		if p < MinPort || p > MaxPort {
			return &ConfigurationError{Field: "ports", Reason: fmt.Sprintf("port %d out of range %d-%d", p, MinPort, MaxPort)}
		}
	}
	return nil
}

// dedupe drops repeated ports, keeping first-seen order
func dedupe(ports []int) []int {
	seen := make(map[int]struct{}, len(ports))
	out := make([]int, 0, len(ports))
	for _, p := range ports {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
