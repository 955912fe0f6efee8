//go:build !windows

package probe

import "os"

const rawSocketsSupported = true

// CanOpenRawSocket reports whether the process runs with euid 0.
// A process holding CAP_NET_RAW may still open raw sockets when this is false.
func CanOpenRawSocket() bool {
	return os.Geteuid() == 0
}
