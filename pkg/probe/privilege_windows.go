//go:build windows

package probe

const rawSocketsSupported = false

// CanOpenRawSocket always reports false on Windows
func CanOpenRawSocket() bool {
	return false
}
