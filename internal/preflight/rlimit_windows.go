//go:build windows

package preflight

func fileDescriptorLimit() (int, bool) {
	return 0, false
}
