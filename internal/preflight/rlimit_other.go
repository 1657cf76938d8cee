//go:build !windows

package preflight

import "syscall"

func fileDescriptorLimit() (int, bool) {
	var limit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &limit); err != nil {
		return 0, false
	}
	if limit.Cur > 1<<30 {
		return 1 << 30, true
	}
	return int(limit.Cur), true
}
