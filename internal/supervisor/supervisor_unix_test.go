//go:build !windows

package supervisor

import (
	"syscall"
	"testing"
)

func TestSpawn_OwnProcessGroup(t *testing.T) {
	s, _ := newTestSupervisor(&scriptLauncher{script: `sleep 30`, ungrouped: true}, Callbacks{})

	h, err := s.Spawn(1)
	if err != nil {
		t.Fatalf("Spawn error: %v", err)
	}
	defer s.Terminate()

	pgid, err := syscall.Getpgid(h.PID())
	if err != nil {
		t.Fatalf("Getpgid error: %v", err)
	}
	if pgid != h.PID() {
		t.Errorf("sidecar pgid = %d, want it to lead its own group (%d)", pgid, h.PID())
	}
	if pgid == syscall.Getpgrp() {
		t.Error("sidecar shares the host's process group")
	}
}

func TestTerminate_UngroupedLauncherSparesHost(t *testing.T) {
	s, _ := newTestSupervisor(&scriptLauncher{script: `sleep 30`, ungrouped: true}, Callbacks{})

	h, err := s.Spawn(1)
	if err != nil {
		t.Fatalf("Spawn error: %v", err)
	}
	if !s.Terminate() {
		t.Fatal("Terminate should report true when a handle is held")
	}

	// Reaching this point means the host's group was not signalled.
	if code := waitDone(t, h); code != 128+9 {
		t.Errorf("exit code = %d, want %d (SIGKILL)", code, 128+9)
	}
	if s.Terminate() {
		t.Error("second Terminate should be a no-op")
	}
}
