package settings

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestOpen_Missing(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "none", "settings.yaml"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if len(s.Keys()) != 0 {
		t.Errorf("Keys() = %v, want empty", s.Keys())
	}
	if _, ok := s.DefaultServerURL(); ok {
		t.Error("DefaultServerURL() should be unset")
	}
}

func TestOpen_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if len(s.Keys()) != 0 {
		t.Errorf("Keys() = %v", s.Keys())
	}
}

func TestOpen_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("- not\n- a map\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Error("Open() should reject a non-map document")
	}
}

func TestStore_SaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app", "settings.yaml")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	url := "https://r.example:8443"
	if err := s.SetDefaultServerURL(&url); err != nil {
		t.Fatalf("SetDefaultServerURL() error = %v", err)
	}
	s.Set("theme", "dark")
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "defaultServerUrl: https://r.example:8443") {
		t.Errorf("file = %q", data)
	}

	reloaded, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := reloaded.GetDefaultServerURL(); got == nil || *got != "https://r.example:8443" {
		t.Errorf("GetDefaultServerURL() = %v", got)
	}
	if got, _ := reloaded.Get("theme"); got != "dark" {
		t.Errorf("theme = %q", got)
	}
	if keys := reloaded.Keys(); len(keys) != 2 || keys[0] != "defaultServerUrl" || keys[1] != "theme" {
		t.Errorf("Keys() = %v", keys)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestStore_SetNilClears(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	s, _ := Open(path)
	url := "http://r"
	if err := s.SetDefaultServerURL(&url); err != nil {
		t.Fatal(err)
	}
	if err := s.SetDefaultServerURL(nil); err != nil {
		t.Fatal(err)
	}
	reloaded, _ := Open(path)
	if got := reloaded.GetDefaultServerURL(); got != nil {
		t.Errorf("GetDefaultServerURL() = %q, want nil", *got)
	}
	empty := ""
	if err := s.SetDefaultServerURL(&empty); err != nil {
		t.Errorf("SetDefaultServerURL(\"\") = %v", err)
	}
	if s.Delete(DefaultServerURLKey) {
		t.Error("Delete() of a missing key should report false")
	}
}

func TestStore_EmptyURLIsUnset(t *testing.T) {
	s, _ := Open(filepath.Join(t.TempDir(), "settings.yaml"))
	s.Set(DefaultServerURLKey, "")
	if _, ok := s.DefaultServerURL(); ok {
		t.Error("empty URL should read as unset")
	}
}

func TestValidateServerURL(t *testing.T) {
	tests := []struct {
		raw     string
		wantErr bool
	}{
		{"http://localhost:4096", false},
		{"https://r.example/base/", false},
		{"ftp://r.example", true},
		{"r.example", true},
		{"http://", true},
		{"://bad", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			err := ValidateServerURL(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateServerURL(%q) = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
		})
	}
}

func TestSetDefaultServerURL_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	s, _ := Open(path)
	bad := "nope"
	if err := s.SetDefaultServerURL(&bad); err == nil {
		t.Fatal("expected error")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("invalid URL should not be persisted")
	}
}

func TestStore_Concurrent(t *testing.T) {
	s, _ := Open(filepath.Join(t.TempDir(), "settings.yaml"))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Set("k", "v")
				s.Get("k")
				s.Keys()
			}
		}()
	}
	wg.Wait()
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/cfg")
	t.Setenv("HOME", "/tmp/home")
	p, err := DefaultPath("sidecar-shell")
	if err != nil {
		t.Skipf("no user config dir: %v", err)
	}
	if filepath.Base(p) != "settings.yaml" || filepath.Base(filepath.Dir(p)) != "sidecar-shell" {
		t.Errorf("DefaultPath() = %q", p)
	}
}
