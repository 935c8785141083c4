package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	got, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != Defaults() {
		t.Fatalf("expected defaults, got %+v", got)
	}
}

func TestLoad_FileOverDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	raw := []byte("break:\n  threshold: 0.7\n  swap_mode: always\npending:\n  capacity: 2\n")
	if err := os.WriteFile(p, raw, 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Break.Threshold != 0.7 || got.Break.SwapMode != "always" || got.Pending.Capacity != 2 {
		t.Fatalf("file values not applied: %+v", got)
	}
	if got.Pending.TimeoutMs != 3000 || got.Session.TickRateHz != 20 {
		t.Fatalf("defaults lost: %+v", got)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("break:\n  fudge: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("VC_BREAK_FUDGE", "0")
	t.Setenv("VC_PENDING_OVERFLOW", "reject_new")
	got, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Break.Fudge != 0 || got.Pending.Overflow != "reject_new" {
		t.Fatalf("env not applied: %+v", got)
	}
}

func TestLoad_Invalid(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("session:\n  tick_rate_hz: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(p); err == nil {
		t.Fatalf("expected validation error")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected missing file error")
	}
}
