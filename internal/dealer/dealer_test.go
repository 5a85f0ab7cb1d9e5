package dealer

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dealer.yaml")
	if err := os.WriteFile(path, []byte("name: Test Motors\nphone: \"+91-1112223334\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p.Name != "Test Motors" || p.Phone != "+91-1112223334" {
		t.Errorf("overrides not applied: %+v", p)
	}
	if p.ShowroomAddress != Default().ShowroomAddress {
		t.Errorf("missing fields should keep defaults, got %q", p.ShowroomAddress)
	}
}

func TestLoadMissingFile(t *testing.T) {
	p, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if p.Name != "Sherpa Hyundai" {
		t.Errorf("expected default profile on error, got %q", p.Name)
	}
}
