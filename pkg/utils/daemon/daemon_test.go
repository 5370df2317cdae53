package daemon

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestUnit(t *testing.T) {
	u := Unit("/usr/local/bin/rixcalc", "/etc/rixcalc.json")
	if !strings.Contains(u, "ExecStart=/usr/local/bin/rixcalc daemon --config /etc/rixcalc.json\n") {
		t.Errorf("unexpected ExecStart in unit:\n%s", u)
	}
	if strings.Contains(u, "/path/to/") {
		t.Errorf("unit still has placeholders:\n%s", u)
	}
}

func TestWriteAndRemoveUnit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "systemd", "rixcalc.service")

	if err := writeUnit(path, "first"); err != nil {
		t.Fatalf("writeUnit() error = %v", err)
	}
	if err := writeUnit(path, "second"); err != nil {
		t.Fatalf("writeUnit() overwrite error = %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil || string(b) != "second" {
		t.Fatalf("unit content = %q, %v", b, err)
	}

	if err := removeUnit(path); err != nil {
		t.Fatalf("removeUnit() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("unit still exists: %v", err)
	}
	if err := removeUnit(path); err != nil {
		t.Errorf("removeUnit() on missing file error = %v", err)
	}
}
