package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSafeWriteFileCreatesParent(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "out", "merged.csv")
	if err := SafeWriteFile(p, []byte("gid\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "gid\n" {
		t.Fatalf("unexpected content %q", b)
	}
	if _, err := os.Stat(p + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}
}

func TestExpandHomeAndResolve(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	if got := ExpandHome("~/x.yaml"); got != filepath.Join(home, "x.yaml") {
		t.Fatalf("ExpandHome: %q", got)
	}
	if got := ExpandHome("/etc/x"); got != "/etc/x" {
		t.Fatalf("ExpandHome abs: %q", got)
	}
	if got := ResolveRelative("/jobs", "left.csv"); got != filepath.Join("/jobs", "left.csv") {
		t.Fatalf("ResolveRelative: %q", got)
	}
	if got := ResolveRelative("/jobs", "/data/l.csv"); got != "/data/l.csv" {
		t.Fatalf("ResolveRelative abs: %q", got)
	}
}
