package resume

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoadText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.txt")
	if err := os.WriteFile(path, []byte("Senior Go engineer"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if got := Load(path, zap.NewNop()); got != "Senior Go engineer" {
		t.Fatalf("unexpected resume: %q", got)
	}
}

func TestLoadMissingOrEmpty(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(empty, []byte("  \n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	broken := filepath.Join(dir, "broken.pdf")
	if err := os.WriteFile(broken, []byte("this is not a pdf document"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	for _, path := range []string{filepath.Join(dir, "missing.txt"), empty, broken, ""} {
		core, observed := observer.New(zapcore.WarnLevel)
		if got := Load(path, zap.New(core)); got != "" {
			t.Fatalf("%q: expected empty resume, got %q", path, got)
		}
		if observed.Len() != 1 {
			t.Fatalf("%q: expected one warning, got %d", path, observed.Len())
		}
	}
}
