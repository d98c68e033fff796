package detection

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileLineReadsLevels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "value")
	line := NewFileLine(path)

	if _, err := line.Broken(); err == nil {
		t.Fatal("expected error for missing line file")
	}

	if err := os.WriteFile(path, []byte("1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	broken, err := line.Broken()
	if err != nil {
		t.Fatalf("read high level: %v", err)
	}
	if broken {
		t.Fatal("high level reported as broken")
	}

	if err := os.WriteFile(path, []byte("0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	broken, err = line.Broken()
	if err != nil {
		t.Fatalf("read low level: %v", err)
	}
	if !broken {
		t.Fatal("low level not reported as broken")
	}
}
