package debug

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "debug.log")

	Log("test", "before enable")
	if err := Enable(path); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if !Enabled() {
		t.Fatal("not enabled")
	}
	Log("clock", "tick %d", 7)
	for i := 0; i < 6; i++ {
		LogEvery(3, "led", "flush")
	}
	Disable()
	Log("test", "after disable")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)

	if !strings.Contains(out, "tick 7") {
		t.Fatalf("log missing message:\n%s", out)
	}
	if strings.Contains(out, "before enable") || strings.Contains(out, "after disable") {
		t.Fatalf("log written while disabled:\n%s", out)
	}
	if got := strings.Count(out, "flush (every 3"); got != 2 {
		t.Fatalf("LogEvery wrote %d lines, want 2:\n%s", got, out)
	}
}
