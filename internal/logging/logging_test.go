package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestBuildWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := Build(Config{Level: "debug", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	logger.Named("engine").Info("quote computed", Tenant("t-1"), zap.Int64("stitches", 9900))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(data)
	for _, want := range []string{`"msg":"quote computed"`, `"tenant_id":"t-1"`, `"logger":"engine"`, `"stitches":9900`} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %q missing %s", line, want)
		}
	}
}

func TestBuildFiltersBelowLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warn.log")
	logger, err := Build(Config{Level: "warn", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	logger.Info("dropped")
	logger.Warn("kept")
	_ = logger.Sync()

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "dropped") || !strings.Contains(string(data), "kept") {
		t.Fatalf("unexpected log contents: %s", data)
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) returned nil")
	}
	l := zap.NewExample()
	if OrNop(l) != l {
		t.Fatal("OrNop should return the given logger")
	}
}
