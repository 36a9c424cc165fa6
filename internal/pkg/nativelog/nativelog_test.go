package nativelog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWriterAppendsDailyFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	w, err := NewWriter(dir)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	day := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return day }

	for _, line := range []string{"first\n", "second\n"} {
		if _, err := w.Write([]byte(line)); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	raw, err := os.ReadFile(filepath.Join(dir, "stdout_2024-03-09.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if string(raw) != "first\nsecond\n" {
		t.Fatalf("log content = %q", raw)
	}
}

func TestResolveDirHonoursEnv(t *testing.T) {
	t.Setenv(EnvLogDir, "/var/log/reviewinsight")
	if got := ResolveDir(); got != "/var/log/reviewinsight" {
		t.Fatalf("ResolveDir = %q", got)
	}
}

func TestNewZapLoggerWritesJSON(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewZapLogger(dir, true)
	if err != nil {
		t.Fatalf("NewZapLogger: %v", err)
	}
	logger.Debug("debug line")
	_ = logger.Sync()

	raw, err := os.ReadFile(filepath.Join(dir, TodayFilename(time.Now())))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(raw), `"msg":"debug line"`) {
		t.Fatalf("log content = %q", raw)
	}
}
