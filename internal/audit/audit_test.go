package audit

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRecorderWritesPerSessionNDJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rec, err := New(Config{Enabled: true, Dir: dir, QueueSize: 16}, slog.Default())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() { _ = rec.Close() }()

	rec.Record(Event{
		UserID:      "user-1",
		SessionID:   "sess-1",
		Panel:       "cell-status",
		Seq:         3,
		Phase:       "ready",
		ResultChars: 120,
	})

	path := filepath.Join(dir, "user-1", "sess-1.ndjson")
	line := waitForLogLine(t, path)
	var got Event
	if err := json.Unmarshal([]byte(line), &got); err != nil {
		t.Fatalf("failed to unmarshal log line: %v", err)
	}
	if got.Panel != "cell-status" || got.Seq != 3 {
		t.Fatalf("unexpected event: %+v", got)
	}
	if got.Time.IsZero() {
		t.Fatal("expected time to be populated")
	}
}

func TestRecorderCloseFlushes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rec, err := New(Config{Enabled: true, Dir: dir, QueueSize: 64}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		rec.Record(Event{UserID: "u", SessionID: "s", Panel: "assistant", Seq: uint64(i + 1), Phase: "submitted"})
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	// Recording after close is a no-op.
	rec.Record(Event{UserID: "u", SessionID: "s"})

	data, err := os.ReadFile(filepath.Join(dir, "u", "s.ndjson"))
	if err != nil {
		t.Fatalf("read audit file: %v", err)
	}
	if n := len(strings.Split(strings.TrimSpace(string(data)), "\n")); n != 10 {
		t.Fatalf("expected 10 lines, got %d", n)
	}
}

func TestDisabledRecorderIsNop(t *testing.T) {
	rec, err := New(Config{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, ok := rec.(nopRecorder); !ok {
		t.Fatalf("expected nop recorder, got %T", rec)
	}
	rec.Record(Event{})
	if err := rec.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestSafeName(t *testing.T) {
	tests := map[string]string{
		"":                 "unknown",
		"anon-1234_ab":     "anon-1234_ab",
		"../../etc/passwd": "______etc_passwd",
		"a b/c":            "a_b_c",
	}
	for in, want := range tests {
		if got := safeName(in); got != want {
			t.Errorf("safeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func waitForLogLine(t *testing.T, path string) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		data, err := os.ReadFile(path)
		if err == nil && len(data) > 0 {
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			if len(lines) > 0 {
				return lines[len(lines)-1]
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for log file %s", path)
	return ""
}
