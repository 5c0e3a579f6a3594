package logging

import (
	"strings"
	"testing"
)

func TestLoggerRespectsMinimumLevel(t *testing.T) {
	buffer := NewLogBuffer(10)
	output := &strings.Builder{}
	logger := NewLoggerWithOutput(buffer, LevelWarning, output)

	logger.Debug("debug message", nil)
	logger.Info("info message", nil)
	logger.Warn("warn message", nil)
	logger.Error("error message", nil)

	entries := buffer.List()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries above warning, got %d", len(entries))
	}
	if entries[0].Message != "warn message" || entries[1].Message != "error message" {
		t.Fatalf("unexpected buffered entries: %+v", entries)
	}
}

func TestLoggerWithAddsBaseContext(t *testing.T) {
	buffer := NewLogBuffer(10)
	logger := NewLoggerWithOutput(buffer, LevelInfo, &strings.Builder{})
	roomLogger := logger.With(map[string]string{"room_id": "abc123"})

	roomLogger.Info("joined", map[string]string{"name": "Ada"})

	entries := buffer.List()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Context["room_id"] != "abc123" {
		t.Fatalf("expected room_id carried from With, got %+v", entries[0].Context)
	}
	if entries[0].Context["name"] != "Ada" {
		t.Fatalf("expected per-call field preserved, got %+v", entries[0].Context)
	}
}

func TestLogBufferEvictsOldestBeyondCapacity(t *testing.T) {
	buffer := NewLogBuffer(2)
	buffer.Add(LogEntry{Message: "first"})
	buffer.Add(LogEntry{Message: "second"})
	buffer.Add(LogEntry{Message: "third"})

	entries := buffer.List()
	if len(entries) != 2 {
		t.Fatalf("expected capacity 2, got %d entries", len(entries))
	}
	if entries[0].Message != "second" || entries[1].Message != "third" {
		t.Fatalf("expected oldest entry evicted, got %+v", entries)
	}
}

func TestLogHubSubscribeReceivesBroadcast(t *testing.T) {
	logger := NewLoggerWithOutput(NewLogBuffer(4), LevelInfo, &strings.Builder{})
	entries, cancel := logger.Subscribe()
	defer cancel()

	logger.Info("streamed", nil)

	select {
	case entry := <-entries:
		if entry.Message != "streamed" {
			t.Fatalf("unexpected entry: %+v", entry)
		}
	default:
		t.Fatal("expected entry on subscriber channel")
	}
}

func TestParseLevel(t *testing.T) {
	if level, ok := ParseLevel("WARN"); !ok || level != LevelWarning {
		t.Fatalf("expected WARN to parse as warning, got %q ok=%v", level, ok)
	}
	if _, ok := ParseLevel("loud"); ok {
		t.Fatal("expected unknown level to be rejected")
	}
}
