package temporal

import (
	"testing"

	"parley/internal/logging"
)

func TestSDKLoggerSuppressesDebug(t *testing.T) {
	buffer := logging.NewLogBuffer(16)
	logger := logging.NewLoggerWithOutput(buffer, logging.LevelDebug, nil)
	sdk := newSDKLogger(logger)

	sdk.Debug("debug message", "k", "v")
	sdk.Info("info message", "k", "v")

	entries := buffer.List()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	if entries[0].Message != "info message" {
		t.Fatalf("expected info log entry, got %q", entries[0].Message)
	}
	if entries[0].Context["parley.source"] != "temporal-sdk" {
		t.Fatalf("expected temporal-sdk source, got %q", entries[0].Context["parley.source"])
	}
}

func TestSDKLoggerPairsKeyvals(t *testing.T) {
	buffer := logging.NewLogBuffer(16)
	logger := logging.NewLoggerWithOutput(buffer, logging.LevelInfo, nil)
	sdk := newSDKLogger(logger)

	sdk.Warn("retrying", "Attempt", 3, "dangling")

	entries := buffer.List()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	if entries[0].Level != logging.LevelWarning {
		t.Fatalf("expected warning level, got %q", entries[0].Level)
	}
	if entries[0].Context["Attempt"] != "3" {
		t.Fatalf("expected attempt field, got %#v", entries[0].Context)
	}
	if _, ok := entries[0].Context["dangling"]; ok {
		t.Fatalf("dangling keyval should be dropped: %#v", entries[0].Context)
	}
}
