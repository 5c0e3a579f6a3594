package store

import (
	"context"
	"encoding/json"
	"testing"

	"parley/internal/room"
	"parley/internal/summarize"
)

func TestFileStoreRoomMetaSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	meta := room.RoomMetadata{Password: "sesame", HostName: "Ada"}
	if err := first.PutRoomMeta(ctx, "room-1", meta); err != nil {
		t.Fatalf("put meta: %v", err)
	}

	second, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	loaded, found, err := second.GetRoomMeta(ctx, "room-1")
	if err != nil {
		t.Fatalf("get meta: %v", err)
	}
	if !found {
		t.Fatal("expected metadata to survive reopen")
	}
	if loaded != meta {
		t.Fatalf("expected %+v, got %+v", meta, loaded)
	}
}

func TestFileStoreMissingKeysReportNotFound(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	ctx := context.Background()

	if _, found, err := store.GetRoomMeta(ctx, "absent"); err != nil || found {
		t.Fatalf("expected miss without error, found=%v err=%v", found, err)
	}
	if _, found, err := store.GetStepResult(ctx, "run", "step"); err != nil || found {
		t.Fatalf("expected miss without error, found=%v err=%v", found, err)
	}
	if _, found, err := store.GetMeetingSummary(ctx, "absent"); err != nil || found {
		t.Fatalf("expected miss without error, found=%v err=%v", found, err)
	}
}

func TestFileStoreStepLedgerRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	ctx := context.Background()

	result := json.RawMessage(`{"summary":"done"}`)
	if err := store.PutStepResult(ctx, "run-1", "analyze-transcript", result); err != nil {
		t.Fatalf("put step: %v", err)
	}
	loaded, found, err := store.GetStepResult(ctx, "run-1", "analyze-transcript")
	if err != nil {
		t.Fatalf("get step: %v", err)
	}
	if !found {
		t.Fatal("expected committed step to be found")
	}
	if string(loaded) != string(result) {
		t.Fatalf("expected %s, got %s", result, loaded)
	}

	// Step results must come back byte-for-byte even when the caller's
	// encoding carries whitespace.
	spaced := json.RawMessage("{\n  \"summary\": \"done\"\n}")
	if err := store.PutStepResult(ctx, "run-1", "save-to-db", spaced); err != nil {
		t.Fatalf("put spaced step: %v", err)
	}
	loaded, found, err = store.GetStepResult(ctx, "run-1", "save-to-db")
	if err != nil || !found {
		t.Fatalf("get spaced step: found=%v err=%v", found, err)
	}
	if string(loaded) != string(spaced) {
		t.Fatalf("expected %s, got %s", spaced, loaded)
	}
}

func TestFileStoreSaveMeetingSummaryIsIdempotent(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	ctx := context.Background()

	record := MeetingRecord{
		ID:       "room-1",
		HostName: "Ada",
		Summary:  summarize.Analysis{Summary: "first", ActionItems: []string{"one"}},
	}
	if err := store.SaveMeetingSummary(ctx, record); err != nil {
		t.Fatalf("save: %v", err)
	}

	replay := record
	replay.Summary.Summary = "second attempt must not overwrite"
	if err := store.SaveMeetingSummary(ctx, replay); err != nil {
		t.Fatalf("replayed save: %v", err)
	}

	loaded, found, err := store.GetMeetingSummary(ctx, "room-1")
	if err != nil || !found {
		t.Fatalf("get summary: found=%v err=%v", found, err)
	}
	if loaded.Summary.Summary != "first" {
		t.Fatalf("expected first commit preserved, got %q", loaded.Summary.Summary)
	}
}
