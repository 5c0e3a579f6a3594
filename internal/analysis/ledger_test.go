package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"parley/internal/room"
	"parley/internal/store"
	"parley/internal/summarize"
)

type countingSummarizer struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (s *countingSummarizer) Analyze(ctx context.Context, transcript []room.TranscriptEntry) (summarize.Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail {
		return summarize.Analysis{}, errors.New("model unavailable")
	}
	return summarize.Analysis{Summary: "remote summary", ActionItems: []string{"remote item"}}, nil
}

func (s *countingSummarizer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func testRequest() room.AnalysisRequest {
	return room.AnalysisRequest{
		RoomID:   "room-1",
		HostName: "Ada",
		Transcript: []room.TranscriptEntry{
			{Sender: "Ada", Text: "Please update the doc.", Timestamp: 1},
		},
	}
}

func TestRunPersistsSummaryRecord(t *testing.T) {
	fileStore, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	summarizer := &countingSummarizer{}
	runner := NewLedgerRunner(fileStore, summarizer, nil)

	analysis, err := runner.Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if analysis.Summary != "remote summary" {
		t.Fatalf("unexpected analysis: %+v", analysis)
	}

	record, found, err := fileStore.GetMeetingSummary(context.Background(), "room-1")
	if err != nil || !found {
		t.Fatalf("get summary: found=%v err=%v", found, err)
	}
	if record.HostName != "Ada" || record.Summary.Summary != "remote summary" {
		t.Fatalf("unexpected record: %+v", record)
	}
}

func TestRerunReusesMemoizedSteps(t *testing.T) {
	fileStore, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	summarizer := &countingSummarizer{}
	runner := NewLedgerRunner(fileStore, summarizer, nil)

	ctx := context.Background()
	if _, err := runner.Run(ctx, testRequest()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := runner.Run(ctx, testRequest()); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if summarizer.count() != 1 {
		t.Fatalf("expected analyze step memoized, summarizer called %d times", summarizer.count())
	}
}

func TestResumeSkipsCommittedAnalyzeStep(t *testing.T) {
	fileStore, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	ctx := context.Background()

	// Simulate a prior process that committed step 1 and crashed before
	// step 2.
	committed, _ := json.Marshal(summarize.Analysis{Summary: "from before the crash"})
	if err := fileStore.PutStepResult(ctx, RunID("room-1"), StepAnalyzeTranscript, committed); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}

	summarizer := &countingSummarizer{}
	runner := NewLedgerRunner(fileStore, summarizer, nil)
	analysis, err := runner.Run(ctx, testRequest())
	if err != nil {
		t.Fatalf("resume run: %v", err)
	}

	if summarizer.count() != 0 {
		t.Fatalf("expected summarizer untouched on resume, called %d times", summarizer.count())
	}
	if analysis.Summary != "from before the crash" {
		t.Fatalf("expected memoized result reused, got %q", analysis.Summary)
	}

	record, found, err := fileStore.GetMeetingSummary(ctx, "room-1")
	if err != nil || !found {
		t.Fatalf("get summary: found=%v err=%v", found, err)
	}
	if record.Summary.Summary != "from before the crash" {
		t.Fatalf("unexpected persisted record: %+v", record)
	}
}

func TestSummarizerFailureFallsBackToLocalHeuristic(t *testing.T) {
	fileStore, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	runner := NewLedgerRunner(fileStore, &countingSummarizer{fail: true}, nil)

	analysis, err := runner.Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("run with failing summarizer: %v", err)
	}
	if analysis.Summary != "Please update the doc." {
		t.Fatalf("expected local heuristic summary, got %q", analysis.Summary)
	}
}

func TestEnqueueAnalysisCompletesInBackground(t *testing.T) {
	fileStore, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	runner := NewLedgerRunner(fileStore, &countingSummarizer{}, nil)

	if err := runner.EnqueueAnalysis(context.Background(), testRequest()); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	runner.Wait()

	_, found, err := fileStore.GetMeetingSummary(context.Background(), "room-1")
	if err != nil || !found {
		t.Fatalf("expected background run to persist, found=%v err=%v", found, err)
	}
}
