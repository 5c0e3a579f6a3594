package workflows

import (
	"context"
	"errors"
	"testing"

	"parley/internal/room"
	"parley/internal/store"
	"parley/internal/summarize"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"
)

func TestAnalysisWorkflowRunsStepsInOrder(testingContext *testing.T) {
	workflowTestSuite := &testsuite.WorkflowTestSuite{}
	workflowEnvironment := workflowTestSuite.NewTestWorkflowEnvironment()
	workflowEnvironment.RegisterWorkflow(AnalysisWorkflow)

	var callOrder []string
	var savedRecord store.MeetingRecord
	analysis := summarize.Analysis{
		ActionItems: []string{"Please update the doc"},
		Summary:     "We agreed on the plan.",
	}

	workflowEnvironment.RegisterActivityWithOptions(func(activityContext context.Context, roomID string, transcript []room.TranscriptEntry) (summarize.Analysis, error) {
		callOrder = append(callOrder, AnalyzeTranscriptActivityName)
		if roomID != "room-1" {
			testingContext.Errorf("unexpected room id: %q", roomID)
		}
		if len(transcript) != 2 {
			testingContext.Errorf("expected 2 transcript entries, got %d", len(transcript))
		}
		return analysis, nil
	}, activity.RegisterOptions{Name: AnalyzeTranscriptActivityName})

	workflowEnvironment.RegisterActivityWithOptions(func(activityContext context.Context, record store.MeetingRecord) error {
		callOrder = append(callOrder, SaveSummaryActivityName)
		savedRecord = record
		return nil
	}, activity.RegisterOptions{Name: SaveSummaryActivityName})

	workflowEnvironment.ExecuteWorkflow(AnalysisWorkflow, AnalysisWorkflowRequest{
		RoomID:   "room-1",
		HostName: "Ada",
		Transcript: []room.TranscriptEntry{
			{Sender: "Ada", Text: "We agreed on the plan.", Timestamp: 1},
			{Sender: "Ben", Text: "Please update the doc.", Timestamp: 2},
		},
	})

	if !workflowEnvironment.IsWorkflowCompleted() {
		testingContext.Fatal("workflow did not complete")
	}
	if workflowError := workflowEnvironment.GetWorkflowError(); workflowError != nil {
		testingContext.Fatalf("workflow error: %v", workflowError)
	}
	if len(callOrder) != 2 || callOrder[0] != AnalyzeTranscriptActivityName || callOrder[1] != SaveSummaryActivityName {
		testingContext.Fatalf("unexpected call order: %#v", callOrder)
	}
	if savedRecord.ID != "room-1" || savedRecord.HostName != "Ada" {
		testingContext.Fatalf("unexpected saved record: %#v", savedRecord)
	}
	if savedRecord.Summary.Summary != "We agreed on the plan." {
		testingContext.Fatalf("unexpected saved summary: %#v", savedRecord.Summary)
	}

	var result AnalysisWorkflowResult
	if resultError := workflowEnvironment.GetWorkflowResult(&result); resultError != nil {
		testingContext.Fatalf("get result failed: %v", resultError)
	}
	if result.RoomID != "room-1" || result.Summary.Summary != "We agreed on the plan." {
		testingContext.Fatalf("unexpected workflow result: %#v", result)
	}
}

func TestAnalysisWorkflowDoesNotReanalyzeWhenSaveRetries(testingContext *testing.T) {
	workflowTestSuite := &testsuite.WorkflowTestSuite{}
	workflowEnvironment := workflowTestSuite.NewTestWorkflowEnvironment()
	workflowEnvironment.RegisterWorkflow(AnalysisWorkflow)

	analyzeCalls := 0
	saveCalls := 0

	workflowEnvironment.RegisterActivityWithOptions(func(activityContext context.Context, roomID string, transcript []room.TranscriptEntry) (summarize.Analysis, error) {
		analyzeCalls++
		return summarize.Analysis{Summary: "Short.", ActionItems: []string{}}, nil
	}, activity.RegisterOptions{Name: AnalyzeTranscriptActivityName})

	workflowEnvironment.RegisterActivityWithOptions(func(activityContext context.Context, record store.MeetingRecord) error {
		saveCalls++
		if saveCalls < 3 {
			return errors.New("database unavailable")
		}
		return nil
	}, activity.RegisterOptions{Name: SaveSummaryActivityName})

	workflowEnvironment.ExecuteWorkflow(AnalysisWorkflow, AnalysisWorkflowRequest{
		RoomID:   "room-2",
		HostName: "Ada",
	})

	if !workflowEnvironment.IsWorkflowCompleted() {
		testingContext.Fatal("workflow did not complete")
	}
	if workflowError := workflowEnvironment.GetWorkflowError(); workflowError != nil {
		testingContext.Fatalf("workflow error: %v", workflowError)
	}
	if analyzeCalls != 1 {
		testingContext.Fatalf("expected 1 analyze call, got %d", analyzeCalls)
	}
	if saveCalls != 3 {
		testingContext.Fatalf("expected 3 save attempts, got %d", saveCalls)
	}
}

func TestAnalysisWorkflowFailsWhenSaveExhaustsRetries(testingContext *testing.T) {
	workflowTestSuite := &testsuite.WorkflowTestSuite{}
	workflowEnvironment := workflowTestSuite.NewTestWorkflowEnvironment()
	workflowEnvironment.RegisterWorkflow(AnalysisWorkflow)

	workflowEnvironment.RegisterActivityWithOptions(func(activityContext context.Context, roomID string, transcript []room.TranscriptEntry) (summarize.Analysis, error) {
		return summarize.Analysis{Summary: "Short.", ActionItems: []string{}}, nil
	}, activity.RegisterOptions{Name: AnalyzeTranscriptActivityName})

	saveCalls := 0
	workflowEnvironment.RegisterActivityWithOptions(func(activityContext context.Context, record store.MeetingRecord) error {
		saveCalls++
		return errors.New("database unavailable")
	}, activity.RegisterOptions{Name: SaveSummaryActivityName})

	workflowEnvironment.ExecuteWorkflow(AnalysisWorkflow, AnalysisWorkflowRequest{
		RoomID:   "room-3",
		HostName: "Ada",
	})

	if !workflowEnvironment.IsWorkflowCompleted() {
		testingContext.Fatal("workflow did not complete")
	}
	if workflowEnvironment.GetWorkflowError() == nil {
		testingContext.Fatal("expected workflow error after exhausted retries")
	}
	if saveCalls != DefaultActivityRetryAttempts {
		testingContext.Fatalf("expected %d save attempts, got %d", DefaultActivityRetryAttempts, saveCalls)
	}
}
