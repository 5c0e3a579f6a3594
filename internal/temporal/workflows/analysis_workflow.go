package workflows

import (
	"time"

	"parley/internal/metrics"
	"parley/internal/room"
	"parley/internal/store"
	"parley/internal/summarize"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	AnalysisStatusAnalyzing = "analyzing"
	AnalysisStatusSaving    = "saving"
	AnalysisStatusSaved     = "saved"

	AnalysisTaskQueueName = "parley-analysis"

	AnalyzeTranscriptActivityName = "AnalyzeTranscriptActivity"
	SaveSummaryActivityName       = "SaveSummaryActivity"

	DefaultWorkflowExecutionTimeout = time.Hour
	DefaultWorkflowRunTimeout       = time.Hour
	DefaultWorkflowTaskTimeout      = 10 * time.Second

	AnalyzeTranscriptTimeout     = time.Minute
	SaveSummaryTimeout           = 15 * time.Second
	DefaultActivityRetryAttempts = 5

	StatusQueryName = "analysis.status"
)

type AnalysisWorkflowRequest struct {
	RoomID     string
	HostName   string
	Transcript []room.TranscriptEntry
}

type AnalysisWorkflowResult struct {
	RoomID  string
	Summary summarize.Analysis
	SavedAt time.Time
}

// AnalysisWorkflow runs the two-step meeting analysis pipeline. Each step
// executes at most once per workflow run: completed activities are replayed
// from history, never re-executed, so a worker crash between the analyze and
// save steps resumes with the analysis it already has.
func AnalysisWorkflow(workflowContext workflow.Context, request AnalysisWorkflowRequest) (result AnalysisWorkflowResult, err error) {
	metrics.Default.IncWorkflowStarted()
	defer func() {
		if err != nil {
			metrics.Default.IncWorkflowFailed()
		} else {
			metrics.Default.IncWorkflowCompleted()
		}
	}()

	status := AnalysisStatusAnalyzing
	queryError := workflow.SetQueryHandler(workflowContext, StatusQueryName, func() (string, error) {
		return status, nil
	})
	if queryError != nil {
		err = queryError
		return AnalysisWorkflowResult{}, queryError
	}

	analyzeContext := workflow.WithActivityOptions(workflowContext, workflow.ActivityOptions{
		StartToCloseTimeout: AnalyzeTranscriptTimeout,
		RetryPolicy:         defaultActivityRetryPolicy(),
	})
	var analysisResult summarize.Analysis
	if activityErr := workflow.ExecuteActivity(analyzeContext, AnalyzeTranscriptActivityName, request.RoomID, request.Transcript).Get(analyzeContext, &analysisResult); activityErr != nil {
		err = activityErr
		return AnalysisWorkflowResult{}, activityErr
	}

	status = AnalysisStatusSaving
	saveContext := workflow.WithActivityOptions(workflowContext, workflow.ActivityOptions{
		StartToCloseTimeout: SaveSummaryTimeout,
		RetryPolicy:         defaultActivityRetryPolicy(),
	})
	record := store.MeetingRecord{
		ID:       request.RoomID,
		HostName: request.HostName,
		Summary:  analysisResult,
	}
	if activityErr := workflow.ExecuteActivity(saveContext, SaveSummaryActivityName, record).Get(saveContext, nil); activityErr != nil {
		err = activityErr
		return AnalysisWorkflowResult{}, activityErr
	}

	status = AnalysisStatusSaved
	result = AnalysisWorkflowResult{
		RoomID:  request.RoomID,
		Summary: analysisResult,
		SavedAt: workflow.Now(workflowContext),
	}
	return result, nil
}

func defaultActivityRetryPolicy() *temporal.RetryPolicy {
	return &temporal.RetryPolicy{
		InitialInterval:    time.Second,
		BackoffCoefficient: 2.0,
		MaximumInterval:    30 * time.Second,
		MaximumAttempts:    DefaultActivityRetryAttempts,
	}
}
