package temporal

import (
	"context"
	"errors"

	"parley/internal/analysis"
	"parley/internal/logging"
	"parley/internal/room"
	"parley/internal/temporal/workflows"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
)

// Starter schedules one analysis workflow per ended meeting. The workflow ID
// is derived from the room ID, so a replayed enqueue for the same meeting is
// rejected by the server and reported as success.
type Starter struct {
	client WorkflowClient
	logger *logging.Logger
}

func NewStarter(workflowClient WorkflowClient, logger *logging.Logger) *Starter {
	return &Starter{
		client: workflowClient,
		logger: logger,
	}
}

func (s *Starter) EnqueueAnalysis(ctx context.Context, request room.AnalysisRequest) error {
	if s == nil || s.client == nil {
		return errors.New("temporal client unavailable")
	}
	if request.RoomID == "" {
		return errors.New("room id is required")
	}

	options := client.StartWorkflowOptions{
		ID:                       analysis.RunID(request.RoomID),
		TaskQueue:                workflows.AnalysisTaskQueueName,
		WorkflowExecutionTimeout: workflows.DefaultWorkflowExecutionTimeout,
		WorkflowRunTimeout:       workflows.DefaultWorkflowRunTimeout,
		WorkflowTaskTimeout:      workflows.DefaultWorkflowTaskTimeout,
	}
	workflowRequest := workflows.AnalysisWorkflowRequest{
		RoomID:     request.RoomID,
		HostName:   request.HostName,
		Transcript: request.Transcript,
	}

	_, startError := s.client.ExecuteWorkflow(ctx, options, workflows.AnalysisWorkflow, workflowRequest)
	if startError != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(startError, &alreadyStarted) {
			s.logInfo("analysis workflow already running", map[string]string{
				"workflow_id": options.ID,
			})
			return nil
		}
		return startError
	}

	s.logInfo("analysis workflow started", map[string]string{
		"workflow_id": options.ID,
		"task_queue":  options.TaskQueue,
	})
	return nil
}

// AnalysisStatus queries the room's running analysis workflow for its
// current step.
func (s *Starter) AnalysisStatus(ctx context.Context, roomID string) (string, error) {
	if s == nil || s.client == nil {
		return "", errors.New("temporal client unavailable")
	}
	if roomID == "" {
		return "", errors.New("room id is required")
	}

	value, queryError := s.client.QueryWorkflow(ctx, analysis.RunID(roomID), "", workflows.StatusQueryName)
	if queryError != nil {
		return "", queryError
	}

	var status string
	if decodeError := value.Get(&status); decodeError != nil {
		return "", decodeError
	}
	return status, nil
}

func (s *Starter) logInfo(message string, fields map[string]string) {
	if s == nil || s.logger == nil {
		return
	}
	s.logger.Info(message, fields)
}
