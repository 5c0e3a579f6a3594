package temporalworker

import (
	"errors"
	"sync"
	"time"

	"parley/internal/logging"
	"parley/internal/store"
	"parley/internal/summarize"
	"parley/internal/temporal"
	"parley/internal/temporal/activities"
	"parley/internal/temporal/workflows"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

const defaultMaxConcurrentActivities = 10
const defaultMaxConcurrentWorkflowTasks = 10
const defaultWorkerStopTimeout = 5 * time.Second
const defaultDeadlockDetectionTimeout = 10 * time.Second

var workerMutex sync.Mutex
var activeWorker worker.Worker

func StartWorker(temporalClient temporal.WorkflowClient, meetingStore store.Store, summarizer summarize.Summarizer, logger *logging.Logger) error {
	if temporalClient == nil {
		return errors.New("temporal client is required")
	}
	if meetingStore == nil {
		return errors.New("meeting store is required")
	}

	sdkClient, ok := temporalClient.(client.Client)
	if !ok {
		return errors.New("temporal client does not support worker")
	}

	workerMutex.Lock()
	if activeWorker != nil {
		workerMutex.Unlock()
		return errors.New("temporal worker already running")
	}
	workerMutex.Unlock()

	activityHandlers := activities.NewAnalysisActivities(meetingStore, summarizer, logger)

	workerOptions := worker.Options{
		MaxConcurrentActivityExecutionSize:     defaultMaxConcurrentActivities,
		MaxConcurrentWorkflowTaskExecutionSize: defaultMaxConcurrentWorkflowTasks,
		MaxConcurrentActivityTaskPollers:       2,
		MaxConcurrentWorkflowTaskPollers:       2,
		WorkerStopTimeout:                      defaultWorkerStopTimeout,
		DeadlockDetectionTimeout:               defaultDeadlockDetectionTimeout,
	}

	workerInstance := worker.New(sdkClient, workflows.AnalysisTaskQueueName, workerOptions)
	workerInstance.RegisterWorkflow(workflows.AnalysisWorkflow)
	workerInstance.RegisterActivityWithOptions(activityHandlers.AnalyzeTranscriptActivity, activity.RegisterOptions{Name: activities.AnalyzeTranscriptActivityName})
	workerInstance.RegisterActivityWithOptions(activityHandlers.SaveSummaryActivity, activity.RegisterOptions{Name: activities.SaveSummaryActivityName})

	startError := workerInstance.Start()
	if startError != nil {
		return startError
	}

	workerMutex.Lock()
	activeWorker = workerInstance
	workerMutex.Unlock()

	if logger != nil {
		logger.Info("temporal worker started", map[string]string{
			"task_queue": workflows.AnalysisTaskQueueName,
		})
	}

	return nil
}

func StopWorker() {
	workerMutex.Lock()
	workerInstance := activeWorker
	activeWorker = nil
	workerMutex.Unlock()

	if workerInstance != nil {
		workerInstance.Stop()
	}
}
