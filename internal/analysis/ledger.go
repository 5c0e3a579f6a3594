package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"parley/internal/logging"
	"parley/internal/metrics"
	"parley/internal/room"
	"parley/internal/store"
	"parley/internal/summarize"
)

const DefaultMaxAttempts = 5
const initialRetryDelay = time.Second
const maxRetryDelay = 30 * time.Second

// LedgerRunner executes the pipeline in-process with an explicit persisted
// step ledger. It is the engine used when no Temporal server is available;
// memoization semantics match the Temporal path: a committed step is never
// re-executed, so save-to-db cannot double-write.
type LedgerRunner struct {
	store       store.Store
	summarizer  summarize.Summarizer
	logger      *logging.Logger
	maxAttempts int

	wg sync.WaitGroup
}

func NewLedgerRunner(st store.Store, summarizer summarize.Summarizer, logger *logging.Logger) *LedgerRunner {
	if summarizer == nil {
		summarizer = summarize.Local{}
	}
	return &LedgerRunner{
		store:       st,
		summarizer:  summarizer,
		logger:      logger,
		maxAttempts: DefaultMaxAttempts,
	}
}

// EnqueueAnalysis schedules the run in the background; the coordinator
// never waits on pipeline completion.
func (r *LedgerRunner) EnqueueAnalysis(ctx context.Context, request room.AnalysisRequest) error {
	if r == nil || r.store == nil {
		return fmt.Errorf("ledger runner is not configured")
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.Run(context.WithoutCancel(ctx), request)
	}()
	return nil
}

// Run executes both steps in order, consulting the ledger before each.
func (r *LedgerRunner) Run(ctx context.Context, request room.AnalysisRequest) (summarize.Analysis, error) {
	runID := RunID(request.RoomID)
	metrics.Default.IncWorkflowStarted()

	analysis, err := r.analyzeStep(ctx, runID, request)
	if err != nil {
		metrics.Default.IncWorkflowFailed()
		r.logger.Error("analysis run failed", map[string]string{
			"run_id": runID,
			"step":   StepAnalyzeTranscript,
			"error":  err.Error(),
		})
		return summarize.Analysis{}, err
	}

	if err := r.saveStep(ctx, runID, request, analysis); err != nil {
		metrics.Default.IncWorkflowFailed()
		r.logger.Error("analysis run failed", map[string]string{
			"run_id": runID,
			"step":   StepSaveToDB,
			"error":  err.Error(),
		})
		return summarize.Analysis{}, err
	}

	metrics.Default.IncWorkflowCompleted()
	r.logger.Info("analysis run completed", map[string]string{
		"run_id": runID,
	})
	return analysis, nil
}

func (r *LedgerRunner) analyzeStep(ctx context.Context, runID string, request room.AnalysisRequest) (summarize.Analysis, error) {
	cached, found, err := r.store.GetStepResult(ctx, runID, StepAnalyzeTranscript)
	if err != nil {
		return summarize.Analysis{}, fmt.Errorf("read step ledger: %w", err)
	}
	if found {
		var analysis summarize.Analysis
		if err := json.Unmarshal(cached, &analysis); err != nil {
			return summarize.Analysis{}, fmt.Errorf("decode memoized analysis: %w", err)
		}
		return analysis, nil
	}

	var analysis summarize.Analysis
	err = r.withRetry(ctx, runID, StepAnalyzeTranscript, func(attempt int32) error {
		start := time.Now()
		result, analyzeErr := r.summarizer.Analyze(ctx, request.Transcript)
		if analyzeErr != nil {
			// The local heuristic cannot fail, so the step never stalls
			// on an unavailable model.
			r.logger.Warn("summarizer unavailable, using local heuristic", map[string]string{
				"run_id": runID,
				"error":  analyzeErr.Error(),
			})
			result = summarize.LocalAnalyze(request.Transcript)
		}
		metrics.Default.RecordActivity(StepAnalyzeTranscript, time.Since(start), nil, attempt)
		analysis = result
		return nil
	})
	if err != nil {
		return summarize.Analysis{}, err
	}

	encoded, err := json.Marshal(analysis)
	if err != nil {
		return summarize.Analysis{}, fmt.Errorf("encode analysis: %w", err)
	}
	if err := r.store.PutStepResult(ctx, runID, StepAnalyzeTranscript, encoded); err != nil {
		return summarize.Analysis{}, fmt.Errorf("commit step ledger: %w", err)
	}
	return analysis, nil
}

func (r *LedgerRunner) saveStep(ctx context.Context, runID string, request room.AnalysisRequest, analysis summarize.Analysis) error {
	_, found, err := r.store.GetStepResult(ctx, runID, StepSaveToDB)
	if err != nil {
		return fmt.Errorf("read step ledger: %w", err)
	}
	if found {
		return nil
	}

	err = r.withRetry(ctx, runID, StepSaveToDB, func(attempt int32) error {
		start := time.Now()
		saveErr := r.store.SaveMeetingSummary(ctx, store.MeetingRecord{
			ID:       request.RoomID,
			HostName: request.HostName,
			Summary:  analysis,
		})
		metrics.Default.RecordActivity(StepSaveToDB, time.Since(start), saveErr, attempt)
		return saveErr
	})
	if err != nil {
		return err
	}

	return r.store.PutStepResult(ctx, runID, StepSaveToDB, json.RawMessage(`{"saved":true}`))
}

func (r *LedgerRunner) withRetry(ctx context.Context, runID, step string, execute func(attempt int32) error) error {
	delay := initialRetryDelay
	var lastErr error
	for attempt := int32(1); attempt <= int32(r.maxAttempts); attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = execute(attempt)
		if lastErr == nil {
			return nil
		}
		r.logger.Warn("analysis step failed, retrying", map[string]string{
			"run_id":  runID,
			"step":    step,
			"attempt": fmt.Sprintf("%d", attempt),
			"error":   lastErr.Error(),
		})
		if attempt == int32(r.maxAttempts) {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
	return fmt.Errorf("step %s exhausted %d attempts: %w", step, r.maxAttempts, lastErr)
}

// Wait blocks until all enqueued runs finish. Used on shutdown and by
// tests.
func (r *LedgerRunner) Wait() {
	if r == nil {
		return
	}
	r.wg.Wait()
}
