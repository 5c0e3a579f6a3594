package activities

import (
	"context"
	"errors"
	"strconv"
	"time"

	"parley/internal/logging"
	"parley/internal/metrics"
	"parley/internal/room"
	"parley/internal/store"
	"parley/internal/summarize"
)

const (
	AnalyzeTranscriptActivityName = "AnalyzeTranscriptActivity"
	SaveSummaryActivityName       = "SaveSummaryActivity"
)

type AnalysisActivities struct {
	Store      store.Store
	Summarizer summarize.Summarizer
	Logger     *logging.Logger
}

func NewAnalysisActivities(meetingStore store.Store, summarizer summarize.Summarizer, logger *logging.Logger) *AnalysisActivities {
	return &AnalysisActivities{
		Store:      meetingStore,
		Summarizer: summarizer,
		Logger:     logger,
	}
}

// AnalyzeTranscriptActivity produces the summary for one transcript. A
// failing summarizer degrades to the local heuristic instead of failing the
// workflow; the meeting record is written either way.
func (activities *AnalysisActivities) AnalyzeTranscriptActivity(activityContext context.Context, roomID string, transcript []room.TranscriptEntry) (result summarize.Analysis, activityErr error) {
	start := time.Now()
	defer func() {
		metrics.Default.RecordActivity(AnalyzeTranscriptActivityName, time.Since(start), activityErr, 1)
	}()

	if activityContext != nil {
		if contextError := activityContext.Err(); contextError != nil {
			activityErr = contextError
			return summarize.Analysis{}, contextError
		}
	}
	summarizer := activities.summarizer()
	analysisResult, analyzeError := summarizer.Analyze(activityContext, transcript)
	if analyzeError != nil {
		activities.logWarn("summarizer failed, using local heuristic", map[string]string{
			"room_id": roomID,
			"error":   analyzeError.Error(),
		})
		analysisResult = summarize.LocalAnalyze(transcript)
	}
	activities.logInfo("transcript analyzed", map[string]string{
		"room_id":      roomID,
		"entry_count":  strconv.Itoa(len(transcript)),
		"action_items": strconv.Itoa(len(analysisResult.ActionItems)),
	})
	return analysisResult, nil
}

// SaveSummaryActivity persists the meeting record. The store guarantees
// idempotency per record ID, so a retried save after a lost acknowledgement
// is harmless.
func (activities *AnalysisActivities) SaveSummaryActivity(activityContext context.Context, record store.MeetingRecord) (activityErr error) {
	start := time.Now()
	defer func() {
		metrics.Default.RecordActivity(SaveSummaryActivityName, time.Since(start), activityErr, 1)
	}()

	if activityContext != nil {
		if contextError := activityContext.Err(); contextError != nil {
			activityErr = contextError
			return contextError
		}
	}
	if activities == nil || activities.Store == nil {
		activityErr = errors.New("meeting store unavailable")
		return activityErr
	}
	if record.ID == "" {
		activityErr = errors.New("meeting id is required")
		return activityErr
	}
	saveError := activities.Store.SaveMeetingSummary(activityContext, record)
	if saveError != nil {
		activities.logWarn("meeting record save failed", map[string]string{
			"room_id": record.ID,
			"error":   saveError.Error(),
		})
		activityErr = saveError
		return saveError
	}
	activities.logInfo("meeting record saved", map[string]string{
		"room_id":   record.ID,
		"host_name": record.HostName,
	})
	return nil
}

func (activities *AnalysisActivities) summarizer() summarize.Summarizer {
	if activities == nil || activities.Summarizer == nil {
		return summarize.Local{}
	}
	return activities.Summarizer
}

func (activities *AnalysisActivities) logInfo(message string, fields map[string]string) {
	if activities == nil || activities.Logger == nil {
		return
	}
	activities.Logger.Info(message, fields)
}

func (activities *AnalysisActivities) logWarn(message string, fields map[string]string) {
	if activities == nil || activities.Logger == nil {
		return
	}
	activities.Logger.Warn(message, fields)
}
