// Package analysis runs the post-meeting pipeline: analyze the transcript,
// then persist the result. Both steps are independently retryable and
// memoized, so resuming after a crash never repeats completed work.
package analysis

const (
	StepAnalyzeTranscript = "analyze-transcript"
	StepSaveToDB          = "save-to-db"
)

// RunID derives the stable run identifier for a room's single analysis
// run. One room lifetime triggers at most one run, so the room identifier
// is enough to key the ledger and to dedupe workflow starts.
func RunID(roomID string) string {
	return "meeting-analysis-" + roomID
}
