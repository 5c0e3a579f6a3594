package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type Registry struct {
	roomsCreated      atomic.Int64
	sessionsJoined    atomic.Int64
	sessionsLeft      atomic.Int64
	sessionsPruned    atomic.Int64
	transcriptEntries atomic.Int64
	endSessionDenied  atomic.Int64
	workflowStarted   atomic.Int64
	workflowCompleted atomic.Int64
	workflowFailed    atomic.Int64
	activities        sync.Map
}

type activityStats struct {
	count         atomic.Int64
	failures      atomic.Int64
	retries       atomic.Int64
	durationNanos atomic.Int64
}

var Default = &Registry{}

func (r *Registry) IncRoomCreated() {
	if r == nil {
		return
	}
	r.roomsCreated.Add(1)
}

func (r *Registry) IncSessionJoined() {
	if r == nil {
		return
	}
	r.sessionsJoined.Add(1)
}

func (r *Registry) IncSessionLeft() {
	if r == nil {
		return
	}
	r.sessionsLeft.Add(1)
}

func (r *Registry) IncSessionPruned() {
	if r == nil {
		return
	}
	r.sessionsPruned.Add(1)
}

func (r *Registry) IncTranscriptEntry() {
	if r == nil {
		return
	}
	r.transcriptEntries.Add(1)
}

func (r *Registry) IncEndSessionDenied() {
	if r == nil {
		return
	}
	r.endSessionDenied.Add(1)
}

func (r *Registry) IncWorkflowStarted() {
	if r == nil {
		return
	}
	r.workflowStarted.Add(1)
}

func (r *Registry) IncWorkflowCompleted() {
	if r == nil {
		return
	}
	r.workflowCompleted.Add(1)
}

func (r *Registry) IncWorkflowFailed() {
	if r == nil {
		return
	}
	r.workflowFailed.Add(1)
}

func (r *Registry) RecordActivity(name string, duration time.Duration, err error, attempt int32) {
	if r == nil {
		return
	}
	if strings.TrimSpace(name) == "" {
		name = "unknown"
	}
	stats := r.activityStats(name)
	stats.count.Add(1)
	stats.durationNanos.Add(duration.Nanoseconds())
	if err != nil {
		stats.failures.Add(1)
	}
	if attempt > 1 {
		stats.retries.Add(1)
	}
}

func (r *Registry) WritePrometheus(writer io.Writer) error {
	if r == nil {
		return nil
	}

	writeCounter(writer, "parley_rooms_created_total", "Total rooms created", r.roomsCreated.Load())
	writeCounter(writer, "parley_sessions_joined_total", "Total session admissions", r.sessionsJoined.Load())
	writeCounter(writer, "parley_sessions_left_total", "Total session departures", r.sessionsLeft.Load())
	writeCounter(writer, "parley_sessions_pruned_total", "Total dead peers pruned during broadcast", r.sessionsPruned.Load())
	writeCounter(writer, "parley_transcript_entries_total", "Total transcript entries appended", r.transcriptEntries.Load())
	writeCounter(writer, "parley_end_session_denied_total", "Total END_SESSION attempts from non-hosts", r.endSessionDenied.Load())
	writeCounter(writer, "parley_workflows_started_total", "Total analysis workflows started", r.workflowStarted.Load())
	writeCounter(writer, "parley_workflows_completed_total", "Total analysis workflows completed", r.workflowCompleted.Load())
	writeCounter(writer, "parley_workflows_failed_total", "Total analysis workflows failed", r.workflowFailed.Load())

	activityNames := r.activityNames()
	sort.Strings(activityNames)
	if len(activityNames) == 0 {
		return nil
	}

	writeHelp(writer, "parley_activity_duration_seconds", "Activity duration in seconds")
	fmt.Fprintln(writer, "# TYPE parley_activity_duration_seconds summary")
	writeHelp(writer, "parley_activity_failures_total", "Activity failures")
	fmt.Fprintln(writer, "# TYPE parley_activity_failures_total counter")
	writeHelp(writer, "parley_activity_retries_total", "Activity retries")
	fmt.Fprintln(writer, "# TYPE parley_activity_retries_total counter")

	for _, name := range activityNames {
		stats := r.activityStats(name)
		label := formatLabel(name)
		durationSeconds := float64(stats.durationNanos.Load()) / float64(time.Second)
		fmt.Fprintf(writer, "parley_activity_duration_seconds_sum{activity=%s} %.6f\n", label, durationSeconds)
		fmt.Fprintf(writer, "parley_activity_duration_seconds_count{activity=%s} %d\n", label, stats.count.Load())
		fmt.Fprintf(writer, "parley_activity_failures_total{activity=%s} %d\n", label, stats.failures.Load())
		fmt.Fprintf(writer, "parley_activity_retries_total{activity=%s} %d\n", label, stats.retries.Load())
	}

	return nil
}

func (r *Registry) activityStats(name string) *activityStats {
	value, _ := r.activities.LoadOrStore(name, &activityStats{})
	return value.(*activityStats)
}

func (r *Registry) activityNames() []string {
	if r == nil {
		return nil
	}
	var names []string
	r.activities.Range(func(key, value interface{}) bool {
		if name, ok := key.(string); ok {
			names = append(names, name)
		}
		return true
	})
	return names
}

func writeHelp(writer io.Writer, metric, help string) {
	fmt.Fprintf(writer, "# HELP %s %s\n", metric, help)
}

func writeCounter(writer io.Writer, metric, help string, value int64) {
	writeHelp(writer, metric, help)
	fmt.Fprintf(writer, "# TYPE %s counter\n", metric)
	fmt.Fprintf(writer, "%s %d\n", metric, value)
}

func formatLabel(value string) string {
	escaped := strings.ReplaceAll(value, "\\", "\\\\")
	escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
	return fmt.Sprintf("\"%s\"", escaped)
}
