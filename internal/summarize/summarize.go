// Package summarize turns a meeting transcript into a short summary plus
// action items. The Summarizer is an interchangeable capability: the
// analysis pipeline treats a remote model and the local heuristic the same.
package summarize

import (
	"context"

	"parley/internal/room"
)

type Analysis struct {
	ActionItems []string `json:"action_items"`
	Summary     string   `json:"summary"`
}

type Summarizer interface {
	Analyze(ctx context.Context, transcript []room.TranscriptEntry) (Analysis, error)
}
