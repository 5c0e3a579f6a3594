package summarize

import (
	"context"
	"regexp"
	"strings"

	"parley/internal/room"
)

const summaryFallbackLength = 200
const maxCueActionItems = 5
const minActionItems = 3

var sentenceSplitter = regexp.MustCompile(`\.\s+`)
var fragmentSplitter = regexp.MustCompile(`[.\n]`)
var actionCue = regexp.MustCompile(`(?i)^(do|please|action|follow|assign|create|update|add)\b`)

// Local is the deterministic fallback heuristic. It never fails, so the
// pipeline cannot stall on a missing or unreachable model.
type Local struct{}

func (Local) Analyze(ctx context.Context, transcript []room.TranscriptEntry) (Analysis, error) {
	return LocalAnalyze(transcript), nil
}

// LocalAnalyze summarizes by sentence-like units: the summary is the first
// two units of the concatenated transcript, falling back to its first 200
// characters, falling back to "No content". Action items prefer fragments
// that open with an imperative cue word, backfilled in original order to
// three when fewer qualify.
func LocalAnalyze(transcript []room.TranscriptEntry) Analysis {
	texts := make([]string, 0, len(transcript))
	for _, entry := range transcript {
		trimmed := strings.TrimSpace(entry.Text)
		if trimmed != "" {
			texts = append(texts, trimmed)
		}
	}
	joined := strings.Join(texts, " ")

	var sentences []string
	for _, sentence := range sentenceSplitter.Split(joined, -1) {
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
	}

	summary := ""
	if len(sentences) > 0 {
		head := sentences
		if len(head) > 2 {
			head = head[:2]
		}
		summary = strings.Join(head, ". ")
	}
	if summary == "" {
		summary = truncateRunes(joined, summaryFallbackLength)
	}
	if summary == "" {
		summary = "No content"
	}

	var candidates []string
	for _, text := range texts {
		for _, fragment := range fragmentSplitter.Split(text, -1) {
			trimmed := strings.TrimSpace(fragment)
			if trimmed != "" {
				candidates = append(candidates, trimmed)
			}
		}
	}

	actionItems := []string{}
	for _, candidate := range candidates {
		if actionCue.MatchString(candidate) {
			actionItems = append(actionItems, candidate)
			if len(actionItems) == maxCueActionItems {
				break
			}
		}
	}

	remaining := candidates
	for len(actionItems) < minActionItems && len(remaining) > 0 {
		next := remaining[0]
		remaining = remaining[1:]
		if next != "" && !contains(actionItems, next) {
			actionItems = append(actionItems, next)
		}
	}

	return Analysis{ActionItems: actionItems, Summary: summary}
}

// truncateRunes cuts after at most limit runes so a multibyte rune is never
// split mid-sequence.
func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	seen := 0
	for i := range s {
		if seen == limit {
			return s[:i]
		}
		seen++
	}
	return s
}

func contains(items []string, value string) bool {
	for _, item := range items {
		if item == value {
			return true
		}
	}
	return false
}
