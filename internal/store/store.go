// Package store provides the durable key-value slots the coordinator and
// the analysis pipeline depend on: room metadata, the per-run step ledger,
// and the persisted meeting summary.
package store

import (
	"context"
	"encoding/json"

	"parley/internal/room"
	"parley/internal/summarize"
)

// MeetingRecord is the shape the save-to-db step persists.
type MeetingRecord struct {
	ID       string             `json:"id"`
	HostName string             `json:"hostName"`
	Summary  summarize.Analysis `json:"summary"`
}

type Store interface {
	room.MetaStore

	// Step ledger: (runID, step) → committed result. Present means the
	// step completed and must not re-execute.
	GetStepResult(ctx context.Context, runID, step string) (json.RawMessage, bool, error)
	PutStepResult(ctx context.Context, runID, step string, result json.RawMessage) error

	// SaveMeetingSummary must be idempotent per record ID: a replayed
	// save after a successful commit does not produce a second record.
	SaveMeetingSummary(ctx context.Context, record MeetingRecord) error
	GetMeetingSummary(ctx context.Context, roomID string) (MeetingRecord, bool, error)

	Close() error
}
