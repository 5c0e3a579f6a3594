package room

import "context"

type Role string

const (
	RoleHost  Role = "HOST"
	RoleGuest Role = "GUEST"
)

// Participant is the identity attached to one live connection. Two
// connections may share a display name; the connection itself is the key.
type Participant struct {
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// RoomMetadata is created by the initialize call and persisted so a room
// survives process restarts. Re-initializing overwrites it.
type RoomMetadata struct {
	Password string `json:"password"`
	HostName string `json:"hostName"`
}

// TranscriptEntry timestamps are server-assigned milliseconds; entries are
// appended in the order the coordinator processed them.
type TranscriptEntry struct {
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// Conn is the send side of one accepted streaming connection. The
// coordinator's session registry maps Conn to Participant; it never owns
// the underlying socket.
type Conn interface {
	Send(payload []byte) error
	Close() error
}

// AnalysisRequest is the immutable input handed to the analysis pipeline
// when a host ends the meeting.
type AnalysisRequest struct {
	RoomID     string            `json:"roomId"`
	HostName   string            `json:"hostName"`
	Transcript []TranscriptEntry `json:"transcript"`
}

// Enqueuer schedules one analysis run. Enqueue is fire-and-forget from the
// coordinator's perspective; retries are the pipeline's concern.
type Enqueuer interface {
	EnqueueAnalysis(ctx context.Context, request AnalysisRequest) error
}

// MetaStore is the durable slot for room metadata.
type MetaStore interface {
	GetRoomMeta(ctx context.Context, roomID string) (RoomMetadata, bool, error)
	PutRoomMeta(ctx context.Context, roomID string, meta RoomMetadata) error
}
