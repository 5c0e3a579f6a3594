package room

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"parley/internal/logging"
	"parley/internal/metrics"
)

// Coordinator is the exclusive owner of one room's live state. Every
// exported operation takes the coordinator mutex, which gives the
// serialized-execution guarantee the room contract requires: admission,
// message handling and close are never concurrent for the same room.
type Coordinator struct {
	mu sync.Mutex

	roomID   string
	store    MetaStore
	enqueuer Enqueuer
	logger   *logging.Logger

	meta       RoomMetadata
	sessions   map[Conn]Participant
	transcript []TranscriptEntry
	ended      bool
	enqueued   bool

	lastActivity time.Time
	now          func() time.Time
}

func NewCoordinator(roomID string, store MetaStore, enqueuer Enqueuer, logger *logging.Logger) *Coordinator {
	coordinator := &Coordinator{
		roomID:   roomID,
		store:    store,
		enqueuer: enqueuer,
		logger:   logger,
		sessions: make(map[Conn]Participant),
		now:      time.Now,
	}
	coordinator.lastActivity = coordinator.now()
	return coordinator
}

// restore installs metadata loaded from the durable store on (re)start.
// Called once by the registry before the coordinator serves any operation.
func (c *Coordinator) restore(meta RoomMetadata) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.meta = meta
}

// Initialize stores room metadata durably and updates the in-memory copy.
// Calling it twice overwrites without error; the overwrite is logged
// because silent re-initialization is deliberate but worth seeing.
func (c *Coordinator) Initialize(ctx context.Context, password, hostName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.meta != (RoomMetadata{}) {
		c.logf().Warn("room re-initialized", map[string]string{
			"room_id": c.roomID,
		})
	}

	meta := RoomMetadata{Password: password, HostName: hostName}
	if c.store != nil {
		if err := c.store.PutRoomMeta(ctx, c.roomID, meta); err != nil {
			return err
		}
	}
	c.meta = meta
	c.touchLocked()
	return nil
}

// CheckAuth is a pure predicate over the stored password.
func (c *Coordinator) CheckAuth(password string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return password == c.meta.Password
}

// HostName returns the configured host display name.
func (c *Coordinator) HostName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.meta.HostName
}

// Admit registers an already-upgraded connection and announces the join to
// everyone, including the new participant. A connection arriving after the
// meeting ended is still admitted but immediately told the meeting is over.
func (c *Coordinator) Admit(conn Conn, participant Participant) {
	if conn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sessions[conn] = participant
	metrics.Default.IncSessionJoined()
	c.touchLocked()
	c.broadcastLocked(ServerEvent{
		Type: TypeUserJoined,
		Data: UserJoinedData{Name: participant.Name, TotalUsers: len(c.sessions)},
	})

	if c.ended {
		c.sendLocked(conn, ServerEvent{Type: TypeMeetingEnded})
	}
}

// HandleMessage dispatches one inbound frame. Messages from connections the
// registry does not recognize, and frames that do not parse, are dropped.
func (c *Coordinator) HandleMessage(ctx context.Context, conn Conn, raw []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sender, ok := c.sessions[conn]
	if !ok {
		return
	}
	message, ok := parseClientMessage(raw)
	if !ok {
		c.logf().Debug("unparsable message dropped", map[string]string{
			"room_id": c.roomID,
			"sender":  sender.Name,
		})
		return
	}
	c.touchLocked()

	switch message.Type {
	case TypeSendTranscript:
		c.handleTranscriptLocked(sender, message.Payload.Text)
	case TypeEndSession:
		c.handleEndSessionLocked(ctx, sender)
	default:
		c.logf().Debug("unknown message type dropped", map[string]string{
			"room_id": c.roomID,
			"type":    message.Type,
		})
	}
}

func (c *Coordinator) handleTranscriptLocked(sender Participant, text string) {
	if c.ended {
		return
	}

	entry := TranscriptEntry{
		Sender:    sender.Name,
		Text:      text,
		Timestamp: c.now().UnixMilli(),
	}
	c.transcript = append(c.transcript, entry)
	metrics.Default.IncTranscriptEntry()
	c.broadcastLocked(ServerEvent{Type: TypeNewMessage, Data: entry})
}

func (c *Coordinator) handleEndSessionLocked(ctx context.Context, sender Participant) {
	if sender.Role != RoleHost {
		// Policy: the attempt is ignored, not rejected, but never silently.
		metrics.Default.IncEndSessionDenied()
		c.logf().Warn("end session denied for non-host", map[string]string{
			"room_id": c.roomID,
			"name":    sender.Name,
			"role":    string(sender.Role),
		})
		return
	}
	if c.ended {
		return
	}
	c.ended = true
	c.broadcastLocked(ServerEvent{Type: TypeMeetingEnded})

	if c.enqueuer == nil || c.enqueued {
		return
	}
	c.enqueued = true
	request := AnalysisRequest{
		RoomID:     c.roomID,
		HostName:   c.meta.HostName,
		Transcript: append([]TranscriptEntry(nil), c.transcript...),
	}
	enqueuer := c.enqueuer
	logger := c.logf()
	go func() {
		if err := enqueuer.EnqueueAnalysis(context.WithoutCancel(ctx), request); err != nil {
			logger.Error("analysis enqueue failed", map[string]string{
				"room_id": request.RoomID,
				"error":   err.Error(),
			})
		}
	}()
}

// CloseConn removes a connection from the registry. Nothing is broadcast
// for connections that were never admitted.
func (c *Coordinator) CloseConn(conn Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	participant, ok := c.sessions[conn]
	if !ok {
		return
	}
	delete(c.sessions, conn)
	metrics.Default.IncSessionLeft()
	c.touchLocked()
	c.broadcastLocked(ServerEvent{
		Type: TypeUserLeft,
		Data: UserLeftData{Name: participant.Name, TotalUsers: len(c.sessions)},
	})
}

// broadcastLocked serializes the event once and attempts delivery to every
// registered connection. A failed send prunes only that peer; delivery to
// the rest continues.
func (c *Coordinator) broadcastLocked(event ServerEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		c.logf().Error("event marshal failed", map[string]string{
			"room_id": c.roomID,
			"type":    event.Type,
			"error":   err.Error(),
		})
		return
	}
	for conn := range c.sessions {
		if sendErr := conn.Send(payload); sendErr != nil {
			delete(c.sessions, conn)
			metrics.Default.IncSessionPruned()
			c.logf().Debug("dead peer pruned", map[string]string{
				"room_id": c.roomID,
				"error":   sendErr.Error(),
			})
		}
	}
}

func (c *Coordinator) sendLocked(conn Conn, event ServerEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	if sendErr := conn.Send(payload); sendErr != nil {
		delete(c.sessions, conn)
		metrics.Default.IncSessionPruned()
	}
}

// SessionCount reports the number of currently registered connections.
func (c *Coordinator) SessionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

// Ended reports whether a host has ended the meeting.
func (c *Coordinator) Ended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ended
}

// TranscriptLen reports the number of entries accumulated so far.
func (c *Coordinator) TranscriptLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.transcript)
}

// Idle reports whether the room is ended, empty and untouched for ttl.
// The registry's sweeper uses this to evict finished rooms.
func (c *Coordinator) Idle(ttl time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ended || len(c.sessions) > 0 {
		return false
	}
	return c.now().Sub(c.lastActivity) >= ttl
}

func (c *Coordinator) touchLocked() {
	c.lastActivity = c.now()
}

func (c *Coordinator) logf() *logging.Logger {
	if c.logger != nil {
		return c.logger
	}
	return nil
}

// DebugState is a small snapshot for the status endpoint.
func (c *Coordinator) DebugState() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return map[string]string{
		"room_id":    c.roomID,
		"sessions":   strconv.Itoa(len(c.sessions)),
		"transcript": strconv.Itoa(len(c.transcript)),
		"ended":      strconv.FormatBool(c.ended),
	}
}
