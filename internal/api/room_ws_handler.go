package api

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"parley/internal/logging"
	"parley/internal/room"

	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 10 * time.Second

// RoomWSHandler upgrades /ws/rooms/{id} connections and hands them to the
// room coordinator. The join ticket in the token query parameter carries the
// admitted identity; the password was already checked at join time.
type RoomWSHandler struct {
	Registry       *room.Registry
	Logger         *logging.Logger
	AllowedOrigins []string
}

// wsConn adapts one gorilla connection to the coordinator's Conn contract.
// Writes are serialized by its own mutex: the coordinator broadcast path and
// the close path may race on the socket otherwise.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

func (h *RoomWSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Registry == nil {
		http.Error(w, "room registry unavailable", http.StatusInternalServerError)
		return
	}

	roomID := strings.TrimPrefix(r.URL.Path, "/ws/rooms/")
	if roomID == "" || roomID == r.URL.Path || strings.Contains(roomID, "/") {
		http.Error(w, "missing room id", http.StatusBadRequest)
		return
	}

	participant, ok := decodeTicket(r.URL.Query().Get("token"))
	if !ok {
		http.Error(w, "missing or invalid ticket", http.StatusBadRequest)
		return
	}

	coordinator, err := h.Registry.Get(r.Context(), roomID)
	if err != nil {
		http.Error(w, "room unavailable", http.StatusInternalServerError)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return isOriginAllowed(r, h.AllowedOrigins)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	session := &wsConn{conn: conn}
	coordinator.Admit(session, participant)
	if h.Logger != nil {
		h.Logger.Info("participant connected", map[string]string{
			"room_id": roomID,
			"name":    participant.Name,
			"role":    string(participant.Role),
		})
	}

	defer func() {
		coordinator.CloseConn(session)
		_ = conn.Close()
		if h.Logger != nil {
			h.Logger.Info("participant disconnected", map[string]string{
				"room_id": roomID,
				"name":    participant.Name,
			})
		}
	}()

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		coordinator.HandleMessage(r.Context(), session, msg)
	}
}
