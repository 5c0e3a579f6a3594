package api

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"parley/internal/room"
)

// meetingTicket is the credential a successful join hands back. It is opaque
// to clients: base64url-encoded JSON carrying the admitted identity. The
// websocket handler decodes it instead of re-running the password check.
type meetingTicket struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

func encodeTicket(participant room.Participant) string {
	payload, err := json.Marshal(meetingTicket{
		Name: participant.Name,
		Role: string(participant.Role),
	})
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(payload)
}

func decodeTicket(raw string) (room.Participant, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return room.Participant{}, false
	}
	payload, err := base64.RawURLEncoding.DecodeString(trimmed)
	if err != nil {
		return room.Participant{}, false
	}
	var ticket meetingTicket
	if err := json.Unmarshal(payload, &ticket); err != nil {
		return room.Participant{}, false
	}
	if ticket.Name == "" {
		return room.Participant{}, false
	}
	role := room.Role(ticket.Role)
	if role != room.RoleHost && role != room.RoleGuest {
		return room.Participant{}, false
	}
	return room.Participant{Name: ticket.Name, Role: role}, true
}
