package room

import "encoding/json"

const (
	TypeSendTranscript = "SEND_TRANSCRIPT"
	TypeEndSession     = "END_SESSION"
	TypeUserJoined     = "USER_JOINED"
	TypeNewMessage     = "NEW_MESSAGE"
	TypeUserLeft       = "USER_LEFT"
	TypeMeetingEnded   = "MEETING_ENDED"
)

// ClientMessage is the client→server half of the wire protocol.
type ClientMessage struct {
	Type    string               `json:"type"`
	Payload ClientMessagePayload `json:"payload"`
}

type ClientMessagePayload struct {
	Text string `json:"text"`
}

// ServerEvent is the server→client half; Data depends on Type.
type ServerEvent struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type UserJoinedData struct {
	Name       string `json:"name"`
	TotalUsers int    `json:"totalUsers"`
}

type UserLeftData struct {
	Name       string `json:"name"`
	TotalUsers int    `json:"totalUsers"`
}

func parseClientMessage(raw []byte) (ClientMessage, bool) {
	var message ClientMessage
	if err := json.Unmarshal(raw, &message); err != nil {
		return ClientMessage{}, false
	}
	if message.Type == "" {
		return ClientMessage{}, false
	}
	return message, true
}
