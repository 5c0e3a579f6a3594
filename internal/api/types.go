package api

import (
	"time"

	"parley/internal/logging"
	"parley/internal/summarize"
)

type createRoomRequest struct {
	Password string `json:"password"`
	HostName string `json:"hostName"`
}

type createRoomResponse struct {
	RoomID string `json:"roomId"`
}

type checkAuthRequest struct {
	Password string `json:"password"`
}

type checkAuthResponse struct {
	Authorized bool `json:"authorized"`
}

type joinRoomRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type joinRoomResponse struct {
	RoomID string `json:"roomId"`
	Token  string `json:"token"`
	Role   string `json:"role"`
}

type meetingSummaryResponse struct {
	ID       string             `json:"id"`
	HostName string             `json:"hostName"`
	Summary  summarize.Analysis `json:"summary"`
}

type analysisStatusResponse struct {
	RoomID string `json:"roomId"`
	Status string `json:"status"`
}

type statusResponse struct {
	RoomCount  int       `json:"room_count"`
	ServerTime time.Time `json:"server_time"`
	Version    string    `json:"version"`
	Built      string    `json:"built"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	RoomID  string `json:"room_id,omitempty"`
}

type logQuery struct {
	Limit int
	Since *time.Time
	Level logging.Level
}
