package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"parley/internal/logging"
	"parley/internal/metrics"
	"parley/internal/room"
	"parley/internal/store"
	"parley/internal/version"

	"github.com/google/uuid"
)

// AnalysisStatusQuerier reports which step a room's in-flight analysis run
// is on. Only the workflow engine provides one; without it the persisted
// summary is the only observable state.
type AnalysisStatusQuerier interface {
	AnalysisStatus(ctx context.Context, roomID string) (string, error)
}

type RestHandler struct {
	Registry *room.Registry
	Store    store.Store
	Status   AnalysisStatusQuerier
	Logger   *logging.Logger
}

func (h *RestHandler) requireRegistry() *apiError {
	if h == nil || h.Registry == nil {
		return &apiError{Status: http.StatusInternalServerError, Message: "room registry unavailable"}
	}
	return nil
}

func (h *RestHandler) requireStore() *apiError {
	if h == nil || h.Store == nil {
		return &apiError{Status: http.StatusInternalServerError, Message: "store unavailable"}
	}
	return nil
}

func (h *RestHandler) requireLogger() *apiError {
	if h == nil || h.Logger == nil {
		return &apiError{Status: http.StatusServiceUnavailable, Message: "logger unavailable"}
	}
	return nil
}

func (h *RestHandler) handleRooms(w http.ResponseWriter, r *http.Request) *apiError {
	if r.Method != http.MethodPost {
		return methodNotAllowed(w, "POST")
	}
	if err := h.requireRegistry(); err != nil {
		return err
	}

	var request createRoomRequest
	if apiErr := decodeJSONBody(r, &request); apiErr != nil {
		return apiErr
	}
	password := strings.TrimSpace(request.Password)
	hostName := strings.TrimSpace(request.HostName)
	if password == "" || hostName == "" {
		return &apiError{Status: http.StatusBadRequest, Message: "password and hostName are required"}
	}

	roomID := newRoomID()
	coordinator, err := h.Registry.Get(r.Context(), roomID)
	if err != nil {
		return &apiError{Status: http.StatusInternalServerError, Message: "failed to create room"}
	}
	if err := coordinator.Initialize(r.Context(), password, hostName); err != nil {
		if h.Logger != nil {
			h.Logger.Error("room initialize failed", map[string]string{
				"room_id": roomID,
				"error":   err.Error(),
			})
		}
		return &apiError{Status: http.StatusInternalServerError, Message: "failed to create room", RoomID: roomID}
	}
	metrics.Default.IncRoomCreated()
	if h.Logger != nil {
		h.Logger.Info("room created", map[string]string{
			"room_id":   roomID,
			"host_name": hostName,
		})
	}

	writeJSON(w, http.StatusCreated, createRoomResponse{RoomID: roomID})
	return nil
}

// handleRoom serves the per-room subtree: /api/rooms/{id}/check-auth,
// /api/rooms/{id}/join, /api/rooms/{id}/summary and
// /api/rooms/{id}/analysis.
func (h *RestHandler) handleRoom(w http.ResponseWriter, r *http.Request) *apiError {
	rest := strings.TrimPrefix(r.URL.Path, "/api/rooms/")
	if rest == "" || rest == r.URL.Path {
		return &apiError{Status: http.StatusNotFound, Message: "room not found"}
	}
	roomID, action, _ := strings.Cut(rest, "/")
	if roomID == "" {
		return &apiError{Status: http.StatusNotFound, Message: "room not found"}
	}

	switch action {
	case "check-auth":
		return h.handleCheckAuth(w, r, roomID)
	case "join":
		return h.handleJoin(w, r, roomID)
	case "summary":
		return h.handleSummary(w, r, roomID)
	case "analysis":
		return h.handleAnalysisStatus(w, r, roomID)
	default:
		return &apiError{Status: http.StatusNotFound, Message: "unknown room operation", RoomID: roomID}
	}
}

func (h *RestHandler) handleCheckAuth(w http.ResponseWriter, r *http.Request, roomID string) *apiError {
	if r.Method != http.MethodPost {
		return methodNotAllowed(w, "POST")
	}
	if err := h.requireStore(); err != nil {
		return err
	}

	var request checkAuthRequest
	if apiErr := decodeJSONBody(r, &request); apiErr != nil {
		return apiErr
	}

	meta, found, err := h.Store.GetRoomMeta(r.Context(), roomID)
	if err != nil {
		return &apiError{Status: http.StatusInternalServerError, Message: "failed to read room", RoomID: roomID}
	}
	if !found {
		return &apiError{Status: http.StatusNotFound, Message: "room not found", RoomID: roomID}
	}
	if request.Password != meta.Password {
		return &apiError{Status: http.StatusUnauthorized, Message: "invalid password", RoomID: roomID}
	}

	writeJSON(w, http.StatusOK, checkAuthResponse{Authorized: true})
	return nil
}

func (h *RestHandler) handleJoin(w http.ResponseWriter, r *http.Request, roomID string) *apiError {
	if r.Method != http.MethodPost {
		return methodNotAllowed(w, "POST")
	}
	if err := h.requireStore(); err != nil {
		return err
	}

	var request joinRoomRequest
	if apiErr := decodeJSONBody(r, &request); apiErr != nil {
		return apiErr
	}
	name := strings.TrimSpace(request.Name)
	if name == "" || request.Password == "" {
		return &apiError{Status: http.StatusBadRequest, Message: "name and password are required", RoomID: roomID}
	}

	meta, found, err := h.Store.GetRoomMeta(r.Context(), roomID)
	if err != nil {
		return &apiError{Status: http.StatusInternalServerError, Message: "failed to read room", RoomID: roomID}
	}
	if !found {
		return &apiError{Status: http.StatusNotFound, Message: "room not found", RoomID: roomID}
	}
	if request.Password != meta.Password {
		return &apiError{Status: http.StatusUnauthorized, Message: "invalid password", RoomID: roomID}
	}

	role := room.RoleGuest
	if name == meta.HostName {
		role = room.RoleHost
	}
	participant := room.Participant{Name: name, Role: role}

	writeJSON(w, http.StatusOK, joinRoomResponse{
		RoomID: roomID,
		Token:  encodeTicket(participant),
		Role:   string(role),
	})
	return nil
}

func (h *RestHandler) handleSummary(w http.ResponseWriter, r *http.Request, roomID string) *apiError {
	if r.Method != http.MethodGet {
		return methodNotAllowed(w, "GET")
	}
	if err := h.requireStore(); err != nil {
		return err
	}

	record, found, err := h.Store.GetMeetingSummary(r.Context(), roomID)
	if err != nil {
		return &apiError{Status: http.StatusInternalServerError, Message: "failed to read summary", RoomID: roomID}
	}
	if !found {
		return &apiError{Status: http.StatusNotFound, Message: "summary not available", RoomID: roomID}
	}

	writeJSON(w, http.StatusOK, meetingSummaryResponse{
		ID:       record.ID,
		HostName: record.HostName,
		Summary:  record.Summary,
	})
	return nil
}

func (h *RestHandler) handleAnalysisStatus(w http.ResponseWriter, r *http.Request, roomID string) *apiError {
	if r.Method != http.MethodGet {
		return methodNotAllowed(w, "GET")
	}
	if err := h.requireStore(); err != nil {
		return err
	}

	// A persisted record is authoritative; the workflow may already be gone.
	if _, found, err := h.Store.GetMeetingSummary(r.Context(), roomID); err == nil && found {
		writeJSON(w, http.StatusOK, analysisStatusResponse{RoomID: roomID, Status: "saved"})
		return nil
	}

	if h.Status == nil {
		return &apiError{Status: http.StatusNotFound, Message: "no analysis for room", RoomID: roomID}
	}
	status, err := h.Status.AnalysisStatus(r.Context(), roomID)
	if err != nil {
		return &apiError{Status: http.StatusNotFound, Message: "no analysis for room", RoomID: roomID}
	}

	writeJSON(w, http.StatusOK, analysisStatusResponse{RoomID: roomID, Status: status})
	return nil
}

func (h *RestHandler) handleStatus(w http.ResponseWriter, r *http.Request) *apiError {
	if r.Method != http.MethodGet {
		return methodNotAllowed(w, "GET")
	}

	versionInfo := version.GetVersionInfo()
	response := statusResponse{
		ServerTime: time.Now().UTC(),
		Version:    versionInfo.Version,
		Built:      versionInfo.Built,
	}
	if h != nil && h.Registry != nil {
		response.RoomCount = h.Registry.Count()
	}

	writeJSON(w, http.StatusOK, response)
	return nil
}

func (h *RestHandler) handleMetrics(w http.ResponseWriter, r *http.Request) *apiError {
	if r.Method != http.MethodGet {
		return methodNotAllowed(w, "GET")
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	if err := metrics.Default.WritePrometheus(w); err != nil && h != nil && h.Logger != nil {
		h.Logger.Warn("metrics write failed", map[string]string{
			"error": err.Error(),
		})
	}
	return nil
}

func decodeJSONBody(r *http.Request, target any) *apiError {
	if r.Body == nil {
		return &apiError{Status: http.StatusBadRequest, Message: "invalid request body"}
	}
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil && err != io.EOF {
		return &apiError{Status: http.StatusBadRequest, Message: "invalid request body"}
	}
	return nil
}

// newRoomID keeps identifiers short enough to read over a call: the first
// group of a v4 UUID.
func newRoomID() string {
	id := uuid.NewString()
	if idx := strings.Index(id, "-"); idx > 0 {
		return id[:idx]
	}
	return id
}
