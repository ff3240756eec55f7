// Package http serves the console: the browser page, the JSON API and the
// live websocket feed.
package http

import (
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"callwatch/internal/app"
	"callwatch/internal/observability"
	"callwatch/internal/orchestrator"
	"callwatch/internal/service/session"
)

//go:embed static/*
var staticFiles embed.FS

// NewRouter constructs the console HTTP router.
func NewRouter(application *app.Application, monitor *session.Monitor, poller *orchestrator.Poller, hub *Hub) http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(observability.RequestLogger)

	h := &handlers{monitor: monitor, poller: poller, hub: hub}

	// Every store change, speaking flip or lifecycle transition pushes a
	// fresh snapshot to the feed clients.
	monitor.OnChange(h.publishSnapshot)

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	// API routes
	r.Route("/v1", func(r chi.Router) {
		r.Get("/rooms", h.listRooms)
		r.Post("/rooms/refresh", h.refreshRooms)

		r.Get("/session", h.sessionState)
		r.Post("/session", h.joinSession)
		r.Delete("/session", h.leaveSession)

		r.Get("/transcript", h.getTranscript)
		r.Get("/participants", h.getParticipants)

		r.Get("/ws", hub.serveWS(h.snapshot))
	})

	// Console page
	staticFS, _ := fs.Sub(staticFiles, "static")
	r.Handle("/*", http.FileServer(http.FS(staticFS)))

	return r
}

type handlers struct {
	monitor *session.Monitor
	poller  *orchestrator.Poller
	hub     *Hub
}

func (h *handlers) snapshot() Snapshot {
	return Snapshot{
		Type:         "snapshot",
		State:        h.monitor.State(),
		Transcript:   renderLines(h.monitor.Transcript()),
		Participants: h.monitor.Participants(),
	}
}

// PublishSnapshot pushes the current console view to all feed clients.
// Wired as the monitor's change callback.
func (h *handlers) publishSnapshot() {
	h.hub.Publish(h.snapshot())
}

// roomsResponse carries the latest room list. Stale is set when the most
// recent poll failed and the list is the previous one.
type roomsResponse struct {
	Rooms []roomView `json:"rooms"`
	Stale bool       `json:"stale"`
}

type roomView struct {
	Name            string `json:"name"`
	NumParticipants int    `json:"num_participants"`
	CreationTime    int64  `json:"creation_time"`
}

func (h *handlers) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms, pollErr := h.poller.Latest()
	resp := roomsResponse{Rooms: make([]roomView, len(rooms)), Stale: pollErr != nil}
	for i, room := range rooms {
		resp.Rooms[i] = roomView{
			Name:            room.Name,
			NumParticipants: room.NumParticipants,
			CreationTime:    room.CreationTime,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) refreshRooms(w http.ResponseWriter, r *http.Request) {
	h.poller.RefreshNow()
	w.WriteHeader(http.StatusAccepted)
}

func (h *handlers) sessionState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.monitor.State())
}

type joinRequest struct {
	RoomName        string `json:"room_name"`
	ParticipantName string `json:"participant_name"`
}

func (h *handlers) joinSession(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.monitor.Join(r.Context(), req.RoomName, req.ParticipantName)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, h.monitor.State())
	case errors.Is(err, session.ErrMissingRoom), errors.Is(err, session.ErrMissingParticipant):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrSessionActive):
		writeError(w, http.StatusConflict, err.Error())
	default:
		var joinErr *orchestrator.JoinError
		if errors.As(err, &joinErr) {
			// The backend's detail message goes to the user verbatim.
			writeError(w, http.StatusBadGateway, joinErr.Detail)
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func (h *handlers) leaveSession(w http.ResponseWriter, r *http.Request) {
	h.monitor.Leave()
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) getTranscript(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, renderLines(h.monitor.Transcript()))
}

func (h *handlers) getParticipants(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.monitor.Participants())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
