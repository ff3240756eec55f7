package http

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"callwatch/internal/models"
	"callwatch/internal/observability/metrics"
	"callwatch/internal/service/session"
	"callwatch/internal/service/transcript"
)

// DisplayLine is a transcript line with its render string. Interim lines get
// a trailing marker and update in place once the segment finalizes.
type DisplayLine struct {
	SegmentID string `json:"segmentId"`
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
	Final     bool   `json:"final"`
	Display   string `json:"display"`
}

// interimMarker signals "still being transcribed" on interim lines.
const interimMarker = " …"

func renderLine(line transcript.Line) DisplayLine {
	display := line.Speaker + ": " + line.Text
	if !line.Final {
		display += interimMarker
	}
	return DisplayLine{
		SegmentID: line.SegmentID,
		Speaker:   line.Speaker,
		Text:      line.Text,
		Final:     line.Final,
		Display:   display,
	}
}

func renderLines(lines []transcript.Line) []DisplayLine {
	out := make([]DisplayLine, len(lines))
	for i, line := range lines {
		out[i] = renderLine(line)
	}
	return out
}

// Snapshot is the full console view pushed to feed clients on every change.
type Snapshot struct {
	Type         string                  `json:"type"`
	State        session.State           `json:"state"`
	Transcript   []DisplayLine           `json:"transcript"`
	Participants []models.SpeakingStatus `json:"participants"`
}

// Hub manages live-feed websocket clients and broadcasts console snapshots.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan Snapshot
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	stop       chan struct{}
	once       sync.Once
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// NewHub creates a hub; call Run in a goroutine to start it.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan Snapshot, 100),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		stop:       make(chan struct{}),
		metrics:    metrics.DefaultMetrics,
		logger:     log.With().Str("component", "http.hub").Logger(),
	}
}

// Run serves the hub until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.clients[conn] = true
			h.metrics.FeedClientsActive.Set(float64(len(h.clients)))
			h.logger.Info().Int("clients", len(h.clients)).Msg("feed client connected")

		case conn := <-h.unregister:
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			h.metrics.FeedClientsActive.Set(float64(len(h.clients)))
			h.logger.Info().Int("clients", len(h.clients)).Msg("feed client disconnected")

		case snap := <-h.broadcast:
			for conn := range h.clients {
				if err := conn.WriteJSON(snap); err != nil {
					h.logger.Warn().Err(err).Msg("feed write failed, dropping client")
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.metrics.FeedClientsActive.Set(float64(len(h.clients)))

		case <-h.stop:
			for conn := range h.clients {
				conn.Close()
			}
			h.clients = make(map[*websocket.Conn]bool)
			h.metrics.FeedClientsActive.Set(0)
			return
		}
	}
}

// Publish queues a snapshot for all connected clients. Never blocks; under
// backlog the oldest queued snapshot is dropped, since only the latest view
// matters.
func (h *Hub) Publish(snap Snapshot) {
	for {
		select {
		case h.broadcast <- snap:
			return
		default:
			select {
			case <-h.broadcast:
			default:
			}
		}
	}
}

// Stop shuts the hub down and disconnects all clients. Idempotent.
func (h *Hub) Stop() {
	h.once.Do(func() { close(h.stop) })
}

var upgrader = websocket.Upgrader{
	// The console page is served same-origin; dev setups proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// serveWS upgrades a feed client, sends the current snapshot immediately and
// keeps the connection registered until it drops.
func (h *Hub) serveWS(current func() Snapshot) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}

		if err := conn.WriteJSON(current()); err != nil {
			conn.Close()
			return
		}
		h.register <- conn

		go func() {
			defer func() { h.unregister <- conn }()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}
