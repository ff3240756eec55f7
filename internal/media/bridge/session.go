// Package bridge connects to the media platform's websocket event bridge
// and turns its JSON feed into media session events. The bridge carries no
// audio; the platform pushes transcription and activity events for the room
// the join token grants access to.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"callwatch/internal/media"
	"callwatch/internal/models"
)

// wireEvent is one message off the bridge feed.
type wireEvent struct {
	Type        string                        `json:"type"`
	Segments    []models.TranscriptionSegment `json:"segments,omitempty"`
	Participant *wireParticipant              `json:"participant,omitempty"`
	Speaking    bool                          `json:"speaking,omitempty"`
	Message     string                        `json:"message,omitempty"`
}

type wireParticipant struct {
	Identity string `json:"identity"`
	Name     string `json:"name,omitempty"`
	IsLocal  bool   `json:"is_local,omitempty"`
}

// Session implements media.Session over the platform's event bridge.
type Session struct {
	url             string
	token           string
	roomName        string
	participantName string

	mu     sync.Mutex
	conn   *websocket.Conn
	events chan media.Event
	closed bool
	logger zerolog.Logger
}

// New builds a bridge session from the orchestration backend's join grant.
func New(grant models.JoinGrant, roomName, participantName string) media.Session {
	return &Session{
		url:             grant.URL,
		token:           grant.Token,
		roomName:        roomName,
		participantName: participantName,
		logger: log.With().
			Str("component", "media.bridge").
			Str("room", roomName).
			Logger(),
	}
}

// Connect dials the bridge and starts the read loop. The join token is
// presented as a bearer credential; the platform scopes the feed to the
// granted room.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return nil
	}
	if s.closed {
		return fmt.Errorf("session already closed")
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, s.url, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial event bridge: %w (status %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("dial event bridge: %w", err)
	}

	s.conn = conn
	s.events = make(chan media.Event, 64)
	s.logger.Info().Str("url", s.url).Msg("event bridge connected")

	go s.readLoop()
	return nil
}

// Events returns the session event channel. Closed when the read loop ends.
func (s *Session) Events() <-chan media.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events
}

// Close tears the connection down. Idempotent and safe on an already
// disconnected session.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *Session) readLoop() {
	defer close(s.events)

	s.events <- media.Event{Kind: media.EventConnected}

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			wasClosed := s.closed
			s.mu.Unlock()

			if wasClosed || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.events <- media.Event{Kind: media.EventDisconnected}
			} else {
				s.logger.Error().Err(err).Msg("event bridge read failed")
				s.events <- media.Event{Kind: media.EventError, Message: err.Error()}
			}
			return
		}

		ev, ok := s.decode(data)
		if !ok {
			continue
		}
		s.events <- ev
	}
}

func (s *Session) decode(data []byte) (media.Event, bool) {
	var wire wireEvent
	if err := json.Unmarshal(data, &wire); err != nil {
		s.logger.Warn().Err(err).Msg("dropping undecodable bridge message")
		return media.Event{}, false
	}

	var participant media.Participant
	if wire.Participant != nil {
		participant = media.ParticipantInfo{
			ID:    wire.Participant.Identity,
			Name:  wire.Participant.Name,
			Local: wire.Participant.IsLocal,
		}
	}

	switch wire.Type {
	case "transcription":
		return media.Event{
			Kind:        media.EventTranscription,
			Segments:    wire.Segments,
			Participant: participant,
		}, true
	case "speaking_changed":
		return media.Event{
			Kind:        media.EventSpeakingChanged,
			Participant: participant,
			Speaking:    wire.Speaking,
		}, true
	case "error":
		return media.Event{Kind: media.EventError, Message: wire.Message}, true
	default:
		s.logger.Debug().Str("type", wire.Type).Msg("ignoring bridge message type")
		return media.Event{}, false
	}
}
