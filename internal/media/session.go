// Package media defines the boundary to the real-time media platform.
// The console never touches audio or video; it only consumes the event
// stream a connected session pushes.
package media

import (
	"context"

	"callwatch/internal/models"
)

// Participant is the capability the console requires from a participant
// reference. Resolution and local-participant labeling depend on no other
// fields.
type Participant interface {
	Identity() string
	DisplayName() string
	IsLocal() bool
}

// EventKind discriminates session events.
type EventKind int

const (
	// EventConnected - the session joined the room.
	EventConnected EventKind = iota
	// EventDisconnected - the session left the room or the connection ended.
	EventDisconnected
	// EventTranscription - a batch of transcription segments arrived.
	EventTranscription
	// EventSpeakingChanged - a participant's speaking activity flipped.
	EventSpeakingChanged
	// EventError - the session failed; the connection is no longer usable.
	EventError
)

// String returns the string representation of the kind.
func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "CONNECTED"
	case EventDisconnected:
		return "DISCONNECTED"
	case EventTranscription:
		return "TRANSCRIPTION"
	case EventSpeakingChanged:
		return "SPEAKING_CHANGED"
	case EventError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Event is one occurrence on a connected session. Fields beyond Kind are
// populated per kind: Segments and Participant for EventTranscription,
// Participant and Speaking for EventSpeakingChanged, Message for EventError.
type Event struct {
	Kind        EventKind
	Segments    []models.TranscriptionSegment
	Participant Participant
	Speaking    bool
	Message     string
}

// Session is one live connection to a call room, bounded by connect and
// disconnect. Events delivers session events in arrival order; it is closed
// when the session ends. Close is idempotent and safe to call on a session
// that already disconnected.
type Session interface {
	Connect(ctx context.Context) error
	Events() <-chan Event
	Close() error
}

// Factory builds a session for a room from the credentials the orchestration
// backend issued.
type Factory func(grant models.JoinGrant, roomName, participantName string) Session
