// Package mock provides a scripted media session for demos and tests.
// It simulates a two-party support call: progressive partial segments,
// exactly one final revision per segment, and speaking-activity flips
// around each utterance.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"callwatch/internal/media"
	"callwatch/internal/models"
)

// SimulatedUtterance is one scripted utterance: progressive partial texts
// followed by a final text, attributed to one speaker.
type SimulatedUtterance struct {
	Speaker  media.ParticipantInfo
	Partials []string
	Final    string
}

// DefaultScript is a sample support call between a customer and an agent.
var DefaultScript = []SimulatedUtterance{
	{
		Speaker:  media.ParticipantInfo{ID: "customer-1", Name: "Customer"},
		Partials: []string{"I want", "I want to", "I want to cancel"},
		Final:    "I want to cancel my subscription",
	},
	{
		Speaker:  media.ParticipantInfo{ID: "agent-1", Name: "Support Agent"},
		Partials: []string{"I'm sorry", "I'm sorry to hear that"},
		Final:    "I'm sorry to hear that, let me pull up your account",
	},
	{
		Speaker:  media.ParticipantInfo{ID: "customer-1", Name: "Customer"},
		Partials: []string{"I've been", "I've been waiting", "I've been waiting for"},
		Final:    "I've been waiting for over an hour",
	},
	{
		Speaker:  media.ParticipantInfo{ID: "agent-1", Name: "Support Agent"},
		Partials: []string{"Thank you"},
		Final:    "Thank you for your patience",
	},
}

// Session implements media.Session with a scripted call. Utterances replay
// on a fixed cadence until the session is closed; Interval controls the gap
// between revisions.
type Session struct {
	Script   []SimulatedUtterance
	Interval time.Duration
	Loop     bool

	mu     sync.Mutex
	events chan media.Event
	cancel context.CancelFunc
	closed bool
	logger zerolog.Logger
}

// NewSession creates a scripted session over DefaultScript.
func NewSession() *Session {
	return &Session{
		Script:   DefaultScript,
		Interval: 300 * time.Millisecond,
		Loop:     true,
	}
}

// Connect starts replaying the script. The Connected event is the first
// delivered. ctx bounds connection establishment only; the replay runs until
// Close.
func (s *Session) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.events != nil {
		return nil
	}
	s.logger = log.With().Str("component", "media.mock").Logger()
	s.events = make(chan media.Event, 64)

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.run(runCtx)

	s.logger.Info().Int("utterances", len(s.Script)).Msg("mock media session connected")
	return nil
}

// Events returns the session event channel. Closed when the session ends.
func (s *Session) Events() <-chan media.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events
}

// Close ends the replay and closes the event channel. Idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

func (s *Session) run(ctx context.Context) {
	defer func() {
		// Best-effort: the context is usually cancelled by now.
		select {
		case s.events <- media.Event{Kind: media.EventDisconnected}:
		default:
		}
		close(s.events)
	}()

	if !s.emit(ctx, media.Event{Kind: media.EventConnected}) {
		return
	}

	for {
		for _, utt := range s.Script {
			if !s.playUtterance(ctx, utt) {
				return
			}
		}
		if !s.Loop {
			return
		}
	}
}

// playUtterance emits the speaking flip, the partial revisions and the final
// revision for one utterance. Returns false when the session ended mid-way.
func (s *Session) playUtterance(ctx context.Context, utt SimulatedUtterance) bool {
	segmentId := uuid.NewString()
	firstReceived := time.Now().UnixMilli()

	if !s.emit(ctx, media.Event{
		Kind:        media.EventSpeakingChanged,
		Participant: utt.Speaker,
		Speaking:    true,
	}) {
		return false
	}

	revision := func(text string, final bool) media.Event {
		return media.Event{
			Kind: media.EventTranscription,
			Segments: []models.TranscriptionSegment{{
				ID:                segmentId,
				Text:              text,
				Final:             final,
				FirstReceivedTime: firstReceived,
				ParticipantID:     utt.Speaker.ID,
			}},
			Participant: utt.Speaker,
		}
	}

	for _, partial := range utt.Partials {
		if !s.sleep(ctx) || !s.emit(ctx, revision(partial, false)) {
			return false
		}
	}
	if !s.sleep(ctx) || !s.emit(ctx, revision(utt.Final, true)) {
		return false
	}

	return s.emit(ctx, media.Event{
		Kind:        media.EventSpeakingChanged,
		Participant: utt.Speaker,
		Speaking:    false,
	})
}

func (s *Session) sleep(ctx context.Context) bool {
	select {
	case <-time.After(s.Interval):
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Session) emit(ctx context.Context, ev media.Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
