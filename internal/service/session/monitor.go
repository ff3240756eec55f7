// Package session owns the monitoring session lifecycle: joining a call as a
// listening participant, wiring the ingest adapter to a fresh transcript
// store, and tearing everything down on leave, disconnect or error.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"callwatch/internal/events"
	"callwatch/internal/media"
	"callwatch/internal/models"
	"callwatch/internal/observability/logging"
	"callwatch/internal/observability/metrics"
	"callwatch/internal/orchestrator"
	"callwatch/internal/service/ingest"
	"callwatch/internal/service/transcript"
)

// User-actionable errors: surfaced as a blocking message, no state change.
var (
	ErrMissingRoom        = errors.New("no room selected")
	ErrMissingParticipant = errors.New("no participant name provided")
	ErrSessionActive      = errors.New("a monitoring session is already active")
)

// TokenClient is the part of the orchestrator client Join needs.
type TokenClient interface {
	JoinToken(ctx context.Context, roomName, participantName string) (models.JoinGrant, error)
}

var _ TokenClient = (*orchestrator.Client)(nil)

// State describes the monitor for the presentation layer. LastError carries
// the reason of the most recent session-fatal teardown; it is cleared by the
// next successful Join.
type State struct {
	Connected       bool   `json:"connected"`
	SessionID       string `json:"sessionId,omitempty"`
	RoomName        string `json:"roomName,omitempty"`
	ParticipantName string `json:"participantName,omitempty"`
	LastError       string `json:"lastError,omitempty"`
}

// active bundles everything scoped to one live session. The store is created
// fresh on join and discarded whole on teardown; the transcript is cumulative
// for the session and never survives it.
type active struct {
	id        string
	roomName  string
	name      string
	session   media.Session
	store     *transcript.Store
	roster    *ingest.Roster
	adapter   *ingest.Adapter
	cancelRun context.CancelFunc
	unsub     func()
	startedAt time.Time
}

// Monitor owns at most one live monitoring session.
type Monitor struct {
	tokens    TokenClient
	factory   media.Factory
	publisher *events.Publisher
	metrics   *metrics.Metrics
	logger    zerolog.Logger

	mu        sync.Mutex
	current   *active
	lastError string
	onChange  func()
}

// NewMonitor creates a monitor that joins rooms through tokens and builds
// media sessions with factory.
func NewMonitor(tokens TokenClient, factory media.Factory, publisher *events.Publisher) *Monitor {
	return &Monitor{
		tokens:    tokens,
		factory:   factory,
		publisher: publisher,
		metrics:   metrics.DefaultMetrics,
		logger:    logging.WithComponent("session.monitor"),
	}
}

// OnChange registers fn to run whenever the visible session state changes:
// transcript updates, speaking flips, connect and teardown.
func (m *Monitor) OnChange(fn func()) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

func (m *Monitor) notify() {
	m.mu.Lock()
	fn := m.onChange
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Join acquires a token for the room, connects a media session and starts
// ingestion. Missing input is rejected before any network call.
func (m *Monitor) Join(ctx context.Context, roomName, participantName string) error {
	if roomName == "" {
		return ErrMissingRoom
	}
	if participantName == "" {
		return ErrMissingParticipant
	}

	m.mu.Lock()
	if m.current != nil {
		m.mu.Unlock()
		return ErrSessionActive
	}
	m.mu.Unlock()

	grant, err := m.tokens.JoinToken(ctx, roomName, participantName)
	if err != nil {
		return err
	}

	mediaSession := m.factory(grant, roomName, participantName)
	if err := mediaSession.Connect(ctx); err != nil {
		return err
	}

	id := uuid.NewString()
	store := transcript.NewStore()
	roster := ingest.NewRoster()

	adapter := ingest.New(mediaSession, store, roster, m.publisher, roomName, ingest.Hooks{
		Disconnected: func() { m.endSession(id, "") },
		Fatal:        func(msg string) { m.endSession(id, msg) },
	})

	runCtx, cancel := context.WithCancel(context.Background())
	unsub := store.Subscribe(m.notify)
	roster.OnChange(m.notify)

	sess := &active{
		id:        id,
		roomName:  roomName,
		name:      participantName,
		session:   mediaSession,
		store:     store,
		roster:    roster,
		adapter:   adapter,
		cancelRun: cancel,
		unsub:     unsub,
		startedAt: time.Now(),
	}

	m.mu.Lock()
	if m.current != nil {
		// Lost the race to a concurrent Join.
		m.mu.Unlock()
		cancel()
		unsub()
		mediaSession.Close()
		return ErrSessionActive
	}
	m.current = sess
	m.lastError = ""
	m.mu.Unlock()

	go adapter.Run(runCtx)

	m.metrics.RecordSessionStart()
	sessLog := logging.WithSession(id, roomName, participantName)
	sessLog.Info().Msg("monitoring session joined")
	m.notify()
	return nil
}

// Leave tears the current session down. Idempotent; no-op when nothing is
// connected.
func (m *Monitor) Leave() {
	m.mu.Lock()
	sess := m.current
	m.current = nil
	m.mu.Unlock()

	if sess == nil {
		return
	}
	m.teardown(sess, "")
}

// endSession handles session-fatal errors and remote disconnects reported by
// the ingest adapter. Stale callbacks from an already-replaced session are
// ignored.
func (m *Monitor) endSession(id, reason string) {
	m.mu.Lock()
	sess := m.current
	if sess == nil || sess.id != id {
		m.mu.Unlock()
		return
	}
	m.current = nil
	m.lastError = reason
	m.mu.Unlock()

	m.teardown(sess, reason)
}

// teardown releases a session's resources in order: ingest stop, media close,
// then the store reference is dropped with the session struct itself.
func (m *Monitor) teardown(sess *active, reason string) {
	sess.adapter.Stop()
	sess.unsub()
	if err := sess.session.Close(); err != nil {
		m.logger.Warn().Err(err).Msg("media session close failed")
	}
	sess.cancelRun()

	m.metrics.RecordSessionEnd(reason, time.Since(sess.startedAt).Seconds())
	sessLog := logging.WithSession(sess.id, sess.roomName, sess.name)
	sessLog.Info().
		Str("reason", reason).
		Msg("monitoring session ended")
	m.notify()
}

// State reports the current session state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return State{LastError: m.lastError}
	}
	return State{
		Connected:       true,
		SessionID:       m.current.id,
		RoomName:        m.current.roomName,
		ParticipantName: m.current.name,
	}
}

// Transcript projects the current session's store into display order. An
// idle monitor yields an empty transcript.
func (m *Monitor) Transcript() []transcript.Line {
	m.mu.Lock()
	sess := m.current
	m.mu.Unlock()

	if sess == nil {
		return []transcript.Line{}
	}
	lines := transcript.Project(sess.store.Snapshot())
	m.metrics.RecordProjection(len(lines))
	return lines
}

// Participants lists the current session's speaking roster.
func (m *Monitor) Participants() []models.SpeakingStatus {
	m.mu.Lock()
	sess := m.current
	m.mu.Unlock()

	if sess == nil {
		return []models.SpeakingStatus{}
	}
	return sess.roster.List()
}
