// Package ingest normalizes media session events into segment store updates
// and speaking status. It is the only writer of a session's transcript state.
package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"callwatch/internal/events"
	"callwatch/internal/media"
	"callwatch/internal/models"
	"callwatch/internal/observability/metrics"
	"callwatch/internal/service/transcript"
)

// Hooks are invoked by the adapter when the session ends. Disconnected fires
// on a clean end, Fatal on a session error; at most one of the two fires, at
// most once.
type Hooks struct {
	Disconnected func()
	Fatal        func(message string)
}

// Adapter consumes one media session's event stream. After Stop returns, no
// further store or roster mutation is accepted; late-arriving events from the
// torn-down session are dropped.
type Adapter struct {
	session   media.Session
	store     *transcript.Store
	roster    *Roster
	publisher *events.Publisher
	roomName  string
	hooks     Hooks
	metrics   *metrics.Metrics
	logger    zerolog.Logger

	mu       sync.Mutex
	stopped  bool
	notified bool
	done     chan struct{}
}

// New creates an adapter binding a connected session to its session-scoped
// store and roster.
func New(session media.Session, store *transcript.Store, roster *Roster, publisher *events.Publisher, roomName string, hooks Hooks) *Adapter {
	return &Adapter{
		session:   session,
		store:     store,
		roster:    roster,
		publisher: publisher,
		roomName:  roomName,
		hooks:     hooks,
		metrics:   metrics.DefaultMetrics,
		logger: log.With().
			Str("component", "ingest").
			Str("room", roomName).
			Logger(),
		done: make(chan struct{}),
	}
}

// Run consumes session events until the event channel closes or the adapter
// is stopped. It blocks; callers run it in a goroutine.
func (a *Adapter) Run(ctx context.Context) {
	defer close(a.done)

	for {
		select {
		case ev, ok := <-a.session.Events():
			if !ok {
				a.endSession("")
				return
			}
			a.handle(ctx, ev)
		case <-ctx.Done():
			return
		}
	}
}

// Stop marks the adapter as torn down. Idempotent; events delivered after
// Stop are discarded without touching the store.
func (a *Adapter) Stop() {
	a.mu.Lock()
	a.stopped = true
	a.mu.Unlock()
}

// Done is closed when Run has returned.
func (a *Adapter) Done() <-chan struct{} {
	return a.done
}

func (a *Adapter) isStopped() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopped
}

func (a *Adapter) handle(ctx context.Context, ev media.Event) {
	a.metrics.MediaEvents.WithLabelValues(ev.Kind.String()).Inc()

	if a.isStopped() {
		a.logger.Debug().Str("kind", ev.Kind.String()).Msg("dropping event after teardown")
		return
	}

	switch ev.Kind {
	case media.EventTranscription:
		a.ingestBatch(ctx, ev)
	case media.EventSpeakingChanged:
		a.updateSpeaking(ev)
	case media.EventError:
		a.logger.Error().Str("message", ev.Message).Msg("media session error")
		a.endSession(ev.Message)
	case media.EventDisconnected:
		a.endSession("")
	case media.EventConnected:
		a.logger.Info().Msg("media session connected")
	}
}

// ingestBatch resolves the speaker once per event, applies the whole batch
// as one upsert, and fans accepted revisions out to Kafka.
func (a *Adapter) ingestBatch(ctx context.Context, ev media.Event) {
	speaker := transcript.ResolveSpeaker(ev.Participant)

	accepted := a.store.Upsert(ev.Segments, speaker)
	a.metrics.RecordBatch(accepted, len(ev.Segments)-accepted)

	if a.publisher == nil {
		return
	}
	now := time.Now().UnixMilli()
	for _, seg := range ev.Segments {
		if seg.ID == "" {
			continue
		}
		eventType := "call.transcript.partial"
		if seg.Final {
			eventType = "call.transcript.final"
		}
		line := models.TranscriptLineEvent{
			EventType:         eventType,
			Room:              a.roomName,
			SegmentID:         seg.ID,
			Speaker:           speaker,
			Text:              seg.Text,
			Final:             seg.Final,
			FirstReceivedTime: seg.FirstReceivedTime,
			Timestamp:         now,
		}
		if err := a.publisher.PublishLine(ctx, line); err != nil {
			a.logger.Warn().Err(err).Str("segmentId", seg.ID).Msg("transcript fan-out failed")
		}
	}
}

func (a *Adapter) updateSpeaking(ev media.Event) {
	if ev.Participant == nil {
		a.logger.Warn().Msg("speaking event without participant, dropping")
		return
	}
	a.roster.Set(models.SpeakingStatus{
		ParticipantID: ev.Participant.Identity(),
		Name:          transcript.ResolveSpeaker(ev.Participant),
		IsLocal:       ev.Participant.IsLocal(),
		IsSpeaking:    ev.Speaking,
	})
}

// endSession fires the appropriate hook exactly once.
func (a *Adapter) endSession(errMessage string) {
	a.mu.Lock()
	if a.notified {
		a.mu.Unlock()
		return
	}
	a.notified = true
	a.stopped = true
	a.mu.Unlock()

	if errMessage != "" {
		if a.hooks.Fatal != nil {
			a.hooks.Fatal(errMessage)
		}
		return
	}
	if a.hooks.Disconnected != nil {
		a.hooks.Disconnected()
	}
}
