package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"callwatch/internal/models"
	"callwatch/internal/observability/metrics"
)

// Poller refreshes the active room list on a fixed interval. A failed poll
// keeps the previous list; the next poll may self-heal.
type Poller struct {
	client   *Client
	interval time.Duration
	logger   zerolog.Logger
	metrics  *metrics.Metrics

	mu       sync.RWMutex
	rooms    []models.Room
	lastErr  error
	lastPoll time.Time

	refresh chan struct{}
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	started bool
}

// NewPoller creates a poller around client. Intervals below one second are
// clamped to the default of five seconds.
func NewPoller(client *Client, interval time.Duration) *Poller {
	if interval < time.Second {
		interval = 5 * time.Second
	}
	return &Poller{
		client:   client,
		interval: interval,
		logger:   log.With().Str("component", "orchestrator.poller").Logger(),
		metrics:  metrics.DefaultMetrics,
		rooms:    []models.Room{},
		refresh:  make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins polling in a goroutine. The first poll happens immediately.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	p.started = true
	p.mu.Unlock()

	go func() {
		defer close(p.done)

		p.poll(ctx)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				p.poll(ctx)
			case <-p.refresh:
				p.poll(ctx)
			case <-p.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (p *Poller) poll(ctx context.Context) {
	pollCtx, cancel := context.WithTimeout(ctx, p.interval)
	defer cancel()

	rooms, err := p.client.Rooms(pollCtx)
	p.metrics.RecordRoomPoll(err)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastPoll = time.Now()
	p.lastErr = err
	if err != nil {
		p.logger.Warn().Err(err).Msg("room list poll failed, keeping previous list")
		return
	}
	if rooms == nil {
		rooms = []models.Room{}
	}
	p.rooms = rooms
}

// Latest returns the most recently fetched room list and the error of the
// last poll, if any. The list is never nil.
func (p *Poller) Latest() ([]models.Room, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]models.Room, len(p.rooms))
	copy(out, p.rooms)
	return out, p.lastErr
}

// RefreshNow requests an immediate poll without waiting for the ticker.
// Non-blocking; a refresh already in flight absorbs the request.
func (p *Poller) RefreshNow() {
	select {
	case p.refresh <- struct{}{}:
	default:
	}
}

// Stop ends polling. Idempotent; returns once the poll loop has exited.
func (p *Poller) Stop() {
	p.once.Do(func() { close(p.stop) })
	p.mu.RLock()
	started := p.started
	p.mu.RUnlock()
	if started {
		<-p.done
	}
}
