// Package transcript implements the live transcript aggregation core: the
// segment store, speaker resolution, and the ordering projection.
package transcript

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"callwatch/internal/models"
)

// Record is one store entry: the latest known state of a segment plus the
// speaker name resolved when the segment was first ingested.
type Record struct {
	Segment models.TranscriptionSegment
	Speaker string

	// seq is the store insertion order, assigned on first sight of an ID.
	// It breaks FirstReceivedTime ties so projection order is deterministic.
	seq uint64
}

// Store is the authoritative map from segment ID to Record for one
// monitoring session. A segment's FirstReceivedTime is write-once: the value
// carried by the first revision sticks, so a line never moves after later
// revisions. All other fields are last-write-wins per ID.
//
// Subscribers are notified exactly once per Upsert call, batch size
// notwithstanding.
type Store struct {
	mu      sync.RWMutex
	records map[string]Record
	nextSeq uint64
	subs    map[uint64]func()
	nextSub uint64
	logger  zerolog.Logger
}

// NewStore creates an empty segment store.
func NewStore() *Store {
	return &Store{
		records: make(map[string]Record),
		subs:    make(map[uint64]func()),
		logger:  log.With().Str("component", "transcript.store").Logger(),
	}
}

// Upsert applies a batch of segment revisions attributed to one speaker.
// Segments with an empty ID are logged and skipped, never propagated as an
// error. Returns the number of segments accepted. Subscribers are notified
// once, after the whole batch is applied, and only if at least one segment
// was accepted.
func (s *Store) Upsert(segments []models.TranscriptionSegment, speaker string) int {
	s.mu.Lock()
	accepted := 0
	for _, seg := range segments {
		if seg.ID == "" {
			s.logger.Warn().Str("speaker", speaker).Msg("dropping segment without id")
			continue
		}
		if prev, ok := s.records[seg.ID]; ok {
			seg.FirstReceivedTime = prev.Segment.FirstReceivedTime
			s.records[seg.ID] = Record{Segment: seg, Speaker: speaker, seq: prev.seq}
		} else {
			s.records[seg.ID] = Record{Segment: seg, Speaker: speaker, seq: s.nextSeq}
			s.nextSeq++
		}
		accepted++
	}
	var subs []func()
	if accepted > 0 {
		subs = make([]func(), 0, len(s.subs))
		for _, fn := range s.subs {
			subs = append(subs, fn)
		}
	}
	s.mu.Unlock()

	// Notify outside the lock so a subscriber may call Snapshot.
	for _, fn := range subs {
		fn()
	}
	return accepted
}

// Snapshot returns a copy of the current records, safe to iterate without
// observing concurrent mutation. Order is unspecified; callers wanting the
// display order go through Project.
func (s *Store) Snapshot() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	return out
}

// Len returns the number of distinct segments held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Subscribe registers fn to run after every accepting Upsert. The returned
// cancel func removes the subscription and is idempotent.
func (s *Store) Subscribe(fn func()) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}
