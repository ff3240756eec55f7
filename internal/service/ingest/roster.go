package ingest

import (
	"sort"
	"sync"

	"callwatch/internal/models"
)

// Roster tracks per-participant speaking status for a session. It is a
// lossless pass-through of the media session's activity signal; no buffering
// or debouncing happens here.
type Roster struct {
	mu       sync.RWMutex
	entries  map[string]models.SpeakingStatus
	onChange func()
}

// NewRoster creates an empty roster.
func NewRoster() *Roster {
	return &Roster{entries: make(map[string]models.SpeakingStatus)}
}

// OnChange registers fn to run after every status update. One observer is
// enough here; the presentation layer fans out.
func (r *Roster) OnChange(fn func()) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

// Set records a participant's current speaking status.
func (r *Roster) Set(status models.SpeakingStatus) {
	if status.ParticipantID == "" {
		return
	}
	r.mu.Lock()
	r.entries[status.ParticipantID] = status
	fn := r.onChange
	r.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// List returns the roster ordered by participant identity.
func (r *Roster) List() []models.SpeakingStatus {
	r.mu.RLock()
	out := make([]models.SpeakingStatus, 0, len(r.entries))
	for _, st := range r.entries {
		out = append(out, st)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].ParticipantID < out[j].ParticipantID
	})
	return out
}
