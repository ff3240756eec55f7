package transcript

import (
	"testing"

	"callwatch/internal/models"
)

func seg(id, text string, final bool, t int64) models.TranscriptionSegment {
	return models.TranscriptionSegment{ID: id, Text: text, Final: final, FirstReceivedTime: t}
}

func TestStore_UpsertInsertsAndRevises(t *testing.T) {
	s := NewStore()

	if n := s.Upsert([]models.TranscriptionSegment{seg("s1", "hel", false, 10)}, "Alice"); n != 1 {
		t.Errorf("expected 1 accepted, got %d", n)
	}
	if n := s.Upsert([]models.TranscriptionSegment{seg("s1", "hello", true, 10)}, "Alice"); n != 1 {
		t.Errorf("expected 1 accepted, got %d", n)
	}

	if s.Len() != 1 {
		t.Fatalf("expected exactly one record, got %d", s.Len())
	}
	rec := s.Snapshot()[0]
	if rec.Segment.Text != "hello" {
		t.Errorf("expected revised text 'hello', got %q", rec.Segment.Text)
	}
	if !rec.Segment.Final {
		t.Error("expected segment to be final after revision")
	}
}

func TestStore_FirstReceivedTimeIsWriteOnce(t *testing.T) {
	s := NewStore()

	s.Upsert([]models.TranscriptionSegment{seg("s1", "a", false, 100)}, "Alice")
	// A revision carrying a different timestamp must not move the segment.
	s.Upsert([]models.TranscriptionSegment{seg("s1", "ab", true, 999)}, "Alice")

	rec := s.Snapshot()[0]
	if rec.Segment.FirstReceivedTime != 100 {
		t.Errorf("expected FirstReceivedTime 100 preserved, got %d", rec.Segment.FirstReceivedTime)
	}
}

func TestStore_RejectsSegmentWithoutID(t *testing.T) {
	s := NewStore()

	n := s.Upsert([]models.TranscriptionSegment{
		seg("", "noise", false, 1),
		seg("s1", "kept", false, 2),
	}, "Alice")

	if n != 1 {
		t.Errorf("expected 1 accepted, got %d", n)
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 record, got %d", s.Len())
	}
}

func TestStore_NotifiesOncePerBatch(t *testing.T) {
	s := NewStore()

	calls := 0
	cancel := s.Subscribe(func() { calls++ })
	defer cancel()

	s.Upsert([]models.TranscriptionSegment{
		seg("s1", "a", false, 1),
		seg("s2", "b", false, 2),
		seg("s3", "c", false, 3),
	}, "Alice")

	if calls != 1 {
		t.Errorf("expected exactly one notification for the batch, got %d", calls)
	}
}

func TestStore_NoNotificationForRejectedBatch(t *testing.T) {
	s := NewStore()

	calls := 0
	cancel := s.Subscribe(func() { calls++ })
	defer cancel()

	s.Upsert([]models.TranscriptionSegment{seg("", "noise", false, 1)}, "Alice")

	if calls != 0 {
		t.Errorf("expected no notification for a fully rejected batch, got %d", calls)
	}
}

func TestStore_UnsubscribeIsIdempotent(t *testing.T) {
	s := NewStore()

	calls := 0
	cancel := s.Subscribe(func() { calls++ })
	cancel()
	cancel()

	s.Upsert([]models.TranscriptionSegment{seg("s1", "a", false, 1)}, "Alice")

	if calls != 0 {
		t.Errorf("expected no calls after unsubscribe, got %d", calls)
	}
}

func TestStore_SnapshotIsolatedFromMutation(t *testing.T) {
	s := NewStore()
	s.Upsert([]models.TranscriptionSegment{seg("s1", "before", false, 1)}, "Alice")

	snap := s.Snapshot()
	s.Upsert([]models.TranscriptionSegment{seg("s1", "after", true, 1)}, "Alice")

	if snap[0].Segment.Text != "before" {
		t.Errorf("snapshot mutated by later upsert: got %q", snap[0].Segment.Text)
	}
}

func TestStore_SubscriberMayReadSnapshot(t *testing.T) {
	s := NewStore()

	var seen int
	cancel := s.Subscribe(func() { seen = len(s.Snapshot()) })
	defer cancel()

	s.Upsert([]models.TranscriptionSegment{seg("s1", "a", false, 1)}, "Alice")

	if seen != 1 {
		t.Errorf("expected subscriber to observe 1 record, got %d", seen)
	}
}
