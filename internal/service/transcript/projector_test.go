package transcript

import (
	"reflect"
	"testing"

	"callwatch/internal/models"
)

func TestProject_OrdersByFirstReceivedTime(t *testing.T) {
	s := NewStore()

	// Delivered A, B, C but timestamped 1, 3, 2.
	s.Upsert([]models.TranscriptionSegment{seg("A", "a", true, 1)}, "Alice")
	s.Upsert([]models.TranscriptionSegment{seg("B", "b", true, 3)}, "Bob")
	s.Upsert([]models.TranscriptionSegment{seg("C", "c", true, 2)}, "Alice")

	lines := Project(s.Snapshot())

	got := []string{lines[0].SegmentID, lines[1].SegmentID, lines[2].SegmentID}
	want := []string{"A", "C", "B"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected order %v, got %v", want, got)
	}
}

func TestProject_PositionStableAcrossRevisions(t *testing.T) {
	s := NewStore()

	s.Upsert([]models.TranscriptionSegment{seg("X", "he", false, 5)}, "Alice")
	s.Upsert([]models.TranscriptionSegment{seg("B", "later", false, 9)}, "Bob")

	posOf := func(id string) int {
		for i, l := range Project(s.Snapshot()) {
			if l.SegmentID == id {
				return i
			}
		}
		return -1
	}

	first := posOf("X")

	// Revise X twice with increasing finality and different text.
	s.Upsert([]models.TranscriptionSegment{seg("X", "hello", false, 5)}, "Alice")
	if posOf("X") != first {
		t.Errorf("position moved after interim revision: %d != %d", posOf("X"), first)
	}
	s.Upsert([]models.TranscriptionSegment{seg("X", "hello there", true, 5)}, "Alice")
	if posOf("X") != first {
		t.Errorf("position moved after final revision: %d != %d", posOf("X"), first)
	}
}

func TestProject_Idempotent(t *testing.T) {
	s := NewStore()
	s.Upsert([]models.TranscriptionSegment{
		seg("s1", "a", true, 2),
		seg("s2", "b", false, 1),
		seg("s3", "c", true, 2),
	}, "Alice")

	snap := s.Snapshot()
	first := Project(snap)
	second := Project(snap)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected identical projections, got %v then %v", first, second)
	}
}

func TestProject_TimestampTieBrokenByInsertionOrder(t *testing.T) {
	s := NewStore()

	// Same FirstReceivedTime; insertion order must decide, deterministically.
	s.Upsert([]models.TranscriptionSegment{seg("first", "a", true, 7)}, "Alice")
	s.Upsert([]models.TranscriptionSegment{seg("second", "b", true, 7)}, "Bob")

	for i := 0; i < 10; i++ {
		lines := Project(s.Snapshot())
		if lines[0].SegmentID != "first" || lines[1].SegmentID != "second" {
			t.Fatalf("run %d: expected [first second], got [%s %s]",
				i, lines[0].SegmentID, lines[1].SegmentID)
		}
	}
}

func TestProject_EmptyStore(t *testing.T) {
	lines := Project(NewStore().Snapshot())
	if len(lines) != 0 {
		t.Errorf("expected empty projection, got %d lines", len(lines))
	}
}

func TestProject_DoesNotMutateSnapshot(t *testing.T) {
	s := NewStore()
	s.Upsert([]models.TranscriptionSegment{
		seg("s1", "a", true, 2),
		seg("s2", "b", true, 1),
	}, "Alice")

	snap := s.Snapshot()
	before := make([]Record, len(snap))
	copy(before, snap)

	Project(snap)

	if !reflect.DeepEqual(snap, before) {
		t.Error("Project reordered the caller's snapshot")
	}
}
