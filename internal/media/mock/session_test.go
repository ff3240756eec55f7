package mock

import (
	"context"
	"testing"
	"time"

	"callwatch/internal/media"
)

func collect(t *testing.T, s *Session) []media.Event {
	t.Helper()
	var events []media.Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("session did not finish in time")
		}
	}
}

func TestSession_ReplaysScriptOnce(t *testing.T) {
	s := NewSession()
	s.Interval = time.Millisecond
	s.Loop = false

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	events := collect(t, s)

	if events[0].Kind != media.EventConnected {
		t.Errorf("expected first event CONNECTED, got %v", events[0].Kind)
	}
	if events[len(events)-1].Kind != media.EventDisconnected {
		t.Errorf("expected last event DISCONNECTED, got %v", events[len(events)-1].Kind)
	}

	finalsPerSegment := map[string]int{}
	for _, ev := range events {
		if ev.Kind != media.EventTranscription {
			continue
		}
		for _, seg := range ev.Segments {
			if seg.ID == "" {
				t.Error("expected non-empty segment id")
			}
			if seg.Final {
				finalsPerSegment[seg.ID]++
			}
		}
	}
	if len(finalsPerSegment) != len(DefaultScript) {
		t.Errorf("expected %d finalized segments, got %d", len(DefaultScript), len(finalsPerSegment))
	}
	for id, n := range finalsPerSegment {
		if n != 1 {
			t.Errorf("segment %s finalized %d times, expected exactly once", id, n)
		}
	}
}

func TestSession_RevisionsShareFirstReceivedTime(t *testing.T) {
	s := NewSession()
	s.Interval = time.Millisecond
	s.Loop = false
	s.Script = DefaultScript[:1]

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	times := map[string]map[int64]bool{}
	for _, ev := range collect(t, s) {
		if ev.Kind != media.EventTranscription {
			continue
		}
		for _, seg := range ev.Segments {
			if times[seg.ID] == nil {
				times[seg.ID] = map[int64]bool{}
			}
			times[seg.ID][seg.FirstReceivedTime] = true
		}
	}
	for id, seen := range times {
		if len(seen) != 1 {
			t.Errorf("segment %s carried %d distinct FirstReceivedTime values", id, len(seen))
		}
	}
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	s := NewSession()
	s.Interval = time.Millisecond

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("first close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
	collect(t, s) // drains until the channel closes
}

func TestSession_SpeakingFlipsAroundUtterance(t *testing.T) {
	s := NewSession()
	s.Interval = time.Millisecond
	s.Loop = false
	s.Script = DefaultScript[:1]

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	var flips []bool
	for _, ev := range collect(t, s) {
		if ev.Kind == media.EventSpeakingChanged {
			flips = append(flips, ev.Speaking)
		}
	}
	if len(flips) != 2 || !flips[0] || flips[1] {
		t.Errorf("expected speaking [true false], got %v", flips)
	}
}
