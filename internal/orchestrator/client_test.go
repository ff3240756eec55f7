package orchestrator

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestRooms_ReturnsList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/rooms" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"name":"inbound-123","num_participants":2,"creation_time":1700000000}]`))
	}))
	defer srv.Close()

	rooms, err := NewClient(srv.URL).Rooms(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rooms) != 1 {
		t.Fatalf("expected 1 room, got %d", len(rooms))
	}
	if rooms[0].Name != "inbound-123" || rooms[0].NumParticipants != 2 {
		t.Errorf("unexpected room %+v", rooms[0])
	}
}

func TestRooms_EmptyListIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	rooms, err := NewClient(srv.URL).Rooms(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rooms) != 0 {
		t.Errorf("expected empty list, got %v", rooms)
	}
}

func TestJoinToken_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("room_name"); got != "inbound-123" {
			t.Errorf("expected room_name 'inbound-123', got %q", got)
		}
		if got := r.URL.Query().Get("participant_name"); got != "Supervisor" {
			t.Errorf("expected participant_name 'Supervisor', got %q", got)
		}
		w.Write([]byte(`{"token":"tok","url":"wss://media.example"}`))
	}))
	defer srv.Close()

	grant, err := NewClient(srv.URL).JoinToken(context.Background(), "inbound-123", "Supervisor")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if grant.Token != "tok" || grant.URL != "wss://media.example" {
		t.Errorf("unexpected grant %+v", grant)
	}
}

func TestJoinToken_SurfacesDetailVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"room not found"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).JoinToken(context.Background(), "gone", "Supervisor")
	var joinErr *JoinError
	if !errors.As(err, &joinErr) {
		t.Fatalf("expected *JoinError, got %v", err)
	}
	if joinErr.Detail != "room not found" {
		t.Errorf("expected detail 'room not found', got %q", joinErr.Detail)
	}
	if joinErr.StatusCode != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", joinErr.StatusCode)
	}
}

func TestJoinToken_MalformedErrorBodyGetsFallbackDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`boom`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).JoinToken(context.Background(), "r", "p")
	var joinErr *JoinError
	if !errors.As(err, &joinErr) {
		t.Fatalf("expected *JoinError, got %v", err)
	}
	if joinErr.Detail == "" {
		t.Error("expected non-empty fallback detail")
	}
}

func TestPoller_KeepsPreviousListOnFailure(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`[{"name":"inbound-1","num_participants":1,"creation_time":1}]`))
	}))
	defer srv.Close()

	p := NewPoller(NewClient(srv.URL), time.Hour)
	p.Start(context.Background())
	defer p.Stop()

	waitFor(t, func() bool {
		rooms, _ := p.Latest()
		return len(rooms) == 1
	})

	fail.Store(true)
	p.RefreshNow()

	waitFor(t, func() bool {
		_, err := p.Latest()
		return err != nil
	})

	rooms, err := p.Latest()
	if err == nil {
		t.Error("expected last poll error to be recorded")
	}
	if len(rooms) != 1 || rooms[0].Name != "inbound-1" {
		t.Errorf("expected previous list retained, got %v", rooms)
	}
}

func TestPoller_StopIsIdempotent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	p := NewPoller(NewClient(srv.URL), time.Hour)
	p.Start(context.Background())
	p.Stop()
	p.Stop()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
