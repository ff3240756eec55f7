// Package orchestrator talks to the call-orchestration backend: the room
// listing endpoint and the join-token endpoint.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"callwatch/internal/models"
	"callwatch/internal/observability/metrics"
)

// JoinError carries the backend's user-facing failure message. The detail is
// surfaced to the user verbatim.
type JoinError struct {
	StatusCode int
	Detail     string
}

func (e *JoinError) Error() string {
	return fmt.Sprintf("join token request failed (%d): %s", e.StatusCode, e.Detail)
}

// Client is an HTTP client for the orchestration backend.
type Client struct {
	baseURL string
	http    *http.Client
	metrics *metrics.Metrics
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		metrics: metrics.DefaultMetrics,
	}
}

// Rooms fetches the current list of active call rooms. An empty list is a
// valid answer, not an error.
func (c *Client) Rooms(ctx context.Context) ([]models.Room, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/rooms", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rooms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch rooms: unexpected status %d", resp.StatusCode)
	}

	var rooms []models.Room
	if err := json.NewDecoder(resp.Body).Decode(&rooms); err != nil {
		return nil, fmt.Errorf("decode rooms: %w", err)
	}
	return rooms, nil
}

// JoinToken requests a join token for roomName on behalf of participantName.
// Non-2xx responses are decoded for their detail message and returned as a
// *JoinError.
func (c *Client) JoinToken(ctx context.Context, roomName, participantName string) (models.JoinGrant, error) {
	grant, err := c.joinToken(ctx, roomName, participantName)
	c.metrics.RecordTokenRequest(err)
	return grant, err
}

func (c *Client) joinToken(ctx context.Context, roomName, participantName string) (models.JoinGrant, error) {
	q := url.Values{}
	q.Set("room_name", roomName)
	q.Set("participant_name", participantName)

	endpoint := c.baseURL + "/api/join-token?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.JoinGrant{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return models.JoinGrant{}, fmt.Errorf("request join token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var payload struct {
			Detail string `json:"detail"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || payload.Detail == "" {
			payload.Detail = "failed to get token"
		}
		return models.JoinGrant{}, &JoinError{StatusCode: resp.StatusCode, Detail: payload.Detail}
	}

	var grant models.JoinGrant
	if err := json.NewDecoder(resp.Body).Decode(&grant); err != nil {
		return models.JoinGrant{}, fmt.Errorf("decode join grant: %w", err)
	}
	return grant, nil
}
