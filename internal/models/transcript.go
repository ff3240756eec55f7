// Package models defines the data structures shared across the console.
package models

// TranscriptionSegment is one unit of transcribed speech as delivered by the
// media session. A segment may arrive several times under the same ID while
// the speech-to-text engine revises its text; Final marks the last revision.
type TranscriptionSegment struct {
	ID                string `json:"id"`
	Text              string `json:"text"`
	Final             bool   `json:"final"`
	FirstReceivedTime int64  `json:"firstReceivedTime"`
	ParticipantID     string `json:"participantId,omitempty"`
}

// Room describes an active call room as reported by the orchestration backend.
type Room struct {
	Name            string `json:"name"`
	NumParticipants int    `json:"num_participants"`
	CreationTime    int64  `json:"creation_time"`
}

// JoinGrant is the orchestration backend's answer to a join-token request.
type JoinGrant struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

// SpeakingStatus reports whether a participant is currently speaking.
// It is ephemeral state, driven directly by the media session's activity
// signal and never persisted.
type SpeakingStatus struct {
	ParticipantID string `json:"participantId"`
	Name          string `json:"name"`
	IsLocal       bool   `json:"isLocal"`
	IsSpeaking    bool   `json:"isSpeaking"`
}

// TranscriptLineEvent is the fan-out payload published for each accepted
// segment revision.
type TranscriptLineEvent struct {
	EventType         string `json:"eventType"`
	Room              string `json:"room"`
	SegmentID         string `json:"segmentId"`
	Speaker           string `json:"speaker"`
	Text              string `json:"text"`
	Final             bool   `json:"final"`
	FirstReceivedTime int64  `json:"firstReceivedTime"`
	Timestamp         int64  `json:"timestamp"`
}
