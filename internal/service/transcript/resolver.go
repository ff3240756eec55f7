package transcript

import "callwatch/internal/media"

// UnknownSpeaker is the terminal fallback when a segment carries no usable
// participant reference.
const UnknownSpeaker = "Unknown"

// ResolveSpeaker maps a participant reference to a display name at the moment
// an event is received: display name, then identity, then UnknownSpeaker.
// The result is stored denormalized on the Record, so a participant renaming
// mid-call does not rewrite lines already ingested.
func ResolveSpeaker(p media.Participant) string {
	if p == nil {
		return UnknownSpeaker
	}
	if name := p.DisplayName(); name != "" {
		return name
	}
	if id := p.Identity(); id != "" {
		return id
	}
	return UnknownSpeaker
}
