package media

// ParticipantInfo is a plain value implementation of Participant, used by
// session implementations that decode participant references off the wire.
type ParticipantInfo struct {
	ID    string
	Name  string
	Local bool
}

// Identity returns the participant's stable identity string.
func (p ParticipantInfo) Identity() string { return p.ID }

// DisplayName returns the participant's display name, or "" when unset.
func (p ParticipantInfo) DisplayName() string { return p.Name }

// IsLocal reports whether this is the console's own participant.
func (p ParticipantInfo) IsLocal() bool { return p.Local }
