package domain

import (
	"strings"
	"time"
)

// LivenessWindow is how recently a participant must have reported presence
// to count as online.
const LivenessWindow = 5 * time.Minute

// PresenceRecord is the ephemeral cursor/liveness state for one participant
// in one session. It is best-effort and may be lost on restart.
type PresenceRecord struct {
	ParticipantKey string    `json:"participant_key"`
	DisplayName    string    `json:"display_name"`
	Color          string    `json:"color"`
	Anchor         int64     `json:"anchor"`
	Head           int64     `json:"head"`
	LastActive     time.Time `json:"last_active"`
}

// Online derives liveness from the last report timestamp. It is a pure
// function of its inputs; the result is never persisted.
func (p PresenceRecord) Online(now time.Time, window time.Duration) bool {
	if p.LastActive.IsZero() {
		return false
	}
	return now.Sub(p.LastActive) < window
}

// ExternalParticipantKey derives the synthetic presence key for a guest
// admitted by email.
func ExternalParticipantKey(email string) string {
	return "ext:" + strings.ToLower(strings.TrimSpace(email))
}
