package domain

import "time"

type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionEnded  SessionStatus = "ended"
)

// CollabSession is the durable record of one collaborative editing session
// over a contract document. Membership lives on the row itself so every
// mutation is a single-row update.
type CollabSession struct {
	ID            string `gorm:"primaryKey;size:36" json:"id"`
	DocumentRef   string `gorm:"size:128;index;not null" json:"document_ref"`
	EnterpriseRef string `gorm:"size:128;index" json:"enterprise_ref"`
	// ActiveDocumentRef mirrors DocumentRef while the session is active and
	// is NULL once ended; the unique index on it enforces at most one
	// active session per document across processes.
	ActiveDocumentRef    *string       `gorm:"size:128;uniqueIndex" json:"-"`
	Status               SessionStatus `gorm:"size:16;index;not null" json:"status"`
	InternalParticipants StringSet     `gorm:"type:text" json:"internal_participants"`
	ExternalParticipants StringSet     `gorm:"type:text" json:"external_participants"`
	// Version guards single-row optimistic updates; membership and status
	// mutations must only apply against the version they loaded.
	Version   uint      `gorm:"not null;default:0" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *CollabSession) IsActive() bool { return s.Status == SessionActive }

// IsMember reports whether key identifies a current member, internal or
// external. External membership is keyed by participant key, not raw email.
func (s *CollabSession) IsMember(key string) bool {
	if s.InternalParticipants.Has(key) {
		return true
	}
	for _, email := range s.ExternalParticipants {
		if ExternalParticipantKey(email) == key {
			return true
		}
	}
	return false
}
