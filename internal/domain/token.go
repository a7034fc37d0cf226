package domain

import "time"

const TokenTypeCollabSession = "collab_session"

// ExternalAccessToken is the persisted form of a guest admission credential.
// Only the digest of the issued token is ever stored; rows are immutable
// once written and age out through ExpiresAt.
type ExternalAccessToken struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TokenHash  string    `gorm:"size:128;uniqueIndex;not null" json:"-"`
	TokenType  string    `gorm:"size:32;index;not null" json:"token_type"`
	SessionRef string    `gorm:"size:36;index;not null" json:"session_ref"`
	PartyEmail string    `gorm:"size:320;not null" json:"party_email"`
	PartyName  string    `gorm:"size:256" json:"party_name"`
	ExpiresAt  time.Time `gorm:"index;not null" json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}
