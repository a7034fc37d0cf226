package service

import (
	"errors"
	"time"

	"contract-collab-service/internal/domain"
	"contract-collab-service/internal/repository"
	"contract-collab-service/internal/security"
)

var (
	// ErrInvalidToken covers expired, unknown and mismatched tokens alike so
	// a caller probing the portal cannot tell which case it hit.
	ErrInvalidToken = errors.New("invalid collab token")
	ErrIssuance     = errors.New("token issuance refused")
)

const defaultTokenTTL = 24 * time.Hour

// TokenIssuer mints and redeems guest admission credentials. Tokens are
// immutable once issued; the only ways a token stops working are natural
// expiry and the session itself ending.
type TokenIssuer struct {
	tokens   repository.TokenRepository
	sessions repository.SessionRepository
	pepper   string
	ttl      time.Duration
	now      func() time.Time
}

func NewTokenIssuer(tokens repository.TokenRepository, sessions repository.SessionRepository, pepper string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenIssuer{tokens: tokens, sessions: sessions, pepper: pepper, ttl: ttl, now: time.Now}
}

// Issue mints a token admitting email to sessionID and returns the cleartext
// exactly once; only the digest is persisted.
func (i *TokenIssuer) Issue(sessionID, email, name string) (token string, expiresAt time.Time, err error) {
	session, err := i.sessions.FindByID(sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return "", time.Time{}, ErrIssuance
		}
		return "", time.Time{}, err
	}
	if !session.IsActive() {
		return "", time.Time{}, ErrIssuance
	}
	token, err = security.NewCollabToken()
	if err != nil {
		return "", time.Time{}, err
	}
	expiresAt = i.now().UTC().Add(i.ttl)
	if err := i.tokens.Create(&domain.ExternalAccessToken{
		TokenHash:  security.HashCollabToken(token, i.pepper),
		TokenType:  domain.TokenTypeCollabSession,
		SessionRef: sessionID,
		PartyEmail: email,
		PartyName:  name,
		ExpiresAt:  expiresAt,
	}); err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Redeem resolves a presented token to its session. It re-checks that the
// session is still active and that the guest is still an external member, so
// ending a session (or removing the guest) stops redemption even for
// unexpired tokens.
func (i *TokenIssuer) Redeem(token string) (*domain.CollabSession, *domain.ExternalAccessToken, error) {
	hash := security.HashCollabToken(token, i.pepper)
	rec, err := i.tokens.FindValidByHash(hash, i.now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return nil, nil, ErrInvalidToken
		}
		return nil, nil, err
	}
	session, err := i.sessions.FindByID(rec.SessionRef)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, nil, ErrInvalidToken
		}
		return nil, nil, err
	}
	if !session.IsActive() {
		return nil, nil, ErrInvalidToken
	}
	if !session.ExternalParticipants.Has(rec.PartyEmail) {
		return nil, nil, ErrInvalidToken
	}
	return session, rec, nil
}
