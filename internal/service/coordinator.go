package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"contract-collab-service/internal/domain"
	"contract-collab-service/internal/observability"
	"contract-collab-service/internal/repository"
)

// InviteTarget names either an internal user (UserID set) or an external
// guest (Email, optionally Name, set).
type InviteTarget struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
}

func (t InviteTarget) external() bool { return t.UserID == "" && t.Email != "" }

type InviteResult struct {
	Session   *domain.CollabSession `json:"session"`
	PortalURL string                `json:"portal_url,omitempty"`
	ExpiresAt *time.Time            `json:"expires_at,omitempty"`
}

type ParticipantDetail struct {
	ParticipantKey string     `json:"participant_key"`
	DisplayName    string     `json:"display_name"`
	Kind           string     `json:"kind"`
	Color          string     `json:"color,omitempty"`
	Anchor         int64      `json:"anchor"`
	Head           int64      `json:"head"`
	LastActive     *time.Time `json:"last_active,omitempty"`
	Online         bool       `json:"is_online"`
}

type SessionDetail struct {
	Session          *domain.CollabSession `json:"session"`
	Participants     []ParticipantDetail   `json:"participants"`
	ParticipantCount int                   `json:"participant_count"`
	OnlineCount      int                   `json:"online_count"`
}

var ErrInvalidInviteTarget = errors.New("invite target must name a user id or an email")

// SessionCoordinator is the orchestration surface callers use. Authorization
// of actors is the identity subsystem's decision; the actor is threaded
// through only for auditing.
type SessionCoordinator struct {
	sessions       repository.SessionRepository
	issuer         *TokenIssuer
	presence       *PresenceTracker
	identity       IdentityResolver
	portalBaseURL  string
	livenessWindow time.Duration
	now            func() time.Time
}

func NewSessionCoordinator(
	sessions repository.SessionRepository,
	issuer *TokenIssuer,
	presence *PresenceTracker,
	identity IdentityResolver,
	portalBaseURL string,
) *SessionCoordinator {
	return &SessionCoordinator{
		sessions:       sessions,
		issuer:         issuer,
		presence:       presence,
		identity:       identity,
		portalBaseURL:  strings.TrimRight(portalBaseURL, "/"),
		livenessWindow: domain.LivenessWindow,
		now:            time.Now,
	}
}

// StartOrJoin returns the document's active session, adding userID as an
// internal member, or creates one with userID as initiator. The storage
// uniqueness constraint makes the find-or-create safe against concurrent
// creators in other processes: a lost create race degrades into a join.
func (c *SessionCoordinator) StartOrJoin(ctx context.Context, documentRef, enterpriseRef, userID string) (*domain.CollabSession, bool, error) {
	if existing, err := c.sessions.FindActiveByDocument(documentRef); err == nil {
		joined, err := c.sessions.AddInternal(existing.ID, userID)
		if err != nil {
			if errors.Is(err, repository.ErrSessionEnded) {
				// ended between lookup and join; fall through to create
				return c.create(ctx, documentRef, enterpriseRef, userID)
			}
			return nil, false, err
		}
		observability.RecordSessionStart(ctx, "joined")
		return joined, false, nil
	} else if !errors.Is(err, repository.ErrSessionNotFound) {
		return nil, false, err
	}
	return c.create(ctx, documentRef, enterpriseRef, userID)
}

func (c *SessionCoordinator) create(ctx context.Context, documentRef, enterpriseRef, userID string) (*domain.CollabSession, bool, error) {
	s := &domain.CollabSession{
		DocumentRef:          documentRef,
		EnterpriseRef:        enterpriseRef,
		Status:               domain.SessionActive,
		InternalParticipants: domain.StringSet{userID},
		ExternalParticipants: domain.StringSet{},
	}
	err := c.sessions.Create(s)
	if err == nil {
		observability.RecordSessionStart(ctx, "created")
		return s, true, nil
	}
	if !errors.Is(err, repository.ErrDuplicateActiveSession) {
		return nil, false, err
	}
	// another caller created it first; join theirs
	existing, ferr := c.sessions.FindActiveByDocument(documentRef)
	if ferr != nil {
		return nil, false, err
	}
	joined, jerr := c.sessions.AddInternal(existing.ID, userID)
	if jerr != nil {
		return nil, false, jerr
	}
	observability.RecordSessionStart(ctx, "joined")
	return joined, false, nil
}

// Invite grants membership. External targets additionally get a single
// time-boxed portal credential; the returned URL is the only place the
// cleartext token ever appears.
func (c *SessionCoordinator) Invite(ctx context.Context, sessionID, actor string, target InviteTarget) (*InviteResult, error) {
	switch {
	case target.UserID != "":
		s, err := c.sessions.AddInternal(sessionID, target.UserID)
		if err != nil {
			observability.RecordInvite(ctx, "internal", "error")
			return nil, err
		}
		observability.AuditCtx(ctx, "collab.invite.internal", "session_id", sessionID, "actor", actor, "target", target.UserID)
		observability.RecordInvite(ctx, "internal", "success")
		return &InviteResult{Session: s}, nil
	case target.external():
		token, expiresAt, err := c.issuer.Issue(sessionID, target.Email, target.Name)
		if err != nil {
			observability.RecordInvite(ctx, "external", "error")
			return nil, err
		}
		s, err := c.sessions.AddExternal(sessionID, target.Email)
		if err != nil {
			observability.RecordInvite(ctx, "external", "error")
			return nil, err
		}
		observability.AuditCtx(ctx, "collab.invite.external", "session_id", sessionID, "actor", actor, "target", target.Email)
		observability.RecordInvite(ctx, "external", "success")
		return &InviteResult{
			Session:   s,
			PortalURL: fmt.Sprintf("%s/portal/collab/%s", c.portalBaseURL, token),
			ExpiresAt: &expiresAt,
		}, nil
	default:
		return nil, ErrInvalidInviteTarget
	}
}

// Remove takes a participant off the membership list. It is not a security
// control for external guests: an already-issued token record stays valid
// until expiry, but redemption re-checks membership so a removed guest can
// no longer enter. Ending the session remains the hard revocation path.
func (c *SessionCoordinator) Remove(ctx context.Context, sessionID, actor string, target InviteTarget) (*domain.CollabSession, error) {
	switch {
	case target.UserID != "":
		s, err := c.sessions.RemoveInternal(sessionID, target.UserID)
		if err != nil {
			return nil, err
		}
		observability.AuditCtx(ctx, "collab.remove.internal", "session_id", sessionID, "actor", actor, "target", target.UserID)
		return s, nil
	case target.external():
		s, err := c.sessions.RemoveExternal(sessionID, target.Email)
		if err != nil {
			return nil, err
		}
		observability.AuditCtx(ctx, "collab.remove.external", "session_id", sessionID, "actor", actor, "target", target.Email)
		return s, nil
	default:
		return nil, ErrInvalidInviteTarget
	}
}

// End transitions the session to its terminal state and drops its presence.
// Ending twice succeeds and returns the terminal record.
func (c *SessionCoordinator) End(ctx context.Context, sessionID, actor string) (*domain.CollabSession, error) {
	s, err := c.sessions.End(sessionID)
	if err != nil {
		return nil, err
	}
	if perr := c.presence.Prune(ctx, sessionID); perr != nil {
		// presence is best-effort; stale records age out on their own
		observability.AuditCtx(ctx, "collab.presence.prune_failed", "session_id", sessionID, "error", perr.Error())
	}
	observability.AuditCtx(ctx, "collab.session.end", "session_id", sessionID, "actor", actor)
	return s, nil
}

// ReportPresence relays a heartbeat to the tracker. The tracker accepts
// reports regardless of session state; Describe applies the gates.
func (c *SessionCoordinator) ReportPresence(ctx context.Context, sessionID string, rep PresenceReport) error {
	err := c.presence.Report(ctx, sessionID, rep)
	if err != nil {
		observability.RecordPresenceReport(ctx, "error")
		return err
	}
	observability.RecordPresenceReport(ctx, "success")
	return nil
}

// Describe assembles the durable membership with live presence. Membership
// gates presence: reports from removed participants are never surfaced, and
// nobody is online once the session has ended.
func (c *SessionCoordinator) Describe(ctx context.Context, sessionID string) (*SessionDetail, error) {
	s, err := c.sessions.FindByID(sessionID)
	if err != nil {
		return nil, err
	}
	records, err := c.presence.List(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]domain.PresenceRecord, len(records))
	for _, rec := range records {
		byKey[rec.ParticipantKey] = rec
	}

	names := map[string]string{}
	if c.identity != nil && len(s.InternalParticipants) > 0 {
		resolved, rerr := c.identity.Resolve(ctx, []string(s.InternalParticipants))
		if rerr != nil {
			return nil, fmt.Errorf("resolve participant names: %w", rerr)
		}
		names = resolved
	}

	now := c.now().UTC()
	detail := &SessionDetail{Session: s}
	for _, userID := range s.InternalParticipants {
		detail.Participants = append(detail.Participants, c.participantDetail(s, userID, "internal", names[userID], byKey, now))
	}
	for _, email := range s.ExternalParticipants {
		key := domain.ExternalParticipantKey(email)
		display := email
		if rec, ok := byKey[key]; ok && rec.DisplayName != "" {
			display = rec.DisplayName
		}
		detail.Participants = append(detail.Participants, c.participantDetail(s, key, "external", display, byKey, now))
	}
	detail.ParticipantCount = len(detail.Participants)
	for _, p := range detail.Participants {
		if p.Online {
			detail.OnlineCount++
		}
	}
	return detail, nil
}

func (c *SessionCoordinator) participantDetail(s *domain.CollabSession, key, kind, displayName string, byKey map[string]domain.PresenceRecord, now time.Time) ParticipantDetail {
	if displayName == "" {
		displayName = key
	}
	p := ParticipantDetail{ParticipantKey: key, DisplayName: displayName, Kind: kind}
	if rec, ok := byKey[key]; ok {
		p.Color = rec.Color
		p.Anchor = rec.Anchor
		p.Head = rec.Head
		last := rec.LastActive
		p.LastActive = &last
		p.Online = s.IsActive() && rec.Online(now, c.livenessWindow)
	}
	return p
}
