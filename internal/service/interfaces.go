package service

import (
	"context"

	"contract-collab-service/internal/domain"
)

// IdentityResolver maps internal user ids to display names. The identity
// subsystem owns user records; the coordinator only reads names at
// describe time.
type IdentityResolver interface {
	Resolve(ctx context.Context, userIDs []string) (map[string]string, error)
}

// PresenceStore holds ephemeral per-session presence records. Upsert is
// last-write-wins on LastActive and must keep the first-assigned color.
type PresenceStore interface {
	Upsert(ctx context.Context, sessionID string, rec domain.PresenceRecord) error
	List(ctx context.Context, sessionID string) ([]domain.PresenceRecord, error)
	Prune(ctx context.Context, sessionID string) error
}

type CoordinatorInterface interface {
	StartOrJoin(ctx context.Context, documentRef, enterpriseRef, userID string) (*domain.CollabSession, bool, error)
	Invite(ctx context.Context, sessionID, actor string, target InviteTarget) (*InviteResult, error)
	Remove(ctx context.Context, sessionID, actor string, target InviteTarget) (*domain.CollabSession, error)
	End(ctx context.Context, sessionID, actor string) (*domain.CollabSession, error)
	Describe(ctx context.Context, sessionID string) (*SessionDetail, error)
	ReportPresence(ctx context.Context, sessionID string, rep PresenceReport) error
}
