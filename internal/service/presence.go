package service

import (
	"context"
	"time"

	"contract-collab-service/internal/domain"
)

// presencePalette is the bounded set of cursor colors. Colors are assigned
// by join order, so small groups always look distinct and assignment is
// deterministic; the palette wraps only once it is exhausted.
var presencePalette = [...]string{
	"#2563EB", // blue
	"#D97706", // amber
	"#059669", // emerald
	"#DC2626", // red
	"#7C3AED", // violet
	"#DB2777", // pink
	"#0891B2", // cyan
	"#65A30D", // lime
	"#EA580C", // orange
	"#4F46E5", // indigo
}

func colorForJoinIndex(i int) string {
	if i < 0 {
		i = 0
	}
	return presencePalette[i%len(presencePalette)]
}

// PresenceReport is one client heartbeat: who, what to call them, and where
// their selection sits. Anchor and head are opaque document coordinates
// relayed to the CRDT layer untouched.
type PresenceReport struct {
	ParticipantKey string `json:"participant_key"`
	DisplayName    string `json:"display_name"`
	Anchor         int64  `json:"anchor"`
	Head           int64  `json:"head"`
}

// PresenceTracker records and serves participant liveness. It is
// deliberately dumb: it never checks session membership or status, readers
// gate on those.
type PresenceTracker struct {
	store PresenceStore
	now   func() time.Time
}

func NewPresenceTracker(store PresenceStore) *PresenceTracker {
	return &PresenceTracker{store: store, now: time.Now}
}

func (t *PresenceTracker) Report(ctx context.Context, sessionID string, rep PresenceReport) error {
	return t.store.Upsert(ctx, sessionID, domain.PresenceRecord{
		ParticipantKey: rep.ParticipantKey,
		DisplayName:    rep.DisplayName,
		Anchor:         rep.Anchor,
		Head:           rep.Head,
		LastActive:     t.now().UTC(),
	})
}

// List is a pure read; it never refreshes LastActive.
func (t *PresenceTracker) List(ctx context.Context, sessionID string) ([]domain.PresenceRecord, error) {
	return t.store.List(ctx, sessionID)
}

func (t *PresenceTracker) Prune(ctx context.Context, sessionID string) error {
	return t.store.Prune(ctx, sessionID)
}
