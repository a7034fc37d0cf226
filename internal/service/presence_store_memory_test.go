package service

import (
	"context"
	"testing"
	"time"

	"contract-collab-service/internal/domain"
)

func TestInMemoryPresenceStoreAssignsColorsByJoinOrder(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryPresenceStore()
	now := time.Now().UTC()

	keys := []string{"alice", "bob", "ext:carol@partner.example"}
	for i, key := range keys {
		err := store.Upsert(ctx, "sess-1", domain.PresenceRecord{
			ParticipantKey: key,
			LastActive:     now.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("upsert %s: %v", key, err)
		}
	}

	records, err := store.List(ctx, "sess-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i, rec := range records {
		if rec.ParticipantKey != keys[i] {
			t.Fatalf("expected join order, got %s at %d", rec.ParticipantKey, i)
		}
		if rec.Color != colorForJoinIndex(i) {
			t.Fatalf("expected color %s for %s, got %s", colorForJoinIndex(i), rec.ParticipantKey, rec.Color)
		}
	}
}

func TestInMemoryPresenceStoreKeepsColorAcrossUpdates(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryPresenceStore()
	now := time.Now().UTC()

	first := domain.PresenceRecord{ParticipantKey: "alice", Anchor: 1, Head: 2, LastActive: now}
	if err := store.Upsert(ctx, "sess-1", first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	update := domain.PresenceRecord{ParticipantKey: "alice", Anchor: 9, Head: 12, LastActive: now.Add(time.Second)}
	if err := store.Upsert(ctx, "sess-1", update); err != nil {
		t.Fatalf("update upsert: %v", err)
	}

	records, _ := store.List(ctx, "sess-1")
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Anchor != 9 || records[0].Head != 12 {
		t.Fatalf("expected updated selection, got %+v", records[0])
	}
	if records[0].Color != colorForJoinIndex(0) {
		t.Fatalf("expected sticky color, got %s", records[0].Color)
	}
}

func TestInMemoryPresenceStoreIgnoresStaleWrites(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryPresenceStore()
	now := time.Now().UTC()

	newer := domain.PresenceRecord{ParticipantKey: "alice", Anchor: 50, LastActive: now}
	if err := store.Upsert(ctx, "sess-1", newer); err != nil {
		t.Fatalf("newer upsert: %v", err)
	}
	// a retried older report must not regress the record
	stale := domain.PresenceRecord{ParticipantKey: "alice", Anchor: 3, LastActive: now.Add(-time.Minute)}
	if err := store.Upsert(ctx, "sess-1", stale); err != nil {
		t.Fatalf("stale upsert: %v", err)
	}

	records, _ := store.List(ctx, "sess-1")
	if records[0].Anchor != 50 || !records[0].LastActive.Equal(now) {
		t.Fatalf("stale write regressed record: %+v", records[0])
	}
}

func TestInMemoryPresenceStorePrune(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryPresenceStore()

	if err := store.Upsert(ctx, "sess-1", domain.PresenceRecord{ParticipantKey: "alice", LastActive: time.Now()}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.Prune(ctx, "sess-1"); err != nil {
		t.Fatalf("prune: %v", err)
	}
	records, err := store.List(ctx, "sess-1")
	if err != nil {
		t.Fatalf("list after prune: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty presence after prune, got %d", len(records))
	}
}
