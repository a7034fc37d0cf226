package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"contract-collab-service/internal/domain"
)

func TestRedisPresenceStoreUpsertAndList(t *testing.T) {
	ctx := context.Background()
	_, client := newRedisClientForTest(t)
	store := NewRedisPresenceStore(client, "presence_test")
	now := time.Now().UTC().Truncate(time.Millisecond)

	if err := store.Upsert(ctx, "sess-1", domain.PresenceRecord{ParticipantKey: "alice", Anchor: 4, LastActive: now}); err != nil {
		t.Fatalf("upsert alice: %v", err)
	}
	if err := store.Upsert(ctx, "sess-1", domain.PresenceRecord{ParticipantKey: "bob", Anchor: 7, LastActive: now.Add(time.Second)}); err != nil {
		t.Fatalf("upsert bob: %v", err)
	}

	records, err := store.List(ctx, "sess-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	// oldest report first
	if records[0].ParticipantKey != "alice" || records[1].ParticipantKey != "bob" {
		t.Fatalf("unexpected order: %s, %s", records[0].ParticipantKey, records[1].ParticipantKey)
	}
	if records[0].Color == records[1].Color {
		t.Fatalf("expected distinct colors, both got %s", records[0].Color)
	}
}

func TestRedisPresenceStoreLastWriteWins(t *testing.T) {
	ctx := context.Background()
	_, client := newRedisClientForTest(t)
	store := NewRedisPresenceStore(client, "presence_test")
	now := time.Now().UTC().Truncate(time.Millisecond)

	if err := store.Upsert(ctx, "sess-1", domain.PresenceRecord{ParticipantKey: "alice", Anchor: 10, LastActive: now}); err != nil {
		t.Fatalf("initial upsert: %v", err)
	}
	firstColor := mustListOne(t, store, "sess-1").Color

	// stale retry is dropped
	if err := store.Upsert(ctx, "sess-1", domain.PresenceRecord{ParticipantKey: "alice", Anchor: 1, LastActive: now.Add(-time.Minute)}); err != nil {
		t.Fatalf("stale upsert: %v", err)
	}
	if got := mustListOne(t, store, "sess-1"); got.Anchor != 10 {
		t.Fatalf("stale write regressed anchor to %d", got.Anchor)
	}

	// newer report lands and keeps the first color
	if err := store.Upsert(ctx, "sess-1", domain.PresenceRecord{ParticipantKey: "alice", Anchor: 21, LastActive: now.Add(time.Second)}); err != nil {
		t.Fatalf("newer upsert: %v", err)
	}
	got := mustListOne(t, store, "sess-1")
	if got.Anchor != 21 {
		t.Fatalf("expected anchor 21, got %d", got.Anchor)
	}
	if got.Color != firstColor {
		t.Fatalf("expected sticky color %s, got %s", firstColor, got.Color)
	}
}

func TestRedisPresenceStorePruneAndIsolation(t *testing.T) {
	ctx := context.Background()
	_, client := newRedisClientForTest(t)
	store := NewRedisPresenceStore(client, "presence_test")
	now := time.Now().UTC()

	if err := store.Upsert(ctx, "sess-1", domain.PresenceRecord{ParticipantKey: "alice", LastActive: now}); err != nil {
		t.Fatalf("upsert sess-1: %v", err)
	}
	if err := store.Upsert(ctx, "sess-2", domain.PresenceRecord{ParticipantKey: "bob", LastActive: now}); err != nil {
		t.Fatalf("upsert sess-2: %v", err)
	}

	if err := store.Prune(ctx, "sess-1"); err != nil {
		t.Fatalf("prune: %v", err)
	}
	records, err := store.List(ctx, "sess-1")
	if err != nil {
		t.Fatalf("list pruned: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty presence after prune, got %d", len(records))
	}
	if got := mustListOne(t, store, "sess-2"); got.ParticipantKey != "bob" {
		t.Fatalf("prune leaked into other session: %+v", got)
	}
}

func TestRedisPresenceStoreConcurrentFirstReportsGetDistinctColors(t *testing.T) {
	ctx := context.Background()
	_, client := newRedisClientForTest(t)
	store := NewRedisPresenceStore(client, "presence_test")
	now := time.Now().UTC()

	participants := []string{"alice", "bob", "carol", "dave", "erin", "frank"}
	var wg sync.WaitGroup
	errs := make([]error, len(participants))
	for i, p := range participants {
		wg.Add(1)
		go func(i int, key string) {
			defer wg.Done()
			errs[i] = store.Upsert(ctx, "sess-1", domain.PresenceRecord{ParticipantKey: key, LastActive: now})
		}(i, p)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("upsert %s: %v", participants[i], err)
		}
	}

	records, err := store.List(ctx, "sess-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != len(participants) {
		t.Fatalf("expected %d records, got %d", len(participants), len(records))
	}
	seen := map[string]string{}
	for _, rec := range records {
		if prev, dup := seen[rec.Color]; dup {
			t.Fatalf("color %s assigned to both %s and %s", rec.Color, prev, rec.ParticipantKey)
		}
		seen[rec.Color] = rec.ParticipantKey
	}
}

func TestRedisPresenceStoreNilClientIsNoop(t *testing.T) {
	ctx := context.Background()
	store := NewRedisPresenceStore(nil, "")

	if err := store.Upsert(ctx, "sess-1", domain.PresenceRecord{ParticipantKey: "alice"}); err != nil {
		t.Fatalf("upsert with nil client: %v", err)
	}
	records, err := store.List(ctx, "sess-1")
	if err != nil {
		t.Fatalf("list with nil client: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records, got %d", len(records))
	}
	if err := store.Prune(ctx, "sess-1"); err != nil {
		t.Fatalf("prune with nil client: %v", err)
	}
}

func mustListOne(t *testing.T, store *RedisPresenceStore, sessionID string) domain.PresenceRecord {
	t.Helper()
	records, err := store.List(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected exactly 1 record, got %d", len(records))
	}
	return records[0]
}
