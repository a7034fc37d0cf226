package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"contract-collab-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

// presenceRetention keeps a session's presence hash alive well past the
// liveness window; readers decide staleness, the store only bounds growth.
const presenceRetention = 24 * time.Hour

type RedisPresenceStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisPresenceStore(client redis.UniversalClient, prefix string) *RedisPresenceStore {
	if prefix == "" {
		prefix = "collab_presence"
	}
	return &RedisPresenceStore{
		client: client,
		prefix: prefix,
	}
}

// colorClaimScript assigns each participant a join-order index exactly once.
// The claim runs server-side so two concurrent first reports cannot observe
// the same hash length and collide on a palette color.
var colorClaimScript = redis.NewScript(`
local idx = redis.call('HGET', KEYS[1], ARGV[1])
if not idx then
  idx = redis.call('HLEN', KEYS[1])
  redis.call('HSET', KEYS[1], ARGV[1], idx)
end
redis.call('EXPIRE', KEYS[1], ARGV[2])
return tonumber(idx)
`)

func (s *RedisPresenceStore) Upsert(ctx context.Context, sessionID string, rec domain.PresenceRecord) error {
	if s.client == nil {
		return nil
	}
	idx, err := colorClaimScript.Run(ctx, s.client, []string{s.colorKey(sessionID)},
		rec.ParticipantKey, int(presenceRetention.Seconds())).Int()
	if err != nil {
		return err
	}
	rec.Color = colorForJoinIndex(idx)

	key := s.dataKey(sessionID)
	raw, err := s.client.HGet(ctx, key, rec.ParticipantKey).Bytes()
	switch {
	case err == redis.Nil:
	case err != nil:
		return err
	default:
		var existing domain.PresenceRecord
		if uerr := json.Unmarshal(raw, &existing); uerr == nil && !rec.LastActive.After(existing.LastActive) {
			return nil
		}
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, rec.ParticipantKey, payload)
	pipe.Expire(ctx, key, presenceRetention)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisPresenceStore) List(ctx context.Context, sessionID string) ([]domain.PresenceRecord, error) {
	if s.client == nil {
		return nil, nil
	}
	raw, err := s.client.HGetAll(ctx, s.dataKey(sessionID)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.PresenceRecord, 0, len(raw))
	for _, v := range raw {
		var rec domain.PresenceRecord
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	// hash field order is unspecified; sort oldest report first so reads
	// are stable for clients and tests
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastActive.Equal(out[j].LastActive) {
			return out[i].ParticipantKey < out[j].ParticipantKey
		}
		return out[i].LastActive.Before(out[j].LastActive)
	})
	return out, nil
}

func (s *RedisPresenceStore) Prune(ctx context.Context, sessionID string) error {
	if s.client == nil {
		return nil
	}
	return s.client.Del(ctx, s.dataKey(sessionID), s.colorKey(sessionID)).Err()
}

func (s *RedisPresenceStore) dataKey(sessionID string) string {
	return fmt.Sprintf("%s:data:%s", s.prefix, sessionID)
}

func (s *RedisPresenceStore) colorKey(sessionID string) string {
	return fmt.Sprintf("%s:color:%s", s.prefix, sessionID)
}
