package service

import (
	"context"
	"sync"

	"contract-collab-service/internal/domain"
)

// InMemoryPresenceStore backs presence for tests and single-process
// deployments without Redis. Losing it on restart is acceptable; presence is
// best-effort by contract.
type InMemoryPresenceStore struct {
	mu       sync.Mutex
	sessions map[string]map[string]domain.PresenceRecord
	order    map[string][]string
}

func NewInMemoryPresenceStore() *InMemoryPresenceStore {
	return &InMemoryPresenceStore{
		sessions: make(map[string]map[string]domain.PresenceRecord),
		order:    make(map[string][]string),
	}
}

func (s *InMemoryPresenceStore) Upsert(_ context.Context, sessionID string, rec domain.PresenceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, ok := s.sessions[sessionID]
	if !ok {
		records = make(map[string]domain.PresenceRecord)
		s.sessions[sessionID] = records
	}
	existing, seen := records[rec.ParticipantKey]
	if seen {
		// a stale retry must never regress a newer report
		if !rec.LastActive.After(existing.LastActive) {
			return nil
		}
		rec.Color = existing.Color
	} else {
		rec.Color = colorForJoinIndex(len(records))
		s.order[sessionID] = append(s.order[sessionID], rec.ParticipantKey)
	}
	records[rec.ParticipantKey] = rec
	return nil
}

func (s *InMemoryPresenceStore) List(_ context.Context, sessionID string) ([]domain.PresenceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.sessions[sessionID]
	out := make([]domain.PresenceRecord, 0, len(records))
	for _, key := range s.order[sessionID] {
		if rec, ok := records[key]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *InMemoryPresenceStore) Prune(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	delete(s.order, sessionID)
	return nil
}
