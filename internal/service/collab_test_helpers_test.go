package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"contract-collab-service/internal/domain"
	"contract-collab-service/internal/repository"
)

type fakeSessionRepo struct {
	mu          sync.Mutex
	sessions    map[string]*domain.CollabSession
	activeByDoc map[string]string

	// hideActiveOnce makes the next FindActiveByDocument miss even when an
	// active session exists, simulating a concurrent creator winning between
	// the lookup and the insert.
	hideActiveOnce bool
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{
		sessions:    make(map[string]*domain.CollabSession),
		activeByDoc: make(map[string]string),
	}
}

func (f *fakeSessionRepo) Create(s *domain.CollabSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.activeByDoc[s.DocumentRef]; exists {
		return repository.ErrDuplicateActiveSession
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = domain.SessionActive
	}
	if s.InternalParticipants == nil {
		s.InternalParticipants = domain.StringSet{}
	}
	if s.ExternalParticipants == nil {
		s.ExternalParticipants = domain.StringSet{}
	}
	ref := s.DocumentRef
	s.ActiveDocumentRef = &ref
	s.CreatedAt = time.Now().UTC()
	cp := *s
	f.sessions[s.ID] = &cp
	f.activeByDoc[s.DocumentRef] = s.ID
	return nil
}

func (f *fakeSessionRepo) FindByID(id string) (*domain.CollabSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessionRepo) FindActiveByDocument(documentRef string) (*domain.CollabSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hideActiveOnce {
		f.hideActiveOnce = false
		return nil, repository.ErrSessionNotFound
	}
	id, ok := f.activeByDoc[documentRef]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	cp := *f.sessions[id]
	return &cp, nil
}

func (f *fakeSessionRepo) ListByDocument(documentRef string) ([]domain.CollabSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.CollabSession
	for _, s := range f.sessions {
		if s.DocumentRef == documentRef {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSessionRepo) mutate(sessionID string, apply func(*domain.CollabSession) bool) (*domain.CollabSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	if !s.IsActive() {
		return nil, repository.ErrSessionEnded
	}
	if apply(s) {
		s.Version++
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessionRepo) AddInternal(sessionID, userID string) (*domain.CollabSession, error) {
	return f.mutate(sessionID, func(s *domain.CollabSession) bool {
		next, changed := s.InternalParticipants.With(userID)
		s.InternalParticipants = next
		return changed
	})
}

func (f *fakeSessionRepo) AddExternal(sessionID, email string) (*domain.CollabSession, error) {
	return f.mutate(sessionID, func(s *domain.CollabSession) bool {
		next, changed := s.ExternalParticipants.With(email)
		s.ExternalParticipants = next
		return changed
	})
}

func (f *fakeSessionRepo) RemoveInternal(sessionID, userID string) (*domain.CollabSession, error) {
	return f.mutate(sessionID, func(s *domain.CollabSession) bool {
		next, changed := s.InternalParticipants.Without(userID)
		s.InternalParticipants = next
		return changed
	})
}

func (f *fakeSessionRepo) RemoveExternal(sessionID, email string) (*domain.CollabSession, error) {
	return f.mutate(sessionID, func(s *domain.CollabSession) bool {
		next, changed := s.ExternalParticipants.Without(email)
		s.ExternalParticipants = next
		return changed
	})
}

func (f *fakeSessionRepo) End(sessionID string) (*domain.CollabSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	if s.IsActive() {
		s.Status = domain.SessionEnded
		s.ActiveDocumentRef = nil
		s.Version++
		delete(f.activeByDoc, s.DocumentRef)
	}
	cp := *s
	return &cp, nil
}

type fakeTokenRepo struct {
	mu     sync.Mutex
	byHash map[string]*domain.ExternalAccessToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{byHash: make(map[string]*domain.ExternalAccessToken)}
}

func (f *fakeTokenRepo) Create(t *domain.ExternalAccessToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *t
	f.byHash[t.TokenHash] = &cp
	return nil
}

func (f *fakeTokenRepo) FindValidByHash(hash string, now time.Time) (*domain.ExternalAccessToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byHash[hash]
	if !ok || !t.ExpiresAt.After(now) {
		return nil, repository.ErrTokenNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTokenRepo) DeleteExpired(now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var removed int64
	for hash, t := range f.byHash {
		if !t.ExpiresAt.After(now) {
			delete(f.byHash, hash)
			removed++
		}
	}
	return removed, nil
}

type staticResolver map[string]string

func (r staticResolver) Resolve(_ context.Context, userIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(userIDs))
	for _, id := range userIDs {
		if name, ok := r[id]; ok {
			out[id] = name
		}
	}
	return out, nil
}
