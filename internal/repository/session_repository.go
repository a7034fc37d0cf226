package repository

import (
	"context"
	"errors"
	"time"

	"contract-collab-service/internal/domain"
	"contract-collab-service/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrSessionNotFound        = errors.New("session not found")
	ErrSessionEnded           = errors.New("session ended")
	ErrDuplicateActiveSession = errors.New("active session already exists for document")
)

// optimisticRetries bounds how often a membership mutation re-reads the row
// after losing a version race to a concurrent writer.
const optimisticRetries = 3

type SessionRepository interface {
	Create(s *domain.CollabSession) error
	FindByID(id string) (*domain.CollabSession, error)
	FindActiveByDocument(documentRef string) (*domain.CollabSession, error)
	ListByDocument(documentRef string) ([]domain.CollabSession, error)
	AddInternal(sessionID, userID string) (*domain.CollabSession, error)
	AddExternal(sessionID, email string) (*domain.CollabSession, error)
	RemoveInternal(sessionID, userID string) (*domain.CollabSession, error)
	RemoveExternal(sessionID, email string) (*domain.CollabSession, error)
	End(sessionID string) (*domain.CollabSession, error)
}

type GormSessionRepository struct{ db *gorm.DB }

func NewSessionRepository(db *gorm.DB) SessionRepository { return &GormSessionRepository{db: db} }

func (r *GormSessionRepository) Create(s *domain.CollabSession) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = domain.SessionActive
	}
	if s.Status == domain.SessionActive {
		ref := s.DocumentRef
		s.ActiveDocumentRef = &ref
	}
	if s.InternalParticipants == nil {
		s.InternalParticipants = domain.StringSet{}
	}
	if s.ExternalParticipants == nil {
		s.ExternalParticipants = domain.StringSet{}
	}
	err := r.db.Create(s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			observability.RecordRepositoryOperation(context.Background(), "collab_session", "create", "duplicate")
			return ErrDuplicateActiveSession
		}
		observability.RecordRepositoryOperation(context.Background(), "collab_session", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "collab_session", "create", "success")
	return nil
}

func (r *GormSessionRepository) FindByID(id string) (*domain.CollabSession, error) {
	var s domain.CollabSession
	err := r.db.Where("id = ?", id).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "collab_session", "find_by_id", "not_found")
			return nil, ErrSessionNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "collab_session", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "collab_session", "find_by_id", "success")
	return &s, nil
}

func (r *GormSessionRepository) FindActiveByDocument(documentRef string) (*domain.CollabSession, error) {
	var s domain.CollabSession
	err := r.db.Where("active_document_ref = ?", documentRef).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "collab_session", "find_active_by_document", "not_found")
			return nil, ErrSessionNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "collab_session", "find_active_by_document", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "collab_session", "find_active_by_document", "success")
	return &s, nil
}

func (r *GormSessionRepository) ListByDocument(documentRef string) ([]domain.CollabSession, error) {
	var sessions []domain.CollabSession
	err := r.db.Where("document_ref = ?", documentRef).
		Order("created_at DESC").
		Find(&sessions).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "collab_session", "list_by_document", "error")
		return sessions, err
	}
	observability.RecordRepositoryOperation(context.Background(), "collab_session", "list_by_document", "success")
	return sessions, nil
}

func (r *GormSessionRepository) AddInternal(sessionID, userID string) (*domain.CollabSession, error) {
	return r.mutateMembership(sessionID, "add_internal", func(s *domain.CollabSession) bool {
		next, changed := s.InternalParticipants.With(userID)
		s.InternalParticipants = next
		return changed
	})
}

func (r *GormSessionRepository) AddExternal(sessionID, email string) (*domain.CollabSession, error) {
	return r.mutateMembership(sessionID, "add_external", func(s *domain.CollabSession) bool {
		next, changed := s.ExternalParticipants.With(email)
		s.ExternalParticipants = next
		return changed
	})
}

func (r *GormSessionRepository) RemoveInternal(sessionID, userID string) (*domain.CollabSession, error) {
	return r.mutateMembership(sessionID, "remove_internal", func(s *domain.CollabSession) bool {
		next, changed := s.InternalParticipants.Without(userID)
		s.InternalParticipants = next
		return changed
	})
}

func (r *GormSessionRepository) RemoveExternal(sessionID, email string) (*domain.CollabSession, error) {
	return r.mutateMembership(sessionID, "remove_external", func(s *domain.CollabSession) bool {
		next, changed := s.ExternalParticipants.Without(email)
		s.ExternalParticipants = next
		return changed
	})
}

// mutateMembership applies a set mutation under a version-guarded single-row
// update. No-op mutations return the current row without a write. Membership
// never changes on an ended session.
func (r *GormSessionRepository) mutateMembership(sessionID, op string, apply func(*domain.CollabSession) bool) (*domain.CollabSession, error) {
	for attempt := 0; attempt < optimisticRetries; attempt++ {
		s, err := r.FindByID(sessionID)
		if err != nil {
			observability.RecordRepositoryOperation(context.Background(), "collab_session", op, "not_found")
			return nil, err
		}
		if !s.IsActive() {
			observability.RecordRepositoryOperation(context.Background(), "collab_session", op, "session_ended")
			return nil, ErrSessionEnded
		}
		if !apply(s) {
			observability.RecordRepositoryOperation(context.Background(), "collab_session", op, "noop")
			return s, nil
		}
		res := r.db.Model(&domain.CollabSession{}).
			Where("id = ? AND version = ?", s.ID, s.Version).
			Updates(map[string]any{
				"internal_participants": s.InternalParticipants,
				"external_participants": s.ExternalParticipants,
				"version":               s.Version + 1,
				"updated_at":            time.Now().UTC(),
			})
		if res.Error != nil {
			observability.RecordRepositoryOperation(context.Background(), "collab_session", op, "error")
			return nil, res.Error
		}
		if res.RowsAffected > 0 {
			s.Version++
			observability.RecordRepositoryOperation(context.Background(), "collab_session", op, "success")
			return s, nil
		}
		// lost the version race; reload and retry
	}
	observability.RecordRepositoryOperation(context.Background(), "collab_session", op, "conflict")
	return nil, gorm.ErrInvalidTransaction
}

func (r *GormSessionRepository) End(sessionID string) (*domain.CollabSession, error) {
	for attempt := 0; attempt < optimisticRetries; attempt++ {
		s, err := r.FindByID(sessionID)
		if err != nil {
			observability.RecordRepositoryOperation(context.Background(), "collab_session", "end", "not_found")
			return nil, err
		}
		if !s.IsActive() {
			// ending twice is a no-op returning the terminal record
			observability.RecordRepositoryOperation(context.Background(), "collab_session", "end", "noop")
			return s, nil
		}
		now := time.Now().UTC()
		res := r.db.Model(&domain.CollabSession{}).
			Where("id = ? AND version = ?", s.ID, s.Version).
			Updates(map[string]any{
				"status":              domain.SessionEnded,
				"active_document_ref": nil,
				"version":             s.Version + 1,
				"updated_at":          now,
			})
		if res.Error != nil {
			observability.RecordRepositoryOperation(context.Background(), "collab_session", "end", "error")
			return nil, res.Error
		}
		if res.RowsAffected > 0 {
			s.Status = domain.SessionEnded
			s.ActiveDocumentRef = nil
			s.Version++
			s.UpdatedAt = now
			observability.RecordRepositoryOperation(context.Background(), "collab_session", "end", "success")
			return s, nil
		}
	}
	observability.RecordRepositoryOperation(context.Background(), "collab_session", "end", "conflict")
	return nil, gorm.ErrInvalidTransaction
}
