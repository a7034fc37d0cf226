package repository

import (
	"context"
	"errors"
	"time"

	"contract-collab-service/internal/domain"
	"contract-collab-service/internal/observability"

	"gorm.io/gorm"
)

var ErrTokenNotFound = errors.New("token not found")

// TokenRepository persists guest admission credentials. Rows are insert-only;
// expiry is the only invalidation path for the record itself.
type TokenRepository interface {
	Create(t *domain.ExternalAccessToken) error
	FindValidByHash(hash string, now time.Time) (*domain.ExternalAccessToken, error)
	DeleteExpired(now time.Time) (int64, error)
}

type GormTokenRepository struct{ db *gorm.DB }

func NewTokenRepository(db *gorm.DB) TokenRepository { return &GormTokenRepository{db: db} }

func (r *GormTokenRepository) Create(t *domain.ExternalAccessToken) error {
	err := r.db.Create(t).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "external_access_token", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "external_access_token", "create", "success")
	return nil
}

func (r *GormTokenRepository) FindValidByHash(hash string, now time.Time) (*domain.ExternalAccessToken, error) {
	var t domain.ExternalAccessToken
	err := r.db.Where("token_hash = ? AND token_type = ? AND expires_at > ?", hash, domain.TokenTypeCollabSession, now).
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "external_access_token", "find_valid_by_hash", "not_found")
			return nil, ErrTokenNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "external_access_token", "find_valid_by_hash", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "external_access_token", "find_valid_by_hash", "success")
	return &t, nil
}

func (r *GormTokenRepository) DeleteExpired(now time.Time) (int64, error) {
	res := r.db.Where("expires_at <= ?", now).Delete(&domain.ExternalAccessToken{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "external_access_token", "delete_expired", "error")
		return res.RowsAffected, res.Error
	}
	observability.RecordRepositoryOperation(context.Background(), "external_access_token", "delete_expired", "success")
	return res.RowsAffected, nil
}
