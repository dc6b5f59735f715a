package repository

import (
	"context"
	"time"

	"procurement/internal/model"

	"gorm.io/gorm"
)

// SessionRepository persists gateway sessions so they survive a restart.
type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	GetByToken(ctx context.Context, token string) (*model.Session, error)
	ListActive(ctx context.Context, now time.Time) ([]model.Session, error)
	Update(ctx context.Context, session *model.Session) error
	DeleteByToken(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository returns a new instance of SessionRepository
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, session *model.Session) error {
	return GetDB(ctx, r.db).Create(session).Error
}

func (r *sessionRepository) GetByToken(ctx context.Context, token string) (*model.Session, error) {
	var session model.Session
	if err := GetDB(ctx, r.db).First(&session, "token = ?", token).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) ListActive(ctx context.Context, now time.Time) ([]model.Session, error) {
	var sessions []model.Session
	if err := GetDB(ctx, r.db).Where("expires_at > ?", now).Order("created_at asc").Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *sessionRepository) Update(ctx context.Context, session *model.Session) error {
	return GetDB(ctx, r.db).Save(session).Error
}

func (r *sessionRepository) DeleteByToken(ctx context.Context, token string) error {
	return GetDB(ctx, r.db).Where("token = ?", token).Delete(&model.Session{}).Error
}

func (r *sessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := GetDB(ctx, r.db).Where("expires_at <= ?", now).Delete(&model.Session{})
	return result.RowsAffected, result.Error
}
