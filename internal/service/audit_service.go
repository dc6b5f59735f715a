package service

import (
	"context"
	"encoding/json"
	"fmt"

	"procurement/internal/lifecycle"
	"procurement/internal/model"
	"procurement/internal/repository"
	"procurement/internal/session"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
)

type AuditLogResponse struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	Username   string         `json:"username"`
	Action     string         `json:"action"`
	EntityID   string         `json:"entity_id"`
	EntityName string         `json:"entity_name"`
	Details    datatypes.JSON `json:"details" swaggertype:"object"`
	CreatedAt  string         `json:"created_at"`
}

type AuditQuery struct {
	UserID   string
	EntityID string
	Action   string
	Page     int
	Limit    int
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, q AuditQuery) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(auditRepo repository.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

// GetAuditLogs lists gateway activity, newest first. Approvers and finance see
// everyone's entries; other sessions only their own.
func (s *auditService) GetAuditLogs(ctx context.Context, q AuditQuery) ([]AuditLogResponse, int64, error) {
	if sess, ok := session.FromContext(ctx); ok &&
		!sess.Can(lifecycle.CapApproveRequests) && !sess.Can(lifecycle.CapManagePayments) {
		q.UserID = sess.User.ID
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = 20
	}

	logs, total, err := s.auditRepo.List(ctx, repository.AuditFilter{
		UserID:   q.UserID,
		EntityID: q.EntityID,
		Action:   q.Action,
	}, q.Page, q.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		username := l.Username
		if username == "" {
			username = "System"
		}
		res = append(res, AuditLogResponse{
			ID:         l.ID.String(),
			UserID:     l.UserID,
			Username:   username,
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    l.Details,
			CreatedAt:  l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return res, total, nil
}

// auditWriter records gateway mutations. The backend call has already
// happened when it runs, so a failed write is logged rather than returned.
type auditWriter struct {
	repo repository.AuditRepository
	log  zerolog.Logger
}

func (a auditWriter) entry(sess *session.Session, action, entityID, entityName string, details any) *model.AuditLog {
	data, err := json.Marshal(details)
	if err != nil || details == nil {
		data = []byte("{}")
	}
	entry := &model.AuditLog{
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    datatypes.JSON(data),
	}
	if sess != nil {
		entry.UserID = sess.User.ID
		entry.Username = sess.User.Username
	}
	return entry
}

func (a auditWriter) record(ctx context.Context, sess *session.Session, action, entityID, entityName string, details any) {
	if err := a.repo.Log(ctx, a.entry(sess, action, entityID, entityName, details)); err != nil {
		a.log.Error().Err(err).Str("action", action).Str("entity_id", entityID).Msg("failed to write audit log")
	}
}
