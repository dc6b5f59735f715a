package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"procurement/internal/client"
	"procurement/internal/lifecycle"
	"procurement/internal/model"
	"procurement/internal/repository"
	"procurement/internal/session"

	"github.com/rs/zerolog"
)

// --- DTOs ---

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email" binding:"omitempty,email"`
}

type ChangePasswordRequest struct {
	OldPassword     string `json:"old_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
	ConfirmPassword string `json:"confirm_password"`
}

type UserResponse struct {
	ID            string                 `json:"id"`
	Username      string                 `json:"username"`
	Email         string                 `json:"email"`
	FirstName     string                 `json:"first_name"`
	LastName      string                 `json:"last_name"`
	Role          string                 `json:"role"`
	ApproverLevel *int                   `json:"approver_level,omitempty"`
	Capabilities  []lifecycle.Capability `json:"capabilities"`
}

type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// MinPasswordLength is the shortest password accepted by ChangePassword.
const MinPasswordLength = 8

// --- Interface ---

type AuthService interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Logout(ctx context.Context) error
	Refresh(ctx context.Context) (*LoginResponse, error)
	Me(ctx context.Context) (*UserResponse, error)
	UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*UserResponse, error)
	ChangePassword(ctx context.Context, req ChangePasswordRequest) error
}

type authService struct {
	api       *client.Client
	sessions  *session.Manager
	txManager repository.TransactionManager
	audit     auditWriter
	log       zerolog.Logger
}

func NewAuthService(
	api *client.Client,
	sessions *session.Manager,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	log zerolog.Logger,
) AuthService {
	return &authService{
		api:       api,
		sessions:  sessions,
		txManager: txManager,
		audit:     auditWriter{repo: auditRepo, log: log},
		log:       log,
	}
}

// currentSession returns the session the request was authenticated with.
func currentSession(ctx context.Context) (*session.Session, error) {
	sess, ok := session.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	return sess, nil
}

func toUserResponse(sess *session.Session) *UserResponse {
	u := sess.User
	return &UserResponse{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Role:          u.Role,
		ApproverLevel: u.ApproverLevel,
		Capabilities:  sess.Capabilities.List(),
	}
}

func toLoginResponse(sess *session.Session) *LoginResponse {
	return &LoginResponse{Token: sess.Token, ExpiresAt: sess.ExpiresAt, User: *toUserResponse(sess)}
}

// --- Implementation ---

func (s *authService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, invalid("", "username and password are required")
	}

	auth, err := s.api.Login(ctx, client.Credentials{Username: username, Password: req.Password})
	if err != nil {
		return nil, err
	}

	var sess *session.Session
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var beginErr error
		sess, beginErr = s.sessions.Begin(txCtx, *auth)
		if beginErr != nil {
			return beginErr
		}
		return s.audit.repo.Log(txCtx, s.audit.entry(sess, model.ActionLogin, "", "", map[string]any{
			"role": sess.User.Role,
		}))
	})
	if err != nil {
		if sess != nil {
			_ = s.sessions.End(ctx, sess.Token)
		}
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	s.log.Info().Str("user_id", sess.User.ID).Str("role", sess.User.Role).Msg("user logged in")
	return toLoginResponse(sess), nil
}

func (s *authService) Logout(ctx context.Context) error {
	sess, err := currentSession(ctx)
	if err != nil {
		return err
	}
	if err := s.sessions.End(ctx, sess.Token); err != nil {
		return err
	}
	s.audit.record(ctx, sess, model.ActionLogout, "", "", nil)
	return nil
}

// Refresh exchanges the stored refresh token for a new access token. When the
// backend no longer accepts the refresh token the session is ended.
func (s *authService) Refresh(ctx context.Context) (*LoginResponse, error) {
	sess, err := currentSession(ctx)
	if err != nil {
		return nil, err
	}
	if sess.RefreshToken == "" {
		return nil, ErrUnauthenticated
	}

	pair, err := s.api.RefreshToken(ctx, sess.RefreshToken)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusBadRequest) {
			if endErr := s.sessions.End(ctx, sess.Token); endErr != nil {
				s.log.Warn().Err(endErr).Msg("failed to end session after refresh rejection")
			}
			return nil, fmt.Errorf("%w: refresh rejected", ErrUnauthenticated)
		}
		return nil, err
	}

	updated, err := s.sessions.Refresh(ctx, sess.Token, pair.Access, pair.Refresh)
	if err != nil {
		return nil, err
	}
	return toLoginResponse(updated), nil
}

func (s *authService) Me(ctx context.Context) (*UserResponse, error) {
	sess, err := currentSession(ctx)
	if err != nil {
		return nil, err
	}
	return toUserResponse(sess), nil
}

func (s *authService) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*UserResponse, error) {
	sess, err := currentSession(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.api.WithToken(sess.AccessToken).UpdateProfile(ctx, client.ProfileUpdate{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     strings.TrimSpace(req.Email),
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.sessions.UpdateUser(ctx, sess.Token, *user)
	if err != nil {
		return nil, err
	}
	s.audit.record(ctx, updated, model.ActionUpdateProfile, updated.User.ID, updated.User.Username, req)
	return toUserResponse(updated), nil
}

func (s *authService) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	sess, err := currentSession(ctx)
	if err != nil {
		return err
	}
	if req.ConfirmPassword != "" && req.ConfirmPassword != req.NewPassword {
		return invalid("confirm_password", "New passwords do not match")
	}
	if len(req.NewPassword) < MinPasswordLength {
		return invalid("new_password", fmt.Sprintf("Password must be at least %d characters long", MinPasswordLength))
	}

	if err := s.api.WithToken(sess.AccessToken).ChangePassword(ctx, client.PasswordChange{
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	}); err != nil {
		return err
	}
	s.audit.record(ctx, sess, model.ActionChangePassword, sess.User.ID, sess.User.Username, nil)
	return nil
}
