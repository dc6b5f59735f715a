// Package session keeps gateway logins. A Session is created from a backend
// login, lives in memory for fast lookups and is persisted so it survives a
// restart. Handlers receive it through the request context.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"procurement/internal/lifecycle"
	"procurement/internal/model"
	"procurement/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrExpired  = errors.New("session expired")
)

// Session is an authenticated gateway login.
type Session struct {
	Token        string
	User         model.User
	AccessToken  string
	RefreshToken string
	Capabilities lifecycle.Capabilities
	ExpiresAt    time.Time
}

// Viewer returns the identity lifecycle rules are evaluated for.
func (s *Session) Viewer() lifecycle.Viewer {
	return lifecycle.Viewer{ID: s.User.ID, Role: s.User.Role, Capabilities: s.Capabilities}
}

// Can reports whether the session holds want.
func (s *Session) Can(want lifecycle.Capability) bool {
	return s.Capabilities.Has(want)
}

type ctxKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session carried by ctx.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}

// Manager owns all live sessions.
type Manager struct {
	repo repository.SessionRepository
	ttl  time.Duration
	log  zerolog.Logger
	now  func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(repo repository.SessionRepository, ttl time.Duration, log zerolog.Logger) *Manager {
	return &Manager{
		repo:     repo,
		ttl:      ttl,
		log:      log,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Restore loads every unexpired persisted session into memory. It returns how
// many were loaded.
func (m *Manager) Restore(ctx context.Context) (int, error) {
	rows, err := m.repo.ListActive(ctx, m.now())
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range rows {
		s := fromRow(&rows[i])
		m.sessions[s.Token] = s
	}
	return len(rows), nil
}

// Begin starts a session from a backend login. Capabilities are resolved here,
// once, from the role the backend reported.
func (m *Manager) Begin(ctx context.Context, auth model.AuthResponse) (*Session, error) {
	if auth.Access == "" || auth.User.ID == "" {
		return nil, errors.New("incomplete login response")
	}

	s := &Session{
		Token:        newToken(),
		User:         auth.User,
		AccessToken:  auth.Access,
		RefreshToken: auth.Refresh,
		Capabilities: lifecycle.CapabilitiesFor(auth.User.Role),
		ExpiresAt:    m.expiry(auth.Refresh, auth.Access),
	}
	if err := m.repo.Create(ctx, toRow(s)); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	m.mu.Lock()
	m.sessions[s.Token] = s
	m.mu.Unlock()

	m.log.Debug().Str("user_id", s.User.ID).Time("expires_at", s.ExpiresAt).Msg("session started")
	return s.clone(), nil
}

// Lookup returns the live session for token. Sessions created by another
// gateway instance are loaded from storage on first use.
func (m *Manager) Lookup(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrNotFound
	}

	m.mu.RLock()
	s, ok := m.sessions[token]
	m.mu.RUnlock()

	if !ok {
		row, err := m.repo.GetByToken(ctx, token)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("load session: %w", err)
		}
		s = fromRow(row)
		m.mu.Lock()
		m.sessions[token] = s
		m.mu.Unlock()
	}

	if !m.now().Before(s.ExpiresAt) {
		if err := m.End(ctx, token); err != nil {
			m.log.Warn().Err(err).Msg("failed to drop expired session")
		}
		return nil, ErrExpired
	}
	return s.clone(), nil
}

// Refresh stores a new backend access token (and a rotated refresh token, when
// the backend issued one).
func (m *Manager) Refresh(ctx context.Context, token, access, refresh string) (*Session, error) {
	return m.update(ctx, token, func(s *Session) {
		s.AccessToken = access
		if refresh != "" {
			s.RefreshToken = refresh
		}
		s.ExpiresAt = m.expiry(s.RefreshToken, s.AccessToken)
	})
}

// UpdateUser replaces the cached profile. A changed role re-resolves capabilities.
func (m *Manager) UpdateUser(ctx context.Context, token string, user model.User) (*Session, error) {
	return m.update(ctx, token, func(s *Session) {
		if user.Role == "" {
			user.Role = s.User.Role
		}
		if user.Role != s.User.Role {
			s.Capabilities = lifecycle.CapabilitiesFor(user.Role)
		}
		s.User = user
	})
}

func (m *Manager) update(ctx context.Context, token string, mutate func(*Session)) (*Session, error) {
	current, err := m.Lookup(ctx, token)
	if err != nil {
		return nil, err
	}

	mutate(current)

	row, err := m.repo.GetByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	applyRow(row, current)
	if err := m.repo.Update(ctx, row); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	m.mu.Lock()
	m.sessions[token] = current
	m.mu.Unlock()
	return current.clone(), nil
}

// End tears the session down in memory and in storage.
func (m *Manager) End(ctx context.Context, token string) error {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()

	if err := m.repo.DeleteByToken(ctx, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Sweep drops expired sessions and returns how many persisted rows were removed.
func (m *Manager) Sweep(ctx context.Context) (int64, error) {
	now := m.now()

	m.mu.Lock()
	for token, s := range m.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(m.sessions, token)
		}
	}
	m.mu.Unlock()

	return m.repo.DeleteExpired(ctx, now)
}

// expiry picks the first readable exp claim among tokens, else now + ttl.
func (m *Manager) expiry(tokens ...string) time.Time {
	parser := jwt.NewParser()
	for _, raw := range tokens {
		if raw == "" {
			continue
		}
		claims := jwt.MapClaims{}
		if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
			continue
		}
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	return m.now().Add(m.ttl)
}

func newToken() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}

func (s *Session) clone() *Session {
	cp := *s
	return &cp
}

func toRow(s *Session) *model.Session {
	row := &model.Session{Token: s.Token}
	applyRow(row, s)
	return row
}

func applyRow(row *model.Session, s *Session) {
	row.UserID = s.User.ID
	row.Username = s.User.Username
	row.Role = s.User.Role
	row.Profile = datatypes.NewJSONType(s.User)
	row.AccessToken = s.AccessToken
	row.RefreshToken = s.RefreshToken
	row.ExpiresAt = s.ExpiresAt
}

func fromRow(row *model.Session) *Session {
	user := row.Profile.Data()
	if user.ID == "" {
		user = model.User{ID: row.UserID, Username: row.Username, Role: row.Role}
	}
	return &Session{
		Token:        row.Token,
		User:         user,
		AccessToken:  row.AccessToken,
		RefreshToken: row.RefreshToken,
		Capabilities: lifecycle.CapabilitiesFor(row.Role),
		ExpiresAt:    row.ExpiresAt,
	}
}
