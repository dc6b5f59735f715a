package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"procurement/internal/lifecycle"
	"procurement/internal/model"
	"procurement/internal/session"
	"procurement/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSessions map[string]error

func (s stubSessions) Lookup(_ context.Context, token string) (*session.Session, error) {
	if err, ok := s[token]; ok {
		if err != nil {
			return nil, err
		}
		role := model.RoleStaff
		if token == "finance" {
			role = model.RoleFinance
		}
		return &session.Session{
			Token:        token,
			User:         model.User{ID: "u-" + token, Role: role},
			Capabilities: lifecycle.CapabilitiesFor(role),
		}, nil
	}
	return nil, session.ErrNotFound
}

func newRouter(caps ...lifecycle.Capability) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	lookup := stubSessions{
		"staff":   nil,
		"finance": nil,
		"old":     session.ErrExpired,
		"broken":  errors.New("database is down"),
	}
	handlers := []gin.HandlerFunc{RequireSession(lookup)}
	if len(caps) > 0 {
		handlers = append(handlers, RequireCapability(caps...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		sess, ok := session.FromContext(c.Request.Context())
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": sess.User.ID, "ctx_user": c.GetString(ContextUserID)})
	})
	r.GET("/protected", handlers...)
	return r
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var res response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "error", res.Status)
	return res.Error
}

func TestRequireSession(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(r *http.Request)
		status  int
		message string
	}{
		{"no credentials", func(r *http.Request) {}, http.StatusUnauthorized, "Authorization is missing"},
		{"malformed header", func(r *http.Request) { r.Header.Set("Authorization", "Token staff") }, http.StatusUnauthorized, "Invalid authorization format. Expected 'Bearer <token>'"},
		{"unknown token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized, "Invalid session"},
		{"expired", func(r *http.Request) { r.Header.Set("Authorization", "Bearer old") }, http.StatusUnauthorized, "Session expired, please log in again"},
		{"storage failure", func(r *http.Request) { r.Header.Set("Authorization", "Bearer broken") }, http.StatusInternalServerError, "Failed to verify session"},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer staff") }, http.StatusOK, ""},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "staff"}) }, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			tt.prepare(req)
			w := httptest.NewRecorder()
			newRouter().ServeHTTP(w, req)

			require.Equal(t, tt.status, w.Code)
			if tt.message != "" {
				assert.Equal(t, tt.message, decodeError(t, w))
				return
			}
			assert.JSONEq(t, `{"user":"u-staff","ctx_user":"u-staff"}`, w.Body.String())
		})
	}
}

func TestRequireSession_ClearsStaleCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "old"})
	w := httptest.NewRecorder()
	newRouter().ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.Equal(t, "", cookies[0].Value)
	assert.True(t, cookies[0].MaxAge < 0)
}

func TestRequireCapability(t *testing.T) {
	router := newRouter(lifecycle.CapManagePayments)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer staff")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Access denied: missing capability 'payments.manage'", decodeError(t, w))

	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer finance")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireCapability_WithoutSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", RequireCapability(lifecycle.CapApproveRequests), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	SetSessionCookie(c, "tok", time.Now().Add(time.Hour))
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "tok", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.False(t, cookies[0].Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	assert.InDelta(t, 3600, cookies[0].MaxAge, 5)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Set(ContextSecureCookies, true)
	ClearSessionCookie(c)
	cookies = w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, http.SameSiteNoneMode, cookies[0].SameSite)
	assert.True(t, cookies[0].MaxAge < 0)
}

func TestCookiePolicy(t *testing.T) {
	gin.SetMode(gin.TestMode)

	for _, secure := range []bool{false, true} {
		t.Run(fmt.Sprintf("secure=%v", secure), func(t *testing.T) {
			r := gin.New()
			r.Use(CookiePolicy(secure))
			r.POST("/login", func(c *gin.Context) {
				SetSessionCookie(c, "tok", time.Now().Add(time.Hour))
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))

			cookies := w.Result().Cookies()
			require.Len(t, cookies, 1)
			assert.Equal(t, secure, cookies[0].Secure)
			if secure {
				assert.Equal(t, http.SameSiteNoneMode, cookies[0].SameSite)
			} else {
				assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
			}
		})
	}
}
