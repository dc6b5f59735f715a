package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"procurement/internal/lifecycle"
	"procurement/internal/session"
	"procurement/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	// SessionCookie holds the opaque gateway session token.
	SessionCookie = "session_token"

	ContextUserID        = "userID"
	ContextSecureCookies = "secureCookies"
)

// SessionLookup resolves a session token.
type SessionLookup interface {
	Lookup(ctx context.Context, token string) (*session.Session, error)
}

// CookiePolicy tells the cookie helpers whether the deployment is cross-site
// over TLS. Install it on the router before any route that sets cookies.
func CookiePolicy(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextSecureCookies, secure)
		c.Next()
	}
}

func cookieMode(c *gin.Context) (http.SameSite, bool) {
	// Production (cross-origin): SameSiteNoneMode + Secure=true
	// Development (same-site): SameSiteLaxMode + Secure=false
	if c.GetBool(ContextSecureCookies) {
		return http.SameSiteNoneMode, true
	}
	return http.SameSiteLaxMode, false
}

// SetSessionCookie stores token as an HttpOnly cookie that lives until expiresAt.
func SetSessionCookie(c *gin.Context, token string, expiresAt time.Time) {
	sameSite, secure := cookieMode(c)
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 1 {
		maxAge = -1
	}
	c.SetSameSite(sameSite)
	c.SetCookie(SessionCookie, token, maxAge, "/", "", secure, true)
}

// ClearSessionCookie removes the session cookie.
func ClearSessionCookie(c *gin.Context) {
	sameSite, secure := cookieMode(c)
	c.SetSameSite(sameSite)
	c.SetCookie(SessionCookie, "", -1, "/", "", secure, true)
}

// SessionToken reads the session token from the cookie, falling back to the
// Authorization header. The returned message explains a missing token.
func SessionToken(c *gin.Context) (string, string) {
	if token, err := c.Cookie(SessionCookie); err == nil && token != "" {
		return token, ""
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", "Authorization is missing"
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", "Invalid authorization format. Expected 'Bearer <token>'"
	}
	return parts[1], ""
}

// RequireSession resolves the caller's session and puts it in the request context.
func RequireSession(sessions SessionLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, msg := SessionToken(c)
		if token == "" {
			response.Abort(c, http.StatusUnauthorized, msg)
			return
		}

		sess, err := sessions.Lookup(c.Request.Context(), token)
		switch {
		case errors.Is(err, session.ErrExpired):
			ClearSessionCookie(c)
			response.Abort(c, http.StatusUnauthorized, "Session expired, please log in again")
			return
		case errors.Is(err, session.ErrNotFound):
			ClearSessionCookie(c)
			response.Abort(c, http.StatusUnauthorized, "Invalid session")
			return
		case err != nil:
			response.Abort(c, http.StatusInternalServerError, "Failed to verify session")
			return
		}

		c.Request = c.Request.WithContext(session.WithSession(c.Request.Context(), sess))
		c.Set(ContextUserID, sess.User.ID)

		c.Next()
	}
}

// RequireCapability rejects sessions missing any of caps. It must run after RequireSession.
func RequireCapability(caps ...lifecycle.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := session.FromContext(c.Request.Context())
		if !ok {
			response.Abort(c, http.StatusUnauthorized, "Authorization is missing")
			return
		}

		for _, required := range caps {
			if !sess.Can(required) {
				response.Abort(c, http.StatusForbidden, "Access denied: missing capability '"+string(required)+"'")
				return
			}
		}

		c.Next()
	}
}
