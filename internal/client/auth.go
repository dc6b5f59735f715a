package client

import (
	"context"
	"net/http"

	"procurement/internal/model"
)

// Credentials are the login form fields.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenPair is the refresh answer. Refresh is only set when the backend rotates it.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// ProfileUpdate holds the editable profile fields.
type ProfileUpdate struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// PasswordChange is the change-password body.
type PasswordChange struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// Login exchanges credentials for backend tokens and the user profile.
func (c *Client) Login(ctx context.Context, creds Credentials) (*model.AuthResponse, error) {
	var out model.AuthResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login/", creds, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefreshToken exchanges a refresh token for a new access token.
func (c *Client) RefreshToken(ctx context.Context, refresh string) (*TokenPair, error) {
	body := struct {
		Refresh string `json:"refresh"`
	}{refresh}
	var out TokenPair
	if err := c.doJSON(ctx, http.MethodPost, "/auth/refresh/", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile replaces the caller's profile fields.
func (c *Client) UpdateProfile(ctx context.Context, in ProfileUpdate) (*model.User, error) {
	var out model.User
	if err := c.doJSON(ctx, http.MethodPut, "/auth/profile/", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChangePassword changes the caller's password.
func (c *Client) ChangePassword(ctx context.Context, in PasswordChange) error {
	return c.doJSON(ctx, http.MethodPost, "/auth/change-password/", in, nil)
}
