package restclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cinedesk/cinedesk/internal/domain/identity"
)

// ErrBadLoginEnvelope indicates the login response matched neither the
// standard envelope nor the legacy shape.
var ErrBadLoginEnvelope = errors.New("restclient: unrecognized login response")

// LoginRequest is the admin login payload.
type LoginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Remember bool   `json:"remember,omitempty"`
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         *identity.User
}

// Login authenticates against the admin login endpoint. Both the
// standard envelope ({success, data: {accessToken, refreshToken, user}})
// and the legacy flat shape ({access_token|token, refresh_token,
// user|data}) are accepted.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/auth/admin-login", req, &raw); err != nil {
		return nil, err
	}
	return decodeLoginResponse(raw)
}

func decodeLoginResponse(raw []byte) (*LoginResult, error) {
	var env struct {
		Success bool `json:"success"`
		Data    struct {
			AccessToken  string         `json:"accessToken"`
			RefreshToken string         `json:"refreshToken"`
			User         *identity.User `json:"user"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && env.Success && env.Data.AccessToken != "" {
		return &LoginResult{
			AccessToken:  env.Data.AccessToken,
			RefreshToken: env.Data.RefreshToken,
			User:         env.Data.User,
		}, nil
	}

	// Legacy backends answered with a flat object and inconsistent
	// field names.
	var legacy struct {
		AccessToken  string         `json:"access_token"`
		Token        string         `json:"token"`
		RefreshToken string         `json:"refresh_token"`
		User         *identity.User `json:"user"`
		Data         *identity.User `json:"data"`
	}
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return nil, ErrBadLoginEnvelope
	}
	token := legacy.AccessToken
	if token == "" {
		token = legacy.Token
	}
	if token == "" {
		return nil, ErrBadLoginEnvelope
	}
	user := legacy.User
	if user == nil {
		user = legacy.Data
	}
	return &LoginResult{
		AccessToken:  token,
		RefreshToken: legacy.RefreshToken,
		User:         user,
	}, nil
}

// Logout notifies the backend that the session is over. Callers clear
// local state first; a failure here is advisory.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// Profile fetches the current user's profile.
func (c *Client) Profile(ctx context.Context) (*identity.User, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/auth/profile", nil, &raw); err != nil {
		return nil, err
	}
	return decodeUserResponse(raw)
}

// UpdateProfile updates the current user's profile and returns the
// refreshed record.
func (c *Client) UpdateProfile(ctx context.Context, fields map[string]any) (*identity.User, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPut, "/auth/profile", fields, &raw); err != nil {
		return nil, err
	}
	return decodeUserResponse(raw)
}

// ChangePasswordRequest is the change-password payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// ChangePassword changes the current user's password.
func (c *Client) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	return c.do(ctx, http.MethodPut, "/auth/change-password", req, nil)
}

// decodeUserResponse tolerates the user record arriving at any of the
// nesting depths the backend has used over time: {data: {user: U}},
// {data: U}, {user: U}, or bare U.
func decodeUserResponse(raw []byte) (*identity.User, error) {
	var nested struct {
		Data struct {
			User *identity.User `json:"user"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil && nested.Data.User != nil && nested.Data.User.ID != "" {
		return nested.Data.User, nil
	}

	var flat struct {
		Data *identity.User `json:"data"`
		User *identity.User `json:"user"`
	}
	if err := json.Unmarshal(raw, &flat); err == nil {
		if flat.User != nil && flat.User.ID != "" {
			return flat.User, nil
		}
		if flat.Data != nil && flat.Data.ID != "" {
			return flat.Data, nil
		}
	}

	var bare identity.User
	if err := json.Unmarshal(raw, &bare); err != nil || bare.ID == "" {
		return nil, errors.New("restclient: no user in profile response")
	}
	return &bare, nil
}
