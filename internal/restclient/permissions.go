package restclient

import (
	"context"
	"errors"
	"net/http"

	"github.com/cinedesk/cinedesk/internal/domain/rbac"
)

// ErrGrantRejected indicates the backend answered the permission
// endpoint with success=false.
var ErrGrantRejected = errors.New("restclient: permission grant rejected")

// PermissionGrant is the authoritative permission set for the current user.
type PermissionGrant struct {
	Permissions []string
	Details     []rbac.Detail
	Role        string
	SuperAdmin  bool
}

// MyPermissions fetches the current user's permission grant.
func (c *Client) MyPermissions(ctx context.Context) (*PermissionGrant, error) {
	var env struct {
		Success bool `json:"success"`
		Data    struct {
			Permissions       []string      `json:"permissions"`
			PermissionDetails []rbac.Detail `json:"permissionDetails"`
			Role              string        `json:"role"`
			IsSuperAdmin      bool          `json:"isSuperAdmin"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/permissions/me", nil, &env); err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, ErrGrantRejected
	}
	return &PermissionGrant{
		Permissions: env.Data.Permissions,
		Details:     env.Data.PermissionDetails,
		Role:        env.Data.Role,
		SuperAdmin:  env.Data.IsSuperAdmin,
	}, nil
}

// CheckRequest is the server-side permission check payload.
type CheckRequest struct {
	Permissions []string `json:"permissions"`
	RequireAll  bool     `json:"requireAll"`
}

// CheckPermissions asks the backend to evaluate a permission requirement
// for the current user. The verdict is false unless the backend answers
// success with an explicit grant.
func (c *Client) CheckPermissions(ctx context.Context, req CheckRequest) (bool, error) {
	var env struct {
		Success bool `json:"success"`
		Data    struct {
			HasPermission bool `json:"hasPermission"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/permissions/check", req, &env); err != nil {
		return false, err
	}
	return env.Success && env.Data.HasPermission, nil
}
