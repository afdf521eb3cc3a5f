package permission

import (
	"context"

	"github.com/cinedesk/cinedesk/internal/domain/route"
)

// EvaluateRequirement answers a merged route requirement against the
// local grant. A requirement that declares no permissions grants access;
// otherwise the requireAll flag selects ALL or ANY semantics. The
// predicates handle the unauthenticated and superadmin cases, in that
// order.
func (s *Store) EvaluateRequirement(req route.Requirement) bool {
	if !req.Declared || len(req.Permissions) == 0 {
		return true
	}
	if req.RequireAll {
		return s.HasAll(req.Permissions)
	}
	return s.HasAny(req.Permissions)
}

// RouteAllowed merges a matched route's meta chain and evaluates it.
func (s *Store) RouteAllowed(chain route.Chain) bool {
	return s.EvaluateRequirement(route.Resolve(chain))
}

// EnsureFresh fetches the grant if the freshness window has lapsed.
func (s *Store) EnsureFresh(ctx context.Context) error {
	return s.Fetch(ctx, false)
}
