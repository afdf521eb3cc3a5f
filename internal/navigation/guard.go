// Package navigation implements the console's navigation guard: the
// single ordered policy that decides, for every navigation target,
// whether to proceed or where to redirect instead.
package navigation

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/cinedesk/cinedesk/internal/audit"
	"github.com/cinedesk/cinedesk/internal/domain/route"
	"github.com/cinedesk/cinedesk/internal/metrics"
	"github.com/cinedesk/cinedesk/internal/routes"
	"github.com/cinedesk/cinedesk/internal/session"
)

// Action is the guard's verdict for a navigation.
type Action string

const (
	// ActionProceed lets the navigation through to its target.
	ActionProceed Action = "proceed"
	// ActionRedirect sends the navigation to Decision.Location instead.
	ActionRedirect Action = "redirect"
)

// Decision reasons, recorded in metrics and the audit log.
const (
	ReasonOK                = "ok"
	ReasonUnmatched         = "unmatched"
	ReasonRouteRedirect     = "route_redirect"
	ReasonGuestOnly         = "guest_only"
	ReasonAuthRequired      = "auth_required"
	ReasonSuperAdmin        = "superadmin"
	ReasonNotAdmin          = "not_admin"
	ReasonMissingPermission = "missing_permission"
)

// Decision is the outcome of guarding one navigation.
type Decision struct {
	Action   Action
	Location string
	Reason   string
}

// Redirected reports whether the navigation was diverted.
func (d Decision) Redirected() bool { return d.Action == ActionRedirect }

// SessionState is the slice of the session store the guard needs.
type SessionState interface {
	Initialize(ctx context.Context) error
	Snapshot() session.Snapshot
	DropArtifacts()
}

// PermissionEvaluator is the slice of the permission store the guard needs.
type PermissionEvaluator interface {
	InitializeForSession(ctx context.Context) error
	RouteAllowed(chain route.Chain) bool
}

// Guard evaluates navigations against the route table, the session, and
// the permission grant.
type Guard struct {
	table    *routes.Table
	sessions SessionState
	perms    PermissionEvaluator
	logger   *slog.Logger
	metrics  *metrics.Metrics
	auditLog *audit.Log
}

// NewGuard creates a navigation guard. auditLog may be nil.
func NewGuard(table *routes.Table, sessions SessionState, perms PermissionEvaluator, logger *slog.Logger, m *metrics.Metrics, auditLog *audit.Log) *Guard {
	return &Guard{
		table:    table,
		sessions: sessions,
		perms:    perms,
		logger:   logger,
		metrics:  m,
		auditLog: auditLog,
	}
}

// Decide evaluates one navigation target. The checks run in a fixed
// order: restore the session, bounce authenticated users off guest-only
// screens, send anonymous users to login (with a return target), let
// superadmins through before any permission work, load permissions,
// enforce the admin tier, and finally evaluate the merged permission
// requirement. A permission denial lands on the dashboard unless the
// dashboard itself was the target or the origin the navigation came
// from, which would loop; that lands on the not-found screen instead.
// origin may be empty when the navigation has no prior location.
func (g *Guard) Decide(ctx context.Context, target, origin string) (Decision, error) {
	if err := g.sessions.Initialize(ctx); err != nil {
		return Decision{}, err
	}

	match, ok := g.table.Match(target)
	if !ok {
		return g.finish(target, Decision{Action: ActionRedirect, Location: routes.NotFoundPath, Reason: ReasonUnmatched}), nil
	}
	if match.Redirect != "" {
		return g.finish(target, Decision{Action: ActionRedirect, Location: match.Redirect, Reason: ReasonRouteRedirect}), nil
	}

	snap := g.sessions.Snapshot()

	if match.Chain.RequiresGuest() && snap.Authenticated() {
		return g.finish(target, Decision{Action: ActionRedirect, Location: routes.DashboardPath, Reason: ReasonGuestOnly}), nil
	}

	if match.Chain.RequiresAuth() && !snap.Authenticated() {
		// A user record or refresh token without an access token is a
		// leftover from a broken session; drop it before bouncing.
		g.sessions.DropArtifacts()
		loc := routes.LoginPath + "?redirect=" + url.QueryEscape(match.Path)
		return g.finish(target, Decision{Action: ActionRedirect, Location: loc, Reason: ReasonAuthRequired}), nil
	}

	if !match.Chain.RequiresAuth() {
		return g.finish(target, Decision{Action: ActionProceed, Reason: ReasonOK}), nil
	}

	// Superadmins skip permission loading entirely.
	if snap.SuperAdmin() {
		return g.finish(target, Decision{Action: ActionProceed, Reason: ReasonSuperAdmin}), nil
	}

	if err := g.perms.InitializeForSession(ctx); err != nil {
		// A failed load leaves the store fail-closed; fall through so
		// the denial path below picks the redirect.
		g.logger.Warn("permission load failed during navigation", "target", target, "error", err)
	}

	if match.Chain.RequiresAdmin() && !snap.AdminTier() {
		return g.finish(target, Decision{Action: ActionRedirect, Location: routes.NotFoundPath, Reason: ReasonNotAdmin}), nil
	}

	if !g.perms.RouteAllowed(match.Chain) {
		loc := routes.DashboardPath
		if match.Path == routes.DashboardPath || g.isDashboard(origin) {
			// Denied on the fallback target itself, or coming from it;
			// redirecting there again would loop forever.
			loc = routes.NotFoundPath
		}
		return g.finish(target, Decision{Action: ActionRedirect, Location: loc, Reason: ReasonMissingPermission}), nil
	}

	return g.finish(target, Decision{Action: ActionProceed, Reason: ReasonOK}), nil
}

func (g *Guard) isDashboard(location string) bool {
	if location == "" {
		return false
	}
	m, ok := g.table.Match(location)
	return ok && m.Path == routes.DashboardPath
}

func (g *Guard) finish(target string, d Decision) Decision {
	g.metrics.IncGuardDecision(string(d.Action), d.Reason)
	if d.Redirected() {
		g.logger.Debug("navigation redirected", "target", target, "to", d.Location, "reason", d.Reason)
	}
	g.auditLog.Record(audit.Event{
		Kind:    audit.KindGuardDecision,
		Target:  target,
		Outcome: string(d.Action),
		Reason:  d.Reason,
	})
	return d
}
