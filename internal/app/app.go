// Package app assembles the console core: client, session store,
// permission store, guard, and view binder, plus the wiring between
// them that keeps each piece reacting to the others.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cinedesk/cinedesk/internal/audit"
	"github.com/cinedesk/cinedesk/internal/config"
	"github.com/cinedesk/cinedesk/internal/domain/identity"
	"github.com/cinedesk/cinedesk/internal/metrics"
	"github.com/cinedesk/cinedesk/internal/navigation"
	"github.com/cinedesk/cinedesk/internal/permission"
	"github.com/cinedesk/cinedesk/internal/restclient"
	"github.com/cinedesk/cinedesk/internal/routes"
	"github.com/cinedesk/cinedesk/internal/session"
	"github.com/cinedesk/cinedesk/internal/storage"
	"github.com/cinedesk/cinedesk/internal/view"
)

// maxRedirectHops bounds how many guard redirects one navigation may
// follow before it is declared a loop.
const maxRedirectHops = 10

// ErrRedirectLoop indicates a navigation that never settled.
var ErrRedirectLoop = errors.New("app: navigation redirect loop")

// App is the assembled console core.
type App struct {
	Client      *restclient.Client
	Sessions    *session.Store
	Permissions *permission.Store
	Guard       *navigation.Guard
	Binder      *view.Binder
	Audit       *audit.Log

	cfg      *config.Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
	registry *prometheus.Registry

	mu       sync.Mutex
	location string
	unsubs   []func()

	lastAuthed bool
	lastRole   identity.Role
}

// New builds and wires the console core from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{
		cfg:      cfg,
		logger:   logger,
		location: routes.LoginPath,
	}

	if cfg.Metrics.Enabled {
		a.registry = prometheus.NewRegistry()
		a.metrics = metrics.New(a.registry)
	}

	if cfg.AuditEnabled() {
		log, err := audit.Open(audit.Config{
			Path:          cfg.Audit.Path,
			MaxFileSizeMB: cfg.Audit.MaxFileSizeMB,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("open audit log: %w", err)
		}
		a.Audit = log
	}

	vault := storage.NewVault(cfg.Vault.Path, logger)

	a.Client = restclient.New(restclient.Config{
		BaseURL: cfg.APIRoot(),
		Timeout: cfg.API.Timeout,
	}, logger, restclient.WithMetrics(a.metrics))

	a.Sessions = session.NewStore(a.Client, vault, logger)
	a.Permissions = permission.NewStore(a.Client, a.Sessions, permission.Config{
		Freshness:         cfg.Permissions.Freshness,
		DecisionCacheTTL:  cfg.Permissions.DecisionCacheTTL,
		DecisionCacheSize: cfg.Permissions.DecisionCacheSize,
	}, logger, a.metrics)

	table, err := routes.Load()
	if err != nil {
		return nil, fmt.Errorf("load route table: %w", err)
	}
	a.Guard = navigation.NewGuard(table, a.Sessions, a.Permissions, logger, a.metrics, a.Audit)
	a.Binder = view.NewBinder(a.Permissions, a.Sessions)

	a.Client.SetTokenProvider(a.Sessions.Token)
	a.Client.SetUnauthorizedHandler(a.handleUnauthorized)

	snap := a.Sessions.Snapshot()
	a.lastAuthed = snap.Authenticated()
	a.lastRole = snap.Role()

	a.unsubs = append(a.unsubs,
		a.Sessions.Subscribe(a.onSessionChange),
		a.Permissions.Subscribe(func(permission.Snapshot) { a.Binder.Rebind() }),
	)

	return a, nil
}

// handleUnauthorized is the single 401 path: drop the session locally
// and land on the login screen. The client guarantees only one of these
// runs per 401 burst.
func (a *App) handleUnauthorized() {
	snap := a.Sessions.Snapshot()
	actor := ""
	if snap.User != nil {
		actor = snap.User.ID
	}
	a.Audit.Record(audit.Event{
		Kind:    audit.KindUnauthorized,
		Actor:   actor,
		Outcome: "logged_out",
	})
	a.Sessions.DropArtifacts()
	a.setLocation(routes.LoginPath)
}

// onSessionChange keeps the permission store in step with the session:
// signing in loads permissions, signing out clears them, and a role
// change forces a refresh.
func (a *App) onSessionChange(snap session.Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.API.Timeout)
	defer cancel()

	authed := snap.Authenticated()
	role := snap.Role()

	a.mu.Lock()
	wasAuthed, wasRole := a.lastAuthed, a.lastRole
	a.lastAuthed, a.lastRole = authed, role
	a.mu.Unlock()

	switch {
	case authed && !wasAuthed:
		if err := a.Permissions.InitializeForSession(ctx); err != nil {
			a.logger.Warn("permission load after sign-in failed", "error", err)
		}
	case !authed && wasAuthed:
		a.Permissions.Clear()
	case authed && role != wasRole:
		a.logger.Info("role changed, refreshing permissions", "from", wasRole, "to", role)
		a.Audit.Record(audit.Event{
			Kind:    audit.KindPermissionRefresh,
			Reason:  "role_change",
			Outcome: string(role),
		})
		if err := a.Permissions.Refresh(ctx); err != nil {
			a.logger.Warn("permission refresh after role change failed", "error", err)
		}
	}
}

// Navigate runs the guard on a target and follows its redirects until a
// navigation proceeds. The last settled location is the origin for every
// hop, matching how a router reports "from" while redirects cascade.
// Returns the settled location.
func (a *App) Navigate(ctx context.Context, target string) (string, error) {
	origin := a.Location()
	current := target
	for hop := 0; hop < maxRedirectHops; hop++ {
		decision, err := a.Guard.Decide(ctx, current, origin)
		if err != nil {
			return "", err
		}
		if !decision.Redirected() {
			a.setLocation(current)
			return current, nil
		}
		current = decision.Location
	}
	return "", fmt.Errorf("%w: gave up at %s", ErrRedirectLoop, current)
}

// Location returns the last settled navigation target.
func (a *App) Location() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.location
}

func (a *App) setLocation(loc string) {
	a.mu.Lock()
	a.location = loc
	a.mu.Unlock()
}

// MetricsHandler serves the Prometheus registry, or nil when metrics
// are disabled.
func (a *App) MetricsHandler() http.Handler {
	if a.registry == nil {
		return nil
	}
	return promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})
}

// Close detaches watchers and closes the audit log.
func (a *App) Close() error {
	for _, unsub := range a.unsubs {
		unsub()
	}
	a.unsubs = nil
	return a.Audit.Close()
}
