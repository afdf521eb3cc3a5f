// Package permission holds the current user's granted permission set and
// answers every "can they?" question in the console. Local predicates are
// fail-closed: until a grant has been loaded, everything is denied unless
// the session belongs to a superadmin, who bypasses all checks.
package permission

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cinedesk/cinedesk/internal/domain/identity"
	"github.com/cinedesk/cinedesk/internal/domain/rbac"
	"github.com/cinedesk/cinedesk/internal/metrics"
	"github.com/cinedesk/cinedesk/internal/restclient"
	"github.com/cinedesk/cinedesk/internal/session"
)

const (
	defaultFreshness = 5 * time.Minute
	defaultCacheTTL  = 30 * time.Second
	defaultCacheSize = 256
)

// API is the slice of the backend client the permission store needs.
type API interface {
	MyPermissions(ctx context.Context) (*restclient.PermissionGrant, error)
	CheckPermissions(ctx context.Context, req restclient.CheckRequest) (bool, error)
}

// SessionSource exposes the current session snapshot.
type SessionSource interface {
	Snapshot() session.Snapshot
}

// Snapshot is an immutable view of the permission state.
type Snapshot struct {
	Set        rbac.Set
	Role       string
	SuperAdmin bool
	Loaded     bool
	FetchedAt  time.Time
}

// Config tunes the store. Zero values select the defaults.
type Config struct {
	// Freshness is how long a loaded grant is trusted before a
	// non-forced fetch refetches it.
	Freshness time.Duration
	// DecisionCacheTTL bounds how long a server-side check verdict is
	// reused.
	DecisionCacheTTL time.Duration
	// DecisionCacheSize is the LRU capacity for check verdicts.
	DecisionCacheSize int
}

type decisionEntry struct {
	verdict bool
	at      time.Time
}

// Store holds the permission state. All methods are safe for concurrent use.
type Store struct {
	api      API
	sessions SessionSource
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	freshness time.Duration
	cacheTTL  time.Duration

	mu         sync.Mutex
	set        rbac.Set
	role       string
	superAdmin bool
	loaded     bool
	fetchedAt  time.Time

	// generation invalidates in-flight fetches: a Clear during a fetch
	// wins over the response that arrives afterwards.
	generation uint64

	decisions *lru.Cache[uint64, decisionEntry]

	subs    map[int]func(Snapshot)
	nextSub int
}

// NewStore creates a permission store.
func NewStore(api API, sessions SessionSource, cfg Config, logger *slog.Logger, m *metrics.Metrics) *Store {
	if cfg.Freshness <= 0 {
		cfg.Freshness = defaultFreshness
	}
	if cfg.DecisionCacheTTL <= 0 {
		cfg.DecisionCacheTTL = defaultCacheTTL
	}
	if cfg.DecisionCacheSize <= 0 {
		cfg.DecisionCacheSize = defaultCacheSize
	}
	cache, err := lru.New[uint64, decisionEntry](cfg.DecisionCacheSize)
	if err != nil {
		// Only reachable with a non-positive size, which is normalized above.
		panic(err)
	}
	return &Store{
		api:       api,
		sessions:  sessions,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
		freshness: cfg.Freshness,
		cacheTTL:  cfg.DecisionCacheTTL,
		decisions: cache,
		subs:      make(map[int]func(Snapshot)),
	}
}

// Snapshot returns the current permission state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Set:        s.set,
		Role:       s.role,
		SuperAdmin: s.superAdmin,
		Loaded:     s.loaded,
		FetchedAt:  s.fetchedAt,
	}
}

// Subscribe registers a callback invoked after every state change. The
// returned function unregisters it.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) notifyLocked() func() {
	snap := s.snapshotLocked()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	return func() {
		for _, fn := range fns {
			fn(snap)
		}
	}
}

// bypass reports whether the current session skips permission checks
// entirely.
func (s *Store) bypass() bool {
	if s.sessions == nil {
		return false
	}
	return s.sessions.Snapshot().SuperAdmin()
}

func (s *Store) authenticated() bool {
	if s.sessions == nil {
		return false
	}
	return s.sessions.Snapshot().Authenticated()
}

// Has reports whether exactly this permission is granted. An unknown or
// not-yet-loaded state denies.
func (s *Store) Has(permission string) bool {
	if !s.authenticated() {
		return false
	}
	if s.bypass() {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return false
	}
	return s.set.Contains(permission)
}

// HasAny reports whether at least one of the permissions is granted. An
// empty list grants nothing.
func (s *Store) HasAny(permissions []string) bool {
	if !s.authenticated() {
		return false
	}
	if s.bypass() {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return false
	}
	return s.set.ContainsAny(permissions)
}

// HasAll reports whether every permission is granted. An empty list is
// vacuously satisfied.
func (s *Store) HasAll(permissions []string) bool {
	if !s.authenticated() {
		return false
	}
	if s.bypass() {
		return true
	}
	if len(permissions) == 0 {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return false
	}
	return s.set.ContainsAll(permissions)
}

// HasOneOf is the list form of Has: a single identifier demands exact
// membership, a list is satisfied by any member.
func (s *Store) HasOneOf(permissions []string) bool {
	if len(permissions) == 1 {
		return s.Has(permissions[0])
	}
	return s.HasAny(permissions)
}

// CanView reports view access to a module.
func (s *Store) CanView(m rbac.Module) bool { return s.Has(rbac.ID(m, rbac.ActionView)) }

// CanCreate reports create access to a module.
func (s *Store) CanCreate(m rbac.Module) bool { return s.Has(rbac.ID(m, rbac.ActionCreate)) }

// CanEdit reports edit access to a module.
func (s *Store) CanEdit(m rbac.Module) bool { return s.Has(rbac.ID(m, rbac.ActionEdit)) }

// CanDelete reports delete access to a module.
func (s *Store) CanDelete(m rbac.Module) bool { return s.Has(rbac.ID(m, rbac.ActionDelete)) }

// CanManage reports manage access to a module.
func (s *Store) CanManage(m rbac.Module) bool { return s.Has(rbac.ID(m, rbac.ActionManage)) }

// Fetch loads the grant from the backend. Without force, a grant still
// inside the freshness window is kept as is. A Clear that happens while
// the request is in flight wins over its response. A failed fetch clears
// the store rather than leaving stale or partial data behind.
func (s *Store) Fetch(ctx context.Context, force bool) error {
	if !s.authenticated() {
		s.Clear()
		return nil
	}

	s.mu.Lock()
	if !force && s.loaded && s.now().Sub(s.fetchedAt) < s.freshness {
		s.mu.Unlock()
		s.metrics.IncPermissionFetch("skipped")
		return nil
	}
	gen := s.generation
	s.mu.Unlock()

	grant, err := s.api.MyPermissions(ctx)
	if err != nil {
		s.metrics.IncPermissionFetch("error")
		s.logger.Warn("permission fetch failed, clearing grant", "error", err)
		s.clearIfGeneration(gen)
		return fmt.Errorf("fetch permissions: %w", err)
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		s.logger.Debug("discarding permission fetch superseded by clear")
		s.metrics.IncPermissionFetch("stale")
		return nil
	}
	s.set = rbac.NewSet(grant.Permissions, grant.Details)
	s.role = grant.Role
	s.superAdmin = grant.SuperAdmin
	s.loaded = true
	s.fetchedAt = s.now()
	notify := s.notifyLocked()
	s.mu.Unlock()

	s.metrics.IncPermissionFetch("ok")
	notify()
	return nil
}

// Refresh force-reloads the grant. Used when the user's role changes.
func (s *Store) Refresh(ctx context.Context) error {
	return s.Fetch(ctx, true)
}

// InitializeForSession loads permissions for a freshly authenticated
// session. Superadmins skip the fetch entirely; their state is marked
// loaded with an empty set since every predicate bypasses it anyway.
func (s *Store) InitializeForSession(ctx context.Context) error {
	snap := s.sessions.Snapshot()
	if !snap.Authenticated() {
		s.Clear()
		return nil
	}
	if snap.SuperAdmin() {
		s.mu.Lock()
		s.set = rbac.NewSet(nil, nil)
		s.role = string(identity.RoleSuperAdmin)
		s.superAdmin = true
		s.loaded = true
		s.fetchedAt = s.now()
		notify := s.notifyLocked()
		s.mu.Unlock()
		s.metrics.IncPermissionFetch("skipped")
		notify()
		return nil
	}
	return s.Fetch(ctx, false)
}

// clearIfGeneration resets the grant unless a Clear already superseded
// the fetch that observed gen.
func (s *Store) clearIfGeneration(gen uint64) {
	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return
	}
	s.set = rbac.Set{}
	s.role = ""
	s.superAdmin = false
	s.loaded = false
	s.fetchedAt = time.Time{}
	notify := s.notifyLocked()
	s.mu.Unlock()
	notify()
}

// Clear wipes the permission state and the decision cache. Any fetch in
// flight when Clear runs is discarded on arrival.
func (s *Store) Clear() {
	s.mu.Lock()
	s.set = rbac.Set{}
	s.role = ""
	s.superAdmin = false
	s.loaded = false
	s.fetchedAt = time.Time{}
	s.generation++
	notify := s.notifyLocked()
	s.mu.Unlock()

	s.decisions.Purge()
	notify()
}

// CheckRemote asks the backend to evaluate a requirement, memoizing
// verdicts briefly. Any error denies.
func (s *Store) CheckRemote(ctx context.Context, permissions []string, requireAll bool) bool {
	if !s.authenticated() {
		return false
	}
	if s.bypass() {
		return true
	}

	key := decisionKey(permissions, requireAll)
	if entry, ok := s.decisions.Get(key); ok && s.now().Sub(entry.at) < s.cacheTTL {
		s.metrics.IncDecisionCache("hit")
		return entry.verdict
	}
	s.metrics.IncDecisionCache("miss")

	verdict, err := s.api.CheckPermissions(ctx, restclient.CheckRequest{
		Permissions: permissions,
		RequireAll:  requireAll,
	})
	if err != nil {
		s.logger.Warn("server-side permission check failed, denying", "error", err)
		return false
	}
	s.decisions.Add(key, decisionEntry{verdict: verdict, at: s.now()})
	return verdict
}

// decisionKey hashes a requirement into a cache key. Order of the
// permission list does not matter.
func decisionKey(permissions []string, requireAll bool) uint64 {
	sorted := make([]string, len(permissions))
	copy(sorted, permissions)
	sort.Strings(sorted)

	h := xxhash.New()
	if requireAll {
		h.WriteString("all:")
	} else {
		h.WriteString("any:")
	}
	h.WriteString(strings.Join(sorted, "\x00"))
	return h.Sum64()
}
