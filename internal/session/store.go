// Package session owns the authenticated session: tokens, the current
// user record, and their persistence in the local vault. Components that
// care about auth state subscribe to snapshots instead of polling.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cinedesk/cinedesk/internal/domain/identity"
	"github.com/cinedesk/cinedesk/internal/restclient"
	"github.com/cinedesk/cinedesk/internal/storage"
)

// ErrNoSession indicates an operation that needs an authenticated
// session was called without one.
var ErrNoSession = errors.New("session: not authenticated")

// API is the slice of the backend client the session store needs.
type API interface {
	Login(ctx context.Context, req restclient.LoginRequest) (*restclient.LoginResult, error)
	Logout(ctx context.Context) error
	Profile(ctx context.Context) (*identity.User, error)
	UpdateProfile(ctx context.Context, fields map[string]any) (*identity.User, error)
	ChangePassword(ctx context.Context, req restclient.ChangePasswordRequest) error
}

// Credentials is a login attempt.
type Credentials struct {
	Phone    string
	Password string
	Remember bool
}

// Snapshot is an immutable view of the session at one point in time.
type Snapshot struct {
	Token        string
	RefreshToken string
	User         *identity.User
	Initialized  bool
}

// Authenticated reports whether a token is present.
func (s Snapshot) Authenticated() bool { return s.Token != "" }

// Role returns the effective role, defaulting to RoleUser.
func (s Snapshot) Role() identity.Role { return s.User.EffectiveRole() }

// SuperAdmin reports whether the session belongs to a superadmin.
func (s Snapshot) SuperAdmin() bool { return s.Role() == identity.RoleSuperAdmin }

// AdminTier reports whether the session may enter the console shell.
func (s Snapshot) AdminTier() bool { return s.Role().AdminTier() }

// Store holds the session state. All methods are safe for concurrent use.
type Store struct {
	api    API
	vault  *storage.Vault
	logger *slog.Logger
	now    func() time.Time

	mu           sync.Mutex
	token        string
	refreshToken string
	user         *identity.User
	initialized  bool

	subs    map[int]func(Snapshot)
	nextSub int

	// initMu serializes Initialize so concurrent callers share one
	// revalidation round trip.
	initMu sync.Mutex
}

// NewStore creates a session store hydrated from the vault. A stored
// user record that fails to decode is treated as absent.
func NewStore(api API, vault *storage.Vault, logger *slog.Logger) *Store {
	s := &Store{
		api:    api,
		vault:  vault,
		logger: logger,
		now:    time.Now,
		subs:   make(map[int]func(Snapshot)),
	}
	if tok, ok := vault.Get(storage.KeyAccessToken); ok {
		s.token = tok
	}
	if rt, ok := vault.Get(storage.KeyRefreshToken); ok {
		s.refreshToken = rt
	}
	if raw, ok := vault.Get(storage.KeyUser); ok {
		var u identity.User
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			logger.Warn("stored user record unreadable, discarding", "error", err)
		} else {
			s.user = &u
		}
	}
	return s
}

// Snapshot returns the current session state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Token:        s.token,
		RefreshToken: s.refreshToken,
		User:         s.user,
		Initialized:  s.initialized,
	}
}

// Token returns the current access token, or "" when signed out. It is
// the client's token provider.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
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

// notifyLocked snapshots state and subscribers; callbacks run after the
// lock is released.
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

// Initialize restores the session on startup. With a stored token and
// user the profile is revalidated against the backend; with only a token
// the profile is fetched fresh. Any failure clears the session rather
// than trusting stale artifacts. Safe to call more than once; later
// calls are no-ops.
func (s *Store) Initialize(ctx context.Context) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return nil
	}
	token := s.token
	s.mu.Unlock()

	if token == "" {
		s.markInitialized()
		return nil
	}

	if tokenExpired(token, s.now()) {
		s.logger.Info("stored token expired, clearing session")
		s.DropArtifacts()
		s.markInitialized()
		return nil
	}

	user, err := s.api.Profile(ctx)
	if err != nil {
		s.logger.Warn("session revalidation failed, clearing session", "error", err)
		s.DropArtifacts()
		s.markInitialized()
		return nil
	}

	s.mu.Lock()
	s.user = user
	s.initialized = true
	notify := s.notifyLocked()
	s.mu.Unlock()
	s.persistUser(user)
	notify()
	return nil
}

func (s *Store) markInitialized() {
	s.mu.Lock()
	s.initialized = true
	notify := s.notifyLocked()
	s.mu.Unlock()
	notify()
}

// Login authenticates and commits the resulting session.
func (s *Store) Login(ctx context.Context, creds Credentials) (*identity.User, error) {
	res, err := s.api.Login(ctx, restclient.LoginRequest{
		Phone:    creds.Phone,
		Password: creds.Password,
		Remember: creds.Remember,
	})
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s.mu.Lock()
	s.token = res.AccessToken
	s.refreshToken = res.RefreshToken
	s.user = res.User
	s.initialized = true
	notify := s.notifyLocked()
	s.mu.Unlock()

	s.persistToken(res.AccessToken, res.RefreshToken)
	s.persistUser(res.User)
	notify()
	return res.User, nil
}

// Logout ends the session. Local state, including the initialization
// flag, is cleared first so the user is signed out even when the backend
// call fails. A later Initialize starts a fresh lifecycle.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	s.token = ""
	s.refreshToken = ""
	s.user = nil
	s.initialized = false
	notify := s.notifyLocked()
	s.mu.Unlock()

	s.clearVault()
	notify()

	if err := s.api.Logout(ctx); err != nil {
		s.logger.Warn("backend logout failed, session cleared locally", "error", err)
	}
}

// FetchProfile refreshes the current user record from the backend.
func (s *Store) FetchProfile(ctx context.Context) (*identity.User, error) {
	if s.Token() == "" {
		return nil, ErrNoSession
	}
	user, err := s.api.Profile(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}

	s.mu.Lock()
	s.user = user
	notify := s.notifyLocked()
	s.mu.Unlock()
	s.persistUser(user)
	notify()
	return user, nil
}

// UpdateProfile pushes profile field changes and commits the refreshed
// user record.
func (s *Store) UpdateProfile(ctx context.Context, fields map[string]any) (*identity.User, error) {
	if s.Token() == "" {
		return nil, ErrNoSession
	}
	user, err := s.api.UpdateProfile(ctx, fields)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	s.mu.Lock()
	s.user = user
	notify := s.notifyLocked()
	s.mu.Unlock()
	s.persistUser(user)
	notify()
	return user, nil
}

// ChangePassword changes the signed-in user's password. Session state is
// untouched; the backend keeps the current token valid.
func (s *Store) ChangePassword(ctx context.Context, current, next string) error {
	if s.Token() == "" {
		return ErrNoSession
	}
	err := s.api.ChangePassword(ctx, restclient.ChangePasswordRequest{
		CurrentPassword: current,
		NewPassword:     next,
		ConfirmPassword: next,
	})
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	return nil
}

// DropArtifacts clears the session from memory and the vault without
// touching the backend. The initialization flag is kept: the lifecycle
// has still run, there is just no session anymore.
func (s *Store) DropArtifacts() {
	s.mu.Lock()
	s.token = ""
	s.refreshToken = ""
	s.user = nil
	notify := s.notifyLocked()
	s.mu.Unlock()

	s.clearVault()
	notify()
}

func (s *Store) clearVault() {
	for _, key := range []string{storage.KeyAccessToken, storage.KeyRefreshToken, storage.KeyUser} {
		if err := s.vault.Delete(key); err != nil {
			s.logger.Warn("failed to clear vault key", "key", key, "error", err)
		}
	}
}

func (s *Store) persistToken(token, refresh string) {
	if err := s.vault.Set(storage.KeyAccessToken, token); err != nil {
		s.logger.Warn("failed to persist access token", "error", err)
	}
	if refresh == "" {
		if err := s.vault.Delete(storage.KeyRefreshToken); err != nil {
			s.logger.Warn("failed to clear refresh token", "error", err)
		}
		return
	}
	if err := s.vault.Set(storage.KeyRefreshToken, refresh); err != nil {
		s.logger.Warn("failed to persist refresh token", "error", err)
	}
}

func (s *Store) persistUser(user *identity.User) {
	if user == nil {
		if err := s.vault.Delete(storage.KeyUser); err != nil {
			s.logger.Warn("failed to clear user record", "error", err)
		}
		return
	}
	raw, err := json.Marshal(user)
	if err != nil {
		s.logger.Warn("failed to encode user record", "error", err)
		return
	}
	if err := s.vault.Set(storage.KeyUser, string(raw)); err != nil {
		s.logger.Warn("failed to persist user record", "error", err)
	}
}

// tokenExpired peeks at the token's exp claim without verifying the
// signature; verification is the backend's job. Opaque tokens or tokens
// without exp are assumed live and left for the backend to reject.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Time.Before(now)
}
