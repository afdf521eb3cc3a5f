package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cinedesk/cinedesk/internal/domain/identity"
	"github.com/cinedesk/cinedesk/internal/restclient"
	"github.com/cinedesk/cinedesk/internal/storage"
)

type fakeAPI struct {
	mu            sync.Mutex
	loginResult   *restclient.LoginResult
	loginErr      error
	profileUser   *identity.User
	profileErr    error
	logoutErr     error
	updatedUser   *identity.User
	updateErr     error
	passwordErr   error
	profileCalls  atomic.Int32
	logoutCalls   atomic.Int32
	passwordCalls atomic.Int32
}

func (f *fakeAPI) Login(ctx context.Context, req restclient.LoginRequest) (*restclient.LoginResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginResult, f.loginErr
}

func (f *fakeAPI) Logout(ctx context.Context) error {
	f.logoutCalls.Add(1)
	return f.logoutErr
}

func (f *fakeAPI) Profile(ctx context.Context) (*identity.User, error) {
	f.profileCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profileUser, f.profileErr
}

func (f *fakeAPI) UpdateProfile(ctx context.Context, fields map[string]any) (*identity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updatedUser, f.updateErr
}

func (f *fakeAPI) ChangePassword(ctx context.Context, req restclient.ChangePasswordRequest) error {
	f.passwordCalls.Add(1)
	return f.passwordErr
}

func newTestStore(t *testing.T, api *fakeAPI) (*Store, *storage.Vault) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	vault := storage.NewVault(filepath.Join(t.TempDir(), "vault.json"), logger)
	return NewStore(api, vault, logger), vault
}

// unsignedJWT builds a syntactically valid token with the given exp.
// The signature is garbage; only the claims are peeked at.
func unsignedJWT(t *testing.T, exp time.Time) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payload, err := json.Marshal(map[string]any{"exp": exp.Unix(), "sub": "u1"})
	if err != nil {
		t.Fatal(err)
	}
	return fmt.Sprintf("%s.%s.sig", header, base64.RawURLEncoding.EncodeToString(payload))
}

func TestLoginCommitsAndPersists(t *testing.T) {
	api := &fakeAPI{
		loginResult: &restclient.LoginResult{
			AccessToken:  "at-1",
			RefreshToken: "rt-1",
			User:         &identity.User{ID: "u1", Role: identity.RoleAdmin},
		},
	}
	store, vault := newTestStore(t, api)

	user, err := store.Login(context.Background(), Credentials{Phone: "0900", Password: "pw"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if user.ID != "u1" {
		t.Errorf("Login() user = %q, want u1", user.ID)
	}

	snap := store.Snapshot()
	if !snap.Authenticated() || snap.Token != "at-1" || snap.RefreshToken != "rt-1" {
		t.Errorf("snapshot after login = %+v", snap)
	}
	if got, ok := vault.Get(storage.KeyAccessToken); !ok || got != "at-1" {
		t.Errorf("vault access token = (%q, %v)", got, ok)
	}
	if got, ok := vault.Get(storage.KeyUser); !ok || got == "" {
		t.Errorf("vault user = (%q, %v)", got, ok)
	}
}

func TestLoginWithoutRefreshTokenClearsStoredOne(t *testing.T) {
	api := &fakeAPI{
		loginResult: &restclient.LoginResult{
			AccessToken: "at-2",
			User:        &identity.User{ID: "u1", Role: identity.RoleAdmin},
		},
	}
	store, vault := newTestStore(t, api)
	if err := vault.Set(storage.KeyRefreshToken, "stale"); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Login(context.Background(), Credentials{}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if _, ok := vault.Get(storage.KeyRefreshToken); ok {
		t.Error("stale refresh token must be deleted, not kept")
	}
}

func TestLogoutClearsLocallyDespiteBackendFailure(t *testing.T) {
	api := &fakeAPI{
		loginResult: &restclient.LoginResult{
			AccessToken: "at-3",
			User:        &identity.User{ID: "u1", Role: identity.RoleAdmin},
		},
		logoutErr: errors.New("backend down"),
	}
	store, vault := newTestStore(t, api)
	if _, err := store.Login(context.Background(), Credentials{}); err != nil {
		t.Fatal(err)
	}

	store.Logout(context.Background())

	snap := store.Snapshot()
	if snap.Authenticated() || snap.User != nil {
		t.Errorf("snapshot after logout = %+v", snap)
	}
	for _, key := range []string{storage.KeyAccessToken, storage.KeyRefreshToken, storage.KeyUser} {
		if _, ok := vault.Get(key); ok {
			t.Errorf("vault key %q survived logout", key)
		}
	}
	if api.logoutCalls.Load() != 1 {
		t.Errorf("backend logout calls = %d, want 1", api.logoutCalls.Load())
	}
}

func TestLogoutResetsInitializedFlag(t *testing.T) {
	api := &fakeAPI{
		loginResult: &restclient.LoginResult{
			AccessToken: "at-4",
			User:        &identity.User{ID: "u1", Role: identity.RoleAdmin},
		},
	}
	store, _ := newTestStore(t, api)
	if _, err := store.Login(context.Background(), Credentials{}); err != nil {
		t.Fatal(err)
	}
	if !store.Snapshot().Initialized {
		t.Fatal("login must leave the store initialized")
	}

	store.Logout(context.Background())
	if store.Snapshot().Initialized {
		t.Error("logout must reset the initialization flag")
	}

	// A fresh lifecycle starts cleanly afterwards.
	if err := store.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	snap := store.Snapshot()
	if !snap.Initialized || snap.Authenticated() {
		t.Errorf("snapshot after re-initialize = %+v", snap)
	}

	// DropArtifacts alone keeps the flag; only logout resets it.
	store.DropArtifacts()
	if !store.Snapshot().Initialized {
		t.Error("DropArtifacts must not reset the initialization flag")
	}
}

func TestInitializeWithoutTokenIsOffline(t *testing.T) {
	api := &fakeAPI{}
	store, _ := newTestStore(t, api)

	if err := store.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	snap := store.Snapshot()
	if !snap.Initialized || snap.Authenticated() {
		t.Errorf("snapshot = %+v", snap)
	}
	if api.profileCalls.Load() != 0 {
		t.Error("no token must mean no profile fetch")
	}
}

func TestInitializeRevalidatesStoredSession(t *testing.T) {
	api := &fakeAPI{profileUser: &identity.User{ID: "u1", Name: "Fresh", Role: identity.RoleAdmin}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	vault := storage.NewVault(filepath.Join(t.TempDir(), "vault.json"), logger)
	if err := vault.Set(storage.KeyAccessToken, unsignedJWT(t, time.Now().Add(time.Hour))); err != nil {
		t.Fatal(err)
	}
	if err := vault.Set(storage.KeyUser, `{"id":"u1","name":"Stale","role":"admin"}`); err != nil {
		t.Fatal(err)
	}

	store := NewStore(api, vault, logger)
	if err := store.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	snap := store.Snapshot()
	if snap.User == nil || snap.User.Name != "Fresh" {
		t.Errorf("revalidation must replace the cached user, got %+v", snap.User)
	}
	if api.profileCalls.Load() != 1 {
		t.Errorf("profile calls = %d, want 1", api.profileCalls.Load())
	}

	// A second call must be a no-op.
	if err := store.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	if api.profileCalls.Load() != 1 {
		t.Error("repeated Initialize must not refetch")
	}
}

func TestInitializeExpiredTokenSkipsNetwork(t *testing.T) {
	api := &fakeAPI{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	vault := storage.NewVault(filepath.Join(t.TempDir(), "vault.json"), logger)
	if err := vault.Set(storage.KeyAccessToken, unsignedJWT(t, time.Now().Add(-time.Hour))); err != nil {
		t.Fatal(err)
	}

	store := NewStore(api, vault, logger)
	if err := store.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	snap := store.Snapshot()
	if snap.Authenticated() {
		t.Error("expired token must be dropped")
	}
	if api.profileCalls.Load() != 0 {
		t.Error("expired token must not be revalidated over the network")
	}
	if _, ok := vault.Get(storage.KeyAccessToken); ok {
		t.Error("expired token must be cleared from the vault")
	}
}

func TestInitializeRevalidationFailureClearsSession(t *testing.T) {
	api := &fakeAPI{profileErr: &restclient.APIError{Status: 401, Path: "/auth/profile"}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	vault := storage.NewVault(filepath.Join(t.TempDir(), "vault.json"), logger)
	if err := vault.Set(storage.KeyAccessToken, "opaque-token"); err != nil {
		t.Fatal(err)
	}

	store := NewStore(api, vault, logger)
	if err := store.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	snap := store.Snapshot()
	if snap.Authenticated() || !snap.Initialized {
		t.Errorf("snapshot = %+v", snap)
	}
	if _, ok := vault.Get(storage.KeyAccessToken); ok {
		t.Error("rejected token must be cleared from the vault")
	}
}

func TestUnreadableStoredUserTreatedAsMissing(t *testing.T) {
	api := &fakeAPI{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	vault := storage.NewVault(filepath.Join(t.TempDir(), "vault.json"), logger)
	if err := vault.Set(storage.KeyUser, "{not json"); err != nil {
		t.Fatal(err)
	}

	store := NewStore(api, vault, logger)
	if store.Snapshot().User != nil {
		t.Error("corrupt user record must hydrate as nil")
	}
}

func TestFetchProfileRequiresSession(t *testing.T) {
	api := &fakeAPI{}
	store, _ := newTestStore(t, api)

	if _, err := store.FetchProfile(context.Background()); !errors.Is(err, ErrNoSession) {
		t.Fatalf("FetchProfile() error = %v, want ErrNoSession", err)
	}
}

func TestUpdateProfileCommitsAndPersists(t *testing.T) {
	api := &fakeAPI{
		loginResult: &restclient.LoginResult{
			AccessToken: "at-1",
			User:        &identity.User{ID: "u1", Name: "Old", Role: identity.RoleAdmin},
		},
		updatedUser: &identity.User{ID: "u1", Name: "New", Role: identity.RoleAdmin},
	}
	store, vault := newTestStore(t, api)
	if _, err := store.Login(context.Background(), Credentials{}); err != nil {
		t.Fatal(err)
	}

	user, err := store.UpdateProfile(context.Background(), map[string]any{"name": "New"})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if user.Name != "New" || store.Snapshot().User.Name != "New" {
		t.Errorf("updated user not committed, got %+v", store.Snapshot().User)
	}
	raw, ok := vault.Get(storage.KeyUser)
	if !ok {
		t.Fatal("updated user must be persisted")
	}
	var persisted identity.User
	if err := json.Unmarshal([]byte(raw), &persisted); err != nil || persisted.Name != "New" {
		t.Errorf("persisted user = %q (%v)", raw, err)
	}
}

func TestUpdateProfileRequiresSession(t *testing.T) {
	store, _ := newTestStore(t, &fakeAPI{})
	if _, err := store.UpdateProfile(context.Background(), nil); !errors.Is(err, ErrNoSession) {
		t.Fatalf("UpdateProfile() error = %v, want ErrNoSession", err)
	}
}

func TestChangePassword(t *testing.T) {
	api := &fakeAPI{
		loginResult: &restclient.LoginResult{
			AccessToken: "at-1",
			User:        &identity.User{ID: "u1", Role: identity.RoleAdmin},
		},
	}
	store, _ := newTestStore(t, api)

	if err := store.ChangePassword(context.Background(), "old", "new"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("ChangePassword() before login error = %v, want ErrNoSession", err)
	}
	if _, err := store.Login(context.Background(), Credentials{}); err != nil {
		t.Fatal(err)
	}
	if err := store.ChangePassword(context.Background(), "old", "new"); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}
	if api.passwordCalls.Load() != 1 {
		t.Errorf("backend calls = %d, want 1", api.passwordCalls.Load())
	}
	if !store.Snapshot().Authenticated() {
		t.Error("password change must not end the session")
	}
}

func TestSubscribeObservesTransitions(t *testing.T) {
	api := &fakeAPI{
		loginResult: &restclient.LoginResult{
			AccessToken: "at-1",
			User:        &identity.User{ID: "u1", Role: identity.RoleAdmin},
		},
	}
	store, _ := newTestStore(t, api)

	var mu sync.Mutex
	var seen []bool
	unsubscribe := store.Subscribe(func(snap Snapshot) {
		mu.Lock()
		seen = append(seen, snap.Authenticated())
		mu.Unlock()
	})

	if _, err := store.Login(context.Background(), Credentials{}); err != nil {
		t.Fatal(err)
	}
	store.DropArtifacts()
	unsubscribe()
	store.DropArtifacts()

	mu.Lock()
	defer mu.Unlock()
	want := []bool{true, false}
	if len(seen) != len(want) {
		t.Fatalf("observed %d transitions, want %d", len(seen), len(want))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("transition %d = %v, want %v", i, seen[i], want[i])
		}
	}
}
