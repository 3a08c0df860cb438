package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"clipdeck/internal/api"
	"clipdeck/internal/logging"
	"clipdeck/internal/prefs"
)

// Authenticator is the subset of the remote client the session needs.
type Authenticator interface {
	Login(ctx context.Context, creds api.Credentials) (*api.AuthResponse, error)
	Register(ctx context.Context, payload api.RegisterRequest) (*api.AuthResponse, error)
	CurrentUser(ctx context.Context, token string) (*api.User, error)
}

// Store holds the current identity and credential.
type Store struct {
	client Authenticator
	prefs  prefs.Store
	logger *slog.Logger

	mu         sync.RWMutex
	credential string
	identity   *api.User
}

// New constructs an empty session. Call Restore to rehydrate it.
func New(client Authenticator, store prefs.Store, logger *slog.Logger) *Store {
	return &Store{
		client: client,
		prefs:  store,
		logger: logging.NewComponentLogger(logger, "session"),
	}
}

// Restore loads the persisted credential. Identity is fetched lazily by Identity.
func (s *Store) Restore(ctx context.Context) error {
	value, ok, err := s.prefs.Get(ctx, prefs.KeyCredential)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = nil
	s.credential = ""
	if ok {
		s.credential = strings.TrimSpace(value)
	}
	return nil
}

// Login exchanges credentials for a bearer token and persists it.
func (s *Store) Login(ctx context.Context, creds api.Credentials) error {
	resp, err := s.client.Login(ctx, creds)
	if err != nil {
		return &AuthError{Op: "login", Err: err}
	}
	return s.establish(ctx, "login", resp)
}

// Register creates an account and logs it in.
func (s *Store) Register(ctx context.Context, payload api.RegisterRequest) error {
	resp, err := s.client.Register(ctx, payload)
	if err != nil {
		return &AuthError{Op: "register", Err: err}
	}
	return s.establish(ctx, "register", resp)
}

func (s *Store) establish(ctx context.Context, op string, resp *api.AuthResponse) error {
	token := ""
	if resp != nil {
		token = strings.TrimSpace(resp.AccessToken)
	}
	if token == "" {
		return &AuthError{Op: op, Err: errors.New("server returned no access token")}
	}
	if err := s.prefs.Set(ctx, prefs.KeyCredential, token); err != nil {
		return fmt.Errorf("persist credential: %w", err)
	}
	s.mu.Lock()
	s.credential = token
	s.identity = nil
	s.mu.Unlock()
	s.logger.Info("session established", logging.String("op", op))
	return nil
}

// Logout clears identity and credential and evicts the persisted credential.
func (s *Store) Logout(ctx context.Context) error {
	s.clear()
	if err := s.prefs.Delete(ctx, prefs.KeyCredential); err != nil {
		return fmt.Errorf("evict credential: %w", err)
	}
	s.logger.Info("session cleared")
	return nil
}

// CurrentIdentity returns the cached identity without any network call.
func (s *Store) CurrentIdentity() (*api.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return nil, false
	}
	user := *s.identity
	return &user, true
}

// Identity returns the cached identity, fetching it when a credential is
// present but the profile has not been loaded yet.
func (s *Store) Identity(ctx context.Context) (*api.User, error) {
	if user, ok := s.CurrentIdentity(); ok {
		return user, nil
	}
	token, err := s.Require()
	if err != nil {
		return nil, err
	}
	user, err := s.client.CurrentUser(ctx, token)
	if err != nil {
		return nil, s.Invalidate(ctx, err)
	}
	s.mu.Lock()
	if s.credential == token {
		cp := *user
		s.identity = &cp
	}
	s.mu.Unlock()
	return user, nil
}

// Credential returns the bearer token if one is held.
func (s *Store) Credential() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credential, s.credential != ""
}

// Require gates protected operations on the presence of a credential.
func (s *Store) Require() (string, error) {
	if token, ok := s.Credential(); ok {
		return token, nil
	}
	return "", ErrNotAuthenticated
}

// Invalidate inspects err from any remote call. An authentication rejection
// clears the session, evicts the persisted credential, and yields
// ErrSessionExpired; any other error is returned unchanged.
func (s *Store) Invalidate(ctx context.Context, err error) error {
	if err == nil || !api.IsUnauthorized(err) {
		return err
	}
	s.clear()
	if delErr := s.prefs.Delete(ctx, prefs.KeyCredential); delErr != nil {
		s.logger.Warn("failed to evict rejected credential", logging.Error(delErr))
	}
	s.logger.Info("credential rejected by service; session cleared", logging.Error(err))
	return ErrSessionExpired
}

func (s *Store) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credential = ""
	s.identity = nil
}
