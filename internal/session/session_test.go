package session_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"clipdeck/internal/api"
	"clipdeck/internal/logging"
	"clipdeck/internal/prefs"
	"clipdeck/internal/services"
	"clipdeck/internal/session"
)

type fakeAuth struct {
	loginResp   *api.AuthResponse
	loginErr    error
	registerErr error
	user        *api.User
	userErr     error
	userCalls   int
	lastToken   string
}

func (f *fakeAuth) Login(context.Context, api.Credentials) (*api.AuthResponse, error) {
	return f.loginResp, f.loginErr
}

func (f *fakeAuth) Register(context.Context, api.RegisterRequest) (*api.AuthResponse, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return f.loginResp, nil
}

func (f *fakeAuth) CurrentUser(_ context.Context, token string) (*api.User, error) {
	f.userCalls++
	f.lastToken = token
	return f.user, f.userErr
}

func TestLoginAgainstServerStoresCredential(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"access_token":"t","token_type":"bearer"}`)
	}))
	defer srv.Close()

	store := prefs.NewMemoryStore()
	sess := session.New(api.New(srv.URL), store, logging.NewNop())
	if err := sess.Login(context.Background(), api.Credentials{Username: "u", Password: "p"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token, ok := sess.Credential(); !ok || token != "t" {
		t.Fatalf("expected credential t, got %q", token)
	}
	if persisted, ok, _ := store.Get(context.Background(), prefs.KeyCredential); !ok || persisted != "t" {
		t.Fatalf("expected persisted credential, got %q", persisted)
	}
}

func TestLoginFailureCarriesServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"detail":"Invalid credentials"}`)
	}))
	defer srv.Close()

	sess := session.New(api.New(srv.URL), prefs.NewMemoryStore(), nil)
	err := sess.Login(context.Background(), api.Credentials{Username: "u", Password: "bad"})
	var authErr *session.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if err.Error() != "Invalid credentials" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if _, ok := sess.Credential(); ok {
		t.Fatal("failed login must not set a credential")
	}
}

func TestLoginRejectsEmptyToken(t *testing.T) {
	sess := session.New(&fakeAuth{loginResp: &api.AuthResponse{}}, prefs.NewMemoryStore(), nil)
	if err := sess.Login(context.Background(), api.Credentials{}); err == nil {
		t.Fatal("expected error for empty access token")
	}
}

func TestRegisterEstablishesSession(t *testing.T) {
	auth := &fakeAuth{loginResp: &api.AuthResponse{AccessToken: "fresh"}}
	sess := session.New(auth, prefs.NewMemoryStore(), nil)
	if err := sess.Register(context.Background(), api.RegisterRequest{Username: "new"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if token, _ := sess.Credential(); token != "fresh" {
		t.Fatalf("expected fresh credential, got %q", token)
	}
}

func TestLogoutClearsIdentityAndStorage(t *testing.T) {
	ctx := context.Background()
	store := prefs.NewMemoryStore()
	auth := &fakeAuth{
		loginResp: &api.AuthResponse{AccessToken: "t"},
		user:      &api.User{ID: 1, Username: "ada"},
	}
	sess := session.New(auth, store, nil)
	if err := sess.Login(ctx, api.Credentials{Username: "ada"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := sess.Identity(ctx); err != nil {
		t.Fatalf("Identity: %v", err)
	}
	if _, ok := sess.CurrentIdentity(); !ok {
		t.Fatal("expected cached identity")
	}

	if err := sess.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, ok := sess.CurrentIdentity(); ok {
		t.Fatal("expected identity to be absent after logout")
	}
	if _, ok, _ := store.Get(ctx, prefs.KeyCredential); ok {
		t.Fatal("expected persisted credential to be evicted")
	}
	if _, err := sess.Require(); !errors.Is(err, session.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestRestoreAndLazyIdentity(t *testing.T) {
	ctx := context.Background()
	store := prefs.NewMemoryStore()
	_ = store.Set(ctx, prefs.KeyCredential, "saved")
	auth := &fakeAuth{user: &api.User{ID: 2, Username: "grace"}}
	sess := session.New(auth, store, nil)

	if err := sess.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if _, ok := sess.CurrentIdentity(); ok {
		t.Fatal("identity should load lazily")
	}
	user, err := sess.Identity(ctx)
	if err != nil {
		t.Fatalf("Identity: %v", err)
	}
	if user.Username != "grace" || auth.lastToken != "saved" {
		t.Fatalf("unexpected identity %+v token %q", user, auth.lastToken)
	}
	if _, err := sess.Identity(ctx); err != nil {
		t.Fatalf("Identity (cached): %v", err)
	}
	if auth.userCalls != 1 {
		t.Fatalf("expected one profile fetch, got %d", auth.userCalls)
	}
}

func TestIdentityRejectionInvalidatesSession(t *testing.T) {
	ctx := context.Background()
	store := prefs.NewMemoryStore()
	_ = store.Set(ctx, prefs.KeyCredential, "stale")
	auth := &fakeAuth{userErr: &api.Error{Status: http.StatusUnauthorized, Message: "Could not validate credentials"}}
	sess := session.New(auth, store, nil)
	_ = sess.Restore(ctx)

	_, err := sess.Identity(ctx)
	if !errors.Is(err, session.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if !errors.Is(err, services.ErrUnauthorized) {
		t.Fatal("expected expired session to classify as unauthorized")
	}
	if _, ok := sess.Credential(); ok {
		t.Fatal("expected credential to be cleared")
	}
	if _, ok, _ := store.Get(ctx, prefs.KeyCredential); ok {
		t.Fatal("expected persisted credential to be evicted")
	}
}

func TestInvalidatePassesThroughOtherErrors(t *testing.T) {
	ctx := context.Background()
	store := prefs.NewMemoryStore()
	_ = store.Set(ctx, prefs.KeyCredential, "keep")
	sess := session.New(&fakeAuth{}, store, nil)
	_ = sess.Restore(ctx)

	serverErr := &api.Error{Status: http.StatusInternalServerError, Message: "boom"}
	if err := sess.Invalidate(ctx, serverErr); err != serverErr {
		t.Fatalf("expected passthrough, got %v", err)
	}
	if err := sess.Invalidate(ctx, nil); err != nil {
		t.Fatalf("expected nil passthrough, got %v", err)
	}
	if token, ok := sess.Credential(); !ok || token != "keep" {
		t.Fatal("non-auth errors must not clear the session")
	}
}
