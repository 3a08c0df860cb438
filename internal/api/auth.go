package api

import (
	"context"
	"net/http"
	"net/url"
)

// Register creates an account and returns its first credential.
func (c *Client) Register(ctx context.Context, payload RegisterRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, request{op: "auth.register", method: http.MethodPost, path: "/auth/register", body: payload}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login exchanges credentials for a bearer token. The body is form-urlencoded.
func (c *Client) Login(ctx context.Context, creds Credentials) (*AuthResponse, error) {
	form := url.Values{}
	form.Set("username", creds.Username)
	form.Set("password", creds.Password)
	var resp AuthResponse
	if err := c.do(ctx, request{op: "auth.login", method: http.MethodPost, path: "/auth/login", form: form}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CurrentUser returns the profile behind token.
func (c *Client) CurrentUser(ctx context.Context, token string) (*User, error) {
	var user User
	if err := c.do(ctx, request{op: "auth.me", method: http.MethodGet, path: "/auth/me", token: token}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
