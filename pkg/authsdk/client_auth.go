package authsdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	return c.doJSON(ctx, http.MethodPost, "/auth/register", "", req, nil)
}

func (c *Client) Verify(ctx context.Context, email, otp string) error {
	return c.doJSON(ctx, http.MethodPost, "/auth/verify", "", VerifyRequest{Email: email, OTP: otp}, nil)
}

func (c *Client) ResendOTP(ctx context.Context, email string) error {
	return c.doJSON(ctx, http.MethodPost, "/auth/resend-otp", "", ResendOTPRequest{Email: email}, nil)
}

// LoginRaw returns the full login response without wrapping it in a Session.
func (c *Client) LoginRaw(ctx context.Context, email, password string) (*LoginResponse, error) {
	var resp LoginResponse
	err := c.doJSON(ctx, http.MethodPost, "/auth/login", "", LoginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login signs in with a password and returns an auto-refreshing Session.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	resp, err := c.LoginRaw(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return c.NewSessionFromTokens(resp.AccessToken, resp.RefreshToken), nil
}

// Refresh exchanges a refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (string, error) {
	var resp RefreshResponse
	err := c.doJSON(ctx, http.MethodPost, "/auth/refresh-token", "", RefreshRequest{RefreshToken: refreshToken}, &resp)
	if err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

// Logout revokes refreshToken. The service acknowledges unknown tokens too.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	return c.doJSON(ctx, http.MethodPost, "/auth/logout", "", RefreshRequest{RefreshToken: refreshToken}, nil)
}

// Me returns the profile behind accessToken.
func (c *Client) Me(ctx context.Context, accessToken string) (*UserProfile, error) {
	var resp MeResponse
	if err := c.doJSON(ctx, http.MethodGet, "/auth/me", accessToken, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// OAuthStartURL is where a browser should be sent to sign in with provider
// ("google" or "github") under role.
func (c *Client) OAuthStartURL(provider, role string) string {
	return c.url(fmt.Sprintf("/auth/%s?%s", url.PathEscape(provider), url.Values{"role": {role}}.Encode()))
}
