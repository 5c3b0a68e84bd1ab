// Package oauth talks to the external identity providers (Google and GitHub)
// and carries the selected role through the redirect in a signed state value.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/townhall-app/townhall/internal/auth/domain"
	"golang.org/x/oauth2"
)

var (
	ErrUnknownProvider = errors.New("oauth: unknown provider")
	ErrExchange        = errors.New("oauth: code exchange failed")
	ErrProfile         = errors.New("oauth: profile fetch failed")
)

// Provider is one external identity provider.
type Provider interface {
	Name() domain.AuthProvider

	// AuthCodeURL is the consent page the browser is redirected to.
	AuthCodeURL(state string) string

	// Profile exchanges an authorization code and fetches the user's profile.
	Profile(ctx context.Context, code string) (domain.ProfileDraft, error)
}

// Config holds one provider's client registration. Endpoint and APIBaseURL
// default to the provider's public endpoints when zero.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	Endpoint   oauth2.Endpoint
	APIBaseURL string
}

func (c Config) Enabled() bool { return c.ClientID != "" && c.ClientSecret != "" }

func (c Config) oauth2Config(def oauth2.Endpoint, scopes ...string) *oauth2.Config {
	ep := c.Endpoint
	if ep.AuthURL == "" || ep.TokenURL == "" {
		ep = def
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURL,
		Endpoint:     ep,
		Scopes:       scopes,
	}
}

// Slug is the lower-case name used in routes.
func Slug(p domain.AuthProvider) string {
	switch p {
	case domain.ProviderGoogle:
		return "google"
	case domain.ProviderGitHub:
		return "github"
	}
	return ""
}

// Registry is the set of configured providers, keyed by route slug.
type Registry map[string]Provider

func NewRegistry(providers ...Provider) Registry {
	r := make(Registry, len(providers))
	for _, p := range providers {
		r[Slug(p.Name())] = p
	}
	return r
}

func (r Registry) Lookup(slug string) (Provider, error) {
	p, ok := r[slug]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, slug)
	}
	return p, nil
}

// exchange swaps code for a token and returns an HTTP client that sends it.
func exchange(ctx context.Context, cfg *oauth2.Config, code string) (*http.Client, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: missing code", ErrExchange)
	}
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExchange, err)
	}
	return cfg.Client(ctx, tok), nil
}

// getJSON fetches url with client and decodes the body into dst.
func getJSON(ctx context.Context, client *http.Client, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProfile, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %s returned %d", ErrProfile, url, resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(dst); err != nil {
		return fmt.Errorf("%w: decode: %w", ErrProfile, err)
	}
	return nil
}
