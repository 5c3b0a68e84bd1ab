package oauth

import (
	"context"
	"strconv"
	"strings"

	"github.com/townhall-app/townhall/internal/auth/domain"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const githubAPIURL = "https://api.github.com"

type GitHub struct {
	cfg    *oauth2.Config
	apiURL string
}

func NewGitHub(c Config) *GitHub {
	api := githubAPIURL
	if c.APIBaseURL != "" {
		api = strings.TrimSuffix(c.APIBaseURL, "/")
	}
	return &GitHub{
		cfg:    c.oauth2Config(endpoints.GitHub, "read:user", "user:email"),
		apiURL: api,
	}
}

func (g *GitHub) Name() domain.AuthProvider { return domain.ProviderGitHub }

func (g *GitHub) AuthCodeURL(state string) string { return g.cfg.AuthCodeURL(state) }

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// Profile returns an empty Email when the account has no public address and
// no primary verified one.
func (g *GitHub) Profile(ctx context.Context, code string) (domain.ProfileDraft, error) {
	client, err := exchange(ctx, g.cfg, code)
	if err != nil {
		return domain.ProfileDraft{}, err
	}

	var u githubUser
	if err := getJSON(ctx, client, g.apiURL+"/user", &u); err != nil {
		return domain.ProfileDraft{}, err
	}

	email := u.Email
	if email == "" {
		var emails []githubEmail
		if err := getJSON(ctx, client, g.apiURL+"/user/emails", &emails); err != nil {
			return domain.ProfileDraft{}, err
		}
		for _, e := range emails {
			if e.Primary && e.Verified {
				email = e.Email
				break
			}
		}
	}

	first, last := githubNames(u)
	return domain.ProfileDraft{
		Provider:       domain.ProviderGitHub,
		ProviderUserID: strconv.FormatInt(u.ID, 10),
		Email:          email,
		FirstName:      first,
		LastName:       last,
		Picture:        u.AvatarURL,
	}, nil
}

// githubNames splits the display name on its first space, falling back to the
// login for the first name and to "User" for the last.
func githubNames(u githubUser) (first, last string) {
	display := strings.TrimSpace(u.Name)
	if display == "" {
		display = u.Login
	}
	first, last = splitDisplayName(display)
	if first == "" {
		first = u.Login
	}
	if first == "" {
		first = "GitHub"
	}
	if last == "" {
		last = "User"
	}
	return first, last
}

func splitDisplayName(name string) (first, last string) {
	first, last, _ = strings.Cut(strings.TrimSpace(name), " ")
	return first, strings.TrimSpace(last)
}
