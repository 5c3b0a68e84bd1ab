package oauth

import (
	"context"
	"strings"

	"github.com/townhall-app/townhall/internal/auth/domain"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

type Google struct {
	cfg         *oauth2.Config
	userInfoURL string
}

func NewGoogle(c Config) *Google {
	url := googleUserInfoURL
	if c.APIBaseURL != "" {
		url = strings.TrimSuffix(c.APIBaseURL, "/") + "/userinfo"
	}
	return &Google{
		cfg:         c.oauth2Config(endpoints.Google, "openid", "profile", "email"),
		userInfoURL: url,
	}
}

func (g *Google) Name() domain.AuthProvider { return domain.ProviderGoogle }

func (g *Google) AuthCodeURL(state string) string {
	return g.cfg.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

type googleUserInfo struct {
	Sub        string `json:"sub"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Name       string `json:"name"`
	Picture    string `json:"picture"`
}

func (g *Google) Profile(ctx context.Context, code string) (domain.ProfileDraft, error) {
	client, err := exchange(ctx, g.cfg, code)
	if err != nil {
		return domain.ProfileDraft{}, err
	}

	var info googleUserInfo
	if err := getJSON(ctx, client, g.userInfoURL, &info); err != nil {
		return domain.ProfileDraft{}, err
	}

	first, last := info.GivenName, info.FamilyName
	if first == "" && last == "" {
		first, last = splitDisplayName(info.Name)
	}
	return domain.ProfileDraft{
		Provider:       domain.ProviderGoogle,
		ProviderUserID: info.Sub,
		Email:          info.Email,
		FirstName:      first,
		LastName:       last,
		Picture:        info.Picture,
	}, nil
}
