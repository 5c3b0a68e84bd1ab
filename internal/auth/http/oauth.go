package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/townhall-app/townhall/internal/auth/domain"
	"github.com/townhall-app/townhall/internal/auth/oauth"
	"github.com/townhall-app/townhall/internal/auth/service"
	"github.com/townhall-app/townhall/pkg/slogx"
)

// Redirect error codes understood by the front end's login page.
const (
	redirectInvalidRole = "invalid_role"
	redirectAuthFailed  = "auth_failed"
)

const emailUnavailableMessage = "GitHub email is private. Please make your email public in GitHub settings or use a different authentication method."

// OAuthHandler runs the browser side of Google and GitHub sign-in. Every
// outcome is a redirect, either to the provider or back to the front end.
type OAuthHandler struct {
	Auth        *service.AuthService
	Federation  *service.FederationService
	Providers   oauth.Registry
	State       *oauth.StateCodec
	FrontendURL string
}

// HandleStart godoc
//
//	@Summary		Start OAuth sign-in
//	@Description	Redirects to the provider's consent page. The selected role travels in the signed state parameter.
//	@Tags			OAuth
//	@Param			provider	path	string	true	"google or github"
//	@Param			role		query	string	true	"DEVELOPER or TESTER"
//	@Success		302
//	@Failure		404	{object}	authsdk.ErrorResponse	"Unknown or disabled provider"
//	@Router			/auth/{provider} [get].
func (h *OAuthHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	p, err := h.Providers.Lookup(r.PathValue("provider"))
	if err != nil {
		errUnknownProvider.WriteError(w)
		return
	}

	role, ok := domain.ParseRole(r.URL.Query().Get("role"))
	if !ok {
		h.redirectLogin(w, r, redirectInvalidRole)
		return
	}

	state, err := h.State.Encode(p.Name(), role)
	if err != nil {
		slogx.FromContext(r.Context()).Error("failed to sign oauth state", "provider", p.Name(), "err", err)
		h.redirectLogin(w, r, redirectAuthFailed)
		return
	}
	http.Redirect(w, r, p.AuthCodeURL(state), http.StatusFound)
}

// HandleCallback godoc
//
//	@Summary		OAuth callback
//	@Description	Exchanges the authorization code, links or creates the account and redirects to the front end with a token pair.
//	@Tags			OAuth
//	@Param			provider	path	string	true	"google or github"
//	@Param			code		query	string	true	"Authorization code"
//	@Param			state		query	string	true	"State issued by the start endpoint"
//	@Success		302
//	@Failure		404	{object}	authsdk.ErrorResponse	"Unknown or disabled provider"
//	@Router			/auth/{provider}/callback [get].
func (h *OAuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	p, err := h.Providers.Lookup(r.PathValue("provider"))
	if err != nil {
		errUnknownProvider.WriteError(w)
		return
	}

	q := r.URL.Query()
	if denied := q.Get("error"); denied != "" {
		log.Warn("provider returned an error", "provider", p.Name(), "error", denied)
		h.redirectLogin(w, r, redirectAuthFailed)
		return
	}

	role, err := h.State.Decode(p.Name(), q.Get("state"))
	if err != nil {
		log.Warn("oauth state rejected", "provider", p.Name(), "err", err)
		h.redirectLogin(w, r, redirectAuthFailed)
		return
	}

	draft, err := p.Profile(ctx, q.Get("code"))
	if err != nil {
		log.Warn("oauth profile fetch failed", "provider", p.Name(), "err", err)
		h.redirectLogin(w, r, redirectAuthFailed)
		return
	}

	identity, err := h.Federation.Resolve(ctx, draft)
	if err != nil {
		h.failCallback(w, r, err)
		return
	}

	pair, err := h.Auth.CompleteOAuth(ctx, p.Name(), identity, role)
	if err != nil {
		h.failCallback(w, r, err)
		return
	}

	v := url.Values{}
	v.Set("accessToken", pair.AccessToken)
	v.Set("refreshToken", pair.RefreshToken)
	http.Redirect(w, r, h.frontend()+"/auth/callback?"+v.Encode(), http.StatusFound)
}

func (h *OAuthHandler) failCallback(w http.ResponseWriter, r *http.Request, err error) {
	var rm *service.RoleMismatchError
	switch {
	case errors.As(err, &rm):
		h.redirectLogin(w, r, rm.Error())
	case errors.Is(err, service.ErrEmailUnavailable):
		h.redirectLogin(w, r, emailUnavailableMessage)
	case errors.Is(err, service.ErrInvalidRole):
		h.redirectLogin(w, r, redirectInvalidRole)
	default:
		slogx.FromContext(r.Context()).Error("oauth callback failed", "err", err)
		h.redirectLogin(w, r, redirectAuthFailed)
	}
}

func (h *OAuthHandler) redirectLogin(w http.ResponseWriter, r *http.Request, reason string) {
	http.Redirect(w, r, h.frontend()+"/login?error="+url.QueryEscape(reason), http.StatusFound)
}

func (h *OAuthHandler) frontend() string {
	return strings.TrimRight(h.FrontendURL, "/")
}
