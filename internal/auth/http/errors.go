package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/townhall-app/townhall/internal/auth/service"
	"github.com/townhall-app/townhall/pkg/authsdk"
	"github.com/townhall-app/townhall/pkg/httpx"
	"github.com/townhall-app/townhall/pkg/slogx"
	"github.com/townhall-app/townhall/pkg/validatex"
)

var errUnknownProvider = authsdk.NewAPIError(http.StatusNotFound, authsdk.ErrorCodeNotFound, "Unknown OAuth provider")

// apiError maps an error from the decode, validation or service layers to
// the response the client sees. Unrecognised errors become a 500.
func apiError(err error) *authsdk.APIError {
	var (
		ve *validatex.ValidationError
		rm *service.RoleMismatchError
	)
	switch {
	case errors.As(err, &ve):
		e := *authsdk.ErrValidation
		e.Fields = ve.Fields()
		return &e
	case errors.Is(err, httpx.ErrBadJSON):
		return authsdk.ErrBadRequest
	case errors.Is(err, service.ErrEmailTaken):
		return authsdk.ErrEmailTaken
	case errors.Is(err, service.ErrUserNotFound):
		return authsdk.ErrAccountNotFound
	case errors.Is(err, service.ErrOTPExpired):
		return authsdk.ErrOTPExpired
	case errors.Is(err, service.ErrOTPInvalid):
		return authsdk.ErrOTPInvalid
	case errors.Is(err, service.ErrAlreadyVerified):
		return authsdk.ErrAlreadyVerified
	case errors.Is(err, service.ErrNotVerified):
		return authsdk.ErrNotVerified
	case errors.Is(err, service.ErrInvalidCredentials):
		return authsdk.ErrInvalidCredentials
	case errors.Is(err, service.ErrInvalidRefresh):
		return authsdk.ErrInvalidRefreshToken
	case errors.Is(err, service.ErrInvalidToken):
		return authsdk.ErrUnauthorized
	case errors.Is(err, service.ErrInvalidRole):
		e := *authsdk.ErrValidation
		e.Fields = map[string]string{"role": "must be one of: DEVELOPER, TESTER"}
		return &e
	case errors.As(err, &rm):
		return authsdk.ErrRoleMismatch.WithMessage(rm.Error())
	default:
		return authsdk.ErrServerError
	}
}

// writeError writes the mapped error and logs anything that ends up as a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := apiError(err)
	if e.StatusCode >= http.StatusInternalServerError {
		slogx.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "err", err)
	}
	e.WriteError(w)
}

func trimEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
