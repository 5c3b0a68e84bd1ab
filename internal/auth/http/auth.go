package http

import (
	"net/http"
	"time"

	"github.com/townhall-app/townhall/internal/auth/domain"
	"github.com/townhall-app/townhall/internal/auth/service"
	"github.com/townhall-app/townhall/pkg/authsdk"
	"github.com/townhall-app/townhall/pkg/httpx"
	"github.com/townhall-app/townhall/pkg/validatex"
)

// AuthHandler serves the local account and session endpoints.
type AuthHandler struct {
	Auth *service.AuthService
}

// HandleRegister godoc
//
//	@Summary		Register a local account
//	@Description	Creates an unverified account and e-mails a 6 digit OTP valid for 10 minutes.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RegisterRequest		true	"Account details"
//	@Success		200		{object}	authsdk.MessageResponse		"message"
//	@Failure		400		{object}	authsdk.ErrorResponse		"Validation failed or account already exists"
//	@Failure		429		{object}	authsdk.ErrorResponse		"Rate limited"
//	@Failure		500		{object}	authsdk.ErrorResponse		"Internal server error"
//	@Router			/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if err := decodeRequest(w, r, &req, &req.Email); err != nil {
		writeError(w, r, err)
		return
	}

	err := h.Auth.Register(r.Context(), service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Role:      req.Role,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "User registered successfully"})
}

// HandleVerify godoc
//
//	@Summary		Verify an account
//	@Description	Checks the OTP sent at registration and marks the account verified.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.VerifyRequest	true	"E-mail and OTP"
//	@Success		200		{object}	authsdk.MessageResponse	"message"
//	@Failure		400		{object}	authsdk.ErrorResponse	"Validation failed, OTP expired or invalid"
//	@Failure		404		{object}	authsdk.ErrorResponse	"Account not found"
//	@Router			/auth/verify [post].
func (h *AuthHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req authsdk.VerifyRequest
	if err := decodeRequest(w, r, &req, &req.Email); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.Auth.Verify(r.Context(), req.Email, req.OTP); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "Account verified successfully"})
}

// HandleResendOTP godoc
//
//	@Summary		Resend the verification OTP
//	@Description	Issues a fresh OTP for an unverified local account and e-mails it.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.ResendOTPRequest	true	"E-mail"
//	@Success		200		{object}	authsdk.MessageResponse		"message"
//	@Failure		400		{object}	authsdk.ErrorResponse		"Validation failed or already verified"
//	@Failure		404		{object}	authsdk.ErrorResponse		"Account not found"
//	@Router			/auth/resend-otp [post].
func (h *AuthHandler) HandleResendOTP(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ResendOTPRequest
	if err := decodeRequest(w, r, &req, &req.Email); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.Auth.ResendOTP(r.Context(), req.Email); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "OTP sent successfully"})
}

// HandleLogin godoc
//
//	@Summary		Log in with e-mail and password
//	@Description	Returns the user profile, a 15 minute access token and a 30 day refresh token.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.LoginResponse	"message, user, accessToken, refreshToken"
//	@Failure		400		{object}	authsdk.ErrorResponse	"Validation failed"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Invalid credentials or e-mail not verified"
//	@Failure		404		{object}	authsdk.ErrorResponse	"Account not found"
//	@Router			/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := decodeRequest(w, r, &req, &req.Email); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
		Message:      "Login successful",
		User:         profileResponse(res.User),
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
	})
}

// HandleRefresh godoc
//
//	@Summary		Exchange a refresh token
//	@Description	Returns a new access token. The refresh token is not rotated.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RefreshRequest	true	"Refresh token"
//	@Success		200		{object}	authsdk.RefreshResponse	"message, accessToken"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Missing, invalid, revoked or expired refresh token"
//	@Router			/auth/refresh-token [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil || req.RefreshToken == "" {
		authsdk.ErrRefreshRequired.WriteError(w)
		return
	}

	access, err := h.Auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.RefreshResponse{
		Message:     "Token refreshed successfully",
		AccessToken: access,
	})
}

// HandleLogout godoc
//
//	@Summary		Log out
//	@Description	Revokes the given refresh token when it is known. Always succeeds.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RefreshRequest	false	"Refresh token"
//	@Success		200		{object}	authsdk.MessageResponse	"message"
//	@Router			/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	// An unreadable body is treated as a logout without a token.
	_ = httpx.DecodeJSON(w, r, &req)

	h.Auth.Logout(r.Context(), req.RefreshToken)
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "Logged out successfully"})
}

// HandleMe godoc
//
//	@Summary		Current user
//	@Description	Returns the profile of the account the access token was issued to.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.MeResponse		"user"
//	@Failure		401	{object}	authsdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		404	{object}	authsdk.ErrorResponse	"Account no longer exists"
//	@Router			/auth/me [get].
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := httpx.ClaimsFromContext(r.Context())
	if !ok || claims.UserID == "" {
		authsdk.ErrUnauthorized.WriteError(w)
		return
	}

	p, err := h.Auth.Me(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.MeResponse{User: profileResponse(p)})
}

// decodeRequest reads a JSON body into dst, normalises the e-mail field it
// points at and runs the validate tags.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst any, email *string) error {
	if err := httpx.DecodeJSON(w, r, dst); err != nil {
		return err
	}
	*email = trimEmail(*email)
	return validatex.Struct(dst)
}

func profileResponse(p domain.Profile) authsdk.UserProfile {
	return authsdk.UserProfile{
		ID:             p.ID,
		Email:          p.Email,
		FirstName:      p.FirstName,
		LastName:       p.LastName,
		Role:           string(p.Role),
		Verified:       p.Verified,
		AuthProvider:   string(p.AuthProvider),
		ProfilePicture: p.ProfilePicture,
		CreatedAt:      p.CreatedAt.UTC().Format(time.RFC3339),
	}
}
