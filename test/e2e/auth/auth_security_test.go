//go:build e2e

package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/townhall-app/townhall/pkg/authsdk"
)

func TestInvalidCredentials(t *testing.T) {
	env := setupAuthServer(t)
	registerVerified(t, env, "creds@example.com", "DEVELOPER")

	_, err := env.client.LoginRaw(t.Context(), "creds@example.com", "Wr0ng!Pass")
	requireAPIError(t, err, authsdk.ErrInvalidCredentials)
}

func TestInvalidAccessToken(t *testing.T) {
	env := setupAuthServer(t)
	ctx := t.Context()
	registerVerified(t, env, "tokens@example.com", "TESTER")

	login, err := env.client.LoginRaw(ctx, "tokens@example.com", testPassword)
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":   "invalid-token-12345",
		"tampered":  tamper(login.AccessToken),
		"no bearer": "",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := env.client.Me(ctx, token)
			requireAPIError(t, err, authsdk.ErrUnauthorized)
		})
	}
}

func TestInvalidRefreshToken(t *testing.T) {
	env := setupAuthServer(t)
	ctx := t.Context()
	registerVerified(t, env, "refresh@example.com", "DEVELOPER")

	login, err := env.client.LoginRaw(ctx, "refresh@example.com", testPassword)
	require.NoError(t, err)

	_, err = env.client.Refresh(ctx, tamper(login.RefreshToken))
	requireAPIError(t, err, authsdk.ErrInvalidRefreshToken)

	// An access token is not a refresh token.
	_, err = env.client.Refresh(ctx, login.AccessToken)
	requireAPIError(t, err, authsdk.ErrInvalidRefreshToken)

	_, err = env.client.Refresh(ctx, "")
	requireAPIError(t, err, authsdk.ErrRefreshRequired)

	// The untouched token still works.
	_, err = env.client.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
}

func TestDuplicateRegistration(t *testing.T) {
	env := setupAuthServer(t)
	registerVerified(t, env, "dupe@example.com", "TESTER")

	err := env.client.Register(t.Context(), authsdk.RegisterRequest{
		FirstName: "Other",
		LastName:  "Person",
		Email:     "DUPE@example.com",
		Password:  testPassword,
		Role:      "DEVELOPER",
	})
	requireAPIError(t, err, authsdk.ErrEmailTaken)
}

func TestRegistrationValidation(t *testing.T) {
	env := setupAuthServer(t)

	err := env.client.Register(t.Context(), authsdk.RegisterRequest{
		FirstName: "A",
		LastName:  "Lovelace",
		Email:     "not-an-email",
		Password:  "weak",
		Role:      "ADMIN",
	})
	requireAPIError(t, err, authsdk.ErrValidation)

	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	for _, field := range []string{"firstName", "email", "password", "role"} {
		require.Contains(t, apiErr.Fields, field)
	}
}

// tamper rewrites the first character of the final token segment, the JWT
// signature or the refresh token selector.
func tamper(token string) string {
	i := strings.LastIndex(token, ".") + 1
	replacement := "0"
	if token[i] == '0' {
		replacement = "1"
	}
	return token[:i] + replacement + token[i+1:]
}
