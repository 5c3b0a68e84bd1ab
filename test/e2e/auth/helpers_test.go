//go:build e2e

package auth_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/townhall-app/townhall/internal/auth/app"
	"github.com/townhall-app/townhall/internal/auth/mail"
	"github.com/townhall-app/townhall/pkg/authsdk"
	"github.com/townhall-app/townhall/pkg/slogx"
)

/*
 * Common helpers for auth service end-to-end tests. Each test boots the full
 * application in process, configured through the environment exactly like
 * cmd/auth, and talks to it with the public SDK.
 */

const (
	testSecret   = "e2e-secret-0123456789abcdef01234567"
	testPassword = "Str0ng!Pass"
)

// inbox captures OTP mail so tests can read codes back.
type inbox struct {
	mu    sync.Mutex
	codes map[string]string
}

func (b *inbox) SendOTP(_ context.Context, msg mail.OTPMessage) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.codes == nil {
		b.codes = make(map[string]string)
	}
	b.codes[msg.To] = msg.Code
	return nil
}

func (b *inbox) code(t *testing.T, email string) string {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	code, ok := b.codes[email]
	require.True(t, ok, "no OTP delivered to %s", email)
	return code
}

type testEnv struct {
	client *authsdk.Client
	inbox  *inbox
	url    string
}

// relaxedLimits keeps the strict login and register limits out of the way.
var relaxedLimits = map[string]string{
	"RATELIMIT_STRICT_REQUESTS":   "1000",
	"RATELIMIT_STRICT_WINDOW_SEC": "60",
	"RATELIMIT_STRICT_BURST":      "1000",
	"RATELIMIT_MODERATE_REQUESTS": "1000",
	"RATELIMIT_MODERATE_BURST":    "1000",
}

// setupAuthServer starts the service on a temporary SQLite file.
func setupAuthServer(t *testing.T) *testEnv {
	t.Helper()
	return startServer(t, relaxedLimits)
}

// setupAuthServerWithDefaultRateLimits leaves the production limits in place.
func setupAuthServerWithDefaultRateLimits(t *testing.T) *testEnv {
	t.Helper()
	return startServer(t, nil)
}

// setupAuthServerOnPostgres runs the service against a throwaway Postgres container.
func setupAuthServerOnPostgres(t *testing.T) *testEnv {
	t.Helper()
	env := map[string]string{
		"DATABASE_DRIVER": "postgres",
		"DATABASE_URL":    startPostgres(t),
	}
	for k, v := range relaxedLimits {
		env[k] = v
	}
	return startServer(t, env)
}

func startServer(t *testing.T, env map[string]string) *testEnv {
	t.Helper()

	t.Setenv("ENV", "test")
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("BCRYPT_COST", "4")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("AUTH_DATABASE_FILE", filepath.Join(t.TempDir(), "auth.db"))
	t.Setenv("MAIL_DRIVER", "log")
	for k, v := range env {
		t.Setenv(k, v)
	}

	box := &inbox{}
	application, err := app.New(app.LoadConfig(),
		app.WithLogger(slogx.Discard()),
		app.WithMailer(box),
	)
	require.NoError(t, err)

	srv := httptest.NewServer(application.Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = application.Close()
	})

	return &testEnv{client: authsdk.NewClient(srv.URL), inbox: box, url: srv.URL}
}

func startPostgres(t *testing.T) string {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "townhall",
				"POSTGRES_PASSWORD": "townhall",
				"POSTGRES_DB":       "townhall",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://townhall:townhall@%s:%s/townhall?sslmode=disable", host, port.Port())
}

// registerVerified creates an account and completes OTP verification.
func registerVerified(t *testing.T, env *testEnv, email, role string) {
	t.Helper()
	ctx := t.Context()

	err := env.client.Register(ctx, authsdk.RegisterRequest{
		FirstName: "Grace",
		LastName:  "Hopper",
		Email:     email,
		Password:  testPassword,
		Role:      role,
	})
	require.NoError(t, err)
	require.NoError(t, env.client.Verify(ctx, email, env.inbox.code(t, strings.ToLower(email))))
}

// requireAPIError asserts err is an API error matching want by status and code.
func requireAPIError(t *testing.T, err error, want *authsdk.APIError) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, want, "got %v", err)
}

// noRedirectClient returns redirects to the caller instead of following them.
func noRedirectClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		Timeout:       10 * time.Second,
	}
}
