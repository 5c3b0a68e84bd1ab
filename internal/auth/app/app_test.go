package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/townhall-app/townhall/internal/auth/mail"
	"github.com/townhall-app/townhall/pkg/slogx"
)

type recordingMailer struct {
	mu   sync.Mutex
	msgs []mail.OTPMessage
}

func (m *recordingMailer) SendOTP(_ context.Context, msg mail.OTPMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg)
	return nil
}

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := loadConfig(envMap(map[string]string{
		"JWT_SECRET":           "0123456789abcdef0123456789abcdef",
		"AUTH_DATABASE_FILE":   ":memory:",
		"BCRYPT_COST":          "4",
		"GOOGLE_CLIENT_ID":     "google-client",
		"GOOGLE_CLIENT_SECRET": "google-secret",
		"PUBLIC_BASE_URL":      "https://api.townhall.test",
	}))
	require.NoError(t, cfg.Validate())
	return cfg
}

func newTestApp(t *testing.T, cfg Config) (*Application, *recordingMailer) {
	t.Helper()
	mailer := &recordingMailer{}
	app, err := New(cfg, WithLogger(slogx.Discard()), WithMailer(mailer))
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app, mailer
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.DatabaseDriver = "oracle"
	_, err := New(cfg, WithLogger(slogx.Discard()))
	require.ErrorContains(t, err, "invalid configuration")
}

func TestApplicationServesRoutes(t *testing.T) {
	app, mailer := newTestApp(t, testConfig(t))
	srv := httptest.NewServer(app.Handler())
	t.Cleanup(srv.Close)

	client := srv.Client()
	client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	resp, err := client.Get(srv.URL + "/livez")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := `{"firstName":"Ada","lastName":"Lovelace","email":"ada@example.com","password":"Str0ng!Pass","role":"TESTER"}`
	resp, err = client.Post(srv.URL+"/auth/register", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, mailer.msgs, 1)
	require.Equal(t, "Ada Lovelace", mailer.msgs[0].Name)

	t.Run("enabled provider redirects to consent", func(t *testing.T) {
		resp, err := client.Get(srv.URL + "/auth/google?role=DEVELOPER")
		require.NoError(t, err)
		_ = resp.Body.Close()
		require.Equal(t, http.StatusFound, resp.StatusCode)

		loc, err := url.Parse(resp.Header.Get("Location"))
		require.NoError(t, err)
		require.Equal(t, "accounts.google.com", loc.Host)
		require.Equal(t, "google-client", loc.Query().Get("client_id"))
		require.Equal(t, "https://api.townhall.test/auth/google/callback", loc.Query().Get("redirect_uri"))
		require.NotEmpty(t, loc.Query().Get("state"))
	})

	t.Run("provider without credentials is not routed", func(t *testing.T) {
		resp, err := client.Get(srv.URL + "/auth/github?role=DEVELOPER")
		require.NoError(t, err)
		_ = resp.Body.Close()
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("cors preflight from the front end", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodOptions, srv.URL+"/auth/login", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "http://localhost:5173")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		resp, err := client.Do(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		require.Equal(t, http.StatusNoContent, resp.StatusCode)
		require.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	})

	t.Run("metrics include service counters", func(t *testing.T) {
		resp, err := client.Get(srv.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Contains(t, string(raw), `townhall_auth_registrations_total{outcome="success"} 1`)
		require.Contains(t, string(raw), "go_goroutines")
	})
}

func TestDevSecretIsGenerated(t *testing.T) {
	cfg := testConfig(t)
	cfg.JWTSecret = ""
	app, _ := newTestApp(t, cfg)
	require.NotNil(t, app.signer)
}
