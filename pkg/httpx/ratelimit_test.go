package httpx_test

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/townhall-app/townhall/pkg/httpx"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func fromIP(ip string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = ip + ":12345"
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIPKeyExtractor(t *testing.T) {
	t.Run("extracts from RemoteAddr", func(t *testing.T) {
		require.Equal(t, "192.168.1.1", httpx.IPKeyExtractor(fromIP("192.168.1.1")))
	})

	t.Run("prefers X-Forwarded-For", func(t *testing.T) {
		req := fromIP("192.168.1.1")
		req.Header.Set("X-Forwarded-For", "203.0.113.1, 192.168.1.1")
		require.Equal(t, "203.0.113.1", httpx.IPKeyExtractor(req))
	})

	t.Run("uses X-Real-IP if X-Forwarded-For absent", func(t *testing.T) {
		req := fromIP("192.168.1.1")
		req.Header.Set("X-Real-IP", "203.0.113.2")
		require.Equal(t, "203.0.113.2", httpx.IPKeyExtractor(req))
	})
}

func TestJSONFieldKeyExtractor(t *testing.T) {
	t.Run("reads field and restores body", func(t *testing.T) {
		body := `{"email":" Alice@Example.com ","password":"x"}`
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

		key := httpx.JSONFieldKeyExtractor("email")(req)
		require.Equal(t, "alice@example.com", key)

		rest, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		require.Equal(t, body, string(rest))
	})

	t.Run("missing field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"other":"x"}`))
		require.Empty(t, httpx.JSONFieldKeyExtractor("email")(req))
	})

	t.Run("non-string field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":42}`))
		require.Empty(t, httpx.JSONFieldKeyExtractor("email")(req))
	})

	t.Run("not json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`email=alice`))
		require.Empty(t, httpx.JSONFieldKeyExtractor("email")(req))
	})
}

func TestCompositeKeyExtractor(t *testing.T) {
	emailReq := func(body string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.RemoteAddr = "192.168.1.1:12345"
		return req
	}
	extractor := httpx.CompositeKeyExtractor(":", httpx.IPKeyExtractor, httpx.JSONFieldKeyExtractor("email"))

	t.Run("combines multiple extractors", func(t *testing.T) {
		require.Equal(t, "192.168.1.1:alice@x.io", extractor(emailReq(`{"email":"alice@x.io"}`)))
	})

	t.Run("skips empty values", func(t *testing.T) {
		require.Equal(t, "192.168.1.1", extractor(emailReq(`{}`)))
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := httpx.NewRateLimiter(nil)

	t.Run("allows requests under limit", func(t *testing.T) {
		h := limiter.ByIP(httpx.RateLimitConfig{RequestsPerWindow: 5, Window: time.Second, Burst: 5})(okHandler())
		for i := range 5 {
			require.Equal(t, http.StatusOK, serve(h, fromIP("192.168.1.1")).Code, "request %d should succeed", i+1)
		}
	})

	t.Run("blocks requests over limit", func(t *testing.T) {
		h := limiter.ByIP(httpx.RateLimitConfig{RequestsPerWindow: 3, Window: time.Minute, Burst: 3})(okHandler())
		for range 3 {
			require.Equal(t, http.StatusOK, serve(h, fromIP("192.168.1.1")).Code)
		}

		rec := serve(h, fromIP("192.168.1.1"))
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.NotEmpty(t, rec.Header().Get("Retry-After"))
	})

	t.Run("different keys are tracked separately", func(t *testing.T) {
		h := limiter.ByIP(httpx.RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Burst: 2})(okHandler())
		for range 2 {
			require.Equal(t, http.StatusOK, serve(h, fromIP("192.168.1.1")).Code)
		}
		require.Equal(t, http.StatusTooManyRequests, serve(h, fromIP("192.168.1.1")).Code)
		require.Equal(t, http.StatusOK, serve(h, fromIP("192.168.1.2")).Code)
	})

	t.Run("allows request when key extractor returns empty", func(t *testing.T) {
		empty := func(*http.Request) string { return "" }
		h := limiter.Middleware(httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}, empty)(okHandler())
		for range 3 {
			require.Equal(t, http.StatusOK, serve(h, fromIP("192.168.1.1")).Code)
		}
	})
}

func TestRateLimitByIPAndJSONField(t *testing.T) {
	limiter := httpx.NewRateLimiter(nil)
	h := limiter.ByIPAndJSONField(httpx.RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Burst: 2}, "email")(okHandler())

	login := func(email string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"`+email+`"}`))
		req.RemoteAddr = "192.168.1.1:12345"
		return req
	}

	for range 2 {
		require.Equal(t, http.StatusOK, serve(h, login("alice@example.com")).Code)
	}
	require.Equal(t, http.StatusTooManyRequests, serve(h, login("ALICE@example.com")).Code)
	require.Equal(t, http.StatusOK, serve(h, login("bob@example.com")).Code)
}

func TestRateLimitHeadersAndBody(t *testing.T) {
	limiter := httpx.NewRateLimiter(nil)
	h := limiter.ByIP(httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1})(okHandler())

	require.Equal(t, http.StatusOK, serve(h, fromIP("192.168.1.1")).Code)

	rec := serve(h, fromIP("192.168.1.1"))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "1m0s", rec.Header().Get("X-RateLimit-Window"))
	require.JSONEq(t, `{"message":"Too many requests. Please try again later.","error":"rate_limited"}`, rec.Body.String())
}

func TestDefaultRateLimitProfiles(t *testing.T) {
	p := httpx.DefaultRateLimitProfiles()
	for name, cfg := range map[string]httpx.RateLimitConfig{"strict": p.Strict, "moderate": p.Moderate, "lenient": p.Lenient} {
		t.Run(name, func(t *testing.T) {
			require.Positive(t, cfg.RequestsPerWindow)
			require.Positive(t, cfg.Window)
			require.Positive(t, cfg.Burst)
		})
	}
	require.Less(t, p.Strict.RequestsPerWindow, p.Moderate.RequestsPerWindow)
	require.Less(t, p.Moderate.RequestsPerWindow, p.Lenient.RequestsPerWindow)
}

func TestLoadRateLimitProfiles(t *testing.T) {
	env := func(kv map[string]string) func(string) string {
		return func(k string) string { return kv[k] }
	}
	def := httpx.DefaultRateLimitProfiles()

	t.Run("no overrides uses defaults", func(t *testing.T) {
		require.Equal(t, def, httpx.LoadRateLimitProfiles(env(nil)))
	})

	t.Run("overrides all parameters", func(t *testing.T) {
		p := httpx.LoadRateLimitProfiles(env(map[string]string{
			"RATELIMIT_STRICT_REQUESTS":   "200",
			"RATELIMIT_STRICT_WINDOW_SEC": "30",
			"RATELIMIT_STRICT_BURST":      "250",
		}))
		require.Equal(t, httpx.RateLimitConfig{RequestsPerWindow: 200, Window: 30 * time.Second, Burst: 250}, p.Strict)
		require.Equal(t, def.Moderate, p.Moderate)
	})

	t.Run("invalid and zero values use defaults", func(t *testing.T) {
		p := httpx.LoadRateLimitProfiles(env(map[string]string{
			"RATELIMIT_MODERATE_REQUESTS":   "invalid",
			"RATELIMIT_MODERATE_WINDOW_SEC": "-10",
			"RATELIMIT_MODERATE_BURST":      "0",
		}))
		require.Equal(t, def.Moderate, p.Moderate)
	})
}

func BenchmarkRateLimitManyIPs(b *testing.B) {
	limiter := httpx.NewRateLimiter(nil)
	h := limiter.ByIP(httpx.RateLimitConfig{RequestsPerWindow: 1000000, Window: time.Minute, Burst: 1000})(okHandler())

	for i := 0; b.Loop(); i++ {
		h.ServeHTTP(httptest.NewRecorder(), fromIP(fmt.Sprintf("192.168.%d.%d", i%255, (i/255)%255)))
	}
}
