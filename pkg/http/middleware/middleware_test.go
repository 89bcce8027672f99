package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func serve(e *echo.Echo, method, path string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func ok(c echo.Context) error { return c.String(http.StatusOK, "ok") }

func sign(t *testing.T, secret string, method jwt.SigningMethod, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(method, jwt.MapClaims{"sub": "u1", "exp": exp.Unix()})
	s, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestJWT(t *testing.T) {
	e := echo.New()
	e.GET("/p", func(c echo.Context) error {
		claims, _ := c.Get(ClaimsKey).(jwt.MapClaims)
		return c.String(http.StatusOK, claims["sub"].(string))
	}, JWT("s3cret"))

	valid := sign(t, "s3cret", jwt.SigningMethodHS256, time.Now().Add(time.Hour))
	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + valid, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", valid, http.StatusUnauthorized},
		{"wrong secret", "Bearer " + sign(t, "other", jwt.SigningMethodHS256, time.Now().Add(time.Hour)), http.StatusUnauthorized},
		{"expired", "Bearer " + sign(t, "s3cret", jwt.SigningMethodHS256, time.Now().Add(-time.Hour)), http.StatusUnauthorized},
		{"wrong alg", "Bearer " + sign(t, "s3cret", jwt.SigningMethodHS512, time.Now().Add(time.Hour)), http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hdr := map[string]string{}
			if tt.header != "" {
				hdr[echo.HeaderAuthorization] = tt.header
			}
			rec := serve(e, http.MethodGet, "/p", hdr)
			if rec.Code != tt.want {
				t.Fatalf("status %d want %d body=%s", rec.Code, tt.want, rec.Body)
			}
			if tt.want == http.StatusOK && rec.Body.String() != "u1" {
				t.Fatalf("claims not exposed: %s", rec.Body)
			}
		})
	}
}

func TestJWTDisabled(t *testing.T) {
	e := echo.New()
	e.GET("/p", ok, JWT(""))
	if rec := serve(e, http.MethodGet, "/p", nil); rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
}

type countAllower struct{ left int }

func (a *countAllower) Allow(string, float64, float64) bool {
	if a.left <= 0 {
		return false
	}
	a.left--
	return true
}

func TestRateLimit(t *testing.T) {
	e := echo.New()
	e.GET("/p", ok, RateLimit(&countAllower{left: 1}, 1, 1))
	if rec := serve(e, http.MethodGet, "/p", nil); rec.Code != http.StatusOK {
		t.Fatalf("first %d", rec.Code)
	}
	if rec := serve(e, http.MethodGet, "/p", nil); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second %d", rec.Code)
	}

	e2 := echo.New()
	e2.GET("/p", ok, RateLimit(&countAllower{}, 0, 0))
	if rec := serve(e2, http.MethodGet, "/p", nil); rec.Code != http.StatusOK {
		t.Fatalf("disabled limiter %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	e := echo.New()
	e.Use(CORS(CORSConfig{AllowOrigins: []string{"*"}, AllowMethods: []string{"GET", "POST"}}))
	e.POST("/p", ok)

	rec := serve(e, http.MethodOptions, "/p", map[string]string{echo.HeaderOrigin: "http://ui"})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight %d", rec.Code)
	}
	if rec.Header().Get(echo.HeaderAccessControlAllowOrigin) != "http://ui" {
		t.Fatalf("allow origin %q", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	}
	if rec.Header().Get(echo.HeaderAccessControlAllowMethods) != "GET, POST" {
		t.Fatalf("allow methods %q", rec.Header().Get(echo.HeaderAccessControlAllowMethods))
	}
}

func TestRecover(t *testing.T) {
	e := echo.New()
	e.Use(Recover(nil))
	e.GET("/boom", func(echo.Context) error { panic("boom") })
	if rec := serve(e, http.MethodGet, "/boom", nil); rec.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestHTTPMetrics(t *testing.T) {
	m := NewHTTPMetrics(prometheus.NewRegistry())
	e := echo.New()
	e.Use(m.Middleware(nil, time.Second))
	e.GET("/api/get-options", ok)

	serve(e, http.MethodGet, "/api/get-options", nil)
	serve(e, http.MethodGet, "/nope", nil)

	if v := testutil.ToFloat64(m.requests.WithLabelValues("/api/get-options", "GET", "200")); v != 1 {
		t.Fatalf("requests %v", v)
	}
	if v := testutil.ToFloat64(m.inFlight.WithLabelValues("/api/get-options", "GET")); v != 0 {
		t.Fatalf("in flight %v", v)
	}
}
