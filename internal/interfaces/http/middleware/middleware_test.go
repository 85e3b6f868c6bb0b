package middleware

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/dreschagin/qtrack/internal/domain/apperror"
	"github.com/dreschagin/qtrack/internal/domain/entity"
	"github.com/dreschagin/qtrack/internal/domain/valueobject"
	"github.com/dreschagin/qtrack/pkg/logger"
)

type fakeUsers map[string]*entity.User

func (f fakeUsers) Authenticate(_ context.Context, id string) (*entity.User, error) {
	user, ok := f[id]
	if !ok {
		return nil, apperror.Unauthorized("Unknown user")
	}
	if !user.IsActive {
		return nil, apperror.Unauthorized("User is deactivated")
	}
	return user, nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth(t *testing.T) {
	log := logger.New("error")

	tests := []struct {
		name   string
		cfg    AuthConfig
		header string
		query  string
		want   int
	}{
		{name: "disabled", cfg: AuthConfig{}, want: http.StatusOK},
		{name: "valid bearer", cfg: AuthConfig{Enabled: true, BearerToken: "secret"}, header: "Bearer secret", want: http.StatusOK},
		{name: "query token", cfg: AuthConfig{Enabled: true, BearerToken: "secret"}, query: "?token=secret", want: http.StatusOK},
		{name: "wrong token", cfg: AuthConfig{Enabled: true, BearerToken: "secret"}, header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "missing token", cfg: AuthConfig{Enabled: true, BearerToken: "secret"}, want: http.StatusUnauthorized},
		{name: "empty configured token", cfg: AuthConfig{Enabled: true}, header: "Bearer ", want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failures := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_auth_failures"})
			tt.cfg.Failures = failures

			req := httptest.NewRequest(http.MethodGet, "/api/tickets"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			Auth(tt.cfg, log)(okHandler()).ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			wantFailures := 0.0
			if tt.want == http.StatusUnauthorized {
				wantFailures = 1
			}
			if got := testutil.ToFloat64(failures); got != wantFailures {
				t.Fatalf("failures = %v, want %v", got, wantFailures)
			}
		})
	}
}

func TestIdentifyAndRequirePermission(t *testing.T) {
	log := logger.New("error")
	now := time.Now()

	qa := entity.NewUser("qa@example.com", "QA", valueobject.RoleQA, now)
	dev := entity.NewUser("dev@example.com", "Dev", valueobject.RoleDev, now)
	gone := entity.NewUser("gone@example.com", "Gone", valueobject.RoleAdmin, now)
	gone.IsActive = false
	users := fakeUsers{qa.ID: qa, dev.ID: dev, gone.ID: gone}

	chain := Identify(users, nil, log)(RequirePermission(valueobject.PermTestCasesExecute, nil)(okHandler()))

	tests := []struct {
		name   string
		userID string
		want   int
	}{
		{name: "anonymous", want: http.StatusOK},
		{name: "qa may execute", userID: qa.ID, want: http.StatusOK},
		{name: "dev may not execute", userID: dev.ID, want: http.StatusForbidden},
		{name: "deactivated", userID: gone.ID, want: http.StatusUnauthorized},
		{name: "unknown", userID: "ghost", want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/test-cases/1/execute", nil)
			if tt.userID != "" {
				req.Header.Set(UserHeader, tt.userID)
			}
			rec := httptest.NewRecorder()
			chain.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || rec.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("expected generated request id, got %q / %q", seen, rec.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != "abc-123" {
		t.Fatalf("expected propagated request id, got %q", seen)
	}
}

func TestRateLimit(t *testing.T) {
	limiter := NewIPRateLimiter(2, 2)
	dropped := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_dropped"})
	h := RateLimit(limiter, dropped)(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence %v", codes)
	}
	if got := testutil.ToFloat64(dropped); got != 1 {
		t.Fatalf("dropped = %v, want 1", got)
	}

	// другой IP имеет свой бюджет
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:5000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("second client status = %d", rec.Code)
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	limiter := NewIPRateLimiter(60, 0)
	now := time.Now()
	limiter.now = func() time.Time { return now }

	limiter.Allow("10.0.0.1")
	now = now.Add(10 * time.Minute)
	limiter.Allow("10.0.0.2")
	limiter.cleanup()

	if got := limiter.size(); got != 1 {
		t.Fatalf("expected idle visitor to be removed, %d left", got)
	}
}

func TestCompression(t *testing.T) {
	handler := Compression("/metrics")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/empty" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}))

	tests := []struct {
		name       string
		path       string
		encoding   string
		wantGzip   bool
		wantStatus int
	}{
		{name: "gzip accepted", path: "/api/tickets", encoding: "gzip, deflate", wantGzip: true, wantStatus: http.StatusOK},
		{name: "no accept-encoding", path: "/api/tickets", wantStatus: http.StatusOK},
		{name: "skipped path", path: "/metrics", encoding: "gzip", wantStatus: http.StatusOK},
		{name: "no body", path: "/empty", encoding: "gzip", wantStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.encoding != "" {
				req.Header.Set("Accept-Encoding", tt.encoding)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			gzipped := rec.Header().Get("Content-Encoding") == "gzip"
			if gzipped != tt.wantGzip {
				t.Fatalf("gzip = %v, want %v", gzipped, tt.wantGzip)
			}
			if !gzipped {
				return
			}

			zr, err := gzip.NewReader(rec.Body)
			if err != nil {
				t.Fatalf("gzip reader: %v", err)
			}
			body, _ := io.ReadAll(zr)
			if string(body) != "{\"status\":\"ok\"}\n" {
				t.Fatalf("unexpected body %q", body)
			}
		})
	}
}
