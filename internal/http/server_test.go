package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chenty2333/ancient-arch/internal/auth"
	"github.com/chenty2333/ancient-arch/internal/model"
)

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi"},
		{"bearer abc.def.ghi", ""},
		{"BEARER abc.def.ghi", ""},
		{"Bearerabc", ""},
		{"Basic dXNlcjpwYXNz", ""},
		{"", ""},
		{"Bearer ", ""},
	}
	for _, tc := range cases {
		if got := bearerToken(tc.header); got != tc.want {
			t.Errorf("bearerToken(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}

func probeHandler(hit *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hit = true
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthMiddleware(t *testing.T) {
	srv := newTestServer(&fakeStore{})

	t.Run("no token", func(t *testing.T) {
		var hit bool
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		srv.authMiddleware(probeHandler(&hit)).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
		if hit {
			t.Error("handler reached without a token")
		}
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := auth.NewLoginToken(auth.ScopedSecret(testSecret, auth.ScopeLogin), 1, model.RoleUser, -time.Minute)
		if err != nil {
			t.Fatalf("NewLoginToken: %v", err)
		}
		var hit bool
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		srv.authMiddleware(probeHandler(&hit)).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "unauthorized") {
			t.Errorf("expired token leaks a distinct error: %s", rec.Body.String())
		}
	})

	t.Run("exam token rejected at the auth gate", func(t *testing.T) {
		token := examTokenFor(t, []int64{1}, time.Minute)
		var hit bool
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		srv.authMiddleware(probeHandler(&hit)).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("valid token attaches the principal", func(t *testing.T) {
		var got *principal
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = principalFromContext(r.Context())
		})
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+loginTokenFor(t, 9, model.RoleAdmin))
		srv.authMiddleware(inner).ServeHTTP(rec, req)
		if got == nil || got.ID != 9 || got.Role != model.RoleAdmin {
			t.Errorf("principal = %+v, want ID 9 role admin", got)
		}
	})
}

func TestOptionalAuthMiddleware(t *testing.T) {
	srv := newTestServer(&fakeStore{})

	t.Run("garbage token passes through anonymously", func(t *testing.T) {
		var got *principal
		hit := false
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hit = true
			got = principalFromContext(r.Context())
		})
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		srv.optionalAuthMiddleware(inner).ServeHTTP(rec, req)
		if !hit {
			t.Fatal("handler not reached")
		}
		if got != nil {
			t.Errorf("principal = %+v, want nil", got)
		}
	})

	t.Run("valid token attaches the principal", func(t *testing.T) {
		var got *principal
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = principalFromContext(r.Context())
		})
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+loginTokenFor(t, 5, model.RoleUser))
		srv.optionalAuthMiddleware(inner).ServeHTTP(rec, req)
		if got == nil || got.ID != 5 {
			t.Errorf("principal = %+v, want ID 5", got)
		}
	})
}

func withPrincipal(req *http.Request, p *principal) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), principalKey{}, p))
}

func TestRequireVerified(t *testing.T) {
	cases := []struct {
		name       string
		verified   bool
		role       string
		wantStatus int
	}{
		{"unverified user", false, model.RoleUser, http.StatusUnauthorized},
		{"verified user", true, model.RoleUser, http.StatusNoContent},
		{"unverified admin", false, model.RoleAdmin, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeStore{
				userVerification: func(_ context.Context, userID int64) (bool, string, error) {
					return tc.verified, tc.role, nil
				},
			}
			srv := newTestServer(store)

			var hit bool
			rec := httptest.NewRecorder()
			req := withPrincipal(httptest.NewRequest(http.MethodPost, "/", nil), &principal{ID: 1, Role: tc.role})
			srv.requireVerified(probeHandler(&hit)).ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if tc.wantStatus == http.StatusUnauthorized && !strings.Contains(rec.Body.String(), "must be a verified contributor") {
				t.Errorf("unexpected body: %s", rec.Body.String())
			}
		})
	}
}

// The verified gate reads storage on every request, so verification and
// revocation take effect without a new login.
func TestRequireVerifiedReadsCurrentState(t *testing.T) {
	verified := false
	store := &fakeStore{
		userVerification: func(_ context.Context, userID int64) (bool, string, error) {
			return verified, model.RoleUser, nil
		},
	}
	srv := newTestServer(store)

	var hit bool
	gate := srv.requireVerified(probeHandler(&hit))

	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, withPrincipal(httptest.NewRequest(http.MethodPost, "/", nil), &principal{ID: 1, Role: model.RoleUser}))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("before verification: status = %d, want 401", rec.Code)
	}

	verified = true
	rec = httptest.NewRecorder()
	gate.ServeHTTP(rec, withPrincipal(httptest.NewRequest(http.MethodPost, "/", nil), &principal{ID: 1, Role: model.RoleUser}))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("after verification: status = %d, want 204", rec.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	srv := newTestServer(&fakeStore{})

	var hit bool
	rec := httptest.NewRecorder()
	req := withPrincipal(httptest.NewRequest(http.MethodGet, "/", nil), &principal{ID: 1, Role: model.RoleUser})
	srv.requireAdmin(probeHandler(&hit)).ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-admin: status = %d, want 403", rec.Code)
	}
	if hit {
		t.Error("handler reached by non-admin")
	}

	rec = httptest.NewRecorder()
	req = withPrincipal(httptest.NewRequest(http.MethodGet, "/", nil), &principal{ID: 1, Role: model.RoleAdmin})
	srv.requireAdmin(probeHandler(&hit)).ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("admin: status = %d, want 204", rec.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(&fakeStore{})
	rec := doRequest(t, srv.Router(), http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("X-Request-Id header missing")
	}
}
