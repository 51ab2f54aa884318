package http

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/example/training-reservations/internal/application"
)

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	validator := tokenValidatorStub{tokens: map[string]application.Principal{
		"good": {UserID: "u-1", Role: application.RoleFaculty},
	}}

	tests := []struct {
		name          string
		header        string
		wantStatus    int
		wantPrincipal string
	}{
		{name: "anonymous request passes", wantStatus: http.StatusOK},
		{name: "valid bearer token", header: "Bearer good", wantStatus: http.StatusOK, wantPrincipal: "u-1"},
		{name: "case insensitive scheme", header: "bearer good", wantStatus: http.StatusOK, wantPrincipal: "u-1"},
		{name: "invalid token", header: "Bearer forged", wantStatus: http.StatusUnauthorized},
		{name: "non bearer scheme is ignored", header: "Basic abc", wantStatus: http.StatusOK},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var got application.Principal
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, _ = PrincipalFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			Authenticate(validator, discardLogger())(next).ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, rec.Code)
			}
			if got.UserID != tc.wantPrincipal {
				t.Fatalf("expected principal %q, got %q", tc.wantPrincipal, got.UserID)
			}
		})
	}
}

func TestAuthenticateValidatorFailure(t *testing.T) {
	t.Parallel()

	failing := validatorFunc(func(context.Context, string) (application.Principal, error) {
		return application.Principal{}, errors.New("key store offline")
	})
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()
	Authenticate(failing, discardLogger())(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

type validatorFunc func(ctx context.Context, token string) (application.Principal, error)

func (f validatorFunc) ValidateToken(ctx context.Context, token string) (application.Principal, error) {
	return f(ctx, token)
}

func TestRequireAuthOnMutations(t *testing.T) {
	t.Parallel()

	ts := newTestServer(true)
	body := `{"userId":"u-alice","startTime":"2026-05-21T10:00:00Z","endTime":"2026-05-21T11:00:00Z","type":0}`

	if rec := ts.do(t, http.MethodPost, "/reservations", body); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodDelete, "/reservations/res-1", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for delete without token, got %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodGet, "/reservations", ""); rec.Code != http.StatusOK {
		t.Fatalf("reads stay open, got %d", rec.Code)
	}

	rec := ts.do(t, http.MethodPost, "/reservations", body, "Authorization", "Bearer faculty-token")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 with token, got %d", rec.Code)
	}
	if p := ts.reservations.lastCreate.Principal; p.UserID != "u-alice" || p.Role != application.RoleFaculty {
		t.Fatalf("principal not forwarded: %+v", p)
	}
}

func TestForbiddenMapsTo403(t *testing.T) {
	t.Parallel()

	ts := newTestServer(false)
	ts.reservations.deleteErr = application.ErrUnauthorized

	rec := ts.do(t, http.MethodDelete, "/reservations/res-2", "", "Authorization", "Bearer faculty-token")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if ts.reservations.lastPrincipal.UserID != "u-alice" {
		t.Fatalf("expected faculty principal, got %+v", ts.reservations.lastPrincipal)
	}
}

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var sawLogger bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawLogger = LoggerFromContext(r.Context()) != nil
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	RequestLogger(logger)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reservations", nil))

	if !sawLogger {
		t.Fatalf("expected logger in request context")
	}
	out := buf.String()
	for _, want := range []string{"request completed", "status=418", "path=/reservations", "method=GET"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected log output to contain %q:\n%s", want, out)
		}
	}
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	t.Parallel()

	ts := newTestServer(false)
	rec := ts.do(t, http.MethodGet, "/nowhere", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if body := decodeBody[errorResponse](t, rec); body.ErrorCode != CodeNotFound {
		t.Fatalf("unexpected body %+v", body)
	}
}
