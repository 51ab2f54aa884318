package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/training-reservations/internal/calendar"
)

var slotStart = time.Date(2026, 5, 18, 10, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL + "/api/")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return c
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestNew(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "ftp://example.com", "://bad"} {
		if _, err := New(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
	if _, err := New("https://example.com/api", WithTimeout(time.Second)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestListReservations(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/reservations" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		writeJSON(w, http.StatusOK, []map[string]any{
			{"id": "r1", "userId": "u1", "startTime": "2026-05-18T10:00:00Z", "endTime": "2026-05-18T11:00:00Z", "type": 1, "username": "admin"},
		})
	})

	got, err := c.ListReservations(context.Background())
	if err != nil {
		t.Fatalf("ListReservations returned error: %v", err)
	}
	if len(got) != 1 || got[0].Type != calendar.KindEvent || !got[0].StartTime.Equal(slotStart) || got[0].Username != "admin" {
		t.Fatalf("unexpected reservations %+v", got)
	}
	entry := got[0].Entry()
	if entry.Kind != calendar.KindEvent || entry.ID != "r1" || !entry.End.Equal(slotStart.Add(time.Hour)) {
		t.Fatalf("unexpected entry %+v", entry)
	}
}

func TestCreateReservation(t *testing.T) {
	t.Parallel()

	t.Run("sends UTC times and the bearer token", func(t *testing.T) {
		t.Parallel()

		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer tok" {
				t.Errorf("unexpected auth header %q", got)
			}
			body, _ := io.ReadAll(r.Body)
			if !strings.Contains(string(body), `"startTime":"2026-05-18T10:00:00Z"`) {
				t.Errorf("expected UTC start in %s", body)
			}
			writeJSON(w, http.StatusCreated, map[string]any{"id": "r9", "userId": "u1", "startTime": "2026-05-18T10:00:00Z", "endTime": "2026-05-18T11:00:00Z", "type": 0})
		})

		istanbul := time.FixedZone("UTC+3", 3*60*60)
		res, err := c.WithSession(Session{Token: "tok", User: User{ID: "u1"}}).CreateReservation(context.Background(), NewReservation{
			UserID:    "u1",
			StartTime: slotStart.In(istanbul),
			EndTime:   slotStart.Add(time.Hour).In(istanbul),
		})
		if err != nil {
			t.Fatalf("CreateReservation returned error: %v", err)
		}
		if res.ID != "r9" {
			t.Fatalf("unexpected reservation %+v", res)
		}
	})

	t.Run("rule rejections are distinct from transport failures", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			code string
			want error
		}{
			{"UNKNOWN_USER", ErrUnknownUser},
			{"INVALID_DURATION", ErrInvalidDuration},
			{"WEEKLY_LIMIT_EXCEEDED", ErrWeeklyLimitExceeded},
			{"SLOT_CONFLICT", ErrSlotConflict},
			{"VALIDATION_FAILED", ErrInvalidRequest},
		}
		for _, tc := range tests {
			tc := tc
			t.Run(tc.code, func(t *testing.T) {
				t.Parallel()

				c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
					writeJSON(w, http.StatusBadRequest, map[string]any{
						"error_code": tc.code,
						"message":    "refused: " + tc.code,
						"conflicts":  []map[string]any{{"id": "r1", "startTime": "2026-05-18T10:00:00Z", "endTime": "2026-05-18T11:00:00Z"}},
					})
				})

				_, err := c.CreateReservation(context.Background(), NewReservation{UserID: "u1", StartTime: slotStart, EndTime: slotStart.Add(time.Hour)})
				var rejection *RejectionError
				if !errors.As(err, &rejection) {
					t.Fatalf("expected RejectionError, got %v", err)
				}
				if !errors.Is(err, tc.want) {
					t.Fatalf("expected %v, got %v", tc.want, err)
				}
				if IsUnreachable(err) {
					t.Fatalf("rejection must not look like an outage")
				}
				if rejection.Message != "refused: "+tc.code || len(rejection.Conflicts) != 1 {
					t.Fatalf("unexpected rejection %+v", rejection)
				}
			})
		}
	})
}

func TestUnreachable(t *testing.T) {
	t.Parallel()

	t.Run("closed server", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		c, err := New(url)
		if err != nil {
			t.Fatalf("New returned error: %v", err)
		}
		_, err = c.ListReservations(context.Background())
		if !IsUnreachable(err) {
			t.Fatalf("expected unreachable error, got %v", err)
		}
		var rejection *RejectionError
		if errors.As(err, &rejection) {
			t.Fatalf("outage must not look like a rejection")
		}
	})

	for _, status := range []int{http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout} {
		status := status
		t.Run(http.StatusText(status), func(t *testing.T) {
			t.Parallel()

			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
			})
			_, err := c.ListUsers(context.Background())
			var unreachable *UnreachableError
			if !errors.As(err, &unreachable) || unreachable.Status != status {
				t.Fatalf("expected unreachable with status %d, got %v", status, err)
			}
		})
	}

	t.Run("cancelled context is not an outage", func(t *testing.T) {
		t.Parallel()

		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, []any{})
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := c.ListReservations(ctx)
		if !errors.Is(err, context.Canceled) || IsUnreachable(err) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}

func TestStatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, ErrNotFound},
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrForbidden},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			t.Parallel()

			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tc.status, map[string]string{"message": "nope"})
			})
			err := c.DeleteReservation(context.Background(), "r1")
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "boom"})
	})
	err := c.DeleteReservation(context.Background(), "r1")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Status != http.StatusInternalServerError || statusErr.Message != "boom" {
		t.Fatalf("expected StatusError, got %v", err)
	}
}

func TestDeleteReservation(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.EscapedPath() != "/api/reservations/r%2F1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.EscapedPath())
		}
		w.WriteHeader(http.StatusNoContent)
	})
	if err := c.DeleteReservation(context.Background(), "r/1"); err != nil {
		t.Fatalf("DeleteReservation returned error: %v", err)
	}
}

func TestCheckAvailability(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("startTime") != "2026-05-18T10:00:00Z" || q.Get("endTime") != "2026-05-18T11:00:00Z" {
			t.Errorf("unexpected query %v", q)
		}
		writeJSON(w, http.StatusOK, map[string]any{"available": false, "conflicts": []map[string]any{{"id": "r1", "startTime": "2026-05-18T10:30:00Z", "endTime": "2026-05-18T11:30:00Z"}}})
	})
	got, err := c.CheckAvailability(context.Background(), slotStart, slotStart.Add(time.Hour))
	if err != nil {
		t.Fatalf("CheckAvailability returned error: %v", err)
	}
	if got.Available || len(got.Conflicts) != 1 || got.Conflicts[0].ID != "r1" {
		t.Fatalf("unexpected availability %+v", got)
	}
}

func TestLogin(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		switch {
		case r.URL.Path == "/api/user/login/faculty" && body["password"] == "secret":
			writeJSON(w, http.StatusOK, map[string]any{
				"message":   "Faculty login successful",
				"token":     "tok",
				"expiresAt": "2026-05-18T22:00:00Z",
				"user":      map[string]string{"id": "u1", "username": "alice", "role": "Faculty"},
			})
		default:
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid faculty username or password"})
		}
	})

	session, err := c.Login(context.Background(), "Faculty", "alice", "secret")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if !session.LoggedIn() || session.Token != "tok" || session.User.IsAdmin() || session.ExpiresAt.Hour() != 22 {
		t.Fatalf("unexpected session %+v", session)
	}
	if c.Session().LoggedIn() {
		t.Fatalf("Login must not mutate the client")
	}

	if _, err := c.Login(context.Background(), "faculty", "alice", "wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := c.Login(context.Background(), "student", "alice", "secret"); err == nil {
		t.Fatalf("expected unknown role error")
	}
}
