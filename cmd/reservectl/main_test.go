package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/training-reservations/internal/calendar"
	"github.com/example/training-reservations/internal/client"
)

var fixedNow = time.Date(2026, 5, 20, 9, 0, 0, 0, time.UTC)

type fakeAPI struct {
	mu         sync.Mutex
	lastCreate map[string]any
	lastAuth   string
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/reservations", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{
			{"id": "r1", "userId": "u1", "startTime": "2026-05-19T10:00:00Z", "endTime": "2026-05-19T11:00:00Z", "type": 0, "username": "alice"},
			{"id": "r2", "userId": "u0", "startTime": "2026-05-19T10:00:00Z", "endTime": "2026-05-19T11:00:00Z", "type": 1, "username": "admin"},
			{"id": "r3", "userId": "u2", "startTime": "2026-05-22T15:00:00Z", "endTime": "2026-05-22T16:00:00Z", "type": 0, "username": "bob"},
		})
	})
	mux.HandleFunc("POST /api/reservations", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.lastCreate = body
		f.lastAuth = r.Header.Get("Authorization")
		f.mu.Unlock()

		if body["startTime"] == "2026-05-19T10:30:00Z" {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error_code": "SLOT_CONFLICT",
				"message":    "The requested time slot overlaps an existing reservation.",
				"conflicts":  []map[string]any{{"id": "r1", "startTime": "2026-05-19T10:00:00Z", "endTime": "2026-05-19T11:00:00Z"}},
			})
			return
		}
		end, _ := body["endTime"].(string)
		writeJSON(w, http.StatusCreated, map[string]any{
			"id": "r9", "userId": body["userId"], "startTime": body["startTime"], "endTime": end, "type": body["type"], "username": "alice",
		})
	})
	mux.HandleFunc("DELETE /api/reservations/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "r1" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"error_code": "NOT_FOUND", "message": "Reservation not found."})
	})
	mux.HandleFunc("GET /api/user", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]string{
			{"id": "u0", "username": "admin", "role": "Admin"},
			{"id": "u1", "username": "alice", "role": "Faculty"},
		})
	})
	mux.HandleFunc("POST /api/user/login/faculty", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["username"] != "alice" || body["password"] != "secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid faculty username or password"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message":   "Faculty login successful",
			"token":     "tok",
			"expiresAt": "2026-05-20T21:00:00Z",
			"user":      map[string]string{"id": "u1", "username": "alice", "role": "Faculty"},
		})
	})
	return mux
}

type harness struct {
	api         *fakeAPI
	server      string
	sessionPath string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	return &harness{api: api, server: srv.URL + "/api", sessionPath: filepath.Join(t.TempDir(), "session.yaml")}
}

func (h *harness) run(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	full := append([]string{"-server", h.server, "-session", h.sessionPath, "-tz", "UTC"}, args...)
	code := run(context.Background(), full, &stdout, &stderr, func(string) string { return "" }, func() time.Time { return fixedNow })
	return code, stdout.String(), stderr.String()
}

func lineStarting(out, prefix string) string {
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, prefix) {
			return line
		}
	}
	return ""
}

func TestWeekCommand(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	code, out, errOut := h.run("week", "-names")
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d: %s", code, errOut)
	}
	if !strings.Contains(out, "May 18 - May 22, 2026") || !strings.Contains(out, "Tue 05/19") {
		t.Fatalf("unexpected header:\n%s", out)
	}
	if row := lineStarting(out, "10:00"); !strings.Contains(row, "T+E alice,admin") {
		t.Fatalf("expected shared 10:00 slot, got %q", row)
	}
	if row := lineStarting(out, "15:00"); !strings.Contains(row, "T bob") {
		t.Fatalf("expected Friday booking, got %q", row)
	}

	code, out, _ = h.run("week", "-offset", "1")
	if code != exitOK || !strings.Contains(out, "May 25 - May 29, 2026") {
		t.Fatalf("expected next week, got %d:\n%s", code, out)
	}
	if row := lineStarting(out, "10:00"); strings.Contains(row, "T") {
		t.Fatalf("next week must be empty, got %q", row)
	}
}

func TestBookCommand(t *testing.T) {
	t.Parallel()

	t.Run("accepted", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)

		code, out, errOut := h.run("book", "-user", "u1", "-start", "2026-05-19T11:00")
		if code != exitOK {
			t.Fatalf("expected exit 0, got %d: %s", code, errOut)
		}
		if !strings.Contains(out, "booked r9 training") {
			t.Fatalf("unexpected output %q", out)
		}
		h.api.mu.Lock()
		defer h.api.mu.Unlock()
		if h.api.lastCreate["startTime"] != "2026-05-19T11:00:00Z" || h.api.lastCreate["endTime"] != "2026-05-19T12:00:00Z" {
			t.Fatalf("unexpected request body %v", h.api.lastCreate)
		}
	})

	t.Run("rejected by the rules", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)

		code, _, errOut := h.run("book", "-user", "u2", "-start", "2026-05-19T10:30:00Z")
		if code != exitRejected {
			t.Fatalf("expected exit %d, got %d", exitRejected, code)
		}
		if !strings.Contains(errOut, "overlaps an existing reservation") || !strings.Contains(errOut, "conflicts with r1") {
			t.Fatalf("unexpected stderr %q", errOut)
		}
	})

	t.Run("event carries type 1", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)

		code, out, errOut := h.run("event", "-user", "u0", "-start", "2026-05-21 14:00")
		if code != exitOK {
			t.Fatalf("expected exit 0, got %d: %s", code, errOut)
		}
		h.api.mu.Lock()
		defer h.api.mu.Unlock()
		if h.api.lastCreate["type"] != float64(1) {
			t.Fatalf("expected event type, got %v", h.api.lastCreate["type"])
		}
		if !strings.Contains(out, "event") {
			t.Fatalf("unexpected output %q", out)
		}
	})

	t.Run("usage errors", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)

		tests := [][]string{
			{"book", "-start", "2026-05-19T11:00"},
			{"book", "-user", "u1"},
			{"book", "-user", "u1", "-start", "tomorrow"},
			{"book", "-bogus"},
		}
		for _, args := range tests {
			if code, _, _ := h.run(args...); code != exitUsage {
				t.Fatalf("%v: expected exit %d, got %d", args, exitUsage, code)
			}
		}
	})
}

func TestUnreachableServer(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	var stdout, stderr bytes.Buffer
	code := run(context.Background(),
		[]string{"-server", url, "-session", filepath.Join(t.TempDir(), "s.yaml"), "-tz", "UTC", "week"},
		&stdout, &stderr, func(string) string { return "" }, func() time.Time { return fixedNow })
	if code != exitUnreachable {
		t.Fatalf("expected exit %d, got %d: %s", exitUnreachable, code, stderr.String())
	}
	if stdout.Len() != 0 {
		t.Fatalf("no grid may be shown when the server is down, got %q", stdout.String())
	}
}

func TestDeleteCommand(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	if code, out, errOut := h.run("delete", "r1"); code != exitOK || !strings.Contains(out, "deleted r1") {
		t.Fatalf("expected delete to succeed, got %d %q %q", code, out, errOut)
	}
	code, _, errOut := h.run("delete", "missing")
	if code != exitUsage || !strings.Contains(errOut, "reservation missing does not exist") {
		t.Fatalf("expected not found, got %d %q", code, errOut)
	}
	if code, _, _ := h.run("delete"); code != exitUsage {
		t.Fatalf("expected usage error without ids, got %d", code)
	}
}

func TestUsersCommand(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	code, out, _ := h.run("users")
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if row := lineStarting(out, "u1"); !strings.Contains(row, "alice") || !strings.Contains(row, "Faculty") {
		t.Fatalf("unexpected users table:\n%s", out)
	}
}

func TestLoginSessionFlow(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	if code, _, errOut := h.run("login", "-username", "alice", "-password", "wrong"); code != exitUsage || !strings.Contains(errOut, "invalid faculty username or password") {
		t.Fatalf("expected refused login, got %d %q", code, errOut)
	}

	code, out, errOut := h.run("login", "-username", "alice", "-password", "secret")
	if code != exitOK || !strings.Contains(out, "logged in as alice (Faculty)") {
		t.Fatalf("expected login, got %d %q %q", code, out, errOut)
	}

	if code, _, errOut := h.run("book", "-start", "2026-05-19T12:00"); code != exitOK {
		t.Fatalf("expected booking as the session user, got %d %q", code, errOut)
	}
	h.api.mu.Lock()
	userID, auth := h.api.lastCreate["userId"], h.api.lastAuth
	h.api.mu.Unlock()
	if userID != "u1" || auth != "Bearer tok" {
		t.Fatalf("expected session user and token, got %v %q", userID, auth)
	}

	if code, _, _ := h.run("logout"); code != exitOK {
		t.Fatalf("logout failed")
	}
	if _, err := os.Stat(h.sessionPath); !os.IsNotExist(err) {
		t.Fatalf("expected session file to be removed, got %v", err)
	}
}

func TestLoadSession(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "session.yaml")
	session := client.Session{
		User:      client.User{ID: "u1", Username: "alice", Role: "Faculty"},
		Token:     "tok",
		ExpiresAt: fixedNow.Add(time.Hour),
	}
	if err := saveSession(path, "http://a/api", session); err != nil {
		t.Fatalf("saveSession returned error: %v", err)
	}

	tests := []struct {
		name     string
		server   string
		now      time.Time
		loggedIn bool
	}{
		{"same server", "http://a/api", fixedNow, true},
		{"other server", "http://b/api", fixedNow, false},
		{"expired", "http://a/api", fixedNow.Add(2 * time.Hour), false},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := loadSession(path, tc.server, tc.now)
			if err != nil {
				t.Fatalf("loadSession returned error: %v", err)
			}
			if got.LoggedIn() != tc.loggedIn {
				t.Fatalf("expected logged in %v, got %+v", tc.loggedIn, got)
			}
			if tc.loggedIn && (got.Token != "tok" || got.User.Username != "alice") {
				t.Fatalf("unexpected session %+v", got)
			}
		})
	}

	got, err := loadSession(filepath.Join(t.TempDir(), "none.yaml"), "http://a/api", fixedNow)
	if err != nil || got.LoggedIn() {
		t.Fatalf("missing file must yield an anonymous session, got %+v %v", got, err)
	}
}

func TestCellText(t *testing.T) {
	t.Parallel()

	alice := calendar.Entry{Username: "alice", Kind: calendar.KindTraining}
	admin := calendar.Entry{Username: "admin", Kind: calendar.KindEvent}
	tests := []struct {
		name  string
		occ   calendar.Occupancy
		names bool
		want  string
	}{
		{"free", calendar.Occupancy{}, true, "."},
		{"training", calendar.Occupancy{Training: true, Entries: []calendar.Entry{alice}}, false, "T"},
		{"both with names", calendar.Occupancy{Training: true, Event: true, Entries: []calendar.Entry{alice, admin}}, true, "T+E alice,admin"},
		{"unknown owner", calendar.Occupancy{Event: true, Entries: []calendar.Entry{{Kind: calendar.KindEvent}}}, true, "E"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := cellText(tc.occ, tc.names); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestRunUsage(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	if code, _, _ := h.run(); code != exitUsage {
		t.Fatalf("expected usage exit without a command, got %d", code)
	}
	if code, _, errOut := h.run("reserve"); code != exitUsage || !strings.Contains(errOut, `unknown command "reserve"`) {
		t.Fatalf("expected unknown command, got %d %q", code, errOut)
	}
	if code, _, _ := h.run("-tz", "Mars/Olympus", "week"); code != exitUsage {
		t.Fatalf("expected bad time zone to be a usage error, got %d", code)
	}
}
