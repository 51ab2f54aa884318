package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example/training-reservations/internal/client"
)

// sessionFile is the on-disk form of a login.
type sessionFile struct {
	Server    string    `yaml:"server"`
	UserID    string    `yaml:"user_id"`
	Username  string    `yaml:"username"`
	Role      string    `yaml:"role"`
	Token     string    `yaml:"token,omitempty"`
	ExpiresAt time.Time `yaml:"expires_at,omitempty"`
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".reservectl-session.yaml"
	}
	return filepath.Join(dir, "reservectl", "session.yaml")
}

// loadSession returns the anonymous session when nothing is stored, when the
// stored one belongs to another server, or when it has expired.
func loadSession(path, server string, now time.Time) (client.Session, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return client.Session{}, nil
	}
	if err != nil {
		return client.Session{}, fmt.Errorf("read session %s: %w", path, err)
	}

	var stored sessionFile
	if err := yaml.Unmarshal(raw, &stored); err != nil {
		return client.Session{}, fmt.Errorf("decode session %s: %w", path, err)
	}
	if stored.Server != server {
		return client.Session{}, nil
	}
	if !stored.ExpiresAt.IsZero() && !now.Before(stored.ExpiresAt) {
		return client.Session{}, nil
	}
	return client.Session{
		User:      client.User{ID: stored.UserID, Username: stored.Username, Role: stored.Role},
		Token:     stored.Token,
		ExpiresAt: stored.ExpiresAt,
	}, nil
}

func saveSession(path, server string, session client.Session) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	raw, err := yaml.Marshal(sessionFile{
		Server:    server,
		UserID:    session.User.ID,
		Username:  session.User.Username,
		Role:      session.User.Role,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return os.WriteFile(path, raw, 0o600)
}

func clearSession(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
