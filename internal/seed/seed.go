// Package seed loads the initial user accounts from a YAML file. Accounts are
// created once; rerunning a seed leaves existing usernames untouched.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example/training-reservations/internal/application"
	"github.com/example/training-reservations/internal/persistence"
)

// File is the document layout:
//
//	users:
//	  - username: admin
//	    password: change-me
//	    role: admin
//	  - username: jdoe
//	    password_hash: $2a$10$...
//	    role: faculty
type File struct {
	Users []UserEntry `yaml:"users"`
}

// UserEntry describes one account. PasswordHash takes precedence over
// Password and lets bcrypt or argon2id hashes be imported unchanged.
type UserEntry struct {
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	PasswordHash string `yaml:"password_hash"`
	Role         string `yaml:"role"`
}

// Result summarizes an Apply run.
type Result struct {
	Created []string
	Skipped []string
}

// Load reads and validates a seed file.
func Load(path string) (*File, error) {
	if path == "" {
		return nil, errors.New("seed path is empty")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses and validates a seed document.
func Decode(r io.Reader) (*File, error) {
	var file File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	if err := file.Validate(); err != nil {
		return nil, err
	}
	return &file, nil
}

// Validate checks every entry and rejects duplicate usernames.
func (f *File) Validate() error {
	seen := make(map[string]struct{}, len(f.Users))
	var errs []error
	for i, u := range f.Users {
		name := strings.TrimSpace(u.Username)
		if name == "" {
			errs = append(errs, fmt.Errorf("users[%d]: username is required", i))
			continue
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			errs = append(errs, fmt.Errorf("users[%d]: duplicate username %q", i, name))
		}
		seen[key] = struct{}{}
		if _, ok := application.ParseRole(u.Role); !ok {
			errs = append(errs, fmt.Errorf("users[%d]: role must be admin or faculty, got %q", i, u.Role))
		}
		if u.Password == "" && u.PasswordHash == "" {
			errs = append(errs, fmt.Errorf("users[%d]: password or password_hash is required", i))
		}
	}
	return errors.Join(errs...)
}

// Seeder writes seed entries into a user repository.
type Seeder struct {
	users       persistence.UserRepository
	idGenerator func() string
	now         func() time.Time
	params      application.Argon2idParams
	logger      *slog.Logger
}

// NewSeeder constructs a Seeder hashing passwords with the default argon2id parameters.
func NewSeeder(users persistence.UserRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *Seeder {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		users:       users,
		idGenerator: idGenerator,
		now:         now,
		params:      application.DefaultArgon2idParams,
		logger:      logger,
	}
}

// WithHashParams overrides the argon2id parameters.
func (s *Seeder) WithHashParams(params application.Argon2idParams) *Seeder {
	s.params = params
	return s
}

// Apply creates every user in file whose username is not yet taken.
func (s *Seeder) Apply(ctx context.Context, file *File) (Result, error) {
	var result Result
	if file == nil {
		return result, nil
	}
	if err := file.Validate(); err != nil {
		return result, err
	}

	for _, entry := range file.Users {
		username := strings.TrimSpace(entry.Username)
		_, err := s.users.GetUserByUsername(ctx, username)
		switch {
		case err == nil:
			result.Skipped = append(result.Skipped, username)
			continue
		case !errors.Is(err, persistence.ErrNotFound):
			return result, fmt.Errorf("lookup %s: %w", username, err)
		}

		hash := entry.PasswordHash
		if hash == "" {
			hash, err = application.CreatePasswordHash(entry.Password, s.params)
			if err != nil {
				return result, fmt.Errorf("hash password for %s: %w", username, err)
			}
		}
		role, _ := application.ParseRole(entry.Role)

		user := persistence.User{
			ID:           s.idGenerator(),
			Username:     username,
			PasswordHash: hash,
			Role:         int(role),
			CreatedAt:    s.now().UTC(),
		}
		if err := s.users.CreateUser(ctx, user); err != nil {
			if errors.Is(err, persistence.ErrDuplicate) {
				result.Skipped = append(result.Skipped, username)
				continue
			}
			return result, fmt.Errorf("create %s: %w", username, err)
		}
		result.Created = append(result.Created, username)
	}

	s.logger.InfoContext(ctx, "seed applied", "created", len(result.Created), "skipped", len(result.Skipped))
	return result, nil
}
