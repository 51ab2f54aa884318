// Command reservectl is a terminal client for the reservation API: it shows
// the weekly booking grid and books, lists and deletes reservations.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/example/training-reservations/internal/calendar"
	"github.com/example/training-reservations/internal/client"
)

// Exit codes.
const (
	exitOK          = 0
	exitUsage       = 1
	exitRejected    = 2
	exitUnreachable = 3
)

const defaultServer = "http://localhost:8080/api"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "reservectl: load .env:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Getenv, time.Now)
	stop()
	os.Exit(code)
}

type usageError struct {
	msg string
}

func (e usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

// cli is the state shared by every subcommand.
type cli struct {
	api         *client.Client
	server      string
	sessionPath string
	loc         *time.Location
	now         func() time.Time
	getenv      func(string) string
	stdout      io.Writer
}

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, c *cli, args []string) error
}

var commands = []command{
	{"week", "show the booking grid for a week", runWeek},
	{"book", "book a one-hour training slot", runBook},
	{"event", "book a one-hour event slot (admin)", runEvent},
	{"delete", "delete reservations by id", runDelete},
	{"users", "list accounts", runUsers},
	{"login", "log in as admin or faculty", runLogin},
	{"logout", "forget the stored session", runLogout},
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string, now func() time.Time) int {
	global := flag.NewFlagSet("reservectl", flag.ContinueOnError)
	global.SetOutput(stderr)
	server := global.String("server", envOr(getenv, "RESERVECTL_SERVER", defaultServer), "reservation API base URL")
	sessionPath := global.String("session", envOr(getenv, "RESERVECTL_SESSION", defaultSessionPath()), "file holding the login session")
	tz := global.String("tz", envOr(getenv, "RESERVECTL_TZ", "Local"), "time zone used to read and show times")
	timeout := global.Duration("timeout", 10*time.Second, "per-request timeout")
	global.Usage = func() { printUsage(stderr, global) }

	if err := global.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if global.NArg() == 0 {
		global.Usage()
		return exitUsage
	}

	name, rest := global.Arg(0), global.Args()[1:]
	var cmd *command
	for i := range commands {
		if commands[i].name == name {
			cmd = &commands[i]
			break
		}
	}
	if cmd == nil {
		fmt.Fprintf(stderr, "reservectl: unknown command %q\n", name)
		global.Usage()
		return exitUsage
	}

	c, err := newCLI(*server, *sessionPath, *tz, *timeout, now, getenv, stdout)
	if err == nil {
		err = cmd.run(ctx, c, rest)
	}
	return report(stderr, *server, err)
}

func newCLI(server, sessionPath, tz string, timeout time.Duration, now func() time.Time, getenv func(string) string, stdout io.Writer) (*cli, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, usagef("invalid -tz %q: %v", tz, err)
	}
	api, err := client.New(server, client.WithTimeout(timeout))
	if err != nil {
		return nil, usageError{msg: err.Error()}
	}
	session, err := loadSession(sessionPath, server, now())
	if err != nil {
		return nil, err
	}
	return &cli{
		api:         api.WithSession(session),
		server:      server,
		sessionPath: sessionPath,
		loc:         loc,
		now:         now,
		getenv:      getenv,
		stdout:      stdout,
	}, nil
}

// report prints err for a human and picks the exit code.
func report(stderr io.Writer, server string, err error) int {
	if err == nil {
		return exitOK
	}

	var usage usageError
	var rejection *client.RejectionError
	switch {
	case errors.As(err, &usage):
		fmt.Fprintln(stderr, "reservectl:", usage.msg)
		return exitUsage
	case client.IsUnreachable(err):
		fmt.Fprintf(stderr, "reservectl: reservation server at %s is unreachable: %v\n", server, err)
		return exitUnreachable
	case errors.As(err, &rejection):
		fmt.Fprintln(stderr, "reservectl: rejected:", rejection.Message)
		for _, conflict := range rejection.Conflicts {
			fmt.Fprintf(stderr, "  conflicts with %s %s-%s\n", conflict.ID,
				conflict.StartTime.UTC().Format(time.RFC3339), conflict.EndTime.UTC().Format(time.RFC3339))
		}
		fields := make([]string, 0, len(rejection.Fields))
		for field := range rejection.Fields {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			fmt.Fprintf(stderr, "  %s: %s\n", field, rejection.Fields[field])
		}
		return exitRejected
	case errors.Is(err, client.ErrForbidden):
		fmt.Fprintln(stderr, "reservectl: not allowed:", err)
		return exitRejected
	default:
		fmt.Fprintln(stderr, "reservectl:", err)
		return exitUsage
	}
}

func printUsage(w io.Writer, global *flag.FlagSet) {
	fmt.Fprintln(w, "usage: reservectl [flags] <command> [command flags]")
	fmt.Fprintln(w, "\ncommands:")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-8s %s\n", cmd.name, cmd.summary)
	}
	fmt.Fprintln(w, "\nflags:")
	global.SetOutput(w)
	global.PrintDefaults()
}

func envOr(getenv func(string) string, key, fallback string) string {
	if v := strings.TrimSpace(getenv(key)); v != "" {
		return v
	}
	return fallback
}

func newFlagSet(name string) *flag.FlagSet {
	flags := flag.NewFlagSet("reservectl "+name, flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	return flags
}

func parseFlags(flags *flag.FlagSet, args []string) error {
	if err := flags.Parse(args); err != nil {
		return usageError{msg: err.Error()}
	}
	return nil
}

// parseTime accepts RFC 3339 or a wall-clock time in loc.
func parseTime(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02T15:04", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, usagef("cannot read time %q; use 2006-01-02T15:04 or RFC 3339", value)
}

func runWeek(ctx context.Context, c *cli, args []string) error {
	flags := newFlagSet("week")
	date := flags.String("date", "", "any day of the week to show (2006-01-02, default today)")
	offset := flags.Int("offset", 0, "weeks to move from -date, negative for earlier weeks")
	names := flags.Bool("names", false, "show who booked each slot")
	strictYear := flags.Bool("match-year", false, "only place reservations from the shown year")
	if err := parseFlags(flags, args); err != nil {
		return err
	}

	anchor := c.now().In(c.loc)
	if *date != "" {
		t, err := time.ParseInLocation("2006-01-02", *date, c.loc)
		if err != nil {
			return usagef("invalid -date %q", *date)
		}
		anchor = t
	}
	week := calendar.WeekOf(anchor, c.loc)
	for i := 0; i < *offset; i++ {
		week = week.Next()
	}
	for i := 0; i > *offset; i-- {
		week = week.Prev()
	}

	reservations, err := c.api.ListReservations(ctx)
	if err != nil {
		return err
	}
	entries := make([]calendar.Entry, 0, len(reservations))
	for _, r := range reservations {
		entries = append(entries, r.Entry())
	}

	var opts []calendar.MatcherOption
	if *strictYear {
		opts = append(opts, calendar.MatchYear())
	}
	return renderWeek(c.stdout, calendar.NewMatcher(c.loc, opts...).Build(week, entries), *names)
}

func runBook(ctx context.Context, c *cli, args []string) error {
	return book(ctx, c, "book", calendar.KindTraining, args)
}

func runEvent(ctx context.Context, c *cli, args []string) error {
	return book(ctx, c, "event", calendar.KindEvent, args)
}

func book(ctx context.Context, c *cli, name string, kind calendar.Kind, args []string) error {
	flags := newFlagSet(name)
	userID := flags.String("user", "", "user id to book for (default: the logged in user)")
	start := flags.String("start", "", "slot start, e.g. 2026-05-18T10:00")
	if err := parseFlags(flags, args); err != nil {
		return err
	}

	if *userID == "" {
		*userID = c.api.Session().User.ID
	}
	if *userID == "" {
		return usagef("%s: -user is required when not logged in", name)
	}
	if *start == "" {
		return usagef("%s: -start is required", name)
	}
	startAt, err := parseTime(*start, c.loc)
	if err != nil {
		return err
	}

	created, err := c.api.CreateReservation(ctx, client.NewReservation{
		UserID:    *userID,
		StartTime: startAt,
		EndTime:   startAt.Add(time.Hour),
		Type:      kind,
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.stdout, "booked", describeReservation(created, c.loc))
	return err
}

func runDelete(ctx context.Context, c *cli, args []string) error {
	flags := newFlagSet("delete")
	if err := parseFlags(flags, args); err != nil {
		return err
	}
	if flags.NArg() == 0 {
		return usagef("delete: at least one reservation id is required")
	}

	for _, id := range flags.Args() {
		if err := c.api.DeleteReservation(ctx, id); err != nil {
			if errors.Is(err, client.ErrNotFound) {
				return fmt.Errorf("reservation %s does not exist", id)
			}
			return err
		}
		fmt.Fprintln(c.stdout, "deleted", id)
	}
	return nil
}

func runUsers(ctx context.Context, c *cli, args []string) error {
	if err := parseFlags(newFlagSet("users"), args); err != nil {
		return err
	}
	users, err := c.api.ListUsers(ctx)
	if err != nil {
		return err
	}
	return renderUsers(c.stdout, users)
}

func runLogin(ctx context.Context, c *cli, args []string) error {
	flags := newFlagSet("login")
	role := flags.String("role", client.RoleFaculty, "admin or faculty")
	username := flags.String("username", "", "account name")
	password := flags.String("password", "", "password (default $RESERVECTL_PASSWORD)")
	if err := parseFlags(flags, args); err != nil {
		return err
	}
	if *password == "" {
		*password = c.getenv("RESERVECTL_PASSWORD")
	}
	if *username == "" || *password == "" {
		return usagef("login: -username and -password are required")
	}

	session, err := c.api.Login(ctx, *role, *username, *password)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			return fmt.Errorf("login refused: invalid %s username or password", strings.ToLower(*role))
		}
		return err
	}
	if err := saveSession(c.sessionPath, c.server, session); err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.stdout, "logged in as %s (%s)\n", session.User.Username, session.User.Role)
	return err
}

func runLogout(_ context.Context, c *cli, args []string) error {
	if err := parseFlags(newFlagSet("logout"), args); err != nil {
		return err
	}
	if err := clearSession(c.sessionPath); err != nil {
		return err
	}
	_, err := fmt.Fprintln(c.stdout, "logged out")
	return err
}
