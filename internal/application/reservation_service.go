package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/example/training-reservations/internal/admission"
)

// admissionLockKey serializes every admission; the room is a single resource.
const admissionLockKey = "reservations:admission"

// ReservationRepository captures the persistence operations needed by the reservation service.
type ReservationRepository interface {
	ListReservations(ctx context.Context) ([]Reservation, error)
	GetReservation(ctx context.Context, id string) (Reservation, error)
	FindOverlapping(ctx context.Context, start, end time.Time) ([]Reservation, error)
	DeleteReservation(ctx context.Context, id string) error
	// Admit runs fn atomically: writes made through the AdmissionStore are
	// kept only when fn returns nil.
	Admit(ctx context.Context, fn func(store AdmissionStore) error) error
}

// AdmissionStore is the transactional view used while admitting a reservation.
type AdmissionStore interface {
	GetUser(ctx context.Context, id string) (User, error)
	CountReservationsStartingBetween(ctx context.Context, userID string, from, to time.Time) (int, error)
	FindOverlapping(ctx context.Context, start, end time.Time) ([]Reservation, error)
	InsertReservation(ctx context.Context, reservation Reservation) error
}

// AdmissionLocker provides mutual exclusion around admissions, possibly
// across processes.
type AdmissionLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// EventPublisher receives committed reservation changes.
type EventPublisher interface {
	PublishReservationChange(ctx context.Context, change ReservationChange) error
}

// ReservationService admits, lists and deletes room reservations.
type ReservationService struct {
	reservations ReservationRepository
	locker       AdmissionLocker
	events       EventPublisher
	idGenerator  func() string
	now          func() time.Time
	location     *time.Location
	logger       *slog.Logger
}

// NewReservationService wires dependencies for the reservation service.
func NewReservationService(reservations ReservationRepository, idGenerator func() string, now func() time.Time) *ReservationService {
	return NewReservationServiceWithLogger(reservations, idGenerator, now, nil)
}

// NewReservationServiceWithLogger wires dependencies for the reservation service with a logger.
// The booking week is computed in UTC until WithWeekLocation says otherwise.
func NewReservationServiceWithLogger(reservations ReservationRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ReservationService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ReservationService{
		reservations: reservations,
		locker:       NewLocalLocker(),
		idGenerator:  idGenerator,
		now:          now,
		location:     time.UTC,
		logger:       defaultLogger(logger),
	}
}

// WithLocker replaces the in-process admission lock.
func (s *ReservationService) WithLocker(locker AdmissionLocker) *ReservationService {
	if locker != nil {
		s.locker = locker
	}
	return s
}

// WithEventPublisher sets where committed changes are announced.
func (s *ReservationService) WithEventPublisher(events EventPublisher) *ReservationService {
	s.events = events
	return s
}

// WithWeekLocation sets the zone whose Monday midnight starts the booking week.
func (s *ReservationService) WithWeekLocation(loc *time.Location) *ReservationService {
	if loc != nil {
		s.location = loc
	}
	return s
}

func (s *ReservationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReservationService", operation, attrs...)
}

// TryCreate admits a reservation when every rule passes. Rules are checked in
// order: the owner exists, the length is exactly one hour, the owner has no
// reservation starting in the current week, and no reservation overlaps.
// A failed rule yields a *RejectionError.
func (s *ReservationService) TryCreate(ctx context.Context, params CreateReservationParams) (reservation Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil {
		err = fmt.Errorf("reservation repository not configured")
		return
	}

	input := params.Input
	input.UserID = strings.TrimSpace(input.UserID)

	logger := s.loggerWith(ctx, "TryCreate",
		"principal_id", params.Principal.UserID,
		"user_id", input.UserID,
		"start", input.Start,
		"end", input.End,
		"type", input.Type.String(),
	)
	defer func() {
		switch {
		case err == nil:
			logger.With("reservation_id", reservation.ID).InfoContext(ctx, "reservation created")
		case isRejection(err):
			logger.Log(ctx, outcomeLevel(err), "reservation rejected", "reason", err.Error(), "error_kind", ErrorKind(err))
		default:
			logger.Log(ctx, outcomeLevel(err), "reservation creation failed", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if vErr := validateReservationInput(input); vErr.HasErrors() {
		err = vErr
		return
	}
	if err = authorizeCreate(params.Principal, input); err != nil {
		return
	}

	var unlock func()
	unlock, err = s.locker.Lock(ctx, admissionLockKey)
	if err != nil {
		err = fmt.Errorf("acquire admission lock: %w", err)
		return
	}
	defer unlock()

	now := s.now()
	window := admission.CurrentWeek(now, s.location)
	candidate := admission.Interval{Start: input.Start.UTC(), End: input.End.UTC()}

	err = s.reservations.Admit(ctx, func(store AdmissionStore) error {
		owner, err := store.GetUser(ctx, input.UserID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return rejectUnknownUser()
			}
			return err
		}

		if admission.CheckDuration(candidate.Start, candidate.End) != nil {
			return rejectInvalidDuration()
		}

		count, err := store.CountReservationsStartingBetween(ctx, input.UserID, window.Start, window.End)
		if err != nil {
			return err
		}
		if count > 0 {
			return rejectWeeklyLimit()
		}

		existing, err := store.FindOverlapping(ctx, candidate.Start, candidate.End)
		if err != nil {
			return err
		}
		if conflicts := admission.DetectConflicts(intervalsOf(existing), candidate); len(conflicts) > 0 {
			return rejectSlotConflict(conflicts)
		}

		reservation = Reservation{
			ID:        s.idGenerator(),
			UserID:    input.UserID,
			Start:     candidate.Start,
			End:       candidate.End,
			Type:      input.Type,
			Username:  owner.Username,
			CreatedAt: now.UTC(),
		}
		return store.InsertReservation(ctx, reservation)
	})
	if err != nil {
		reservation = Reservation{}
		err = s.normalizeAdmissionError(ctx, candidate, err)
		return
	}

	s.publish(ctx, logger, ReservationCreated, reservation)
	return
}

// normalizeAdmissionError turns store-level refusals into rule rejections.
func (s *ReservationService) normalizeAdmissionError(ctx context.Context, candidate admission.Interval, err error) error {
	if isRejection(err) {
		return err
	}
	switch {
	case errors.Is(err, ErrUnknownUser):
		return rejectUnknownUser()
	case errors.Is(err, ErrSlotConflict):
		existing, ferr := s.reservations.FindOverlapping(ctx, candidate.Start, candidate.End)
		if ferr != nil {
			return rejectSlotConflict(nil)
		}
		return rejectSlotConflict(admission.DetectConflicts(intervalsOf(existing), candidate))
	}
	return err
}

// DeleteReservation removes a reservation. It reports false when no
// reservation has the given id.
func (s *ReservationService) DeleteReservation(ctx context.Context, principal Principal, id string) (deleted bool, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil {
		err = fmt.Errorf("reservation repository not configured")
		return
	}

	id = strings.TrimSpace(id)
	logger := s.loggerWith(ctx, "DeleteReservation", "principal_id", principal.UserID, "reservation_id", id)
	defer func() {
		if err != nil {
			logger.Log(ctx, outcomeLevel(err), "reservation delete failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "reservation delete handled", "deleted", deleted)
	}()

	if id == "" {
		return false, nil
	}

	var existing Reservation
	existing, err = s.reservations.GetReservation(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if principal.Authenticated() && !principal.IsAdmin() && existing.UserID != principal.UserID {
		return false, ErrUnauthorized
	}

	if err = s.reservations.DeleteReservation(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	s.publish(ctx, logger, ReservationDeleted, existing)
	return true, nil
}

// ListReservations returns every reservation with the owner's username.
func (s *ReservationService) ListReservations(ctx context.Context) (reservations []Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil {
		err = fmt.Errorf("reservation repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "ListReservations")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "reservation list failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "reservations listed", "result_count", len(reservations))
	}()

	return s.reservations.ListReservations(ctx)
}

// GetReservation returns one reservation or ErrNotFound.
func (s *ReservationService) GetReservation(ctx context.Context, id string) (Reservation, error) {
	if s == nil || s.reservations == nil {
		return Reservation{}, fmt.Errorf("reservation repository not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Reservation{}, ErrNotFound
	}
	reservation, err := s.reservations.GetReservation(ctx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		s.loggerWith(ctx, "GetReservation", "reservation_id", id).ErrorContext(ctx, "reservation lookup failed", "error", err, "error_kind", ErrorKind(err))
	}
	return reservation, err
}

// CheckAvailability reports the reservations overlapping [start, end).
func (s *ReservationService) CheckAvailability(ctx context.Context, start, end time.Time) (Availability, error) {
	if s == nil || s.reservations == nil {
		return Availability{}, fmt.Errorf("reservation repository not configured")
	}

	vErr := &ValidationError{}
	if start.IsZero() {
		vErr.add("startTime", "startTime is required")
	}
	if end.IsZero() {
		vErr.add("endTime", "endTime is required")
	}
	if !start.IsZero() && !end.IsZero() && !start.Before(end) {
		vErr.add("endTime", "endTime must be after startTime")
	}
	if vErr.HasErrors() {
		return Availability{}, vErr
	}

	existing, err := s.reservations.FindOverlapping(ctx, start.UTC(), end.UTC())
	if err != nil {
		s.loggerWith(ctx, "CheckAvailability").ErrorContext(ctx, "availability lookup failed", "error", err, "error_kind", ErrorKind(err))
		return Availability{}, err
	}
	return Availability{Available: len(existing) == 0, Conflicts: existing}, nil
}

func (s *ReservationService) publish(ctx context.Context, logger *slog.Logger, kind ReservationEventKind, reservation Reservation) {
	if s.events == nil {
		return
	}
	change := ReservationChange{Kind: kind, Reservation: reservation, OccurredAt: s.now().UTC()}
	if err := s.events.PublishReservationChange(ctx, change); err != nil {
		logger.WarnContext(ctx, "failed to publish reservation event", "event", string(kind), "error", err)
	}
}

func validateReservationInput(input ReservationInput) *ValidationError {
	vErr := &ValidationError{}
	if input.UserID == "" {
		vErr.add("userId", "UserId is required to create a reservation.")
	}
	if input.Start.IsZero() {
		vErr.add("startTime", "startTime is required")
	}
	if input.End.IsZero() {
		vErr.add("endTime", "endTime is required")
	}
	if !input.Type.Valid() {
		vErr.add("type", "type must be 0 (Training) or 1 (Event)")
	}
	return vErr
}

// authorizeCreate restricts authenticated faculty to training slots of their
// own. Anonymous callers are only possible when the API runs without auth.
func authorizeCreate(principal Principal, input ReservationInput) error {
	if !principal.Authenticated() || principal.IsAdmin() {
		return nil
	}
	if input.UserID != principal.UserID || input.Type != ReservationTraining {
		return ErrUnauthorized
	}
	return nil
}

func intervalsOf(reservations []Reservation) []admission.Interval {
	out := make([]admission.Interval, 0, len(reservations))
	for _, r := range reservations {
		out = append(out, r.Interval())
	}
	return out
}

// LocalLocker serializes admissions within one process.
type LocalLocker struct {
	mu sync.Mutex
}

// NewLocalLocker returns an unlocked LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{}
}

// Lock blocks until the lock is free or ctx is done. The key is ignored.
func (l *LocalLocker) Lock(ctx context.Context, _ string) (func(), error) {
	acquired := make(chan struct{})
	go func() {
		l.mu.Lock()
		close(acquired)
	}()
	select {
	case <-acquired:
		return l.mu.Unlock, nil
	case <-ctx.Done():
		// Release the lock once the pending acquisition lands.
		go func() {
			<-acquired
			l.mu.Unlock()
		}()
		return nil, ctx.Err()
	}
}
