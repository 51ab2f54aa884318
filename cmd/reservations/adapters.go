package main

import (
	"context"
	"errors"
	"time"

	"github.com/example/training-reservations/internal/application"
	"github.com/example/training-reservations/internal/persistence"
)

// mapStorageError translates persistence sentinels into the errors the
// application layer reasons about.
func mapStorageError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return errors.Join(application.ErrNotFound, err)
	case errors.Is(err, persistence.ErrOverlap):
		return errors.Join(application.ErrSlotConflict, err)
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return errors.Join(application.ErrUnknownUser, err)
	default:
		return err
	}
}

type reservationRepositoryAdapter struct {
	repo persistence.ReservationRepository
}

func newReservationRepositoryAdapter(repo persistence.ReservationRepository) *reservationRepositoryAdapter {
	return &reservationRepositoryAdapter{repo: repo}
}

func (a *reservationRepositoryAdapter) ListReservations(ctx context.Context) ([]application.Reservation, error) {
	models, err := a.repo.ListReservations(ctx)
	if err != nil {
		return nil, mapStorageError(err)
	}
	return toApplicationReservations(models), nil
}

func (a *reservationRepositoryAdapter) GetReservation(ctx context.Context, id string) (application.Reservation, error) {
	model, err := a.repo.GetReservation(ctx, id)
	if err != nil {
		return application.Reservation{}, mapStorageError(err)
	}
	return toApplicationReservation(model), nil
}

func (a *reservationRepositoryAdapter) FindOverlapping(ctx context.Context, start, end time.Time) ([]application.Reservation, error) {
	models, err := a.repo.ListOverlapping(ctx, start, end)
	if err != nil {
		return nil, mapStorageError(err)
	}
	return toApplicationReservations(models), nil
}

func (a *reservationRepositoryAdapter) DeleteReservation(ctx context.Context, id string) error {
	return mapStorageError(a.repo.DeleteReservation(ctx, id))
}

func (a *reservationRepositoryAdapter) Admit(ctx context.Context, fn func(store application.AdmissionStore) error) error {
	err := a.repo.WithinAdmission(ctx, func(tx persistence.AdmissionTx) error {
		return fn(admissionStoreAdapter{tx: tx})
	})
	return mapStorageError(err)
}

type admissionStoreAdapter struct {
	tx persistence.AdmissionTx
}

func (a admissionStoreAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	model, err := a.tx.GetUser(ctx, id)
	if err != nil {
		return application.User{}, mapStorageError(err)
	}
	return toApplicationUser(model), nil
}

func (a admissionStoreAdapter) CountReservationsStartingBetween(ctx context.Context, userID string, from, to time.Time) (int, error) {
	count, err := a.tx.CountUserReservationsStartingBetween(ctx, userID, from, to)
	return count, mapStorageError(err)
}

func (a admissionStoreAdapter) FindOverlapping(ctx context.Context, start, end time.Time) ([]application.Reservation, error) {
	models, err := a.tx.ListOverlapping(ctx, start, end)
	if err != nil {
		return nil, mapStorageError(err)
	}
	return toApplicationReservations(models), nil
}

func (a admissionStoreAdapter) InsertReservation(ctx context.Context, reservation application.Reservation) error {
	return mapStorageError(a.tx.InsertReservation(ctx, toPersistenceReservation(reservation)))
}

type userRepositoryAdapter struct {
	repo persistence.UserRepository
}

func newUserRepositoryAdapter(repo persistence.UserRepository) *userRepositoryAdapter {
	return &userRepositoryAdapter{repo: repo}
}

func (a *userRepositoryAdapter) ListUsers(ctx context.Context) ([]application.User, error) {
	models, err := a.repo.ListUsers(ctx)
	if err != nil {
		return nil, mapStorageError(err)
	}
	users := make([]application.User, 0, len(models))
	for _, model := range models {
		users = append(users, toApplicationUser(model))
	}
	return users, nil
}

type credentialStoreAdapter struct {
	repo persistence.UserRepository
}

func newCredentialStoreAdapter(repo persistence.UserRepository) *credentialStoreAdapter {
	return &credentialStoreAdapter{repo: repo}
}

func (a *credentialStoreAdapter) GetUserCredentialsByUsername(ctx context.Context, username string) (application.UserCredentials, error) {
	model, err := a.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return application.UserCredentials{}, mapStorageError(err)
	}
	return application.UserCredentials{
		User:         toApplicationUser(model),
		PasswordHash: model.PasswordHash,
	}, nil
}

func toApplicationUser(model persistence.User) application.User {
	return application.User{
		ID:        model.ID,
		Username:  model.Username,
		Role:      application.Role(model.Role),
		CreatedAt: model.CreatedAt,
	}
}

func toApplicationReservation(model persistence.Reservation) application.Reservation {
	return application.Reservation{
		ID:        model.ID,
		UserID:    model.UserID,
		Start:     model.Start.UTC(),
		End:       model.End.UTC(),
		Type:      application.ReservationType(model.Type),
		Username:  model.Username,
		CreatedAt: model.CreatedAt,
	}
}

func toApplicationReservations(models []persistence.Reservation) []application.Reservation {
	out := make([]application.Reservation, 0, len(models))
	for _, model := range models {
		out = append(out, toApplicationReservation(model))
	}
	return out
}

func toPersistenceReservation(reservation application.Reservation) persistence.Reservation {
	return persistence.Reservation{
		ID:        reservation.ID,
		UserID:    reservation.UserID,
		Start:     reservation.Start.UTC(),
		End:       reservation.End.UTC(),
		Type:      int(reservation.Type),
		Username:  reservation.Username,
		CreatedAt: reservation.CreatedAt.UTC(),
	}
}
