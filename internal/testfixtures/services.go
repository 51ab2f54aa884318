package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/training-reservations/internal/application"
)

// TestTokenSecret signs tokens issued by factory-built auth services.
const TestTokenSecret = "test-secret"

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// ReservationServiceDeps captures dependencies for constructing a reservation service.
type ReservationServiceDeps struct {
	Reservations application.ReservationRepository
	Events       application.EventPublisher
	Locker       application.AdmissionLocker
	WeekLocation *time.Location
	Logger       *slog.Logger
}

// NewReservationService builds a reservation service on the factory clock and ids.
func (f *ServiceFactory) NewReservationService(deps ReservationServiceDeps) *application.ReservationService {
	return application.NewReservationServiceWithLogger(
		deps.Reservations,
		f.IDGenerator.NextFunc(),
		f.Clock.NowFunc(),
		deps.Logger,
	).WithLocker(deps.Locker).WithEventPublisher(deps.Events).WithWeekLocation(deps.WeekLocation)
}

// UserServiceDeps captures dependencies for constructing a user service.
type UserServiceDeps struct {
	Users  application.UserRepository
	Logger *slog.Logger
}

// NewUserService builds a user service using the supplied dependencies.
func (f *ServiceFactory) NewUserService(deps UserServiceDeps) *application.UserService {
	return application.NewUserServiceWithLogger(deps.Users, deps.Logger)
}

// AuthServiceDeps captures dependencies for constructing an auth service.
type AuthServiceDeps struct {
	Credentials application.CredentialStore
	Verifier    application.CredentialVerifier
	TokenTTL    time.Duration
	Logger      *slog.Logger
}

// NewAuthService builds an auth service whose tokens follow the factory clock.
func (f *ServiceFactory) NewAuthService(deps AuthServiceDeps) *application.AuthService {
	tokens := application.NewTokenIssuer(TestTokenSecret, deps.TokenTTL, f.Clock.NowFunc())
	return application.NewAuthServiceWithLogger(deps.Credentials, deps.Verifier, tokens, deps.Logger)
}
