package rides

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for the ride backend.
//
// CreateBooking must be idempotent on (phone_number, idempotency_key):
// a second call with the same key returns the original booking.
type Repository interface {
	CreateBooking(ctx context.Context, b Booking) (Booking, error)
	FindBookingByRef(ctx context.Context, phoneNumber, ref string) (Booking, bool, error)
	GetAccount(ctx context.Context, phoneNumber string) (Account, bool, error)
	FindFare(ctx context.Context, rideType string) (Fare, bool, error)
}

// Service exposes the three operations the USSD action dispatcher
// consumes: book a ride, check balance, look up ride status.
//
// Invariants:
// - every booking carries a fare quoted at creation time
// - Ref is a random 6-digit code scoped per subscriber
// - phone_number scopes all lookups; one subscriber can never read
//   another's bookings
type Service struct {
	repo Repository

	// rng generates booking refs; injectable for deterministic tests.
	rng *rand.Rand
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(repo Repository, rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{repo: repo, rng: rng, clock: time.Now}
}

var (
	ErrNotFound        = errors.New("rides: not found")
	ErrInvalidArgument = errors.New("rides: invalid argument")
	ErrUnknownRideType = errors.New("rides: unknown ride type")
)

type BookRideRequest struct {
	PhoneNumber string
	Pickup      string
	Dropoff     string
	RideType    string

	// IdempotencyKey should be the carrier session id so a redelivered
	// confirmation cannot create a second booking.
	IdempotencyKey string
}

func (s *Service) BookRide(ctx context.Context, req BookRideRequest) (Booking, error) {
	if req.PhoneNumber == "" || req.IdempotencyKey == "" {
		return Booking{}, ErrInvalidArgument
	}
	if strings.TrimSpace(req.Pickup) == "" || strings.TrimSpace(req.Dropoff) == "" {
		return Booking{}, ErrInvalidArgument
	}

	fare, ok, err := s.repo.FindFare(ctx, req.RideType)
	if err != nil {
		return Booking{}, fmt.Errorf("rides: fare lookup: %w", err)
	}
	if !ok {
		return Booking{}, fmt.Errorf("%w: %q", ErrUnknownRideType, req.RideType)
	}

	now := s.clock().UTC()
	b := Booking{
		ID:             uuid.NewString(),
		Ref:            s.newRef(),
		PhoneNumber:    req.PhoneNumber,
		Pickup:         strings.TrimSpace(req.Pickup),
		Dropoff:        strings.TrimSpace(req.Dropoff),
		RideType:       req.RideType,
		FareMinor:      fare.FareMinor,
		Currency:       fare.Currency,
		Status:         BookingStatusRequested,
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return s.repo.CreateBooking(ctx, b)
}

func (s *Service) GetBalance(ctx context.Context, phoneNumber string) (Account, error) {
	if phoneNumber == "" {
		return Account{}, ErrInvalidArgument
	}
	acct, ok, err := s.repo.GetAccount(ctx, phoneNumber)
	if err != nil {
		return Account{}, fmt.Errorf("rides: account lookup: %w", err)
	}
	if !ok {
		return Account{}, ErrNotFound
	}
	return acct, nil
}

func (s *Service) RideStatus(ctx context.Context, phoneNumber, ref string) (Booking, error) {
	if phoneNumber == "" || ref == "" {
		return Booking{}, ErrInvalidArgument
	}
	b, ok, err := s.repo.FindBookingByRef(ctx, phoneNumber, ref)
	if err != nil {
		return Booking{}, fmt.Errorf("rides: booking lookup: %w", err)
	}
	if !ok {
		return Booking{}, ErrNotFound
	}
	return b, nil
}

// QuoteFare returns the current flat fare for a ride type.
func (s *Service) QuoteFare(ctx context.Context, rideType string) (Fare, error) {
	fare, ok, err := s.repo.FindFare(ctx, rideType)
	if err != nil {
		return Fare{}, fmt.Errorf("rides: fare lookup: %w", err)
	}
	if !ok {
		return Fare{}, fmt.Errorf("%w: %q", ErrUnknownRideType, rideType)
	}
	return fare, nil
}

func (s *Service) newRef() string {
	return fmt.Sprintf("%06d", s.rng.Intn(1000000))
}
