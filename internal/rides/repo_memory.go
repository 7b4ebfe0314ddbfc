package rides

import (
	"context"
	"sync"
)

// MemoryRepo is a simple in-memory repository useful for tests and
// early development. It is not intended for production; the Postgres
// repository replaces it there.
type MemoryRepo struct {
	mu       sync.Mutex
	bookings []Booking
	Accounts map[string]Account
	Fares    map[string]Fare
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		Accounts: map[string]Account{},
		Fares: map[string]Fare{
			"Standard": {RideType: "Standard", Currency: "KES", FareMinor: 25000},
			"XL":       {RideType: "XL", Currency: "KES", FareMinor: 40000},
		},
	}
}

func (r *MemoryRepo) CreateBooking(ctx context.Context, b Booking) (Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.bookings {
		if existing.PhoneNumber == b.PhoneNumber && existing.IdempotencyKey == b.IdempotencyKey {
			return existing, nil
		}
	}
	r.bookings = append(r.bookings, b)
	return b, nil
}

func (r *MemoryRepo) FindBookingByRef(ctx context.Context, phoneNumber, ref string) (Booking, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bookings {
		if b.PhoneNumber == phoneNumber && b.Ref == ref {
			return b, true, nil
		}
	}
	return Booking{}, false, nil
}

func (r *MemoryRepo) GetAccount(ctx context.Context, phoneNumber string) (Account, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, ok := r.Accounts[phoneNumber]
	return acct, ok, nil
}

func (r *MemoryRepo) FindFare(ctx context.Context, rideType string) (Fare, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fare, ok := r.Fares[rideType]
	return fare, ok, nil
}

// Bookings returns a copy of all stored bookings; exposed for tests.
func (r *MemoryRepo) Bookings() []Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Booking, len(r.bookings))
	copy(out, r.bookings)
	return out
}
