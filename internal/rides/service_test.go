package rides

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"
)

func newTestService(repo *MemoryRepo) *Service {
	s := NewService(repo, rand.New(rand.NewSource(1)))
	s.clock = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestBookRide_QuotesFareAndPersists(t *testing.T) {
	repo := NewMemoryRepo()
	s := newTestService(repo)

	b, err := s.BookRide(context.Background(), BookRideRequest{
		PhoneNumber:    "+254700000001",
		Pickup:         "CBD",
		Dropoff:        "Westlands",
		RideType:       "Standard",
		IdempotencyKey: "at-session-1",
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if b.Ref == "" || len(b.Ref) != 6 {
		t.Fatalf("expected 6-digit ref, got %q", b.Ref)
	}
	if b.FareMinor != 25000 || b.Currency != "KES" {
		t.Fatalf("expected Standard fare quote, got %d %s", b.FareMinor, b.Currency)
	}
	if b.Status != BookingStatusRequested {
		t.Fatalf("expected requested status, got %q", b.Status)
	}
	if got := len(repo.Bookings()); got != 1 {
		t.Fatalf("expected one stored booking, got %d", got)
	}
}

func TestBookRide_IdempotentOnSessionKey(t *testing.T) {
	repo := NewMemoryRepo()
	s := newTestService(repo)

	req := BookRideRequest{
		PhoneNumber:    "+254700000001",
		Pickup:         "CBD",
		Dropoff:        "Westlands",
		RideType:       "XL",
		IdempotencyKey: "at-session-2",
	}
	first, err := s.BookRide(context.Background(), req)
	if err != nil {
		t.Fatalf("first booking: %v", err)
	}
	second, err := s.BookRide(context.Background(), req)
	if err != nil {
		t.Fatalf("second booking: %v", err)
	}
	if first.ID != second.ID || first.Ref != second.Ref {
		t.Fatalf("expected idempotent booking, got %q vs %q", first.ID, second.ID)
	}
	if got := len(repo.Bookings()); got != 1 {
		t.Fatalf("expected exactly one stored booking, got %d", got)
	}
}

func TestBookRide_UnknownRideType(t *testing.T) {
	s := newTestService(NewMemoryRepo())
	_, err := s.BookRide(context.Background(), BookRideRequest{
		PhoneNumber:    "+254700000001",
		Pickup:         "A",
		Dropoff:        "B",
		RideType:       "Helicopter",
		IdempotencyKey: "k",
	})
	if !errors.Is(err, ErrUnknownRideType) {
		t.Fatalf("expected ErrUnknownRideType, got %v", err)
	}
}

func TestGetBalance(t *testing.T) {
	repo := NewMemoryRepo()
	repo.Accounts["+254700000001"] = Account{
		PhoneNumber:  "+254700000001",
		Currency:     "KES",
		BalanceMinor: 123450,
	}
	s := newTestService(repo)

	acct, err := s.GetBalance(context.Background(), "+254700000001")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got := FormatMoney(acct.BalanceMinor, acct.Currency); got != "KES 1234.50" {
		t.Fatalf("unexpected formatted balance: %q", got)
	}

	if _, err := s.GetBalance(context.Background(), "+254799999999"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRideStatus_ScopedToSubscriber(t *testing.T) {
	repo := NewMemoryRepo()
	s := newTestService(repo)

	b, err := s.BookRide(context.Background(), BookRideRequest{
		PhoneNumber:    "+254700000001",
		Pickup:         "CBD",
		Dropoff:        "Karen",
		RideType:       "Standard",
		IdempotencyKey: "at-session-3",
	})
	if err != nil {
		t.Fatalf("booking: %v", err)
	}

	got, err := s.RideStatus(context.Background(), b.PhoneNumber, b.Ref)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if got.Status != BookingStatusRequested {
		t.Fatalf("unexpected status %q", got.Status)
	}

	// Another subscriber cannot read the booking.
	if _, err := s.RideStatus(context.Background(), "+254711111111", b.Ref); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign subscriber, got %v", err)
	}
}
