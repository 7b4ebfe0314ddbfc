package rides

import (
	"fmt"
	"time"
)

// BookingStatus is the lifecycle of a ride booking as seen by the
// USSD status flow. Progression past "requested" is driven by the
// dispatch system, not by this gateway.
type BookingStatus string

const (
	BookingStatusRequested      BookingStatus = "requested"
	BookingStatusDriverAssigned BookingStatus = "driver_assigned"
	BookingStatusEnroute        BookingStatus = "enroute"
	BookingStatusCompleted      BookingStatus = "completed"
	BookingStatusCancelled      BookingStatus = "cancelled"
)

// Booking is one ride request.
//
// Ref is the short numeric code read back to the subscriber over USSD
// and SMS; ID is the internal identifier.
type Booking struct {
	ID          string `json:"id" db:"id"`
	Ref         string `json:"ref" db:"ref"`
	PhoneNumber string `json:"phone_number" db:"phone_number"`

	Pickup   string `json:"pickup" db:"pickup"`
	Dropoff  string `json:"dropoff" db:"dropoff"`
	RideType string `json:"ride_type" db:"ride_type"`

	FareMinor int64  `json:"fare_minor" db:"fare_minor"`
	Currency  string `json:"currency" db:"currency"`

	Status BookingStatus `json:"status" db:"status"`

	// IdempotencyKey dedupes aggregator redeliveries of the same
	// confirmed flow (the carrier session id).
	IdempotencyKey string `json:"idempotency_key" db:"idempotency_key"`

	DriverName string `json:"driver_name,omitempty" db:"driver_name"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Account is a subscriber's prepaid ride credit.
type Account struct {
	PhoneNumber  string    `json:"phone_number" db:"phone_number"`
	Currency     string    `json:"currency" db:"currency"`
	BalanceMinor int64     `json:"balance_minor" db:"balance_minor"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Fare is the flat quote for one ride type.
type Fare struct {
	RideType  string `json:"ride_type" db:"ride_type"`
	Currency  string `json:"currency" db:"currency"`
	FareMinor int64  `json:"fare_minor" db:"fare_minor"`
}

// FormatMoney renders a minor-unit amount for subscriber-facing text,
// e.g. "KES 250.00".
func FormatMoney(minor int64, currency string) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s %s%d.%02d", currency, sign, minor/100, minor%100)
}
