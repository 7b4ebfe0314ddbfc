package rides

import (
	"context"
	"database/sql"
	"errors"

	"ussd-gateway/pkg/utils"
)

// PostgresRepo persists bookings, accounts, and fares.
//
// Assumed tables:
// - bookings (UNIQUE (phone_number, idempotency_key), UNIQUE (phone_number, ref))
// - ride_accounts
// - ride_fares
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) CreateBooking(ctx context.Context, b Booking) (Booking, error) {
	var out Booking
	err := utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		// Idempotency: a redelivered confirmation returns the original row.
		existing, ok, err := findBookingByIdempotency(ctx, tx, b.PhoneNumber, b.IdempotencyKey)
		if err != nil {
			return err
		}
		if ok {
			out = existing
			return nil
		}
		if err := insertBooking(ctx, tx, b); err != nil {
			return err
		}
		out = b
		return nil
	})
	return out, err
}

func (r *PostgresRepo) FindBookingByRef(ctx context.Context, phoneNumber, ref string) (Booking, bool, error) {
	const q = `
SELECT id, ref, phone_number, pickup, dropoff, ride_type, fare_minor, currency,
       status, idempotency_key, driver_name, created_at, updated_at
FROM bookings
WHERE phone_number = $1 AND ref = $2
ORDER BY created_at DESC
LIMIT 1
`
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, phoneNumber, ref))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Booking{}, false, nil
		}
		return Booking{}, false, err
	}
	return b, true, nil
}

func (r *PostgresRepo) GetAccount(ctx context.Context, phoneNumber string) (Account, bool, error) {
	const q = `
SELECT phone_number, currency, balance_minor, updated_at
FROM ride_accounts
WHERE phone_number = $1
`
	var a Account
	if err := r.db.QueryRowContext(ctx, q, phoneNumber).Scan(
		&a.PhoneNumber,
		&a.Currency,
		&a.BalanceMinor,
		&a.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, false, nil
		}
		return Account{}, false, err
	}
	return a, true, nil
}

func (r *PostgresRepo) FindFare(ctx context.Context, rideType string) (Fare, bool, error) {
	const q = `
SELECT ride_type, currency, fare_minor
FROM ride_fares
WHERE ride_type = $1
`
	var f Fare
	if err := r.db.QueryRowContext(ctx, q, rideType).Scan(
		&f.RideType,
		&f.Currency,
		&f.FareMinor,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Fare{}, false, nil
		}
		return Fare{}, false, err
	}
	return f, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (Booking, error) {
	var b Booking
	var driver sql.NullString
	err := row.Scan(
		&b.ID,
		&b.Ref,
		&b.PhoneNumber,
		&b.Pickup,
		&b.Dropoff,
		&b.RideType,
		&b.FareMinor,
		&b.Currency,
		&b.Status,
		&b.IdempotencyKey,
		&driver,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return Booking{}, err
	}
	b.DriverName = driver.String
	return b, nil
}

func findBookingByIdempotency(ctx context.Context, tx *sql.Tx, phoneNumber, key string) (Booking, bool, error) {
	const q = `
SELECT id, ref, phone_number, pickup, dropoff, ride_type, fare_minor, currency,
       status, idempotency_key, driver_name, created_at, updated_at
FROM bookings
WHERE phone_number = $1 AND idempotency_key = $2
LIMIT 1
`
	b, err := scanBooking(tx.QueryRowContext(ctx, q, phoneNumber, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Booking{}, false, nil
		}
		return Booking{}, false, err
	}
	return b, true, nil
}

func insertBooking(ctx context.Context, tx *sql.Tx, b Booking) error {
	const q = `
INSERT INTO bookings (
  id, ref, phone_number, pickup, dropoff, ride_type, fare_minor, currency,
  status, idempotency_key, driver_name, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
)
`
	driver := sql.NullString{String: b.DriverName, Valid: b.DriverName != ""}
	_, err := tx.ExecContext(ctx, q,
		b.ID,
		b.Ref,
		b.PhoneNumber,
		b.Pickup,
		b.Dropoff,
		b.RideType,
		b.FareMinor,
		b.Currency,
		b.Status,
		b.IdempotencyKey,
		driver,
		b.CreatedAt,
		b.UpdatedAt,
	)
	return err
}
