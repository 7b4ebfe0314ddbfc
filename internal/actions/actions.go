package actions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ussd-gateway/internal/menu"
	"ussd-gateway/internal/rides"
	"ussd-gateway/internal/sms"
	"ussd-gateway/pkg/logger"
)

// RideBackend is the minimal abstraction of the ride business backend
// the capabilities need. rides.Service satisfies it; tests use stubs.
type RideBackend interface {
	BookRide(ctx context.Context, req rides.BookRideRequest) (rides.Booking, error)
	GetBalance(ctx context.Context, phoneNumber string) (rides.Account, error)
	RideStatus(ctx context.Context, phoneNumber, ref string) (rides.Booking, error)
}

/* ===================== BOOK RIDE ===================== */

// BookRideAction books a ride from the collected flow answers and
// fires an SMS confirmation. The SMS is best-effort and detached from
// the request; a failed send never delays or fails the USSD reply.
type BookRideAction struct {
	Backend RideBackend
	SMS     sms.Sender

	// SMSTimeout bounds the detached confirmation send.
	SMSTimeout time.Duration
}

func (a BookRideAction) Key() string { return menu.ActionBookRide }

func (a BookRideAction) Execute(ctx context.Context, in Input) (Result, error) {
	pickup := in.Answers["pickup"]
	dropoff := in.Answers["dropoff"]
	rideType := in.Answers["ride_type"]
	if pickup == "" || dropoff == "" || rideType == "" {
		// The tree guarantees these answers exist before the action node;
		// missing ones mean a broken flow definition.
		return Result{}, Fatal(fmt.Errorf("booking flow missing answers: pickup=%q dropoff=%q ride_type=%q", pickup, dropoff, rideType))
	}

	b, err := a.Backend.BookRide(ctx, rides.BookRideRequest{
		PhoneNumber:    in.PhoneNumber,
		Pickup:         pickup,
		Dropoff:        dropoff,
		RideType:       rideType,
		IdempotencyKey: in.SessionID,
	})
	if err != nil {
		if errors.Is(err, rides.ErrInvalidArgument) || errors.Is(err, rides.ErrUnknownRideType) {
			return Result{}, Fatal(err)
		}
		return Result{}, err
	}

	a.sendConfirmation(ctx, b)

	text := fmt.Sprintf("Ride booked! Ref %s. %s from %s to %s. Fare %s.",
		b.Ref, b.RideType, b.Pickup, b.Dropoff, rides.FormatMoney(b.FareMinor, b.Currency))
	return Result{Text: text, Final: true}, nil
}

func (a BookRideAction) sendConfirmation(ctx context.Context, b rides.Booking) {
	if a.SMS == nil {
		return
	}
	timeout := a.SMSTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	log := logger.From(ctx)

	// Detach from the request lifecycle: the USSD reply must not wait
	// on SMS delivery.
	smsCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	go func() {
		defer cancel()
		msg := fmt.Sprintf("Your %s ride %s -> %s is booked. Ref %s. Fare %s.",
			b.RideType, b.Pickup, b.Dropoff, b.Ref, rides.FormatMoney(b.FareMinor, b.Currency))
		if err := a.SMS.Send(smsCtx, b.PhoneNumber, msg); err != nil {
			log.Warn("booking confirmation sms failed", "ref", b.Ref, "err", err)
		}
	}()
}

/* ===================== CHECK BALANCE ===================== */

type CheckBalanceAction struct {
	Backend RideBackend
}

func (a CheckBalanceAction) Key() string { return menu.ActionCheckBalance }

func (a CheckBalanceAction) Execute(ctx context.Context, in Input) (Result, error) {
	acct, err := a.Backend.GetBalance(ctx, in.PhoneNumber)
	if err != nil {
		if errors.Is(err, rides.ErrNotFound) {
			// A subscriber without an account is a business outcome, not
			// a failure.
			return Result{Text: "No ride account found for this number.", Final: true}, nil
		}
		return Result{}, err
	}
	text := fmt.Sprintf("Your ride credit balance is %s.", rides.FormatMoney(acct.BalanceMinor, acct.Currency))
	return Result{Text: text, Final: true}, nil
}

/* ===================== RIDE STATUS ===================== */

type RideStatusAction struct {
	Backend RideBackend
}

func (a RideStatusAction) Key() string { return menu.ActionRideStatus }

func (a RideStatusAction) Execute(ctx context.Context, in Input) (Result, error) {
	ref := in.Answers["booking_ref"]
	if ref == "" {
		return Result{}, Fatal(errors.New("status flow missing booking_ref answer"))
	}

	b, err := a.Backend.RideStatus(ctx, in.PhoneNumber, ref)
	if err != nil {
		if errors.Is(err, rides.ErrNotFound) {
			return Result{Text: fmt.Sprintf("No booking found with reference %s.", ref), Final: true}, nil
		}
		return Result{}, err
	}
	return Result{Text: statusText(b), Final: true}, nil
}

func statusText(b rides.Booking) string {
	switch b.Status {
	case rides.BookingStatusRequested:
		return fmt.Sprintf("Ride %s: looking for a driver.", b.Ref)
	case rides.BookingStatusDriverAssigned:
		driver := b.DriverName
		if driver == "" {
			driver = "your driver"
		}
		return fmt.Sprintf("Ride %s: %s is assigned and on the way.", b.Ref, driver)
	case rides.BookingStatusEnroute:
		return fmt.Sprintf("Ride %s: trip in progress.", b.Ref)
	case rides.BookingStatusCompleted:
		return fmt.Sprintf("Ride %s: completed. Thank you!", b.Ref)
	case rides.BookingStatusCancelled:
		return fmt.Sprintf("Ride %s: cancelled.", b.Ref)
	default:
		return fmt.Sprintf("Ride %s: status %s.", b.Ref, b.Status)
	}
}
