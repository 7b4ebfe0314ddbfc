package actions

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ussd-gateway/internal/menu"
	"ussd-gateway/internal/rides"
	"ussd-gateway/internal/sms"
)

type stubBackend struct {
	booking rides.Booking
	account rides.Account
	err     error
}

func (s stubBackend) BookRide(ctx context.Context, req rides.BookRideRequest) (rides.Booking, error) {
	return s.booking, s.err
}

func (s stubBackend) GetBalance(ctx context.Context, phoneNumber string) (rides.Account, error) {
	return s.account, s.err
}

func (s stubBackend) RideStatus(ctx context.Context, phoneNumber, ref string) (rides.Booking, error) {
	return s.booking, s.err
}

type slowAction struct{}

func (slowAction) Key() string { return "slow" }

func (slowAction) Execute(ctx context.Context, in Input) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-time.After(time.Second):
		return Result{Text: "done"}, nil
	}
}

type panicAction struct{}

func (panicAction) Key() string { return "panic" }

func (panicAction) Execute(ctx context.Context, in Input) (Result, error) {
	panic("boom")
}

func TestDispatcher_UnknownKeyIsFatal(t *testing.T) {
	d, err := NewDispatcher(time.Second)
	if err != nil {
		t.Fatalf("dispatcher: %v", err)
	}
	_, aerr := d.Execute(context.Background(), "nope", Input{})
	if aerr == nil || aerr.Kind != ErrorFatal {
		t.Fatalf("expected fatal error, got %+v", aerr)
	}
}

func TestDispatcher_TimeoutIsRetryable(t *testing.T) {
	d, err := NewDispatcher(20*time.Millisecond, slowAction{})
	if err != nil {
		t.Fatalf("dispatcher: %v", err)
	}
	_, aerr := d.Execute(context.Background(), "slow", Input{})
	if aerr == nil || aerr.Kind != ErrorRetryable {
		t.Fatalf("expected retryable timeout, got %+v", aerr)
	}
}

func TestDispatcher_PanicIsFatal(t *testing.T) {
	d, err := NewDispatcher(time.Second, panicAction{})
	if err != nil {
		t.Fatalf("dispatcher: %v", err)
	}
	_, aerr := d.Execute(context.Background(), "panic", Input{})
	if aerr == nil || aerr.Kind != ErrorFatal {
		t.Fatalf("expected fatal error for panic, got %+v", aerr)
	}
}

func TestDispatcher_RejectsDuplicateKeys(t *testing.T) {
	if _, err := NewDispatcher(time.Second, slowAction{}, slowAction{}); err == nil {
		t.Fatalf("expected duplicate key error")
	}
}

func TestBookRide_SendsSMSOnce(t *testing.T) {
	sender := &sms.MemorySender{}
	backend := stubBackend{booking: rides.Booking{
		Ref: "123456", PhoneNumber: "+254700000001",
		Pickup: "CBD", Dropoff: "Westlands", RideType: "Standard",
		FareMinor: 25000, Currency: "KES",
		Status: rides.BookingStatusRequested,
	}}
	a := BookRideAction{Backend: backend, SMS: sender, SMSTimeout: time.Second}

	res, err := a.Execute(context.Background(), Input{
		PhoneNumber: "+254700000001",
		SessionID:   "at-1",
		Answers:     map[string]string{"pickup": "CBD", "dropoff": "Westlands", "ride_type": "Standard"},
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !res.Final {
		t.Fatalf("expected final result")
	}
	if !strings.Contains(res.Text, "123456") || !strings.Contains(res.Text, "KES 250.00") {
		t.Fatalf("unexpected text: %q", res.Text)
	}

	// The SMS send is detached; give it a moment.
	deadline := time.After(time.Second)
	for len(sender.Sent()) == 0 {
		select {
		case <-deadline:
			t.Fatalf("expected sms to be sent")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if got := len(sender.Sent()); got != 1 {
		t.Fatalf("expected exactly one sms, got %d", got)
	}
}

func TestBookRide_MissingAnswersIsFatal(t *testing.T) {
	a := BookRideAction{Backend: stubBackend{}}
	_, err := a.Execute(context.Background(), Input{PhoneNumber: "+2547", Answers: map[string]string{}})
	var aerr *Error
	if !errors.As(err, &aerr) || aerr.Kind != ErrorFatal {
		t.Fatalf("expected fatal classified error, got %v", err)
	}
}

func TestCheckBalance_NoAccountIsBusinessOutcome(t *testing.T) {
	a := CheckBalanceAction{Backend: stubBackend{err: rides.ErrNotFound}}
	res, err := a.Execute(context.Background(), Input{PhoneNumber: "+2547"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !res.Final || !strings.Contains(res.Text, "No ride account") {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestCheckBalance_FormatsBalance(t *testing.T) {
	a := CheckBalanceAction{Backend: stubBackend{account: rides.Account{Currency: "KES", BalanceMinor: 50000}}}
	res, err := a.Execute(context.Background(), Input{PhoneNumber: "+2547"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !strings.Contains(res.Text, "KES 500.00") {
		t.Fatalf("unexpected text: %q", res.Text)
	}
}

func TestRideStatus_UnknownRef(t *testing.T) {
	a := RideStatusAction{Backend: stubBackend{err: rides.ErrNotFound}}
	res, err := a.Execute(context.Background(), Input{
		PhoneNumber: "+2547",
		Answers:     map[string]string{"booking_ref": "999999"},
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !strings.Contains(res.Text, "No booking found") {
		t.Fatalf("unexpected text: %q", res.Text)
	}
}

func TestActionKeysMatchBuiltinTree(t *testing.T) {
	d, err := NewDispatcher(time.Second,
		BookRideAction{Backend: stubBackend{}},
		CheckBalanceAction{Backend: stubBackend{}},
		RideStatusAction{Backend: stubBackend{}},
	)
	if err != nil {
		t.Fatalf("dispatcher: %v", err)
	}
	if _, err := menu.Builtin(d.Keys()); err != nil {
		t.Fatalf("builtin tree should accept dispatcher keys: %v", err)
	}
}
