package actions

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Input is what a capability receives from the session engine: the
// subscriber identity and the answers collected on the way to the
// action node.
type Input struct {
	PhoneNumber string
	SessionID   string
	Answers     map[string]string
}

// Result is a successful action outcome. Text replaces the target
// node's prompt when non-empty. Final forces a RELEASE regardless of
// the target node kind.
type Result struct {
	Text  string
	Final bool
}

// ErrorKind classifies a failed action for the engine.
//
// retryable: transient backend failure; the engine re-renders the
// current menu with a try-again notice and keeps the session active.
// fatal: unrecoverable; the engine aborts the session.
type ErrorKind string

const (
	ErrorRetryable ErrorKind = "retryable"
	ErrorFatal     ErrorKind = "fatal"
)

// Error is a classified action failure.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("action %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable wraps err as a transient failure.
func Retryable(err error) *Error { return &Error{Kind: ErrorRetryable, Err: err} }

// Fatal wraps err as an unrecoverable failure.
func Fatal(err error) *Error { return &Error{Kind: ErrorFatal, Err: err} }

// Action is one capability in the closed set the menu tree can invoke.
type Action interface {
	Key() string
	Execute(ctx context.Context, in Input) (Result, error)
}

// Dispatcher routes a node-declared action key to its capability,
// bounds execution time, and guarantees every failure path comes back
// as a classified *Error. It never raises uncaught failures to the
// engine.
type Dispatcher struct {
	timeout time.Duration
	actions map[string]Action
}

func NewDispatcher(timeout time.Duration, acts ...Action) (*Dispatcher, error) {
	if timeout <= 0 {
		return nil, errors.New("actions: timeout must be > 0")
	}
	m := make(map[string]Action, len(acts))
	for _, a := range acts {
		if a.Key() == "" {
			return nil, errors.New("actions: action with empty key")
		}
		if _, dup := m[a.Key()]; dup {
			return nil, fmt.Errorf("actions: duplicate action key %q", a.Key())
		}
		m[a.Key()] = a
	}
	return &Dispatcher{timeout: timeout, actions: m}, nil
}

// Keys returns the registered capability keys, for menu tree
// validation at startup.
func (d *Dispatcher) Keys() []string {
	out := make([]string, 0, len(d.actions))
	for k := range d.actions {
		out = append(out, k)
	}
	return out
}

// Execute runs the capability registered under key with a bounded
// deadline. A missing key is a configuration error (fatal); a deadline
// hit is transient (retryable).
func (d *Dispatcher) Execute(ctx context.Context, key string, in Input) (Result, *Error) {
	a, ok := d.actions[key]
	if !ok {
		return Result{}, Fatal(fmt.Errorf("actions: unknown action key %q", key))
	}

	runCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	res, err := d.run(runCtx, a, in)
	if err == nil {
		return res, nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return Result{}, classified
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Result{}, Retryable(err)
	}
	// Unclassified backend errors are assumed transient; the subscriber
	// can retry the same step.
	return Result{}, Retryable(err)
}

func (d *Dispatcher) run(ctx context.Context, a Action, in Input) (res Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = Fatal(fmt.Errorf("actions: panic in %q: %v", a.Key(), p))
		}
	}()
	return a.Execute(ctx, in)
}
