package session

import (
	"context"
	"log/slog"
	"time"
)

// ExpiredFunc is called once per evicted session, after eviction, so
// the caller can audit the expiry. Best-effort; errors are the
// callback's problem.
type ExpiredFunc func(ctx context.Context, s Session)

// Sweeper evicts idle-expired sessions in the background.
//
// Each candidate is re-checked under the same per-session lock the
// engine uses, so a sweep never races an in-flight request: either the
// request refreshed LastActiveAt first (sweep skips), or the sweep
// evicted first (request starts fresh).
type Sweeper struct {
	Store       Store
	Locks       Locker
	IdleTimeout time.Duration
	Interval    time.Duration
	LockTTL     time.Duration

	OnExpired ExpiredFunc
	Log       *slog.Logger

	clock func() time.Time
}

func NewSweeper(store Store, locks Locker, idleTimeout, interval time.Duration, log *slog.Logger) *Sweeper {
	return &Sweeper{
		Store:       store,
		Locks:       locks,
		IdleTimeout: idleTimeout,
		Interval:    interval,
		LockTTL:     10 * time.Second,
		Log:         log,
		clock:       time.Now,
	}
}

// Run blocks until ctx is cancelled, sweeping every Interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce scans the store and evicts every session past the idle
// timeout. Exposed for tests and for a final sweep on shutdown.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	sessions, err := s.Store.List(ctx)
	if err != nil {
		if s.Log != nil {
			s.Log.Error("session sweep list failed", "err", err)
		}
		return
	}

	now := s.clock().UTC()
	evicted := 0
	for _, sess := range sessions {
		if !sess.IdleSince(now, s.IdleTimeout) {
			continue
		}
		if s.evict(ctx, sess.PhoneNumber, now) {
			evicted++
		}
	}
	if evicted > 0 && s.Log != nil {
		s.Log.Info("session sweep", "evicted", evicted, "scanned", len(sessions))
	}
}

func (s *Sweeper) evict(ctx context.Context, phoneNumber string, now time.Time) bool {
	lockCtx, cancel := context.WithTimeout(ctx, s.LockTTL)
	defer cancel()

	unlock, err := s.Locks.Lock(lockCtx, phoneNumber, s.LockTTL)
	if err != nil {
		// A live request holds the key; it will refresh or evict itself.
		return false
	}
	defer func() { _ = unlock(ctx) }()

	// Re-check under the lock: the request that beat us to the lock may
	// have refreshed the session.
	sess, err := s.Store.Get(ctx, phoneNumber)
	if err != nil {
		return false
	}
	if !sess.IdleSince(now, s.IdleTimeout) {
		return false
	}

	if err := s.Store.Delete(ctx, phoneNumber); err != nil {
		if s.Log != nil {
			s.Log.Error("session sweep delete failed", "phone", phoneNumber, "err", err)
		}
		return false
	}
	if s.OnExpired != nil {
		sess.Status = StatusExpired
		s.OnExpired(ctx, sess)
	}
	return true
}
