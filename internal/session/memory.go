package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and local development.
// It is not intended for production use; the gateway runs stateless
// behind a load balancer and needs the redis store there.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]Session{}}
}

func (s *MemoryStore) Get(ctx context.Context, phoneNumber string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[phoneNumber]
	if !ok {
		return Session{}, ErrNotFound
	}
	return sess, nil
}

func (s *MemoryStore) Put(ctx context.Context, sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.PhoneNumber] = sess
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, phoneNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, phoneNumber)
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out, nil
}

// MemoryLocker serializes per-key access with in-process mutexes.
// Lock entries are reference-counted and removed when the last holder
// releases, so long-running processes do not accumulate one mutex per
// subscriber ever seen.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*memoryLockEntry
}

type memoryLockEntry struct {
	mu   sync.Mutex
	refs int
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: map[string]*memoryLockEntry{}}
}

func (l *MemoryLocker) Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &memoryLockEntry{}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	acquired := make(chan struct{})
	go func() {
		e.mu.Lock()
		close(acquired)
	}()

	select {
	case <-acquired:
	case <-ctx.Done():
		// The goroutine will eventually take the mutex; hand it straight
		// back and drop our reference.
		go func() {
			<-acquired
			e.mu.Unlock()
			l.release(key, e)
		}()
		return nil, ctx.Err()
	}

	return func(ctx context.Context) error {
		e.mu.Unlock()
		l.release(key, e)
		return nil
	}, nil
}

func (l *MemoryLocker) release(key string, e *memoryLockEntry) {
	l.mu.Lock()
	e.refs--
	if e.refs <= 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()
}

// Held reports the number of live lock entries; exposed for tests.
func (l *MemoryLocker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
