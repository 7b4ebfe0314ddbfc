package session

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryStore_CRUD(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.Get(ctx, "+254700000001"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	sess := Session{
		PhoneNumber:      "+254700000001",
		CarrierSessionID: "at-1",
		NodeKey:          "root",
		Path:             []string{"root"},
		Status:           StatusActive,
		CreatedAt:        time.Now().UTC(),
		LastActiveAt:     time.Now().UTC(),
	}
	if err := s.Put(ctx, sess); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := s.Get(ctx, sess.PhoneNumber)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.NodeKey != "root" || got.CarrierSessionID != "at-1" {
		t.Fatalf("unexpected session: %+v", got)
	}

	all, err := s.List(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("expected one session, got %d (err=%v)", len(all), err)
	}

	if err := s.Delete(ctx, sess.PhoneNumber); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, sess.PhoneNumber); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	// Deleting again is not an error.
	if err := s.Delete(ctx, sess.PhoneNumber); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestMemoryLocker_SerializesSameKey(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "k", time.Second)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	var order []int
	var mu sync.Mutex
	done := make(chan struct{})
	go func() {
		u2, err := l.Lock(ctx, "k", time.Second)
		if err != nil {
			t.Errorf("second lock: %v", err)
			close(done)
			return
		}
		mu.Lock()
		order = append(order, 2)
		mu.Unlock()
		_ = u2(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	order = append(order, 1)
	mu.Unlock()
	_ = unlock(ctx)
	<-done

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("expected holder to finish before waiter, got %v", order)
	}
}

func TestMemoryLocker_EntriesAreReclaimed(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		unlock, err := l.Lock(ctx, "key", time.Second)
		if err != nil {
			t.Fatalf("lock %d: %v", i, err)
		}
		if err := unlock(ctx); err != nil {
			t.Fatalf("unlock %d: %v", i, err)
		}
	}
	if n := l.Held(); n != 0 {
		t.Fatalf("expected no retained lock entries, got %d", n)
	}
}

func TestMemoryLocker_ContextCancel(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "k", time.Second)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	cancelCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(cancelCtx, "k", time.Second); err == nil {
		t.Fatalf("expected context error for contended lock")
	}

	_ = unlock(ctx)
}
