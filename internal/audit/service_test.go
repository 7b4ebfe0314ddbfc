package audit

import (
	"context"
	"testing"
)

func TestService_AppendRequiresPhoneAndType(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Event{Type: EventTypeSessionStarted}); err == nil {
		t.Fatalf("expected error for missing phone")
	}
	if err := svc.Append(context.Background(), Event{PhoneNumber: "+254700000001"}); err == nil {
		t.Fatalf("expected error for missing type")
	}
}

func TestService_AppendsImmutableEvents(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogSession(context.Background(), EventTypeSessionCompleted, "+254700000001", "at-1", "book_done", "booking confirmed"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event")
	}
	if evs[0].Type != EventTypeSessionCompleted {
		t.Fatalf("expected session_completed, got %q", evs[0].Type)
	}
	if evs[0].ID == "" || evs[0].CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp assigned")
	}
}

func TestMemoryRepo_RecentNewestFirst(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	_ = svc.LogSession(ctx, EventTypeSessionStarted, "+254700000001", "at-1", "root", "")
	_ = svc.LogSession(ctx, EventTypeSessionExpired, "+254700000001", "at-1", "book_pickup", "")

	evs, err := repo.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(evs) != 1 || evs[0].Type != EventTypeSessionExpired {
		t.Fatalf("expected newest event first, got %+v", evs)
	}
}
