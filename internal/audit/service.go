package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Reader is the optional read side used by the ops API audit tail.
type Reader interface {
	Recent(ctx context.Context, limit int) ([]Event, error)
}

// Service records session lifecycle transitions.
//
// IMPORTANT:
// - Audit is internal-only. Subscribers never see these records.
// - Callers should treat audit logging as best-effort.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.PhoneNumber == "" {
		return ErrInvalidEvent
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogSession records a lifecycle transition for a session.
func (s *Service) LogSession(ctx context.Context, typ EventType, phoneNumber, sessionID, nodeKey, message string) error {
	return s.Append(ctx, Event{
		PhoneNumber: phoneNumber,
		SessionID:   sessionID,
		Type:        typ,
		NodeKey:     nodeKey,
		Message:     message,
	})
}

// LogActionFailure records a failed backend action for operator review.
func (s *Service) LogActionFailure(ctx context.Context, phoneNumber, sessionID, nodeKey, actionKey, message string) error {
	return s.Append(ctx, Event{
		PhoneNumber: phoneNumber,
		SessionID:   sessionID,
		Type:        EventTypeActionFailed,
		NodeKey:     nodeKey,
		Message:     message,
		Metadata:    `{"action":"` + actionKey + `"}`,
	})
}
