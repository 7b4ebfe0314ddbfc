package sms

import (
	"context"
	"log/slog"
	"sync"
)

// Sender delivers a confirmation SMS to a subscriber.
//
// Callers must treat delivery as fire-and-forget: a failed send is
// logged and never blocks or fails the USSD reply.
type Sender interface {
	Send(ctx context.Context, to, message string) error
}

// LogSender is the default sender until an aggregator SMS integration
// is wired; it records the message in the structured log.
type LogSender struct {
	Log *slog.Logger
}

func (s LogSender) Send(ctx context.Context, to, message string) error {
	log := s.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("sms send", "to", to, "len", len(message))
	return nil
}

// MemorySender records sent messages for tests.
type MemorySender struct {
	mu   sync.Mutex
	sent []Message

	// Err, when set, is returned from Send.
	Err error
}

type Message struct {
	To   string
	Body string
}

func (s *MemorySender) Send(ctx context.Context, to, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.sent = append(s.sent, Message{To: to, Body: message})
	return nil
}

func (s *MemorySender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.sent))
	copy(out, s.sent)
	return out
}
