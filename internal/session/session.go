package session

import "time"

// Status is the lifecycle state of a subscriber session.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
	StatusAborted   Status = "aborted"
)

// Answer is one captured value in a completed step.
type Answer struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Session is the server-side state of one subscriber conversation.
//
// Invariants:
// - keyed by subscriber phone number: at most one session per subscriber
// - NodeKey is authoritative; the cumulative input string is only
//   trusted for its token count (consistency guard)
// - Path holds every visited non-action node, root first; NodeKey is
//   always the last element
// - TokensSeen counts every token ever consumed, including rejected
//   and back tokens, so redeliveries can be detected by length alone
type Session struct {
	PhoneNumber      string `json:"phone_number"`
	CarrierSessionID string `json:"carrier_session_id"`

	NodeKey string   `json:"node_key"`
	Path    []string `json:"path"`
	Answers []Answer `json:"answers"`

	TokensSeen int `json:"tokens_seen"`
	Rejected   int `json:"rejected"`

	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// AnswerMap flattens the answer history for prompt interpolation and
// action input. Later answers win on key collision.
func (s Session) AnswerMap() map[string]string {
	if len(s.Answers) == 0 {
		return nil
	}
	m := make(map[string]string, len(s.Answers))
	for _, a := range s.Answers {
		m[a.Key] = a.Value
	}
	return m
}

// IdleSince reports whether the session has been idle past the given
// timeout at the given instant.
func (s Session) IdleSince(now time.Time, idleTimeout time.Duration) bool {
	return now.Sub(s.LastActiveAt) > idleTimeout
}
