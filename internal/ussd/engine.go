package ussd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ussd-gateway/internal/actions"
	"ussd-gateway/internal/audit"
	"ussd-gateway/internal/menu"
	"ussd-gateway/internal/session"
	"ussd-gateway/pkg/logger"
)

// Request is one inbound aggregator delivery, already decoded from the
// transport form.
type Request struct {
	SessionID   string
	PhoneNumber string
	Text        string
}

// Reserved navigation tokens, honored only on nodes that opt in via
// AllowBack so they never shadow free-form numeric input.
const (
	backToken    = "0"
	restartToken = "00"
)

// Subscriber-facing notices. Kept short: they share the screen with a
// re-rendered menu under a 160-char budget.
const (
	invalidNotice   = "Invalid input. Try again."
	transientNotice = "Service temporarily unavailable. Try again."
	apology         = "Sorry, something went wrong. Please try again later."
)

// EngineConfig carries the tunables the engine needs from the process
// configuration.
type EngineConfig struct {
	IdleTimeout     time.Duration
	Delimiter       string
	MaxPromptLength int
	LockTTL         time.Duration
}

// Engine drives one subscriber conversation per request: it decodes the
// cumulative input string, replays or advances the stored session under
// a per-subscriber lock, and produces the CONTINUE/RELEASE reply.
//
// The stored NodeKey is authoritative. The cumulative string is trusted
// only for its token count, which detects aggregator redeliveries and
// bursts without replaying the whole flow.
type Engine struct {
	tree     *menu.Tree
	store    session.Store
	locks    session.Locker
	dispatch *actions.Dispatcher
	audit    *audit.Service
	render   Renderer

	idleTimeout time.Duration
	delimiter   string
	lockTTL     time.Duration

	clock func() time.Time
}

func NewEngine(tree *menu.Tree, store session.Store, locks session.Locker, dispatch *actions.Dispatcher, aud *audit.Service, cfg EngineConfig) (*Engine, error) {
	if tree == nil {
		return nil, errors.New("ussd: menu tree is required")
	}
	if store == nil || locks == nil {
		return nil, errors.New("ussd: session store and locker are required")
	}
	if dispatch == nil {
		return nil, errors.New("ussd: action dispatcher is required")
	}
	e := &Engine{
		tree:        tree,
		store:       store,
		locks:       locks,
		dispatch:    dispatch,
		audit:       aud,
		render:      Renderer{MaxLen: cfg.MaxPromptLength},
		idleTimeout: cfg.IdleTimeout,
		delimiter:   cfg.Delimiter,
		lockTTL:     cfg.LockTTL,
		clock:       time.Now,
	}
	if e.idleTimeout <= 0 {
		e.idleTimeout = 120 * time.Second
	}
	if e.delimiter == "" {
		e.delimiter = "*"
	}
	if e.lockTTL <= 0 {
		e.lockTTL = 10 * time.Second
	}
	return e, nil
}

// Handle processes one delivery end to end. The error return covers
// infrastructure failures only (lock, store); every menu-level outcome,
// including configuration errors, comes back as a Reply.
func (e *Engine) Handle(ctx context.Context, req Request) (Reply, error) {
	if req.PhoneNumber == "" {
		return Reply{}, errors.New("ussd: phone number is required")
	}
	if req.SessionID == "" {
		return Reply{}, errors.New("ussd: carrier session id is required")
	}

	log := logger.From(ctx).With("phone", req.PhoneNumber, "carrier_session", req.SessionID)
	ctx = logger.With(ctx, log)

	// Serialize per subscriber: concurrent duplicate deliveries line up
	// here and the loser sees the winner's already-advanced state.
	unlock, err := e.locks.Lock(ctx, req.PhoneNumber, e.lockTTL)
	if err != nil {
		return Reply{}, fmt.Errorf("ussd: acquire session lock: %w", err)
	}
	defer func() { _ = unlock(ctx) }()

	tokens := ParseInput(req.Text, e.delimiter)
	now := e.clock().UTC()

	sess, err := e.store.Get(ctx, req.PhoneNumber)
	switch {
	case errors.Is(err, session.ErrNotFound):
		return e.start(ctx, req, tokens, now)
	case err != nil:
		return Reply{}, fmt.Errorf("ussd: load session: %w", err)
	}

	if sess.CarrierSessionID != req.SessionID {
		// The carrier opened a new dialog; the old one is dead.
		e.expire(ctx, sess, "superseded by new carrier session")
		return e.start(ctx, req, tokens, now)
	}
	if sess.IdleSince(now, e.idleTimeout) {
		e.expire(ctx, sess, "idle timeout")
		return e.start(ctx, req, tokens, now)
	}

	sess.LastActiveAt = now
	return e.resume(ctx, sess, tokens)
}

func (e *Engine) start(ctx context.Context, req Request, tokens []string, now time.Time) (Reply, error) {
	root, err := e.tree.Node(e.tree.Root())
	if err != nil {
		return e.configFailure(ctx, session.Session{
			PhoneNumber:      req.PhoneNumber,
			CarrierSessionID: req.SessionID,
		}, err)
	}

	sess := session.Session{
		PhoneNumber:      req.PhoneNumber,
		CarrierSessionID: req.SessionID,
		NodeKey:          root.Key,
		Path:             []string{root.Key},
		TokensSeen:       len(tokens),
		Status:           session.StatusActive,
		CreatedAt:        now,
		LastActiveAt:     now,
	}
	if err := e.store.Put(ctx, sess); err != nil {
		return Reply{}, fmt.Errorf("ussd: persist session: %w", err)
	}
	e.logAudit(ctx, audit.EventTypeSessionStarted, sess, "")
	return e.render.Continue(RenderNode(root, nil)), nil
}

func (e *Engine) resume(ctx context.Context, sess session.Session, tokens []string) (Reply, error) {
	// Exactly one unseen token means a normal advance. Anything else is
	// a redelivery (no new token) or a burst (several at once); both are
	// answered by re-rendering the current screen without advancing, so
	// the reply is idempotent.
	if len(tokens) != sess.TokensSeen+1 {
		if err := e.store.Put(ctx, sess); err != nil {
			return Reply{}, fmt.Errorf("ussd: persist session: %w", err)
		}
		node, err := e.tree.Node(sess.NodeKey)
		if err != nil {
			return e.configFailure(ctx, sess, err)
		}
		return e.render.Continue(RenderNode(node, sess.AnswerMap())), nil
	}
	return e.step(ctx, sess, tokens[len(tokens)-1])
}

func (e *Engine) step(ctx context.Context, sess session.Session, token string) (Reply, error) {
	node, err := e.tree.Node(sess.NodeKey)
	if err != nil {
		return e.configFailure(ctx, sess, err)
	}

	// The token is consumed whatever happens next; rejected and back
	// tokens still count toward the redelivery guard.
	sess.TokensSeen++

	if node.AllowBack {
		switch token {
		case restartToken:
			return e.restart(ctx, sess)
		case backToken:
			return e.back(ctx, sess, node)
		}
	}

	opt, ok := node.Validate(token)
	if !ok {
		sess.Rejected++
		if err := e.store.Put(ctx, sess); err != nil {
			return Reply{}, fmt.Errorf("ussd: persist session: %w", err)
		}
		return e.render.Continue(invalidNotice + "\n" + RenderNode(node, sess.AnswerMap())), nil
	}

	if node.AnswerKey != "" {
		sess.Answers = append(sess.Answers, session.Answer{Key: node.AnswerKey, Value: opt.Label})
	}
	return e.arrive(ctx, sess, node, opt.Target)
}

func (e *Engine) restart(ctx context.Context, sess session.Session) (Reply, error) {
	root, err := e.tree.Node(e.tree.Root())
	if err != nil {
		return e.configFailure(ctx, sess, err)
	}
	sess.NodeKey = root.Key
	sess.Path = []string{root.Key}
	sess.Answers = nil
	if err := e.store.Put(ctx, sess); err != nil {
		return Reply{}, fmt.Errorf("ussd: persist session: %w", err)
	}
	return e.render.Continue(RenderNode(root, nil)), nil
}

func (e *Engine) back(ctx context.Context, sess session.Session, cur menu.Node) (Reply, error) {
	if len(sess.Path) < 2 {
		// Already at the root; re-render instead of failing.
		if err := e.store.Put(ctx, sess); err != nil {
			return Reply{}, fmt.Errorf("ussd: persist session: %w", err)
		}
		return e.render.Continue(RenderNode(cur, sess.AnswerMap())), nil
	}

	sess.Path = sess.Path[:len(sess.Path)-1]
	sess.NodeKey = sess.Path[len(sess.Path)-1]
	prev, err := e.tree.Node(sess.NodeKey)
	if err != nil {
		return e.configFailure(ctx, sess, err)
	}
	// Returning to a capturing node discards the value it recorded so
	// re-answering does not double-append.
	if prev.AnswerKey != "" && len(sess.Answers) > 0 && sess.Answers[len(sess.Answers)-1].Key == prev.AnswerKey {
		sess.Answers = sess.Answers[:len(sess.Answers)-1]
	}
	if err := e.store.Put(ctx, sess); err != nil {
		return Reply{}, fmt.Errorf("ussd: persist session: %w", err)
	}
	return e.render.Continue(RenderNode(prev, sess.AnswerMap())), nil
}

func (e *Engine) arrive(ctx context.Context, sess session.Session, from menu.Node, targetKey string) (Reply, error) {
	target, err := e.tree.Node(targetKey)
	if err != nil {
		return e.configFailure(ctx, sess, err)
	}

	switch target.Kind {
	case menu.KindMenu, menu.KindInput:
		sess.NodeKey = target.Key
		sess.Path = append(sess.Path, target.Key)
		if err := e.store.Put(ctx, sess); err != nil {
			return Reply{}, fmt.Errorf("ussd: persist session: %w", err)
		}
		return e.render.Continue(RenderNode(target, sess.AnswerMap())), nil
	case menu.KindTerminal:
		return e.complete(ctx, sess, target, "")
	case menu.KindAction:
		return e.execute(ctx, sess, from, target)
	default:
		return e.configFailure(ctx, sess, fmt.Errorf("menu: node %q has unknown kind %q", target.Key, target.Kind))
	}
}

func (e *Engine) execute(ctx context.Context, sess session.Session, from, node menu.Node) (Reply, error) {
	res, aerr := e.dispatch.Execute(ctx, node.ActionKey, actions.Input{
		PhoneNumber: sess.PhoneNumber,
		SessionID:   sess.CarrierSessionID,
		Answers:     sess.AnswerMap(),
	})
	if aerr != nil {
		logger.From(ctx).Error("action failed",
			"action", node.ActionKey, "node", node.Key, "kind", string(aerr.Kind), "err", aerr.Err)
		if e.audit != nil {
			if err := e.audit.LogActionFailure(ctx, sess.PhoneNumber, sess.CarrierSessionID, node.Key, node.ActionKey, aerr.Err.Error()); err != nil {
				logger.From(ctx).Warn("audit append failed", "err", err)
			}
		}

		if aerr.Kind == actions.ErrorRetryable {
			// Hold position on the step that led here. The answer captured
			// on the way in is rolled back so the retry re-captures it.
			if from.AnswerKey != "" && len(sess.Answers) > 0 && sess.Answers[len(sess.Answers)-1].Key == from.AnswerKey {
				sess.Answers = sess.Answers[:len(sess.Answers)-1]
			}
			if err := e.store.Put(ctx, sess); err != nil {
				return Reply{}, fmt.Errorf("ussd: persist session: %w", err)
			}
			return e.render.Continue(transientNotice + "\n" + RenderNode(from, sess.AnswerMap())), nil
		}

		return e.abort(ctx, sess, node)
	}

	target, err := e.tree.Node(node.OnSuccess)
	if err != nil {
		return e.configFailure(ctx, sess, err)
	}
	if res.Final || target.Kind == menu.KindTerminal {
		return e.complete(ctx, sess, target, res.Text)
	}

	sess.NodeKey = target.Key
	sess.Path = append(sess.Path, target.Key)
	if err := e.store.Put(ctx, sess); err != nil {
		return Reply{}, fmt.Errorf("ussd: persist session: %w", err)
	}
	text := res.Text
	if text == "" {
		text = RenderNode(target, sess.AnswerMap())
	}
	return e.render.Continue(text), nil
}

func (e *Engine) complete(ctx context.Context, sess session.Session, terminal menu.Node, overrideText string) (Reply, error) {
	sess.Status = session.StatusCompleted
	sess.NodeKey = terminal.Key
	if err := e.store.Delete(ctx, sess.PhoneNumber); err != nil {
		logger.From(ctx).Warn("session delete failed", "err", err)
	}
	e.logAudit(ctx, audit.EventTypeSessionCompleted, sess, "")

	text := overrideText
	if text == "" {
		text = menu.Interpolate(terminal.Prompt, sess.AnswerMap())
	}
	return e.render.Release(text), nil
}

func (e *Engine) abort(ctx context.Context, sess session.Session, actionNode menu.Node) (Reply, error) {
	sess.Status = session.StatusAborted
	if err := e.store.Delete(ctx, sess.PhoneNumber); err != nil {
		logger.From(ctx).Warn("session delete failed", "err", err)
	}
	e.logAudit(ctx, audit.EventTypeSessionAborted, sess, "action "+actionNode.ActionKey+" failed")

	failure, err := e.tree.Node(actionNode.OnFailure)
	if err != nil {
		logger.From(ctx).Error("failure node missing", "node", actionNode.OnFailure, "err", err)
		return e.render.Release(apology), nil
	}
	return e.render.Release(menu.Interpolate(failure.Prompt, sess.AnswerMap())), nil
}

// configFailure handles broken flow definitions discovered mid-session.
// The subscriber gets a generic apology and the session is torn down;
// the real error goes to the logs and the audit trail.
func (e *Engine) configFailure(ctx context.Context, sess session.Session, err error) (Reply, error) {
	logger.From(ctx).Error("menu configuration error", "node", sess.NodeKey, "err", err)
	if sess.PhoneNumber != "" {
		if derr := e.store.Delete(ctx, sess.PhoneNumber); derr != nil {
			logger.From(ctx).Warn("session delete failed", "err", derr)
		}
		sess.Status = session.StatusAborted
		e.logAudit(ctx, audit.EventTypeSessionAborted, sess, err.Error())
	}
	return e.render.Release(apology), nil
}

func (e *Engine) expire(ctx context.Context, sess session.Session, reason string) {
	if err := e.store.Delete(ctx, sess.PhoneNumber); err != nil {
		logger.From(ctx).Warn("stale session delete failed", "err", err)
	}
	sess.Status = session.StatusExpired
	e.logAudit(ctx, audit.EventTypeSessionExpired, sess, reason)
}

func (e *Engine) logAudit(ctx context.Context, typ audit.EventType, sess session.Session, msg string) {
	if e.audit == nil {
		return
	}
	if err := e.audit.LogSession(ctx, typ, sess.PhoneNumber, sess.CarrierSessionID, sess.NodeKey, msg); err != nil {
		logger.From(ctx).Warn("audit append failed", "type", string(typ), "err", err)
	}
}
