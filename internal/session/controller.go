package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/crackd/internal/domain"
	"github.com/ashureev/crackd/internal/panel"
)

var (
	// ErrInvalidInput is returned for empty or whitespace-only submissions.
	ErrInvalidInput = errors.New("message is empty")
	// ErrReplyPending is returned when a submission arrives while a reply is in flight.
	ErrReplyPending = errors.New("reply already pending")
	// ErrSessionClosed is returned after the session has ended.
	ErrSessionClosed = errors.New("session closed")

	errResponderPanic = errors.New("responder panicked")
)

const (
	apologyMessage = "Sorry, something went wrong while I was thinking about that. Please try again."
	timeoutMessage = "That took longer than expected, so I stopped. Please send your message again."
)

// State is the controller's turn-taking state.
type State string

const (
	StateIdle          State = "idle"
	StateAwaitingReply State = "awaiting_reply"
	StateFailed        State = "failed"
)

// Responder produces the mentor's response to one user message.
type Responder interface {
	Dispatch(ctx context.Context, input string, current *domain.CurrentProblem) (domain.Response, error)
}

// Observer is notified after every change to the session.
type Observer interface {
	// OnSnapshot receives the full session state.
	OnSnapshot(s Snapshot)
	// OnComposing receives typing-indicator pulses while a reply is pending.
	// It runs on the indicator's goroutine and must not call back into the
	// Controller.
	OnComposing(at time.Time)
}

// Recorder receives every message appended to the transcript.
type Recorder interface {
	Record(userID, sessionID string, msg domain.ChatMessage)
}

// Snapshot is the read model handed to renderers.
type Snapshot struct {
	Version   uint64                 `json:"version"`
	UserID    string                 `json:"user_id"`
	SessionID string                 `json:"session_id"`
	State     State                  `json:"state"`
	Composing bool                   `json:"composing"`
	Messages  []domain.ChatMessage   `json:"messages"`
	Problem   *domain.CurrentProblem `json:"current_problem"`
	Metadata  domain.SessionMetadata `json:"metadata"`
	Panel     panel.Views            `json:"panel"`
}

// Options configures a Controller.
type Options struct {
	UserID            string
	SessionID         string
	ReplyTimeout      time.Duration
	ComposingInterval time.Duration
	Observer          Observer
	Recorder          Recorder
	Logger            *slog.Logger
}

// Controller owns one conversation. It serializes turns so that at most one
// reply is in flight, and applies each turn's outcome all-or-nothing.
type Controller struct {
	mu        sync.Mutex
	state     State
	version   uint64
	turn      uint64
	cancel    context.CancelFunc
	closed    bool
	greeted   bool
	problem   *domain.CurrentProblem
	messages  *MessageStore
	metadata  *MetadataStore
	composing *Composing
	responder Responder
	opts      Options
	log       *slog.Logger
}

// NewController creates an idle controller with empty stores.
func NewController(responder Responder, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("user_id", opts.UserID, "session_id", opts.SessionID)

	c := &Controller{
		state:     StateIdle,
		messages:  NewMessageStore(nil),
		metadata:  NewMetadataStore(),
		responder: responder,
		opts:      opts,
		log:       logger,
	}
	c.composing = NewComposing(opts.ComposingInterval, c.pulse)
	return c
}

func (c *Controller) pulse(t time.Time) {
	if c.opts.Observer != nil {
		c.opts.Observer.OnComposing(t)
	}
}

// Greet appends the opening mentor message for profile. Only the first call
// has an effect.
func (c *Controller) Greet(profile domain.Profile) {
	c.mu.Lock()
	if c.closed || c.greeted {
		c.mu.Unlock()
		return
	}
	c.greeted = true
	msg := c.appendLocked(domain.RoleMentor, domain.KindText, greeting(profile.Username))
	snap := c.changedLocked()
	c.mu.Unlock()

	c.publish(snap, msg)
}

func greeting(username string) string {
	return fmt.Sprintf("Hey %s! 👋 I'm your AI coding mentor.\n\n"+
		"Let's get started:\nPaste a LeetCode problem url (preferred) or a problem description.\n\n"+
		"I'll guide you step-by-step using questions, not just answers! 🧠", username)
}

// Submit starts a turn for text. It returns a channel that is closed once the
// turn resolves. Empty input, a pending reply, or a closed session reject the
// submission without changing any state.
func (c *Controller) Submit(ctx context.Context, text string) (<-chan struct{}, error) {
	input := strings.TrimSpace(text)
	if input == "" {
		return nil, ErrInvalidInput
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if c.state == StateAwaitingReply {
		c.mu.Unlock()
		return nil, ErrReplyPending
	}

	msg := c.appendLocked(domain.RoleUser, domain.KindText, input)
	c.state = StateAwaitingReply
	c.turn++
	turn := c.turn

	turnCtx, cancel := context.WithCancel(ctx)
	if c.opts.ReplyTimeout > 0 {
		turnCtx, cancel = withTimeout(turnCtx, cancel, c.opts.ReplyTimeout)
	}
	c.cancel = cancel
	current := c.problem.Clone()
	c.composing.Start()
	snap := c.changedLocked()
	c.mu.Unlock()

	c.publish(snap, msg)

	done := make(chan struct{})
	go c.runTurn(turnCtx, turn, input, current, done)
	return done, nil
}

func withTimeout(parent context.Context, parentCancel context.CancelFunc, d time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, d)
	return ctx, func() {
		cancel()
		parentCancel()
	}
}

type dispatchResult struct {
	resp domain.Response
	err  error
}

func (c *Controller) runTurn(ctx context.Context, turn uint64, input string, current *domain.CurrentProblem, done chan<- struct{}) {
	defer close(done)

	results := make(chan dispatchResult, 1)
	go func() {
		results <- c.dispatch(ctx, input, current)
	}()

	var (
		res    dispatchResult
		ctxErr error
	)
	select {
	case res = <-results:
		ctxErr = ctx.Err()
	case <-ctx.Done():
		ctxErr = ctx.Err()
	}

	c.resolve(turn, res, ctxErr)
}

func (c *Controller) dispatch(ctx context.Context, input string, current *domain.CurrentProblem) (res dispatchResult) {
	defer func() {
		if p := recover(); p != nil {
			res = dispatchResult{err: fmt.Errorf("%w: %v", errResponderPanic, p)}
		}
	}()
	resp, err := c.responder.Dispatch(ctx, input, current)
	return dispatchResult{resp: resp, err: err}
}

// resolve applies a finished turn. Stale turns and turns resolved after Close
// are discarded.
func (c *Controller) resolve(turn uint64, res dispatchResult, ctxErr error) {
	c.mu.Lock()
	if c.closed || turn != c.turn || c.state != StateAwaitingReply {
		c.mu.Unlock()
		return
	}
	c.cancel()
	c.cancel = nil

	var appended []domain.ChatMessage
	switch {
	case errors.Is(ctxErr, context.DeadlineExceeded):
		c.log.Warn("mentor reply timed out, discarding")
		appended = append(appended, c.appendLocked(domain.RoleSystem, domain.KindText, timeoutMessage))
	case ctxErr != nil:
		c.log.Info("mentor reply cancelled, discarding", "reason", ctxErr)
	case res.err != nil:
		c.state = StateFailed
		c.log.Error("mentor reply failed", "error", res.err)
		appended = append(appended, c.appendLocked(domain.RoleSystem, domain.KindText, apologyMessage))
	default:
		c.metadata.ApplyDelta(res.resp.Delta)
		if res.resp.Problem != nil {
			c.problem = res.resp.Problem.Clone()
		}
		reply := res.resp.Reply
		if reply.ID == "" {
			reply = domain.NewMessage(domain.RoleMentor, reply.Kind, reply.Content)
		}
		c.messages.Append(reply)
		appended = append(appended, reply)
	}
	c.state = StateIdle
	c.composing.Stop()
	snap := c.changedLocked()
	c.mu.Unlock()

	c.publish(snap, appended...)
}

// Cancel discards the in-flight reply, if any, without touching the
// transcript or metadata.
func (c *Controller) Cancel() {
	c.mu.Lock()
	if c.state != StateAwaitingReply || c.cancel == nil {
		c.mu.Unlock()
		return
	}
	c.cancel()
	c.mu.Unlock()
}

// Close ends the session: any pending reply is discarded and the composing
// indicator is released. Close is idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.state = StateIdle
	c.composing.Stop()
	c.mu.Unlock()

	c.log.Info("mentor session closed")
}

// Closed reports whether Close has been called.
func (c *Controller) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// State returns the current turn-taking state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Composing reports whether a reply is being composed.
func (c *Controller) Composing() bool {
	return c.State() == StateAwaitingReply
}

// Messages returns the transcript in order.
func (c *Controller) Messages() []domain.ChatMessage {
	return c.messages.All()
}

// Metadata returns a snapshot of the session metadata.
func (c *Controller) Metadata() domain.SessionMetadata {
	return c.metadata.Get()
}

// CurrentProblem returns the recognized problem, or nil.
func (c *Controller) CurrentProblem() *domain.CurrentProblem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.problem.Clone()
}

// Snapshot returns the full session state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// changedLocked records a state change and returns the new snapshot.
func (c *Controller) changedLocked() Snapshot {
	c.version++
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	meta := c.metadata.Get()
	return Snapshot{
		Version:   c.version,
		UserID:    c.opts.UserID,
		SessionID: c.opts.SessionID,
		State:     c.state,
		Composing: c.state == StateAwaitingReply,
		Messages:  c.messages.All(),
		Problem:   c.problem.Clone(),
		Metadata:  meta,
		Panel:     panel.Project(meta),
	}
}

func (c *Controller) appendLocked(role domain.Role, kind domain.Kind, content string) domain.ChatMessage {
	msg := domain.NewMessage(role, kind, content)
	c.messages.Append(msg)
	return msg
}

// publish runs outside the controller lock so observers may read back.
func (c *Controller) publish(snap Snapshot, appended ...domain.ChatMessage) {
	if c.opts.Recorder != nil {
		for _, msg := range appended {
			c.opts.Recorder.Record(c.opts.UserID, c.opts.SessionID, msg)
		}
	}
	if c.opts.Observer != nil {
		c.opts.Observer.OnSnapshot(snap)
	}
}
