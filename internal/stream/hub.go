// Package stream pushes live session snapshots to browser tabs over
// websockets.
package stream

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/crackd/internal/session"
)

// Frame types sent to clients.
const (
	FrameSnapshot  = "snapshot"
	FrameComposing = "composing"
	FrameError     = "error"
	FramePong      = "pong"
	FrameEnded     = "ended"
)

// Frame is one server-to-client message.
type Frame struct {
	Type     string            `json:"type"`
	Snapshot *session.Snapshot `json:"snapshot,omitempty"`
	At       *time.Time        `json:"at,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// Subscriber buffers frames for one connection. Snapshots coalesce to the
// newest version; older versions than one already queued or sent are
// dropped.
type Subscriber struct {
	userID    string
	sessionID string

	mu        sync.Mutex
	snapshot  *session.Snapshot
	sent      uint64
	composing *time.Time
	control   []Frame
	notify    chan struct{}
	ended     chan struct{}
	endOnce   sync.Once
}

func newSubscriber(userID, sessionID string) *Subscriber {
	return &Subscriber{
		userID:    userID,
		sessionID: sessionID,
		notify:    make(chan struct{}, 1),
		ended:     make(chan struct{}),
	}
}

func (s *Subscriber) signal() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Offer queues snap unless a newer one is queued or has been sent.
func (s *Subscriber) Offer(snap session.Snapshot) {
	s.mu.Lock()
	if snap.Version <= s.sent || (s.snapshot != nil && snap.Version <= s.snapshot.Version) {
		s.mu.Unlock()
		return
	}
	s.snapshot = &snap
	s.mu.Unlock()
	s.signal()
}

func (s *Subscriber) pulse(at time.Time) {
	s.mu.Lock()
	s.composing = &at
	s.mu.Unlock()
	s.signal()
}

// Send queues a control frame such as an error or pong.
func (s *Subscriber) Send(f Frame) {
	s.mu.Lock()
	s.control = append(s.control, f)
	s.mu.Unlock()
	s.signal()
}

// Drain returns queued frames in delivery order: control frames, then the
// latest snapshot, then a composing pulse if the session is still composing.
func (s *Subscriber) Drain() []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	frames := s.control
	s.control = nil
	if snap := s.snapshot; snap != nil {
		frames = append(frames, Frame{Type: FrameSnapshot, Snapshot: snap})
		s.sent = snap.Version
		s.snapshot = nil
		if !snap.Composing {
			s.composing = nil
		}
	}
	if s.composing != nil {
		frames = append(frames, Frame{Type: FrameComposing, At: s.composing})
		s.composing = nil
	}
	return frames
}

// Notify is signalled whenever frames are queued.
func (s *Subscriber) Notify() <-chan struct{} { return s.notify }

// Ended is closed when the session ends or the subscriber is replaced.
func (s *Subscriber) Ended() <-chan struct{} { return s.ended }

func (s *Subscriber) end() {
	s.endOnce.Do(func() { close(s.ended) })
}

// Hub routes controller events to the subscriber of each user tab. A tab
// has at most one live subscriber; a newer connection replaces the older.
type Hub struct {
	mu     sync.RWMutex
	active map[string]map[string]*Subscriber
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{active: make(map[string]map[string]*Subscriber)}
}

// Subscribe registers a subscriber for the tab, ending any previous one.
func (h *Hub) Subscribe(userID, sessionID string) *Subscriber {
	sub := newSubscriber(userID, sessionID)

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.active[userID]; !ok {
		h.active[userID] = make(map[string]*Subscriber)
	}
	if existing, ok := h.active[userID][sessionID]; ok {
		existing.Send(Frame{Type: FrameError, Error: "session_replaced"})
		existing.end()
	}
	h.active[userID][sessionID] = sub
	slog.Info("[STREAM] subscriber registered", "user_id", userID, "session_id", sessionID)
	return sub
}

// Unsubscribe removes sub if it is still the tab's subscriber.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sessions, ok := h.active[sub.userID]
	if !ok {
		return
	}
	if current, exists := sessions[sub.sessionID]; exists && current == sub {
		delete(sessions, sub.sessionID)
		if len(sessions) == 0 {
			delete(h.active, sub.userID)
		}
		slog.Info("[STREAM] subscriber unregistered", "user_id", sub.userID, "session_id", sub.sessionID)
	}
}

// Active returns the tab's subscriber, or nil.
func (h *Hub) Active(userID, sessionID string) *Subscriber {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.active[userID][sessionID]
}

// End tells the tab's subscriber that its session is over.
func (h *Hub) End(userID, sessionID string) {
	if sub := h.Active(userID, sessionID); sub != nil {
		sub.end()
	}
}

// Observer returns the session observer for a tab. It is a
// session.ObserverFactory.
func (h *Hub) Observer(userID, sessionID string) session.Observer {
	return &tabObserver{hub: h, userID: userID, sessionID: sessionID}
}

type tabObserver struct {
	hub       *Hub
	userID    string
	sessionID string
}

func (o *tabObserver) OnSnapshot(snap session.Snapshot) {
	if sub := o.hub.Active(o.userID, o.sessionID); sub != nil {
		sub.Offer(snap)
	}
}

func (o *tabObserver) OnComposing(at time.Time) {
	if sub := o.hub.Active(o.userID, o.sessionID); sub != nil {
		sub.pulse(at)
	}
}
