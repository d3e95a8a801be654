package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/crackd/internal/domain"
	"github.com/patrickmn/go-cache"
)

// DefaultSweepInterval is how often StartSweeper evicts idle sessions.
const DefaultSweepInterval = time.Minute

// ObserverFactory returns the observer for a new session. It may return nil.
type ObserverFactory func(userID, sessionID string) Observer

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	TTL               time.Duration
	ReplyTimeout      time.Duration
	ComposingInterval time.Duration
	Observers         ObserverFactory
	Recorder          Recorder
	Logger            *slog.Logger
}

// Registry holds the live controllers, one per user tab session. Sessions
// expire after TTL without activity; expiry and End both close the controller.
type Registry struct {
	mu        sync.Mutex
	sessions  *cache.Cache
	responder Responder
	cfg       RegistryConfig
	log       *slog.Logger
}

// NewRegistry creates an empty registry. A TTL <= 0 keeps sessions until End.
func NewRegistry(responder Responder, cfg RegistryConfig) *Registry {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}

	// Cleanup interval 0 disables go-cache's janitor; StartSweeper owns expiry.
	sessions := cache.New(ttl, 0)
	r := &Registry{
		sessions:  sessions,
		responder: responder,
		cfg:       cfg,
		log:       logger,
	}
	sessions.OnEvicted(func(key string, v interface{}) {
		if ctrl, ok := v.(*Controller); ok {
			ctrl.Close()
		}
		r.log.Info("Mentor session evicted", "session_key", key)
	})
	return r
}

func registryKey(userID, sessionID string) string {
	return userID + ":" + sessionID
}

// Start returns the live session for the user tab, creating and greeting a
// new one if none exists.
func (r *Registry) Start(userID, sessionID string, profile domain.Profile) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := registryKey(userID, sessionID)
	if v, ok := r.sessions.Get(key); ok {
		if ctrl := v.(*Controller); !ctrl.Closed() {
			r.sessions.SetDefault(key, ctrl)
			return ctrl
		}
	}
	// An expired entry is still stored until swept. Delete closes it so its
	// pending turn cannot publish into the replacement's tab.
	r.sessions.Delete(key)

	var observer Observer
	if r.cfg.Observers != nil {
		observer = r.cfg.Observers(userID, sessionID)
	}
	ctrl := NewController(r.responder, Options{
		UserID:            userID,
		SessionID:         sessionID,
		ReplyTimeout:      r.cfg.ReplyTimeout,
		ComposingInterval: r.cfg.ComposingInterval,
		Observer:          observer,
		Recorder:          r.cfg.Recorder,
		Logger:            r.log,
	})
	r.sessions.SetDefault(key, ctrl)
	ctrl.Greet(profile)

	r.log.Info("Mentor session started", "user_id", userID, "session_id", sessionID)
	return ctrl
}

// Get returns the live session and refreshes its expiry. An expired session
// is closed and reported missing.
func (r *Registry) Get(userID, sessionID string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := registryKey(userID, sessionID)
	v, ok := r.sessions.Get(key)
	if !ok {
		r.sessions.Delete(key)
		return nil, false
	}
	ctrl := v.(*Controller)
	if ctrl.Closed() {
		r.sessions.Delete(key)
		return nil, false
	}
	r.sessions.SetDefault(key, ctrl)
	return ctrl, true
}

// End discards the session (sign-out or navigation away). It reports whether
// a session existed.
func (r *Registry) End(userID, sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := registryKey(userID, sessionID)
	if _, ok := r.sessions.Get(key); !ok {
		return false
	}
	r.sessions.Delete(key)
	return true
}

// EndUser discards every session belonging to userID.
func (r *Registry) EndUser(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	ended := 0
	for key, item := range r.sessions.Items() {
		if ctrl, ok := item.Object.(*Controller); ok && ctrl.opts.UserID == userID {
			r.sessions.Delete(key)
			ended++
		}
	}
	return ended
}

// Len returns the number of live sessions, including expired ones not yet swept.
func (r *Registry) Len() int {
	return r.sessions.ItemCount()
}

// Sweep closes sessions whose TTL has passed.
func (r *Registry) Sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions.DeleteExpired()
}

// StartSweeper runs Sweep every interval until ctx is done.
func (r *Registry) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		r.log.Info("Session sweeper started", "interval", interval, "ttl", r.cfg.TTL)

		for {
			select {
			case <-ticker.C:
				r.Sweep()
			case <-ctx.Done():
				r.log.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

// Close ends every session.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.sessions.Items() {
		r.sessions.Delete(key)
	}
}
