package stream

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/crackd/internal/api"
	"github.com/ashureev/crackd/internal/identity"
	"github.com/ashureev/crackd/internal/session"
	"github.com/ashureev/crackd/internal/store"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const (
	writeTimeout    = 10 * time.Second
	defaultReadSize = 16 * 1024
)

// Limiter throttles message submissions per user.
type Limiter interface {
	Allow(key string) bool
}

// Config configures a Handler.
type Config struct {
	Repo           store.Repository
	Registry       *session.Registry
	Hub            *Hub
	Limiter        Limiter
	AllowedOrigins []string
	IsDev          bool
	MaxMessageSize int64
}

// Handler serves GET /ws/session: it resumes or starts the tab's mentor
// session and streams its snapshots.
type Handler struct {
	cfg Config
}

// NewHandler creates a websocket session handler.
func NewHandler(cfg Config) *Handler {
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultReadSize
	}
	cfg.AllowedOrigins = originHosts(cfg.AllowedOrigins)
	return &Handler{cfg: cfg}
}

// originHosts converts origins such as "https://crackd.dev" to the host
// patterns websocket.Accept matches against.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			hosts = append(hosts, u.Host)
			continue
		}
		hosts = append(hosts, o)
	}
	return hosts
}

// clientFrame is one client-to-server message.
type clientFrame struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	// Preconditions are checked before upgrading so plain HTTP errors reach
	// the client.
	profile, err := h.cfg.Repo.GetProfile(r.Context(), userID)
	if err != nil {
		slog.Error("[STREAM] failed to load profile", "error", err, "user_id", userID)
		api.Error(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	if profile == nil {
		api.Error(w, http.StatusPreconditionFailed, "profile_required")
		return
	}

	opts := &websocket.AcceptOptions{OriginPatterns: h.cfg.AllowedOrigins}
	if h.cfg.IsDev {
		opts.InsecureSkipVerify = true
	}
	ws, err := websocket.Accept(w, r, opts)
	if err != nil {
		slog.Warn("[STREAM] failed to accept websocket", "error", err, "user_id", userID)
		return
	}
	ws.SetReadLimit(h.cfg.MaxMessageSize)
	defer func() { _ = ws.CloseNow() }()

	slog.Info("[STREAM] connected", "user_id", userID, "session_id", sessionID)

	sub := h.cfg.Hub.Subscribe(userID, sessionID)
	defer h.cfg.Hub.Unsubscribe(sub)

	sub.Offer(h.cfg.Registry.Start(userID, sessionID, *profile).Snapshot())

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)

	// Input loop: client frames -> controller. On sign-out the write loop
	// closes the connection after sending the ended frame.
	go func() {
		defer wg.Done()
		if h.readLoop(ctx, ws, sub) {
			h.cfg.Registry.End(userID, sessionID)
			h.cfg.Hub.End(userID, sessionID)
			return
		}
		cancel()
	}()

	// Output loop: hub -> client.
	go func() {
		defer wg.Done()
		defer cancel()
		h.writeLoop(ctx, ws, sub)
	}()

	wg.Wait()
	slog.Info("[STREAM] disconnected", "user_id", userID, "session_id", sessionID)
}

// readLoop handles client frames. It returns true when the client signed out.
// Every frame looks the session up again, which keeps an active tab from
// expiring.
func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, sub *Subscriber) bool {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || ctx.Err() != nil {
				slog.Debug("[STREAM] connection closed", "user_id", sub.userID)
			} else {
				slog.Warn("[STREAM] read error", "error", err, "user_id", sub.userID)
			}
			return false
		}

		var msg clientFrame
		if err := json.Unmarshal(data, &msg); err != nil {
			sub.Send(Frame{Type: FrameError, Error: "invalid_frame"})
			continue
		}
		if msg.Type == "signout" {
			return true
		}

		ctrl, ok := h.cfg.Registry.Get(sub.userID, sub.sessionID)
		if !ok {
			h.sessionGone(sub)
			continue
		}

		switch msg.Type {
		case "submit":
			if strings.TrimSpace(msg.Content) != "" && h.cfg.Limiter != nil && !h.cfg.Limiter.Allow(sub.userID) {
				sub.Send(Frame{Type: FrameError, Error: "rate_limited"})
				continue
			}
			// Turns outlive the connection so a reply still lands after a
			// reconnect.
			if _, err := ctrl.Submit(context.Background(), msg.Content); err != nil {
				if errors.Is(err, session.ErrSessionClosed) {
					h.sessionGone(sub)
					continue
				}
				_, code := api.SubmitErrorCode(err)
				sub.Send(Frame{Type: FrameError, Error: code})
			}
		case "cancel":
			ctrl.Cancel()
		case "ping":
			sub.Send(Frame{Type: FramePong})
		default:
			sub.Send(Frame{Type: FrameError, Error: "unknown_frame"})
		}
	}
}

// sessionGone reports a session that expired or was ended elsewhere and
// closes the stream.
func (h *Handler) sessionGone(sub *Subscriber) {
	_, code := api.SubmitErrorCode(session.ErrSessionClosed)
	sub.Send(Frame{Type: FrameError, Error: code})
	h.cfg.Hub.End(sub.userID, sub.sessionID)
}

func (h *Handler) writeLoop(ctx context.Context, ws *websocket.Conn, sub *Subscriber) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Ended():
			h.finish(ws, sub)
			return
		case <-sub.Notify():
			if err := writeFrames(ws, sub.Drain()); err != nil {
				slog.Debug("[STREAM] write error", "error", err, "user_id", sub.userID)
				return
			}
		}
	}
}

// finish flushes queued frames and closes the connection. A replaced
// subscriber already holds its session_replaced error and gets no ended frame.
func (h *Handler) finish(ws *websocket.Conn, sub *Subscriber) {
	frames := sub.Drain()
	reason := "session replaced"
	if h.cfg.Hub.Active(sub.userID, sub.sessionID) == sub {
		frames = append(frames, Frame{Type: FrameEnded})
		reason = "session ended"
	}
	if err := writeFrames(ws, frames); err != nil {
		slog.Debug("[STREAM] final write failed", "error", err, "user_id", sub.userID)
	}
	if err := ws.Close(websocket.StatusNormalClosure, reason); err != nil {
		slog.Debug("[STREAM] close failed", "error", err, "user_id", sub.userID)
	}
}

func writeFrames(ws *websocket.Conn, frames []Frame) error {
	for _, f := range frames {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := wsjson.Write(ctx, ws, f)
		cancel()
		if err != nil {
			return err
		}
	}
	return nil
}
