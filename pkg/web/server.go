// Package web serves the focus dashboard: a JSON API over the session and a
// WebSocket feed of snapshots and transitions.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/teslashibe/go-focusguard/pkg/camera"
	"github.com/teslashibe/go-focusguard/pkg/hints"
	"github.com/teslashibe/go-focusguard/pkg/hub"
	"github.com/teslashibe/go-focusguard/pkg/ingest"
	"github.com/teslashibe/go-focusguard/pkg/journal"
	"github.com/teslashibe/go-focusguard/pkg/protocol"
	"github.com/teslashibe/go-focusguard/pkg/session"
)

// DefaultEventBuffer is how many recent events the server keeps.
const DefaultEventBuffer = 500

// State is what the dashboard renders: the session snapshot plus the UI
// record for the current mode.
type State struct {
	session.Snapshot
	UI *hints.Record `json:"ui,omitempty"`
}

// Server is the web dashboard server
type Server struct {
	app     *fiber.App
	port    string
	logger  *slog.Logger
	session *session.Session

	hints    hints.Table
	journal  *journal.Journal
	camera   *camera.Manager
	ingest   *ingest.Hub
	gatherer prometheus.Gatherer
	static   string

	// Recent events, newest last
	events   []session.Event
	eventCap int
	eventsMu sync.RWMutex

	stateHub *hub.Hub
}

// Option configures optional server components.
type Option func(*Server)

// WithHints replaces the built-in mode table.
func WithHints(t hints.Table) Option {
	return func(s *Server) { s.hints = t }
}

// WithJournal enables the session history routes.
func WithJournal(j *journal.Journal) Option {
	return func(s *Server) { s.journal = j }
}

// WithCamera enables the camera settings routes.
func WithCamera(m *camera.Manager) Option {
	return func(s *Server) { s.camera = m }
}

// WithIngest mounts the analyzer push endpoint.
func WithIngest(h *ingest.Hub) Option {
	return func(s *Server) { s.ingest = h }
}

// WithMetrics serves g at /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithStatic serves a dashboard frontend from dir.
func WithStatic(dir string) Option {
	return func(s *Server) { s.static = dir }
}

// WithEventBuffer sets how many recent events are kept.
func WithEventBuffer(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.eventCap = n
		}
	}
}

// NewServer creates a dashboard for sess and subscribes to its events.
func NewServer(port string, sess *session.Session, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		port:     port,
		logger:   logger,
		session:  sess,
		hints:    hints.Default(),
		eventCap: DefaultEventBuffer,
		stateHub: hub.New("state", logger),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.events = make([]session.Event, 0, s.eventCap)
	s.stateHub.Welcome = s.welcome

	app := fiber.New(fiber.Config{
		AppName:               "FocusGuard",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/state", s.handleState)
	api.Post("/session/start", s.handleStart)
	api.Post("/session/stop", s.handleStop)
	api.Post("/session/ack", s.handleAck)
	api.Post("/readings", s.handleReading)
	api.Get("/events", s.handleEvents)
	api.Get("/modes/:mode", s.handleMode)
	api.Get("/sessions", s.handleListSessions)
	api.Get("/sessions/:id/events", s.handleSessionEvents)
	api.Get("/camera", s.handleGetCamera)
	api.Post("/camera", s.handleSetCamera)
	api.Get("/camera/presets", s.handleCameraPresets)

	if s.gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	app.Get("/ws/state", s.stateHub.Handler())
	if s.ingest != nil {
		s.ingest.RegisterRoutes(app)
		s.ingest.RegisterAPIRoutes(api)
	}

	if s.static != "" {
		app.Static("/", s.static)
	}

	s.app = app
	sess.Subscribe(s.Observe)
	return s
}

// Start listens on the configured port and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+s.port)
	if err != nil {
		return err
	}
	s.logger.Info("dashboard listening", "url", "http://localhost:"+s.port)
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go s.stateHub.Run(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- s.app.Listener(ln) }()

	select {
	case <-ctx.Done():
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// Observe records a session event and broadcasts it to dashboard clients.
func (s *Server) Observe(ev session.Event) {
	if ev.Kind == session.EventTick {
		if ev.Snapshot == nil {
			return
		}
		msg, err := protocol.NewSnapshotMessage(s.state(*ev.Snapshot))
		if err == nil {
			err = s.stateHub.BroadcastProtocol(msg)
		}
		if err != nil {
			s.logger.Warn("snapshot broadcast failed", "error", err)
		}
		return
	}

	s.eventsMu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.eventCap {
		s.events = s.events[1:]
	}
	s.eventsMu.Unlock()

	msg, err := protocol.NewEventMessage(ev)
	if err == nil {
		err = s.stateHub.BroadcastProtocol(msg)
	}
	if err != nil {
		s.logger.Warn("event broadcast failed", "kind", ev.Kind, "error", err)
	}
}

// state pairs a snapshot with its mode's UI record.
func (s *Server) state(snap session.Snapshot) State {
	st := State{Snapshot: snap}
	if rec, ok := s.hints.Lookup(snap.Affect.Mode); ok {
		st.UI = &rec
	}
	return st
}

func (s *Server) welcome() (hub.Message, bool) {
	msg, err := protocol.NewSnapshotMessage(s.state(s.session.Snapshot()))
	if err != nil {
		return hub.Message{}, false
	}
	m, err := hub.FromProtocol(msg)
	if err != nil {
		return hub.Message{}, false
	}
	return m, true
}

// RecentEvents returns a copy of the buffered events.
func (s *Server) RecentEvents() []session.Event {
	s.eventsMu.RLock()
	defer s.eventsMu.RUnlock()
	out := make([]session.Event, len(s.events))
	copy(out, s.events)
	return out
}

// StateHub returns the hub behind /ws/state.
func (s *Server) StateHub() *hub.Hub {
	return s.stateHub
}

// statusFor maps session errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotActive), errors.Is(err, session.ErrAlreadyActive):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}
