// Package ingest accepts analyzer results from remote capture agents over
// WebSocket and feeds them into the session.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/teslashibe/go-focusguard/pkg/analyzer"
	"github.com/teslashibe/go-focusguard/pkg/presence"
	"github.com/teslashibe/go-focusguard/pkg/protocol"
	"github.com/teslashibe/go-focusguard/pkg/session"
)

// DefaultAnalyzeTimeout bounds server-side analysis of one pushed frame.
const DefaultAnalyzeTimeout = 10 * time.Second

// ErrSessionMismatch is returned when an agent pushes to a session that is
// no longer the active one.
var ErrSessionMismatch = session.ErrSessionMismatch

// ErrNoAnalyzer is returned for raw frames when the server has no analyzer.
var ErrNoAnalyzer = errors.New("ingest: no analyzer configured")

// Agent is a connected capture agent.
type Agent struct {
	ID        string
	Session   string
	Conn      *websocket.Conn
	Connected time.Time
	LastSeen  time.Time

	mu sync.Mutex
}

// Send writes one message to the agent.
func (a *Agent) Send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Conn.WriteMessage(websocket.TextMessage, data)
}

func (a *Agent) touch() {
	a.mu.Lock()
	a.LastSeen = time.Now()
	a.mu.Unlock()
}

// Hub manages agent connections. Messages from one agent are handled in
// arrival order; ticks from different agents are serialized by the session.
type Hub struct {
	session  *session.Session
	analyzer analyzer.Analyzer
	logger   *slog.Logger
	timeout  time.Duration

	mu     sync.RWMutex
	agents map[string]*Agent

	// Stats
	messagesReceived atomic.Uint64
	messagesSent     atomic.Uint64
	analysesReceived atomic.Uint64
	framesReceived   atomic.Uint64
	rejected         atomic.Uint64
}

// NewHub creates an ingest hub for s. a analyzes raw frames and may be nil,
// in which case agents must push analysis results.
func NewHub(s *session.Session, a analyzer.Analyzer, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		session:  s,
		analyzer: a,
		logger:   logger,
		timeout:  DefaultAnalyzeTimeout,
		agents:   make(map[string]*Agent),
	}
}

// RegisterRoutes registers the agent WebSocket endpoint on a Fiber app.
func (h *Hub) RegisterRoutes(app *fiber.App) {
	app.Use("/ws/analyzer", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/analyzer", websocket.New(h.handleAgent))
	app.Get("/ws/analyzer/:session", websocket.New(h.handleAgent))
}

func (h *Hub) handleAgent(c *websocket.Conn) {
	agent := &Agent{
		ID:        uuid.NewString(),
		Session:   c.Params("session"),
		Conn:      c,
		Connected: time.Now(),
		LastSeen:  time.Now(),
	}

	h.mu.Lock()
	h.agents[agent.ID] = agent
	count := len(h.agents)
	h.mu.Unlock()

	h.logger.Info("agent connected", "agent", agent.ID, "session", agent.Session, "total", count)

	defer func() {
		h.mu.Lock()
		delete(h.agents, agent.ID)
		count := len(h.agents)
		h.mu.Unlock()

		h.logger.Info("agent disconnected", "agent", agent.ID, "total", count)
	}()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("agent read error", "agent", agent.ID, "error", err)
			}
			return
		}

		agent.touch()
		h.messagesReceived.Add(1)

		if reply := h.handleMessage(agent, data); reply != nil {
			h.messagesSent.Add(1)
			if err := agent.Send(reply); err != nil {
				h.logger.Warn("agent write error", "agent", agent.ID, "error", err)
				return
			}
		}
	}
}

// handleMessage processes one agent message and returns the reply, if any.
func (h *Hub) handleMessage(agent *Agent, data []byte) *protocol.Message {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		h.logger.Debug("ignoring malformed agent message", "agent", agent.ID, "error", err)
		return nil
	}

	switch msg.Type {
	case protocol.TypeAnalysis:
		h.analysesReceived.Add(1)
		a, err := msg.GetAnalysisData()
		if err != nil {
			return h.reject(0, err)
		}
		return h.tick(agent, a.FrameID, resultFromAnalysis(a), a.CapturedTime())

	case protocol.TypeFrame:
		h.framesReceived.Add(1)
		f, err := msg.GetFrameData()
		if err != nil {
			return h.reject(0, err)
		}
		res, err := h.analyzeFrame(f)
		if err != nil {
			return h.reject(f.FrameID, err)
		}
		return h.tick(agent, f.FrameID, res, time.UnixMilli(f.CapturedAt))

	case protocol.TypePing:
		var ping protocol.PingData
		msg.ParseData(&ping)
		pingTS := ping.Timestamp
		if pingTS == 0 {
			pingTS = msg.Timestamp
		}
		pong, err := protocol.NewPongMessage(ping.ID, pingTS, time.Now().UnixMilli())
		if err != nil {
			return nil
		}
		return pong
	}
	return nil
}

func (h *Hub) analyzeFrame(f *protocol.FrameData) (analyzer.Result, error) {
	if h.analyzer == nil {
		return analyzer.Result{}, ErrNoAnalyzer
	}
	jpeg, err := f.DecodeFrameData()
	if err != nil {
		return analyzer.Result{}, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	return h.analyzer.Analyze(ctx, jpeg)
}

func (h *Hub) tick(agent *Agent, frameID uint64, res analyzer.Result, at time.Time) *protocol.Message {
	if at.IsZero() {
		at = time.Now()
	}

	obs := session.FromResult(res, at)
	obs.SessionID = agent.Session
	snap, err := h.session.Tick(context.Background(), obs)
	if err != nil {
		if session.IsInactive(err) || errors.Is(err, ErrSessionMismatch) {
			return h.reject(frameID, err)
		}
		// Alarm failures still advanced the session.
		h.logger.Error("alarm failed", "agent", agent.ID, "frame", frameID, "error", err)
	}

	ack, err := protocol.NewAckMessage(protocol.AckData{
		FrameID:   frameID,
		Seq:       snap.Seq,
		Confirmed: string(snap.Confirmed),
		Mode:      string(snap.Affect.Mode),
		Alarm:     string(snap.Alarm),
	})
	if err != nil {
		return nil
	}
	return ack
}

func (h *Hub) reject(frameID uint64, err error) *protocol.Message {
	h.rejected.Add(1)
	msg, mErr := protocol.NewErrorMessage(frameID, err.Error())
	if mErr != nil {
		return nil
	}
	return msg
}

// resultFromAnalysis converts a pushed analysis into an analyzer result.
// Absent scores stay nil so the classifier is not advanced.
func resultFromAnalysis(a *protocol.AnalysisData) analyzer.Result {
	return analyzer.Result{Status: presence.Status(a.Status), Scores: a.Scores}
}

// AgentCount returns the number of connected agents.
func (h *Hub) AgentCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.agents)
}

// AgentInfo describes a connected agent.
type AgentInfo struct {
	ID        string    `json:"id"`
	Session   string    `json:"session,omitempty"`
	Connected time.Time `json:"connected"`
	LastSeen  time.Time `json:"last_seen"`
}

// GetAgentInfos returns info about all connected agents.
func (h *Hub) GetAgentInfos() []AgentInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	infos := make([]AgentInfo, 0, len(h.agents))
	for _, a := range h.agents {
		a.mu.Lock()
		infos = append(infos, AgentInfo{
			ID:        a.ID,
			Session:   a.Session,
			Connected: a.Connected,
			LastSeen:  a.LastSeen,
		})
		a.mu.Unlock()
	}
	return infos
}

// Stats contains ingest statistics.
type Stats struct {
	Agents           int    `json:"agents"`
	MessagesReceived uint64 `json:"messages_received"`
	MessagesSent     uint64 `json:"messages_sent"`
	AnalysesReceived uint64 `json:"analyses_received"`
	FramesReceived   uint64 `json:"frames_received"`
	Rejected         uint64 `json:"rejected"`
}

// GetStats returns ingest statistics.
func (h *Hub) GetStats() Stats {
	return Stats{
		Agents:           h.AgentCount(),
		MessagesReceived: h.messagesReceived.Load(),
		MessagesSent:     h.messagesSent.Load(),
		AnalysesReceived: h.analysesReceived.Load(),
		FramesReceived:   h.framesReceived.Load(),
		Rejected:         h.rejected.Load(),
	}
}

// RegisterAPIRoutes registers the ingest status routes.
func (h *Hub) RegisterAPIRoutes(api fiber.Router) {
	g := api.Group("/ingest")

	g.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(h.GetStats())
	})

	g.Get("/agents", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"agents": h.GetAgentInfos(),
			"count":  h.AgentCount(),
		})
	})
}
