package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/teslashibe/go-focusguard/pkg/protocol"
)

const (
	pushWriteWait = 5 * time.Second
	pushPongWait  = 60 * time.Second
)

// Pusher streams analyzer results from a capture agent to a focusguard
// server over WebSocket. The server ticks its session with every result and
// answers with an ack.
type Pusher struct {
	url    string
	logger *slog.Logger
	dialer websocket.Dialer

	mu     sync.Mutex
	ws     *websocket.Conn
	done   chan struct{}
	closed bool

	frameID atomic.Uint64
	sent    atomic.Uint64
	acked   atomic.Uint64

	// Callbacks
	OnAck   func(ack *protocol.AckData)
	OnError func(e *protocol.ErrorData)
}

// AnalyzerURL builds the ingest WebSocket URL for a server base URL such as
// "http://host:8080". An empty session lets the server pick the active one.
func AnalyzerURL(server, session string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("analyzer: parse server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("analyzer: unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/analyzer"
	if session != "" {
		u.Path += "/" + url.PathEscape(session)
	}
	return u.String(), nil
}

// NewPusher creates a pusher for the given ws:// or wss:// URL.
func NewPusher(wsURL string, logger *slog.Logger) *Pusher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pusher{
		url:    wsURL,
		logger: logger,
		dialer: websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

// Connect dials the server and starts reading acks.
func (p *Pusher) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return fmt.Errorf("analyzer: pusher closed")
	}
	if p.ws != nil {
		return nil
	}

	ws, _, err := p.dialer.DialContext(ctx, p.url, nil)
	if err != nil {
		return fmt.Errorf("analyzer: connect %s: %w", p.url, err)
	}

	ws.SetReadDeadline(time.Now().Add(pushPongWait))
	ws.SetPingHandler(func(appData string) error {
		ws.SetReadDeadline(time.Now().Add(pushPongWait))
		p.mu.Lock()
		defer p.mu.Unlock()
		return ws.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(pushWriteWait))
	})

	p.ws = ws
	p.done = make(chan struct{})
	go p.readLoop(ws, p.done)

	p.logger.Info("connected to focusguard server", "url", p.url)
	return nil
}

func (p *Pusher) readLoop(ws *websocket.Conn, done chan struct{}) {
	defer close(done)

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			p.mu.Lock()
			closed := p.closed
			if p.ws == ws {
				p.ws = nil
			}
			p.mu.Unlock()
			if !closed {
				p.logger.Warn("server connection lost", "error", err)
			}
			return
		}
		ws.SetReadDeadline(time.Now().Add(pushPongWait))

		msg, err := protocol.ParseMessage(data)
		if err != nil {
			p.logger.Debug("ignoring malformed server message", "error", err)
			continue
		}

		switch msg.Type {
		case protocol.TypeAck:
			p.acked.Add(1)
			if ack, err := msg.GetAckData(); err == nil && p.OnAck != nil {
				p.OnAck(ack)
			}
		case protocol.TypeError:
			if e, err := msg.GetErrorData(); err == nil {
				p.logger.Warn("server rejected frame", "frame", e.FrameID, "error", e.Message)
				if p.OnError != nil {
					p.OnError(e)
				}
			}
		case protocol.TypePong:
			if pong, err := msg.GetPongData(); err == nil {
				p.logger.Debug("pong", "latency_ms", time.Now().UnixMilli()-pong.PingTS)
			}
		}
	}
}

// Connected reports whether a connection is open.
func (p *Pusher) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ws != nil
}

// Push sends one analyzer result and returns the frame ID assigned to it.
func (p *Pusher) Push(res Result, capturedAt time.Time) (uint64, error) {
	id := p.frameID.Add(1)

	data := protocol.AnalysisData{
		FrameID:    id,
		CapturedAt: capturedAt.UnixMilli(),
		Status:     string(res.Status),
		Scores:     res.Scores,
	}
	if res.Analysis != nil {
		engagement := res.Analysis.EngagementScore
		data.Valence = res.Analysis.Valence
		data.EngagementScore = &engagement
	}

	msg, err := protocol.NewAnalysisMessage(data)
	if err != nil {
		return id, err
	}
	return id, p.send(msg)
}

// PushFrame sends a raw frame for the server's own analyzer.
func (p *Pusher) PushFrame(jpeg []byte, capturedAt time.Time) (uint64, error) {
	if len(jpeg) == 0 {
		return 0, ErrEmptyFrame
	}
	id := p.frameID.Add(1)
	msg, err := protocol.NewFrameMessage(jpeg, id, capturedAt)
	if err != nil {
		return id, err
	}
	return id, p.send(msg)
}

// Ping sends an application-level ping.
func (p *Pusher) Ping(id string) error {
	msg, err := protocol.NewPingMessage(id)
	if err != nil {
		return err
	}
	return p.send(msg)
}

func (p *Pusher) send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ws == nil {
		return ErrNotConnected
	}
	p.ws.SetWriteDeadline(time.Now().Add(pushWriteWait))
	if err := p.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("analyzer: send %s: %w", msg.Type, err)
	}
	p.sent.Add(1)
	return nil
}

// PusherStats contains pusher statistics.
type PusherStats struct {
	Sent      uint64 `json:"sent"`
	Acked     uint64 `json:"acked"`
	Connected bool   `json:"connected"`
}

// Stats returns pusher statistics.
func (p *Pusher) Stats() PusherStats {
	return PusherStats{
		Sent:      p.sent.Load(),
		Acked:     p.acked.Load(),
		Connected: p.Connected(),
	}
}

// Close sends a close frame and waits for the reader to exit.
func (p *Pusher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	ws, done := p.ws, p.done
	p.ws = nil
	if ws != nil {
		ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(pushWriteWait))
	}
	p.mu.Unlock()

	if ws == nil {
		return nil
	}
	err := ws.Close()
	<-done
	return err
}
