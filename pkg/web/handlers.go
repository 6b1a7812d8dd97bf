package web

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/teslashibe/go-focusguard/pkg/affect"
	"github.com/teslashibe/go-focusguard/pkg/alarm"
	"github.com/teslashibe/go-focusguard/pkg/camera"
	"github.com/teslashibe/go-focusguard/pkg/journal"
	"github.com/teslashibe/go-focusguard/pkg/presence"
	"github.com/teslashibe/go-focusguard/pkg/session"
)

// handleState returns the current session state
func (s *Server) handleState(c *fiber.Ctx) error {
	return c.JSON(s.state(s.session.Snapshot()))
}

func (s *Server) handleStart(c *fiber.Ctx) error {
	id, err := s.session.Start()
	if err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"session_id": id})
}

func (s *Server) handleStop(c *fiber.Ctx) error {
	id := s.session.ID()
	if err := s.session.Stop(); err != nil {
		if session.IsInactive(err) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}
		// The session stopped; only the alarm release failed.
		return c.JSON(fiber.Map{"session_id": id, "alarm_error": err.Error()})
	}
	return c.JSON(fiber.Map{"session_id": id})
}

func (s *Server) handleAck(c *fiber.Ctx) error {
	if err := s.session.Acknowledge(); err != nil {
		if session.IsInactive(err) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(s.state(s.session.Snapshot()))
}

// ReadingRequest is one analyzer result pushed over HTTP.
type ReadingRequest struct {
	Status string         `json:"status"`
	Scores affect.Reading `json:"scores"`
	At     int64          `json:"at,omitempty"` // unix ms
}

// handleReading ticks the session with a pushed analyzer result
func (s *Server) handleReading(c *fiber.Ctx) error {
	var req ReadingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid reading: " + err.Error()})
	}
	if req.Status == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "status is required"})
	}

	at := time.Now()
	if req.At > 0 {
		at = time.UnixMilli(req.At)
	}
	obs := session.Observation{Status: presence.Status(req.Status), Scores: req.Scores, At: at}

	snap, err := s.session.Tick(c.UserContext(), obs)
	if err != nil {
		if session.IsInactive(err) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}
		// Alarm failures still advanced the session; the snapshot says so.
		if !errors.Is(err, alarm.ErrEmitterFailed) {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
	}
	return c.JSON(s.state(snap))
}

// handleEvents returns recent transitions
func (s *Server) handleEvents(c *fiber.Ctx) error {
	return c.JSON(s.RecentEvents())
}

// handleMode returns the UI record for a mode
func (s *Server) handleMode(c *fiber.Ctx) error {
	mode := affect.Mode(c.Params("mode"))
	rec, ok := s.hints.Lookup(mode)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown mode: " + string(mode)})
	}
	return c.JSON(fiber.Map{"mode": mode, "config": rec})
}

func (s *Server) handleListSessions(c *fiber.Ctx) error {
	if s.journal == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "journal not enabled"})
	}
	sessions, err := s.journal.ListSessions(c.UserContext(), c.QueryInt("limit", 50))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if sessions == nil {
		sessions = []journal.SessionRecord{}
	}
	return c.JSON(sessions)
}

func (s *Server) handleSessionEvents(c *fiber.Ctx) error {
	if s.journal == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "journal not enabled"})
	}
	id := c.Params("id")
	rec, err := s.journal.Session(c.UserContext(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if rec == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown session: " + id})
	}
	events, err := s.journal.Events(c.UserContext(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if events == nil {
		events = []journal.EventRecord{}
	}
	return c.JSON(fiber.Map{"session": rec, "events": events})
}

func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	if s.camera == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no local camera"})
	}
	return c.JSON(s.camera.Config())
}

// handleSetCamera applies a partial camera update
func (s *Server) handleSetCamera(c *fiber.Ctx) error {
	if s.camera == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no local camera"})
	}
	u, err := camera.ParseUpdate(c.Body())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	cfg, err := s.camera.Apply(u)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(cfg)
}

func (s *Server) handleCameraPresets(c *fiber.Ctx) error {
	return c.JSON(camera.Presets())
}
