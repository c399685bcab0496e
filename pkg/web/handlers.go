package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/presencelabs/go-presence/pkg/gesture"
	"github.com/presencelabs/go-presence/pkg/hub"
)

// ChallengeInfo describes one challenge kind for the API.
type ChallengeInfo struct {
	Kind        gesture.Kind `json:"kind"`
	Instruction string       `json:"instruction"`
}

// handleHealth is a liveness probe.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":     "ok",
		"events":     s.eventsHub.ClientCount(),
		"camera":     s.cameraHub.ClientCount(),
		"timeout_ms": s.cfg.AttemptTimeout.Milliseconds(),
	})
}

// handleChallenges lists the challenge kinds this service may select.
func (s *Server) handleChallenges(c *fiber.Ctx) error {
	kinds := s.cfg.Kinds
	if len(kinds) == 0 {
		kinds = gesture.AllKinds()
	}

	infos := make([]ChallengeInfo, 0, len(kinds))
	for _, k := range kinds {
		infos = append(infos, ChallengeInfo{Kind: k, Instruction: k.Instruction()})
	}
	return c.JSON(infos)
}

// handleListAttempts returns the recent attempt history, newest last.
func (s *Server) handleListAttempts(c *fiber.Ctx) error {
	s.recordsMu.RLock()
	defer s.recordsMu.RUnlock()

	out := make([]AttemptRecord, 0, len(s.order))
	for _, id := range s.order {
		if rec, ok := s.records[id]; ok {
			out = append(out, *rec)
		}
	}
	return c.JSON(out)
}

// handleGetAttempt returns one attempt's status.
func (s *Server) handleGetAttempt(c *fiber.Ctx) error {
	rec, ok := s.attemptRecord(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "unknown attempt",
		})
	}
	return c.JSON(rec)
}

// handleEventsWS streams attempt lifecycle events to dashboard clients.
func (s *Server) handleEventsWS(c *websocket.Conn) {
	client := hub.NewClient(s.eventsHub, c)
	client.Run() // Blocks until disconnect
}

// handleCameraWS streams binary camera frames to dashboard clients.
func (s *Server) handleCameraWS(c *websocket.Conn) {
	client := hub.NewClient(s.cameraHub, c)
	client.Run() // Blocks until disconnect
}
