// Package web exposes the presence service over HTTP and WebSocket:
// a REST surface for attempt status, a websocket endpoint where remote
// clients run gesture attempts, and broadcast feeds for dashboards.
package web

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/presencelabs/go-presence/internal/log"
	"github.com/presencelabs/go-presence/pkg/gesture"
	"github.com/presencelabs/go-presence/pkg/hub"
	"github.com/presencelabs/go-presence/pkg/notify"
)

// maxRecords bounds the attempt history kept for the status API.
const maxRecords = 256

// AttemptState is the lifecycle of an attempt as seen by the status API.
type AttemptState string

const (
	StateRunning   AttemptState = "running"
	StateConfirmed AttemptState = "confirmed"
	StateFailed    AttemptState = "failed"
)

// AttemptRecord is one attempt's status snapshot.
type AttemptRecord struct {
	ID      string       `json:"id"`
	Kind    gesture.Kind `json:"kind"`
	State   AttemptState `json:"state"`
	Reason  string       `json:"reason,omitempty"`
	FrameID string       `json:"frame_id,omitempty"`
	Started time.Time    `json:"started"`
	Ended   *time.Time   `json:"ended,omitempty"`
}

// Server is the presence web service.
type Server struct {
	app  *fiber.App
	port string
	cfg  gesture.Config

	webhook *notify.Webhook

	// records is the attempt history, newest last.
	records   map[string]*AttemptRecord
	order     []string
	recordsMu sync.RWMutex

	// Hubs for websocket broadcast
	eventsHub *hub.Hub
	cameraHub *hub.Hub
}

// NewServer creates the web service. The webhook may be a no-op
// notifier when no URL is configured.
func NewServer(port string, cfg gesture.Config, webhook *notify.Webhook) *Server {
	s := &Server{
		port:      port,
		cfg:       cfg,
		webhook:   webhook,
		records:   make(map[string]*AttemptRecord),
		eventsHub: hub.New("events"),
		cameraHub: hub.New("camera"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Presence Service",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	// Static files
	app.Static("/", "./web")

	// API routes
	api := app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/challenges", s.handleChallenges)
	api.Get("/attempts", s.handleListAttempts)
	api.Get("/attempts/:id", s.handleGetAttempt)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket routes
	app.Get("/ws/attempt", websocket.New(s.handleAttemptWS))
	app.Get("/ws/events", websocket.New(s.handleEventsWS))
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))

	s.app = app
	return s
}

// Start starts the web server and blocks.
func (s *Server) Start() error {
	log.Info("web service listening", "port", s.port)

	go s.eventsHub.Run()
	go s.cameraHub.Run()

	return s.app.Listen(":" + s.port)
}

// StartAsync starts the web server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			log.Error("web server error", "err", err)
		}
	}()
}

// SendCameraFrame broadcasts a camera frame to dashboard clients.
// Used when the service runs with a local camera.
func (s *Server) SendCameraFrame(jpegData []byte) {
	s.cameraHub.BroadcastBinary(jpegData)
}

// EventsHub returns the events hub for external publishers.
func (s *Server) EventsHub() *hub.Hub {
	return s.eventsHub
}

// Shutdown gracefully stops the web server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// trackAttempt records a new running attempt.
func (s *Server) trackAttempt(id string, kind gesture.Kind) {
	s.recordsMu.Lock()
	defer s.recordsMu.Unlock()

	s.records[id] = &AttemptRecord{
		ID:      id,
		Kind:    kind,
		State:   StateRunning,
		Started: time.Now(),
	}
	s.order = append(s.order, id)
	for len(s.order) > maxRecords {
		delete(s.records, s.order[0])
		s.order = s.order[1:]
	}
}

// settleAttempt moves an attempt to a terminal state.
func (s *Server) settleAttempt(id string, state AttemptState, reason, frameID string) {
	s.recordsMu.Lock()
	defer s.recordsMu.Unlock()

	rec, ok := s.records[id]
	if !ok || rec.State != StateRunning {
		return
	}
	now := time.Now()
	rec.State = state
	rec.Reason = reason
	rec.FrameID = frameID
	rec.Ended = &now
}

// attemptRecord returns a copy of the record, if known.
func (s *Server) attemptRecord(id string) (AttemptRecord, bool) {
	s.recordsMu.RLock()
	defer s.recordsMu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return AttemptRecord{}, false
	}
	return *rec, true
}
