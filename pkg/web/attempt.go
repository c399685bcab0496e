package web

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/presencelabs/go-presence/internal/log"
	"github.com/presencelabs/go-presence/pkg/gesture"
	"github.com/presencelabs/go-presence/pkg/hub"
	"github.com/presencelabs/go-presence/pkg/notify"
	"github.com/presencelabs/go-presence/pkg/protocol"
	"github.com/presencelabs/go-presence/pkg/session"
)

// wsWriter serializes writes to one websocket connection. The session
// callbacks and the ping handler both write, from different goroutines.
type wsWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsWriter) send(msg *protocol.Message, err error) {
	if err != nil {
		log.Error("build attempt message failed", "err", err)
		return
	}
	data, err := msg.Bytes()
	if err != nil {
		log.Error("encode attempt message failed", "err", err)
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Debug("attempt write failed", "err", err)
	}
}

// handleAttemptWS runs one gesture attempt over a websocket connection.
// The client streams frames and facial metrics; the server drives the
// challenge and reports the outcome on this same connection.
func (s *Server) handleAttemptWS(c *websocket.Conn) {
	attemptID := uuid.NewString()
	feed := NewRemoteFeed()
	defer feed.Close()

	writer := &wsWriter{conn: c}

	// kind is set by OnChallenge before any other callback can need it,
	// but the timeout watchdog runs on its own goroutine.
	var kindMu sync.Mutex
	var kind gesture.Kind

	cb := session.Callbacks{
		OnChallenge: func(k gesture.Kind, sequence []gesture.Direction) {
			kindMu.Lock()
			kind = k
			kindMu.Unlock()

			s.trackAttempt(attemptID, k)

			var seq []gesture.Direction
			if k == gesture.KindHeadTurn {
				seq = sequence
			}
			msg, err := protocol.NewChallengeMessage(attemptID, k, seq, s.cfg.AttemptTimeout.Milliseconds())
			writer.send(msg, err)
			s.broadcastEvent(msg, err)
		},

		OnProgress: func(k gesture.Kind, step int, next gesture.Direction) {
			msg, err := protocol.NewProgressMessage(attemptID, step, len(s.cfg.Sequence), next)
			writer.send(msg, err)
			s.broadcastEvent(msg, err)
		},

		OnConfirmed: func(frame gesture.FrameRef) {
			kindMu.Lock()
			k := kind
			kindMu.Unlock()

			s.settleAttempt(attemptID, StateConfirmed, "", frame.ID)

			msg, err := protocol.NewConfirmedMessage(attemptID, k, frame)
			writer.send(msg, err)
			s.broadcastEvent(msg, err)
			s.notifyOutcome(notify.Event{
				AttemptID: attemptID,
				Kind:      k,
				Outcome:   "confirmed",
				FrameID:   frame.ID,
				At:        frame.At,
			})
		},

		OnFailed: func(reason session.Reason) {
			kindMu.Lock()
			k := kind
			kindMu.Unlock()

			s.settleAttempt(attemptID, StateFailed, string(reason), "")

			msg, err := protocol.NewFailedMessage(attemptID, string(reason))
			writer.send(msg, err)
			s.broadcastEvent(msg, err)
			s.notifyOutcome(notify.Event{
				AttemptID: attemptID,
				Kind:      k,
				Outcome:   "failed",
				Reason:    string(reason),
				At:        time.Now(),
			})
		},
	}

	sess, err := session.New(s.cfg, feed, feed, session.WithCallbacks(cb))
	if err != nil {
		log.Error("attempt session init failed", "err", err)
		msg, merr := protocol.NewFailedMessage(attemptID, string(session.ReasonInit))
		writer.send(msg, merr)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := sess.Run(ctx); err != nil {
			log.Info("remote attempt ended", "attempt", attemptID, "err", err)
		}
	}()

	// Close the connection once the attempt concludes so the read loop
	// below unblocks even when the client keeps streaming.
	go func() {
		<-sess.Done()
		c.Close()
	}()

	s.readAttemptMessages(c, feed, sess, writer)
	sess.Cancel()
}

// readAttemptMessages pumps client messages into the feed until the
// connection drops or the attempt concludes.
func (s *Server) readAttemptMessages(c *websocket.Conn, feed *RemoteFeed, sess *session.Session, writer *wsWriter) {
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			return
		}

		msg, err := protocol.ParseMessage(data)
		if err != nil {
			log.Debug("bad attempt message", "err", err)
			continue
		}

		switch msg.Type {
		case protocol.TypeObservation:
			var d protocol.ObservationData
			if err := msg.ParseData(&d); err != nil {
				log.Debug("bad observation payload", "err", err)
				continue
			}
			feed.PushObservation(d)

		case protocol.TypeFrame:
			var d protocol.FrameData
			if err := msg.ParseData(&d); err != nil {
				log.Debug("bad frame payload", "err", err)
				continue
			}
			jpeg, err := protocol.DecodeFrame(d)
			if err != nil {
				log.Debug("bad frame encoding", "err", err)
				continue
			}
			feed.PushFrame(d.FrameID, jpeg)
			s.cameraHub.BroadcastBinary(jpeg)

		case protocol.TypeCancel:
			sess.Cancel()
			return

		case protocol.TypePing:
			var ping protocol.PingData
			if err := msg.ParseData(&ping); err != nil {
				continue
			}
			pong, err := protocol.NewMessage(protocol.TypePong, protocol.PongData{
				ID:     ping.ID,
				PingTS: ping.Timestamp,
				PongTS: msg.Timestamp,
			})
			writer.send(pong, err)
		}
	}
}

// broadcastEvent mirrors an attempt message onto the events hub.
func (s *Server) broadcastEvent(msg *protocol.Message, err error) {
	if err != nil || msg == nil {
		return
	}
	data, err := msg.Bytes()
	if err != nil {
		return
	}
	s.eventsHub.Broadcast(hub.NewJSONMessage(data))
}

// notifyOutcome delivers the webhook off the callback path.
func (s *Server) notifyOutcome(ev notify.Event) {
	if s.webhook == nil || !s.webhook.Enabled() {
		return
	}
	go func() {
		if err := s.webhook.Send(ev); err != nil {
			log.Warn("webhook delivery failed", "attempt", ev.AttemptID, "err", err)
		}
	}()
}
