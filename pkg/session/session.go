// Package session runs one gesture attempt end to end: it selects a
// challenge, pulls facial-metrics observations frame by frame, feeds them
// to the gesture state machine, and delivers exactly one terminal outcome
// (confirmed, timed out, or cancelled) no matter how the timers race.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/presencelabs/go-presence/internal/log"
	"github.com/presencelabs/go-presence/pkg/gesture"
)

// Source produces one facial-metrics observation per polled frame.
// NextObservation may block (the producer can be remote). Return ErrNoFace
// when the frame contains no usable face; any error is treated as
// transient and the frame is retried after a backoff.
type Source interface {
	NextObservation(ctx context.Context) (gesture.Observation, error)
}

// Capturer returns a reference to the camera frame backing the next
// observation. The FrameRef paired with the detecting observation is what
// gets delivered on success.
type Capturer interface {
	CaptureFrame() (gesture.FrameRef, error)
}

// Callbacks are the session's outbound events. Nil callbacks are skipped.
// OnConfirmed and OnFailed are mutually exclusive and each fires at most
// once per attempt.
type Callbacks struct {
	// OnChallenge fires once when the challenge has been selected.
	OnChallenge func(kind gesture.Kind, sequence []gesture.Direction)

	// OnProgress fires when a head-turn step is accepted.
	OnProgress func(kind gesture.Kind, step int, next gesture.Direction)

	// OnConfirmed fires with the frame of the detecting observation.
	OnConfirmed func(frame gesture.FrameRef)

	// OnFailed fires when the attempt ends without detection.
	OnFailed func(reason Reason)
}

// Session owns one attempt from challenge selection to a terminal outcome.
// A Session is single-use: create a new one per attempt.
type Session struct {
	cfg      gesture.Config
	selector *gesture.Selector
	source   Source
	capturer Capturer
	cb       Callbacks

	mu      sync.Mutex
	attempt *gesture.Attempt
	timeout *time.Timer
	err     error

	// concluded is the single check-and-set guard every terminal path
	// goes through, so detection and a racing timeout can never both win.
	concluded atomic.Bool

	// busy rejects overlapping frame processing.
	busy atomic.Bool

	running atomic.Bool
	done    chan struct{}
}

// Option customizes a Session.
type Option func(*Session)

// WithCallbacks sets the outbound event callbacks.
func WithCallbacks(cb Callbacks) Option {
	return func(s *Session) { s.cb = cb }
}

// WithSelector replaces the default challenge selector (for deterministic
// challenge choice in tests).
func WithSelector(sel *gesture.Selector) Option {
	return func(s *Session) { s.selector = sel }
}

// New creates a session. Collaborator or configuration problems surface
// here, before any attempt starts.
func New(cfg gesture.Config, source Source, capturer Capturer, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if source == nil {
		return nil, ErrNoSource
	}
	if capturer == nil {
		return nil, ErrNoCapturer
	}

	s := &Session{
		cfg:      cfg,
		source:   source,
		capturer: capturer,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.selector == nil {
		s.selector = gesture.NewSelector(cfg.Kinds, nil)
	}
	return s, nil
}

// Run executes the attempt and blocks until a terminal outcome.
// It returns nil when the gesture was confirmed, ErrTimeout or ErrCancelled
// otherwise. The corresponding callback fires before Run returns.
func (s *Session) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	// Cancel may land before Run. An already-concluded session must not
	// arm the watchdog or announce a challenge.
	if s.concluded.Load() {
		<-s.done
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.err
	}

	kind := s.selector.Pick()
	attempt := gesture.NewAttempt(kind, s.cfg)

	s.mu.Lock()
	s.attempt = attempt
	// The watchdog counts from attempt creation and runs concurrently
	// with the frame loop.
	s.timeout = time.AfterFunc(s.cfg.AttemptTimeout, func() {
		s.conclude(ErrTimeout, func() {
			log.Warn("attempt timed out", "attempt", attempt.ID, "kind", kind)
			if s.cb.OnFailed != nil {
				s.cb.OnFailed(ReasonTimeout)
			}
		})
	})
	s.mu.Unlock()

	log.Info("challenge selected", "attempt", attempt.ID, "kind", kind)
	if s.cb.OnChallenge != nil {
		s.cb.OnChallenge(kind, s.cfg.Sequence)
	}

	s.loop(ctx, attempt)

	<-s.done

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Cancel synchronously concludes the attempt as cancelled. Both timers are
// stopped before Cancel returns, so no pending callback can touch the
// discarded attempt.
func (s *Session) Cancel() {
	s.conclude(ErrCancelled, func() {
		if s.cb.OnFailed != nil {
			s.cb.OnFailed(ReasonCancelled)
		}
	})
}

// Done is closed once the attempt reaches a terminal outcome.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Attempt returns the live attempt state, or nil before Run.
func (s *Session) Attempt() *gesture.Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempt
}

// loop is the sequential per-frame pull loop. It never requests a new
// observation while the previous one is still being processed, and
// transient frame errors only slow it down, never end it.
func (s *Session) loop(ctx context.Context, attempt *gesture.Attempt) {
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			s.Cancel()
			return
		default:
		}

		if !s.busy.CompareAndSwap(false, true) {
			// Defensive: the loop is the only caller, so this can
			// only trip if a frame is somehow still in flight.
			s.wait(ctx, s.cfg.FrameInterval)
			continue
		}

		delay := s.step(ctx, attempt)
		s.busy.Store(false)

		if delay < 0 {
			return
		}
		s.wait(ctx, delay)
	}
}

// step processes one frame. It returns the delay before the next frame,
// or a negative value when the attempt has concluded.
func (s *Session) step(ctx context.Context, attempt *gesture.Attempt) time.Duration {
	frame, err := s.capturer.CaptureFrame()
	if err != nil {
		log.Debug("frame capture failed, retrying", "err", err)
		return s.cfg.RetryInterval
	}

	obs, err := s.source.NextObservation(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			s.Cancel()
			return -1
		}
		// No face or a retryable capture error: skip the frame with no
		// state mutation and back off a little longer than usual.
		if !errors.Is(err, ErrNoFace) {
			log.Debug("observation failed, retrying", "err", err)
		}
		return s.cfg.RetryInterval
	}

	out := attempt.Consume(obs, frame)
	switch out.Status {
	case gesture.StatusProgress:
		log.Info("gesture progress", "attempt", attempt.ID, "step", out.Step, "next", out.Next)
		if s.cb.OnProgress != nil {
			s.cb.OnProgress(attempt.Kind, out.Step, out.Next)
		}
	case gesture.StatusDetected:
		s.conclude(nil, func() {
			log.Info("gesture confirmed", "attempt", attempt.ID, "kind", attempt.Kind, "frame", out.Frame.ID)
			if s.cb.OnConfirmed != nil {
				s.cb.OnConfirmed(out.Frame)
			}
		})
		return -1
	}
	return s.cfg.FrameInterval
}

// conclude is the single terminal transition. The first caller wins;
// everyone else is a no-op. On the winning path both the watchdog and the
// attempt's cooldown timer are stopped before the callback fires.
func (s *Session) conclude(err error, deliver func()) {
	if !s.concluded.CompareAndSwap(false, true) {
		return
	}

	s.mu.Lock()
	s.err = err
	if s.timeout != nil {
		s.timeout.Stop()
	}
	if s.attempt != nil {
		s.attempt.Close()
	}
	s.mu.Unlock()

	deliver()
	close(s.done)
}

// wait sleeps for d, returning early on conclusion or cancellation.
func (s *Session) wait(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-s.done:
	case <-ctx.Done():
	}
}
