package gesture

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status classifies the result of consuming one observation.
type Status int

const (
	// StatusNone means the observation changed nothing visible.
	StatusNone Status = iota

	// StatusProgress means the gesture advanced but is not complete.
	StatusProgress

	// StatusDetected means the gesture completed on this observation.
	StatusDetected
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusProgress:
		return "progress"
	case StatusDetected:
		return "detected"
	}
	return "none"
}

// Outcome is what Consume reports for one observation.
type Outcome struct {
	Status Status

	// Step is the number of completed head-turn directions.
	Step int

	// Next is the direction the user should turn next (head turn only,
	// empty once detected).
	Next Direction

	// Frame is the frame paired with the detecting observation.
	// Only set when Status is StatusDetected.
	Frame FrameRef
}

// Attempt owns all mutable state for one challenge attempt, from selection
// to a terminal outcome. Consume must be called from a single goroutine;
// the cooldown timer is the only concurrent writer and is synchronized
// internally.
type Attempt struct {
	ID      string
	Kind    Kind
	Created time.Time

	cfg Config

	mu       sync.Mutex
	detected bool

	// Blink sub-state. Sticky: neither flag ever resets within an attempt.
	blinkStarted bool
	blinkClosed  bool

	// Head-turn sub-state
	calibrated    bool
	neutralYaw    float64
	neutralPitch  float64
	step          int
	cooldown      bool
	cooldownTimer *time.Timer
}

// NewAttempt creates the mutable state for one attempt at the given
// challenge. Call Close when the attempt reaches a terminal outcome so no
// timer callback outlives it.
func NewAttempt(kind Kind, cfg Config) *Attempt {
	return &Attempt{
		ID:      uuid.NewString(),
		Kind:    kind,
		Created: time.Now(),
		cfg:     cfg,
	}
}

// Consume feeds one observation through the state machine and reports
// whether the gesture advanced or completed. Observations arriving after
// detection are ignored.
func (a *Attempt) Consume(obs Observation, frame FrameRef) Outcome {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.detected {
		return Outcome{Status: StatusNone}
	}

	switch a.Kind {
	case KindBlink:
		return a.consumeBlink(obs, frame)
	case KindSmile:
		return a.consumeSmile(obs, frame)
	case KindHeadTurn:
		return a.consumeHeadTurn(obs, frame)
	}
	return Outcome{Status: StatusNone}
}

// consumeBlink latches open -> closed -> open. Ambiguous probabilities in
// the gap between the thresholds leave the state unchanged, and there are
// no backward transitions, so a one-frame misread cannot undo progress.
func (a *Attempt) consumeBlink(obs Observation, frame FrameRef) Outcome {
	open := obs.LeftEyeOpen > a.cfg.EyesOpenThreshold && obs.RightEyeOpen > a.cfg.EyesOpenThreshold
	closed := obs.LeftEyeOpen < a.cfg.EyesClosedThreshold && obs.RightEyeOpen < a.cfg.EyesClosedThreshold

	switch {
	case !a.blinkStarted:
		if open {
			a.blinkStarted = true
		}
	case !a.blinkClosed:
		if closed {
			a.blinkClosed = true
		}
	default:
		if open {
			return a.detect(frame)
		}
	}
	return Outcome{Status: StatusNone}
}

// consumeSmile is stateless: one frame over the threshold is enough.
func (a *Attempt) consumeSmile(obs Observation, frame FrameRef) Outcome {
	if obs.Smile > a.cfg.SmileThreshold {
		return a.detect(frame)
	}
	return Outcome{Status: StatusNone}
}

func (a *Attempt) consumeHeadTurn(obs Observation, frame FrameRef) Outcome {
	// The first observation only captures the neutral pose; no decision
	// is made on this frame.
	if !a.calibrated {
		a.neutralYaw = obs.YawDeg
		a.neutralPitch = obs.PitchDeg
		a.calibrated = true
		return Outcome{Status: StatusNone, Next: a.cfg.Sequence[0]}
	}

	want := a.cfg.Sequence[a.step]

	if a.cooldown {
		return Outcome{Status: StatusNone, Step: a.step, Next: want}
	}

	relYaw := obs.YawDeg - a.neutralYaw
	relPitch := obs.PitchDeg - a.neutralPitch

	// Only the currently expected direction is evaluated; a pose that
	// happens to satisfy a later direction is ignored.
	if !directionMet(want, relYaw, relPitch, a.cfg) {
		return Outcome{Status: StatusNone, Step: a.step, Next: want}
	}

	a.step++
	if a.step >= len(a.cfg.Sequence) {
		return a.detect(frame)
	}

	// A held pose satisfies the predicate on every frame; the cooldown
	// converts it into exactly one advance per physical motion.
	a.cooldown = true
	a.cooldownTimer = time.AfterFunc(a.cfg.TurnCooldown, a.clearCooldown)

	return Outcome{Status: StatusProgress, Step: a.step, Next: a.cfg.Sequence[a.step]}
}

func (a *Attempt) clearCooldown() {
	a.mu.Lock()
	a.cooldown = false
	a.cooldownTimer = nil
	a.mu.Unlock()
}

// directionMet evaluates one direction's predicate against the pose delta.
// The sign convention matches the upstream camera orientation and is
// asserted here as configuration, not derived.
func directionMet(d Direction, relYaw, relPitch float64, cfg Config) bool {
	switch d {
	case DirRight:
		return relYaw < -cfg.TurnThreshold
	case DirLeft:
		return relYaw > cfg.TurnThreshold
	case DirDown:
		return relPitch < -cfg.VerticalThreshold
	case DirUp:
		return relPitch > cfg.VerticalThreshold
	}
	return false
}

// detect marks the attempt complete. Callers hold a.mu.
func (a *Attempt) detect(frame FrameRef) Outcome {
	a.detected = true
	if a.cooldownTimer != nil {
		a.cooldownTimer.Stop()
		a.cooldownTimer = nil
	}
	return Outcome{Status: StatusDetected, Step: a.step, Frame: frame}
}

// Detected reports whether the gesture has completed.
func (a *Attempt) Detected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.detected
}

// Step returns the number of completed head-turn directions.
func (a *Attempt) Step() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.step
}

// Close stops any outstanding cooldown timer so a late callback cannot
// touch a discarded attempt. Safe to call more than once.
func (a *Attempt) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cooldownTimer != nil {
		a.cooldownTimer.Stop()
		a.cooldownTimer = nil
	}
}
