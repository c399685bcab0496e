package gesture

import (
	"errors"
	"time"
)

// Config holds all tunable parameters for gesture attempts.
type Config struct {
	// Challenge selection
	Kinds []Kind // Challenge pool (default: all three)

	// Head turn
	TurnThreshold     float64       // Yaw delta from neutral to count a horizontal turn (degrees)
	VerticalThreshold float64       // Pitch delta from neutral to count a vertical turn (degrees)
	Sequence          []Direction   // Expected direction order
	TurnCooldown      time.Duration // Suppression window after each accepted turn

	// Blink
	EyesOpenThreshold   float64 // Both eyes above this count as open
	EyesClosedThreshold float64 // Both eyes below this count as closed

	// Smile
	SmileThreshold float64

	// Timing
	AttemptTimeout time.Duration // Whole-attempt budget
	FrameInterval  time.Duration // Delay between polled frames
	RetryInterval  time.Duration // Longer delay after a frame with no usable face
}

// DefaultConfig returns the recommended configuration.
func DefaultConfig() Config {
	return Config{
		Kinds: AllKinds(),

		// Head turn - thresholds are deliberately large so a glance
		// doesn't count as a turn
		TurnThreshold:     50,
		VerticalThreshold: 40,
		Sequence:          DefaultSequence(),
		TurnCooldown:      800 * time.Millisecond,

		// Blink - the gap between open and closed rejects ambiguous frames
		EyesOpenThreshold:   0.7,
		EyesClosedThreshold: 0.3,

		// Smile
		SmileThreshold: 0.6,

		// Timing
		AttemptTimeout: 50 * time.Second,
		FrameInterval:  100 * time.Millisecond,
		RetryInterval:  400 * time.Millisecond,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if len(c.Kinds) == 0 {
		return errors.New("gesture: challenge pool is empty")
	}
	for _, k := range c.Kinds {
		switch k {
		case KindBlink, KindSmile, KindHeadTurn:
		default:
			return errors.New("gesture: unknown challenge kind: " + string(k))
		}
	}
	if len(c.Sequence) == 0 {
		return errors.New("gesture: head-turn sequence is empty")
	}
	for _, d := range c.Sequence {
		switch d {
		case DirRight, DirLeft, DirDown, DirUp:
		default:
			return errors.New("gesture: unknown direction: " + string(d))
		}
	}
	if c.TurnThreshold <= 0 || c.VerticalThreshold <= 0 {
		return errors.New("gesture: turn thresholds must be positive")
	}
	if c.EyesOpenThreshold < 0 || c.EyesOpenThreshold > 1 ||
		c.EyesClosedThreshold < 0 || c.EyesClosedThreshold > 1 {
		return errors.New("gesture: eye thresholds must be between 0 and 1")
	}
	if c.EyesClosedThreshold >= c.EyesOpenThreshold {
		return errors.New("gesture: eyes-closed threshold must be below eyes-open threshold")
	}
	if c.SmileThreshold < 0 || c.SmileThreshold > 1 {
		return errors.New("gesture: smile threshold must be between 0 and 1")
	}
	if c.AttemptTimeout <= 0 || c.TurnCooldown <= 0 {
		return errors.New("gesture: timeout and cooldown must be positive")
	}
	if c.FrameInterval <= 0 || c.RetryInterval <= 0 {
		return errors.New("gesture: frame and retry intervals must be positive")
	}
	return nil
}

// WithKinds returns a copy with the challenge pool set.
func (c Config) WithKinds(kinds ...Kind) Config {
	c.Kinds = kinds
	return c
}

// WithSequence returns a copy with the head-turn order set.
// The direction order is camera-convention configuration, not geometry;
// override it if the upstream producer mirrors its frames.
func (c Config) WithSequence(seq ...Direction) Config {
	c.Sequence = seq
	return c
}

// WithTimeout returns a copy with the attempt budget set.
func (c Config) WithTimeout(d time.Duration) Config {
	c.AttemptTimeout = d
	return c
}
