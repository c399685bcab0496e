package session

import "errors"

// Sentinel errors for common conditions.
var (
	// ErrNoFace is returned by a Source when the frame contained no
	// usable face. The loop skips the frame and retries after a backoff.
	ErrNoFace = errors.New("session: no face found")

	// ErrAlreadyRunning is returned when Run is called twice.
	ErrAlreadyRunning = errors.New("session: attempt already running")

	// ErrTimeout is returned by Run when the attempt budget elapsed
	// before the gesture completed.
	ErrTimeout = errors.New("session: attempt timed out")

	// ErrCancelled is returned by Run when the attempt was cancelled.
	ErrCancelled = errors.New("session: attempt cancelled")

	// ErrNoSource is returned when no observation source is configured.
	ErrNoSource = errors.New("session: observation source required")

	// ErrNoCapturer is returned when no frame capturer is configured.
	ErrNoCapturer = errors.New("session: frame capturer required")
)

// Reason classifies why an attempt failed.
type Reason string

const (
	ReasonTimeout   Reason = "timeout"
	ReasonCancelled Reason = "cancelled"
	ReasonInit      Reason = "initialization"
)
