package gesture

import (
	"time"

	"github.com/google/uuid"
)

// Observation is one frame's worth of facial metrics from the face-analysis
// collaborator. Angles are in degrees, probabilities in [0,1].
type Observation struct {
	YawDeg   float64 `json:"yaw_deg"`   // Head yaw (left/right rotation)
	PitchDeg float64 `json:"pitch_deg"` // Head pitch (up/down rotation)

	LeftEyeOpen  float64 `json:"left_eye_open"`  // Probability the left eye is open
	RightEyeOpen float64 `json:"right_eye_open"` // Probability the right eye is open
	Smile        float64 `json:"smile"`          // Smile probability
}

// Neutral returns an Observation with every metric at its neutral default:
// eyes open, zero rotation, no smile. Producers that cannot measure a
// metric should leave it at the neutral value rather than zero.
func Neutral() Observation {
	return Observation{LeftEyeOpen: 1.0, RightEyeOpen: 1.0}
}

// FrameRef identifies the camera frame an observation was computed from.
// The JPEG bytes pass through untouched; this package never decodes them.
type FrameRef struct {
	ID   string    `json:"id"`
	JPEG []byte    `json:"-"`
	At   time.Time `json:"at"`
}

// NewFrameRef wraps raw JPEG bytes in a FrameRef with a fresh ID.
func NewFrameRef(jpeg []byte) FrameRef {
	return FrameRef{
		ID:   uuid.NewString(),
		JPEG: jpeg,
		At:   time.Now(),
	}
}
