// Package protocol defines the WebSocket message types for remote gesture
// attempts. This package is shared between the server and edge clients
// that produce their own facial metrics.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/presencelabs/go-presence/pkg/gesture"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Client → Server messages
	TypeObservation MessageType = "observation" // Per-frame facial metrics
	TypeFrame       MessageType = "frame"       // JPEG frame backing the metrics
	TypeCancel      MessageType = "cancel"      // Abandon the attempt

	// Server → Client messages
	TypeChallenge MessageType = "challenge" // Selected challenge for the attempt
	TypeProgress  MessageType = "progress"  // Head-turn step accepted
	TypeConfirmed MessageType = "confirmed" // Gesture confirmed
	TypeFailed    MessageType = "failed"    // Attempt ended without detection

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// =============================================================================
// Client → Server Message Types
// =============================================================================

// ObservationData carries one frame's facial metrics. The frame ID ties
// the metrics to a previously sent FrameData so the confirming frame can
// be identified on success.
//
// The eye probabilities are pointers so that an absent field is
// distinguishable from 0.0: a producer that cannot measure the eyes
// omits them and the value defaults to fully open, never to closed.
// The angles and smile score share their neutral value with the zero
// value, so plain floats suffice there.
type ObservationData struct {
	FrameID      string   `json:"frame_id,omitempty"`
	YawDeg       float64  `json:"yaw_deg"`
	PitchDeg     float64  `json:"pitch_deg"`
	LeftEyeOpen  *float64 `json:"left_eye_open,omitempty"`
	RightEyeOpen *float64 `json:"right_eye_open,omitempty"`
	Smile        float64  `json:"smile"`

	// NoFace marks a frame where the producer found no usable face.
	// The server skips the frame with no state change.
	NoFace bool `json:"no_face,omitempty"`
}

// Observation converts the payload to a gesture.Observation. Missing
// metrics take their neutral defaults.
func (d ObservationData) Observation() gesture.Observation {
	obs := gesture.Neutral()
	obs.YawDeg = d.YawDeg
	obs.PitchDeg = d.PitchDeg
	obs.Smile = d.Smile
	if d.LeftEyeOpen != nil {
		obs.LeftEyeOpen = *d.LeftEyeOpen
	}
	if d.RightEyeOpen != nil {
		obs.RightEyeOpen = *d.RightEyeOpen
	}
	return obs
}

// FromObservation builds the payload for a gesture.Observation.
func FromObservation(obs gesture.Observation, frameID string) ObservationData {
	left, right := obs.LeftEyeOpen, obs.RightEyeOpen
	return ObservationData{
		FrameID:      frameID,
		YawDeg:       obs.YawDeg,
		PitchDeg:     obs.PitchDeg,
		LeftEyeOpen:  &left,
		RightEyeOpen: &right,
		Smile:        obs.Smile,
	}
}

// FrameData contains a JPEG frame from the client's camera.
type FrameData struct {
	FrameID string `json:"frame_id"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
	Data    string `json:"data"` // base64 encoded JPEG
}

// =============================================================================
// Server → Client Message Types
// =============================================================================

// ChallengeData announces the selected challenge.
type ChallengeData struct {
	AttemptID   string              `json:"attempt_id"`
	Kind        gesture.Kind        `json:"kind"`
	Sequence    []gesture.Direction `json:"sequence,omitempty"`
	Instruction string              `json:"instruction"`
	TimeoutMs   int64               `json:"timeout_ms"`
}

// ProgressData reports an accepted head-turn step.
type ProgressData struct {
	AttemptID string            `json:"attempt_id"`
	Step      int               `json:"step"`
	Total     int               `json:"total"`
	Next      gesture.Direction `json:"next,omitempty"`
}

// ConfirmedData reports a successful attempt.
type ConfirmedData struct {
	AttemptID string       `json:"attempt_id"`
	Kind      gesture.Kind `json:"kind"`
	FrameID   string       `json:"frame_id,omitempty"`
	At        int64        `json:"at"` // Unix milliseconds
}

// FailedData reports a failed attempt.
type FailedData struct {
	AttemptID string `json:"attempt_id"`
	Reason    string `json:"reason"` // "timeout", "cancelled", "initialization"
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
