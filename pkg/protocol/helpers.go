package protocol

import (
	"encoding/base64"

	"github.com/presencelabs/go-presence/pkg/gesture"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewObservationMessage creates an observation message from gesture metrics.
func NewObservationMessage(obs gesture.Observation, frameID string) (*Message, error) {
	return NewMessage(TypeObservation, FromObservation(obs, frameID))
}

// NewNoFaceMessage creates an observation message marking a frame with no
// usable face.
func NewNoFaceMessage() (*Message, error) {
	return NewMessage(TypeObservation, ObservationData{NoFace: true})
}

// NewFrameMessage creates a frame message from raw JPEG data.
func NewFrameMessage(frameID string, width, height int, jpegData []byte) (*Message, error) {
	return NewMessage(TypeFrame, FrameData{
		FrameID: frameID,
		Width:   width,
		Height:  height,
		Data:    base64.StdEncoding.EncodeToString(jpegData),
	})
}

// DecodeFrame returns the JPEG bytes carried by a FrameData payload.
func DecodeFrame(d FrameData) ([]byte, error) {
	return base64.StdEncoding.DecodeString(d.Data)
}

// NewChallengeMessage announces the selected challenge for an attempt.
func NewChallengeMessage(attemptID string, kind gesture.Kind, sequence []gesture.Direction, timeoutMs int64) (*Message, error) {
	return NewMessage(TypeChallenge, ChallengeData{
		AttemptID:   attemptID,
		Kind:        kind,
		Sequence:    sequence,
		Instruction: kind.Instruction(),
		TimeoutMs:   timeoutMs,
	})
}

// NewProgressMessage reports an accepted head-turn step.
func NewProgressMessage(attemptID string, step, total int, next gesture.Direction) (*Message, error) {
	return NewMessage(TypeProgress, ProgressData{
		AttemptID: attemptID,
		Step:      step,
		Total:     total,
		Next:      next,
	})
}

// NewConfirmedMessage reports a successful attempt.
func NewConfirmedMessage(attemptID string, kind gesture.Kind, frame gesture.FrameRef) (*Message, error) {
	return NewMessage(TypeConfirmed, ConfirmedData{
		AttemptID: attemptID,
		Kind:      kind,
		FrameID:   frame.ID,
		At:        frame.At.UnixMilli(),
	})
}

// NewFailedMessage reports a failed attempt.
func NewFailedMessage(attemptID, reason string) (*Message, error) {
	return NewMessage(TypeFailed, FailedData{
		AttemptID: attemptID,
		Reason:    reason,
	})
}
