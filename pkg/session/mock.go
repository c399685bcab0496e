package session

import (
	"context"
	"sync"

	"github.com/presencelabs/go-presence/pkg/gesture"
)

// MockSource implements Source for testing.
// Behavior can be customized via the function field; by default it plays
// a scripted observation list and reports ErrNoFace once exhausted.
type MockSource struct {
	// NextFunc is called when NextObservation is invoked.
	// If nil, the script is used.
	NextFunc func(ctx context.Context) (gesture.Observation, error)

	mu     sync.Mutex
	script []gesture.Observation
	pos    int
	calls  int
}

// NewScript creates a mock source that returns the given observations in
// order, then ErrNoFace forever.
func NewScript(obs ...gesture.Observation) *MockSource {
	return &MockSource{script: obs}
}

// NextObservation implements Source.
func (m *MockSource) NextObservation(ctx context.Context) (gesture.Observation, error) {
	m.mu.Lock()
	m.calls++
	fn := m.NextFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pos >= len(m.script) {
		return gesture.Observation{}, ErrNoFace
	}
	obs := m.script[m.pos]
	m.pos++
	return obs, nil
}

// Calls returns how many times NextObservation was invoked.
func (m *MockSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockCapturer implements Capturer for testing.
type MockCapturer struct {
	// CaptureFunc is called when CaptureFrame is invoked.
	// If nil, a fresh empty frame is returned.
	CaptureFunc func() (gesture.FrameRef, error)

	mu     sync.Mutex
	frames []gesture.FrameRef
}

// CaptureFrame implements Capturer.
func (m *MockCapturer) CaptureFrame() (gesture.FrameRef, error) {
	if m.CaptureFunc != nil {
		return m.CaptureFunc()
	}
	frame := gesture.NewFrameRef(nil)
	m.mu.Lock()
	m.frames = append(m.frames, frame)
	m.mu.Unlock()
	return frame, nil
}

// Frames returns every frame handed out so far.
func (m *MockCapturer) Frames() []gesture.FrameRef {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]gesture.FrameRef(nil), m.frames...)
}
