package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/presencelabs/go-presence/pkg/gesture"
	"github.com/presencelabs/go-presence/pkg/session"
)

// fastConfig returns a config with intervals suitable for tests.
func fastConfig(kind gesture.Kind) gesture.Config {
	cfg := gesture.DefaultConfig().WithKinds(kind)
	cfg.FrameInterval = 2 * time.Millisecond
	cfg.RetryInterval = 5 * time.Millisecond
	cfg.TurnCooldown = 10 * time.Millisecond
	return cfg
}

// recorder counts terminal callbacks to verify exactly-once delivery.
type recorder struct {
	mu        sync.Mutex
	confirmed int32
	failed    int32
	reason    session.Reason
	frame     gesture.FrameRef
}

func (r *recorder) callbacks() session.Callbacks {
	return session.Callbacks{
		OnConfirmed: func(frame gesture.FrameRef) {
			atomic.AddInt32(&r.confirmed, 1)
			r.mu.Lock()
			r.frame = frame
			r.mu.Unlock()
		},
		OnFailed: func(reason session.Reason) {
			atomic.AddInt32(&r.failed, 1)
			r.mu.Lock()
			r.reason = reason
			r.mu.Unlock()
		},
	}
}

func (r *recorder) counts() (confirmed, failed int32) {
	return atomic.LoadInt32(&r.confirmed), atomic.LoadInt32(&r.failed)
}

func blinkScript() []gesture.Observation {
	open := gesture.Neutral()
	closed := gesture.Neutral()
	closed.LeftEyeOpen, closed.RightEyeOpen = 0.1, 0.1
	return []gesture.Observation{open, open, closed, open}
}

func TestSession_BlinkEndToEnd(t *testing.T) {
	rec := &recorder{}
	src := session.NewScript(blinkScript()...)
	cap := &session.MockCapturer{}

	s, err := session.New(fastConfig(gesture.KindBlink), src, cap,
		session.WithCallbacks(rec.callbacks()))
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	confirmed, failed := rec.counts()
	if confirmed != 1 || failed != 0 {
		t.Fatalf("confirmed=%d failed=%d, want 1/0", confirmed, failed)
	}

	// The delivered frame must be the one captured alongside the
	// detecting observation (the 4th polled frame).
	frames := cap.Frames()
	if len(frames) != 4 {
		t.Fatalf("captured %d frames, want 4", len(frames))
	}
	rec.mu.Lock()
	got := rec.frame.ID
	rec.mu.Unlock()
	if got != frames[3].ID {
		t.Errorf("delivered frame %s, want %s", got, frames[3].ID)
	}
}

func TestSession_TimeoutWithoutQualifyingObservations(t *testing.T) {
	rec := &recorder{}

	// Smile metrics that never cross the threshold.
	src := &session.MockSource{
		NextFunc: func(ctx context.Context) (gesture.Observation, error) {
			obs := gesture.Neutral()
			obs.Smile = 0.4
			return obs, nil
		},
	}

	cfg := fastConfig(gesture.KindSmile).WithTimeout(60 * time.Millisecond)
	s, err := session.New(cfg, src, &session.MockCapturer{},
		session.WithCallbacks(rec.callbacks()))
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Run(context.Background()); !errors.Is(err, session.ErrTimeout) {
		t.Fatalf("Run: %v, want ErrTimeout", err)
	}

	confirmed, failed := rec.counts()
	if confirmed != 0 || failed != 1 {
		t.Fatalf("confirmed=%d failed=%d, want 0/1", confirmed, failed)
	}
	if rec.reason != session.ReasonTimeout {
		t.Errorf("reason=%q, want timeout", rec.reason)
	}
}

func TestSession_DetectionAfterTimeoutLoses(t *testing.T) {
	rec := &recorder{}

	// The qualifying observation arrives well after the watchdog fires;
	// the timeout must be the only terminal outcome.
	src := &session.MockSource{
		NextFunc: func(ctx context.Context) (gesture.Observation, error) {
			time.Sleep(80 * time.Millisecond)
			obs := gesture.Neutral()
			obs.Smile = 0.95
			return obs, nil
		},
	}

	cfg := fastConfig(gesture.KindSmile).WithTimeout(20 * time.Millisecond)
	s, err := session.New(cfg, src, &session.MockCapturer{},
		session.WithCallbacks(rec.callbacks()))
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Run(context.Background()); !errors.Is(err, session.ErrTimeout) {
		t.Fatalf("Run: %v, want ErrTimeout", err)
	}

	// Give the in-flight observation time to land.
	time.Sleep(100 * time.Millisecond)

	confirmed, failed := rec.counts()
	if confirmed != 0 || failed != 1 {
		t.Errorf("confirmed=%d failed=%d, want 0/1", confirmed, failed)
	}
}

func TestSession_Cancel(t *testing.T) {
	rec := &recorder{}

	src := &session.MockSource{
		NextFunc: func(ctx context.Context) (gesture.Observation, error) {
			<-ctx.Done()
			return gesture.Observation{}, ctx.Err()
		},
	}

	s, err := session.New(fastConfig(gesture.KindBlink), src, &session.MockCapturer{},
		session.WithCallbacks(rec.callbacks()))
	if err != nil {
		t.Fatal(err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(context.Background()) }()

	time.Sleep(20 * time.Millisecond)
	s.Cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, session.ErrCancelled) {
			t.Fatalf("Run: %v, want ErrCancelled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Cancel")
	}

	confirmed, failed := rec.counts()
	if confirmed != 0 || failed != 1 {
		t.Errorf("confirmed=%d failed=%d, want 0/1", confirmed, failed)
	}
	if rec.reason != session.ReasonCancelled {
		t.Errorf("reason=%q, want cancelled", rec.reason)
	}
}

func TestSession_CancelBeforeRun(t *testing.T) {
	rec := &recorder{}
	var challenges int32
	cb := rec.callbacks()
	cb.OnChallenge = func(kind gesture.Kind, sequence []gesture.Direction) {
		atomic.AddInt32(&challenges, 1)
	}

	s, err := session.New(fastConfig(gesture.KindBlink),
		session.NewScript(blinkScript()...), &session.MockCapturer{},
		session.WithCallbacks(cb))
	if err != nil {
		t.Fatal(err)
	}

	s.Cancel()

	if err := s.Run(context.Background()); !errors.Is(err, session.ErrCancelled) {
		t.Fatalf("Run: %v, want ErrCancelled", err)
	}
	if n := atomic.LoadInt32(&challenges); n != 0 {
		t.Errorf("OnChallenge fired %d times for a cancelled session", n)
	}
	if confirmed, failed := rec.counts(); confirmed != 0 || failed != 1 {
		t.Errorf("confirmed=%d failed=%d, want 0/1", confirmed, failed)
	}
	if rec.reason != session.ReasonCancelled {
		t.Errorf("reason=%q, want cancelled", rec.reason)
	}
}

func TestSession_TransientErrorsDoNotEndAttempt(t *testing.T) {
	rec := &recorder{}

	var n int32
	script := blinkScript()
	src := &session.MockSource{
		NextFunc: func(ctx context.Context) (gesture.Observation, error) {
			i := atomic.AddInt32(&n, 1)
			if i <= 3 {
				return gesture.Observation{}, session.ErrNoFace
			}
			idx := int(i) - 4
			if idx >= len(script) {
				return gesture.Observation{}, session.ErrNoFace
			}
			return script[idx], nil
		},
	}

	s, err := session.New(fastConfig(gesture.KindBlink), src, &session.MockCapturer{},
		session.WithCallbacks(rec.callbacks()))
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if confirmed, _ := rec.counts(); confirmed != 1 {
		t.Errorf("confirmed=%d, want 1", confirmed)
	}
}

func TestSession_HeadTurnProgressCallbacks(t *testing.T) {
	cfg := fastConfig(gesture.KindHeadTurn)

	right := gesture.Neutral()
	right.YawDeg = -60
	left := gesture.Neutral()
	left.YawDeg = 60
	down := gesture.Neutral()
	down.PitchDeg = -50
	up := gesture.Neutral()
	up.PitchDeg = 50

	// Neutral calibration frame first, then the four turns separated by
	// neutral frames long enough for the cooldown to clear.
	script := []gesture.Observation{gesture.Neutral()}
	for _, turn := range []gesture.Observation{right, left, down, up} {
		for i := 0; i < 10; i++ { // ~10 frames of neutral > cooldown
			script = append(script, gesture.Neutral())
		}
		script = append(script, turn)
	}

	var mu sync.Mutex
	var steps []int
	rec := &recorder{}
	cb := rec.callbacks()
	cb.OnProgress = func(kind gesture.Kind, step int, next gesture.Direction) {
		mu.Lock()
		steps = append(steps, step)
		mu.Unlock()
	}

	s, err := session.New(cfg, session.NewScript(script...), &session.MockCapturer{},
		session.WithCallbacks(cb))
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []int{1, 2, 3}
	if len(steps) != len(want) {
		t.Fatalf("progress steps %v, want %v", steps, want)
	}
	for i := range want {
		if steps[i] != want[i] {
			t.Fatalf("progress steps %v, want %v", steps, want)
		}
	}
}

func TestSession_ConfigurationErrors(t *testing.T) {
	cfg := gesture.DefaultConfig()

	t.Run("nil source", func(t *testing.T) {
		_, err := session.New(cfg, nil, &session.MockCapturer{})
		if !errors.Is(err, session.ErrNoSource) {
			t.Errorf("got %v, want ErrNoSource", err)
		}
	})

	t.Run("nil capturer", func(t *testing.T) {
		_, err := session.New(cfg, session.NewScript(), nil)
		if !errors.Is(err, session.ErrNoCapturer) {
			t.Errorf("got %v, want ErrNoCapturer", err)
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		bad := cfg.WithKinds("wave")
		_, err := session.New(bad, session.NewScript(), &session.MockCapturer{})
		if err == nil {
			t.Error("expected config validation error")
		}
	})
}

func TestSession_RunTwice(t *testing.T) {
	s, err := session.New(fastConfig(gesture.KindBlink),
		session.NewScript(blinkScript()...), &session.MockCapturer{})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if err := s.Run(context.Background()); !errors.Is(err, session.ErrAlreadyRunning) {
		t.Errorf("second Run: %v, want ErrAlreadyRunning", err)
	}
}
