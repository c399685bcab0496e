// Package gesture implements the challenge state machine for presence
// confirmation: it turns a noisy per-frame stream of facial metrics into a
// single reliable "gesture confirmed" event.
//
// A challenge is one of three gestures: a blink, a smile, or a four-step
// head-turn sequence (right, left, down, up by default). Each attempt owns
// an Attempt value that consumes one Observation at a time and reports
// whether the gesture made progress or completed.
//
// # Usage
//
//	cfg := gesture.DefaultConfig()
//	sel := gesture.NewSelector(cfg.Kinds, nil)
//
//	attempt := gesture.NewAttempt(sel.Pick(), cfg)
//	defer attempt.Close()
//
//	for obs := range observations {
//	    out := attempt.Consume(obs, frame)
//	    if out.Status == gesture.StatusDetected {
//	        deliver(out.Frame)
//	        break
//	    }
//	}
//
// The package has no opinion on where observations come from or how the
// loop is scheduled; pkg/session provides the per-frame loop, timeout
// handling, and result delivery around this state machine.
//
// # Debouncing
//
// Per-frame probabilities are noisy, so none of the gestures trigger on a
// single-frame edge alone:
//
//   - Blink requires the full open -> closed -> open sequence; ambiguous
//     frames leave the state unchanged and there are no backward
//     transitions.
//   - Head turns are gated by a cooldown window so a held pose advances
//     the sequence exactly once per physical motion.
//   - Smile is the exception: it is stateless and triggers immediately,
//     matching how smile probability behaves upstream (already smoothed).
package gesture
