package gesture

import (
	"math/rand"
	"sync"
	"time"
)

// Kind identifies one gesture challenge.
type Kind string

const (
	// KindBlink asks the user to blink (open -> closed -> open).
	KindBlink Kind = "blink"

	// KindSmile asks the user to smile.
	KindSmile Kind = "smile"

	// KindHeadTurn asks the user to turn their head through a fixed
	// sequence of directions.
	KindHeadTurn Kind = "head_turn"
)

// AllKinds returns the full challenge pool.
func AllKinds() []Kind {
	return []Kind{KindBlink, KindSmile, KindHeadTurn}
}

// Instruction returns a short human-readable prompt for the challenge.
func (k Kind) Instruction() string {
	switch k {
	case KindBlink:
		return "blink"
	case KindSmile:
		return "smile"
	case KindHeadTurn:
		return "turn your head as directed"
	}
	return string(k)
}

// Direction is one step of the head-turn sequence.
type Direction string

const (
	DirRight Direction = "right"
	DirLeft  Direction = "left"
	DirDown  Direction = "down"
	DirUp    Direction = "up"
)

// DefaultSequence returns the standard head-turn order.
func DefaultSequence() []Direction {
	return []Direction{DirRight, DirLeft, DirDown, DirUp}
}

// Instruction returns a short human-readable prompt for the direction.
func (d Direction) Instruction() string {
	return "turn your head " + string(d)
}

// Selector picks one challenge at random at attempt start.
// The random source is injectable so tests can force deterministic draws.
type Selector struct {
	mu    sync.Mutex
	kinds []Kind
	rng   *rand.Rand
}

// NewSelector creates a selector over the given challenge pool.
// A nil source seeds from the wall clock.
func NewSelector(kinds []Kind, src rand.Source) *Selector {
	if len(kinds) == 0 {
		kinds = AllKinds()
	}
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Selector{
		kinds: append([]Kind(nil), kinds...),
		rng:   rand.New(src),
	}
}

// Pick draws one challenge uniformly at random. No other side effects.
func (s *Selector) Pick() Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kinds[s.rng.Intn(len(s.kinds))]
}

// Kinds returns a copy of the challenge pool.
func (s *Selector) Kinds() []Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Kind(nil), s.kinds...)
}
