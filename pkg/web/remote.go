package web

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/presencelabs/go-presence/pkg/gesture"
	"github.com/presencelabs/go-presence/pkg/protocol"
	"github.com/presencelabs/go-presence/pkg/session"
)

// errNoPending signals that no client observation is waiting. The
// session loop treats it as transient and retries.
var errNoPending = errors.New("web: no pending observation")

// maxPendingFrames bounds the frame cache so a client that streams
// frames without observations cannot grow memory unbounded.
const maxPendingFrames = 32

// maxPendingObservations bounds the observation queue the same way.
// A client pushing faster than the session polls loses its oldest,
// stalest metrics first.
const maxPendingObservations = 64

// feedItem is one client observation paired with its backing frame.
type feedItem struct {
	obs    gesture.Observation
	noFace bool
	frame  gesture.FrameRef
}

// RemoteFeed adapts a websocket observation stream to the session's
// Source and Capturer interfaces. The client pushes frames and
// per-frame metrics; the session pulls them one at a time.
//
// CaptureFrame dequeues the next item and returns its frame;
// NextObservation then returns that same item's metrics. This keeps
// the frame/observation pairing the session relies on.
type RemoteFeed struct {
	mu      sync.Mutex
	queue   []feedItem
	current *feedItem
	frames  map[string]gesture.FrameRef
	order   []string // frame insertion order, for eviction
	closed  bool
}

// NewRemoteFeed creates an empty feed.
func NewRemoteFeed() *RemoteFeed {
	return &RemoteFeed{
		frames: make(map[string]gesture.FrameRef),
	}
}

// PushFrame stores a client frame so a later observation can reference it.
func (f *RemoteFeed) PushFrame(frameID string, jpeg []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}

	if _, ok := f.frames[frameID]; !ok {
		f.order = append(f.order, frameID)
	}
	f.frames[frameID] = gesture.FrameRef{ID: frameID, JPEG: jpeg, At: time.Now()}

	for len(f.order) > maxPendingFrames {
		delete(f.frames, f.order[0])
		f.order = f.order[1:]
	}
}

// PushObservation enqueues one observation payload from the client.
func (f *RemoteFeed) PushObservation(d protocol.ObservationData) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}

	item := feedItem{
		obs:    d.Observation(),
		noFace: d.NoFace,
	}
	if ref, ok := f.frames[d.FrameID]; ok {
		item.frame = ref
	} else {
		// Metrics without a streamed frame still need an identity
		// for the confirmation record.
		item.frame = gesture.FrameRef{ID: d.FrameID, At: time.Now()}
	}
	f.queue = append(f.queue, item)
	if n := len(f.queue) - maxPendingObservations; n > 0 {
		f.queue = append(f.queue[:0:0], f.queue[n:]...)
	}
}

// CaptureFrame implements session.Capturer. It dequeues the next item
// and returns its frame, holding the item for NextObservation.
func (f *RemoteFeed) CaptureFrame() (gesture.FrameRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return gesture.FrameRef{}, session.ErrCancelled
	}
	if f.current == nil {
		if len(f.queue) == 0 {
			return gesture.FrameRef{}, errNoPending
		}
		item := f.queue[0]
		f.queue = f.queue[1:]
		f.current = &item
	}
	return f.current.frame, nil
}

// NextObservation implements session.Source. It returns the metrics of
// the item CaptureFrame dequeued.
func (f *RemoteFeed) NextObservation(ctx context.Context) (gesture.Observation, error) {
	if err := ctx.Err(); err != nil {
		return gesture.Observation{}, err
	}

	f.mu.Lock()
	item := f.current
	f.current = nil
	closed := f.closed
	f.mu.Unlock()

	if closed {
		return gesture.Observation{}, session.ErrCancelled
	}
	if item == nil {
		return gesture.Observation{}, session.ErrNoFace
	}
	if item.noFace {
		return gesture.Observation{}, session.ErrNoFace
	}
	return item.obs, nil
}

// Close marks the feed dead. Pending items are dropped and future
// pulls fail so the session winds down.
func (f *RemoteFeed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.queue = nil
	f.current = nil
	f.frames = nil
	f.order = nil
}
