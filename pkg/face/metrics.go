// Package face turns camera frames into gesture.Observation values using
// OpenCV's YuNet face detector. It is the default implementation of the
// session's Source and Capturer collaborators; the core never depends on
// this package, so any other metrics producer can replace it.
package face

import "math"

// Point is a 2D point in pixel coordinates.
type Point struct {
	X, Y float64
}

// Landmarks are the five facial landmarks YuNet reports per face.
// "Right"/"Left" are the subject's right and left.
type Landmarks struct {
	RightEye   Point
	LeftEye    Point
	NoseTip    Point
	MouthRight Point
	MouthLeft  Point
}

// Tuning constants for the landmark heuristics. These are coarse by
// nature: five landmarks cannot recover true 3D pose, but the gesture
// thresholds only need deltas from a per-attempt neutral baseline, which
// cancels most of the per-face bias.
const (
	yawGainDeg   = 120.0 // degrees per iod-normalized nose offset
	pitchGainDeg = 150.0 // degrees per unit of nose-height ratio delta
	pitchNeutral = 0.55  // nose height ratio for a level head

	smileMinRatio = 0.95 // mouth/iod ratio mapped to smile=0
	smileMaxRatio = 1.45 // mouth/iod ratio mapped to smile=1
)

func dist(a, b Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

func mid(a, b Point) Point {
	return Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Interocular returns the distance between the eye landmarks, the scale
// reference for all other metrics.
func (l Landmarks) Interocular() float64 {
	return dist(l.RightEye, l.LeftEye)
}

// Yaw estimates head yaw in degrees from the nose tip's horizontal offset
// against the eye midpoint. Positive yaw means the nose sits left of the
// eye midpoint in image coordinates; whether that is the subject turning
// "left" or "right" depends on camera mirroring, which is why the gesture
// direction order is configuration.
func (l Landmarks) Yaw() float64 {
	iod := l.Interocular()
	if iod <= 0 {
		return 0
	}
	offset := (mid(l.RightEye, l.LeftEye).X - l.NoseTip.X) / iod
	return clamp(offset*yawGainDeg, -90, 90)
}

// Pitch estimates head pitch in degrees from where the nose tip sits
// between the eye line and the mouth line. Positive pitch means the head
// is tilted up.
func (l Landmarks) Pitch() float64 {
	eyeMid := mid(l.RightEye, l.LeftEye)
	mouthMid := mid(l.MouthRight, l.MouthLeft)

	height := mouthMid.Y - eyeMid.Y
	if height <= 0 {
		return 0
	}
	ratio := (l.NoseTip.Y - eyeMid.Y) / height
	return clamp((pitchNeutral-ratio)*pitchGainDeg, -90, 90)
}

// Smile estimates smile probability from mouth width relative to the
// interocular distance. A smile stretches the mouth corners outward; the
// ratio is mapped linearly onto [0,1].
func (l Landmarks) Smile() float64 {
	iod := l.Interocular()
	if iod <= 0 {
		return 0
	}
	ratio := dist(l.MouthRight, l.MouthLeft) / iod
	return clamp((ratio-smileMinRatio)/(smileMaxRatio-smileMinRatio), 0, 1)
}
