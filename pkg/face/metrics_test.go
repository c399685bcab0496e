package face

import (
	"math"
	"testing"
)

// neutralFace returns landmarks for a level, centered face.
func neutralFace() Landmarks {
	return Landmarks{
		RightEye:   Point{X: 100, Y: 100},
		LeftEye:    Point{X: 200, Y: 100},
		NoseTip:    Point{X: 150, Y: 155}, // pitchNeutral * 100px eye-to-mouth
		MouthRight: Point{X: 110, Y: 200},
		MouthLeft:  Point{X: 190, Y: 200},
	}
}

func TestYaw_NeutralIsZero(t *testing.T) {
	if yaw := neutralFace().Yaw(); math.Abs(yaw) > 1e-9 {
		t.Errorf("neutral yaw = %v, want 0", yaw)
	}
}

func TestYaw_SignAndMonotonicity(t *testing.T) {
	l := neutralFace()

	l.NoseTip.X = 130 // nose left of eye midpoint
	left := l.Yaw()
	if left <= 0 {
		t.Errorf("nose left of midpoint: yaw = %v, want > 0", left)
	}

	l.NoseTip.X = 110 // further left
	if far := l.Yaw(); far <= left {
		t.Errorf("larger offset should give larger yaw: %v <= %v", far, left)
	}

	l.NoseTip.X = 170 // right of midpoint
	if right := l.Yaw(); right >= 0 {
		t.Errorf("nose right of midpoint: yaw = %v, want < 0", right)
	}
}

func TestYaw_Clamped(t *testing.T) {
	l := neutralFace()
	l.NoseTip.X = -1000
	if yaw := l.Yaw(); yaw != 90 {
		t.Errorf("extreme offset: yaw = %v, want clamp at 90", yaw)
	}
}

func TestPitch_NeutralIsZero(t *testing.T) {
	if pitch := neutralFace().Pitch(); math.Abs(pitch) > 1e-9 {
		t.Errorf("neutral pitch = %v, want 0", pitch)
	}
}

func TestPitch_SignConvention(t *testing.T) {
	l := neutralFace()

	// Tilting up moves the nose toward the eye line (smaller ratio).
	l.NoseTip.Y = 130
	if up := l.Pitch(); up <= 0 {
		t.Errorf("nose near eye line: pitch = %v, want > 0 (up)", up)
	}

	l.NoseTip.Y = 180
	if down := l.Pitch(); down >= 0 {
		t.Errorf("nose near mouth line: pitch = %v, want < 0 (down)", down)
	}
}

func TestSmile_Monotonic(t *testing.T) {
	l := neutralFace() // mouth width 80, iod 100: ratio 0.8 -> score 0

	if s := l.Smile(); s != 0 {
		t.Errorf("neutral mouth: smile = %v, want 0", s)
	}

	l.MouthRight.X = 90
	l.MouthLeft.X = 210 // width 120, ratio 1.2
	mid := l.Smile()
	if mid <= 0 || mid >= 1 {
		t.Errorf("moderate smile = %v, want in (0,1)", mid)
	}

	l.MouthRight.X = 70
	l.MouthLeft.X = 230 // width 160, ratio 1.6
	if wide := l.Smile(); wide != 1 {
		t.Errorf("wide smile = %v, want clamp at 1", wide)
	}
}

func TestMetrics_DegenerateLandmarks(t *testing.T) {
	// Coincident eyes must not divide by zero.
	var l Landmarks
	if l.Yaw() != 0 || l.Pitch() != 0 || l.Smile() != 0 {
		t.Error("zero-value landmarks should produce neutral metrics")
	}
}

func TestMetrics_ScaleInvariance(t *testing.T) {
	a := neutralFace()
	a.NoseTip.X = 130

	// The same face twice as large should produce the same angles.
	b := a
	for _, p := range []*Point{&b.RightEye, &b.LeftEye, &b.NoseTip, &b.MouthRight, &b.MouthLeft} {
		p.X *= 2
		p.Y *= 2
	}

	if math.Abs(a.Yaw()-b.Yaw()) > 1e-9 {
		t.Errorf("yaw not scale invariant: %v vs %v", a.Yaw(), b.Yaw())
	}
	if math.Abs(a.Pitch()-b.Pitch()) > 1e-9 {
		t.Errorf("pitch not scale invariant: %v vs %v", a.Pitch(), b.Pitch())
	}
	if math.Abs(a.Smile()-b.Smile()) > 1e-9 {
		t.Errorf("smile not scale invariant: %v vs %v", a.Smile(), b.Smile())
	}
}
