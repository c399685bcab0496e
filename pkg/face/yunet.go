package face

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/presencelabs/go-presence/pkg/gesture"
	"github.com/presencelabs/go-presence/pkg/session"
)

// Config holds detector configuration.
type Config struct {
	ModelPath      string  // Path to the YuNet ONNX model
	ScoreThreshold float64 // Minimum detection confidence
	InputWidth     int     // Model input width
	InputHeight    int     // Model input height
}

// DefaultConfig returns production defaults for YuNet.
func DefaultConfig() Config {
	return Config{
		ModelPath:      "models/face_detection_yunet.onnx",
		ScoreThreshold: 0.5,
		InputWidth:     320,
		InputHeight:    320,
	}
}

// detection is one face found in a frame.
type detection struct {
	confidence float64
	area       float64
	landmarks  Landmarks
}

// Analyzer is the gocv-backed facial-metrics producer. It implements both
// session.Source and session.Capturer so the frame returned by
// CaptureFrame is exactly the one the following NextObservation analyzes.
type Analyzer struct {
	detector gocv.FaceDetectorYN
	camera   *Camera
	cfg      Config

	mu   sync.Mutex
	last []byte // JPEG captured by CaptureFrame, pending analysis
}

// NewAnalyzer creates an analyzer over the given camera.
func NewAnalyzer(cfg Config, camera *Camera) (*Analyzer, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("face: model file not found: %s", cfg.ModelPath)
	}
	if camera == nil {
		return nil, fmt.Errorf("face: camera required")
	}

	detector := gocv.NewFaceDetectorYNWithParams(
		cfg.ModelPath,
		"", // no config file needed for ONNX
		image.Pt(cfg.InputWidth, cfg.InputHeight),
		float32(cfg.ScoreThreshold),
		0.3,  // NMS threshold
		5000, // top K
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)

	return &Analyzer{
		detector: detector,
		camera:   camera,
		cfg:      cfg,
	}, nil
}

// CaptureFrame implements session.Capturer.
func (a *Analyzer) CaptureFrame() (gesture.FrameRef, error) {
	jpeg, err := a.camera.ReadJPEG()
	if err != nil {
		return gesture.FrameRef{}, err
	}

	a.mu.Lock()
	a.last = jpeg
	a.mu.Unlock()

	return gesture.NewFrameRef(jpeg), nil
}

// NextObservation implements session.Source. It analyzes the frame most
// recently returned by CaptureFrame.
func (a *Analyzer) NextObservation(ctx context.Context) (gesture.Observation, error) {
	if err := ctx.Err(); err != nil {
		return gesture.Observation{}, err
	}

	a.mu.Lock()
	jpeg := a.last
	a.mu.Unlock()
	if len(jpeg) == 0 {
		return gesture.Observation{}, session.ErrNoFace
	}

	img, err := gocv.IMDecode(jpeg, gocv.IMReadColor)
	if err != nil {
		return gesture.Observation{}, fmt.Errorf("face: decode frame: %w", err)
	}
	defer img.Close()
	if img.Empty() {
		return gesture.Observation{}, session.ErrNoFace
	}

	best := a.detect(img)
	if best == nil {
		return gesture.Observation{}, session.ErrNoFace
	}

	lm := best.landmarks
	obs := gesture.Neutral()
	obs.YawDeg = lm.Yaw()
	obs.PitchDeg = lm.Pitch()
	obs.Smile = lm.Smile()
	obs.LeftEyeOpen = eyeOpenness(img, lm.LeftEye, lm.Interocular())
	obs.RightEyeOpen = eyeOpenness(img, lm.RightEye, lm.Interocular())
	return obs, nil
}

// detect runs YuNet and picks the best face.
func (a *Analyzer) detect(img gocv.Mat) *detection {
	a.detector.SetInputSize(image.Pt(img.Cols(), img.Rows()))

	faces := gocv.NewMat()
	defer faces.Close()
	a.detector.Detect(img, &faces)

	// YuNet output format (15 columns):
	// 0-3: x, y, w, h (bounding box in pixels)
	// 4-13: 5 facial landmarks (x,y pairs): right eye, left eye,
	//       nose tip, right mouth corner, left mouth corner
	// 14: face score
	var dets []detection
	for r := 0; r < faces.Rows(); r++ {
		w := float64(faces.GetFloatAt(r, 2))
		h := float64(faces.GetFloatAt(r, 3))

		pt := func(col int) Point {
			return Point{
				X: float64(faces.GetFloatAt(r, col)),
				Y: float64(faces.GetFloatAt(r, col+1)),
			}
		}

		dets = append(dets, detection{
			confidence: float64(faces.GetFloatAt(r, 14)),
			area:       w * h,
			landmarks: Landmarks{
				RightEye:   pt(4),
				LeftEye:    pt(6),
				NoseTip:    pt(8),
				MouthRight: pt(10),
				MouthLeft:  pt(12),
			},
		})
	}

	return bestFace(dets)
}

// bestFace picks the face to track when several are visible.
// Priority: confidence 0.7, area 0.3.
func bestFace(dets []detection) *detection {
	if len(dets) == 0 {
		return nil
	}
	if len(dets) == 1 {
		return &dets[0]
	}

	maxArea := 0.0
	for _, d := range dets {
		if d.area > maxArea {
			maxArea = d.area
		}
	}

	bestScore := -1.0
	var best *detection
	for i := range dets {
		score := dets[i].confidence * 0.7
		if maxArea > 0 {
			score += (dets[i].area / maxArea) * 0.3
		}
		if score > bestScore {
			bestScore = score
			best = &dets[i]
		}
	}
	return best
}

// Eye-region contrast bounds in gray levels. Closed lids are nearly
// uniform skin; open eyes add dark pupil and bright sclera edges.
const (
	eyeLowContrast  = 8.0
	eyeHighContrast = 40.0
)

// eyeOpenness scores how open an eye looks from local contrast around the
// eye landmark. This is a coarse stand-in for a dedicated eye-state model;
// the blink state machine's hysteresis absorbs its noise.
func eyeOpenness(img gocv.Mat, eye Point, iod float64) float64 {
	r := int(iod * 0.18)
	if r < 4 {
		r = 4
	}

	rect := image.Rect(int(eye.X)-r, int(eye.Y)-r, int(eye.X)+r, int(eye.Y)+r)
	rect = rect.Intersect(image.Rect(0, 0, img.Cols(), img.Rows()))
	if rect.Empty() {
		return 1.0 // off-frame: neutral default
	}

	roi := img.Region(rect)
	defer roi.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(roi, &gray, gocv.ColorBGRToGray)

	meanMat := gocv.NewMat()
	stdMat := gocv.NewMat()
	defer meanMat.Close()
	defer stdMat.Close()
	gocv.MeanStdDev(gray, &meanMat, &stdMat)

	std := stdMat.GetDoubleAt(0, 0)
	return clamp((std-eyeLowContrast)/(eyeHighContrast-eyeLowContrast), 0, 1)
}

// Close releases the detector. The camera is closed separately by its
// owner.
func (a *Analyzer) Close() error {
	a.detector.Close()
	return nil
}
