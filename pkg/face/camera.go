package face

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Camera wraps a gocv capture device and hands out JPEG frames.
// Safe for use from the frame loop plus a dashboard broadcaster.
type Camera struct {
	mu  sync.Mutex
	cap *gocv.VideoCapture
	mat gocv.Mat
}

// OpenCamera opens the capture device with the given index.
func OpenCamera(deviceID int) (*Camera, error) {
	cap, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, fmt.Errorf("face: open camera %d: %w", deviceID, err)
	}
	return &Camera{cap: cap, mat: gocv.NewMat()}, nil
}

// ReadJPEG grabs the next frame and encodes it as JPEG.
func (c *Camera) ReadJPEG() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ok := c.cap.Read(&c.mat); !ok || c.mat.Empty() {
		return nil, fmt.Errorf("face: camera returned no frame")
	}

	buf, err := gocv.IMEncode(".jpg", c.mat)
	if err != nil {
		return nil, fmt.Errorf("face: encode frame: %w", err)
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	return data, nil
}

// Close releases the capture device.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mat.Close()
	return c.cap.Close()
}
