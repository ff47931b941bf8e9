package device

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"github.com/stereosense/zedbridge/internal/logger"
	"github.com/stereosense/zedbridge/pkg/types"
)

// Webcam adapts a plain UVC camera to the Source contract via GoCV. It has
// no depth pipeline, so opening it with depth enabled fails activation.
// Frames are converted to BGRA before returning to honor the 4-channel
// device contract.
type Webcam struct {
	// DeviceID is the V4L2 device index (0 for /dev/video0).
	DeviceID int

	mu     sync.Mutex
	cap    *gocv.VideoCapture
	width  int
	height int
}

// Open acquires the capture device and requests the configured geometry.
// The camera may negotiate a different size; the actual one is used.
func (w *Webcam) Open(cfg types.Config) error {
	if cfg.DepthEnabled {
		return fmt.Errorf("%w: webcam source has no depth pipeline", ErrActivation)
	}

	vc, err := gocv.OpenVideoCapture(w.DeviceID)
	if err != nil {
		return fmt.Errorf("%w: device %d: %v", ErrActivation, w.DeviceID, err)
	}

	width, height := cfg.Dimensions()
	vc.Set(gocv.VideoCaptureFrameWidth, float64(width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(height))
	vc.Set(gocv.VideoCaptureFPS, float64(cfg.FPS))

	actualW := int(vc.Get(gocv.VideoCaptureFrameWidth))
	actualH := int(vc.Get(gocv.VideoCaptureFrameHeight))
	if actualW != width || actualH != height {
		logger.Warn("Webcam", "device %d negotiated %dx%d instead of %dx%d",
			w.DeviceID, actualW, actualH, width, height)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.cap = vc
	w.width = actualW
	w.height = actualH
	return nil
}

// Pull grabs one frame. The view parameter is accepted for contract
// compatibility; a mono camera has a single view.
func (w *Webcam) Pull(view types.View) (types.Frame, types.Frame, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cap == nil {
		return types.Frame{}, types.Frame{}, fmt.Errorf("%w: device not open", ErrCapture)
	}

	img := gocv.NewMat()
	defer img.Close()
	if ok := w.cap.Read(&img); !ok || img.Empty() {
		return types.Frame{}, types.Frame{}, fmt.Errorf("%w: device %d returned no frame", ErrCapture, w.DeviceID)
	}

	bgra := gocv.NewMat()
	defer bgra.Close()
	gocv.CvtColor(img, &bgra, gocv.ColorBGRToBGRA)

	data, err := bgra.DataPtrUint8()
	if err != nil {
		return types.Frame{}, types.Frame{}, fmt.Errorf("%w: device %d: %v", ErrCapture, w.DeviceID, err)
	}
	frame := types.Frame{
		Data:     append([]byte(nil), data...),
		Width:    bgra.Cols(),
		Height:   bgra.Rows(),
		Channels: types.DeviceChannels,
		Kind:     types.KindImage,
	}
	return frame, types.Frame{}, nil
}

// Close releases the capture device.
func (w *Webcam) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cap == nil {
		return nil
	}
	err := w.cap.Close()
	w.cap = nil
	return err
}
