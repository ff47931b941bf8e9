// Package device abstracts the stereo camera behind a minimal capability
// contract so the acquisition loop can run against real hardware or a
// simulator without changes.
package device

import (
	"errors"

	"github.com/stereosense/zedbridge/pkg/types"
)

var (
	// ErrActivation marks a device that failed to open. There is no
	// automatic retry; recovery is operator-level (replug the camera).
	ErrActivation = errors.New("camera activation failed")

	// ErrCapture marks a grab that returned no frame while running. The
	// acquisition loop treats it as a hard device fault and exits.
	ErrCapture = errors.New("image capture failed")
)

// Source is the capability contract of the camera driver. Implementations
// deliver 4-channel buffers in the vendor's layout; the caller owns dropping
// the alpha channel before frames reach consumers.
type Source interface {
	// Open negotiates resolution, fps and depth mode with the device.
	// A failure wraps ErrActivation.
	Open(cfg types.Config) error

	// Pull blocks for one grab and returns the current image for the
	// requested view and, when depth was enabled at Open, the rendered
	// depth visualization. A failure wraps ErrCapture.
	Pull(view types.View) (image, depth types.Frame, err error)

	// Close releases the device. Safe to call on a closed source.
	Close() error
}
