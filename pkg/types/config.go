package types

import (
	"errors"
	"fmt"
	"strings"
)

// View selects which stereo eye the sensor captures.
type View string

const (
	ViewLeft  View = "left"
	ViewRight View = "right"
)

// Names of the shared frame regions published for out-of-process readers.
const (
	ImageBufferName = "zed_image"
	DepthBufferName = "zed_depth_map"
)

// ErrInvalidConfig marks a view/resolution/fps combination rejected at
// construction time.
var ErrInvalidConfig = errors.New("invalid sensor configuration")

type resolutionInfo struct {
	width  int
	height int
	fps    []int
}

// cameraInfo is the static compatibility table: each supported resolution,
// its native dimensions, and the FPS values the device accepts for it.
var cameraInfo = map[string]resolutionInfo{
	"720":  {width: 1280, height: 720, fps: []int{15, 30, 60}},
	"1080": {width: 1920, height: 1080, fps: []int{15, 30}},
	"2K":   {width: 2208, height: 1242, fps: []int{15}},
}

// Config fixes the capture parameters of a sensor. It is validated once at
// construction and never changes while the sensor runs.
type Config struct {
	Resolution   string
	FPS          int
	View         View
	DepthEnabled bool
}

// Validate checks the config against the compatibility table. The view is
// matched case-insensitively.
func (c Config) Validate() error {
	switch View(strings.ToLower(string(c.View))) {
	case ViewLeft, ViewRight:
	default:
		return fmt.Errorf("%w: unknown camera view %q", ErrInvalidConfig, c.View)
	}

	info, ok := cameraInfo[c.Resolution]
	if !ok {
		return fmt.Errorf("%w: unknown resolution %q", ErrInvalidConfig, c.Resolution)
	}

	for _, fps := range info.fps {
		if fps == c.FPS {
			return nil
		}
	}
	return fmt.Errorf("%w: fps %d not supported at resolution %s (allowed %v)",
		ErrInvalidConfig, c.FPS, c.Resolution, info.fps)
}

// Normalized returns the config with the view lower-cased.
func (c Config) Normalized() Config {
	c.View = View(strings.ToLower(string(c.View)))
	return c
}

// Dimensions returns the native frame size for the configured resolution, or
// zeros when the resolution is unknown.
func (c Config) Dimensions() (width, height int) {
	info, ok := cameraInfo[c.Resolution]
	if !ok {
		return 0, 0
	}
	return info.width, info.height
}

// OutputShape is the shape of the frames the sensor publishes: native
// dimensions with the alpha channel already dropped.
func (c Config) OutputShape() Shape {
	w, h := c.Dimensions()
	return Shape{Height: h, Width: w, Channels: OutputChannels}
}

// Resolutions lists the supported resolution keys.
func Resolutions() []string {
	keys := make([]string, 0, len(cameraInfo))
	for k := range cameraInfo {
		keys = append(keys, k)
	}
	return keys
}

// SupportedFPS returns the FPS values allowed for a resolution.
func SupportedFPS(resolution string) []int {
	info, ok := cameraInfo[resolution]
	if !ok {
		return nil
	}
	out := make([]int, len(info.fps))
	copy(out, info.fps)
	return out
}
