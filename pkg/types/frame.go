package types

import "fmt"

// FrameKind distinguishes the two sample types the sensor produces.
type FrameKind int

const (
	KindImage FrameKind = iota
	KindDepthMap
)

// String returns a human-readable kind name.
func (k FrameKind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindDepthMap:
		return "depth_map"
	default:
		return "unknown"
	}
}

// Channel counts on the two sides of the acquisition loop. The vendor driver
// delivers 4-channel (BGRA) buffers; the alpha channel is dropped before a
// frame reaches any consumer.
const (
	DeviceChannels = 4
	OutputChannels = 3
)

// Frame is one fully formed image or depth sample: row-major, one byte per
// channel. A frame is immutable once produced; callers that need to modify
// pixel data work on a Clone.
type Frame struct {
	Data     []byte
	Width    int
	Height   int
	Channels int
	Kind     FrameKind
}

// Clone returns a copy of the frame with its own backing bytes.
func (f Frame) Clone() Frame {
	data := make([]byte, len(f.Data))
	copy(data, f.Data)
	f.Data = data
	return f
}

// Shape returns the frame's layout as (height, width, channels).
func (f Frame) Shape() Shape {
	return Shape{Height: f.Height, Width: f.Width, Channels: f.Channels}
}

// Shape describes the byte layout of a frame region. Writer and reader of a
// shared buffer must agree on it out-of-band; it is never stored in the
// region itself.
type Shape struct {
	Height   int
	Width    int
	Channels int
}

// Size returns the number of bytes a frame of this shape occupies.
func (s Shape) Size() int {
	return s.Height * s.Width * s.Channels
}

// String formats the shape as HxWxC.
func (s Shape) String() string {
	return fmt.Sprintf("%dx%dx%d", s.Height, s.Width, s.Channels)
}
