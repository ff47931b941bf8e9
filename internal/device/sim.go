package device

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/stereosense/zedbridge/pkg/types"
)

// Sim is a deterministic in-memory Source for tests and demos. Every pull
// fills the whole image with the low byte of its sequence number, so a
// coherent frame is uniform and frames from different pulls are
// distinguishable. Failures can be scripted per pull index.
type Sim struct {
	// FailOpen makes Open fail with ErrActivation.
	FailOpen bool

	// FailAtPull is the 1-based pull index that fails with ErrCapture.
	// Zero means pulls never fail.
	FailAtPull int

	mu     sync.Mutex
	open   bool
	depth  bool
	width  int
	height int
	pulls  int

	inFlight   atomic.Int32
	overlapped atomic.Bool
}

// Open records the negotiated geometry. Fails when FailOpen is set.
func (s *Sim) Open(cfg types.Config) error {
	if s.FailOpen {
		return fmt.Errorf("%w: simulated open failure", ErrActivation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width, s.height = cfg.Dimensions()
	s.depth = cfg.DepthEnabled
	s.open = true
	s.pulls = 0
	return nil
}

// Pull returns the next synthetic frame pair, or a scripted capture failure.
func (s *Sim) Pull(view types.View) (types.Frame, types.Frame, error) {
	if s.inFlight.Add(1) > 1 {
		s.overlapped.Store(true)
	}
	defer s.inFlight.Add(-1)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return types.Frame{}, types.Frame{}, fmt.Errorf("%w: device not open", ErrCapture)
	}
	s.pulls++
	if s.FailAtPull > 0 && s.pulls >= s.FailAtPull {
		return types.Frame{}, types.Frame{}, fmt.Errorf("%w: simulated grab failure on pull %d", ErrCapture, s.pulls)
	}

	fill := byte(s.pulls)
	image := s.solid(fill, types.KindImage)
	var depth types.Frame
	if s.depth {
		depth = s.solid(fill, types.KindDepthMap)
	}
	return image, depth, nil
}

// Close marks the device released.
func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
	return nil
}

// Pulls returns how many pulls have been attempted since Open.
func (s *Sim) Pulls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pulls
}

// Overlapped reports whether two pulls ever ran concurrently. A sensor with a
// single acquisition worker must never trip this.
func (s *Sim) Overlapped() bool {
	return s.overlapped.Load()
}

func (s *Sim) solid(fill byte, kind types.FrameKind) types.Frame {
	data := make([]byte, s.width*s.height*types.DeviceChannels)
	for i := range data {
		data[i] = fill
	}
	return types.Frame{
		Data:     data,
		Width:    s.width,
		Height:   s.height,
		Channels: types.DeviceChannels,
		Kind:     kind,
	}
}
