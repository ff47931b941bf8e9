// Package sensor implements the continuous-capture pipeline: a single
// acquisition goroutine pulls frames from a device Source, keeps the latest
// pair in a Cell for in-process snapshots, and publishes the raw bytes into
// the shared frame exchange for out-of-process readers.
package sensor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stereosense/zedbridge/internal/device"
	"github.com/stereosense/zedbridge/internal/framebuf"
	"github.com/stereosense/zedbridge/internal/logger"
	"github.com/stereosense/zedbridge/internal/metrics"
	"github.com/stereosense/zedbridge/pkg/types"
)

// DefaultInterval paces the acquisition loop below the device's native frame
// interval to bound CPU usage. The loop is not frame-rate-locked to the
// device's reported FPS.
const DefaultInterval = 60 * time.Millisecond

// Sensor owns the device handle, the latest-frame cell and the single
// acquisition worker. Configuration is fixed and validated at construction;
// runtime state is Stopped or Running.
type Sensor struct {
	cfg      types.Config
	src      device.Source
	exchange *framebuf.Exchange
	cell     *Cell
	interval time.Duration
	metrics  *metrics.Metrics

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	errMu   sync.Mutex
	loopErr error
}

// Option configures a Sensor.
type Option func(*Sensor)

// WithExchange overrides the default exchange (regions in the working
// directory, no seqlock).
func WithExchange(e *framebuf.Exchange) Option {
	return func(s *Sensor) { s.exchange = e }
}

// WithInterval overrides the pacing interval between capture cycles.
func WithInterval(d time.Duration) Option {
	return func(s *Sensor) { s.interval = d }
}

// WithMetrics attaches an instrumentation sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sensor) { s.metrics = m }
}

// New validates cfg against the compatibility table and returns a stopped
// sensor. Validation failures wrap types.ErrInvalidConfig and leave nothing
// partially constructed.
func New(cfg types.Config, src device.Source, opts ...Option) (*Sensor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Sensor{
		cfg:      cfg.Normalized(),
		src:      src,
		cell:     NewCell(cfg.DepthEnabled),
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.exchange == nil {
		s.exchange = framebuf.NewExchange("")
	}
	return s, nil
}

// Start opens the device, runs one synchronous capture cycle so a caller can
// snapshot immediately after it returns, and spawns the acquisition worker.
// Calling Start on a running sensor is a logged no-op.
func (s *Sensor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		logger.Info("Sensor", "already running, ignoring Start")
		return nil
	}

	if err := s.src.Open(s.cfg); err != nil {
		return fmt.Errorf("open device: %w", err)
	}

	// Populate the cell before returning so the first snapshot never races
	// the worker.
	if err := s.cycle(); err != nil {
		s.src.Close()
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.setErr(nil)
	s.running = true
	if s.metrics != nil {
		s.metrics.SetRunning(true)
	}
	go s.run(ctx, s.done)

	logger.Info("Sensor", "camera sensor started (%s@%dfps, view=%s, depth=%v)",
		s.cfg.Resolution, s.cfg.FPS, s.cfg.View, s.cfg.DepthEnabled)
	return nil
}

// Stop cancels the worker, waits for it to exit, releases the device and
// clears the cell. Safe on a sensor that never started and safe to call
// twice; the shared regions are left in place for late readers.
func (s *Sensor) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.cancel()
	<-s.done
	s.cancel = nil
	s.running = false
	if s.metrics != nil {
		s.metrics.SetRunning(false)
	}

	err := s.src.Close()
	s.cell.Reset()
	logger.Info("Sensor", "camera sensor stopped")
	if err != nil {
		return fmt.Errorf("close device: %w", err)
	}
	return nil
}

// Running reports whether Start succeeded and Stop has not been called. It
// stays true after a terminal capture failure until Stop releases the device.
func (s *Sensor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Done returns a channel closed when the acquisition worker exits, whether
// through Stop or a capture failure. It is nil before the first Start.
func (s *Sensor) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Err reports the terminal capture error, or nil while the loop is healthy.
func (s *Sensor) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.loopErr
}

func (s *Sensor) setErr(err error) {
	s.errMu.Lock()
	s.loopErr = err
	s.errMu.Unlock()
}

// GetImageFrame returns a copy of the most recent image frame.
func (s *Sensor) GetImageFrame() (types.Frame, error) {
	if s.metrics != nil {
		s.metrics.SnapshotReads.Add(1)
	}
	return s.cell.SnapshotImage()
}

// GetDepthMap returns a copy of the most recent depth visualization frame.
func (s *Sensor) GetDepthMap() (types.Frame, error) {
	if s.metrics != nil {
		s.metrics.SnapshotReads.Add(1)
	}
	return s.cell.SnapshotDepth()
}

// run is the acquisition loop. A pull failure is terminal: the worker records
// it and exits without retrying, leaving the device to be released by Stop.
func (s *Sensor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := s.cycle(); err != nil {
			s.setErr(err)
			logger.Error("Sensor", "acquisition stopped: %v", err)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.interval):
		}
	}
}

// cycle runs one pull-update-publish pass. In-process state is updated
// strictly before the cross-process publish, so a snapshot reader and a
// mapped-region reader may briefly disagree.
func (s *Sensor) cycle() error {
	start := time.Now()

	image, depth, err := s.src.Pull(s.cfg.View)
	if err != nil {
		if s.metrics != nil {
			s.metrics.CaptureErrors.Add(1)
		}
		return fmt.Errorf("pull %s view: %w", s.cfg.View, err)
	}

	image = dropAlpha(image)
	if s.cfg.DepthEnabled {
		depth = dropAlpha(depth)
	}

	s.cell.Update(image, depth)

	s.publish(types.ImageBufferName, image.Data)
	if s.cfg.DepthEnabled {
		s.publish(types.DepthBufferName, depth.Data)
	}

	if s.metrics != nil {
		s.metrics.ObserveCycle(time.Since(start))
	}
	return nil
}

// publish writes one frame into a named region. Publish failures do not kill
// the loop: the in-process path stays healthy and the error is counted.
func (s *Sensor) publish(name string, data []byte) {
	if err := s.exchange.Write(name, data); err != nil {
		if s.metrics != nil {
			s.metrics.PublishErrors.Add(1)
		}
		logger.Warn("Sensor", "publish %s: %v", name, err)
	}
}

// dropAlpha narrows a 4-channel device buffer to the 3 color channels
// consumers expect. Buffers already carrying 3 channels pass through.
func dropAlpha(f types.Frame) types.Frame {
	if f.Channels != types.DeviceChannels {
		return f
	}
	pixels := f.Width * f.Height
	out := make([]byte, pixels*types.OutputChannels)
	for p := 0; p < pixels; p++ {
		copy(out[p*types.OutputChannels:(p+1)*types.OutputChannels], f.Data[p*types.DeviceChannels:])
	}
	f.Data = out
	f.Channels = types.OutputChannels
	return f
}
