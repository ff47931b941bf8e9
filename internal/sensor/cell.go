package sensor

import (
	"errors"
	"sync"

	"github.com/stereosense/zedbridge/pkg/types"
)

var (
	// ErrNotReady is returned by snapshots taken before the first capture
	// cycle (or after a reset).
	ErrNotReady = errors.New("no frame captured yet")

	// ErrNotAvailable is returned by depth snapshots when depth capture was
	// not enabled at construction.
	ErrNotAvailable = errors.New("depth capture not enabled")
)

// Cell holds the latest image and depth frames. One writer (the acquisition
// loop) and any number of snapshot readers share a single exclusive lock, so
// a reader can never observe a half-written frame. The critical section is
// bounded: writers swap references, readers copy out.
type Cell struct {
	mu        sync.Mutex
	depthOn   bool
	image     types.Frame
	depth     types.Frame
	populated bool
}

// NewCell creates an empty cell. Depth snapshots stay unavailable unless
// depthEnabled is set.
func NewCell(depthEnabled bool) *Cell {
	return &Cell{depthOn: depthEnabled}
}

// Update replaces the stored frames. Producer-only; the frames handed in must
// not be mutated afterwards.
func (c *Cell) Update(image, depth types.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.image = image
	if c.depthOn {
		c.depth = depth
	}
	c.populated = true
}

// SnapshotImage returns a copy of the latest image frame. Mutating the copy
// never reaches the cell.
func (c *Cell) SnapshotImage() (types.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.populated {
		return types.Frame{}, ErrNotReady
	}
	return c.image.Clone(), nil
}

// SnapshotDepth returns a copy of the latest depth frame.
func (c *Cell) SnapshotDepth() (types.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.depthOn {
		return types.Frame{}, ErrNotAvailable
	}
	if !c.populated {
		return types.Frame{}, ErrNotReady
	}
	return c.depth.Clone(), nil
}

// Reset drops both frames; snapshots fail with ErrNotReady until the next
// update.
func (c *Cell) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.image = types.Frame{}
	c.depth = types.Frame{}
	c.populated = false
}
