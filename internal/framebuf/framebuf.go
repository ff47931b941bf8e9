// Package framebuf implements the named shared-frame exchange: each region
// holds exactly one frame, memory-mapped from a file so that any process
// knowing the name and shape can attach. There is no broker, no queue and no
// socket between writer and readers.
//
// The default mode carries no synchronization at all: a reader that overlaps
// a write may observe bytes from two different frames (a torn read). That is
// the documented fast path. Callers that need coherent cross-process reads
// enable seqlock mode on both sides, which prefixes the region with a
// sequence word and makes readers retry while a write is in flight.
package framebuf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/stereosense/zedbridge/pkg/types"
)

var (
	// ErrNotFound is returned by Read when the named region has never been
	// written.
	ErrNotFound = errors.New("shared frame buffer not found")

	// ErrBusy is returned by seqlock reads that kept colliding with the
	// writer and never observed a stable frame.
	ErrBusy = errors.New("shared frame buffer busy")
)

const (
	// seqWordSize is the sequence counter prefix in seqlock mode.
	seqWordSize = 8

	// seqReadRetries bounds how often a seqlock read retries before giving
	// up with ErrBusy.
	seqReadRetries = 64
)

// Exchange resolves region names against a base directory. The zero-value
// modes match the source design: no locking, regions created on first write
// and reused (never truncated, never deleted) afterwards.
type Exchange struct {
	dir     string
	seqlock bool
}

// Option configures an Exchange.
type Option func(*Exchange)

// WithSeqlock turns on the sequence-word protocol. Writer and reader must
// agree on this mode the same way they agree on shape; mixing modes on one
// region is undefined.
func WithSeqlock() Option {
	return func(e *Exchange) { e.seqlock = true }
}

// NewExchange creates an exchange rooted at dir. An empty dir means the
// current working directory.
func NewExchange(dir string, opts ...Option) *Exchange {
	if dir == "" {
		dir = "."
	}
	e := &Exchange{dir: dir}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Exchange) path(name string) string {
	return filepath.Join(e.dir, name)
}

// regionSize is the on-disk size a payload of n bytes needs in this mode.
func (e *Exchange) regionSize(n int) int {
	if e.seqlock {
		return n + seqWordSize
	}
	return n
}

// Write copies data into the named region in full. The backing file is
// created on first use and grown when the payload outgrows it, but an
// existing region is reused as-is: it is never truncated down and never
// deleted, so it outlives the writing process.
func (e *Exchange) Write(name string, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("region %s: empty payload", name)
	}
	size := e.regionSize(len(data))

	f, err := os.OpenFile(e.path(name), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open region %s: %w", name, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat region %s: %w", name, err)
	}
	if st.Size() < int64(size) {
		if err := f.Truncate(int64(size)); err != nil {
			return fmt.Errorf("grow region %s: %w", name, err)
		}
	}

	m, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("map region %s: %w", name, err)
	}
	defer unix.Munmap(m)

	if !e.seqlock {
		copy(m, data)
		return nil
	}

	seq := (*atomic.Uint64)(unsafe.Pointer(&m[0]))
	s := seq.Load()
	if s%2 != 0 {
		// A previous writer died mid-write; heal the in-flight marker.
		s++
	}
	seq.Store(s + 1) // odd: write in flight
	copy(m[seqWordSize:], data)
	seq.Store(s + 2) // even: frame complete
	return nil
}

// Read returns a copy of the named region interpreted per shape. It fails
// with ErrNotFound when the region has never been written and rejects
// regions shorter than the shape requires rather than faulting on a
// mismatched mapping.
//
// In default mode the mapping is private (copy-on-write), so a reader can
// never dirty the backing file. In seqlock mode the region is mapped shared
// read-only and the copy retries until it observes a stable sequence word.
func (e *Exchange) Read(name string, shape types.Shape) ([]byte, error) {
	size := shape.Size()
	if size <= 0 {
		return nil, fmt.Errorf("region %s: invalid shape %s", name, shape)
	}
	total := e.regionSize(size)

	f, err := os.Open(e.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("region %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("open region %s: %w", name, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat region %s: %w", name, err)
	}
	if st.Size() < int64(total) {
		return nil, fmt.Errorf("region %s holds %d bytes, shape %s needs %d",
			name, st.Size(), shape, total)
	}

	flags := unix.MAP_PRIVATE
	if e.seqlock {
		// Seqlock readers must see the writer's stores as they land.
		flags = unix.MAP_SHARED
	}
	m, err := unix.Mmap(int(f.Fd()), 0, total, unix.PROT_READ, flags)
	if err != nil {
		return nil, fmt.Errorf("map region %s: %w", name, err)
	}
	defer unix.Munmap(m)

	out := make([]byte, size)
	if !e.seqlock {
		copy(out, m)
		return out, nil
	}

	seq := (*atomic.Uint64)(unsafe.Pointer(&m[0]))
	for i := 0; i < seqReadRetries; i++ {
		before := seq.Load()
		if before%2 != 0 {
			runtime.Gosched()
			continue
		}
		copy(out, m[seqWordSize:])
		if seq.Load() == before {
			return out, nil
		}
		runtime.Gosched()
	}
	return nil, fmt.Errorf("region %s: %w", name, ErrBusy)
}
