package framebuf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stereosense/zedbridge/pkg/types"
)

func testShape() types.Shape {
	return types.Shape{Height: 4, Width: 8, Channels: 3}
}

func patternFrame(shape types.Shape, seed byte) []byte {
	data := make([]byte, shape.Size())
	for i := range data {
		data[i] = seed + byte(i)
	}
	return data
}

func solidFrame(shape types.Shape, fill byte) []byte {
	data := make([]byte, shape.Size())
	for i := range data {
		data[i] = fill
	}
	return data
}

func TestExchangeRoundTrip(t *testing.T) {
	e := NewExchange(t.TempDir())
	shape := testShape()
	want := patternFrame(shape, 7)

	if err := e.Write("frame", want); err != nil {
		t.Fatalf("Write() = %v", err)
	}
	got, err := e.Read("frame", shape)
	if err != nil {
		t.Fatalf("Read() = %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("round-trip mismatch: got %v, want %v", got[:8], want[:8])
	}
}

func TestExchangeReadMissing(t *testing.T) {
	e := NewExchange(t.TempDir())
	_, err := e.Read("never_written", testShape())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Read(missing) = %v, want ErrNotFound", err)
	}
}

func TestExchangeReuseWithoutTruncate(t *testing.T) {
	dir := t.TempDir()
	e := NewExchange(dir)
	shape := testShape()

	if err := e.Write("frame", patternFrame(shape, 1)); err != nil {
		t.Fatalf("first Write() = %v", err)
	}
	second := patternFrame(shape, 42)
	if err := e.Write("frame", second); err != nil {
		t.Fatalf("second Write() = %v", err)
	}

	st, err := os.Stat(filepath.Join(dir, "frame"))
	if err != nil {
		t.Fatalf("stat region: %v", err)
	}
	if st.Size() != int64(shape.Size()) {
		t.Fatalf("region size = %d, want %d", st.Size(), shape.Size())
	}

	got, err := e.Read("frame", shape)
	if err != nil {
		t.Fatalf("Read() = %v", err)
	}
	if !bytes.Equal(got, second) {
		t.Fatalf("second write not visible")
	}
}

func TestExchangeReadIsACopy(t *testing.T) {
	e := NewExchange(t.TempDir())
	shape := testShape()
	if err := e.Write("frame", solidFrame(shape, 5)); err != nil {
		t.Fatalf("Write() = %v", err)
	}

	got, err := e.Read("frame", shape)
	if err != nil {
		t.Fatalf("Read() = %v", err)
	}
	got[0] = 99

	again, err := e.Read("frame", shape)
	if err != nil {
		t.Fatalf("second Read() = %v", err)
	}
	if again[0] != 5 {
		t.Fatalf("mutating a read result reached the region: %d", again[0])
	}
}

func TestExchangeRejectsShortRegion(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "frame"), []byte{1, 2, 3}, 0o644); err != nil {
		t.Fatalf("seed region: %v", err)
	}

	e := NewExchange(dir)
	_, err := e.Read("frame", testShape())
	if err == nil {
		t.Fatal("Read(short region) = nil, want error")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("Read(short region) = %v, want shape error", err)
	}
}

func TestExchangeSeqlockRoundTrip(t *testing.T) {
	e := NewExchange(t.TempDir(), WithSeqlock())
	shape := testShape()
	want := patternFrame(shape, 3)

	if err := e.Write("frame", want); err != nil {
		t.Fatalf("Write() = %v", err)
	}
	got, err := e.Read("frame", shape)
	if err != nil {
		t.Fatalf("Read() = %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatal("seqlock round-trip mismatch")
	}
}

func TestExchangeSeqlockHealsStaleSequence(t *testing.T) {
	dir := t.TempDir()
	shape := testShape()

	// Fake a writer that died mid-write: odd sequence word on disk.
	stale := make([]byte, seqWordSize+shape.Size())
	binary.LittleEndian.PutUint64(stale, 7)
	if err := os.WriteFile(filepath.Join(dir, "frame"), stale, 0o644); err != nil {
		t.Fatalf("seed region: %v", err)
	}

	e := NewExchange(dir, WithSeqlock())
	want := patternFrame(shape, 9)
	if err := e.Write("frame", want); err != nil {
		t.Fatalf("Write() = %v", err)
	}
	got, err := e.Read("frame", shape)
	if err != nil {
		t.Fatalf("Read() = %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatal("write after stale sequence not readable")
	}
}

func TestExchangeSeqlockCoherentUnderConcurrentWrites(t *testing.T) {
	e := NewExchange(t.TempDir(), WithSeqlock())
	shape := types.Shape{Height: 32, Width: 32, Channels: 3}

	if err := e.Write("frame", solidFrame(shape, 0)); err != nil {
		t.Fatalf("seed Write() = %v", err)
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := byte(1); ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			if err := e.Write("frame", solidFrame(shape, i)); err != nil {
				t.Errorf("Write() = %v", err)
				return
			}
		}
	}()

	for i := 0; i < 200; i++ {
		got, err := e.Read("frame", shape)
		if err != nil {
			if errors.Is(err, ErrBusy) {
				continue
			}
			t.Fatalf("Read() = %v", err)
		}
		for j, b := range got {
			if b != got[0] {
				t.Fatalf("torn read: byte %d is %d, byte 0 is %d", j, b, got[0])
			}
		}
	}

	close(stop)
	wg.Wait()
}
