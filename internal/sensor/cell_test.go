package sensor

import (
	"errors"
	"testing"

	"github.com/stereosense/zedbridge/pkg/types"
)

func testFrame(fill byte, kind types.FrameKind) types.Frame {
	data := make([]byte, 2*2*3)
	for i := range data {
		data[i] = fill
	}
	return types.Frame{Data: data, Width: 2, Height: 2, Channels: 3, Kind: kind}
}

func TestCellNotReadyBeforeUpdate(t *testing.T) {
	c := NewCell(true)
	if _, err := c.SnapshotImage(); !errors.Is(err, ErrNotReady) {
		t.Fatalf("SnapshotImage() = %v, want ErrNotReady", err)
	}
	if _, err := c.SnapshotDepth(); !errors.Is(err, ErrNotReady) {
		t.Fatalf("SnapshotDepth() = %v, want ErrNotReady", err)
	}
}

func TestCellDepthDisabled(t *testing.T) {
	c := NewCell(false)
	c.Update(testFrame(1, types.KindImage), types.Frame{})
	if _, err := c.SnapshotDepth(); !errors.Is(err, ErrNotAvailable) {
		t.Fatalf("SnapshotDepth() = %v, want ErrNotAvailable", err)
	}
}

func TestCellSnapshotIsACopy(t *testing.T) {
	c := NewCell(true)
	c.Update(testFrame(1, types.KindImage), testFrame(2, types.KindDepthMap))

	img, err := c.SnapshotImage()
	if err != nil {
		t.Fatalf("SnapshotImage() = %v", err)
	}
	img.Data[0] = 99

	again, err := c.SnapshotImage()
	if err != nil {
		t.Fatalf("second SnapshotImage() = %v", err)
	}
	if again.Data[0] != 1 {
		t.Fatalf("mutating a snapshot reached the cell: %d", again.Data[0])
	}
}

func TestCellUpdateReplaces(t *testing.T) {
	c := NewCell(true)
	c.Update(testFrame(1, types.KindImage), testFrame(1, types.KindDepthMap))
	c.Update(testFrame(2, types.KindImage), testFrame(3, types.KindDepthMap))

	img, err := c.SnapshotImage()
	if err != nil {
		t.Fatalf("SnapshotImage() = %v", err)
	}
	if img.Data[0] != 2 {
		t.Fatalf("image fill = %d, want 2", img.Data[0])
	}
	depth, err := c.SnapshotDepth()
	if err != nil {
		t.Fatalf("SnapshotDepth() = %v", err)
	}
	if depth.Data[0] != 3 {
		t.Fatalf("depth fill = %d, want 3", depth.Data[0])
	}
}

func TestCellReset(t *testing.T) {
	c := NewCell(false)
	c.Update(testFrame(1, types.KindImage), types.Frame{})
	c.Reset()
	if _, err := c.SnapshotImage(); !errors.Is(err, ErrNotReady) {
		t.Fatalf("SnapshotImage() after Reset = %v, want ErrNotReady", err)
	}
}
