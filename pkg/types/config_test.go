package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidateSupportedPairs(t *testing.T) {
	for _, res := range Resolutions() {
		for _, fps := range SupportedFPS(res) {
			cfg := Config{Resolution: res, FPS: fps, View: ViewLeft}
			if err := cfg.Validate(); err != nil {
				t.Errorf("Validate(%s@%d) = %v, want nil", res, fps, err)
			}
		}
	}
}

func TestValidateRejectedPairs(t *testing.T) {
	cases := []Config{
		{Resolution: "1080", FPS: 60, View: ViewLeft},
		{Resolution: "2K", FPS: 30, View: ViewLeft},
		{Resolution: "720", FPS: 24, View: ViewLeft},
		{Resolution: "4K", FPS: 15, View: ViewLeft},
		{Resolution: "1080", FPS: 15, View: "center"},
	}
	for _, cfg := range cases {
		t.Run(fmt.Sprintf("%s@%d/%s", cfg.Resolution, cfg.FPS, cfg.View), func(t *testing.T) {
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestValidateViewCaseInsensitive(t *testing.T) {
	cfg := Config{Resolution: "720", FPS: 30, View: "LEFT"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate(view=LEFT) = %v, want nil", err)
	}
	if got := cfg.Normalized().View; got != ViewLeft {
		t.Fatalf("Normalized().View = %q, want %q", got, ViewLeft)
	}
}

func TestDimensions(t *testing.T) {
	cases := []struct {
		res  string
		w, h int
	}{
		{"720", 1280, 720},
		{"1080", 1920, 1080},
		{"2K", 2208, 1242},
	}
	for _, c := range cases {
		cfg := Config{Resolution: c.res}
		w, h := cfg.Dimensions()
		if w != c.w || h != c.h {
			t.Errorf("Dimensions(%s) = %dx%d, want %dx%d", c.res, w, h, c.w, c.h)
		}
	}
}

func TestOutputShape(t *testing.T) {
	cfg := Config{Resolution: "1080"}
	shape := cfg.OutputShape()
	want := Shape{Height: 1080, Width: 1920, Channels: OutputChannels}
	if shape != want {
		t.Fatalf("OutputShape() = %v, want %v", shape, want)
	}
	if shape.Size() != 1080*1920*3 {
		t.Fatalf("Size() = %d, want %d", shape.Size(), 1080*1920*3)
	}
}

func TestFrameCloneIsIndependent(t *testing.T) {
	f := Frame{Data: []byte{1, 2, 3}, Width: 1, Height: 1, Channels: 3, Kind: KindImage}
	c := f.Clone()
	c.Data[0] = 99
	if f.Data[0] != 1 {
		t.Fatalf("mutating clone changed the original: %v", f.Data)
	}
}
