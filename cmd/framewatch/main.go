// framewatch is a manual smoke-test reader for the shared frame exchange: it
// attaches to a named region from outside the sensor process, polls the
// latest frame, prints byte statistics, and can dump a BMP preview.
package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"log"
	"os"
	"time"

	"golang.org/x/image/bmp"

	"github.com/stereosense/zedbridge/internal/framebuf"
	"github.com/stereosense/zedbridge/pkg/types"
)

var (
	name        = flag.String("name", types.ImageBufferName, "Region name (zed_image, zed_depth_map)")
	width       = flag.Int("width", 1920, "Frame width")
	height      = flag.Int("height", 1080, "Frame height")
	channels    = flag.Int("channels", types.OutputChannels, "Channels per pixel")
	exchangeDir = flag.String("exchange-dir", ".", "Directory holding the shared frame regions")
	seqlock     = flag.Bool("seqlock", false, "Region is guarded by a sequence word")
	interval    = flag.Duration("interval", 500*time.Millisecond, "Poll interval")
	count       = flag.Int("count", 0, "Number of reads (0 = forever)")
	bmpPath     = flag.String("bmp", "", "Dump the latest frame as BMP to this path")
)

func main() {
	flag.Parse()

	var opts []framebuf.Option
	if *seqlock {
		opts = append(opts, framebuf.WithSeqlock())
	}
	exchange := framebuf.NewExchange(*exchangeDir, opts...)
	shape := types.Shape{Height: *height, Width: *width, Channels: *channels}

	for n := 0; *count == 0 || n < *count; n++ {
		if n > 0 {
			time.Sleep(*interval)
		}

		data, err := exchange.Read(*name, shape)
		if err != nil {
			if errors.Is(err, framebuf.ErrNotFound) {
				fmt.Printf("%s: not written yet\n", *name)
				continue
			}
			log.Fatalf("read %s: %v", *name, err)
		}

		lo, hi, mean := byteStats(data)
		fmt.Printf("%s %s  min=%d max=%d mean=%.1f\n", *name, shape, lo, hi, mean)

		if *bmpPath != "" {
			if err := dumpBMP(*bmpPath, data, shape); err != nil {
				log.Fatalf("dump %s: %v", *bmpPath, err)
			}
		}
	}
}

func byteStats(data []byte) (lo, hi byte, mean float64) {
	if len(data) == 0 {
		return 0, 0, 0
	}
	lo, hi = data[0], data[0]
	var sum uint64
	for _, b := range data {
		if b < lo {
			lo = b
		}
		if b > hi {
			hi = b
		}
		sum += uint64(b)
	}
	return lo, hi, float64(sum) / float64(len(data))
}

// dumpBMP writes the frame as a BMP preview. Frames arrive in the device's
// BGR channel order, so channels are swapped while filling the image.
func dumpBMP(path string, data []byte, shape types.Shape) error {
	if shape.Channels < 3 {
		return fmt.Errorf("need 3 channels for a preview, shape is %s", shape)
	}

	img := image.NewRGBA(image.Rect(0, 0, shape.Width, shape.Height))
	for y := 0; y < shape.Height; y++ {
		for x := 0; x < shape.Width; x++ {
			src := (y*shape.Width + x) * shape.Channels
			dst := img.PixOffset(x, y)
			img.Pix[dst+0] = data[src+2] // R
			img.Pix[dst+1] = data[src+1] // G
			img.Pix[dst+2] = data[src+0] // B
			img.Pix[dst+3] = 0xff
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return bmp.Encode(f, img)
}
