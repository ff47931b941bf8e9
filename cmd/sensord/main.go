package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/stereosense/zedbridge/internal/device"
	"github.com/stereosense/zedbridge/internal/framebuf"
	"github.com/stereosense/zedbridge/internal/logger"
	"github.com/stereosense/zedbridge/internal/metrics"
	"github.com/stereosense/zedbridge/internal/sensor"
	"github.com/stereosense/zedbridge/pkg/types"
)

var (
	// Command-line flags
	resolution  = flag.String("resolution", "1080", "Camera resolution (720, 1080, 2K)")
	fps         = flag.Int("fps", 30, "Camera FPS (must be allowed for the resolution)")
	view        = flag.String("view", "left", "Stereo view (left, right)")
	depth       = flag.Bool("depth", true, "Enable depth capture")
	sourceKind  = flag.String("source", "sim", "Frame source (sim, webcam)")
	cameraID    = flag.Int("camera", 0, "Webcam device index")
	exchangeDir = flag.String("exchange-dir", ".", "Directory for shared frame regions")
	seqlock     = flag.Bool("seqlock", false, "Guard shared regions with a sequence word")
	interval    = flag.Duration("interval", sensor.DefaultInterval, "Pacing interval between capture cycles")
	httpAddr    = flag.String("http", ":8081", "Health endpoint address")
	metricsAddr = flag.String("metrics", ":9090", "Metrics server address")
	logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error, silent)")
	logColor    = flag.Bool("log-color", true, "Enable colored log output")
)

func main() {
	flag.Parse()

	level, err := logger.ParseLevel(*logLevel)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	logger.Init(level, os.Stderr, *logColor)

	cfg := types.Config{
		Resolution:   *resolution,
		FPS:          *fps,
		View:         types.View(*view),
		DepthEnabled: *depth,
	}

	src, err := newSource(*sourceKind, *cameraID)
	if err != nil {
		log.Fatalf("Invalid source: %v", err)
	}

	var exchangeOpts []framebuf.Option
	if *seqlock {
		exchangeOpts = append(exchangeOpts, framebuf.WithSeqlock())
	}
	exchange := framebuf.NewExchange(*exchangeDir, exchangeOpts...)

	m := metrics.New()
	sens, err := sensor.New(cfg, src,
		sensor.WithExchange(exchange),
		sensor.WithInterval(*interval),
		sensor.WithMetrics(m),
	)
	if err != nil {
		log.Fatalf("Invalid sensor configuration: %v", err)
	}

	// Metrics server
	go func() {
		logger.Info("Main", "metrics server on %s", *metricsAddr)
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
			logger.Error("Main", "metrics server: %v", err)
		}
	}()

	// Health server
	go func() {
		logger.Info("Main", "health endpoint on %s", *httpAddr)
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			status := map[string]interface{}{
				"status":  "ok",
				"running": sens.Running(),
			}
			if err := sens.Err(); err != nil {
				status["status"] = "degraded"
				status["error"] = err.Error()
			}
			json.NewEncoder(w).Encode(status)
		})
		if err := http.ListenAndServe(*httpAddr, mux); err != nil {
			logger.Error("Main", "health server: %v", err)
		}
	}()

	if err := sens.Start(); err != nil {
		log.Fatalf("Failed to start sensor: %v", err)
	}

	w, h := cfg.Dimensions()
	logger.Info("Main", "publishing %s (%dx%dx%d) under %s", types.ImageBufferName, w, h, types.OutputChannels, *exchangeDir)
	if cfg.DepthEnabled {
		logger.Info("Main", "publishing %s (%dx%dx%d) under %s", types.DepthBufferName, w, h, types.OutputChannels, *exchangeDir)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Main", "received %s, shutting down", sig)
	case <-sens.Done():
		logger.Error("Main", "acquisition loop exited: %v", sens.Err())
	}

	terminal := sens.Err()
	if err := sens.Stop(); err != nil {
		logger.Error("Main", "shutdown: %v", err)
	}
	if terminal != nil {
		// Leave a non-zero exit so a supervisor restarts the daemon.
		fmt.Fprintf(os.Stderr, "sensord: %v\n", terminal)
		os.Exit(1)
	}
}

func newSource(kind string, cameraID int) (device.Source, error) {
	switch kind {
	case "sim":
		return &device.Sim{}, nil
	case "webcam":
		return &device.Webcam{DeviceID: cameraID}, nil
	default:
		return nil, fmt.Errorf("unknown source %q (want sim or webcam)", kind)
	}
}
