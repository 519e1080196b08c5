// Command example shows SnapView embedded in a capture pipeline.
//
// A synthetic producer stands in for the camera: it publishes a new frame
// every 100ms. Open http://localhost:8080 to watch the moving test pattern.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/snapview/snapview"
	"github.com/snapview/snapview/internal/testpattern"
)

func main() {
	sv, err := snapview.New(
		snapview.WithCameraName("test-pattern"),
		snapview.WithListenAddress("0.0.0.0:8080"),
		snapview.WithRefreshDelay(500*time.Millisecond),
	)
	if err != nil {
		slog.Error("failed to create image server", "error", err)
		os.Exit(1)
	}

	if err := sv.Start(); err != nil {
		slog.Error("failed to start image server", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gen := testpattern.New(640, 480)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := sv.Stop(stopCtx); err != nil {
				slog.Error("stop handshake failed", "error", err)
			}
			return
		case <-ticker.C:
			sv.Publish(gen.Next())
		}
	}
}
