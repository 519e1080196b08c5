package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/snapview/snapview/internal/render"
)

// Fixed paths of the HTTP surface.
const (
	// ImagePath is the raw snapshot endpoint, also substituted into the
	// viewer page as the image source.
	ImagePath = "/image.jpg"

	// ShutdownPath is the internal self-shutdown trigger. It is not part of
	// the public viewer contract; only the stop handshake uses it.
	ShutdownPath = "/__shutdown__"
)

const (
	// restartBackoff is the fixed delay between a listener failure and the
	// next serve attempt.
	restartBackoff = 1 * time.Second

	// shutdownTimeout bounds the graceful drain of in-flight requests.
	shutdownTimeout = 5 * time.Second
)

// templateFailurePause slows down repeated render failures: polling clients
// re-request the page immediately, and without the pause a missing template
// file turns into a hot error loop. Variable so tests can shorten it.
var templateFailurePause = 1 * time.Second

// FrameSource supplies the encoded bytes of the latest frame.
type FrameSource interface {
	Snapshot() ([]byte, error)
}

// Lifecycle is the server's view of the embedding lifecycle state machine.
//
// The serve loop consults Stopped to decide whether a listener failure is
// worth retrying; the shutdown handler consults ReadyToStop to reject
// spurious external POSTs and MarkStopped to finalize an armed stop.
type Lifecycle interface {
	// ReadyToStop reports whether an external stop call has armed shutdown.
	ReadyToStop() bool

	// MarkStopped finalizes shutdown. Returns false if the state was not
	// armed (e.g. a concurrent handler won the race).
	MarkStopped() bool

	// Stopped reports whether shutdown has been finalized.
	Stopped() bool
}

// Config carries the immutable values the router needs, captured once at
// bootstrap time.
type Config struct {
	Host string
	Port int

	// CameraName is the display name substituted into the viewer page.
	CameraName string

	// Width and Height are the frame dimensions, fixed for the server's
	// lifetime (read from the first published frame).
	Width  int
	Height int

	// DefaultDelaySecs is the viewer refresh delay used when a request
	// carries no delay parameter.
	DefaultDelaySecs float64

	// Verbose controls access logging for the snapshot route. When false,
	// snapshot request lines are demoted to debug level so polling clients
	// do not flood the log.
	Verbose bool
}

// Server runs the HTTP listener for the snapshot viewer.
//
// Server is constructed once the first frame's dimensions are known and then
// driven by [Server.Run] on a dedicated goroutine. All dependencies are
// explicit: the frame source, the page renderer, and the lifecycle guard are
// injected at construction.
type Server struct {
	frames    FrameSource
	renderer  *render.Renderer
	lifecycle Lifecycle
	cfg       Config
	logger    *slog.Logger

	// listen is swappable for fault-injection tests.
	listen func(network, address string) (net.Listener, error)

	mu         sync.Mutex
	httpServer *http.Server
	addr       string
}

// New creates a [Server]. It does not bind any socket; call [Server.Run].
func New(frames FrameSource, renderer *render.Renderer, lifecycle Lifecycle, cfg Config, logger *slog.Logger) *Server {
	return &Server{
		frames:    frames,
		renderer:  renderer,
		lifecycle: lifecycle,
		cfg:       cfg,
		logger:    logger,
		listen:    net.Listen,
	}
}

// Addr returns the bound listener address of the current serve attempt, or
// the empty string if no listener is active yet.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

func (s *Server) bindAddr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// Run serves HTTP until shutdown, restarting the listener on failure.
//
// Run blocks for the server's entire lifetime and is meant to be called on
// its own goroutine. A clean listener return (the shutdown handler fired)
// exits the loop. Any other failure is logged and retried after a fixed
// backoff, unless shutdown has been finalized in the meantime: the listener
// is expected to be long-lived, so crashes are treated as transient.
func (s *Server) Run() {
	for {
		err := s.serveOnce()
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			if s.lifecycle.Stopped() {
				s.logger.Info("http server shutdown", "addr", s.bindAddr())
			} else {
				s.logger.Warn("http server exited without a stop request", "addr", s.bindAddr())
			}
			return
		}

		s.logger.Error("http server failed, restarting",
			"addr", s.bindAddr(),
			"backoff", restartBackoff.String(),
			"error", err,
		)
		if s.lifecycle.Stopped() {
			return
		}
		time.Sleep(restartBackoff)
		if s.lifecycle.Stopped() {
			return
		}
	}
}

// serveOnce is one run attempt: bind, publish the active http.Server for the
// shutdown handler, and block in Serve.
func (s *Server) serveOnce() error {
	ln, err := s.listen("tcp", s.bindAddr())
	if err != nil {
		return fmt.Errorf("bind %s: %w", s.bindAddr(), err)
	}

	// a fresh http.Server per attempt: Shutdown poisons the old one
	hs := &http.Server{Handler: s.routes()}

	s.mu.Lock()
	s.httpServer = hs
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	return hs.Serve(ln)
}

// shutdownListener gracefully stops the active listener. It runs on its own
// goroutine, spawned by the shutdown handler after the response is written,
// because Shutdown waits for in-flight requests, including the very request
// that triggered it.
func (s *Server) shutdownListener() {
	s.mu.Lock()
	hs := s.httpServer
	s.mu.Unlock()
	if hs == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := hs.Shutdown(ctx); err != nil {
		s.logger.Error("http server shutdown error", "error", err)
	}
}
