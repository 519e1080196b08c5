package snapview

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/snapview/snapview/internal/render"
	"github.com/snapview/snapview/internal/server"
	"github.com/snapview/snapview/internal/store"
	"github.com/snapview/snapview/viewer"
)

const (
	defaultCameraName   = "camera"
	defaultPort         = 8080
	defaultRefreshDelay = 1 * time.Second
	defaultJPEGQuality  = 90
)

// Stop handshake tuning. The confirming POST is retried because the listener
// may be mid-restart-backoff when Stop is called; without retries the
// handshake would silently fail in exactly that window.
const (
	stopAttempts       = 3
	stopRetryDelay     = 500 * time.Millisecond
	stopRequestTimeout = 2 * time.Second
)

// Sentinel errors for lifecycle misuse. All are logged no-ops: the embedding
// pipeline keeps running regardless.
var (
	// ErrDisabled is returned by Start when the listen address is empty.
	ErrDisabled = errors.New("image server disabled: empty listen address")

	// ErrAlreadyStarted is returned by a second Start call.
	ErrAlreadyStarted = errors.New("image server already started")
)

// Server publishes the most recent camera frame over HTTP.
//
// Server is embedded in a capture pipeline: the pipeline calls
// [Server.Publish] on every new frame, and independent HTTP clients poll the
// auto-refreshing viewer page or fetch the raw image directly. It is created
// with [New] using functional options.
//
// The typical lifecycle is:
//
//	sv, err := snapview.New(
//	    snapview.WithCameraName("front-door"),
//	    snapview.WithListenAddress("0.0.0.0:8080"),
//	)
//	if err != nil {
//	    slog.Error("failed to create image server", "error", err)
//	    os.Exit(1)
//	}
//
//	sv.Start()                  // arms the server; no socket is bound yet
//	for frame := range frames {
//	    sv.Publish(frame)       // first frame launches the listener
//	}
//	sv.Stop(context.Background())
//
// The HTTP listener is launched lazily by the first Publish call, because the
// viewer page embeds the frame's pixel dimensions and those are unknown until
// a frame exists.
type Server struct {
	cameraName   string
	listenAddr   string
	host         string
	port         int
	refreshDelay time.Duration
	templateFile string
	verbose      bool
	logger       *slog.Logger

	state    *stateMachine
	launched atomic.Bool
	frames   *store.FrameStore

	mu  sync.Mutex
	web *server.Server
}

// New creates a new [Server] instance with the given options.
//
// All options have defaults:
//   - Camera name: "camera"
//   - Listen address: "" (server disabled until one is set)
//   - Refresh delay: 1 second
//   - Encoder: JPEG at quality 90
//   - Viewer template: embedded default page
//
// Returns an error if any option is invalid.
func New(opts ...Option) (*Server, error) {
	cfg := &svConfig{
		cameraName:   defaultCameraName,
		refreshDelay: defaultRefreshDelay,
		jpegQuality:  defaultJPEGQuality,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	encoder := cfg.encoder
	if encoder == nil {
		encoder = JPEGEncoder(cfg.jpegQuality)
	}

	var host string
	var port int
	if cfg.listenAddr != "" {
		var err error
		host, port, err = splitListenAddress(cfg.listenAddr)
		if err != nil {
			return nil, err
		}
	}

	return &Server{
		cameraName:   cfg.cameraName,
		listenAddr:   cfg.listenAddr,
		host:         host,
		port:         port,
		refreshDelay: cfg.refreshDelay,
		templateFile: cfg.templateFile,
		verbose:      cfg.verbose,
		logger:       logger,
		state:        newStateMachine(),
		frames:       store.New(store.EncodeFunc(encoder)),
	}, nil
}

// Start arms the server.
//
// No socket is bound here: the listener launch is deferred to the first
// [Server.Publish] call, which knows the frame dimensions. Start is a logged
// no-op when the server is disabled (empty listen address) or already
// started; it never affects the embedding pipeline.
func (s *Server) Start() error {
	if !s.enabled() {
		s.logger.Info("image server disabled: empty listen address")
		return ErrDisabled
	}

	if !s.state.transition(StateCreated, StateStarted) {
		s.logger.Error("image server Start already called", "state", s.State().String())
		return ErrAlreadyStarted
	}

	if s.templateFile != "" {
		s.logger.Info("using viewer template", "path", s.templateFile)
	}
	s.logger.Info("image server armed, waiting for first frame", "url", s.baseURL()+"/")
	return nil
}

// Publish replaces the current frame.
//
// The very first publish launches the HTTP listener with the frame's
// dimensions baked into the viewer page; those dimensions are fixed for the
// server's lifetime. Publish is a silent no-op when the server is disabled,
// and a logged no-op outside the started and listening states: a frame
// arriving before Start or after Stop must never launch the listener. The
// frame is held by reference and must not be mutated by the caller
// afterwards.
func (s *Server) Publish(frame image.Image) {
	if !s.enabled() || frame == nil {
		return
	}
	switch st := s.state.current(); st {
	case StateStarted, StateListening:
	default:
		s.logger.Error("image server Publish ignored", "state", st.String())
		return
	}

	bounds := frame.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return
	}

	// the launched flag, not the state machine, guards the bootstrap: a fast
	// second frame must not race the still-starting listener goroutine
	if s.launched.CompareAndSwap(false, true) {
		s.bootstrap(bounds.Dx(), bounds.Dy())
	}

	s.frames.Publish(frame)
}

// Snapshot returns the latest published frame as encoded bytes.
//
// If no frame has ever been published, it returns an empty byte slice. The
// frame is re-encoded on every call.
func (s *Server) Snapshot() ([]byte, error) {
	return s.frames.Snapshot()
}

// Stop runs the two-phase shutdown handshake.
//
// Phase one arms the lifecycle; phase two POSTs to the listener's own
// shutdown route, which tears the listener down from the inside. The POST is
// retried a few times with a per-request timeout in case the listener is
// mid-restart-backoff.
//
// Stop returning nil means the handshake was acknowledged, not that the
// listener goroutine has fully exited; poll [Server.State] for StateStopped
// if precise join semantics are needed. Stop is a no-op when the server is
// disabled or the listener never launched (the state still settles at
// StateStopped). If the handshake fails, the listener stays armed and a
// repeat Stop call re-runs the trigger POST.
func (s *Server) Stop(ctx context.Context) error {
	if !s.enabled() {
		return nil
	}

	if !s.launched.Load() {
		// no listener to hand-shake with
		if s.state.transition(StateCreated, StateStopped) || s.state.transition(StateStarted, StateStopped) {
			s.logger.Info("image server stopped before listener launch")
		}
		return nil
	}

	if !s.state.transition(StateListening, StateReadyToStop) {
		if s.state.current() != StateReadyToStop {
			s.logger.Error("image server Stop ignored", "state", s.State().String())
			return nil
		}
		// a previous Stop armed the handshake but its POST never landed;
		// repeat the trigger phase instead of abandoning the armed listener
	}

	url := s.baseURL() + server.ShutdownPath
	s.logger.Info("shutting down image server", "url", url)

	client := &http.Client{Timeout: stopRequestTimeout}
	var lastErr error
	for attempt := 1; attempt <= stopAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(stopRetryDelay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
		if err != nil {
			return fmt.Errorf("build shutdown request: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			s.logger.Warn("shutdown request failed", "attempt", attempt, "error", err)
			continue
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil
	}

	return fmt.Errorf("shutdown handshake failed after %d attempts: %w", stopAttempts, lastErr)
}

// State returns the current lifecycle state.
func (s *Server) State() State {
	return s.state.current()
}

// Addr returns the configured listen address ("host:port"), or the empty
// string when the server is disabled.
func (s *Server) Addr() string {
	if !s.enabled() {
		return ""
	}
	return net.JoinHostPort(s.host, strconv.Itoa(s.port))
}

func (s *Server) enabled() bool {
	return s.listenAddr != ""
}

// baseURL is the address the server reaches itself at. A wildcard bind host
// is not dialable, so loopback is substituted.
func (s *Server) baseURL() string {
	host := s.host
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(s.port))
}

// bootstrap constructs the router with the now-known frame dimensions and
// hands off to the serve loop on its own goroutine. Runs exactly once, from
// the first Publish call.
func (s *Server) bootstrap(width, height int) {
	s.state.transition(StateStarted, StateListening)

	web := server.New(
		s.frames,
		render.New(s.templateFile, viewer.Assets),
		&lifecycleGuard{state: s.state},
		server.Config{
			Host:             s.host,
			Port:             s.port,
			CameraName:       s.cameraName,
			Width:            width,
			Height:           height,
			DefaultDelaySecs: s.refreshDelay.Seconds(),
			Verbose:          s.verbose,
		},
		s.logger,
	)

	s.mu.Lock()
	s.web = web
	s.mu.Unlock()

	go web.Run()
	s.logger.Info("image server listening",
		"url", s.baseURL()+"/",
		"width", width,
		"height", height,
	)
}

// lifecycleGuard adapts the state machine to the internal server's Lifecycle
// interface without exposing those methods on the public Server type.
type lifecycleGuard struct {
	state *stateMachine
}

func (g *lifecycleGuard) ReadyToStop() bool {
	return g.state.current() == StateReadyToStop
}

func (g *lifecycleGuard) MarkStopped() bool {
	return g.state.transition(StateReadyToStop, StateStopped)
}

func (g *lifecycleGuard) Stopped() bool {
	return g.state.current() == StateStopped
}

// splitListenAddress parses "host:port". A bare host with no port gets the
// default port.
func splitListenAddress(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, defaultPort, nil
	}
	if portStr == "" {
		return host, defaultPort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port in listen address %q", addr)
	}
	return host, port, nil
}
