package snapview

import (
	"errors"
	"log/slog"
	"time"
)

// svConfig holds mutable state during Server construction.
type svConfig struct {
	cameraName   string
	listenAddr   string
	refreshDelay time.Duration
	templateFile string
	jpegQuality  int
	verbose      bool
	encoder      Encoder
	logger       *slog.Logger
}

// Option is a function that configures a [Server] instance during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
type Option func(*svConfig) error

// WithCameraName sets the display name substituted into the viewer page.
//
// Defaults to "camera" if not specified.
func WithCameraName(name string) Option {
	return func(cfg *svConfig) error {
		if name == "" {
			return errors.New("camera name cannot be empty")
		}
		cfg.cameraName = name
		return nil
	}
}

// WithListenAddress sets the bind address for the HTTP listener.
//
// The address is "host:port"; a bare host gets the default port 8080. An
// empty address (also the default) disables the server entirely: Start,
// Publish and Stop all become no-ops.
//
// Example:
//
//	sv, err := snapview.New(
//	    snapview.WithListenAddress("0.0.0.0:8080"),
//	)
func WithListenAddress(addr string) Option {
	return func(cfg *svConfig) error {
		cfg.listenAddr = addr
		return nil
	}
}

// WithRefreshDelay sets the default viewer refresh delay.
//
// Clients may override it per request via the delay parameter. Defaults to
// 1 second if not specified.
//
// Returns an error if the duration is zero or negative.
func WithRefreshDelay(d time.Duration) Option {
	return func(cfg *svConfig) error {
		if d <= 0 {
			return errors.New("refresh delay must be positive")
		}
		cfg.refreshDelay = d
		return nil
	}
}

// WithTemplateFile sets an on-disk viewer template.
//
// The file is re-read on every viewer request, so edits show up live.
// Placeholder tokens (_TITLE_, _DELAY_SECS_, _NAME_, _WIDTH_, _HEIGHT_,
// _IMAGE_FNAME_) are substituted verbatim. When no template file is set, the
// embedded default page is served.
//
// The path is not checked at construction time; a missing file surfaces as a
// logged per-request error.
func WithTemplateFile(path string) Option {
	return func(cfg *svConfig) error {
		if path == "" {
			return errors.New("template file path cannot be empty")
		}
		cfg.templateFile = path
		return nil
	}
}

// WithEncoder sets a custom frame encoder.
//
// The encoder runs on every snapshot request, under the frame store lock, so
// it should be CPU-bound. Overrides [WithJPEGQuality]. Defaults to
// [JPEGEncoder] at quality 90.
//
// Returns an error if the encoder is nil.
func WithEncoder(enc Encoder) Option {
	return func(cfg *svConfig) error {
		if enc == nil {
			return errors.New("encoder cannot be nil")
		}
		cfg.encoder = enc
		return nil
	}
}

// WithJPEGQuality sets the quality of the default JPEG encoder.
//
// Ignored when a custom encoder is configured via [WithEncoder]. Defaults
// to 90.
//
// Returns an error if quality is outside 1-100.
func WithJPEGQuality(quality int) Option {
	return func(cfg *svConfig) error {
		if quality < 1 || quality > 100 {
			return errors.New("jpeg quality must be between 1 and 100")
		}
		cfg.jpegQuality = quality
		return nil
	}
}

// WithVerboseRequests enables access logging for the snapshot route.
//
// By default snapshot request lines are logged at debug level only, because
// every polling client hits /image.jpg once per refresh delay and the lines
// would flood the log.
func WithVerboseRequests() Option {
	return func(cfg *svConfig) error {
		cfg.verbose = true
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the Server instance.
//
// This allows embedders to control where logs are written and in what
// format. If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *svConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}
