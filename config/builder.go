package config

import (
	"github.com/snapview/snapview"
)

// BuildOptions converts parsed configuration into SDK options for
// [snapview.New].
//
// The source section is not part of the SDK surface; the CLI consumes it
// directly to drive its frame producer.
func BuildOptions(cfg *Config) []snapview.Option {
	opts := []snapview.Option{
		snapview.WithCameraName(cfg.CameraName),
		snapview.WithListenAddress(cfg.ListenAddress()),
		snapview.WithRefreshDelay(cfg.RefreshDelay.Duration()),
		snapview.WithJPEGQuality(cfg.JPEGQuality),
	}

	if cfg.TemplateFile != "" {
		opts = append(opts, snapview.WithTemplateFile(cfg.TemplateFile))
	}
	if cfg.Verbose {
		opts = append(opts, snapview.WithVerboseRequests())
	}

	return opts
}
