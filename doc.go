// Package snapview publishes the most recent frame of a camera-capture
// pipeline as a live-refreshing HTTP snapshot viewer.
//
// SnapView is designed as an SDK-first library: the capture pipeline embeds a
// [Server], calls [Server.Publish] on every new frame, and independent HTTP
// clients poll the auto-refreshing viewer page or fetch the raw image
// directly. There is no frame history and no streaming; the model is
// deliberately "latest frame, re-encoded on demand".
//
// # Quick Start
//
//	sv, _ := snapview.New(
//	    snapview.WithCameraName("front-door"),
//	    snapview.WithListenAddress("0.0.0.0:8080"),
//	)
//	sv.Start()
//
//	for frame := range captureLoop() {
//	    sv.Publish(frame) // the first frame launches the HTTP listener
//	}
//
//	sv.Stop(context.Background())
//
// # Lifecycle
//
// Start only arms the server; the listener is launched lazily by the first
// Publish, because the viewer page embeds the frame's pixel dimensions. The
// listener restarts itself after a fixed backoff on unexpected failure, and
// Stop runs a two-phase handshake (arm, then self-POST to the listener's
// shutdown route) so the listener is never killed mid-request.
//
// # HTTP surface
//
//   - GET /: 302 redirect to /image?delay=<default>
//   - GET /image, GET /image/{delay}: viewer page; delay in seconds overrides
//     the configured refresh delay
//   - GET /image.jpg: latest frame as JPEG, with cache-disabling headers
//
// # Architecture
//
// SnapView consists of several internal packages (under internal/):
//
//   - internal/store: mutex-guarded latest-frame storage with on-demand encoding
//   - internal/render: viewer page rendering by placeholder substitution
//   - internal/server: request routing, access logging, resilient serve loop
//   - viewer: embedded default viewer page assets
//
// The internal packages are not part of the public API and may change
// without notice. The library is designed for single-binary deployment
// using Go's embed directive for the default viewer page.
package snapview
