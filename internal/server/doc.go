// Package server provides the HTTP listener for the snapshot viewer.
//
// The server exposes four routes:
//
//   - GET /: redirect to the viewer page with the default refresh delay
//   - GET /image and /image/{delay}: the auto-refreshing viewer page
//   - GET /image.jpg: the latest frame as raw JPEG bytes, never cached
//   - POST /__shutdown__: internal self-shutdown trigger for the stop handshake
//
// The listener is resilient: [Server.Run] restarts it after a fixed backoff
// on any unexpected failure, for as long as shutdown has not been finalized.
// Shutdown itself is two-phase: the embedding server arms the lifecycle and
// then POSTs to the shutdown route, whose handler tears the listener down
// from the inside via http.Server.Shutdown.
//
// This package is internal to SnapView; construction and lifecycle are
// managed by snapview.Server.
package server
