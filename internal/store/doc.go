// Package store provides thread-safe storage for the latest camera frame.
//
// This package is internal to SnapView and holds exactly one frame: the most
// recently published one. There is no history; every publish replaces the
// previous frame. Snapshots are encoded on demand through an injected
// [EncodeFunc], so clients always see the freshest frame at the cost of
// re-encoding per request.
//
// Users of the snapview library should not need to interact with this
// package directly. Storage is managed internally by snapview.Server.
package store
