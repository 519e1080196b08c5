// Package testpattern generates synthetic camera frames.
//
// The serve command uses it as a stand-in frame producer so the server can
// be run and demonstrated without camera hardware. Frames are plain
// image.Image values, exactly what a real capture pipeline would publish.
package testpattern
