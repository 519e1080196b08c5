package snapview

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
)

// Encoder turns a raw frame into its byte-encoded image representation.
//
// Encoder runs on every snapshot request (snapshots are never cached) and is
// called while the frame store lock is held, so it must be deterministic for
// a given frame and should not block on I/O.
//
// The default is [JPEGEncoder] at quality 90; any function producing a
// complete image file from an [image.Image] works, but the snapshot route
// always reports image/jpeg (encoding-format negotiation is out of scope).
type Encoder func(frame image.Image) ([]byte, error)

// JPEGEncoder returns an [Encoder] producing JPEG output at the given
// quality (1-100, higher is better).
func JPEGEncoder(quality int) Encoder {
	return func(frame image.Image) ([]byte, error) {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
		return buf.Bytes(), nil
	}
}
