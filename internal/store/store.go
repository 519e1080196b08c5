package store

import (
	"fmt"
	"image"
	"sync"
)

// EncodeFunc turns a raw frame into its wire representation (e.g. JPEG bytes).
//
// EncodeFunc is the storage-side view of the public snapview.Encoder type.
// It is called under the store lock, so implementations should be CPU-bound
// and must not block on I/O.
type EncodeFunc func(frame image.Image) ([]byte, error)

// FrameStore holds the most recently published frame.
//
// FrameStore is safe for concurrent use: one producer calling
// [FrameStore.Publish] and any number of request handlers calling
// [FrameStore.Snapshot]. The store exclusively owns the current frame;
// readers only ever receive encoded bytes, never a reference into the store.
type FrameStore struct {
	mu     sync.Mutex
	frame  image.Image
	encode EncodeFunc
}

// New creates a [FrameStore] using encode for snapshot serialization.
func New(encode EncodeFunc) *FrameStore {
	return &FrameStore{encode: encode}
}

// Publish replaces the current frame.
//
// The frame is held by reference; the producer must not mutate it after
// publishing. A nil frame is ignored.
func (s *FrameStore) Publish(frame image.Image) {
	if frame == nil {
		return
	}
	s.mu.Lock()
	s.frame = frame
	s.mu.Unlock()
}

// Snapshot encodes and returns the current frame.
//
// If no frame has ever been published, Snapshot returns an empty byte slice
// and no error. The frame is re-encoded on every call (freshness over
// latency); encoding happens under the lock, but the returned bytes are a
// fresh buffer the caller owns outright.
func (s *FrameStore) Snapshot() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frame == nil {
		return []byte{}, nil
	}

	data, err := s.encode(s.frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return data, nil
}
