// internal/audio/backend.go
package audio

import "time"

// Backend is a playback device. Open is called once at startup; an Open
// failure puts the engine into silent mode for the process lifetime
// rather than being retried. Play blocks until the tone has finished,
// which is fine because it only runs on the engine's worker goroutine.
type Backend interface {
	Open() error
	Play(frequency float64, duration time.Duration) error
	Close() error
}

// noopBackend discards every tone. It backs silent mode: audio disabled
// by configuration, TEST_MODE, or a failed device initialization.
type noopBackend struct{}

// NewNoopBackend returns a backend that plays nothing.
func NewNoopBackend() Backend { return noopBackend{} }

func (noopBackend) Open() error                       { return nil }
func (noopBackend) Play(float64, time.Duration) error { return nil }
func (noopBackend) Close() error                      { return nil }
