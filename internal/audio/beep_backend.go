// internal/audio/beep_backend.go
package audio

import (
	"time"

	"github.com/gen2brain/beeep"
)

// beepBackend plays tones through the OS beep facility instead of PCM
// synthesis. Selected with --beep; useful where no mixer is available.
// No envelope shaping is possible here.
type beepBackend struct{}

// NewBeepBackend returns the system-beep backend.
func NewBeepBackend() Backend { return beepBackend{} }

func (beepBackend) Open() error { return nil }

func (beepBackend) Play(frequency float64, duration time.Duration) error {
	return beeep.Beep(frequency, int(duration.Milliseconds()))
}

func (beepBackend) Close() error { return nil }
