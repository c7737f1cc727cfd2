// internal/audio/oto_backend.go
package audio

import (
	"bytes"
	"fmt"
	"time"

	"github.com/ebitengine/oto/v3"
)

// deviceReadyTimeout bounds how long Open waits for the audio device.
// On headless hosts the ready channel may never fire.
const deviceReadyTimeout = 3 * time.Second

// otoBackend plays synthesized PCM tones through the default audio
// device. It is the default backend.
type otoBackend struct {
	ctx *oto.Context
}

// NewOtoBackend returns the PCM synthesis backend.
func NewOtoBackend() Backend {
	return &otoBackend{}
}

func (b *otoBackend) Open() error {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return fmt.Errorf("opening audio device: %w", err)
	}

	select {
	case <-ready:
	case <-time.After(deviceReadyTimeout):
		return fmt.Errorf("audio device not ready after %s", deviceReadyTimeout)
	}

	b.ctx = ctx
	return nil
}

func (b *otoBackend) Play(frequency float64, duration time.Duration) error {
	if b.ctx == nil {
		return fmt.Errorf("audio device not open")
	}

	pcm := pcmBytes(Tone(frequency, duration))
	player := b.ctx.NewPlayer(bytes.NewReader(pcm))
	player.Play()

	for player.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}
	return player.Close()
}

func (b *otoBackend) Close() error {
	// oto contexts have no Close; the device is released at process exit.
	b.ctx = nil
	return nil
}
