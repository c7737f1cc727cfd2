// internal/audio/generator.go
package audio

import (
	"encoding/binary"
	"math"
	"time"
)

const sampleRate = 44100

// Tone synthesizes a mono sine wave at the given frequency, shaped by
// the default ADSR envelope. Samples are normalized to [-1, 1].
func Tone(frequency float64, duration time.Duration) []float32 {
	envelope := DefaultEnvelope()
	seconds := duration.Seconds()
	total := int(seconds * sampleRate)
	samples := make([]float32, 0, total)

	for i := 0; i < total; i++ {
		t := float64(i) / sampleRate
		sine := math.Sin(2 * math.Pi * frequency * t)
		samples = append(samples, float32(sine*envelope.Amplitude(t, seconds)))
	}
	return samples
}

// pcmBytes converts normalized samples to little-endian signed 16-bit
// PCM, the format the playback device consumes.
func pcmBytes(samples []float32) []byte {
	buf := make([]byte, 2*len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * math.MaxInt16)
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(v))
	}
	return buf
}
