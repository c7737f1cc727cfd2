// internal/audio/envelope.go
package audio

// ADSREnvelope shapes tone amplitude over time (attack, decay, sustain,
// release) so tones start and stop without audible clicks.
type ADSREnvelope struct {
	Attack       float64 // seconds
	Decay        float64 // seconds
	SustainLevel float64 // fraction of peak amplitude
	Release      float64 // seconds
}

// DefaultEnvelope returns the envelope used for all metric tones.
func DefaultEnvelope() ADSREnvelope {
	return ADSREnvelope{
		Attack:       0.05,
		Decay:        0.05,
		SustainLevel: 0.8,
		Release:      0.1,
	}
}

// Amplitude returns the envelope gain at time t within a tone of the
// given total duration. Phases are linear ramps; the result is in [0, 1]
// for any t in [0, duration].
func (e ADSREnvelope) Amplitude(t, duration float64) float64 {
	attackEnd := e.Attack
	decayEnd := e.Attack + e.Decay
	releaseStart := duration - e.Release

	switch {
	case t < attackEnd:
		return t / e.Attack
	case t < decayEnd:
		return 1 - (1-e.SustainLevel)*(t-attackEnd)/e.Decay
	case t < releaseStart:
		return e.SustainLevel
	default:
		remaining := (t - releaseStart) / e.Release
		if remaining > 1 {
			remaining = 1
		}
		return e.SustainLevel * (1 - remaining)
	}
}
