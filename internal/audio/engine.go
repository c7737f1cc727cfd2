// internal/audio/engine.go
package audio

import (
	"sync"
	"time"

	"github.com/go-logr/logr"
)

// toneQueueSize bounds the playback backlog. Tones queued beyond this
// are dropped; a stale tone is worthless for ambient monitoring.
const toneQueueSize = 16

type toneRequest struct {
	frequency float64
	duration  time.Duration
}

// Engine owns the playback backend and a single worker goroutine that
// drains a bounded tone queue. Enqueue never blocks the monitoring
// loop; playback of one tone may overlap the loop's next cycle.
type Engine struct {
	backend Backend
	enabled bool
	logger  logr.Logger

	queue    chan toneRequest
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewEngine opens the backend and starts the playback worker. If the
// backend fails to open, the engine comes up in silent mode: Enqueue
// stays legal and cheap, and the device is not re-probed later. The
// degradation is logged once here.
func NewEngine(backend Backend, logger logr.Logger) *Engine {
	e := &Engine{
		backend: backend,
		logger:  logger.WithName("audio-engine"),
		queue:   make(chan toneRequest, toneQueueSize),
		stopCh:  make(chan struct{}),
	}

	if err := backend.Open(); err != nil {
		e.logger.Error(err, "Audio device unavailable, running in silent mode")
		e.enabled = false
		return e
	}
	e.enabled = true

	e.wg.Add(1)
	go e.run()
	return e
}

// Enabled reports whether tones will actually be played.
func (e *Engine) Enabled() bool {
	return e.enabled
}

// Enqueue schedules a tone for playback and returns immediately. In
// silent mode, or when the queue is full, the tone is dropped.
func (e *Engine) Enqueue(frequency float64, duration time.Duration) {
	if !e.enabled {
		return
	}

	select {
	case e.queue <- toneRequest{frequency: frequency, duration: duration}:
	default:
		e.logger.V(1).Info("Tone queue full, dropping tone", "frequency", frequency)
	}
}

// Stop shuts the engine down. An in-flight tone finishes; queued tones
// are abandoned. Safe to call more than once.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		if e.enabled {
			close(e.stopCh)
			e.wg.Wait()
		}
		if err := e.backend.Close(); err != nil {
			e.logger.Error(err, "Failed to close audio backend")
		}
	})
}

func (e *Engine) run() {
	defer e.wg.Done()
	for {
		select {
		case req := <-e.queue:
			// Drop the backlog once a stop is pending.
			select {
			case <-e.stopCh:
				return
			default:
			}
			if err := e.backend.Play(req.frequency, req.duration); err != nil {
				// Playback failures are never fatal. Keep the
				// worker alive for the next tone.
				e.logger.V(1).Info("Tone playback failed",
					"frequency", req.frequency, "error", err.Error())
			}
		case <-e.stopCh:
			return
		}
	}
}
