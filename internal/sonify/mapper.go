// internal/sonify/mapper.go
package sonify

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrUnknownMetric means the metric key has no sound map entry.
	ErrUnknownMetric = errors.New("unknown metric")

	// ErrNonFiniteValue means the provider handed us NaN or an infinity.
	// That is an upstream failure, not a value to sonify.
	ErrNonFiniteValue = errors.New("non-finite metric value")

	// ErrIndexOutOfRange means a table lookup received an index the
	// calculator should never produce.
	ErrIndexOutOfRange = errors.New("sound table index out of range")
)

// Result is one metric reading mapped onto the sound table. It is
// computed, used to drive playback and display, and discarded.
type Result struct {
	Index     int
	Frequency int
	NoteName  string
	Color     string
}

// ComputeIndex maps value into [0, tableLen-1]: clamp to [min, max],
// normalize to [0, 1], scale by tableLen-1, then truncate toward zero.
// Floor-after-scaling is the fixed rounding rule, so the top slot is
// reached only at (or beyond) max. A degenerate range (min >= max)
// maps everything to slot 0.
func ComputeIndex(value, min, max float64, tableLen int) (int, error) {
	if tableLen < 1 {
		return 0, fmt.Errorf("table length %d must be at least 1", tableLen)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%w: %v", ErrNonFiniteValue, value)
	}
	if min >= max {
		return 0, nil
	}

	clamped := math.Max(min, math.Min(max, value))
	normalized := (clamped - min) / (max - min)
	index := int(normalized * float64(tableLen-1))
	if index > tableLen-1 {
		index = tableLen - 1
	}
	return index, nil
}

// Map converts a numeric metric value into a Result using the metric's
// sound map entry. The value is clamped into the metric's range first,
// so any finite input yields a valid Result.
func Map(key string, value float64) (Result, error) {
	def, ok := Lookup(key)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownMetric, key)
	}
	if def.Categorical() {
		return Result{}, fmt.Errorf("metric %s is categorical, use MapStatus", key)
	}

	index, err := ComputeIndex(value, def.Min, def.Max, def.TableLen())
	if err != nil {
		return Result{}, err
	}
	return resultAt(def, index)
}

// MapStatus converts a category string into a Result. Every input maps
// to something: unrecognized categories land on the metric's fallback
// slot, and the returned bool tells the caller whether the category was
// recognized so it can warn.
func MapStatus(key, status string) (Result, bool, error) {
	def, ok := Lookup(key)
	if !ok {
		return Result{}, false, fmt.Errorf("%w: %s", ErrUnknownMetric, key)
	}
	if !def.Categorical() {
		return Result{}, false, fmt.Errorf("metric %s is numeric, use Map", key)
	}

	index, recognized := def.StatusIndex[status]
	if !recognized {
		index = def.FallbackIndex
	}
	res, err := resultAt(def, index)
	return res, recognized, err
}

func resultAt(def *MetricDef, index int) (Result, error) {
	note, color, err := def.Lookup(index)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Index:     index,
		Frequency: note.Frequency,
		NoteName:  note.Name,
		Color:     color,
	}, nil
}
