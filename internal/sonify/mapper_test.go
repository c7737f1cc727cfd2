package sonify

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeIndexEndpoints(t *testing.T) {
	for _, n := range []int{1, 2, 4, 5, 8, 13} {
		lo, err := ComputeIndex(0, 0, 100, n)
		require.NoError(t, err)
		assert.Equal(t, 0, lo, "min must map to the first slot for n=%d", n)

		hi, err := ComputeIndex(100, 0, 100, n)
		require.NoError(t, err)
		assert.Equal(t, n-1, hi, "max must map to the last slot for n=%d", n)
	}
}

func TestComputeIndexMidpointFloors(t *testing.T) {
	// 50 in [0,100] over 5 slots: floor(0.5 * 4) = 2.
	idx, err := ComputeIndex(50, 0, 100, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, idx)
}

func TestComputeIndexClampsOutOfRange(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		expected int
	}{
		{"below min", -10, 0},
		{"far below min", -1e9, 0},
		{"above max", 150, 7},
		{"far above max", 1e12, 7},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			idx, err := ComputeIndex(tc.value, 0, 100, 8)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, idx)
		})
	}
}

func TestComputeIndexAlwaysInBounds(t *testing.T) {
	for v := -500.0; v <= 1500.0; v += 7.3 {
		idx, err := ComputeIndex(v, 0, 100, 8)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, idx, 0)
		assert.LessOrEqual(t, idx, 7)
	}
}

func TestComputeIndexNonFinite(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := ComputeIndex(v, 0, 100, 8)
		assert.ErrorIs(t, err, ErrNonFiniteValue)
	}
}

func TestComputeIndexDegenerateRange(t *testing.T) {
	idx, err := ComputeIndex(10, 10, 10, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
}

func TestComputeIndexEmptyTable(t *testing.T) {
	_, err := ComputeIndex(50, 0, 100, 0)
	assert.Error(t, err)
}

func TestMapNumeric(t *testing.T) {
	res, err := Map(MetricCPUUsage, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Index)
	assert.Equal(t, 262, res.Frequency)
	assert.Equal(t, "C4", res.NoteName)
	assert.Equal(t, "#88E0EF", res.Color)

	res, err = Map(MetricCPUUsage, 100)
	require.NoError(t, err)
	assert.Equal(t, 7, res.Index)
	assert.Equal(t, 523, res.Frequency)
	assert.Equal(t, "C5", res.NoteName)
}

func TestMapClampsBeforeLookup(t *testing.T) {
	// 150% CPU clamps to 100 and lands on the last slot.
	res, err := Map(MetricCPUUsage, 150)
	require.NoError(t, err)
	assert.Equal(t, 7, res.Index)
}

func TestMapIsIdempotent(t *testing.T) {
	first, err := Map(MetricHTTPLatency, 237.5)
	require.NoError(t, err)
	second, err := Map(MetricHTTPLatency, 237.5)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestMapUnknownMetric(t *testing.T) {
	_, err := Map("disk_usage", 50)
	assert.ErrorIs(t, err, ErrUnknownMetric)
}

func TestMapRejectsCategoricalMetric(t *testing.T) {
	_, err := Map(MetricPodStatus, 3)
	assert.Error(t, err)
}

func TestMapNonFiniteValue(t *testing.T) {
	_, err := Map(MetricMemoryUsage, math.NaN())
	assert.ErrorIs(t, err, ErrNonFiniteValue)
}

func TestMapStatusRecognized(t *testing.T) {
	res, recognized, err := MapStatus(MetricPodStatus, "Running")
	require.NoError(t, err)
	assert.True(t, recognized)
	assert.Equal(t, 3, res.Index)
	assert.Equal(t, 392, res.Frequency)
	assert.Equal(t, "G4", res.NoteName)
}

func TestMapStatusFallback(t *testing.T) {
	// CrashLoopBackOff is a container waiting reason, not a pod phase,
	// so it lands on the fallback slot instead of failing.
	res, recognized, err := MapStatus(MetricPodStatus, "CrashLoopBackOff")
	require.NoError(t, err)
	assert.False(t, recognized)
	assert.Equal(t, 0, res.Index)
	assert.Equal(t, 220, res.Frequency)
}

func TestMapStatusIsTotal(t *testing.T) {
	for _, status := range []string{"", "running", "TRUE", "weird status", "💥"} {
		_, _, err := MapStatus(MetricNodePressure, status)
		assert.NoError(t, err, "status %q must not fail", status)
	}
}

func TestMapStatusNodePressure(t *testing.T) {
	res, recognized, err := MapStatus(MetricNodePressure, "True")
	require.NoError(t, err)
	assert.True(t, recognized)
	assert.Equal(t, 3, res.Index)

	res, recognized, err = MapStatus(MetricNodePressure, "False")
	require.NoError(t, err)
	assert.True(t, recognized)
	assert.Equal(t, 0, res.Index)
}

func TestLookupOutOfRangeFailsLoudly(t *testing.T) {
	def, ok := Lookup(MetricCPUUsage)
	require.True(t, ok)

	_, _, err := def.Lookup(def.TableLen())
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	_, _, err = def.Lookup(-1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}
