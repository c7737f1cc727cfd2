package sonify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSoundMapCoversDefaultMetrics(t *testing.T) {
	for _, key := range []string{
		MetricCPUUsage, MetricMemoryUsage, MetricPodStatus,
		MetricHTTPLatency, MetricErrorsPerSecond, MetricReplicas,
		MetricNodePressure,
	} {
		def, ok := Lookup(key)
		require.True(t, ok, "missing definition for %s", key)
		assert.Equal(t, key, def.Key)
		assert.NotEmpty(t, def.Label)
	}
}

func TestSoundMapInvariants(t *testing.T) {
	for key, def := range SoundMap() {
		assert.NotEmpty(t, def.Notes, "%s: empty note table", key)
		assert.Len(t, def.Colors, len(def.Notes), "%s: notes and colors must be parallel", key)

		for _, n := range def.Notes {
			assert.Positive(t, n.Frequency, "%s: note %s", key, n.Name)
			assert.NotEmpty(t, n.Name, "%s: unnamed note", key)
		}
		for _, c := range def.Colors {
			assert.Regexp(t, `^#[0-9A-Fa-f]{6}$`, c, "%s: malformed color", key)
		}

		if def.Categorical() {
			assert.GreaterOrEqual(t, def.FallbackIndex, 0, key)
			assert.Less(t, def.FallbackIndex, def.TableLen(), key)
			for status, idx := range def.StatusIndex {
				assert.GreaterOrEqual(t, idx, 0, "%s: status %s", key, status)
				assert.Less(t, idx, def.TableLen(), "%s: status %s", key, status)
			}
		} else {
			assert.Less(t, def.Min, def.Max, "%s: numeric range must be non-degenerate", key)
		}
	}
}

func TestValidateRejectsBadTables(t *testing.T) {
	tests := []struct {
		name string
		def  *MetricDef
	}{
		{
			name: "empty notes",
			def:  &MetricDef{Key: "m", Min: 0, Max: 1},
		},
		{
			name: "color count mismatch",
			def: &MetricDef{
				Key: "m", Min: 0, Max: 1,
				Notes:  []Note{{440, "A4"}, {494, "B4"}},
				Colors: []string{"#FFFFFF"},
			},
		},
		{
			name: "degenerate numeric range",
			def: &MetricDef{
				Key: "m", Min: 5, Max: 5,
				Notes:  []Note{{440, "A4"}},
				Colors: []string{"#FFFFFF"},
			},
		},
		{
			name: "status index out of range",
			def: &MetricDef{
				Key:         "m",
				Notes:       []Note{{440, "A4"}},
				Colors:      []string{"#FFFFFF"},
				StatusIndex: map[string]int{"Up": 4},
			},
		},
		{
			name: "non-positive frequency",
			def: &MetricDef{
				Key: "m", Min: 0, Max: 1,
				Notes:  []Note{{0, "X"}},
				Colors: []string{"#FFFFFF"},
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validate(map[string]*MetricDef{"m": tc.def})
			assert.Error(t, err)
		})
	}
}
