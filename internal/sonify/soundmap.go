// internal/sonify/soundmap.go
package sonify

import "fmt"

// Note is a single pitch in a metric's scale.
type Note struct {
	Frequency int
	Name      string
}

// MetricDef describes how one metric is rendered as sound and color.
// The Notes and Colors slices are parallel: index i selects both the
// pitch and the terminal color for that severity slot.
type MetricDef struct {
	// Key is the machine name used in configuration ("cpu_usage").
	Key string

	// Label is the human name printed each cycle ("CPU Usage").
	Label string

	// Unit is appended to the printed value ("%", "ms"). May be empty.
	Unit string

	// Min and Max bound the valid numeric range. Values outside are
	// clamped before mapping. Unused for categorical metrics.
	Min float64
	Max float64

	Notes  []Note
	Colors []string

	// StatusIndex maps recognized category strings to a slot index.
	// Nil for numeric metrics.
	StatusIndex map[string]int

	// FallbackIndex is the slot used for unrecognized categories.
	FallbackIndex int
}

// Categorical reports whether the metric maps category strings rather
// than a numeric range.
func (d *MetricDef) Categorical() bool {
	return d.StatusIndex != nil
}

// TableLen returns the number of slots in the metric's scale.
func (d *MetricDef) TableLen() int {
	return len(d.Notes)
}

// Lookup returns the note and color for a slot index. An out-of-range
// index means the calculator produced a bad value, so it fails rather
// than substituting a default.
func (d *MetricDef) Lookup(index int) (Note, string, error) {
	if index < 0 || index >= len(d.Notes) {
		return Note{}, "", fmt.Errorf("%w: metric %s index %d table length %d",
			ErrIndexOutOfRange, d.Key, index, len(d.Notes))
	}
	return d.Notes[index], d.Colors[index], nil
}

// Metric keys understood by the sound map.
const (
	MetricCPUUsage        = "cpu_usage"
	MetricMemoryUsage     = "memory_usage"
	MetricPodStatus       = "pod_status"
	MetricHTTPLatency     = "http_latency"
	MetricErrorsPerSecond = "errors_per_second"
	MetricReplicas        = "replicas"
	MetricNodePressure    = "node_pressure"
)

// soundMap is built once at init and never mutated afterwards.
var soundMap = buildSoundMap()

// SoundMap returns the process-wide metric definition table.
// Callers must treat the result as read-only.
func SoundMap() map[string]*MetricDef {
	return soundMap
}

// Lookup finds the definition for a metric key.
func Lookup(key string) (*MetricDef, bool) {
	def, ok := soundMap[key]
	return def, ok
}

func buildSoundMap() map[string]*MetricDef {
	m := map[string]*MetricDef{
		MetricCPUUsage: {
			Key:   MetricCPUUsage,
			Label: "CPU Usage",
			Unit:  "%",
			Min:   0,
			Max:   100,
			Notes: []Note{
				{262, "C4"}, {294, "D4"}, {330, "E4"}, {349, "F4"},
				{392, "G4"}, {440, "A4"}, {494, "B4"}, {523, "C5"},
			},
			Colors: []string{
				"#88E0EF", "#39C0ED", "#218380", "#126E82",
				"#145DA0", "#0F4C75", "#3282B8", "#118AB2",
			},
		},
		MetricMemoryUsage: {
			Key:   MetricMemoryUsage,
			Label: "Memory Usage",
			Unit:  "%",
			Min:   0,
			Max:   100,
			Notes: []Note{
				{277, "C#4"}, {311, "D#4"}, {349, "F4"}, {370, "F#4"},
				{415, "G#4"}, {466, "A#4"}, {523, "C5"}, {554, "C#5"},
			},
			Colors: []string{
				"#D4F5FF", "#A7E9FF", "#56CCF2", "#29ADB2",
				"#247BA0", "#1E3A8A", "#2A9D8F", "#81B29A",
			},
		},
		MetricPodStatus: {
			Key:   MetricPodStatus,
			Label: "Pod Status",
			Notes: []Note{
				{220, "A3"}, {262, "C4"}, {330, "E4"}, {392, "G4"},
			},
			Colors: []string{
				"#86EF7D", "#22C55E", "#16A34A", "#065F46",
			},
			StatusIndex: map[string]int{
				"Running":   3,
				"Succeeded": 3,
				"Pending":   1,
				"Failed":    0,
				"Unknown":   0,
			},
			FallbackIndex: 0,
		},
		MetricHTTPLatency: {
			Key:   MetricHTTPLatency,
			Label: "HTTP Latency",
			Unit:  "ms",
			Min:   0,
			Max:   500,
			Notes: []Note{
				{294, "D4"}, {330, "E4"}, {370, "F#4"}, {415, "G#4"},
				{466, "A#4"}, {523, "C5"}, {587, "D5"}, {659, "E5"},
			},
			Colors: []string{
				"#FFE5D9", "#FFCAD4", "#F4ACB7", "#F46036",
				"#E5383B", "#B22222", "#8B0000", "#DC143C",
			},
		},
		MetricErrorsPerSecond: {
			Key:   MetricErrorsPerSecond,
			Label: "Errors/Second",
			Unit:  "err/s",
			Min:   0,
			Max:   10,
			Notes: []Note{
				{131, "C3"}, {147, "D3"}, {165, "E3"}, {175, "F3"},
				{196, "G3"}, {220, "A3"}, {247, "B3"}, {262, "C4"},
			},
			Colors: []string{
				"#FFF2CC", "#FFD65E", "#FFA41B", "#F94144",
				"#F3722C", "#F8961E", "#F9C74F", "#90BE6D",
			},
		},
		MetricReplicas: {
			Key:   MetricReplicas,
			Label: "Replica Count",
			Unit:  "Count",
			Min:   0,
			Max:   5,
			Notes: []Note{
				{262, "C4"}, {277, "C#4"}, {294, "D4"}, {311, "D#4"},
				{330, "E4"}, {349, "F4"}, {370, "F#4"}, {392, "G4"},
			},
			Colors: []string{
				"#E0F7FA", "#B2EBF2", "#80DEEA", "#4DD0E1",
				"#26C6DA", "#00BCD4", "#00ACC1", "#0097A7",
			},
		},
		MetricNodePressure: {
			Key:   MetricNodePressure,
			Label: "Node Pressure",
			Notes: []Note{
				{262, "C4"}, {294, "D4"}, {330, "E4"}, {349, "F4"},
			},
			Colors: []string{
				"#FFFFFF", "#F0F4C3", "#D4E157", "#A4A71D",
			},
			StatusIndex: map[string]int{
				"False": 0,
				"True":  3,
			},
			FallbackIndex: 0,
		},
	}

	if err := validate(m); err != nil {
		panic(err)
	}
	return m
}

// validate enforces the table invariants. A violation is a programming
// error in the embedded data, so construction panics at init.
func validate(m map[string]*MetricDef) error {
	for key, def := range m {
		if key != def.Key {
			return fmt.Errorf("sound map key %q does not match def key %q", key, def.Key)
		}
		if len(def.Notes) == 0 {
			return fmt.Errorf("metric %s has an empty note table", key)
		}
		if len(def.Colors) != len(def.Notes) {
			return fmt.Errorf("metric %s has %d colors for %d notes",
				key, len(def.Colors), len(def.Notes))
		}
		for _, n := range def.Notes {
			if n.Frequency <= 0 {
				return fmt.Errorf("metric %s note %s has non-positive frequency", key, n.Name)
			}
		}
		if def.Categorical() {
			if def.FallbackIndex < 0 || def.FallbackIndex >= len(def.Notes) {
				return fmt.Errorf("metric %s fallback index %d out of range", key, def.FallbackIndex)
			}
			for status, idx := range def.StatusIndex {
				if idx < 0 || idx >= len(def.Notes) {
					return fmt.Errorf("metric %s status %q index %d out of range", key, status, idx)
				}
			}
		} else if def.Min >= def.Max {
			return fmt.Errorf("metric %s has invalid range [%v, %v]", key, def.Min, def.Max)
		}
	}
	return nil
}
