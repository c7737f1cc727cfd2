// internal/display/formatter.go
package display

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/chimeworks/kubechime/internal/sonify"
)

// Formatter renders metric lines, optionally wrapped in the truecolor
// escape sequence for the metric's current severity color.
type Formatter struct {
	enabled  bool
	renderer *lipgloss.Renderer
}

// NewFormatter creates a formatter writing to w. The color profile is
// forced to truecolor so the hex palette in the sound map is rendered
// exactly; the tool is explicitly opted into color with --color, so
// terminal detection would only get in the way.
func NewFormatter(w io.Writer, colorEnabled bool) *Formatter {
	renderer := lipgloss.NewRenderer(w)
	renderer.SetColorProfile(termenv.TrueColor)
	return &Formatter{
		enabled:  colorEnabled,
		renderer: renderer,
	}
}

// ColorEnabled reports whether lines will carry escape sequences.
func (f *Formatter) ColorEnabled() bool {
	return f.enabled
}

// Render wraps text in the given hex color and a trailing reset. With
// color disabled the text passes through untouched.
func (f *Formatter) Render(text, hexColor string) string {
	if !f.enabled {
		return text
	}
	return f.renderer.NewStyle().Foreground(lipgloss.Color(hexColor)).Render(text)
}

// Line builds the per-metric output line:
//
//	CPU Usage: 42.50 % | Note: G4 (392 Hz) | Color: #145DA0
//
// with any extra provider data appended in stable order.
func Line(def *sonify.MetricDef, value string, res sonify.Result, extra map[string]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", def.Label, value)
	if def.Unit != "" {
		fmt.Fprintf(&b, " %s", def.Unit)
	}
	fmt.Fprintf(&b, " | Note: %s (%d Hz) | Color: %s", res.NoteName, res.Frequency, res.Color)

	if len(extra) > 0 {
		keys := make([]string, 0, len(extra))
		for k := range extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s=%s", k, extra[k]))
		}
		fmt.Fprintf(&b, " | %s", strings.Join(pairs, " "))
	}
	return b.String()
}

// UnknownLine is the fallback display for a metric that could not be
// fetched or mapped this cycle.
func UnknownLine(def *sonify.MetricDef) string {
	return fmt.Sprintf("%s: Unknown", def.Label)
}
