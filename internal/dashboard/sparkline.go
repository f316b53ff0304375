package dashboard

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Sparkline block characters representing 8 vertical levels (lowest to highest).
const sparklineBlocks = "▁▂▃▄▅▆▇█"

var sparklineBlockRunes = []rune(sparklineBlocks)

// Latency thresholds in milliseconds for sparkline coloring.
const (
	LatencyWarningMs  = 250.0
	LatencyCriticalMs = 1000.0
)

// RenderSparkline draws the most recent width values of data, scaled to the
// min/max of the visible window. The color follows the last value.
func RenderSparkline(data []float64, width int) string {
	if len(data) == 0 || width <= 0 {
		return ""
	}

	if len(data) > width {
		data = data[len(data)-width:]
	}

	minVal, maxVal := data[0], data[0]
	for _, v := range data {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}

	var sb strings.Builder
	sb.Grow(len(data) * 3)

	numLevels := len(sparklineBlockRunes)
	valueRange := maxVal - minVal

	for _, v := range data {
		var level int
		if valueRange == 0 {
			level = numLevels / 2
		} else {
			level = int((v - minVal) / valueRange * float64(numLevels-1))
			if level < 0 {
				level = 0
			} else if level >= numLevels {
				level = numLevels - 1
			}
		}
		sb.WriteRune(sparklineBlockRunes[level])
	}

	return lipgloss.NewStyle().Foreground(LatencyColor(data[len(data)-1])).Render(sb.String())
}

// LatencyColor maps a latency in milliseconds to a severity color.
func LatencyColor(ms float64) lipgloss.Color {
	switch {
	case ms >= LatencyCriticalMs:
		return ColorCritical
	case ms >= LatencyWarningMs:
		return ColorWarning
	default:
		return ColorHealthy
	}
}
