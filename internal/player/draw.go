package player

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"cherrycake/internal/scene"
)

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFB3C7"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC864")).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
)

// sparkline draws values in [0,1] as one row of block characters. The
// column under progress is returned separately so callers can style it.
func sparkline(values []float64, progress float64) (string, int) {
	if len(values) == 0 {
		return "", -1
	}
	var b strings.Builder
	for _, v := range values {
		if math.IsNaN(v) {
			v = 0
		}
		v = math.Max(0, math.Min(1, v))
		b.WriteRune(sparkBlocks[int(math.Round(v*float64(len(sparkBlocks)-1)))])
	}
	col := int(progress * float64(len(values)))
	if col >= len(values) {
		col = len(values) - 1
	}
	if col < 0 {
		col = 0
	}
	return b.String(), col
}

func drawCurve(c scene.Curve, width int, progress float64) string {
	line, col := sparkline(c.Curve(width), progress)
	if col < 0 {
		return ""
	}
	runes := []rune(line)
	marker := strings.Repeat(" ", col) + "^"
	return string(runes[:col]) + cursorStyle.Render(string(runes[col])) + string(runes[col+1:]) + "\n" + dimStyle.Render(marker)
}

func drawLanes(lanes []scene.Lane) string {
	width := 0
	for _, l := range lanes {
		width = max(width, len(l.Part))
	}
	var b strings.Builder
	for _, l := range lanes {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(l.Color))
		mark := dimStyle.Render("·")
		note := ""
		if l.Active {
			mark = style.Render("●")
			note = fmt.Sprintf(" %s", midiName(l.MIDI))
		}
		fmt.Fprintf(&b, "%-*s %s%s\n", width, l.Part, mark, note)
	}
	return strings.TrimRight(b.String(), "\n")
}

var pitchNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// midiName spells a MIDI note number such as 60 as C4.
func midiName(midi float64) string {
	n := int(math.Round(midi))
	if n <= 0 {
		return ""
	}
	return fmt.Sprintf("%s%d", pitchNames[n%12], n/12-1)
}

func statusLine(st scene.Status) string {
	parts := []string{st.Cursor}
	if st.Segment != "" {
		parts = append(parts, "["+st.Segment+"]")
	}
	if st.Active > 0 {
		parts = append(parts, fmt.Sprintf("active %d", st.Active))
	}
	return strings.Join(parts, "  ")
}
