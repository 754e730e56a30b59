package scene

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	svg "github.com/ajstarks/svgo"

	"cherrycake/internal/mapping"
)

const fontFamily = `font-family:'SF Mono','Courier New',monospace`

// canvas wraps svgo with float coordinates rounded to whole pixels.
type canvas struct {
	*svg.SVG
	out           *errWriter
	width, height float64
}

// errWriter remembers the first write error; svgo drops them.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	if err != nil {
		e.err = err
	}
	return n, err
}

func newCanvas(w io.Writer, width, height int) *canvas {
	out := &errWriter{w: w}
	c := &canvas{SVG: svg.New(out), out: out, width: float64(width), height: float64(height)}
	c.Start(width, height, `viewBox="0 0 `+strconv.Itoa(width)+` `+strconv.Itoa(height)+`"`)
	return c
}

// finish closes the document and reports the first write error.
func (c *canvas) finish() error {
	c.End()
	return c.out.err
}

func px(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int(math.Round(v))
}

func (c *canvas) clear(color string) {
	c.Rect(0, 0, px(c.width), px(c.height), "fill:"+color)
}

func (c *canvas) line(x1, y1, x2, y2 float64, style string) {
	c.Line(px(x1), px(y1), px(x2), px(y2), style)
}

func (c *canvas) rect(x, y, w, h float64, style string) {
	if w < 0 {
		x, w = x+w, -w
	}
	if h < 0 {
		y, h = y+h, -h
	}
	c.Rect(px(x), px(y), px(w), px(h), style)
}

func (c *canvas) circle(x, y, r float64, style string) {
	c.Circle(px(x), px(y), max(px(r), 1), style)
}

func (c *canvas) text(x, y float64, s, style string) {
	c.Text(px(x), px(y), s, style)
}

func (c *canvas) polyline(xs, ys []float64, style string) {
	if len(xs) < 2 {
		return
	}
	ix := make([]int, len(xs))
	iy := make([]int, len(ys))
	for i := range xs {
		ix[i], iy[i] = px(xs[i]), px(ys[i])
	}
	c.Polyline(ix, iy, style)
}

func (c *canvas) polygon(xs, ys []float64, style string) {
	ix := make([]int, len(xs))
	iy := make([]int, len(ys))
	for i := range xs {
		ix[i], iy[i] = px(xs[i]), px(ys[i])
	}
	c.Polygon(ix, iy, style)
}

func blurSource() svg.Filterspec {
	return svg.Filterspec{In: "SourceGraphic"}
}

// progressBar draws the track and fill used by the full layout.
func (c *canvas) progressBar(x, y, w, h, progress float64) {
	c.rect(x, y, w, h, "fill:#333333")
	c.rect(x, y, w*mapping.Clamp(progress, 0, 1), h, "fill:#00AAFF")
}

// stroke builds a stroke style with opacity and width.
func stroke(color string, opacity, width float64) string {
	hex, alpha := splitColor(color)
	return fmt.Sprintf("fill:none;stroke:%s;stroke-opacity:%s;stroke-width:%s;stroke-linecap:round;stroke-linejoin:round",
		hex, num(alpha*opacity), num(width))
}

// fill builds a fill style with opacity.
func fill(color string, opacity float64) string {
	hex, alpha := splitColor(color)
	return fmt.Sprintf("fill:%s;fill-opacity:%s", hex, num(alpha*opacity))
}

// textStyle builds a text style; anchor is start, middle or end.
func textStyle(color string, size int, bold bool, anchor string) string {
	var b strings.Builder
	b.WriteString("fill:")
	b.WriteString(color)
	b.WriteString(";font-size:")
	b.WriteString(strconv.Itoa(size))
	b.WriteString("px;")
	b.WriteString(fontFamily)
	if bold {
		b.WriteString(";font-weight:bold")
	}
	if anchor != "" && anchor != "start" {
		b.WriteString(";text-anchor:")
		b.WriteString(anchor)
	}
	return b.String()
}

// splitColor turns #RGB, #RRGGBB or #RRGGBBAA into #RRGGBB and an alpha.
// Anything else passes through with full opacity.
func splitColor(color string) (string, float64) {
	color = strings.TrimSpace(color)
	if !strings.HasPrefix(color, "#") {
		if color == "" {
			return "#FFFFFF", 1
		}
		return color, 1
	}
	hex := color[1:]
	switch len(hex) {
	case 3:
		return "#" + string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]}), 1
	case 6:
		return color, 1
	case 8:
		a, err := strconv.ParseUint(hex[6:], 16, 8)
		if err != nil {
			return "#" + hex[:6], 1
		}
		return "#" + hex[:6], float64(a) / 255
	default:
		return color, 1
	}
}

// rgb formats an opaque rgb() color from 0-255 channels.
func rgb(r, g, b int) string {
	return fmt.Sprintf("rgb(%d,%d,%d)", clampByte(r), clampByte(g), clampByte(b))
}

// hsl formats an hsl() color.
func hsl(h, s, l float64) string {
	return fmt.Sprintf("hsl(%s,%s%%,%s%%)", num(math.Mod(h, 360)), num(s), num(l))
}

func num(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	return strconv.FormatFloat(math.Round(v*1000)/1000, 'f', -1, 64)
}

func clampByte(v int) int {
	return min(max(v, 0), 255)
}
