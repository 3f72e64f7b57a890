// Package charts renders the small SVG charts served by the reports API.
package charts

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	svg "github.com/ajstarks/svgo"
)

// Defaults for the report charts.
const (
	DefaultWidth   = 720
	DefaultHeight  = 240
	DefaultPadding = 36
	DefaultTicks   = 5
	maxLabels      = 12
)

var (
	// ErrNoData indicates an empty series.
	ErrNoData = errors.New("charts: series required")
	// ErrLabelMismatch indicates labels and series differ in length.
	ErrLabelMismatch = errors.New("charts: labels length must match series")
	// ErrViewport indicates the requested size leaves no room to plot.
	ErrViewport = errors.New("charts: viewport too small")
)

// Options customises a chart.
type Options struct {
	Title       string
	Description string
	Color       string
	FillColor   string
	AxisColor   string
	GridColor   string
	Padding     int
	Ticks       int
	ShowDots    bool
}

type frame struct {
	width, height int
	pad           int
	plotW, plotH  int
	min, max      float64
	ticks         int
	axis, grid    string
}

func newFrame(width, height int, series []float64, labels []string, opts Options) (frame, error) {
	if len(series) == 0 {
		return frame{}, ErrNoData
	}
	if len(series) != len(labels) {
		return frame{}, ErrLabelMismatch
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	pad := opts.Padding
	if pad <= 0 {
		pad = DefaultPadding
	}
	ticks := opts.Ticks
	if ticks <= 0 {
		ticks = DefaultTicks
	}
	f := frame{
		width: width, height: height, pad: pad,
		plotW: width - 2*pad, plotH: height - 2*pad,
		ticks: ticks,
		axis:  fallback(opts.AxisColor, "#475569"),
		grid:  fallback(opts.GridColor, "#cbd5e1"),
	}
	if f.plotW <= 0 || f.plotH <= 0 {
		return frame{}, ErrViewport
	}
	f.min, f.max = bounds(series)
	if f.min > 0 {
		f.min = 0
	}
	if f.max < 0 {
		f.max = 0
	}
	if math.Abs(f.max-f.min) < 1e-9 {
		f.max = f.min + 1
	}
	return f, nil
}

func (f frame) y(v float64) int {
	return f.pad + f.plotH - int(math.Round((v-f.min)/(f.max-f.min)*float64(f.plotH)))
}

func (f frame) open(canvas *svg.SVG, opts Options, fallbackTitle string) {
	canvas.Startview(f.width, f.height, 0, 0, f.width, f.height)
	canvas.Title(fallback(opts.Title, fallbackTitle))
	canvas.Desc(fallback(opts.Description, fallbackTitle))
	for i := 0; i <= f.ticks; i++ {
		ratio := float64(i) / float64(f.ticks)
		value := f.min + (f.max-f.min)*ratio
		y := f.y(value)
		canvas.Line(f.pad, y, f.pad+f.plotW, y, fmt.Sprintf("stroke:%s;stroke-width:0.5;stroke-dasharray:2,4", f.grid))
		canvas.Text(f.pad-6, y+4, FormatTick(value), fmt.Sprintf("fill:%s;font-size:10px;text-anchor:end", f.axis))
	}
	canvas.Gstyle(fmt.Sprintf("stroke:%s;stroke-width:1", f.axis))
	canvas.Line(f.pad, f.pad, f.pad, f.pad+f.plotH)
	canvas.Line(f.pad, f.y(0), f.pad+f.plotW, f.y(0))
	canvas.Gend()
}

func (f frame) label(canvas *svg.SVG, i, n, x int, text string) {
	every := (n + maxLabels - 1) / maxLabels
	if every > 1 && i%every != 0 && i != n-1 {
		return
	}
	canvas.Text(x, f.pad+f.plotH+14, text, fmt.Sprintf("fill:%s;font-size:10px;text-anchor:middle", f.axis))
}

// Line renders a line chart with a shaded area under the series.
func Line(w io.Writer, width, height int, series []float64, labels []string, opts Options) error {
	f, err := newFrame(width, height, series, labels, opts)
	if err != nil {
		return err
	}
	color := fallback(opts.Color, "#2563eb")
	fill := fallback(opts.FillColor, "rgba(37,99,235,0.12)")

	xs := make([]int, len(series))
	ys := make([]int, len(series))
	for i, v := range series {
		if len(series) == 1 {
			xs[i] = f.pad + f.plotW/2
		} else {
			xs[i] = f.pad + int(math.Round(float64(i)*float64(f.plotW)/float64(len(series)-1)))
		}
		ys[i] = f.y(v)
	}

	canvas := svg.New(w)
	f.open(canvas, opts, "Line chart")
	base := f.y(0)
	areaX := append(append([]int{xs[0]}, xs...), xs[len(xs)-1])
	areaY := append(append([]int{base}, ys...), base)
	canvas.Polygon(areaX, areaY, "stroke:none;fill:"+fill)
	canvas.Polyline(xs, ys, fmt.Sprintf("fill:none;stroke:%s;stroke-width:2;stroke-linejoin:round", color))
	if opts.ShowDots {
		for i := range xs {
			canvas.Circle(xs[i], ys[i], 3, "fill:"+color)
		}
	}
	for i, l := range labels {
		f.label(canvas, i, len(labels), xs[i], l)
	}
	canvas.End()
	return nil
}

// Bars renders a single-series bar chart.
func Bars(w io.Writer, width, height int, series []float64, labels []string, opts Options) error {
	f, err := newFrame(width, height, series, labels, opts)
	if err != nil {
		return err
	}
	color := fallback(opts.Color, "#0ea5e9")
	slot := float64(f.plotW) / float64(len(series))
	barW := int(math.Max(1, math.Round(slot*0.7)))

	canvas := svg.New(w)
	f.open(canvas, opts, "Bar chart")
	zero := f.y(0)
	for i, v := range series {
		x := f.pad + int(math.Round(float64(i)*slot+(slot-float64(barW))/2))
		y := f.y(v)
		top, h := y, zero-y
		if h < 0 {
			top, h = zero, -h
		}
		canvas.Rect(x, top, barW, h, "fill:"+color)
		f.label(canvas, i, len(labels), x+barW/2, labels[i])
	}
	canvas.End()
	return nil
}

// FormatTick abbreviates axis values.
func FormatTick(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 10_000_000:
		return fmt.Sprintf("%.1fCr", v/10_000_000)
	case abs >= 100_000:
		return fmt.Sprintf("%.1fL", v/100_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fk", v/1_000)
	default:
		if math.Abs(v-math.Round(v)) < 1e-9 {
			return fmt.Sprintf("%.0f", v)
		}
		return fmt.Sprintf("%.2f", v)
	}
}

func bounds(series []float64) (float64, float64) {
	lo, hi := series[0], series[0]
	for _, v := range series[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}
