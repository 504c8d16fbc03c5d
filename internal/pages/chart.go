package pages

import (
	"fmt"
	"io"
	"strings"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Default PNG size
const (
	DefaultChartWidth  = 900
	DefaultChartHeight = 420
)

// RenderPNG draws ch as a PNG image into w
func RenderPNG(ch Chart, w io.Writer, width, height int) error {
	if width <= 0 {
		width = DefaultChartWidth
	}
	if height <= 0 {
		height = DefaultChartHeight
	}
	if !hasData(ch) {
		return fmt.Errorf("%w: %s", ErrEmptyChart, ch.ID)
	}

	switch ch.Kind {
	case ChartBar:
		return renderBar(ch, w, width, height)
	case ChartPie:
		return renderPie(ch, w, width, height)
	case ChartLine:
		return renderLine(ch, w, width, height)
	default:
		return fmt.Errorf("%w: kind %q", ErrUnknownChart, ch.Kind)
	}
}

func hasData(ch Chart) bool {
	if len(ch.Labels) == 0 || len(ch.Series) == 0 {
		return false
	}
	for _, s := range ch.Series {
		for _, v := range s.Values {
			if v != 0 {
				return true
			}
		}
	}
	return false
}

func color(hex string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
}

func padding() chart.Style {
	return chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}}
}

func renderBar(ch Chart, w io.Writer, width, height int) error {
	values := ch.Series[0].Values
	bars := make([]chart.Value, len(values))
	maxV := 0.0
	for i, v := range values {
		bars[i] = chart.Value{Label: truncate(ch.Labels[i], 14), Value: v}
		if v > maxV {
			maxV = v
		}
	}
	if maxV == 0 {
		maxV = 1
	}

	slot := (width - 120) / len(bars)
	barWidth, spacing := slot*2/3, slot/3
	if barWidth < 4 {
		barWidth, spacing = 4, 2
	}
	bc := chart.BarChart{
		Title:      ch.Title,
		Width:      width,
		Height:     height,
		BarWidth:   barWidth,
		BarSpacing: spacing,
		Background: padding(),
		XAxis:      chart.Style{TextRotationDegrees: 30},
		YAxis: chart.YAxis{
			Range:          &chart.ContinuousRange{Min: 0, Max: maxV * 1.1},
			ValueFormatter: compactFormatter,
		},
		Bars: bars,
	}
	return bc.Render(chart.PNG, w)
}

func renderPie(ch Chart, w io.Writer, width, height int) error {
	var values []chart.Value
	for i, v := range ch.Series[0].Values {
		if v <= 0 {
			continue
		}
		values = append(values, chart.Value{Label: truncate(ch.Labels[i], 24), Value: v})
	}
	pc := chart.PieChart{
		Title:      ch.Title,
		Width:      width,
		Height:     height,
		Background: padding(),
		Values:     values,
	}
	return pc.Render(chart.PNG, w)
}

func renderLine(ch Chart, w io.Writer, width, height int) error {
	n := len(ch.Labels)
	xs := make([]float64, n)
	ticks := make([]chart.Tick, n)
	for i, l := range ch.Labels {
		xs[i] = float64(i)
		ticks[i] = chart.Tick{Value: float64(i), Label: l}
	}
	if n == 1 {
		// a continuous series needs at least two x values
		xs = []float64{0, 1}
		ticks = append(ticks, chart.Tick{Value: 1, Label: ""})
	}

	minY, maxY := 0.0, 0.0
	series := make([]chart.Series, 0, len(ch.Series))
	for _, s := range ch.Series {
		ys := s.Values
		if n == 1 && len(ys) == 1 {
			ys = []float64{ys[0], ys[0]}
		}
		for _, y := range ys {
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
		style := chart.Style{StrokeWidth: 2}
		if s.Color != "" {
			style.StrokeColor = color(s.Color)
			style.DotColor = color(s.Color)
			style.DotWidth = 3
		}
		series = append(series, chart.ContinuousSeries{Name: s.Name, XValues: xs, YValues: ys, Style: style})
	}
	if maxY == minY {
		maxY = minY + 1
	}
	span := maxY - minY

	c := chart.Chart{
		Title:      ch.Title,
		Width:      width,
		Height:     height,
		Background: padding(),
		XAxis:      chart.XAxis{Ticks: ticks},
		YAxis: chart.YAxis{
			Range:          &chart.ContinuousRange{Min: minY - span*0.05, Max: maxY + span*0.05},
			ValueFormatter: compactFormatter,
		},
		Series: series,
	}
	c.Elements = []chart.Renderable{chart.Legend(&c)}
	return c.Render(chart.PNG, w)
}

// compactFormatter renders axis values as 1.2K, 3.4M, 5.6B
func compactFormatter(v interface{}) string {
	f, ok := v.(float64)
	if !ok {
		return fmt.Sprint(v)
	}
	abs := f
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 1e9:
		return fmt.Sprintf("%.1fB", f/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.1fM", f/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%.1fK", f/1e3)
	default:
		return fmt.Sprintf("%.0f", f)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
