package chart

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"time"
	"unicode/utf16"

	"github.com/iwvelando/data-dashboard/internal/aggregate"
	"github.com/iwvelando/data-dashboard/pkg/constants"
	"github.com/iwvelando/data-dashboard/pkg/format"
	"github.com/iwvelando/data-dashboard/pkg/mathutil"
	"github.com/shopspring/decimal"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNoData is returned for views with nothing to plot.
var ErrNoData = errors.New("no data to plot")

var (
	categoryPalette = []string{"1976d2", "9c27b0", "2e7d32", "ed6c02", "d32f2f", "0288d1", "7b1fa2", "388e3c"}
	regionPalette   = categoryPalette[:6]
	lineColor       = drawing.ColorFromHex("1976d2")
)

// PNGRenderer draws charts with go-chart.
type PNGRenderer struct {
	Width  int
	Height int
	Locale *format.Locale
}

// NewPNGRenderer returns a renderer producing width x height pixel images
// with axis and slice labels formatted for locale.
func NewPNGRenderer(width, height int, locale *format.Locale) *PNGRenderer {
	if width <= 0 {
		width = constants.DefaultChartWidth
	}
	if height <= 0 {
		height = constants.DefaultChartHeight
	}
	if locale == nil {
		locale = format.MustLocale(constants.DefaultLocale, constants.DefaultCurrencySymbol)
	}
	return &PNGRenderer{Width: width, Height: height, Locale: locale}
}

// Render implements Renderer.
func (r *PNGRenderer) Render(kind Kind, view aggregate.View) ([]byte, error) {
	if len(view) == 0 {
		return nil, ErrNoData
	}

	var buf bytes.Buffer
	var err error
	switch kind {
	case DateSeries:
		err = r.renderLine(&buf, kind.Title(), view)
	case CategoryBar:
		err = r.renderBar(&buf, kind.Title(), view)
	case RegionShare:
		err = r.renderPie(&buf, kind.Title(), view)
	default:
		err = fmt.Errorf("unknown chart %q", kind)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *PNGRenderer) currencyTick(v interface{}) string {
	f, ok := v.(float64)
	if !ok {
		return ""
	}
	return r.Locale.WholeCurrency(decimal.NewFromFloat(f))
}

func (r *PNGRenderer) renderLine(buf *bytes.Buffer, title string, view aggregate.View) error {
	xs := make([]time.Time, 0, len(view))
	ys := make([]float64, 0, len(view))
	for _, p := range view {
		day, err := time.Parse(constants.DayLayout, p.Key)
		if err != nil {
			continue
		}
		xs = append(xs, day)
		ys = append(ys, mathutil.Float(p.Value))
	}
	if len(xs) == 0 {
		return ErrNoData
	}

	xAxis := gochart.XAxis{ValueFormatter: gochart.TimeDateValueFormatter}
	if len(xs) == 1 {
		// a single day has no width; widen the axis around it
		xAxis.Range = &gochart.ContinuousRange{
			Min: gochart.TimeToFloat64(xs[0].AddDate(0, 0, -1)),
			Max: gochart.TimeToFloat64(xs[0].AddDate(0, 0, 1)),
		}
	}

	graph := gochart.Chart{
		Title:  title,
		Width:  r.Width,
		Height: r.Height,
		XAxis:  xAxis,
		YAxis: gochart.YAxis{
			ValueFormatter: r.currencyTick,
			Range:          valueRange(ys),
		},
		Series: []gochart.Series{
			gochart.TimeSeries{
				Name:    "Amount",
				XValues: xs,
				YValues: ys,
				Style: gochart.Style{
					StrokeColor: lineColor,
					StrokeWidth: 2,
				},
			},
		},
	}
	return graph.Render(gochart.PNG, buf)
}

func (r *PNGRenderer) renderBar(buf *bytes.Buffer, title string, view aggregate.View) error {
	bars := make([]gochart.Value, 0, len(view))
	ys := make([]float64, 0, len(view))
	for _, p := range view {
		value := mathutil.Float(p.Value)
		color := ColorFor(p.Key, categoryPalette)
		bars = append(bars, gochart.Value{
			Label: p.Key,
			Value: value,
			Style: gochart.Style{FillColor: color, StrokeColor: color},
		})
		ys = append(ys, value)
	}

	barWidth := r.Width / (2 * len(bars))
	if barWidth > 80 {
		barWidth = 80
	}
	if barWidth < 4 {
		barWidth = 4
	}

	graph := gochart.BarChart{
		Title:      title,
		Width:      r.Width,
		Height:     r.Height,
		BarWidth:   barWidth,
		BarSpacing: barWidth,
		YAxis: gochart.YAxis{
			ValueFormatter: r.currencyTick,
			Range:          valueRange(ys),
		},
		Bars: bars,
	}
	return graph.Render(gochart.PNG, buf)
}

func (r *PNGRenderer) renderPie(buf *bytes.Buffer, title string, view aggregate.View) error {
	values := make([]gochart.Value, 0, len(view))
	for _, p := range view {
		// slices need a positive share
		if !p.Value.IsPositive() {
			continue
		}
		values = append(values, gochart.Value{
			Label: fmt.Sprintf("%s: %s", p.Key, r.Locale.WholeCurrency(p.Value)),
			Value: mathutil.Float(p.Value),
			Style: gochart.Style{FillColor: ColorFor(p.Key, regionPalette)},
		})
	}
	if len(values) == 0 {
		return fmt.Errorf("%w: no region has a positive amount", ErrNoData)
	}

	graph := gochart.PieChart{
		Title:  title,
		Width:  r.Width,
		Height: r.Height,
		Values: values,
	}
	return graph.Render(gochart.PNG, buf)
}

// valueRange spans zero and every value so bars and lines share a baseline.
func valueRange(values []float64) *gochart.ContinuousRange {
	lo, hi := 0.0, 0.0
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		hi = lo + 1
	}
	return &gochart.ContinuousRange{Min: lo, Max: hi * 1.1}
}

// ColorFor picks a stable palette color for a label so the same category or
// region keeps its color across renders.
func ColorFor(name string, palette []string) drawing.Color {
	var hash int32
	for _, unit := range utf16.Encode([]rune(name)) {
		hash = hash*31 + int32(unit)
	}
	idx := int64(hash)
	if idx < 0 {
		idx = -idx
	}
	return drawing.ColorFromHex(palette[idx%int64(len(palette))])
}
