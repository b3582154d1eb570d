// Package chart renders habit progress images for the statistics view.
package chart

import (
	"bytes"
	"fmt"
	"math"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/edgard/habitbot/internal/database"
	"github.com/edgard/habitbot/internal/streak"
)

const (
	height      = 400
	minWidth    = 640
	barWidth    = 18
	barSpacing  = 6
	chartMargin = 120
	dateLabel   = "02.01"
)

var (
	cumulativeColor = drawing.ColorFromHex("2b8a3e")
	dailyColor      = drawing.ColorFromHex("1c7ed6")
)

// Point is the value of a habit on one day: the logged quantity for numeric
// habits, 1 or 0 for boolean ones.
type Point struct {
	Date  time.Time
	Value float64
}

// Spec describes one chart.
type Spec struct {
	Title     string
	HabitType database.HabitType
	Unit      string
	Points    []Point
}

// BuildSeries returns one point per day for the days ending today, oldest
// first. Days without a log are zero.
func BuildSeries(habitType database.HabitType, days int, today time.Time, logs []database.LogEntry) []Point {
	if days <= 0 {
		return nil
	}

	byDay := make(map[time.Time]float64, len(logs))
	for _, l := range logs {
		v := 1.0
		if habitType == database.HabitTypeNumeric {
			v = 0
			if l.Value.Valid {
				v = float64(l.Value.Int64)
			}
		}
		byDay[streak.Day(l.Date)] = v
	}

	end := streak.Day(today)
	points := make([]Point, 0, days)
	for d := end.AddDate(0, 0, -(days - 1)); !d.After(end); d = d.AddDate(0, 0, 1) {
		points = append(points, Point{Date: d, Value: byDay[d]})
	}
	return points
}

// Cumulative returns the running total of the point values.
func Cumulative(points []Point) []float64 {
	out := make([]float64, len(points))
	total := 0.0
	for i, p := range points {
		total += p.Value
		out[i] = total
	}
	return out
}

// Render draws spec as a PNG image.
func Render(spec Spec) ([]byte, error) {
	if len(spec.Points) == 0 {
		return nil, fmt.Errorf("chart %q has no points", spec.Title)
	}
	if spec.HabitType == database.HabitTypeNumeric {
		return renderNumeric(spec)
	}
	return renderBoolean(spec)
}

func renderNumeric(spec Spec) ([]byte, error) {
	xs := make([]time.Time, len(spec.Points))
	daily := make([]float64, len(spec.Points))
	for i, p := range spec.Points {
		xs[i] = p.Date
		daily[i] = p.Value
	}
	total := Cumulative(spec.Points)

	unit := spec.Unit
	if unit == "" {
		unit = "units"
	}

	graph := gochart.Chart{
		Title:  spec.Title,
		Width:  minWidth,
		Height: height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: gochart.XAxis{
			ValueFormatter: gochart.TimeValueFormatterWithFormat(dateLabel),
		},
		YAxis: gochart.YAxis{
			Name:  fmt.Sprintf("Amount (%s)", unit),
			Range: &gochart.ContinuousRange{Min: 0, Max: axisMax(total)},
		},
		Series: []gochart.Series{
			gochart.TimeSeries{
				Name:    "Total",
				XValues: xs,
				YValues: total,
				Style:   gochart.Style{StrokeColor: cumulativeColor, StrokeWidth: 3},
			},
			gochart.TimeSeries{
				Name:    "Per day",
				XValues: xs,
				YValues: daily,
				Style:   gochart.Style{StrokeColor: dailyColor, StrokeWidth: 2, DotWidth: 3, DotColor: dailyColor},
			},
		},
	}
	graph.Elements = []gochart.Renderable{gochart.Legend(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(gochart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render numeric chart: %w", err)
	}
	return buf.Bytes(), nil
}

func renderBoolean(spec Spec) ([]byte, error) {
	bars := make([]gochart.Value, len(spec.Points))
	done := 0
	for i, p := range spec.Points {
		v := 0.0
		if p.Value > 0 {
			v = 100
			done++
		}
		bars[i] = gochart.Value{
			Label: p.Date.Format(dateLabel),
			Value: v,
			Style: gochart.Style{FillColor: cumulativeColor, StrokeColor: cumulativeColor},
		}
	}

	title := fmt.Sprintf("%s: %d of %d days (%d%%)", spec.Title, done, len(spec.Points), streak.Rate(done, len(spec.Points)))
	width := len(bars)*(barWidth+barSpacing) + chartMargin
	if width < minWidth {
		width = minWidth
	}

	graph := gochart.BarChart{
		Title:      title,
		Width:      width,
		Height:     height,
		BarWidth:   barWidth,
		BarSpacing: barSpacing,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 50},
		},
		XAxis: gochart.Style{FontSize: 7},
		YAxis: gochart.YAxis{
			Range: &gochart.ContinuousRange{Min: 0, Max: 100},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(gochart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render completion chart: %w", err)
	}
	return buf.Bytes(), nil
}

func axisMax(values []float64) float64 {
	highest := 1.0
	for _, v := range values {
		highest = math.Max(highest, v)
	}
	return math.Ceil(highest * 1.1)
}
