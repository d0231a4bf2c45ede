// Copyright (C) 2024 Tim Bastin, l3montree GmbH
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package charts

import (
	"image/color"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// one shared setup for every chart: title, grid, watermark
func newPlot(style Style, title string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.Add(plotter.NewGrid())
	p.Legend.Add(style.Watermark)
	p.Legend.Top = false
	return p
}

// barSeries is one colored group inside a bar chart.
type barSeries struct {
	values []float64
	color  color.Color
	label  string
}

// renderBars draws one or more series over the same nominal axis. A single
// series is a plain bar chart, several stacked at the same positions give
// per-bar coloring, several with offsets give a grouped chart.
func renderBars(style Style, title string, labels []string, series []barSeries, grouped, horizontal bool, path string) error {
	p := newPlot(style, title)

	barWidth := vg.Points(20)
	if grouped && len(series) > 1 {
		barWidth = vg.Points(46) / vg.Length(len(series))
	}

	for i, s := range series {
		bars, err := plotter.NewBarChart(plotter.Values(s.values), barWidth)
		if err != nil {
			return errors.Wrap(err, "could not build bar chart")
		}
		bars.LineStyle.Width = 0
		bars.Color = s.color
		bars.Horizontal = horizontal
		if grouped && len(series) > 1 {
			bars.Offset = barWidth * vg.Length(i-len(series)/2)
		}
		p.Add(bars)
		if s.label != "" {
			p.Legend.Add(s.label, bars)
		}
	}

	if horizontal {
		p.NominalY(labels...)
	} else {
		p.NominalX(labels...)
	}

	height := style.Height
	if horizontal {
		height = style.TallHeight
	}
	return errors.Wrapf(p.Save(style.Width, height, path), "could not save %s", path)
}

// renderBarsHighlighted draws a single series where one position gets the
// alert color. Implemented as two stacked series with zeroed counterparts.
func renderBarsHighlighted(style Style, title string, labels []string, values []float64, highlight int, path string) error {
	if highlight < 0 || highlight >= len(values) {
		return renderBars(style, title, labels, []barSeries{{values: values, color: style.Primary}}, false, false, path)
	}

	base := make([]float64, len(values))
	peak := make([]float64, len(values))
	copy(base, values)
	base[highlight] = 0
	peak[highlight] = values[highlight]

	return renderBars(style, title, labels, []barSeries{
		{values: base, color: style.Primary},
		{values: peak, color: style.Alert},
	}, false, false, path)
}

// renderLine draws one x/y series, optionally filled down to the axis for
// the cumulative chart.
func renderLine(style Style, title string, points plotter.XYs, fill bool, path string) error {
	p := newPlot(style, title)

	line, err := plotter.NewLine(points)
	if err != nil {
		return errors.Wrap(err, "could not build line chart")
	}
	line.LineStyle.Width = vg.Points(2)
	line.LineStyle.Color = style.Primary
	if fill {
		line.FillColor = style.Accent
	}
	p.Add(line)

	return errors.Wrapf(p.Save(style.Width, style.Height, path), "could not save %s", path)
}

// renderHist draws a value distribution with the given bucket count.
func renderHist(style Style, title string, values []float64, buckets int, path string) error {
	p := newPlot(style, title)

	hist, err := plotter.NewHist(plotter.Values(values), buckets)
	if err != nil {
		return errors.Wrap(err, "could not build histogram")
	}
	hist.FillColor = style.Primary
	hist.LineStyle.Color = style.Grid
	p.Add(hist)

	return errors.Wrapf(p.Save(style.Width, style.Height, path), "could not save %s", path)
}
