package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/xuri/excelize/v2"
)

// Point is one value of a time series.
type Point struct {
	Time  time.Time
	Value float64
}

// Slice is one sector of a pie chart.
type Slice struct {
	Label string
	Value float64
}

// Renderer turns query results into image and document artifacts.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// LineChart renders a PNG line chart of values over time.
func (r *Renderer) LineChart(title string, points []Point) ([]byte, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("line chart: no points")
	}
	// A single point cannot span an axis range.
	if len(points) == 1 {
		points = append(points, points[0])
	}

	xs := make([]time.Time, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.Time
		ys[i] = p.Value
	}

	graph := chart.Chart{
		Title:  title,
		Width:  1000,
		Height: 600,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat("02.01.2006"),
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Style: chart.Style{
					StrokeWidth: 2,
					DotWidth:    4,
				},
				XValues: xs,
				YValues: ys,
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render line chart: %w", err)
	}
	return buf.Bytes(), nil
}

// PieChart renders a PNG pie chart with percentage labels.
func (r *Renderer) PieChart(title string, slices []Slice) ([]byte, error) {
	if len(slices) == 0 {
		return nil, fmt.Errorf("pie chart: no slices")
	}

	var total float64
	for _, s := range slices {
		total += s.Value
	}
	if total <= 0 {
		return nil, fmt.Errorf("pie chart: zero total")
	}

	values := make([]chart.Value, len(slices))
	for i, s := range slices {
		values[i] = chart.Value{
			Value: s.Value,
			Label: fmt.Sprintf("%s (%.1f%%)", s.Label, s.Value/total*100),
		}
	}

	pie := chart.PieChart{
		Title:  title,
		Width:  800,
		Height: 600,
		Values: values,
	}

	var buf bytes.Buffer
	if err := pie.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render pie chart: %w", err)
	}
	return buf.Bytes(), nil
}

// Spreadsheet builds an xlsx document with a header row and data rows.
func (r *Renderer) Spreadsheet(sheet string, headers []string, rows [][]interface{}) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const defaultSheet = "Sheet1"
	if sheet != "" && sheet != defaultSheet {
		if err := f.SetSheetName(defaultSheet, sheet); err != nil {
			return nil, fmt.Errorf("rename sheet: %w", err)
		}
	} else {
		sheet = defaultSheet
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, err
		}
	}

	for i, row := range rows {
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
