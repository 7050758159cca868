package report

import (
	"bytes"
	"testing"
	"time"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestLineChartSinglePoint(t *testing.T) {
	r := NewRenderer()

	img, err := r.LineChart("Доходы", []Point{
		{Time: time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC), Value: 100},
	})
	if err != nil {
		t.Fatalf("single point must render: %v", err)
	}
	if !bytes.HasPrefix(img, pngMagic) {
		t.Error("expected PNG output")
	}
}

func TestLineChartNoPoints(t *testing.T) {
	r := NewRenderer()

	if _, err := r.LineChart("Доходы", nil); err == nil {
		t.Fatal("expected an error for an empty series")
	}
}

func TestPieChart(t *testing.T) {
	r := NewRenderer()

	img, err := r.PieChart("Расходы", []Slice{
		{Label: "Еда", Value: 75},
		{Label: "Транспорт", Value: 25},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(img, pngMagic) {
		t.Error("expected PNG output")
	}
}

func TestPieChartZeroTotal(t *testing.T) {
	r := NewRenderer()

	if _, err := r.PieChart("Расходы", []Slice{{Label: "Еда", Value: 0}}); err == nil {
		t.Fatal("expected an error for a zero total")
	}
}

func TestSpreadsheet(t *testing.T) {
	r := NewRenderer()

	doc, err := r.Spreadsheet("Доходы",
		[]string{"Сумма", "Дата"},
		[][]interface{}{
			{150.50, "15.08.2026 12:00"},
			{200.0, "16.08.2026 09:30"},
		})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	// xlsx files are zip archives.
	if !bytes.HasPrefix(doc, []byte("PK")) {
		t.Error("expected xlsx output")
	}
}
