package chart

import (
	"bytes"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsd-team/rsd-service/internal/service"
)

func TestHex(t *testing.T) {
	assert.Equal(t, RGB{0x21, 0x88, 0xFF}, Hex("#2188FF"))
	assert.Equal(t, RGB{0xf9, 0x73, 0x16}, Hex("#f97316"))

	// Malformed values fall back to neutral gray.
	fallback := RGB{0x8B, 0x94, 0x9E}
	assert.Equal(t, fallback, Hex(""))
	assert.Equal(t, fallback, Hex("2188FF"))
	assert.Equal(t, fallback, Hex("#21"))
	assert.Equal(t, fallback, Hex("#zzzzzz"))
}

func newTestPDF() *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	return pdf
}

func render(t *testing.T, pdf *fpdf.Fpdf) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))

	return buf.Bytes()
}

func TestDrawLine(t *testing.T) {
	pdf := newTestPDF()
	startY := pdf.GetY()

	DrawLine(pdf, service.LineChart{
		Title:  "Milestone burn-up",
		Points: 3,
		Series: []service.LineSeries{
			{Name: "Open", Color: "#4ade80", Values: []float64{1, 2, 3}},
			{Name: "Completed", Color: "#a855f7", Values: []float64{0, 1, 2}},
		},
	})

	assert.Greater(t, pdf.GetY(), startY)
	assert.NotEmpty(t, render(t, pdf))
	assert.False(t, pdf.Err())
}

func TestDrawLine_Empty(t *testing.T) {
	pdf := newTestPDF()
	startY := pdf.GetY()

	DrawLine(pdf, service.LineChart{Title: "empty"})

	assert.Equal(t, startY, pdf.GetY())
}

func TestDrawBar(t *testing.T) {
	pdf := newTestPDF()
	startY := pdf.GetY()

	DrawBar(pdf, service.BarChart{
		Title:      "Weekly progress",
		Categories: []string{"Backlog", "Done"},
		Values:     []float64{2, 5},
		Colors:     []string{StatusColors["backlog"], StatusColors["done"]},
	})

	assert.Greater(t, pdf.GetY(), startY)
	assert.False(t, pdf.Err())
	assert.NotEmpty(t, render(t, pdf))
}

func TestDrawStackedBar(t *testing.T) {
	pdf := newTestPDF()
	startY := pdf.GetY()

	DrawStackedBar(pdf, service.StackedBarChart{
		Title:  "Milestone labels",
		Labels: []string{"bug", "feature"},
		Stacks: []service.StackSeries{
			{Name: "Done", Color: StatusColors["done"], Values: []float64{3, 1}},
			{Name: "Backlog", Color: StatusColors["backlog"], Values: []float64{0, 2}},
		},
	})

	assert.Greater(t, pdf.GetY(), startY)
	assert.False(t, pdf.Err())
	assert.NotEmpty(t, render(t, pdf))
}

func TestDrawDonutAndProgressBar(t *testing.T) {
	pdf := newTestPDF()

	DrawDonut(pdf, 50, 50, 12, "v1", 42)
	DrawDonut(pdf, 100, 50, 12, "v2", 130)
	DrawDonut(pdf, 150, 50, 12, "v3", -5)
	DrawProgressBar(pdf, 20, 90, 60, 0.5)
	DrawProgressBar(pdf, 20, 100, 60, 1.7)

	assert.False(t, pdf.Err())
	assert.NotEmpty(t, render(t, pdf))
}
